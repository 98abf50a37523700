/*
Package factory provides JSON to Go leave type conversion.

PURPOSE:
  Converts JSON leave type definitions into leave.LeaveTypePolicy values so
  an administrator can configure categories without code changes. The same
  JSON shape is served and accepted by the HTTP API.

JSON SCHEMA:
  [
    {
      "organization_id": "acme",
      "id": "vacation",
      "name": "Vacation",
      "requires_advance_notice_days": 14,
      "max_duration_days": 30,
      "requires_documents": false,
      "active": true
    }
  ]

KEY FEATURES:
  - "active" defaults to true when omitted
  - Rejects duplicate ids and duplicate names within an organization
  - Runs LeaveTypePolicy.Validate on every entry

USAGE:
  policies, err := factory.LoadCatalogFile("./catalog.json")
  for _, p := range policies {
      store.SaveLeaveType(ctx, p)
  }

SEE ALSO:
  - leave/policy.go: LeaveTypePolicy definition
  - cmd/server/main.go: Seeds the store at startup
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// LeaveTypeJSON is the JSON representation of a leave type.
type LeaveTypeJSON struct {
	OrganizationID            string `json:"organization_id"`
	ID                        string `json:"id"`
	Name                      string `json:"name"`
	RequiresAdvanceNoticeDays int    `json:"requires_advance_notice_days"`
	MaxDurationDays           int    `json:"max_duration_days"`
	RequiresDocuments         bool   `json:"requires_documents"`
	Active                    *bool  `json:"active,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseLeaveType parses a single JSON object.
func ParseLeaveType(data []byte) (leave.LeaveTypePolicy, error) {
	var lj LeaveTypeJSON
	if err := json.Unmarshal(data, &lj); err != nil {
		return leave.LeaveTypePolicy{}, fmt.Errorf("failed to parse leave type JSON: %w", err)
	}
	return FromJSON(lj)
}

// ParseCatalog parses a JSON array of leave types.
func ParseCatalog(data []byte) ([]leave.LeaveTypePolicy, error) {
	var entries []LeaveTypeJSON
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}

	type orgKey struct{ org, value string }
	ids := make(map[orgKey]bool)
	names := make(map[orgKey]bool)

	policies := make([]leave.LeaveTypePolicy, 0, len(entries))
	for i, lj := range entries {
		p, err := FromJSON(lj)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		idKey := orgKey{p.OrganizationID, p.ID}
		if ids[idKey] {
			return nil, fmt.Errorf("catalog entry %d: %w: duplicate id %q in organization %s",
				i, leave.ErrInvalidPolicy, p.ID, p.OrganizationID)
		}
		nameKey := orgKey{p.OrganizationID, p.NameKey()}
		if names[nameKey] {
			return nil, fmt.Errorf("catalog entry %d: %w: duplicate name %q in organization %s",
				i, leave.ErrInvalidPolicy, p.Name, p.OrganizationID)
		}
		ids[idKey], names[nameKey] = true, true
		policies = append(policies, p)
	}
	return policies, nil
}

// LoadCatalogFile reads and parses a catalog file.
func LoadCatalogFile(path string) ([]leave.LeaveTypePolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// FromJSON converts and validates one entry.
func FromJSON(lj LeaveTypeJSON) (leave.LeaveTypePolicy, error) {
	active := true
	if lj.Active != nil {
		active = *lj.Active
	}
	p := leave.LeaveTypePolicy{
		ID:                        strings.TrimSpace(lj.ID),
		OrganizationID:            strings.TrimSpace(lj.OrganizationID),
		Name:                      strings.TrimSpace(lj.Name),
		RequiresAdvanceNoticeDays: lj.RequiresAdvanceNoticeDays,
		MaxDurationDays:           lj.MaxDurationDays,
		RequiresDocuments:         lj.RequiresDocuments,
		Active:                    active,
	}
	if err := p.Validate(); err != nil {
		return leave.LeaveTypePolicy{}, err
	}
	return p, nil
}

// ToJSON converts a policy back to its JSON form.
func ToJSON(p leave.LeaveTypePolicy) LeaveTypeJSON {
	active := p.Active
	return LeaveTypeJSON{
		OrganizationID:            p.OrganizationID,
		ID:                        p.ID,
		Name:                      p.Name,
		RequiresAdvanceNoticeDays: p.RequiresAdvanceNoticeDays,
		MaxDurationDays:           p.MaxDurationDays,
		RequiresDocuments:         p.RequiresDocuments,
		Active:                    &active,
	}
}

// =============================================================================
// PRESETS
// =============================================================================

// DefaultCatalog returns the leave types a new organization starts with.
func DefaultCatalog(organizationID string) []leave.LeaveTypePolicy {
	return []leave.LeaveTypePolicy{
		{
			ID:                        "vacation",
			OrganizationID:            organizationID,
			Name:                      "Vacation",
			RequiresAdvanceNoticeDays: 14,
			MaxDurationDays:           30,
			Active:                    true,
		},
		{
			ID:                "sick",
			OrganizationID:    organizationID,
			Name:              "Sick Leave",
			MaxDurationDays:   10,
			RequiresDocuments: true,
			Active:            true,
		},
		{
			ID:                        "personal",
			OrganizationID:            organizationID,
			Name:                      "Personal",
			RequiresAdvanceNoticeDays: 2,
			MaxDurationDays:           3,
			Active:                    true,
		},
	}
}
