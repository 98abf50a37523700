package leave

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// LEAVE TYPE POLICY - Per-category rules configured by an administrator
// =============================================================================

// LeaveTypePolicy is referenced by requests and never mutated by them.
type LeaveTypePolicy struct {
	ID             string
	OrganizationID string
	Name           string

	// Minimum lead time between submission and start date.
	RequiresAdvanceNoticeDays int

	// Upper bound on chargeable days for a single request.
	MaxDurationDays int

	RequiresDocuments bool

	// Inactive leave types resolve as "not found".
	Active bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NameKey is the form in which leave type names must be unique within an
// organization: trimmed and case-folded, so "Vacation" and "vacation " clash.
func (p LeaveTypePolicy) NameKey() string {
	return strings.ToLower(strings.TrimSpace(p.Name))
}

// Validate checks the administrative constraints on a policy record.
func (p LeaveTypePolicy) Validate() error {
	var problems []string
	if strings.TrimSpace(p.ID) == "" {
		problems = append(problems, "id is required")
	}
	if strings.TrimSpace(p.OrganizationID) == "" {
		problems = append(problems, "organization id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "name is required")
	}
	if p.RequiresAdvanceNoticeDays < 0 {
		problems = append(problems, "requires_advance_notice_days must be >= 0")
	}
	if p.MaxDurationDays <= 0 {
		problems = append(problems, "max_duration_days must be > 0")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPolicy, strings.Join(problems, "; "))
	}
	return nil
}

// =============================================================================
// POLICY SOURCE - Collaborator providing policy records
// =============================================================================

// PolicySource looks up leave types. Implementations return (nil, nil) when
// the record does not exist.
type PolicySource interface {
	LeaveType(ctx context.Context, organizationID, leaveTypeID string) (*LeaveTypePolicy, error)
}

// PolicyRegistry resolves policies for the core and applies the
// unknown-or-disabled rule.
type PolicyRegistry struct {
	Source PolicySource
}

func NewPolicyRegistry(source PolicySource) *PolicyRegistry {
	return &PolicyRegistry{Source: source}
}

// GetPolicy returns the active policy or a *PolicyNotFoundError.
func (r *PolicyRegistry) GetPolicy(ctx context.Context, organizationID, leaveTypeID string) (LeaveTypePolicy, error) {
	p, err := r.Source.LeaveType(ctx, organizationID, leaveTypeID)
	if err != nil {
		return LeaveTypePolicy{}, fmt.Errorf("policy lookup failed: %w", err)
	}
	if p == nil {
		return LeaveTypePolicy{}, &PolicyNotFoundError{OrganizationID: organizationID, LeaveTypeID: leaveTypeID}
	}
	if !p.Active {
		return LeaveTypePolicy{}, &PolicyNotFoundError{OrganizationID: organizationID, LeaveTypeID: leaveTypeID, Inactive: true}
	}
	return *p, nil
}

// =============================================================================
// STATIC POLICIES - In-memory PolicySource
// =============================================================================

type policyKey struct {
	OrganizationID string
	LeaveTypeID    string
}

// StaticPolicies is a PolicySource backed by a map. Safe for concurrent use.
type StaticPolicies struct {
	mu       sync.RWMutex
	policies map[policyKey]LeaveTypePolicy
}

func NewStaticPolicies(policies ...LeaveTypePolicy) *StaticPolicies {
	s := &StaticPolicies{policies: make(map[policyKey]LeaveTypePolicy)}
	for _, p := range policies {
		s.Put(p)
	}
	return s
}

func (s *StaticPolicies) Put(p LeaveTypePolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[policyKey{OrganizationID: p.OrganizationID, LeaveTypeID: p.ID}] = p
}

func (s *StaticPolicies) LeaveType(_ context.Context, organizationID, leaveTypeID string) (*LeaveTypePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[policyKey{OrganizationID: organizationID, LeaveTypeID: leaveTypeID}]
	if !ok {
		return nil, nil
	}
	return &p, nil
}
