/*
validator.go - Draft validation against a leave type policy

PURPOSE:
  Decides whether a draft request may be submitted. The same Validator backs
  the interactive preview endpoint and Submit, so the authoritative check is
  never a subset of what the employee was shown.

RULES (in order, all failures collected):
  1. Date range      -> InvalidDateRange (skips the date-derived rules)
  2. Advance notice  -> InsufficientAdvanceNotice
  3. Max duration    -> DurationExceedsPolicy
  4. Documents       -> MissingRequiredDocuments
  5. Work handover   -> MissingWorkHandover      (totalDays > 3)
  6. Emergency info  -> MissingEmergencyContact  (totalDays > 7)
  7. Reason          -> MissingReason

HALF DAYS:
  A half-day draft always uses StartDate as its end date. Its total is 0.5,
  so it never crosses the handover or emergency-contact thresholds.

SEE ALSO:
  - duration.go: ComputeDays
  - request.go: Submit runs this before persisting
*/
package leave

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Default thresholds, in chargeable days. Comparisons are strictly greater-than.
const (
	WorkHandoverThresholdDays     = 3
	EmergencyContactThresholdDays = 7
)

// Field keys used in ValidationResult.Errors.
const (
	FieldEndDate           = "end_date"
	FieldStartDate         = "start_date"
	FieldTotalDays         = "total_days"
	FieldAttachments       = "attachments"
	FieldWorkHandoverNotes = "work_handover_notes"
	FieldEmergencyContact  = "emergency_contact"
	FieldReason            = "reason"
)

// Thresholds lets a deployment override the handover and emergency-contact
// limits without code changes.
type Thresholds struct {
	WorkHandoverDays     int
	EmergencyContactDays int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		WorkHandoverDays:     WorkHandoverThresholdDays,
		EmergencyContactDays: EmergencyContactThresholdDays,
	}
}

// ValidationResult is the structured outcome of Validate.
// StartDate/EndDate are the effective (normalized, half-day coerced) dates.
type ValidationResult struct {
	Valid     bool
	Errors    map[string]FieldError
	TotalDays decimal.Decimal
	StartDate time.Time
	EndDate   time.Time
}

// Has reports whether kind was recorded for any field.
func (r ValidationResult) Has(kind ErrorKind) bool {
	for _, fe := range r.Errors {
		if fe.Kind == kind {
			return true
		}
	}
	return false
}

// Validator has no state beyond its thresholds and never touches storage.
type Validator struct {
	Thresholds Thresholds
}

func NewValidator(t Thresholds) *Validator {
	return &Validator{Thresholds: t}
}

// Validate checks draft against policy as of today.
func (v *Validator) Validate(draft Draft, policy LeaveTypePolicy, today time.Time) ValidationResult {
	d := draft.Normalize()
	result := ValidationResult{
		Errors:    make(map[string]FieldError),
		TotalDays: decimal.Zero,
		StartDate: d.StartDate,
		EndDate:   d.EndDate,
	}

	total, err := ComputeDays(d.StartDate, d.EndDate, d.IsHalfDay)
	datesOK := err == nil
	if !datesOK {
		result.Errors[FieldEndDate] = newFieldError(KindInvalidDateRange, 0)
	} else {
		result.TotalDays = total
	}

	if datesOK {
		if n := policy.RequiresAdvanceNoticeDays; n > 0 && DaysBetween(today, d.StartDate) < n {
			result.Errors[FieldStartDate] = newFieldError(KindInsufficientAdvanceNotice, n)
		}
		if total.GreaterThan(decimal.NewFromInt(int64(policy.MaxDurationDays))) {
			result.Errors[FieldTotalDays] = newFieldError(KindDurationExceedsPolicy, policy.MaxDurationDays)
		}
	}

	if policy.RequiresDocuments && d.AttachmentCount < 1 {
		result.Errors[FieldAttachments] = newFieldError(KindMissingRequiredDocuments, 0)
	}

	if datesOK {
		handover := v.Thresholds.WorkHandoverDays
		if total.GreaterThan(decimal.NewFromInt(int64(handover))) && isBlank(d.WorkHandoverNotes) {
			result.Errors[FieldWorkHandoverNotes] = newFieldError(KindMissingWorkHandover, handover)
		}
		emergency := v.Thresholds.EmergencyContactDays
		if total.GreaterThan(decimal.NewFromInt(int64(emergency))) && !d.EmergencyContact.complete() {
			result.Errors[FieldEmergencyContact] = newFieldError(KindMissingEmergencyContact, emergency)
		}
	}

	if isBlank(d.Reason) {
		result.Errors[FieldReason] = newFieldError(KindMissingReason, 0)
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func (c *EmergencyContact) complete() bool {
	return c != nil && !isBlank(c.Name) && !isBlank(c.Phone)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
