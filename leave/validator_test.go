package leave_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var today = leave.NewDate(2025, time.March, 1)

func vacationPolicy() leave.LeaveTypePolicy {
	return leave.LeaveTypePolicy{
		ID:                        "vacation",
		OrganizationID:            "org-1",
		Name:                      "Vacation",
		RequiresAdvanceNoticeDays: 14,
		MaxDurationDays:           30,
		RequiresDocuments:         false,
		Active:                    true,
	}
}

func sickPolicy() leave.LeaveTypePolicy {
	return leave.LeaveTypePolicy{
		ID:                "sick",
		OrganizationID:    "org-1",
		Name:              "Sick",
		MaxDurationDays:   10,
		RequiresDocuments: true,
		Active:            true,
	}
}

// draft returns a draft for [start, end] with a reason and nothing else.
func draft(start, end time.Time) leave.Draft {
	return leave.Draft{
		OrganizationID: "org-1",
		EmployeeID:     "emp-1",
		LeaveTypeID:    "vacation",
		StartDate:      start,
		EndDate:        end,
		Reason:         "family trip",
	}
}

func validate(d leave.Draft, p leave.LeaveTypePolicy) leave.ValidationResult {
	return leave.NewValidator(leave.DefaultThresholds()).Validate(d, p, today)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestValidate_VacationMissingHandover(t *testing.T) {
	// GIVEN: Vacation (14 days notice, max 30), submitted on 2025-03-01
	// WHEN: 2025-03-20..2025-03-24 with a reason but no handover notes
	// THEN: Only MissingWorkHandover, total 5
	d := draft(leave.NewDate(2025, time.March, 20), leave.NewDate(2025, time.March, 24))

	result := validate(d, vacationPolicy())

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, leave.KindMissingWorkHandover, result.Errors[leave.FieldWorkHandoverNotes].Kind)
	assert.True(t, days("5").Equal(result.TotalDays))
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	// GIVEN: Vacation, submitted on 2025-03-01
	// WHEN: Starts 2025-03-05 (4 days notice), no reason
	// THEN: InsufficientAdvanceNotice(14) and MissingReason, both reported
	d := draft(leave.NewDate(2025, time.March, 5), leave.NewDate(2025, time.March, 5))
	d.Reason = ""

	result := validate(d, vacationPolicy())

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 2)
	notice := result.Errors[leave.FieldStartDate]
	assert.Equal(t, leave.KindInsufficientAdvanceNotice, notice.Kind)
	assert.Equal(t, 14, notice.Limit)
	assert.Contains(t, notice.Message, "14")
	assert.Equal(t, leave.KindMissingReason, result.Errors[leave.FieldReason].Kind)
}

func TestValidate_HalfDayCoercesEndDate(t *testing.T) {
	// GIVEN: Half-day with an end date later than the start
	// THEN: End date is forced to the start date and total is 0.5
	d := draft(leave.NewDate(2025, time.April, 2), leave.NewDate(2025, time.April, 5))
	d.IsHalfDay = true

	result := validate(d, vacationPolicy())

	assert.True(t, result.Valid, "errors: %v", result.Errors)
	assert.True(t, days("0.5").Equal(result.TotalDays))
	assert.Equal(t, result.StartDate, result.EndDate)
}

func TestValidate_EndBeforeStart_SkipsDateRules(t *testing.T) {
	d := draft(leave.NewDate(2025, time.March, 3), leave.NewDate(2025, time.March, 2))

	result := validate(d, vacationPolicy())

	require.Len(t, result.Errors, 1)
	assert.Equal(t, leave.KindInvalidDateRange, result.Errors[leave.FieldEndDate].Kind)
	assert.True(t, result.TotalDays.IsZero())
	assert.False(t, result.Has(leave.KindInsufficientAdvanceNotice))
}

func TestValidate_RequiredDocuments(t *testing.T) {
	d := draft(leave.NewDate(2025, time.March, 1), leave.NewDate(2025, time.March, 1))
	d.LeaveTypeID = "sick"

	result := validate(d, sickPolicy())
	assert.True(t, result.Has(leave.KindMissingRequiredDocuments))

	d.AttachmentCount = 1
	result = validate(d, sickPolicy())
	assert.True(t, result.Valid, "errors: %v", result.Errors)
}

func TestValidate_ZeroNoticePolicy_AllowsPastStart(t *testing.T) {
	d := draft(leave.NewDate(2025, time.February, 27), leave.NewDate(2025, time.February, 27))
	d.AttachmentCount = 1

	result := validate(d, sickPolicy())

	assert.True(t, result.Valid, "errors: %v", result.Errors)
}

func TestValidate_DurationExceedsPolicy(t *testing.T) {
	p := vacationPolicy()
	p.MaxDurationDays = 5

	d := draft(leave.NewDate(2025, time.April, 1), leave.NewDate(2025, time.April, 6))
	d.WorkHandoverNotes = "handed to Sam"

	result := validate(d, p)

	require.Contains(t, result.Errors, leave.FieldTotalDays)
	assert.Equal(t, leave.KindDurationExceedsPolicy, result.Errors[leave.FieldTotalDays].Kind)
	assert.Equal(t, 5, result.Errors[leave.FieldTotalDays].Limit)
}

func TestValidate_DurationAtLimit_Allowed(t *testing.T) {
	p := vacationPolicy()
	p.MaxDurationDays = 5

	d := draft(leave.NewDate(2025, time.April, 1), leave.NewDate(2025, time.April, 5))
	d.WorkHandoverNotes = "handed to Sam"

	assert.True(t, validate(d, p).Valid)
}

// =============================================================================
// THRESHOLD BOUNDARIES - Strictly greater-than
// =============================================================================

func TestValidate_HandoverThresholdBoundary(t *testing.T) {
	start := leave.NewDate(2025, time.April, 1)

	three := validate(draft(start, start.AddDate(0, 0, 2)), vacationPolicy())
	assert.False(t, three.Has(leave.KindMissingWorkHandover), "3 days does not need handover")

	four := validate(draft(start, start.AddDate(0, 0, 3)), vacationPolicy())
	assert.True(t, four.Has(leave.KindMissingWorkHandover), "4 days needs handover")
}

func TestValidate_AdvanceNoticeBoundary(t *testing.T) {
	// GIVEN: Vacation requires 14 days notice, today is 2025-03-01
	// THEN: Starting on today+14 passes, today+13 does not
	onTime := today.AddDate(0, 0, 14)
	exact := validate(draft(onTime, onTime), vacationPolicy())
	assert.False(t, exact.Has(leave.KindInsufficientAdvanceNotice), "exactly 14 days notice is enough")

	late := today.AddDate(0, 0, 13)
	short := validate(draft(late, late), vacationPolicy())
	assert.True(t, short.Has(leave.KindInsufficientAdvanceNotice), "13 days notice is short")
}

func TestValidate_TwoDaysNoticeAgainstFourteen(t *testing.T) {
	// GIVEN: Vacation (14 days notice)
	// WHEN: Starts today+2
	// THEN: InsufficientAdvanceNotice with limit 14
	start := today.AddDate(0, 0, 2)

	result := validate(draft(start, start), vacationPolicy())

	assert.False(t, result.Valid)
	require.Contains(t, result.Errors, leave.FieldStartDate)
	assert.Equal(t, leave.KindInsufficientAdvanceNotice, result.Errors[leave.FieldStartDate].Kind)
	assert.Equal(t, 14, result.Errors[leave.FieldStartDate].Limit)
}

func TestValidate_EmergencyContactThresholdBoundary(t *testing.T) {
	start := leave.NewDate(2025, time.April, 1)

	seven := draft(start, start.AddDate(0, 0, 6))
	seven.WorkHandoverNotes = "handed to Sam"
	assert.True(t, validate(seven, vacationPolicy()).Valid, "7 days does not need a contact")

	eight := draft(start, start.AddDate(0, 0, 7))
	eight.WorkHandoverNotes = "handed to Sam"
	result := validate(eight, vacationPolicy())
	assert.True(t, result.Has(leave.KindMissingEmergencyContact), "8 days needs a contact")

	eight.EmergencyContact = &leave.EmergencyContact{Name: "Alex", Phone: "  "}
	assert.True(t, validate(eight, vacationPolicy()).Has(leave.KindMissingEmergencyContact), "blank phone is incomplete")

	eight.EmergencyContact.Phone = "+1 555 0100"
	assert.True(t, validate(eight, vacationPolicy()).Valid)
}

func TestValidate_CustomThresholds(t *testing.T) {
	v := leave.NewValidator(leave.Thresholds{WorkHandoverDays: 1, EmergencyContactDays: 2})
	start := leave.NewDate(2025, time.April, 1)

	result := v.Validate(draft(start, start.AddDate(0, 0, 2)), vacationPolicy(), today)

	assert.True(t, result.Has(leave.KindMissingWorkHandover))
	assert.True(t, result.Has(leave.KindMissingEmergencyContact))
	assert.Equal(t, 1, result.Errors[leave.FieldWorkHandoverNotes].Limit)
}

func TestValidate_WhitespaceReasonIsMissing(t *testing.T) {
	d := draft(leave.NewDate(2025, time.April, 1), leave.NewDate(2025, time.April, 1))
	d.Reason = " \t\n"

	assert.True(t, validate(d, vacationPolicy()).Has(leave.KindMissingReason))
}

func TestValidate_IsDeterministic(t *testing.T) {
	d := draft(leave.NewDate(2025, time.March, 5), leave.NewDate(2025, time.March, 20))
	d.Reason = ""

	first := validate(d, vacationPolicy())
	second := validate(d, vacationPolicy())

	assert.Equal(t, first, second)
}
