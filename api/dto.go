/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the leave domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DATES:
  Calendar dates are "YYYY-MM-DD". Timestamps are RFC 3339. Day counts and
  balances are decimal strings ("0.5", "12").

SEE ALSO:
  - handlers.go: Uses these types
  - factory/catalog.go: LeaveTypeJSON (leave type body)
*/
package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// DraftRequest is the body of /validate and of submit.
type DraftRequest struct {
	LeaveTypeID       string               `json:"leave_type_id"`
	StartDate         string               `json:"start_date"`
	EndDate           string               `json:"end_date,omitempty"`
	IsHalfDay         bool                 `json:"is_half_day"`
	Reason            string               `json:"reason"`
	WorkHandoverNotes string               `json:"work_handover_notes,omitempty"`
	EmergencyContact  *EmergencyContactDTO `json:"emergency_contact,omitempty"`
	AttachmentCount   int                  `json:"attachment_count"`
}

type EmergencyContactDTO struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship,omitempty"`
	Email        string `json:"email,omitempty"`
}

// DecisionRequest is the optional body of approve, reject and cancel.
type DecisionRequest struct {
	Comment string `json:"comment"`
}

type SetEntitlementRequest struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Earned         decimal.Decimal `json:"earned"`
}

// toDraft converts the body. An omitted end date means a single day.
func (d DraftRequest) toDraft(organizationID, employeeID string) (leave.Draft, error) {
	start, err := parseDate("start_date", d.StartDate)
	if err != nil {
		return leave.Draft{}, err
	}
	end := start
	if strings.TrimSpace(d.EndDate) != "" {
		if end, err = parseDate("end_date", d.EndDate); err != nil {
			return leave.Draft{}, err
		}
	}

	draft := leave.Draft{
		OrganizationID:    organizationID,
		EmployeeID:        employeeID,
		LeaveTypeID:       d.LeaveTypeID,
		StartDate:         start,
		EndDate:           end,
		IsHalfDay:         d.IsHalfDay,
		Reason:            d.Reason,
		WorkHandoverNotes: d.WorkHandoverNotes,
		AttachmentCount:   d.AttachmentCount,
	}
	if ec := d.EmergencyContact; ec != nil {
		draft.EmergencyContact = &leave.EmergencyContact{
			Name:         ec.Name,
			Phone:        ec.Phone,
			Relationship: ec.Relationship,
			Email:        ec.Email,
		}
	}
	return draft, nil
}

// errBadDate is a request-shape problem, reported before any domain call.
type errBadDate struct {
	field string
	value string
}

func (e errBadDate) Error() string {
	return fmt.Sprintf("%s must be a YYYY-MM-DD date, got %q", e.field, e.value)
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, errBadDate{field: field, value: value}
	}
	return t, nil
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type FieldErrorDTO struct {
	Kind    leave.ErrorKind `json:"kind"`
	Message string          `json:"message"`
	Limit   int             `json:"limit,omitempty"`
}

type ValidationResultDTO struct {
	Valid     bool                     `json:"valid"`
	TotalDays decimal.Decimal          `json:"total_days"`
	StartDate string                   `json:"start_date"`
	EndDate   string                   `json:"end_date"`
	Errors    map[string]FieldErrorDTO `json:"errors"`
}

func toValidationResultDTO(r leave.ValidationResult) ValidationResultDTO {
	return ValidationResultDTO{
		Valid:     r.Valid,
		TotalDays: r.TotalDays,
		StartDate: formatDate(r.StartDate),
		EndDate:   formatDate(r.EndDate),
		Errors:    toFieldErrorDTOs(r.Errors),
	}
}

func toFieldErrorDTOs(errs map[string]leave.FieldError) map[string]FieldErrorDTO {
	out := make(map[string]FieldErrorDTO, len(errs))
	for field, fe := range errs {
		out[field] = FieldErrorDTO{Kind: fe.Kind, Message: fe.Message, Limit: fe.Limit}
	}
	return out
}

// LeaveRequestDTO represents a leave request in API responses.
type LeaveRequestDTO struct {
	ID                string               `json:"id"`
	OrganizationID    string               `json:"organization_id"`
	EmployeeID        string               `json:"employee_id"`
	LeaveTypeID       string               `json:"leave_type_id"`
	StartDate         string               `json:"start_date"`
	EndDate           string               `json:"end_date"`
	IsHalfDay         bool                 `json:"is_half_day"`
	TotalDays         decimal.Decimal      `json:"total_days"`
	Reason            string               `json:"reason"`
	WorkHandoverNotes string               `json:"work_handover_notes,omitempty"`
	EmergencyContact  *EmergencyContactDTO `json:"emergency_contact,omitempty"`
	AttachmentCount   int                  `json:"attachment_count"`
	Status            leave.Status         `json:"status"`
	AppliedAt         time.Time            `json:"applied_at"`
	DecidedAt         *time.Time           `json:"decided_at,omitempty"`
	DecidedBy         string               `json:"decided_by,omitempty"`
	DecisionComment   string               `json:"decision_comment,omitempty"`
	CancelledAt       *time.Time           `json:"cancelled_at,omitempty"`
	CancelledBy       string               `json:"cancelled_by,omitempty"`
}

func toLeaveRequestDTO(r leave.LeaveRequest) LeaveRequestDTO {
	dto := LeaveRequestDTO{
		ID:                r.ID,
		OrganizationID:    r.OrganizationID,
		EmployeeID:        r.EmployeeID,
		LeaveTypeID:       r.LeaveTypeID,
		StartDate:         formatDate(r.StartDate),
		EndDate:           formatDate(r.EndDate),
		IsHalfDay:         r.IsHalfDay,
		TotalDays:         r.TotalDays,
		Reason:            r.Reason,
		WorkHandoverNotes: r.WorkHandoverNotes,
		AttachmentCount:   r.AttachmentCount,
		Status:            r.Status,
		AppliedAt:         r.AppliedAt,
		DecidedAt:         r.DecidedAt,
		DecidedBy:         r.DecidedBy,
		DecisionComment:   r.DecisionComment,
		CancelledAt:       r.CancelledAt,
		CancelledBy:       r.CancelledBy,
	}
	if ec := r.EmergencyContact; ec != nil {
		dto.EmergencyContact = &EmergencyContactDTO{
			Name:         ec.Name,
			Phone:        ec.Phone,
			Relationship: ec.Relationship,
			Email:        ec.Email,
		}
	}
	return dto
}

type TransitionEventDTO struct {
	ID        string          `json:"id"`
	RequestID string          `json:"request_id"`
	From      leave.Status    `json:"from,omitempty"`
	To        leave.Status    `json:"to"`
	ActorID   string          `json:"actor_id"`
	Comment   string          `json:"comment,omitempty"`
	TotalDays decimal.Decimal `json:"total_days"`
	At        time.Time       `json:"at"`
}

func toTransitionEventDTO(e leave.TransitionEvent) TransitionEventDTO {
	return TransitionEventDTO{
		ID:        e.ID,
		RequestID: e.RequestID,
		From:      e.From,
		To:        e.To,
		ActorID:   e.ActorID,
		Comment:   e.Comment,
		TotalDays: e.TotalDays,
		At:        e.At,
	}
}

// BalanceDTO represents one ledger row.
type BalanceDTO struct {
	EmployeeID     string          `json:"employee_id"`
	LeaveTypeID    string          `json:"leave_type_id"`
	Year           int             `json:"year"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Earned         decimal.Decimal `json:"earned"`
	Used           decimal.Decimal `json:"used"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toBalanceDTO(b leave.LeaveBalance) BalanceDTO {
	return BalanceDTO{
		EmployeeID:     b.EmployeeID,
		LeaveTypeID:    b.LeaveTypeID,
		Year:           b.Year,
		OpeningBalance: b.OpeningBalance,
		Earned:         b.Earned,
		Used:           b.Used,
		ClosingBalance: b.ClosingBalance,
		UpdatedAt:      b.UpdatedAt,
	}
}

// ErrorResponse is returned for every non-2xx response.
type ErrorResponse struct {
	Code    string                   `json:"code"`
	Message string                   `json:"message"`
	Errors  map[string]FieldErrorDTO `json:"errors,omitempty"`
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
