package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// ERROR MAPPING
// =============================================================================

// apiError is the HTTP shape of a domain error.
type apiError struct {
	Status int
	Body   ErrorResponse
}

// mapError translates leave errors into status codes and messages. Unknown
// errors become a 500 with a generic message.
func mapError(err error) apiError {
	var (
		validation   *leave.ValidationError
		notFound     *leave.PolicyNotFoundError
		insufficient *leave.InsufficientBalanceError
		credit       *leave.CreditAmountError
		transition   *leave.StateTransitionError
		badDate      errBadDate
	)

	switch {
	case errors.As(err, &badDate):
		return apiError{http.StatusBadRequest, ErrorResponse{Code: "invalid_date", Message: badDate.Error()}}

	case errors.As(err, &validation):
		return apiError{http.StatusUnprocessableEntity, ErrorResponse{
			Code:    "validation_failed",
			Message: "The leave request has problems that must be fixed before it can be submitted.",
			Errors:  toFieldErrorDTOs(validation.Result.Errors),
		}}

	case errors.As(err, &notFound):
		msg := fmt.Sprintf("Leave type %q does not exist.", notFound.LeaveTypeID)
		if notFound.Inactive {
			msg = fmt.Sprintf("Leave type %q is currently disabled.", notFound.LeaveTypeID)
		}
		return apiError{http.StatusNotFound, ErrorResponse{Code: "leave_type_unavailable", Message: msg}}

	case errors.Is(err, leave.ErrRequestNotFound):
		return apiError{http.StatusNotFound, ErrorResponse{Code: "request_not_found", Message: "Leave request not found."}}

	case errors.As(err, &insufficient):
		return apiError{http.StatusConflict, ErrorResponse{
			Code: "insufficient_balance",
			Message: fmt.Sprintf("Leave balance exhausted: %s day(s) available, %s requested.",
				insufficient.Available, insufficient.Requested),
		}}

	case errors.As(err, &transition):
		return apiError{http.StatusConflict, ErrorResponse{
			Code:    "invalid_state_transition",
			Message: fmt.Sprintf("A %s request cannot be moved to %s.", transition.From, transition.To),
		}}

	case errors.As(err, &credit):
		return apiError{http.StatusBadRequest, ErrorResponse{
			Code:    "invalid_credit_amount",
			Message: fmt.Sprintf("Cannot credit %s day(s); only %s used.", credit.Requested, credit.Used),
		}}

	case errors.Is(err, leave.ErrInvalidAmount):
		return apiError{http.StatusBadRequest, ErrorResponse{Code: "invalid_amount", Message: err.Error()}}

	case errors.Is(err, leave.ErrInvalidDateRange):
		return apiError{http.StatusBadRequest, ErrorResponse{Code: "invalid_date_range", Message: err.Error()}}

	case errors.Is(err, leave.ErrInvalidPolicy):
		return apiError{http.StatusBadRequest, ErrorResponse{Code: "invalid_leave_type", Message: err.Error()}}

	case errors.Is(err, leave.ErrMissingIdentity):
		return apiError{http.StatusBadRequest, ErrorResponse{
			Code:    "missing_identity",
			Message: fmt.Sprintf("The %s header is required for this operation.", HeaderActorID),
		}}

	default:
		return apiError{http.StatusInternalServerError, ErrorResponse{Code: "internal_error", Message: "Something went wrong. Please try again."}}
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	mapped := mapError(err)
	if mapped.Status >= http.StatusInternalServerError {
		h.logger.Error("unhandled error",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, mapped.Status, mapped.Body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
