/*
handlers.go - HTTP API handlers for leave requests and balances

PURPOSE:
  Exposes the leave lifecycle via REST. Handles HTTP request/response and
  JSON serialization, and delegates every decision to leave.RequestService.

ENDPOINTS:
  Leave types:
    GET    /api/leave-types                         List organization leave types
    POST   /api/leave-types                         Create or update a leave type
    GET    /api/leave-types/{id}                    Active leave type (404 if disabled)

  Requests:
    POST   /api/leave-requests/validate             Advisory validation, nothing stored
    POST   /api/leave-requests                      Submit (actor is the employee)
    GET    /api/leave-requests                      List (employee_id, status, leave_type_id, limit)
    GET    /api/leave-requests/{id}                 Get
    GET    /api/leave-requests/{id}/events          Transition history
    POST   /api/leave-requests/{id}/approve         Approve (actor is the manager)
    POST   /api/leave-requests/{id}/reject          Reject
    POST   /api/leave-requests/{id}/cancel          Cancel

  Balances:
    GET    /api/employees/{id}/balances?year=       All rows for a year
    GET    /api/employees/{id}/balances/{type}/{y}  One row (created if missing)
    PUT    /api/employees/{id}/balances/{type}/{y}  Set opening/earned

REQUEST FLOW:
  1. Parse HTTP request
  2. Read identity from context (middleware.go)
  3. Call leave.RequestService
  4. Serialize response, or map the error (errors.go)

SEE ALSO:
  - dto.go: Request/response data structures
  - errors.go: Error to status mapping
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *leave.RequestService
	Store   leave.Store

	// DefaultOrganization is used when X-Organization-ID is absent.
	DefaultOrganization string

	clock  func() time.Time
	logger *zap.Logger
}

// NewHandler creates a handler over the service and the store backing it.
func NewHandler(svc *leave.RequestService, store leave.Store, defaultOrg string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Service:             svc,
		Store:               store,
		DefaultOrganization: defaultOrg,
		clock:               time.Now,
		logger:              logger.Named("leave.handler"),
	}
}

// =============================================================================
// LEAVE TYPE ENDPOINTS
// =============================================================================

func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Store.ListLeaveTypes(r.Context(), OrganizationID(r.Context()))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]factory.LeaveTypeJSON, 0, len(types))
	for _, p := range types {
		out = append(out, factory.ToJSON(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetLeaveType(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.Policies().GetPolicy(r.Context(), OrganizationID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, factory.ToJSON(p))
}

// SaveLeaveType creates or replaces a leave type in the caller's organization.
func (h *Handler) SaveLeaveType(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Could not read request body.")
		return
	}
	var lj factory.LeaveTypeJSON
	if err := json.Unmarshal(body, &lj); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be a JSON leave type.")
		return
	}
	lj.OrganizationID = OrganizationID(r.Context())

	p, err := factory.FromJSON(lj)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if existing, err := h.Store.LeaveType(r.Context(), p.OrganizationID, p.ID); err == nil && existing != nil {
		p.CreatedAt = existing.CreatedAt
	}
	p.UpdatedAt = h.clock()
	if err := h.Store.SaveLeaveType(r.Context(), p); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.logger.Info("leave type saved",
		zap.String("organization_id", p.OrganizationID),
		zap.String("leave_type_id", p.ID),
		zap.String("actor_id", ActorID(r.Context())),
	)
	writeJSON(w, http.StatusOK, factory.ToJSON(p))
}

// =============================================================================
// REQUEST ENDPOINTS
// =============================================================================

// ValidateRequest runs the same checks as submit and always answers 200.
func (h *Handler) ValidateRequest(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.decodeDraft(w, r)
	if !ok {
		return
	}
	result, err := h.Service.Preview(r.Context(), draft)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toValidationResultDTO(result))
}

func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.decodeDraft(w, r)
	if !ok {
		return
	}
	req, err := h.Service.Submit(r.Context(), draft)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveRequestDTO(*req))
}

func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := leave.RequestFilter{
		OrganizationID: OrganizationID(r.Context()),
		EmployeeID:     q.Get("employee_id"),
		LeaveTypeID:    q.Get("leave_type_id"),
		Status:         leave.Status(q.Get("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_status", "status must be one of PENDING, APPROVED, REJECTED, CANCELLED.")
		return
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer.")
			return
		}
		filter.Limit = limit
	}

	reqs, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]LeaveRequestDTO, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, toLeaveRequestDTO(req))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := h.loadRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(*req))
}

func (h *Handler) GetRequestEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.loadRequest(w, r); !ok {
		return
	}
	events, err := h.Service.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]TransitionEventDTO, 0, len(events))
	for _, e := range events {
		out = append(out, toTransitionEventDTO(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.Approve)
}

func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.Reject)
}

func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.Cancel)
}

type transitionFunc func(ctx context.Context, id, actorID, comment string) (*leave.LeaveRequest, error)

// decide runs one lifecycle action with the caller as actor. The body is
// optional.
func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	if _, ok := h.loadRequest(w, r); !ok {
		return
	}
	var body DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_body", "Body must be {\"comment\": \"...\"} or empty.")
		return
	}
	req, err := fn(r.Context(), chi.URLParam(r, "id"), ActorID(r.Context()), body.Comment)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(*req))
}

// =============================================================================
// BALANCE ENDPOINTS
// =============================================================================

func (h *Handler) ListBalances(w http.ResponseWriter, r *http.Request) {
	year := h.clock().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_year", "year must be an integer.")
			return
		}
		year = y
	}

	balances, err := h.Service.Ledger().Balances(r.Context(), OrganizationID(r.Context()), chi.URLParam(r, "id"), year)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]BalanceDTO, 0, len(balances))
	for _, b := range balances {
		out = append(out, toBalanceDTO(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	key, ok := h.balanceKey(w, r)
	if !ok {
		return
	}
	b, err := h.Service.Ledger().GetOrInitialize(r.Context(), key)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(b))
}

func (h *Handler) SetEntitlement(w http.ResponseWriter, r *http.Request) {
	key, ok := h.balanceKey(w, r)
	if !ok {
		return
	}
	var body SetEntitlementRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Body must contain opening_balance and earned.")
		return
	}
	b, err := h.Service.Ledger().SetEntitlement(r.Context(), key, body.OpeningBalance, body.Earned)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(b))
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) decodeDraft(w http.ResponseWriter, r *http.Request) (leave.Draft, bool) {
	var body DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be a JSON leave request.")
		return leave.Draft{}, false
	}
	draft, err := body.toDraft(OrganizationID(r.Context()), ActorID(r.Context()))
	if err != nil {
		h.writeDomainError(w, r, err)
		return leave.Draft{}, false
	}
	return draft, true
}

// loadRequest fetches {id} and hides requests from other organizations.
func (h *Handler) loadRequest(w http.ResponseWriter, r *http.Request) (*leave.LeaveRequest, bool) {
	req, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err == nil && req.OrganizationID != OrganizationID(r.Context()) {
		err = leave.ErrRequestNotFound
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return nil, false
	}
	return req, true
}

// balanceKey builds the ledger key for the caller's organization. The leave
// type must exist there, so a typo never creates a stray ledger row.
func (h *Handler) balanceKey(w http.ResponseWriter, r *http.Request) (leave.BalanceKey, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_year", "year must be an integer.")
		return leave.BalanceKey{}, false
	}
	key := leave.BalanceKey{
		OrganizationID: OrganizationID(r.Context()),
		EmployeeID:     chi.URLParam(r, "id"),
		LeaveTypeID:    chi.URLParam(r, "leaveTypeID"),
		Year:           year,
	}
	if _, err := h.Service.Policies().GetPolicy(r.Context(), key.OrganizationID, key.LeaveTypeID); err != nil {
		h.writeDomainError(w, r, err)
		return leave.BalanceKey{}, false
	}
	return key, true
}
