// Package store provides in-process implementations of leave.TxStore.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	leaveTypes map[typeKey]leave.LeaveTypePolicy
	requests   map[string]leave.LeaveRequest
	order      []string
	balances   map[leave.BalanceKey]leave.LeaveBalance
	events     map[string][]leave.TransitionEvent
}

type typeKey struct {
	OrganizationID string
	LeaveTypeID    string
}

func NewMemory() *Memory {
	return &Memory{
		leaveTypes: make(map[typeKey]leave.LeaveTypePolicy),
		requests:   make(map[string]leave.LeaveRequest),
		balances:   make(map[leave.BalanceKey]leave.LeaveBalance),
		events:     make(map[string][]leave.TransitionEvent),
	}
}

func (m *Memory) SaveLeaveType(_ context.Context, p leave.LeaveTypePolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLeaveTypeLocked(p)
}

func (m *Memory) LeaveType(_ context.Context, organizationID, leaveTypeID string) (*leave.LeaveTypePolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.leaveTypeLocked(organizationID, leaveTypeID), nil
}

func (m *Memory) ListLeaveTypes(_ context.Context, organizationID string) ([]leave.LeaveTypePolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLeaveTypesLocked(organizationID), nil
}

func (m *Memory) InsertRequest(_ context.Context, r leave.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertRequestLocked(r)
}

func (m *Memory) Request(_ context.Context, id string) (*leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestLocked(id), nil
}

func (m *Memory) UpdateRequest(_ context.Context, r leave.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateRequestLocked(r)
}

func (m *Memory) ListRequests(_ context.Context, filter leave.RequestFilter) ([]leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listRequestsLocked(filter), nil
}

func (m *Memory) Balance(_ context.Context, key leave.BalanceKey) (*leave.LeaveBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balanceLocked(key), nil
}

func (m *Memory) PutBalance(_ context.Context, b leave.LeaveBalance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[b.BalanceKey] = b
	return nil
}

func (m *Memory) ListBalances(_ context.Context, organizationID, employeeID string, year int) ([]leave.LeaveBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listBalancesLocked(organizationID, employeeID, year), nil
}

func (m *Memory) AppendEvent(_ context.Context, e leave.TransitionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.RequestID] = append(m.events[e.RequestID], e)
	return nil
}

func (m *Memory) Events(_ context.Context, requestID string) ([]leave.TransitionEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]leave.TransitionEvent(nil), m.events[requestID]...), nil
}

// =============================================================================
// LOCKED HELPERS - Caller holds mu
// =============================================================================

func (m *Memory) saveLeaveTypeLocked(p leave.LeaveTypePolicy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	for k, existing := range m.leaveTypes {
		if k.OrganizationID == p.OrganizationID && k.LeaveTypeID != p.ID && existing.NameKey() == p.NameKey() {
			return fmt.Errorf("%w: name %q already used in organization %s", leave.ErrInvalidPolicy, p.Name, p.OrganizationID)
		}
	}
	m.leaveTypes[typeKey{p.OrganizationID, p.ID}] = p
	return nil
}

func (m *Memory) leaveTypeLocked(organizationID, leaveTypeID string) *leave.LeaveTypePolicy {
	p, ok := m.leaveTypes[typeKey{organizationID, leaveTypeID}]
	if !ok {
		return nil
	}
	return &p
}

func (m *Memory) listLeaveTypesLocked(organizationID string) []leave.LeaveTypePolicy {
	var result []leave.LeaveTypePolicy
	for k, p := range m.leaveTypes {
		if k.OrganizationID == organizationID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *Memory) insertRequestLocked(r leave.LeaveRequest) error {
	if _, exists := m.requests[r.ID]; exists {
		return fmt.Errorf("leave request %s already exists", r.ID)
	}
	m.requests[r.ID] = cloneRequest(r)
	m.order = append(m.order, r.ID)
	return nil
}

func (m *Memory) requestLocked(id string) *leave.LeaveRequest {
	r, ok := m.requests[id]
	if !ok {
		return nil
	}
	r = cloneRequest(r)
	return &r
}

func (m *Memory) updateRequestLocked(r leave.LeaveRequest) error {
	if _, exists := m.requests[r.ID]; !exists {
		return fmt.Errorf("%w: %s", leave.ErrRequestNotFound, r.ID)
	}
	m.requests[r.ID] = cloneRequest(r)
	return nil
}

// listRequestsLocked returns matches newest first.
func (m *Memory) listRequestsLocked(f leave.RequestFilter) []leave.LeaveRequest {
	var result []leave.LeaveRequest
	for i := len(m.order) - 1; i >= 0; i-- {
		r := m.requests[m.order[i]]
		if f.OrganizationID != "" && r.OrganizationID != f.OrganizationID {
			continue
		}
		if f.EmployeeID != "" && r.EmployeeID != f.EmployeeID {
			continue
		}
		if f.LeaveTypeID != "" && r.LeaveTypeID != f.LeaveTypeID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		result = append(result, cloneRequest(r))
		if f.Limit > 0 && len(result) == f.Limit {
			break
		}
	}
	return result
}

func (m *Memory) balanceLocked(key leave.BalanceKey) *leave.LeaveBalance {
	b, ok := m.balances[key]
	if !ok {
		return nil
	}
	return &b
}

func (m *Memory) listBalancesLocked(organizationID, employeeID string, year int) []leave.LeaveBalance {
	var result []leave.LeaveBalance
	for k, b := range m.balances {
		if k.OrganizationID == organizationID && k.EmployeeID == employeeID && k.Year == year {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].LeaveTypeID < result[j].LeaveTypeID })
	return result
}

func cloneRequest(r leave.LeaveRequest) leave.LeaveRequest {
	if r.EmergencyContact != nil {
		ec := *r.EmergencyContact
		r.EmergencyContact = &ec
	}
	if r.DecidedAt != nil {
		t := *r.DecidedAt
		r.DecidedAt = &t
	}
	if r.CancelledAt != nil {
		t := *r.CancelledAt
		r.CancelledAt = &t
	}
	return r
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	view := &txMemoryView{parent: tm.Memory}

	if err := fn(view); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	leaveTypes map[typeKey]leave.LeaveTypePolicy
	requests   map[string]leave.LeaveRequest
	order      []string
	balances   map[leave.BalanceKey]leave.LeaveBalance
	events     map[string][]leave.TransitionEvent
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		leaveTypes: make(map[typeKey]leave.LeaveTypePolicy, len(tm.leaveTypes)),
		requests:   make(map[string]leave.LeaveRequest, len(tm.requests)),
		order:      append([]string(nil), tm.order...),
		balances:   make(map[leave.BalanceKey]leave.LeaveBalance, len(tm.balances)),
		events:     make(map[string][]leave.TransitionEvent, len(tm.events)),
	}
	for k, v := range tm.leaveTypes {
		s.leaveTypes[k] = v
	}
	for k, v := range tm.requests {
		s.requests[k] = v
	}
	for k, v := range tm.balances {
		s.balances[k] = v
	}
	for k, v := range tm.events {
		s.events[k] = append([]leave.TransitionEvent(nil), v...)
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.leaveTypes = s.leaveTypes
	tm.requests = s.requests
	tm.order = s.order
	tm.balances = s.balances
	tm.events = s.events
}

// txMemoryView runs against the parent while WithTx holds its lock.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) SaveLeaveType(_ context.Context, p leave.LeaveTypePolicy) error {
	return tv.parent.saveLeaveTypeLocked(p)
}

func (tv *txMemoryView) LeaveType(_ context.Context, organizationID, leaveTypeID string) (*leave.LeaveTypePolicy, error) {
	return tv.parent.leaveTypeLocked(organizationID, leaveTypeID), nil
}

func (tv *txMemoryView) ListLeaveTypes(_ context.Context, organizationID string) ([]leave.LeaveTypePolicy, error) {
	return tv.parent.listLeaveTypesLocked(organizationID), nil
}

func (tv *txMemoryView) InsertRequest(_ context.Context, r leave.LeaveRequest) error {
	return tv.parent.insertRequestLocked(r)
}

func (tv *txMemoryView) Request(_ context.Context, id string) (*leave.LeaveRequest, error) {
	return tv.parent.requestLocked(id), nil
}

func (tv *txMemoryView) UpdateRequest(_ context.Context, r leave.LeaveRequest) error {
	return tv.parent.updateRequestLocked(r)
}

func (tv *txMemoryView) ListRequests(_ context.Context, filter leave.RequestFilter) ([]leave.LeaveRequest, error) {
	return tv.parent.listRequestsLocked(filter), nil
}

func (tv *txMemoryView) Balance(_ context.Context, key leave.BalanceKey) (*leave.LeaveBalance, error) {
	return tv.parent.balanceLocked(key), nil
}

func (tv *txMemoryView) PutBalance(_ context.Context, b leave.LeaveBalance) error {
	tv.parent.balances[b.BalanceKey] = b
	return nil
}

func (tv *txMemoryView) ListBalances(_ context.Context, organizationID, employeeID string, year int) ([]leave.LeaveBalance, error) {
	return tv.parent.listBalancesLocked(organizationID, employeeID, year), nil
}

func (tv *txMemoryView) AppendEvent(_ context.Context, e leave.TransitionEvent) error {
	tv.parent.events[e.RequestID] = append(tv.parent.events[e.RequestID], e)
	return nil
}

func (tv *txMemoryView) Events(_ context.Context, requestID string) ([]leave.TransitionEvent, error) {
	return append([]leave.TransitionEvent(nil), tv.parent.events[requestID]...), nil
}

var (
	_ leave.TxStore = (*TxMemory)(nil)
	_ leave.Store   = (*txMemoryView)(nil)
)
