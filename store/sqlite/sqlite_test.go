package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.SaveLeaveType(context.Background(), leave.LeaveTypePolicy{
		ID:                        "vacation",
		OrganizationID:            "org-1",
		Name:                      "Vacation",
		RequiresAdvanceNoticeDays: 14,
		MaxDurationDays:           30,
		Active:                    true,
	}))
	return store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleRequest(id string) leave.LeaveRequest {
	return leave.LeaveRequest{
		ID:                id,
		OrganizationID:    "org-1",
		EmployeeID:        "emp-1",
		LeaveTypeID:       "vacation",
		StartDate:         leave.NewDate(2025, time.April, 1),
		EndDate:           leave.NewDate(2025, time.April, 10),
		TotalDays:         dec("10"),
		Reason:            "trip",
		WorkHandoverNotes: "handed to Sam",
		EmergencyContact:  &leave.EmergencyContact{Name: "Alex", Phone: "+1 555 0100"},
		Status:            leave.StatusPending,
		AppliedAt:         time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

func TestStore_LeaveType_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p, err := store.LeaveType(ctx, "org-1", "vacation")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Vacation", p.Name)
	assert.Equal(t, 14, p.RequiresAdvanceNoticeDays)
	assert.Equal(t, 30, p.MaxDurationDays)
	assert.True(t, p.Active)
	assert.False(t, p.RequiresDocuments)
}

func TestStore_LeaveType_Missing(t *testing.T) {
	store := newTestStore(t)

	p, err := store.LeaveType(context.Background(), "org-2", "vacation")
	require.NoError(t, err)
	assert.Nil(t, p, "other organizations do not see org-1 types")
}

func TestStore_LeaveType_UpsertAndDuplicateName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	updated := leave.LeaveTypePolicy{
		ID: "vacation", OrganizationID: "org-1", Name: "Vacation",
		MaxDurationDays: 20, Active: false,
	}
	require.NoError(t, store.SaveLeaveType(ctx, updated))

	p, err := store.LeaveType(ctx, "org-1", "vacation")
	require.NoError(t, err)
	assert.Equal(t, 20, p.MaxDurationDays)
	assert.False(t, p.Active)

	clash := leave.LeaveTypePolicy{ID: "holiday", OrganizationID: "org-1", Name: "Vacation", MaxDurationDays: 5, Active: true}
	err = store.SaveLeaveType(ctx, clash)
	assert.ErrorIs(t, err, leave.ErrInvalidPolicy)

	types, err := store.ListLeaveTypes(ctx, "org-1")
	require.NoError(t, err)
	assert.Len(t, types, 1)
}

func TestStore_LeaveType_NameUniqueIgnoringCase(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	clash := leave.LeaveTypePolicy{ID: "holiday", OrganizationID: "org-1", Name: " VACATION ", MaxDurationDays: 5, Active: true}
	assert.ErrorIs(t, store.SaveLeaveType(ctx, clash), leave.ErrInvalidPolicy)

	renamed := leave.LeaveTypePolicy{ID: "vacation", OrganizationID: "org-1", Name: "vacation", MaxDurationDays: 30, Active: true}
	assert.NoError(t, store.SaveLeaveType(ctx, renamed), "a type may change the case of its own name")

	otherOrg := clash
	otherOrg.OrganizationID = "org-2"
	assert.NoError(t, store.SaveLeaveType(ctx, otherOrg))
}

// =============================================================================
// REQUESTS
// =============================================================================

func TestStore_Request_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertRequest(ctx, sampleRequest("req-1")))

	got, err := store.Request(ctx, "req-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, leave.NewDate(2025, time.April, 1), got.StartDate)
	assert.Equal(t, leave.NewDate(2025, time.April, 10), got.EndDate)
	assert.True(t, dec("10").Equal(got.TotalDays))
	assert.Equal(t, leave.StatusPending, got.Status)
	require.NotNil(t, got.EmergencyContact)
	assert.Equal(t, "Alex", got.EmergencyContact.Name)
	assert.Nil(t, got.DecidedAt)

	missing, err := store.Request(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_Request_HalfDayTotalSurvives(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := sampleRequest("req-half")
	r.IsHalfDay = true
	r.EndDate = r.StartDate
	r.TotalDays = dec("0.5")
	r.EmergencyContact = nil
	require.NoError(t, store.InsertRequest(ctx, r))

	got, err := store.Request(ctx, "req-half")
	require.NoError(t, err)
	assert.True(t, dec("0.5").Equal(got.TotalDays))
	assert.True(t, got.IsHalfDay)
	assert.Nil(t, got.EmergencyContact)
}

func TestStore_Request_RejectsHalfDaySpanningDays(t *testing.T) {
	store := newTestStore(t)

	r := sampleRequest("req-bad")
	r.IsHalfDay = true
	err := store.InsertRequest(context.Background(), r)

	assert.Error(t, err, "schema CHECK should reject a multi-day half day")
}

func TestStore_Request_UnknownLeaveType_Rejected(t *testing.T) {
	store := newTestStore(t)

	r := sampleRequest("req-fk")
	r.LeaveTypeID = "sabbatical"
	err := store.InsertRequest(context.Background(), r)

	assert.Error(t, err, "foreign key should reject unknown leave type")
}

func TestStore_UpdateRequest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.InsertRequest(ctx, sampleRequest("req-1")))

	r, err := store.Request(ctx, "req-1")
	require.NoError(t, err)
	decided := time.Date(2025, time.March, 2, 10, 0, 0, 0, time.UTC)
	r.Status = leave.StatusApproved
	r.DecidedAt = &decided
	r.DecidedBy = "mgr-1"
	require.NoError(t, store.UpdateRequest(ctx, *r))

	got, err := store.Request(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, got.Status)
	require.NotNil(t, got.DecidedAt)
	assert.True(t, decided.Equal(*got.DecidedAt))
	assert.Equal(t, "mgr-1", got.DecidedBy)

	missing := sampleRequest("req-404")
	assert.ErrorIs(t, store.UpdateRequest(ctx, missing), leave.ErrRequestNotFound)
}

func TestStore_ListRequests_Filters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		r := sampleRequest(fmt.Sprintf("req-%d", i))
		if i == 3 {
			r.EmployeeID = "emp-2"
			r.Status = leave.StatusApproved
		}
		require.NoError(t, store.InsertRequest(ctx, r))
	}

	all, err := store.ListRequests(ctx, leave.RequestFilter{OrganizationID: "org-1"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "req-3", all[0].ID, "newest first")

	mine, err := store.ListRequests(ctx, leave.RequestFilter{EmployeeID: "emp-1"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	approved, err := store.ListRequests(ctx, leave.RequestFilter{Status: leave.StatusApproved})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, "emp-2", approved[0].EmployeeID)

	limited, err := store.ListRequests(ctx, leave.RequestFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

// =============================================================================
// BALANCES + TRANSACTIONS
// =============================================================================

func TestStore_Balance_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := leave.BalanceKey{OrganizationID: "org-1", EmployeeID: "emp-1", LeaveTypeID: "vacation", Year: 2025}

	missing, err := store.Balance(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, missing)

	b := leave.LeaveBalance{
		BalanceKey:     key,
		OpeningBalance: dec("10"),
		Earned:         dec("1.5"),
		Used:           dec("2.5"),
		ClosingBalance: dec("9"),
		UpdatedAt:      time.Now(),
	}
	require.NoError(t, store.PutBalance(ctx, b))

	got, err := store.Balance(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, dec("1.5").Equal(got.Earned))
	assert.True(t, dec("2.5").Equal(got.Used))
	assert.True(t, got.Check())

	list, err := store.ListBalances(ctx, "org-1", "emp-1", 2025)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStore_Balance_ScopedByOrganization(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	keyA := leave.BalanceKey{OrganizationID: "org-1", EmployeeID: "emp-1", LeaveTypeID: "vacation", Year: 2025}
	keyB := keyA
	keyB.OrganizationID = "org-2"

	a := leave.NewLeaveBalance(keyA, time.Now())
	a.OpeningBalance, a.ClosingBalance = dec("5"), dec("5")
	require.NoError(t, store.PutBalance(ctx, a))

	missing, err := store.Balance(ctx, keyB)
	require.NoError(t, err)
	assert.Nil(t, missing, "org-2 must not see org-1's row")

	b := leave.NewLeaveBalance(keyB, time.Now())
	b.OpeningBalance, b.ClosingBalance = dec("8"), dec("8")
	require.NoError(t, store.PutBalance(ctx, b))

	gotA, err := store.Balance(ctx, keyA)
	require.NoError(t, err)
	require.NotNil(t, gotA)
	assert.True(t, dec("5").Equal(gotA.OpeningBalance))
	assert.Equal(t, "org-1", gotA.OrganizationID)

	list, err := store.ListBalances(ctx, "org-2", "emp-1", 2025)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, dec("8").Equal(list[0].OpeningBalance))
}

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(s leave.Store) error {
		if err := s.InsertRequest(ctx, sampleRequest("req-tx")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Request(ctx, "req-tx")
	require.NoError(t, err)
	assert.Nil(t, got, "insert should be rolled back")
}

func TestStore_WithTx_ReadsOwnWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(s leave.Store) error {
		if err := s.InsertRequest(ctx, sampleRequest("req-tx")); err != nil {
			return err
		}
		got, err := s.Request(ctx, "req-tx")
		if err != nil {
			return err
		}
		if got == nil {
			return errors.New("insert not visible inside transaction")
		}
		return nil
	})
	assert.NoError(t, err)
}

// =============================================================================
// LIFECYCLE ON SQLITE
// =============================================================================

func TestLifecycle_OnSQLite(t *testing.T) {
	// GIVEN: Vacation entitlement 10, a submitted 10-day request
	// WHEN: Approved then cancelled
	// THEN: Ledger returns to 10 and the history has three events
	store := newTestStore(t)
	ctx := context.Background()
	clock := func() time.Time { return time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC) }
	svc := leave.NewRequestService(store, store, leave.WithClock(clock))
	key := leave.BalanceKey{OrganizationID: "org-1", EmployeeID: "emp-1", LeaveTypeID: "vacation", Year: 2025}

	_, err := svc.Ledger().SetEntitlement(ctx, key, dec("10"), dec("0"))
	require.NoError(t, err)

	req, err := svc.Submit(ctx, leave.Draft{
		OrganizationID:    "org-1",
		EmployeeID:        "emp-1",
		LeaveTypeID:       "vacation",
		StartDate:         leave.NewDate(2025, time.April, 1),
		EndDate:           leave.NewDate(2025, time.April, 10),
		Reason:            "trip",
		WorkHandoverNotes: "handed to Sam",
		EmergencyContact:  &leave.EmergencyContact{Name: "Alex", Phone: "+1 555 0100"},
	})
	require.NoError(t, err)

	_, err = svc.Approve(ctx, req.ID, "mgr-1", "")
	require.NoError(t, err)
	b, err := svc.Ledger().GetOrInitialize(ctx, key)
	require.NoError(t, err)
	assert.True(t, b.ClosingBalance.IsZero())

	_, err = svc.Cancel(ctx, req.ID, "emp-1", "")
	require.NoError(t, err)
	b, err = svc.Ledger().GetOrInitialize(ctx, key)
	require.NoError(t, err)
	assert.True(t, dec("10").Equal(b.ClosingBalance))

	history, err := svc.History(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, leave.StatusPending, history[0].To)
	assert.Equal(t, leave.StatusApproved, history[1].To)
	assert.Equal(t, leave.StatusCancelled, history[2].To)
	assert.Equal(t, leave.StatusApproved, history[2].From)
}

func TestLifecycle_OnSQLite_ConcurrentApprovals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	clock := func() time.Time { return time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC) }
	svc := leave.NewRequestService(store, store, leave.WithClock(clock))
	key := leave.BalanceKey{OrganizationID: "org-1", EmployeeID: "emp-1", LeaveTypeID: "vacation", Year: 2025}

	_, err := svc.Ledger().SetEntitlement(ctx, key, dec("4"), dec("0"))
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 4; i++ {
		start := leave.NewDate(2025, time.May, 1+2*i)
		req, err := svc.Submit(ctx, leave.Draft{
			OrganizationID: "org-1", EmployeeID: "emp-1", LeaveTypeID: "vacation",
			StartDate: start, EndDate: start.AddDate(0, 0, 1), Reason: "long weekend",
		})
		require.NoError(t, err)
		ids = append(ids, req.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = svc.Approve(ctx, id, "mgr-1", "")
		}(id)
	}
	wg.Wait()

	b, err := svc.Ledger().GetOrInitialize(ctx, key)
	require.NoError(t, err)
	assert.True(t, dec("4").Equal(b.Used))
	assert.True(t, b.Check())

	approved, err := svc.List(ctx, leave.RequestFilter{EmployeeID: "emp-1", Status: leave.StatusApproved})
	require.NoError(t, err)
	assert.Len(t, approved, 2)
}
