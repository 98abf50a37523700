/*
Package sqlite provides a SQLite-backed implementation of leave.TxStore.

PURPOSE:
  Persists leave types, requests, balances, and the transition log. The
  same schema ports to PostgreSQL with minor dialect changes.

INTERFACES IMPLEMENTED:
  leave.TxStore:      Record persistence + transactions
  leave.PolicySource: Leave type lookups for the PolicyRegistry

KEY TABLES:
  leave_types:          Per-organization policy records
  leave_requests:       Requests (never deleted; status moves forward only)
  leave_balances:       One row per (organization, employee, leave type, year)
  leave_request_events: Append-only transition log

CHECK CONSTRAINTS:
  The balance table rejects rows where Used < 0. ClosingBalance is
  derived in Go from decimal TEXT columns, so the closing equation is
  enforced by the ledger, not by SQL arithmetic.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single open connection so
  ":memory:" databases are shared by every statement. WithTx holds the
  write lock for the whole transaction; all reads inside it go through
  the sql.Tx.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := leave.NewRequestService(store, store)

SEE ALSO:
  - leave/store.go: Interface definitions
  - leave/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
)

// Store implements leave.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS leave_types (
		organization_id TEXT NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		name_key TEXT NOT NULL,
		requires_advance_notice_days INTEGER NOT NULL CHECK (requires_advance_notice_days >= 0),
		max_duration_days INTEGER NOT NULL CHECK (max_duration_days > 0),
		requires_documents INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (organization_id, id)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_leave_types_org_name
		ON leave_types(organization_id, name_key);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		is_half_day INTEGER NOT NULL DEFAULT 0,
		total_days TEXT NOT NULL,
		reason TEXT NOT NULL,
		work_handover_notes TEXT,
		emergency_contact_name TEXT,
		emergency_contact_phone TEXT,
		emergency_contact_relationship TEXT,
		emergency_contact_email TEXT,
		attachment_count INTEGER NOT NULL DEFAULT 0 CHECK (attachment_count >= 0),
		status TEXT NOT NULL CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED', 'CANCELLED')),
		applied_at TEXT NOT NULL,
		decided_at TEXT,
		decided_by TEXT,
		decision_comment TEXT,
		cancelled_at TEXT,
		cancelled_by TEXT,
		CHECK (end_date >= start_date),
		CHECK (is_half_day = 0 OR end_date = start_date),
		FOREIGN KEY (organization_id, leave_type_id) REFERENCES leave_types(organization_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_leave_requests_employee
		ON leave_requests(employee_id, status);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_org_status
		ON leave_requests(organization_id, status);

	CREATE TABLE IF NOT EXISTS leave_balances (
		organization_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		opening_balance TEXT NOT NULL,
		earned TEXT NOT NULL,
		used TEXT NOT NULL CHECK (CAST(used AS REAL) >= 0),
		closing_balance TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (organization_id, employee_id, leave_type_id, year)
	);

	CREATE TABLE IF NOT EXISTS leave_request_events (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL REFERENCES leave_requests(id),
		organization_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		from_status TEXT,
		to_status TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		comment TEXT,
		total_days TEXT NOT NULL,
		at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_request_events_request
		ON leave_request_events(request_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEAVE TYPES (leave.PolicySource)
// =============================================================================

func (s *Store) SaveLeaveType(ctx context.Context, p leave.LeaveTypePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveLeaveType(ctx, s.db, p)
}

func (s *Store) LeaveType(ctx context.Context, organizationID, leaveTypeID string) (*leave.LeaveTypePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getLeaveType(ctx, s.db, organizationID, leaveTypeID)
}

func (s *Store) ListLeaveTypes(ctx context.Context, organizationID string) ([]leave.LeaveTypePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listLeaveTypes(ctx, s.db, organizationID)
}

const leaveTypeColumns = `organization_id, id, name, requires_advance_notice_days, max_duration_days,
	requires_documents, active, created_at, updated_at`

func saveLeaveType(ctx context.Context, db querier, p leave.LeaveTypePolicy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	query := `
		INSERT INTO leave_types (` + leaveTypeColumns + `, name_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(organization_id, id) DO UPDATE SET
			name = excluded.name,
			name_key = excluded.name_key,
			requires_advance_notice_days = excluded.requires_advance_notice_days,
			max_duration_days = excluded.max_duration_days,
			requires_documents = excluded.requires_documents,
			active = excluded.active,
			updated_at = excluded.updated_at
	`
	_, err := db.ExecContext(ctx, query,
		p.OrganizationID, p.ID, p.Name, p.RequiresAdvanceNoticeDays, p.MaxDurationDays,
		p.RequiresDocuments, p.Active, formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
		p.NameKey(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: name %q already used in organization %s", leave.ErrInvalidPolicy, p.Name, p.OrganizationID)
		}
		return fmt.Errorf("failed to save leave type: %w", err)
	}
	return nil
}

func getLeaveType(ctx context.Context, db querier, organizationID, leaveTypeID string) (*leave.LeaveTypePolicy, error) {
	query := `SELECT ` + leaveTypeColumns + ` FROM leave_types WHERE organization_id = ? AND id = ?`
	p, err := scanLeaveType(db.QueryRowContext(ctx, query, organizationID, leaveTypeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func listLeaveTypes(ctx context.Context, db querier, organizationID string) ([]leave.LeaveTypePolicy, error) {
	query := `SELECT ` + leaveTypeColumns + ` FROM leave_types WHERE organization_id = ? ORDER BY id`
	rows, err := db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave types: %w", err)
	}
	defer rows.Close()

	var result []leave.LeaveTypePolicy
	for rows.Next() {
		p, err := scanLeaveType(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanLeaveType(row scanner) (leave.LeaveTypePolicy, error) {
	var (
		p                    leave.LeaveTypePolicy
		createdAt, updatedAt string
	)
	err := row.Scan(
		&p.OrganizationID, &p.ID, &p.Name, &p.RequiresAdvanceNoticeDays, &p.MaxDurationDays,
		&p.RequiresDocuments, &p.Active, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("failed to scan leave type: %w", err)
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

// =============================================================================
// REQUESTS
// =============================================================================

func (s *Store) InsertRequest(ctx context.Context, r leave.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertRequest(ctx, s.db, r)
}

func (s *Store) Request(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRequest(ctx, s.db, id)
}

func (s *Store) UpdateRequest(ctx context.Context, r leave.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateRequest(ctx, s.db, r)
}

func (s *Store) ListRequests(ctx context.Context, filter leave.RequestFilter) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRequests(ctx, s.db, filter)
}

const requestColumns = `id, organization_id, employee_id, leave_type_id, start_date, end_date,
	is_half_day, total_days, reason, work_handover_notes,
	emergency_contact_name, emergency_contact_phone, emergency_contact_relationship, emergency_contact_email,
	attachment_count, status, applied_at, decided_at, decided_by, decision_comment, cancelled_at, cancelled_by`

func insertRequest(ctx context.Context, db querier, r leave.LeaveRequest) error {
	query := `
		INSERT INTO leave_requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	ec := r.EmergencyContact
	if ec == nil {
		ec = &leave.EmergencyContact{}
	}
	_, err := db.ExecContext(ctx, query,
		r.ID, r.OrganizationID, r.EmployeeID, r.LeaveTypeID,
		formatDate(r.StartDate), formatDate(r.EndDate), r.IsHalfDay, r.TotalDays.String(),
		r.Reason, nullString(r.WorkHandoverNotes),
		nullString(ec.Name), nullString(ec.Phone), nullString(ec.Relationship), nullString(ec.Email),
		r.AttachmentCount, string(r.Status), formatTime(r.AppliedAt),
		nullTime(r.DecidedAt), nullString(r.DecidedBy), nullString(r.DecisionComment),
		nullTime(r.CancelledAt), nullString(r.CancelledBy),
	)
	if err != nil {
		return fmt.Errorf("failed to insert leave request: %w", err)
	}
	return nil
}

// updateRequest writes the mutable columns. Dates, total and the
// employee/leave type are fixed at submission.
func updateRequest(ctx context.Context, db querier, r leave.LeaveRequest) error {
	query := `
		UPDATE leave_requests SET
			status = ?, decided_at = ?, decided_by = ?, decision_comment = ?,
			cancelled_at = ?, cancelled_by = ?
		WHERE id = ?
	`
	res, err := db.ExecContext(ctx, query,
		string(r.Status), nullTime(r.DecidedAt), nullString(r.DecidedBy), nullString(r.DecisionComment),
		nullTime(r.CancelledAt), nullString(r.CancelledBy), r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update leave request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", leave.ErrRequestNotFound, r.ID)
	}
	return nil
}

func getRequest(ctx context.Context, db querier, id string) (*leave.LeaveRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM leave_requests WHERE id = ?`
	r, err := scanRequest(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// listRequests returns matches newest first.
func listRequests(ctx context.Context, db querier, f leave.RequestFilter) ([]leave.LeaveRequest, error) {
	var (
		where []string
		args  []any
	)
	if f.OrganizationID != "" {
		where = append(where, "organization_id = ?")
		args = append(args, f.OrganizationID)
	}
	if f.EmployeeID != "" {
		where = append(where, "employee_id = ?")
		args = append(args, f.EmployeeID)
	}
	if f.LeaveTypeID != "" {
		where = append(where, "leave_type_id = ?")
		args = append(args, f.LeaveTypeID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	query := `SELECT ` + requestColumns + ` FROM leave_requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave requests: %w", err)
	}
	defer rows.Close()

	var result []leave.LeaveRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func scanRequest(row scanner) (leave.LeaveRequest, error) {
	var (
		r                                   leave.LeaveRequest
		startDate, endDate, totalDays       string
		status, appliedAt                   string
		handover, decidedBy, comment        sql.NullString
		ecName, ecPhone, ecRelation, ecMail sql.NullString
		decidedAt, cancelledAt, cancelledBy sql.NullString
	)
	err := row.Scan(
		&r.ID, &r.OrganizationID, &r.EmployeeID, &r.LeaveTypeID, &startDate, &endDate,
		&r.IsHalfDay, &totalDays, &r.Reason, &handover,
		&ecName, &ecPhone, &ecRelation, &ecMail,
		&r.AttachmentCount, &status, &appliedAt, &decidedAt, &decidedBy, &comment, &cancelledAt, &cancelledBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("failed to scan leave request: %w", err)
	}

	r.StartDate = parseDate(startDate)
	r.EndDate = parseDate(endDate)
	r.TotalDays, err = decimal.NewFromString(totalDays)
	if err != nil {
		return r, fmt.Errorf("invalid total_days %q for request %s: %w", totalDays, r.ID, err)
	}
	r.Status = leave.Status(status)
	r.AppliedAt = parseTime(appliedAt)
	r.WorkHandoverNotes = handover.String
	r.DecidedAt = parseNullTime(decidedAt)
	r.DecidedBy = decidedBy.String
	r.DecisionComment = comment.String
	r.CancelledAt = parseNullTime(cancelledAt)
	r.CancelledBy = cancelledBy.String
	if ecName.Valid || ecPhone.Valid || ecRelation.Valid || ecMail.Valid {
		r.EmergencyContact = &leave.EmergencyContact{
			Name:         ecName.String,
			Phone:        ecPhone.String,
			Relationship: ecRelation.String,
			Email:        ecMail.String,
		}
	}
	return r, nil
}

// =============================================================================
// BALANCES
// =============================================================================

func (s *Store) Balance(ctx context.Context, key leave.BalanceKey) (*leave.LeaveBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBalance(ctx, s.db, key)
}

func (s *Store) PutBalance(ctx context.Context, b leave.LeaveBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putBalance(ctx, s.db, b)
}

func (s *Store) ListBalances(ctx context.Context, organizationID, employeeID string, year int) ([]leave.LeaveBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listBalances(ctx, s.db, organizationID, employeeID, year)
}

const balanceColumns = `organization_id, employee_id, leave_type_id, year, opening_balance, earned, used, closing_balance, updated_at`

func putBalance(ctx context.Context, db querier, b leave.LeaveBalance) error {
	query := `
		INSERT INTO leave_balances (` + balanceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(organization_id, employee_id, leave_type_id, year) DO UPDATE SET
			opening_balance = excluded.opening_balance,
			earned = excluded.earned,
			used = excluded.used,
			closing_balance = excluded.closing_balance,
			updated_at = excluded.updated_at
	`
	_, err := db.ExecContext(ctx, query,
		b.OrganizationID, b.EmployeeID, b.LeaveTypeID, b.Year,
		b.OpeningBalance.String(), b.Earned.String(), b.Used.String(), b.ClosingBalance.String(),
		formatTime(b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to write balance: %w", err)
	}
	return nil
}

func getBalance(ctx context.Context, db querier, key leave.BalanceKey) (*leave.LeaveBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM leave_balances
		WHERE organization_id = ? AND employee_id = ? AND leave_type_id = ? AND year = ?`
	b, err := scanBalance(db.QueryRowContext(ctx, query, key.OrganizationID, key.EmployeeID, key.LeaveTypeID, key.Year))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func listBalances(ctx context.Context, db querier, organizationID, employeeID string, year int) ([]leave.LeaveBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM leave_balances
		WHERE organization_id = ? AND employee_id = ? AND year = ? ORDER BY leave_type_id`
	rows, err := db.QueryContext(ctx, query, organizationID, employeeID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var result []leave.LeaveBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

func scanBalance(row scanner) (leave.LeaveBalance, error) {
	var (
		b                             leave.LeaveBalance
		opening, earned, used, closed string
		updatedAt                     string
	)
	err := row.Scan(&b.OrganizationID, &b.EmployeeID, &b.LeaveTypeID, &b.Year, &opening, &earned, &used, &closed, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return b, err
		}
		return b, fmt.Errorf("failed to scan balance: %w", err)
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		raw string
	}{
		{&b.OpeningBalance, opening},
		{&b.Earned, earned},
		{&b.Used, used},
		{&b.ClosingBalance, closed},
	} {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return b, fmt.Errorf("invalid balance amount %q: %w", f.raw, err)
		}
		*f.dst = d
	}
	b.UpdatedAt = parseTime(updatedAt)
	return b, nil
}

// =============================================================================
// TRANSITION EVENTS
// =============================================================================

func (s *Store) AppendEvent(ctx context.Context, e leave.TransitionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendEvent(ctx, s.db, e)
}

func (s *Store) Events(ctx context.Context, requestID string) ([]leave.TransitionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listEvents(ctx, s.db, requestID)
}

func appendEvent(ctx context.Context, db querier, e leave.TransitionEvent) error {
	query := `
		INSERT INTO leave_request_events
		(id, request_id, organization_id, employee_id, leave_type_id, from_status, to_status,
		 actor_id, comment, total_days, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		e.ID, e.RequestID, e.OrganizationID, e.EmployeeID, e.LeaveTypeID,
		nullString(string(e.From)), string(e.To), e.ActorID, nullString(e.Comment),
		e.TotalDays.String(), formatTime(e.At),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func listEvents(ctx context.Context, db querier, requestID string) ([]leave.TransitionEvent, error) {
	query := `
		SELECT id, request_id, organization_id, employee_id, leave_type_id, from_status, to_status,
		       actor_id, comment, total_days, at
		FROM leave_request_events
		WHERE request_id = ?
		ORDER BY rowid ASC
	`
	rows, err := db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var result []leave.TransitionEvent
	for rows.Next() {
		var (
			e             leave.TransitionEvent
			from, comment sql.NullString
			to, total, at string
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &e.OrganizationID, &e.EmployeeID, &e.LeaveTypeID,
			&from, &to, &e.ActorID, &comment, &total, &at); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.From = leave.Status(from.String)
		e.To = leave.Status(to)
		e.Comment = comment.String
		e.TotalDays, err = decimal.NewFromString(total)
		if err != nil {
			return nil, fmt.Errorf("invalid event total_days %q: %w", total, err)
		}
		e.At = parseTime(at)
		result = append(result, e)
	}
	return result, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (leave.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store leave.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) SaveLeaveType(ctx context.Context, p leave.LeaveTypePolicy) error {
	return saveLeaveType(ctx, ts.tx, p)
}

func (ts *txStore) LeaveType(ctx context.Context, organizationID, leaveTypeID string) (*leave.LeaveTypePolicy, error) {
	return getLeaveType(ctx, ts.tx, organizationID, leaveTypeID)
}

func (ts *txStore) ListLeaveTypes(ctx context.Context, organizationID string) ([]leave.LeaveTypePolicy, error) {
	return listLeaveTypes(ctx, ts.tx, organizationID)
}

func (ts *txStore) InsertRequest(ctx context.Context, r leave.LeaveRequest) error {
	return insertRequest(ctx, ts.tx, r)
}

func (ts *txStore) Request(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	return getRequest(ctx, ts.tx, id)
}

func (ts *txStore) UpdateRequest(ctx context.Context, r leave.LeaveRequest) error {
	return updateRequest(ctx, ts.tx, r)
}

func (ts *txStore) ListRequests(ctx context.Context, filter leave.RequestFilter) ([]leave.LeaveRequest, error) {
	return listRequests(ctx, ts.tx, filter)
}

func (ts *txStore) Balance(ctx context.Context, key leave.BalanceKey) (*leave.LeaveBalance, error) {
	return getBalance(ctx, ts.tx, key)
}

func (ts *txStore) PutBalance(ctx context.Context, b leave.LeaveBalance) error {
	return putBalance(ctx, ts.tx, b)
}

func (ts *txStore) ListBalances(ctx context.Context, organizationID, employeeID string, year int) ([]leave.LeaveBalance, error) {
	return listBalances(ctx, ts.tx, organizationID, employeeID, year)
}

func (ts *txStore) AppendEvent(ctx context.Context, e leave.TransitionEvent) error {
	return appendEvent(ctx, ts.tx, e)
}

func (ts *txStore) Events(ctx context.Context, requestID string) ([]leave.TransitionEvent, error) {
	return listEvents(ctx, ts.tx, requestID)
}

var (
	_ leave.TxStore      = (*Store)(nil)
	_ leave.PolicySource = (*Store)(nil)
)

// =============================================================================
// ADMIN
// =============================================================================

// Reset clears all data. Used by demo setups and tests.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"leave_request_events", "leave_requests", "leave_balances", "leave_types"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func formatDate(t time.Time) string {
	return leave.Day(t).Format(time.DateOnly)
}

func parseDate(s string) time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
