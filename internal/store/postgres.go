package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/punchamoorthee/tuitionledger/internal/domain"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	activeTrancheIndex = "payments_active_tranche_uq"
	matriculeUnique    = "students_matricule_uq"
)

const paymentColumns = `p.id, p.student_id, p.matricule, COALESCE(s.last_name || ' ' || s.first_name, ''),
	p.amount, p.tranche, p.program, p.faculty, p.university, p.academic_year, p.status,
	p.submitted_at, p.decided_at, p.decided_by, p.comment`

const studentColumns = `id, matricule, last_name, first_name, sex, program, department, level,
	academic_year, birth_year, birthplace, credential, enrolled_at`

// LedgerStore is the Postgres-backed ledger of students and payments.
type LedgerStore struct {
	db *pgxpool.Pool
}

func NewLedgerStore(db *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{db: db}
}

// NewPool parses connString, opens a pool and checks connectivity.
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}

func (s *LedgerStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// InsertPayment admits a new pending payment. The duplicate check and the
// insert run in one transaction holding the student row, and the partial
// unique index on active payments rejects any insert that still races past.
func (s *LedgerStore) InsertPayment(ctx context.Context, np domain.NewPayment) (*domain.Payment, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, storeErr("begin payment tx", err)
	}
	defer tx.Rollback(ctx)

	var studentID int64
	err = tx.QueryRow(ctx,
		"SELECT id FROM students WHERE id = $1 FOR NO KEY UPDATE", np.StudentID,
	).Scan(&studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStudentNotFound
		}
		return nil, storeErr("lock student", err)
	}

	existing, err := findActivePayment(ctx, tx, np.StudentID, np.Tranche, np.AcademicYear)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicatePayment
	}

	row := tx.QueryRow(ctx, `
		WITH p AS (
			INSERT INTO payments (student_id, matricule, amount, tranche, program, faculty, university, academic_year, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending')
			RETURNING *
		)
		SELECT `+paymentColumns+` FROM p LEFT JOIN students s ON s.id = p.student_id`,
		np.StudentID, np.Matricule, np.Amount, np.Tranche,
		np.Labels.Program, np.Labels.Faculty, np.Labels.University, np.AcademicYear,
	)
	payment, err := scanPayment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch {
			case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == activeTrancheIndex:
				return nil, domain.ErrDuplicatePayment
			case pgErr.Code == pgForeignKeyViolation:
				return nil, domain.ErrStudentNotFound
			}
		}
		return nil, storeErr("insert payment", err)
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, domain.ErrDuplicatePayment
		}
		return nil, storeErr("commit payment", err)
	}
	return payment, nil
}

// FindActivePayment returns the pending or validated payment for the key, or
// nil when there is none.
func (s *LedgerStore) FindActivePayment(ctx context.Context, studentID int64, tranche int, year string) (*domain.Payment, error) {
	return findActivePayment(ctx, s.db, studentID, tranche, year)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func findActivePayment(ctx context.Context, q querier, studentID int64, tranche int, year string) (*domain.Payment, error) {
	row := q.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments p LEFT JOIN students s ON s.id = p.student_id
		WHERE p.student_id = $1 AND p.tranche = $2 AND p.academic_year = $3
		  AND p.status IN ('pending', 'validated')
		LIMIT 1`,
		studentID, tranche, year,
	)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("find active payment", err)
	}
	return p, nil
}

// UpdatePaymentState applies d only if the payment is still in d.From. A miss
// is resolved into ErrPaymentNotFound or ErrAlreadyDecided.
func (s *LedgerStore) UpdatePaymentState(ctx context.Context, d domain.Decision) (*domain.Payment, error) {
	row := s.db.QueryRow(ctx, `
		WITH p AS (
			UPDATE payments
			SET status = $3, decided_at = now(), decided_by = $4, comment = $5
			WHERE id = $1 AND status = $2
			RETURNING *
		)
		SELECT `+paymentColumns+` FROM p LEFT JOIN students s ON s.id = p.student_id`,
		d.PaymentID, string(d.From), string(d.To), d.AdminID, nullable(d.Comment),
	)
	payment, err := scanPayment(row)
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, storeErr("update payment state", err)
	}

	var current string
	err = s.db.QueryRow(ctx, "SELECT status FROM payments WHERE id = $1", d.PaymentID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, storeErr("read payment state", err)
	}
	return nil, domain.ErrAlreadyDecided.WithMessage(
		fmt.Sprintf("payment has already been %s", current))
}

func (s *LedgerStore) GetPayment(ctx context.Context, id int64) (*domain.Payment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments p LEFT JOIN students s ON s.id = p.student_id
		WHERE p.id = $1`, id)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, storeErr("get payment", err)
	}
	return p, nil
}

// QueryPayments lists payments matching f, newest first unless f.OldestFirst.
func (s *LedgerStore) QueryPayments(ctx context.Context, f domain.PaymentFilter) ([]domain.Payment, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("p.status = $%d", string(f.Status))
	}
	if f.StudentID != 0 {
		add("p.student_id = $%d", f.StudentID)
	}
	if f.Tranche != 0 {
		add("p.tranche = $%d", f.Tranche)
	}
	if f.Program != "" {
		add("p.program = $%d", f.Program)
	}
	if f.AcademicYear != "" {
		add("p.academic_year = $%d", f.AcademicYear)
	}
	if f.From != nil {
		add("p.submitted_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("p.submitted_at < $%d", *f.To)
	}
	if f.DecidedBy != "" {
		add("p.decided_by = $%d", f.DecidedBy)
	}

	query := "SELECT " + paymentColumns + " FROM payments p LEFT JOIN students s ON s.id = p.student_id"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.OldestFirst {
		query += " ORDER BY p.submitted_at ASC, p.id ASC"
	} else {
		query += " ORDER BY p.submitted_at DESC, p.id DESC"
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("query payments", err)
	}
	defer rows.Close()

	payments := []domain.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, storeErr("scan payment", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate payments", err)
	}
	return payments, nil
}

func (s *LedgerStore) GetStudentByID(ctx context.Context, id int64) (*domain.Student, error) {
	return s.getStudent(ctx, "id = $1", id)
}

func (s *LedgerStore) GetStudentByMatricule(ctx context.Context, matricule string) (*domain.Student, error) {
	return s.getStudent(ctx, "matricule = $1", matricule)
}

func (s *LedgerStore) getStudent(ctx context.Context, cond string, arg any) (*domain.Student, error) {
	row := s.db.QueryRow(ctx, "SELECT "+studentColumns+" FROM students WHERE "+cond, arg)
	st, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStudentNotFound
		}
		return nil, storeErr("get student", err)
	}
	return st, nil
}

// CreateStudent enrolls st and returns the stored record.
func (s *LedgerStore) CreateStudent(ctx context.Context, st domain.Student) (*domain.Student, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO students (matricule, last_name, first_name, sex, program, department, level,
			academic_year, birth_year, birthplace, credential)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+studentColumns,
		st.Matricule, st.LastName, st.FirstName, st.Sex, st.Program, st.Department, st.Level,
		st.AcademicYear, st.BirthYear, st.Birthplace, st.Credential,
	)
	created, err := scanStudent(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == matriculeUnique {
			return nil, domain.ErrDuplicateMatricule
		}
		return nil, storeErr("create student", err)
	}
	return created, nil
}

// UpdateStudent applies the non-nil fields of patch.
func (s *LedgerStore) UpdateStudent(ctx context.Context, id int64, patch domain.StudentPatch) (*domain.Student, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.LastName != nil {
		set("last_name", *patch.LastName)
	}
	if patch.FirstName != nil {
		set("first_name", *patch.FirstName)
	}
	if patch.Sex != nil {
		set("sex", *patch.Sex)
	}
	if patch.Program != nil {
		set("program", *patch.Program)
	}
	if patch.Department != nil {
		set("department", *patch.Department)
	}
	if patch.Level != nil {
		set("level", *patch.Level)
	}
	if patch.AcademicYear != nil {
		set("academic_year", *patch.AcademicYear)
	}
	if patch.BirthYear != nil {
		set("birth_year", *patch.BirthYear)
	}
	if patch.Birthplace != nil {
		set("birthplace", *patch.Birthplace)
	}
	if len(sets) == 0 {
		return nil, domain.ErrEmptyPatch
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE students SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), studentColumns)

	st, err := scanStudent(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStudentNotFound
		}
		return nil, storeErr("update student", err)
	}
	return st, nil
}

// ListStudents returns one page of students and the total matching count.
func (s *LedgerStore) ListStudents(ctx context.Context, f domain.StudentFilter) ([]domain.Student, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Program != "" {
		add("program ILIKE '%%' || $%d || '%%'", f.Program)
	}
	if f.Level != "" {
		add("level = $%d", f.Level)
	}
	if f.AcademicYear != "" {
		add("academic_year = $%d", f.AcademicYear)
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM students"+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, storeErr("count students", err)
	}

	query := "SELECT " + studentColumns + " FROM students" + whereSQL + " ORDER BY last_name, first_name, id"
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, storeErr("list students", err)
	}
	defer rows.Close()

	students := []domain.Student{}
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, 0, storeErr("scan student", err)
		}
		students = append(students, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storeErr("iterate students", err)
	}
	return students, total, nil
}

// CountStudents counts enrolled students, optionally for one academic year.
func (s *LedgerStore) CountStudents(ctx context.Context, year string) (int, error) {
	query := "SELECT COUNT(*) FROM students"
	var args []any
	if year != "" {
		query += " WHERE academic_year = $1"
		args = append(args, year)
	}
	var n int
	if err := s.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, storeErr("count students", err)
	}
	return n, nil
}

// ProgramHeadcounts counts enrolled students per current program label,
// optionally restricted to one academic year.
func (s *LedgerStore) ProgramHeadcounts(ctx context.Context, year string) (map[string]int, error) {
	query := "SELECT program, COUNT(*) FROM students"
	var args []any
	if year != "" {
		query += " WHERE academic_year = $1"
		args = append(args, year)
	}
	query += " GROUP BY program"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("count programs", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			program string
			n       int
		)
		if err := rows.Scan(&program, &n); err != nil {
			return nil, storeErr("scan program count", err)
		}
		counts[program] = n
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate program counts", err)
	}
	return counts, nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		p      domain.Payment
		status string
	)
	err := row.Scan(
		&p.ID, &p.StudentID, &p.Matricule, &p.StudentName,
		&p.Amount, &p.Tranche, &p.Program, &p.Faculty, &p.University, &p.AcademicYear, &status,
		&p.SubmittedAt, &p.DecidedAt, &p.DecidedBy, &p.Comment,
	)
	if err != nil {
		return nil, err
	}
	p.Status = domain.PaymentStatus(status)
	return &p, nil
}

func scanStudent(row pgx.Row) (*domain.Student, error) {
	var st domain.Student
	err := row.Scan(
		&st.ID, &st.Matricule, &st.LastName, &st.FirstName, &st.Sex, &st.Program, &st.Department,
		&st.Level, &st.AcademicYear, &st.BirthYear, &st.Birthplace, &st.Credential, &st.EnrolledAt,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStore, err)
}
