package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/punchamoorthee/tuitionledger/internal/domain"
)

func TestMigrationURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "postgres://u:p@db:5432/tuition?sslmode=disable", want: "pgx5://u:p@db:5432/tuition?sslmode=disable"},
		{in: "postgresql://u@db/tuition", want: "pgx5://u@db/tuition"},
		{in: "pgx5://u@db/tuition", want: "pgx5://u@db/tuition"},
		{in: "host=db user=u dbname=tuition", wantErr: true},
	}
	for _, tt := range tests {
		got, err := migrationURL(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("migrationURL(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("migrationURL(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

// openTestStore connects to TEST_DB_SOURCE, migrates, and empties the ledger.
func openTestStore(t *testing.T) *LedgerStore {
	t.Helper()
	dsn := os.Getenv("TEST_DB_SOURCE")
	if dsn == "" {
		t.Skip("TEST_DB_SOURCE not set")
	}
	if _, err := Migrate(dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)

	truncate(t, pool)
	return NewLedgerStore(pool)
}

func truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(context.Background(), "TRUNCATE payments, students RESTART IDENTITY"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

func enroll(t *testing.T, s *LedgerStore, matricule string) *domain.Student {
	t.Helper()
	st, err := s.CreateStudent(context.Background(), domain.Student{
		Matricule:    matricule,
		LastName:     "Kouassi",
		FirstName:    "Awa",
		Sex:          "F",
		Program:      "INFORMATIQUE",
		AcademicYear: "2024-2025",
		Credential:   "pw",
	})
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	return st
}

func newPayment(st *domain.Student, tranche int) domain.NewPayment {
	return domain.NewPayment{
		StudentID:    st.ID,
		Matricule:    st.Matricule,
		Amount:       25000,
		Tranche:      tranche,
		AcademicYear: "2024-2025",
		Labels:       domain.Labels{Program: st.Program, Faculty: "SCIENCES", University: "UNIV"},
	}
}

func TestInsertPaymentRejectsActiveDuplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	st := enroll(t, s, "ABC123")

	p, err := s.InsertPayment(ctx, newPayment(st, 1))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if p.Status != domain.StatusPending || p.DecidedAt != nil || p.StudentName != "Kouassi Awa" {
		t.Fatalf("inserted = %+v", p)
	}

	if _, err := s.InsertPayment(ctx, newPayment(st, 1)); !errors.Is(err, domain.ErrDuplicatePayment) {
		t.Fatalf("second insert err = %v, want ErrDuplicatePayment", err)
	}

	if _, err := s.UpdatePaymentState(ctx, domain.Decision{
		PaymentID: p.ID, From: domain.StatusPending, To: domain.StatusRejected, AdminID: "admin",
	}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := s.InsertPayment(ctx, newPayment(st, 1)); err != nil {
		t.Fatalf("resubmit after rejection: %v", err)
	}
}

func TestInsertPaymentUnknownStudent(t *testing.T) {
	s := openTestStore(t)
	_, err := s.InsertPayment(context.Background(), domain.NewPayment{
		StudentID: 999, Matricule: "NOPE", Amount: 25000, Tranche: 1, AcademicYear: "2024-2025",
	})
	if !errors.Is(err, domain.ErrStudentNotFound) {
		t.Fatalf("err = %v, want ErrStudentNotFound", err)
	}
}

func TestConcurrentInsertSingleWinner(t *testing.T) {
	s := openTestStore(t)
	st := enroll(t, s, "RACE01")

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.InsertPayment(context.Background(), newPayment(st, 2))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrDuplicatePayment):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || conflicts != workers-1 {
		t.Fatalf("wins=%d conflicts=%d", wins, conflicts)
	}
}

func TestUpdatePaymentStateOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	st := enroll(t, s, "DEC001")
	p, err := s.InsertPayment(ctx, newPayment(st, 1))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	d := domain.Decision{PaymentID: p.ID, From: domain.StatusPending, To: domain.StatusValidated, AdminID: "admin", Comment: "ok"}
	got, err := s.UpdatePaymentState(ctx, d)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if got.Status != domain.StatusValidated || got.DecidedAt == nil || got.DecidedBy == nil || *got.DecidedBy != "admin" {
		t.Fatalf("decided = %+v", got)
	}
	if got.Amount != p.Amount || got.Tranche != p.Tranche || !got.SubmittedAt.Equal(p.SubmittedAt) {
		t.Fatalf("decision changed other fields: %+v", got)
	}

	if _, err := s.UpdatePaymentState(ctx, d); !errors.Is(err, domain.ErrAlreadyDecided) {
		t.Fatalf("second decide err = %v, want ErrAlreadyDecided", err)
	}
	d.PaymentID = 424242
	if _, err := s.UpdatePaymentState(ctx, d); !errors.Is(err, domain.ErrPaymentNotFound) {
		t.Fatalf("missing payment err = %v, want ErrPaymentNotFound", err)
	}
}

func TestQueryPaymentsFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := enroll(t, s, "QRY001")
	b := enroll(t, s, "QRY002")

	first, _ := s.InsertPayment(ctx, newPayment(a, 1))
	if _, err := s.InsertPayment(ctx, newPayment(a, 2)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertPayment(ctx, newPayment(b, 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdatePaymentState(ctx, domain.Decision{
		PaymentID: first.ID, From: domain.StatusPending, To: domain.StatusValidated, AdminID: "root",
	}); err != nil {
		t.Fatal(err)
	}

	pending, err := s.QueryPayments(ctx, domain.PaymentFilter{Status: domain.StatusPending, OldestFirst: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 || pending[0].ID > pending[1].ID {
		t.Fatalf("pending = %+v", pending)
	}

	mine, err := s.QueryPayments(ctx, domain.PaymentFilter{StudentID: a.ID, AcademicYear: "2024-2025"})
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 {
		t.Fatalf("student payments = %d", len(mine))
	}

	byAdmin, err := s.QueryPayments(ctx, domain.PaymentFilter{DecidedBy: "root"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byAdmin) != 1 || byAdmin[0].ID != first.ID {
		t.Fatalf("decided by root = %+v", byAdmin)
	}
}

func TestStudentRegistry(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	st := enroll(t, s, "REG001")
	enroll(t, s, "REG002")

	if _, err := s.CreateStudent(ctx, domain.Student{
		Matricule: "REG001", LastName: "X", FirstName: "Y", Sex: "M", Program: "P", AcademicYear: "2024-2025",
	}); !errors.Is(err, domain.ErrDuplicateMatricule) {
		t.Fatalf("duplicate matricule err = %v", err)
	}

	level := "L2"
	updated, err := s.UpdateStudent(ctx, st.ID, domain.StudentPatch{Level: &level})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Level != "L2" || updated.LastName != st.LastName {
		t.Fatalf("updated = %+v", updated)
	}
	if _, err := s.UpdateStudent(ctx, st.ID, domain.StudentPatch{}); !errors.Is(err, domain.ErrEmptyPatch) {
		t.Fatalf("empty patch err = %v", err)
	}

	list, total, err := s.ListStudents(ctx, domain.StudentFilter{Program: "informat", Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(list) != 2 {
		t.Fatalf("list total=%d len=%d", total, len(list))
	}

	n, err := s.CountStudents(ctx, "2024-2025")
	if err != nil || n != 2 {
		t.Fatalf("count = %d, %v", n, err)
	}
	heads, err := s.ProgramHeadcounts(ctx, "")
	if err != nil || heads["INFORMATIQUE"] != 2 {
		t.Fatalf("headcounts = %v, %v", heads, err)
	}

	byMat, err := s.GetStudentByMatricule(ctx, "REG001")
	if err != nil || byMat.ID != st.ID {
		t.Fatalf("by matricule = %+v, %v", byMat, err)
	}
	if _, err := s.GetStudentByID(ctx, 9999); !errors.Is(err, domain.ErrStudentNotFound) {
		t.Fatalf("missing student err = %v", err)
	}
}
