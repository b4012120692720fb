package service

import (
	"context"
	"time"

	"github.com/punchamoorthee/tuitionledger/internal/domain"
)

// Reports recomputes every figure from the ledger on each call.
type Reports struct {
	ledger      Ledger
	fees        domain.FeeSchedule
	defaultYear string
	loc         *time.Location
}

func NewReports(ledger Ledger, fees domain.FeeSchedule, defaultYear string, loc *time.Location) *Reports {
	if loc == nil {
		loc = time.UTC
	}
	return &Reports{ledger: ledger, fees: fees, defaultYear: defaultYear, loc: loc}
}

// StudentSummary reconciles one student for an academic year. An empty year
// means the student's current year.
func (r *Reports) StudentSummary(ctx context.Context, studentID int64, year string) (*domain.StudentSummary, error) {
	st, err := r.ledger.GetStudentByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return r.summarize(ctx, st, year)
}

func (r *Reports) StudentSummaryByMatricule(ctx context.Context, matricule, year string) (*domain.StudentSummary, error) {
	m, err := domain.NormalizeMatricule(matricule)
	if err != nil {
		return nil, err
	}
	st, err := r.ledger.GetStudentByMatricule(ctx, m)
	if err != nil {
		return nil, err
	}
	return r.summarize(ctx, st, year)
}

func (r *Reports) summarize(ctx context.Context, st *domain.Student, year string) (*domain.StudentSummary, error) {
	if year == "" {
		year = st.AcademicYear
	}
	if year == "" {
		year = r.defaultYear
	}
	payments, err := r.ledger.QueryPayments(ctx, domain.PaymentFilter{StudentID: st.ID, AcademicYear: year})
	if err != nil {
		return nil, err
	}
	sum := domain.Summarize(*st, year, payments, r.fees)
	return &sum, nil
}

// Dashboard returns the global figures, optionally for one academic year.
func (r *Reports) Dashboard(ctx context.Context, year string) (*domain.DashboardStats, error) {
	payments, err := r.ledger.QueryPayments(ctx, domain.PaymentFilter{AcademicYear: year})
	if err != nil {
		return nil, err
	}
	total, err := r.ledger.CountStudents(ctx, year)
	if err != nil {
		return nil, err
	}
	st := domain.ComputeDashboard(payments, total, r.fees)
	return &st, nil
}

// Students reconciles every enrolled student of year against the ledger.
func (r *Reports) Students(ctx context.Context, year string) ([]domain.StudentSummary, error) {
	if year == "" {
		year = r.defaultYear
	}
	students, _, err := r.ledger.ListStudents(ctx, domain.StudentFilter{AcademicYear: year})
	if err != nil {
		return nil, err
	}
	payments, err := r.ledger.QueryPayments(ctx, domain.PaymentFilter{AcademicYear: year})
	if err != nil {
		return nil, err
	}

	byStudent := make(map[int64][]domain.Payment, len(students))
	for _, p := range payments {
		byStudent[p.StudentID] = append(byStudent[p.StudentID], p)
	}
	out := make([]domain.StudentSummary, 0, len(students))
	for _, st := range students {
		out = append(out, domain.Summarize(st, year, byStudent[st.ID], r.fees))
	}
	return out, nil
}

func (r *Reports) Programs(ctx context.Context, year string) ([]domain.ProgramStat, error) {
	payments, err := r.ledger.QueryPayments(ctx, domain.PaymentFilter{
		Status:       domain.StatusValidated,
		AcademicYear: year,
	})
	if err != nil {
		return nil, err
	}
	heads, err := r.ledger.ProgramHeadcounts(ctx, year)
	if err != nil {
		return nil, err
	}
	return domain.ProgramBreakdown(payments, heads), nil
}

func (r *Reports) Tranches(ctx context.Context, year string) ([]domain.TrancheStat, error) {
	payments, err := r.ledger.QueryPayments(ctx, domain.PaymentFilter{
		Status:       domain.StatusValidated,
		AcademicYear: year,
	})
	if err != nil {
		return nil, err
	}
	return domain.TrancheBreakdown(payments), nil
}

// Monthly buckets validated payments submitted during calendar year. Zero
// means the current year in the reporting time zone.
func (r *Reports) Monthly(ctx context.Context, year int) ([]domain.MonthlyPoint, error) {
	if year == 0 {
		year = time.Now().In(r.loc).Year()
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, r.loc)
	to := from.AddDate(1, 0, 0)
	payments, err := r.ledger.QueryPayments(ctx, domain.PaymentFilter{
		Status: domain.StatusValidated,
		From:   &from,
		To:     &to,
	})
	if err != nil {
		return nil, err
	}
	return domain.MonthlySeries(payments, year, r.loc), nil
}
