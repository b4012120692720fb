package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/punchamoorthee/tuitionledger/internal/audit"
	"github.com/punchamoorthee/tuitionledger/internal/auth"
	"github.com/punchamoorthee/tuitionledger/internal/domain"
	"go.uber.org/zap"
)

// Submission is a student's claim to have paid one tranche.
type Submission struct {
	Matricule    string
	Amount       int64
	Tranche      int
	AcademicYear string
	Labels       domain.Labels
}

// PaymentService admits submissions into the ledger and applies admin
// decisions to them.
type PaymentService struct {
	ledger      Ledger
	fees        domain.FeeSchedule
	defaultYear string
	audit       audit.Recorder
	logger      *zap.Logger
}

func NewPaymentService(ledger Ledger, fees domain.FeeSchedule, defaultYear string, rec audit.Recorder, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		ledger:      ledger,
		fees:        fees,
		defaultYear: defaultYear,
		audit:       rec,
		logger:      logger.With(zap.String("component", "payments")),
	}
}

// Submit validates sub for the student behind p and records it as pending.
func (s *PaymentService) Submit(ctx context.Context, p auth.Principal, sub Submission) (*domain.Payment, error) {
	if p.Role != auth.RoleStudent {
		return nil, domain.ErrWrongRole
	}
	if sub.Matricule != "" {
		m, err := domain.NormalizeMatricule(sub.Matricule)
		if err != nil {
			return nil, err
		}
		if m != p.Matricule {
			return nil, domain.ErrWrongRole.WithMessage("students may only pay for themselves")
		}
	}

	student, err := s.ledger.GetStudentByID(ctx, p.StudentID)
	if err != nil {
		return nil, err
	}

	if sub.Amount != s.fees.TrancheFee {
		return nil, domain.ErrInvalidAmount.WithMessage(
			fmt.Sprintf("amount must be exactly %d", s.fees.TrancheFee))
	}
	if !domain.ValidTranche(sub.Tranche) {
		return nil, domain.ErrInvalidTranche
	}

	np := domain.NewPayment{
		StudentID:    student.ID,
		Matricule:    student.Matricule,
		Amount:       sub.Amount,
		Tranche:      sub.Tranche,
		AcademicYear: s.yearFor(sub.AcademicYear, student),
		Labels:       snapshotLabels(sub.Labels, student),
	}

	// Fast rejection; InsertPayment repeats the check atomically.
	active, err := s.ledger.FindActivePayment(ctx, np.StudentID, np.Tranche, np.AcademicYear)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, domain.ErrDuplicatePayment
	}

	payment, err := s.ledger.InsertPayment(ctx, np)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment submitted",
		zap.Int64("payment_id", payment.ID),
		zap.String("matricule", payment.Matricule),
		zap.Int("tranche", payment.Tranche),
		zap.String("academic_year", payment.AcademicYear),
	)
	s.audit.Record(ctx, audit.PaymentEvent(audit.ActionPaymentSubmitted, p.Subject, string(p.Role), payment))
	return payment, nil
}

// Decide moves a pending payment to its terminal state. Only the first
// decision on a payment lands; later ones fail with ErrAlreadyDecided.
func (s *PaymentService) Decide(ctx context.Context, p auth.Principal, paymentID int64, decision, comment string) (*domain.Payment, error) {
	if !p.IsAdmin() {
		return nil, domain.ErrWrongRole
	}
	to, err := domain.ParseDecision(decision)
	if err != nil {
		return nil, err
	}
	if paymentID <= 0 {
		return nil, domain.ErrPaymentNotFound
	}

	payment, err := s.ledger.UpdatePaymentState(ctx, domain.Decision{
		PaymentID: paymentID,
		From:      domain.StatusPending,
		To:        to,
		AdminID:   p.Subject,
		Comment:   strings.TrimSpace(comment),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment decided",
		zap.Int64("payment_id", payment.ID),
		zap.String("status", string(payment.Status)),
		zap.String("admin", p.Subject),
	)
	s.audit.Record(ctx, audit.PaymentEvent(audit.ActionPaymentDecided, p.Subject, string(p.Role), payment))
	return payment, nil
}

// Get returns a payment to an admin or to the student who owns it.
func (s *PaymentService) Get(ctx context.Context, p auth.Principal, id int64) (*domain.Payment, error) {
	payment, err := s.ledger.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && !p.Owns(payment.StudentID) {
		return nil, domain.ErrWrongRole
	}
	return payment, nil
}

// Pending is the review queue, oldest submission first.
func (s *PaymentService) Pending(ctx context.Context) ([]domain.Payment, error) {
	return s.ledger.QueryPayments(ctx, domain.PaymentFilter{
		Status:      domain.StatusPending,
		OldestFirst: true,
	})
}

// History lists payments matching f, newest first.
func (s *PaymentService) History(ctx context.Context, f domain.PaymentFilter) ([]domain.Payment, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, domain.ErrInvalidRequest.WithMessage("unknown payment status")
	}
	if f.Tranche != 0 && !domain.ValidTranche(f.Tranche) {
		return nil, domain.ErrInvalidTranche
	}
	f.OldestFirst = false
	return s.ledger.QueryPayments(ctx, f)
}

func (s *PaymentService) yearFor(requested string, st *domain.Student) string {
	if y := strings.TrimSpace(requested); y != "" {
		return y
	}
	if st.AcademicYear != "" {
		return st.AcademicYear
	}
	return s.defaultYear
}

// snapshotLabels fills missing labels from the student's current record.
func snapshotLabels(l domain.Labels, st *domain.Student) domain.Labels {
	l.Program = strings.TrimSpace(l.Program)
	l.Faculty = strings.TrimSpace(l.Faculty)
	l.University = strings.TrimSpace(l.University)
	if l.Program == "" {
		l.Program = st.Program
	}
	if l.Faculty == "" {
		l.Faculty = st.Department
	}
	return l
}
