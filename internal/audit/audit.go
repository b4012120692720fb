package audit

import (
	"context"
	"time"

	"github.com/punchamoorthee/tuitionledger/internal/domain"
	"go.uber.org/zap"
)

const (
	ActionPaymentSubmitted = "payment.submitted"
	ActionPaymentDecided   = "payment.decided"
	ActionStudentEnrolled  = "student.enrolled"
	ActionStudentUpdated   = "student.updated"
)

// Event is one informational audit entry. The ledger stays authoritative.
type Event struct {
	Action       string               `json:"action"`
	Actor        string               `json:"actor"`
	Role         string               `json:"role"`
	PaymentID    int64                `json:"payment_id,omitempty"`
	StudentID    int64                `json:"student_id,omitempty"`
	Matricule    string               `json:"matricule,omitempty"`
	Tranche      int                  `json:"tranche,omitempty"`
	AcademicYear string               `json:"academic_year,omitempty"`
	Amount       int64                `json:"amount,omitempty"`
	Status       domain.PaymentStatus `json:"status,omitempty"`
	Comment      string               `json:"comment,omitempty"`
	At           time.Time            `json:"at"`
}

// PaymentEvent fills the payment-related fields of an Event from p.
func PaymentEvent(action, actor, role string, p *domain.Payment) Event {
	ev := Event{
		Action:       action,
		Actor:        actor,
		Role:         role,
		PaymentID:    p.ID,
		StudentID:    p.StudentID,
		Matricule:    p.Matricule,
		Tranche:      p.Tranche,
		AcademicYear: p.AcademicYear,
		Amount:       p.Amount,
		Status:       p.Status,
		At:           p.SubmittedAt,
	}
	if p.DecidedAt != nil {
		ev.At = *p.DecidedAt
	}
	if p.Comment != nil {
		ev.Comment = *p.Comment
	}
	return ev
}

// Recorder appends audit entries. Implementations never fail the caller;
// delivery problems are logged.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

type logRecorder struct {
	logger *zap.Logger
}

// NewLogRecorder writes audit entries as structured log lines.
func NewLogRecorder(logger *zap.Logger) Recorder {
	return &logRecorder{logger: logger.With(zap.String("component", "audit"))}
}

func (r *logRecorder) Record(_ context.Context, ev Event) {
	r.logger.Info(ev.Action,
		zap.String("actor", ev.Actor),
		zap.String("role", ev.Role),
		zap.Int64("payment_id", ev.PaymentID),
		zap.Int64("student_id", ev.StudentID),
		zap.String("matricule", ev.Matricule),
		zap.Int("tranche", ev.Tranche),
		zap.String("academic_year", ev.AcademicYear),
		zap.Int64("amount", ev.Amount),
		zap.String("status", string(ev.Status)),
		zap.String("comment", ev.Comment),
		zap.Time("at", ev.At),
	)
}

// Multi fans an entry out to every recorder in order.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, ev Event) {
	for _, r := range m {
		r.Record(ctx, ev)
	}
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}
