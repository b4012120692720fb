package service

import (
	"context"

	"github.com/punchamoorthee/tuitionledger/internal/domain"
)

// PaymentLedger is the payment side of the ledger store.
type PaymentLedger interface {
	InsertPayment(ctx context.Context, np domain.NewPayment) (*domain.Payment, error)
	FindActivePayment(ctx context.Context, studentID int64, tranche int, year string) (*domain.Payment, error)
	UpdatePaymentState(ctx context.Context, d domain.Decision) (*domain.Payment, error)
	GetPayment(ctx context.Context, id int64) (*domain.Payment, error)
	QueryPayments(ctx context.Context, f domain.PaymentFilter) ([]domain.Payment, error)
}

// StudentRegistry is the student side of the ledger store.
type StudentRegistry interface {
	GetStudentByID(ctx context.Context, id int64) (*domain.Student, error)
	GetStudentByMatricule(ctx context.Context, matricule string) (*domain.Student, error)
	CreateStudent(ctx context.Context, st domain.Student) (*domain.Student, error)
	UpdateStudent(ctx context.Context, id int64, patch domain.StudentPatch) (*domain.Student, error)
	ListStudents(ctx context.Context, f domain.StudentFilter) ([]domain.Student, int, error)
	CountStudents(ctx context.Context, year string) (int, error)
	ProgramHeadcounts(ctx context.Context, year string) (map[string]int, error)
}

// Ledger is everything the services need from storage.
type Ledger interface {
	PaymentLedger
	StudentRegistry
}
