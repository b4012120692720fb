package models

import "github.com/punchamoorthee/tuitionledger/internal/domain"

// Envelope is the body of every response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type StudentLoginRequest struct {
	Matricule string `json:"matricule" validate:"required"`
	Password  string `json:"password" validate:"required"`
}

type AdminLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SubmitPaymentRequest is a student's tranche payment claim. Amount and
// tranche are checked by the payment service so that they fail with their own
// codes.
type SubmitPaymentRequest struct {
	Matricule    string `json:"matricule" validate:"omitempty,matricule"`
	Amount       int64  `json:"amount"`
	Tranche      int    `json:"tranche"`
	AcademicYear string `json:"academic_year" validate:"omitempty,academic_year"`
	Program      string `json:"program" validate:"max=120"`
	Faculty      string `json:"faculty" validate:"max=120"`
	University   string `json:"university" validate:"max=120"`
}

type DecisionRequest struct {
	Decision string `json:"decision" validate:"required"`
	Comment  string `json:"comment" validate:"max=500"`
}

type EnrollStudentRequest struct {
	Matricule    string `json:"matricule" validate:"required,matricule"`
	LastName     string `json:"last_name" validate:"required,max=100"`
	FirstName    string `json:"first_name" validate:"required,max=100"`
	Sex          string `json:"sex" validate:"omitempty,oneof=M F m f"`
	Program      string `json:"program" validate:"required,max=120"`
	Department   string `json:"department" validate:"max=120"`
	Level        string `json:"level" validate:"max=20"`
	AcademicYear string `json:"academic_year" validate:"omitempty,academic_year"`
	BirthYear    *int   `json:"birth_year" validate:"omitempty,min=1900,max=2100"`
	Birthplace   string `json:"birthplace" validate:"max=120"`
	Password     string `json:"password"`
}

// PaymentList wraps a ledger listing.
type PaymentList struct {
	Payments []domain.Payment `json:"payments"`
	Count    int              `json:"count"`
}

func NewPaymentList(ps []domain.Payment) PaymentList {
	if ps == nil {
		ps = []domain.Payment{}
	}
	return PaymentList{Payments: ps, Count: len(ps)}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
