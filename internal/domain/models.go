package domain

import (
	"regexp"
	"strings"
	"time"
)

// TrancheCount is the number of installments due per student per academic year.
const TrancheCount = 2

// PaymentStatus is the lifecycle state of a ledger entry.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusValidated PaymentStatus = "validated"
	StatusRejected  PaymentStatus = "rejected"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusValidated, StatusRejected:
		return true
	}
	return false
}

// Active payments block resubmission for the same tranche and year.
func (s PaymentStatus) Active() bool {
	return s == StatusPending || s == StatusValidated
}

func (s PaymentStatus) Terminal() bool {
	return s == StatusValidated || s == StatusRejected
}

// ParseDecision maps an admin decision onto its terminal status. The legacy
// "approve"/"reject" verbs are accepted as aliases.
func ParseDecision(v string) (PaymentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "validated", "valide", "approve":
		return StatusValidated, nil
	case "rejected", "rejete", "reject":
		return StatusRejected, nil
	}
	return "", ErrInvalidDecision
}

func ValidTranche(t int) bool {
	return t >= 1 && t <= TrancheCount
}

var matriculePattern = regexp.MustCompile(`^[A-Z0-9]{3,}$`)

// NormalizeMatricule upper-cases and trims an enrollment code and checks its shape.
func NormalizeMatricule(m string) (string, error) {
	m = strings.ToUpper(strings.TrimSpace(m))
	if !matriculePattern.MatchString(m) {
		return "", ErrInvalidMatricule
	}
	return m, nil
}

// FeeSchedule holds the fixed tuition amounts.
type FeeSchedule struct {
	TrancheFee int64
}

// Total is what a student owes for one academic year.
func (f FeeSchedule) Total() int64 {
	return f.TrancheFee * TrancheCount
}

// Student is an enrolled identity. Credential is compared verbatim and never serialized.
type Student struct {
	ID           int64     `json:"id"`
	Matricule    string    `json:"matricule"`
	LastName     string    `json:"last_name"`
	FirstName    string    `json:"first_name"`
	Sex          string    `json:"sex"`
	Program      string    `json:"program"`
	Department   string    `json:"department"`
	Level        string    `json:"level"`
	AcademicYear string    `json:"academic_year"`
	BirthYear    *int      `json:"birth_year,omitempty"`
	Birthplace   string    `json:"birthplace"`
	Credential   string    `json:"-"`
	EnrolledAt   time.Time `json:"enrolled_at"`
}

func (s Student) FullName() string {
	return strings.TrimSpace(s.LastName + " " + s.FirstName)
}

// Labels are the program/faculty/university names captured on a payment at
// submission time. They are a historical snapshot and are never re-derived
// from the student record.
type Labels struct {
	Program    string `json:"program"`
	Faculty    string `json:"faculty"`
	University string `json:"university"`
}

// Payment is one ledger entry.
type Payment struct {
	ID           int64         `json:"id"`
	StudentID    int64         `json:"student_id"`
	Matricule    string        `json:"matricule"`
	StudentName  string        `json:"student_name,omitempty"`
	Amount       int64         `json:"amount"`
	Tranche      int           `json:"tranche"`
	Program      string        `json:"program"`
	Faculty      string        `json:"faculty"`
	University   string        `json:"university"`
	AcademicYear string        `json:"academic_year"`
	Status       PaymentStatus `json:"status"`
	SubmittedAt  time.Time     `json:"submitted_at"`
	DecidedAt    *time.Time    `json:"decided_at"`
	DecidedBy    *string       `json:"decided_by"`
	Comment      *string       `json:"comment"`
}

// NewPayment is the validated input for a ledger insert.
type NewPayment struct {
	StudentID    int64
	Matricule    string
	Amount       int64
	Tranche      int
	AcademicYear string
	Labels       Labels
}

// Decision is a conditional state change applied by the store only while the
// payment is still in From.
type Decision struct {
	PaymentID int64
	From      PaymentStatus
	To        PaymentStatus
	AdminID   string
	Comment   string
}

// PaymentFilter narrows ledger queries. Zero values mean "any".
type PaymentFilter struct {
	Status       PaymentStatus
	StudentID    int64
	Tranche      int
	Program      string
	AcademicYear string
	From         *time.Time
	To           *time.Time
	DecidedBy    string
	OldestFirst  bool
}

// StudentFilter narrows registry listings.
type StudentFilter struct {
	Program      string
	Level        string
	AcademicYear string
	Limit        int
	Offset       int
}

// StudentPatch enumerates the fields an administrator may correct on a
// student record. Nil fields are left untouched; the matricule and credential
// are deliberately absent.
type StudentPatch struct {
	LastName     *string `json:"last_name"`
	FirstName    *string `json:"first_name"`
	Sex          *string `json:"sex"`
	Program      *string `json:"program"`
	Department   *string `json:"department"`
	Level        *string `json:"level"`
	AcademicYear *string `json:"academic_year"`
	BirthYear    *int    `json:"birth_year"`
	Birthplace   *string `json:"birthplace"`
}

func (p StudentPatch) Empty() bool {
	return p.LastName == nil && p.FirstName == nil && p.Sex == nil &&
		p.Program == nil && p.Department == nil && p.Level == nil &&
		p.AcademicYear == nil && p.BirthYear == nil && p.Birthplace == nil
}

// ValidSex reports whether v is one of the recorded values.
func ValidSex(v string) bool {
	return v == "M" || v == "F"
}
