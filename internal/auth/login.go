package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/punchamoorthee/tuitionledger/internal/domain"
)

// StudentFinder looks students up by enrollment code.
type StudentFinder interface {
	GetStudentByMatricule(ctx context.Context, matricule string) (*domain.Student, error)
}

// Session is a freshly issued token and whom it speaks for.
type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Principal Principal       `json:"principal"`
	Student   *domain.Student `json:"student,omitempty"`
}

type Authenticator struct {
	gate     *Gate
	students StudentFinder
}

func NewAuthenticator(gate *Gate, students StudentFinder) *Authenticator {
	return &Authenticator{gate: gate, students: students}
}

// LoginStudent exchanges a matricule and credential for a student token. An
// unknown matricule and a wrong credential are indistinguishable to callers.
func (a *Authenticator) LoginStudent(ctx context.Context, matricule, credential string) (*Session, error) {
	m, err := domain.NormalizeMatricule(matricule)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	st, err := a.students.GetStudentByMatricule(ctx, m)
	if err != nil {
		if errors.Is(err, domain.ErrStudentNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if st.Credential == "" || subtle.ConstantTimeCompare([]byte(credential), []byte(st.Credential)) != 1 {
		return nil, domain.ErrInvalidCredentials
	}
	return a.issue(StudentPrincipal(st), st)
}

func (a *Authenticator) LoginAdmin(username, password string) (*Session, error) {
	p, err := a.gate.AdminPrincipal(username, password)
	if err != nil {
		return nil, err
	}
	return a.issue(p, nil)
}

func (a *Authenticator) issue(p Principal, st *domain.Student) (*Session, error) {
	token, exp, err := a.gate.Issue(p)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, Principal: p, Student: st}, nil
}
