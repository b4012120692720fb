package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/punchamoorthee/tuitionledger/internal/domain"
)

var testAdmin = AdminIdentity{ID: "admin", Username: "root", Password: "hunter2"}

func newTestGate() *Gate {
	return NewGate("test-secret", time.Hour, testAdmin)
}

type mockFinder struct {
	GetStudentByMatriculeFunc func(ctx context.Context, m string) (*domain.Student, error)
}

func (m *mockFinder) GetStudentByMatricule(ctx context.Context, matricule string) (*domain.Student, error) {
	return m.GetStudentByMatriculeFunc(ctx, matricule)
}

func TestIssueAndAuthorizeStudent(t *testing.T) {
	g := newTestGate()
	token, exp, err := g.Issue(StudentPrincipal(&domain.Student{ID: 7, Matricule: "ABC123"}))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry %v is not in the future", exp)
	}

	p, err := g.Authorize(token, RoleStudent)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if p.StudentID != 7 || p.Matricule != "ABC123" || !p.Owns(7) || p.Owns(8) {
		t.Errorf("principal = %+v", p)
	}

	if _, err := g.Authorize(token, RoleAdmin); !errors.Is(err, domain.ErrWrongRole) {
		t.Errorf("student token as admin: err = %v", err)
	}
	if !errors.Is(domain.ErrWrongRole, domain.ErrUnauthorized) {
		t.Error("wrong role must be an authorization failure")
	}
}

func TestAuthorizeAdmin(t *testing.T) {
	g := newTestGate()
	p, err := g.AdminPrincipal("root", "hunter2")
	if err != nil {
		t.Fatalf("AdminPrincipal: %v", err)
	}
	token, _, err := g.Issue(p)
	if err != nil {
		t.Fatal(err)
	}
	got, err := g.Authorize(token, RoleAdmin)
	if err != nil || !got.IsAdmin() || got.Subject != "admin" {
		t.Fatalf("Authorize = %+v, %v", got, err)
	}
	if _, err := g.Authorize(token, ""); err != nil {
		t.Errorf("any-role authorize: %v", err)
	}

	rotated := NewGate("test-secret", time.Hour, AdminIdentity{ID: "someone-else"})
	if _, err := rotated.Authorize(token, RoleAdmin); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("token for a replaced admin: err = %v", err)
	}
}

func TestAuthorizeRejectsBadTokens(t *testing.T) {
	g := newTestGate()

	expired := newTestGate()
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue(Principal{Role: RoleAdmin, Subject: "admin"})
	if err != nil {
		t.Fatal(err)
	}

	forged, _, err := NewGate("other-secret", time.Hour, testAdmin).Issue(Principal{Role: RoleAdmin, Subject: "admin"})
	if err != nil {
		t.Fatal(err)
	}

	for name, token := range map[string]string{
		"empty":   "",
		"garbage": "not-a-jwt",
		"expired": old,
		"forged":  forged,
	} {
		if _, err := g.Authorize(token, RoleAdmin); !errors.Is(err, domain.ErrInvalidToken) {
			t.Errorf("%s: err = %v, want ErrInvalidToken", name, err)
		}
	}
}

func TestAdminPrincipalWrongPassword(t *testing.T) {
	if _, err := newTestGate().AdminPrincipal("root", "nope"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("err = %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer   abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := BearerToken(tt.header)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("BearerToken(%q) = %q, %v", tt.header, got, err)
		}
	}
}

func TestLoginStudent(t *testing.T) {
	finder := &mockFinder{GetStudentByMatriculeFunc: func(_ context.Context, m string) (*domain.Student, error) {
		if m != "ABC123" {
			return nil, domain.ErrStudentNotFound
		}
		return &domain.Student{ID: 3, Matricule: "ABC123", Credential: "pw"}, nil
	}}
	a := NewAuthenticator(newTestGate(), finder)

	sess, err := a.LoginStudent(context.Background(), " abc123 ", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Principal.StudentID != 3 || sess.Student == nil || sess.Token == "" {
		t.Errorf("session = %+v", sess)
	}

	for _, tc := range []struct{ m, pw string }{{"ABC123", "bad"}, {"ZZZ999", "pw"}, {"!", "pw"}} {
		if _, err := a.LoginStudent(context.Background(), tc.m, tc.pw); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Errorf("login(%q,%q) err = %v", tc.m, tc.pw, err)
		}
	}
}

func TestLoginAdmin(t *testing.T) {
	a := NewAuthenticator(newTestGate(), &mockFinder{})
	sess, err := a.LoginAdmin("root", "hunter2")
	if err != nil || !sess.Principal.IsAdmin() {
		t.Fatalf("LoginAdmin = %+v, %v", sess, err)
	}
}
