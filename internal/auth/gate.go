package auth

import (
	"crypto/subtle"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/punchamoorthee/tuitionledger/internal/domain"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Principal is the resolved actor behind a request.
type Principal struct {
	Role      Role   `json:"role"`
	Subject   string `json:"subject"`
	StudentID int64  `json:"student_id,omitempty"`
	Matricule string `json:"matricule,omitempty"`
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// Owns reports whether p is the student that owns studentID.
func (p Principal) Owns(studentID int64) bool {
	return p.Role == RoleStudent && p.StudentID == studentID
}

// AdminIdentity is the configured administrative principal record.
type AdminIdentity struct {
	ID       string
	Username string
	Password string
}

// Claims is the signed token body.
type Claims struct {
	Role      Role   `json:"role"`
	Matricule string `json:"matricule,omitempty"`
	jwt.RegisteredClaims
}

// Gate issues capability tokens and resolves them back into principals.
type Gate struct {
	secret []byte
	ttl    time.Duration
	admin  AdminIdentity
	now    func() time.Time
	parser *jwt.Parser
}

func NewGate(secret string, ttl time.Duration, admin AdminIdentity) *Gate {
	return &Gate{
		secret: []byte(secret),
		ttl:    ttl,
		admin:  admin,
		now:    time.Now,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Issue signs a token for p and returns it with its expiry.
func (g *Gate) Issue(p Principal) (string, time.Time, error) {
	now := g.now()
	exp := now.Add(g.ttl)
	claims := Claims{
		Role:      p.Role,
		Matricule: p.Matricule,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// Authorize resolves token into a Principal holding the required role. An
// empty required role accepts any valid principal.
func (g *Gate) Authorize(token string, required Role) (Principal, error) {
	if token == "" {
		return Principal{}, domain.ErrInvalidToken
	}

	var claims Claims
	parsed, err := g.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return g.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Principal{}, domain.ErrInvalidToken
	}

	p, err := g.resolve(claims)
	if err != nil {
		return Principal{}, err
	}
	if required != "" && p.Role != required {
		return Principal{}, domain.ErrWrongRole
	}
	return p, nil
}

func (g *Gate) resolve(c Claims) (Principal, error) {
	switch c.Role {
	case RoleAdmin:
		if c.Subject != g.admin.ID {
			return Principal{}, domain.ErrInvalidToken
		}
		return Principal{Role: RoleAdmin, Subject: c.Subject}, nil
	case RoleStudent:
		id, err := strconv.ParseInt(c.Subject, 10, 64)
		if err != nil || id <= 0 || c.Matricule == "" {
			return Principal{}, domain.ErrInvalidToken
		}
		return Principal{Role: RoleStudent, Subject: c.Subject, StudentID: id, Matricule: c.Matricule}, nil
	}
	return Principal{}, domain.ErrInvalidToken
}

// AdminPrincipal checks username and password against the configured admin.
func (g *Gate) AdminPrincipal(username, password string) (Principal, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.admin.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(g.admin.Password)) == 1
	if !userOK || !passOK {
		return Principal{}, domain.ErrInvalidCredentials
	}
	return Principal{Role: RoleAdmin, Subject: g.admin.ID}, nil
}

// StudentPrincipal binds a principal to an enrolled student.
func StudentPrincipal(s *domain.Student) Principal {
	return Principal{
		Role:      RoleStudent,
		Subject:   strconv.FormatInt(s.ID, 10),
		StudentID: s.ID,
		Matricule: s.Matricule,
	}
}

var errNoBearer = errors.New("no bearer token")

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errNoBearer
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errNoBearer
	}
	return token, nil
}
