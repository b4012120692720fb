package service

import (
	"context"
	"strings"
	"time"

	"github.com/punchamoorthee/tuitionledger/internal/audit"
	"github.com/punchamoorthee/tuitionledger/internal/auth"
	"github.com/punchamoorthee/tuitionledger/internal/domain"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 50
	MinPageSize     = 10
	MaxPageSize     = 100
)

// Enrollment is the input for a new student record.
type Enrollment struct {
	Matricule    string
	LastName     string
	FirstName    string
	Sex          string
	Program      string
	Department   string
	Level        string
	AcademicYear string
	BirthYear    *int
	Birthplace   string
	Credential   string
}

// StudentPage is one page of a registry listing.
type StudentPage struct {
	Students []domain.Student `json:"students"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
	Pages    int              `json:"pages"`
}

type RegistryService struct {
	ledger      Ledger
	defaultYear string
	audit       audit.Recorder
	logger      *zap.Logger
}

func NewRegistryService(ledger Ledger, defaultYear string, rec audit.Recorder, logger *zap.Logger) *RegistryService {
	return &RegistryService{
		ledger:      ledger,
		defaultYear: defaultYear,
		audit:       rec,
		logger:      logger.With(zap.String("component", "registry")),
	}
}

func (s *RegistryService) Enroll(ctx context.Context, actor auth.Principal, e Enrollment) (*domain.Student, error) {
	m, err := domain.NormalizeMatricule(e.Matricule)
	if err != nil {
		return nil, err
	}
	st := domain.Student{
		Matricule:    m,
		LastName:     strings.TrimSpace(e.LastName),
		FirstName:    strings.TrimSpace(e.FirstName),
		Sex:          strings.ToUpper(strings.TrimSpace(e.Sex)),
		Program:      strings.TrimSpace(e.Program),
		Department:   strings.TrimSpace(e.Department),
		Level:        strings.TrimSpace(e.Level),
		AcademicYear: strings.TrimSpace(e.AcademicYear),
		BirthYear:    e.BirthYear,
		Birthplace:   strings.TrimSpace(e.Birthplace),
		Credential:   e.Credential,
	}
	if st.LastName == "" || st.FirstName == "" || st.Program == "" {
		return nil, domain.ErrInvalidRequest.WithMessage("last name, first name and program are required")
	}
	if st.Sex == "" {
		st.Sex = "M"
	}
	if !domain.ValidSex(st.Sex) {
		return nil, domain.ErrInvalidRequest.WithMessage("sex must be M or F")
	}
	if st.AcademicYear == "" {
		st.AcademicYear = s.defaultYear
	}

	created, err := s.ledger.CreateStudent(ctx, st)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Student enrolled", zap.Int64("student_id", created.ID), zap.String("matricule", created.Matricule))
	s.audit.Record(ctx, audit.Event{
		Action:       audit.ActionStudentEnrolled,
		Actor:        actor.Subject,
		Role:         string(actor.Role),
		StudentID:    created.ID,
		Matricule:    created.Matricule,
		AcademicYear: created.AcademicYear,
		At:           created.EnrolledAt,
	})
	return created, nil
}

func (s *RegistryService) Get(ctx context.Context, matricule string) (*domain.Student, error) {
	m, err := domain.NormalizeMatricule(matricule)
	if err != nil {
		return nil, err
	}
	return s.ledger.GetStudentByMatricule(ctx, m)
}

func (s *RegistryService) GetByID(ctx context.Context, id int64) (*domain.Student, error) {
	return s.ledger.GetStudentByID(ctx, id)
}

// List returns one page of students. page starts at 1 and limit is clamped
// to [MinPageSize, MaxPageSize].
func (s *RegistryService) List(ctx context.Context, f domain.StudentFilter, page, limit int) (*StudentPage, error) {
	page, limit = ClampPage(page, limit)
	f.Limit = limit
	f.Offset = (page - 1) * limit

	students, total, err := s.ledger.ListStudents(ctx, f)
	if err != nil {
		return nil, err
	}
	return &StudentPage{
		Students: students,
		Total:    total,
		Page:     page,
		Limit:    limit,
		Pages:    (total + limit - 1) / limit,
	}, nil
}

// Patch corrects the listed fields of a student record.
func (s *RegistryService) Patch(ctx context.Context, actor auth.Principal, matricule string, patch domain.StudentPatch) (*domain.Student, error) {
	if patch.Empty() {
		return nil, domain.ErrEmptyPatch
	}
	if patch.Sex != nil {
		sex := strings.ToUpper(strings.TrimSpace(*patch.Sex))
		if !domain.ValidSex(sex) {
			return nil, domain.ErrInvalidRequest.WithMessage("sex must be M or F")
		}
		patch.Sex = &sex
	}
	for _, f := range []**string{&patch.LastName, &patch.FirstName, &patch.Program} {
		if *f != nil && strings.TrimSpace(**f) == "" {
			return nil, domain.ErrInvalidRequest.WithMessage("name and program cannot be blank")
		}
	}

	st, err := s.Get(ctx, matricule)
	if err != nil {
		return nil, err
	}
	updated, err := s.ledger.UpdateStudent(ctx, st.ID, patch)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Student updated", zap.Int64("student_id", updated.ID), zap.String("matricule", updated.Matricule))
	s.audit.Record(ctx, audit.Event{
		Action:       audit.ActionStudentUpdated,
		Actor:        actor.Subject,
		Role:         string(actor.Role),
		StudentID:    updated.ID,
		Matricule:    updated.Matricule,
		AcademicYear: updated.AcademicYear,
		At:           time.Now(),
	})
	return updated, nil
}

func ClampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit < MinPageSize:
		limit = MinPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	return page, limit
}
