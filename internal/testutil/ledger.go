// Package testutil holds shared fakes for package tests.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/punchamoorthee/tuitionledger/internal/domain"
)

// MemLedger is an in-memory ledger. Every method holds the lock for its
// whole body, which gives the same atomicity the Postgres store provides.
type MemLedger struct {
	mu       sync.Mutex
	Now      func() time.Time
	students map[int64]domain.Student
	payments map[int64]domain.Payment
	nextSID  int64
	nextPID  int64
}

func NewMemLedger() *MemLedger {
	return &MemLedger{
		Now:      time.Now,
		students: make(map[int64]domain.Student),
		payments: make(map[int64]domain.Payment),
	}
}

func (m *MemLedger) InsertPayment(_ context.Context, np domain.NewPayment) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.students[np.StudentID]
	if !ok {
		return nil, domain.ErrStudentNotFound
	}
	for _, p := range m.payments {
		if p.StudentID == np.StudentID && p.Tranche == np.Tranche && p.AcademicYear == np.AcademicYear && p.Status.Active() {
			return nil, domain.ErrDuplicatePayment
		}
	}
	m.nextPID++
	p := domain.Payment{
		ID:           m.nextPID,
		StudentID:    np.StudentID,
		Matricule:    np.Matricule,
		StudentName:  st.FullName(),
		Amount:       np.Amount,
		Tranche:      np.Tranche,
		Program:      np.Labels.Program,
		Faculty:      np.Labels.Faculty,
		University:   np.Labels.University,
		AcademicYear: np.AcademicYear,
		Status:       domain.StatusPending,
		SubmittedAt:  m.Now(),
	}
	m.payments[p.ID] = p
	return &p, nil
}

func (m *MemLedger) FindActivePayment(_ context.Context, studentID int64, tranche int, year string) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.StudentID == studentID && p.Tranche == tranche && p.AcademicYear == year && p.Status.Active() {
			return &p, nil
		}
	}
	return nil, nil
}

func (m *MemLedger) UpdatePaymentState(_ context.Context, d domain.Decision) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[d.PaymentID]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	if p.Status != d.From {
		return nil, domain.ErrAlreadyDecided
	}
	now := m.Now()
	admin := d.AdminID
	p.Status = d.To
	p.DecidedAt = &now
	p.DecidedBy = &admin
	if d.Comment != "" {
		c := d.Comment
		p.Comment = &c
	}
	m.payments[p.ID] = p
	return &p, nil
}

func (m *MemLedger) GetPayment(_ context.Context, id int64) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return &p, nil
}

func (m *MemLedger) QueryPayments(_ context.Context, f domain.PaymentFilter) ([]domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Payment{}
	for _, p := range m.payments {
		switch {
		case f.Status != "" && p.Status != f.Status,
			f.StudentID != 0 && p.StudentID != f.StudentID,
			f.Tranche != 0 && p.Tranche != f.Tranche,
			f.Program != "" && p.Program != f.Program,
			f.AcademicYear != "" && p.AcademicYear != f.AcademicYear,
			f.From != nil && p.SubmittedAt.Before(*f.From),
			f.To != nil && !p.SubmittedAt.Before(*f.To),
			f.DecidedBy != "" && (p.DecidedBy == nil || *p.DecidedBy != f.DecidedBy):
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if f.OldestFirst {
			return out[i].ID < out[j].ID
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *MemLedger) GetStudentByID(_ context.Context, id int64) (*domain.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.students[id]
	if !ok {
		return nil, domain.ErrStudentNotFound
	}
	return &st, nil
}

func (m *MemLedger) GetStudentByMatricule(_ context.Context, matricule string) (*domain.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.students {
		if st.Matricule == matricule {
			return &st, nil
		}
	}
	return nil, domain.ErrStudentNotFound
}

func (m *MemLedger) CreateStudent(_ context.Context, st domain.Student) (*domain.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.students {
		if existing.Matricule == st.Matricule {
			return nil, domain.ErrDuplicateMatricule
		}
	}
	m.nextSID++
	st.ID = m.nextSID
	st.EnrolledAt = m.Now()
	m.students[st.ID] = st
	return &st, nil
}

func (m *MemLedger) UpdateStudent(_ context.Context, id int64, patch domain.StudentPatch) (*domain.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if patch.Empty() {
		return nil, domain.ErrEmptyPatch
	}
	st, ok := m.students[id]
	if !ok {
		return nil, domain.ErrStudentNotFound
	}
	apply := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	apply(&st.LastName, patch.LastName)
	apply(&st.FirstName, patch.FirstName)
	apply(&st.Sex, patch.Sex)
	apply(&st.Program, patch.Program)
	apply(&st.Department, patch.Department)
	apply(&st.Level, patch.Level)
	apply(&st.AcademicYear, patch.AcademicYear)
	apply(&st.Birthplace, patch.Birthplace)
	if patch.BirthYear != nil {
		y := *patch.BirthYear
		st.BirthYear = &y
	}
	m.students[id] = st
	return &st, nil
}

func (m *MemLedger) ListStudents(_ context.Context, f domain.StudentFilter) ([]domain.Student, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.Student
	for _, st := range m.students {
		if f.Program != "" && !strings.Contains(strings.ToLower(st.Program), strings.ToLower(f.Program)) {
			continue
		}
		if f.Level != "" && st.Level != f.Level {
			continue
		}
		if f.AcademicYear != "" && st.AcademicYear != f.AcademicYear {
			continue
		}
		all = append(all, st)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	if f.Limit > 0 {
		if f.Offset >= len(all) {
			return []domain.Student{}, total, nil
		}
		end := f.Offset + f.Limit
		if end > len(all) {
			end = len(all)
		}
		all = all[f.Offset:end]
	}
	if all == nil {
		all = []domain.Student{}
	}
	return all, total, nil
}

func (m *MemLedger) CountStudents(_ context.Context, year string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, st := range m.students {
		if year == "" || st.AcademicYear == year {
			n++
		}
	}
	return n, nil
}

func (m *MemLedger) ProgramHeadcounts(_ context.Context, year string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int)
	for _, st := range m.students {
		if year == "" || st.AcademicYear == year {
			out[st.Program]++
		}
	}
	return out, nil
}

// AddStudent stores st as-is, assigning an id when it has none.
func (m *MemLedger) AddStudent(st domain.Student) domain.Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st.ID == 0 {
		m.nextSID++
		st.ID = m.nextSID
	} else if st.ID > m.nextSID {
		m.nextSID = st.ID
	}
	m.students[st.ID] = st
	return st
}

// PaymentCount reports how many payments have been stored.
func (m *MemLedger) PaymentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payments)
}
