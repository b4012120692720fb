package domain

import (
	"math"
	"sort"
	"time"
)

// GlobalStatus summarizes how much of the yearly fee a student has settled.
type GlobalStatus string

const (
	GlobalComplete GlobalStatus = "complete"
	GlobalPartial  GlobalStatus = "partial"
	GlobalUnpaid   GlobalStatus = "unpaid"
)

// TotalPaid sums the validated amounts in payments.
func TotalPaid(payments []Payment) int64 {
	var total int64
	for _, p := range payments {
		if p.Status == StatusValidated {
			total += p.Amount
		}
	}
	return total
}

// Remaining is clamped at zero.
func Remaining(fees FeeSchedule, paid int64) int64 {
	rest := fees.Total() - paid
	if rest < 0 {
		return 0
	}
	return rest
}

func StatusFor(fees FeeSchedule, paid int64) GlobalStatus {
	switch {
	case paid >= fees.Total():
		return GlobalComplete
	case paid > 0:
		return GlobalPartial
	default:
		return GlobalUnpaid
	}
}

// StudentSummary is the per-student reconciliation view for one academic year.
type StudentSummary struct {
	Student      Student      `json:"student"`
	AcademicYear string       `json:"academic_year"`
	Payments     []Payment    `json:"payments"`
	TotalFees    int64        `json:"total_fees"`
	TotalPaid    int64        `json:"total_paid"`
	Remaining    int64        `json:"remaining"`
	Status       GlobalStatus `json:"global_status"`
	Tranche1Paid bool         `json:"tranche1_paid"`
	Tranche2Paid bool         `json:"tranche2_paid"`
	LastActivity *time.Time   `json:"last_activity"`
}

// Summarize builds a StudentSummary from the payments already scoped to the
// student and academic year.
func Summarize(s Student, year string, payments []Payment, fees FeeSchedule) StudentSummary {
	paid := TotalPaid(payments)
	sum := StudentSummary{
		Student:      s,
		AcademicYear: year,
		Payments:     payments,
		TotalFees:    fees.Total(),
		TotalPaid:    paid,
		Remaining:    Remaining(fees, paid),
		Status:       StatusFor(fees, paid),
	}
	if sum.Payments == nil {
		sum.Payments = []Payment{}
	}
	for i := range payments {
		p := payments[i]
		if p.Status == StatusValidated {
			switch p.Tranche {
			case 1:
				sum.Tranche1Paid = true
			case 2:
				sum.Tranche2Paid = true
			}
		}
		if sum.LastActivity == nil || p.SubmittedAt.After(*sum.LastActivity) {
			t := p.SubmittedAt
			sum.LastActivity = &t
		}
	}
	return sum
}

// DashboardStats are the global collection figures.
type DashboardStats struct {
	TotalStudents     int     `json:"total_students"`
	ValidatedPayments int     `json:"validated_payments"`
	PendingPayments   int     `json:"pending_payments"`
	RejectedPayments  int     `json:"rejected_payments"`
	CollectedAmount   int64   `json:"collected_amount"`
	ExpectedAmount    int64   `json:"expected_amount"`
	PendingAmount     int64   `json:"pending_amount"`
	PayingStudents    int     `json:"paying_students"`
	AveragePayment    float64 `json:"average_payment"`
	CollectionRate    float64 `json:"collection_rate"`
}

// ComputeDashboard derives the global figures from the ledger and the
// enrolled headcount.
func ComputeDashboard(payments []Payment, totalStudents int, fees FeeSchedule) DashboardStats {
	st := DashboardStats{
		TotalStudents:  totalStudents,
		ExpectedAmount: int64(totalStudents) * fees.Total(),
	}
	paying := make(map[int64]struct{})
	for _, p := range payments {
		switch p.Status {
		case StatusValidated:
			st.ValidatedPayments++
			st.CollectedAmount += p.Amount
			paying[p.StudentID] = struct{}{}
		case StatusPending:
			st.PendingPayments++
			st.PendingAmount += p.Amount
		case StatusRejected:
			st.RejectedPayments++
		}
	}
	st.PayingStudents = len(paying)
	if st.ValidatedPayments > 0 {
		st.AveragePayment = float64(st.CollectedAmount) / float64(st.ValidatedPayments)
	}
	if st.ExpectedAmount > 0 {
		st.CollectionRate = round2(float64(st.CollectedAmount) / float64(st.ExpectedAmount) * 100)
	}
	return st
}

// ProgramStat is the validated collection for one program label.
type ProgramStat struct {
	Program        string  `json:"program"`
	PayingStudents int     `json:"paying_students"`
	Payments       int     `json:"payments"`
	TotalAmount    int64   `json:"total_amount"`
	AverageAmount  float64 `json:"average_amount"`
	Headcount      int     `json:"headcount"`
	PaymentRate    float64 `json:"payment_rate"`
}

// ProgramBreakdown groups validated payments by the program label captured at
// submission. headcounts maps a program to its current enrolled students and
// is only used for the payment rate. Results are ordered by total descending.
func ProgramBreakdown(payments []Payment, headcounts map[string]int) []ProgramStat {
	byProgram := make(map[string]*ProgramStat)
	paying := make(map[string]map[int64]struct{})
	for _, p := range payments {
		if p.Status != StatusValidated {
			continue
		}
		st, ok := byProgram[p.Program]
		if !ok {
			st = &ProgramStat{Program: p.Program}
			byProgram[p.Program] = st
			paying[p.Program] = make(map[int64]struct{})
		}
		st.Payments++
		st.TotalAmount += p.Amount
		paying[p.Program][p.StudentID] = struct{}{}
	}

	out := make([]ProgramStat, 0, len(byProgram))
	for name, st := range byProgram {
		st.PayingStudents = len(paying[name])
		st.AverageAmount = float64(st.TotalAmount) / float64(st.Payments)
		st.Headcount = headcounts[name]
		if st.Headcount > 0 {
			st.PaymentRate = round2(float64(st.PayingStudents) / float64(st.Headcount) * 100)
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalAmount != out[j].TotalAmount {
			return out[i].TotalAmount > out[j].TotalAmount
		}
		return out[i].Program < out[j].Program
	})
	return out
}

// TrancheStat is the validated collection for one tranche number.
type TrancheStat struct {
	Tranche     int   `json:"tranche"`
	Payments    int   `json:"payments"`
	TotalAmount int64 `json:"total_amount"`
}

// TrancheBreakdown always reports every tranche, zero-filled.
func TrancheBreakdown(payments []Payment) []TrancheStat {
	out := make([]TrancheStat, TrancheCount)
	for i := range out {
		out[i].Tranche = i + 1
	}
	for _, p := range payments {
		if p.Status != StatusValidated || !ValidTranche(p.Tranche) {
			continue
		}
		out[p.Tranche-1].Payments++
		out[p.Tranche-1].TotalAmount += p.Amount
	}
	return out
}

// MonthlyPoint is one calendar month of validated collection.
type MonthlyPoint struct {
	Month       int    `json:"month"`
	Name        string `json:"name"`
	Payments    int    `json:"payments"`
	TotalAmount int64  `json:"total_amount"`
}

// MonthlySeries buckets validated payments of the given year by submission
// month in loc. It always returns twelve entries ordered January to December.
func MonthlySeries(payments []Payment, year int, loc *time.Location) []MonthlyPoint {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]MonthlyPoint, 12)
	for i := range out {
		m := time.Month(i + 1)
		out[i] = MonthlyPoint{Month: int(m), Name: m.String()}
	}
	for _, p := range payments {
		if p.Status != StatusValidated {
			continue
		}
		t := p.SubmittedAt.In(loc)
		if t.Year() != year {
			continue
		}
		out[t.Month()-1].Payments++
		out[t.Month()-1].TotalAmount += p.Amount
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
