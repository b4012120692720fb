package domain

import (
	"testing"
	"time"
)

var testFees = FeeSchedule{TrancheFee: 25000}

func payment(studentID int64, tranche int, status PaymentStatus, program string, at time.Time) Payment {
	return Payment{
		StudentID:   studentID,
		Amount:      testFees.TrancheFee,
		Tranche:     tranche,
		Program:     program,
		Status:      status,
		SubmittedAt: at,
	}
}

func TestRemainingPlusPaidEqualsTotal(t *testing.T) {
	jan := time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC)
	cases := map[string][]Payment{
		"none":     nil,
		"pending":  {payment(1, 1, StatusPending, "INFO", jan)},
		"rejected": {payment(1, 1, StatusRejected, "INFO", jan)},
		"one":      {payment(1, 1, StatusValidated, "INFO", jan)},
		"both":     {payment(1, 1, StatusValidated, "INFO", jan), payment(1, 2, StatusValidated, "INFO", jan)},
		"mixed":    {payment(1, 1, StatusRejected, "INFO", jan), payment(1, 1, StatusValidated, "INFO", jan), payment(1, 2, StatusPending, "INFO", jan)},
	}
	for name, ps := range cases {
		t.Run(name, func(t *testing.T) {
			paid := TotalPaid(ps)
			if got := Remaining(testFees, paid) + paid; got != testFees.Total() {
				t.Errorf("remaining + paid = %d, want %d", got, testFees.Total())
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		paid int64
		want GlobalStatus
	}{
		{0, GlobalUnpaid},
		{25000, GlobalPartial},
		{50000, GlobalComplete},
		{75000, GlobalComplete},
	}
	for _, tt := range tests {
		if got := StatusFor(testFees, tt.paid); got != tt.want {
			t.Errorf("StatusFor(%d) = %s, want %s", tt.paid, got, tt.want)
		}
	}
	if got := Remaining(testFees, 75000); got != 0 {
		t.Errorf("Remaining should clamp at 0, got %d", got)
	}
}

func TestSummarize(t *testing.T) {
	s := Student{ID: 7, Matricule: "ABC123"}
	t1 := time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(48 * time.Hour)
	sum := Summarize(s, "2024-2025", []Payment{
		payment(7, 1, StatusValidated, "INFO", t1),
		payment(7, 2, StatusPending, "INFO", t2),
	}, testFees)

	if sum.TotalPaid != 25000 || sum.Remaining != 25000 {
		t.Fatalf("paid=%d remaining=%d", sum.TotalPaid, sum.Remaining)
	}
	if sum.Status != GlobalPartial {
		t.Errorf("status = %s, want partial", sum.Status)
	}
	if !sum.Tranche1Paid || sum.Tranche2Paid {
		t.Errorf("tranche flags = %v/%v", sum.Tranche1Paid, sum.Tranche2Paid)
	}
	if sum.LastActivity == nil || !sum.LastActivity.Equal(t2) {
		t.Errorf("last activity = %v, want %v", sum.LastActivity, t2)
	}

	empty := Summarize(s, "2024-2025", nil, testFees)
	if empty.Payments == nil {
		t.Error("payments should serialize as an empty list")
	}
	if empty.Status != GlobalUnpaid || empty.Remaining != testFees.Total() {
		t.Errorf("empty summary = %+v", empty)
	}
}

func TestMonthlySeriesZeroFilled(t *testing.T) {
	ps := []Payment{
		payment(1, 1, StatusValidated, "INFO", time.Date(2025, time.February, 3, 0, 0, 0, 0, time.UTC)),
		payment(2, 1, StatusValidated, "INFO", time.Date(2025, time.February, 20, 0, 0, 0, 0, time.UTC)),
		payment(3, 2, StatusValidated, "INFO", time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC)),
		payment(4, 1, StatusPending, "INFO", time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)),
		payment(5, 1, StatusValidated, "INFO", time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)),
	}

	for _, year := range []int{2023, 2024, 2025} {
		series := MonthlySeries(ps, year, time.UTC)
		if len(series) != 12 {
			t.Fatalf("year %d: got %d entries, want 12", year, len(series))
		}
		for i, pt := range series {
			if pt.Month != i+1 {
				t.Fatalf("year %d: entry %d has month %d", year, i, pt.Month)
			}
		}
	}

	series := MonthlySeries(ps, 2025, time.UTC)
	if series[1].Payments != 2 || series[1].TotalAmount != 50000 {
		t.Errorf("february = %+v", series[1])
	}
	if series[10].Payments != 1 {
		t.Errorf("november = %+v", series[10])
	}
	if series[4].Payments != 0 {
		t.Errorf("pending payment counted in may: %+v", series[4])
	}
	if series[0].Name != "January" || series[11].Name != "December" {
		t.Errorf("month names = %s..%s", series[0].Name, series[11].Name)
	}
}

func TestProgramBreakdownUsesSnapshotLabel(t *testing.T) {
	at := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	ps := []Payment{
		payment(1, 1, StatusValidated, "INFO", at),
		payment(1, 2, StatusValidated, "INFO", at),
		payment(2, 1, StatusValidated, "MATH", at),
		payment(3, 1, StatusRejected, "MATH", at),
	}
	got := ProgramBreakdown(ps, map[string]int{"INFO": 4, "MATH": 1})
	if len(got) != 2 {
		t.Fatalf("got %d programs, want 2", len(got))
	}
	if got[0].Program != "INFO" || got[0].TotalAmount != 50000 || got[0].PayingStudents != 1 {
		t.Errorf("first = %+v", got[0])
	}
	if got[0].PaymentRate != 25 {
		t.Errorf("INFO rate = %v, want 25", got[0].PaymentRate)
	}
	if got[1].Program != "MATH" || got[1].Payments != 1 || got[1].PaymentRate != 100 {
		t.Errorf("second = %+v", got[1])
	}
}

func TestTrancheBreakdown(t *testing.T) {
	at := time.Now()
	got := TrancheBreakdown([]Payment{
		payment(1, 1, StatusValidated, "X", at),
		payment(2, 1, StatusValidated, "X", at),
		payment(3, 1, StatusPending, "X", at),
	})
	if len(got) != 2 {
		t.Fatalf("got %d tranches", len(got))
	}
	if got[0].Payments != 2 || got[0].TotalAmount != 50000 {
		t.Errorf("tranche 1 = %+v", got[0])
	}
	if got[1].Tranche != 2 || got[1].Payments != 0 {
		t.Errorf("tranche 2 = %+v", got[1])
	}
}

func TestComputeDashboard(t *testing.T) {
	at := time.Now()
	st := ComputeDashboard([]Payment{
		payment(1, 1, StatusValidated, "X", at),
		payment(1, 2, StatusValidated, "X", at),
		payment(2, 1, StatusPending, "X", at),
		payment(3, 1, StatusRejected, "X", at),
	}, 4, testFees)

	if st.ValidatedPayments != 2 || st.PendingPayments != 1 || st.RejectedPayments != 1 {
		t.Errorf("counts = %+v", st)
	}
	if st.CollectedAmount != 50000 || st.ExpectedAmount != 200000 || st.PendingAmount != 25000 {
		t.Errorf("amounts = %+v", st)
	}
	if st.PayingStudents != 1 {
		t.Errorf("paying students = %d", st.PayingStudents)
	}
	if st.AveragePayment != 25000 || st.CollectionRate != 25 {
		t.Errorf("average = %v rate = %v", st.AveragePayment, st.CollectionRate)
	}
}
