package models

import (
	"errors"
	"strings"
	"testing"

	"github.com/punchamoorthee/tuitionledger/internal/domain"
)

func TestDecodeSubmitPayment(t *testing.T) {
	var req SubmitPaymentRequest
	err := Decode(strings.NewReader(`{"amount":25000,"tranche":1,"academic_year":"2024-2025","matricule":"abc123"}`), &req)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if req.Amount != 25000 || req.Tranche != 1 || req.AcademicYear != "2024-2025" || req.Matricule != "abc123" {
		t.Errorf("request = %+v", req)
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		dst  any
		want error
	}{
		{"malformed json", `{"amount":`, &SubmitPaymentRequest{}, domain.ErrInvalidRequest},
		{"amount as string", `{"amount":"25000","tranche":1}`, &SubmitPaymentRequest{}, domain.ErrInvalidRequest},
		{"bad year", `{"amount":25000,"tranche":1,"academic_year":"2024-2026"}`, &SubmitPaymentRequest{}, domain.ErrInvalidRequest},
		{"bad matricule", `{"amount":25000,"tranche":1,"matricule":"a-"}`, &SubmitPaymentRequest{}, domain.ErrInvalidMatricule},
		{"missing decision", `{"comment":"x"}`, &DecisionRequest{}, domain.ErrInvalidRequest},
		{"missing username", `{"password":"x"}`, &AdminLoginRequest{}, domain.ErrInvalidRequest},
		{"bad sex", `{"matricule":"ABC123","last_name":"a","first_name":"b","program":"c","sex":"Z"}`, &EnrollStudentRequest{}, domain.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Decode(strings.NewReader(tt.body), tt.dst)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateNamesJSONField(t *testing.T) {
	err := Validate(&EnrollStudentRequest{Matricule: "ABC123", FirstName: "b", Program: "c"})
	if got := domain.MessageOf(err); got != "last_name is required" {
		t.Errorf("message = %q", got)
	}
}

func TestDecodePatch(t *testing.T) {
	patch, err := DecodePatch(strings.NewReader(`{"level":"L2","birth_year":2001}`))
	if err != nil {
		t.Fatalf("DecodePatch: %v", err)
	}
	if patch.Level == nil || *patch.Level != "L2" || *patch.BirthYear != 2001 || patch.Program != nil {
		t.Errorf("patch = %+v", patch)
	}

	_, err = DecodePatch(strings.NewReader(`{"level":"L2","matricule":"NEW123"}`))
	if !errors.Is(err, domain.ErrUnknownField) {
		t.Fatalf("unknown field err = %v", err)
	}
	if !strings.Contains(domain.MessageOf(err), "matricule") {
		t.Errorf("message = %q", domain.MessageOf(err))
	}

	if _, err := DecodePatch(strings.NewReader(`{}`)); !errors.Is(err, domain.ErrEmptyPatch) {
		t.Errorf("empty patch err = %v", err)
	}
	if _, err := DecodePatch(strings.NewReader(`{"academic_year":"2025"}`)); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("bad year err = %v", err)
	}
}

func TestValidAcademicYear(t *testing.T) {
	for in, want := range map[string]bool{
		"2024-2025": true,
		"2024-2024": false,
		"24-25":     false,
		"":          false,
	} {
		if got := ValidAcademicYear(in); got != want {
			t.Errorf("ValidAcademicYear(%q) = %v", in, got)
		}
	}
}
