package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/punchamoorthee/tuitionledger/internal/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockProducer struct {
	ProduceFunc func(ctx context.Context, key, topic string, value []byte) error
}

func (m *mockProducer) Produce(ctx context.Context, key, topic string, value []byte) error {
	return m.ProduceFunc(ctx, key, topic, value)
}

func (m *mockProducer) Close() error { return nil }

func samplePayment() *domain.Payment {
	at := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)
	by := "admin"
	note := "receipt ok"
	return &domain.Payment{
		ID:           42,
		StudentID:    7,
		Matricule:    "ABC123",
		Amount:       25000,
		Tranche:      1,
		AcademicYear: "2024-2025",
		Status:       domain.StatusValidated,
		SubmittedAt:  at.Add(-time.Hour),
		DecidedAt:    &at,
		DecidedBy:    &by,
		Comment:      &note,
	}
}

func TestPaymentEventUsesDecisionTime(t *testing.T) {
	p := samplePayment()
	ev := PaymentEvent(ActionPaymentDecided, "admin", "admin", p)
	if !ev.At.Equal(*p.DecidedAt) {
		t.Errorf("At = %v, want decision time", ev.At)
	}
	if ev.Comment != "receipt ok" || ev.PaymentID != 42 {
		t.Errorf("event = %+v", ev)
	}
}

func TestLogRecorder(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := NewLogRecorder(zap.New(core))

	r.Record(context.Background(), PaymentEvent(ActionPaymentSubmitted, "ABC123", "student", samplePayment()))

	entries := logs.FilterMessage(ActionPaymentSubmitted).All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["component"] != "audit" || fields["matricule"] != "ABC123" || fields["payment_id"] != int64(42) {
		t.Errorf("fields = %v", fields)
	}
}

func TestStreamRecorderPublishesKeyedJSON(t *testing.T) {
	var gotKey, gotTopic string
	var got Event
	prod := &mockProducer{ProduceFunc: func(_ context.Context, key, topic string, value []byte) error {
		gotKey, gotTopic = key, topic
		return json.Unmarshal(value, &got)
	}}

	r := NewStreamRecorder(prod, "tuition_payment_audit", zap.NewNop())
	r.Record(context.Background(), PaymentEvent(ActionPaymentDecided, "admin", "admin", samplePayment()))

	if gotKey != "42" || gotTopic != "tuition_payment_audit" {
		t.Errorf("key=%q topic=%q", gotKey, gotTopic)
	}
	if got.Action != ActionPaymentDecided || got.Status != domain.StatusValidated {
		t.Errorf("event = %+v", got)
	}
}

func TestStreamRecorderSwallowsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	prod := &mockProducer{ProduceFunc: func(context.Context, string, string, []byte) error {
		return errors.New("broker down")
	}}

	NewStreamRecorder(prod, "t", zap.New(core)).Record(context.Background(), Event{Action: ActionStudentEnrolled, Matricule: "XYZ9"})

	if logs.Len() != 1 {
		t.Fatalf("expected one warning, got %d", logs.Len())
	}
}

func TestMultiFansOut(t *testing.T) {
	calls := 0
	prod := &mockProducer{ProduceFunc: func(context.Context, string, string, []byte) error {
		calls++
		return nil
	}}
	rec := NewStreamRecorder(prod, "t", zap.NewNop())
	Multi{rec, Nop{}, rec}.Record(context.Background(), Event{Action: ActionStudentUpdated})
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
