package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer publishes a keyed message to a topic.
type Producer interface {
	Produce(ctx context.Context, key, topic string, value []byte) error
	Close() error
}

type kafkaProducer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaProducer returns a synchronous producer. Each write waits for all
// in-sync replicas.
func NewKafkaProducer(brokers []string, topic string, logger *zap.Logger) Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 5 * time.Second,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		Logger:       kafka.LoggerFunc(func(msg string, args ...interface{}) { logger.Debug(fmt.Sprintf(msg, args...)) }),
		ErrorLogger:  kafka.LoggerFunc(func(msg string, args ...interface{}) { logger.Error(fmt.Sprintf(msg, args...)) }),
	}
	return &kafkaProducer{writer: writer, logger: logger}
}

func (p *kafkaProducer) Produce(ctx context.Context, key, topic string, value []byte) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
	}
	// A writer with a default topic rejects messages that set their own.
	if topic != p.writer.Topic {
		msg.Topic = topic
	}

	produceCtx, cancel := context.WithTimeout(ctx, p.writer.WriteTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(produceCtx, msg); err != nil {
		return fmt.Errorf("failed to produce message to Kafka: %w", err)
	}
	return nil
}

func (p *kafkaProducer) Close() error {
	if p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	p.logger.Info("Kafka producer closed")
	return nil
}

type streamRecorder struct {
	producer Producer
	topic    string
	logger   *zap.Logger
}

// NewStreamRecorder publishes audit entries as JSON, keyed by payment id so
// every entry of one payment lands on the same partition.
func NewStreamRecorder(producer Producer, topic string, logger *zap.Logger) Recorder {
	return &streamRecorder{
		producer: producer,
		topic:    topic,
		logger:   logger.With(zap.String("component", "audit_stream")),
	}
}

func (r *streamRecorder) Record(ctx context.Context, ev Event) {
	value, err := json.Marshal(ev)
	if err != nil {
		r.logger.Error("Failed to encode audit event", zap.String("action", ev.Action), zap.Error(err))
		return
	}
	key := ev.Matricule
	if ev.PaymentID != 0 {
		key = strconv.FormatInt(ev.PaymentID, 10)
	}
	if err := r.producer.Produce(ctx, key, r.topic, value); err != nil {
		r.logger.Warn("Audit event not published",
			zap.String("action", ev.Action),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// EnsureTopic creates the audit topic through the cluster controller when it
// does not exist yet.
func EnsureTopic(ctx context.Context, brokers []string, topic string, logger *zap.Logger) error {
	if len(brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial kafka broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to get kafka controller: %w", err)
	}
	controllerConn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("failed to dial kafka controller: %w", err)
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic, err)
	}
	logger.Info("Audit topic ready", zap.String("topic", topic))
	return nil
}
