// Package monitoring publishes critical-alert pings to external monitoring.
package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"medical-alert-service/internal/logging"
	"medical-alert-service/internal/models"
)

// Sink receives monitoring events.
type Sink interface {
	Publish(ctx context.Context, e models.MonitoringEvent) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes events as JSON to a Kafka topic, keyed by alert id.
type KafkaSink struct {
	writer messageWriter
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

func (s *KafkaSink) Publish(ctx context.Context, e models.MonitoringEvent) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal monitoring event: %w", err)
	}
	if err := s.writer.WriteMessages(ctx, kafka.Message{Key: []byte(e.AlertID), Value: value}); err != nil {
		return fmt.Errorf("publish monitoring event %s: %w", e.AlertID, err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// LogSink writes events to the service log. Used when no broker is configured.
type LogSink struct {
	logger *logging.Logger
}

func NewLogSink(logger *logging.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(_ context.Context, e models.MonitoringEvent) error {
	s.logger.WithFields(logrus.Fields{
		"source":         e.Source,
		"type":           e.Type,
		"priority":       e.Priority.String(),
		"patient_safety": e.PatientSafetyImpact,
		"alert_id":       e.AlertID,
	}).Warn("Monitoring ping")
	return nil
}

// Multi publishes to every sink and joins their errors.
type Multi struct {
	sinks []Sink
}

func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Publish(ctx context.Context, e models.MonitoringEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
