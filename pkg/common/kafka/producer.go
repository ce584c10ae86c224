package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glucomind-ai/assistant/pkg/common/logger"
	"github.com/glucomind-ai/assistant/pkg/common/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// AuditProducer publishes pipeline audit events. Publishing is best effort;
// the caller never blocks a user request on a broker error.
type AuditProducer struct {
	writer *kafka.Writer
}

func NewAuditProducer(brokers []string, topic string) *AuditProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		BatchSize:    16,
		BatchTimeout: 50 * time.Millisecond,
	}

	return &AuditProducer{writer: writer}
}

func (p *AuditProducer) Publish(ctx context.Context, eventType string, patientID string, data map[string]interface{}) error {
	event := models.AuditEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		PatientID: patientID,
		Data:      data,
		Timestamp: time.Now(),
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.ID),
		Value: eventBytes,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": eventType,
		}).Warn("Failed to publish audit event")
		return err
	}

	return nil
}

func (p *AuditProducer) Close() error {
	return p.writer.Close()
}
