package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"care-session-service/internal/domain"
	"care-session-service/internal/repository"
	"care-session-service/pkg/broker"
)

// Session lifecycle event names, published under the configured topic prefix.
const (
	EventSessionCreated   = "care_session.created"
	EventSessionCompleted = "care_session.completed"
)

// Publisher emits care session lifecycle events to the broker.
type Publisher struct {
	client *broker.Client
	prefix string
	logger *zap.Logger
}

func NewPublisher(client *broker.Client, prefix string, logger *zap.Logger) *Publisher {
	return &Publisher{client: client, prefix: prefix, logger: logger}
}

func (p *Publisher) publish(event string, schema repository.Schema, s *domain.CareSession) error {
	body := map[string]any{
		"event": event,
		"data": map[string]any{
			"id":            s.ID,
			"session_code":  s.SessionCode,
			"patient_id":    s.PatientID,
			"caregiver_id":  s.CaregiverID,
			"check_in_time": s.CheckInTime.UTC().Format(time.RFC3339Nano),
			"status":        string(s.Status),
			"schema_name":   string(schema),
			"updated_at":    s.UpdatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
	if s.CheckOutTime != nil {
		body["data"].(map[string]any)["check_out_time"] = s.CheckOutTime.UTC().Format(time.RFC3339Nano)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event, err)
	}

	topic := p.prefix + "." + event
	if err := p.client.Publish(topic, 1, false, payload); err != nil {
		return err
	}
	p.logger.Debug("event published",
		zap.String("topic", topic),
		zap.String("session_id", s.ID))
	return nil
}

func (p *Publisher) SessionCreated(schema repository.Schema, s *domain.CareSession) error {
	return p.publish(EventSessionCreated, schema, s)
}

func (p *Publisher) SessionCompleted(schema repository.Schema, s *domain.CareSession) error {
	return p.publish(EventSessionCompleted, schema, s)
}
