package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"care-session-service/internal/repository"
)

// Event is the decoded envelope of an upstream domain event. Producers are not
// consistent about field naming, so decoding tolerates both snake_case and
// camelCase and both "event" and "event_type" for the name.
type Event struct {
	Name string
	Data map[string]any
}

type envelope struct {
	Event     string          `json:"event"`
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

// DecodeEvent parses an event payload. The envelope must carry a name and a
// data object; anything else is a malformed event.
func DecodeEvent(payload []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("failed to decode event envelope: %w", err)
	}
	name := env.Event
	if name == "" {
		name = env.EventType
	}
	if name == "" {
		return nil, fmt.Errorf("event has no name")
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("event %s has no data", name)
	}
	var data map[string]any
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode event %s data: %w", name, err)
	}
	return &Event{Name: name, Data: data}, nil
}

// String returns the first present, non-empty string among keys.
func (e *Event) String(keys ...string) string {
	for _, key := range keys {
		if v, ok := e.Data[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Bool returns the first present boolean among keys, or fallback.
func (e *Event) Bool(fallback bool, keys ...string) bool {
	for _, key := range keys {
		if v, ok := e.Data[key].(bool); ok {
			return v
		}
	}
	return fallback
}

// Time parses the first present timestamp among keys. The zero time and false
// mean no usable value.
func (e *Event) Time(keys ...string) (time.Time, bool) {
	raw := e.String(keys...)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// UpdatedAt returns the event's change timestamp, falling back to now so that
// events without one still apply (and never block newer data).
func (e *Event) UpdatedAt(now time.Time) time.Time {
	if t, ok := e.Time("updated_at", "updatedAt", "timestamp"); ok {
		return t
	}
	return now
}

// Schema resolves the tenant schema the event belongs to, either named
// directly or derived from the organisation id.
func (e *Event) Schema() (repository.Schema, error) {
	if name := e.String("schema_name", "schemaName"); name != "" {
		return repository.NewSchema(name)
	}
	if orgID := e.String("organisation_id", "organization_id", "organisationId", "organizationId"); orgID != "" {
		return repository.SchemaForOrg(orgID)
	}
	return "", fmt.Errorf("event %s carries no tenant", e.Name)
}
