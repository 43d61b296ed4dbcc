package messaging

import (
	"context"
	"time"

	"go.uber.org/zap"

	"care-session-service/internal/domain"
	"care-session-service/internal/repository"
	"care-session-service/pkg/broker"
)

// Upstream event names the cache sync consumer applies.
const (
	EventPatientCreated       = "patient.created"
	EventPatientUpdated       = "patient.updated"
	EventPatientDeleted       = "patient.deleted"
	EventPatientStatusChanged = "patient.status_changed"
	EventUserCreated          = "user.created"
	EventUserUpdated          = "user.updated"
	EventUserDeleted          = "user.deleted"
	EventUserStatusChanged    = "user.status_changed"
	EventUserRoleChanged      = "user.role_changed"
)

// CacheSyncConsumer applies upstream patient/user events into the per-tenant
// read caches. Apply failures return an error so the message stays
// unacknowledged and the broker redelivers it; malformed events are logged and
// dropped. All writes are timestamp-guarded, so redelivery and out-of-order
// arrival are safe.
type CacheSyncConsumer struct {
	patients repository.PatientsRepository
	users    repository.UsersRepository
	client   *broker.Client
	prefix   string
	logger   *zap.Logger
	now      func() time.Time
}

func NewCacheSyncConsumer(
	patients repository.PatientsRepository,
	users repository.UsersRepository,
	client *broker.Client,
	prefix string,
	logger *zap.Logger,
) *CacheSyncConsumer {
	return &CacheSyncConsumer{
		patients: patients,
		users:    users,
		client:   client,
		prefix:   prefix,
		logger:   logger,
		now:      time.Now,
	}
}

// Topics lists the broker topics the consumer subscribes to.
func (c *CacheSyncConsumer) Topics() []string {
	names := []string{
		EventPatientCreated,
		EventPatientUpdated,
		EventPatientDeleted,
		EventPatientStatusChanged,
		EventUserCreated,
		EventUserUpdated,
		EventUserDeleted,
		EventUserStatusChanged,
		EventUserRoleChanged,
	}
	topics := make([]string, 0, len(names))
	for _, name := range names {
		topics = append(topics, c.prefix+"."+name)
	}
	return topics
}

// Start subscribes to all cache sync topics at QoS 1.
func (c *CacheSyncConsumer) Start() error {
	for _, topic := range c.Topics() {
		if err := c.client.Subscribe(topic, 1, c.HandleMessage); err != nil {
			return err
		}
		c.logger.Info("subscribed", zap.String("topic", topic))
	}
	return nil
}

// Stop removes the subscriptions.
func (c *CacheSyncConsumer) Stop() error {
	return c.client.Unsubscribe(c.Topics()...)
}

// HandleMessage processes a single delivery. A nil return acknowledges the
// message, including dropped malformed events.
func (c *CacheSyncConsumer) HandleMessage(topic string, payload []byte) error {
	event, err := DecodeEvent(payload)
	if err != nil {
		c.logger.Warn("dropping malformed event",
			zap.String("topic", topic), zap.Error(err))
		return nil
	}

	schema, err := event.Schema()
	if err != nil {
		c.logger.Warn("dropping event without tenant",
			zap.String("event", event.Name), zap.Error(err))
		return nil
	}

	id := event.String("id", "entity_id", "entityId", "patient_id", "user_id")
	if id == "" {
		c.logger.Warn("dropping event without entity id",
			zap.String("event", event.Name), zap.String("schema", string(schema)))
		return nil
	}

	ctx := context.Background()
	at := event.UpdatedAt(c.now())

	switch event.Name {
	case EventPatientCreated, EventPatientUpdated:
		return c.upsertPatient(ctx, schema, event, id, at)
	case EventPatientDeleted:
		return c.patients.MarkPatientDeleted(ctx, schema, id, at)
	case EventPatientStatusChanged:
		return c.patients.SetPatientActive(ctx, schema, id, event.Bool(true, "active", "is_active", "isActive"), at)
	case EventUserCreated, EventUserUpdated:
		return c.upsertUser(ctx, schema, event, id, at)
	case EventUserDeleted:
		return c.users.MarkUserDeleted(ctx, schema, id, at)
	case EventUserStatusChanged:
		return c.users.SetUserActive(ctx, schema, id, event.Bool(true, "active", "is_active", "isActive"), at)
	case EventUserRoleChanged:
		role := event.String("role", "new_role", "newRole")
		if role == "" {
			c.logger.Warn("dropping role change without role",
				zap.String("schema", string(schema)), zap.String("id", id))
			return nil
		}
		return c.users.SetUserRole(ctx, schema, id, role, at)
	default:
		c.logger.Warn("dropping unknown event",
			zap.String("event", event.Name), zap.String("topic", topic))
		return nil
	}
}

func (c *CacheSyncConsumer) upsertPatient(ctx context.Context, schema repository.Schema, event *Event, id string, at time.Time) error {
	patient := &domain.Patient{
		ID:        id,
		FirstName: event.String("first_name", "firstName"),
		LastName:  event.String("last_name", "lastName"),
		Email:     event.String("email"),
		Active:    event.Bool(true, "active", "is_active", "isActive"),
		UpdatedAt: at,
	}
	written, err := c.patients.UpsertPatient(ctx, schema, patient)
	if err != nil {
		return err
	}
	if !written {
		c.logger.Debug("skipped stale patient event",
			zap.String("schema", string(schema)), zap.String("id", id))
	}
	return nil
}

func (c *CacheSyncConsumer) upsertUser(ctx context.Context, schema repository.Schema, event *Event, id string, at time.Time) error {
	user := &domain.User{
		ID:        id,
		FirstName: event.String("first_name", "firstName"),
		LastName:  event.String("last_name", "lastName"),
		Email:     event.String("email"),
		Role:      event.String("role"),
		Active:    event.Bool(true, "active", "is_active", "isActive"),
		UpdatedAt: at,
	}
	if user.Role != "" && user.Role != domain.RoleCaregiver {
		user.Active = false
	}
	written, err := c.users.UpsertUser(ctx, schema, user)
	if err != nil {
		return err
	}
	if !written {
		c.logger.Debug("skipped stale user event",
			zap.String("schema", string(schema)), zap.String("id", id))
	}
	return nil
}
