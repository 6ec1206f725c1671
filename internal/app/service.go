/**
 * @description
 * This file contains the core service type for the allocation service. The `Service`
 * struct orchestrates every lifecycle operation, coordinating between the database
 * repository, the SMS gateway client, the Redis rate limiter and the message broker.
 *
 * Key features:
 * - Holds the injected clock used for all expiry decisions, so tests can pin time.
 * - Publishes lifecycle and audit events to RabbitMQ for asynchronous processing.
 * - Validation failures surface as typed domain errors; handlers map them to HTTP.
 *
 * @dependencies
 * - context, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq, pkg/smsclient: For external service communication.
 */

package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/store"
	"github.com/belal1alaidaroos/TestProject-sub001/pkg/rabbitmq"
	"github.com/belal1alaidaroos/TestProject-sub001/pkg/smsclient"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
)

// RateLimiter is the throttle applied to OTP dispatch per phone and per contract.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Policy carries the tunable lifecycle knobs, loaded from configuration.
type Policy struct {
	ReservationTTL    time.Duration
	ExtensionMin      time.Duration
	ExtensionMax      time.Duration
	PaymentSessionTTL time.Duration
	OTPMaxAttempts    int
	OTPSendLimit      int
	OTPSendWindow     time.Duration
	InvoiceDueIn      time.Duration
}

// Service provides the core business logic for worker allocation.
type Service struct {
	repo          store.Repository
	eventProducer rabbitmq.Publisher
	smsSender     smsclient.Sender
	rateLimiter   RateLimiter
	policy        Policy
	now           func() time.Time
}

// NewService creates a new allocation service instance.
func NewService(repo store.Repository, producer rabbitmq.Publisher, sms smsclient.Sender, limiter RateLimiter, policy Policy) *Service {
	return &Service{
		repo:          repo,
		eventProducer: producer,
		smsSender:     sms,
		rateLimiter:   limiter,
		policy:        policy,
		now:           time.Now,
	}
}

// publishEvent sends a lifecycle event to the allocation exchange. Publishing is
// best-effort: the state change already committed, so a broker hiccup is only logged.
func (s *Service) publishEvent(ctx context.Context, routingKey string, body interface{}) {
	if s.eventProducer == nil {
		return
	}
	if err := s.eventProducer.Publish(ctx, rabbitmq.AllocationExchange, routingKey, body); err != nil {
		log.Printf("level=warn component=service msg=\"event publish failed\" routing_key=%s err=%v", routingKey, err)
	}
}

// publishAudit emits the audit trail record for a mutating operation.
func (s *Service) publishAudit(ctx context.Context, entity domain.EntityKind, entityID uuid.UUID, action string, actorID uuid.UUID, oldValues, newValues map[string]interface{}) {
	event := domain.AuditEvent{
		Entity:    entity,
		EntityID:  entityID,
		Action:    action,
		ActorID:   actorID,
		OldValues: oldValues,
		NewValues: newValues,
		Timestamp: s.now().UTC(),
	}
	s.publishEvent(ctx, "audit."+string(entity)+"."+action, event)
}
