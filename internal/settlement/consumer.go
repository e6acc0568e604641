package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/franchisefund-backend/pkg/auth"
	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/franchisefund-backend/pkg/errors"
	"github.com/angelmondragon/franchisefund-backend/pkg/logger"
	"github.com/angelmondragon/franchisefund-backend/pkg/outbox/idempotency"
)

const (
	consumerName = "escrow-settlement"

	// EventSettlementConfirmed is the event_type attribute the settlement
	// actor stamps on confirmation messages.
	EventSettlementConfirmed = "settlement_confirmed"
)

// Action is the settlement outcome requested for an escrow record.
type Action string

const (
	ActionRelease Action = "release"
	ActionRefund  Action = "refund"
)

var settlementActor = auth.SystemActor("settlement")

type escrowSettler interface {
	Release(ctx context.Context, actor auth.Actor, id uuid.UUID, signature string) (*models.EscrowRecord, error)
	Refund(ctx context.Context, actor auth.Actor, id uuid.UUID, reason, signature string) (*models.EscrowRecord, error)
}

type processedTracker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Confirmation is the message body published by the external settlement actor.
type Confirmation struct {
	SettlementID uuid.UUID `json:"settlement_id"`
	EscrowID     uuid.UUID `json:"escrow_id"`
	Action       Action    `json:"action"`
	Signature    string    `json:"signature"`
	Reason       string    `json:"reason,omitempty"`
}

// Consumer applies settlement confirmations to escrow records.
type Consumer struct {
	escrow       escrowSettler
	subscription *pubsub.Subscriber
	idempotency  processedTracker
	logg         *logger.Logger
}

// NewConsumer builds a settlement consumer.
func NewConsumer(escrow escrowSettler, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if escrow == nil {
		return nil, fmt.Errorf("escrow service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("settlement subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		escrow:       escrow,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != EventSettlementConfirmed {
		c.logg.Info(logCtx, "skipping non-settlement message")
		return processResult{ack: true}
	}

	var confirmation Confirmation
	if err := json.Unmarshal(msg.Data, &confirmation); err != nil {
		c.logg.Error(logCtx, "failed to decode settlement confirmation", err)
		return processResult{ack: true}
	}
	if err := confirmation.validate(); err != nil {
		c.logg.Error(logCtx, "invalid settlement confirmation", err)
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"settlement_id": confirmation.SettlementID.String(),
		"escrow_id":     confirmation.EscrowID.String(),
		"action":        string(confirmation.Action),
	})

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, consumerName, confirmation.SettlementID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "settlement already processed")
		return processResult{ack: true}
	}

	if err := c.apply(ctx, confirmation); err != nil {
		if pkgerrors.Retryable(err) {
			c.logg.Error(logCtx, "settlement failed, will retry", err)
			_ = c.idempotency.Delete(ctx, consumerName, confirmation.SettlementID)
			return processResult{nack: true}
		}
		c.logg.Error(logCtx, "settlement rejected", err)
		return processResult{ack: true}
	}

	c.logg.Info(logCtx, "settlement applied")
	return processResult{ack: true}
}

func (c *Consumer) apply(ctx context.Context, confirmation Confirmation) error {
	switch confirmation.Action {
	case ActionRelease:
		_, err := c.escrow.Release(ctx, settlementActor, confirmation.EscrowID, confirmation.Signature)
		return err
	case ActionRefund:
		reason := strings.TrimSpace(confirmation.Reason)
		if reason == "" {
			reason = "refunded by settlement"
		}
		_, err := c.escrow.Refund(ctx, settlementActor, confirmation.EscrowID, reason, confirmation.Signature)
		return err
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown settlement action %q", confirmation.Action))
	}
}

func (c Confirmation) validate() error {
	if c.SettlementID == uuid.Nil {
		return fmt.Errorf("settlement_id is required")
	}
	if c.EscrowID == uuid.Nil {
		return fmt.Errorf("escrow_id is required")
	}
	if c.Action != ActionRelease && c.Action != ActionRefund {
		return fmt.Errorf("unsupported action %q", c.Action)
	}
	return nil
}
