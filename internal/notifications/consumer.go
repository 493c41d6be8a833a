package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/adezy/marketplace-backend/pkg/db/models"
	"github.com/adezy/marketplace-backend/pkg/enums"
	"github.com/adezy/marketplace-backend/pkg/logger"
	"github.com/adezy/marketplace-backend/pkg/metrics"
	"github.com/adezy/marketplace-backend/pkg/outbox"
	"github.com/adezy/marketplace-backend/pkg/outbox/idempotency"
	"github.com/adezy/marketplace-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

const marketplaceNotificationConsumer = "marketplace-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches domain events and turns order and payout decisions into
// in-app notifications for the affected user.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
	metrics      *metrics.ConsumerMetrics
}

// NewConsumer builds a marketplace notification consumer. Metrics may be nil.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger, m *metrics.ConsumerMetrics) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
		metrics:      m,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		c.metrics.IncProcessed(marketplaceNotificationConsumer, msg.Attributes["event_type"], result.outcome())
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack     bool
	nack    bool
	skipped bool
}

func (r processResult) outcome() string {
	switch {
	case r.nack:
		return "nack"
	case r.skipped:
		return "skip"
	default:
		return "ack"
	}
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	handler, ok := c.handlerFor(enums.OutboxEventType(eventType))
	if !ok {
		c.logg.Info(logCtx, "skipping event without notification handler")
		return processResult{ack: true, skipped: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, marketplaceNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := handler(ctx, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, marketplaceNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

type eventHandler func(ctx context.Context, data json.RawMessage, logCtx context.Context) error

func (c *Consumer) handlerFor(eventType enums.OutboxEventType) (eventHandler, bool) {
	switch eventType {
	case enums.EventOrderCreated:
		return c.handleOrderCreated, true
	case enums.EventOrderStatusChanged:
		return c.handleOrderStatusChanged, true
	case enums.EventBalanceRequestDecided:
		return c.handleBalanceRequestDecided, true
	case enums.EventCashoutRequestDecided:
		return c.handleCashoutRequestDecided, true
	default:
		return nil, false
	}
}

func (c *Consumer) handleOrderCreated(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.OrderCreatedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse order created payload: %w", err)
	}
	if payload.SellerID == uuid.Nil || payload.OrderID == uuid.Nil {
		return fmt.Errorf("order created payload missing ids")
	}

	notification := &models.Notification{
		UserID:  payload.SellerID,
		Type:    enums.NotificationTypeOrderPlaced,
		Title:   "New order received",
		Message: fmt.Sprintf("You received a new order for %s.", payload.Price.StringFixed(2)),
		OrderID: &payload.OrderID,
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "seller notified of new order")
	return nil
}

// Status transitions notify the counter-party of the actor: the buyer performs
// completion, so the seller hears about it; the seller drives every other
// transition, so the buyer hears about those.
func (c *Consumer) handleOrderStatusChanged(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.OrderStatusChangedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse order status payload: %w", err)
	}
	if payload.OrderID == uuid.Nil {
		return fmt.Errorf("order status payload missing order id")
	}

	var (
		recipient        uuid.UUID
		notificationType enums.NotificationType
		title            string
		message          string
	)
	switch payload.Status {
	case enums.OrderStatusInProgress:
		recipient = payload.BuyerID
		notificationType = enums.NotificationTypeOrderAccepted
		title = "Order accepted"
		message = "The seller has started working on your order."
	case enums.OrderStatusDelivered:
		recipient = payload.BuyerID
		notificationType = enums.NotificationTypeOrderDelivered
		title = "Order delivered"
		message = "Your order has been delivered. Review it to complete the purchase."
	case enums.OrderStatusCompleted:
		recipient = payload.SellerID
		notificationType = enums.NotificationTypeOrderCompleted
		title = "Order completed"
		message = "The buyer has accepted the delivery and completed the order."
	case enums.OrderStatusCancelled:
		recipient = payload.BuyerID
		notificationType = enums.NotificationTypeOrderCancelled
		title = "Order cancelled"
		message = "The seller has cancelled your order."
	default:
		c.logg.Info(logCtx, "status not handled")
		return nil
	}
	if recipient == uuid.Nil {
		return fmt.Errorf("order status payload missing recipient")
	}

	notification := &models.Notification{
		UserID:  recipient,
		Type:    notificationType,
		Title:   title,
		Message: message,
		OrderID: &payload.OrderID,
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "counter-party notified of order transition")
	return nil
}

func (c *Consumer) handleBalanceRequestDecided(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.BalanceRequestDecidedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse balance request payload: %w", err)
	}
	if payload.UserID == uuid.Nil {
		return fmt.Errorf("balance request payload missing user id")
	}

	notification := &models.Notification{
		UserID: payload.UserID,
	}
	switch payload.Status {
	case enums.RequestStatusApproved:
		notification.Type = enums.NotificationTypeBalanceApproved
		notification.Title = "Top-up approved"
		notification.Message = fmt.Sprintf("Your balance top-up of %s has been approved.", payload.Amount.StringFixed(2))
	case enums.RequestStatusRejected:
		notification.Type = enums.NotificationTypeBalanceRejected
		notification.Title = "Top-up rejected"
		notification.Message = fmt.Sprintf("Your balance top-up of %s has been rejected.", payload.Amount.StringFixed(2))
	default:
		c.logg.Info(logCtx, "status not handled")
		return nil
	}

	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "user notified of top-up decision")
	return nil
}

func (c *Consumer) handleCashoutRequestDecided(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.CashoutRequestDecidedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse cashout request payload: %w", err)
	}
	if payload.UserID == uuid.Nil {
		return fmt.Errorf("cashout request payload missing user id")
	}

	notification := &models.Notification{
		UserID: payload.UserID,
	}
	switch payload.Status {
	case enums.RequestStatusApproved:
		notification.Type = enums.NotificationTypeCashoutApproved
		notification.Title = "Cash out approved"
		notification.Message = fmt.Sprintf("Your cash out of %s has been approved.", payload.Amount.StringFixed(2))
	case enums.RequestStatusRejected:
		notification.Type = enums.NotificationTypeCashoutRejected
		notification.Title = "Cash out rejected"
		notification.Message = fmt.Sprintf("Your cash out of %s has been rejected.", payload.Amount.StringFixed(2))
	default:
		c.logg.Info(logCtx, "status not handled")
		return nil
	}

	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "user notified of cash out decision")
	return nil
}
