package notifications

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/adezy/marketplace-backend/pkg/db/models"
	"github.com/adezy/marketplace-backend/pkg/enums"
	"github.com/adezy/marketplace-backend/pkg/logger"
	"github.com/adezy/marketplace-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

type capturingRepo struct {
	created []models.Notification
	err     error
}

func (r *capturingRepo) Create(ctx context.Context, notification *models.Notification) error {
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, *notification)
	return nil
}

func newTestConsumer(repo repository) *Consumer {
	return &Consumer{
		repo: repo,
		logg: logger.New(logger.Options{ServiceName: "notifications-test", Output: io.Discard}),
	}
}

func mustMarshal(t *testing.T, payload any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func TestConsumer_OrderCreatedNotifiesSeller(t *testing.T) {
	repo := &capturingRepo{}
	consumer := newTestConsumer(repo)

	orderID := uuid.New()
	sellerID := uuid.New()
	data := mustMarshal(t, payloads.OrderCreatedEvent{
		OrderID:  orderID,
		GigID:    uuid.New(),
		BuyerID:  uuid.New(),
		SellerID: sellerID,
	})

	if err := consumer.handleOrderCreated(context.Background(), data, context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(repo.created))
	}
	got := repo.created[0]
	if got.UserID != sellerID {
		t.Fatalf("expected seller %s as recipient, got %s", sellerID, got.UserID)
	}
	if got.Type != enums.NotificationTypeOrderPlaced {
		t.Fatalf("unexpected notification type %s", got.Type)
	}
	if got.OrderID == nil || *got.OrderID != orderID {
		t.Fatal("expected order id on notification")
	}
}

func TestConsumer_StatusChangeRecipients(t *testing.T) {
	buyerID := uuid.New()
	sellerID := uuid.New()

	cases := []struct {
		status    enums.OrderStatus
		recipient uuid.UUID
		wantType  enums.NotificationType
	}{
		{enums.OrderStatusInProgress, buyerID, enums.NotificationTypeOrderAccepted},
		{enums.OrderStatusDelivered, buyerID, enums.NotificationTypeOrderDelivered},
		{enums.OrderStatusCompleted, sellerID, enums.NotificationTypeOrderCompleted},
		{enums.OrderStatusCancelled, buyerID, enums.NotificationTypeOrderCancelled},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			repo := &capturingRepo{}
			consumer := newTestConsumer(repo)

			data := mustMarshal(t, payloads.OrderStatusChangedEvent{
				OrderID:  uuid.New(),
				BuyerID:  buyerID,
				SellerID: sellerID,
				Status:   tc.status,
			})
			if err := consumer.handleOrderStatusChanged(context.Background(), data, context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(repo.created) != 1 {
				t.Fatalf("expected 1 notification, got %d", len(repo.created))
			}
			if repo.created[0].UserID != tc.recipient {
				t.Fatalf("expected recipient %s, got %s", tc.recipient, repo.created[0].UserID)
			}
			if repo.created[0].Type != tc.wantType {
				t.Fatalf("expected type %s, got %s", tc.wantType, repo.created[0].Type)
			}
		})
	}
}

func TestConsumer_StatusChangeUnknownStatusSkipped(t *testing.T) {
	repo := &capturingRepo{}
	consumer := newTestConsumer(repo)

	data := mustMarshal(t, payloads.OrderStatusChangedEvent{
		OrderID:  uuid.New(),
		BuyerID:  uuid.New(),
		SellerID: uuid.New(),
		Status:   enums.OrderStatusPending,
	})
	if err := consumer.handleOrderStatusChanged(context.Background(), data, context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no notifications, got %d", len(repo.created))
	}
}

func TestConsumer_RequestDecisions(t *testing.T) {
	userID := uuid.New()

	t.Run("balance approved", func(t *testing.T) {
		repo := &capturingRepo{}
		consumer := newTestConsumer(repo)
		data := mustMarshal(t, payloads.BalanceRequestDecidedEvent{
			RequestID: uuid.New(),
			UserID:    userID,
			Status:    enums.RequestStatusApproved,
		})
		if err := consumer.handleBalanceRequestDecided(context.Background(), data, context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(repo.created) != 1 || repo.created[0].Type != enums.NotificationTypeBalanceApproved {
			t.Fatalf("expected balance approved notification, got %+v", repo.created)
		}
		if repo.created[0].UserID != userID {
			t.Fatal("expected requester as recipient")
		}
	})

	t.Run("cashout rejected", func(t *testing.T) {
		repo := &capturingRepo{}
		consumer := newTestConsumer(repo)
		data := mustMarshal(t, payloads.CashoutRequestDecidedEvent{
			RequestID: uuid.New(),
			UserID:    userID,
			Status:    enums.RequestStatusRejected,
		})
		if err := consumer.handleCashoutRequestDecided(context.Background(), data, context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(repo.created) != 1 || repo.created[0].Type != enums.NotificationTypeCashoutRejected {
			t.Fatalf("expected cashout rejected notification, got %+v", repo.created)
		}
	})
}

func TestConsumer_HandlerRouting(t *testing.T) {
	consumer := newTestConsumer(&capturingRepo{})

	for _, eventType := range []enums.OutboxEventType{
		enums.EventOrderCreated,
		enums.EventOrderStatusChanged,
		enums.EventBalanceRequestDecided,
		enums.EventCashoutRequestDecided,
	} {
		if _, ok := consumer.handlerFor(eventType); !ok {
			t.Fatalf("expected handler for %s", eventType)
		}
	}
	if _, ok := consumer.handlerFor(enums.EventBalanceUpdated); ok {
		t.Fatal("balance updates should not produce notifications")
	}
}
