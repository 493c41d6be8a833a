package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adezy/marketplace-backend/internal/ledger"
	"github.com/adezy/marketplace-backend/pkg/db/models"
	"github.com/adezy/marketplace-backend/pkg/enums"
	pkgerrors "github.com/adezy/marketplace-backend/pkg/errors"
	"github.com/adezy/marketplace-backend/pkg/outbox"
	"github.com/adezy/marketplace-backend/pkg/outbox/payloads"
	"github.com/adezy/marketplace-backend/pkg/pagination"
	"github.com/adezy/marketplace-backend/pkg/validate"
)

type txRunner interface {
	WithSerializableTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ledgerRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, input ledger.RecordEntryInput) (*models.LedgerEntry, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service executes order creation and lifecycle transitions.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	GetByID(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error)
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
	ListSellerOrders(ctx context.Context, sellerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	ledger ledgerRecorder
	outbox outboxPublisher
}

// NewService builds the orders service.
func NewService(repo Repository, tx txRunner, ledgerSvc ledgerRecorder, publisher outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger recorder required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, ledger: ledgerSvc, outbox: publisher}, nil
}

// Create places an order: it debits the buyer, credits the seller's earnings
// and inserts the pending order as one atomic unit. Preconditions are checked
// in a fixed sequence; the first failure wins and nothing is written.
func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if !input.Gig.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid gig status %q", input.Gig.Status))
	}
	if !input.Gig.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gig price must be positive")
	}
	if input.Gig.Status != enums.GigStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeGigUnavailable, "gig is not active")
	}
	if input.BuyerID == input.Gig.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeSelfPurchase, "cannot order your own gig")
	}

	var created *models.Order
	err := s.tx.WithSerializableTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order := &models.Order{
			GigID:        input.Gig.ID,
			BuyerID:      input.BuyerID,
			SellerID:     input.Gig.SellerID,
			Price:        input.Gig.Price,
			Status:       enums.OrderStatusPending,
			Requirements: input.Requirements,
		}
		var err error
		created, err = repo.Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		if _, err := s.ledger.Record(ctx, tx, ledger.RecordEntryInput{
			UserID:      input.BuyerID,
			Kind:        enums.LedgerEntryKindDebit,
			Amount:      input.Gig.Price,
			Description: fmt.Sprintf("purchase of gig %s", input.Gig.ID),
			OrderID:     &created.ID,
		}); err != nil {
			return err
		}
		if _, err := s.ledger.Record(ctx, tx, ledger.RecordEntryInput{
			UserID:      input.Gig.SellerID,
			Kind:        enums.LedgerEntryKindEarning,
			Amount:      input.Gig.Price,
			Description: fmt.Sprintf("sale of gig %s", input.Gig.ID),
			OrderID:     &created.ID,
		}); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   created.ID,
			Data: payloads.OrderCreatedEvent{
				OrderID:  created.ID,
				GigID:    created.GigID,
				BuyerID:  created.BuyerID,
				SellerID: created.SellerID,
				Price:    created.Price,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Transition moves an order to the target status after role and legality
// checks. Completion stamps completed_at; no money moves on any transition.
func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", input.Target))
	}

	var updated *models.Order
	err := s.tx.WithSerializableTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}
		if err := authorizeTransition(order, input.ActorID, input.Target); err != nil {
			return err
		}

		previous := order.Status
		updates := map[string]any{"status": input.Target}
		if input.DeliveryNote != nil && input.Target == enums.OrderStatusDelivered {
			updates["delivery_note"] = *input.DeliveryNote
			order.DeliveryNote = input.DeliveryNote
		}
		if input.Target == enums.OrderStatusCompleted {
			now := time.Now().UTC()
			updates["completed_at"] = now
			order.CompletedAt = &now
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		order.Status = input.Target
		updated = order

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:        order.ID,
				BuyerID:        order.BuyerID,
				SellerID:       order.SellerID,
				ActorID:        input.ActorID,
				PreviousStatus: previous,
				Status:         order.Status,
				CompletedAt:    order.CompletedAt,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetByID returns the order when the actor is its buyer or seller.
func (s *service) GetByID(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if _, ok := roleOf(order, actorID); !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "actor is not a party to this order")
	}
	return order, nil
}

func (s *service) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	return s.listOrders(ctx, buyerID, params, filters, s.repo.ListByBuyer)
}

func (s *service) ListSellerOrders(ctx context.Context, sellerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	return s.listOrders(ctx, sellerID, params, filters, s.repo.ListBySeller)
}

type listFn func(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor, filters OrderFilters) ([]models.Order, error)

func (s *service) listOrders(ctx context.Context, userID uuid.UUID, params pagination.Params, filters OrderFilters, list listFn) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", *filters.Status))
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := list(ctx, userID, limit+1, cursor, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	result := &OrderList{Orders: rows}
	if len(rows) > limit {
		result.Orders = rows[:limit]
		last := result.Orders[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return result, nil
}
