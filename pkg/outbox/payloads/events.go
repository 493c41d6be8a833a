package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adezy/marketplace-backend/pkg/enums"
)

// OrderCreatedEvent signals a new purchase; downstream consumers notify the seller.
type OrderCreatedEvent struct {
	OrderID  uuid.UUID       `json:"order_id"`
	GigID    uuid.UUID       `json:"gig_id"`
	BuyerID  uuid.UUID       `json:"buyer_id"`
	SellerID uuid.UUID       `json:"seller_id"`
	Price    decimal.Decimal `json:"price"`
}

// OrderStatusChangedEvent is emitted on every order lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	BuyerID        uuid.UUID         `json:"buyer_id"`
	SellerID       uuid.UUID         `json:"seller_id"`
	ActorID        uuid.UUID         `json:"actor_id"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	Status         enums.OrderStatus `json:"status"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
}

// BalanceUpdatedEvent surfaces every spendable-balance mutation.
type BalanceUpdatedEvent struct {
	UserID  uuid.UUID             `json:"user_id"`
	EntryID uuid.UUID             `json:"entry_id"`
	Kind    enums.LedgerEntryKind `json:"kind"`
	Amount  decimal.Decimal       `json:"amount"`
	Balance decimal.Decimal       `json:"balance"`
	OrderID *uuid.UUID            `json:"order_id,omitempty"`
}

// BalanceRequestDecidedEvent reports an approved or rejected top-up request.
type BalanceRequestDecidedEvent struct {
	RequestID   uuid.UUID           `json:"request_id"`
	UserID      uuid.UUID           `json:"user_id"`
	Amount      decimal.Decimal     `json:"amount"`
	Status      enums.RequestStatus `json:"status"`
	ProcessedBy uuid.UUID           `json:"processed_by"`
}

// CashoutRequestDecidedEvent reports an approved or rejected cash-out request.
type CashoutRequestDecidedEvent struct {
	RequestID   uuid.UUID           `json:"request_id"`
	UserID      uuid.UUID           `json:"user_id"`
	Amount      decimal.Decimal     `json:"amount"`
	Status      enums.RequestStatus `json:"status"`
	ProcessedBy uuid.UUID           `json:"processed_by"`
}
