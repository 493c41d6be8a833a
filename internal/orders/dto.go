package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adezy/marketplace-backend/pkg/db/models"
	"github.com/adezy/marketplace-backend/pkg/enums"
)

// GigSnapshot is the validated gig data handed in by the catalog layer. The
// engine reads it once at creation time; the price is copied onto the order.
type GigSnapshot struct {
	ID       uuid.UUID       `json:"id" validate:"required"`
	SellerID uuid.UUID       `json:"seller_id" validate:"required"`
	Price    decimal.Decimal `json:"price" validate:"required"`
	Status   enums.GigStatus `json:"status" validate:"required"`
}

// CreateOrderInput captures a purchase request.
type CreateOrderInput struct {
	BuyerID      uuid.UUID   `json:"buyer_id" validate:"required"`
	Gig          GigSnapshot `json:"gig"`
	Requirements string      `json:"requirements"`
}

// TransitionInput captures a status-change request against an existing order.
type TransitionInput struct {
	OrderID      uuid.UUID         `json:"order_id" validate:"required"`
	ActorID      uuid.UUID         `json:"actor_id" validate:"required"`
	Target       enums.OrderStatus `json:"target" validate:"required"`
	DeliveryNote *string           `json:"delivery_note,omitempty"`
}

// OrderFilters describe the inputs supported by the order lists.
type OrderFilters struct {
	Status *enums.OrderStatus
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
