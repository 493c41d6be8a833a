package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adezy/marketplace-backend/pkg/enums"
)

// Order is the central workflow entity. Price is snapshotted from the gig at
// creation time, so later gig price changes never affect existing orders.
// Status moves only through the transition table; orders are never deleted.
type Order struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GigID        uuid.UUID         `gorm:"column:gig_id;type:uuid;not null;index:ix_orders_gig"`
	BuyerID      uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index:ix_orders_buyer"`
	SellerID     uuid.UUID         `gorm:"column:seller_id;type:uuid;not null;index:ix_orders_seller"`
	Price        decimal.Decimal   `gorm:"column:price;type:numeric(10,2);not null"`
	Status       enums.OrderStatus `gorm:"column:status;type:order_status_enum;not null;default:'pending'"`
	Requirements string            `gorm:"column:requirements;type:text"`
	DeliveryNote *string           `gorm:"column:delivery_note;type:text"`
	CompletedAt  *time.Time        `gorm:"column:completed_at"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
