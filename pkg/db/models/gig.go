package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adezy/marketplace-backend/pkg/enums"
)

// Gig is a seller's listed service. The engine reads gigs when creating orders
// but never mutates them; listing management belongs to the catalog layer.
type Gig struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID     uuid.UUID       `gorm:"column:seller_id;type:uuid;not null;index:ix_gigs_seller"`
	Title        string          `gorm:"column:title;type:text;not null"`
	Description  string          `gorm:"column:description;type:text"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	DeliveryDays int             `gorm:"column:delivery_days;not null;default:0"`
	Status       enums.GigStatus `gorm:"column:status;type:gig_status_enum;not null;default:'active'"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
