package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adezy/marketplace-backend/pkg/enums"
)

// CashoutRequest is a seller-side ask to withdraw earnings. Availability is not
// checked at request time; approval re-validates against committed state.
type CashoutRequest struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index:ix_cashout_requests_user"`
	Amount         decimal.Decimal     `gorm:"column:amount;type:numeric(10,2);not null"`
	PaymentMethod  string              `gorm:"column:payment_method;type:text;not null"`
	PaymentDetails string              `gorm:"column:payment_details;type:text;not null"`
	Status         enums.RequestStatus `gorm:"column:status;type:request_status_enum;not null;default:'pending'"`
	Note           string              `gorm:"column:note;type:text"`
	AdminNote      *string             `gorm:"column:admin_note;type:text"`
	ProcessedBy    *uuid.UUID          `gorm:"column:processed_by;type:uuid"`
	ProcessedAt    *time.Time          `gorm:"column:processed_at"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
