package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balance holds a user's spendable virtual credits. Exactly one row per user,
// created lazily with the configured starting amount. Amount never goes below
// zero; every mutation goes through the ledger so the row is always consistent
// with the user's entry history.
type Balance struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_balances_user"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(10,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
