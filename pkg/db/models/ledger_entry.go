package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adezy/marketplace-backend/pkg/enums"
)

// LedgerEntry records an immutable balance-affecting event. Entries are append
// only; replaying a user's entries from the starting balance must always land on
// the current Balance.Amount. Earning entries written with a negative amount are
// cash-out annotations and leave the balance untouched.
type LedgerEntry struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index:ix_ledger_entries_user"`
	Kind         enums.LedgerEntryKind `gorm:"column:kind;type:ledger_entry_kind_enum;not null"`
	Amount       decimal.Decimal       `gorm:"column:amount;type:numeric(10,2);not null"`
	BalanceAfter decimal.Decimal       `gorm:"column:balance_after;type:numeric(10,2);not null"`
	Description  string                `gorm:"column:description;type:text;not null"`
	OrderID      *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
}
