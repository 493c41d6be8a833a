package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/adezy/marketplace-backend/pkg/db/models"
	"github.com/adezy/marketplace-backend/pkg/enums"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	balances := `
CREATE TABLE IF NOT EXISTS balances (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  amount TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	entries := `
CREATE TABLE IF NOT EXISTS ledger_entries (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  amount TEXT NOT NULL,
  balance_after TEXT NOT NULL,
  description TEXT NOT NULL,
  order_id TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(balances).Error)
	require.NoError(t, db.Exec(entries).Error)
	return db
}

func TestRepository_BalanceLifecycle(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	_, err := repo.FindBalanceByUserID(ctx, userID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	balance := &models.Balance{
		UserID: userID,
		Amount: decimal.RequireFromString("5000.00"),
	}
	require.NoError(t, repo.CreateBalance(ctx, balance))
	require.NotEqual(t, uuid.Nil, balance.ID)

	loaded, err := repo.FindBalanceByUserID(ctx, userID)
	require.NoError(t, err)
	assert.True(t, loaded.Amount.Equal(decimal.RequireFromString("5000.00")))

	loaded.Amount = decimal.RequireFromString("4700.00")
	require.NoError(t, repo.SaveBalance(ctx, loaded))

	reloaded, err := repo.FindBalanceByUserID(ctx, userID)
	require.NoError(t, err)
	assert.True(t, reloaded.Amount.Equal(decimal.RequireFromString("4700.00")))
}

func TestRepository_CreateBalanceDuplicateUser(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	require.NoError(t, repo.CreateBalance(ctx, &models.Balance{
		UserID: userID,
		Amount: decimal.Zero,
	}))
	err := repo.CreateBalance(ctx, &models.Balance{
		UserID: userID,
		Amount: decimal.Zero,
	})
	require.Error(t, err)
}

func TestRepository_ListEntriesByUserID(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	orderID := uuid.New()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		entry := &models.LedgerEntry{
			ID:           uuid.New(),
			UserID:       userID,
			Kind:         enums.LedgerEntryKindCredit,
			Amount:       decimal.RequireFromString("10.00"),
			BalanceAfter: decimal.RequireFromString("10.00").Mul(decimal.NewFromInt(int64(i + 1))),
			Description:  "top up",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		if i == 0 {
			entry.OrderID = &orderID
		}
		require.NoError(t, repo.CreateEntry(ctx, entry))
	}

	entries, err := repo.ListEntriesByUserID(ctx, userID, 10, nil)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	// Newest first.
	assert.True(t, entries[0].CreatedAt.After(entries[2].CreatedAt))

	limited, err := repo.ListEntriesByUserID(ctx, userID, 2, nil)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	byOrder, err := repo.ListEntriesByOrderID(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, byOrder, 1)
	require.NotNil(t, byOrder[0].OrderID)
	assert.Equal(t, orderID, *byOrder[0].OrderID)
}

func TestRepository_WithTxRollback(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	tx := db.Begin()
	require.NoError(t, tx.Error)
	require.NoError(t, repo.WithTx(tx).CreateBalance(ctx, &models.Balance{
		UserID: userID,
		Amount: decimal.Zero,
	}))
	require.NoError(t, tx.Rollback().Error)

	_, err := repo.FindBalanceByUserID(ctx, userID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
