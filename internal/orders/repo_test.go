package orders

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

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  gig_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  price TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  requirements TEXT,
  delivery_note TEXT,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, buyerID, sellerID uuid.UUID, status enums.OrderStatus, price string, createdAt time.Time) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:        uuid.New(),
		GigID:     uuid.New(),
		BuyerID:   buyerID,
		SellerID:  sellerID,
		Price:     decimal.RequireFromString(price),
		Status:    status,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestRepository_CreateAndFind(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := &models.Order{
		GigID:        uuid.New(),
		BuyerID:      uuid.New(),
		SellerID:     uuid.New(),
		Price:        decimal.RequireFromString("300.00"),
		Status:       enums.OrderStatusPending,
		Requirements: "two revisions included",
	}
	created, err := repo.Create(ctx, order)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	loaded, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, loaded.Status)
	assert.True(t, loaded.Price.Equal(decimal.RequireFromString("300.00")))
	assert.Equal(t, "two revisions included", loaded.Requirements)

	_, err = repo.FindByID(ctx, uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_UpdateStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, uuid.New(), uuid.New(), enums.OrderStatusDelivered, "150.00", time.Now())

	completedAt := time.Now().UTC()
	require.NoError(t, repo.Update(ctx, order.ID, map[string]any{
		"status":       enums.OrderStatusCompleted,
		"completed_at": completedAt,
	}))

	loaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, loaded.Status)
	require.NotNil(t, loaded.CompletedAt)
}

func TestRepository_ListFilters(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	buyerID := uuid.New()
	sellerID := uuid.New()
	base := time.Now().Add(-time.Hour)
	seedOrder(t, db, buyerID, sellerID, enums.OrderStatusPending, "100.00", base)
	seedOrder(t, db, buyerID, sellerID, enums.OrderStatusCompleted, "200.00", base.Add(time.Minute))
	seedOrder(t, db, buyerID, uuid.New(), enums.OrderStatusCancelled, "50.00", base.Add(2*time.Minute))

	all, err := repo.ListByBuyer(ctx, buyerID, 10, nil, OrderFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	// Newest first.
	assert.True(t, all[0].CreatedAt.After(all[2].CreatedAt))

	completed := enums.OrderStatusCompleted
	filtered, err := repo.ListByBuyer(ctx, buyerID, 10, nil, OrderFilters{Status: &completed})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, enums.OrderStatusCompleted, filtered[0].Status)

	bySeller, err := repo.ListBySeller(ctx, sellerID, 10, nil, OrderFilters{})
	require.NoError(t, err)
	assert.Len(t, bySeller, 2)
}

func TestRepository_SumCompletedRevenueBySeller(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sellerID := uuid.New()
	now := time.Now()
	seedOrder(t, db, uuid.New(), sellerID, enums.OrderStatusCompleted, "300.00", now)
	seedOrder(t, db, uuid.New(), sellerID, enums.OrderStatusCompleted, "200.00", now)
	seedOrder(t, db, uuid.New(), sellerID, enums.OrderStatusPending, "999.00", now)
	seedOrder(t, db, uuid.New(), sellerID, enums.OrderStatusCancelled, "50.00", now)

	total, err := repo.SumCompletedRevenueBySeller(ctx, sellerID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("500.00")), "got %s", total)

	empty, err := repo.SumCompletedRevenueBySeller(ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}

func TestRepository_CompletedRevenueBySellerPerGig(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sellerID := uuid.New()
	gigA := uuid.New()
	gigB := uuid.New()
	now := time.Now()

	makeOrder := func(gigID uuid.UUID, status enums.OrderStatus, price string) {
		order := &models.Order{
			ID:        uuid.New(),
			GigID:     gigID,
			BuyerID:   uuid.New(),
			SellerID:  sellerID,
			Price:     decimal.RequireFromString(price),
			Status:    status,
			CreatedAt: now,
		}
		require.NoError(t, db.Create(order).Error)
	}
	makeOrder(gigA, enums.OrderStatusCompleted, "100.00")
	makeOrder(gigA, enums.OrderStatusCompleted, "150.00")
	makeOrder(gigB, enums.OrderStatusCompleted, "400.00")
	makeOrder(gigB, enums.OrderStatusPending, "999.00")

	rows, err := repo.CompletedRevenueBySellerPerGig(ctx, sellerID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Highest revenue first.
	assert.Equal(t, gigB, rows[0].GigID)
	assert.True(t, rows[0].Revenue.Equal(decimal.RequireFromString("400.00")), "got %s", rows[0].Revenue)
	assert.EqualValues(t, 1, rows[0].Orders)
	assert.Equal(t, gigA, rows[1].GigID)
	assert.True(t, rows[1].Revenue.Equal(decimal.RequireFromString("250.00")), "got %s", rows[1].Revenue)
	assert.EqualValues(t, 2, rows[1].Orders)

	none, err := repo.CompletedRevenueBySellerPerGig(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}
