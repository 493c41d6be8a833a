package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adezy/marketplace-backend/pkg/db/models"
	"github.com/adezy/marketplace-backend/pkg/pagination"
)

// Repository defines persistence operations for orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int, cursor *pagination.Cursor, filters OrderFilters) ([]models.Order, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int, cursor *pagination.Cursor, filters OrderFilters) ([]models.Order, error)
	SumCompletedRevenueBySeller(ctx context.Context, sellerID uuid.UUID) (decimal.Decimal, error)
	CompletedRevenueBySellerPerGig(ctx context.Context, sellerID uuid.UUID) ([]GigRevenue, error)
}

// GigRevenue aggregates a seller's completed order revenue for one gig.
type GigRevenue struct {
	GigID   uuid.UUID       `gorm:"column:gig_id" json:"gig_id"`
	Revenue decimal.Decimal `gorm:"column:revenue" json:"revenue"`
	Orders  int64           `gorm:"column:orders" json:"orders"`
}
