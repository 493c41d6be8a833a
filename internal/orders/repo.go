package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adezy/marketplace-backend/pkg/db/models"
	"github.com/adezy/marketplace-backend/pkg/enums"
	"github.com/adezy/marketplace-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int, cursor *pagination.Cursor, filters OrderFilters) ([]models.Order, error) {
	return r.list(ctx, "buyer_id", buyerID, limit, cursor, filters)
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int, cursor *pagination.Cursor, filters OrderFilters) ([]models.Order, error) {
	return r.list(ctx, "seller_id", sellerID, limit, cursor, filters)
}

func (r *repository) list(ctx context.Context, column string, userID uuid.UUID, limit int, cursor *pagination.Cursor, filters OrderFilters) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Where(column+" = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) SumCompletedRevenueBySeller(ctx context.Context, sellerID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("seller_id = ? AND status = ?", sellerID, enums.OrderStatusCompleted).
		Select("COALESCE(SUM(price), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *repository) CompletedRevenueBySellerPerGig(ctx context.Context, sellerID uuid.UUID) ([]GigRevenue, error) {
	var rows []GigRevenue
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("gig_id, COALESCE(SUM(price), 0) AS revenue, COUNT(*) AS orders").
		Where("seller_id = ? AND status = ?", sellerID, enums.OrderStatusCompleted).
		Group("gig_id").
		Order("revenue DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
