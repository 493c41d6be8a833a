package payouts

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adezy/marketplace-backend/pkg/db/models"
	"github.com/adezy/marketplace-backend/pkg/enums"
	"github.com/adezy/marketplace-backend/pkg/pagination"
)

// Repository manages persistence for balance top-up and cash-out requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBalanceRequest(ctx context.Context, request *models.BalanceRequest) error
	FindBalanceRequestByID(ctx context.Context, requestID uuid.UUID) (*models.BalanceRequest, error)
	UpdateBalanceRequest(ctx context.Context, requestID uuid.UUID, updates map[string]any) error
	ListBalanceRequestsByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.BalanceRequest, error)
	CreateCashoutRequest(ctx context.Context, request *models.CashoutRequest) error
	FindCashoutRequestByID(ctx context.Context, requestID uuid.UUID) (*models.CashoutRequest, error)
	UpdateCashoutRequest(ctx context.Context, requestID uuid.UUID, updates map[string]any) error
	ListCashoutRequestsByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.CashoutRequest, error)
	SumApprovedCashoutsByUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payouts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBalanceRequest(ctx context.Context, request *models.BalanceRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindBalanceRequestByID(ctx context.Context, requestID uuid.UUID) (*models.BalanceRequest, error) {
	var request models.BalanceRequest
	if err := r.db.WithContext(ctx).
		Where("id = ?", requestID).
		First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) UpdateBalanceRequest(ctx context.Context, requestID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.BalanceRequest{}).
		Where("id = ?", requestID).
		Updates(updates).Error
}

func (r *repository) ListBalanceRequestsByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.BalanceRequest, error) {
	query := r.listQuery(ctx, userID, limit, cursor)

	var requests []models.BalanceRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *repository) CreateCashoutRequest(ctx context.Context, request *models.CashoutRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindCashoutRequestByID(ctx context.Context, requestID uuid.UUID) (*models.CashoutRequest, error) {
	var request models.CashoutRequest
	if err := r.db.WithContext(ctx).
		Where("id = ?", requestID).
		First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) UpdateCashoutRequest(ctx context.Context, requestID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.CashoutRequest{}).
		Where("id = ?", requestID).
		Updates(updates).Error
}

func (r *repository) ListCashoutRequestsByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.CashoutRequest, error) {
	query := r.listQuery(ctx, userID, limit, cursor)

	var requests []models.CashoutRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *repository) SumApprovedCashoutsByUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.CashoutRequest{}).
		Where("user_id = ? AND status = ?", userID, enums.RequestStatusApproved).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *repository) listQuery(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) *gorm.DB {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	return query
}
