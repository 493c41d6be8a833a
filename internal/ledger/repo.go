package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adezy/marketplace-backend/pkg/db/models"
	"github.com/adezy/marketplace-backend/pkg/pagination"
)

// Repository manages persistence for balances and ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBalanceByUserID(ctx context.Context, userID uuid.UUID) (*models.Balance, error)
	CreateBalance(ctx context.Context, balance *models.Balance) error
	SaveBalance(ctx context.Context, balance *models.Balance) error
	CreateEntry(ctx context.Context, entry *models.LedgerEntry) error
	ListEntriesByUserID(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.LedgerEntry, error)
	ListEntriesByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindBalanceByUserID(ctx context.Context, userID uuid.UUID) (*models.Balance, error) {
	var balance models.Balance
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&balance).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repository) CreateBalance(ctx context.Context, balance *models.Balance) error {
	if balance.ID == uuid.Nil {
		balance.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(balance).Error
}

func (r *repository) SaveBalance(ctx context.Context, balance *models.Balance) error {
	return r.db.WithContext(ctx).
		Model(&models.Balance{}).
		Where("id = ?", balance.ID).
		Update("amount", balance.Amount).Error
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListEntriesByUserID(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.LedgerEntry, error) {
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

	var entries []models.LedgerEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListEntriesByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
