package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/adezy/marketplace-backend/pkg/db"
	"github.com/adezy/marketplace-backend/pkg/db/models"
	"github.com/adezy/marketplace-backend/pkg/enums"
	pkgerrors "github.com/adezy/marketplace-backend/pkg/errors"
	"github.com/adezy/marketplace-backend/pkg/outbox"
	"github.com/adezy/marketplace-backend/pkg/outbox/payloads"
	"github.com/adezy/marketplace-backend/pkg/pagination"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service records balance-affecting events and serves balance reads. Every
// mutation of a Balance row goes through Record so the entry history always
// replays to the current amount.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, input RecordEntryInput) (*models.LedgerEntry, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (*models.Balance, error)
	ListEntries(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, string, error)
	ListOrderEntries(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEntry, error)
}

// RecordEntryInput captures the immutable data a ledger entry requires.
type RecordEntryInput struct {
	UserID      uuid.UUID
	Kind        enums.LedgerEntryKind
	Amount      decimal.Decimal
	Description string
	OrderID     *uuid.UUID
}

type service struct {
	repo            Repository
	publisher       outboxPublisher
	startingCredits decimal.Decimal
}

// NewService wires a ledger service with the provided repository and publisher.
func NewService(repo Repository, publisher outboxPublisher, startingCredits decimal.Decimal) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if startingCredits.IsNegative() {
		return nil, fmt.Errorf("starting credits must not be negative")
	}
	return &service{
		repo:            repo,
		publisher:       publisher,
		startingCredits: startingCredits,
	}, nil
}

// Record appends a ledger entry and applies its effect to the user's balance
// inside the caller's transaction. Earning entries written with a negative
// amount annotate cash-outs and leave the balance untouched.
func (s *service) Record(ctx context.Context, tx *gorm.DB, input RecordEntryInput) (*models.LedgerEntry, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ledger entry kind %q", input.Kind))
	}
	if input.Amount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be zero")
	}
	if input.Amount.IsNegative() && input.Kind != enums.LedgerEntryKindEarning {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "negative amounts are only valid for earning entries")
	}

	repo := s.repo.WithTx(tx)
	balance, err := s.ensureBalance(ctx, repo, input.UserID)
	if err != nil {
		return nil, err
	}

	newAmount := balance.Amount
	switch input.Kind {
	case enums.LedgerEntryKindDebit:
		newAmount = balance.Amount.Sub(input.Amount)
		if newAmount.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient balance")
		}
	case enums.LedgerEntryKindCredit, enums.LedgerEntryKindRefund:
		newAmount = balance.Amount.Add(input.Amount)
	case enums.LedgerEntryKindEarning:
		if input.Amount.IsPositive() {
			newAmount = balance.Amount.Add(input.Amount)
		}
	}

	balanceChanged := !newAmount.Equal(balance.Amount)
	if balanceChanged {
		balance.Amount = newAmount
		if err := repo.SaveBalance(ctx, balance); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save balance")
		}
	}

	entry := &models.LedgerEntry{
		UserID:       input.UserID,
		Kind:         input.Kind,
		Amount:       input.Amount,
		BalanceAfter: newAmount,
		Description:  input.Description,
		OrderID:      input.OrderID,
	}
	if err := repo.CreateEntry(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create ledger entry")
	}

	if balanceChanged {
		event := outbox.DomainEvent{
			EventType:     enums.EventBalanceUpdated,
			AggregateType: enums.AggregateLedgerEntry,
			AggregateID:   entry.ID,
			Data: payloads.BalanceUpdatedEvent{
				UserID:  input.UserID,
				EntryID: entry.ID,
				Kind:    entry.Kind,
				Amount:  entry.Amount,
				Balance: newAmount,
				OrderID: entry.OrderID,
			},
			Version: 1,
		}
		if err := s.publisher.Emit(ctx, tx, event); err != nil {
			return nil, err
		}
	}
	return entry, nil
}

// GetBalance fetches the user's balance, creating it with the configured
// starting credits on first access.
func (s *service) GetBalance(ctx context.Context, userID uuid.UUID) (*models.Balance, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	balance, err := s.repo.FindBalanceByUserID(ctx, userID)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load balance")
	}

	created := &models.Balance{
		UserID: userID,
		Amount: s.startingCredits,
	}
	if err := s.repo.CreateBalance(ctx, created); err != nil {
		// Lost the creation race; the committed row wins.
		if dbpkg.IsUniqueViolation(err, "") {
			return s.repo.FindBalanceByUserID(ctx, userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create balance")
	}
	return created, nil
}

func (s *service) ListEntries(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, string, error) {
	if userID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	entries, err := s.repo.ListEntriesByUserID(ctx, userID, limit+1, cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list ledger entries")
	}

	nextCursor := ""
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[limit-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return entries, nextCursor, nil
}

func (s *service) ListOrderEntries(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEntry, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	entries, err := s.repo.ListEntriesByOrderID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list order ledger entries")
	}
	return entries, nil
}

func (s *service) ensureBalance(ctx context.Context, repo Repository, userID uuid.UUID) (*models.Balance, error) {
	balance, err := repo.FindBalanceByUserID(ctx, userID)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load balance")
	}

	created := &models.Balance{
		UserID: userID,
		Amount: s.startingCredits,
	}
	if err := repo.CreateBalance(ctx, created); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create balance")
	}
	return created, nil
}
