package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adezy/marketplace-backend/pkg/db/models"
	"github.com/adezy/marketplace-backend/pkg/enums"
	pkgerrors "github.com/adezy/marketplace-backend/pkg/errors"
	"github.com/adezy/marketplace-backend/pkg/outbox"
	"github.com/adezy/marketplace-backend/pkg/pagination"
)

type fakeRepository struct {
	balances      map[uuid.UUID]*models.Balance
	entries       []*models.LedgerEntry
	saveBalanceFn func(ctx context.Context, balance *models.Balance) error
	createEntryFn func(ctx context.Context, entry *models.LedgerEntry) error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{balances: map[uuid.UUID]*models.Balance{}}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) FindBalanceByUserID(ctx context.Context, userID uuid.UUID) (*models.Balance, error) {
	if balance, ok := f.balances[userID]; ok {
		return balance, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) CreateBalance(ctx context.Context, balance *models.Balance) error {
	if balance.ID == uuid.Nil {
		balance.ID = uuid.New()
	}
	f.balances[balance.UserID] = balance
	return nil
}

func (f *fakeRepository) SaveBalance(ctx context.Context, balance *models.Balance) error {
	if f.saveBalanceFn != nil {
		return f.saveBalanceFn(ctx, balance)
	}
	f.balances[balance.UserID] = balance
	return nil
}

func (f *fakeRepository) CreateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if f.createEntryFn != nil {
		return f.createEntryFn(ctx, entry)
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeRepository) ListEntriesByUserID(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	for _, entry := range f.entries {
		if entry.UserID == userID {
			out = append(out, *entry)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepository) ListEntriesByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	for _, entry := range f.entries {
		if entry.OrderID != nil && *entry.OrderID == orderID {
			out = append(out, *entry)
		}
	}
	return out, nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func newTestService(t *testing.T, repo Repository, publisher outboxPublisher, starting string) Service {
	t.Helper()
	svc, err := NewService(repo, publisher, decimal.RequireFromString(starting))
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_RecordDebit(t *testing.T) {
	repo := newFakeRepository()
	publisher := &stubOutboxPublisher{}
	svc := newTestService(t, repo, publisher, "1000.00")

	userID := uuid.New()
	orderID := uuid.New()
	entry, err := svc.Record(context.Background(), &gorm.DB{}, RecordEntryInput{
		UserID:      userID,
		Kind:        enums.LedgerEntryKindDebit,
		Amount:      decimal.RequireFromString("300.00"),
		Description: "order placed",
		OrderID:     &orderID,
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if !entry.BalanceAfter.Equal(decimal.RequireFromString("700.00")) {
		t.Fatalf("unexpected balance after: %s", entry.BalanceAfter)
	}
	if !repo.balances[userID].Amount.Equal(decimal.RequireFromString("700.00")) {
		t.Fatalf("balance not persisted: %s", repo.balances[userID].Amount)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected one balance_updated event, got %d", len(publisher.events))
	}
	if publisher.events[0].EventType != enums.EventBalanceUpdated {
		t.Fatalf("unexpected event type %q", publisher.events[0].EventType)
	}
}

func TestService_RecordDebitInsufficientFunds(t *testing.T) {
	repo := newFakeRepository()
	publisher := &stubOutboxPublisher{}
	svc := newTestService(t, repo, publisher, "100.00")

	userID := uuid.New()
	_, err := svc.Record(context.Background(), &gorm.DB{}, RecordEntryInput{
		UserID:      userID,
		Kind:        enums.LedgerEntryKindDebit,
		Amount:      decimal.RequireFromString("100.01"),
		Description: "order placed",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if len(repo.entries) != 0 {
		t.Fatal("no entry should be written on overdraft")
	}
	if !repo.balances[userID].Amount.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("balance must be unchanged: %s", repo.balances[userID].Amount)
	}
	if len(publisher.events) != 0 {
		t.Fatal("no event should be emitted on overdraft")
	}
}

func TestService_RecordCreditAndRefund(t *testing.T) {
	repo := newFakeRepository()
	publisher := &stubOutboxPublisher{}
	svc := newTestService(t, repo, publisher, "0.00")

	userID := uuid.New()
	for _, kind := range []enums.LedgerEntryKind{enums.LedgerEntryKindCredit, enums.LedgerEntryKindRefund} {
		_, err := svc.Record(context.Background(), &gorm.DB{}, RecordEntryInput{
			UserID:      userID,
			Kind:        kind,
			Amount:      decimal.RequireFromString("50.00"),
			Description: "top up",
		})
		if err != nil {
			t.Fatalf("Record(%s) error: %v", kind, err)
		}
	}
	if !repo.balances[userID].Amount.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("unexpected balance: %s", repo.balances[userID].Amount)
	}
}

func TestService_RecordEarningAnnotation(t *testing.T) {
	repo := newFakeRepository()
	publisher := &stubOutboxPublisher{}
	svc := newTestService(t, repo, publisher, "250.00")

	userID := uuid.New()
	entry, err := svc.Record(context.Background(), &gorm.DB{}, RecordEntryInput{
		UserID:      userID,
		Kind:        enums.LedgerEntryKindEarning,
		Amount:      decimal.RequireFromString("-200.00"),
		Description: "cash out approved",
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if !entry.BalanceAfter.Equal(decimal.RequireFromString("250.00")) {
		t.Fatalf("annotation must not move the balance, got %s", entry.BalanceAfter)
	}
	if !repo.balances[userID].Amount.Equal(decimal.RequireFromString("250.00")) {
		t.Fatalf("balance changed by annotation: %s", repo.balances[userID].Amount)
	}
	if len(publisher.events) != 0 {
		t.Fatal("annotations must not emit balance_updated events")
	}
}

func TestService_RecordEarningCreditsSeller(t *testing.T) {
	repo := newFakeRepository()
	publisher := &stubOutboxPublisher{}
	svc := newTestService(t, repo, publisher, "0.00")

	userID := uuid.New()
	entry, err := svc.Record(context.Background(), &gorm.DB{}, RecordEntryInput{
		UserID:      userID,
		Kind:        enums.LedgerEntryKindEarning,
		Amount:      decimal.RequireFromString("300.00"),
		Description: "order revenue",
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if !entry.BalanceAfter.Equal(decimal.RequireFromString("300.00")) {
		t.Fatalf("unexpected balance after: %s", entry.BalanceAfter)
	}
}

func TestService_RecordValidation(t *testing.T) {
	repo := newFakeRepository()
	publisher := &stubOutboxPublisher{}
	svc := newTestService(t, repo, publisher, "100.00")

	tests := []struct {
		name  string
		input RecordEntryInput
	}{
		{
			name: "missing user id",
			input: RecordEntryInput{
				Kind:   enums.LedgerEntryKindCredit,
				Amount: decimal.RequireFromString("10.00"),
			},
		},
		{
			name: "invalid kind",
			input: RecordEntryInput{
				UserID: uuid.New(),
				Kind:   enums.LedgerEntryKind("transfer"),
				Amount: decimal.RequireFromString("10.00"),
			},
		},
		{
			name: "zero amount",
			input: RecordEntryInput{
				UserID: uuid.New(),
				Kind:   enums.LedgerEntryKindCredit,
			},
		},
		{
			name: "negative credit",
			input: RecordEntryInput{
				UserID: uuid.New(),
				Kind:   enums.LedgerEntryKindCredit,
				Amount: decimal.RequireFromString("-10.00"),
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Record(context.Background(), &gorm.DB{}, tc.input)
			if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_RecordEntryInsertFailure(t *testing.T) {
	repo := newFakeRepository()
	publisher := &stubOutboxPublisher{}
	svc := newTestService(t, repo, publisher, "1000.00")

	repo.createEntryFn = func(ctx context.Context, entry *models.LedgerEntry) error {
		return errors.New("insert failed")
	}
	_, err := svc.Record(context.Background(), &gorm.DB{}, RecordEntryInput{
		UserID:      uuid.New(),
		Kind:        enums.LedgerEntryKindDebit,
		Amount:      decimal.RequireFromString("50.00"),
		Description: "order placed",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if len(publisher.events) != 0 {
		t.Fatal("no event should be emitted when the entry insert fails")
	}
}

func TestService_GetBalanceLazyCreate(t *testing.T) {
	repo := newFakeRepository()
	publisher := &stubOutboxPublisher{}
	svc := newTestService(t, repo, publisher, "5000.00")

	userID := uuid.New()
	balance, err := svc.GetBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetBalance error: %v", err)
	}
	if !balance.Amount.Equal(decimal.RequireFromString("5000.00")) {
		t.Fatalf("expected starting credits, got %s", balance.Amount)
	}

	again, err := svc.GetBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetBalance error: %v", err)
	}
	if again.ID != balance.ID {
		t.Fatal("second read must return the same balance row")
	}
}
