package payouts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adezy/marketplace-backend/internal/ledger"
	ordersvc "github.com/adezy/marketplace-backend/internal/orders"
	"github.com/adezy/marketplace-backend/pkg/db/models"
	"github.com/adezy/marketplace-backend/pkg/enums"
	pkgerrors "github.com/adezy/marketplace-backend/pkg/errors"
	"github.com/adezy/marketplace-backend/pkg/outbox"
	"github.com/adezy/marketplace-backend/pkg/pagination"
)

type stubPayoutsRepo struct {
	balanceRequests map[uuid.UUID]*models.BalanceRequest
	cashoutRequests map[uuid.UUID]*models.CashoutRequest
	balanceUpdates  map[string]any
	cashoutUpdates  map[string]any
	approvedTotal   decimal.Decimal
}

func newStubPayoutsRepo() *stubPayoutsRepo {
	return &stubPayoutsRepo{
		balanceRequests: map[uuid.UUID]*models.BalanceRequest{},
		cashoutRequests: map[uuid.UUID]*models.CashoutRequest{},
	}
}

func (s *stubPayoutsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPayoutsRepo) CreateBalanceRequest(ctx context.Context, request *models.BalanceRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	s.balanceRequests[request.ID] = request
	return nil
}

func (s *stubPayoutsRepo) FindBalanceRequestByID(ctx context.Context, requestID uuid.UUID) (*models.BalanceRequest, error) {
	if request, ok := s.balanceRequests[requestID]; ok {
		copied := *request
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPayoutsRepo) UpdateBalanceRequest(ctx context.Context, requestID uuid.UUID, updates map[string]any) error {
	s.balanceUpdates = updates
	if request, ok := s.balanceRequests[requestID]; ok {
		if status, ok := updates["status"].(enums.RequestStatus); ok {
			request.Status = status
		}
	}
	return nil
}

func (s *stubPayoutsRepo) ListBalanceRequestsByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.BalanceRequest, error) {
	var out []models.BalanceRequest
	for _, request := range s.balanceRequests {
		if request.UserID == userID {
			out = append(out, *request)
		}
	}
	return out, nil
}

func (s *stubPayoutsRepo) CreateCashoutRequest(ctx context.Context, request *models.CashoutRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	s.cashoutRequests[request.ID] = request
	return nil
}

func (s *stubPayoutsRepo) FindCashoutRequestByID(ctx context.Context, requestID uuid.UUID) (*models.CashoutRequest, error) {
	if request, ok := s.cashoutRequests[requestID]; ok {
		copied := *request
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPayoutsRepo) UpdateCashoutRequest(ctx context.Context, requestID uuid.UUID, updates map[string]any) error {
	s.cashoutUpdates = updates
	if request, ok := s.cashoutRequests[requestID]; ok {
		if status, ok := updates["status"].(enums.RequestStatus); ok {
			request.Status = status
		}
	}
	return nil
}

func (s *stubPayoutsRepo) ListCashoutRequestsByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.CashoutRequest, error) {
	var out []models.CashoutRequest
	for _, request := range s.cashoutRequests {
		if request.UserID == userID {
			out = append(out, *request)
		}
	}
	return out, nil
}

func (s *stubPayoutsRepo) SumApprovedCashoutsByUser(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return s.approvedTotal, nil
}

type stubOrdersRepo struct {
	revenue decimal.Decimal
	perGig  []ordersvc.GigRevenue
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) ordersvc.Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubOrdersRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int, cursor *pagination.Cursor, filters ordersvc.OrderFilters) ([]models.Order, error) {
	return nil, nil
}

func (s *stubOrdersRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int, cursor *pagination.Cursor, filters ordersvc.OrderFilters) ([]models.Order, error) {
	return nil, nil
}

func (s *stubOrdersRepo) SumCompletedRevenueBySeller(ctx context.Context, sellerID uuid.UUID) (decimal.Decimal, error) {
	return s.revenue, nil
}

func (s *stubOrdersRepo) CompletedRevenueBySellerPerGig(ctx context.Context, sellerID uuid.UUID) ([]ordersvc.GigRevenue, error) {
	return s.perGig, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithSerializableTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubLedger struct {
	inputs []ledger.RecordEntryInput
	err    error
}

func (s *stubLedger) Record(ctx context.Context, tx *gorm.DB, input ledger.RecordEntryInput) (*models.LedgerEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.inputs = append(s.inputs, input)
	return &models.LedgerEntry{ID: uuid.New(), UserID: input.UserID, Kind: input.Kind, Amount: input.Amount}, nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type serviceFixture struct {
	repo       *stubPayoutsRepo
	ordersRepo *stubOrdersRepo
	ledger     *stubLedger
	publisher  *stubOutboxPublisher
	svc        Service
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	fixture := &serviceFixture{
		repo:       newStubPayoutsRepo(),
		ordersRepo: &stubOrdersRepo{},
		ledger:     &stubLedger{},
		publisher:  &stubOutboxPublisher{},
	}
	svc, err := NewService(fixture.repo, fixture.ordersRepo, stubTxRunner{}, fixture.ledger, fixture.publisher)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	fixture.svc = svc
	return fixture
}

func TestRequestBalance(t *testing.T) {
	fixture := newServiceFixture(t)

	request, err := fixture.svc.RequestBalance(context.Background(), RequestBalanceInput{
		UserID: uuid.New(),
		Amount: decimal.RequireFromString("500.00"),
		Note:   "need more credits",
	})
	if err != nil {
		t.Fatalf("RequestBalance error: %v", err)
	}
	if request.Status != enums.RequestStatusPending {
		t.Fatalf("new request must be pending, got %s", request.Status)
	}

	_, err = fixture.svc.RequestBalance(context.Background(), RequestBalanceInput{
		UserID: uuid.New(),
		Amount: decimal.RequireFromString("-5.00"),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for negative amount, got %v", err)
	}
}

func TestDecideBalanceRequest_Approve(t *testing.T) {
	fixture := newServiceFixture(t)
	userID := uuid.New()
	approverID := uuid.New()

	request, err := fixture.svc.RequestBalance(context.Background(), RequestBalanceInput{
		UserID: userID,
		Amount: decimal.RequireFromString("500.00"),
	})
	if err != nil {
		t.Fatalf("RequestBalance error: %v", err)
	}

	decided, err := fixture.svc.DecideBalanceRequest(context.Background(), DecideRequestInput{
		RequestID:  request.ID,
		ApproverID: approverID,
		Decision:   enums.RequestDecisionApprove,
	})
	if err != nil {
		t.Fatalf("DecideBalanceRequest error: %v", err)
	}
	if decided.Status != enums.RequestStatusApproved {
		t.Fatalf("expected approved, got %s", decided.Status)
	}
	if decided.ProcessedBy == nil || *decided.ProcessedBy != approverID {
		t.Fatal("processed_by not stamped")
	}

	if len(fixture.ledger.inputs) != 1 {
		t.Fatalf("expected one credit entry, got %d", len(fixture.ledger.inputs))
	}
	credit := fixture.ledger.inputs[0]
	if credit.Kind != enums.LedgerEntryKindCredit || credit.UserID != userID || !credit.Amount.Equal(request.Amount) {
		t.Fatalf("unexpected ledger entry: %+v", credit)
	}
	if len(fixture.publisher.events) != 1 || fixture.publisher.events[0].EventType != enums.EventBalanceRequestDecided {
		t.Fatalf("expected balance_request_decided event, got %+v", fixture.publisher.events)
	}
}

func TestDecideBalanceRequest_RejectHasNoLedgerEffect(t *testing.T) {
	fixture := newServiceFixture(t)

	request, err := fixture.svc.RequestBalance(context.Background(), RequestBalanceInput{
		UserID: uuid.New(),
		Amount: decimal.RequireFromString("500.00"),
	})
	if err != nil {
		t.Fatalf("RequestBalance error: %v", err)
	}

	note := "no payment received"
	decided, err := fixture.svc.DecideBalanceRequest(context.Background(), DecideRequestInput{
		RequestID:  request.ID,
		ApproverID: uuid.New(),
		Decision:   enums.RequestDecisionReject,
		AdminNote:  &note,
	})
	if err != nil {
		t.Fatalf("DecideBalanceRequest error: %v", err)
	}
	if decided.Status != enums.RequestStatusRejected {
		t.Fatalf("expected rejected, got %s", decided.Status)
	}
	if len(fixture.ledger.inputs) != 0 {
		t.Fatal("rejection must not touch the ledger")
	}
}

func TestDecideBalanceRequest_AlreadyProcessed(t *testing.T) {
	fixture := newServiceFixture(t)

	request, err := fixture.svc.RequestBalance(context.Background(), RequestBalanceInput{
		UserID: uuid.New(),
		Amount: decimal.RequireFromString("100.00"),
	})
	if err != nil {
		t.Fatalf("RequestBalance error: %v", err)
	}

	input := DecideRequestInput{
		RequestID:  request.ID,
		ApproverID: uuid.New(),
		Decision:   enums.RequestDecisionApprove,
	}
	if _, err := fixture.svc.DecideBalanceRequest(context.Background(), input); err != nil {
		t.Fatalf("first decision error: %v", err)
	}
	_, err = fixture.svc.DecideBalanceRequest(context.Background(), input)
	if !pkgerrors.HasCode(err, pkgerrors.CodeAlreadyProcessed) {
		t.Fatalf("expected already processed, got %v", err)
	}
	if len(fixture.ledger.inputs) != 1 {
		t.Fatal("second decision must not write a second credit")
	}
}

func TestDecideCashoutRequest_ApproveWritesAnnotation(t *testing.T) {
	fixture := newServiceFixture(t)
	fixture.ordersRepo.revenue = decimal.RequireFromString("500.00")
	userID := uuid.New()

	request, err := fixture.svc.RequestCashout(context.Background(), RequestCashoutInput{
		UserID:         userID,
		Amount:         decimal.RequireFromString("500.00"),
		PaymentMethod:  "bank_transfer",
		PaymentDetails: "acct 0012345",
	})
	if err != nil {
		t.Fatalf("RequestCashout error: %v", err)
	}

	decided, err := fixture.svc.DecideCashoutRequest(context.Background(), DecideRequestInput{
		RequestID:  request.ID,
		ApproverID: uuid.New(),
		Decision:   enums.RequestDecisionApprove,
	})
	if err != nil {
		t.Fatalf("DecideCashoutRequest error: %v", err)
	}
	if decided.Status != enums.RequestStatusApproved {
		t.Fatalf("expected approved, got %s", decided.Status)
	}

	if len(fixture.ledger.inputs) != 1 {
		t.Fatalf("expected one annotation entry, got %d", len(fixture.ledger.inputs))
	}
	annotation := fixture.ledger.inputs[0]
	if annotation.Kind != enums.LedgerEntryKindEarning || !annotation.Amount.Equal(decimal.RequireFromString("-500.00")) {
		t.Fatalf("unexpected annotation: %+v", annotation)
	}
	if len(fixture.publisher.events) != 1 || fixture.publisher.events[0].EventType != enums.EventCashoutRequestDecided {
		t.Fatalf("expected cashout_request_decided event, got %+v", fixture.publisher.events)
	}
}

func TestDecideCashoutRequest_InsufficientEarnings(t *testing.T) {
	fixture := newServiceFixture(t)
	fixture.ordersRepo.revenue = decimal.RequireFromString("500.00")

	request, err := fixture.svc.RequestCashout(context.Background(), RequestCashoutInput{
		UserID:         uuid.New(),
		Amount:         decimal.RequireFromString("600.00"),
		PaymentMethod:  "bank_transfer",
		PaymentDetails: "acct 0012345",
	})
	if err != nil {
		t.Fatalf("request creation must not check availability: %v", err)
	}

	_, err = fixture.svc.DecideCashoutRequest(context.Background(), DecideRequestInput{
		RequestID:  request.ID,
		ApproverID: uuid.New(),
		Decision:   enums.RequestDecisionApprove,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientEarnings) {
		t.Fatalf("expected insufficient earnings, got %v", err)
	}
	if len(fixture.ledger.inputs) != 0 {
		t.Fatal("failed approval must not write to the ledger")
	}
	if fixture.repo.cashoutRequests[request.ID].Status != enums.RequestStatusPending {
		t.Fatal("failed approval must leave the request pending")
	}
}

func TestDecideCashoutRequest_AccountsForPriorApprovals(t *testing.T) {
	fixture := newServiceFixture(t)
	fixture.ordersRepo.revenue = decimal.RequireFromString("500.00")
	fixture.repo.approvedTotal = decimal.RequireFromString("400.00")

	request, err := fixture.svc.RequestCashout(context.Background(), RequestCashoutInput{
		UserID:         uuid.New(),
		Amount:         decimal.RequireFromString("200.00"),
		PaymentMethod:  "bank_transfer",
		PaymentDetails: "acct 0012345",
	})
	if err != nil {
		t.Fatalf("RequestCashout error: %v", err)
	}

	_, err = fixture.svc.DecideCashoutRequest(context.Background(), DecideRequestInput{
		RequestID:  request.ID,
		ApproverID: uuid.New(),
		Decision:   enums.RequestDecisionApprove,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientEarnings) {
		t.Fatalf("expected insufficient earnings, got %v", err)
	}
}

func TestRequestCashout_Validation(t *testing.T) {
	fixture := newServiceFixture(t)

	tests := []struct {
		name  string
		input RequestCashoutInput
	}{
		{
			name: "missing payment method",
			input: RequestCashoutInput{
				UserID:         uuid.New(),
				Amount:         decimal.RequireFromString("100.00"),
				PaymentDetails: "acct 0012345",
			},
		},
		{
			name: "missing payment details",
			input: RequestCashoutInput{
				UserID:        uuid.New(),
				Amount:        decimal.RequireFromString("100.00"),
				PaymentMethod: "bank_transfer",
			},
		},
		{
			name: "zero amount",
			input: RequestCashoutInput{
				UserID:         uuid.New(),
				PaymentMethod:  "bank_transfer",
				PaymentDetails: "acct 0012345",
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fixture.svc.RequestCashout(context.Background(), tc.input)
			if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestAvailableEarnings(t *testing.T) {
	fixture := newServiceFixture(t)
	gigID := uuid.New()
	fixture.ordersRepo.revenue = decimal.RequireFromString("800.00")
	fixture.ordersRepo.perGig = []ordersvc.GigRevenue{
		{GigID: gigID, Revenue: decimal.RequireFromString("800.00"), Orders: 4},
	}
	fixture.repo.approvedTotal = decimal.RequireFromString("300.00")

	breakdown, err := fixture.svc.AvailableEarnings(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("AvailableEarnings error: %v", err)
	}
	if !breakdown.Available.Equal(decimal.RequireFromString("500.00")) {
		t.Fatalf("unexpected availability: %s", breakdown.Available)
	}
	if !breakdown.CompletedRevenue.Equal(decimal.RequireFromString("800.00")) {
		t.Fatalf("unexpected revenue: %s", breakdown.CompletedRevenue)
	}
	if len(breakdown.PerGig) != 1 || breakdown.PerGig[0].GigID != gigID {
		t.Fatalf("unexpected per-gig breakdown: %+v", breakdown.PerGig)
	}
}

func TestDecide_NotFound(t *testing.T) {
	fixture := newServiceFixture(t)

	input := DecideRequestInput{
		RequestID:  uuid.New(),
		ApproverID: uuid.New(),
		Decision:   enums.RequestDecisionApprove,
	}
	if _, err := fixture.svc.DecideBalanceRequest(context.Background(), input); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := fixture.svc.DecideCashoutRequest(context.Background(), input); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
