package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adezy/marketplace-backend/internal/ledger"
	"github.com/adezy/marketplace-backend/internal/orders"
	"github.com/adezy/marketplace-backend/pkg/db/models"
	"github.com/adezy/marketplace-backend/pkg/enums"
	pkgerrors "github.com/adezy/marketplace-backend/pkg/errors"
	"github.com/adezy/marketplace-backend/pkg/outbox"
	"github.com/adezy/marketplace-backend/pkg/outbox/payloads"
	"github.com/adezy/marketplace-backend/pkg/pagination"
	"github.com/adezy/marketplace-backend/pkg/validate"
)

type txRunner interface {
	WithSerializableTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ledgerRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, input ledger.RecordEntryInput) (*models.LedgerEntry, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service reconciles seller earnings and processes top-up and cash-out
// requests. Cash-out availability is always recomputed from committed state at
// approval time, never trusted from request time.
type Service interface {
	RequestBalance(ctx context.Context, input RequestBalanceInput) (*models.BalanceRequest, error)
	DecideBalanceRequest(ctx context.Context, input DecideRequestInput) (*models.BalanceRequest, error)
	RequestCashout(ctx context.Context, input RequestCashoutInput) (*models.CashoutRequest, error)
	DecideCashoutRequest(ctx context.Context, input DecideRequestInput) (*models.CashoutRequest, error)
	AvailableEarnings(ctx context.Context, userID uuid.UUID) (*EarningsBreakdown, error)
	ListBalanceRequests(ctx context.Context, userID uuid.UUID, params pagination.Params) (*BalanceRequestList, error)
	ListCashoutRequests(ctx context.Context, userID uuid.UUID, params pagination.Params) (*CashoutRequestList, error)
}

type service struct {
	repo       Repository
	ordersRepo orders.Repository
	tx         txRunner
	ledger     ledgerRecorder
	outbox     outboxPublisher
}

// NewService builds the payouts service.
func NewService(
	repo Repository,
	ordersRepo orders.Repository,
	tx txRunner,
	ledgerSvc ledgerRecorder,
	publisher outboxPublisher,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger recorder required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:       repo,
		ordersRepo: ordersRepo,
		tx:         tx,
		ledger:     ledgerSvc,
		outbox:     publisher,
	}, nil
}

func (s *service) RequestBalance(ctx context.Context, input RequestBalanceInput) (*models.BalanceRequest, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	request := &models.BalanceRequest{
		UserID: input.UserID,
		Amount: input.Amount,
		Status: enums.RequestStatusPending,
		Note:   input.Note,
	}
	if err := s.repo.CreateBalanceRequest(ctx, request); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create balance request")
	}
	return request, nil
}

// DecideBalanceRequest approves or rejects a pending top-up. Approval credits
// the user's ledger; rejection only flips the status.
func (s *service) DecideBalanceRequest(ctx context.Context, input DecideRequestInput) (*models.BalanceRequest, error) {
	if err := validateDecision(input); err != nil {
		return nil, err
	}

	var decided *models.BalanceRequest
	err := s.tx.WithSerializableTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		request, err := repo.FindBalanceRequestByID(ctx, input.RequestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "balance request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load balance request")
		}
		if request.Status.IsProcessed() {
			return pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "balance request already processed")
		}

		status := enums.RequestStatusRejected
		if input.Decision == enums.RequestDecisionApprove {
			status = enums.RequestStatusApproved
			if _, err := s.ledger.Record(ctx, tx, ledger.RecordEntryInput{
				UserID:      request.UserID,
				Kind:        enums.LedgerEntryKindCredit,
				Amount:      request.Amount,
				Description: fmt.Sprintf("balance top-up request %s approved", request.ID),
			}); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":       status,
			"processed_by": input.ApproverID,
			"processed_at": now,
		}
		if input.AdminNote != nil {
			updates["admin_note"] = *input.AdminNote
			request.AdminNote = input.AdminNote
		}
		if err := repo.UpdateBalanceRequest(ctx, request.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update balance request")
		}
		request.Status = status
		request.ProcessedBy = &input.ApproverID
		request.ProcessedAt = &now
		decided = request

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBalanceRequestDecided,
			AggregateType: enums.AggregateBalanceRequest,
			AggregateID:   request.ID,
			Data: payloads.BalanceRequestDecidedEvent{
				RequestID:   request.ID,
				UserID:      request.UserID,
				Amount:      request.Amount,
				Status:      status,
				ProcessedBy: input.ApproverID,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return decided, nil
}

func (s *service) RequestCashout(ctx context.Context, input RequestCashoutInput) (*models.CashoutRequest, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	request := &models.CashoutRequest{
		UserID:         input.UserID,
		Amount:         input.Amount,
		PaymentMethod:  input.PaymentMethod,
		PaymentDetails: input.PaymentDetails,
		Status:         enums.RequestStatusPending,
		Note:           input.Note,
	}
	if err := s.repo.CreateCashoutRequest(ctx, request); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cashout request")
	}
	return request, nil
}

// DecideCashoutRequest approves or rejects a pending cash-out. Approval
// recomputes availability inside the transaction, writes a negative earning
// annotation and leaves the spendable balance untouched.
func (s *service) DecideCashoutRequest(ctx context.Context, input DecideRequestInput) (*models.CashoutRequest, error) {
	if err := validateDecision(input); err != nil {
		return nil, err
	}

	var decided *models.CashoutRequest
	err := s.tx.WithSerializableTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		request, err := repo.FindCashoutRequestByID(ctx, input.RequestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cashout request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cashout request")
		}
		if request.Status.IsProcessed() {
			return pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "cashout request already processed")
		}

		status := enums.RequestStatusRejected
		if input.Decision == enums.RequestDecisionApprove {
			breakdown, err := s.computeEarnings(ctx, tx, request.UserID)
			if err != nil {
				return err
			}
			if request.Amount.GreaterThan(breakdown.Available) {
				return pkgerrors.New(pkgerrors.CodeInsufficientEarnings, "insufficient withdrawable earnings").
					WithDetails(map[string]string{
						"requested": request.Amount.String(),
						"available": breakdown.Available.String(),
					})
			}

			status = enums.RequestStatusApproved
			if _, err := s.ledger.Record(ctx, tx, ledger.RecordEntryInput{
				UserID:      request.UserID,
				Kind:        enums.LedgerEntryKindEarning,
				Amount:      request.Amount.Neg(),
				Description: fmt.Sprintf("cash out request %s approved", request.ID),
			}); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":       status,
			"processed_by": input.ApproverID,
			"processed_at": now,
		}
		if input.AdminNote != nil {
			updates["admin_note"] = *input.AdminNote
			request.AdminNote = input.AdminNote
		}
		if err := repo.UpdateCashoutRequest(ctx, request.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cashout request")
		}
		request.Status = status
		request.ProcessedBy = &input.ApproverID
		request.ProcessedAt = &now
		decided = request

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCashoutRequestDecided,
			AggregateType: enums.AggregateCashoutRequest,
			AggregateID:   request.ID,
			Data: payloads.CashoutRequestDecidedEvent{
				RequestID:   request.ID,
				UserID:      request.UserID,
				Amount:      request.Amount,
				Status:      status,
				ProcessedBy: input.ApproverID,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return decided, nil
}

// AvailableEarnings derives the withdrawable figure from committed orders and
// approved cash-outs. Earnings are independent of the spendable balance.
func (s *service) AvailableEarnings(ctx context.Context, userID uuid.UUID) (*EarningsBreakdown, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	breakdown, err := s.computeEarnings(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	perGig, err := s.ordersRepo.CompletedRevenueBySellerPerGig(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregate per-gig revenue")
	}
	breakdown.PerGig = perGig
	return breakdown, nil
}

func (s *service) computeEarnings(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*EarningsBreakdown, error) {
	revenue, err := s.ordersRepo.WithTx(tx).SumCompletedRevenueBySeller(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum completed revenue")
	}
	cashedOut, err := s.repo.WithTx(tx).SumApprovedCashoutsByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum approved cashouts")
	}

	available := revenue.Sub(cashedOut)
	if available.IsNegative() {
		available = decimal.Zero
	}
	return &EarningsBreakdown{
		CompletedRevenue: revenue,
		ApprovedCashouts: cashedOut,
		Available:        available,
	}, nil
}

func (s *service) ListBalanceRequests(ctx context.Context, userID uuid.UUID, params pagination.Params) (*BalanceRequestList, error) {
	limit, cursor, err := parseListParams(userID, params)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListBalanceRequestsByUser(ctx, userID, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list balance requests")
	}

	list := &BalanceRequestList{Requests: rows}
	if len(rows) > limit {
		list.Requests = rows[:limit]
		last := list.Requests[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, nil
}

func (s *service) ListCashoutRequests(ctx context.Context, userID uuid.UUID, params pagination.Params) (*CashoutRequestList, error) {
	limit, cursor, err := parseListParams(userID, params)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListCashoutRequestsByUser(ctx, userID, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cashout requests")
	}

	list := &CashoutRequestList{Requests: rows}
	if len(rows) > limit {
		list.Requests = rows[:limit]
		last := list.Requests[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, nil
}

func validateDecision(input DecideRequestInput) error {
	if err := validate.Struct(input); err != nil {
		return err
	}
	if !input.Decision.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid request decision %q", input.Decision))
	}
	return nil
}

func parseListParams(userID uuid.UUID, params pagination.Params) (int, *pagination.Cursor, error) {
	if userID == uuid.Nil {
		return 0, nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return 0, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return pagination.NormalizeLimit(params.Limit), cursor, nil
}
