package payouts

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adezy/marketplace-backend/internal/orders"
	"github.com/adezy/marketplace-backend/pkg/db/models"
	"github.com/adezy/marketplace-backend/pkg/enums"
)

// RequestBalanceInput captures a buyer's top-up ask.
type RequestBalanceInput struct {
	UserID uuid.UUID       `json:"user_id" validate:"required"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Note   string          `json:"note"`
}

// RequestCashoutInput captures a seller's withdrawal ask. Availability is not
// checked here; approval re-validates it.
type RequestCashoutInput struct {
	UserID         uuid.UUID       `json:"user_id" validate:"required"`
	Amount         decimal.Decimal `json:"amount" validate:"required"`
	PaymentMethod  string          `json:"payment_method" validate:"required"`
	PaymentDetails string          `json:"payment_details" validate:"required"`
	Note           string          `json:"note"`
}

// DecideRequestInput carries an admin decision on a pending request.
type DecideRequestInput struct {
	RequestID  uuid.UUID             `json:"request_id" validate:"required"`
	ApproverID uuid.UUID             `json:"approver_id" validate:"required"`
	Decision   enums.RequestDecision `json:"decision" validate:"required"`
	AdminNote  *string               `json:"admin_note,omitempty"`
}

// EarningsBreakdown reports how a seller's withdrawable figure is derived.
// PerGig is populated only for the user-facing read path; cash-out approval
// needs just the totals.
type EarningsBreakdown struct {
	CompletedRevenue decimal.Decimal     `json:"completed_revenue"`
	ApprovedCashouts decimal.Decimal     `json:"approved_cashouts"`
	Available        decimal.Decimal     `json:"available"`
	PerGig           []orders.GigRevenue `json:"per_gig,omitempty"`
}

// BalanceRequestList wraps paginated top-up requests plus the next cursor.
type BalanceRequestList struct {
	Requests   []models.BalanceRequest `json:"requests"`
	NextCursor string                  `json:"next_cursor,omitempty"`
}

// CashoutRequestList wraps paginated cash-out requests plus the next cursor.
type CashoutRequestList struct {
	Requests   []models.CashoutRequest `json:"requests"`
	NextCursor string                  `json:"next_cursor,omitempty"`
}
