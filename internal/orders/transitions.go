package orders

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/adezy/marketplace-backend/pkg/db/models"
	"github.com/adezy/marketplace-backend/pkg/enums"
	pkgerrors "github.com/adezy/marketplace-backend/pkg/errors"
)

type actorRole string

const (
	roleBuyer  actorRole = "buyer"
	roleSeller actorRole = "seller"
)

type transitionKey struct {
	from enums.OrderStatus
	to   enums.OrderStatus
}

// allowedTransitions maps each legal (from, to) pair to the role that may
// perform it. Completion is buyer-only and requires the order to currently be
// delivered; every other move is seller-only.
var allowedTransitions = map[transitionKey]actorRole{
	{enums.OrderStatusPending, enums.OrderStatusInProgress}:   roleSeller,
	{enums.OrderStatusPending, enums.OrderStatusCancelled}:    roleSeller,
	{enums.OrderStatusInProgress, enums.OrderStatusDelivered}: roleSeller,
	{enums.OrderStatusInProgress, enums.OrderStatusCancelled}: roleSeller,
	{enums.OrderStatusDelivered, enums.OrderStatusCompleted}:  roleBuyer,
}

func roleOf(order *models.Order, actorID uuid.UUID) (actorRole, bool) {
	switch actorID {
	case order.BuyerID:
		return roleBuyer, true
	case order.SellerID:
		return roleSeller, true
	}
	return "", false
}

// authorizeTransition checks that the actor participates in the order, that the
// (current, target) pair is legal, and that the actor holds the required role.
func authorizeTransition(order *models.Order, actorID uuid.UUID, target enums.OrderStatus) error {
	role, ok := roleOf(order, actorID)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "actor is not a party to this order")
	}

	required, ok := allowedTransitions[transitionKey{from: order.Status, to: target}]
	if !ok {
		return pkgerrors.New(
			pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, target),
		).WithDetails(map[string]string{
			"current": order.Status.String(),
			"target":  target.String(),
		})
	}
	if role != required {
		return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("only the %s may perform this transition", required))
	}
	return nil
}
