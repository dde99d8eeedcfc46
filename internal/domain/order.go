package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderSuccess OrderStatus = "success"
	OrderFailure OrderStatus = "failure"
)

// Terminal reports whether no further status change is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderSuccess || s == OrderFailure
}

func (s OrderStatus) Valid() bool {
	return s == OrderPending || s.Terminal()
}

type OrderFlow string

const (
	FlowCheckout OrderFlow = "checkout"
	FlowLink     OrderFlow = "link"
)

type Order struct {
	ID          uuid.UUID
	OrderID     string
	UserID      int64
	CourseID    int64
	Amount      decimal.Decimal
	Status      OrderStatus
	Flow        OrderFlow
	GatewayRef  string
	PaymentLink string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type TransitionOutcome string

const (
	TransitionApplied  TransitionOutcome = "applied"
	TransitionReplayed TransitionOutcome = "replayed"
)

// Transition moves a pending order into a terminal status. Re-applying the
// status already recorded is a replay and leaves the order untouched; any other
// change to a terminal order is rejected.
func (o *Order) Transition(next OrderStatus, gatewayRef string, at time.Time) (TransitionOutcome, error) {
	if !next.Terminal() {
		return "", ErrInvalidStatus
	}
	if o.Status.Terminal() {
		if o.Status == next {
			return TransitionReplayed, nil
		}
		return "", ErrConflictingTransition
	}
	o.Status = next
	o.GatewayRef = gatewayRef
	o.UpdatedAt = at
	return TransitionApplied, nil
}
