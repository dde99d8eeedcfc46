package domain

import (
	"time"

	"github.com/google/uuid"
)

type CallbackOutcome string

const (
	CallbackApplied      CallbackOutcome = "applied"
	CallbackReplayed     CallbackOutcome = "replayed"
	CallbackHashMismatch CallbackOutcome = "hash_mismatch"
	CallbackConflict     CallbackOutcome = "conflict"
	CallbackUnknownOrder CallbackOutcome = "unknown_order"
	CallbackRejected     CallbackOutcome = "rejected"
	CallbackError        CallbackOutcome = "error"
)

// CallbackEvent is one received gateway callback, kept as an audit trail.
// The claimed hash is not stored.
type CallbackEvent struct {
	ID            uuid.UUID       `json:"id"`
	OrderID       string          `json:"orderId"`
	ClaimedStatus string          `json:"claimedStatus"`
	GatewayRef    string          `json:"gatewayRef,omitempty"`
	Outcome       CallbackOutcome `json:"outcome"`
	Detail        string          `json:"detail,omitempty"`
	ReceivedAt    time.Time       `json:"receivedAt"`
}
