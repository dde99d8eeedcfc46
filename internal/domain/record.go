package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordSummary is the flattened read model shown on the result screen and
// used to build receipts.
type RecordSummary struct {
	ID            string          `json:"id"`
	FullName      string          `json:"fullName"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	CourseName    string          `json:"courseName"`
	CollegeName   string          `json:"collegeName"`
	Amount        decimal.Decimal `json:"amount"`
	OrderID       string          `json:"orderId"`
	PaymentID     string          `json:"paymentId"`
	TransactionID string          `json:"transactionId"`
	Status        OrderStatus     `json:"status"`
	Flow          OrderFlow       `json:"flow"`
	PaymentLink   string          `json:"paymentLink,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}
