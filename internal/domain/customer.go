package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is the payer, keyed by email.
type User struct {
	ID          int64
	FullName    string
	Email       string
	Phone       string
	CollegeName string
	CreatedAt   time.Time
}

// Course is the product being paid for, keyed by name.
type Course struct {
	ID         int64
	CourseName string
	CourseFee  decimal.Decimal
	IsActive   bool
}
