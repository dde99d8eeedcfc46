package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"course-fee-gateway/internal/domain"
)

type RecordRepo interface {
	FindSummary(ctx context.Context, orderID string) (*domain.RecordSummary, error)
}

type recordRepo struct {
	db *sql.DB
}

func NewRecordRepo(db *sql.DB) RecordRepo {
	return &recordRepo{db: db}
}

func (r *recordRepo) FindSummary(ctx context.Context, orderID string) (*domain.RecordSummary, error) {
	query := `
		SELECT o.id, u.full_name, u.email, u.phone, c.course_name, u.college_name,
		       o.amount, o.order_id, o.gateway_ref, o.status, o.flow, o.payment_link,
		       o.created_at, o.updated_at
		FROM orders o
		JOIN users u ON u.id = o.user_id
		JOIN courses c ON c.id = o.course_id
		WHERE o.order_id = $1
	`
	var (
		s          domain.RecordSummary
		gatewayRef sql.NullString
		link       sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&s.ID,
		&s.FullName,
		&s.Email,
		&s.Phone,
		&s.CourseName,
		&s.CollegeName,
		&s.Amount,
		&s.OrderID,
		&gatewayRef,
		&s.Status,
		&s.Flow,
		&link,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find record: %w", err)
	}
	s.PaymentID = gatewayRef.String
	s.TransactionID = gatewayRef.String
	s.PaymentLink = link.String
	return &s, nil
}
