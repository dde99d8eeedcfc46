package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"course-fee-gateway/internal/domain"
)

// OrderRepo is the order ledger. Status only changes through TransitionStatus.
type OrderRepo interface {
	CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error)
	// TransitionStatus moves an order out of pending under a row lock. On
	// ErrConflictingTransition the stored order is returned with the error.
	TransitionStatus(ctx context.Context, orderID string, status domain.OrderStatus, gatewayRef string, at time.Time) (*domain.Order, domain.TransitionOutcome, error)
	SetPaymentLink(ctx context.Context, orderID, link string, at time.Time) error
	FindStuckOrders(ctx context.Context, before time.Time, limit int) ([]domain.Order, error)
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

const orderColumns = `id, order_id, user_id, course_id, amount, status, flow, gateway_ref, payment_link, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o          domain.Order
		gatewayRef sql.NullString
		link       sql.NullString
	)
	err := row.Scan(
		&o.ID,
		&o.OrderID,
		&o.UserID,
		&o.CourseID,
		&o.Amount,
		&o.Status,
		&o.Flow,
		&gatewayRef,
		&link,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.GatewayRef = gatewayRef.String
	o.PaymentLink = link.String
	return &o, nil
}

func (r *orderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO orders ("+orderColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
		order.ID,
		order.OrderID,
		order.UserID,
		order.CourseID,
		order.Amount,
		order.Status,
		order.Flow,
		nullString(order.GatewayRef),
		nullString(order.PaymentLink),
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateOrder
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *orderRepo) FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE order_id = $1", orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return order, nil
}

func (r *orderRepo) TransitionStatus(ctx context.Context, orderID string, status domain.OrderStatus, gatewayRef string, at time.Time) (*domain.Order, domain.TransitionOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	order, err := scanOrder(tx.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE order_id = $1 FOR UPDATE", orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("lock order: %w", err)
	}

	outcome, err := order.Transition(status, gatewayRef, at)
	if err != nil {
		return order, "", err
	}
	if outcome == domain.TransitionReplayed {
		return order, outcome, nil
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $2, gateway_ref = $3, updated_at = $4 WHERE order_id = $1 AND status = 'pending'",
		orderID, order.Status, nullString(order.GatewayRef), order.UpdatedAt,
	)
	if err != nil {
		return nil, "", fmt.Errorf("update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, "", fmt.Errorf("update order status: %w", err)
	} else if n != 1 {
		return nil, "", fmt.Errorf("update order status: %d rows affected", n)
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("commit transition: %w", err)
	}
	return order, outcome, nil
}

func (r *orderRepo) SetPaymentLink(ctx context.Context, orderID, link string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET payment_link = $2, updated_at = $3 WHERE order_id = $1 AND status = 'pending'",
		orderID, link, at,
	)
	if err != nil {
		return fmt.Errorf("set payment link: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set payment link: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := r.FindByOrderID(ctx, orderID); err != nil {
		return err
	}
	return domain.ErrOrderNotPending
}

func (r *orderRepo) FindStuckOrders(ctx context.Context, before time.Time, limit int) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE status = 'pending' AND updated_at < $1 ORDER BY updated_at LIMIT $2",
		before, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("find stuck orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stuck order: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}
