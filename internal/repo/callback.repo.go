package repo

import (
	"context"
	"database/sql"
	"fmt"

	"course-fee-gateway/internal/domain"
)

// CallbackRepo keeps every gateway callback received, whatever its outcome.
// It never touches the orders table.
type CallbackRepo interface {
	RecordEvent(ctx context.Context, event *domain.CallbackEvent) error
	ListByOrderID(ctx context.Context, orderID string) ([]domain.CallbackEvent, error)
}

type callbackRepo struct {
	db *sql.DB
}

func NewCallbackRepo(db *sql.DB) CallbackRepo {
	return &callbackRepo{db: db}
}

func (r *callbackRepo) RecordEvent(ctx context.Context, event *domain.CallbackEvent) error {
	query := `INSERT INTO callback_events (id, order_id, claimed_status, gateway_ref, outcome, detail, received_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(
		ctx, query,
		event.ID,
		event.OrderID,
		event.ClaimedStatus,
		nullString(event.GatewayRef),
		event.Outcome,
		nullString(event.Detail),
		event.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("record callback event: %w", err)
	}
	return nil
}

func (r *callbackRepo) ListByOrderID(ctx context.Context, orderID string) ([]domain.CallbackEvent, error) {
	query := `
		SELECT id, order_id, claimed_status, gateway_ref, outcome, detail, received_at
		FROM callback_events
		WHERE order_id = $1
		ORDER BY received_at
	`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list callback events: %w", err)
	}
	defer rows.Close()

	events := []domain.CallbackEvent{}
	for rows.Next() {
		var (
			e          domain.CallbackEvent
			gatewayRef sql.NullString
			detail     sql.NullString
		)
		err := rows.Scan(
			&e.ID,
			&e.OrderID,
			&e.ClaimedStatus,
			&gatewayRef,
			&e.Outcome,
			&detail,
			&e.ReceivedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan callback event: %w", err)
		}
		e.GatewayRef = gatewayRef.String
		e.Detail = detail.String
		events = append(events, e)
	}
	return events, rows.Err()
}
