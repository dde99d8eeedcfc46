package worker

import (
	"context"
	"time"

	"course-fee-gateway/internal/clock"
	"course-fee-gateway/internal/repo"
	"course-fee-gateway/internal/telemetry"

	"go.uber.org/zap"
)

const scanLimit = 100

// PendingMonitor periodically reports orders that have stayed pending past
// the staleness window. It never changes order status: only an authenticated
// gateway callback may do that.
type PendingMonitor struct {
	orderRepo  repo.OrderRepo
	clock      clock.Clock
	logger     *zap.Logger
	interval   time.Duration
	staleAfter time.Duration
}

func NewPendingMonitor(
	orderRepo repo.OrderRepo,
	clk clock.Clock,
	logger *zap.Logger,
	interval time.Duration,
	staleAfter time.Duration,
) *PendingMonitor {
	return &PendingMonitor{
		orderRepo:  orderRepo,
		clock:      clk,
		logger:     logger,
		interval:   interval,
		staleAfter: staleAfter,
	}
}

func (m *PendingMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("pending monitor started",
		zap.Duration("interval", m.interval),
		zap.Duration("stale_after", m.staleAfter),
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("pending monitor stopped")
			return
		case <-ticker.C:
			if _, err := m.Scan(ctx); err != nil {
				m.logger.Error("pending scan failed", zap.Error(err))
			}
		}
	}
}

// Scan reports stale pending orders and returns how many were found.
func (m *PendingMonitor) Scan(ctx context.Context) (int, error) {
	stale, err := m.orderRepo.FindStuckOrders(ctx, m.clock.Now().Add(-m.staleAfter), scanLimit)
	if err != nil {
		return 0, err
	}

	telemetry.SetStalePendingOrders(len(stale))
	for _, order := range stale {
		m.logger.Warn("order still pending",
			zap.String("order_id", order.OrderID),
			zap.String("flow", string(order.Flow)),
			zap.Time("created_at", order.CreatedAt),
			zap.Bool("has_link", order.PaymentLink != ""),
		)
	}
	return len(stale), nil
}
