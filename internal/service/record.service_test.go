package service

import (
	"context"
	"errors"
	"testing"

	"course-fee-gateway/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type countingRecords struct {
	*memLedger
	finds int
}

func (c *countingRecords) FindSummary(ctx context.Context, orderID string) (*domain.RecordSummary, error) {
	c.finds++
	return c.memLedger.FindSummary(ctx, orderID)
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (*domain.RecordSummary, error) {
	return nil, errors.New("redis: connection refused")
}

func (failingCache) Set(context.Context, *domain.RecordSummary) error {
	return errors.New("redis: connection refused")
}

func TestGetRecord_CachesTerminalOnly(t *testing.T) {
	ledger := newMemLedger()
	order := newIssuedOrder(t, ledger)
	records := &countingRecords{memLedger: ledger}
	svc := NewRecordService(records, ledger, newMapCache(), zaptest.NewLogger(t))
	ctx := context.Background()

	rec, err := svc.GetRecord(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, rec.Status)
	_, err = svc.GetRecord(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, 2, records.finds, "pending records are not cached")

	_, _, err = ledger.TransitionStatus(ctx, order, domain.OrderSuccess, "E1", now)
	require.NoError(t, err)

	rec, err = svc.GetRecord(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderSuccess, rec.Status)
	rec, err = svc.GetRecord(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderSuccess, rec.Status)
	assert.Equal(t, 3, records.finds)
}

func TestGetRecord_CacheDownFallsBackToLedger(t *testing.T) {
	ledger := newMemLedger()
	order := newIssuedOrder(t, ledger)
	svc := NewRecordService(ledger, ledger, failingCache{}, zaptest.NewLogger(t))

	rec, err := svc.GetRecord(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, order, rec.OrderID)
	assert.Equal(t, "BTech CS", rec.CourseName)
	assert.Equal(t, "SPIT", rec.CollegeName)
}

func TestGetRecord_NotFound(t *testing.T) {
	ledger := newMemLedger()
	svc := NewRecordService(ledger, ledger, newMapCache(), zaptest.NewLogger(t))

	_, err := svc.GetRecord(context.Background(), "FEE_TRAD_missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestListCallbacks(t *testing.T) {
	ledger := newMemLedger()
	order := newIssuedOrder(t, ledger)
	svc := NewRecordService(ledger, ledger, newMapCache(), zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, ledger.RecordEvent(ctx, &domain.CallbackEvent{OrderID: order, Outcome: domain.CallbackHashMismatch}))
	require.NoError(t, ledger.RecordEvent(ctx, &domain.CallbackEvent{OrderID: "other", Outcome: domain.CallbackApplied}))

	got, err := svc.ListCallbacks(ctx, order)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.CallbackHashMismatch, got[0].Outcome)

	_, err = svc.ListCallbacks(ctx, "FEE_TRAD_missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func newIssuedOrder(t *testing.T, ledger *memLedger) string {
	t.Helper()
	got, err := newIssuer(t, 1, ledger, unusedGateway(t)).IssueOrder(context.Background(), validInput())
	require.NoError(t, err)
	return got.OrderID
}
