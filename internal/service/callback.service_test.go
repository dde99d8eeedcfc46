package service

import (
	"context"
	"sync"
	"testing"

	"course-fee-gateway/internal/checksum"
	"course-fee-gateway/internal/clock"
	"course-fee-gateway/internal/domain"
	"course-fee-gateway/internal/events"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

var engine = checksum.New("K", "S")

type callbackFixture struct {
	ledger    *memLedger
	publisher *recordingPublisher
	verifier  CallbackService
	issuer    OrderService
	records   RecordService
}

func newCallbackFixture(t *testing.T, logger *zap.Logger) *callbackFixture {
	t.Helper()
	if logger == nil {
		logger = zaptest.NewLogger(t)
	}
	f := &callbackFixture{ledger: newMemLedger(), publisher: &recordingPublisher{}}
	f.verifier = NewCallbackService(f.ledger, f.ledger, engine, f.publisher, clock.NewFixed(now), logger)
	f.issuer = newIssuer(t, 1, f.ledger, unusedGateway(t))
	f.records = NewRecordService(f.ledger, f.ledger, newMapCache(), logger)
	return f
}

func (f *callbackFixture) issue(t *testing.T) *IssuedOrder {
	t.Helper()
	got, err := f.issuer.IssueOrder(context.Background(), validInput())
	require.NoError(t, err)
	return got
}

// signed builds the callback the gateway would post for order with status.
func signed(orderID, status string) CallbackPayload {
	fields := checksum.PaymentFields{
		TxnID:       orderID,
		Amount:      "500.00",
		ProductInfo: "BTech CS",
		FirstName:   "Sita Rao",
		Email:       "s@college.edu",
	}
	fields.UDF[0] = "BTech CS"
	fields.UDF[1] = "SPIT"
	return CallbackPayload{
		Status:     status,
		GatewayRef: "E2603011234",
		Hash:       engine.ResponseHash(status, fields),
		Fields:     fields,
	}
}

func TestVerifyCallback_SuccessReplayConflict(t *testing.T) {
	f := newCallbackFixture(t, nil)
	ctx := context.Background()
	order := f.issue(t)

	res, err := f.verifier.VerifyCallback(ctx, signed(order.OrderID, "success"))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, domain.OrderSuccess, res.Status)
	assert.Equal(t, domain.CallbackApplied, res.Outcome)

	rec, err := f.records.GetRecord(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderSuccess, rec.Status)
	assert.True(t, rec.Amount.Equal(decimal.RequireFromString("500")))
	assert.Equal(t, "s@college.edu", rec.Email)
	assert.Equal(t, "E2603011234", rec.PaymentID)

	res, err = f.verifier.VerifyCallback(ctx, signed(order.OrderID, "success"))
	require.NoError(t, err)
	assert.Equal(t, domain.CallbackReplayed, res.Outcome)
	assert.Equal(t, domain.OrderSuccess, res.Status)

	res, err = f.verifier.VerifyCallback(ctx, signed(order.OrderID, "failure"))
	assert.ErrorIs(t, err, domain.ErrConflictingTransition)
	assert.True(t, res.Accepted)
	assert.Equal(t, domain.CallbackConflict, res.Outcome)
	assert.Equal(t, domain.OrderSuccess, res.Status)

	stored, err := f.ledger.FindByOrderID(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderSuccess, stored.Status)

	assert.Equal(t, []domain.CallbackOutcome{
		domain.CallbackApplied, domain.CallbackReplayed, domain.CallbackConflict,
	}, f.ledger.outcomes())

	require.Len(t, f.publisher.events, 2)
	assert.Equal(t, events.EventPaymentSucceeded, f.publisher.events[0].EventType)
	assert.Equal(t, "500.00", f.publisher.events[0].Amount)
	assert.Equal(t, events.EventTransitionConflict, f.publisher.events[1].EventType)
	assert.Equal(t, "success", f.publisher.events[1].Status)
	assert.Equal(t, "failure", f.publisher.events[1].ClaimedStatus)
}

func TestVerifyCallback_ConflictLoggedAtError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	f := newCallbackFixture(t, zap.New(core))
	ctx := context.Background()
	order := f.issue(t)

	_, err := f.verifier.VerifyCallback(ctx, signed(order.OrderID, "failure"))
	require.NoError(t, err)
	_, err = f.verifier.VerifyCallback(ctx, signed(order.OrderID, "success"))
	require.ErrorIs(t, err, domain.ErrConflictingTransition)

	entries := logs.FilterMessage("conflicting terminal callback, ledger unchanged").All()
	require.Len(t, entries, 1)
	ctxMap := entries[0].ContextMap()
	assert.Equal(t, order.OrderID, ctxMap["order_id"])
	assert.Equal(t, "stored=failure claimed=success", ctxMap["detail"])
}

func TestVerifyCallback_HashMismatch(t *testing.T) {
	f := newCallbackFixture(t, nil)
	ctx := context.Background()
	order := f.issue(t)

	tampered := signed(order.OrderID, "success")
	tampered.Fields.Amount = "1.00"

	res, err := f.verifier.VerifyCallback(ctx, tampered)
	assert.ErrorIs(t, err, domain.ErrHashMismatch)
	assert.False(t, res.Accepted)
	assert.Equal(t, domain.CallbackHashMismatch, res.Outcome)
	assert.Zero(t, f.ledger.transitions, "ledger must not be touched")

	forged := signed(order.OrderID, "failure")
	forged.Status = "success"
	_, err = f.verifier.VerifyCallback(ctx, forged)
	assert.ErrorIs(t, err, domain.ErrHashMismatch)

	empty := signed(order.OrderID, "success")
	empty.Hash = ""
	_, err = f.verifier.VerifyCallback(ctx, empty)
	assert.ErrorIs(t, err, domain.ErrHashMismatch)

	stored, err := f.ledger.FindByOrderID(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, stored.Status)
	assert.Empty(t, f.publisher.events)
}

func TestVerifyCallback_StatusMapping(t *testing.T) {
	tests := []struct {
		gateway string
		want    domain.OrderStatus
	}{
		{"success", domain.OrderSuccess},
		{"failure", domain.OrderFailure},
		{"usercancelled", domain.OrderFailure},
		{"dropped", domain.OrderFailure},
		{"bounced", domain.OrderFailure},
	}
	for _, tt := range tests {
		t.Run(tt.gateway, func(t *testing.T) {
			f := newCallbackFixture(t, nil)
			order := f.issue(t)

			res, err := f.verifier.VerifyCallback(context.Background(), signed(order.OrderID, tt.gateway))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Status)
			assert.Equal(t, domain.CallbackApplied, res.Outcome)
		})
	}
}

func TestVerifyCallback_UnrecognizedStatus(t *testing.T) {
	for _, status := range []string{"pending", "initiated", "refunded", ""} {
		t.Run(status, func(t *testing.T) {
			f := newCallbackFixture(t, nil)
			order := f.issue(t)

			res, err := f.verifier.VerifyCallback(context.Background(), signed(order.OrderID, status))
			assert.True(t, domain.IsValidation(err))
			assert.True(t, res.Accepted)
			assert.Equal(t, domain.CallbackRejected, res.Outcome)
			assert.Zero(t, f.ledger.transitions)
		})
	}
}

func TestVerifyCallback_UnknownOrder(t *testing.T) {
	f := newCallbackFixture(t, nil)
	f.issue(t)

	res, err := f.verifier.VerifyCallback(context.Background(), signed("FEE_TRAD_0_deadbeef", "success"))
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.True(t, res.Accepted)
	assert.Equal(t, domain.CallbackUnknownOrder, res.Outcome)
	assert.Empty(t, f.publisher.events)
}

func TestVerifyCallback_ConcurrentCallbacks(t *testing.T) {
	f := newCallbackFixture(t, nil)
	order := f.issue(t)

	var wg sync.WaitGroup
	for i := range 10 {
		status := "success"
		if i%2 == 1 {
			status = "failure"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.verifier.VerifyCallback(context.Background(), signed(order.OrderID, status))
		}()
	}
	wg.Wait()

	counts := map[domain.CallbackOutcome]int{}
	for _, o := range f.ledger.outcomes() {
		counts[o]++
	}
	assert.Equal(t, 1, counts[domain.CallbackApplied])
	assert.Equal(t, 4, counts[domain.CallbackReplayed])
	assert.Equal(t, 5, counts[domain.CallbackConflict])
}
