package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"course-fee-gateway/internal/checksum"
	"course-fee-gateway/internal/clock"
	"course-fee-gateway/internal/domain"
	"course-fee-gateway/internal/events"
	"course-fee-gateway/internal/repo"
	"course-fee-gateway/internal/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type CallbackService interface {
	VerifyCallback(ctx context.Context, p CallbackPayload) (*CallbackResult, error)
}

// CallbackPayload is the gateway's result post. Everything except the hash
// is untrusted until VerifyCallback has checked it.
type CallbackPayload struct {
	Status     string
	GatewayRef string
	Hash       string
	Fields     checksum.PaymentFields
}

type CallbackResult struct {
	// Accepted is true once the hash has been verified.
	Accepted bool
	OrderID  string
	// Status is the ledger status after handling the callback.
	Status  domain.OrderStatus
	Outcome domain.CallbackOutcome
}

type callbackService struct {
	orderRepo    repo.OrderRepo
	callbackRepo repo.CallbackRepo
	engine       *checksum.Engine
	publisher    events.Publisher
	clock        clock.Clock
	logger       *zap.Logger
}

func NewCallbackService(
	orderRepo repo.OrderRepo,
	callbackRepo repo.CallbackRepo,
	engine *checksum.Engine,
	publisher events.Publisher,
	clk clock.Clock,
	logger *zap.Logger,
) CallbackService {
	return &callbackService{
		orderRepo:    orderRepo,
		callbackRepo: callbackRepo,
		engine:       engine,
		publisher:    publisher,
		clock:        clk,
		logger:       logger,
	}
}

// mapGatewayStatus folds the gateway's status vocabulary onto the ledger.
// Only final outcomes are accepted.
func mapGatewayStatus(raw string) (domain.OrderStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success":
		return domain.OrderSuccess, nil
	case "failure", "usercancelled", "dropped", "bounced":
		return domain.OrderFailure, nil
	default:
		return "", domain.NewValidationError("status", "unrecognized gateway status")
	}
}

func (s *callbackService) VerifyCallback(ctx context.Context, p CallbackPayload) (*CallbackResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "CallbackService.VerifyCallback")
	defer span.End()

	orderID := p.Fields.TxnID
	span.SetAttributes(attribute.String("order.id", orderID))
	res := &CallbackResult{OrderID: orderID, Status: domain.OrderFailure}
	log := s.logger.With(
		zap.String("trace_id", telemetry.GetTraceID(ctx)),
		zap.String("order_id", orderID),
		zap.String("claimed_status", p.Status),
	)

	// The hash covers the status string exactly as the gateway sent it.
	if !s.engine.VerifyResponse(p.Status, p.Fields, p.Hash) {
		res.Outcome = domain.CallbackHashMismatch
		log.Warn("callback rejected: hash mismatch")
		s.audit(ctx, p, res.Outcome, "")
		return res, domain.ErrHashMismatch
	}
	res.Accepted = true

	status, err := mapGatewayStatus(p.Status)
	if err != nil {
		res.Outcome = domain.CallbackRejected
		log.Warn("callback rejected: unrecognized status")
		s.audit(ctx, p, res.Outcome, "unrecognized status")
		return res, err
	}

	order, outcome, err := s.orderRepo.TransitionStatus(ctx, orderID, status, p.GatewayRef, s.clock.Now())
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		res.Outcome = domain.CallbackUnknownOrder
		log.Warn("authenticated callback for unknown order")
		s.audit(ctx, p, res.Outcome, "")
		return res, err

	case errors.Is(err, domain.ErrConflictingTransition):
		res.Outcome = domain.CallbackConflict
		detail := fmt.Sprintf("claimed=%s", status)
		if order != nil {
			res.Status = order.Status
			detail = fmt.Sprintf("stored=%s claimed=%s", order.Status, status)
		}
		log.Error("conflicting terminal callback, ledger unchanged", zap.String("detail", detail))
		s.audit(ctx, p, res.Outcome, detail)
		s.publish(ctx, events.EventTransitionConflict, order, p, status)
		return res, err

	case err != nil:
		res.Outcome = domain.CallbackError
		span.RecordError(err)
		log.Error("callback transition failed", zap.Error(err))
		s.audit(ctx, p, res.Outcome, "ledger error")
		return res, err
	}

	res.Status = order.Status
	if outcome == domain.TransitionReplayed {
		res.Outcome = domain.CallbackReplayed
		log.Info("callback replayed, no change")
		s.audit(ctx, p, res.Outcome, "")
		return res, nil
	}

	res.Outcome = domain.CallbackApplied
	log.Info("order status updated", zap.String("status", string(order.Status)))
	s.audit(ctx, p, res.Outcome, "")
	eventType := events.EventPaymentSucceeded
	if order.Status == domain.OrderFailure {
		eventType = events.EventPaymentFailed
	}
	s.publish(ctx, eventType, order, p, status)
	return res, nil
}

// audit records the callback and its outcome. Failures are logged only.
func (s *callbackService) audit(ctx context.Context, p CallbackPayload, outcome domain.CallbackOutcome, detail string) {
	telemetry.RecordCallback(string(outcome))
	event := &domain.CallbackEvent{
		ID:            uuid.New(),
		OrderID:       p.Fields.TxnID,
		ClaimedStatus: p.Status,
		GatewayRef:    p.GatewayRef,
		Outcome:       outcome,
		Detail:        detail,
		ReceivedAt:    s.clock.Now(),
	}
	if err := s.callbackRepo.RecordEvent(ctx, event); err != nil {
		s.logger.Warn("callback event not recorded",
			zap.String("order_id", p.Fields.TxnID),
			zap.Error(err),
		)
	}
}

func (s *callbackService) publish(ctx context.Context, eventType string, order *domain.Order, p CallbackPayload, claimed domain.OrderStatus) {
	event := events.PaymentEvent{
		EventType:     eventType,
		OrderID:       p.Fields.TxnID,
		ClaimedStatus: string(claimed),
		GatewayRef:    p.GatewayRef,
		OccurredAt:    s.clock.Now(),
	}
	if order != nil {
		event.Status = string(order.Status)
		event.Amount = order.Amount.StringFixed(2)
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("payment event not published",
			zap.String("order_id", p.Fields.TxnID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
