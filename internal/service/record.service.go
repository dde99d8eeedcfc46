package service

import (
	"context"
	"errors"

	"course-fee-gateway/internal/cache"
	"course-fee-gateway/internal/domain"
	"course-fee-gateway/internal/repo"
	"course-fee-gateway/internal/telemetry"

	"go.uber.org/zap"
)

type RecordService interface {
	GetRecord(ctx context.Context, orderID string) (*domain.RecordSummary, error)
	ListCallbacks(ctx context.Context, orderID string) ([]domain.CallbackEvent, error)
}

type recordService struct {
	recordRepo   repo.RecordRepo
	callbackRepo repo.CallbackRepo
	cache        cache.RecordCache
	logger       *zap.Logger
}

func NewRecordService(recordRepo repo.RecordRepo, callbackRepo repo.CallbackRepo, recordCache cache.RecordCache, logger *zap.Logger) RecordService {
	return &recordService{
		recordRepo:   recordRepo,
		callbackRepo: callbackRepo,
		cache:        recordCache,
		logger:       logger,
	}
}

// GetRecord returns the joined order summary. Terminal records are served
// from cache when available; the ledger is always authoritative for pending
// ones.
func (s *recordService) GetRecord(ctx context.Context, orderID string) (*domain.RecordSummary, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "RecordService.GetRecord")
	defer span.End()

	if rec, err := s.cache.Get(ctx, orderID); err == nil {
		return rec, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("record cache read failed", zap.String("order_id", orderID), zap.Error(err))
	}

	rec, err := s.recordRepo.FindSummary(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, rec); err != nil {
		s.logger.Warn("record cache write failed", zap.String("order_id", orderID), zap.Error(err))
	}
	return rec, nil
}

func (s *recordService) ListCallbacks(ctx context.Context, orderID string) ([]domain.CallbackEvent, error) {
	if _, err := s.GetRecord(ctx, orderID); err != nil {
		return nil, err
	}
	return s.callbackRepo.ListByOrderID(ctx, orderID)
}
