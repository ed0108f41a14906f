package service

import (
	"context"
	"fmt"

	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
	"github.com/smallbiznis/frontdesk/internal/observability/logger"
	"github.com/smallbiznis/frontdesk/internal/observability/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RunFallback completes today on behalf of the system when no operator
// handled it inside the fallback window.
func (s *Service) RunFallback(ctx context.Context) (domain.FallbackResult, error) {
	ctx, span := s.tracer.Start(ctx, "autocheckout.RunFallback")
	defer span.End()

	d, err := s.today()
	if err != nil {
		return domain.FallbackResult{}, err
	}
	result := domain.FallbackResult{Date: d.date, CurrentTime: d.localTime()}

	if !d.settings.Enabled {
		result.Success = true
		return s.fellBack(ctx, result, domain.FallbackActionDisabled, "Auto checkout is disabled"), nil
	}

	windowEnd := d.target.Add(d.settings.FallbackWindow)
	if d.now.Before(d.target) || d.now.After(windowEnd) {
		return s.fellBack(ctx, result, domain.FallbackActionOutOfWindow,
			fmt.Sprintf("Outside fallback window %s-%s", d.targetClock(), windowEnd.In(d.loc).Format("15:04"))), nil
	}

	completed, _, err := s.isCompleted(ctx, s.db, d.date)
	if err != nil {
		return s.fallbackFailed(span, err)
	}
	if completed {
		result.Success = true
		return s.fellBack(ctx, result, domain.FallbackActionNoneRequired, "Auto checkout already completed today"), nil
	}

	seen, err := s.repo.AnyOperatorSeenSince(ctx, s.db, d.date, d.target)
	if err != nil {
		return s.fallbackFailed(span, err)
	}
	if seen {
		result.Success = true
		return s.fellBack(ctx, result, domain.FallbackActionWaitingOnOperator, "An operator is active; deferring to the prompt"), nil
	}
	if d.now.Before(d.target.Add(d.settings.GracePeriod)) {
		result.Success = true
		return s.fellBack(ctx, result, domain.FallbackActionWaiting,
			fmt.Sprintf("Waiting for grace period until %s", d.target.Add(d.settings.GracePeriod).In(d.loc).Format("15:04"))), nil
	}

	out, err := s.execute(ctx, runRequest{
		day:        d,
		OperatorID: domain.SystemOperatorID,
		Method:     domain.CompletionMethodFallback,
	})
	if err != nil {
		return s.fallbackFailed(span, err)
	}
	if out.AlreadyCompleted {
		result.Success = true
		return s.fellBack(ctx, result, domain.FallbackActionNoneRequired, "Auto checkout already completed elsewhere"), nil
	}

	batch := out.Batch
	if batch == nil {
		batch = &domain.BatchResult{
			Date:           d.date,
			Method:         domain.CompletionMethodFallback,
			Status:         domain.ExecutionStatusSuccess,
			ProcessedRooms: []string{},
			FailedRooms:    []domain.FailedRoom{},
		}
	}
	result.Result = batch
	result.Success = batch.Status != domain.ExecutionStatusFailed
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("autocheckout.run_id", batch.RunID),
		attribute.Int("autocheckout.successful", batch.Successful),
		attribute.Int("autocheckout.failed", batch.Failed),
	)...)
	return s.fellBack(ctx, result, domain.FallbackActionBatchExecuted,
		fmt.Sprintf("Fallback checkout completed: %d successful, %d failed", batch.Successful, batch.Failed)), nil
}

func (s *Service) fellBack(ctx context.Context, result domain.FallbackResult, action domain.FallbackAction, message string) domain.FallbackResult {
	result.Action = action
	result.Message = message
	s.metrics.IncFallback(string(action))
	s.otelMetrics.RecordFallback(ctx, string(action))
	logger.WithContext(ctx, s.log).Info("autocheckout.fallback",
		zap.String("date", result.Date),
		zap.String("action", string(action)),
		zap.Bool("success", result.Success),
	)
	return result
}

func (s *Service) fallbackFailed(span trace.Span, err error) (domain.FallbackResult, error) {
	recordSpanError(span, err, "fallback failed")
	return domain.FallbackResult{}, err
}
