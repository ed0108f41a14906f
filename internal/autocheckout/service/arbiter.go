package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
	"github.com/smallbiznis/frontdesk/internal/observability/logger"
	"github.com/smallbiznis/frontdesk/internal/observability/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CheckPrompt decides whether operatorID must be shown the checkout prompt.
// Checks short-circuit in order: disabled, too early, day completed,
// operator already acted, recent acknowledgement on a poll, nothing pending.
func (s *Service) CheckPrompt(ctx context.Context, req domain.CheckPromptRequest) (domain.PromptDecision, error) {
	ctx, span := s.tracer.Start(ctx, "autocheckout.CheckPrompt")
	defer span.End()

	operatorID, err := normalizeOperatorID(req.OperatorID)
	if err != nil {
		return domain.PromptDecision{}, err
	}
	d, err := s.today()
	if err != nil {
		return domain.PromptDecision{}, err
	}
	decision := domain.PromptDecision{Date: d.date, TargetTime: d.settings.TargetTime}

	if !d.settings.Enabled {
		return s.decide(ctx, decision, domain.PromptStateDisabled, "Auto checkout is disabled"), nil
	}
	if d.now.Before(d.target) {
		return s.decide(ctx, decision, domain.PromptStateTooEarly,
			fmt.Sprintf("Auto checkout prompt appears after %s", d.targetClock())), nil
	}

	completed, record, err := s.isCompleted(ctx, s.db, d.date)
	if err != nil {
		return s.fail(span, err)
	}
	if completed {
		decision.CompletedAt = record.CompletedAt
		return s.decide(ctx, decision, domain.PromptStateAlreadyCompleted, "Auto checkout already completed today"), nil
	}

	ack, err := s.observe(ctx, d, operatorID, req.IPAddress, req.UserAgent)
	if err != nil {
		return s.fail(span, err)
	}
	if ack != nil && ack.ActionTaken {
		return s.decide(ctx, decision, domain.PromptStateAlreadyAcked, "Auto checkout already processed by this operator today"), nil
	}
	if req.Poll && ack != nil && ack.PromptAckedAt != nil && d.now.Sub(*ack.PromptAckedAt) < d.settings.PromptCooldown {
		return s.decide(ctx, decision, domain.PromptStateSuppressed, "Prompt acknowledged recently"), nil
	}

	pending, err := s.resolvePending(ctx, s.db, d.date, d.loc)
	if err != nil {
		return s.fail(span, err)
	}
	if len(pending) == 0 {
		out, err := s.execute(ctx, runRequest{
			day:          d,
			OperatorID:   operatorID,
			Method:       domain.CompletionMethodInteractive,
			RequireEmpty: true,
		})
		if err != nil {
			return s.fail(span, err)
		}
		switch {
		case out.AlreadyCompleted:
			if out.Record != nil {
				decision.CompletedAt = out.Record.CompletedAt
			}
			return s.decide(ctx, decision, domain.PromptStateAlreadyCompleted, "Auto checkout already completed today"), nil
		case len(out.Pending) == 0:
			if out.Record != nil {
				decision.CompletedAt = out.Record.CompletedAt
			}
			return s.decide(ctx, decision, domain.PromptStateNothingPending, "No rooms require auto checkout today"), nil
		}
		// Bookings became due between the read and the claim.
		pending = out.Pending
	}

	if err := s.repo.MarkPromptShown(ctx, s.db, operatorID, d.date, d.now); err != nil {
		return s.fail(span, err)
	}
	decision.ShowPrompt = true
	decision.PendingRooms = pending
	decision.TotalRooms = len(pending)
	return s.decide(ctx, decision, domain.PromptStateRequired,
		fmt.Sprintf("%d rooms require auto checkout", len(pending))), nil
}

// observe records that the operator was active after the target time.
func (s *Service) observe(ctx context.Context, d day, operatorID, ip, userAgent string) (*domain.OperatorDailyAck, error) {
	if err := s.repo.RecordObservation(ctx, s.db, &domain.OperatorDailyAck{
		ID:          s.genID.Generate(),
		OperatorID:  operatorID,
		Date:        d.date,
		FirstSeenAt: d.now,
		LastSeenAt:  d.now,
		IPAddress:   strings.TrimSpace(ip),
		UserAgent:   strings.TrimSpace(userAgent),
		CreatedAt:   d.now,
		UpdatedAt:   d.now,
	}); err != nil {
		return nil, err
	}
	return s.repo.FindAck(ctx, s.db, operatorID, d.date)
}

func (s *Service) decide(ctx context.Context, decision domain.PromptDecision, state domain.PromptState, message string) domain.PromptDecision {
	decision.Reason = state
	decision.Message = message
	s.metrics.IncDecision("prompt", string(state))
	s.otelMetrics.RecordPromptCheck(ctx, string(state))
	logger.WithContext(ctx, s.log).Debug("autocheckout.prompt.decision",
		zap.String("date", decision.Date),
		zap.String("state", string(state)),
		zap.Int("total_rooms", decision.TotalRooms),
	)
	return decision
}

func (s *Service) fail(span trace.Span, err error) (domain.PromptDecision, error) {
	recordSpanError(span, err, "prompt check failed")
	return domain.PromptDecision{}, err
}

func (s *Service) AckPromptShown(ctx context.Context, req domain.AckPromptRequest) (domain.AckResult, error) {
	operatorID, err := normalizeOperatorID(req.OperatorID)
	if err != nil {
		return domain.AckResult{}, err
	}
	d, err := s.today()
	if err != nil {
		return domain.AckResult{}, err
	}
	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = d.date
	}
	if _, err := time.ParseInLocation(domain.DateLayout, date, d.loc); err != nil {
		return domain.AckResult{}, domain.ErrInvalidDate
	}

	affected, err := s.repo.MarkPromptAcked(ctx, s.db, operatorID, date, d.now)
	if err != nil {
		return domain.AckResult{}, err
	}
	return domain.AckResult{Success: affected > 0}, nil
}

// ConfirmAction runs the batch on behalf of an operator. Today is rejected
// before the target time; past dates are allowed; future dates are invalid.
func (s *Service) ConfirmAction(ctx context.Context, req domain.ConfirmRequest) (domain.ConfirmResult, error) {
	ctx, span := s.tracer.Start(ctx, "autocheckout.ConfirmAction")
	defer span.End()

	operatorID, err := normalizeOperatorID(req.OperatorID)
	if err != nil {
		return domain.ConfirmResult{}, err
	}
	today, err := s.today()
	if err != nil {
		return domain.ConfirmResult{}, err
	}

	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = today.date
	}
	if _, err := time.ParseInLocation(domain.DateLayout, date, today.loc); err != nil {
		return domain.ConfirmResult{}, domain.ErrInvalidDate
	}
	if date > today.date {
		return domain.ConfirmResult{}, domain.ErrFutureDate
	}
	d, err := s.dayFor(today.settings, today.loc, today.now, date)
	if err != nil {
		return domain.ConfirmResult{}, err
	}
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("autocheckout.date", date),
		attribute.String("operator.id", operatorID),
	)...)

	result := domain.ConfirmResult{
		Date:           date,
		ProcessedRooms: []string{},
		FailedRooms:    []domain.FailedRoom{},
	}
	if !d.settings.Enabled {
		return s.confirmed(ctx, result, domain.ConfirmOutcomeDisabled, "Auto checkout is disabled"), nil
	}
	if date == today.date && d.now.Before(d.target) {
		return s.confirmed(ctx, result, domain.ConfirmOutcomeTooEarly,
			fmt.Sprintf("Auto checkout is available after %s", d.targetClock())), nil
	}

	out, err := s.execute(ctx, runRequest{
		day:        d,
		OperatorID: operatorID,
		Method:     domain.CompletionMethodInteractive,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
	})
	if err != nil {
		recordSpanError(span, err, "confirm failed")
		return domain.ConfirmResult{}, err
	}
	if out.AlreadyCompleted {
		return s.confirmed(ctx, result, domain.ConfirmOutcomeAlreadyCompleted, "Auto checkout already completed elsewhere"), nil
	}

	result.Success = true
	if out.Batch == nil {
		return s.confirmed(ctx, result, domain.ConfirmOutcomeExecuted, "No rooms required auto checkout"), nil
	}
	result.RunID = out.Batch.RunID
	result.RoomsProcessed = out.Batch.Found
	result.Successful = out.Batch.Successful
	result.Failed = out.Batch.Failed
	result.ProcessedRooms = out.Batch.ProcessedRooms
	result.FailedRooms = out.Batch.FailedRooms
	result.DurationSeconds = out.Batch.DurationSeconds
	result.Notifications = out.Batch.Notifications
	return s.confirmed(ctx, result, domain.ConfirmOutcomeExecuted,
		fmt.Sprintf("Auto checkout completed: %d successful, %d failed", out.Batch.Successful, out.Batch.Failed)), nil
}

func (s *Service) confirmed(ctx context.Context, result domain.ConfirmResult, outcome domain.ConfirmOutcome, message string) domain.ConfirmResult {
	result.Outcome = outcome
	result.Message = message
	s.metrics.IncDecision("confirm", string(outcome))
	s.otelMetrics.RecordConfirm(ctx, string(outcome))
	logger.WithContext(ctx, s.log).Info("autocheckout.confirm",
		zap.String("date", result.Date),
		zap.String("outcome", string(outcome)),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed),
	)
	return result
}

// normalizeOperatorID rejects blank ids and the id reserved for fallback runs.
func normalizeOperatorID(raw string) (string, error) {
	operatorID := strings.TrimSpace(raw)
	if operatorID == "" || strings.EqualFold(operatorID, domain.SystemOperatorID) {
		return "", domain.ErrInvalidOperator
	}
	return operatorID, nil
}
