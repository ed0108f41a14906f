package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
	"github.com/smallbiznis/frontdesk/internal/observability/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type runRequest struct {
	day        day
	OperatorID string
	Method     domain.CompletionMethod
	// RequireEmpty completes the day only when nothing is pending.
	RequireEmpty bool
	IPAddress    string
	UserAgent    string
}

type runOutcome struct {
	AlreadyCompleted bool
	Record           *domain.DailyCompletionRecord
	// Pending is set when RequireEmpty found work left to do.
	Pending []domain.PendingBooking
	// Batch is nil when the day completed with nothing pending.
	Batch *domain.BatchResult
}

// execute is the single serialized path that completes a day:
// claim, re-check, resolve, process, mark completed and acknowledge,
// all in one transaction. Notifications follow the commit.
func (s *Service) execute(ctx context.Context, req runRequest) (runOutcome, error) {
	ctx = context.WithoutCancel(ctx)
	log := logger.WithContext(ctx, s.log).With(
		zap.String("date", req.day.date),
		zap.String("method", string(req.Method)),
		zap.String("operator_id", req.OperatorID),
	)

	var (
		out       runOutcome
		completed []domain.PendingBooking
	)
	claimStarted := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.claim(ctx, tx, req.day)
		if err != nil {
			return fmt.Errorf("claim completion: %w", err)
		}
		log.Debug("autocheckout.claim.acquired", zap.Duration("wait", time.Since(claimStarted)))
		if record.IsCompleted {
			out.AlreadyCompleted = true
			out.Record = record
			return nil
		}

		pending, err := s.resolvePending(ctx, tx, req.day.date, req.day.loc)
		if err != nil {
			return fmt.Errorf("resolve pending: %w", err)
		}
		if req.RequireEmpty && len(pending) > 0 {
			out.Pending = pending
			return nil
		}

		c := completion{OperatorID: req.OperatorID, Method: req.Method}
		if len(pending) > 0 {
			result, done, err := s.process(ctx, tx, pending, batchInput{
				day:        req.day,
				OperatorID: req.OperatorID,
				Method:     req.Method,
				RunID:      newRunID(s.clock.Now()),
			})
			if err != nil {
				return err
			}
			out.Batch = &result
			completed = done
			c.Found = result.Found
			c.Successful = result.Successful
			c.Failed = result.Failed
			if result.Failed > 0 {
				c.ErrorMessage = fmt.Sprintf("%d of %d bookings failed", result.Failed, result.Found)
			}
		}

		record, err = s.markCompleted(ctx, tx, req.day, c)
		if err != nil {
			return fmt.Errorf("mark completed: %w", err)
		}
		out.Record = record

		if req.Method == domain.CompletionMethodInteractive && !req.RequireEmpty {
			now := s.clock.Now().UTC()
			if err := s.repo.MarkActionTaken(ctx, tx, &domain.OperatorDailyAck{
				ID:            s.genID.Generate(),
				OperatorID:    req.OperatorID,
				Date:          req.day.date,
				PromptShown:   true,
				ActionTaken:   true,
				FirstSeenAt:   now,
				LastSeenAt:    now,
				ActionTakenAt: &now,
				IPAddress:     req.IPAddress,
				UserAgent:     req.UserAgent,
				CreatedAt:     now,
				UpdatedAt:     now,
			}); err != nil {
				return fmt.Errorf("mark action taken: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		log.Error("autocheckout.run.failed", zap.Error(err))
		return runOutcome{}, err
	}

	switch {
	case out.AlreadyCompleted:
		log.Info("autocheckout.run.already_completed")
	case out.Pending != nil:
		log.Debug("autocheckout.run.pending_found", zap.Int("pending", len(out.Pending)))
	case out.Batch == nil:
		log.Info("autocheckout.run.nothing_pending")
		s.metrics.ObserveBatch(string(req.Method), string(domain.ExecutionStatusSuccess), 0, 0, 0)
	default:
		out.Batch.Notifications = s.notify(ctx, req.day, completed)
		s.metrics.ObserveBatch(string(req.Method), string(out.Batch.Status), out.Batch.Successful, out.Batch.Failed,
			time.Duration(out.Batch.DurationSeconds*float64(time.Second)))
		log.Info("autocheckout.batch.finish",
			zap.String("run_id", out.Batch.RunID),
			zap.Int("found", out.Batch.Found),
			zap.Int("successful", out.Batch.Successful),
			zap.Int("failed", out.Batch.Failed),
			zap.String("status", string(out.Batch.Status)),
			zap.Float64("duration_seconds", out.Batch.DurationSeconds),
		)
	}
	return out, nil
}

func newRunID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}
