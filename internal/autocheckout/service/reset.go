package service

import (
	"context"

	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
	"github.com/smallbiznis/frontdesk/internal/observability/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Reset clears today's ledger row, audit rows and acks, and releases the
// processed flag on every open booking so the day can run again.
func (s *Service) Reset(ctx context.Context, req domain.ResetRequest) (domain.ResetResult, error) {
	operatorID, err := normalizeOperatorID(req.OperatorID)
	if err != nil {
		return domain.ResetResult{}, err
	}
	d, err := s.today()
	if err != nil {
		return domain.ResetResult{}, err
	}

	result := domain.ResetResult{Date: d.date}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cleared, err := s.repo.DeleteCompletion(ctx, tx, d.date)
		if err != nil {
			return err
		}
		result.CompletionCleared = cleared > 0
		if result.CheckoutLogsDeleted, err = s.repo.DeleteCheckoutLogs(ctx, tx, d.date); err != nil {
			return err
		}
		if result.ExecutionLogsDeleted, err = s.repo.DeleteExecutionLogs(ctx, tx, d.date); err != nil {
			return err
		}
		if result.AcksDeleted, err = s.repo.DeleteAcks(ctx, tx, d.date); err != nil {
			return err
		}
		result.BookingsReset, err = s.repo.ResetProcessedFlags(ctx, tx)
		return err
	})
	if err != nil {
		return domain.ResetResult{}, err
	}

	logger.WithContext(ctx, s.log).Warn("autocheckout.reset",
		zap.String("date", d.date),
		zap.String("operator_id", operatorID),
		zap.Bool("completion_cleared", result.CompletionCleared),
		zap.Int64("checkout_logs_deleted", result.CheckoutLogsDeleted),
		zap.Int64("execution_logs_deleted", result.ExecutionLogsDeleted),
		zap.Int64("acks_deleted", result.AcksDeleted),
		zap.Int64("bookings_reset", result.BookingsReset),
	)
	return result, nil
}
