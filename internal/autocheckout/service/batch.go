package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
	"github.com/smallbiznis/frontdesk/internal/observability/logger"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type batchInput struct {
	day        day
	OperatorID string
	Method     domain.CompletionMethod
	RunID      string
}

// process checks out every booking of pending inside tx. Each booking runs
// under its own savepoint so a failed item rolls back alone. The returned
// slice holds the bookings that were checked out, in resolved order.
func (s *Service) process(ctx context.Context, tx *gorm.DB, pending []domain.PendingBooking, in batchInput) (domain.BatchResult, []domain.PendingBooking, error) {
	log := logger.WithContext(ctx, s.log).With(
		zap.String("run_id", in.RunID),
		zap.String("date", in.day.date),
		zap.String("method", string(in.Method)),
	)
	started := time.Now()
	checkoutAt := in.day.target

	result := domain.BatchResult{
		RunID:          in.RunID,
		Date:           in.day.date,
		Method:         in.Method,
		Found:          len(pending),
		ProcessedRooms: []string{},
		FailedRooms:    []domain.FailedRoom{},
	}
	failedDetail := make([]domain.FailedBooking, 0)
	completed := make([]domain.PendingBooking, 0, len(pending))

	log.Info("autocheckout.batch.start", zap.Int("found", len(pending)))

	for i, item := range pending {
		savepoint := fmt.Sprintf("auto_checkout_%d", i)
		if err := tx.SavePoint(savepoint).Error; err != nil {
			return domain.BatchResult{}, nil, fmt.Errorf("savepoint: %w", err)
		}

		itemErr := s.checkoutOne(ctx, tx, item, in, checkoutAt)
		if itemErr == nil {
			result.Successful++
			result.ProcessedRooms = append(result.ProcessedRooms, item.ResourceName)
			completed = append(completed, item)
			continue
		}

		if err := tx.RollbackTo(savepoint).Error; err != nil {
			return domain.BatchResult{}, nil, fmt.Errorf("rollback to savepoint: %w", err)
		}
		log.Warn("autocheckout.booking.failed",
			zap.String("booking_id", item.BookingID.String()),
			zap.String("resource_name", item.ResourceName),
			zap.Error(itemErr),
		)

		failedEntry := &domain.CheckoutLogEntry{
			ID:           s.genID.Generate(),
			RunID:        in.RunID,
			BookingID:    item.BookingID,
			ResourceID:   item.ResourceID,
			ResourceName: item.ResourceName,
			GuestName:    item.GuestName,
			CheckoutDate: in.day.date,
			CheckoutAt:   checkoutAt,
			Outcome:      domain.CheckoutOutcomeFailed,
			Notes:        "Auto-checkout failed: " + itemErr.Error(),
			CreatedAt:    s.clock.Now().UTC(),
		}
		if err := s.repo.InsertCheckoutLog(ctx, tx, failedEntry); err != nil {
			return domain.BatchResult{}, nil, fmt.Errorf("record failed checkout: %w", err)
		}

		result.Failed++
		result.FailedRooms = append(result.FailedRooms, domain.FailedRoom{
			BookingID:    item.BookingID,
			ResourceName: item.ResourceName,
			GuestName:    item.GuestName,
			Reason:       failureReason(itemErr),
		})
		failedDetail = append(failedDetail, domain.FailedBooking{
			BookingID:    item.BookingID,
			ResourceName: item.ResourceName,
			GuestName:    item.GuestName,
			Error:        itemErr.Error(),
		})
	}

	result.Status = domain.ExecutionStatusFor(result.Successful, result.Failed)
	result.DurationSeconds = time.Since(started).Seconds()

	failedJSON, err := json.Marshal(failedDetail)
	if err != nil {
		return domain.BatchResult{}, nil, err
	}
	entry := &domain.ExecutionLogEntry{
		ID:                 s.genID.Generate(),
		RunID:              in.RunID,
		ExecutionDate:      in.day.date,
		ExecutedAt:         s.clock.Now().UTC(),
		Method:             in.Method,
		BookingsFound:      result.Found,
		BookingsProcessed:  result.Successful + result.Failed,
		BookingsSuccessful: result.Successful,
		BookingsFailed:     result.Failed,
		DurationSeconds:    result.DurationSeconds,
		Status:             result.Status,
		Notes:              executionNote(in),
		FailedBookings:     datatypes.JSON(failedJSON),
		CreatedAt:          s.clock.Now().UTC(),
	}
	if in.Method != domain.CompletionMethodFallback {
		operatorID := in.OperatorID
		entry.OperatorID = &operatorID
	}
	if err := s.repo.InsertExecutionLog(ctx, tx, entry); err != nil {
		return domain.BatchResult{}, nil, fmt.Errorf("record execution: %w", err)
	}

	return result, completed, nil
}

func (s *Service) checkoutOne(ctx context.Context, tx *gorm.DB, item domain.PendingBooking, in batchInput, checkoutAt time.Time) error {
	now := s.clock.Now().UTC()
	affected, err := s.repo.CompleteBooking(ctx, tx, domain.CompleteBookingParams{
		BookingID:   item.BookingID,
		CheckoutAt:  checkoutAt,
		Date:        in.day.date,
		ProcessedAt: now,
	})
	if err != nil {
		return fmt.Errorf("complete booking: %w", err)
	}
	if affected == 0 {
		return domain.ErrBookingAlreadyProcessed
	}

	return s.repo.InsertCheckoutLog(ctx, tx, &domain.CheckoutLogEntry{
		ID:           s.genID.Generate(),
		RunID:        in.RunID,
		BookingID:    item.BookingID,
		ResourceID:   item.ResourceID,
		ResourceName: item.ResourceName,
		GuestName:    item.GuestName,
		CheckoutDate: in.day.date,
		CheckoutAt:   checkoutAt,
		Outcome:      domain.CheckoutOutcomeSuccess,
		Notes:        checkoutNote(in),
		CreatedAt:    now,
	})
}

func checkoutNote(in batchInput) string {
	if in.Method == domain.CompletionMethodFallback {
		return fmt.Sprintf("Auto-checkout via fallback scheduler - checkout time set to %s", in.day.targetClock())
	}
	return fmt.Sprintf("Auto-checkout via operator prompt - checkout time set to %s", in.day.targetClock())
}

func executionNote(in batchInput) string {
	if in.Method == domain.CompletionMethodFallback {
		return fmt.Sprintf("Auto-checkout triggered by fallback scheduler - all checkout times set to %s", in.day.targetClock())
	}
	return fmt.Sprintf("Auto-checkout triggered by operator prompt - all checkout times set to %s", in.day.targetClock())
}

// failureReason maps a per-booking error to the code returned to callers.
func failureReason(err error) string {
	if errors.Is(err, domain.ErrBookingAlreadyProcessed) {
		return domain.ErrBookingAlreadyProcessed.Error()
	}
	return "checkout_failed"
}
