package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListPending(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]domain.PendingBooking, error) {
	var items []domain.PendingBooking
	err := db.WithContext(ctx).Raw(
		`SELECT b.id AS booking_id, b.resource_id,
		        COALESCE(r.custom_name, r.display_name) AS resource_name, r.type AS resource_type,
		        b.guest_name, b.guest_mobile AS guest_contact, b.check_in, b.actual_check_in, b.status
		 FROM bookings b
		 JOIN resources r ON r.id = b.resource_id
		 WHERE b.status IN ?
		   AND b.auto_checkout_processed = ?
		   AND COALESCE(b.actual_check_in, b.check_in) < ?
		 ORDER BY b.check_in ASC, b.id ASC`,
		domain.OpenBookingStatuses,
		false,
		cutoff.UTC(),
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountPending(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM bookings b
		 JOIN resources r ON r.id = b.resource_id
		 WHERE b.status IN ?
		   AND b.auto_checkout_processed = ?
		   AND COALESCE(b.actual_check_in, b.check_in) < ?`,
		domain.OpenBookingStatuses,
		false,
		cutoff.UTC(),
	).Scan(&count).Error
	return count, err
}

// CompleteBooking applies the checkout transition only while the booking is
// still open and unprocessed. Zero affected rows means another run got there first.
func (r *repo) CompleteBooking(ctx context.Context, db *gorm.DB, params domain.CompleteBookingParams) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE bookings
		 SET status = ?, actual_check_out = ?, auto_checkout_processed = ?,
		     auto_checkout_date = ?, auto_checkout_at = ?, updated_at = ?
		 WHERE id = ? AND auto_checkout_processed = ? AND status IN ?`,
		domain.BookingStatusCompleted,
		params.CheckoutAt.UTC(),
		true,
		params.Date,
		params.ProcessedAt.UTC(),
		params.ProcessedAt.UTC(),
		params.BookingID,
		false,
		domain.OpenBookingStatuses,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) ResetProcessedFlags(ctx context.Context, db *gorm.DB) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE bookings
		 SET auto_checkout_processed = ?, auto_checkout_date = NULL, auto_checkout_at = NULL
		 WHERE status IN ? AND auto_checkout_processed = ?`,
		false,
		domain.OpenBookingStatuses,
		true,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) ClaimCompletion(ctx context.Context, db *gorm.DB, record *domain.DailyCompletionRecord) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			DoNothing: true,
		}).
		Create(record).Error
}

// LockCompletion reads the ledger row under a row lock. SQLite has no row
// locks; its single writer already serializes the transaction.
func (r *repo) LockCompletion(ctx context.Context, db *gorm.DB, date string) (*domain.DailyCompletionRecord, error) {
	stmt := db.WithContext(ctx).Where("date = ?", date)
	if db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return takeCompletion(stmt)
}

func (r *repo) FindCompletion(ctx context.Context, db *gorm.DB, date string) (*domain.DailyCompletionRecord, error) {
	return takeCompletion(db.WithContext(ctx).Where("date = ?", date))
}

func takeCompletion(stmt *gorm.DB) (*domain.DailyCompletionRecord, error) {
	var record domain.DailyCompletionRecord
	if err := stmt.Take(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) UpsertCompletion(ctx context.Context, db *gorm.DB, record *domain.DailyCompletionRecord) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"target_time",
				"is_completed",
				"completed_at",
				"completed_by",
				"completion_method",
				"rooms_found",
				"rooms_successful",
				"rooms_failed",
				"error_message",
				"updated_at",
			}),
		}).
		Create(record).Error
}

func (r *repo) DeleteCompletion(ctx context.Context, db *gorm.DB, date string) (int64, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM auto_checkout_daily_completions WHERE date = ?`, date)
	return result.RowsAffected, result.Error
}

func (r *repo) FindAck(ctx context.Context, db *gorm.DB, operatorID, date string) (*domain.OperatorDailyAck, error) {
	var ack domain.OperatorDailyAck
	err := db.WithContext(ctx).
		Where("operator_id = ? AND date = ?", operatorID, date).
		Take(&ack).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ack, nil
}

// RecordObservation inserts the ack row on first sight and refreshes the
// last seen fields afterwards.
func (r *repo) RecordObservation(ctx context.Context, db *gorm.DB, ack *domain.OperatorDailyAck) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "operator_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_seen_at", "ip_address", "user_agent", "updated_at"}),
		}).
		Create(ack).Error
}

func (r *repo) MarkPromptShown(ctx context.Context, db *gorm.DB, operatorID, date string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE auto_checkout_operator_acks
		 SET prompt_shown = ?, prompt_shown_at = ?, updated_at = ?
		 WHERE operator_id = ? AND date = ?`,
		true,
		at.UTC(),
		at.UTC(),
		operatorID,
		date,
	).Error
}

func (r *repo) MarkPromptAcked(ctx context.Context, db *gorm.DB, operatorID, date string, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE auto_checkout_operator_acks
		 SET prompt_shown = ?, prompt_acked_at = ?, updated_at = ?
		 WHERE operator_id = ? AND date = ?`,
		true,
		at.UTC(),
		at.UTC(),
		operatorID,
		date,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) MarkActionTaken(ctx context.Context, db *gorm.DB, ack *domain.OperatorDailyAck) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "operator_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"prompt_shown",
				"action_taken",
				"action_taken_at",
				"last_seen_at",
				"updated_at",
			}),
		}).
		Create(ack).Error
}

func (r *repo) AnyOperatorSeenSince(ctx context.Context, db *gorm.DB, date string, since time.Time) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM auto_checkout_operator_acks
		 WHERE date = ? AND operator_id <> ? AND (first_seen_at >= ? OR last_seen_at >= ?)`,
		date,
		domain.SystemOperatorID,
		since.UTC(),
		since.UTC(),
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) DeleteAcks(ctx context.Context, db *gorm.DB, date string) (int64, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM auto_checkout_operator_acks WHERE date = ?`, date)
	return result.RowsAffected, result.Error
}

func (r *repo) InsertCheckoutLog(ctx context.Context, db *gorm.DB, entry *domain.CheckoutLogEntry) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) InsertExecutionLog(ctx context.Context, db *gorm.DB, entry *domain.ExecutionLogEntry) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) ListCheckoutLogs(ctx context.Context, db *gorm.DB, filter domain.ListCheckoutLogsFilter) ([]domain.CheckoutLogEntry, error) {
	var entries []domain.CheckoutLogEntry
	stmt := db.WithContext(ctx).Model(&domain.CheckoutLogEntry{})
	if filter.Date != "" {
		stmt = stmt.Where("checkout_date = ?", filter.Date)
	}
	if filter.Outcome != "" {
		stmt = stmt.Where("outcome = ?", filter.Outcome)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	if err := stmt.Order("checkout_date desc, id asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) ListExecutions(ctx context.Context, db *gorm.DB, filter domain.ListExecutionsFilter) ([]domain.ExecutionLogEntry, error) {
	var entries []domain.ExecutionLogEntry
	stmt := db.WithContext(ctx).Model(&domain.ExecutionLogEntry{})
	if filter.Date != "" {
		stmt = stmt.Where("execution_date = ?", filter.Date)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	if err := stmt.Order("executed_at desc, id desc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) DeleteCheckoutLogs(ctx context.Context, db *gorm.DB, date string) (int64, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM auto_checkout_logs WHERE checkout_date = ?`, date)
	return result.RowsAffected, result.Error
}

func (r *repo) DeleteExecutionLogs(ctx context.Context, db *gorm.DB, date string) (int64, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM auto_checkout_executions WHERE execution_date = ?`, date)
	return result.RowsAffected, result.Error
}
