package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// CompleteBookingParams describes the checkout transition for one booking.
type CompleteBookingParams struct {
	BookingID   snowflake.ID
	CheckoutAt  time.Time
	Date        string
	ProcessedAt time.Time
}

type ListExecutionsFilter struct {
	Date  string
	Limit int
}

type ListCheckoutLogsFilter struct {
	Date    string
	Outcome CheckoutOutcome
	Limit   int
}

// Repository persists bookings, the completion ledger, operator acks and
// the audit trail. Every method runs on the handle it is given so callers
// control transaction scope.
type Repository interface {
	ListPending(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]PendingBooking, error)
	CountPending(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
	CompleteBooking(ctx context.Context, db *gorm.DB, params CompleteBookingParams) (int64, error)
	ResetProcessedFlags(ctx context.Context, db *gorm.DB) (int64, error)

	ClaimCompletion(ctx context.Context, db *gorm.DB, record *DailyCompletionRecord) error
	LockCompletion(ctx context.Context, db *gorm.DB, date string) (*DailyCompletionRecord, error)
	FindCompletion(ctx context.Context, db *gorm.DB, date string) (*DailyCompletionRecord, error)
	UpsertCompletion(ctx context.Context, db *gorm.DB, record *DailyCompletionRecord) error
	DeleteCompletion(ctx context.Context, db *gorm.DB, date string) (int64, error)

	FindAck(ctx context.Context, db *gorm.DB, operatorID, date string) (*OperatorDailyAck, error)
	RecordObservation(ctx context.Context, db *gorm.DB, ack *OperatorDailyAck) error
	MarkPromptShown(ctx context.Context, db *gorm.DB, operatorID, date string, at time.Time) error
	MarkPromptAcked(ctx context.Context, db *gorm.DB, operatorID, date string, at time.Time) (int64, error)
	MarkActionTaken(ctx context.Context, db *gorm.DB, ack *OperatorDailyAck) error
	AnyOperatorSeenSince(ctx context.Context, db *gorm.DB, date string, since time.Time) (bool, error)
	DeleteAcks(ctx context.Context, db *gorm.DB, date string) (int64, error)

	InsertCheckoutLog(ctx context.Context, db *gorm.DB, entry *CheckoutLogEntry) error
	InsertExecutionLog(ctx context.Context, db *gorm.DB, entry *ExecutionLogEntry) error
	ListCheckoutLogs(ctx context.Context, db *gorm.DB, filter ListCheckoutLogsFilter) ([]CheckoutLogEntry, error)
	ListExecutions(ctx context.Context, db *gorm.DB, filter ListExecutionsFilter) ([]ExecutionLogEntry, error)
	DeleteCheckoutLogs(ctx context.Context, db *gorm.DB, date string) (int64, error)
	DeleteExecutionLogs(ctx context.Context, db *gorm.DB, date string) (int64, error)
}
