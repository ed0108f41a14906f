package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// DateLayout is the calendar date format used for every date key.
const DateLayout = "2006-01-02"

// SystemOperatorID is the sentinel operator recorded for fallback runs.
const SystemOperatorID = "system"

// PromptState is the decision reported to an operator by CheckPrompt.
type PromptState string

const (
	PromptStateDisabled         PromptState = "DISABLED"
	PromptStateTooEarly         PromptState = "TOO_EARLY"
	PromptStateAlreadyCompleted PromptState = "ALREADY_COMPLETED"
	PromptStateAlreadyAcked     PromptState = "ALREADY_ACKED_BY_OPERATOR"
	PromptStateNothingPending   PromptState = "NOTHING_PENDING"
	PromptStateRequired         PromptState = "PROMPT_REQUIRED"
	PromptStateSuppressed       PromptState = "PROMPT_SUPPRESSED"
)

// ConfirmOutcome tags the result of ConfirmAction.
type ConfirmOutcome string

const (
	ConfirmOutcomeExecuted         ConfirmOutcome = "executed"
	ConfirmOutcomeAlreadyCompleted ConfirmOutcome = "already_completed"
	ConfirmOutcomeTooEarly         ConfirmOutcome = "too_early"
	ConfirmOutcomeDisabled         ConfirmOutcome = "disabled"
)

// FallbackAction tags the result of RunFallback.
type FallbackAction string

const (
	FallbackActionDisabled          FallbackAction = "disabled"
	FallbackActionOutOfWindow       FallbackAction = "out_of_window"
	FallbackActionNoneRequired      FallbackAction = "none_required"
	FallbackActionWaitingOnOperator FallbackAction = "waiting_for_operator_window"
	FallbackActionWaiting           FallbackAction = "waiting"
	FallbackActionBatchExecuted     FallbackAction = "batch_executed"
)

type CheckPromptRequest struct {
	OperatorID string
	// Poll marks a periodic client refresh rather than a page load.
	Poll      bool
	IPAddress string
	UserAgent string
}

type PromptDecision struct {
	ShowPrompt   bool             `json:"show_prompt"`
	Reason       PromptState      `json:"reason"`
	Message      string           `json:"message"`
	Date         string           `json:"date"`
	TargetTime   string           `json:"target_time"`
	PendingRooms []PendingBooking `json:"pending_rooms,omitempty"`
	TotalRooms   int              `json:"total_rooms"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
}

type AckPromptRequest struct {
	OperatorID string
	Date       string `json:"date"`
}

type AckResult struct {
	Success bool `json:"success"`
}

type ConfirmRequest struct {
	OperatorID string
	Date       string `json:"date"`
	IPAddress  string
	UserAgent  string
}

// FailedRoom is the caller-facing view of a booking that could not be checked out.
type FailedRoom struct {
	BookingID    snowflake.ID `json:"booking_id"`
	ResourceName string       `json:"resource_name"`
	GuestName    string       `json:"guest_name"`
	Reason       string       `json:"reason"`
}

type ConfirmResult struct {
	Success         bool                 `json:"success"`
	Outcome         ConfirmOutcome       `json:"outcome"`
	Message         string               `json:"message"`
	Date            string               `json:"date"`
	RunID           string               `json:"run_id,omitempty"`
	RoomsProcessed  int                  `json:"rooms_processed"`
	Successful      int                  `json:"successful"`
	Failed          int                  `json:"failed"`
	ProcessedRooms  []string             `json:"processed_rooms"`
	FailedRooms     []FailedRoom         `json:"failed_rooms"`
	DurationSeconds float64              `json:"duration_seconds"`
	Notifications   []NotificationResult `json:"notifications,omitempty"`
}

// NotificationResult reports one best-effort guest notification.
type NotificationResult struct {
	BookingID snowflake.ID `json:"booking_id"`
	Attempted bool         `json:"attempted"`
	Delivered bool         `json:"delivered"`
	Error     string       `json:"error,omitempty"`
}

// BatchResult is the outcome of processing one pending set.
type BatchResult struct {
	RunID           string               `json:"run_id"`
	Date            string               `json:"date"`
	Method          CompletionMethod     `json:"method"`
	Found           int                  `json:"found"`
	Successful      int                  `json:"successful"`
	Failed          int                  `json:"failed"`
	Status          ExecutionStatus      `json:"status"`
	ProcessedRooms  []string             `json:"processed_rooms"`
	FailedRooms     []FailedRoom         `json:"failed_rooms"`
	DurationSeconds float64              `json:"duration_seconds"`
	Notifications   []NotificationResult `json:"notifications,omitempty"`
}

type FallbackResult struct {
	Success     bool           `json:"success"`
	Message     string         `json:"message"`
	Action      FallbackAction `json:"action"`
	Date        string         `json:"date"`
	CurrentTime string         `json:"current_time"`
	Result      *BatchResult   `json:"result,omitempty"`
}

type StatusView struct {
	Date              string            `json:"date"`
	Enabled           bool              `json:"enabled"`
	IsCompleted       bool              `json:"is_completed"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	CompletionMethod  *CompletionMethod `json:"completion_method,omitempty"`
	RoomsProcessed    int               `json:"rooms_processed"`
	PendingRoomsCount int64             `json:"pending_rooms_count"`
	CurrentTime       string            `json:"current_time"`
	TargetTime        string            `json:"target_time"`
}

type ResetRequest struct {
	OperatorID string
}

type ResetResult struct {
	Date                 string `json:"date"`
	CompletionCleared    bool   `json:"completion_cleared"`
	CheckoutLogsDeleted  int64  `json:"checkout_logs_deleted"`
	ExecutionLogsDeleted int64  `json:"execution_logs_deleted"`
	AcksDeleted          int64  `json:"acks_deleted"`
	BookingsReset        int64  `json:"bookings_reset"`
}

type ListExecutionsRequest struct {
	Date  string `form:"date"`
	Limit int    `form:"limit"`
}

type ListCheckoutLogsRequest struct {
	Date    string `form:"date"`
	Outcome string `form:"outcome"`
	Limit   int    `form:"limit"`
}

// Service coordinates the daily auto checkout.
type Service interface {
	CheckPrompt(ctx context.Context, req CheckPromptRequest) (PromptDecision, error)
	AckPromptShown(ctx context.Context, req AckPromptRequest) (AckResult, error)
	ConfirmAction(ctx context.Context, req ConfirmRequest) (ConfirmResult, error)
	RunFallback(ctx context.Context) (FallbackResult, error)
	GetStatus(ctx context.Context) (StatusView, error)
	Reset(ctx context.Context, req ResetRequest) (ResetResult, error)

	IsCompleted(ctx context.Context, date string) (bool, *DailyCompletionRecord, error)
	ResolvePending(ctx context.Context, date string) ([]PendingBooking, error)
	ListExecutions(ctx context.Context, req ListExecutionsRequest) ([]ExecutionLogEntry, error)
	ListCheckoutLogs(ctx context.Context, req ListCheckoutLogsRequest) ([]CheckoutLogEntry, error)
}

var (
	ErrTooEarly                = errors.New("too_early")
	ErrAlreadyCompleted        = errors.New("already_completed")
	ErrDisabled                = errors.New("auto_checkout_disabled")
	ErrInvalidDate             = errors.New("invalid_date")
	ErrFutureDate              = errors.New("future_date")
	ErrInvalidOperator         = errors.New("invalid_operator")
	ErrInvalidLimit            = errors.New("invalid_limit")
	ErrInvalidOutcome          = errors.New("invalid_outcome")
	ErrBookingAlreadyProcessed = errors.New("booking_already_processed")
	ErrInvalidSettings         = errors.New("invalid_settings")
)
