package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// BookingStatus is the lifecycle state of a room booking.
type BookingStatus string

const (
	BookingStatusBooked    BookingStatus = "BOOKED"
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

// OpenBookingStatuses are the statuses eligible for auto checkout.
var OpenBookingStatuses = []BookingStatus{BookingStatusBooked, BookingStatusPending}

// CompletionMethod records which trigger completed a day.
type CompletionMethod string

const (
	CompletionMethodInteractive CompletionMethod = "interactive"
	CompletionMethodFallback    CompletionMethod = "fallback"
)

// CheckoutOutcome is the per-booking result of a batch attempt.
type CheckoutOutcome string

const (
	CheckoutOutcomeSuccess CheckoutOutcome = "success"
	CheckoutOutcomeFailed  CheckoutOutcome = "failed"
)

// ExecutionStatus is the overall result of one batch run.
type ExecutionStatus string

const (
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusPartial ExecutionStatus = "partial"
	ExecutionStatusFailed  ExecutionStatus = "failed"
)

// ExecutionStatusFor derives the overall status from per-booking counts.
func ExecutionStatusFor(successful, failed int) ExecutionStatus {
	switch {
	case failed == 0:
		return ExecutionStatusSuccess
	case successful > 0:
		return ExecutionStatusPartial
	default:
		return ExecutionStatusFailed
	}
}

// Booking is owned by the reservation system. Auto checkout only mutates
// the checkout related columns.
type Booking struct {
	ID                    snowflake.ID  `gorm:"primaryKey"`
	ResourceID            snowflake.ID  `gorm:"not null;index"`
	GuestName             string        `gorm:"type:text;not null"`
	GuestMobile           string        `gorm:"type:text"`
	CheckIn               time.Time     `gorm:"not null;index"`
	ActualCheckIn         *time.Time    `gorm:""`
	Status                BookingStatus `gorm:"type:varchar(16);not null;index"`
	ActualCheckOut        *time.Time    `gorm:""`
	AutoCheckoutProcessed bool          `gorm:"not null;default:false"`
	AutoCheckoutDate      *string       `gorm:"type:varchar(10)"`
	AutoCheckoutAt        *time.Time    `gorm:""`
	CreatedAt             time.Time     `gorm:"not null"`
	UpdatedAt             time.Time     `gorm:"not null"`
}

func (Booking) TableName() string { return "bookings" }

// Resource is a bookable room.
type Resource struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	DisplayName string       `gorm:"type:varchar(64);not null"`
	CustomName  *string      `gorm:"type:varchar(64)"`
	Type        string       `gorm:"type:varchar(32);not null;default:'room'"`
	CreatedAt   time.Time    `gorm:"not null"`
	UpdatedAt   time.Time    `gorm:"not null"`
}

func (Resource) TableName() string { return "resources" }

// PendingBooking is one row of a pending set, joined with its room.
type PendingBooking struct {
	BookingID     snowflake.ID  `json:"booking_id"`
	ResourceID    snowflake.ID  `json:"resource_id"`
	ResourceName  string        `json:"resource_name"`
	ResourceType  string        `json:"resource_type"`
	GuestName     string        `json:"guest_name"`
	GuestContact  string        `json:"guest_contact"`
	CheckIn       time.Time     `json:"check_in"`
	ActualCheckIn *time.Time    `json:"actual_check_in,omitempty"`
	Status        BookingStatus `json:"status"`
}

// DailyCompletionRecord is the ledger row for one calendar date.
type DailyCompletionRecord struct {
	ID               snowflake.ID      `gorm:"primaryKey" json:"id"`
	Date             string            `gorm:"type:varchar(10);not null;uniqueIndex:ux_auto_checkout_completion_date" json:"date"`
	TargetTime       string            `gorm:"type:varchar(8);not null" json:"target_time"`
	IsCompleted      bool              `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	CompletedBy      *string           `gorm:"type:varchar(64)" json:"completed_by,omitempty"`
	CompletionMethod *CompletionMethod `gorm:"type:varchar(16)" json:"completion_method,omitempty"`
	RoomsFound       int               `gorm:"not null;default:0" json:"rooms_found"`
	RoomsSuccessful  int               `gorm:"not null;default:0" json:"rooms_successful"`
	RoomsFailed      int               `gorm:"not null;default:0" json:"rooms_failed"`
	ErrorMessage     *string           `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt        time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"not null" json:"updated_at"`
}

func (DailyCompletionRecord) TableName() string { return "auto_checkout_daily_completions" }

// OperatorDailyAck tracks what a single operator saw and did on a date.
type OperatorDailyAck struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	OperatorID    string       `gorm:"type:varchar(64);not null;uniqueIndex:ux_auto_checkout_ack_operator_date,priority:1" json:"operator_id"`
	Date          string       `gorm:"type:varchar(10);not null;uniqueIndex:ux_auto_checkout_ack_operator_date,priority:2;index" json:"date"`
	PromptShown   bool         `gorm:"not null;default:false" json:"prompt_shown"`
	ActionTaken   bool         `gorm:"not null;default:false" json:"action_taken"`
	FirstSeenAt   time.Time    `gorm:"not null" json:"first_seen_at"`
	LastSeenAt    time.Time    `gorm:"not null" json:"last_seen_at"`
	PromptShownAt *time.Time   `json:"prompt_shown_at,omitempty"`
	PromptAckedAt *time.Time   `json:"prompt_acked_at,omitempty"`
	ActionTakenAt *time.Time   `json:"action_taken_at,omitempty"`
	IPAddress     string       `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	UserAgent     string       `gorm:"type:text" json:"user_agent,omitempty"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null" json:"updated_at"`
}

func (OperatorDailyAck) TableName() string { return "auto_checkout_operator_acks" }

// CheckoutLogEntry is appended once per booking attempt.
type CheckoutLogEntry struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	RunID        string          `gorm:"type:varchar(26);not null;index" json:"run_id"`
	BookingID    snowflake.ID    `gorm:"not null;index" json:"booking_id"`
	ResourceID   snowflake.ID    `gorm:"not null" json:"resource_id"`
	ResourceName string          `gorm:"type:varchar(64);not null" json:"resource_name"`
	GuestName    string          `gorm:"type:text;not null" json:"guest_name"`
	CheckoutDate string          `gorm:"type:varchar(10);not null;index" json:"checkout_date"`
	CheckoutAt   time.Time       `gorm:"not null" json:"checkout_at"`
	Outcome      CheckoutOutcome `gorm:"type:varchar(16);not null" json:"outcome"`
	Notes        string          `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time       `gorm:"not null" json:"created_at"`
}

func (CheckoutLogEntry) TableName() string { return "auto_checkout_logs" }

// ExecutionLogEntry is appended once per batch run.
type ExecutionLogEntry struct {
	ID                 snowflake.ID     `gorm:"primaryKey" json:"id"`
	RunID              string           `gorm:"type:varchar(26);not null;uniqueIndex" json:"run_id"`
	ExecutionDate      string           `gorm:"type:varchar(10);not null;index" json:"execution_date"`
	ExecutedAt         time.Time        `gorm:"not null" json:"executed_at"`
	Method             CompletionMethod `gorm:"type:varchar(16);not null" json:"method"`
	OperatorID         *string          `gorm:"type:varchar(64)" json:"operator_id,omitempty"`
	BookingsFound      int              `gorm:"not null" json:"bookings_found"`
	BookingsProcessed  int              `gorm:"not null" json:"bookings_processed"`
	BookingsSuccessful int              `gorm:"not null" json:"bookings_successful"`
	BookingsFailed     int              `gorm:"not null" json:"bookings_failed"`
	DurationSeconds    float64          `gorm:"not null" json:"duration_seconds"`
	Status             ExecutionStatus  `gorm:"type:varchar(16);not null" json:"status"`
	Notes              string           `gorm:"type:text" json:"notes"`
	FailedBookings     datatypes.JSON   `json:"failed_bookings"`
	CreatedAt          time.Time        `gorm:"not null" json:"created_at"`
}

func (ExecutionLogEntry) TableName() string { return "auto_checkout_executions" }

// FailedBooking is one element of ExecutionLogEntry.FailedBookings.
type FailedBooking struct {
	BookingID    snowflake.ID `json:"booking_id"`
	ResourceName string       `json:"resource_name"`
	GuestName    string       `json:"guest_name"`
	Error        string       `json:"error"`
}
