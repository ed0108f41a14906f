package repository

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/frontdesk/internal/autocheckout/autocheckouttest"
	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimCompletionKeepsFirstRow(t *testing.T) {
	db := autocheckouttest.OpenDB(t)
	r := Provide()
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 4, 30, 0, 0, time.UTC)

	require.NoError(t, r.ClaimCompletion(ctx, db, &domain.DailyCompletionRecord{
		ID: 1, Date: "2026-10-19", TargetTime: "10:00:00", CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, r.ClaimCompletion(ctx, db, &domain.DailyCompletionRecord{
		ID: 2, Date: "2026-10-19", TargetTime: "11:00:00", CreatedAt: now, UpdatedAt: now,
	}))

	record, err := r.LockCompletion(ctx, db, "2026-10-19")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.EqualValues(t, 1, record.ID)
	assert.Equal(t, "10:00:00", record.TargetTime)
	assert.False(t, record.IsCompleted)

	missing, err := r.FindCompletion(ctx, db, "2026-10-20")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpsertCompletionOverwritesClaim(t *testing.T) {
	db := autocheckouttest.OpenDB(t)
	r := Provide()
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 4, 30, 0, 0, time.UTC)

	require.NoError(t, r.ClaimCompletion(ctx, db, &domain.DailyCompletionRecord{
		ID: 1, Date: "2026-10-19", TargetTime: "10:00:00", CreatedAt: now, UpdatedAt: now,
	}))

	operator := "op-1"
	method := domain.CompletionMethodInteractive
	require.NoError(t, r.UpsertCompletion(ctx, db, &domain.DailyCompletionRecord{
		ID:               9,
		Date:             "2026-10-19",
		TargetTime:       "10:00:00",
		IsCompleted:      true,
		CompletedAt:      &now,
		CompletedBy:      &operator,
		CompletionMethod: &method,
		RoomsFound:       3,
		RoomsSuccessful:  3,
		CreatedAt:        now,
		UpdatedAt:        now,
	}))

	record, err := r.FindCompletion(ctx, db, "2026-10-19")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.EqualValues(t, 1, record.ID)
	assert.True(t, record.IsCompleted)
	assert.Equal(t, 3, record.RoomsSuccessful)
	assert.Equal(t, "op-1", *record.CompletedBy)
}

func TestCompleteBookingIsConditional(t *testing.T) {
	db := autocheckouttest.OpenDB(t)
	seed := autocheckouttest.NewSeeder(t, db)
	r := Provide()
	ctx := context.Background()

	room := seed.Room("101")
	booking := seed.Booking(room, "Asha", time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC))
	at := time.Date(2026, 10, 19, 4, 30, 0, 0, time.UTC)
	params := domain.CompleteBookingParams{BookingID: booking.ID, CheckoutAt: at, Date: "2026-10-19", ProcessedAt: at}

	affected, err := r.CompleteBooking(ctx, db, params)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	affected, err = r.CompleteBooking(ctx, db, params)
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestListPendingUsesCutoffAndFlags(t *testing.T) {
	db := autocheckouttest.OpenDB(t)
	seed := autocheckouttest.NewSeeder(t, db)
	r := Provide()
	ctx := context.Background()

	room := seed.Room("101")
	due := seed.Booking(room, "Due", time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC))
	seed.Booking(room, "Processed", time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC), autocheckouttest.WithProcessed())
	seed.Booking(room, "NotYet", time.Date(2026, 10, 19, 1, 0, 0, 0, time.UTC))

	cutoff := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	pending, err := r.ListPending(ctx, db, cutoff)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, due.ID, pending[0].BookingID)
	assert.Equal(t, "101", pending[0].ResourceName)
	assert.Equal(t, "room", pending[0].ResourceType)

	count, err := r.CountPending(ctx, db, cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	reset, err := r.ResetProcessedFlags(ctx, db)
	require.NoError(t, err)
	assert.EqualValues(t, 1, reset)
}

func TestAnyOperatorSeenSinceIgnoresSystem(t *testing.T) {
	db := autocheckouttest.OpenDB(t)
	r := Provide()
	ctx := context.Background()
	target := time.Date(2026, 10, 19, 4, 30, 0, 0, time.UTC)
	early := target.Add(-time.Hour)

	require.NoError(t, r.RecordObservation(ctx, db, &domain.OperatorDailyAck{
		ID: 1, OperatorID: domain.SystemOperatorID, Date: "2026-10-19",
		FirstSeenAt: target, LastSeenAt: target, CreatedAt: target, UpdatedAt: target,
	}))
	require.NoError(t, r.RecordObservation(ctx, db, &domain.OperatorDailyAck{
		ID: 2, OperatorID: "op-1", Date: "2026-10-19",
		FirstSeenAt: early, LastSeenAt: early, CreatedAt: early, UpdatedAt: early,
	}))

	seen, err := r.AnyOperatorSeenSince(ctx, db, "2026-10-19", target)
	require.NoError(t, err)
	assert.False(t, seen)

	later := target.Add(5 * time.Minute)
	require.NoError(t, r.RecordObservation(ctx, db, &domain.OperatorDailyAck{
		ID: 3, OperatorID: "op-1", Date: "2026-10-19",
		FirstSeenAt: later, LastSeenAt: later, CreatedAt: later, UpdatedAt: later,
	}))

	seen, err = r.AnyOperatorSeenSince(ctx, db, "2026-10-19", target)
	require.NoError(t, err)
	assert.True(t, seen)

	ack, err := r.FindAck(ctx, db, "op-1", "2026-10-19")
	require.NoError(t, err)
	require.NotNil(t, ack)
	assert.EqualValues(t, 2, ack.ID)
	assert.True(t, ack.FirstSeenAt.Equal(early))
}
