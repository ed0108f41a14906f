package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/autocheckout/autocheckouttest"
	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
	"github.com/smallbiznis/frontdesk/internal/autocheckout/repository"
	"github.com/smallbiznis/frontdesk/internal/autocheckout/service"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	"github.com/smallbiznis/frontdesk/internal/providers/sms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

const testDate = "2026-10-19"

var ist = mustLocation("Asia/Kolkata")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// at returns the instant hh:mm:ss on the test date in hotel time.
func at(hh, mm, ss int) time.Time {
	return time.Date(2026, 10, 19, hh, mm, ss, 0, ist)
}

// yesterday returns hh:mm on the day before the test date in hotel time.
func yesterday(hh, mm int) time.Time {
	return time.Date(2026, 10, 18, hh, mm, 0, 0, ist)
}

type recordingSMS struct {
	mu   sync.Mutex
	sent []sms.Message
	fail map[string]error
	wait bool
}

func (p *recordingSMS) Name() string { return "recording" }

func (p *recordingSMS) Send(ctx context.Context, msg sms.Message) error {
	if p.wait {
		<-ctx.Done()
		return ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail[msg.To]; err != nil {
		return err
	}
	p.sent = append(p.sent, msg)
	return nil
}

func (p *recordingSMS) messages() []sms.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sms.Message(nil), p.sent...)
}

// failingRepo fails CompleteBooking for one booking id.
type failingRepo struct {
	domain.Repository
	failID snowflake.ID
}

func (r *failingRepo) CompleteBooking(ctx context.Context, db *gorm.DB, params domain.CompleteBookingParams) (int64, error) {
	if params.BookingID == r.failID {
		return 0, errors.New("forced checkout failure")
	}
	return r.Repository.CompleteBooking(ctx, db, params)
}

type fixture struct {
	t      *testing.T
	db     *gorm.DB
	clock  *clock.FakeClock
	seed   *autocheckouttest.Seeder
	repo   domain.Repository
	notify *recordingSMS
	svc    domain.Service
}

type fixtureOption func(*config.AutoCheckout, *fixture)

func withSettings(mutate func(*config.AutoCheckout)) fixtureOption {
	return func(cfg *config.AutoCheckout, _ *fixture) { mutate(cfg) }
}

func withRepo(wrap func(domain.Repository) domain.Repository) fixtureOption {
	return func(_ *config.AutoCheckout, f *fixture) { f.repo = wrap(f.repo) }
}

// withFileDB swaps the in-memory store for a pooled file store so
// transactions run concurrently.
func withFileDB(conns int) fixtureOption {
	return func(_ *config.AutoCheckout, f *fixture) { f.db = autocheckouttest.OpenFileDB(f.t, conns) }
}

func newFixture(t *testing.T, now time.Time, opts ...fixtureOption) *fixture {
	t.Helper()

	f := &fixture{
		t:      t,
		clock:  clock.NewFakeClock(now),
		repo:   repository.Provide(),
		notify: &recordingSMS{fail: map[string]error{}},
	}
	cfg := config.DefaultAutoCheckout()
	for _, opt := range opts {
		opt(&cfg, f)
	}
	if f.db == nil {
		f.db = autocheckouttest.OpenDB(t)
	}
	db := f.db
	f.seed = autocheckouttest.NewSeeder(t, db)
	settings, err := config.NewAutoCheckoutHolderFrom(cfg)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f.svc = service.New(service.Params{
		DB:       db,
		Log:      zaptest.NewLogger(t),
		GenID:    node,
		Clock:    f.clock,
		Settings: settings,
		Repo:     f.repo,
		Notifier: f.notify,
	})
	return f
}

// seedRooms seeds one booking per room name, checked in an hour apart yesterday.
func (f *fixture) seedRooms(names ...string) []domain.Booking {
	bookings := make([]domain.Booking, 0, len(names))
	for i, name := range names {
		room := f.seed.Room(name)
		bookings = append(bookings, f.seed.Booking(room, "Guest "+name, yesterday(12+i, 0)))
	}
	return bookings
}

func (f *fixture) countExecutions(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&domain.ExecutionLogEntry{}).Count(&count).Error)
	return count
}

func (f *fixture) confirm(t *testing.T, operatorID string) domain.ConfirmResult {
	t.Helper()
	res, err := f.svc.ConfirmAction(context.Background(), domain.ConfirmRequest{OperatorID: operatorID})
	require.NoError(t, err)
	return res
}

func TestCheckPromptTimeGating(t *testing.T) {
	f := newFixture(t, at(9, 59, 59))
	f.seedRooms("101", "102", "103")
	ctx := context.Background()

	early, err := f.svc.CheckPrompt(ctx, domain.CheckPromptRequest{OperatorID: "op-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.PromptStateTooEarly, early.Reason)
	assert.False(t, early.ShowPrompt)
	assert.Equal(t, testDate, early.Date)

	f.clock.Set(at(10, 0, 0))
	decision, err := f.svc.CheckPrompt(ctx, domain.CheckPromptRequest{OperatorID: "op-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.PromptStateRequired, decision.Reason)
	assert.True(t, decision.ShowPrompt)
	assert.Equal(t, 3, decision.TotalRooms)
	require.Len(t, decision.PendingRooms, 3)
	assert.Equal(t, "101", decision.PendingRooms[0].ResourceName)
	assert.Equal(t, "Guest 101", decision.PendingRooms[0].GuestName)
	assert.Equal(t, "+910000000000", decision.PendingRooms[0].GuestContact)

	ack, err := f.repo.FindAck(ctx, f.db, "op-1", testDate)
	require.NoError(t, err)
	require.NotNil(t, ack)
	assert.True(t, ack.PromptShown)
	assert.False(t, ack.ActionTaken)

	completed, _, err := f.svc.IsCompleted(ctx, testDate)
	require.NoError(t, err)
	assert.False(t, completed)
}

func TestCheckPromptRequiresOperator(t *testing.T) {
	f := newFixture(t, at(10, 0, 0))

	_, err := f.svc.CheckPrompt(context.Background(), domain.CheckPromptRequest{OperatorID: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidOperator)
}

func TestOperatorCannotUseSystemID(t *testing.T) {
	f := newFixture(t, at(10, 5, 0))
	f.seedRooms("101")
	ctx := context.Background()

	for _, id := range []string{domain.SystemOperatorID, " SYSTEM "} {
		_, err := f.svc.CheckPrompt(ctx, domain.CheckPromptRequest{OperatorID: id})
		assert.ErrorIs(t, err, domain.ErrInvalidOperator)

		_, err = f.svc.AckPromptShown(ctx, domain.AckPromptRequest{OperatorID: id})
		assert.ErrorIs(t, err, domain.ErrInvalidOperator)

		_, err = f.svc.ConfirmAction(ctx, domain.ConfirmRequest{OperatorID: id})
		assert.ErrorIs(t, err, domain.ErrInvalidOperator)

		_, err = f.svc.Reset(ctx, domain.ResetRequest{OperatorID: id})
		assert.ErrorIs(t, err, domain.ErrInvalidOperator)
	}

	completed, _, err := f.svc.IsCompleted(ctx, testDate)
	require.NoError(t, err)
	assert.False(t, completed)
}

func TestCheckPromptEmptySetCompletesDay(t *testing.T) {
	f := newFixture(t, at(10, 0, 1))
	ctx := context.Background()

	first, err := f.svc.CheckPrompt(ctx, domain.CheckPromptRequest{OperatorID: "op-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.PromptStateNothingPending, first.Reason)
	assert.False(t, first.ShowPrompt)

	completed, record, err := f.svc.IsCompleted(ctx, testDate)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, 0, record.RoomsSuccessful)
	require.NotNil(t, record.CompletionMethod)
	assert.Equal(t, domain.CompletionMethodInteractive, *record.CompletionMethod)

	status, err := f.svc.GetStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.IsCompleted)
	assert.Equal(t, 0, status.RoomsProcessed)

	other, err := f.svc.CheckPrompt(ctx, domain.CheckPromptRequest{OperatorID: "op-2"})
	require.NoError(t, err)
	assert.Equal(t, domain.PromptStateAlreadyCompleted, other.Reason)
	assert.NotNil(t, other.CompletedAt)
	assert.Zero(t, f.countExecutions(t))
}

func TestCheckPromptAlreadyActedOperator(t *testing.T) {
	f := newFixture(t, at(10, 15, 0))
	f.seedRooms("101")
	ctx := context.Background()
	now := f.clock.Now()

	require.NoError(t, f.repo.MarkActionTaken(ctx, f.db, &domain.OperatorDailyAck{
		ID:            1,
		OperatorID:    "op-1",
		Date:          testDate,
		PromptShown:   true,
		ActionTaken:   true,
		FirstSeenAt:   now,
		LastSeenAt:    now,
		ActionTakenAt: &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}))

	decision, err := f.svc.CheckPrompt(ctx, domain.CheckPromptRequest{OperatorID: "op-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.PromptStateAlreadyAcked, decision.Reason)

	other, err := f.svc.CheckPrompt(ctx, domain.CheckPromptRequest{OperatorID: "op-2"})
	require.NoError(t, err)
	assert.Equal(t, domain.PromptStateRequired, other.Reason)
}

func TestCheckPromptPollSuppression(t *testing.T) {
	f := newFixture(t, at(10, 5, 0))
	f.seedRooms("101")
	ctx := context.Background()

	decision, err := f.svc.CheckPrompt(ctx, domain.CheckPromptRequest{OperatorID: "op-1"})
	require.NoError(t, err)
	require.Equal(t, domain.PromptStateRequired, decision.Reason)

	ack, err := f.svc.AckPromptShown(ctx, domain.AckPromptRequest{OperatorID: "op-1"})
	require.NoError(t, err)
	assert.True(t, ack.Success)

	f.clock.Advance(10 * time.Second)
	poll, err := f.svc.CheckPrompt(ctx, domain.CheckPromptRequest{OperatorID: "op-1", Poll: true})
	require.NoError(t, err)
	assert.Equal(t, domain.PromptStateSuppressed, poll.Reason)
	assert.False(t, poll.ShowPrompt)

	reload, err := f.svc.CheckPrompt(ctx, domain.CheckPromptRequest{OperatorID: "op-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.PromptStateRequired, reload.Reason)

	f.clock.Advance(30 * time.Second)
	later, err := f.svc.CheckPrompt(ctx, domain.CheckPromptRequest{OperatorID: "op-1", Poll: true})
	require.NoError(t, err)
	assert.Equal(t, domain.PromptStateRequired, later.Reason)
}

func TestAckPromptShownWithoutObservation(t *testing.T) {
	f := newFixture(t, at(10, 5, 0))
	ctx := context.Background()

	res, err := f.svc.AckPromptShown(ctx, domain.AckPromptRequest{OperatorID: "op-9"})
	require.NoError(t, err)
	assert.False(t, res.Success)

	_, err = f.svc.AckPromptShown(ctx, domain.AckPromptRequest{OperatorID: "op-9", Date: "19-10-2026"})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestConfirmActionIsIdempotent(t *testing.T) {
	f := newFixture(t, at(10, 2, 0))
	bookings := f.seedRooms("101", "102", "103")
	ctx := context.Background()

	first := f.confirm(t, "op-1")
	assert.True(t, first.Success)
	assert.Equal(t, domain.ConfirmOutcomeExecuted, first.Outcome)
	assert.Equal(t, 3, first.RoomsProcessed)
	assert.Equal(t, 3, first.Successful)
	assert.Equal(t, 0, first.Failed)
	assert.Equal(t, []string{"101", "102", "103"}, first.ProcessedRooms)
	assert.Empty(t, first.FailedRooms)
	assert.NotEmpty(t, first.RunID)
	assert.Equal(t, "Auto checkout completed: 3 successful, 0 failed", first.Message)

	for _, b := range bookings {
		got := autocheckouttest.Load(t, f.db, b.ID)
		assert.Equal(t, domain.BookingStatusCompleted, got.Status)
		assert.True(t, got.AutoCheckoutProcessed)
		require.NotNil(t, got.ActualCheckOut)
		assert.True(t, got.ActualCheckOut.Equal(at(10, 0, 0)))
		require.NotNil(t, got.AutoCheckoutDate)
		assert.Equal(t, testDate, *got.AutoCheckoutDate)
	}

	second := f.confirm(t, "op-2")
	assert.False(t, second.Success)
	assert.Equal(t, domain.ConfirmOutcomeAlreadyCompleted, second.Outcome)
	assert.Equal(t, int64(1), f.countExecutions(t))

	logs, err := f.svc.ListCheckoutLogs(ctx, domain.ListCheckoutLogsRequest{Date: testDate})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "Auto-checkout via operator prompt - checkout time set to 10:00", logs[0].Notes)

	ack, err := f.repo.FindAck(ctx, f.db, "op-1", testDate)
	require.NoError(t, err)
	require.NotNil(t, ack)
	assert.True(t, ack.ActionTaken)
	assert.True(t, ack.PromptShown)

	assert.Len(t, f.notify.messages(), 3)
	assert.Len(t, first.Notifications, 3)
	for _, n := range first.Notifications {
		assert.True(t, n.Delivered)
	}
}

func TestConfirmActionNeverReprocessesBookings(t *testing.T) {
	f := newFixture(t, at(10, 2, 0))
	room := f.seed.Room("201")
	done := f.seed.Booking(room, "Done", yesterday(9, 0), autocheckouttest.WithProcessed())
	closed := f.seed.Booking(room, "Closed", yesterday(9, 30), autocheckouttest.WithStatus(domain.BookingStatusCompleted))
	open := f.seed.Booking(room, "Open", yesterday(10, 0), autocheckouttest.WithStatus(domain.BookingStatusPending))
	today := f.seed.Booking(room, "Today", at(8, 0, 0))

	res := f.confirm(t, "op-1")
	assert.Equal(t, 1, res.Successful)

	assert.Equal(t, domain.BookingStatusBooked, autocheckouttest.Load(t, f.db, done.ID).Status)
	assert.Nil(t, autocheckouttest.Load(t, f.db, closed.ID).ActualCheckOut)
	assert.Equal(t, domain.BookingStatusCompleted, autocheckouttest.Load(t, f.db, open.ID).Status)
	assert.Equal(t, domain.BookingStatusBooked, autocheckouttest.Load(t, f.db, today.ID).Status)
}

func TestConfirmActionPartialFailure(t *testing.T) {
	var failID snowflake.ID
	f := newFixture(t, at(10, 2, 0), withRepo(func(r domain.Repository) domain.Repository {
		return &failingRepo{Repository: r}
	}))
	bookings := f.seedRooms("101", "102", "103", "104", "105")
	failID = bookings[2].ID
	f.repo.(*failingRepo).failID = failID

	res := f.confirm(t, "op-1")
	assert.True(t, res.Success)
	assert.Equal(t, 5, res.RoomsProcessed)
	assert.Equal(t, 4, res.Successful)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"101", "102", "104", "105"}, res.ProcessedRooms)
	require.Len(t, res.FailedRooms, 1)
	assert.Equal(t, "103", res.FailedRooms[0].ResourceName)
	assert.Equal(t, "checkout_failed", res.FailedRooms[0].Reason)

	for i, b := range bookings {
		got := autocheckouttest.Load(t, f.db, b.ID)
		if i == 2 {
			assert.Equal(t, domain.BookingStatusBooked, got.Status)
			assert.False(t, got.AutoCheckoutProcessed)
			continue
		}
		assert.Equal(t, domain.BookingStatusCompleted, got.Status)
	}

	ctx := context.Background()
	failed, err := f.svc.ListCheckoutLogs(ctx, domain.ListCheckoutLogsRequest{Outcome: "failed"})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, failID, failed[0].BookingID)
	assert.Contains(t, failed[0].Notes, "forced checkout failure")

	executions, err := f.svc.ListExecutions(ctx, domain.ListExecutionsRequest{Date: testDate})
	require.NoError(t, err)
	require.Len(t, executions, 1)
	assert.Equal(t, domain.ExecutionStatusPartial, executions[0].Status)
	assert.Equal(t, 4, executions[0].BookingsSuccessful)
	assert.Contains(t, string(executions[0].FailedBookings), "forced checkout failure")

	_, record, err := f.svc.IsCompleted(ctx, testDate)
	require.NoError(t, err)
	assert.Equal(t, 1, record.RoomsFailed)
	require.NotNil(t, record.ErrorMessage)

	status, err := f.svc.GetStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.IsCompleted)
	assert.Equal(t, res.RoomsProcessed, status.RoomsProcessed)
}

func TestConfirmActionConcurrentRunsOneBatch(t *testing.T) {
	f := newFixture(t, at(10, 2, 0))
	f.seedRooms("101", "102")

	const callers = 8
	results := make([]domain.ConfirmResult, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.ConfirmAction(context.Background(), domain.ConfirmRequest{OperatorID: "op-concurrent"})
		}(i)
	}
	wg.Wait()

	executed := 0
	for i := range results {
		require.NoError(t, errs[i])
		if results[i].Outcome == domain.ConfirmOutcomeExecuted {
			executed++
			assert.Equal(t, 2, results[i].Successful)
			continue
		}
		assert.Equal(t, domain.ConfirmOutcomeAlreadyCompleted, results[i].Outcome)
	}
	assert.Equal(t, 1, executed)
	assert.Equal(t, int64(1), f.countExecutions(t))
}

// gatedRepo parks the first caller inside LockCompletion, after its claim
// row is held, until release is closed.
type gatedRepo struct {
	domain.Repository

	locks    atomic.Int32
	claims   atomic.Int32
	holding  chan struct{}
	release  chan struct{}
	claiming chan struct{}
}

func newGatedRepo(r domain.Repository) *gatedRepo {
	return &gatedRepo{
		Repository: r,
		holding:    make(chan struct{}),
		release:    make(chan struct{}),
		claiming:   make(chan struct{}),
	}
}

func (r *gatedRepo) ClaimCompletion(ctx context.Context, db *gorm.DB, record *domain.DailyCompletionRecord) error {
	if r.claims.Add(1) == 2 {
		close(r.claiming)
	}
	return r.Repository.ClaimCompletion(ctx, db, record)
}

func (r *gatedRepo) LockCompletion(ctx context.Context, db *gorm.DB, date string) (*domain.DailyCompletionRecord, error) {
	record, err := r.Repository.LockCompletion(ctx, db, date)
	if r.locks.Add(1) == 1 {
		close(r.holding)
		<-r.release
	}
	return record, err
}

func TestConfirmActionWaitsOnHeldClaim(t *testing.T) {
	f := newFixture(t, at(10, 2, 0), withFileDB(4), withRepo(func(r domain.Repository) domain.Repository {
		return newGatedRepo(r)
	}))
	gate := f.repo.(*gatedRepo)
	f.seedRooms("101", "102")
	ctx := context.Background()

	var (
		first, second       domain.ConfirmResult
		firstErr, secondErr error
		wg                  sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, firstErr = f.svc.ConfirmAction(ctx, domain.ConfirmRequest{OperatorID: "op-1"})
	}()
	<-gate.holding

	wg.Add(1)
	go func() {
		defer wg.Done()
		second, secondErr = f.svc.ConfirmAction(ctx, domain.ConfirmRequest{OperatorID: "op-2"})
	}()
	<-gate.claiming
	time.Sleep(50 * time.Millisecond)
	close(gate.release)
	wg.Wait()

	require.NoError(t, firstErr)
	require.NoError(t, secondErr)
	assert.Equal(t, domain.ConfirmOutcomeExecuted, first.Outcome)
	assert.Equal(t, 2, first.Successful)
	assert.Equal(t, domain.ConfirmOutcomeAlreadyCompleted, second.Outcome)
	assert.Equal(t, int64(1), f.countExecutions(t))

	_, record, err := f.svc.IsCompleted(ctx, testDate)
	require.NoError(t, err)
	require.NotNil(t, record.CompletedBy)
	assert.Equal(t, "op-1", *record.CompletedBy)
}

func TestConfirmActionRejections(t *testing.T) {
	f := newFixture(t, at(9, 30, 0))
	f.seedRooms("101")
	ctx := context.Background()

	early := f.confirm(t, "op-1")
	assert.False(t, early.Success)
	assert.Equal(t, domain.ConfirmOutcomeTooEarly, early.Outcome)
	assert.NotNil(t, early.ProcessedRooms)
	assert.NotNil(t, early.FailedRooms)

	_, err := f.svc.ConfirmAction(ctx, domain.ConfirmRequest{OperatorID: "op-1", Date: "2026-10-20"})
	assert.ErrorIs(t, err, domain.ErrFutureDate)

	_, err = f.svc.ConfirmAction(ctx, domain.ConfirmRequest{OperatorID: "op-1", Date: "2026-13-01"})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)

	_, err = f.svc.ConfirmAction(ctx, domain.ConfirmRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidOperator)

	assert.Zero(t, f.countExecutions(t))
}

func TestConfirmActionPastDateBeforeTarget(t *testing.T) {
	f := newFixture(t, at(9, 30, 0))
	room := f.seed.Room("301")
	f.seed.Booking(room, "Late", time.Date(2026, 10, 17, 15, 0, 0, 0, ist))

	res, err := f.svc.ConfirmAction(context.Background(), domain.ConfirmRequest{OperatorID: "op-1", Date: "2026-10-18"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "2026-10-18", res.Date)
	assert.Equal(t, 1, res.Successful)
}

func TestRunFallbackDefersToOperator(t *testing.T) {
	f := newFixture(t, at(10, 5, 0))
	bookings := f.seedRooms("101", "102")
	ctx := context.Background()

	_, err := f.svc.CheckPrompt(ctx, domain.CheckPromptRequest{OperatorID: "op-1"})
	require.NoError(t, err)

	f.clock.Set(at(10, 30, 0))
	res, err := f.svc.RunFallback(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, domain.FallbackActionWaitingOnOperator, res.Action)
	assert.Nil(t, res.Result)

	completed, _, err := f.svc.IsCompleted(ctx, testDate)
	require.NoError(t, err)
	assert.False(t, completed)
	for _, b := range bookings {
		assert.Equal(t, domain.BookingStatusBooked, autocheckouttest.Load(t, f.db, b.ID).Status)
	}
}

func TestRunFallbackExecutesAfterGrace(t *testing.T) {
	f := newFixture(t, at(10, 10, 0))
	f.seedRooms("101", "102")
	ctx := context.Background()

	waiting, err := f.svc.RunFallback(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.FallbackActionWaiting, waiting.Action)
	assert.Zero(t, f.countExecutions(t))

	f.clock.Set(at(10, 30, 0))
	res, err := f.svc.RunFallback(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, domain.FallbackActionBatchExecuted, res.Action)
	assert.Equal(t, "10:30:00", res.CurrentTime)
	require.NotNil(t, res.Result)
	assert.Equal(t, 2, res.Result.Successful)
	assert.Equal(t, domain.CompletionMethodFallback, res.Result.Method)

	_, record, err := f.svc.IsCompleted(ctx, testDate)
	require.NoError(t, err)
	require.NotNil(t, record.CompletedBy)
	assert.Equal(t, domain.SystemOperatorID, *record.CompletedBy)
	assert.Equal(t, domain.CompletionMethodFallback, *record.CompletionMethod)

	executions, err := f.svc.ListExecutions(ctx, domain.ListExecutionsRequest{})
	require.NoError(t, err)
	require.Len(t, executions, 1)
	assert.Nil(t, executions[0].OperatorID)
	assert.Equal(t, "Auto-checkout triggered by fallback scheduler - all checkout times set to 10:00", executions[0].Notes)

	f.clock.Advance(5 * time.Minute)
	again, err := f.svc.RunFallback(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.FallbackActionNoneRequired, again.Action)
	assert.Equal(t, int64(1), f.countExecutions(t))

	operator, err := f.svc.CheckPrompt(ctx, domain.CheckPromptRequest{OperatorID: "op-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.PromptStateAlreadyCompleted, operator.Reason)
}

func TestRunFallbackEmptyDay(t *testing.T) {
	f := newFixture(t, at(10, 45, 0))

	res, err := f.svc.RunFallback(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, domain.FallbackActionBatchExecuted, res.Action)
	require.NotNil(t, res.Result)
	assert.Equal(t, 0, res.Result.Found)

	completed, _, err := f.svc.IsCompleted(context.Background(), testDate)
	require.NoError(t, err)
	assert.True(t, completed)
}

func TestRunFallbackOutOfWindow(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
	}{
		{name: "before_target", now: at(9, 0, 0)},
		{name: "after_window", now: at(11, 0, 1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.now)
			f.seedRooms("101")

			res, err := f.svc.RunFallback(context.Background())
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, domain.FallbackActionOutOfWindow, res.Action)
			assert.Zero(t, f.countExecutions(t))
		})
	}
}

func TestDisabledShortCircuits(t *testing.T) {
	f := newFixture(t, at(10, 45, 0), withSettings(func(c *config.AutoCheckout) { c.Enabled = false }))
	bookings := f.seedRooms("101")
	ctx := context.Background()

	decision, err := f.svc.CheckPrompt(ctx, domain.CheckPromptRequest{OperatorID: "op-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.PromptStateDisabled, decision.Reason)

	confirm := f.confirm(t, "op-1")
	assert.False(t, confirm.Success)
	assert.Equal(t, domain.ConfirmOutcomeDisabled, confirm.Outcome)

	fallback, err := f.svc.RunFallback(ctx)
	require.NoError(t, err)
	assert.True(t, fallback.Success)
	assert.Equal(t, domain.FallbackActionDisabled, fallback.Action)

	assert.Zero(t, f.countExecutions(t))
	assert.Equal(t, domain.BookingStatusBooked, autocheckouttest.Load(t, f.db, bookings[0].ID).Status)
	ack, err := f.repo.FindAck(ctx, f.db, "op-1", testDate)
	require.NoError(t, err)
	assert.Nil(t, ack)
}

func TestGetStatus(t *testing.T) {
	f := newFixture(t, at(10, 1, 0))
	f.seedRooms("101", "102")
	ctx := context.Background()

	before, err := f.svc.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, testDate, before.Date)
	assert.True(t, before.Enabled)
	assert.False(t, before.IsCompleted)
	assert.Equal(t, int64(2), before.PendingRoomsCount)
	assert.Equal(t, "10:01:00", before.CurrentTime)
	assert.Equal(t, "10:00:00", before.TargetTime)

	f.confirm(t, "op-1")

	after, err := f.svc.GetStatus(ctx)
	require.NoError(t, err)
	assert.True(t, after.IsCompleted)
	assert.Equal(t, 2, after.RoomsProcessed)
	assert.Zero(t, after.PendingRoomsCount)
	require.NotNil(t, after.CompletionMethod)
	assert.Equal(t, domain.CompletionMethodInteractive, *after.CompletionMethod)
}

func TestResetMakesDayActionable(t *testing.T) {
	f := newFixture(t, at(10, 2, 0))
	f.seedRooms("101", "102")
	ctx := context.Background()

	f.confirm(t, "op-1")

	room := f.seed.Room("401")
	flagged := f.seed.Booking(room, "Flagged", yesterday(20, 0), autocheckouttest.WithProcessed())

	_, err := f.svc.Reset(ctx, domain.ResetRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidOperator)

	res, err := f.svc.Reset(ctx, domain.ResetRequest{OperatorID: "owner-1"})
	require.NoError(t, err)
	assert.True(t, res.CompletionCleared)
	assert.Equal(t, int64(2), res.CheckoutLogsDeleted)
	assert.Equal(t, int64(1), res.ExecutionLogsDeleted)
	assert.Equal(t, int64(1), res.AcksDeleted)
	assert.Equal(t, int64(1), res.BookingsReset)

	assert.False(t, autocheckouttest.Load(t, f.db, flagged.ID).AutoCheckoutProcessed)

	decision, err := f.svc.CheckPrompt(ctx, domain.CheckPromptRequest{OperatorID: "op-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.PromptStateRequired, decision.Reason)
	assert.Equal(t, 1, decision.TotalRooms)
}

func TestResetKeepsRecoveredPastDate(t *testing.T) {
	f := newFixture(t, at(10, 30, 0))
	room := f.seed.Room("302")
	f.seed.Booking(room, "Late", time.Date(2026, 10, 17, 15, 0, 0, 0, ist))
	ctx := context.Background()

	recovered, err := f.svc.ConfirmAction(ctx, domain.ConfirmRequest{OperatorID: "op-1", Date: "2026-10-18"})
	require.NoError(t, err)
	require.Equal(t, 1, recovered.Successful)

	res, err := f.svc.Reset(ctx, domain.ResetRequest{OperatorID: "owner-1"})
	require.NoError(t, err)
	assert.Equal(t, testDate, res.Date)
	assert.Zero(t, res.CheckoutLogsDeleted)
	assert.Zero(t, res.ExecutionLogsDeleted)

	completed, _, err := f.svc.IsCompleted(ctx, "2026-10-18")
	require.NoError(t, err)
	assert.True(t, completed)

	executions, err := f.svc.ListExecutions(ctx, domain.ListExecutionsRequest{Date: "2026-10-18"})
	require.NoError(t, err)
	assert.Len(t, executions, 1)
	logs, err := f.svc.ListCheckoutLogs(ctx, domain.ListCheckoutLogsRequest{Date: "2026-10-18"})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestNotificationFailuresAreReported(t *testing.T) {
	f := newFixture(t, at(10, 2, 0))
	room := f.seed.Room("501")
	silent := f.seed.Booking(room, "Silent", yesterday(10, 0), autocheckouttest.WithMobile(""))
	rejected := f.seed.Booking(room, "Rejected", yesterday(11, 0), autocheckouttest.WithMobile("+911111111111"))
	ok := f.seed.Booking(room, "Fine", yesterday(12, 0))
	f.notify.fail["+911111111111"] = sms.ErrGatewayRejected

	res := f.confirm(t, "op-1")
	assert.Equal(t, 3, res.Successful)
	require.Len(t, res.Notifications, 3)

	byID := map[snowflake.ID]domain.NotificationResult{}
	for _, n := range res.Notifications {
		byID[n.BookingID] = n
	}
	assert.False(t, byID[silent.ID].Attempted)
	assert.Equal(t, "no_recipient", byID[silent.ID].Error)
	assert.True(t, byID[rejected.ID].Attempted)
	assert.Equal(t, "notification_failed", byID[rejected.ID].Error)
	assert.True(t, byID[ok.ID].Delivered)

	sent := f.notify.messages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Body, "Fine")
	assert.Contains(t, sent[0].Body, "10:00")
}

func TestNotificationTimeout(t *testing.T) {
	f := newFixture(t, at(10, 2, 0), withSettings(func(c *config.AutoCheckout) {
		c.NotificationTimeout = 20 * time.Millisecond
	}))
	f.notify.wait = true
	f.seedRooms("101")

	res := f.confirm(t, "op-1")
	assert.Equal(t, 1, res.Successful)
	require.Len(t, res.Notifications, 1)
	assert.Equal(t, "notification_timeout", res.Notifications[0].Error)
}

func TestResolvePendingOrder(t *testing.T) {
	f := newFixture(t, at(10, 0, 0))
	room := f.seed.Room("601")
	late := f.seed.Booking(room, "Late", yesterday(18, 0))
	early := f.seed.Booking(room, "Early", yesterday(8, 0))
	walkIn := f.seed.Booking(room, "WalkIn", at(6, 0, 0), autocheckouttest.WithActualCheckIn(yesterday(23, 0)))

	pending, err := f.svc.ResolvePending(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, early.ID, pending[0].BookingID)
	assert.Equal(t, late.ID, pending[1].BookingID)
	assert.Equal(t, walkIn.ID, pending[2].BookingID)
}

func TestAuditListValidation(t *testing.T) {
	f := newFixture(t, at(10, 0, 0))
	ctx := context.Background()

	_, err := f.svc.ListExecutions(ctx, domain.ListExecutionsRequest{Limit: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidLimit)

	_, err = f.svc.ListExecutions(ctx, domain.ListExecutionsRequest{Date: "yesterday"})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)

	_, err = f.svc.ListCheckoutLogs(ctx, domain.ListCheckoutLogsRequest{Outcome: "maybe"})
	assert.ErrorIs(t, err, domain.ErrInvalidOutcome)

	items, err := f.svc.ListCheckoutLogs(ctx, domain.ListCheckoutLogsRequest{Limit: 5000})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}
