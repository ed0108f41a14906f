// Package autocheckouttest provides an in-memory store and seed helpers for
// auto checkout tests.
package autocheckouttest

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
	"github.com/smallbiznis/frontdesk/internal/migration"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenDB returns a migrated in-memory SQLite database private to t.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	return open(t, fmt.Sprintf("file:%s?mode=memory&cache=shared", name), 1)
}

// OpenFileDB returns a migrated WAL-mode SQLite file under t.TempDir() with a
// pool of conns connections. Writers wait on each other through busy_timeout.
func OpenFileDB(t testing.TB, conns int) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "frontdesk.db")
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)", path)
	return open(t, dsn, conns)
}

func open(t testing.TB, dsn string, conns int) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migration.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// Seeder inserts rooms and bookings with deterministic ids.
type Seeder struct {
	t    testing.TB
	db   *gorm.DB
	node *snowflake.Node
}

func NewSeeder(t testing.TB, db *gorm.DB) *Seeder {
	t.Helper()
	node, err := snowflake.NewNode(7)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	return &Seeder{t: t, db: db, node: node}
}

func (s *Seeder) Room(name string) domain.Resource {
	s.t.Helper()
	now := time.Now().UTC()
	room := domain.Resource{
		ID:          s.node.Generate(),
		DisplayName: name,
		Type:        "room",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.Create(&room).Error; err != nil {
		s.t.Fatalf("failed to seed room: %v", err)
	}
	return room
}

// BookingOption customizes a seeded booking.
type BookingOption func(*domain.Booking)

func WithStatus(status domain.BookingStatus) BookingOption {
	return func(b *domain.Booking) { b.Status = status }
}

func WithActualCheckIn(at time.Time) BookingOption {
	return func(b *domain.Booking) {
		at = at.UTC()
		b.ActualCheckIn = &at
	}
}

func WithProcessed() BookingOption {
	return func(b *domain.Booking) { b.AutoCheckoutProcessed = true }
}

func WithMobile(mobile string) BookingOption {
	return func(b *domain.Booking) { b.GuestMobile = mobile }
}

// Booking seeds a BOOKED booking for room checked in at checkIn.
func (s *Seeder) Booking(room domain.Resource, guest string, checkIn time.Time, opts ...BookingOption) domain.Booking {
	s.t.Helper()
	now := time.Now().UTC()
	booking := domain.Booking{
		ID:          s.node.Generate(),
		ResourceID:  room.ID,
		GuestName:   guest,
		GuestMobile: "+910000000000",
		CheckIn:     checkIn.UTC(),
		Status:      domain.BookingStatusBooked,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, opt := range opts {
		opt(&booking)
	}
	if err := s.db.Create(&booking).Error; err != nil {
		s.t.Fatalf("failed to seed booking: %v", err)
	}
	return booking
}

// Load reads a booking back from the store.
func Load(t testing.TB, db *gorm.DB, id snowflake.ID) domain.Booking {
	t.Helper()
	var booking domain.Booking
	if err := db.Where("id = ?", id).Take(&booking).Error; err != nil {
		t.Fatalf("failed to load booking %s: %v", id, err)
	}
	return booking
}
