package service

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
	"gorm.io/gorm"
)

// cutoffFor returns local midnight of date as a UTC instant. A booking whose
// effective check-in is before the cutoff checked in on or before the
// previous day and is due for checkout on date.
func cutoffFor(date string, loc *time.Location) (time.Time, error) {
	midnight, err := time.ParseInLocation(domain.DateLayout, date, loc)
	if err != nil {
		return time.Time{}, domain.ErrInvalidDate
	}
	return midnight.UTC(), nil
}

func (s *Service) resolvePending(ctx context.Context, db *gorm.DB, date string, loc *time.Location) ([]domain.PendingBooking, error) {
	cutoff, err := cutoffFor(date, loc)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPending(ctx, db, cutoff)
}

func (s *Service) ResolvePending(ctx context.Context, date string) ([]domain.PendingBooking, error) {
	d, err := s.today()
	if err != nil {
		return nil, err
	}
	date = strings.TrimSpace(date)
	if date == "" {
		date = d.date
	}
	return s.resolvePending(ctx, s.db, date, d.loc)
}
