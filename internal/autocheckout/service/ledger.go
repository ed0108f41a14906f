package service

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
	"gorm.io/gorm"
)

type completion struct {
	OperatorID   string
	Method       domain.CompletionMethod
	Found        int
	Successful   int
	Failed       int
	ErrorMessage string
}

func (s *Service) isCompleted(ctx context.Context, db *gorm.DB, date string) (bool, *domain.DailyCompletionRecord, error) {
	record, err := s.repo.FindCompletion(ctx, db, date)
	if err != nil {
		return false, nil, err
	}
	if record == nil {
		return false, nil, nil
	}
	return record.IsCompleted, record, nil
}

func (s *Service) IsCompleted(ctx context.Context, date string) (bool, *domain.DailyCompletionRecord, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		d, err := s.today()
		if err != nil {
			return false, nil, err
		}
		date = d.date
	}
	return s.isCompleted(ctx, s.db, date)
}

// claim inserts the ledger row for the date if missing and locks it for the
// rest of tx. Concurrent triggers queue here.
func (s *Service) claim(ctx context.Context, tx *gorm.DB, d day) (*domain.DailyCompletionRecord, error) {
	now := s.clock.Now().UTC()
	if err := s.repo.ClaimCompletion(ctx, tx, &domain.DailyCompletionRecord{
		ID:         s.genID.Generate(),
		Date:       d.date,
		TargetTime: d.settings.TargetTime,
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		return nil, err
	}
	record, err := s.repo.LockCompletion(ctx, tx, d.date)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.New("completion claim row missing after insert")
	}
	return record, nil
}

func (s *Service) markCompleted(ctx context.Context, tx *gorm.DB, d day, c completion) (*domain.DailyCompletionRecord, error) {
	now := s.clock.Now().UTC()
	operatorID := c.OperatorID
	method := c.Method
	record := &domain.DailyCompletionRecord{
		ID:               s.genID.Generate(),
		Date:             d.date,
		TargetTime:       d.settings.TargetTime,
		IsCompleted:      true,
		CompletedAt:      &now,
		CompletedBy:      &operatorID,
		CompletionMethod: &method,
		RoomsFound:       c.Found,
		RoomsSuccessful:  c.Successful,
		RoomsFailed:      c.Failed,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if c.ErrorMessage != "" {
		msg := c.ErrorMessage
		record.ErrorMessage = &msg
	}
	if err := s.repo.UpsertCompletion(ctx, tx, record); err != nil {
		return nil, err
	}
	return record, nil
}
