package service

import (
	"context"

	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
)

func (s *Service) GetStatus(ctx context.Context) (domain.StatusView, error) {
	d, err := s.today()
	if err != nil {
		return domain.StatusView{}, err
	}
	view := domain.StatusView{
		Date:        d.date,
		Enabled:     d.settings.Enabled,
		CurrentTime: d.localTime(),
		TargetTime:  d.settings.TargetTime,
	}

	completed, record, err := s.isCompleted(ctx, s.db, d.date)
	if err != nil {
		return domain.StatusView{}, err
	}
	if completed {
		view.IsCompleted = true
		view.CompletedAt = record.CompletedAt
		view.CompletionMethod = record.CompletionMethod
		view.RoomsProcessed = record.RoomsFound
		return view, nil
	}

	cutoff, err := cutoffFor(d.date, d.loc)
	if err != nil {
		return domain.StatusView{}, err
	}
	count, err := s.repo.CountPending(ctx, s.db.WithContext(ctx), cutoff)
	if err != nil {
		return domain.StatusView{}, err
	}
	view.PendingRoomsCount = count
	return view, nil
}
