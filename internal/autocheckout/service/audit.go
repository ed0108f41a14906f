package service

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

func (s *Service) ListExecutions(ctx context.Context, req domain.ListExecutionsRequest) ([]domain.ExecutionLogEntry, error) {
	date, err := normalizeDate(req.Date)
	if err != nil {
		return nil, err
	}
	limit, err := normalizeLimit(req.Limit)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListExecutions(ctx, s.db.WithContext(ctx), domain.ListExecutionsFilter{
		Date:  date,
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.ExecutionLogEntry{}
	}
	return items, nil
}

func (s *Service) ListCheckoutLogs(ctx context.Context, req domain.ListCheckoutLogsRequest) ([]domain.CheckoutLogEntry, error) {
	date, err := normalizeDate(req.Date)
	if err != nil {
		return nil, err
	}
	limit, err := normalizeLimit(req.Limit)
	if err != nil {
		return nil, err
	}
	outcome := domain.CheckoutOutcome(strings.ToLower(strings.TrimSpace(req.Outcome)))
	switch outcome {
	case "", domain.CheckoutOutcomeSuccess, domain.CheckoutOutcomeFailed:
	default:
		return nil, domain.ErrInvalidOutcome
	}

	items, err := s.repo.ListCheckoutLogs(ctx, s.db.WithContext(ctx), domain.ListCheckoutLogsFilter{
		Date:    date,
		Outcome: outcome,
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.CheckoutLogEntry{}
	}
	return items, nil
}

func normalizeDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if _, err := time.Parse(domain.DateLayout, value); err != nil {
		return "", domain.ErrInvalidDate
	}
	return value, nil
}

func normalizeLimit(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, domain.ErrInvalidLimit
	case limit == 0:
		return defaultListLimit, nil
	case limit > maxListLimit:
		return maxListLimit, nil
	}
	return limit, nil
}
