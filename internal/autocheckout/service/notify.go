package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
	"github.com/smallbiznis/frontdesk/internal/observability/logger"
	"github.com/smallbiznis/frontdesk/internal/providers/sms"
	"go.uber.org/zap"
)

const (
	notifyErrNoRecipient = "no_recipient"
	notifyErrUnavailable = "notifier_unavailable"
	notifyErrTimeout     = "notification_timeout"
	notifyErrFailed      = "notification_failed"
)

// notify sends one checkout SMS per booking, each bounded by the configured
// timeout. Failures are reported, never retried.
func (s *Service) notify(ctx context.Context, d day, bookings []domain.PendingBooking) []domain.NotificationResult {
	log := logger.WithContext(ctx, s.log).With(zap.String("date", d.date))
	results := make([]domain.NotificationResult, 0, len(bookings))
	provider := "none"
	if s.notifier != nil {
		provider = s.notifier.Name()
	}

	for _, booking := range bookings {
		res := domain.NotificationResult{BookingID: booking.BookingID}
		to := strings.TrimSpace(booking.GuestContact)
		switch {
		case s.notifier == nil:
			res.Error = notifyErrUnavailable
		case to == "":
			res.Error = notifyErrNoRecipient
		default:
			res.Attempted = true
			sendCtx, cancel := context.WithTimeout(ctx, d.settings.NotificationTimeout)
			err := s.notifier.Send(sendCtx, sms.Message{
				To:        to,
				Body:      checkoutMessage(d, booking),
				Reference: booking.BookingID.String(),
			})
			timedOut := errors.Is(sendCtx.Err(), context.DeadlineExceeded)
			cancel()
			switch {
			case err == nil:
				res.Delivered = true
			case timedOut || errors.Is(err, context.DeadlineExceeded):
				res.Error = notifyErrTimeout
			default:
				res.Error = notifyErrFailed
			}
			if err != nil {
				log.Warn("autocheckout.notify.failed",
					zap.String("booking_id", booking.BookingID.String()),
					zap.String("provider", provider),
					zap.Error(err),
				)
			}
		}

		outcome := "delivered"
		if !res.Delivered {
			outcome = res.Error
		}
		s.metrics.IncNotification(outcome)
		s.otelMetrics.RecordNotification(ctx, provider, outcome)
		results = append(results, res)
	}
	return results
}

func checkoutMessage(d day, booking domain.PendingBooking) string {
	return fmt.Sprintf("Dear %s, you have been checked out of %s at %s on %s. Thank you for staying with us.",
		booking.GuestName,
		booking.ResourceName,
		d.targetClock(),
		d.date,
	)
}
