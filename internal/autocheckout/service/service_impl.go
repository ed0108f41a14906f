package service

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	obsmetrics "github.com/smallbiznis/frontdesk/internal/observability/metrics"
	"github.com/smallbiznis/frontdesk/internal/observability/tracing"
	"github.com/smallbiznis/frontdesk/internal/providers/sms"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Settings *config.AutoCheckoutHolder
	Repo     domain.Repository
	Notifier sms.Provider

	Metrics             *obsmetrics.Metrics             `optional:"true"`
	AutoCheckoutMetrics *obsmetrics.AutoCheckoutMetrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	settings *config.AutoCheckoutHolder
	repo     domain.Repository
	notifier sms.Provider

	otelMetrics *obsmetrics.Metrics
	metrics     *obsmetrics.AutoCheckoutMetrics
	tracer      trace.Tracer
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("autocheckout.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		settings:    p.Settings,
		repo:        p.Repo,
		notifier:    p.Notifier,
		otelMetrics: p.Metrics,
		metrics:     p.AutoCheckoutMetrics,
		tracer:      otel.Tracer("frontdesk/autocheckout"),
	}
}

// day is the calendar context of one evaluation.
type day struct {
	settings config.AutoCheckout
	loc      *time.Location
	now      time.Time
	date     string
	target   time.Time
}

func (s *Service) today() (day, error) {
	settings := s.settings.Get()
	loc, err := settings.Location()
	if err != nil {
		return day{}, fmt.Errorf("%w: %v", domain.ErrInvalidSettings, err)
	}
	now := s.clock.Now().UTC()
	return s.dayFor(settings, loc, now, now.In(loc).Format(domain.DateLayout))
}

func (s *Service) dayFor(settings config.AutoCheckout, loc *time.Location, now time.Time, date string) (day, error) {
	target, err := settings.TargetOn(date, loc)
	if err != nil {
		return day{}, domain.ErrInvalidDate
	}
	return day{
		settings: settings,
		loc:      loc,
		now:      now.UTC(),
		date:     date,
		target:   target.UTC(),
	}, nil
}

func (d day) localTime() string {
	return d.now.In(d.loc).Format("15:04:05")
}

// targetClock renders the target time as HH:MM for notes and messages.
func (d day) targetClock() string {
	return d.target.In(d.loc).Format("15:04")
}

func recordSpanError(span trace.Span, err error, description string) {
	if safe := tracing.SafeError(err); safe != nil {
		span.RecordError(safe)
	}
	span.SetStatus(codes.Error, description)
}
