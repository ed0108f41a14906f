package sms

import (
	"context"

	"github.com/smallbiznis/frontdesk/internal/observability/logger"
	"go.uber.org/zap"
)

// LogProvider writes messages to the application log instead of sending them.
type LogProvider struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *LogProvider {
	return &LogProvider{log: log.Named("sms.log")}
}

func (p *LogProvider) Name() string { return "log" }

func (p *LogProvider) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	logger.WithContext(ctx, p.log).Info("sms.send",
		zap.String("reference", msg.Reference),
		zap.Int("body_length", len(msg.Body)),
	)
	return nil
}
