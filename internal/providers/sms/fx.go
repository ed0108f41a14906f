package sms

import (
	"fmt"

	"github.com/smallbiznis/frontdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.sms",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) (Provider, error) {
	switch cfg.SMS.Provider {
	case "", "log":
		return NewLog(log), nil
	case "noop", "none":
		return &NoOpProvider{}, nil
	case "http":
		if cfg.SMS.Endpoint == "" {
			return nil, fmt.Errorf("sms provider http requires SMS_ENDPOINT")
		}
		return NewHTTP(HTTPConfig{
			Endpoint: cfg.SMS.Endpoint,
			APIKey:   cfg.SMS.APIKey,
			SenderID: cfg.SMS.SenderID,
		}, nil), nil
	default:
		return nil, fmt.Errorf("unsupported sms provider %q", cfg.SMS.Provider)
	}
}
