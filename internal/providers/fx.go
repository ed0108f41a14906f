package providers

import (
	"github.com/smallbiznis/frontdesk/internal/providers/sms"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	sms.Module,
)
