package autocheckout

import (
	"github.com/smallbiznis/frontdesk/internal/autocheckout/export"
	"github.com/smallbiznis/frontdesk/internal/autocheckout/repository"
	"github.com/smallbiznis/frontdesk/internal/autocheckout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("autocheckout",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(export.New),
)
