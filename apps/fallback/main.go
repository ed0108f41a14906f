// Command fallback runs the auto checkout fallback once and exits. It is
// meant for an external cron: exit status 0 when the run reports success.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/autocheckout"
	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	"github.com/smallbiznis/frontdesk/internal/migration"
	"github.com/smallbiznis/frontdesk/internal/observability"
	obscontext "github.com/smallbiznis/frontdesk/internal/observability/context"
	"github.com/smallbiznis/frontdesk/internal/providers"
	"github.com/smallbiznis/frontdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const runTimeout = 2 * time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	var (
		svc domain.Service
		log *zap.Logger
	)

	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		providers.Module,
		autocheckout.Module,
		fx.Populate(&svc, &log),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "fallback: start: %v\n", err)
		return 1
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
		defer stopCancel()
		_ = app.Stop(stopCtx)
	}()

	ctx, runCancel := context.WithTimeout(context.Background(), runTimeout)
	defer runCancel()
	ctx = obscontext.WithActor(ctx, "system", "cron")

	result, err := svc.RunFallback(ctx)
	if err != nil {
		log.Error("autocheckout.fallback.cron_failed", zap.Error(err))
		writeResult(domain.FallbackResult{Success: false, Message: "fallback run failed"})
		return 1
	}
	writeResult(result)
	if !result.Success {
		return 1
	}
	return 0
}

func writeResult(result domain.FallbackResult) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
