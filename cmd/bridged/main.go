// bridged runs the bridge standalone with a scripted host executor. In
// production the bridge is embedded in the host plugin, which drives
// Tick from its own callback; here a fixed-cadence ticker stands in for
// the host scheduler.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hostbridge/internal/bridge"
	"hostbridge/internal/config"
	"hostbridge/internal/host"
	"hostbridge/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "bridged",
		Short:         "WebSocket JSON-RPC bridge for a tick-driven host",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	// Echo host: every command returns itself. Good enough to exercise
	// the full request/queue/tick/response cycle from any client.
	b, err := bridge.New(cfg, host.NewScript(), log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return b.Stop()
		case <-ticker.C:
			b.Tick()
		}
	}
}
