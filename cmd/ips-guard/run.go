package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"ips-guard/internal/api"
	"ips-guard/internal/client"
	"ips-guard/internal/pipeline"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate rules against a live Hubble flow stream",
	Long: `Connects to a Hubble relay, evaluates every flow against the loaded rules
and serves the operator API (options, rules, profile, alerts, metrics).`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.Close()

	config, logger := rt.config, rt.logger

	store := api.NewStorage(config.Application.MaxAlerts, logger)
	handlers := api.NewHandlers(store, rt.engine, logger)
	server := api.NewServer(config.Application.ListenAddress, api.NewRouter(handlers, rt.metrics), logger)

	hubble, err := client.NewHubbleGRPCClient(config.Application.HubbleServer, config.Application.Namespaces, logger)
	if err != nil {
		return err
	}
	defer hubble.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	testCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := hubble.TestConnection(testCtx); err != nil {
		logger.Warnf("Connection test failed: %v", err)
	}
	cancel()

	pool := pipeline.NewPool(rt.engine, rt.metrics, logger, config.Application.Workers, config.Profile.FlushInterval())
	logger.Infof("Evaluating %d rules with %d workers", len(rt.engine.RuleSet().Rules), pool.Workers())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Start(ctx) })
	if config.Alerting.Channels.Websocket {
		alerts := rt.engine.GetAlertChannel()
		g.Go(func() error { return store.Consume(ctx, alerts) })
	}
	g.Go(func() error {
		err := pool.Run(ctx, hubble)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	err = g.Wait()
	logger.Info("Stopped")
	return err
}
