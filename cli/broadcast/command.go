package broadcast

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	rungroup "github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/maelnode/maelnode/admin"
	"github.com/maelnode/maelnode/broadcast"
	"github.com/maelnode/maelnode/broadcast/config"
	pkgconfig "github.com/maelnode/maelnode/pkg/config"
	"github.com/maelnode/maelnode/pkg/log"
	"github.com/maelnode/maelnode/pkg/maelstrom"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "start a broadcast node",
		Long: `Start a broadcast node.

The broadcast node participates in an all-to-all value broadcast. Values
received from clients or peers are added to the node's local set and
flooded to its neighbors; every flood is re-sent each retry interval until
the neighbor acknowledges it, so every value eventually reaches every node
even when messages are lost.

Messages are read from stdin and written to stdout, one JSON message per
line. Logs go to stderr.

Examples:
  # Start a broadcast node.
  maelnode broadcast

  # Start a broadcast node re-sending unacknowledged gossip every 500ms.
  maelnode broadcast --broadcast.retry-interval 500ms

  # Expose health, metrics and status routes for debugging.
  maelnode broadcast --admin.bind-addr 127.0.0.1:9000
`,
	}

	conf := config.Default()

	var configPath string
	cmd.Flags().StringVar(
		&configPath,
		"config.path",
		"",
		`
YAML config file path.`,
	)

	var configExpandEnv bool
	cmd.Flags().BoolVar(
		&configExpandEnv,
		"config.expand-env",
		false,
		`
Whether to expand environment variables in the config file.

This will replace references to ${VAR} or $VAR with the corresponding
environment variable. The replacement is case-sensitive.

References to undefined variables will be replaced with an empty string. A
default value can be given using form ${VAR:default}.`,
	)

	// Register flags and set default values.
	conf.RegisterFlags(cmd.Flags())

	cmd.Run = func(cmd *cobra.Command, args []string) {
		if configPath != "" {
			if err := pkgconfig.Load(&conf, configPath, configExpandEnv); err != nil {
				fmt.Printf("load config: %s\n", err.Error())
				os.Exit(1)
			}
		}

		if err := conf.Validate(); err != nil {
			fmt.Printf("invalid config: %s\n", err.Error())
			os.Exit(1)
		}

		logger, err := log.NewLogger(conf.Log.Level, conf.Log.Subsystems)
		if err != nil {
			fmt.Printf("failed to setup logger: %s\n", err.Error())
			os.Exit(1)
		}

		if err := run(&conf, logger); err != nil {
			logger.Error("failed to run broadcast node", zap.Error(err))
			os.Exit(1)
		}
	}

	return cmd
}

func run(conf *config.Config, logger log.Logger) error {
	logger.Info("starting broadcast node", zap.Any("conf", conf))

	registry := prometheus.NewRegistry()

	node := maelstrom.NewNode(os.Stdin, os.Stdout, logger)
	if err := node.Init(); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	engine := broadcast.NewEngine(node.ID(), logger)
	engine.Metrics().Register(registry)

	server := broadcast.NewServer(
		node, engine, conf.Broadcast.RetryInterval, logger,
	)

	var group rungroup.Group

	// Termination handler.
	signalCtx, signalCancel := context.WithCancel(context.Background())
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	group.Add(func() error {
		select {
		case sig := <-signalCh:
			logger.Info(
				"received shutdown signal",
				zap.String("signal", sig.String()),
			)
			return nil
		case <-signalCtx.Done():
			return nil
		}
	}, func(error) {
		signalCancel()
	})

	// Broadcast worker.
	runCtx, runCancel := context.WithCancel(context.Background())
	group.Add(func() error {
		if err := server.Run(runCtx); err != nil {
			return fmt.Errorf("broadcast: %w", err)
		}
		return nil
	}, func(error) {
		runCancel()
	})

	// Admin server.
	if conf.Admin.BindAddr != "" {
		adminLn, err := net.Listen("tcp", conf.Admin.BindAddr)
		if err != nil {
			return fmt.Errorf("admin listen: %s: %w", conf.Admin.BindAddr, err)
		}
		adminServer := admin.NewServer(adminLn, registry, logger)
		adminServer.AddStatus("/broadcast", broadcast.NewStatus(engine))

		group.Add(func() error {
			if err := adminServer.Serve(); err != nil {
				return fmt.Errorf("admin server: %w", err)
			}
			return nil
		}, func(error) {
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(), time.Second*5,
			)
			defer cancel()

			if err := adminServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn(
					"failed to gracefully shutdown admin server",
					zap.Error(err),
				)
			}
		})
	}

	if err := group.Run(); err != nil {
		return err
	}

	logger.Info("shutdown complete")

	return nil
}
