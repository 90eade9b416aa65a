package uniqueids

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/maelnode/maelnode/pkg/log"
	"github.com/maelnode/maelnode/pkg/maelstrom"
	"github.com/maelnode/maelnode/uniqueids"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unique-ids",
		Short: "start a unique id generation node",
		Long: `Start a unique ID generation node.

Every 'generate' request is answered with a 'generate_ok' reply carrying an
identifier that is unique across the whole cluster.

Messages are read from stdin and written to stdout, one JSON message per
line. Logs go to stderr.

Examples:
  # Start a unique-ids node generating random UUIDs.
  maelnode unique-ids

  # Generate '<node>/<counter>' identifiers instead.
  maelnode unique-ids --generator sequence
`,
	}

	var generator string
	cmd.Flags().StringVar(
		&generator,
		"generator",
		uniqueids.GeneratorRandom,
		`
Identifier generator. Either 'random' (UUIDs) or 'sequence'
('<node>/<counter>', unique since node identities are unique).`,
	)

	logConf := log.Config{
		Level: "info",
	}
	logConf.RegisterFlags(cmd.Flags())

	cmd.Run = func(cmd *cobra.Command, args []string) {
		if generator != uniqueids.GeneratorRandom &&
			generator != uniqueids.GeneratorSequence {
			fmt.Printf("invalid config: unknown generator: %s\n", generator)
			os.Exit(1)
		}
		if err := logConf.Validate(); err != nil {
			fmt.Printf("invalid config: %s\n", err.Error())
			os.Exit(1)
		}

		logger, err := log.NewLogger(logConf.Level, logConf.Subsystems)
		if err != nil {
			fmt.Printf("failed to setup logger: %s\n", err.Error())
			os.Exit(1)
		}

		ctx, cancel := signal.NotifyContext(
			context.Background(), syscall.SIGINT, syscall.SIGTERM,
		)
		defer cancel()

		node := maelstrom.NewNode(os.Stdin, os.Stdout, logger)
		if err := node.Init(); err != nil {
			logger.Error("failed to initialize node", zap.Error(err))
			os.Exit(1)
		}

		handler := uniqueids.New(node.ID(), generator, logger)
		if err := node.Serve(ctx, handler); err != nil {
			logger.Error("failed to run unique-ids node", zap.Error(err))
			os.Exit(1)
		}
	}

	return cmd
}
