package echo

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	echonode "github.com/maelnode/maelnode/echo"
	"github.com/maelnode/maelnode/pkg/log"
	"github.com/maelnode/maelnode/pkg/maelstrom"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "echo",
		Short: "start an echo node",
		Long: `Start an echo node.

The echo node is a stateless request/response transform: every 'echo'
request is answered with an 'echo_ok' reply carrying the same payload.

Messages are read from stdin and written to stdout, one JSON message per
line. Logs go to stderr.

Examples:
  # Start an echo node.
  maelnode echo

  # Start an echo node with debug logging.
  maelnode echo --log.level debug
`,
	}

	logConf := log.Config{
		Level: "info",
	}
	logConf.RegisterFlags(cmd.Flags())

	cmd.Run = func(cmd *cobra.Command, args []string) {
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

		if err := node.Serve(ctx, echonode.New(logger)); err != nil {
			logger.Error("failed to run echo node", zap.Error(err))
			os.Exit(1)
		}
	}

	return cmd
}
