package cli

import (
	"github.com/spf13/cobra"

	"github.com/maelnode/maelnode/cli/broadcast"
	"github.com/maelnode/maelnode/cli/echo"
	"github.com/maelnode/maelnode/cli/uniqueids"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "maelnode [command] (flags)",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Long: `Maelnode is a suite of cluster node binaries speaking a line-oriented
JSON request/response protocol over stdin and stdout.

Each node reads newline-delimited JSON messages from stdin, applies them to
its local state and writes any resulting messages to stdout. The first
message must be an 'init' handshake assigning the node its identity and the
cluster peer list.

Start a broadcast node with:

  $ maelnode broadcast

The broadcast node participates in an all-to-all value broadcast: values
received from clients or peers are flooded to the node's neighbors and
re-sent every retry interval until acknowledged, so every value eventually
reaches every node even when messages are lost.

The 'echo' and 'unique-ids' nodes are stateless request/response
transforms:

  $ maelnode echo
  $ maelnode unique-ids
`,
	}

	cmd.AddCommand(echo.NewCommand())
	cmd.AddCommand(uniqueids.NewCommand())
	cmd.AddCommand(broadcast.NewCommand())

	return cmd
}

func init() {
	cobra.EnableCommandSorting = false
}
