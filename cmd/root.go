package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/agentic-research/csvgraph/internal/logging"
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	verbosity int
	logFormat string
}

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	opts := &convertOptions{}

	root := &cobra.Command{
		Use:   "csvtordf",
		Short: "csvtordf: parallel CSV to RDF conversion",
		Long: `csvtordf reads a CSV file whose first line is the header and emits one
RDF statement per cell, processing batches of rows on a pool of workers.

Running csvtordf with -c is the same as "csvtordf convert".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.csv == "" {
				return cmd.Help()
			}
			return runConvert(cmd, g, opts)
		},
	}
	root.PersistentFlags().IntVarP(&g.verbosity, "verbosity", "v", 0, "Verbosity: 0 info, 1-2 debug, 3 also dumps the model")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "text", "Log format: text or json")
	addConvertFlags(root, opts)

	root.AddCommand(newConvertCmd(g), newSchemaCmd(g))
	return root
}

// logger builds the logger from the persistent flags and attaches it to
// the command context.
func (g *globalOptions) logger(cmd *cobra.Command) (context.Context, *slog.Logger) {
	logger := logging.New(logging.LevelForVerbosity(g.verbosity), g.logFormat, cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logging.WithLogger(ctx, logger), logger
}

// Execute runs the root command. An interrupt cancels the command context,
// which stops a conversion waiting on its workers.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
