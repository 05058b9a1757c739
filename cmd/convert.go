package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/agentic-research/csvgraph/api"
	"github.com/agentic-research/csvgraph/internal/config"
	"github.com/agentic-research/csvgraph/internal/ingest"
	"github.com/agentic-research/csvgraph/internal/metrics"
	"github.com/agentic-research/csvgraph/internal/sink"
	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type convertOptions struct {
	csv        string
	output     string
	augment    string
	configPath string
	prefix     string
	rowType    string
	threads    int
	batchSize  int
	sqlite     string
	pgDSN      string
	report     string
	metricsOut string
	infer      int
}

func addConvertFlags(cmd *cobra.Command, o *convertOptions) {
	f := cmd.Flags()
	f.StringVarP(&o.csv, "csv", "c", "", "CSV file to convert (first line is the header)")
	f.StringVarP(&o.output, "output", "o", "", `N-Triples output file, "-" for stdout`)
	f.StringVarP(&o.augment, "augment", "a", "", "Metadata file: one line of datatype names aligned to the header")
	f.StringVar(&o.configPath, "config", "", "Conversion settings (.hcl, .json, .yaml)")
	f.StringVar(&o.prefix, "prefix", "", "Namespace for properties and row resources")
	f.StringVar(&o.rowType, "type", "", `rdf:type of every row ("none" to disable)`)
	f.IntVarP(&o.threads, "threads", "t", 0, "Worker count")
	f.IntVar(&o.batchSize, "batch-size", 0, "Rows per batch")
	f.IntVar(&o.infer, "infer", 0, "Sample this many rows to guess column datatypes")
	f.StringVar(&o.sqlite, "sqlite", "", "Also write statements into this SQLite database")
	f.StringVar(&o.pgDSN, "pg-dsn", "", "Also copy statements into Postgres at this DSN")
	f.StringVar(&o.report, "report", "text", "Run report format: text, json or none")
	f.StringVar(&o.metricsOut, "metrics-out", "", "Write Prometheus metrics in text format to this file")
}

func newConvertCmd(g *globalOptions) *cobra.Command {
	opts := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert -c input.csv [-o output.nt]",
		Short: "Convert a CSV file into RDF statements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, g, opts)
		},
	}
	addConvertFlags(cmd, opts)
	_ = cmd.MarkFlagRequired("csv")
	return cmd
}

// settings merges the config file (or defaults) with explicitly set flags.
func (o *convertOptions) settings(cmd *cobra.Command) (*api.Conversion, error) {
	switch o.report {
	case "text", "json", "none", "":
	default:
		return nil, fmt.Errorf("unknown report format %q", o.report)
	}
	conv := config.Default()
	if o.configPath != "" {
		var err error
		if conv, err = config.Load(o.configPath); err != nil {
			return nil, err
		}
	}
	f := cmd.Flags()
	if f.Changed("prefix") {
		conv.Prefix = o.prefix
	}
	if f.Changed("type") {
		conv.RowType = o.rowType
	}
	if f.Changed("threads") {
		conv.Threads = o.threads
	}
	if f.Changed("batch-size") {
		conv.BatchSize = o.batchSize
	}
	if f.Changed("infer") {
		conv.Infer = o.infer
	}
	if f.Changed("augment") {
		conv.Metadata = o.augment
	}
	if err := config.Validate(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func runConvert(cmd *cobra.Command, g *globalOptions, o *convertOptions) error {
	ctx, logger := g.logger(cmd)

	settings, err := o.settings(cmd)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}

	conv := ingest.NewConverter(config.ConverterConfig(settings))
	conv.Metrics = m
	conv.Logger = logger

	if err := conv.InitModelFromFile(o.csv); err != nil {
		return err
	}
	if err := config.Apply(settings, conv, o.csv); err != nil {
		return err
	}

	res, runErr := conv.ReadInputFile(ctx, o.csv, settings.Threads)
	if err := o.writeReport(cmd, res); err != nil {
		return err
	}
	if o.metricsOut != "" {
		if err := writeMetrics(o.metricsOut, reg); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}

	if g.verbosity >= 3 {
		if err := conv.Store().Dump(cmd.ErrOrStderr()); err != nil {
			return err
		}
	}
	return o.writeOutputs(ctx, cmd, conv, res, logger)
}

func (o *convertOptions) writeOutputs(ctx context.Context, cmd *cobra.Command, conv *ingest.Converter, res *ingest.Result, logger *slog.Logger) error {
	store := conv.Store()

	if o.output != "" || (o.sqlite == "" && o.pgDSN == "") {
		if err := o.writeNTriples(cmd, conv); err != nil {
			return err
		}
	}

	if o.sqlite != "" {
		w, err := sink.OpenSQLite(o.sqlite)
		if err != nil {
			return err
		}
		w.RunID = res.RunID
		if err := w.Write(ctx, store); err != nil {
			_ = w.Close()
			return fmt.Errorf("write sqlite %s: %w", o.sqlite, err)
		}
		if err := w.Close(); err != nil {
			return err
		}
		logger.Info("wrote sqlite", "path", o.sqlite, "run_id", res.RunID, "statements", store.Len())
	}

	if o.pgDSN != "" {
		p, err := sink.OpenPostgres(ctx, o.pgDSN, 0)
		if err != nil {
			return err
		}
		defer p.Close()
		p.RunID = res.RunID
		if err := p.Write(ctx, store); err != nil {
			return err
		}
		logger.Info("wrote postgres", "run_id", res.RunID, "statements", store.Len())
	}
	return nil
}

func (o *convertOptions) writeNTriples(cmd *cobra.Command, conv *ingest.Converter) error {
	if o.output == "" || o.output == "-" {
		return sink.WriteNTriples(cmd.OutOrStdout(), conv.Store())
	}
	f, err := os.Create(o.output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := sink.WriteNTriples(f, conv.Store()); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", o.output, err)
	}
	return f.Close()
}

// reportWriter is stderr when statements go to stdout, stdout otherwise.
func (o *convertOptions) reportWriter(cmd *cobra.Command) io.Writer {
	if o.output == "" || o.output == "-" {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

func (o *convertOptions) writeReport(cmd *cobra.Command, res *ingest.Result) error {
	w := o.reportWriter(cmd)
	switch o.report {
	case "none", "":
		return nil
	case "json":
		_, err := fmt.Fprintln(w, oj.JSON(res.Report(), &ojg.Options{Indent: 2, Sort: true}))
		return err
	case "text":
		if !res.Success {
			_, err := fmt.Fprintf(w, "Conversion failed after %d ms: %s\n", res.ElapsedMillis, res.ErrorMessage)
			return err
		}
		if _, err := fmt.Fprintf(w, "Converted %d rows into %d statements in %d ms\n", res.Rows, res.Statements, res.ElapsedMillis); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, pc := range res.PropertyCounts {
			fmt.Fprintf(tw, "  %s\t%d\n", string(pc.Property), pc.Statements)
		}
		return tw.Flush()
	}
	return nil
}

func writeMetrics(path string, g prometheus.Gatherer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics output: %w", err)
	}
	if err := metrics.WriteText(f, g); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
