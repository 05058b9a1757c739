package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/agentic-research/csvgraph/internal/config"
	"github.com/agentic-research/csvgraph/internal/ingest"
	"github.com/spf13/cobra"
)

func newSchemaCmd(g *globalOptions) *cobra.Command {
	opts := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "schema -c input.csv",
		Short: "Show the properties and column metadata a conversion would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger := g.logger(cmd)
			settings, err := opts.settings(cmd)
			if err != nil {
				return err
			}
			conv := ingest.NewConverter(config.ConverterConfig(settings))
			conv.Logger = logger
			if err := conv.InitModelFromFile(opts.csv); err != nil {
				return err
			}
			if err := config.Apply(settings, conv, opts.csv); err != nil {
				return err
			}
			return printSchema(cmd, conv)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.csv, "csv", "c", "", "CSV file whose header defines the schema")
	f.StringVarP(&opts.augment, "augment", "a", "", "Metadata file: one line of datatype names aligned to the header")
	f.StringVar(&opts.configPath, "config", "", "Conversion settings (.hcl, .json, .yaml)")
	f.StringVar(&opts.prefix, "prefix", "", "Namespace for properties and row resources")
	f.StringVar(&opts.rowType, "type", "", `rdf:type of every row ("none" to disable)`)
	f.IntVar(&opts.infer, "infer", 0, "Sample this many rows to guess column datatypes")
	_ = cmd.MarkFlagRequired("csv")
	return cmd
}

func printSchema(cmd *cobra.Command, conv *ingest.Converter) error {
	out := cmd.OutOrStdout()
	if rt := conv.RowType(); rt != "" {
		fmt.Fprintf(out, "row type: %s\n", string(rt))
	} else {
		fmt.Fprintln(out, "row type: none")
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tHEADER\tPROPERTY\tKIND\tTYPE\tSKIPPED")
	headers := conv.Headers()
	for i, p := range conv.Properties() {
		meta, _ := conv.Metadata(p)
		kind, typ := "literal", string(meta.Datatype)
		if !meta.IsLiteral {
			kind, typ = "resource", meta.ObjectURI
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%v\n", i, headers[i], string(p), kind, typ, meta.IsSkipped)
	}
	return tw.Flush()
}
