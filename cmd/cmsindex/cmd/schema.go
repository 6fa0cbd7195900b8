package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/cmsindex/internal/schema"
	"github.com/Aman-CERP/cmsindex/internal/ui"
)

func newSchemaCmd(root *rootOptions) *cobra.Command {
	var (
		jsonOutput bool
		live       bool
		stored     bool
	)

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the index field schema",
		Long: `Print the field schema derived from the standard fields, the CMS property
names and the configured search fields. --live skips the schema cache and
--stored prints the schema of the existing index instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), cmd, root)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			var fields []schema.FieldDescriptor
			if stored {
				def, err := a.gateway.Definition(cmd.Context(), a.cfg.Index.Name)
				if err != nil {
					return err
				}
				fields = def.Fields
			} else if live {
				fields, err = a.builder.Live(cmd.Context())
			} else {
				fields, err = a.builder.BuildSchema(cmd.Context())
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				return ui.NewStatusRenderer(cmd.OutOrStdout(), true).RenderJSON(fields)
			}
			return printFields(cmd.OutOrStdout(), fields)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&live, "live", false, "Rebuild the schema from the CMS, bypassing the cache")
	cmd.Flags().BoolVar(&stored, "stored", false, "Print the schema of the existing index")
	return cmd
}

func printFields(out io.Writer, fields []schema.FieldDescriptor) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tTYPE\tATTRIBUTES\tANALYZER")
	for _, f := range fields {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Name, f.Type, attributes(f), f.Analyzer)
	}
	return tw.Flush()
}

func attributes(f schema.FieldDescriptor) string {
	var attrs []string
	if f.Key {
		attrs = append(attrs, "key")
	}
	if f.Searchable {
		attrs = append(attrs, "searchable")
	}
	if f.Filterable {
		attrs = append(attrs, "filterable")
	}
	if f.Sortable {
		attrs = append(attrs, "sortable")
	}
	if f.Facetable {
		attrs = append(attrs, "facetable")
	}
	if f.Retrievable {
		attrs = append(attrs, "retrievable")
	}
	return strings.Join(attrs, ",")
}
