package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/catbuf/pkg/builder"
	"github.com/ssargent/catbuf/pkg/catalog"
)

// schemasCmd represents the schemas command
var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "List the known record schemas",
	Long: `List every schema in the catalog with its field count and, for fixed
layouts, its size in bytes.

Example:
  catbuf schemas`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listSchemas(cmd.OutOrStdout(), getContainer().GetRegistry())
	},
}

// describeCmd represents the describe command
var describeCmd = &cobra.Command{
	Use:   "describe <schema>",
	Short: "Show the byte layout of a schema",
	Long: `Show the byte layout of a schema: each field's offset, width, kind and
length policy. Offsets after the first variable-length field are shown as "-".

Examples:
  catbuf describe TransferTransaction
  catbuf describe MosaicProperty --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		schema, err := getContainer().GetRegistry().Schema(args[0])
		if err != nil {
			return err
		}
		return describeSchema(cmd.OutOrStdout(), schema, format)
	},
}

func init() {
	rootCmd.AddCommand(schemasCmd)
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().StringP("format", "f", "table", "Output format (table, yaml, json)")
}

func listSchemas(w io.Writer, registry *catalog.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFIELDS\tSIZE")
	for _, name := range registry.Names() {
		schema, err := registry.Schema(name)
		if err != nil {
			return err
		}
		size := "variable"
		if n, ok := schema.FixedSize(); ok {
			size = strconv.Itoa(n)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", name, len(schema.Fields()), size)
	}
	return tw.Flush()
}

func describeSchema(w io.Writer, schema *builder.Schema, format string) error {
	info := schema.Describe()
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any{"name": schema.Name(), "fields": info}); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"name": schema.Name(), "fields": info})
	case "table", "":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	fmt.Fprintln(w, schema.Name())
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OFFSET\tNAME\tKIND\tWIDTH\tDETAIL")
	for _, f := range info {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", offsetText(f.Offset), f.Name, f.Kind, widthText(f), detailText(f))
	}
	return tw.Flush()
}

func offsetText(off int) string {
	if off < 0 {
		return "-"
	}
	return strconv.Itoa(off)
}

func widthText(f builder.FieldInfo) string {
	switch {
	case f.Width > 0:
		return strconv.Itoa(f.Width)
	case f.Length > 0:
		return strconv.Itoa(f.Length)
	}
	return "-"
}

func detailText(f builder.FieldInfo) string {
	var parts []string
	if f.Type != "" {
		parts = append(parts, f.Type)
	}
	if f.Policy != "" {
		parts = append(parts, f.Policy)
	}
	if f.Target != "" {
		parts = append(parts, "of "+f.Target)
	}
	if f.Condition != "" {
		parts = append(parts, "when "+f.Condition)
	}
	return strings.Join(parts, " ")
}
