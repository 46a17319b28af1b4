package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/catbuf/pkg/config"
	"github.com/ssargent/catbuf/pkg/storage"
)

// putCmd represents the put command
var putCmd = &cobra.Command{
	Use:   "put <schema> [file]",
	Short: "Store a record",
	Long: `Build a record from JSON or YAML field values (as for encode) and store it
in the record store. Prints the new record id.

Example:
  catbuf put MosaicProperty property.yaml`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := getContainer().GetRegistry().Schema(args[0])
		if err != nil {
			return err
		}
		name, input, err := readInput(cmd.InOrStdin(), args[1:])
		if err != nil {
			return err
		}
		rec, err := parseFields(schema, name, input)
		if err != nil {
			return err
		}

		store, err := openStore(configFrom(cmd))
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := store.Create(rec)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id.String())
		return nil
	},
}

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a stored record",
	Long: `Load a stored record and print its fields, or its serialized bytes as hex
with --hex.

Example:
  catbuf get 2Jr2L4H3JYvqJ6Zr0n3bQpYyUsr`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asHex, _ := cmd.Flags().GetBool("hex")
		format, _ := cmd.Flags().GetString("format")

		id, err := ksuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid record id: %w", err)
		}
		store, err := openStore(configFrom(cmd))
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := store.Read(id)
		if err != nil {
			return err
		}
		if asHex {
			data, err := rec.Serialize()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(data))
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", rec.Schema().Name())
		return printRecord(cmd.OutOrStdout(), rec, format)
	},
}

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored record",
	Long: `Delete a stored record.

Example:
  catbuf delete 2Jr2L4H3JYvqJ6Zr0n3bQpYyUsr`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := ksuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid record id: %w", err)
		}
		store, err := openStore(configFrom(cmd))
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(id); err != nil {
			return err
		}
		cmd.Printf("Deleted %s\n", id)
		return nil
	},
}

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := openStore(configFrom(cmd))
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List(limit)
		if err != nil {
			return err
		}
		return printEntries(cmd.OutOrStdout(), entries)
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(listCmd)

	getCmd.Flags().Bool("hex", false, "Print the serialized record as hex")
	getCmd.Flags().StringP("format", "f", "json", "Output format (json, yaml)")
	listCmd.Flags().IntP("limit", "n", 0, "Maximum number of records to list (0 for all)")
}

func openStore(cfg *config.Config) (*storage.RecordStore, error) {
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	c := getContainer()
	return c.GetStoreFactory().OpenStore(cfg.DataDir, c.GetRegistry())
}

func printEntries(w io.Writer, entries []storage.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCHEMA\tSIZE\tSTORED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.ID, e.Schema, e.Size, e.StoredAt.Format(time.RFC3339))
	}
	return tw.Flush()
}
