package cmd

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/catbuf/pkg/builder"
	"github.com/ssargent/catbuf/pkg/codec"
)

// encodeCmd represents the encode command
var encodeCmd = &cobra.Command{
	Use:   "encode <schema> [file]",
	Short: "Serialize a record from JSON or YAML field values",
	Long: `Serialize a record. Field values are read from file, or stdin when no
file is given, as a JSON or YAML object. Buffers are hex strings, enums are
member names. Count and size fields are computed and may be omitted.

Examples:
  catbuf encode MosaicProperty <<< '{"id":"DURATION","value":5}'
  catbuf encode TransferTransaction transfer.yaml --output raw --out tx.bin`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		outPath, _ := cmd.Flags().GetString("out")

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
		if limit := configFrom(cmd).Codec.MaxRecordSize; limit > 0 && rec.Size() > limit {
			return fmt.Errorf("record is %d bytes, limit is %d", rec.Size(), limit)
		}
		data, err := rec.Serialize()
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), outPath, output, data)
	},
}

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode <schema> [hex]",
	Short: "Load a record and print its fields",
	Long: `Load a record and print its field values. The record is given as a hex
argument, as raw bytes with --file, or as hex on stdin. With --stream the
input may hold several records back to back.

Examples:
  catbuf decode MosaicProperty 020500000000000000
  catbuf decode TransferTransaction --file tx.bin --format yaml`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		format, _ := cmd.Flags().GetString("format")
		stream, _ := cmd.Flags().GetBool("stream")

		schema, err := getContainer().GetRegistry().Schema(args[0])
		if err != nil {
			return err
		}
		data, err := readRecordBytes(cmd.InOrStdin(), args[1:], file)
		if err != nil {
			return err
		}

		if !stream {
			rec, err := schema.Load(data)
			if err != nil {
				return err
			}
			return printRecord(cmd.OutOrStdout(), rec, format)
		}
		recs, err := decodeStream(schema, data)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			if err := printRecord(cmd.OutOrStdout(), rec, format); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)

	encodeCmd.Flags().StringP("output", "o", "hex", "Output encoding (hex, raw)")
	encodeCmd.Flags().String("out", "", "Write output to this file instead of stdout")

	decodeCmd.Flags().String("file", "", "Read raw record bytes from this file")
	decodeCmd.Flags().StringP("format", "f", "json", "Output format (json, yaml)")
	decodeCmd.Flags().Bool("stream", false, "Decode consecutive records until the input is exhausted")
}

// readInput returns the content of the file named in args, or of stdin
func readInput(stdin io.Reader, args []string) (string, []byte, error) {
	if len(args) > 0 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", nil, fmt.Errorf("failed to read input: %w", err)
		}
		return args[0], data, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return "", data, nil
}

// parseFields builds a record from JSON or YAML. YAML is assumed for .yaml
// and .yml files and for input that does not start with '{'.
func parseFields(schema *builder.Schema, name string, input []byte) (*builder.Record, error) {
	trimmed := bytes.TrimSpace(input)
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".json" || (ext != ".yaml" && ext != ".yml" && bytes.HasPrefix(trimmed, []byte("{"))) {
		return schema.ParseJSON(trimmed)
	}

	var fields map[string]any
	if err := yaml.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse fields: %w", err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return schema.FromMap(fields)
}

func writeOutput(stdout io.Writer, outPath, output string, data []byte) error {
	var payload []byte
	switch output {
	case "hex", "":
		payload = []byte(hex.EncodeToString(data) + "\n")
	case "raw":
		payload = data
	default:
		return fmt.Errorf("unknown output encoding %q", output)
	}
	if outPath != "" {
		return os.WriteFile(outPath, payload, 0600)
	}
	_, err := stdout.Write(payload)
	return err
}

// readRecordBytes returns record bytes from a hex argument, a raw file, or
// hex on stdin
func readRecordBytes(stdin io.Reader, args []string, file string) ([]byte, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		return data, nil
	}
	var text string
	if len(args) > 0 {
		text = args[0]
	} else {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}
	text = strings.TrimPrefix(strings.Join(strings.Fields(text), ""), "0x")
	data, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}

func decodeStream(schema *builder.Schema, data []byte) ([]*builder.Record, error) {
	r := codec.NewReader(data)
	var recs []*builder.Record
	for r.Remaining() > 0 {
		rec, err := schema.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(recs), err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func printRecord(w io.Writer, rec *builder.Record, format string) error {
	switch format {
	case "json", "":
		data, err := rec.MarshalJSON()
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return err
		}
		buf.WriteByte('\n')
		_, err = w.Write(buf.Bytes())
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rec.Map()); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q", format)
}
