package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hokaccha/go-prettyjson"
	"github.com/spf13/cobra"

	"github.com/copyleftdev/toon-mcp/internal/core"
)

// readInput returns the file named by args[0], or stdin when no argument
// is given.
func readInput(args []string) ([]byte, error) {
	if len(args) > 0 && args[0] != "-" {
		return os.ReadFile(args[0])
	}
	return io.ReadAll(os.Stdin)
}

var (
	flagDelimiter    string
	flagIndent       int
	flagFoldKeys     bool
	flagFlattenDepth int
)

func encodeOptions() *core.EncodeOptionsInput {
	opts := &core.EncodeOptionsInput{}
	if flagDelimiter != "" {
		opts.Delimiter = &flagDelimiter
	}
	if flagIndent != 2 {
		opts.Indent = &flagIndent
	}
	if flagFoldKeys {
		opts.FoldKeys = &flagFoldKeys
	}
	if flagFlattenDepth != 0 {
		opts.FlattenDepth = &flagFlattenDepth
	}
	return opts
}

func addEncodeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagDelimiter, "delimiter", "", "cell delimiter: tab or pipe (default comma)")
	cmd.Flags().IntVar(&flagIndent, "indent", 2, "indentation width, at most 8")
	cmd.Flags().BoolVar(&flagFoldKeys, "fold-keys", false, "collapse single-key object chains into dotted keys")
	cmd.Flags().IntVar(&flagFlattenDepth, "flatten-depth", 0, "maximum folded segments, 0 for unbounded")
}

var encodeCmd = &cobra.Command{
	Use:   "encode [file]",
	Short: "Encode a JSON file (or stdin) as TOON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args)
		if err != nil {
			return err
		}
		value, err := core.ParseJSONInput(string(data))
		if err != nil {
			return err
		}
		out, err := core.EncodeJSON(value, encodeOptions())
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var (
	flagPretty  bool
	flagLenient bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode [file]",
	Short: "Decode a TOON file (or stdin) to JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args)
		if err != nil {
			return err
		}
		req := &core.DecodeRequest{Toon: string(data)}
		if flagLenient {
			strict := false
			req.Strict = &strict
		}
		value, err := core.DecodeToon(req)
		if err != nil {
			return err
		}
		if flagPretty {
			out, err := prettyjson.Marshal(value)
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}
		out, err := json.Marshal(value)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats [file]",
	Short: "Compare the JSON and TOON sizes of a value",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args)
		if err != nil {
			return err
		}
		value, err := core.ParseJSONInput(string(data))
		if err != nil {
			return err
		}
		stats, err := core.ComputeStats(value, encodeOptions())
		if err != nil {
			return err
		}
		out, err := prettyjson.Marshal(stats)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", serverName, core.Version)
	},
}

func init() {
	addEncodeFlags(encodeCmd)
	addEncodeFlags(statsCmd)
	decodeCmd.Flags().BoolVar(&flagPretty, "pretty", false, "colored, indented JSON output")
	decodeCmd.Flags().BoolVar(&flagLenient, "lenient", false, "tolerate length marker mismatches and duplicate keys")
}
