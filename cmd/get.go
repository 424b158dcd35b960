package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/monctl/monctl/internal/vcp"
)

var flagGetJSON bool

var getCmd = &cobra.Command{
	Use:   "get [code]...",
	Short: "Read feature values",
	Long: `Read one or more VCP feature values from a monitor.

Codes are hex (10, 0x60, ...). With no codes, reads every feature in the
built-in catalog. All requested codes go into a single ddcutil invocation;
features the monitor does not report are simply absent from the output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		codes := vcp.AllFeatures()
		if len(args) > 0 {
			codes = codes[:0]
			for _, arg := range args {
				code, err := parseCode(arg)
				if err != nil {
					return err
				}
				codes = append(codes, code)
			}
		}

		client, cleanup, err := getClient(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		values, err := client.GetFeatures(cmd.Context(), flagDisplay, codes)
		if err != nil {
			return fmt.Errorf("getvcp failed: %w", err)
		}

		if flagGetJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(values)
		}

		sorted := make([]uint16, 0, len(values))
		for code := range values {
			sorted = append(sorted, code)
		}
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		for _, code := range sorted {
			v := values[code]
			switch vcp.KindOf(code) {
			case vcp.Discrete:
				fmt.Printf("0x%02x  %-14s %s\n", code, v.Name, vcp.DefaultValueName(code, v.Current))
			default:
				fmt.Printf("0x%02x  %-14s %d/%d (%.0f%%)\n", code, v.Name, v.Current, v.Maximum, v.Percentage())
			}
		}
		return nil
	},
}

func init() {
	getCmd.Flags().BoolVar(&flagGetJSON, "json", false, "print values as JSON")
	rootCmd.AddCommand(getCmd)
}
