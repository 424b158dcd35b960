package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/monctl/monctl/internal/vcp"
)

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "Show a monitor's supported features",
	Long: `Probe a monitor's capabilities string and print the supported VCP
features and, for discrete features, their allowed values.

An empty result means the probe failed; monctl then assumes every feature
is supported rather than none.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cleanup, err := getClient(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		caps := client.Capabilities(cmd.Context(), flagDisplay)
		if len(caps.Supported) == 0 {
			fmt.Println("no capabilities reported (assuming all features supported)")
			return nil
		}

		codes := make([]uint16, 0, len(caps.Supported))
		for code := range caps.Supported {
			codes = append(codes, code)
		}
		sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

		for _, code := range codes {
			fmt.Printf("0x%02x  %s\n", code, vcp.FeatureName(code))
			for _, opt := range caps.Options[code] {
				fmt.Printf("      0x%02x  %s\n", opt.Value, opt.Name)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(capabilitiesCmd)
}
