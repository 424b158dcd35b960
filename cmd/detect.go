package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagDetectJSON bool

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "List connected monitors",
	Long: `Scan the DDC/CI bus for connected monitors and print one line per display.

Detection walks the hardware and can take several seconds; it always runs
through the direct transport with the longer detect timeout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cleanup, err := getClient(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		monitors, err := client.DetectMonitors(cmd.Context())
		if err != nil {
			return fmt.Errorf("detection failed: %w", err)
		}

		if flagDetectJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(monitors)
		}
		for _, m := range monitors {
			fmt.Printf("display %d  bus %d  %s %s  serial %s\n",
				m.DisplayNumber, m.BusID, m.Manufacturer, m.Model, m.Serial)
		}
		return nil
	},
}

func init() {
	detectCmd.Flags().BoolVar(&flagDetectJSON, "json", false, "print monitors as JSON")
	rootCmd.AddCommand(detectCmd)
}
