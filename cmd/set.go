package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set <code> <value>",
	Short: "Write a feature value",
	Long: `Write a VCP feature value to a monitor.

The code is hex (10, 0x60, ...); the value is decimal, or hex with an 0x
prefix for discrete features (e.g. "monctl set 60 0x11" to switch to HDMI-1).`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := parseCode(args[0])
		if err != nil {
			return err
		}
		value, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", args[1], err)
		}

		client, cleanup, err := getClient(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		return client.SetFeature(cmd.Context(), flagDisplay, code, uint32(value))
	},
}

func init() {
	rootCmd.AddCommand(setCmd)
}
