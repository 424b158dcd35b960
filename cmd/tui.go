package cmd

import (
	"github.com/spf13/cobra"

	"github.com/monctl/monctl/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive monitor control panel",
	Long: `Open the interactive control panel: one tab per detected monitor,
sliders for continuous features, option cyclers for discrete ones.

Press "a" to authenticate when the monitor bus needs elevated access; the
resulting privileged session is reused for every subsequent command and
stopped on quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cleanup, err := getClient(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		t := &tui.TUI{Client: client}
		return t.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
