package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/monctl/monctl/internal/config"
	"github.com/monctl/monctl/internal/ddc"
	"github.com/monctl/monctl/internal/otel"
)

// Version is injected by the linker at release builds.
var Version = "dev"

var (
	// Global flags.
	flagDisplay int
	flagElevate bool

	// Set up by rootCmd.PersistentPreRunE, torn down in PersistentPostRun.
	cfg       *config.Config
	telemetry *otel.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "monctl",
	Short: "Control monitor settings over DDC/CI via ddcutil",
	Long: `monctl adjusts monitor settings (brightness, contrast, input source, ...)
by driving the ddcutil CLI over the DDC/CI bus.

When I2C device permissions are missing, monctl can keep a single
pkexec-elevated session alive so you authenticate once instead of per
command (see the tui's authenticate action, or --elevate for one-shots).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		otel.Version = Version
		telemetry, err = otel.Init(cmd.Context(), otel.Config{
			Endpoint: cfg.OTELEndpoint,
			Headers:  cfg.OTELHeaders,
		})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if telemetry != nil {
			telemetry.Shutdown(cmd.Context())
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().IntVar(&flagDisplay, "display", envIntOrDefault("MONCTL_DISPLAY", 1), "ddcutil display number")
	rootCmd.PersistentFlags().BoolVar(&flagElevate, "elevate", false, "authenticate via pkexec and run through a privileged session")
}

// getClient builds the ddc client and, with --elevate, authenticates first.
// The returned cleanup stops any privileged session.
func getClient(ctx context.Context) (*ddc.Client, func(), error) {
	client, err := ddc.New(cfg, telemetry)
	if err != nil {
		return nil, nil, err
	}
	if flagElevate {
		if err := client.Authenticate(ctx); err != nil {
			return nil, nil, err
		}
	}
	return client, client.Deauthenticate, nil
}

// parseCode parses a VCP feature code the way ddcutil spells them: hex,
// with or without an 0x prefix.
func parseCode(arg string) (uint16, error) {
	s := strings.TrimPrefix(strings.ToLower(arg), "0x")
	code, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid feature code %q (expected hex, e.g. 10 or 0x10)", arg)
	}
	return uint16(code), nil
}

func envIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}
