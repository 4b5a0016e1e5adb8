package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/extpack/internal/cli"
	"github.com/glorpus-work/extpack/pkg/errutils"
)

// exitInvalid is returned when a package has validation issues.
const exitInvalid = 2

var (
	configPath     string
	verbose        bool
	outputFormat   string
	extensionsRoot string
	hostVersion    string
	logLevel       string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		if errors.Is(err, errutils.ErrValidation) {
			os.Exit(exitInvalid)
		}
		os.Exit(1)
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extpack",
		Short: "Install and remove host extension packages",
		Long: `extpack validates, installs and uninstalls extension packages:
- install, uninstall, validate: manage packages below the extensions root
- sweep: remove module backups at host startup
- pack: build a package from a directory`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", cli.OutputText, "output format (text, json)")
	cmd.PersistentFlags().StringVar(&extensionsRoot, "root", "", "extensions root (overrides config)")
	cmd.PersistentFlags().StringVar(&hostVersion, "host-version", "", "running host version (overrides config)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	// Set up CLI package variables
	cli.ConfigPath = &configPath
	cli.Verbose = &verbose
	cli.OutputFormat = &outputFormat
	cli.ExtensionsRoot = &extensionsRoot
	cli.HostVersion = &hostVersion
	cli.LogLevel = &logLevel

	cmd.AddCommand(
		cli.NewInstallCmd(),
		cli.NewUninstallCmd(),
		cli.NewValidateCmd(),
		cli.NewSweepCmd(),
		cli.NewListCmd(),
		cli.NewPackCmd(),
		cli.NewConfigCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
