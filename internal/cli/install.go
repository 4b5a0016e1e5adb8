package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/extpack/internal/logger"
)

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "install ARCHIVE...",
		Short: "Install extension packages",
		Long: `Install one or more extension packages (zip, tar.gz or an unpacked directory).

Each package is validated first. A package with validation issues is not
installed at all; the remaining packages are still processed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, args, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate only, do not install")

	return cmd
}

func runInstall(cmd *cobra.Command, archives []string, dryRun bool) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	action := "Installed"
	if dryRun {
		action = "Valid"
	}

	var errs []error
	for _, archivePath := range archives {
		install := s.installer.Install
		if dryRun {
			install = s.installer.Validate
		}
		res, err := install(cmd.Context(), archivePath)
		if err != nil {
			if res != nil {
				_ = printResult(cmd.OutOrStdout(), action, archivePath, res)
			}
			return fmt.Errorf("failed to install %s: %w", archivePath, err)
		}
		if err := printResult(cmd.OutOrStdout(), action, archivePath, res); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", archivePath, err))
			continue
		}
		if !dryRun {
			logger.Success("Package installed", logger.Fields{"package": res.PackageName, "archive": archivePath})
		}
	}

	return errors.Join(errs...)
}
