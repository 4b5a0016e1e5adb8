package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/extpack/internal/logger"
)

// NewUninstallCmd creates the uninstall command.
func NewUninstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall FOLDER...",
		Short: "Uninstall extension packages",
		Long: `Uninstall the packages installed into the given component folders.

The manifest copy kept in the folder decides what is removed, so every component
of the package is uninstalled, not only the named folder. preUninstall hooks run
before any file is removed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			for _, folder := range args {
				res, err := s.installer.Uninstall(cmd.Context(), folder)
				if err != nil {
					if res != nil {
						_ = printResult(cmd.OutOrStdout(), "Uninstalled", folder, res)
					}
					return fmt.Errorf("failed to uninstall %s: %w", folder, err)
				}
				if err := printResult(cmd.OutOrStdout(), "Uninstalled", folder, res); err != nil {
					return err
				}
				logger.Success("Package uninstalled", logger.Fields{"package": res.PackageName, "folder": folder})
			}
			return nil
		},
	}

	return cmd
}
