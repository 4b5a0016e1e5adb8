package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate ARCHIVE...",
		Short: "Check extension packages without installing them",
		Long: `Run every check an install runs: manifest schema, host compatibility,
package contents and module downgrades. Nothing is written.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			var errs []error
			for _, archivePath := range args {
				res, err := s.installer.Validate(cmd.Context(), archivePath)
				if err != nil {
					return fmt.Errorf("failed to validate %s: %w", archivePath, err)
				}
				if err := printResult(cmd.OutOrStdout(), "Valid", archivePath, res); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", archivePath, err))
				}
			}
			return errors.Join(errs...)
		},
	}

	return cmd
}
