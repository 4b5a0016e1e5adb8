package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSweepCmd creates the sweep command.
func NewSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove module backups left behind by earlier installs",
		Long: `Delete every file carrying the backup suffix below the extensions root and
every folder left empty afterwards. Run it when the host starts, before any
extension is loaded. Files that cannot be removed are reported and skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			report := s.installer.Startup(cmd.Context())
			w := cmd.OutOrStdout()
			if jsonOutput() {
				return writeJSON(w, report)
			}

			_, _ = fmt.Fprintf(w, "Removed %d backup(s) and %d empty folder(s)\n", len(report.Files), len(report.Dirs))
			for _, f := range report.Failures {
				_, _ = fmt.Fprintf(w, "  could not remove %s: %s\n", f.Path, f.Err)
			}
			return nil
		},
	}

	return cmd
}
