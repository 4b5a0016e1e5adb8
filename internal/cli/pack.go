package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/extpack/internal/logger"
	"github.com/glorpus-work/extpack/pkg/archive"
	"github.com/glorpus-work/extpack/pkg/manifest"
	"github.com/glorpus-work/extpack/pkg/validation"
	"github.com/glorpus-work/extpack/pkg/verifier"
)

// NewPackCmd creates the pack command.
func NewPackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack SOURCE_DIR OUTPUT",
		Short: "Create an extension package from a directory",
		Long: `Check the manifest in SOURCE_DIR and that every file it lists is present,
then pack the directory. The archive format follows the OUTPUT extension
(.zip, .tar.gz).`,
		Args: cobra.ExactArgs(packCommandArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPack(cmd, args[0], args[1])
		},
	}

	return cmd
}

func runPack(cmd *cobra.Command, sourceDir, output string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	src, err := archive.Open(cmd.Context(), sourceDir)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	var res validation.Result
	raw, err := src.ReadFile(manifest.FileName)
	if err != nil {
		res.Addf(validation.CodeManifestMissing, "%s has no %s", sourceDir, manifest.FileName)
	} else {
		m, parsed := manifest.Parse(raw)
		res.Merge(parsed)
		if m != nil {
			// No extensions root: nothing on disk to compare module versions with.
			res.Merge(verifier.New("", cfg.Settings.ModuleExtensions, nil).VerifyComponents(cmd.Context(), src, m))
		}
	}
	if !res.Valid() {
		for _, issue := range res.Issues {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", issue)
		}
		return res.Err()
	}

	if err := archive.Create(cmd.Context(), sourceDir, output); err != nil {
		return fmt.Errorf("failed to pack %s: %w", sourceDir, err)
	}

	logger.Success("Package created", logger.Fields{"source": sourceDir, "output": output})
	return nil
}
