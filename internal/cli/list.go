package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/extpack/pkg/installer"
	"github.com/glorpus-work/extpack/pkg/registry"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	var (
		nameFilter  string
		definitions bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed extensions",
		Long: `List every component folder below the extensions root that holds a manifest.

Use --definitions to also list the module, layout and container definitions
held by the registry.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, nameFilter, definitions)
		},
	}

	cmd.Flags().StringVar(&nameFilter, "name", "", "Filter by package name or folder (partial match)")
	cmd.Flags().BoolVar(&definitions, "definitions", false, "Also list registered definitions")

	return cmd
}

type listOutput struct {
	Installed  []installer.Installed      `json:"installed"`
	Modules    []registry.ModuleRecord    `json:"modules,omitempty"`
	Layouts    []registry.LayoutRecord    `json:"layouts,omitempty"`
	Containers []registry.ContainerRecord `json:"containers,omitempty"`
}

func runList(cmd *cobra.Command, nameFilter string, definitions bool) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	all, err := s.installer.List()
	if err != nil {
		return fmt.Errorf("failed to list extensions: %w", err)
	}

	var out listOutput
	filter := strings.ToLower(nameFilter)
	for _, item := range all {
		if filter == "" ||
			strings.Contains(strings.ToLower(item.PackageName), filter) ||
			strings.Contains(strings.ToLower(item.Folder), filter) {
			out.Installed = append(out.Installed, item)
		}
	}

	if definitions {
		ctx := cmd.Context()
		if out.Modules, err = s.store.Modules(ctx); err != nil {
			return fmt.Errorf("failed to list modules: %w", err)
		}
		if out.Layouts, err = s.store.Layouts(ctx); err != nil {
			return fmt.Errorf("failed to list layouts: %w", err)
		}
		if out.Containers, err = s.store.Containers(ctx); err != nil {
			return fmt.Errorf("failed to list containers: %w", err)
		}
	}

	w := cmd.OutOrStdout()
	if jsonOutput() {
		return writeJSON(w, out)
	}

	if len(out.Installed) == 0 {
		_, _ = fmt.Fprintln(w, "No extensions installed")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, TabWidth, ' ', 0)
		_, _ = fmt.Fprintln(tw, "FOLDER\tPACKAGE\tVERSION\tFILES\tDEFINITIONS\tSTATUS")
		for _, item := range out.Installed {
			status := "installed"
			if item.Error != "" {
				status = "broken: " + item.Error
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
				item.Folder, item.PackageName, item.PackageVersion, item.Files, item.Definitions, status)
		}
		_ = tw.Flush()
	}

	if definitions {
		_, _ = fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, TabWidth, ' ', 0)
		_, _ = fmt.Fprintln(tw, "KIND\tID\tNAME\tCOMPONENT\tDETAIL")
		for _, m := range out.Modules {
			_, _ = fmt.Fprintf(tw, "module\t%s\t%s\t%s\t%s\n", m.ID, m.Name, m.Component, m.Type)
		}
		for _, l := range out.Layouts {
			_, _ = fmt.Fprintf(tw, "layout\t%s\t%s\t%s\t%s\n", l.ID, l.Name, l.Component, l.ViewPath)
		}
		for _, c := range out.Containers {
			_, _ = fmt.Fprintf(tw, "container\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Component, c.ViewPath)
		}
		_ = tw.Flush()
	}
	return nil
}
