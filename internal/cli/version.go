package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanglvm/quest-eval/internal/version"
)

// NewVersionCmd creates the 'version' command
func NewVersionCmd(app *App) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the current version, commit hash, and build date.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(app, jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func runVersion(app *App, jsonOutput bool) error {
	info := version.GetInfo()
	if jsonOutput {
		return writeJSON(app.Out, info)
	}
	fmt.Fprintf(app.Out, "Version:  %s\n", info.Version)
	fmt.Fprintf(app.Out, "Commit:   %s\n", info.Commit)
	fmt.Fprintf(app.Out, "Built:    %s\n", info.Date)
	return nil
}
