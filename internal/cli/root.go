package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the railctl command tree writing to out and errOut
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "railctl",
		Short:         "Inspect and move the rail cutting planner's data",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `railctl works directly on the planner's file store.

Commands:
  railctl rails list                 List the live rail pool
  railctl plans list                 List cutting plans
  railctl preview <planId>           Show the material plan for a plan
  railctl export plan <planId>       Write a plan document
  railctl export inventory           Write an inventory document
  railctl import plan <file>         Import a plan document
  railctl import inventory <file>    Import an inventory document`,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", getEnv("DATA_DIR", "./data"), "Directory of the file store")
	root.PersistentFlags().StringVar(&a.configPath, "config", getEnv("PLANNER_CONFIG", ""), "Planner settings TOML file")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Print JSON instead of formatted text")

	root.AddCommand(
		newRailsCommand(a),
		newPlansCommand(a),
		newPreviewCommand(a),
		newExportCommand(a),
		newImportCommand(a),
	)
	return root
}

// Execute runs railctl and returns the process exit code
func Execute() int {
	root := NewRootCommand(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", styleWarn.Render("Error:"), err)
		return 1
	}
	return 0
}

func requireSubcommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("requires a subcommand\n\n%s", cmd.UsageString())
	}
	return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
}
