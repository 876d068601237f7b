package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tiagodcc/ikts/internal/application"
)

func newExportCommand(a *app) *cobra.Command {
	var output string

	export := &cobra.Command{
		Use:   "export",
		Short: "Write plan or inventory documents",
		RunE:  requireSubcommand,
	}
	export.PersistentFlags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")

	write := func(data []byte) error {
		if output == "" {
			_, err := a.out.Write(data)
			return err
		}
		if err := os.WriteFile(output, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}
		fmt.Fprintf(a.errOut, "%s wrote %s\n", styleOK.Render("✓"), output)
		return nil
	}

	export.AddCommand(
		&cobra.Command{
			Use:     "plan <planId>",
			Short:   "Write a plan document",
			Args:    cobra.ExactArgs(1),
			PreRunE: a.open,
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := a.transfer.ExportPlan(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return write(data)
			},
		},
		&cobra.Command{
			Use:     "inventory",
			Short:   "Write an inventory document",
			Args:    cobra.NoArgs,
			PreRunE: a.open,
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := a.transfer.ExportInventory(cmd.Context())
				if err != nil {
					return err
				}
				return write(data)
			},
		},
	)
	return export
}

func newImportCommand(a *app) *cobra.Command {
	imp := &cobra.Command{
		Use:   "import",
		Short: "Read plan or inventory documents",
		RunE:  requireSubcommand,
	}

	var replace bool
	inventory := &cobra.Command{
		Use:     "inventory <file>",
		Short:   "Add the rails of an inventory document to the pool",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.open,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			result, err := a.transfer.ImportInventory(cmd.Context(), data, replace)
			if err != nil {
				return err
			}
			return a.printImport(result)
		},
	}
	inventory.Flags().BoolVar(&replace, "replace", false, "Empty the pool before importing")

	imp.AddCommand(
		&cobra.Command{
			Use:     "plan <file>",
			Short:   "Import a plan document as a new plan",
			Args:    cobra.ExactArgs(1),
			PreRunE: a.open,
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				result, err := a.transfer.ImportPlan(cmd.Context(), data)
				if err != nil {
					return err
				}
				return a.printImport(result)
			},
		},
		inventory,
	)
	return imp
}

func (a *app) printImport(result *application.ImportResultDTO) error {
	if a.jsonOut {
		return a.printJSON(result)
	}
	if result.Plan != nil {
		a.printf("%s imported plan %s as %s\n", styleOK.Render("✓"), result.Plan.Name, result.Plan.ID)
		return nil
	}
	a.printf("%s imported %d rails\n", styleOK.Render("✓"), result.Imported)
	return nil
}
