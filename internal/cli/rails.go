package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tiagodcc/ikts/internal/application"
)

func newRailsCommand(a *app) *cobra.Command {
	rails := &cobra.Command{
		Use:   "rails",
		Short: "Work with the live rail pool",
		RunE:  requireSubcommand,
	}

	var query application.ListRailsQuery
	list := &cobra.Command{
		Use:     "list",
		Short:   "List the live rail pool",
		Args:    cobra.NoArgs,
		PreRunE: a.open,
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := a.inventory.ListRails(cmd.Context(), query)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(summary)
			}
			a.printRails(summary)
			return nil
		},
	}
	list.Flags().IntVar(&query.Width, "width", 0, "Only rails of this width (mm)")
	list.Flags().IntVar(&query.Thickness, "thickness", 0, "Only rails of this thickness (mm)")

	rails.AddCommand(list)
	return rails
}

func (a *app) printRails(summary *application.InventorySummaryDTO) {
	if len(summary.Rails) == 0 {
		a.printf("No rails in stock.\n")
		return
	}

	a.printf("%s\n", styleTitle.Render(fmt.Sprintf("Rails: %d full length, %d remainders, %d mm total",
		summary.FullLength, summary.Remainders, summary.TotalLength)))
	a.printf("\n")
	for _, rail := range summary.Rails {
		kind := styleDim.Render("full")
		if rail.IsRemainder {
			kind = styleAccent.Render("remainder")
			if rail.Box != nil {
				kind += styleDim.Render(fmt.Sprintf(" (box %d)", *rail.Box))
			}
		}
		a.printf("  %s  %-8s %6d mm  %s\n", shortID(rail.ID), rail.RailType.Label, rail.Length, kind)
	}
}
