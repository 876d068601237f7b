package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tiagodcc/ikts/internal/application"
	"github.com/tiagodcc/ikts/internal/domain"
)

func newPlansCommand(a *app) *cobra.Command {
	plans := &cobra.Command{
		Use:   "plans",
		Short: "Work with cutting plans",
		RunE:  requireSubcommand,
	}

	plans.AddCommand(&cobra.Command{
		Use:     "list",
		Short:   "List cutting plans",
		Args:    cobra.NoArgs,
		PreRunE: a.open,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.plans.ListPlans(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(list)
			}
			if len(list) == 0 {
				a.printf("No plans found.\n")
				return nil
			}
			a.printf("%s\n\n", styleTitle.Render("Plans"))
			for _, plan := range list {
				a.printf("  %s  %s %s\n", plan.ID, plan.Name,
					styleDim.Render(fmt.Sprintf("(%d pieces)", plan.TotalPieces)))
			}
			return nil
		},
	})
	return plans
}

func newPreviewCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "preview <planId>",
		Short:   "Show the material plan for a plan against the current pool",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.open,
		RunE: func(cmd *cobra.Command, args []string) error {
			materialPlan, err := a.plans.PreviewMaterialPlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(materialPlan)
			}
			a.printMaterialPlan(materialPlan)
			return nil
		},
	}
}

func (a *app) printMaterialPlan(mp *application.MaterialPlanDTO) {
	a.printf("%s\n\n", styleTitle.Render("Material plan for "+mp.PlanName))

	for _, s := range mp.Suggestions {
		source := styleDim.Render(fmt.Sprintf("rail %s", shortID(s.PhysicalRailID)))
		switch s.SourceKind {
		case domain.SourceNewStock:
			source = styleWarn.Render(fmt.Sprintf("new %d mm rail", s.SourceRail.Length))
		case domain.SourceRemainder:
			source = styleAccent.Render(fmt.Sprintf("remainder %s", shortID(s.PhysicalRailID)))
		}

		leftover := fmt.Sprintf("%d mm left", s.RemainderLength)
		if s.Waste > 0 {
			leftover = fmt.Sprintf("%d mm waste", s.Waste)
		}
		a.printf("  %6d mm  %-8s %-12s from %s, %s\n",
			s.Piece.Length, s.Piece.RailType.Label, s.Piece.Purpose, source, styleDim.Render(leftover))
	}

	a.printf("\n  Waste: %d mm  Remainders used: %d  New rails: %d\n",
		mp.TotalWaste, mp.UsedRemainders, mp.NewRailsNeeded)

	if len(mp.Unallocated) > 0 {
		a.printf("\n%s\n", styleWarn.Render("Cannot be cut from any standard length:"))
		for _, u := range mp.Unallocated {
			a.printf("  %6d mm  %-8s (longest stock is %d mm)\n",
				u.Piece.Length, u.Piece.RailType.Label, u.LargestStandardLength)
		}
	} else {
		a.printf("%s\n", styleOK.Render("All pieces allocated."))
	}
}
