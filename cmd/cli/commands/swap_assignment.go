package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/caregiver-planner/pkg/core/services"
)

// SwapAssignmentCmd creates the swapAssignment command
func SwapAssignmentCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swapAssignment <date> <mission_id>",
		Short: "Change who works a mission on a date",
		Long: `Change who works a mission on a date.

  --selected only            add the caregiver, removing their other assignments that day
  --base only                remove the caregiver from the mission
  --base and --selected      replace base with selected
  same caregiver and --color recolor the assignment`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, _ := cmd.Flags().GetString("base")
			selected, _ := cmd.Flags().GetString("selected")
			color, _ := cmd.Flags().GetString("color")
			userID, _ := cmd.Flags().GetString("user")

			app.Logger.Debug("swapAssignment command",
				zap.String("date", args[0]),
				zap.String("mission_id", args[1]),
				zap.String("base", base),
				zap.String("selected", selected))

			result, err := services.SwapAssignmentCaregiver(app.Ctx, app.Database, app.Logger, services.SwapRequest{
				BaseCaregiverID:     base,
				SelectedCaregiverID: selected,
				Date:                args[0],
				MissionID:           args[1],
				Color:               color,
			}, userID)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Assignment updated!\n\n")
			fmt.Printf("Removed: %d\n", result.Deleted)
			if result.Assignment != nil {
				fmt.Printf("Saved:   %s on %s", result.Assignment.CaregiverID, result.Assignment.Date.Format("Mon Jan 02 2006"))
				if result.Assignment.Color != "" {
					fmt.Printf(" (%s)", result.Assignment.Color)
				}
				fmt.Println()
			}
			fmt.Println()

			return nil
		},
	}

	cmd.Flags().String("base", "", "Caregiver currently assigned")
	cmd.Flags().String("selected", "", "Caregiver to assign")
	cmd.Flags().String("color", "", "Display color of the assignment")
	cmd.Flags().String("user", "cli", "User ID recorded on the change")

	return cmd
}
