package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/caregiver-planner/pkg/clients/sheetsclient"
	"github.com/jakechorley/caregiver-planner/pkg/core/services"
)

// PublishWeekCmd creates the publishWeek command
func PublishWeekCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publishWeek [date]",
		Short: "Publish the planning of a week to the planning sheet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var date string
			if len(args) > 0 {
				date = args[0]
			}

			app.Logger.Debug("publishWeek command", zap.String("date", date))

			if app.Cfg.PlanningSheetID == "" {
				return fmt.Errorf("planningSheetID is not configured")
			}

			client, err := app.NewSheetsClient(app.Ctx)
			if err != nil {
				return fmt.Errorf("failed to create sheets client: %w", err)
			}

			planning, err := services.PublishWeek(app.Ctx, app.Database, client, app.Cfg, app.Logger, date)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Planning published!\n\n")
			fmt.Printf("Sheet: %s\n", app.Cfg.PlanningSheetID)
			fmt.Printf("Tab:   %s\n", sheetsclient.PlanningTabTitle(planning.Days[0]))
			fmt.Printf("Rows:  %d\n\n", len(planning.Rows))

			return nil
		},
	}
}
