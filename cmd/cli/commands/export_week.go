package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/caregiver-planner/pkg/core/services"
)

// ExportWeekCmd creates the exportWeek command
func ExportWeekCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exportWeek [date]",
		Short: "Export the planning of a week to an Excel file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var date string
			if len(args) > 0 {
				date = args[0]
			}
			outDir, _ := cmd.Flags().GetString("out")

			app.Logger.Debug("exportWeek command", zap.String("date", date), zap.String("out", outDir))

			buf, filename, err := services.ExportWeek(app.Ctx, app.Database, app.Logger, date)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			path := filepath.Join(outDir, filename)
			if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			fmt.Printf("\n✓ Planning exported to %s\n\n", path)
			return nil
		},
	}

	cmd.Flags().String("out", ".", "Directory to write the file to")

	return cmd
}
