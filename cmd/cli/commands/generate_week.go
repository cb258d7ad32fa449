package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/caregiver-planner/pkg/core/allocator"
	"github.com/jakechorley/caregiver-planner/pkg/core/model"
	"github.com/jakechorley/caregiver-planner/pkg/core/services"
)

// GenerateWeekCmd creates the generateWeek command
func GenerateWeekCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generateWeek [date]",
		Short: "Generate assignments for the week containing date (defaults to this week)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var date string
			if len(args) > 0 {
				date = args[0]
			}

			regenerate, _ := cmd.Flags().GetBool("regenerate")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			userID, _ := cmd.Flags().GetString("user")
			forbidValues, _ := cmd.Flags().GetStringArray("forbid")

			recurrence := app.Cfg.Recurrence
			if cmd.Flags().Changed("recurrence") {
				recurrence, _ = cmd.Flags().GetBool("recurrence")
			}

			var seed *uint64
			if cmd.Flags().Changed("seed") {
				value, _ := cmd.Flags().GetUint64("seed")
				seed = &value
			}

			forbidden, err := parseForbidden(forbidValues)
			if err != nil {
				return err
			}

			app.Logger.Debug("generateWeek command",
				zap.String("date", date),
				zap.Bool("regenerate", regenerate),
				zap.Bool("recurrence", recurrence),
				zap.Bool("dry_run", dryRun),
				zap.Int("forbidden", len(forbidden)))

			result, err := services.GenerateWeekCalendar(app.Ctx, app.Database, app.Locker, app.Metrics, app.Cfg, app.Logger, services.GenerateWeekRequest{
				Options: model.CalendarOptions{
					Date:       date,
					Recurrence: recurrence,
				},
				Forbidden:  forbidden,
				Regenerate: regenerate,
				UserID:     userID,
				Seed:       seed,
				DryRun:     dryRun,
			})
			if err != nil {
				var genErr *services.GenerationError
				if errors.As(err, &genErr) {
					fmt.Printf("\n✗ Week generation failed after %d assignments were saved.\n", genErr.Persisted)
					fmt.Printf("  Re-run with --regenerate to start the week over.\n\n")
				}
				return err
			}

			// Display results
			if result.DryRun {
				fmt.Printf("\n✓ Dry run complete, nothing was saved.\n\n")
			} else {
				fmt.Printf("\n✓ Week generated successfully!\n\n")
			}
			fmt.Printf("Week:        %s\n", formatWeek(result.Days))
			fmt.Printf("Run ID:      %s\n", result.RunID)
			if regenerate {
				fmt.Printf("Deleted:     %d\n", result.Deleted)
			}
			fmt.Printf("Assignments: %d\n\n", len(result.Assignments))

			if len(result.Shortfalls) > 0 {
				fmt.Printf("⚠️  %d missions are understaffed:\n", len(result.Shortfalls))
				for _, s := range result.Shortfalls {
					fmt.Printf("  %s\n", formatShortfall(s))
				}
				fmt.Println()
			}

			if len(result.ValidationErrors) > 0 {
				fmt.Printf("✗ %d validation errors:\n", len(result.ValidationErrors))
				for _, verr := range result.ValidationErrors {
					fmt.Printf("  %s\n", verr.Error())
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().Bool("regenerate", false, "Delete the week's existing assignments before generating")
	cmd.Flags().Bool("recurrence", false, "Avoid repeating last week's sector on the same weekday (defaults to config)")
	cmd.Flags().StringArray("forbid", nil, "Keep a caregiver out of a sector, as <caregiverId>:<sectorId> (repeatable)")
	cmd.Flags().Uint64("seed", 0, "Seed for random decisions")
	cmd.Flags().Bool("dry-run", false, "Run without saving to database")
	cmd.Flags().String("user", "cli", "User ID recorded on new assignments")

	return cmd
}

// parseForbidden turns <caregiverId>:<sectorId> values into a forbidden sector map.
// A value may list several sectors separated by commas.
func parseForbidden(values []string) (model.ForbiddenSectors, error) {
	forbidden := model.ForbiddenSectors{}
	for _, value := range values {
		caregiverID, sectors, ok := strings.Cut(value, ":")
		caregiverID = strings.TrimSpace(caregiverID)
		if !ok || caregiverID == "" || strings.TrimSpace(sectors) == "" {
			return nil, fmt.Errorf("invalid --forbid value %q, expected <caregiverId>:<sectorId>", value)
		}
		for _, sectorID := range strings.Split(sectors, ",") {
			sectorID = strings.TrimSpace(sectorID)
			if sectorID == "" {
				return nil, fmt.Errorf("invalid --forbid value %q, empty sector", value)
			}
			forbidden.Add(caregiverID, sectorID)
		}
	}
	return forbidden, nil
}

func formatShortfall(s allocator.Shortfall) string {
	name := s.MissionName
	if name == "" {
		name = s.MissionID
	}
	return fmt.Sprintf("%s  %-24s %d/%d (%s)", s.Date.Format("Mon Jan 02"), name, s.Assigned, s.Requested, s.Pass)
}
