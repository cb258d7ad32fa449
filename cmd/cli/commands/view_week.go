package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/caregiver-planner/pkg/clients/sheetsclient"
	"github.com/jakechorley/caregiver-planner/pkg/core/calendar"
	"github.com/jakechorley/caregiver-planner/pkg/core/services"
)

// ViewWeekCmd creates the viewWeek command
func ViewWeekCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "viewWeek [date]",
		Short: "Show the stored planning of the week containing date",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var date string
			if len(args) > 0 {
				date = args[0]
			}

			app.Logger.Debug("viewWeek command", zap.String("date", date))

			week, err := services.GetWeekAssignments(app.Ctx, app.Database, app.Logger, date)
			if err != nil {
				return err
			}

			fmt.Printf("\nPlanning %s (%d assignments)\n\n", formatWeek(week.Days), len(week.Assignments))
			renderPlanning(os.Stdout, services.BuildPlanning(week))
			fmt.Println()

			return nil
		},
	}
}

const (
	colorReset = "\033[0m"
	colorDim   = "\033[2m"
	colorBold  = "\033[1m"
)

// renderPlanning prints one line per mission and one column per day.
// Cells wider than the column are cut with "…".
func renderPlanning(w io.Writer, planning *sheetsclient.Planning) {
	const cellWidth = 18

	labelWidth := 20
	for _, row := range planning.Rows {
		labelWidth = max(labelWidth, utf8.RuneCountInString(rowLabel(row))+2)
	}

	fmt.Fprintf(w, "%s%-*s", colorBold, labelWidth, "")
	for _, day := range planning.Days {
		fmt.Fprintf(w, "%-*s", cellWidth, day.Format("Mon Jan 02"))
	}
	fmt.Fprintf(w, "%s\n", colorReset)

	fmt.Fprintln(w, strings.Repeat("-", labelWidth+cellWidth*len(planning.Days)))

	for _, row := range planning.Rows {
		fmt.Fprintf(w, "%-*s", labelWidth, rowLabel(row))
		for _, cell := range row.Cells {
			if cell == "" {
				fmt.Fprintf(w, "%s%-*s%s", colorDim, cellWidth, "-", colorReset)
				continue
			}
			fmt.Fprintf(w, "%-*s", cellWidth, truncate(cell, cellWidth-2))
		}
		fmt.Fprintln(w)
	}
}

func rowLabel(row sheetsclient.PlanningRow) string {
	return row.Sector + " / " + row.Mission
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-1]) + "…"
}

func formatWeek(days []time.Time) string {
	if len(days) == 0 {
		return ""
	}
	return calendar.FormatWeekRange(days[0])
}
