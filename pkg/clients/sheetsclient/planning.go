package sheetsclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/sheets/v4"

	"github.com/jakechorley/caregiver-planner/pkg/core/calendar"
)

// PlanningRow is one mission of the week
type PlanningRow struct {
	Branch  string
	Sector  string
	Mission string
	// Cells holds the caregiver names per day, Monday first
	Cells []string
}

// Planning is the week grid written to the sheet
type Planning struct {
	Days []time.Time
	Rows []PlanningRow
}

// PlanningTabTitle returns "Planning Mon Mar 10 2025 - Sun Mar 16 2025" for the week containing day
func PlanningTabTitle(day time.Time) string {
	return "Planning " + calendar.FormatWeekRange(day)
}

// PublishPlanning writes the planning to its week tab, creating the tab if needed.
// An existing tab is cleared first so removed missions do not linger.
func (c *Client) PublishPlanning(ctx context.Context, spreadsheetID string, planning *Planning) error {
	if len(planning.Days) == 0 {
		return fmt.Errorf("planning has no days")
	}

	tabTitle := PlanningTabTitle(planning.Days[0])

	exists, err := c.SheetExists(ctx, spreadsheetID, tabTitle)
	if err != nil {
		return err
	}

	if exists {
		c.logger.Debug("Clearing existing planning tab", zap.String("tab", tabTitle))
		_, err := c.service.Spreadsheets.Values.Clear(spreadsheetID, quoteRange(tabTitle, "A:ZZ"), &sheets.ClearValuesRequest{}).
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to clear tab %s: %w", tabTitle, err)
		}
	} else {
		c.logger.Debug("Creating planning tab", zap.String("tab", tabTitle))
		if _, err := c.CreateSheet(ctx, spreadsheetID, tabTitle); err != nil {
			return fmt.Errorf("failed to create tab: %w", err)
		}
	}

	valueRange := &sheets.ValueRange{Values: PlanningValues(planning)}

	_, err = c.service.Spreadsheets.Values.Update(spreadsheetID, quoteRange(tabTitle, "A1"), valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write planning to tab %s: %w", tabTitle, err)
	}

	c.logger.Info("Published planning", zap.String("tab", tabTitle), zap.Int("rows", len(planning.Rows)))
	return nil
}

// PlanningValues lays the planning out as a header row followed by one row per mission
func PlanningValues(planning *Planning) [][]interface{} {
	header := []interface{}{"Branch", "Sector", "Mission"}
	for _, day := range planning.Days {
		header = append(header, day.Format("Mon Jan 02"))
	}

	values := make([][]interface{}, 0, len(planning.Rows)+1)
	values = append(values, header)

	for _, row := range planning.Rows {
		sheetRow := []interface{}{row.Branch, row.Sector, row.Mission}
		for i := range planning.Days {
			cell := ""
			if i < len(row.Cells) {
				cell = row.Cells[i]
			}
			sheetRow = append(sheetRow, cell)
		}
		values = append(values, sheetRow)
	}

	return values
}

// quoteRange builds an A1 range on a tab whose title contains spaces
func quoteRange(tabTitle, cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(tabTitle, "'", "''"), cells)
}
