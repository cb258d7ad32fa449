package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/jakechorley/caregiver-planner/pkg/clients/sheetsclient"
	"github.com/jakechorley/caregiver-planner/pkg/core/model"
	"github.com/jakechorley/caregiver-planner/pkg/db"
)

const maxSheetNameLength = 31

// ExportWeek renders the stored planning of the week containing date as an .xlsx workbook
// with one sheet per branch. Returns the workbook and a suggested file name.
func ExportWeek(ctx context.Context, database db.Database, logger *zap.Logger, date string) (*bytes.Buffer, string, error) {
	week, err := GetWeekAssignments(ctx, database, logger, date)
	if err != nil {
		return nil, "", err
	}

	planning := BuildPlanning(week)

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create header style: %w", err)
	}

	// Rows come in tree order, so each branch is one contiguous block
	byBranch := make(map[string][]sheetsclient.PlanningRow)
	var branchOrder []string
	for _, row := range planning.Rows {
		if _, seen := byBranch[row.Branch]; !seen {
			branchOrder = append(branchOrder, row.Branch)
		}
		byBranch[row.Branch] = append(byBranch[row.Branch], row)
	}
	if len(branchOrder) == 0 {
		branchOrder = []string{"Planning"}
	}

	usedNames := make(map[string]bool)
	for i, branch := range branchOrder {
		sheetName := uniqueSheetName(branch, usedNames)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheetName); err != nil {
				return nil, "", fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheetName); err != nil {
			return nil, "", fmt.Errorf("failed to create sheet %s: %w", sheetName, err)
		}

		values := sheetsclient.PlanningValues(&sheetsclient.Planning{Days: planning.Days, Rows: byBranch[branch]})
		for r, row := range values {
			// The branch column is redundant on a per-branch sheet
			cellRow := row[1:]
			if err := f.SetSheetRow(sheetName, cell("A", r+1), &cellRow); err != nil {
				return nil, "", fmt.Errorf("failed to write row %d of %s: %w", r+1, sheetName, err)
			}
		}

		lastCol := colName(len(values[0]) - 2)
		f.SetCellStyle(sheetName, "A1", cell(lastCol, 1), headerStyle)
		f.SetColWidth(sheetName, "A", "B", 18)
		f.SetColWidth(sheetName, "C", lastCol, 24)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		logger.Error("Failed to write workbook", zap.Error(err))
		return nil, "", fmt.Errorf("failed to write workbook: %w", err)
	}

	filename := fmt.Sprintf("planning_%s.xlsx", week.Days[0].Format(model.DateLayout))
	logger.Debug("Exported week", zap.String("filename", filename), zap.Int("sheets", len(branchOrder)))

	return buf, filename, nil
}

// uniqueSheetName strips the characters Excel rejects in sheet names and truncates to its limit
func uniqueSheetName(name string, used map[string]bool) string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	if cleaned == "" {
		cleaned = "Branch"
	}
	if len([]rune(cleaned)) > maxSheetNameLength {
		cleaned = string([]rune(cleaned)[:maxSheetNameLength])
	}

	candidate := cleaned
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		base := []rune(cleaned)
		if len(base)+len(suffix) > maxSheetNameLength {
			base = base[:maxSheetNameLength-len(suffix)]
		}
		candidate = string(base) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
