package export

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/lexiscan-ai/lexiscan-backend/internal/core/domain"
)

// WorkbookBuilder renders a stored analysis as a two-sheet spreadsheet,
// one sheet for clauses and one for risks. The analysis JSON is schemaless
// on our side, so columns are derived from the union of keys actually
// present.
type WorkbookBuilder struct{}

func NewWorkbookBuilder() *WorkbookBuilder {
	return &WorkbookBuilder{}
}

func (b *WorkbookBuilder) AnalysisWorkbook(agreement *domain.Agreement) ([]byte, error) {
	wb := excelize.NewFile()
	defer wb.Close()

	if err := writeSheet(wb, "Clauses", agreement.ClausesJSON); err != nil {
		return nil, fmt.Errorf("write clauses sheet: %w", err)
	}
	if err := writeSheet(wb, "Risks", agreement.RisksJSON); err != nil {
		return nil, fmt.Errorf("write risks sheet: %w", err)
	}

	// Drop the default sheet left over from NewFile.
	if idx, err := wb.GetSheetIndex("Clauses"); err == nil && idx >= 0 {
		wb.SetActiveSheet(idx)
	}
	if err := wb.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(wb *excelize.File, name string, raw json.RawMessage) error {
	if _, err := wb.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	rows := decodeRows(raw)
	if len(rows) == 0 {
		return wb.SetCellValue(name, "A1", "no entries")
	}

	columns := collectColumns(rows)
	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := wb.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		values := make([]any, len(columns))
		for j, col := range columns {
			values[j] = cellValue(row[col])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row coordinates: %w", err)
		}
		if err := wb.SetSheetRow(name, cell, &values); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	return nil
}

// decodeRows accepts either an array of objects or a single object.
func decodeRows(raw json.RawMessage) []map[string]any {
	if len(raw) == 0 {
		return nil
	}

	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var single map[string]any
	if err := json.Unmarshal(raw, &single); err == nil && len(single) > 0 {
		return []map[string]any{single}
	}
	return nil
}

func collectColumns(rows []map[string]any) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for key := range row {
			seen[key] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for key := range seen {
		columns = append(columns, key)
	}
	sort.Strings(columns)
	return columns
}

func cellValue(v any) any {
	switch typed := v.(type) {
	case nil:
		return ""
	case string, float64, bool:
		return typed
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprintf("%v", typed)
		}
		return strings.TrimSpace(string(encoded))
	}
}
