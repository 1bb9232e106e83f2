package excel

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/model"
)

// Exporter fills source rows into a pre-formatted template workbook. Only
// cell values are written, so the template keeps its styles, merges and
// formulas.
type Exporter struct{}

// NewExporter creates an exporter.
func NewExporter() *Exporter {
	return &Exporter{}
}

// OpenTemplate opens the pre-formatted template from a path.
func OpenTemplate(path string) (*excelize.File, error) {
	if path == "" {
		return nil, errors.New("template path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("template not found: %w", err)
	}
	return excelize.OpenFile(path)
}

// FillSheet writes records beneath the sheet's header row. fields gives the
// column meaning of each record slot; a field is placed in the template
// column its mapping entry points at. Fields without a mapping entry on this
// sheet are left out. Returns the number of rows written.
func (e *Exporter) FillSheet(wb *excelize.File, result model.MappingResult, fields []model.FieldName, records [][]string) (int, error) {
	if wb == nil {
		return 0, errors.New("workbook is nil")
	}
	if len(result.Headers) == 0 {
		return 0, errors.New("sheet has no detected headers")
	}

	sheet := result.Headers[0].Sheet
	headerRow := result.Headers[0].Row

	columnOf := make(map[model.FieldName]int, len(result.Mappings))
	for _, m := range result.Mappings {
		if _, taken := columnOf[m.Field]; !taken {
			columnOf[m.Field] = m.Header.Column
		}
	}

	written := 0
	for r, record := range records {
		placed := false
		for i, field := range fields {
			col, ok := columnOf[field]
			if !ok || i >= len(record) {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(col+1, headerRow+2+r)
			if err != nil {
				return written, err
			}
			if err := wb.SetCellValue(sheet, axis, cellValue(record[i])); err != nil {
				return written, err
			}
			placed = true
		}
		if placed {
			written++
		}
	}
	return written, nil
}

// cellValue writes numbers as numbers so the template's numeric formats
// apply; everything else stays a string.
func cellValue(raw string) interface{} {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}
	plain := strings.ReplaceAll(v, ",", "")
	if f, err := strconv.ParseFloat(plain, 64); err == nil {
		return f
	}
	return raw
}
