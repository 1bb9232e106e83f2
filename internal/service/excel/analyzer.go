package excel

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/mapper"
	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/model"
)

// Analyzer turns a template workbook into typed cell grids and runs the
// auto-mapping engine over them.
type Analyzer struct {
	detector   *mapper.Detector
	autoMapper *mapper.AutoMapper
}

// NewAnalyzer creates an analyzer. Nil collaborators select defaults.
func NewAnalyzer(detector *mapper.Detector, autoMapper *mapper.AutoMapper) *Analyzer {
	if detector == nil {
		detector = mapper.NewDetector(mapper.DetectorConfig{})
	}
	if autoMapper == nil {
		autoMapper = mapper.NewAutoMapper(nil)
	}
	return &Analyzer{detector: detector, autoMapper: autoMapper}
}

// OpenWorkbook opens a template file from disk.
func OpenWorkbook(path string) (*excelize.File, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel: %w", err)
	}
	return wb, nil
}

// OpenWorkbookReader opens an uploaded template from a stream.
func OpenWorkbookReader(r io.Reader) (*excelize.File, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel: %w", err)
	}
	return wb, nil
}

// Grids extracts one typed CellGrid per sheet, in workbook sheet order.
func Grids(wb *excelize.File) ([]*model.CellGrid, error) {
	if wb == nil {
		return nil, errors.New("workbook is nil")
	}

	sheets := wb.GetSheetList()
	grids := make([]*model.CellGrid, 0, len(sheets))
	for _, sheet := range sheets {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		grid := &model.CellGrid{Sheet: sheet, Rows: make([][]model.Cell, len(rows))}
		for r, row := range rows {
			cells := make([]model.Cell, len(row))
			for c, value := range row {
				cells[c] = typedCell(wb, sheet, r, c, value)
			}
			grid.Rows[r] = cells
		}
		grids = append(grids, grid)
	}
	return grids, nil
}

// typedCell tags a raw cell value with its kind. The stored cell type is
// decisive where it can be; numeric cells carry no type attribute in the
// xlsx, so those fall back to parsing the value.
func typedCell(wb *excelize.File, sheet string, row, col int, value string) model.Cell {
	if strings.TrimSpace(value) == "" {
		return model.Cell{Kind: model.CellEmpty}
	}

	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return model.Cell{Kind: model.CellText, Value: value}
	}
	ct, err := wb.GetCellType(sheet, axis)
	if err != nil {
		return model.Cell{Kind: model.CellText, Value: value}
	}

	switch ct {
	case excelize.CellTypeDate:
		return model.Cell{Kind: model.CellDate, Value: value}
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if _, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(value), ",", ""), 64); err == nil {
			return model.Cell{Kind: model.CellNumber, Value: value}
		}
		return model.Cell{Kind: model.CellText, Value: value}
	default:
		return model.Cell{Kind: model.CellText, Value: value}
	}
}

// AnalyzeWorkbook detects header candidates on every sheet. Sheets without a
// detectable header row are reported in Skipped and do not fail the rest.
func (a *Analyzer) AnalyzeWorkbook(wb *excelize.File) (model.TemplateAnalysis, error) {
	analysis := model.TemplateAnalysis{
		Headers: make(map[string][]model.HeaderCandidate),
		Skipped: []string{},
	}

	grids, err := Grids(wb)
	if err != nil {
		return analysis, err
	}

	for _, grid := range grids {
		headers, err := a.detector.DetectHeaders(grid)
		if err != nil {
			if errors.Is(err, mapper.ErrNoHeaderRow) {
				analysis.Skipped = append(analysis.Skipped, grid.Sheet)
				continue
			}
			return analysis, err
		}
		analysis.Headers[grid.Sheet] = headers
	}
	return analysis, nil
}

// MapWorkbook runs detection and constrained assignment against the supplied
// candidate fields. An out-of-range threshold fails the whole call; a sheet
// without a header row only skips that sheet.
func (a *Analyzer) MapWorkbook(wb *excelize.File, fields []model.FieldName, threshold float64) (model.TemplateMapping, error) {
	mapping := model.TemplateMapping{
		Results: make(map[string]model.MappingResult),
		Skipped: []string{},
	}
	if threshold < 0 || threshold > 1 {
		return mapping, fmt.Errorf("threshold %.4f: %w", threshold, mapper.ErrInvalidThreshold)
	}

	analysis, err := a.AnalyzeWorkbook(wb)
	if err != nil {
		return mapping, err
	}
	mapping.Skipped = analysis.Skipped

	for _, sheet := range wb.GetSheetList() {
		headers, ok := analysis.Headers[sheet]
		if !ok {
			continue
		}
		result, err := a.autoMapper.Map(headers, fields, threshold)
		if err != nil {
			return mapping, fmt.Errorf("sheet %q: %w", sheet, err)
		}
		mapping.Results[sheet] = result
	}
	return mapping, nil
}

// AnalyzeTemplate is the path-based entry point for header detection.
func (a *Analyzer) AnalyzeTemplate(path string) (model.TemplateAnalysis, error) {
	wb, err := OpenWorkbook(path)
	if err != nil {
		return model.TemplateAnalysis{}, err
	}
	defer wb.Close()
	return a.AnalyzeWorkbook(wb)
}

// AnalyzeAndMapTemplate is the path-based entry point for a full
// detect-and-map run.
func (a *Analyzer) AnalyzeAndMapTemplate(path string, fields []model.FieldName, threshold float64) (model.TemplateMapping, error) {
	wb, err := OpenWorkbook(path)
	if err != nil {
		return model.TemplateMapping{}, err
	}
	defer wb.Close()
	return a.MapWorkbook(wb, fields, threshold)
}
