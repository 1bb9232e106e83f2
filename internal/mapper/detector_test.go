package mapper

import (
	"errors"
	"testing"

	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/model"
)

func textRow(values ...string) []model.Cell {
	row := make([]model.Cell, len(values))
	for i, v := range values {
		if v == "" {
			row[i] = model.Cell{Kind: model.CellEmpty}
			continue
		}
		row[i] = model.Cell{Kind: model.CellText, Value: v}
	}
	return row
}

func numberRow(values ...string) []model.Cell {
	row := make([]model.Cell, len(values))
	for i, v := range values {
		if v == "" {
			row[i] = model.Cell{Kind: model.CellEmpty}
			continue
		}
		row[i] = model.Cell{Kind: model.CellNumber, Value: v}
	}
	return row
}

func TestDetectHeaders_SkipsTitleRows(t *testing.T) {
	t.Parallel()

	grid := &model.CellGrid{
		Sheet: "Batch Log",
		Rows: [][]model.Cell{
			textRow("Production Report", "", "", ""),
			textRow("", "", "", ""),
			textRow("BATCH NUMBER", "JOB NO.", "OPERATOR NAME", "RESIN TEMP.\n⁰C"),
			numberRow("1001", "17", "4", "21.5"),
		},
	}

	headers, err := NewDetector(DetectorConfig{}).DetectHeaders(grid)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(headers) != 4 {
		t.Fatalf("expected 4 header candidates, got %d", len(headers))
	}
	if headers[0].Row != 2 {
		t.Fatalf("header row = %d, want 2", headers[0].Row)
	}
	for i, h := range headers {
		if h.Column != i {
			t.Fatalf("candidate %d column = %d, want %d", i, h.Column, i)
		}
		if h.Sheet != "Batch Log" {
			t.Fatalf("candidate %d sheet = %q", i, h.Sheet)
		}
	}
	if headers[3].NormalizedLabel != "resin temp c" {
		t.Fatalf("normalized label = %q", headers[3].NormalizedLabel)
	}
}

func TestDetectHeaders_AllNumericSheet(t *testing.T) {
	t.Parallel()

	rows := make([][]model.Cell, 10)
	for i := range rows {
		rows[i] = numberRow("1", "2", "3")
	}
	grid := &model.CellGrid{Sheet: "Raw Data", Rows: rows}

	_, err := NewDetector(DetectorConfig{}).DetectHeaders(grid)
	if !errors.Is(err, ErrNoHeaderRow) {
		t.Fatalf("expected ErrNoHeaderRow, got %v", err)
	}
}

func TestDetectHeaders_NumericLookingTextIsNotALabel(t *testing.T) {
	t.Parallel()

	// Shared-string exports tag data cells as text; detection must still
	// recognize the row as data, not headers.
	grid := &model.CellGrid{
		Sheet: "Export",
		Rows: [][]model.Cell{
			textRow("1,200", "3.5", "2024/01/05"),
			textRow("WEIGHT", "RATIO", "DATE"),
		},
	}

	headers, err := NewDetector(DetectorConfig{}).DetectHeaders(grid)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if headers[0].Row != 1 {
		t.Fatalf("header row = %d, want 1", headers[0].Row)
	}
}

func TestDetectHeaders_SparseRowFailsDensity(t *testing.T) {
	t.Parallel()

	grid := &model.CellGrid{
		Sheet: "Sparse",
		Rows: [][]model.Cell{
			textRow("NOTE", "", "", "", "", "", "", ""),
		},
	}

	_, err := NewDetector(DetectorConfig{}).DetectHeaders(grid)
	if !errors.Is(err, ErrNoHeaderRow) {
		t.Fatalf("expected ErrNoHeaderRow, got %v", err)
	}
}

func TestDetectHeaders_LookaheadBound(t *testing.T) {
	t.Parallel()

	rows := make([][]model.Cell, 0, 6)
	for i := 0; i < 5; i++ {
		rows = append(rows, numberRow("1", "2"))
	}
	rows = append(rows, textRow("BATCH", "OPERATOR"))
	grid := &model.CellGrid{Sheet: "Deep", Rows: rows}

	// Header row sits below the lookahead window.
	_, err := NewDetector(DetectorConfig{LookaheadRows: 3}).DetectHeaders(grid)
	if !errors.Is(err, ErrNoHeaderRow) {
		t.Fatalf("expected ErrNoHeaderRow, got %v", err)
	}

	headers, err := NewDetector(DetectorConfig{LookaheadRows: 10}).DetectHeaders(grid)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if headers[0].Row != 5 {
		t.Fatalf("header row = %d, want 5", headers[0].Row)
	}
}

func TestDetectHeaders_DuplicateLabelsStaySeparate(t *testing.T) {
	t.Parallel()

	grid := &model.CellGrid{
		Sheet: "Dup",
		Rows: [][]model.Cell{
			textRow("VALUE", "VALUE"),
		},
	}

	headers, err := NewDetector(DetectorConfig{}).DetectHeaders(grid)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(headers) != 2 {
		t.Fatalf("expected duplicate labels as separate candidates, got %d", len(headers))
	}
	if headers[0].Column == headers[1].Column {
		t.Fatalf("duplicates must be disambiguated by column")
	}
}

func TestDetectHeaders_EmptyGrid(t *testing.T) {
	t.Parallel()

	_, err := NewDetector(DetectorConfig{}).DetectHeaders(&model.CellGrid{Sheet: "Empty"})
	if !errors.Is(err, ErrNoHeaderRow) {
		t.Fatalf("expected ErrNoHeaderRow, got %v", err)
	}
}
