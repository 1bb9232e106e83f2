package mapper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/model"
)

// Detection defaults. Header rows sit near the top of a report template, so
// the scan is bounded; the thresholds are heuristic policy and can be tuned
// through DetectorConfig.
const (
	DefaultLookaheadRows       = 50
	DefaultHeadernessThreshold = 0.6
	DefaultDensityThreshold    = 0.5

	// Bonus applied to rows whose column density clears the threshold. It
	// favors one dense row of short text labels over scattered title and
	// caption rows above it.
	densityBonus = 0.1
)

// DetectorConfig tunes header-row detection. Zero values fall back to the
// defaults above.
type DetectorConfig struct {
	LookaheadRows       int     `json:"lookaheadRows"`
	HeadernessThreshold float64 `json:"headernessThreshold"`
	DensityThreshold    float64 `json:"densityThreshold"`
}

// Detector locates the row of a sheet grid most likely to hold the column
// headers.
type Detector struct {
	cfg DetectorConfig
}

// NewDetector creates a detector, filling unset config values with defaults.
func NewDetector(cfg DetectorConfig) *Detector {
	if cfg.LookaheadRows <= 0 {
		cfg.LookaheadRows = DefaultLookaheadRows
	}
	if cfg.HeadernessThreshold <= 0 {
		cfg.HeadernessThreshold = DefaultHeadernessThreshold
	}
	if cfg.DensityThreshold <= 0 {
		cfg.DensityThreshold = DefaultDensityThreshold
	}
	return &Detector{cfg: cfg}
}

// DetectHeaders scans the grid top to bottom and returns one HeaderCandidate
// per non-empty cell of the first row that qualifies as a header row, in
// column order. Duplicate labels stay separate entries, disambiguated by
// column position. When no row qualifies within the lookahead it returns
// ErrNoHeaderRow for this sheet.
func (d *Detector) DetectHeaders(grid *model.CellGrid) ([]model.HeaderCandidate, error) {
	if grid == nil || len(grid.Rows) == 0 {
		return nil, fmt.Errorf("sheet %q: empty grid: %w", sheetName(grid), ErrNoHeaderRow)
	}

	width := grid.Width()
	limit := len(grid.Rows)
	if limit > d.cfg.LookaheadRows {
		limit = d.cfg.LookaheadRows
	}

	for row := 0; row < limit; row++ {
		headerness, density := d.scoreRow(grid.Rows[row], width)
		if headerness >= d.cfg.HeadernessThreshold && density >= d.cfg.DensityThreshold {
			return headerCandidates(grid, row), nil
		}
	}

	return nil, fmt.Errorf("sheet %q: %w", sheetName(grid), ErrNoHeaderRow)
}

// scoreRow computes the headerness score and column density of one row.
// Headerness is the fraction of non-empty cells holding text that is not
// purely numeric or date-like; rows dense enough in columns get a bonus.
func (d *Detector) scoreRow(row []model.Cell, width int) (headerness, density float64) {
	nonEmpty := 0
	labelish := 0

	for _, cell := range row {
		if cell.Kind == model.CellEmpty || strings.TrimSpace(cell.Value) == "" {
			continue
		}
		nonEmpty++
		if cell.Kind == model.CellText && !numericLike(cell.Value) && !dateLike(cell.Value) {
			labelish++
		}
	}

	if nonEmpty == 0 || width == 0 {
		return 0, 0
	}

	headerness = float64(labelish) / float64(nonEmpty)
	density = float64(nonEmpty) / float64(width)
	if density >= d.cfg.DensityThreshold {
		headerness += densityBonus
		if headerness > 1 {
			headerness = 1
		}
	}
	return headerness, density
}

func headerCandidates(grid *model.CellGrid, row int) []model.HeaderCandidate {
	cells := grid.Rows[row]
	out := make([]model.HeaderCandidate, 0, len(cells))
	for col, cell := range cells {
		if cell.Kind == model.CellEmpty || strings.TrimSpace(cell.Value) == "" {
			continue
		}
		out = append(out, model.HeaderCandidate{
			Sheet:           grid.Sheet,
			Row:             row,
			Column:          col,
			RawLabel:        cell.Value,
			NormalizedLabel: Normalize(cell.Value),
		})
	}
	return out
}

var dateLikeRe = regexp.MustCompile(`^\s*\d{1,4}[-/.]\d{1,2}([-/.]\d{1,4})?(\s+\d{1,2}:\d{2}(:\d{2})?)?\s*$`)

// numericLike reports whether a text value is purely a number, e.g. data
// rows exported as shared strings.
func numericLike(value string) bool {
	v := strings.TrimSpace(value)
	v = strings.ReplaceAll(v, ",", "")
	v = strings.TrimSuffix(v, "%")
	if v == "" {
		return false
	}
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}

// dateLike reports whether a text value looks like a date or timestamp.
func dateLike(value string) bool {
	return dateLikeRe.MatchString(value)
}

func sheetName(grid *model.CellGrid) string {
	if grid == nil {
		return ""
	}
	return grid.Sheet
}
