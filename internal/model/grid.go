package model

// CellKind tags the value type of a grid cell so header detection can score
// rows without re-parsing raw values.
type CellKind string

const (
	CellEmpty  CellKind = "empty"
	CellText   CellKind = "text"
	CellNumber CellKind = "number"
	CellDate   CellKind = "date"
)

// Cell is one typed value inside a sheet grid.
type Cell struct {
	Kind  CellKind `json:"kind"`
	Value string   `json:"value"`
}

// CellGrid is the raw 2-D content of a single sheet, row-major, 0-indexed.
// Column order is meaningful and preserved. The grid is input-only and is
// never mutated by the mapping engine.
type CellGrid struct {
	Sheet string   `json:"sheet"`
	Rows  [][]Cell `json:"rows"`
}

// Width returns the widest row of the grid.
func (g *CellGrid) Width() int {
	w := 0
	for _, row := range g.Rows {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// At returns the cell at (row, col); out-of-range positions read as empty.
func (g *CellGrid) At(row, col int) Cell {
	if row < 0 || row >= len(g.Rows) {
		return Cell{Kind: CellEmpty}
	}
	r := g.Rows[row]
	if col < 0 || col >= len(r) {
		return Cell{Kind: CellEmpty}
	}
	return r[col]
}
