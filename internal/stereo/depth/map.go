package depth

import "fmt"

// Map is a dense row-major grid of per-pixel values, used for both disparity
// (pixels) and depth (metres) maps.
type Map struct {
	Rows, Cols int
	Data       []float32
}

// NewMap allocates a zero-filled rows x cols map.
func NewMap(rows, cols int) *Map {
	if rows < 0 || cols < 0 {
		rows, cols = 0, 0
	}
	return &Map{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}
}

// NewMapFromData wraps data as a rows x cols map without copying.
func NewMapFromData(rows, cols int, data []float32) (*Map, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("invalid map shape %dx%d", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("map data has %d values, want %d for %dx%d", len(data), rows*cols, rows, cols)
	}
	return &Map{Rows: rows, Cols: cols, Data: data}, nil
}

// At returns the value at (row, col).
func (m *Map) At(row, col int) float32 { return m.Data[row*m.Cols+col] }

// Set stores v at (row, col).
func (m *Map) Set(row, col int, v float32) { m.Data[row*m.Cols+col] = v }

// Empty reports whether the map has no pixels.
func (m *Map) Empty() bool { return m == nil || m.Rows == 0 || m.Cols == 0 }

// Clamped returns a copy with every negative value replaced by zero.
func (m *Map) Clamped() *Map {
	if m == nil {
		return nil
	}
	out := &Map{Rows: m.Rows, Cols: m.Cols, Data: make([]float32, len(m.Data))}
	for i, v := range m.Data {
		if v < 0 {
			v = 0
		}
		out.Data[i] = v
	}
	return out
}

// ValidCount returns the number of strictly positive values.
func (m *Map) ValidCount() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, v := range m.Data {
		if v > 0 {
			n++
		}
	}
	return n
}
