// returns.go
package internal

import "math"

// ReturnMatrix holds per-asset simple returns, one row per asset, one column
// per time step. The matrix is read-only after construction and may be shared
// by reference across concurrent readers.
type ReturnMatrix struct {
	rows   [][]float64
	prices [][]float64 // cumulative price paths, seeded at 1.0
}

// NewReturnMatrix validates and wraps the given rows. Every row must have the
// same length and contain only finite values; the core assumes clean input
// and fails loudly otherwise.
func NewReturnMatrix(rows [][]float64) (*ReturnMatrix, error) {
	if len(rows) == 0 {
		return nil, InputErrorf("return matrix: no assets")
	}
	steps := len(rows[0])
	if steps == 0 {
		return nil, InputErrorf("return matrix: no steps")
	}
	for i, row := range rows {
		if len(row) != steps {
			return nil, InputErrorf("return matrix: asset %d has %d steps, want %d", i, len(row), steps)
		}
		for t, r := range row {
			if math.IsNaN(r) || math.IsInf(r, 0) {
				return nil, InputErrorf("return matrix: non-finite return at asset %d step %d", i, t)
			}
		}
	}
	m := &ReturnMatrix{rows: rows}
	m.prices = make([][]float64, len(rows))
	for i, row := range rows {
		p := make([]float64, steps+1)
		p[0] = 1.0
		for t, r := range row {
			p[t+1] = p[t] * (1 + r)
		}
		m.prices[i] = p
	}
	return m, nil
}

func (m *ReturnMatrix) Assets() int {
	return len(m.rows)
}

func (m *ReturnMatrix) Steps() int {
	return len(m.rows[0])
}

// Returns exposes the raw per-asset return rows. Callers must not modify.
func (m *ReturnMatrix) Returns() [][]float64 {
	return m.rows
}

// Asset returns one asset's full return series.
func (m *ReturnMatrix) Asset(i int) []float64 {
	return m.rows[i]
}

// Prices returns the per-asset cumulative price paths (length Steps+1,
// starting at 1.0). Indicator computations run on these.
func (m *ReturnMatrix) Prices() [][]float64 {
	return m.prices
}

// Column returns the cross-section of returns at step t.
func (m *ReturnMatrix) Column(t int) []float64 {
	col := make([]float64, len(m.rows))
	for i, row := range m.rows {
		col[i] = row[t]
	}
	return col
}

// Window returns per-asset return slices covering [end-size, end). The slices
// alias the underlying rows; callers must not modify them.
func (m *ReturnMatrix) Window(end, size int) [][]float64 {
	if size <= 0 || end < size || end > m.Steps() {
		return nil
	}
	out := make([][]float64, len(m.rows))
	for i, row := range m.rows {
		out[i] = row[end-size : end]
	}
	return out
}
