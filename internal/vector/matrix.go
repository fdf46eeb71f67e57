package vector

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Matrix is an N x Dim feature matrix whose rows share one vocabulary.
type Matrix struct {
	rows  []Sparse
	dim   int
	norms []float64
}

// NewMatrix builds a matrix from rows. Every index must lie in [0, dim).
func NewMatrix(rows []Sparse, dim int) (*Matrix, error) {
	if dim < 0 {
		return nil, fmt.Errorf("dimensions must not be negative")
	}
	norms := make([]float64, len(rows))
	for i, r := range rows {
		if len(r.Indices) != len(r.Values) {
			return nil, fmt.Errorf("row %d: indices and values length mismatch", i)
		}
		prev := -1
		for _, idx := range r.Indices {
			if idx <= prev || idx >= dim {
				return nil, fmt.Errorf("row %d: index %d out of order or outside [0, %d)", i, idx, dim)
			}
			prev = idx
		}
		norms[i] = r.SquaredNorm()
	}
	return &Matrix{rows: rows, dim: dim, norms: norms}, nil
}

// FromDense builds a sparse matrix from dense rows, dropping zero entries.
func FromDense(dense [][]float64) (*Matrix, error) {
	dim := 0
	if len(dense) > 0 {
		dim = len(dense[0])
	}
	rows := make([]Sparse, len(dense))
	for i, d := range dense {
		if len(d) != dim {
			return nil, fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(d), dim)
		}
		for j, v := range d {
			if v != 0 {
				rows[i].Indices = append(rows[i].Indices, j)
				rows[i].Values = append(rows[i].Values, v)
			}
		}
	}
	return NewMatrix(rows, dim)
}

// Len returns the number of rows.
func (m *Matrix) Len() int {
	return len(m.rows)
}

// Dim returns the row width.
func (m *Matrix) Dim() int {
	return m.dim
}

// Row returns row i.
func (m *Matrix) Row(i int) Sparse {
	return m.rows[i]
}

// SquaredNorm returns the cached squared norm of row i.
func (m *Matrix) SquaredNorm(i int) float64 {
	return m.norms[i]
}

// SquaredDistance returns the squared euclidean distance between rows i and j.
func (m *Matrix) SquaredDistance(i, j int) float64 {
	if i == j {
		return 0
	}
	return SquaredDistance(m.rows[i], m.rows[j], m.norms[i], m.norms[j])
}

// Distances returns the full N x N euclidean distance table.
func (m *Matrix) Distances() [][]float64 {
	n := len(m.rows)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := math.Sqrt(m.SquaredDistance(i, j))
			out[i][j] = d
			out[j][i] = d
		}
	}
	return out
}

// Dense copies the matrix into a gonum dense matrix.
func (m *Matrix) Dense() *mat.Dense {
	n := len(m.rows)
	if n == 0 || m.dim == 0 {
		return nil
	}
	d := mat.NewDense(n, m.dim, nil)
	for i, r := range m.rows {
		for k, idx := range r.Indices {
			d.Set(i, idx, r.Values[k])
		}
	}
	return d
}
