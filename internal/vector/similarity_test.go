package vector

import (
	"math"
	"testing"
)

func TestInnerProduct(t *testing.T) {
	a := Sparse{Indices: []int{0, 2, 5}, Values: []float64{1, 2, 3}}
	b := Sparse{Indices: []int{2, 3, 5}, Values: []float64{4, 1, 2}}
	if got := InnerProduct(a, b); got != 14 {
		t.Errorf("InnerProduct = %v, want 14", got)
	}
	if got := InnerProduct(a, Sparse{}); got != 0 {
		t.Errorf("InnerProduct with empty = %v", got)
	}
}

func TestDenseInnerProduct(t *testing.T) {
	a := Sparse{Indices: []int{1, 3}, Values: []float64{2, -1}}
	if got := DenseInnerProduct(a, []float64{9, 3, 9, 4}); got != 2 {
		t.Errorf("DenseInnerProduct = %v, want 2", got)
	}
}

func TestNormalizeL2(t *testing.T) {
	x := []float64{3, 4}
	NormalizeL2(x)
	if math.Abs(L2Norm(x)-1) > 1e-12 {
		t.Errorf("norm after normalize = %v", L2Norm(x))
	}
	zero := []float64{0, 0}
	NormalizeL2(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Error("zero vector should be unchanged")
	}
}

func TestMatrix_Distances(t *testing.T) {
	m, err := FromDense([][]float64{{0, 0}, {3, 4}, {0, 4}})
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 3 || m.Dim() != 2 {
		t.Fatalf("shape = %d x %d", m.Len(), m.Dim())
	}
	d := m.Distances()
	if math.Abs(d[0][1]-5) > 1e-12 || math.Abs(d[1][0]-5) > 1e-12 {
		t.Errorf("d[0][1] = %v, want 5", d[0][1])
	}
	if math.Abs(d[1][2]-3) > 1e-12 {
		t.Errorf("d[1][2] = %v, want 3", d[1][2])
	}
	if d[2][2] != 0 {
		t.Errorf("diagonal = %v", d[2][2])
	}
}

func TestNewMatrix_rejectsBadRows(t *testing.T) {
	tests := []struct {
		name string
		row  Sparse
	}{
		{"length mismatch", Sparse{Indices: []int{0}, Values: nil}},
		{"out of range", Sparse{Indices: []int{4}, Values: []float64{1}}},
		{"unsorted", Sparse{Indices: []int{2, 1}, Values: []float64{1, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMatrix([]Sparse{tt.row}, 3); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestMatrix_Dense(t *testing.T) {
	m, err := FromDense([][]float64{{1, 0, 2}, {0, 3, 0}})
	if err != nil {
		t.Fatal(err)
	}
	d := m.Dense()
	r, c := d.Dims()
	if r != 2 || c != 3 {
		t.Fatalf("dims = %d x %d", r, c)
	}
	if d.At(0, 2) != 2 || d.At(1, 1) != 3 || d.At(1, 0) != 0 {
		t.Errorf("unexpected dense contents")
	}
}
