// Package projection computes 2D layouts of feature vectors for display.
package projection

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/hyperjump/geocluster/internal/vector"
)

var (
	// ErrNoDocuments signals an empty matrix.
	ErrNoDocuments = errors.New("no documents to project")
	// ErrProjection signals a numeric failure inside the projection.
	ErrProjection = errors.New("projection failed")
)

// ProjectionError wraps ErrProjection with the stage that failed.
type ProjectionError struct {
	Stage string
	Cause error
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("%s during %s: %v", ErrProjection.Error(), e.Stage, e.Cause)
}

func (e *ProjectionError) Unwrap() []error { return []error{ErrProjection, e.Cause} }

// Point is a 2D position. Only relative distances are meaningful.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

const (
	defaultPerplexityCap     = 30
	defaultIterations        = 1000
	defaultEarlyExaggeration = 12
	exaggerationIterations   = 250
	minGain                  = 0.01
	perplexityTolerance      = 1e-5
	perplexitySteps          = 100
	initScale                = 1e-4
)

// TSNE is an exact t-distributed stochastic neighbor embedding into two dimensions.
type TSNE struct {
	Seed              uint64
	PerplexityCap     float64
	Iterations        int
	EarlyExaggeration float64
}

// NewTSNE returns a TSNE with the default perplexity cap (30), 1000 iterations and exaggeration 12.
func NewTSNE(seed uint64) *TSNE {
	return &TSNE{
		Seed:              seed,
		PerplexityCap:     defaultPerplexityCap,
		Iterations:        defaultIterations,
		EarlyExaggeration: defaultEarlyExaggeration,
	}
}

// Perplexity returns the neighborhood size used for n points: max(1, min(cap, n-1)).
func (t *TSNE) Perplexity(n int) float64 {
	c := t.PerplexityCap
	if c <= 0 {
		c = defaultPerplexityCap
	}
	return math.Max(1, math.Min(c, float64(n-1)))
}

// Project returns one point per row. One row maps to (0,0) and two rows to (0,0),(1,1).
func (t *TSNE) Project(m *vector.Matrix) (points []Point, err error) {
	n := m.Len()
	switch n {
	case 0:
		return nil, ErrNoDocuments
	case 1:
		return []Point{{0, 0}}, nil
	case 2:
		return []Point{{0, 0}, {1, 1}}, nil
	}

	defer func() {
		if r := recover(); r != nil {
			points, err = nil, &ProjectionError{Stage: "optimize", Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	p, err := t.affinities(m)
	if err != nil {
		return nil, err
	}
	y := t.initialLayout(m)
	if err := t.optimize(p, y); err != nil {
		return nil, err
	}

	points = make([]Point, n)
	for i := range points {
		points[i] = Point{X: y[i][0], Y: y[i][1]}
	}
	return points, nil
}

// affinities returns the symmetric joint probability matrix P.
func (t *TSNE) affinities(m *vector.Matrix) ([][]float64, error) {
	n := m.Len()
	perplexity := t.Perplexity(n)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := range dist[i] {
			dist[i][j] = m.SquaredDistance(i, j)
		}
	}

	cond := make([][]float64, n)
	target := math.Log(perplexity)
	for i := 0; i < n; i++ {
		cond[i] = conditionalRow(dist[i], i, target)
	}

	p := make([][]float64, n)
	for i := range p {
		p[i] = make([]float64, n)
	}
	denom := 2 * float64(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			v := (cond[i][j] + cond[j][i]) / denom
			if v < 1e-12 {
				v = 1e-12
			}
			if math.IsNaN(v) {
				return nil, &ProjectionError{Stage: "affinities", Cause: fmt.Errorf("NaN at (%d,%d)", i, j)}
			}
			p[i][j] = v
		}
	}
	return p, nil
}

// conditionalRow binary-searches the Gaussian precision so the row entropy matches target (nats).
func conditionalRow(dist []float64, self int, target float64) []float64 {
	n := len(dist)
	row := make([]float64, n)
	beta, lo, hi := 1.0, math.Inf(-1), math.Inf(1)
	for step := 0; step < perplexitySteps; step++ {
		var sum float64
		for j := 0; j < n; j++ {
			if j == self {
				row[j] = 0
				continue
			}
			row[j] = math.Exp(-dist[j] * beta)
			sum += row[j]
		}
		if sum == 0 {
			sum = 1e-8
		}
		var weighted float64
		for j := 0; j < n; j++ {
			row[j] /= sum
			weighted += dist[j] * row[j]
		}
		entropy := math.Log(sum) + beta*weighted
		diff := entropy - target
		if math.Abs(diff) <= perplexityTolerance {
			break
		}
		if diff > 0 {
			lo = beta
			if math.IsInf(hi, 1) {
				beta *= 2
			} else {
				beta = (beta + hi) / 2
			}
		} else {
			hi = beta
			if math.IsInf(lo, -1) {
				beta /= 2
			} else {
				beta = (beta + lo) / 2
			}
		}
	}
	return row
}

// initialLayout projects the rows onto their first two principal components, scaled so the
// first coordinate has standard deviation 1e-4. A failed or degenerate PCA falls back to seeded jitter.
func (t *TSNE) initialLayout(m *vector.Matrix) [][]float64 {
	n := m.Len()
	y := make([][]float64, n)
	for i := range y {
		y[i] = make([]float64, 2)
	}

	if x := m.Dense(); x != nil {
		var pc stat.PC
		if !pc.PrincipalComponents(x, nil) {
			return t.jitter(y)
		}
		var vecs mat.Dense
		pc.VectorsTo(&vecs)
		_, comps := vecs.Dims()
		if comps > 2 {
			comps = 2
		}

		_, dim := x.Dims()
		means := make([]float64, dim)
		for j := 0; j < dim; j++ {
			means[j] = stat.Mean(mat.Col(nil, j, x), nil)
		}
		centered := mat.NewDense(n, dim, nil)
		centered.Apply(func(i, j int, v float64) float64 { return v - means[j] }, x)

		var proj mat.Dense
		proj.Mul(centered, vecs.Slice(0, dim, 0, comps))
		for i := 0; i < n; i++ {
			for c := 0; c < comps; c++ {
				y[i][c] = proj.At(i, c)
			}
		}
	}

	first := make([]float64, n)
	for i := range y {
		first[i] = y[i][0]
	}
	sd := stat.StdDev(first, nil)
	if sd == 0 || math.IsNaN(sd) {
		return t.jitter(y)
	}
	for i := range y {
		y[i][0] = y[i][0] / sd * initScale
		y[i][1] = y[i][1] / sd * initScale
	}
	return y
}

// jitter replaces y with seeded Gaussian noise at the initialization scale.
func (t *TSNE) jitter(y [][]float64) [][]float64 {
	rng := rand.New(rand.NewPCG(t.Seed, t.Seed+1))
	for i := range y {
		y[i][0] = rng.NormFloat64() * initScale
		y[i][1] = rng.NormFloat64() * initScale
	}
	return y
}

// optimize runs gradient descent with momentum and per-parameter gains.
func (t *TSNE) optimize(p [][]float64, y [][]float64) error {
	n := len(y)
	iterations := t.Iterations
	if iterations <= 0 {
		iterations = defaultIterations
	}
	exaggeration := t.EarlyExaggeration
	if exaggeration <= 0 {
		exaggeration = defaultEarlyExaggeration
	}
	learningRate := math.Max(float64(n)/exaggeration/4, 50)

	update := make([][2]float64, n)
	gains := make([][2]float64, n)
	for i := range gains {
		gains[i] = [2]float64{1, 1}
	}
	grad := make([][2]float64, n)
	num := make([][]float64, n)
	for i := range num {
		num[i] = make([]float64, n)
	}

	for iter := 0; iter < iterations; iter++ {
		momentum, scale := 0.8, 1.0
		if iter < exaggerationIterations {
			momentum, scale = 0.5, exaggeration
		}

		var sumNum float64
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx := y[i][0] - y[j][0]
				dy := y[i][1] - y[j][1]
				v := 1 / (1 + dx*dx + dy*dy)
				num[i][j], num[j][i] = v, v
				sumNum += 2 * v
			}
		}
		if sumNum == 0 {
			return &ProjectionError{Stage: "optimize", Cause: errors.New("degenerate Student-t normalizer")}
		}

		for i := 0; i < n; i++ {
			var gx, gy float64
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				q := math.Max(num[i][j]/sumNum, 1e-12)
				mult := (scale*p[i][j] - q) * num[i][j]
				gx += mult * (y[i][0] - y[j][0])
				gy += mult * (y[i][1] - y[j][1])
			}
			grad[i] = [2]float64{4 * gx, 4 * gy}
		}

		for i := 0; i < n; i++ {
			for d := 0; d < 2; d++ {
				g := grad[i][d]
				if g*update[i][d] < 0 {
					gains[i][d] += 0.2
				} else {
					gains[i][d] *= 0.8
				}
				if gains[i][d] < minGain {
					gains[i][d] = minGain
				}
				update[i][d] = momentum*update[i][d] - learningRate*gains[i][d]*g
				y[i][d] += update[i][d]
				if math.IsNaN(y[i][d]) || math.IsInf(y[i][d], 0) {
					return &ProjectionError{Stage: "optimize", Cause: fmt.Errorf("non-finite coordinate at iteration %d", iter)}
				}
			}
		}
	}
	return nil
}
