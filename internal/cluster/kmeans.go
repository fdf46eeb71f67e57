// Package cluster partitions feature vectors with k-means and picks the cluster count by silhouette.
package cluster

import (
	"math"
	"math/rand/v2"

	"github.com/hyperjump/geocluster/internal/vector"
)

const (
	defaultMaxIterations = 300
	defaultNInit         = 3
	defaultTolerance     = 1e-4
)

// Partitioner assigns every row of a matrix to one of k clusters.
type Partitioner interface {
	Partition(m *vector.Matrix, k int) ([]int, error)
}

// KMeans is a seeded k-means++ / Lloyd partitioner. Identical input and seed give identical labels.
type KMeans struct {
	Seed          uint64
	MaxIterations int
	NInit         int
	Tolerance     float64
}

// NewKMeans returns a KMeans with default iteration settings.
func NewKMeans(seed uint64) *KMeans {
	return &KMeans{
		Seed:          seed,
		MaxIterations: defaultMaxIterations,
		NInit:         defaultNInit,
		Tolerance:     defaultTolerance,
	}
}

type kmeansRun struct {
	labels  []int
	inertia float64
}

// Partition returns N labels in [0, k). Returns *InvalidClusterCountError when k < 1 or k > N.
func (km *KMeans) Partition(m *vector.Matrix, k int) ([]int, error) {
	n := m.Len()
	if k < 1 || k > n {
		return nil, &InvalidClusterCountError{K: k, Samples: n}
	}
	if k == 1 {
		return make([]int, n), nil
	}

	nInit := km.NInit
	if nInit <= 0 {
		nInit = defaultNInit
	}
	maxIter := km.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	rng := rand.New(rand.NewPCG(km.Seed, km.Seed^0x9e3779b97f4a7c15))
	tol := km.Tolerance * meanVariance(m)

	var best *kmeansRun
	for run := 0; run < nInit; run++ {
		r := km.lloyd(m, k, maxIter, tol, seedCentroids(m, k, rng))
		if best == nil || r.inertia < best.inertia {
			best = r
		}
	}
	return best.labels, nil
}

// seedCentroids picks k starting centroids with k-means++ (D^2 weighted sampling).
func seedCentroids(m *vector.Matrix, k int, rng *rand.Rand) [][]float64 {
	n := m.Len()
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, densify(m.Row(rng.IntN(n)), m.Dim()))

	closest := make([]float64, n)
	for i := range closest {
		closest[i] = math.Inf(1)
	}
	for len(centroids) < k {
		last := centroids[len(centroids)-1]
		lastNorm := squaredNorm(last)
		var total float64
		for i := 0; i < n; i++ {
			d := pointCentroidDistance(m, i, last, lastNorm)
			if d < closest[i] {
				closest[i] = d
			}
			total += closest[i]
		}
		next := 0
		if total > 0 {
			target := rng.Float64() * total
			var acc float64
			next = n - 1
			for i := 0; i < n; i++ {
				acc += closest[i]
				if acc >= target && closest[i] > 0 {
					next = i
					break
				}
			}
		} else {
			next = rng.IntN(n)
		}
		centroids = append(centroids, densify(m.Row(next), m.Dim()))
	}
	return centroids
}

func (km *KMeans) lloyd(m *vector.Matrix, k, maxIter int, tol float64, centroids [][]float64) *kmeansRun {
	n := m.Len()
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	dists := make([]float64, n)
	norms := make([]float64, k)

	for iter := 0; iter < maxIter; iter++ {
		for c := range centroids {
			norms[c] = squaredNorm(centroids[c])
		}
		changed := 0
		for i := 0; i < n; i++ {
			best, bestDist := 0, math.Inf(1)
			for c := range centroids {
				d := pointCentroidDistance(m, i, centroids[c], norms[c])
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed++
			}
			dists[i] = bestDist
		}

		next, counts := recomputeCentroids(m, labels, k)
		reseedEmpty(m, next, counts, labels, dists)

		var shift float64
		for c := range next {
			for j := range next[c] {
				d := next[c][j] - centroids[c][j]
				shift += d * d
			}
		}
		centroids = next
		if changed == 0 || shift <= tol {
			break
		}
	}

	// Final assignment against the converged centroids.
	var inertia float64
	for c := range centroids {
		norms[c] = squaredNorm(centroids[c])
	}
	for i := 0; i < n; i++ {
		best, bestDist := 0, math.Inf(1)
		for c := range centroids {
			d := pointCentroidDistance(m, i, centroids[c], norms[c])
			if d < bestDist {
				best, bestDist = c, d
			}
		}
		labels[i] = best
		inertia += bestDist
	}
	return &kmeansRun{labels: labels, inertia: inertia}
}

func recomputeCentroids(m *vector.Matrix, labels []int, k int) ([][]float64, []int) {
	centroids := make([][]float64, k)
	for c := range centroids {
		centroids[c] = make([]float64, m.Dim())
	}
	counts := make([]int, k)
	for i, c := range labels {
		counts[c]++
		row := m.Row(i)
		for p, idx := range row.Indices {
			centroids[c][idx] += row.Values[p]
		}
	}
	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		inv := 1 / float64(counts[c])
		for j := range centroids[c] {
			centroids[c][j] *= inv
		}
	}
	return centroids, counts
}

// reseedEmpty moves each empty centroid onto the point currently farthest from its own centroid.
func reseedEmpty(m *vector.Matrix, centroids [][]float64, counts, labels []int, dists []float64) {
	for c := range centroids {
		if counts[c] > 0 {
			continue
		}
		far, farDist := -1, -1.0
		for i, d := range dists {
			if counts[labels[i]] > 1 && d > farDist {
				far, farDist = i, d
			}
		}
		if far < 0 {
			return
		}
		counts[labels[far]]--
		labels[far] = c
		counts[c] = 1
		dists[far] = 0
		centroids[c] = densify(m.Row(far), m.Dim())
	}
}

func pointCentroidDistance(m *vector.Matrix, i int, centroid []float64, centroidNorm float64) float64 {
	d := m.SquaredNorm(i) - 2*vector.DenseInnerProduct(m.Row(i), centroid) + centroidNorm
	if d < 0 {
		return 0
	}
	return d
}

func densify(s vector.Sparse, dim int) []float64 {
	out := make([]float64, dim)
	for p, idx := range s.Indices {
		out[idx] = s.Values[p]
	}
	return out
}

func squaredNorm(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum
}

// meanVariance returns the mean per-feature variance, used to scale the convergence tolerance.
func meanVariance(m *vector.Matrix) float64 {
	n, dim := m.Len(), m.Dim()
	if n == 0 || dim == 0 {
		return 0
	}
	sum := make([]float64, dim)
	sumSq := make([]float64, dim)
	for i := 0; i < n; i++ {
		row := m.Row(i)
		for p, idx := range row.Indices {
			v := row.Values[p]
			sum[idx] += v
			sumSq[idx] += v * v
		}
	}
	var total float64
	for j := 0; j < dim; j++ {
		mean := sum[j] / float64(n)
		total += sumSq[j]/float64(n) - mean*mean
	}
	return total / float64(dim)
}
