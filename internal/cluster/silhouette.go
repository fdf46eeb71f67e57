package cluster

import (
	"fmt"
	"math"
)

// Silhouette returns the mean silhouette coefficient of labels over a precomputed distance table.
// Each point scores (b-a)/max(a,b), where a is its mean distance to its own cluster and b the
// smallest mean distance to another cluster; points alone in their cluster score 0.
// Fewer than two non-empty clusters yield 0.
func Silhouette(dist [][]float64, labels []int) (float64, error) {
	n := len(labels)
	if len(dist) != n {
		return 0, fmt.Errorf("distance table has %d rows for %d labels", len(dist), n)
	}
	sizes := make(map[int]int)
	for _, l := range labels {
		if l < 0 {
			return 0, fmt.Errorf("negative cluster label %d", l)
		}
		sizes[l]++
	}
	if len(sizes) < 2 {
		return 0, nil
	}
	maxLabel := 0
	for l := range sizes {
		if l > maxLabel {
			maxLabel = l
		}
	}

	sums := make([]float64, maxLabel+1)
	var total float64
	for i := 0; i < n; i++ {
		if len(dist[i]) != n {
			return 0, fmt.Errorf("distance row %d has %d columns, want %d", i, len(dist[i]), n)
		}
		for c := range sums {
			sums[c] = 0
		}
		for j := 0; j < n; j++ {
			sums[labels[j]] += dist[i][j]
		}
		own := labels[i]
		if sizes[own] == 1 {
			continue
		}
		a := sums[own] / float64(sizes[own]-1)
		b := math.Inf(1)
		for c, size := range sizes {
			if c == own {
				continue
			}
			if mean := sums[c] / float64(size); mean < b {
				b = mean
			}
		}
		denom := math.Max(a, b)
		if denom == 0 {
			continue
		}
		total += (b - a) / denom
	}
	score := total / float64(n)
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, fmt.Errorf("non-finite silhouette score")
	}
	return score, nil
}
