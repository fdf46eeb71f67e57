package cluster

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/geocluster/internal/metrics"
	"github.com/hyperjump/geocluster/internal/vector"
)

// DefaultMaxK is the upper bound on candidate cluster counts.
const DefaultMaxK = 200

// CandidateScore is the silhouette result for one candidate k. Err is set when scoring failed
// and the score was recorded as 0.
type CandidateScore struct {
	K     int     `json:"k"`
	Score float64 `json:"score"`
	Err   error   `json:"-"`
}

// Selection is the outcome of a cluster count search.
type Selection struct {
	K      int
	Scores []CandidateScore
}

// Selector searches k in [2, min(MaxK, N-1)] and keeps the k with the highest silhouette.
type Selector struct {
	partitioner Partitioner
	maxK        int
	workers     int
	logger      *zap.Logger
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithMaxK caps the candidate range.
func WithMaxK(k int) SelectorOption {
	return func(s *Selector) { s.maxK = k }
}

// WithWorkers sets how many candidates are scored concurrently (<= 0 means GOMAXPROCS).
func WithWorkers(n int) SelectorOption {
	return func(s *Selector) { s.workers = n }
}

// WithLogger sets a logger for per-candidate failures.
func WithLogger(l *zap.Logger) SelectorOption {
	return func(s *Selector) { s.logger = l }
}

// NewSelector creates a Selector that partitions candidates with p.
func NewSelector(p Partitioner, opts ...SelectorOption) *Selector {
	s := &Selector{
		partitioner: p,
		maxK:        DefaultMaxK,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers <= 0 {
		s.workers = runtime.GOMAXPROCS(0)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Select returns the best cluster count for m. With fewer than three rows it returns K=1 without searching.
// Ties go to the smallest k.
func (s *Selector) Select(m *vector.Matrix) Selection {
	maxK := s.maxK
	if n := m.Len() - 1; n < maxK {
		maxK = n
	}
	if maxK < 2 {
		return Selection{K: 1}
	}

	dist := m.Distances()
	scores := make([]CandidateScore, maxK-1)
	var g errgroup.Group
	g.SetLimit(s.workers)
	for k := 2; k <= maxK; k++ {
		g.Go(func() error {
			scores[k-2] = s.evaluate(m, dist, k)
			return nil
		})
	}
	_ = g.Wait()

	best := Selection{K: 2, Scores: scores}
	bestScore := scores[0].Score
	for _, c := range scores {
		if c.Err != nil {
			metrics.CandidateFailuresTotal.Inc()
			s.logger.Warn("cluster count candidate failed", zap.Int("k", c.K), zap.Error(c.Err))
		}
		if c.Score > bestScore {
			best.K, bestScore = c.K, c.Score
		}
	}
	s.logger.Debug("cluster count selected", zap.Int("k", best.K), zap.Float64("silhouette", bestScore), zap.Int("candidates", len(scores)))
	return best
}

// evaluate scores one candidate. Errors and panics are contained and recorded as a zero score.
func (s *Selector) evaluate(m *vector.Matrix, dist [][]float64, k int) (c CandidateScore) {
	c.K = k
	defer func() {
		if r := recover(); r != nil {
			c.Score = 0
			c.Err = &ScoringError{K: k, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()
	labels, err := s.partitioner.Partition(m, k)
	if err != nil {
		c.Err = &ScoringError{K: k, Cause: err}
		return c
	}
	if len(labels) != m.Len() {
		c.Err = &ScoringError{K: k, Cause: fmt.Errorf("partition returned %d labels for %d rows", len(labels), m.Len())}
		return c
	}
	score, err := Silhouette(dist, labels)
	if err != nil {
		c.Err = &ScoringError{K: k, Cause: err}
		return c
	}
	c.Score = score
	return c
}
