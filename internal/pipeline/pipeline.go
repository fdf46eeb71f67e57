// Package pipeline composes vectorization, cluster count selection, partitioning and projection
// into one run that always yields a well-formed result for every input document.
package pipeline

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/geocluster/internal/cluster"
	"github.com/hyperjump/geocluster/internal/metrics"
	"github.com/hyperjump/geocluster/internal/models"
	"github.com/hyperjump/geocluster/internal/projection"
	"github.com/hyperjump/geocluster/internal/vectorize"
)

// ErrPanic signals that a pipeline stage panicked; the run fell back instead of crashing.
var ErrPanic = errors.New("pipeline stage panicked")

// Assignment is the cluster id and 2D position of one document.
type Assignment struct {
	Cluster int     `json:"cluster"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// Result is the outcome of one run. Points is index-aligned with the input documents.
type Result struct {
	RunID          string
	Points         []Assignment
	K              int
	Scores         []cluster.CandidateScore
	Vocabulary     int
	Fallback       bool
	FallbackReason string
	Duration       time.Duration
}

// Empty reports whether the run had no documents; callers render "no results".
func (r *Result) Empty() bool {
	return len(r.Points) == 0
}

// Options configures a Pipeline.
type Options struct {
	// MaxClusters caps both the silhouette search range and the final cluster count.
	MaxClusters int
	Seed        uint64
	// Workers bounds concurrent candidate scoring (<= 0 means GOMAXPROCS).
	Workers           int
	MaxIterations     int
	NInit             int
	Tolerance         float64
	PerplexityCap     float64
	TSNEIterations    int
	EarlyExaggeration float64
}

// DefaultOptions returns the default settings: cap 200, seed 42.
func DefaultOptions() Options {
	return Options{
		MaxClusters:       cluster.DefaultMaxK,
		Seed:              42,
		MaxIterations:     300,
		NInit:             3,
		Tolerance:         1e-4,
		PerplexityCap:     30,
		TSNEIterations:    1000,
		EarlyExaggeration: 12,
	}
}

// Pipeline runs the clustering stages. It holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	opts        Options
	vectorizer  *vectorize.Vectorizer
	partitioner cluster.Partitioner
	selector    *cluster.Selector
	projector   *projection.TSNE
	logger      *zap.Logger
}

// New builds a Pipeline from opts. Zero option values take the defaults.
func New(opts Options, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.MaxClusters <= 0 {
		opts.MaxClusters = def.MaxClusters
	}
	vec, err := vectorize.NewVectorizer()
	if err != nil {
		return nil, fmt.Errorf("failed to create vectorizer: %w", err)
	}
	km := cluster.NewKMeans(opts.Seed)
	if opts.MaxIterations > 0 {
		km.MaxIterations = opts.MaxIterations
	}
	if opts.NInit > 0 {
		km.NInit = opts.NInit
	}
	if opts.Tolerance > 0 {
		km.Tolerance = opts.Tolerance
	}
	tsne := projection.NewTSNE(opts.Seed)
	if opts.PerplexityCap > 0 {
		tsne.PerplexityCap = opts.PerplexityCap
	}
	if opts.TSNEIterations > 0 {
		tsne.Iterations = opts.TSNEIterations
	}
	if opts.EarlyExaggeration > 0 {
		tsne.EarlyExaggeration = opts.EarlyExaggeration
	}
	return &Pipeline{
		opts:        opts,
		vectorizer:  vec,
		partitioner: km,
		selector: cluster.NewSelector(km,
			cluster.WithMaxK(opts.MaxClusters),
			cluster.WithWorkers(opts.Workers),
			cluster.WithLogger(logger),
		),
		projector: tsne,
		logger:    logger,
	}, nil
}

// RunRecords clusters records by their combined text fields.
func (p *Pipeline) RunRecords(records []models.Record) *Result {
	return p.Run(models.Documents(records))
}

// Run clusters docs. It never fails: with no documents the result is empty, one or two documents
// get fixed assignments, and any failure for three or more falls back to a single cluster laid
// out evenly on the x axis.
func (p *Pipeline) Run(docs []string) *Result {
	start := time.Now()
	res := &Result{RunID: uuid.NewString()}
	log := p.logger.With(zap.String("run_id", res.RunID), zap.Int("documents", len(docs)))

	outcome := "clustered"
	switch n := len(docs); n {
	case 0:
		outcome = "empty"
	case 1:
		outcome = "trivial"
		res.K = 1
		res.Points = []Assignment{{Cluster: 0, X: 0, Y: 0}}
	case 2:
		outcome = "trivial"
		res.K = 2
		res.Points = []Assignment{{Cluster: 0, X: 0, Y: 0}, {Cluster: 1, X: 1, Y: 1}}
	default:
		if err := p.cluster(docs, res); err != nil {
			outcome = "fallback"
			log.Warn("clustering failed, using single-cluster fallback", zap.Error(err))
			applyFallback(res, n, err)
		} else {
			metrics.SelectedClusters.Observe(float64(res.K))
		}
	}

	res.Duration = time.Since(start)
	metrics.PipelineRunsTotal.WithLabelValues(outcome).Inc()
	metrics.PipelineDuration.Observe(res.Duration.Seconds())
	log.Info("pipeline run finished",
		zap.String("outcome", outcome),
		zap.Int("clusters", res.K),
		zap.Duration("duration", res.Duration),
	)
	return res
}

// cluster runs the full stage chain for three or more documents.
func (p *Pipeline) cluster(docs []string, res *Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline stage panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	n := len(docs)
	vecs, err := p.vectorizer.Fit(docs)
	if err != nil {
		return fmt.Errorf("vectorize: %w", err)
	}
	res.Vocabulary = len(vecs.Vocabulary)

	sel := p.selector.Select(vecs.Matrix)
	res.Scores = sel.Scores
	k := ClampClusters(sel.K, n, p.opts.MaxClusters)

	labels, err := p.partitioner.Partition(vecs.Matrix, k)
	if err != nil {
		return fmt.Errorf("partition: %w", err)
	}
	points, err := p.projector.Project(vecs.Matrix)
	if err != nil {
		return fmt.Errorf("project: %w", err)
	}
	if len(labels) != n || len(points) != n {
		return fmt.Errorf("stage output size mismatch: %d labels, %d points for %d documents", len(labels), len(points), n)
	}

	res.K = k
	res.Points = make([]Assignment, n)
	for i := range res.Points {
		res.Points[i] = Assignment{Cluster: labels[i], X: points[i].X, Y: points[i].Y}
	}
	return nil
}

// ClampClusters bounds k to [2, min(n-1, maxClusters)].
func ClampClusters(k, n, maxClusters int) int {
	upper := n - 1
	if maxClusters > 0 && maxClusters < upper {
		upper = maxClusters
	}
	if k > upper {
		k = upper
	}
	if k < 2 {
		k = 2
	}
	return k
}

// applyFallback assigns every document to cluster 0 with x evenly spaced over [0, 1] and y = 0.
func applyFallback(res *Result, n int, cause error) {
	res.K = 1
	res.Scores = nil
	res.Fallback = true
	res.FallbackReason = cause.Error()
	res.Points = make([]Assignment, n)
	xs := Linspace(0, 1, n)
	for i := range res.Points {
		res.Points[i] = Assignment{Cluster: 0, X: xs[i], Y: 0}
	}
}

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	if n > 1 {
		out[n-1] = stop
	}
	return out
}
