package pipeline

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/geocluster/internal/models"
	"github.com/hyperjump/geocluster/internal/vector"
	"github.com/hyperjump/geocluster/internal/vectorize"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	opts := DefaultOptions()
	opts.TSNEIterations = 300
	p, err := New(opts, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestPipeline_Run_empty(t *testing.T) {
	res := newTestPipeline(t).Run(nil)
	if !res.Empty() || res.Fallback {
		t.Errorf("Run(nil) = %+v, want empty non-fallback result", res)
	}
	if res.RunID == "" {
		t.Error("RunID should be set")
	}
}

func TestPipeline_Run_trivialSizes(t *testing.T) {
	p := newTestPipeline(t)

	one := p.Run([]string{"anything"})
	if !reflect.DeepEqual(one.Points, []Assignment{{Cluster: 0, X: 0, Y: 0}}) {
		t.Errorf("N=1 points = %+v", one.Points)
	}

	// Fixed output holds even when the text is empty.
	two := p.Run([]string{"", ""})
	want := []Assignment{{Cluster: 0, X: 0, Y: 0}, {Cluster: 1, X: 1, Y: 1}}
	if !reflect.DeepEqual(two.Points, want) {
		t.Errorf("N=2 points = %+v, want %+v", two.Points, want)
	}
	if two.Fallback {
		t.Error("N=2 should not be a fallback")
	}
}

func TestPipeline_RunRecords_groupsDuplicates(t *testing.T) {
	records := []models.Record{
		{Title: "cancer study"},
		{Title: "cancer study"},
		{Title: "unrelated topic xyz"},
	}
	res := newTestPipeline(t).RunRecords(records)
	if res.Fallback {
		t.Fatalf("unexpected fallback: %s", res.FallbackReason)
	}
	if len(res.Points) != 3 {
		t.Fatalf("points = %d, want 3", len(res.Points))
	}
	if res.K != 2 {
		t.Errorf("K = %d, want 2", res.K)
	}
	if len(res.Scores) != 1 || res.Scores[0].K != 2 {
		t.Errorf("scores = %+v, want only k=2 evaluated", res.Scores)
	}
	if res.Points[0].Cluster != res.Points[1].Cluster {
		t.Error("identical records should share a cluster")
	}
	if res.Points[0].Cluster == res.Points[2].Cluster {
		t.Error("unrelated record should be in its own cluster")
	}
}

func TestPipeline_Run_labelsWithinK(t *testing.T) {
	docs := []string{
		"liver hepatocyte rna-seq expression",
		"liver hepatocyte microarray expression",
		"liver tissue hepatocyte profiling",
		"brain neuron chip-seq methylation",
		"brain cortex neuron methylation",
		"brain neuron cortex chromatin",
		"yeast stress response time course",
		"yeast heat shock time course",
	}
	res := newTestPipeline(t).Run(docs)
	if res.Fallback {
		t.Fatalf("unexpected fallback: %s", res.FallbackReason)
	}
	if res.K < 2 || res.K > len(docs)-1 {
		t.Fatalf("K = %d out of [2, %d]", res.K, len(docs)-1)
	}
	if len(res.Points) != len(docs) {
		t.Fatalf("points = %d", len(res.Points))
	}
	for i, a := range res.Points {
		if a.Cluster < 0 || a.Cluster >= res.K {
			t.Errorf("point %d cluster %d not in [0, %d)", i, a.Cluster, res.K)
		}
		if math.IsNaN(a.X) || math.IsNaN(a.Y) {
			t.Errorf("point %d has NaN coordinates", i)
		}
	}
}

func TestPipeline_Run_deterministic(t *testing.T) {
	docs := []string{"alpha beta", "alpha gamma", "delta epsilon", "delta zeta", "beta gamma"}
	p := newTestPipeline(t)
	a, b := p.Run(docs), p.Run(docs)
	if !reflect.DeepEqual(a.Points, b.Points) || a.K != b.K {
		t.Error("repeated runs should produce identical output")
	}
}

func TestPipeline_Run_emptyCorpusFallback(t *testing.T) {
	records := make([]models.Record, 5)
	res := newTestPipeline(t).RunRecords(records)
	if !res.Fallback {
		t.Fatal("expected fallback for empty corpus")
	}
	wantX := []float64{0, 0.25, 0.5, 0.75, 1}
	for i, a := range res.Points {
		if a.Cluster != 0 || a.Y != 0 || math.Abs(a.X-wantX[i]) > 1e-12 {
			t.Errorf("point %d = %+v, want cluster 0 at (%v, 0)", i, a, wantX[i])
		}
	}
	if res.K != 1 || res.FallbackReason == "" {
		t.Errorf("K = %d, reason = %q", res.K, res.FallbackReason)
	}
}

func TestPipeline_cluster_emptyCorpusError(t *testing.T) {
	p := newTestPipeline(t)
	err := p.cluster([]string{"", " ", "the of and"}, &Result{})
	if !errors.Is(err, vectorize.ErrEmptyCorpus) {
		t.Errorf("cluster() error = %v, want ErrEmptyCorpus", err)
	}
}

type panickingPartitioner struct{}

func (panickingPartitioner) Partition(*vector.Matrix, int) ([]int, error) {
	panic("boom")
}

func TestPipeline_Run_panicFallsBack(t *testing.T) {
	p := newTestPipeline(t)
	p.partitioner = panickingPartitioner{}
	res := p.Run([]string{"alpha beta", "gamma delta", "epsilon zeta"})
	if !res.Fallback || len(res.Points) != 3 {
		t.Fatalf("Run() = %+v, want 3-point fallback", res)
	}
	err := p.cluster([]string{"alpha beta", "gamma delta", "epsilon zeta"}, &Result{})
	if !errors.Is(err, ErrPanic) {
		t.Errorf("cluster() error = %v, want ErrPanic", err)
	}
}

func TestClampClusters(t *testing.T) {
	tests := []struct {
		k, n, max, want int
	}{
		{1, 10, 200, 2},
		{5, 10, 200, 5},
		{12, 10, 200, 9},
		{250, 300, 200, 200},
		{2, 3, 200, 2},
	}
	for _, tt := range tests {
		if got := ClampClusters(tt.k, tt.n, tt.max); got != tt.want {
			t.Errorf("ClampClusters(%d, %d, %d) = %d, want %d", tt.k, tt.n, tt.max, got, tt.want)
		}
	}
}

func TestLinspace(t *testing.T) {
	if got := Linspace(0, 1, 3); !reflect.DeepEqual(got, []float64{0, 0.5, 1}) {
		t.Errorf("Linspace(0,1,3) = %v", got)
	}
	if got := Linspace(0, 1, 1); !reflect.DeepEqual(got, []float64{0}) {
		t.Errorf("Linspace(0,1,1) = %v", got)
	}
	if got := Linspace(0, 1, 0); len(got) != 0 {
		t.Errorf("Linspace(0,1,0) = %v", got)
	}
}

func TestResult_Response(t *testing.T) {
	records := []models.Record{{GSE: "GSE1", Title: "a"}, {GSE: "GSE2", Title: "b"}}
	res := newTestPipeline(t).RunRecords(records)
	links := []models.PMIDLink{{PMID: "1", GSE: []string{"GSE1", "GSE2"}}}

	resp := res.Response(records, links)
	if resp.RunID != res.RunID || resp.Clusters != 2 {
		t.Errorf("response header = %+v", resp)
	}
	if len(resp.Records) != 2 || resp.Records[1].GSE != "GSE2" || resp.Records[1].Cluster != 1 || resp.Records[1].X != 1 {
		t.Errorf("records = %+v", resp.Records)
	}
	if !reflect.DeepEqual(resp.Links, links) {
		t.Errorf("links = %+v", resp.Links)
	}
}
