package pipeline

import (
	"fmt"
	"testing"

	"go.uber.org/zap"
)

func benchDocs(n int) []string {
	topics := []string{
		"liver hepatocyte expression profiling",
		"brain cortex neuron methylation",
		"yeast heat shock time course",
		"tumor immune infiltration single cell",
	}
	docs := make([]string, n)
	for i := range docs {
		docs[i] = fmt.Sprintf("%s sample%d", topics[i%len(topics)], i)
	}
	return docs
}

func BenchmarkPipeline_Run(b *testing.B) {
	opts := DefaultOptions()
	opts.TSNEIterations = 250
	p, err := New(opts, zap.NewNop())
	if err != nil {
		b.Fatal(err)
	}
	docs := benchDocs(60)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = p.Run(docs)
	}
}

func BenchmarkPipeline_cluster(b *testing.B) {
	opts := DefaultOptions()
	opts.TSNEIterations = 250
	opts.MaxClusters = 10
	p, err := New(opts, zap.NewNop())
	if err != nil {
		b.Fatal(err)
	}
	docs := benchDocs(60)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = p.cluster(docs, &Result{})
	}
}
