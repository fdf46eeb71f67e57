package vectorize

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func newTestVectorizer(t *testing.T) *Vectorizer {
	t.Helper()
	v, err := NewVectorizer()
	if err != nil {
		t.Fatalf("NewVectorizer: %v", err)
	}
	return v
}

func TestAnalyzer_Terms(t *testing.T) {
	a, err := NewAnalyzer()
	if err != nil {
		t.Fatal(err)
	}
	got := a.Terms("The Expression of a gene in Mus musculus, and the B cells")
	want := []string{"expression", "gene", "mus", "musculus", "cells"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Terms() = %v, want %v", got, want)
	}
	if terms := a.Terms(""); len(terms) != 0 {
		t.Errorf("Terms(\"\") = %v", terms)
	}
}

func TestVectorizer_Fit(t *testing.T) {
	v := newTestVectorizer(t)
	res, err := v.Fit([]string{"cancer study", "cancer study", "unrelated topic xyz"})
	if err != nil {
		t.Fatal(err)
	}
	wantVocab := []string{"cancer", "study", "topic", "unrelated", "xyz"}
	if !reflect.DeepEqual(res.Vocabulary, wantVocab) {
		t.Errorf("Vocabulary = %v, want %v", res.Vocabulary, wantVocab)
	}
	m := res.Matrix
	if m.Len() != 3 || m.Dim() != len(wantVocab) {
		t.Fatalf("shape = %d x %d", m.Len(), m.Dim())
	}
	for i := 0; i < m.Len(); i++ {
		if math.Abs(m.SquaredNorm(i)-1) > 1e-12 {
			t.Errorf("row %d squared norm = %v, want 1", i, m.SquaredNorm(i))
		}
	}
	if m.SquaredDistance(0, 1) != 0 {
		t.Errorf("identical documents should have identical vectors")
	}
	if m.SquaredDistance(0, 2) == 0 {
		t.Errorf("different documents should differ")
	}
}

func TestVectorizer_Fit_rareTermsWeighMore(t *testing.T) {
	v := newTestVectorizer(t)
	res, err := v.Fit([]string{"tumor liver", "tumor lung", "tumor brain"})
	if err != nil {
		t.Fatal(err)
	}
	col := make(map[string]int)
	for j, term := range res.Vocabulary {
		col[term] = j
	}
	row := res.Matrix.Row(0)
	weights := make(map[int]float64)
	for k, idx := range row.Indices {
		weights[idx] = row.Values[k]
	}
	if weights[col["liver"]] <= weights[col["tumor"]] {
		t.Errorf("rare term weight %v should exceed common term weight %v", weights[col["liver"]], weights[col["tumor"]])
	}
}

func TestVectorizer_Fit_deterministic(t *testing.T) {
	v := newTestVectorizer(t)
	docs := []string{"rna seq of liver", "chip seq of histone marks", "liver histone"}
	a, err := v.Fit(docs)
	if err != nil {
		t.Fatal(err)
	}
	b, err := v.Fit(docs)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < a.Matrix.Len(); i++ {
		if !reflect.DeepEqual(a.Matrix.Row(i), b.Matrix.Row(i)) {
			t.Errorf("row %d differs between runs", i)
		}
	}
}

func TestVectorizer_Fit_emptyCorpus(t *testing.T) {
	v := newTestVectorizer(t)
	tests := []struct {
		name string
		docs []string
	}{
		{"all empty", []string{"", "", ""}},
		{"only stop words", []string{"the and of", "a an", "is it"}},
		{"whitespace", []string{"   ", "\t", "\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Fit(tt.docs)
			if !errors.Is(err, ErrEmptyCorpus) {
				t.Fatalf("Fit() error = %v, want ErrEmptyCorpus", err)
			}
			var ece *EmptyCorpusError
			if !errors.As(err, &ece) || ece.Documents != len(tt.docs) {
				t.Errorf("expected EmptyCorpusError with %d documents, got %v", len(tt.docs), err)
			}
		})
	}
}

func TestVectorizer_Fit_noDocuments(t *testing.T) {
	v := newTestVectorizer(t)
	if _, err := v.Fit(nil); !errors.Is(err, ErrNoDocuments) {
		t.Errorf("Fit(nil) error = %v, want ErrNoDocuments", err)
	}
}

func TestVectorizer_Fit_emptyDocumentKeepsRow(t *testing.T) {
	v := newTestVectorizer(t)
	res, err := v.Fit([]string{"gene expression", "", "protein"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Matrix.Len() != 3 {
		t.Fatalf("rows = %d, want 3", res.Matrix.Len())
	}
	if res.Matrix.Row(1).Len() != 0 {
		t.Errorf("empty document should produce an all-zero row")
	}
}
