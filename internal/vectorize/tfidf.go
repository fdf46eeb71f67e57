// Package vectorize turns free-text documents into TF-IDF feature vectors over a shared vocabulary.
package vectorize

import (
	"math"
	"sort"

	"github.com/hyperjump/geocluster/internal/vector"
)

// Result is the output of Fit: one row per document and the ordered vocabulary naming the columns.
type Result struct {
	Matrix     *vector.Matrix
	Vocabulary []string
}

// Vectorizer builds TF-IDF vectors. Weights are raw term counts times the smoothed
// inverse document frequency ln((1+n)/(1+df))+1, and each row is L2-normalized.
type Vectorizer struct {
	analyzer *Analyzer
}

// NewVectorizer creates a Vectorizer with the default English analyzer.
func NewVectorizer() (*Vectorizer, error) {
	a, err := NewAnalyzer()
	if err != nil {
		return nil, err
	}
	return &Vectorizer{analyzer: a}, nil
}

// Fit learns the vocabulary from docs and returns their vectors.
// Returns ErrNoDocuments for an empty set and *EmptyCorpusError when no document has a term.
func (v *Vectorizer) Fit(docs []string) (*Result, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		counts[i] = make(map[string]int)
		for _, term := range v.analyzer.Terms(doc) {
			counts[i][term]++
		}
		for term := range counts[i] {
			df[term]++
		}
	}
	if len(df) == 0 {
		return nil, &EmptyCorpusError{Documents: len(docs)}
	}

	vocab := make([]string, 0, len(df))
	for term := range df {
		vocab = append(vocab, term)
	}
	sort.Strings(vocab)
	column := make(map[string]int, len(vocab))
	idf := make([]float64, len(vocab))
	n := float64(len(docs))
	for j, term := range vocab {
		column[term] = j
		idf[j] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	rows := make([]vector.Sparse, len(docs))
	for i, c := range counts {
		idx := make([]int, 0, len(c))
		for term := range c {
			idx = append(idx, column[term])
		}
		sort.Ints(idx)
		vals := make([]float64, len(idx))
		for k, j := range idx {
			vals[k] = float64(c[vocab[j]]) * idf[j]
		}
		vector.NormalizeL2(vals)
		rows[i] = vector.Sparse{Indices: idx, Values: vals}
	}

	m, err := vector.NewMatrix(rows, len(vocab))
	if err != nil {
		return nil, err
	}
	return &Result{Matrix: m, Vocabulary: vocab}, nil
}
