package vectorize

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDocuments signals that a component expecting at least one document got none.
	ErrNoDocuments = errors.New("no documents")
	// ErrEmptyCorpus signals that no vocabulary could be built from the documents.
	ErrEmptyCorpus = errors.New("empty corpus")
)

// EmptyCorpusError wraps ErrEmptyCorpus with the number of documents that were inspected.
type EmptyCorpusError struct {
	Documents int
}

func (e *EmptyCorpusError) Error() string {
	return fmt.Sprintf("%s: none of %d documents contain indexable terms", ErrEmptyCorpus.Error(), e.Documents)
}

func (e *EmptyCorpusError) Unwrap() error { return ErrEmptyCorpus }
