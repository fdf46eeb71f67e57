package ncbi

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSeries means a GEO DataSet summary carried no GSE accession.
	ErrNoSeries = errors.New("no GEO series accession")
	// ErrMalformedResponse means an E-utilities response could not be parsed.
	ErrMalformedResponse = errors.New("malformed E-utilities response")
)

// HTTPError is returned when an E-utilities endpoint answers with a non-200 status.
type HTTPError struct {
	Endpoint   string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: unexpected HTTP status %d", e.Endpoint, e.StatusCode)
}
