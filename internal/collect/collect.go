// Package collect gathers GEO series records for a list of PubMed ids.
package collect

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/geocluster/internal/models"
)

// SeriesResolver maps a PubMed id to its GEO series accessions.
type SeriesResolver interface {
	SeriesForPMID(ctx context.Context, pmid string) (gse, gds []string, err error)
}

// RecordFetcher fetches the metadata of one GEO series.
type RecordFetcher interface {
	FetchRecord(ctx context.Context, gse string) (*models.Record, error)
}

// Collection holds the records gathered for a PMID list and the PMID to series links.
type Collection struct {
	Records []models.Record
	Links   []models.PMIDLink
}

// Collector resolves PMIDs and fetches their series.
type Collector struct {
	resolver SeriesResolver
	fetcher  RecordFetcher
	logger   *zap.Logger
}

// NewCollector creates a collector. A nil logger is replaced by a no-op logger.
func NewCollector(resolver SeriesResolver, fetcher RecordFetcher, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{resolver: resolver, fetcher: fetcher, logger: logger}
}

// Collect returns one record per (PMID, series) pair in input order. A PMID or series that fails
// is logged and skipped; only context cancellation stops the collection early.
func (c *Collector) Collect(ctx context.Context, pmids []string) (*Collection, error) {
	out := &Collection{}
	for _, pmid := range pmids {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		gse, _, err := c.resolver.SeriesForPMID(ctx, pmid)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			c.logger.Warn("failed to resolve PMID", zap.String("pmid", pmid), zap.Error(err))
			continue
		}
		out.Links = append(out.Links, models.PMIDLink{PMID: pmid, GSE: gse})

		for _, acc := range gse {
			rec, err := c.fetcher.FetchRecord(ctx, acc)
			if err != nil {
				if ctx.Err() != nil {
					return out, ctx.Err()
				}
				c.logger.Warn("failed to fetch series metadata",
					zap.String("pmid", pmid), zap.String("gse", acc), zap.Error(err))
				continue
			}
			r := *rec
			r.PMID = pmid
			out.Records = append(out.Records, r)
		}
	}
	c.logger.Info("collected GEO records",
		zap.Int("pmids", len(pmids)),
		zap.Int("records", len(out.Records)),
	)
	return out, nil
}
