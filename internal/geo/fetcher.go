// Package geo fetches GEO series metadata from the GEO accession display pages.
package geo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/time/rate"

	"github.com/hyperjump/geocluster/internal/metrics"
	"github.com/hyperjump/geocluster/internal/models"
	"github.com/hyperjump/geocluster/internal/ncbi"
)

// DefaultBaseURL is the GEO accession display page.
const DefaultBaseURL = "https://www.ncbi.nlm.nih.gov/geo/query/acc.cgi"

// Config configures a Fetcher.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	CacheSize int
}

// Fetcher downloads and parses GEO series pages, caching parsed records.
type Fetcher struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *RecordCache
	logger     *zap.Logger
}

// NewFetcher creates a fetcher. A nil limiter means no rate limit.
func NewFetcher(cfg Config, limiter *rate.Limiter, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Fetcher{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		cache:      NewRecordCache(cfg.CacheSize),
		logger:     logger,
	}
}

// FetchRecord returns the metadata of series gse.
func (f *Fetcher) FetchRecord(ctx context.Context, gse string) (*models.Record, error) {
	if rec, ok := f.cache.Get(gse); ok {
		return &rec, nil
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := f.baseURL + "?" + url.Values{"acc": {gse}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build GEO request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		metrics.NCBIRequestsTotal.WithLabelValues("geo", "error").Inc()
		return nil, fmt.Errorf("GEO request for %s failed: %w", gse, err)
	}
	defer resp.Body.Close()
	metrics.NCBIRequestsTotal.WithLabelValues("geo", strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		return nil, &ncbi.HTTPError{Endpoint: "geo", StatusCode: resp.StatusCode}
	}
	rec, err := ParseRecord(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GEO page for %s: %w", gse, err)
	}
	rec.GSE = gse
	rec.Normalize()
	f.cache.Set(gse, rec)
	f.logger.Debug("fetched GEO series", zap.String("gse", gse), zap.Bool("empty", rec.IsEmpty()))
	return &rec, nil
}

// ParseRecord reads the labelled metadata cells of a GEO series page. Missing labels leave
// fields empty. When "Organism" is absent, "Organisms" is used: its link texts joined by "; ",
// or the cell text when it has no links.
func ParseRecord(r io.Reader) (models.Record, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return models.Record{}, err
	}
	rec := models.Record{
		Title:          cellText(valueCell(doc, "Title")),
		ExperimentType: cellText(valueCell(doc, "Experiment type")),
		Summary:        cellText(valueCell(doc, "Summary")),
		Organism:       cellText(valueCell(doc, "Organism")),
		OverallDesign:  cellText(valueCell(doc, "Overall design")),
	}
	if rec.Organism == "" {
		if cell := valueCell(doc, "Organisms"); cell != nil {
			if links := linkTexts(cell); len(links) > 0 {
				rec.Organism = strings.Join(links, "; ")
			} else {
				rec.Organism = cellText(cell)
			}
		}
	}
	return rec, nil
}

// valueCell finds the first <td> whose text is label and returns its next <td> sibling.
func valueCell(n *html.Node, label string) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Td && strings.TrimSpace(textOf(n, "")) == label {
		for s := n.NextSibling; s != nil; s = s.NextSibling {
			if s.Type == html.ElementNode && s.DataAtom == atom.Td {
				return s
			}
		}
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := valueCell(c, label); found != nil {
			return found
		}
	}
	return nil
}

func cellText(n *html.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(textOf(n, " "))
}

// textOf concatenates the text nodes under n, separated by sep.
func textOf(n *html.Node, sep string) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			parts = append(parts, n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, sep)
}

func linkTexts(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			if t := strings.TrimSpace(textOf(n, "")); t != "" {
				out = append(out, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}
