// Package ncbi resolves PubMed ids to GEO series through the NCBI E-utilities API.
package ncbi

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/geocluster/internal/metrics"
)

// DefaultEUtilsURL is the public E-utilities base URL.
const DefaultEUtilsURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Tool    string
	Email   string
	// RequestsPerSecond defaults to 3 without an API key and 10 with one.
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client calls elink and esummary. Requests share one rate limiter.
type Client struct {
	baseURL    string
	params     url.Values
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *zap.Logger
}

// NewLimiter returns the request limiter NCBI allows for the given key and rate.
func NewLimiter(requestsPerSecond float64, apiKey string) *rate.Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 3
		if apiKey != "" {
			requestsPerSecond = 10
		}
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
}

// NewClient creates a client. A nil logger is replaced by a no-op logger.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultEUtilsURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	params := url.Values{}
	if cfg.APIKey != "" {
		params.Set("api_key", cfg.APIKey)
	}
	if cfg.Tool != "" {
		params.Set("tool", cfg.Tool)
	}
	if cfg.Email != "" {
		params.Set("email", cfg.Email)
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		params:     params,
		limiter:    NewLimiter(cfg.RequestsPerSecond, cfg.APIKey),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Limiter returns the client's rate limiter so other NCBI callers can share it.
func (c *Client) Limiter() *rate.Limiter {
	return c.limiter
}

type elinkResult struct {
	LinkSets []struct {
		LinkSetDbs []struct {
			LinkName string `xml:"LinkName"`
			Links    []struct {
				ID string `xml:"Id"`
			} `xml:"Link"`
		} `xml:"LinkSetDb"`
	} `xml:"LinkSet"`
}

// LinkedDatasets returns the GEO DataSet (gds) ids linked to a PubMed id.
func (c *Client) LinkedDatasets(ctx context.Context, pmid string) ([]string, error) {
	body, err := c.get(ctx, "elink", url.Values{
		"dbfrom":   {"pubmed"},
		"db":       {"gds"},
		"id":       {pmid},
		"linkname": {"pubmed_gds"},
		"retmode":  {"xml"},
	})
	if err != nil {
		return nil, err
	}
	var res elinkResult
	if err := xml.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("%w: elink for PMID %s: %v", ErrMalformedResponse, pmid, err)
	}
	var ids []string
	for _, ls := range res.LinkSets {
		for _, db := range ls.LinkSetDbs {
			for _, l := range db.Links {
				if id := strings.TrimSpace(l.ID); id != "" {
					ids = append(ids, id)
				}
			}
		}
	}
	return ids, nil
}

// SeriesAccession returns the first GSE accession in the summary of a GEO DataSet.
func (c *Client) SeriesAccession(ctx context.Context, gdsID string) (string, error) {
	body, err := c.get(ctx, "esummary", url.Values{
		"db":      {"gds"},
		"id":      {gdsID},
		"retmode": {"xml"},
	})
	if err != nil {
		return "", err
	}
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: gds %s", ErrNoSeries, gdsID)
		}
		if err != nil {
			return "", fmt.Errorf("%w: esummary for gds %s: %v", ErrMalformedResponse, gdsID, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Item" || attr(start, "Name") != "Accession" {
			continue
		}
		var item struct {
			Text string `xml:",chardata"`
		}
		if err := dec.DecodeElement(&item, &start); err != nil {
			return "", fmt.Errorf("%w: esummary for gds %s: %v", ErrMalformedResponse, gdsID, err)
		}
		if acc := strings.TrimSpace(item.Text); strings.HasPrefix(acc, "GSE") {
			return acc, nil
		}
	}
}

// SeriesForPMID resolves a PubMed id to its GEO series. DataSets without a series, or whose
// summary fails, are logged and skipped. The gds ids are returned in link order.
func (c *Client) SeriesForPMID(ctx context.Context, pmid string) (gse, gds []string, err error) {
	gds, err = c.LinkedDatasets(ctx, pmid)
	if err != nil {
		return nil, nil, err
	}
	seen := make(map[string]struct{}, len(gds))
	for _, id := range gds {
		acc, err := c.SeriesAccession(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return gse, gds, ctx.Err()
			}
			level := c.logger.Warn
			if errors.Is(err, ErrNoSeries) {
				level = c.logger.Debug
			}
			level("skipping GEO DataSet", zap.String("pmid", pmid), zap.String("gds", id), zap.Error(err))
			continue
		}
		if _, dup := seen[acc]; dup {
			continue
		}
		seen[acc] = struct{}{}
		gse = append(gse, acc)
	}
	return gse, gds, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	for k, v := range c.params {
		params[k] = v
	}
	u := c.baseURL + "/" + endpoint + ".fcgi?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.NCBIRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()
	metrics.NCBIRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}
	return body, nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
