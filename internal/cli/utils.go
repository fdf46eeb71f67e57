// Package cli provides CLI output helpers for geocluster.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperjump/geocluster/internal/models"
	"github.com/hyperjump/geocluster/pkg/utils"
)

// OutputFormat is the format for cluster result output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteResult writes a cluster response to w in the given format.
// Unknown formats are written as text.
func WriteResult(w io.Writer, resp *models.ClusterResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	default:
		writeResultText(w, resp)
		return nil
	}
}

func writeResultText(w io.Writer, resp *models.ClusterResponse) {
	if len(resp.Records) == 0 {
		fmt.Fprintln(w, "\nNo results.")
		writeLinks(w, resp.Links)
		return
	}
	fmt.Fprintf(w, "\nClustered %d records into %d clusters in %dms (run %s)\n",
		len(resp.Records), resp.Clusters, resp.QueryTime, resp.RunID)
	if resp.Fallback {
		fmt.Fprintf(w, "Clustering failed, showing a single group: %s\n", resp.FallbackReason)
	}
	writeLinks(w, resp.Links)

	sizes := resp.ClusterSizes()
	for id, size := range sizes {
		if size == 0 {
			continue
		}
		fmt.Fprintf(w, "\n--- Cluster %d (%d records) ---\n", id, size)
		for _, rec := range resp.Records {
			if rec.Cluster == id {
				writeOneRecord(w, rec)
			}
		}
	}
	fmt.Fprintln(w)
}

func writeLinks(w io.Writer, links []models.PMIDLink) {
	if len(links) == 0 {
		return
	}
	fmt.Fprintln(w, "\n--- PMID to GEO series ---")
	for _, l := range links {
		gse := strings.Join(l.GSE, ", ")
		if gse == "" {
			gse = "(none)"
		}
		fmt.Fprintf(w, "PMID %s: %s\n", l.PMID, gse)
	}
}

func writeOneRecord(w io.Writer, rec models.ClusteredRecord) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "%s | PMID %s | (%.3f, %.3f)\n", rec.GSE, rec.PMID, rec.X, rec.Y)
	if rec.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", utils.Truncate(rec.Title, 120))
	}
	if rec.Organism != "" {
		fmt.Fprintf(w, "Organism: %s\n", rec.Organism)
	}
	if rec.Summary != "" {
		fmt.Fprintf(w, "%s\n", TruncateWords(rec.Summary, 30))
	}
}

// PrintResult prints a cluster response to stdout in text format.
func PrintResult(resp *models.ClusterResponse) {
	_ = WriteResult(os.Stdout, resp, OutputText)
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
