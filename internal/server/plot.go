package server

import (
	"fmt"
	"math"
	"strings"

	"github.com/hyperjump/geocluster/internal/models"
	"github.com/hyperjump/geocluster/pkg/utils"
)

// Scatter plot geometry in SVG user units.
const (
	plotWidth   = 800
	plotHeight  = 520
	plotPadding = 30
)

var clusterPalette = []string{
	"#8b5cf6", "#06b6d4", "#22c55e", "#f59e0b", "#ef4444",
	"#14b8a6", "#eab308", "#3b82f6", "#d946ef", "#f97316",
}

func colorForCluster(id int) string {
	if id < 0 {
		id = -id
	}
	return clusterPalette[id%len(clusterPalette)]
}

type plotPoint struct {
	CX, CY float64
	Color  string
	Label  string
}

type legendEntry struct {
	Cluster int
	Size    int
	Color   string
}

type linkRow struct {
	PMID string
	GSE  string
}

type resultsView struct {
	Response *models.ClusterResponse
	Width    int
	Height   int
	Points   []plotPoint
	Legend   []legendEntry
	Links    []linkRow
}

func newResultsView(resp *models.ClusterResponse) *resultsView {
	v := &resultsView{
		Response: resp,
		Width:    plotWidth,
		Height:   plotHeight,
		Points:   scatter(resp.Records),
	}
	for id, size := range resp.ClusterSizes() {
		if size > 0 {
			v.Legend = append(v.Legend, legendEntry{Cluster: id, Size: size, Color: colorForCluster(id)})
		}
	}
	for _, l := range resp.Links {
		gse := strings.Join(l.GSE, ", ")
		if gse == "" {
			gse = "none"
		}
		v.Links = append(v.Links, linkRow{PMID: l.PMID, GSE: gse})
	}
	return v
}

// scatter maps record positions into the plot area. A zero-width axis is centered.
func scatter(records []models.ClusteredRecord) []plotPoint {
	if len(records) == 0 {
		return nil
	}
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, r := range records {
		minX, maxX = math.Min(minX, r.X), math.Max(maxX, r.X)
		minY, maxY = math.Min(minY, r.Y), math.Max(maxY, r.Y)
	}
	scale := func(v, lo, hi float64, size int) float64 {
		span := float64(size - 2*plotPadding)
		if hi-lo == 0 {
			return float64(size) / 2
		}
		return plotPadding + (v-lo)/(hi-lo)*span
	}
	points := make([]plotPoint, len(records))
	for i, r := range records {
		// SVG y grows downward
		cy := float64(plotHeight) - scale(r.Y, minY, maxY, plotHeight)
		points[i] = plotPoint{
			CX:    scale(r.X, minX, maxX, plotWidth),
			CY:    cy,
			Color: colorForCluster(r.Cluster),
			Label: fmt.Sprintf("%s | PMID %s | cluster %d\n%s\n%s",
				r.GSE, r.PMID, r.Cluster, utils.Truncate(r.Title, 120), r.Organism),
		}
	}
	return points
}
