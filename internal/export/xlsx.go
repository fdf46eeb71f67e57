// Package export writes clustering results as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/geocluster/internal/models"
)

// Sheet names of the exported workbook.
const (
	SheetClusters = "Clusters"
	SheetSummary  = "Summary"
	SheetLinks    = "Links"
)

var clusterHeader = []interface{}{"GSE", "PMID", "Title", "Experiment type", "Organism", "Cluster", "X", "Y"}

// WriteXLSX writes resp as a workbook: one row per record, per-cluster sizes, and the PMID links.
func WriteXLSX(w io.Writer, resp *models.ClusterResponse) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetClusters); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := setRow(f, SheetClusters, 1, clusterHeader); err != nil {
		return err
	}
	for i, rec := range resp.Records {
		row := []interface{}{rec.GSE, rec.PMID, rec.Title, rec.ExperimentType, rec.Organism, rec.Cluster, rec.X, rec.Y}
		if err := setRow(f, SheetClusters, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("create sheet %q: %w", SheetSummary, err)
	}
	if err := setRow(f, SheetSummary, 1, []interface{}{"Cluster", "Size"}); err != nil {
		return err
	}
	for id, size := range resp.ClusterSizes() {
		if err := setRow(f, SheetSummary, id+2, []interface{}{id, size}); err != nil {
			return err
		}
	}

	if len(resp.Links) > 0 {
		if _, err := f.NewSheet(SheetLinks); err != nil {
			return fmt.Errorf("create sheet %q: %w", SheetLinks, err)
		}
		if err := setRow(f, SheetLinks, 1, []interface{}{"PMID", "GSE"}); err != nil {
			return err
		}
		for i, l := range resp.Links {
			if err := setRow(f, SheetLinks, i+2, []interface{}{l.PMID, strings.Join(l.GSE, ", ")}); err != nil {
				return err
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
