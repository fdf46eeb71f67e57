// Package models defines the record, request, and response shapes shared by the collectors, pipeline and API.
package models

import (
	"strings"
	"unicode"
)

// Record is the fixed-schema metadata of one GEO series referenced by a publication.
// Absent fields are empty strings.
type Record struct {
	GSE            string `json:"gse"`
	PMID           string `json:"pmid"`
	Title          string `json:"title"`
	ExperimentType string `json:"experiment_type"`
	Summary        string `json:"summary"`
	Organism       string `json:"organism"`
	OverallDesign  string `json:"overall_design"`
}

// Document joins the text fields in a fixed order: title, experiment type, summary, organism, overall design.
func (r *Record) Document() string {
	return strings.Join([]string{r.Title, r.ExperimentType, r.Summary, r.Organism, r.OverallDesign}, " ")
}

// IsEmpty reports whether every text field is blank.
func (r *Record) IsEmpty() bool {
	return strings.TrimSpace(r.Document()) == ""
}

// Normalize trims identifiers and collapses whitespace in every text field.
func (r *Record) Normalize() {
	r.GSE = strings.TrimSpace(r.GSE)
	r.PMID = strings.TrimSpace(r.PMID)
	r.Title = Preprocess(r.Title)
	r.ExperimentType = Preprocess(r.ExperimentType)
	r.Summary = Preprocess(r.Summary)
	r.Organism = Preprocess(r.Organism)
	r.OverallDesign = Preprocess(r.OverallDesign)
}

// Documents returns the document text of every record, in order.
func Documents(records []Record) []string {
	docs := make([]string, len(records))
	for i := range records {
		docs[i] = records[i].Document()
	}
	return docs
}

// Preprocess normalizes text (trim, collapse whitespace).
func Preprocess(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}
