package models

import "fmt"

// MaxRecordsPerRequest bounds the records accepted by one cluster request.
const MaxRecordsPerRequest = 5000

// ClusterRequest asks for clustering of the series linked to PMIDs, or of records supplied directly.
type ClusterRequest struct {
	PMIDs   []string `json:"pmids,omitempty"`
	Records []Record `json:"records,omitempty"`
}

// Validate ensures exactly one input kind is set and normalizes supplied records.
func (q *ClusterRequest) Validate() error {
	if len(q.PMIDs) == 0 && len(q.Records) == 0 {
		return fmt.Errorf("pmids or records are required")
	}
	if len(q.PMIDs) > 0 && len(q.Records) > 0 {
		return fmt.Errorf("pmids and records are mutually exclusive")
	}
	if len(q.Records) > MaxRecordsPerRequest {
		return fmt.Errorf("too many records: %d (max %d)", len(q.Records), MaxRecordsPerRequest)
	}
	for i := range q.Records {
		q.Records[i].Normalize()
	}
	return nil
}

// PMIDLink lists the GEO series resolved for one PMID.
type PMIDLink struct {
	PMID string   `json:"pmid"`
	GSE  []string `json:"gse"`
}

// ClusteredRecord is a record with its cluster and 2D position.
type ClusteredRecord struct {
	Record
	Cluster int     `json:"cluster"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// CandidateScore is the silhouette score of one candidate cluster count.
type CandidateScore struct {
	K     int     `json:"k"`
	Score float64 `json:"score"`
}

// ClusterResponse is the response for a cluster request. Records keep the input order.
type ClusterResponse struct {
	RunID          string            `json:"run_id"`
	Clusters       int               `json:"clusters"`
	Fallback       bool              `json:"fallback"`
	FallbackReason string            `json:"fallback_reason,omitempty"`
	Records        []ClusteredRecord `json:"records"`
	Links          []PMIDLink        `json:"links,omitempty"`
	Scores         []CandidateScore  `json:"scores,omitempty"`
	QueryTime      int64             `json:"query_time_ms"`
}

// ClusterSizes returns the number of records per cluster id, indexed by id.
func (r *ClusterResponse) ClusterSizes() []int {
	maxID := -1
	for _, rec := range r.Records {
		if rec.Cluster > maxID {
			maxID = rec.Cluster
		}
	}
	sizes := make([]int, maxID+1)
	for _, rec := range r.Records {
		sizes[rec.Cluster]++
	}
	return sizes
}
