package pipeline

import "github.com/hyperjump/geocluster/internal/models"

// Response pairs records with the run's assignments. records must be the input of the run.
func (r *Result) Response(records []models.Record, links []models.PMIDLink) *models.ClusterResponse {
	resp := &models.ClusterResponse{
		RunID:          r.RunID,
		Clusters:       r.K,
		Fallback:       r.Fallback,
		FallbackReason: r.FallbackReason,
		Records:        make([]models.ClusteredRecord, len(r.Points)),
		Links:          links,
		QueryTime:      r.Duration.Milliseconds(),
	}
	for i, p := range r.Points {
		resp.Records[i] = models.ClusteredRecord{Record: records[i], Cluster: p.Cluster, X: p.X, Y: p.Y}
	}
	for _, s := range r.Scores {
		resp.Scores = append(resp.Scores, models.CandidateScore{K: s.K, Score: s.Score})
	}
	return resp
}
