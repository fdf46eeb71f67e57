package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/geocluster/internal/export"
	"github.com/hyperjump/geocluster/internal/models"
	"github.com/hyperjump/geocluster/internal/pmids"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxRequestBody bounds JSON request bodies.
const maxRequestBody = 16 << 20

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderIndex(w, http.StatusOK, s.suggestedPMIDs(), "")
}

func (s *Server) handleClusterForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderIndex(w, http.StatusBadRequest, "", "invalid form")
		return
	}
	input := r.PostFormValue("pmids")
	ids := pmids.Parse(input)
	if len(ids) == 0 {
		s.renderIndex(w, http.StatusBadRequest, input, "Enter at least one PMID.")
		return
	}
	s.logger.Debug("cluster form request", zap.Strings("pmids", ids))
	resp, err := s.clusterPMIDs(r.Context(), ids)
	if err != nil {
		s.logger.Error("cluster form request failed", zap.Error(err))
		s.renderIndex(w, http.StatusGatewayTimeout, input, "Request cancelled before all PMIDs were resolved.")
		return
	}
	s.render(w, http.StatusOK, "results", newResultsView(resp))
}

func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	var req models.ClusterRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var resp *models.ClusterResponse
	if len(req.PMIDs) > 0 {
		s.logger.Debug("cluster request", zap.Strings("pmids", req.PMIDs))
		var err error
		resp, err = s.clusterPMIDs(r.Context(), req.PMIDs)
		if err != nil {
			s.logger.Error("cluster request failed", zap.Error(err))
			s.respondError(w, http.StatusGatewayTimeout, err.Error())
			return
		}
	} else {
		s.logger.Debug("cluster request", zap.Int("records", len(req.Records)))
		resp = s.cluster(req.Records, nil)
	}

	if r.URL.Query().Get("format") == "xlsx" {
		s.respondXLSX(w, resp)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePMIDs(w http.ResponseWriter, r *http.Request) {
	ids := []string{}
	if s.pmids != nil {
		ids = append(ids, s.pmids.IDs()...)
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"pmids":     ids,
		"formatted": pmids.Format(ids),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// clusterPMIDs collects the records linked to ids and clusters them.
func (s *Server) clusterPMIDs(ctx context.Context, ids []string) (*models.ClusterResponse, error) {
	if s.collector == nil {
		return nil, errors.New("PMID lookup is not configured")
	}
	col, err := s.collector.Collect(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	return s.cluster(col.Records, col.Links), nil
}

func (s *Server) cluster(records []models.Record, links []models.PMIDLink) *models.ClusterResponse {
	res := s.pipeline.RunRecords(records)
	return res.Response(records, links)
}

func (s *Server) suggestedPMIDs() string {
	if s.pmids == nil {
		return ""
	}
	return pmids.Format(s.pmids.IDs())
}

func (s *Server) respondXLSX(w http.ResponseWriter, resp *models.ClusterResponse) {
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, resp); err != nil {
		s.logger.Error("xlsx export failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"geocluster-%s.xlsx\"", resp.RunID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
