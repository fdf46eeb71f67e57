package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/geocluster/internal/collect"
	"github.com/hyperjump/geocluster/internal/config"
	"github.com/hyperjump/geocluster/internal/metrics"
	"github.com/hyperjump/geocluster/internal/models"
	"github.com/hyperjump/geocluster/internal/pipeline"
)

type fakeCollector struct {
	collection *collect.Collection
	err        error
	got        []string
}

func (f *fakeCollector) Collect(_ context.Context, ids []string) (*collect.Collection, error) {
	f.got = ids
	if f.err != nil {
		return &collect.Collection{}, f.err
	}
	return f.collection, nil
}

type staticPMIDs []string

func (s staticPMIDs) IDs() []string { return s }

func sampleCollection() *collect.Collection {
	return &collect.Collection{
		Records: []models.Record{
			{GSE: "GSE1", PMID: "100", Title: "cancer study", Organism: "Homo sapiens"},
			{GSE: "GSE2", PMID: "100", Title: "cancer study", Organism: "Homo sapiens"},
			{GSE: "GSE3", PMID: "200", Title: "unrelated topic xyz", Organism: "Mus musculus"},
		},
		Links: []models.PMIDLink{
			{PMID: "100", GSE: []string{"GSE1", "GSE2"}},
			{PMID: "200", GSE: []string{"GSE3"}},
			{PMID: "300", GSE: nil},
		},
	}
}

func newTestServer(t *testing.T, c Collector) *Server {
	t.Helper()
	opts := pipeline.DefaultOptions()
	opts.TSNEIterations = 250
	p, err := pipeline.New(opts, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return NewServer(p, c, staticPMIDs{"100", "200"}, &config.ServerConfig{Port: 8080}, zap.NewNop())
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandleIndex_prefillsPMIDs(t *testing.T) {
	srv := newTestServer(t, &fakeCollector{})
	w := do(t, srv.Router(), httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<form") || !strings.Contains(body, "100, 200") {
		t.Errorf("index page missing form or PMIDs:\n%s", body)
	}
}

func TestHandleClusterForm(t *testing.T) {
	fc := &fakeCollector{collection: sampleCollection()}
	srv := newTestServer(t, fc)
	form := url.Values{"pmids": {"100, 200,300"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := do(t, srv.Router(), req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d\n%s", w.Code, w.Body.String())
	}
	if strings.Join(fc.got, ",") != "100,200,300" {
		t.Errorf("collector got %v", fc.got)
	}
	body := w.Body.String()
	for _, sub := range []string{"<svg", "<circle", "GSE1", "GSE3", "PMID to GEO series", "GSE1, GSE2", "none", "3 datasets in 2 clusters"} {
		if !strings.Contains(body, sub) {
			t.Errorf("results page missing %q", sub)
		}
	}
	if got := strings.Count(body, "<circle"); got != 3 {
		t.Errorf("circles = %d, want 3", got)
	}
}

func TestHandleClusterForm_noResults(t *testing.T) {
	srv := newTestServer(t, &fakeCollector{collection: &collect.Collection{
		Links: []models.PMIDLink{{PMID: "1"}},
	}})
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("pmids=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := do(t, srv.Router(), req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, "No results") || strings.Contains(body, "<svg") {
		t.Errorf("expected no-results page:\n%s", body)
	}
}

func TestHandleClusterForm_emptyInput(t *testing.T) {
	srv := newTestServer(t, &fakeCollector{})
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("pmids=+,+"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := do(t, srv.Router(), req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Enter at least one PMID") {
		t.Error("expected validation message")
	}
}

func TestHandleClusterForm_collectorCancelled(t *testing.T) {
	srv := newTestServer(t, &fakeCollector{err: context.DeadlineExceeded})
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("pmids=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := do(t, srv.Router(), req)
	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("status: got %d, want 504", w.Code)
	}
}

func TestHandleCluster_records(t *testing.T) {
	srv := newTestServer(t, nil)
	body, _ := json.Marshal(models.ClusterRequest{Records: sampleCollection().Records})
	w := do(t, srv.Router(), httptest.NewRequest(http.MethodPost, "/api/v1/cluster", bytes.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d\n%s", w.Code, w.Body.String())
	}
	var resp models.ClusterResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Records) != 3 || resp.Clusters != 2 || resp.Fallback {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Records[0].Cluster != resp.Records[1].Cluster || resp.Records[0].Cluster == resp.Records[2].Cluster {
		t.Errorf("clusters = %d %d %d", resp.Records[0].Cluster, resp.Records[1].Cluster, resp.Records[2].Cluster)
	}
	if resp.Records[2].GSE != "GSE3" {
		t.Errorf("record order not preserved: %+v", resp.Records)
	}
}

func TestHandleCluster_pmids(t *testing.T) {
	fc := &fakeCollector{collection: sampleCollection()}
	srv := newTestServer(t, fc)
	w := do(t, srv.Router(), httptest.NewRequest(http.MethodPost, "/api/v1/cluster",
		strings.NewReader(`{"pmids": ["100", "200", "300"]}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var resp models.ClusterResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Links) != 3 || len(resp.Records) != 3 || resp.RunID == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleCluster_badRequests(t *testing.T) {
	srv := newTestServer(t, &fakeCollector{})
	for name, body := range map[string]string{
		"invalid json": `{`,
		"empty":        `{}`,
		"both":         `{"pmids": ["1"], "records": [{"title": "x"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := do(t, srv.Router(), httptest.NewRequest(http.MethodPost, "/api/v1/cluster", strings.NewReader(body)))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", w.Code)
			}
			var out map[string]string
			if err := json.NewDecoder(w.Body).Decode(&out); err != nil || out["error"] == "" {
				t.Errorf("expected JSON error body, got %v (%v)", out, err)
			}
		})
	}
}

func TestHandleCluster_xlsx(t *testing.T) {
	srv := newTestServer(t, nil)
	body, _ := json.Marshal(models.ClusterRequest{Records: sampleCollection().Records})
	w := do(t, srv.Router(), httptest.NewRequest(http.MethodPost, "/api/v1/cluster?format=xlsx", bytes.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") {
		t.Errorf("content disposition = %q", cd)
	}
	f, err := excelize.OpenReader(w.Body)
	if err != nil {
		t.Fatalf("response is not a workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Clusters")
	if err != nil || len(rows) != 4 {
		t.Errorf("cluster rows = %d (%v)", len(rows), err)
	}
}

func TestHandlePMIDs(t *testing.T) {
	srv := newTestServer(t, nil)
	w := do(t, srv.Router(), httptest.NewRequest(http.MethodGet, "/api/v1/pmids", nil))
	var out struct {
		PMIDs     []string `json:"pmids"`
		Formatted string   `json:"formatted"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.PMIDs) != 2 || out.Formatted != "100, 200" {
		t.Errorf("pmids = %+v", out)
	}
}

func TestHandleHealthAndMetrics(t *testing.T) {
	metrics.Register()
	srv := newTestServer(t, nil)
	h := srv.Router()

	w := do(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("health: %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "geocluster_http_requests_total") {
		t.Errorf("metrics endpoint missing http counters: %d", w.Code)
	}
}

func TestScatter(t *testing.T) {
	pts := scatter([]models.ClusteredRecord{
		{Cluster: 0, X: 0, Y: 0},
		{Cluster: 1, X: 1, Y: 1},
	})
	if pts[0].CX != plotPadding || pts[0].CY != plotHeight-plotPadding {
		t.Errorf("first point = %+v", pts[0])
	}
	if pts[1].CX != plotWidth-plotPadding || pts[1].CY != plotPadding {
		t.Errorf("second point = %+v", pts[1])
	}
	if pts[0].Color == pts[1].Color {
		t.Error("different clusters should get different colors")
	}

	flat := scatter([]models.ClusteredRecord{{X: 0, Y: 0}, {X: 0.5, Y: 0}, {X: 1, Y: 0}})
	for _, p := range flat {
		if p.CY != plotHeight/2 {
			t.Errorf("zero-height axis should be centered, got %+v", p)
		}
	}
	if scatter(nil) != nil {
		t.Error("scatter(nil) should be nil")
	}
}
