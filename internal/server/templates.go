package server

import (
	"bytes"
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

const layoutTemplate = `{{define "header"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>GEO dataset clustering</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 980px; color: #18181b; }
textarea { width: 100%; font-family: monospace; }
table { border-collapse: collapse; width: 100%; margin: 1rem 0; font-size: 0.9rem; }
th, td { border-bottom: 1px solid #e4e4e7; padding: 0.35rem 0.5rem; text-align: left; vertical-align: top; }
.error { color: #b91c1c; }
.notice { background: #fef3c7; padding: 0.5rem 0.75rem; }
.swatch { display: inline-block; width: 0.8rem; height: 0.8rem; border-radius: 50%; margin-right: 0.3rem; }
svg { border: 1px solid #e4e4e7; background: #fafafa; }
</style>
</head>
<body>{{end}}
{{define "footer"}}</body>
</html>{{end}}`

const indexTemplate = `{{define "index"}}{{template "header"}}
<h1>Clusterization of GEO datasets</h1>
<form method="post" action="/">
<label for="pmids">PMIDs (comma separated)</label>
<textarea id="pmids" name="pmids" rows="6">{{.PMIDs}}</textarea>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<button type="submit">Cluster</button>
</form>
{{template "footer"}}{{end}}`

const resultsTemplate = `{{define "results"}}{{template "header"}}
<h1>Clusterization of GEO datasets</h1>
<p><a href="/">New search</a></p>
{{with .Response}}
{{if .Records}}
<p>{{len .Records}} datasets in {{.Clusters}} clusters ({{.QueryTime}} ms, run {{.RunID}})</p>
{{if .Fallback}}<p class="notice">Clustering failed, all datasets are shown as one group: {{.FallbackReason}}</p>{{end}}
{{end}}
{{end}}
{{if .Points}}
<svg viewBox="0 0 {{.Width}} {{.Height}}" width="{{.Width}}" height="{{.Height}}" role="img" aria-label="cluster scatter plot">
{{range .Points}}<circle cx="{{printf "%.2f" .CX}}" cy="{{printf "%.2f" .CY}}" r="6" fill="{{.Color}}" fill-opacity="0.85"><title>{{.Label}}</title></circle>
{{end}}</svg>
<p>{{range .Legend}}<span><span class="swatch" style="background: {{.Color | css}}"></span>Cluster {{.Cluster}} ({{.Size}})</span> {{end}}</p>
{{else}}
<p>No results.</p>
{{end}}
{{if .Links}}
<h2>PMID to GEO series</h2>
<table>
<tr><th>PMID</th><th>GSE</th></tr>
{{range .Links}}<tr><td>{{.PMID}}</td><td>{{.GSE}}</td></tr>
{{end}}</table>
{{end}}
{{with .Response}}{{if .Records}}
<h2>Datasets</h2>
<table>
<tr><th>GSE</th><th>PMID</th><th>Cluster</th><th>Title</th><th>Experiment type</th><th>Organism</th></tr>
{{range .Records}}<tr><td><a href="https://www.ncbi.nlm.nih.gov/geo/query/acc.cgi?acc={{.GSE}}">{{.GSE}}</a></td><td>{{.PMID}}</td><td>{{.Cluster}}</td><td>{{.Title}}</td><td>{{.ExperimentType}}</td><td>{{.Organism}}</td></tr>
{{end}}</table>
{{end}}{{end}}
{{template "footer"}}{{end}}`

var pages = template.Must(template.New("pages").Funcs(template.FuncMap{
	"css": func(s string) template.CSS { return template.CSS(s) },
}).Parse(layoutTemplate + indexTemplate + resultsTemplate))

type indexView struct {
	PMIDs string
	Error string
}

func (s *Server) renderIndex(w http.ResponseWriter, status int, pmids, errMsg string) {
	s.render(w, status, "index", indexView{PMIDs: pmids, Error: errMsg})
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("template render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
