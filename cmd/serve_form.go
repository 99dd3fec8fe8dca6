package main

import (
	"bytes"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/agri-cli/internal/frame"
	"github.com/sells-group/agri-cli/internal/inference"
	"github.com/sells-group/agri-cli/internal/model"
)

// formPreviewRows is the number of rows shown on the preview page.
const formPreviewRows = 10

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Agriculture Suitability and Yield Prediction</title>
<style>
body { font-family: sans-serif; margin: 2rem; display: flex; gap: 2rem; }
aside { min-width: 14rem; }
table { border-collapse: collapse; margin-bottom: 1rem; }
th, td { border: 1px solid #ccc; padding: 0.25rem 0.5rem; font-size: 0.9rem; }
.error { color: #a00; }
</style>
</head>
<body>
<aside>
<h3>Detected features</h3>
{{if .Metadata}}
<h4>Numeric</h4>
<ul>{{range .Metadata.NumericFeatures}}<li>{{.}}</li>{{end}}</ul>
<h4>Categorical</h4>
<ul>{{range .Metadata.CategoricalFeatures}}<li>{{.}}</li>{{end}}</ul>
{{else}}
<p class="error">Model artifacts are not loaded.</p>
{{end}}
</aside>
<main>
<h1>Agriculture Suitability and Yield Prediction</h1>
{{if .ArtifactError}}<p class="error">{{.ArtifactError}}</p>{{end}}
<form method="post" action="/predict" enctype="multipart/form-data">
<input type="file" name="file" accept=".csv,.xlsx" required>
<button type="submit" name="action" value="preview">Preview</button>
<button type="submit" name="action" value="download">Download predictions.csv</button>
</form>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{with .Result}}
<h2>Summary</h2>
<p>{{.Summary.Rows}} rows, {{.Summary.Suitable}} predicted suitable, mean predicted yield {{printf "%.2f" .Summary.MeanYield}} tons.</p>
<h2>Input preview</h2>
{{template "table" .Input}}
<h2>Predictions</h2>
{{template "table" .Output}}
{{end}}
</main>
</body>
</html>
{{define "table"}}<table>
<tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>{{end}}
`))

// indexPage is the data rendered by indexTemplate.
type indexPage struct {
	Metadata      *inference.Metadata
	ArtifactError string
	Error         string
	Result        *formResult
}

// formResult is a prediction trimmed for display.
type formResult struct {
	Summary model.PredictionSummary
	Input   *frame.Frame
	Output  *frame.Frame
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderIndex(w, r, http.StatusOK, indexPage{})
}

// handlePredictForm serves the upload form submission. The download action
// returns predictions.csv; the preview action renders the first rows.
func (s *server) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	res, err := s.predictUpload(w, r, sourceForm)
	if err != nil {
		s.renderIndex(w, r, statusFor(err), indexPage{Error: err.Error()})
		return
	}

	if r.FormValue("action") == "preview" {
		s.renderIndex(w, r, http.StatusOK, indexPage{Result: &formResult{
			Summary: res.Summary,
			Input:   res.Input.Head(formPreviewRows),
			Output:  res.Output.Head(formPreviewRows),
		}})
		return
	}

	var buf bytes.Buffer
	if err := res.Output.WriteCSV(&buf); err != nil {
		zap.L().Error("encode predictions", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="predictions.csv"`)
	if res.RunID != "" {
		w.Header().Set("X-Run-Id", res.RunID)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// renderIndex fills in the artifact state and renders the page.
func (s *server) renderIndex(w http.ResponseWriter, r *http.Request, status int, page indexPage) {
	arts, err := s.loader.Load(r.Context())
	if err != nil {
		page.ArtifactError = err.Error()
	} else {
		meta := arts.Metadata
		page.Metadata = &meta
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, page); err != nil {
		zap.L().Error("render index", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
