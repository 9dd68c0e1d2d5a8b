package exporter

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"exportcheck/internal/config"
	"exportcheck/internal/validation"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"stateColor": stateColor,
	"stateName":  formatState,
	"time":       formatTime,
	"inc":        func(i int) int { return i + 1 },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Customer}} {{.ExportKind}} validation</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #bbb; padding: 4px 8px; font-size: 13px; }
th { background: #D9E1F2; }
.log { font-family: monospace; white-space: pre-wrap; }
.success { color: #006100; }
.failure { color: #9C0006; }
.notice { color: #9C5700; }
.outcome-passed { color: #006100; }
.outcome-failed, .outcome-error { color: #9C0006; }
</style>
</head>
<body>
<h1>Export validation</h1>
<p>Customer: <b>{{.Customer}}</b> | Export: <b>{{.ExportKind}}</b> | Environment: <b>{{.Environment}}</b> | Run: {{.RunID}}</p>
<p>Started {{time .StartedAt}}, finished {{time .FinishedAt}}. Outcome: <b class="outcome-{{.Outcome}}">{{.Outcome}}</b></p>
<p>Matches {{.Counts.Match}}, mismatches {{.Counts.Mismatch}}, not compared {{.Counts.NotCompared}}</p>
{{if .Error}}<p class="failure">Error: {{.Error}}</p>{{end}}
{{if .Missing}}<p class="notice">Missing columns:{{range .Missing}} {{.}};{{end}}</p>{{end}}

<h2>Failed cases</h2>
{{if .FailedCases}}<ol>
{{range .FailedCases}}<li><a href="#entry-{{.Index}}">{{.Entry.Message}}</a></li>
{{end}}</ol>{{else}}<p>None</p>{{end}}

<h2>Log</h2>
<div class="log">
{{range $i, $e := .Entries}}<div id="entry-{{$i}}" class="{{$e.Level}}">{{$e.String}}</div>
{{end}}</div>

<h2>Sample</h2>
{{if .Columns}}<table>
<tr><th>#</th>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr><td>{{inc .Index}}</td>{{range .Cells}}<td style="background: {{stateColor .State}}" title="{{stateName .State}}">{{.Value}}</td>{{end}}</tr>
{{end}}</table>{{else}}<p>No rows were sampled.</p>{{end}}
</body>
</html>
`))

type htmlCell struct {
	Value string
	State validation.MatchState
}

type htmlRow struct {
	Index int
	Cells []htmlCell
}

type htmlReport struct {
	*validation.ValidationReport
	Rows []htmlRow
}

// HTMLWriter renders reports as standalone HTML pages
type HTMLWriter struct {
	paths *config.Paths
}

// NewHTMLWriter creates an HTML writer rooted at the reports directory
func NewHTMLWriter(paths *config.Paths) *HTMLWriter {
	return &HTMLWriter{paths: paths}
}

// Render writes the HTML page for r to w
func (h *HTMLWriter) Render(w io.Writer, r *validation.ValidationReport) error {
	view := htmlReport{ValidationReport: r, Rows: make([]htmlRow, 0, len(r.SampleRows))}
	for i, row := range r.SampleRows {
		hr := htmlRow{Index: i, Cells: make([]htmlCell, len(r.Columns))}
		for j := range r.Columns {
			if j < len(row) {
				hr.Cells[j].Value = row[j]
			}
			hr.Cells[j].State = r.Cell(i, j)
		}
		view.Rows = append(view.Rows, hr)
	}
	return reportTemplate.Execute(w, view)
}

// WriteReport writes r to <base>.html and returns the full path
func (h *HTMLWriter) WriteReport(r *validation.ValidationReport, base string) (string, error) {
	var buf bytes.Buffer
	if err := h.Render(&buf, r); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}

	fullPath := h.paths.GetReportPath(base + ".html")
	if err := os.MkdirAll(filepath.Dir(fullPath), config.DirMode); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, buf.Bytes(), config.ReportFileMode); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	slog.Info("Wrote HTML report", slog.String("path", fullPath))
	return fullPath, nil
}
