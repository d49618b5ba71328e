// Package report renders a workflow run summary for humans and
// machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"

	"github.com/FranksOps/outreach/internal/workflow"
)

// WriteJSON writes the summary as indented JSON.
func WriteJSON(w io.Writer, s *workflow.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

const textTmpl = `Outreach Run Summary
--------------------
Product:          {{.Product}}
Duration:         {{.Duration}}
URLs found:       {{.URLsFound}}
Pages scraped:    {{.PagesScraped}}
Pages failed:     {{.PagesFailed}}
Users extracted:  {{.UsersExtracted}}
`

// WriteText writes a human-readable summary.
func WriteText(w io.Writer, s *workflow.Summary) error {
	t, err := template.New("text").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse summary template: %w", err)
	}
	if err := t.Execute(w, s); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	return nil
}

const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Outreach Run Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
</style>
</head>
<body>
  <h1>Outreach Run Report: {{.Product}}</h1>
  <p><strong>Duration:</strong> {{.Duration}}</p>
  <div class="stat-card">
    <div>URLs Found</div>
    <div class="stat-val">{{.URLsFound}}</div>
  </div>
  <div class="stat-card">
    <div>Pages Scraped</div>
    <div class="stat-val">{{.PagesScraped}}</div>
  </div>
  <div class="stat-card">
    <div>Pages Failed</div>
    <div class="stat-val" style="color: {{if gt .PagesFailed 0}}red{{else}}green{{end}};">{{.PagesFailed}}</div>
  </div>
  <div class="stat-card">
    <div>Users Extracted</div>
    <div class="stat-val">{{.UsersExtracted}}</div>
  </div>
</body>
</html>
`

// WriteHTML writes a single-page HTML report.
func WriteHTML(w io.Writer, s *workflow.Summary) error {
	t, err := template.New("html").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}
	if err := t.Execute(w, s); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
