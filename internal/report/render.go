package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"
)

// Format is an output encoding for a report.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat validates a format name. "" and "md" are accepted.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown report format %q (expected html, markdown or json)", s)
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatHTML:
		return ".html"
	default:
		return ".json"
	}
}

// ContentType returns the HTTP content type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/json; charset=utf-8"
	}
}

// Render writes rep to w in format.
func Render(w io.Writer, rep *Report, format Format) error {
	switch format {
	case FormatJSON:
		return RenderJSON(w, rep)
	case FormatMarkdown:
		return RenderMarkdown(w, rep)
	case FormatHTML:
		return RenderHTML(w, rep)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// RenderJSON writes rep as indented JSON.
func RenderJSON(w io.Writer, rep *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// RenderMarkdown writes rep as a Markdown document.
func RenderMarkdown(w io.Writer, rep *Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title(rep))
	fmt.Fprintf(&b, "Generated %s\n\n", rep.GeneratedAt.UTC().Format("2006-01-02 15:04:05 MST"))

	b.WriteString("## Overview\n\n")
	writeCountsTable(&b, "Scope", []row{{rep.scopeName(), rep.Global}})

	for _, q := range rep.Quests {
		fmt.Fprintf(&b, "## Quest: %s\n\n", q.Name)
		rows := []row{{"(all)", q.Counts}}
		for _, c := range q.Categories {
			rows = append(rows, row{c.Name, c.Counts})
		}
		writeCountsTable(&b, "Category", rows)
	}

	if rep.Kind != KindSummary {
		heading := "Examples"
		if rep.Kind == KindFailures {
			heading = "Failures and examples needing review"
		}
		fmt.Fprintf(&b, "## %s\n\n", heading)

		if len(rep.Examples) == 0 {
			b.WriteString("_None._\n\n")
		}
		for _, e := range rep.Examples {
			fmt.Fprintf(&b, "### %s\n\n", e.Key())
			fmt.Fprintf(&b, "- Verdict: **%s**", e.Verdict)
			if e.Score > 0 {
				fmt.Fprintf(&b, " (score %d/10)", e.Score)
			}
			b.WriteString("\n")
			writeBullet(&b, "Purpose", e.Purpose)
			writeBullet(&b, "Patterns", e.PatternSummary)
			writeBullet(&b, "Issues", e.Issues)
			writeBullet(&b, "Recommendation", e.Recommendation)
			if e.LLMGrade != "" || e.LLMScore > 0 {
				fmt.Fprintf(&b, "- LLM grade: %s", orDash(e.LLMGrade))
				if e.LLMScore > 0 {
					fmt.Fprintf(&b, " (score %d)", e.LLMScore)
				}
				b.WriteString("\n")
			}
			writeBullet(&b, "LLM summary", e.LLMSummary)
			writeBullet(&b, "LLM error", e.LLMError)
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

type row struct {
	name   string
	counts Counts
}

func writeCountsTable(b *strings.Builder, label string, rows []row) {
	fmt.Fprintf(b, "| %s | Total | Pass | Fail | Needs review | Unevaluated | Pass rate |\n", label)
	b.WriteString("|---|---:|---:|---:|---:|---:|---:|\n")
	for _, r := range rows {
		c := r.counts
		fmt.Fprintf(b, "| %s | %d | %d | %d | %d | %d | %.1f%% |\n",
			r.name, c.Total, c.Pass, c.Fail, c.NeedsReview, c.Unevaluated, c.PassRate()*100)
	}
	b.WriteString("\n")
}

func writeBullet(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, value)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func title(rep *Report) string {
	kind := string(rep.Kind)
	if kind == "" {
		kind = string(KindSummary)
	}
	return fmt.Sprintf("Evaluation report (%s): %s", kind, rep.scopeName())
}

func (r *Report) scopeName() string {
	if r.Quest == "" {
		return "all quests"
	}
	return r.Quest
}

var htmlReport = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct":   func(c Counts) string { return fmt.Sprintf("%.1f%%", c.PassRate()*100) },
	"lower": strings.ToLower,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 1.5em; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: right; }
th:first-child, td:first-child { text-align: left; }
.pass { color: #1a7f37; } .fail { color: #cf222e; } .needs_review { color: #9a6700; } .unevaluated { color: #57606a; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>Generated {{.Report.GeneratedAt.UTC.Format "2006-01-02 15:04:05 MST"}}</p>
<table>
<tr><th>Quest</th><th>Total</th><th>Pass</th><th>Fail</th><th>Needs review</th><th>Unevaluated</th><th>Pass rate</th></tr>
<tr><td><strong>{{.Scope}}</strong></td><td>{{.Report.Global.Total}}</td><td>{{.Report.Global.Pass}}</td><td>{{.Report.Global.Fail}}</td><td>{{.Report.Global.NeedsReview}}</td><td>{{.Report.Global.Unevaluated}}</td><td>{{pct .Report.Global}}</td></tr>
{{- range .Report.Quests}}
<tr><td>{{.Name}}</td><td>{{.Total}}</td><td>{{.Pass}}</td><td>{{.Fail}}</td><td>{{.NeedsReview}}</td><td>{{.Unevaluated}}</td><td>{{pct .Counts}}</td></tr>
{{- range .Categories}}
<tr><td>&nbsp;&nbsp;{{.Name}}</td><td>{{.Total}}</td><td>{{.Pass}}</td><td>{{.Fail}}</td><td>{{.NeedsReview}}</td><td>{{.Unevaluated}}</td><td>{{pct .Counts}}</td></tr>
{{- end}}
{{- end}}
</table>
{{- if .ShowExamples}}
<h2>Examples</h2>
{{- if not .Report.Examples}}
<p>None.</p>
{{- else}}
<table>
<tr><th>Example</th><th>Verdict</th><th>Score</th><th>Issues</th><th>Patterns</th><th>LLM grade</th><th>Recommendation</th></tr>
{{- range .Report.Examples}}
<tr><td>{{.Key}}</td><td class="{{lower .Verdict}}">{{.Verdict}}</td><td>{{if .Score}}{{.Score}}{{end}}</td><td>{{.Issues}}</td><td>{{.PatternSummary}}</td><td>{{if .LLMGrade}}{{.LLMGrade}}{{else if .LLMError}}<em>{{.LLMError}}</em>{{end}}</td><td>{{.Recommendation}}</td></tr>
{{- end}}
</table>
{{- end}}
{{- end}}
</body>
</html>
`))

// RenderHTML writes rep as a standalone HTML page.
func RenderHTML(w io.Writer, rep *Report) error {
	data := struct {
		Title        string
		Scope        string
		Report       *Report
		ShowExamples bool
	}{
		Title:        title(rep),
		Scope:        rep.scopeName(),
		Report:       rep,
		ShowExamples: rep.Kind != KindSummary && rep.Kind != "",
	}
	if err := htmlReport.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render html report: %w", err)
	}
	return nil
}
