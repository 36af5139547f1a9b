package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/khanglvm/quest-eval/internal/report"
)

type reportOptions struct {
	kind    string
	quest   string
	format  string
	refresh bool
	output  string
}

// NewReportCmd creates the 'report' command for rendering aggregate reports.
func NewReportCmd(app *App) *cobra.Command {
	var opts reportOptions

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render an aggregate evaluation report",
		Long: `Aggregate the evaluation records into a report and render it.

Kinds:
  • summary   pass/fail/needs-review/unevaluated rollups per quest and category
  • detailed  rollups plus every example
  • failures  rollups plus FAIL and NEEDS_REVIEW examples

Reports are cached for cache.ttl_seconds; --refresh forces a recompute.
The report is written to report.output_dir unless --output is given
("-" writes to stdout).`,
		Example: `  # HTML summary of everything
  quest-eval report

  # Failures in one quest as Markdown on stdout
  quest-eval report --kind failures --quest basics --format markdown --output -

  # Fresh detailed JSON report
  quest-eval report --kind detailed --format json --refresh`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), app, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.kind, "kind", "k", string(report.KindSummary), "Report kind: summary, detailed or failures")
	cmd.Flags().StringVar(&opts.quest, "quest", "", "Restrict the report to one quest")
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(report.FormatHTML), "Output format: html, markdown or json")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "Ignore the cache and recompute")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output path, or - for stdout")

	return cmd
}

func runReport(ctx context.Context, app *App, opts reportOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	kind, err := report.ParseKind(opts.kind)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	db := app.Storage()
	defer db.Close()

	svc, err := app.ReportService(db, nil)
	if err != nil {
		return err
	}

	rep, err := svc.Get(ctx, kind, opts.quest, opts.refresh)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	if opts.output == "-" {
		return report.Render(app.Out, rep, format)
	}

	path := opts.output
	if path == "" {
		path = defaultReportPath(app.Config().Report.OutputDir, kind, opts.quest, format)
	}
	if err := writeReportFile(path, rep, format); err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "%s %s report written to %s\n", green("✓"), kind, path)
	fmt.Fprintf(app.Out, "  %s\n", formatCounts(rep.Global))
	return nil
}

// defaultReportPath names a report <dir>/<kind>[-<quest>].<ext>.
func defaultReportPath(dir string, kind report.Kind, quest string, format report.Format) string {
	name := string(kind)
	if quest != "" {
		name += "-" + quest
	}
	return filepath.Join(dir, name+format.Extension())
}

func writeReportFile(path string, rep *report.Report, format report.Format) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := renderTo(f, rep, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func renderTo(w io.Writer, rep *report.Report, format report.Format) error {
	if err := report.Render(w, rep, format); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}
