package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"

	"ioctest/internal/color"
	"ioctest/internal/harness"
	"ioctest/pkg/logging"
)

// Record is the accumulated output of one test.
type Record struct {
	Name     string        `json:"name"`
	Detail   string        `json:"detail,omitempty"`
	Values   []string      `json:"values,omitempty"`
	Failed   bool          `json:"failed"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Options configures a TextReporter.
type Options struct {
	// Out receives the rendered report. Defaults to os.Stdout.
	Out io.Writer
	// Color renders the report with lipgloss styles.
	Color bool
	// FileOutput also persists the report as text and JSON in ReportDir.
	FileOutput bool
	ReportDir  string
	// Now is used for report file names.
	Now func() time.Time
}

// TextReporter accumulates one record per test and renders them when the
// run is flushed.
type TextReporter struct {
	mu      sync.Mutex
	opts    Options
	styles  color.Styles
	records []Record
	files   []string
}

var _ harness.Reporter = (*TextReporter)(nil)

// NewTextReporter creates a reporter with the given options.
func NewTextReporter(opts Options) *TextReporter {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ReportDir == "" {
		opts.ReportDir = "."
	}

	styles := color.Plain()
	if opts.Color {
		styles = color.NewStyles(lipgloss.NewRenderer(opts.Out))
	}
	return &TextReporter{opts: opts, styles: styles}
}

// SetHeader implements harness.Reporter.
func (r *TextReporter) SetHeader(name, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, Record{Name: name, Detail: detail})
}

// LogResult implements harness.Reporter.
func (r *TextReporter) LogResult(value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.currentLocked()
	rec.Values = append(rec.Values, value)
}

// TestHasFailed implements harness.Reporter.
func (r *TextReporter) TestHasFailed(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.currentLocked()
	rec.Failed = true
	rec.Reason = reason
}

// Flush renders the report to Out and, with file output enabled, writes it
// to the report directory.
func (r *TextReporter) Flush(summary harness.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.records {
		if i < len(summary.Results) && summary.Results[i].Name == r.records[i].Name {
			r.records[i].Duration = summary.Results[i].Duration
		}
	}

	var b strings.Builder
	b.WriteString(r.renderRecords(r.styles))
	b.WriteString("\n")
	b.WriteString(r.renderTable(summary, r.opts.Color))
	b.WriteString(r.renderSummary(summary, r.styles))
	if _, err := io.WriteString(r.opts.Out, b.String()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if !r.opts.FileOutput {
		return nil
	}
	return r.saveReport(summary)
}

// Records returns a copy of the accumulated records.
func (r *TextReporter) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Files returns the report files written by the last Flush.
func (r *TextReporter) Files() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.files...)
}

func (r *TextReporter) currentLocked() *Record {
	if len(r.records) == 0 {
		r.records = append(r.records, Record{Name: "unnamed"})
	}
	return &r.records[len(r.records)-1]
}

// renderRecords lists one line per test with its limits, verdict and
// logged values, followed by the failure reason.
func (r *TextReporter) renderRecords(styles color.Styles) string {
	nameWidth, detailWidth := 0, 0
	for _, rec := range r.records {
		nameWidth = max(nameWidth, runewidth.StringWidth(rec.Name))
		detailWidth = max(detailWidth, runewidth.StringWidth(rec.Detail))
	}

	var b strings.Builder
	for _, rec := range r.records {
		status := styles.Pass.Render("PASSED")
		if rec.Failed {
			status = styles.Fail.Render("FAILED")
		}
		line := styles.Header.Render(runewidth.FillRight(rec.Name, nameWidth)) + "  " +
			styles.Detail.Render(runewidth.FillRight(rec.Detail, detailWidth)) + "  " +
			status
		if len(rec.Values) > 0 {
			line += "  " + styles.Value.Render(strings.Join(rec.Values, ", "))
		}
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteString("\n")
		if rec.Failed && rec.Reason != "" {
			b.WriteString("    ")
			b.WriteString(styles.Fail.Render("reason:"))
			b.WriteString(" ")
			b.WriteString(rec.Reason)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (r *TextReporter) renderTable(summary harness.RunSummary, colored bool) string {
	t := table.NewWriter()
	t.SetTitle("IO Controller Production Test")
	t.AppendHeader(table.Row{"#", "Test", "Limits", "Value", "Result", "Duration"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "Value", Align: text.AlignRight},
		{Name: "Duration", Align: text.AlignRight},
	})

	for i, rec := range r.records {
		result := "PASS"
		if rec.Failed {
			result = "FAIL"
		}
		t.AppendRow(table.Row{
			i + 1,
			rec.Name,
			rec.Detail,
			strings.Join(rec.Values, ", "),
			result,
			formatDuration(rec.Duration),
		})
	}

	overall := "PASS"
	if !summary.AllPassed() {
		overall = "FAIL"
	}
	t.AppendFooter(table.Row{"", "TOTAL", "", fmt.Sprintf("%d/%d", summary.Passed, summary.Total), overall, formatDuration(summary.Duration)})

	switch {
	case !colored:
		t.SetStyle(table.StyleLight)
	case summary.AllPassed():
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}
	return t.Render() + "\n"
}

func (r *TextReporter) renderSummary(summary harness.RunSummary, styles color.Styles) string {
	verdict := styles.Pass.Render("RESULT: PASS")
	if !summary.AllPassed() {
		verdict = styles.Fail.Render("RESULT: FAIL")
	}
	return fmt.Sprintf("%d tests: %d passed, %d failed %s\n%s\n",
		summary.Total, summary.Passed, summary.Failed,
		styles.Muted.Render(fmt.Sprintf("(run %s, %s)", summary.RunID, formatDuration(summary.Duration))),
		verdict)
}

// jsonReport is the persisted form of a run.
type jsonReport struct {
	Summary harness.RunSummary `json:"summary"`
	Records []Record           `json:"records"`
}

// saveReport writes the plain text and JSON reports to the report directory.
func (r *TextReporter) saveReport(summary harness.RunSummary) error {
	if err := os.MkdirAll(r.opts.ReportDir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	timestamp := r.opts.Now().Format("20060102-150405")
	base := filepath.Join(r.opts.ReportDir, fmt.Sprintf("ioctest-report-%s", timestamp))

	plain := color.Plain()
	body := r.renderRecords(plain) + "\n" + r.renderTable(summary, false) + r.renderSummary(summary, plain)
	if err := os.WriteFile(base+".txt", []byte(body), 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	jsonData, err := json.MarshalIndent(jsonReport{Summary: summary, Records: r.records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report to JSON: %w", err)
	}
	if err := os.WriteFile(base+".json", jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	r.files = []string{base + ".txt", base + ".json"}
	logging.Info("Reporter", "report saved to %s.{txt,json}", base)
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.String()
	}
	return d.Round(time.Millisecond).String()
}
