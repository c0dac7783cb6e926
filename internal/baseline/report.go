package baseline

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Report is the outcome of a plan run.
type Report struct {
	RunID          string        `json:"run_id"`
	MissingIndexes []string      `json:"missing_indexes,omitempty"`
	Failures       []StepFailure `json:"failures,omitempty"`
	Runs           []RunResult   `json:"runs"`
	Duration       time.Duration `json:"duration"`
}

// StepFailure records a search step that did not succeed.
type StepFailure struct {
	Step  string `json:"step"`
	Error string `json:"error"`
}

// RunResult holds the metrics scraped for one run, in scrape order.
type RunResult struct {
	Run     string   `json:"run"`
	Metrics []Metric `json:"metrics"`
}

// Value returns the named metric.
func (r RunResult) Value(name string) (float64, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m.Value, true
		}
	}
	return 0, false
}

// Measures returns every metric name of the report in first-seen order.
func (r *Report) Measures() []string {
	seen := make(map[string]bool)
	var names []string
	for _, run := range r.Runs {
		for _, m := range run.Metrics {
			if !seen[m.Name] {
				seen[m.Name] = true
				names = append(names, m.Name)
			}
		}
	}
	return names
}

// WriteTable renders runs as rows and measures as columns.
func (r *Report) WriteTable(w io.Writer) error {
	measures := r.Measures()

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(append([]string{"run"}, measures...)...)

	for _, run := range r.Runs {
		row := []string{run.Run}
		for _, name := range measures {
			if v, ok := run.Value(name); ok {
				row = append(row, strconv.FormatFloat(v, 'f', 4, 64))
			} else {
				row = append(row, "-")
			}
		}
		t.Row(row...)
	}

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}

	if len(r.Failures) > 0 {
		failures := append([]StepFailure(nil), r.Failures...)
		sort.SliceStable(failures, func(i, j int) bool { return failures[i].Step < failures[j].Step })
		fmt.Fprintf(w, "\n%d step(s) failed:\n", len(failures))
		for _, f := range failures {
			fmt.Fprintf(w, "  %s: %s\n", f.Step, f.Error)
		}
	}
	return nil
}
