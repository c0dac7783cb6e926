package baseline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ricesearch/irtools/internal/bus"
	"github.com/ricesearch/irtools/internal/metrics"
	"github.com/ricesearch/irtools/internal/pkg/errors"
	"github.com/ricesearch/irtools/internal/pkg/logger"
)

// MissingIndexesNotice is printed when an index directory of the plan is absent.
const MissingIndexesNotice = "Required indexes do not exist. Please download first."

const eventSource = "baseline"

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Workers bounds concurrent evaluations. 1 evaluates runs sequentially.
	Workers int

	// Stdout receives banners and search step output.
	Stdout io.Writer
}

// Runner executes plans.
type Runner struct {
	cfg     RunnerConfig
	exec    Executor
	bus     bus.Bus
	metrics *metrics.Metrics
	log     *logger.Logger
}

// NewRunner creates a runner. eventBus and m are optional.
func NewRunner(cfg RunnerConfig, exec Executor, log *logger.Logger, eventBus bus.Bus, m *metrics.Metrics) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Runner{
		cfg:     cfg,
		exec:    exec,
		bus:     eventBus,
		metrics: m,
		log:     log.WithComponent("baseline"),
	}
}

// Run checks the plan's indexes, executes every search section in order and
// then scores every run. Search failures are recorded and skipped; an
// evaluation failure aborts the run.
func (r *Runner) Run(ctx context.Context, plan *Plan) (*Report, error) {
	start := time.Now()

	if err := plan.Validate(); err != nil {
		return nil, err
	}

	report := &Report{RunID: uuid.NewString()}
	ctx = logger.ContextWithRunID(ctx, report.RunID)
	log := r.log.WithContext(ctx)

	for _, dir := range plan.Indexes {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			report.MissingIndexes = append(report.MissingIndexes, dir)
		}
	}
	if len(report.MissingIndexes) > 0 {
		fmt.Fprintln(r.cfg.Stdout, MissingIndexesNotice)
		log.Warn("Missing indexes", "indexes", report.MissingIndexes)
	}

	for _, section := range plan.Sections {
		fmt.Fprintf(r.cfg.Stdout, "\n## Running on %s...\n\n", section.Title)

		for _, step := range section.Steps {
			if err := r.runStep(ctx, report, "search", step, r.cfg.Stdout); err != nil {
				log.Warn("Search step failed", "step", step.Name, "error", err)
				report.Failures = append(report.Failures, StepFailure{Step: step.Name, Error: err.Error()})
			}
		}
	}

	results, err := r.evaluate(ctx, report, plan.Evaluations)
	if err != nil {
		log.Error("Evaluation failed", "error", err)
		return nil, err
	}
	report.Runs = results
	report.Duration = time.Since(start)

	for _, run := range report.Runs {
		for _, m := range run.Metrics {
			if r.metrics != nil {
				if err := r.metrics.RecordBaselineMetric(ctx, run.Run, m.Name, m.Value); err != nil {
					log.Warn("Failed to persist metric", "run", run.Run, "measure", m.Name, "error", err)
				}
			}
			r.publish(ctx, report.RunID, bus.TopicMetricScraped, map[string]any{
				"run":     run.Run,
				"measure": m.Name,
				"value":   m.Value,
			})
		}
	}

	log.Info("Baselines complete",
		"runs", len(report.Runs),
		"failed_steps", len(report.Failures),
		"duration", report.Duration,
	)
	r.publish(ctx, report.RunID, bus.TopicBaselineFinish, report)

	return report, nil
}

// evaluate scores runs with at most cfg.Workers in flight. Results keep
// plan order.
func (r *Runner) evaluate(ctx context.Context, report *Report, evals []Evaluation) ([]RunResult, error) {
	results := make([]RunResult, len(evals))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for i, eval := range evals {
		i, eval := i, eval
		g.Go(func() error {
			result := RunResult{Run: eval.Run}
			for _, step := range eval.Steps {
				var out bytes.Buffer
				if err := r.runStep(gctx, report, "evaluate", step, &out); err != nil {
					return errors.EvaluationError(fmt.Sprintf("evaluating %s: step %q failed", eval.Run, step.Name), err)
				}

				scraped, err := ScrapeOutput(step.Scrape, out.Bytes())
				if err != nil {
					return errors.EvaluationError(fmt.Sprintf("evaluating %s: step %q output", eval.Run, step.Name), err)
				}
				result.Metrics = append(result.Metrics, scraped...)
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) runStep(ctx context.Context, report *Report, kind string, step Step, stdout io.Writer) error {
	start := time.Now()
	r.log.WithContext(ctx).Debug("Running step", "kind", kind, "step", step.Name, "command", step.String())

	err := r.exec.Execute(ctx, step, stdout)

	if r.metrics != nil {
		r.metrics.RecordStep(kind, time.Since(start), err)
	}

	payload := map[string]any{
		"kind":        kind,
		"step":        step.Name,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	r.publish(ctx, report.RunID, bus.TopicStepFinished, payload)

	return err
}

func (r *Runner) publish(ctx context.Context, runID, topic string, payload any) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(ctx, topic, bus.NewEvent(topic, eventSource, runID, payload)); err != nil {
		r.log.WithContext(ctx).Warn("Failed to publish event", "topic", topic, "error", err)
	}
}
