package baseline

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ricesearch/irtools/internal/config"
	"github.com/ricesearch/irtools/internal/pkg/errors"
)

// Plan describes a full baseline session.
type Plan struct {
	// Indexes must exist before searching; missing ones only produce a notice.
	Indexes     []string     `yaml:"indexes"`
	Sections    []Section    `yaml:"sections"`
	Evaluations []Evaluation `yaml:"evaluations"`
}

// Section groups search steps under a printed header.
type Section struct {
	Title string `yaml:"title"`
	Steps []Step `yaml:"steps"`
}

// Evaluation scores one run file.
type Evaluation struct {
	Run   string `yaml:"run"`
	Steps []Step `yaml:"steps"`
}

// LoadPlan reads a YAML plan file.
func LoadPlan(file string) (*Plan, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.IOError("reading plan", file, err)
	}

	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "decoding plan", err).WithDetail("path", file)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks every step resolves and scrape modes are known.
func (p *Plan) Validate() error {
	var errs []string

	for _, s := range p.Sections {
		for _, step := range s.Steps {
			if _, _, err := step.Resolve(); err != nil {
				errs = append(errs, err.Error())
			}
		}
	}

	seen := make(map[string]bool)
	for _, e := range p.Evaluations {
		if e.Run == "" {
			errs = append(errs, "evaluation without run name")
		}
		if seen[e.Run] {
			errs = append(errs, fmt.Sprintf("duplicate evaluation for run %q", e.Run))
		}
		seen[e.Run] = true

		for _, step := range e.Steps {
			if _, _, err := step.Resolve(); err != nil {
				errs = append(errs, err.Error())
			}
			switch step.Scrape {
			case ScrapeNone, ScrapeFirst, ScrapeAll:
			default:
				errs = append(errs, fmt.Sprintf("step %q: unknown scrape mode %q", step.Name, step.Scrape))
			}
		}
	}

	if len(errs) > 0 {
		return errors.ValidationError("invalid plan:\n  - " + strings.Join(errs, "\n  - "))
	}
	return nil
}

// Marshal renders the plan as YAML.
func (p *Plan) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

// index describes one of the CORD-19 indexes searched by the default plan.
type index struct {
	name  string
	title string
	extra []string
	hits  int
}

var defaultIndexes = []index{
	{name: "abstract", title: "abstract index", hits: 10000},
	{name: "full-text", title: "full-text index", hits: 10000},
	{name: "paragraph", title: "paragraph index", extra: []string{"-strip_segment_id"}, hits: 50000},
}

// DefaultPlan builds the TREC-COVID round 4 BM25 baselines: each index is
// searched with the base and UDel topics, and every run is scored with
// nDCG@10 and judged@{cutoffs}. With builtinEval the evaluation steps use
// the in-process tools instead of the external binaries.
func DefaultPlan(cfg config.BaselineConfig, builtinEval bool) *Plan {
	p := &Plan{}

	topics := []struct {
		suffix string
		file   string
	}{
		{"qq", cfg.BaseTopics},
		{"qdel", cfg.UDelTopics},
	}

	for _, idx := range defaultIndexes {
		indexDir := path.Join(cfg.IndexesDir, fmt.Sprintf("lucene-index-cord19-%s-%s", idx.name, cfg.IndexDate))
		p.Indexes = append(p.Indexes, indexDir)

		prefix := "anserini.covid-r4." + idx.name
		section := Section{Title: idx.title}

		for _, t := range topics {
			run := fmt.Sprintf("%s.%s.bm25.txt", prefix, t.suffix)

			args := []string{
				"-index", indexDir,
				"-topicreader", "Covid",
				"-topics", t.file,
				"-topicfield", "query+question",
				"-removedups",
			}
			args = append(args, idx.extra...)
			args = append(args,
				"-bm25",
				"-hits", strconv.Itoa(idx.hits),
				"-output", path.Join(cfg.RunsDir, run),
				"-runtag", run,
			)

			section.Steps = append(section.Steps, Step{
				Name:    "search " + run,
				Program: cfg.SearchBin,
				Args:    args,
			})
			p.Evaluations = append(p.Evaluations, evaluationFor(cfg, run, path.Join(cfg.RunsDir, run), builtinEval))
		}

		p.Sections = append(p.Sections, section)
	}

	return p
}

// EvaluationPlan builds a plan that only scores existing run files.
func EvaluationPlan(cfg config.BaselineConfig, runFiles []string, builtinEval bool) *Plan {
	p := &Plan{}
	for _, file := range runFiles {
		p.Evaluations = append(p.Evaluations, evaluationFor(cfg, path.Base(file), file, builtinEval))
	}
	return p
}

func evaluationFor(cfg config.BaselineConfig, run, runPath string, builtinEval bool) Evaluation {
	trecEval := Step{
		Name:    "ndcg " + run,
		Program: cfg.TrecEvalBin,
		Args:    []string{"-c", "-m", "ndcg_cut.10", cfg.Qrels, runPath},
		Scrape:  ScrapeFirst,
	}

	judgedArgs := []string{"--qrels", cfg.Qrels, "--cutoffs"}
	for _, k := range cfg.JudgedCutoff {
		judgedArgs = append(judgedArgs, strconv.Itoa(k))
	}
	judgedArgs = append(judgedArgs, "--run", runPath)

	judged := Step{
		Name:    "judged " + run,
		Program: "python",
		Args:    append([]string{cfg.JudgedTool}, judgedArgs...),
		Scrape:  ScrapeFirst,
	}

	if builtinEval {
		trecEval.Program = BuiltinPrefix + "trec_eval"
		judged.Program = BuiltinPrefix + "measure_judged"
		judged.Args = judgedArgs
	}

	return Evaluation{Run: run, Steps: []Step{trecEval, judged}}
}
