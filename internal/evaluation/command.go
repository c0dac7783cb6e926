package evaluation

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/ricesearch/irtools/internal/pkg/errors"
)

// Command is an in-process replacement for an external evaluation tool.
// It receives the tool's argument list and writes the tool's report to stdout.
type Command func(ctx context.Context, args []string, stdout io.Writer) error

// Builtins lists the commands reachable through the "builtin:" program prefix.
func Builtins() map[string]Command {
	return map[string]Command{
		"trec_eval":      TrecEval,
		"measure_judged": MeasureJudged,
	}
}

// TrecEval accepts the trec_eval argument subset
// "[-c] [-q] -m measure [-m measure ...] <qrels> <run>".
func TrecEval(_ context.Context, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("trec_eval", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	complete := fs.BoolP("complete", "c", false, "average over all topics in qrels")
	perTopic := fs.BoolP("query", "q", false, "print per-topic values")
	measureArgs := fs.StringArrayP("measure", "m", nil, "measure to compute")

	if err := fs.Parse(args); err != nil {
		return errors.ValidationError(fmt.Sprintf("trec_eval: %v", err))
	}
	if fs.NArg() != 2 {
		return errors.ValidationError("trec_eval: usage: trec_eval [-c] [-q] -m measure <qrels> <run>")
	}
	if len(*measureArgs) == 0 {
		return errors.ValidationError("trec_eval: at least one -m measure is required")
	}

	var measures []Measure
	for _, arg := range *measureArgs {
		ms, err := ParseMeasures(arg)
		if err != nil {
			return errors.ValidationError(fmt.Sprintf("trec_eval: %v", err))
		}
		measures = append(measures, ms...)
	}

	selection := TopicsJudgedInRun
	if *complete {
		selection = TopicsAllQrels
	}

	summary, err := evaluateFiles(fs.Arg(0), fs.Arg(1), measures, selection)
	if err != nil {
		return err
	}
	return summary.Write(stdout, *perTopic)
}

// MeasureJudged reports the fraction of judged documents in the top k of each
// topic: "--qrels <file> --run <file> --cutoffs 10 100 1000". Bare numeric
// arguments after --cutoffs are taken as further cutoffs.
func MeasureJudged(_ context.Context, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("measure_judged", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	qrelsPath := fs.String("qrels", "", "qrels file")
	runPath := fs.String("run", "", "run file")
	cutoffs := fs.IntSlice("cutoffs", []int{10}, "rank cutoffs")

	if err := fs.Parse(args); err != nil {
		return errors.ValidationError(fmt.Sprintf("measure_judged: %v", err))
	}
	if *qrelsPath == "" || *runPath == "" {
		return errors.ValidationError("measure_judged: --qrels and --run are required")
	}

	ks := append([]int(nil), *cutoffs...)
	for _, arg := range fs.Args() {
		k, err := strconv.Atoi(arg)
		if err != nil {
			return errors.ValidationError(fmt.Sprintf("measure_judged: unexpected argument %q", arg))
		}
		ks = append(ks, k)
	}

	measures := make([]Measure, 0, len(ks))
	for _, k := range ks {
		if k < 1 {
			return errors.ValidationError(fmt.Sprintf("measure_judged: invalid cutoff %d", k))
		}
		measures = append(measures, Measure{Kind: MeasureJudgedKind, Cutoff: k})
	}

	summary, err := evaluateFiles(*qrelsPath, *runPath, measures, TopicsInRun)
	if err != nil {
		return err
	}
	return summary.Write(stdout, false)
}

func evaluateFiles(qrelsPath, runPath string, measures []Measure, selection TopicSelection) (*Summary, error) {
	qrels, err := LoadQrels(qrelsPath)
	if err != nil {
		return nil, err
	}
	run, err := LoadRun(runPath)
	if err != nil {
		return nil, err
	}
	return NewEvaluator(qrels).Evaluate(run, measures, selection), nil
}
