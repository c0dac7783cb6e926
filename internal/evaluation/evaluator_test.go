package evaluation

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ricesearch/irtools/internal/pkg/errors"
)

const testQrels = `1 0 d1 1
1 0 d2 0
1 0 d3 2
2 0 d9 1

3 0 d5 1
`

const testRun = `1 Q0 d1 1 3.0 bm25
1 Q0 d4 2 2.0 bm25
1 Q0 d3 3 1.0 bm25
2 Q0 d8 1 1.0 bm25
2 Q0 d9 2 0.5 bm25
4 Q0 d1 1 1.0 bm25
`

func mustParse(t *testing.T) (Qrels, *Run) {
	t.Helper()
	qrels, err := ReadQrels(strings.NewReader(testQrels))
	if err != nil {
		t.Fatalf("ReadQrels() error = %v", err)
	}
	run, err := ReadRun(strings.NewReader(testRun))
	if err != nil {
		t.Fatalf("ReadRun() error = %v", err)
	}
	return qrels, run
}

func TestReadRun_OrdersByScoreThenDocID(t *testing.T) {
	run, err := ReadRun(strings.NewReader("1 Q0 a 1 1.0 x\n1 Q0 c 2 2.0 x\n1 Q0 b 3 1.0 x\n"))
	if err != nil {
		t.Fatalf("ReadRun() error = %v", err)
	}

	var got []string
	for _, d := range run.Topics["1"] {
		got = append(got, d.DocID)
	}
	if diff := cmp.Diff([]string{"c", "b", "a"}, got); diff != "" {
		t.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}
	if run.Tag != "x" {
		t.Errorf("Tag = %q, want x", run.Tag)
	}
}

func TestReadQrels_Malformed(t *testing.T) {
	_, err := ReadQrels(strings.NewReader("1 0 d1\n"))
	if !errors.IsParse(err) {
		t.Errorf("ReadQrels() error = %v, want PARSE_ERROR", err)
	}

	_, err = ReadQrels(strings.NewReader("1 0 d1 high\n"))
	if !errors.IsParse(err) {
		t.Errorf("ReadQrels() error = %v, want PARSE_ERROR", err)
	}
}

func TestReadRun_Malformed(t *testing.T) {
	_, err := ReadRun(strings.NewReader("1 Q0 d1 1 notascore tag\n"))
	if !errors.IsParse(err) {
		t.Errorf("ReadRun() error = %v, want PARSE_ERROR", err)
	}
}

func TestEvaluate_TopicSelection(t *testing.T) {
	qrels, run := mustParse(t)
	e := NewEvaluator(qrels)
	measures := []Measure{{Kind: MeasurePrecision, Cutoff: 2}}

	tests := []struct {
		name      string
		selection TopicSelection
		queries   int
		want      float64
	}{
		{"judged topics in run", TopicsJudgedInRun, 2, 0.5},
		{"all qrels topics", TopicsAllQrels, 3, 1.0 / 3},
		{"all run topics", TopicsInRun, 3, 1.0 / 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := e.Evaluate(run, measures, tt.selection)
			if s.QueryCount != tt.queries {
				t.Errorf("QueryCount = %d, want %d", s.QueryCount, tt.queries)
			}
			if got := s.Mean["P_2"]; !almostEqual(got, tt.want) {
				t.Errorf("Mean[P_2] = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseMeasures(t *testing.T) {
	got, err := ParseMeasures("ndcg_cut.5,10")
	if err != nil {
		t.Fatalf("ParseMeasures() error = %v", err)
	}
	want := []Measure{{Kind: MeasureNDCGCut, Cutoff: 5}, {Kind: MeasureNDCGCut, Cutoff: 10}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseMeasures() mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"bpref", "P", "map.10", "P.0", "recall.x"} {
		if _, err := ParseMeasures(bad); err == nil {
			t.Errorf("ParseMeasures(%q) should fail", bad)
		}
	}
}

func writeFixtures(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	qrels := filepath.Join(dir, "qrels.txt")
	run := filepath.Join(dir, "run.txt")
	if err := os.WriteFile(qrels, []byte(testQrels), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(run, []byte(testRun), 0o644); err != nil {
		t.Fatal(err)
	}
	return qrels, run
}

// scrape mirrors how the baseline runner reads tool output.
func scrape(t *testing.T, out string) map[string]string {
	t.Helper()
	values := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 3 || fields[1] != "all" {
			t.Fatalf("unexpected output line %q", line)
		}
		values[fields[0]] = fields[2]
	}
	return values
}

func TestTrecEval(t *testing.T) {
	qrels, run := writeFixtures(t)

	var out bytes.Buffer
	err := TrecEval(context.Background(), []string{"-c", "-m", "P.2", "-m", "map", qrels, run}, &out)
	if err != nil {
		t.Fatalf("TrecEval() error = %v", err)
	}

	got := scrape(t, out.String())
	// map: topic 1 = (1/1 + 2/3)/2, topic 2 = (1/2)/1, topic 3 = 0.
	want := map[string]string{"P_2": "0.3333", "map": "0.4444"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TrecEval() mismatch (-want +got):\n%s", diff)
	}
}

func TestTrecEval_UsageErrors(t *testing.T) {
	qrels, run := writeFixtures(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no measure", []string{qrels, run}},
		{"missing run", []string{"-m", "map", qrels}},
		{"unknown measure", []string{"-m", "bpref", qrels, run}},
		{"unknown flag", []string{"-z", "-m", "map", qrels, run}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := TrecEval(context.Background(), tt.args, &bytes.Buffer{})
			if !errors.IsValidation(err) {
				t.Errorf("TrecEval() error = %v, want VALIDATION_ERROR", err)
			}
		})
	}

	err := TrecEval(context.Background(), []string{"-m", "map", qrels, filepath.Join(t.TempDir(), "missing")}, &bytes.Buffer{})
	if !errors.IsIO(err) {
		t.Errorf("TrecEval() with missing run error = %v, want IO_ERROR", err)
	}
}

func TestMeasureJudged(t *testing.T) {
	qrels, run := writeFixtures(t)

	var out bytes.Buffer
	err := MeasureJudged(context.Background(), []string{"--qrels", qrels, "--cutoffs", "2", "10", "--run", run}, &out)
	if err != nil {
		t.Fatalf("MeasureJudged() error = %v", err)
	}

	got := scrape(t, out.String())
	want := map[string]string{"judged_2": "0.3333", "judged_10": "0.1000"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MeasureJudged() mismatch (-want +got):\n%s", diff)
	}
}

func TestMeasureJudged_RequiresFiles(t *testing.T) {
	err := MeasureJudged(context.Background(), []string{"--cutoffs", "10"}, &bytes.Buffer{})
	if !errors.IsValidation(err) {
		t.Errorf("MeasureJudged() error = %v, want VALIDATION_ERROR", err)
	}
}

func TestBuiltins(t *testing.T) {
	b := Builtins()
	for _, name := range []string{"trec_eval", "measure_judged"} {
		if b[name] == nil {
			t.Errorf("Builtins() missing %s", name)
		}
	}
}
