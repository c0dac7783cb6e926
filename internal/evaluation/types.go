package evaluation

import (
	"fmt"
	"strconv"
	"strings"
)

// Measure kinds understood by the evaluator.
const (
	MeasureNDCGCut        = "ndcg_cut"
	MeasurePrecision      = "P"
	MeasureRecall         = "recall"
	MeasureMAP            = "map"
	MeasureReciprocalRank = "recip_rank"
	MeasureJudgedKind     = "judged"
)

// Measure is one evaluation measure, optionally at a rank cutoff.
type Measure struct {
	Kind   string `json:"kind" yaml:"kind"`
	Cutoff int    `json:"cutoff,omitempty" yaml:"cutoff,omitempty"`
}

// Name renders the measure the way trec_eval reports it, e.g. ndcg_cut_10.
func (m Measure) Name() string {
	if m.Cutoff > 0 {
		return fmt.Sprintf("%s_%d", m.Kind, m.Cutoff)
	}
	return m.Kind
}

// ParseMeasures parses a trec_eval measure argument such as "ndcg_cut.10",
// "P.5,10" or "map" into one Measure per cutoff.
func ParseMeasures(arg string) ([]Measure, error) {
	kind, cutoffs, hasCutoffs := strings.Cut(arg, ".")

	switch kind {
	case MeasureMAP, MeasureReciprocalRank:
		if hasCutoffs {
			return nil, fmt.Errorf("measure %s does not take cutoffs", kind)
		}
		return []Measure{{Kind: kind}}, nil
	case MeasureNDCGCut, MeasurePrecision, MeasureRecall, MeasureJudgedKind:
	default:
		return nil, fmt.Errorf("unknown measure %q", arg)
	}

	if !hasCutoffs {
		return nil, fmt.Errorf("measure %s requires a cutoff", kind)
	}

	var measures []Measure
	for _, c := range strings.Split(cutoffs, ",") {
		k, err := strconv.Atoi(strings.TrimSpace(c))
		if err != nil || k < 1 {
			return nil, fmt.Errorf("invalid cutoff %q for %s", c, kind)
		}
		measures = append(measures, Measure{Kind: kind, Cutoff: k})
	}
	return measures, nil
}

// TopicSelection picks which topics a summary averages over.
type TopicSelection int

const (
	// TopicsJudgedInRun averages over topics present in both run and qrels.
	TopicsJudgedInRun TopicSelection = iota
	// TopicsAllQrels averages over every qrels topic; unretrieved topics score 0.
	TopicsAllQrels
	// TopicsInRun averages over every run topic, judged or not.
	TopicsInRun
)

// TopicResult holds the measures of one topic.
type TopicResult struct {
	Topic     string             `json:"topic"`
	Retrieved int                `json:"retrieved"`
	Values    map[string]float64 `json:"values"`
}

// Summary aggregates measures across topics. Measures keeps the requested
// order so output is stable.
type Summary struct {
	RunTag     string             `json:"run_tag"`
	QueryCount int                `json:"query_count"`
	Measures   []string           `json:"measures"`
	Mean       map[string]float64 `json:"mean"`
	Topics     []*TopicResult     `json:"topics,omitempty"`
}
