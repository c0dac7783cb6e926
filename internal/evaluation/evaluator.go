package evaluation

import (
	"fmt"
	"io"
	"sort"
)

// Evaluator scores runs against a set of relevance judgments.
type Evaluator struct {
	qrels Qrels
}

// NewEvaluator creates a new evaluator.
func NewEvaluator(qrels Qrels) *Evaluator {
	return &Evaluator{qrels: qrels}
}

// EvaluateTopic computes every measure for one topic's ranked documents.
func (e *Evaluator) EvaluateTopic(topic string, docs []ScoredDoc, measures []Measure) *TopicResult {
	judgments := e.qrels[topic]
	relevances := gains(docs, judgments)
	numRel := e.qrels.NumRelevant(topic)

	result := &TopicResult{
		Topic:     topic,
		Retrieved: len(docs),
		Values:    make(map[string]float64, len(measures)),
	}

	for _, m := range measures {
		var v float64
		switch m.Kind {
		case MeasureNDCGCut:
			v = NDCG(relevances, judgments, m.Cutoff)
		case MeasurePrecision:
			v = Precision(relevances, m.Cutoff)
		case MeasureRecall:
			v = Recall(relevances, numRel, m.Cutoff)
		case MeasureMAP:
			v = AveragePrecision(relevances, numRel)
		case MeasureReciprocalRank:
			v = ReciprocalRank(relevances)
		case MeasureJudgedKind:
			v = Judged(docs, judgments, m.Cutoff)
		}
		result.Values[m.Name()] = v
	}

	return result
}

// Evaluate scores every selected topic of the run and averages the results.
func (e *Evaluator) Evaluate(run *Run, measures []Measure, selection TopicSelection) *Summary {
	summary := &Summary{
		RunTag: run.Tag,
		Mean:   make(map[string]float64, len(measures)),
	}
	for _, m := range measures {
		summary.Measures = append(summary.Measures, m.Name())
	}

	for _, topic := range e.selectTopics(run, selection) {
		summary.Topics = append(summary.Topics, e.EvaluateTopic(topic, run.Topics[topic], measures))
	}

	return e.Summarize(summary)
}

// Summarize fills in the query count and means from the per-topic results.
func (e *Evaluator) Summarize(summary *Summary) *Summary {
	summary.QueryCount = len(summary.Topics)
	if summary.QueryCount == 0 {
		return summary
	}

	for _, r := range summary.Topics {
		for name, v := range r.Values {
			summary.Mean[name] += v
		}
	}

	n := float64(summary.QueryCount)
	for name := range summary.Mean {
		summary.Mean[name] /= n
	}

	return summary
}

func (e *Evaluator) selectTopics(run *Run, selection TopicSelection) []string {
	var topics []string
	switch selection {
	case TopicsAllQrels:
		for topic := range e.qrels {
			topics = append(topics, topic)
		}
	case TopicsInRun:
		for topic := range run.Topics {
			topics = append(topics, topic)
		}
	default:
		for topic := range run.Topics {
			if _, ok := e.qrels[topic]; ok {
				topics = append(topics, topic)
			}
		}
	}
	sort.Strings(topics)
	return topics
}

// Write prints the summary as "<measure>\tall\t<value>" lines. With
// perTopic set, per-topic lines precede the aggregate ones.
func (s *Summary) Write(w io.Writer, perTopic bool) error {
	if perTopic {
		for _, r := range s.Topics {
			for _, name := range s.Measures {
				if _, err := fmt.Fprintf(w, "%-22s\t%s\t%.4f\n", name, r.Topic, r.Values[name]); err != nil {
					return err
				}
			}
		}
	}
	for _, name := range s.Measures {
		if _, err := fmt.Fprintf(w, "%-22s\tall\t%.4f\n", name, s.Mean[name]); err != nil {
			return err
		}
	}
	return nil
}
