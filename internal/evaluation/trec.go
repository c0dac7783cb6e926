package evaluation

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ricesearch/irtools/internal/pkg/errors"
)

// Qrels maps topic -> docno -> relevance grade.
type Qrels map[string]map[string]int

// ScoredDoc is one retrieved document of a run.
type ScoredDoc struct {
	DocID string
	Rank  int
	Score float64
}

// Run is a TREC run file: ranked documents per topic.
type Run struct {
	Tag    string
	Topics map[string][]ScoredDoc
}

// ReadQrels parses "topic iteration docno relevance" lines.
func ReadQrels(r io.Reader) (Qrels, error) {
	qrels := make(Qrels)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 4 {
			return nil, errors.New(errors.CodeParse, fmt.Sprintf("qrels line %d: expected 4 columns, got %d", lineNo, len(fields)))
		}

		rel, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, errors.Wrap(errors.CodeParse, fmt.Sprintf("qrels line %d: bad relevance", lineNo), err)
		}

		topic, docID := fields[0], fields[2]
		if qrels[topic] == nil {
			qrels[topic] = make(map[string]int)
		}
		qrels[topic][docID] = rel
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeIO, "reading qrels", err)
	}

	return qrels, nil
}

// ReadRun parses "topic Q0 docno rank score tag" lines. Documents of each
// topic are ordered by descending score, ties broken by descending docno,
// which is how trec_eval ranks them regardless of the rank column.
func ReadRun(r io.Reader) (*Run, error) {
	run := &Run{Topics: make(map[string][]ScoredDoc)}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 6 {
			return nil, errors.New(errors.CodeParse, fmt.Sprintf("run line %d: expected 6 columns, got %d", lineNo, len(fields)))
		}

		rank, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, errors.Wrap(errors.CodeParse, fmt.Sprintf("run line %d: bad rank", lineNo), err)
		}
		score, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, errors.Wrap(errors.CodeParse, fmt.Sprintf("run line %d: bad score", lineNo), err)
		}

		if run.Tag == "" {
			run.Tag = fields[5]
		}
		run.Topics[fields[0]] = append(run.Topics[fields[0]], ScoredDoc{
			DocID: fields[2],
			Rank:  rank,
			Score: score,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeIO, "reading run", err)
	}

	for _, docs := range run.Topics {
		sort.SliceStable(docs, func(i, j int) bool {
			if docs[i].Score != docs[j].Score {
				return docs[i].Score > docs[j].Score
			}
			return docs[i].DocID > docs[j].DocID
		})
	}

	return run, nil
}

// LoadQrels reads a qrels file from disk.
func LoadQrels(path string) (Qrels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.IOError("opening qrels", path, err)
	}
	defer f.Close()
	return ReadQrels(f)
}

// LoadRun reads a run file from disk.
func LoadRun(path string) (*Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.IOError("opening run", path, err)
	}
	defer f.Close()
	return ReadRun(f)
}

// NumRelevant counts documents judged relevant (grade >= 1) for a topic.
func (q Qrels) NumRelevant(topic string) int {
	n := 0
	for _, rel := range q[topic] {
		if rel >= 1 {
			n++
		}
	}
	return n
}
