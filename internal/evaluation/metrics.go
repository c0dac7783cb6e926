package evaluation

import (
	"math"
	"sort"
)

// gains returns the relevance grade of each retrieved document; unjudged and
// negatively judged documents count as 0.
func gains(docs []ScoredDoc, judgments map[string]int) []int {
	out := make([]int, len(docs))
	for i, d := range docs {
		if rel := judgments[d.DocID]; rel > 0 {
			out[i] = rel
		}
	}
	return out
}

func dcg(grades []int, k int) float64 {
	if k > len(grades) {
		k = len(grades)
	}
	sum := 0.0
	for i := 0; i < k; i++ {
		sum += float64(grades[i]) / math.Log2(float64(i+2))
	}
	return sum
}

// NDCG calculates Normalized Discounted Cumulative Gain at k. The ideal
// ranking is built from every positive judgment of the topic, not only the
// retrieved ones.
func NDCG(relevances []int, judgments map[string]int, k int) float64 {
	ideal := make([]int, 0, len(judgments))
	for _, rel := range judgments {
		if rel > 0 {
			ideal = append(ideal, rel)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ideal)))

	idcg := dcg(ideal, k)
	if idcg == 0 {
		return 0
	}
	return dcg(relevances, k) / idcg
}

// Precision calculates Precision at k. Missing ranks count as non-relevant.
func Precision(relevances []int, k int) float64 {
	if k <= 0 {
		return 0
	}
	relevant := 0
	for i := 0; i < k && i < len(relevances); i++ {
		if relevances[i] >= 1 {
			relevant++
		}
	}
	return float64(relevant) / float64(k)
}

// Recall calculates Recall at k against the number of relevant judgments.
func Recall(relevances []int, numRelevant, k int) float64 {
	if numRelevant == 0 {
		return 0
	}
	relevant := 0
	for i := 0; i < k && i < len(relevances); i++ {
		if relevances[i] >= 1 {
			relevant++
		}
	}
	return float64(relevant) / float64(numRelevant)
}

// ReciprocalRank returns 1/rank of the first relevant document.
func ReciprocalRank(relevances []int) float64 {
	for i, r := range relevances {
		if r >= 1 {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

// AveragePrecision sums precision at each relevant rank and divides by the
// number of relevant judgments, so unretrieved relevant documents count as 0.
func AveragePrecision(relevances []int, numRelevant int) float64 {
	if numRelevant == 0 {
		return 0
	}
	relevant := 0
	sum := 0.0
	for i, r := range relevances {
		if r >= 1 {
			relevant++
			sum += float64(relevant) / float64(i+1)
		}
	}
	return sum / float64(numRelevant)
}

// Judged returns the fraction of the top k ranks holding a judged document,
// regardless of grade. The denominator is always k.
func Judged(docs []ScoredDoc, judgments map[string]int, k int) float64 {
	if k <= 0 {
		return 0
	}
	judged := 0
	for i := 0; i < k && i < len(docs); i++ {
		if _, ok := judgments[docs[i].DocID]; ok {
			judged++
		}
	}
	return float64(judged) / float64(k)
}
