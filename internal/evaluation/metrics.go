package evaluation

import (
	"fmt"
	"sort"

	"github.com/mkrogh/eventtag/internal/domain"
)

// Aggregate computes dataset-level metrics from scored rows. It is a pure
// function of its inputs: the same rows and config always produce the same
// metrics, down to tie-break ordering.
func Aggregate(rows []domain.EvaluationRow, cfg Config) (domain.AggregateMetrics, error) {
	if err := cfg.Validate(); err != nil {
		return domain.AggregateMetrics{}, err
	}
	if len(rows) == 0 {
		return domain.AggregateMetrics{}, fmt.Errorf("%w: no rows to aggregate", domain.ErrComputation)
	}

	var m domain.AggregateMetrics
	m.TotalRecords = len(rows)

	var (
		correctAt     [3]int
		exactAt       [3]int
		confidenceSum float64
		scoredRows    int

		truePositives  int
		predOccurrence int
		truthOccur     int

		confusion     = make(map[domain.ConfusionPair]int)
		confusionSeen []domain.ConfusionPair

		catTotal   = make(map[string]int)
		catCorrect = make(map[string]int)
	)

	for _, row := range rows {
		truthSet := tagSet(row.Truth.Tags)
		truthOccur += len(truthSet)

		primary := row.Truth.Primary()
		catTotal[primary]++

		if row.Result.Failed() {
			m.FailedRecords++
			continue
		}
		scoredRows++

		preds := row.Result.Prediction.Tags()
		predSet := tagSet(preds)
		predOccurrence += len(predSet)
		truePositives += intersectionSize(predSet, truthSet)

		confidenceSum += row.Result.Prediction.FinalConfidence

		for k := 1; k <= 3; k++ {
			if row.CorrectAt(k) {
				correctAt[k-1]++
			}
			if setsEqual(tagSet(firstN(preds, k)), truthSet) {
				exactAt[k-1]++
			}
		}

		if row.CorrectAt1 {
			m.CorrectRecords++
			catCorrect[primary]++
			continue
		}
		if len(preds) > 0 {
			pair := domain.ConfusionPair{TruthTag: primary, PredictedTag: preds[0]}
			if _, seen := confusion[pair]; !seen {
				confusionSeen = append(confusionSeen, pair)
			}
			confusion[pair]++
		}
	}

	total := float64(m.TotalRecords)
	m.AccuracyAt1 = float64(correctAt[0]) / total
	m.AccuracyAt2 = float64(correctAt[1]) / total
	m.AccuracyAt3 = float64(correctAt[2]) / total
	m.ExactMatchAt1 = float64(exactAt[0]) / total
	m.ExactMatchAt2 = float64(exactAt[1]) / total
	m.ExactMatchAt3 = float64(exactAt[2]) / total
	m.WeightedAccuracy = cfg.Weights[0]*m.AccuracyAt1 +
		cfg.Weights[1]*m.AccuracyAt2 +
		cfg.Weights[2]*m.AccuracyAt3

	if predOccurrence > 0 {
		m.Precision = float64(truePositives) / float64(predOccurrence)
	}
	if truthOccur > 0 {
		m.Recall = float64(truePositives) / float64(truthOccur)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	if scoredRows > 0 {
		m.AverageConfidence = confidenceSum / float64(scoredRows)
	}

	m.MostConfused = topConfusions(confusion, confusionSeen, cfg.ConfusionTopN)
	m.PerCategoryAccuracy, m.BestCategories, m.WorstCategories =
		categoryBreakdown(catTotal, catCorrect, cfg.CategoryTopN)

	return m, nil
}

// topConfusions ranks pairs by count descending; ties keep first-encounter
// order so the report is stable across runs.
func topConfusions(counts map[domain.ConfusionPair]int, order []domain.ConfusionPair, topN int) []domain.ConfusionPair {
	if topN == 0 || len(order) == 0 {
		return nil
	}
	ranked := make([]domain.ConfusionPair, 0, len(order))
	for _, pair := range order {
		pair.Count = counts[domain.ConfusionPair{TruthTag: pair.TruthTag, PredictedTag: pair.PredictedTag}]
		ranked = append(ranked, pair)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// categoryBreakdown computes rank-1 accuracy per primary ground-truth tag
// and the top and bottom categories. Ties resolve alphabetically.
func categoryBreakdown(total, correct map[string]int, topN int) (map[string]float64, []string, []string) {
	perCat := make(map[string]float64, len(total))
	names := make([]string, 0, len(total))
	for cat, n := range total {
		perCat[cat] = float64(correct[cat]) / float64(n)
		names = append(names, cat)
	}
	sort.Strings(names)

	if topN == 0 || len(names) == 0 {
		return perCat, nil, nil
	}

	best := make([]string, len(names))
	copy(best, names)
	sort.SliceStable(best, func(i, j int) bool {
		return perCat[best[i]] > perCat[best[j]]
	})

	worst := make([]string, len(names))
	copy(worst, names)
	sort.SliceStable(worst, func(i, j int) bool {
		return perCat[worst[i]] < perCat[worst[j]]
	})

	if len(best) > topN {
		best = best[:topN]
	}
	if len(worst) > topN {
		worst = worst[:topN]
	}
	return perCat, best, worst
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

func intersectionSize(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func firstN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
