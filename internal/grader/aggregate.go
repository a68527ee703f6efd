package grader

import (
	"math"

	"github.com/hkdse-ai/reading-grader/internal/domain"
)

// recalculateAggregates makes item-level flags the single source of truth:
// the aggregate numbers are recomputed and the model's values replaced when
// they disagree (exact mismatch on count, score off by more than 0.01).
// Returns whether a correction was applied.
func recalculateAggregates(report *domain.Report) bool {
	actualCorrect := 0
	for _, r := range report.Results {
		if r.IsCorrect {
			actualCorrect++
		}
	}
	total := len(report.Results)
	actualScore := 0.0
	if total > 0 {
		actualScore = float64(actualCorrect) / float64(total)
	}

	fixed := report.CorrectCount != actualCorrect ||
		report.TotalQuestions != total ||
		math.Abs(report.FinalScore-actualScore) > 0.01

	report.CorrectCount = actualCorrect
	report.TotalQuestions = total
	report.FinalScore = actualScore
	return fixed
}
