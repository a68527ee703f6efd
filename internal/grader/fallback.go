package grader

import (
	"fmt"

	"github.com/hkdse-ai/reading-grader/internal/domain"
)

// Fallback grades deterministically without a model: an answer is correct iff
// its normalized text equals the normalized correct answer. The report it
// produces satisfies every structural invariant, so this path never fails.
func Fallback(gt *domain.GroundTruthContext) domain.Report {
	results := make([]domain.ItemResult, len(gt.Items))
	for i, item := range gt.Items {
		results[i] = synthesizeResult(item)
	}

	report := domain.Report{
		Results:         results,
		AbilityAnalysis: "",
		TimeSpent:       gt.ElapsedSeconds,
	}
	recalculateAggregates(&report)
	reconcileSkills(&report, gt)
	return report
}

func fallbackExplanation(item domain.GroundTruthItem, correct bool) string {
	if !item.Answered() {
		return fmt.Sprintf("%s: no answer was given. The correct answer is %q.", item.Prompt, item.Correct)
	}
	if correct {
		return fmt.Sprintf("%s: the answer %q matches the correct answer.", item.Prompt, item.Submitted)
	}
	return fmt.Sprintf("%s: the answer %q does not match the correct answer %q.", item.Prompt, item.Submitted, item.Correct)
}
