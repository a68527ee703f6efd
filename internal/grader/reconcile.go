package grader

import (
	"fmt"
	"strings"

	"github.com/hkdse-ai/reading-grader/internal/domain"
	"github.com/hkdse-ai/reading-grader/pkg/textx"
)

func answersMatch(a, b string) bool {
	return textx.NormalizeAnswer(a) == textx.NormalizeAnswer(b)
}

// alignResults maps the model's item results onto the dense ordinal sequence
// of the grading context: one result per unit, in order. A missing ordinal is
// synthesized from ground truth with a deterministic correctness check; a
// duplicate or out-of-range ordinal is dropped. Returns the aligned results
// and the number of synthesized/dropped entries.
func alignResults(results []payloadResult, gt *domain.GroundTruthContext) ([]domain.ItemResult, int) {
	byOrdinal := make(map[int]payloadResult, len(results))
	irregular := 0
	for _, r := range results {
		if r.QuestionNumber < 1 || r.QuestionNumber > len(gt.Items) {
			irregular++
			continue
		}
		if _, dup := byOrdinal[r.QuestionNumber]; dup {
			irregular++
			continue
		}
		byOrdinal[r.QuestionNumber] = r
	}

	out := make([]domain.ItemResult, len(gt.Items))
	for i, item := range gt.Items {
		if r, ok := byOrdinal[item.Ordinal]; ok {
			out[i] = domain.ItemResult{
				QuestionNumber: item.Ordinal,
				IsCorrect:      r.IsCorrect,
				UserAnswer:     r.UserAnswer,
				CorrectAnswer:  r.CorrectAnswer,
				Explanation:    r.Explanation,
				SkillAnalysis:  item.Skill,
				ReferenceText:  r.ReferenceText,
			}
			continue
		}
		irregular++
		out[i] = synthesizeResult(item)
	}
	return out, irregular
}

// synthesizeResult builds a deterministic result for a unit the model failed
// to grade.
func synthesizeResult(item domain.GroundTruthItem) domain.ItemResult {
	correct := item.Answered() && answersMatch(item.Submitted, item.Correct)
	return domain.ItemResult{
		QuestionNumber: item.Ordinal,
		IsCorrect:      correct,
		UserAnswer:     item.Submitted,
		CorrectAnswer:  item.Correct,
		Explanation:    fallbackExplanation(item, correct),
		SkillAnalysis:  item.Skill,
		ReferenceText:  item.Reference,
	}
}

// reconcileAnswers overwrites every echoed answer with ground truth and
// re-derives correctness where the model graded a hallucinated answer.
// Returns the number of corrected results.
func reconcileAnswers(results []domain.ItemResult, gt *domain.GroundTruthContext) ([]domain.ItemResult, int) {
	fixes := 0
	for i := range results {
		r := &results[i]
		item, ok := gt.ItemByOrdinal(r.QuestionNumber)
		if !ok {
			continue
		}

		fixed := false
		if !answersMatch(r.CorrectAnswer, item.Correct) {
			r.CorrectAnswer = item.Correct
			fixed = true
		}
		if !answersMatch(r.UserAnswer, item.Submitted) {
			echoed := r.UserAnswer
			r.UserAnswer = item.Submitted
			fixed = true

			match := item.Answered() && answersMatch(item.Submitted, item.Correct)
			switch {
			case r.IsCorrect && !match:
				r.IsCorrect = false
				r.Explanation = rewriteExplanation(r.Explanation, echoed, item.Submitted, item.Correct)
			case !r.IsCorrect && match:
				r.IsCorrect = true
			}
		} else {
			// answer echoed faithfully; keep the exact submitted casing
			r.UserAnswer = item.Submitted
		}
		if fixed {
			fixes++
		}
	}
	return results, fixes
}

// rewriteExplanation repairs an explanation written for the wrong answer:
// references to the hallucinated answer are replaced and assertions that the
// (wrong) answer was correct are restated against the true answer.
func rewriteExplanation(explanation, echoed, actual, correct string) string {
	if explanation == "" {
		return explanation
	}
	if echoed != "" {
		for _, tpl := range []string{
			"你的答案: %s",
			"用户答案:'%s'",
			"学生答案'%s'",
			"學生答案'%s'",
			"your answer: %s",
			"the student's answer '%s'",
		} {
			explanation = strings.ReplaceAll(explanation,
				fmt.Sprintf(tpl, echoed), fmt.Sprintf(tpl, actual))
		}
	}

	verdict := fmt.Sprintf("The submitted answer %q is incorrect; the correct answer is %q.", actual, correct)
	for _, pattern := range []string{
		fmt.Sprintf("學生答案'%s'完全正確", echoed),
		fmt.Sprintf("學生答案'%s'完全正確", actual),
		fmt.Sprintf("学生答案'%s'完全正确", echoed),
		fmt.Sprintf("学生答案'%s'完全正确", actual),
		fmt.Sprintf("答案'%s'完全正确", echoed),
		fmt.Sprintf("答案'%s'完全正确", actual),
		fmt.Sprintf("'%s' is completely correct", echoed),
		fmt.Sprintf("'%s' is correct", echoed),
	} {
		if pattern != "" {
			explanation = strings.ReplaceAll(explanation, pattern, verdict)
		}
	}
	return explanation
}
