// Package grader implements the grading-response reconciliation pipeline:
// extracting a model payload from raw text, repairing it, validating its
// schema and reconciling every claim against ground truth before the report
// is allowed to leave the service.
package grader

import (
	"fmt"
	"sort"

	"github.com/hkdse-ai/reading-grader/internal/content"
	"github.com/hkdse-ai/reading-grader/internal/domain"
)

// BuildContext flattens the exam and submitted answers into dense ordinal
// grading units. Fill-in-blank sub-questions and sequencing positions each
// become one unit; a multiple-choice question is one unit.
func BuildContext(ex *content.Exam, answers []domain.Answer, elapsedSeconds int) (*domain.GroundTruthContext, error) {
	byQuestion := make(map[string]domain.Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	var items []domain.GroundTruthItem
	for _, q := range ex.Questions {
		ans := byQuestion[q.ID]
		ref := ex.ReferenceText(q)

		switch {
		case q.Kind == content.KindFillInBlank && len(q.SubQuestions) > 0:
			for _, sub := range q.SubQuestions {
				items = append(items, domain.GroundTruthItem{
					Kind:        domain.UnitFillInBlank,
					Skill:       q.Skill,
					QuestionID:  sub.ID,
					Prompt:      fmt.Sprintf("Question %d, %s", q.QuestionNumber, sub.QuestionText),
					Correct:     sub.CorrectAnswer,
					Submitted:   ans.FillInAnswers[sub.ID],
					Explanation: q.Explanation,
					Reference:   ref,
					Marks:       sub.Marks,
				})
			}

		case q.Kind == content.KindTimelineSequencing && len(q.CorrectAnswers) > 0:
			for _, pos := range orderedPositions(q) {
				items = append(items, domain.GroundTruthItem{
					Kind:        domain.UnitSequencing,
					Skill:       q.Skill,
					QuestionID:  fmt.Sprintf("%s:%s", q.ID, pos),
					Prompt:      fmt.Sprintf("Question %d, position (%s)", q.QuestionNumber, pos),
					Correct:     q.CorrectAnswers[pos],
					Submitted:   ans.TimelineAnswers[pos],
					Explanation: q.Explanation,
					Reference:   ref,
					Marks:       1,
				})
			}

		default:
			items = append(items, domain.GroundTruthItem{
				Kind:        domain.UnitSingleChoice,
				Skill:       q.Skill,
				QuestionID:  q.ID,
				Prompt:      q.QuestionText,
				Correct:     q.CorrectAnswer,
				Submitted:   ans.SelectedOption,
				Explanation: q.Explanation,
				Reference:   ref,
				Marks:       q.TotalMarks,
			})
		}
	}

	return domain.NewGroundTruthContext(items, elapsedSeconds)
}

// orderedPositions returns the sequencing positions that have a correct
// answer, in timeline-event order. Positions missing from the event list are
// appended in sorted order so the unit sequence stays deterministic.
func orderedPositions(q content.Question) []string {
	seen := make(map[string]bool, len(q.CorrectAnswers))
	var out []string
	for _, ev := range q.TimelineEvents {
		if _, ok := q.CorrectAnswers[ev.Position]; ok && !seen[ev.Position] {
			out = append(out, ev.Position)
			seen[ev.Position] = true
		}
	}
	var rest []string
	for pos := range q.CorrectAnswers {
		if !seen[pos] {
			rest = append(rest, pos)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
