package grader

import (
	"fmt"
	"strings"

	"github.com/hkdse-ai/reading-grader/internal/content"
	"github.com/hkdse-ai/reading-grader/internal/domain"
)

// SystemPrompt frames the model as a strict grader that must answer in JSON.
const SystemPrompt = "You are an experienced English reading-comprehension teacher. " +
	"Grade the student's answers against the provided correct answers. " +
	"Respond with a single JSON object and nothing else: no markdown fences, no commentary."

// BuildPrompt renders the grading prompt: passage, one numbered block per
// grading unit and the required output schema. The unit numbering here is the
// question_number contract the response must follow.
func BuildPrompt(passage content.Passage, gt *domain.GroundTruthContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Passage: %s\n\n%s\n\n", passage.Title, passage.Content)

	fmt.Fprintf(&b, "## Items to grade (%d total, %d marks)\n\n", len(gt.Items), gt.TotalMarks)
	for _, it := range gt.Items {
		fmt.Fprintf(&b, "### Item %d (%s, skill: %s, %d mark(s))\n", it.Ordinal, it.Kind, it.Skill.DisplayName(), it.Marks)
		fmt.Fprintf(&b, "Question: %s\n", it.Prompt)
		fmt.Fprintf(&b, "Correct answer: %s\n", it.Correct)
		fmt.Fprintf(&b, "Student answer: %s\n", it.Submitted)
		if it.Reference != "" {
			fmt.Fprintf(&b, "Relevant passage text: %s\n", it.Reference)
		}
		b.WriteString("\n")
	}

	minutes := float64(gt.ElapsedSeconds) / 60
	fmt.Fprintf(&b, "Time spent: %.1f minutes.\n\n", minutes)

	b.WriteString(`## Required output

Return one JSON object with exactly this structure:

{
  "results": [
    {
      "question_number": 1,
      "is_correct": true,
      "user_answer": "the student's answer exactly as given above",
      "correct_answer": "the correct answer exactly as given above",
      "explanation": "why the answer is right or wrong, citing the passage",
      "skill_analysis": "the skill this item tests",
      "reference_text": "the passage sentence(s) that justify the answer"
    }
  ],
  "final_score": 0.0,
  "correct_count": 0,
  "total_questions": `)
	fmt.Fprintf(&b, "%d", len(gt.Items))
	b.WriteString(`,
  "ability_analysis": "2-3 sentence summary of the student's reading ability",
  "skill_breakdown": [
    {
      "skill_name": "skill display name",
      "mastery_level": 0.0,
      "correct_count": 0,
      "total_count": 0,
      "performance_description": "1-2 sentences on performance in this skill"
    }
  ],
  "strengths_detailed": [],
  "weaknesses_detailed": [],
  "strengths": [],
  "weaknesses": [],
  "recommendations": ["2-3 concrete study suggestions"],
  "time_spent": `)
	fmt.Fprintf(&b, "%d\n}\n\n", gt.ElapsedSeconds)

	b.WriteString("Rules:\n")
	b.WriteString("- results must contain exactly one entry per item, numbered 1..")
	fmt.Fprintf(&b, "%d in order.\n", len(gt.Items))
	b.WriteString("- user_answer must repeat the student answer verbatim; never substitute the correct answer.\n")
	b.WriteString("- A student answer of \"" + domain.NotAnswered + "\" is always incorrect.\n")
	b.WriteString("- Treat answers as correct when they match ignoring case and surrounding spaces.\n")

	return b.String()
}
