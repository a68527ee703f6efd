package grader

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkdse-ai/reading-grader/internal/domain"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var obj map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &obj))
	return obj
}

func TestValidatePayload(t *testing.T) {
	t.Parallel()

	t.Run("camel_case_normalized", func(t *testing.T) {
		t.Parallel()
		obj := decode(t, `{
			"results": [{"questionNumber": 1, "isCorrect": true, "userAnswer": "B", "correctAnswer": "B", "explanation": "ok"}],
			"finalScore": 1.0,
			"correctCount": 1,
			"totalQuestions": 1,
			"skillBreakdown": [{"skillName": "detail", "masteryLevel": 1.0, "correctCount": 1, "totalCount": 1}]
		}`)
		p, err := ValidatePayload(obj)
		require.NoError(t, err)
		require.Len(t, p.Results, 1)
		assert.Equal(t, 1, p.Results[0].QuestionNumber)
		assert.True(t, p.Results[0].IsCorrect)
		assert.Equal(t, "B", p.Results[0].UserAnswer)
		assert.Equal(t, 1, p.CorrectCount)
		require.Len(t, p.SkillBreakdown, 1)
		assert.Equal(t, "detail", p.SkillBreakdown[0].SkillName)
	})

	t.Run("missing_required_fields", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name string
			body string
		}{
			{name: "no_results", body: `{"final_score":1,"correct_count":1,"total_questions":1}`},
			{name: "no_final_score", body: `{"results":[],"correct_count":1,"total_questions":1}`},
			{name: "no_correct_count", body: `{"results":[],"final_score":1,"total_questions":1}`},
			{name: "no_total_questions", body: `{"results":[],"final_score":1,"correct_count":1}`},
		}
		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				_, err := ValidatePayload(decode(t, tt.body))
				require.ErrorIs(t, err, domain.ErrSchemaInvalid)
			})
		}
	})

	t.Run("optional_fields_default_empty", func(t *testing.T) {
		t.Parallel()
		p, err := ValidatePayload(decode(t, `{"results":[],"final_score":0,"correct_count":0,"total_questions":0}`))
		require.NoError(t, err)
		assert.Empty(t, p.SkillBreakdown)
		assert.Empty(t, p.Strengths)
		assert.Empty(t, p.Recommendations)
	})

	t.Run("float_counts_accepted", func(t *testing.T) {
		t.Parallel()
		p, err := ValidatePayload(decode(t, `{"results":[],"final_score":0.5,"correct_count":2.0,"total_questions":4.0}`))
		require.NoError(t, err)
		assert.Equal(t, 2, p.CorrectCount)
		assert.Equal(t, 4, p.TotalQuestions)
	})

	t.Run("prose_sanitized", func(t *testing.T) {
		t.Parallel()
		obj := decode(t, `{
			"results": [{"question_number": 1, "is_correct": true, "user_answer": "B", "correct_answer": "B",
				"explanation": "  right\u0000 choice "}],
			"final_score": 1, "correct_count": 1, "total_questions": 1,
			"ability_analysis": "\u0001 solid work\t overall  "
		}`)
		p, err := ValidatePayload(obj)
		require.NoError(t, err)
		assert.Equal(t, "right choice", p.Results[0].Explanation)
		assert.Equal(t, "solid work\t overall", p.AbilityAnalysis)
	})

	t.Run("structured_explanation_flattened", func(t *testing.T) {
		t.Parallel()
		obj := decode(t, `{
			"results": [{"question_number": 1, "is_correct": false, "user_answer": "A", "correct_answer": "B",
				"explanation": {"analysis": "wrong option picked.", "tip": "re-read paragraph 2."}}],
			"final_score": 0, "correct_count": 0, "total_questions": 1
		}`)
		p, err := ValidatePayload(obj)
		require.NoError(t, err)
		assert.Equal(t, "wrong option picked. re-read paragraph 2.", p.Results[0].Explanation)
	})
}

func TestSnakeCase(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "question_number", snakeCase("questionNumber"))
	assert.Equal(t, "question_number", snakeCase("question_number"))
	assert.Equal(t, "final_score", snakeCase("finalScore"))
	assert.Equal(t, "results", snakeCase("results"))
}
