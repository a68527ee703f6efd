package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkdse-ai/reading-grader/internal/domain"
)

func TestLoadBundledExam(t *testing.T) {
	t.Parallel()

	ex, err := Load(filepath.Join("..", "..", "content"))
	require.NoError(t, err)

	assert.Equal(t, "Flash Fiction: Writing a Story in 1,000 Words or Less", ex.Passage.Title)
	assert.Contains(t, ex.Passage.Content, `<p id="p1">`)
	assert.Contains(t, ex.Passage.Content, `<h3 id="p3">`)
	assert.Equal(t, 2023, ex.Passage.Year)

	require.Len(t, ex.Questions, 3)
	assert.Equal(t, 6, ex.TotalMarks())

	q, ok := ex.QuestionByID("q11")
	require.True(t, ok)
	assert.Equal(t, KindMultipleChoice, q.Kind)
	assert.Equal(t, "B", q.CorrectAnswer)
	assert.Equal(t, "detail", q.Skill.Canon())
	assert.Contains(t, q.Explanation, "Dialogue is never mentioned")
	assert.Contains(t, ex.ReferenceText(q), "hardest part is deciding what to leave out")

	q5, ok := ex.QuestionByID("q5")
	require.True(t, ok)
	require.Len(t, q5.SubQuestions, 2)
	// per-sub explanations merged in key order
	assert.Contains(t, q5.Explanation, "limits")
	assert.Contains(t, q5.Explanation, " | ")

	q49, ok := ex.QuestionByID("q49")
	require.True(t, ok)
	assert.Equal(t, "B", q49.CorrectAnswers["i"])
	assert.Equal(t, domain.SkillSequencing, q49.Skill)
}

func TestLoadRejectsBrokenContent(t *testing.T) {
	t.Parallel()

	write := func(t *testing.T, dir, name, body string) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}

	t.Run("missing_files", func(t *testing.T) {
		t.Parallel()
		_, err := Load(t.TempDir())
		require.Error(t, err)
	})

	t.Run("malformed_json", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		write(t, dir, "article.json", `{"title": `)
		write(t, dir, "questions.json", `[]`)
		write(t, dir, "answers.json", `{}`)
		_, err := Load(dir)
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("no_questions", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		write(t, dir, "article.json", `{"title":"x","paragraphs":[]}`)
		write(t, dir, "questions.json", `[]`)
		write(t, dir, "answers.json", `{}`)
		_, err := Load(dir)
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("choice_without_answer", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		write(t, dir, "article.json", `{"title":"x","paragraphs":[]}`)
		write(t, dir, "questions.json", `[{"id":"q1","question_number":1,"question_text":"?","type":"multiple-choice","total_marks":1,"skill_type":"detail"}]`)
		write(t, dir, "answers.json", `{}`)
		_, err := Load(dir)
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}
