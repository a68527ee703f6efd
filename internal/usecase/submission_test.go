package usecase

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkdse-ai/reading-grader/internal/adapter/store/memstore"
	"github.com/hkdse-ai/reading-grader/internal/adapter/store/redisstore"
	"github.com/hkdse-ai/reading-grader/internal/config"
	"github.com/hkdse-ai/reading-grader/internal/content"
	"github.com/hkdse-ai/reading-grader/internal/domain"
	"github.com/hkdse-ai/reading-grader/internal/grader"
)

type stubAI struct {
	out string
	err error
}

func (s *stubAI) ChatJSON(context.Context, string, string, int) (string, error) {
	return s.out, s.err
}

func testExam() *content.Exam {
	return &content.Exam{
		Passage: content.Passage{Title: "Flash Fiction", Content: "<p>text</p>"},
		Questions: []content.Question{
			{
				ID:             "q11",
				QuestionNumber: 11,
				QuestionText:   "Which is NOT mentioned?",
				Kind:           content.KindMultipleChoice,
				Skill:          domain.SkillDetail,
				CorrectAnswer:  "B",
				TotalMarks:     1,
			},
			{
				ID:             "q12",
				QuestionNumber: 12,
				QuestionText:   "Word meaning 'restricts'?",
				Kind:           content.KindMultipleChoice,
				Skill:          domain.SkillVocabulary,
				CorrectAnswer:  "A",
				TotalMarks:     1,
			},
		},
	}
}

func newTestService(t *testing.T, ai domain.AIClient) *SubmissionService {
	t.Helper()
	return newTestServiceWithStore(t, ai, memstore.New(), 5*time.Second)
}

func newTestServiceWithStore(t *testing.T, ai domain.AIClient, store domain.SubmissionStore, gradingTimeout time.Duration) *SubmissionService {
	t.Helper()
	cfg := config.Config{
		AppEnv:           "test",
		GradingMaxTokens: 1000,
		GradingTimeout:   gradingTimeout,
		SubmissionTTL:    time.Hour,
	}
	logger := slog.New(slog.DiscardHandler)
	pipe := grader.NewPipeline(grader.DefaultKeywords(), logger)
	return NewSubmissionService(cfg, store, ai, testExam(), pipe, logger)
}

func TestSubmitAndGetCompleted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ai := &stubAI{out: `{
		"results": [
			{"question_number": 1, "is_correct": true, "user_answer": "B", "correct_answer": "B", "explanation": "Correct choice.", "skill_analysis": "detail"},
			{"question_number": 2, "is_correct": false, "user_answer": "C", "correct_answer": "A", "explanation": "Wrong option.", "skill_analysis": "vocabulary"}
		],
		"final_score": 0.5,
		"correct_count": 1,
		"total_questions": 2
	}`}
	svc := newTestService(t, ai)

	answers := []domain.Answer{
		{QuestionID: "q11", SelectedOption: "B"},
		{QuestionID: "q12", SelectedOption: "C"},
	}
	id, err := svc.Submit(ctx, answers, 120)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// the processing record is visible before the grading finishes
	sub, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, []domain.SubmissionStatus{domain.SubmissionProcessing, domain.SubmissionCompleted}, sub.Status)

	svc.Wait()

	sub, err = svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionCompleted, sub.Status)
	assert.Equal(t, 100, sub.Progress)
	require.NotNil(t, sub.Report)
	assert.InDelta(t, 0.5, sub.Report.FinalScore, 1e-9)
	assert.Equal(t, 1, sub.Report.CorrectCount)
	assert.Equal(t, 2, sub.Report.TotalQuestions)
	assert.Equal(t, 120, sub.Report.TimeSpent)
}

func TestSubmitFallsBackOnModelError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := newTestService(t, &stubAI{err: errors.New("upstream down")})
	id, err := svc.Submit(ctx, []domain.Answer{{QuestionID: "q11", SelectedOption: "B"}}, 60)
	require.NoError(t, err)

	svc.Wait()

	sub, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.SubmissionCompleted, sub.Status)
	require.NotNil(t, sub.Report)
	// deterministic grading: q11 correct, q12 unanswered
	assert.Equal(t, 1, sub.Report.CorrectCount)
	assert.Equal(t, 2, sub.Report.TotalQuestions)
	assert.InDelta(t, 0.5, sub.Report.FinalScore, 0.011)
}

type blockingAI struct{}

func (blockingAI) ChatJSON(ctx context.Context, _, _ string, _ int) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestGradingTimeoutStillStoresFallbackReport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc := newTestServiceWithStore(t, blockingAI{}, redisstore.New(rdb), 50*time.Millisecond)
	id, err := svc.Submit(ctx, []domain.Answer{{QuestionID: "q11", SelectedOption: "B"}}, 60)
	require.NoError(t, err)

	svc.Wait()

	sub, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.SubmissionCompleted, sub.Status)
	require.NotNil(t, sub.Report)
	assert.Equal(t, 1, sub.Report.CorrectCount)
	assert.Equal(t, 2, sub.Report.TotalQuestions)
}

func TestGetUnknown(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubAI{})
	_, err := svc.Get(context.Background(), "does-not-exist")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetMarksStaleProcessingFailed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := newTestService(t, &stubAI{})
	old := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, svc.store.Set(ctx, domain.Submission{
		ID:        "stale-1",
		Status:    domain.SubmissionProcessing,
		Progress:  10,
		CreatedAt: old,
		UpdatedAt: old,
	}, time.Hour))

	sub, err := svc.Get(ctx, "stale-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionFailed, sub.Status)
	assert.NotEmpty(t, sub.Error)

	// the failure is persisted
	again, err := svc.Get(ctx, "stale-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionFailed, again.Status)
}

func TestSubmitRejectsEmptyExam(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubAI{})
	svc.exam = &content.Exam{Passage: content.Passage{Title: "empty"}}

	_, err := svc.Submit(context.Background(), nil, 0)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}
