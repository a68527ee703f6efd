package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkdse-ai/reading-grader/internal/config"
	"github.com/hkdse-ai/reading-grader/internal/content"
	"github.com/hkdse-ai/reading-grader/internal/domain"
)

type stubSubmissions struct {
	submitID  string
	submitErr error
	got       domain.Submission
	getErr    error

	lastAnswers []domain.Answer
	lastElapsed int
}

func (s *stubSubmissions) Submit(_ context.Context, answers []domain.Answer, elapsed int) (string, error) {
	s.lastAnswers = answers
	s.lastElapsed = elapsed
	return s.submitID, s.submitErr
}

func (s *stubSubmissions) Get(context.Context, string) (domain.Submission, error) {
	return s.got, s.getErr
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
				Options:        []string{"A. Setting", "B. Dialogue", "C. Plot"},
				CorrectAnswer:  "B",
				Explanation:    "Dialogue never appears.",
				TotalMarks:     1,
			},
			{
				ID:             "q5",
				QuestionNumber: 5,
				Kind:           content.KindFillInBlank,
				Skill:          domain.SkillVocabulary,
				SubQuestions: []content.SubQuestion{
					{ID: "q5_i", QuestionText: "(i) restricts", CorrectAnswer: "limits", Marks: 1},
				},
				TotalMarks: 1,
			},
		},
	}
}

func newTestServer(subs SubmissionAPI, storeCheck func(context.Context) error) *chi.Mux {
	return newTestServerWithChat(subs, nil, storeCheck)
}

func newTestServerWithChat(subs SubmissionAPI, chat ChatAPI, storeCheck func(context.Context) error) *chi.Mux {
	s := NewServer(config.Config{AppEnv: "test"}, testExam(), subs, chat, storeCheck)
	r := chi.NewRouter()
	r.Get("/v1/exam", s.ExamHandler())
	r.Post("/v1/submissions", s.SubmitHandler())
	r.Post("/v1/chat", s.ChatHandler())
	r.Get("/v1/submissions/{id}", s.ResultHandler())
	r.Get("/healthz", s.HealthzHandler())
	r.Get("/readyz", s.ReadyzHandler())
	return r
}

func TestExamHandlerStripsAnswerKey(t *testing.T) {
	t.Parallel()

	r := newTestServer(&stubSubmissions{}, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/exam", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Flash Fiction")
	assert.Contains(t, body, "(i) restricts")
	assert.NotContains(t, body, "correct_answer")
	assert.NotContains(t, body, "limits")
	assert.NotContains(t, body, "Dialogue never appears")

	var resp struct {
		TotalMarks int `json:"total_marks"`
		Questions  []struct {
			ID string `json:"id"`
		} `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalMarks)
	require.Len(t, resp.Questions, 2)
}

func TestSubmitHandler(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(5 * time.Minute)
	validBody := fmt.Sprintf(`{
		"answers": [{"question_id": "q11", "selected_option": "B"}],
		"start_time": %q,
		"end_time": %q
	}`, start.Format(time.RFC3339), end.Format(time.RFC3339))

	t.Run("accepted", func(t *testing.T) {
		t.Parallel()
		subs := &stubSubmissions{submitID: "sub-1"}
		r := newTestServer(subs, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/submissions", strings.NewReader(validBody)))

		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Contains(t, rec.Body.String(), `"id":"sub-1"`)
		assert.Contains(t, rec.Body.String(), `"status":"processing"`)
		assert.Equal(t, 300, subs.lastElapsed)
		require.Len(t, subs.lastAnswers, 1)
		assert.Equal(t, "q11", subs.lastAnswers[0].QuestionID)
	})

	t.Run("malformed_json", func(t *testing.T) {
		t.Parallel()
		r := newTestServer(&stubSubmissions{}, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/submissions", strings.NewReader("{nope")))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_ARGUMENT")
	})

	t.Run("missing_answers", func(t *testing.T) {
		t.Parallel()
		r := newTestServer(&stubSubmissions{}, nil)
		body := fmt.Sprintf(`{"answers": [], "start_time": %q, "end_time": %q}`,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/submissions", strings.NewReader(body)))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_ARGUMENT")
	})

	t.Run("end_before_start", func(t *testing.T) {
		t.Parallel()
		r := newTestServer(&stubSubmissions{}, nil)
		body := fmt.Sprintf(`{"answers": [{"question_id": "q11"}], "start_time": %q, "end_time": %q}`,
			end.Format(time.RFC3339), start.Format(time.RFC3339))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/submissions", strings.NewReader(body)))

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("service_error_maps_to_envelope", func(t *testing.T) {
		t.Parallel()
		subs := &stubSubmissions{submitErr: fmt.Errorf("bad answers: %w", domain.ErrInvalidArgument)}
		r := newTestServer(subs, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/submissions", strings.NewReader(validBody)))

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestResultHandler(t *testing.T) {
	t.Parallel()

	t.Run("not_found", func(t *testing.T) {
		t.Parallel()
		subs := &stubSubmissions{getErr: fmt.Errorf("submission missing: %w", domain.ErrNotFound)}
		r := newTestServer(subs, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/submissions/unknown", nil))

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "NOT_FOUND")
	})

	t.Run("completed", func(t *testing.T) {
		t.Parallel()
		subs := &stubSubmissions{got: domain.Submission{
			ID:       "sub-1",
			Status:   domain.SubmissionCompleted,
			Progress: 100,
			Report: &domain.Report{
				Results: []domain.ItemResult{{
					QuestionNumber: 1,
					IsCorrect:      true,
					UserAnswer:     "B",
					CorrectAnswer:  "B",
					Explanation:    "Right choice.",
				}},
				FinalScore:     1,
				CorrectCount:   1,
				TotalQuestions: 1,
			},
		}}
		r := newTestServer(subs, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/submissions/sub-1", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `"status":"completed"`)
		assert.Contains(t, body, `"final_score":1`)
		assert.Contains(t, body, `"question_number":1`)
	})
}

func TestReadyzHandler(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		t.Parallel()
		r := newTestServer(&stubSubmissions{}, func(context.Context) error { return nil })
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("store_down", func(t *testing.T) {
		t.Parallel()
		r := newTestServer(&stubSubmissions{}, func(context.Context) error { return errors.New("redis unreachable") })
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "redis unreachable")
	})
}

func TestHealthzHandler(t *testing.T) {
	t.Parallel()

	r := newTestServer(&stubSubmissions{}, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
