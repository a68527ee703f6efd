package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hkdse-ai/reading-grader/internal/config"
	"github.com/hkdse-ai/reading-grader/internal/content"
	"github.com/hkdse-ai/reading-grader/internal/domain"
)

// SubmissionAPI is the slice of the submission service the handlers need.
type SubmissionAPI interface {
	Submit(ctx context.Context, answers []domain.Answer, elapsedSeconds int) (string, error)
	Get(ctx context.Context, id string) (domain.Submission, error)
}

// ChatAPI streams tutor replies for the chat endpoint.
type ChatAPI interface {
	Stream(ctx context.Context, message string, history []domain.ChatMessage, deliver func(string) error) error
}

// Server aggregates handler dependencies.
type Server struct {
	Cfg         config.Config
	Exam        *content.Exam
	Submissions SubmissionAPI
	Chat        ChatAPI
	StoreCheck  func(ctx context.Context) error
}

func NewServer(cfg config.Config, exam *content.Exam, submissions SubmissionAPI, chat ChatAPI, storeCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Exam: exam, Submissions: submissions, Chat: chat, StoreCheck: storeCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

type submitRequest struct {
	Answers   []answerPayload `json:"answers" validate:"required,min=1,dive"`
	StartTime time.Time       `json:"start_time" validate:"required"`
	EndTime   time.Time       `json:"end_time" validate:"required"`
}

type answerPayload struct {
	QuestionID      string            `json:"question_id" validate:"required"`
	SelectedOption  string            `json:"selected_option,omitempty"`
	FillInAnswers   map[string]string `json:"fill_in_answers,omitempty"`
	TimelineAnswers map[string]string `json:"timeline_answers,omitempty"`
}

// examSubQuestion and friends are the public view of the exam: the same shape
// the content files use, minus correct answers and explanations.
type examSubQuestion struct {
	ID           string `json:"id"`
	QuestionText string `json:"question_text"`
	Marks        int    `json:"marks"`
}

type examQuestion struct {
	ID               string                   `json:"id"`
	QuestionNumber   int                      `json:"question_number"`
	QuestionText     string                   `json:"question_text,omitempty"`
	Kind             content.QuestionKind     `json:"type"`
	Options          []string                 `json:"options,omitempty"`
	SubQuestions     []examSubQuestion        `json:"sub_questions,omitempty"`
	TimelineEvents   []content.TimelineEvent  `json:"timeline_events,omitempty"`
	AvailableOptions []content.TimelineOption `json:"available_options,omitempty"`
	TotalMarks       int                      `json:"total_marks"`
	Skill            domain.SkillTag          `json:"skill_type"`
}

type examResponse struct {
	Passage    content.Passage `json:"passage"`
	Questions  []examQuestion  `json:"questions"`
	TotalMarks int             `json:"total_marks"`
}

// ExamHandler serves the exam content with the answer key stripped.
func (s *Server) ExamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := examResponse{
			Passage:    s.Exam.Passage,
			TotalMarks: s.Exam.TotalMarks(),
		}
		for _, q := range s.Exam.Questions {
			eq := examQuestion{
				ID:               q.ID,
				QuestionNumber:   q.QuestionNumber,
				QuestionText:     q.QuestionText,
				Kind:             q.Kind,
				Options:          q.Options,
				TimelineEvents:   q.TimelineEvents,
				AvailableOptions: q.AvailableOptions,
				TotalMarks:       q.TotalMarks,
				Skill:            q.Skill,
			}
			for _, sq := range q.SubQuestions {
				eq.SubQuestions = append(eq.SubQuestions, examSubQuestion{
					ID:           sq.ID,
					QuestionText: sq.QuestionText,
					Marks:        sq.Marks,
				})
			}
			resp.Questions = append(resp.Questions, eq)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// SubmitHandler accepts an answer sheet and starts an async grading run.
func (s *Server) SubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid request body", domain.ErrInvalidArgument), err.Error())
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), err.Error())
			return
		}
		if req.EndTime.Before(req.StartTime) {
			writeError(w, r, fmt.Errorf("%w: end_time before start_time", domain.ErrInvalidArgument), nil)
			return
		}

		answers := make([]domain.Answer, 0, len(req.Answers))
		for _, a := range req.Answers {
			answers = append(answers, domain.Answer{
				QuestionID:      a.QuestionID,
				SelectedOption:  a.SelectedOption,
				FillInAnswers:   a.FillInAnswers,
				TimelineAnswers: a.TimelineAnswers,
			})
		}
		elapsed := int(req.EndTime.Sub(req.StartTime).Seconds())

		id, err := s.Submissions.Submit(r.Context(), answers, elapsed)
		if err != nil {
			LoggerFrom(r).Error("submit failed", "error", err)
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{
			"id":     id,
			"status": string(domain.SubmissionProcessing),
		})
	}
}

// ResultHandler returns the submission record for polling clients.
func (s *Server) ResultHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: missing submission id", domain.ErrInvalidArgument), nil)
			return
		}
		sub, err := s.Submissions.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

// HealthzHandler is a liveness probe.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler reports readiness, including the submission store.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"exam": "ok", "store": "ok"}
		healthy := true
		if s.Exam == nil || len(s.Exam.Questions) == 0 {
			checks["exam"] = "no exam content loaded"
			healthy = false
		}
		if s.StoreCheck != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := s.StoreCheck(ctx); err != nil {
				checks["store"] = err.Error()
				healthy = false
			}
		}
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]any{"healthy": healthy, "checks": checks})
	}
}
