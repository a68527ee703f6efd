package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrInternal          = errors.New("internal error")
)

// UnitKind enumerates grading-unit kinds after flattening. A multi-part
// question contributes one unit per blank or sequence position.
type UnitKind string

const (
	UnitSingleChoice UnitKind = "single-choice"
	UnitFillInBlank  UnitKind = "fill-in-blank"
	UnitSequencing   UnitKind = "sequencing"
)

// NotAnswered is the sentinel for a blank or placeholder submission.
const NotAnswered = "not answered"

// NormalizeSubmitted maps empty strings and frontend placeholder values to
// the NotAnswered sentinel; everything else is returned trimmed.
func NormalizeSubmitted(raw string) string {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", "undefined", "null":
		return NotAnswered
	}
	return s
}

// GroundTruthItem is one dense grading unit: what the student should have
// answered and what they actually submitted.
// Invariants: Ordinal is 1-based and dense within a context; Correct is the
// authoritative answer and never empty; Submitted is normalized.
type GroundTruthItem struct {
	Ordinal     int
	Kind        UnitKind
	Skill       SkillTag
	QuestionID  string
	Prompt      string
	Correct     string
	Submitted   string
	Explanation string
	Reference   string
	Marks       int
}

// Answered reports whether the student gave any answer for this unit.
func (i GroundTruthItem) Answered() bool {
	return i.Submitted != NotAnswered && strings.TrimSpace(i.Submitted) != ""
}

// GroundTruthContext is the ordered set of grading units for one submission.
type GroundTruthContext struct {
	Items          []GroundTruthItem
	TotalMarks     int
	ElapsedSeconds int
}

// NewGroundTruthContext validates and builds a grading context. It fails only
// when there is nothing to grade; ordinals are (re)assigned densely from 1.
func NewGroundTruthContext(items []GroundTruthItem, elapsedSeconds int) (*GroundTruthContext, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("grading context: no units: %w", ErrInvalidArgument)
	}
	total := 0
	out := make([]GroundTruthItem, len(items))
	for i, it := range items {
		it.Ordinal = i + 1
		it.Submitted = NormalizeSubmitted(it.Submitted)
		if it.Marks <= 0 {
			it.Marks = 1
		}
		total += it.Marks
		out[i] = it
	}
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	return &GroundTruthContext{Items: out, TotalMarks: total, ElapsedSeconds: elapsedSeconds}, nil
}

// ItemByOrdinal returns the unit with the given 1-based ordinal.
func (c *GroundTruthContext) ItemByOrdinal(n int) (GroundTruthItem, bool) {
	if n < 1 || n > len(c.Items) {
		return GroundTruthItem{}, false
	}
	return c.Items[n-1], true
}

// Answer is one submitted answer keyed by authored question. Exactly one of
// the payload fields is meaningful depending on the question kind.
type Answer struct {
	QuestionID      string            `json:"question_id" validate:"required"`
	SelectedOption  string            `json:"selected_option,omitempty"`
	FillInAnswers   map[string]string `json:"fill_in_answers,omitempty"`
	TimelineAnswers map[string]string `json:"timeline_answers,omitempty"`
}

// SubmissionStatus tracks the lifecycle of an async grading run.
type SubmissionStatus string

const (
	SubmissionProcessing SubmissionStatus = "processing"
	SubmissionCompleted  SubmissionStatus = "completed"
	SubmissionFailed     SubmissionStatus = "failed"
)

// Submission is the stored record a client polls while grading runs.
type Submission struct {
	ID        string           `json:"id"`
	Status    SubmissionStatus `json:"status"`
	Progress  int              `json:"progress"`
	Message   string           `json:"message,omitempty"`
	Report    *Report          `json:"report,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// SubmissionStore (port) is a keyed record store with expiry. Implementations
// must be safe for concurrent use.
type SubmissionStore interface {
	Set(ctx context.Context, sub Submission, ttl time.Duration) error
	Get(ctx context.Context, id string) (Submission, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// AIClient (port)
type AIClient interface {
	// ChatJSON sends a system+user prompt pair and returns the raw assistant
	// text. Callers must not assume the text is valid JSON.
	ChatJSON(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// ChatMessage is one turn of a tutoring conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// ChatStreamer (port) streams assistant text incrementally.
type ChatStreamer interface {
	// StreamChat sends the conversation and invokes deliver once per content
	// delta, in order. It returns when the stream ends, deliver fails or ctx
	// is done.
	StreamChat(ctx context.Context, messages []ChatMessage, deliver func(delta string) error) error
}
