// Package content loads the exam (passage, questions, answer explanations)
// from JSON files in a content directory.
package content

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hkdse-ai/reading-grader/internal/domain"
)

// QuestionKind enumerates authored question types before flattening.
type QuestionKind string

const (
	KindMultipleChoice     QuestionKind = "multiple-choice"
	KindFillInBlank        QuestionKind = "fill-in-blank"
	KindTimelineSequencing QuestionKind = "timeline-sequencing"
)

// Paragraph is one block of the source article.
type Paragraph struct {
	ID      string `json:"id"`
	Type    string `json:"type"` // paragraph or heading
	Level   int    `json:"level,omitempty"`
	Content string `json:"content"`
}

type article struct {
	Title      string      `json:"title"`
	Paragraphs []Paragraph `json:"paragraphs"`
	WordCount  int         `json:"word_count"`
	Difficulty string      `json:"difficulty"`
	Year       int         `json:"year"`
	Reference  string      `json:"reference"`
}

// Passage is the rendered article served to clients.
type Passage struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"` // HTML
	WordCount  int    `json:"word_count"`
	Difficulty string `json:"difficulty"`
	Year       int    `json:"year"`
	Paper      string `json:"paper"`
}

// SubQuestion is one blank of a fill-in-blank question.
type SubQuestion struct {
	ID            string `json:"id"`
	QuestionText  string `json:"question_text"`
	CorrectAnswer string `json:"correct_answer"`
	Marks         int    `json:"marks"`
}

// TimelineEvent is one slot of a sequencing question.
type TimelineEvent struct {
	ID          string `json:"id"`
	Position    string `json:"position"` // i / ii / iii / fixed
	Description string `json:"description"`
}

// TimelineOption is one draggable option of a sequencing question.
type TimelineOption struct {
	Letter      string `json:"letter"`
	Description string `json:"description"`
}

// Question is one authored exam question.
type Question struct {
	ID             string       `json:"id"`
	QuestionNumber int          `json:"question_number"`
	QuestionText   string       `json:"question_text"`
	Kind           QuestionKind `json:"type"`

	// multiple choice
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`

	// fill in blank
	SubQuestions []SubQuestion `json:"sub_questions,omitempty"`

	// timeline sequencing
	TimelineEvents   []TimelineEvent   `json:"timeline_events,omitempty"`
	AvailableOptions []TimelineOption  `json:"available_options,omitempty"`
	CorrectAnswers   map[string]string `json:"correct_answers,omitempty"`

	TotalMarks          int             `json:"total_marks"`
	Explanation         string          `json:"explanation,omitempty"`
	Skill               domain.SkillTag `json:"skill_type"`
	ReferenceParagraphs []string        `json:"reference_paragraphs,omitempty"`
}

// Exam bundles the loaded passage and questions.
type Exam struct {
	Passage   Passage
	Questions []Question

	paragraphs map[string]Paragraph
}

// Load reads article.json, questions.json and answers.json from dir and
// assembles the exam. Explanations live in answers.json and are merged into
// their questions here.
func Load(dir string) (*Exam, error) {
	var art article
	if err := readJSON(filepath.Join(dir, "article.json"), &art); err != nil {
		return nil, err
	}
	var questions []Question
	if err := readJSON(filepath.Join(dir, "questions.json"), &questions); err != nil {
		return nil, err
	}
	answers := map[string]map[string]json.RawMessage{}
	if err := readJSON(filepath.Join(dir, "answers.json"), &answers); err != nil {
		return nil, err
	}

	ex := &Exam{
		Passage: Passage{
			ID:         "dse-2023-flash-fiction",
			Title:      art.Title,
			Content:    renderHTML(art.Paragraphs),
			WordCount:  art.WordCount,
			Difficulty: art.Difficulty,
			Year:       art.Year,
			Paper:      art.Reference,
		},
		Questions:  questions,
		paragraphs: map[string]Paragraph{},
	}
	if ex.Passage.Year == 0 {
		ex.Passage.Year = 2023
	}
	for _, p := range art.Paragraphs {
		ex.paragraphs[p.ID] = p
	}
	for i := range ex.Questions {
		q := &ex.Questions[i]
		if q.Explanation == "" {
			q.Explanation = mergedExplanation(answers[q.ID])
		}
	}
	if err := ex.validate(); err != nil {
		return nil, err
	}
	return ex, nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("op=content.Load file=%s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("op=content.Load file=%s: %w: %v", filepath.Base(path), domain.ErrInvalidArgument, err)
	}
	return nil
}

// renderHTML assembles the paragraph list into one HTML fragment, preserving
// paragraph ids so questions can reference them.
func renderHTML(paras []Paragraph) string {
	var b strings.Builder
	b.WriteString("<div class='passage-content'>")
	for _, p := range paras {
		switch p.Type {
		case "heading":
			level := p.Level
			if level < 1 || level > 6 {
				level = 2
			}
			fmt.Fprintf(&b, `<h%d id="%s">%s</h%d>`, level, p.ID, p.Content, level)
		default:
			fmt.Fprintf(&b, `<p id="%s">%s</p>`, p.ID, p.Content)
		}
	}
	b.WriteString("</div>")
	return b.String()
}

// mergedExplanation extracts the explanation for a question from its
// answers.json entry. Entries either carry a top-level explanation or one per
// sub-question; per-sub explanations are joined in key order.
func mergedExplanation(entry map[string]json.RawMessage) string {
	if entry == nil {
		return ""
	}
	if raw, ok := entry["explanation"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	}
	keys := make([]string, 0, len(entry))
	for k := range entry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		var sub struct {
			Explanation string `json:"explanation"`
		}
		if json.Unmarshal(entry[k], &sub) == nil && sub.Explanation != "" {
			parts = append(parts, sub.Explanation)
		}
	}
	return strings.Join(parts, " | ")
}

func (e *Exam) validate() error {
	if len(e.Questions) == 0 {
		return fmt.Errorf("op=content.validate: no questions: %w", domain.ErrInvalidArgument)
	}
	for _, q := range e.Questions {
		switch q.Kind {
		case KindMultipleChoice:
			if q.CorrectAnswer == "" {
				return fmt.Errorf("op=content.validate question=%s: missing correct_answer: %w", q.ID, domain.ErrInvalidArgument)
			}
		case KindFillInBlank:
			if len(q.SubQuestions) == 0 {
				return fmt.Errorf("op=content.validate question=%s: missing sub_questions: %w", q.ID, domain.ErrInvalidArgument)
			}
		case KindTimelineSequencing:
			if len(q.CorrectAnswers) == 0 {
				return fmt.Errorf("op=content.validate question=%s: missing correct_answers: %w", q.ID, domain.ErrInvalidArgument)
			}
		default:
			return fmt.Errorf("op=content.validate question=%s: unknown type %q: %w", q.ID, q.Kind, domain.ErrInvalidArgument)
		}
		if q.TotalMarks <= 0 {
			return fmt.Errorf("op=content.validate question=%s: non-positive total_marks: %w", q.ID, domain.ErrInvalidArgument)
		}
	}
	return nil
}

// QuestionByID returns the authored question with the given id.
func (e *Exam) QuestionByID(id string) (Question, bool) {
	for _, q := range e.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// TotalMarks sums the marks of every question.
func (e *Exam) TotalMarks() int {
	total := 0
	for _, q := range e.Questions {
		total += q.TotalMarks
	}
	return total
}

// ReferenceText joins the plain text of a question's referenced paragraphs.
func (e *Exam) ReferenceText(q Question) string {
	var parts []string
	for _, id := range q.ReferenceParagraphs {
		if p, ok := e.paragraphs[id]; ok {
			parts = append(parts, p.Content)
		}
	}
	return strings.Join(parts, " ")
}
