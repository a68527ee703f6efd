package grader

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/hkdse-ai/reading-grader/internal/domain"
	"github.com/hkdse-ai/reading-grader/pkg/textx"
)

// payload is the canonical in-memory form of a parsed model response. All
// external spellings have been normalized and required fields verified.
type payload struct {
	Results            []payloadResult
	FinalScore         float64
	CorrectCount       int
	TotalQuestions     int
	AbilityAnalysis    string
	SkillBreakdown     []domain.SkillMastery
	StrengthsDetailed  []domain.StrengthDetail
	WeaknessesDetailed []domain.WeaknessDetail
	Strengths          []string
	Weaknesses         []string
	Recommendations    []string
}

type payloadResult struct {
	QuestionNumber int
	IsCorrect      bool
	UserAnswer     string
	CorrectAnswer  string
	Explanation    string
	SkillAnalysis  string
	ReferenceText  string
}

// wire mirrors of the payload with pointers on required fields so their
// absence is distinguishable from zero values.
type wirePayload struct {
	Results            *[]wireResult           `json:"results"`
	FinalScore         *float64                `json:"final_score"`
	CorrectCount       *float64                `json:"correct_count"`
	TotalQuestions     *float64                `json:"total_questions"`
	AbilityAnalysis    string                  `json:"ability_analysis"`
	SkillBreakdown     []wireSkill             `json:"skill_breakdown"`
	StrengthsDetailed  []domain.StrengthDetail `json:"strengths_detailed"`
	WeaknessesDetailed []domain.WeaknessDetail `json:"weaknesses_detailed"`
	Strengths          []string                `json:"strengths"`
	Weaknesses         []string                `json:"weaknesses"`
	Recommendations    []string                `json:"recommendations"`
}

type wireResult struct {
	QuestionNumber float64         `json:"question_number"`
	IsCorrect      bool            `json:"is_correct"`
	UserAnswer     string          `json:"user_answer"`
	CorrectAnswer  string          `json:"correct_answer"`
	Explanation    json.RawMessage `json:"explanation"`
	SkillAnalysis  string          `json:"skill_analysis"`
	ReferenceText  string          `json:"reference_text"`
}

type wireSkill struct {
	SkillName              string  `json:"skill_name"`
	MasteryLevel           float64 `json:"mastery_level"`
	CorrectCount           float64 `json:"correct_count"`
	TotalCount             float64 `json:"total_count"`
	PerformanceDescription string  `json:"performance_description"`
}

// ValidatePayload normalizes field names in the parsed object and checks the
// required fields. Optional sections default to empty; missing required
// fields are a schema failure.
func ValidatePayload(obj map[string]any) (*payload, error) {
	canon := canonicalizeKeys(obj)
	raw, err := json.Marshal(canon)
	if err != nil {
		return nil, fmt.Errorf("op=schema.Validate: %w: %v", domain.ErrSchemaInvalid, err)
	}
	var w wirePayload
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("op=schema.Validate: %w: %v", domain.ErrSchemaInvalid, err)
	}
	switch {
	case w.Results == nil:
		return nil, fmt.Errorf("op=schema.Validate: missing results: %w", domain.ErrSchemaInvalid)
	case w.FinalScore == nil:
		return nil, fmt.Errorf("op=schema.Validate: missing final_score: %w", domain.ErrSchemaInvalid)
	case w.CorrectCount == nil:
		return nil, fmt.Errorf("op=schema.Validate: missing correct_count: %w", domain.ErrSchemaInvalid)
	case w.TotalQuestions == nil:
		return nil, fmt.Errorf("op=schema.Validate: missing total_questions: %w", domain.ErrSchemaInvalid)
	}

	p := &payload{
		FinalScore:         *w.FinalScore,
		CorrectCount:       int(*w.CorrectCount),
		TotalQuestions:     int(*w.TotalQuestions),
		AbilityAnalysis:    textx.SanitizeText(w.AbilityAnalysis),
		StrengthsDetailed:  w.StrengthsDetailed,
		WeaknessesDetailed: w.WeaknessesDetailed,
		Strengths:          w.Strengths,
		Weaknesses:         w.Weaknesses,
		Recommendations:    w.Recommendations,
	}
	for _, r := range *w.Results {
		p.Results = append(p.Results, payloadResult{
			QuestionNumber: int(r.QuestionNumber),
			IsCorrect:      r.IsCorrect,
			UserAnswer:     r.UserAnswer,
			CorrectAnswer:  r.CorrectAnswer,
			Explanation:    textx.SanitizeText(flattenExplanation(r.Explanation)),
			SkillAnalysis:  r.SkillAnalysis,
			ReferenceText:  r.ReferenceText,
		})
	}
	for _, s := range w.SkillBreakdown {
		p.SkillBreakdown = append(p.SkillBreakdown, domain.SkillMastery{
			SkillName:              s.SkillName,
			MasteryLevel:           s.MasteryLevel,
			CorrectCount:           int(s.CorrectCount),
			TotalCount:             int(s.TotalCount),
			PerformanceDescription: s.PerformanceDescription,
		})
	}
	return p, nil
}

// canonicalizeKeys rewrites every object key to snake_case recursively, so
// camelCase spellings land on the same canonical fields.
func canonicalizeKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[snakeCase(k)] = canonicalizeKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = canonicalizeKeys(val)
		}
		return out
	default:
		return v
	}
}

func snakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// flattenExplanation renders an explanation that arrived as a structured
// object into one string; models sometimes split the explanation into
// sections instead of writing a single paragraph.
func flattenExplanation(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj map[string]any
	if json.Unmarshal(raw, &obj) == nil {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			if v, ok := obj[k].(string); ok && v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, " ")
	}
	return strings.Trim(string(raw), `"`)
}
