package grader

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hkdse-ai/reading-grader/internal/domain"
)

// KeywordSet holds the indicator phrases the Consistency Enforcer scans
// explanations for. Matching is case-insensitive substring containment.
type KeywordSet struct {
	Error   []string `yaml:"error"`
	Correct []string `yaml:"correct"`
}

// DefaultKeywords returns the built-in phrase lists: the Traditional-Chinese
// phrasing the grading prompts elicit plus English equivalents.
func DefaultKeywords() KeywordSet {
	return KeywordSet{
		Error: []string{
			"错误", "錯誤", "不符", "不正确", "不正確", "不对", "不對",
			"失误", "失誤", "问题", "問題", "偏差", "不匹配", "不一致", "不当", "不當",
			"incorrect", "wrong", "does not match", "mismatch", "inaccurate",
		},
		Correct: []string{
			"正确", "正確", "准确", "準確", "成功", "符合", "一致",
			"匹配", "对应", "對應", "恰当", "恰當", "合适", "合適",
			"correct", "accurate", "matches", "well done",
		},
	}
}

// LoadKeywords reads a keyword file, replacing the defaults wholesale. A
// missing or incomplete list is a configuration error, not a silent fallback.
func LoadKeywords(path string) (KeywordSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return KeywordSet{}, fmt.Errorf("op=grader.LoadKeywords: %w", err)
	}
	var ks KeywordSet
	if err := yaml.Unmarshal(b, &ks); err != nil {
		return KeywordSet{}, fmt.Errorf("op=grader.LoadKeywords: %w: %v", domain.ErrInvalidArgument, err)
	}
	if len(ks.Error) == 0 || len(ks.Correct) == 0 {
		return KeywordSet{}, fmt.Errorf("op=grader.LoadKeywords: both error and correct lists are required: %w", domain.ErrInvalidArgument)
	}
	return ks, nil
}

func (k KeywordSet) hasError(text string) bool   { return containsAny(text, k.Error) }
func (k KeywordSet) hasCorrect(text string) bool { return containsAny(text, k.Correct) }

func containsAny(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// enforceConsistency reconciles each correctness flag against the sentiment
// of its explanation. Literal answer equality is authoritative over the
// narrative: a flag only moves toward what the answers actually say.
func enforceConsistency(results []domain.ItemResult, keywords KeywordSet) ([]domain.ItemResult, int) {
	fixes := 0
	for i := range results {
		r := &results[i]
		match := answersMatch(r.UserAnswer, r.CorrectAnswer)
		errorHit := keywords.hasError(r.Explanation)
		correctHit := keywords.hasCorrect(r.Explanation)

		switch {
		case r.IsCorrect && errorHit && !match:
			r.IsCorrect = false
			fixes++
		case !r.IsCorrect && correctHit && match:
			r.IsCorrect = true
			fixes++
		case !r.IsCorrect && !errorHit && match:
			// model omitted commentary but the answers agree
			r.IsCorrect = true
			fixes++
		}
	}
	return results, fixes
}
