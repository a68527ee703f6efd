package domain

// Wire-level grading report. Field names are the external contract consumed
// by the frontend; do not rename tags.

// ItemResult is one graded unit in the report.
// Invariants: QuestionNumber is dense 1..N; UserAnswer always carries the
// ground-truth submitted answer, never the model's echo.
type ItemResult struct {
	QuestionNumber int      `json:"question_number"`
	IsCorrect      bool     `json:"is_correct"`
	UserAnswer     string   `json:"user_answer"`
	CorrectAnswer  string   `json:"correct_answer"`
	Explanation    string   `json:"explanation"`
	SkillAnalysis  SkillTag `json:"skill_analysis"`
	ReferenceText  string   `json:"reference_text,omitempty"`
}

// SkillMastery is one per-skill row of the analytics breakdown.
// Invariants: CorrectCount <= TotalCount; MasteryLevel equals
// CorrectCount/TotalCount within 1e-6.
type SkillMastery struct {
	SkillName              string  `json:"skill_name"`
	MasteryLevel           float64 `json:"mastery_level"`
	CorrectCount           int     `json:"correct_count"`
	TotalCount             int     `json:"total_count"`
	PerformanceDescription string  `json:"performance_description"`
}

// StrengthDetail describes a skill with mastery >= 0.7.
type StrengthDetail struct {
	SkillName    string   `json:"skill_name"`
	MasteryLevel float64  `json:"mastery_level"`
	Description  string   `json:"description"`
	Evidence     []string `json:"evidence,omitempty"`
}

// WeaknessDetail describes a skill with mastery < 0.6.
type WeaknessDetail struct {
	SkillName              string   `json:"skill_name"`
	MasteryLevel           float64  `json:"mastery_level"`
	Description            string   `json:"description"`
	ImprovementSuggestions []string `json:"improvement_suggestions,omitempty"`
	PracticeFocus          string   `json:"practice_focus,omitempty"`
}

// Report is the full grading result.
// Invariants: len(Results) == TotalQuestions; CorrectCount equals the number
// of true IsCorrect flags; FinalScore == CorrectCount/TotalQuestions.
type Report struct {
	Results            []ItemResult     `json:"results"`
	FinalScore         float64          `json:"final_score"`
	CorrectCount       int              `json:"correct_count"`
	TotalQuestions     int              `json:"total_questions"`
	AbilityAnalysis    string           `json:"ability_analysis"`
	SkillBreakdown     []SkillMastery   `json:"skill_breakdown"`
	StrengthsDetailed  []StrengthDetail `json:"strengths_detailed"`
	WeaknessesDetailed []WeaknessDetail `json:"weaknesses_detailed"`
	Strengths          []string         `json:"strengths"`
	Weaknesses         []string         `json:"weaknesses"`
	Recommendations    []string         `json:"recommendations"`
	TimeSpent          int              `json:"time_spent"`
}
