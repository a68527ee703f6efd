package grader

import (
	"fmt"
	"math"
	"strings"

	"github.com/hkdse-ai/reading-grader/internal/domain"
)

// skillStat is the actual per-skill performance computed from ground truth
// and the reconciled correctness flags.
type skillStat struct {
	tag      domain.SkillTag
	correct  int
	total    int
	ordinals []int
}

func (s skillStat) mastery() float64 {
	if s.total == 0 {
		return 0
	}
	return float64(s.correct) / float64(s.total)
}

// computeSkillStats groups grading units by skill tag in order of first
// appearance and counts correct flags from the aligned results.
func computeSkillStats(results []domain.ItemResult, gt *domain.GroundTruthContext) []skillStat {
	index := map[string]int{}
	var stats []skillStat
	for i, item := range gt.Items {
		key := item.Skill.Canon()
		pos, ok := index[key]
		if !ok {
			pos = len(stats)
			index[key] = pos
			stats = append(stats, skillStat{tag: item.Skill})
		}
		stats[pos].total++
		stats[pos].ordinals = append(stats[pos].ordinals, item.Ordinal)
		if i < len(results) && results[i].IsCorrect {
			stats[pos].correct++
		}
	}
	return stats
}

// reconcileSkills validates the model's skill breakdown against actual
// per-skill performance, rebuilds the strength/weakness lists and detailed
// entries, and fills in analytics the model omitted. Returns the number of
// corrections applied.
func reconcileSkills(report *domain.Report, gt *domain.GroundTruthContext) int {
	stats := computeSkillStats(report.Results, gt)
	byTag := make(map[string]skillStat, len(stats))
	for _, s := range stats {
		byTag[s.tag.Canon()] = s
	}

	fixes := 0
	covered := map[string]bool{}
	var breakdown []domain.SkillMastery
	var supplementary []domain.SkillMastery

	for _, entry := range report.SkillBreakdown {
		tag := domain.ParseSkillTag(entry.SkillName)
		actual, ok := byTag[tag.Canon()]
		if !ok {
			// model-invented tag: kept as commentary, never checked
			supplementary = append(supplementary, entry)
			continue
		}
		covered[tag.Canon()] = true
		if entry.CorrectCount != actual.correct || entry.TotalCount != actual.total ||
			math.Abs(entry.MasteryLevel-actual.mastery()) > 0.05 {
			fixes++
			desc := entry.PerformanceDescription
			if desc == "" {
				desc = performanceDescription(tag, actual.mastery())
			}
			entry = domain.SkillMastery{
				SkillName:              tag.DisplayName(),
				MasteryLevel:           actual.mastery(),
				CorrectCount:           actual.correct,
				TotalCount:             actual.total,
				PerformanceDescription: desc,
			}
		}
		breakdown = append(breakdown, entry)
	}

	for _, s := range stats {
		if covered[s.tag.Canon()] {
			continue
		}
		fixes++
		breakdown = append(breakdown, domain.SkillMastery{
			SkillName:              s.tag.DisplayName(),
			MasteryLevel:           s.mastery(),
			CorrectCount:           s.correct,
			TotalCount:             s.total,
			PerformanceDescription: performanceDescription(s.tag, s.mastery()),
		})
	}
	breakdown = append(breakdown, supplementary...)
	report.SkillBreakdown = breakdown

	rebuildStrengthsWeaknesses(report, stats)

	if report.AbilityAnalysis == "" {
		report.AbilityAnalysis = abilityAnalysis(report.Strengths, report.Weaknesses, report.FinalScore)
		fixes++
	}
	if len(report.Recommendations) == 0 {
		report.Recommendations = defaultRecommendations(report.Weaknesses)
		fixes++
	}
	return fixes
}

// rebuildStrengthsWeaknesses regenerates the threshold-partitioned lists from
// actual per-skill performance: >= 0.7 strengths, < 0.6 weaknesses, the band
// between appears in neither.
func rebuildStrengthsWeaknesses(report *domain.Report, stats []skillStat) {
	var strengths, weaknesses []string
	var strengthsDetailed []domain.StrengthDetail
	var weaknessesDetailed []domain.WeaknessDetail

	for _, s := range stats {
		m := s.mastery()
		name := s.tag.DisplayName()
		switch {
		case m >= 0.7:
			strengths = append(strengths, name)
			strengthsDetailed = append(strengthsDetailed, domain.StrengthDetail{
				SkillName:    name,
				MasteryLevel: m,
				Description:  strengthDescription(s.tag, m),
				Evidence:     evidenceForSkill(s, report.Results, true),
			})
		case m < 0.6:
			weaknesses = append(weaknesses, name)
			weaknessesDetailed = append(weaknessesDetailed, domain.WeaknessDetail{
				SkillName:              name,
				MasteryLevel:           m,
				Description:            weaknessDescription(s.tag, m),
				ImprovementSuggestions: improvementSuggestions(s.tag),
				PracticeFocus:          practiceFocus(s.tag),
			})
		}
	}

	report.Strengths = strengths
	report.Weaknesses = weaknesses
	report.StrengthsDetailed = strengthsDetailed
	report.WeaknessesDetailed = weaknessesDetailed
}

// evidenceForSkill cites up to three of the skill's items matching the
// requested outcome.
func evidenceForSkill(s skillStat, results []domain.ItemResult, wantCorrect bool) []string {
	var evidence []string
	for _, ord := range s.ordinals {
		if len(evidence) == 3 {
			break
		}
		if ord < 1 || ord > len(results) {
			continue
		}
		r := results[ord-1]
		if r.IsCorrect != wantCorrect {
			continue
		}
		if wantCorrect {
			evidence = append(evidence, fmt.Sprintf("Answered item %d correctly with %q.", ord, r.UserAnswer))
		} else {
			evidence = append(evidence, fmt.Sprintf("Item %d: answered %q, correct answer %q.", ord, r.UserAnswer, r.CorrectAnswer))
		}
	}
	if len(evidence) == 0 {
		evidence = []string{fmt.Sprintf("Answered %d of %d %s item(s) correctly.", s.correct, s.total, s.tag.DisplayName())}
	}
	return evidence
}

func performanceDescription(tag domain.SkillTag, mastery float64) string {
	name := tag.DisplayName()
	switch {
	case mastery >= 0.9:
		return fmt.Sprintf("Excellent command of %s: related items were handled accurately and confidently.", name)
	case mastery >= 0.7:
		return fmt.Sprintf("Good command of %s: most related items were answered correctly.", name)
	case mastery >= 0.5:
		return fmt.Sprintf("Fair command of %s: there is clear room to improve with targeted practice.", name)
	default:
		return fmt.Sprintf("%s needs improvement: focused practice on this skill is recommended.", name)
	}
}

func strengthDescription(tag domain.SkillTag, mastery float64) string {
	pct := int(mastery * 100)
	switch tag.Canon() {
	case "vocabulary":
		return fmt.Sprintf("Strong vocabulary understanding at %d%% mastery: you recognize word meanings in context and handle synonym substitution well.", pct)
	case "detail":
		return fmt.Sprintf("Strong detail comprehension at %d%% mastery: you locate and extract key information from the passage accurately.", pct)
	case "inference":
		return fmt.Sprintf("Strong inferential reasoning at %d%% mastery: you draw sound conclusions from what the passage implies.", pct)
	case "main-idea":
		return fmt.Sprintf("Strong grasp of main ideas at %d%% mastery: you identify the central point of the passage reliably.", pct)
	case "structure":
		return fmt.Sprintf("Strong text-structure analysis at %d%% mastery: you follow how the passage is organized.", pct)
	case "sequencing":
		return fmt.Sprintf("Strong sequencing skills at %d%% mastery: you order events and track time relationships accurately.", pct)
	default:
		return fmt.Sprintf("Strong performance in %s at %d%% mastery.", tag.DisplayName(), pct)
	}
}

func weaknessDescription(tag domain.SkillTag, mastery float64) string {
	pct := int(mastery * 100)
	switch tag.Canon() {
	case "vocabulary":
		return fmt.Sprintf("Vocabulary understanding needs work (%d%% mastery): polysemous words and synonym substitution are causing difficulty.", pct)
	case "detail":
		return fmt.Sprintf("Detail comprehension needs work (%d%% mastery): locating and extracting key information is not yet reliable.", pct)
	case "inference":
		return fmt.Sprintf("Inferential reasoning needs work (%d%% mastery): conclusions drawn from implied information are often off target.", pct)
	case "main-idea":
		return fmt.Sprintf("Main-idea identification needs work (%d%% mastery): the overall thread of the passage is being missed.", pct)
	case "structure":
		return fmt.Sprintf("Text-structure analysis needs work (%d%% mastery): how the passage is organized is not yet clear to you.", pct)
	case "sequencing":
		return fmt.Sprintf("Sequencing needs work (%d%% mastery): ordering events and tracking time relationships is a significant difficulty.", pct)
	default:
		return fmt.Sprintf("%s needs further work (%d%% mastery).", tag.DisplayName(), pct)
	}
}

func improvementSuggestions(tag domain.SkillTag) []string {
	switch tag.Canon() {
	case "vocabulary":
		return []string{
			"Read widely across genres to grow your vocabulary.",
			"Study how word meanings shift with context.",
			"Practice synonym-substitution and word-discrimination exercises.",
		}
	case "detail":
		return []string{
			"Practice scanning techniques for locating key information quickly.",
			"Learn to spot the keywords in each question before reading.",
			"Pay extra attention to numbers, dates and named entities.",
		}
	case "inference":
		return []string{
			"Practice questions that require reading between the lines.",
			"Learn to trace logical relationships within the passage.",
			"Work on identifying the author's intent from indirect cues.",
		}
	case "sequencing":
		return []string{
			"Mark time-signal words while you read.",
			"Draw a timeline and place events on it in order.",
			"Do dedicated event-ordering exercises.",
		}
	default:
		return []string{
			fmt.Sprintf("Practice more %s question types.", tag.DisplayName()),
			"Strengthen the fundamentals with regular reading.",
		}
	}
}

func practiceFocus(tag domain.SkillTag) string {
	switch tag.Canon() {
	case "vocabulary":
		return "Focus on word-discrimination and synonym-substitution questions; spend 15 minutes a day on new vocabulary."
	case "detail":
		return "Focus on information-location questions; do two or three detail items daily to stay sharp."
	case "inference":
		return "Focus on inference questions; one or two per day builds the reasoning habit."
	case "sequencing":
		return "Focus on event-ordering questions; spend 15 minutes a day practicing sequencing."
	default:
		return fmt.Sprintf("Focus on %s question types and build up gradually.", tag.DisplayName())
	}
}

func abilityAnalysis(strengths, weaknesses []string, finalScore float64) string {
	var b strings.Builder
	switch {
	case len(strengths) == 0 && len(weaknesses) == 0:
		b.WriteString("Overall performance is balanced across skills; keep practicing to push every area higher. ")
	default:
		if len(strengths) > 0 {
			fmt.Fprintf(&b, "You performed well in %s. ", strings.Join(strengths, ", "))
		}
		if len(weaknesses) > 0 {
			fmt.Fprintf(&b, "More practice is needed in %s. ", strings.Join(weaknesses, ", "))
		}
	}
	switch {
	case finalScore >= 0.8:
		b.WriteString("Your reading approach is clear and the overall result is excellent.")
	case finalScore >= 0.6:
		b.WriteString("A solid overall result; steady practice will lift it further.")
	default:
		b.WriteString("Strengthening the fundamentals will improve your overall comprehension.")
	}
	return b.String()
}

func defaultRecommendations(weaknesses []string) []string {
	recs := []string{
		"Keep up regular reading-comprehension practice.",
		"Read each question carefully before searching the passage.",
	}
	if len(weaknesses) > 0 {
		recs = append(recs, fmt.Sprintf("Prioritize practice on %s.", strings.Join(weaknesses, ", ")))
	} else {
		recs = append(recs, "Work on answering accurately under time pressure.")
	}
	return recs
}
