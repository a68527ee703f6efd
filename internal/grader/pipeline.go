package grader

import (
	"log/slog"

	"github.com/hkdse-ai/reading-grader/internal/domain"
)

// Failure reasons recorded in an Outcome when the fallback path runs.
const (
	FailureNone       = ""
	FailureExtraction = "extraction"
	FailureRepair     = "repair"
	FailureValidation = "validation"
	FailureUpstream   = "upstream"
)

// Outcome is the diagnostics narrative of one pipeline run: which path
// produced the report and every correction applied along the way.
type Outcome struct {
	// Path is "model" when the report came from the parsed model payload and
	// "fallback" when deterministic grading produced it.
	Path           string
	RepairStrategy string
	FailureReason  string
	Corrections    map[string]int
}

func (o Outcome) totalCorrections() int {
	n := 0
	for _, c := range o.Corrections {
		n += c
	}
	return n
}

// Pipeline reconciles raw model text against ground truth. It is pure
// in-memory computation: no I/O, no shared state, safe to run concurrently.
type Pipeline struct {
	keywords KeywordSet
	repair   *RepairChain
	logger   *slog.Logger
}

func NewPipeline(keywords KeywordSet, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{keywords: keywords, repair: NewRepairChain(), logger: logger}
}

// Grade never returns an error: every failure mode routes to the fallback
// grader, which always yields a structurally valid report.
func (p *Pipeline) Grade(raw string, gt *domain.GroundTruthContext) (domain.Report, Outcome) {
	out := Outcome{Path: "model", Corrections: map[string]int{}}

	candidate, ok := ExtractPayload(raw)
	if !ok {
		return p.fallback(gt, &out, FailureExtraction)
	}

	obj, strategy, err := p.repair.Run(candidate)
	if err != nil {
		p.logger.Warn("payload unrecoverable", slog.Any("error", err))
		return p.fallback(gt, &out, FailureRepair)
	}
	out.RepairStrategy = strategy
	if strategy != "as-is" {
		p.logger.Info("payload repaired", slog.String("strategy", strategy))
	}

	payload, err := ValidatePayload(obj)
	if err != nil {
		p.logger.Warn("payload rejected", slog.Any("error", err))
		return p.fallback(gt, &out, FailureValidation)
	}

	results, irregular := alignResults(payload.Results, gt)
	if irregular > 0 {
		out.Corrections["alignment"] = irregular
		p.logger.Warn("item results misaligned", slog.Int("count", irregular))
	}

	report := domain.Report{
		Results:            results,
		FinalScore:         payload.FinalScore,
		CorrectCount:       payload.CorrectCount,
		TotalQuestions:     payload.TotalQuestions,
		AbilityAnalysis:    payload.AbilityAnalysis,
		SkillBreakdown:     payload.SkillBreakdown,
		StrengthsDetailed:  payload.StrengthsDetailed,
		WeaknessesDetailed: payload.WeaknessesDetailed,
		Strengths:          payload.Strengths,
		Weaknesses:         payload.Weaknesses,
		Recommendations:    payload.Recommendations,
		TimeSpent:          gt.ElapsedSeconds,
	}

	if fixes := p.reconcile(&report, gt, &out); fixes > 0 {
		p.logger.Warn("report reconciled", slog.Int("corrections", fixes))
	}
	return report, out
}

// GradeFallback runs the deterministic path directly. Callers use it when the
// upstream model call itself failed, timed out or was cancelled.
func (p *Pipeline) GradeFallback(gt *domain.GroundTruthContext) (domain.Report, Outcome) {
	out := Outcome{Path: "model", Corrections: map[string]int{}}
	return p.fallback(gt, &out, FailureUpstream)
}

func (p *Pipeline) fallback(gt *domain.GroundTruthContext, out *Outcome, reason string) (domain.Report, Outcome) {
	out.Path = "fallback"
	out.FailureReason = reason
	p.logger.Warn("deterministic fallback grading", slog.String("reason", reason))
	return Fallback(gt), *out
}

func (p *Pipeline) reconcile(report *domain.Report, gt *domain.GroundTruthContext, out *Outcome) int {
	results, answerFixes := reconcileAnswers(report.Results, gt)
	if answerFixes > 0 {
		out.Corrections["answer"] = answerFixes
	}

	results, consistencyFixes := enforceConsistency(results, p.keywords)
	if consistencyFixes > 0 {
		out.Corrections["consistency"] = consistencyFixes
	}
	report.Results = results

	if recalculateAggregates(report) {
		out.Corrections["aggregate"]++
	}

	if skillFixes := reconcileSkills(report, gt); skillFixes > 0 {
		out.Corrections["skills"] = skillFixes
	}
	return out.totalCorrections()
}
