// Package usecase orchestrates grading runs: it accepts submissions, drives
// the model and reconciliation pipeline in the background, and serves polled
// results.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hkdse-ai/reading-grader/internal/adapter/observability"
	"github.com/hkdse-ai/reading-grader/internal/config"
	"github.com/hkdse-ai/reading-grader/internal/content"
	"github.com/hkdse-ai/reading-grader/internal/domain"
	"github.com/hkdse-ai/reading-grader/internal/grader"
)

// SubmissionService runs gradings asynchronously against one loaded exam.
type SubmissionService struct {
	cfg      config.Config
	store    domain.SubmissionStore
	ai       domain.AIClient
	exam     *content.Exam
	pipeline *grader.Pipeline
	logger   *slog.Logger

	// wg tracks background gradings so shutdown can wait for them.
	wg sync.WaitGroup
}

func NewSubmissionService(cfg config.Config, store domain.SubmissionStore, ai domain.AIClient, exam *content.Exam, pipeline *grader.Pipeline, logger *slog.Logger) *SubmissionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionService{
		cfg:      cfg,
		store:    store,
		ai:       ai,
		exam:     exam,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Submit validates the answers against the exam, stores a processing record
// and starts grading in the background. It returns the submission id.
func (s *SubmissionService) Submit(ctx context.Context, answers []domain.Answer, elapsedSeconds int) (string, error) {
	gt, err := grader.BuildContext(s.exam, answers, elapsedSeconds)
	if err != nil {
		return "", fmt.Errorf("op=usecase.Submit: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	sub := domain.Submission{
		ID:        id,
		Status:    domain.SubmissionProcessing,
		Progress:  10,
		Message:   "grading in progress",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Set(ctx, sub, s.cfg.SubmissionTTL); err != nil {
		return "", fmt.Errorf("op=usecase.Submit id=%s: %w", id, err)
	}

	observability.GradingsStartedTotal.Inc()
	s.logger.Info("submission accepted",
		slog.String("submission_id", id),
		slog.Int("items", len(gt.Items)),
		slog.Int("elapsed_seconds", elapsedSeconds))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GradingTimeout)
		defer cancel()
		s.grade(ctx, sub, gt)
	}()

	return id, nil
}

func (s *SubmissionService) grade(ctx context.Context, sub domain.Submission, gt *domain.GroundTruthContext) {
	prompt := grader.BuildPrompt(s.exam.Passage, gt)

	var (
		report  domain.Report
		outcome grader.Outcome
	)
	raw, err := s.ai.ChatJSON(ctx, grader.SystemPrompt, prompt, s.cfg.GradingMaxTokens)
	if err != nil {
		s.logger.Warn("model call failed, grading deterministically",
			slog.String("submission_id", sub.ID),
			slog.Any("error", err))
		report, outcome = s.pipeline.GradeFallback(gt)
	} else {
		report, outcome = s.pipeline.Grade(raw, gt)
	}

	observability.ObserveGrading(outcome.Path, report.FinalScore)
	if outcome.RepairStrategy != "" {
		observability.RepairsTotal.WithLabelValues(outcome.RepairStrategy).Inc()
	}
	for kind, n := range outcome.Corrections {
		observability.PipelineCorrectionsTotal.WithLabelValues(kind).Add(float64(n))
	}

	sub.Status = domain.SubmissionCompleted
	sub.Progress = 100
	sub.Message = "grading complete"
	sub.Report = &report
	sub.UpdatedAt = time.Now().UTC()
	// The grading context may already be expired when the model call burned
	// the whole timeout; the completed record must still land in the store.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.store.Set(storeCtx, sub, s.cfg.SubmissionTTL); err != nil {
		observability.GradingsFailedTotal.Inc()
		s.logger.Error("failed to store completed submission",
			slog.String("submission_id", sub.ID),
			slog.Any("error", err))
		return
	}

	s.logger.Info("grading completed",
		slog.String("submission_id", sub.ID),
		slog.String("path", outcome.Path),
		slog.String("repair_strategy", outcome.RepairStrategy),
		slog.String("failure_reason", outcome.FailureReason),
		slog.Float64("final_score", report.FinalScore))
}

// Get returns the submission record. Processing records whose last update is
// older than the grading timeout plus a grace period are marked failed, so
// clients do not poll a dead run forever.
func (s *SubmissionService) Get(ctx context.Context, id string) (domain.Submission, error) {
	sub, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Submission{}, fmt.Errorf("%w: submission %s", domain.ErrNotFound, id)
		}
		return domain.Submission{}, fmt.Errorf("op=usecase.Get id=%s: %w", id, err)
	}

	if sub.Status == domain.SubmissionProcessing {
		staleAfter := s.cfg.GradingTimeout + 30*time.Second
		if time.Since(sub.UpdatedAt) > staleAfter {
			s.logger.Warn("marking stale submission failed",
				slog.String("submission_id", id),
				slog.Duration("age", time.Since(sub.UpdatedAt)))
			sub.Status = domain.SubmissionFailed
			sub.Error = "timeout: grading exceeded the allotted time"
			sub.Message = ""
			sub.UpdatedAt = time.Now().UTC()
			observability.GradingsFailedTotal.Inc()
			_ = s.store.Set(ctx, sub, s.cfg.SubmissionTTL)
		}
	}
	return sub, nil
}

// Wait blocks until all background gradings finish. Used during shutdown.
func (s *SubmissionService) Wait() {
	s.wg.Wait()
}
