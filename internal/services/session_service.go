package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/SAP-F-2025/adaptive-testing-service/internal/engine"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/events"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/pool"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/repositories"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/utils"
	"gorm.io/datatypes"
)

// SessionService owns the adaptive session lifecycle:
// created -> in_progress -> {completed, abandoned}. Terminal states are final.
type SessionService interface {
	Start(ctx context.Context, req *StartSessionRequest) (*models.Session, error)
	GetByID(ctx context.Context, id uint) (*models.Session, error)
	List(ctx context.Context, filters repositories.SessionFilters) ([]*models.Session, int64, error)

	// NextItem selects and reserves the next question. Returns
	// ErrNoEligibleItems when the pool is exhausted under the session's
	// constraints; the caller should then Complete the session.
	NextItem(ctx context.Context, sessionID uint) (*models.Item, error)

	// SubmitResponse scores the answer, re-estimates ability and evaluates
	// the stopping rules. The whole step is atomic: on failure the session's
	// prior theta, SE and history remain intact.
	SubmitResponse(ctx context.Context, req *SubmitResponseRequest) (*SubmitResponseResult, error)

	// Complete finalizes the session and returns its report. Idempotent on
	// already-completed sessions.
	Complete(ctx context.Context, sessionID uint) (*models.Report, error)

	// Abandon marks the session abandoned, keeping partial theta/SE for
	// diagnostics. No report is generated.
	Abandon(ctx context.Context, sessionID uint) error
}

type StartSessionRequest struct {
	PoolID     uint                 `json:"pool_id" validate:"required"`
	ExamineeID string               `json:"examinee_id" validate:"required,max=100"`
	Config     models.SessionConfig `json:"config" validate:"required"`
}

type SubmitResponseRequest struct {
	SessionID    uint   `json:"session_id" validate:"required"`
	ItemID       uint   `json:"item_id" validate:"required"`
	Answer       string `json:"answer" validate:"required,max=500"`
	ResponseTime int    `json:"response_time" validate:"min=0"`
}

type SubmitResponseResult struct {
	IsCorrect  bool    `json:"is_correct"`
	Theta      float64 `json:"theta"`
	SE         float64 `json:"se"`
	Completed  bool    `json:"completed"`
	StopReason string  `json:"stop_reason,omitempty"`
}

// stopReasonCallerRequested marks completions forced through Complete rather
// than triggered by the stopping rules.
const stopReasonCallerRequested = "caller_requested"

type sessionService struct {
	repo      repositories.Repository
	logger    utils.Logger
	validator *utils.Validator
	pools     PoolService
	reports   ReportService
	publisher events.EventPublisher

	selector *engine.Selector
	stopRule *engine.StoppingRule
}

func NewSessionService(
	repo repositories.Repository,
	logger utils.Logger,
	validator *utils.Validator,
	pools PoolService,
	reports ReportService,
	publisher events.EventPublisher,
) SessionService {
	selector := engine.NewSelector()
	return &sessionService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		pools:     pools,
		reports:   reports,
		publisher: publisher,
		selector:  selector,
		stopRule:  engine.NewStoppingRule(selector),
	}
}

// ===== LIFECYCLE =====

func (s *sessionService) Start(ctx context.Context, req *StartSessionRequest) (*models.Session, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	cfg := req.Config
	cfg.ApplyDefaults()
	if err := s.validator.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Runtime construction verifies the pool is published and non-empty.
	if _, err := s.pools.Runtime(ctx, req.PoolID); err != nil {
		return nil, err
	}

	sess := &models.Session{
		PoolID:        req.PoolID,
		ExamineeID:    req.ExamineeID,
		Status:        models.SessionInProgress,
		Theta:         engine.Clamp(cfg.InitialAbility),
		StandardError: 0, // sentinel: precision undefined until responses arrive
		Config:        datatypes.NewJSONType(cfg),
		StartedAt:     time.Now(),
	}
	if err := s.repo.Session().Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.publishEvent(ctx, events.NewSessionEvent(events.SessionStarted, sess.ID, sess.PoolID, sess.ExamineeID))

	s.logger.Info("Session started",
		"session_id", sess.ID,
		"pool_id", sess.PoolID,
		"examinee_id", sess.ExamineeID,
		"initial_theta", sess.Theta)

	return sess, nil
}

func (s *sessionService) GetByID(ctx context.Context, id uint) (*models.Session, error) {
	sess, err := s.repo.Session().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

func (s *sessionService) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.Session, int64, error) {
	sessions, total, err := s.repo.Session().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, total, nil
}

// ===== ADAPTIVE LOOP =====

func (s *sessionService) NextItem(ctx context.Context, sessionID uint) (*models.Item, error) {
	sess, err := s.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.SessionInProgress {
		return nil, fmt.Errorf("next item on %s session: %w", sess.Status, ErrInvalidStateTransition)
	}

	runtime, err := s.pools.Runtime(ctx, sess.PoolID)
	if err != nil {
		return nil, err
	}

	// Repeated calls without an intervening response return the reserved
	// item instead of selecting (and exposing) a new one.
	if sess.CurrentItemID != nil {
		item, err := runtime.GetItem(*sess.CurrentItemID)
		if err != nil {
			return nil, fmt.Errorf("reserved item missing from pool: %w", err)
		}
		return item, nil
	}

	item, err := s.selector.SelectNext(sess, runtime)
	if err != nil {
		return nil, fmt.Errorf("selection failed: %w", err)
	}
	if item == nil {
		return nil, ErrNoEligibleItems
	}

	if err := s.repo.Pool().IncrementExposure(ctx, sess.PoolID, item.ID); err != nil {
		return nil, fmt.Errorf("failed to record exposure: %w", err)
	}

	sess.CurrentItemID = &item.ID
	if err := s.repo.Session().Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to reserve item: %w", err)
	}

	s.logger.Info("Item selected",
		"session_id", sess.ID,
		"item_id", item.ID,
		"topic", item.Topic,
		"theta", sess.Theta)

	return item, nil
}

func (s *sessionService) SubmitResponse(ctx context.Context, req *SubmitResponseRequest) (*SubmitResponseResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	sess, err := s.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.SessionInProgress {
		return nil, fmt.Errorf("submit on %s session: %w", sess.Status, ErrInvalidStateTransition)
	}

	if sess.CurrentItemID == nil || *sess.CurrentItemID != req.ItemID {
		return nil, fmt.Errorf("item %d: %w", req.ItemID, ErrItemNotPending)
	}
	for _, r := range sess.Responses {
		if r.ItemID == req.ItemID {
			return nil, fmt.Errorf("item %d: %w", req.ItemID, ErrItemAlreadyAnswered)
		}
	}

	runtime, err := s.pools.Runtime(ctx, sess.PoolID)
	if err != nil {
		return nil, err
	}
	item, err := runtime.GetItem(req.ItemID)
	if err != nil {
		return nil, ErrItemNotFound
	}

	isCorrect, err := scoreAnswer(item, req.Answer)
	if err != nil {
		return nil, err
	}

	history, err := s.scoredHistory(sess, runtime)
	if err != nil {
		return nil, err
	}
	history = append(history, engine.ScoredItem{Item: item, Correct: isCorrect})

	estimate, err := engine.UpdateAbility(history, sess.Theta)
	if err != nil {
		return nil, fmt.Errorf("ability update failed: %w", err)
	}

	newSE := estimate.SE
	if math.IsInf(newSE, 1) {
		newSE = 0 // sentinel, see Session.SE
	}

	response := &models.Response{
		SessionID:    sess.ID,
		ItemID:       item.ID,
		Answer:       req.Answer,
		IsCorrect:    isCorrect,
		ResponseTime: req.ResponseTime,
		ThetaAfter:   estimate.Theta,
		SEAfter:      newSE,
		Position:     len(sess.Responses) + 1,
	}

	sess.Theta = estimate.Theta
	sess.StandardError = newSE
	sess.CurrentItemID = nil
	sess.Responses = append(sess.Responses, *response)

	result := &SubmitResponseResult{
		IsCorrect: isCorrect,
		Theta:     estimate.Theta,
		SE:        estimate.SE,
	}

	if stop, reason := s.stopRule.ShouldStop(sess, runtime); stop {
		now := time.Now()
		reasonStr := string(reason)
		sess.Status = models.SessionCompleted
		sess.FinishedAt = &now
		sess.StopReason = &reasonStr
		result.Completed = true
		result.StopReason = reasonStr
	}

	// Session row and response persist together or not at all.
	if err := s.repo.Session().UpdateWithResponse(ctx, sess, response); err != nil {
		return nil, fmt.Errorf("failed to persist response: %w", err)
	}

	if result.Completed {
		event := events.NewSessionEvent(events.SessionCompleted, sess.ID, sess.PoolID, sess.ExamineeID).
			WithResult(sess.Theta, sess.StandardError, result.StopReason)
		s.publishEvent(ctx, event)
	}

	s.logger.Info("Response submitted",
		"session_id", sess.ID,
		"item_id", item.ID,
		"is_correct", isCorrect,
		"theta", estimate.Theta,
		"se", estimate.SE,
		"completed", result.Completed)

	return result, nil
}

func (s *sessionService) Complete(ctx context.Context, sessionID uint) (*models.Report, error) {
	sess, err := s.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch sess.Status {
	case models.SessionCompleted:
		// Already terminal; report generation is idempotent.
	case models.SessionInProgress:
		now := time.Now()
		sess.Status = models.SessionCompleted
		sess.FinishedAt = &now
		if sess.StopReason == nil {
			reason := stopReasonCallerRequested
			sess.StopReason = &reason
		}
		sess.CurrentItemID = nil
		if err := s.repo.Session().Update(ctx, sess); err != nil {
			return nil, fmt.Errorf("failed to complete session: %w", err)
		}

		event := events.NewSessionEvent(events.SessionCompleted, sess.ID, sess.PoolID, sess.ExamineeID).
			WithResult(sess.Theta, sess.StandardError, *sess.StopReason)
		s.publishEvent(ctx, event)

		s.logger.Info("Session completed",
			"session_id", sess.ID,
			"final_theta", sess.Theta,
			"final_se", sess.StandardError,
			"stop_reason", *sess.StopReason)
	default:
		return nil, fmt.Errorf("complete on %s session: %w", sess.Status, ErrInvalidStateTransition)
	}

	return s.reports.Generate(ctx, sessionID)
}

func (s *sessionService) Abandon(ctx context.Context, sessionID uint) error {
	sess, err := s.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Status != models.SessionInProgress {
		return fmt.Errorf("abandon on %s session: %w", sess.Status, ErrInvalidStateTransition)
	}

	now := time.Now()
	sess.Status = models.SessionAbandoned
	sess.FinishedAt = &now
	sess.CurrentItemID = nil
	if err := s.repo.Session().Update(ctx, sess); err != nil {
		return fmt.Errorf("failed to abandon session: %w", err)
	}

	event := events.NewSessionEvent(events.SessionAbandoned, sess.ID, sess.PoolID, sess.ExamineeID).
		WithResult(sess.Theta, sess.StandardError, "")
	s.publishEvent(ctx, event)

	s.logger.Info("Session abandoned",
		"session_id", sess.ID,
		"partial_theta", sess.Theta,
		"partial_se", sess.StandardError,
		"responses", len(sess.Responses))

	return nil
}

// ===== HELPERS =====

// scoredHistory rebuilds the estimator input from the persisted responses.
func (s *sessionService) scoredHistory(sess *models.Session, runtime *pool.Pool) ([]engine.ScoredItem, error) {
	history := make([]engine.ScoredItem, 0, len(sess.Responses)+1)
	for _, r := range sess.Responses {
		item, err := runtime.GetItem(r.ItemID)
		if err != nil {
			return nil, fmt.Errorf("history item %d missing from pool: %w", r.ItemID, err)
		}
		history = append(history, engine.ScoredItem{Item: item, Correct: r.IsCorrect})
	}
	return history, nil
}

// publishEvent is best-effort: event delivery never fails the session step.
func (s *sessionService) publishEvent(ctx context.Context, event *events.SessionEvent) {
	if err := s.publisher.PublishSessionEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish session event",
			"event_type", event.Type,
			"session_id", event.SessionID,
			"error", err)
	}
}
