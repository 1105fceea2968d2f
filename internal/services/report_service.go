package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/SAP-F-2025/adaptive-testing-service/internal/cache"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/events"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/irt"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/repositories"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/utils"
)

const reportCacheTTL = time.Hour

// ReportService turns terminal sessions into immutable performance reports.
// Generation is deterministic: the same completed session always yields the
// same report values.
type ReportService interface {
	Generate(ctx context.Context, sessionID uint) (*models.Report, error)
	GetBySessionID(ctx context.Context, sessionID uint) (*models.Report, error)
}

type reportService struct {
	repo      repositories.Repository
	logger    utils.Logger
	cache     cache.CacheService
	publisher events.EventPublisher
	config    models.ReportConfig
}

func NewReportService(repo repositories.Repository, logger utils.Logger, cacheService cache.CacheService, publisher events.EventPublisher, config models.ReportConfig) ReportService {
	return &reportService{
		repo:      repo,
		logger:    logger,
		cache:     cacheService,
		publisher: publisher,
		config:    config,
	}
}

// Generate builds the report for a completed session. Calling it again
// returns the stored report unchanged.
func (s *reportService) Generate(ctx context.Context, sessionID uint) (*models.Report, error) {
	if existing, err := s.repo.Report().GetBySessionID(ctx, sessionID); err == nil {
		return existing, nil
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check existing report: %w", err)
	}

	sess, err := s.repo.Session().GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if sess.Status != models.SessionCompleted {
		return nil, fmt.Errorf("session %d is %s: %w", sessionID, sess.Status, ErrSessionNotComplete)
	}

	items, err := s.repo.Pool().GetItems(ctx, sess.PoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pool items: %w", err)
	}

	report := buildReport(sess, items, s.config)
	if err := s.repo.Report().Create(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to store report: %w", err)
	}

	if err := s.cache.Set(ctx, reportCacheKey(sessionID), report, reportCacheTTL); err != nil {
		s.logger.Warn("Report cache write failed", "session_id", sessionID, "error", err)
	}

	event := events.NewSessionEvent(events.ReportGenerated, sess.ID, sess.PoolID, sess.ExamineeID).
		WithResult(report.FinalTheta, report.FinalSE, "")
	if err := s.publisher.PublishSessionEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish report event", "session_id", sessionID, "error", err)
	}

	s.logger.Info("Report generated",
		"session_id", sessionID,
		"final_theta", report.FinalTheta,
		"final_se", report.FinalSE,
		"performance_level", report.PerformanceLevel)

	return report, nil
}

func (s *reportService) GetBySessionID(ctx context.Context, sessionID uint) (*models.Report, error) {
	var cached models.Report
	if err := s.cache.Get(ctx, reportCacheKey(sessionID), &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Report cache read failed", "session_id", sessionID, "error", err)
	}

	report, err := s.repo.Report().GetBySessionID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	if err := s.cache.Set(ctx, reportCacheKey(sessionID), report, reportCacheTTL); err != nil {
		s.logger.Warn("Report cache write failed", "session_id", sessionID, "error", err)
	}
	return report, nil
}

// buildReport computes the scored summary from the session's response history.
// Pure: no clock, no randomness, so regeneration is bit-identical.
func buildReport(sess *models.Session, items []*models.Item, cfg models.ReportConfig) *models.Report {
	itemsByID := make(map[uint]*models.Item, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
	}

	correct := 0
	topicStats := make(map[string]*models.TopicStat)
	for _, r := range sess.Responses {
		item, ok := itemsByID[r.ItemID]
		if !ok {
			continue
		}
		stat := topicStats[item.Topic]
		if stat == nil {
			stat = &models.TopicStat{Topic: item.Topic}
			topicStats[item.Topic] = stat
		}
		stat.Administered++
		stat.AvgInformation += irt.Information(sess.Theta, item)
		if r.IsCorrect {
			stat.Correct++
			correct++
		}
	}

	var strengths, weaknesses []models.TopicStat
	for _, topic := range sortedTopics(topicStats) {
		stat := topicStats[topic]
		stat.Accuracy = float64(stat.Correct) / float64(stat.Administered)
		stat.AvgInformation /= float64(stat.Administered)
		switch {
		case stat.Accuracy >= cfg.StrengthAccuracy:
			strengths = append(strengths, *stat)
		case stat.Accuracy < cfg.WeaknessAccuracy:
			weaknesses = append(weaknesses, *stat)
		}
	}

	answered := len(sess.Responses)
	accuracy := 0.0
	if answered > 0 {
		accuracy = float64(correct) / float64(answered)
	}

	// StandardError keeps its zero sentinel for "never estimated"; the
	// confidence interval then collapses to the point estimate.
	se := sess.StandardError
	report := &models.Report{
		SessionID:         sess.ID,
		FinalTheta:        sess.Theta,
		FinalSE:           se,
		ConfidenceLow:     sess.Theta - cfg.ConfidenceZ*se,
		ConfidenceHigh:    sess.Theta + cfg.ConfidenceZ*se,
		PerformanceLevel:  bucketPerformance(sess.Theta, cfg),
		AbilityPercentile: irt.NormalCDF(sess.Theta) * 100,
		QuestionsAnswered: answered,
		CorrectAnswers:    correct,
		Accuracy:          accuracy,
		TopicStrengths:    strengths,
		TopicWeaknesses:   weaknesses,
	}
	return report
}

func bucketPerformance(theta float64, cfg models.ReportConfig) models.PerformanceLevel {
	switch {
	case theta < cfg.LowCut:
		return models.PerformanceLow
	case theta < cfg.HighCut:
		return models.PerformanceMedium
	default:
		return models.PerformanceHigh
	}
}

func sortedTopics(stats map[string]*models.TopicStat) []string {
	topics := make([]string, 0, len(stats))
	for topic := range stats {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

func reportCacheKey(sessionID uint) string {
	return fmt.Sprintf("report:session:%d", sessionID)
}
