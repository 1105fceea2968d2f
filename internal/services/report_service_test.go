package services

import (
	"context"
	"testing"

	"github.com/SAP-F-2025/adaptive-testing-service/internal/cache"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/events"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/repositories"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestReportService(repo *MockRepository, publisher *events.MockEventPublisher) ReportService {
	return NewReportService(repo, utils.NewSlogLogger(testLogger()), cache.NoopCache{}, publisher, models.DefaultReportConfig())
}

func completedSession() *models.Session {
	sess := testSession(models.SessionCompleted)
	sess.Theta = 0.5
	sess.StandardError = 0.35
	sess.Responses = []models.Response{
		{ItemID: 1, IsCorrect: true, Position: 1},
		{ItemID: 2, IsCorrect: true, Position: 2},
		{ItemID: 3, IsCorrect: false, Position: 3},
	}
	return sess
}

func TestReportService_Generate(t *testing.T) {
	t.Run("builds and stores the report", func(t *testing.T) {
		repo := newMockRepository()
		publisher := events.NewMockEventPublisher(testLogger())

		repo.report.On("GetBySessionID", mock.Anything, uint(1)).Return(nil, repositories.ErrNotFound)
		repo.session.On("GetByID", mock.Anything, uint(1)).Return(completedSession(), nil)
		repo.pool.On("GetItems", mock.Anything, uint(1)).Return(testPoolItems(), nil)
		repo.report.On("Create", mock.Anything, mock.Anything).Return(nil)

		report, err := newTestReportService(repo, publisher).Generate(context.Background(), 1)
		require.NoError(t, err)

		assert.Equal(t, 0.5, report.FinalTheta)
		assert.Equal(t, 0.35, report.FinalSE)
		assert.InDelta(t, 0.5-1.96*0.35, report.ConfidenceLow, 1e-9)
		assert.InDelta(t, 0.5+1.96*0.35, report.ConfidenceHigh, 1e-9)
		assert.Equal(t, models.PerformanceMedium, report.PerformanceLevel)
		assert.InDelta(t, 69.146, report.AbilityPercentile, 0.01)
		assert.Equal(t, 3, report.QuestionsAnswered)
		assert.Equal(t, 2, report.CorrectAnswers)
		assert.InDelta(t, 2.0/3.0, report.Accuracy, 1e-9)

		require.Len(t, report.TopicStrengths, 1)
		assert.Equal(t, "algebra", report.TopicStrengths[0].Topic)
		assert.Equal(t, 1.0, report.TopicStrengths[0].Accuracy)
		require.Len(t, report.TopicWeaknesses, 1)
		assert.Equal(t, "geometry", report.TopicWeaknesses[0].Topic)

		require.Len(t, publisher.PublishedEvents(), 1)
		assert.Equal(t, events.ReportGenerated, publisher.PublishedEvents()[0].Type)
		repo.assertExpectations(t)
	})

	t.Run("existing report returned unchanged", func(t *testing.T) {
		repo := newMockRepository()
		existing := &models.Report{ID: 9, SessionID: 1, FinalTheta: 0.5}
		repo.report.On("GetBySessionID", mock.Anything, uint(1)).Return(existing, nil)

		report, err := newTestReportService(repo, events.NewMockEventPublisher(testLogger())).Generate(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, existing, report)
		repo.report.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		repo.assertExpectations(t)
	})

	t.Run("in-progress session rejected", func(t *testing.T) {
		repo := newMockRepository()
		repo.report.On("GetBySessionID", mock.Anything, uint(1)).Return(nil, repositories.ErrNotFound)
		repo.session.On("GetByID", mock.Anything, uint(1)).Return(testSession(models.SessionInProgress), nil)

		_, err := newTestReportService(repo, events.NewMockEventPublisher(testLogger())).Generate(context.Background(), 1)
		assert.ErrorIs(t, err, ErrSessionNotComplete)
		assert.True(t, IsConflict(err))
		repo.assertExpectations(t)
	})
}

func TestReportService_GetBySessionID(t *testing.T) {
	t.Run("reads through to the repository", func(t *testing.T) {
		repo := newMockRepository()
		stored := &models.Report{ID: 9, SessionID: 1}
		repo.report.On("GetBySessionID", mock.Anything, uint(1)).Return(stored, nil)

		report, err := newTestReportService(repo, events.NewMockEventPublisher(testLogger())).GetBySessionID(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, stored, report)
		repo.assertExpectations(t)
	})

	t.Run("missing report", func(t *testing.T) {
		repo := newMockRepository()
		repo.report.On("GetBySessionID", mock.Anything, uint(1)).Return(nil, repositories.ErrNotFound)

		_, err := newTestReportService(repo, events.NewMockEventPublisher(testLogger())).GetBySessionID(context.Background(), 1)
		assert.ErrorIs(t, err, ErrReportNotFound)
		assert.True(t, IsNotFound(err))
		repo.assertExpectations(t)
	})
}

func TestBuildReport_Deterministic(t *testing.T) {
	sess := completedSession()
	items := testPoolItems()
	cfg := models.DefaultReportConfig()

	first := buildReport(sess, items, cfg)
	second := buildReport(sess, items, cfg)
	assert.Equal(t, first, second)
}

func TestBuildReport_UndefinedPrecisionCollapsesInterval(t *testing.T) {
	sess := testSession(models.SessionCompleted)
	sess.Theta = 1.2
	sess.StandardError = 0 // never estimated

	report := buildReport(sess, testPoolItems(), models.DefaultReportConfig())
	assert.Equal(t, 1.2, report.ConfidenceLow)
	assert.Equal(t, 1.2, report.ConfidenceHigh)
	assert.Equal(t, 0, report.QuestionsAnswered)
	assert.Equal(t, 0.0, report.Accuracy)
}

func TestBuildReport_PerformanceBuckets(t *testing.T) {
	cfg := models.DefaultReportConfig()
	items := testPoolItems()

	tests := []struct {
		theta float64
		level models.PerformanceLevel
	}{
		{-2.5, models.PerformanceLow},
		{-1.0, models.PerformanceMedium},
		{0.0, models.PerformanceMedium},
		{1.0, models.PerformanceHigh},
		{2.5, models.PerformanceHigh},
	}

	for _, tt := range tests {
		sess := testSession(models.SessionCompleted)
		sess.Theta = tt.theta
		report := buildReport(sess, items, cfg)
		assert.Equal(t, tt.level, report.PerformanceLevel, "theta=%v", tt.theta)
	}
}
