package services

import (
	"context"
	"io"
	"log/slog"

	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/repositories"
	"github.com/stretchr/testify/mock"
)

// MockPoolRepository is a mock implementation of PoolRepository
type MockPoolRepository struct {
	mock.Mock
}

func (m *MockPoolRepository) Create(ctx context.Context, pool *models.Pool) error {
	args := m.Called(ctx, pool)
	return args.Error(0)
}

func (m *MockPoolRepository) GetByID(ctx context.Context, id uint) (*models.Pool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Pool), args.Error(1)
}

func (m *MockPoolRepository) GetByIDWithItems(ctx context.Context, id uint) (*models.Pool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Pool), args.Error(1)
}

func (m *MockPoolRepository) List(ctx context.Context, filters repositories.PoolFilters) ([]*models.Pool, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.Pool), args.Get(1).(int64), args.Error(2)
}

func (m *MockPoolRepository) UpdateStatus(ctx context.Context, id uint, status models.PoolStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockPoolRepository) AddItem(ctx context.Context, item *models.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockPoolRepository) AddItems(ctx context.Context, items []*models.Item) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockPoolRepository) GetItem(ctx context.Context, id uint) (*models.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Item), args.Error(1)
}

func (m *MockPoolRepository) GetItems(ctx context.Context, poolID uint) ([]*models.Item, error) {
	args := m.Called(ctx, poolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Item), args.Error(1)
}

func (m *MockPoolRepository) GetExposures(ctx context.Context, poolID uint) (map[uint]int64, error) {
	args := m.Called(ctx, poolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uint]int64), args.Error(1)
}

func (m *MockPoolRepository) IncrementExposure(ctx context.Context, poolID, itemID uint) error {
	args := m.Called(ctx, poolID, itemID)
	return args.Error(0)
}

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id uint) (*models.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionRepository) Update(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) UpdateWithResponse(ctx context.Context, session *models.Session, response *models.Response) error {
	args := m.Called(ctx, session, response)
	return args.Error(0)
}

func (m *MockSessionRepository) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.Session, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.Session), args.Get(1).(int64), args.Error(2)
}

// MockReportRepository is a mock implementation of ReportRepository
type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Create(ctx context.Context, report *models.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportRepository) GetBySessionID(ctx context.Context, sessionID uint) (*models.Report, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

// MockRepository aggregates the per-aggregate mocks behind the Repository
// interface.
type MockRepository struct {
	pool    *MockPoolRepository
	session *MockSessionRepository
	report  *MockReportRepository
}

func newMockRepository() *MockRepository {
	return &MockRepository{
		pool:    &MockPoolRepository{},
		session: &MockSessionRepository{},
		report:  &MockReportRepository{},
	}
}

func (m *MockRepository) Pool() repositories.PoolRepository       { return m.pool }
func (m *MockRepository) Session() repositories.SessionRepository { return m.session }
func (m *MockRepository) Report() repositories.ReportRepository   { return m.report }

func (m *MockRepository) assertExpectations(t mock.TestingT) {
	m.pool.AssertExpectations(t)
	m.session.AssertExpectations(t)
	m.report.AssertExpectations(t)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
