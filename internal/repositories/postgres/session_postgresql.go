package postgres

import (
	"context"

	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/repositories"
	"gorm.io/gorm"
)

type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{db: db}
}

func (s SessionPostgreSQL) Create(ctx context.Context, session *models.Session) error {
	return s.db.WithContext(ctx).Create(session).Error
}

func (s SessionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Session, error) {
	var session models.Session
	if err := s.db.WithContext(ctx).
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("responses.position ASC")
		}).
		First(&session, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &session, nil
}

func (s SessionPostgreSQL) Update(ctx context.Context, session *models.Session) error {
	return s.db.WithContext(ctx).Omit("Responses").Save(session).Error
}

// UpdateWithResponse writes the session row and the new response in one
// transaction. A failed step leaves the prior theta/SE/history intact.
func (s SessionPostgreSQL) UpdateWithResponse(ctx context.Context, session *models.Session, response *models.Response) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Responses").Save(session).Error; err != nil {
			return err
		}
		return tx.Create(response).Error
	})
}

func (s SessionPostgreSQL) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.Session, int64, error) {
	var sessions []*models.Session
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Session{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.PoolID != nil {
		query = query.Where("pool_id = ?", *filters.PoolID)
	}
	if filters.ExamineeID != nil {
		query = query.Where("examinee_id = ?", *filters.ExamineeID)
	}
	if filters.DateFrom != nil {
		query = query.Where("started_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("started_at <= ?", *filters.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder)
	if err := query.Find(&sessions).Error; err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}
