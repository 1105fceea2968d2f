package postgres

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PoolPostgreSQL struct {
	db *gorm.DB
}

func NewPoolPostgreSQL(db *gorm.DB) repositories.PoolRepository {
	return &PoolPostgreSQL{db: db}
}

func (p PoolPostgreSQL) Create(ctx context.Context, pool *models.Pool) error {
	return p.db.WithContext(ctx).Create(pool).Error
}

func (p PoolPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Pool, error) {
	var pool models.Pool
	if err := p.db.WithContext(ctx).First(&pool, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &pool, nil
}

func (p PoolPostgreSQL) GetByIDWithItems(ctx context.Context, id uint) (*models.Pool, error) {
	var pool models.Pool
	if err := p.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("items.id ASC")
		}).
		First(&pool, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	pool.ItemCount = len(pool.Items)
	return &pool, nil
}

func (p PoolPostgreSQL) List(ctx context.Context, filters repositories.PoolFilters) ([]*models.Pool, int64, error) {
	var pools []*models.Pool
	var total int64

	query := p.db.WithContext(ctx).Model(&models.Pool{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Subject != nil {
		query = query.Where("subject = ?", *filters.Subject)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder)
	if err := query.Find(&pools).Error; err != nil {
		return nil, 0, err
	}
	return pools, total, nil
}

func (p PoolPostgreSQL) UpdateStatus(ctx context.Context, id uint, status models.PoolStatus) error {
	result := p.db.WithContext(ctx).Model(&models.Pool{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (p PoolPostgreSQL) AddItem(ctx context.Context, item *models.Item) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		return tx.Create(&models.ItemExposure{ItemID: item.ID, PoolID: item.PoolID}).Error
	})
}

func (p PoolPostgreSQL) AddItems(ctx context.Context, items []*models.Item) error {
	if len(items) == 0 {
		return nil
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(items).Error; err != nil {
			return err
		}
		exposures := make([]*models.ItemExposure, len(items))
		for i, item := range items {
			exposures[i] = &models.ItemExposure{ItemID: item.ID, PoolID: item.PoolID}
		}
		return tx.Create(exposures).Error
	})
}

func (p PoolPostgreSQL) GetItem(ctx context.Context, id uint) (*models.Item, error) {
	var item models.Item
	if err := p.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &item, nil
}

func (p PoolPostgreSQL) GetItems(ctx context.Context, poolID uint) ([]*models.Item, error) {
	var items []*models.Item
	if err := p.db.WithContext(ctx).
		Where("pool_id = ?", poolID).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (p PoolPostgreSQL) GetExposures(ctx context.Context, poolID uint) (map[uint]int64, error) {
	var rows []models.ItemExposure
	if err := p.db.WithContext(ctx).Where("pool_id = ?", poolID).Find(&rows).Error; err != nil {
		return nil, err
	}
	exposures := make(map[uint]int64, len(rows))
	for _, row := range rows {
		exposures[row.ItemID] = row.ExposureCount
	}
	return exposures, nil
}

// IncrementExposure relies on a single UPDATE with a relative expression, so
// concurrent sessions never lose counts.
func (p PoolPostgreSQL) IncrementExposure(ctx context.Context, poolID, itemID uint) error {
	result := p.db.WithContext(ctx).Model(&models.ItemExposure{}).
		Where("pool_id = ? AND item_id = ?", poolID, itemID).
		Update("exposure_count", gorm.Expr("exposure_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Exposure row missing for a legacy item: create it at 1.
		return p.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ItemExposure{ItemID: itemID, PoolID: poolID, ExposureCount: 1}).Error
	}
	return nil
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.ErrNotFound
	}
	return err
}

func applyPaginationAndSort(query *gorm.DB, limit, offset int, sortBy, sortOrder string) *gorm.DB {
	if sortBy == "" {
		sortBy = "created_at"
	}
	if sortOrder != "asc" {
		sortOrder = "desc"
	}
	query = query.Order(sortBy + " " + sortOrder)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}
