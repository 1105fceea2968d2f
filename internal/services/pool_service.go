package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/adaptive-testing-service/internal/cache"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/pool"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/repositories"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/utils"
	"gorm.io/datatypes"
)

const poolItemsCacheTTL = 5 * time.Minute

// PoolService owns pool authoring and builds the runtime item arena sessions
// select from.
type PoolService interface {
	Create(ctx context.Context, req *CreatePoolRequest) (*models.Pool, error)
	GetByID(ctx context.Context, id uint) (*models.Pool, error)
	GetByIDWithItems(ctx context.Context, id uint) (*models.Pool, error)
	List(ctx context.Context, filters repositories.PoolFilters) ([]*models.Pool, int64, error)
	Publish(ctx context.Context, id uint) error
	Archive(ctx context.Context, id uint) error

	AddItem(ctx context.Context, poolID uint, req *AddItemRequest) (*models.Item, error)
	AddItems(ctx context.Context, poolID uint, reqs []*AddItemRequest) ([]*models.Item, error)

	// Runtime builds the in-memory arena for a published pool, seeding the
	// persisted exposure counters.
	Runtime(ctx context.Context, poolID uint) (*pool.Pool, error)
}

type CreatePoolRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	Subject     string  `json:"subject" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	CreatedBy   string  `json:"created_by" validate:"required,max=100"`
}

type AddItemRequest struct {
	Text           string   `json:"text" validate:"required,min=1"`
	Type           string   `json:"type" validate:"required,question_type"`
	Difficulty     float64  `json:"difficulty" validate:"min=-4,max=4"`
	Discrimination float64  `json:"discrimination" validate:"required,gt=0"`
	Guessing       float64  `json:"guessing" validate:"min=0,lt=1"`
	Topic          string   `json:"topic" validate:"required,max=100"`
	Subtopic       string   `json:"subtopic" validate:"omitempty,max=100"`
	CognitiveLevel string   `json:"cognitive_level" validate:"omitempty,max=50"`
	CorrectAnswer  string   `json:"correct_answer" validate:"required,max=500"`
	AnswerOptions  []string `json:"answer_options" validate:"omitempty,max=10,dive,max=500"`
}

type poolService struct {
	repo      repositories.Repository
	logger    utils.Logger
	validator *utils.Validator
	cache     cache.CacheService
}

func NewPoolService(repo repositories.Repository, logger utils.Logger, validator *utils.Validator, cacheService cache.CacheService) PoolService {
	return &poolService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		cache:     cacheService,
	}
}

func (s *poolService) Create(ctx context.Context, req *CreatePoolRequest) (*models.Pool, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	p := &models.Pool{
		Name:        req.Name,
		Subject:     req.Subject,
		Description: req.Description,
		Status:      models.PoolDraft,
		CreatedBy:   req.CreatedBy,
	}
	if err := s.repo.Pool().Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	s.logger.Info("Pool created", "pool_id", p.ID, "name", p.Name, "created_by", p.CreatedBy)
	return p, nil
}

func (s *poolService) GetByID(ctx context.Context, id uint) (*models.Pool, error) {
	p, err := s.repo.Pool().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrPoolNotFound
		}
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}
	return p, nil
}

func (s *poolService) GetByIDWithItems(ctx context.Context, id uint) (*models.Pool, error) {
	p, err := s.repo.Pool().GetByIDWithItems(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrPoolNotFound
		}
		return nil, fmt.Errorf("failed to get pool with items: %w", err)
	}
	return p, nil
}

func (s *poolService) List(ctx context.Context, filters repositories.PoolFilters) ([]*models.Pool, int64, error) {
	pools, total, err := s.repo.Pool().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pools: %w", err)
	}
	return pools, total, nil
}

func (s *poolService) Publish(ctx context.Context, id uint) error {
	p, err := s.GetByIDWithItems(ctx, id)
	if err != nil {
		return err
	}
	if p.Status != models.PoolDraft {
		return fmt.Errorf("pool %d is %s: %w", id, p.Status, ErrPoolNotEditable)
	}
	if len(p.Items) == 0 {
		return ErrPoolEmpty
	}

	if err := s.repo.Pool().UpdateStatus(ctx, id, models.PoolPublished); err != nil {
		return fmt.Errorf("failed to publish pool: %w", err)
	}
	s.invalidateItemsCache(ctx, id)

	s.logger.Info("Pool published", "pool_id", id, "item_count", len(p.Items))
	return nil
}

func (s *poolService) Archive(ctx context.Context, id uint) error {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.Status == models.PoolArchived {
		return nil
	}

	if err := s.repo.Pool().UpdateStatus(ctx, id, models.PoolArchived); err != nil {
		return fmt.Errorf("failed to archive pool: %w", err)
	}
	s.invalidateItemsCache(ctx, id)

	s.logger.Info("Pool archived", "pool_id", id)
	return nil
}

func (s *poolService) AddItem(ctx context.Context, poolID uint, req *AddItemRequest) (*models.Item, error) {
	items, err := s.AddItems(ctx, poolID, []*AddItemRequest{req})
	if err != nil {
		return nil, err
	}
	return items[0], nil
}

func (s *poolService) AddItems(ctx context.Context, poolID uint, reqs []*AddItemRequest) ([]*models.Item, error) {
	p, err := s.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PoolDraft {
		return nil, fmt.Errorf("pool %d is %s: %w", poolID, p.Status, ErrPoolNotEditable)
	}

	items := make([]*models.Item, 0, len(reqs))
	for i, req := range reqs {
		item, err := s.buildItem(poolID, req)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		items = append(items, item)
	}

	if err := s.repo.Pool().AddItems(ctx, items); err != nil {
		return nil, fmt.Errorf("failed to add items: %w", err)
	}
	s.invalidateItemsCache(ctx, poolID)

	s.logger.Info("Items added to pool", "pool_id", poolID, "count", len(items))
	return items, nil
}

// buildItem validates the request twice on purpose: struct tags for request
// shape, then the pool's parameter rules, which are the authoritative gate.
func (s *poolService) buildItem(poolID uint, req *AddItemRequest) (*models.Item, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var options datatypes.JSON
	if len(req.AnswerOptions) > 0 {
		raw, err := json.Marshal(req.AnswerOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to encode answer options: %w", err)
		}
		options = raw
	}

	item := &models.Item{
		PoolID:         poolID,
		Text:           req.Text,
		Type:           models.QuestionType(req.Type),
		Difficulty:     req.Difficulty,
		Discrimination: req.Discrimination,
		Guessing:       req.Guessing,
		Topic:          req.Topic,
		Subtopic:       req.Subtopic,
		CognitiveLevel: req.CognitiveLevel,
		CorrectAnswer:  req.CorrectAnswer,
		AnswerOptions:  options,
	}
	if err := pool.ValidateItemParameters(item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *poolService) Runtime(ctx context.Context, poolID uint) (*pool.Pool, error) {
	p, err := s.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PoolPublished {
		return nil, fmt.Errorf("pool %d is %s: %w", poolID, p.Status, ErrPoolNotPublished)
	}

	items, err := s.loadItems(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrPoolEmpty
	}

	// Exposure counters are always read fresh: they are the fairness state
	// shared across concurrent sessions.
	exposures, err := s.repo.Pool().GetExposures(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to load exposures: %w", err)
	}

	return pool.New(poolID, items, exposures)
}

// loadItems reads the published item set through the cache; items are
// immutable after publish, so the snapshot cannot go stale within the TTL.
func (s *poolService) loadItems(ctx context.Context, poolID uint) ([]*models.Item, error) {
	key := poolItemsCacheKey(poolID)

	var cached []*models.Item
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Pool items cache read failed", "pool_id", poolID, "error", err)
	}

	items, err := s.repo.Pool().GetItems(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}

	if err := s.cache.Set(ctx, key, items, poolItemsCacheTTL); err != nil {
		s.logger.Warn("Pool items cache write failed", "pool_id", poolID, "error", err)
	}
	return items, nil
}

func (s *poolService) invalidateItemsCache(ctx context.Context, poolID uint) {
	if err := s.cache.Delete(ctx, poolItemsCacheKey(poolID)); err != nil {
		s.logger.Warn("Pool items cache invalidation failed", "pool_id", poolID, "error", err)
	}
}

func poolItemsCacheKey(poolID uint) string {
	return fmt.Sprintf("pool:%d:items", poolID)
}
