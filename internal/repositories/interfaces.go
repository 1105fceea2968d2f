package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned by every repository when the requested record does
// not exist.
var ErrNotFound = errors.New("record not found")

// IsNotFoundError reports whether err is a repository not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// ===== SHARED FILTER STRUCTS =====

type PoolFilters struct {
	Status    *models.PoolStatus `json:"status"`
	Subject   *string            `json:"subject"`
	CreatedBy *string            `json:"created_by"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
	SortBy    string             `json:"sort_by"`    // "created_at", "name"
	SortOrder string             `json:"sort_order"` // "asc", "desc"
}

type SessionFilters struct {
	Status     *models.SessionStatus `json:"status"`
	PoolID     *uint                 `json:"pool_id"`
	ExamineeID *string               `json:"examinee_id"`
	DateFrom   *time.Time            `json:"date_from"`
	DateTo     *time.Time            `json:"date_to"`
	Limit      int                   `json:"limit"`
	Offset     int                   `json:"offset"`
	SortBy     string                `json:"sort_by"`
	SortOrder  string                `json:"sort_order"`
}

// ===== REPOSITORY INTERFACES =====

type PoolRepository interface {
	Create(ctx context.Context, pool *models.Pool) error
	GetByID(ctx context.Context, id uint) (*models.Pool, error)
	GetByIDWithItems(ctx context.Context, id uint) (*models.Pool, error)
	List(ctx context.Context, filters PoolFilters) ([]*models.Pool, int64, error)
	UpdateStatus(ctx context.Context, id uint, status models.PoolStatus) error

	AddItem(ctx context.Context, item *models.Item) error
	AddItems(ctx context.Context, items []*models.Item) error
	GetItem(ctx context.Context, id uint) (*models.Item, error)
	GetItems(ctx context.Context, poolID uint) ([]*models.Item, error)

	// GetExposures returns the persisted exposure counters for a pool.
	GetExposures(ctx context.Context, poolID uint) (map[uint]int64, error)
	// IncrementExposure atomically bumps one item's exposure counter.
	IncrementExposure(ctx context.Context, poolID, itemID uint) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	// GetByID loads the session with its ordered response history.
	GetByID(ctx context.Context, id uint) (*models.Session, error)
	Update(ctx context.Context, session *models.Session) error
	// UpdateWithResponse persists one adaptive step atomically: the updated
	// session row and the appended response either both apply or neither.
	UpdateWithResponse(ctx context.Context, session *models.Session, response *models.Response) error
	List(ctx context.Context, filters SessionFilters) ([]*models.Session, int64, error)
}

type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetBySessionID(ctx context.Context, sessionID uint) (*models.Report, error)
}

// Repository aggregates the per-aggregate repositories behind one handle.
type Repository interface {
	Pool() PoolRepository
	Session() SessionRepository
	Report() ReportRepository
}
