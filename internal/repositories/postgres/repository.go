package postgres

import (
	"github.com/SAP-F-2025/adaptive-testing-service/internal/repositories"
	"gorm.io/gorm"
)

// Repository bundles the PostgreSQL implementations behind the aggregate
// interface the services consume.
type Repository struct {
	pool    repositories.PoolRepository
	session repositories.SessionRepository
	report  repositories.ReportRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &Repository{
		pool:    NewPoolPostgreSQL(db),
		session: NewSessionPostgreSQL(db),
		report:  NewReportPostgreSQL(db),
	}
}

func (r *Repository) Pool() repositories.PoolRepository { return r.pool }

func (r *Repository) Session() repositories.SessionRepository { return r.session }

func (r *Repository) Report() repositories.ReportRepository { return r.report }
