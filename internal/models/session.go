package models

import (
	"math"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionAbandoned  SessionStatus = "abandoned"
)

// SessionConfig controls how one adaptive run selects items and when it stops.
type SessionConfig struct {
	MaxQuestions    int     `json:"max_questions" validate:"required,min=1,max=200"`
	MinQuestions    int     `json:"min_questions" validate:"min=0,ltefield=MaxQuestions"`
	SEThreshold     float64 `json:"se_threshold" validate:"gt=0"`
	InitialAbility  float64 `json:"initial_ability" validate:"min=-4,max=4"`
	TopicBalancing  bool    `json:"topic_balancing"`
	ExposureControl bool    `json:"exposure_control"`

	// ExposureCapRatio bounds exposure_count relative to total administrations
	// across the pool. Only consulted when ExposureControl is set.
	ExposureCapRatio float64 `json:"exposure_cap_ratio" validate:"omitempty,gt=0,max=1"`

	// TopicPenaltyWeight scales the information penalty applied to items from
	// over-represented topics. Only consulted when TopicBalancing is set.
	TopicPenaltyWeight float64 `json:"topic_penalty_weight" validate:"omitempty,gt=0,max=1"`
}

const (
	DefaultExposureCapRatio   = 0.25
	DefaultTopicPenaltyWeight = 0.3
)

// ApplyDefaults fills the tunable policy knobs left at zero.
func (c *SessionConfig) ApplyDefaults() {
	if c.ExposureCapRatio == 0 {
		c.ExposureCapRatio = DefaultExposureCapRatio
	}
	if c.TopicPenaltyWeight == 0 {
		c.TopicPenaltyWeight = DefaultTopicPenaltyWeight
	}
}

// Session is one examinee's adaptive test run. StandardError is stored as 0
// while undefined (no information yet); SE() reports that as +Inf.
type Session struct {
	ID         uint          `json:"id" gorm:"primaryKey"`
	PoolID     uint          `json:"pool_id" gorm:"not null;index"`
	ExamineeID string        `json:"examinee_id" gorm:"not null;size:100;index" validate:"required"`
	Status     SessionStatus `json:"status" gorm:"default:in_progress;index"`

	Theta         float64 `json:"theta"`
	StandardError float64 `json:"standard_error"`

	// CurrentItemID is the item handed out by the last selection and not yet
	// answered. Makes repeated next-question calls idempotent.
	CurrentItemID *uint `json:"current_item_id"`

	Config datatypes.JSONType[SessionConfig] `json:"config" gorm:"type:jsonb"`

	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at"`
	StopReason *string        `json:"stop_reason"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`

	Responses []Response `json:"responses,omitempty" gorm:"foreignKey:SessionID"`
}

func (Session) TableName() string {
	return "sessions"
}

// SE returns the standard error, mapping the zero sentinel to +Inf.
func (s *Session) SE() float64 {
	if s.StandardError <= 0 {
		return math.Inf(1)
	}
	return s.StandardError
}

// AdministeredItemIDs projects the ordered response history onto item ids.
func (s *Session) AdministeredItemIDs() []uint {
	ids := make([]uint, len(s.Responses))
	for i, r := range s.Responses {
		ids[i] = r.ItemID
	}
	return ids
}

// IsTerminal reports whether the session reached a final state.
func (s *Session) IsTerminal() bool {
	return s.Status == SessionCompleted || s.Status == SessionAbandoned
}

// Response records one scored answer together with the ability snapshot taken
// immediately after estimation.
type Response struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	SessionID uint `json:"session_id" gorm:"not null;index"`
	ItemID    uint `json:"item_id" gorm:"not null;index"`

	Answer       string  `json:"answer" gorm:"size:500"`
	IsCorrect    bool    `json:"is_correct"`
	ResponseTime int     `json:"response_time"` // seconds
	ThetaAfter   float64 `json:"theta_after"`
	SEAfter      float64 `json:"se_after"`

	Position  int       `json:"position" gorm:"not null"` // 1-based order within the session
	CreatedAt time.Time `json:"created_at"`
}

func (Response) TableName() string {
	return "responses"
}
