package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
)

type PoolStatus string

const (
	PoolDraft     PoolStatus = "Draft"
	PoolPublished PoolStatus = "Published"
	PoolArchived  PoolStatus = "Archived"
)

// Item is a calibrated test question. Once its pool is published the item is
// immutable; replacing a miscalibrated item means creating a new item id.
type Item struct {
	ID     uint         `json:"id" gorm:"primaryKey"`
	PoolID uint         `json:"pool_id" gorm:"not null;index"`
	Text   string       `json:"text" gorm:"type:text;not null" validate:"required,min=1"`
	Type   QuestionType `json:"type" gorm:"not null;size:32" validate:"required,question_type"`

	// 3PL calibration parameters.
	Difficulty     float64 `json:"difficulty" gorm:"not null" validate:"min=-4,max=4"`
	Discrimination float64 `json:"discrimination" gorm:"not null" validate:"required,gt=0"`
	Guessing       float64 `json:"guessing" gorm:"not null" validate:"min=0,lt=1"`

	// Content classification used by topic balancing and reporting.
	Topic          string `json:"topic" gorm:"not null;size:100;index" validate:"required,max=100"`
	Subtopic       string `json:"subtopic" gorm:"size:100" validate:"omitempty,max=100"`
	CognitiveLevel string `json:"cognitive_level" gorm:"size:50" validate:"omitempty,max=50"`

	// Scoring data, not part of the numeric model.
	CorrectAnswer string         `json:"correct_answer" gorm:"not null;size:500" validate:"required"`
	AnswerOptions datatypes.JSON `json:"answer_options" gorm:"type:jsonb"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Item) TableName() string {
	return "items"
}

// Pool groups the calibrated items one adaptive test draws from. Items are
// appended while the pool is in Draft; publishing freezes the item set.
type Pool struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Name        string     `json:"name" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Subject     string     `json:"subject" gorm:"size:100" validate:"omitempty,max=100"`
	Status      PoolStatus `json:"status" gorm:"default:Draft;index" validate:"omitempty,oneof=Draft Published Archived"`
	Description *string    `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`

	CreatedBy string         `json:"created_by" gorm:"not null;size:100;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Items []Item `json:"items,omitempty" gorm:"foreignKey:PoolID"`

	// Computed fields (not stored)
	ItemCount int `json:"item_count" gorm:"-"`
}

func (Pool) TableName() string {
	return "pools"
}

// ItemExposure tracks how many times an item has been administered across all
// sessions. Persisted separately from the item so publishing leaves items
// untouched.
type ItemExposure struct {
	ItemID        uint      `json:"item_id" gorm:"primaryKey"`
	PoolID        uint      `json:"pool_id" gorm:"not null;index"`
	ExposureCount int64     `json:"exposure_count" gorm:"not null;default:0"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (ItemExposure) TableName() string {
	return "item_exposures"
}
