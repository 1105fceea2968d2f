package models

import (
	"time"

	"gorm.io/datatypes"
)

type PerformanceLevel string

const (
	PerformanceLow    PerformanceLevel = "low"
	PerformanceMedium PerformanceLevel = "medium"
	PerformanceHigh   PerformanceLevel = "high"
)

// TopicStat summarizes the administered items of one topic.
type TopicStat struct {
	Topic          string  `json:"topic"`
	Administered   int     `json:"administered"`
	Correct        int     `json:"correct"`
	Accuracy       float64 `json:"accuracy"`
	AvgInformation float64 `json:"avg_information"`
}

// Report is the scored summary of a completed session. Generated once and
// immutable afterward; regenerating from the same session yields identical
// values.
type Report struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	SessionID uint `json:"session_id" gorm:"not null;uniqueIndex"`

	FinalTheta        float64          `json:"final_theta"`
	FinalSE           float64          `json:"final_se"`
	ConfidenceLow     float64          `json:"confidence_low"`
	ConfidenceHigh    float64          `json:"confidence_high"`
	PerformanceLevel  PerformanceLevel `json:"performance_level" gorm:"size:32"`
	AbilityPercentile float64          `json:"ability_percentile"`

	QuestionsAnswered int     `json:"questions_answered"`
	CorrectAnswers    int     `json:"correct_answers"`
	Accuracy          float64 `json:"accuracy"`

	TopicStrengths  datatypes.JSONSlice[TopicStat] `json:"topic_strengths" gorm:"type:jsonb"`
	TopicWeaknesses datatypes.JSONSlice[TopicStat] `json:"topic_weaknesses" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
}

func (Report) TableName() string {
	return "reports"
}

// ReportConfig holds the tunable scoring policy applied at generation time.
type ReportConfig struct {
	// ConfidenceZ is the z value used for the theta confidence interval.
	ConfidenceZ float64 `json:"confidence_z"`
	// Cut points on the theta scale separating performance levels.
	LowCut  float64 `json:"low_cut"`
	HighCut float64 `json:"high_cut"`
	// Per-topic accuracy thresholds for strength/weakness classification.
	StrengthAccuracy float64 `json:"strength_accuracy"`
	WeaknessAccuracy float64 `json:"weakness_accuracy"`
}

// DefaultReportConfig mirrors the conventional 95% interval and the
// low/medium/high bucketing at -1 and +1.
func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		ConfidenceZ:      1.96,
		LowCut:           -1,
		HighCut:          1,
		StrengthAccuracy: 0.7,
		WeaknessAccuracy: 0.5,
	}
}
