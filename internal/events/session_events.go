package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

type SessionEventType string

const (
	SessionStarted   SessionEventType = "session.started"
	SessionCompleted SessionEventType = "session.completed"
	SessionAbandoned SessionEventType = "session.abandoned"
	ReportGenerated  SessionEventType = "report.generated"
)

// SessionEvent is the lifecycle event emitted for downstream consumers
// (notifications, analytics pipelines).
type SessionEvent struct {
	ID        string           `json:"id"`
	Type      SessionEventType `json:"type"`
	Source    string           `json:"source"`
	Version   string           `json:"version"`
	Timestamp time.Time        `json:"timestamp"`

	SessionID  uint   `json:"session_id"`
	PoolID     uint   `json:"pool_id"`
	ExamineeID string `json:"examinee_id"`

	// Populated on completion and report events.
	Theta      *float64 `json:"theta,omitempty"`
	SE         *float64 `json:"se,omitempty"`
	StopReason *string  `json:"stop_reason,omitempty"`
}

// NewSessionEvent stamps a fresh event envelope.
func NewSessionEvent(eventType SessionEventType, sessionID, poolID uint, examineeID string) *SessionEvent {
	return &SessionEvent{
		ID:         watermill.NewUUID(),
		Type:       eventType,
		Source:     "adaptive-testing-service",
		Version:    "1.0",
		Timestamp:  time.Now().UTC(),
		SessionID:  sessionID,
		PoolID:     poolID,
		ExamineeID: examineeID,
	}
}

// WithResult attaches the terminal ability estimate to the event.
func (e *SessionEvent) WithResult(theta, se float64, stopReason string) *SessionEvent {
	e.Theta = &theta
	e.SE = &se
	if stopReason != "" {
		e.StopReason = &stopReason
	}
	return e
}
