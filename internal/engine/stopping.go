package engine

import (
	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/pool"
)

// StopReason names why a session terminated.
type StopReason string

const (
	StopMaxQuestions  StopReason = "max_questions_reached"
	StopPrecision     StopReason = "precision_reached"
	StopPoolExhausted StopReason = "pool_exhausted"
)

// StoppingRule decides after every response whether the session should end.
type StoppingRule struct {
	selector *Selector
}

func NewStoppingRule(selector *Selector) *StoppingRule {
	return &StoppingRule{selector: selector}
}

// ShouldStop evaluates the termination rules in priority order: the item
// budget first, then the precision criterion (gated on the minimum question
// count), then pool exhaustion under the current selection constraints.
func (r *StoppingRule) ShouldStop(sess *models.Session, p *pool.Pool) (bool, StopReason) {
	cfg := sess.Config.Data()
	administered := len(sess.Responses)

	if administered >= cfg.MaxQuestions {
		return true, StopMaxQuestions
	}
	if administered >= cfg.MinQuestions && sess.SE() <= cfg.SEThreshold {
		return true, StopPrecision
	}
	if !r.selector.HasEligible(sess, p) {
		return true, StopPoolExhausted
	}
	return false, ""
}
