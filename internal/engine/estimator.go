// Package engine contains the adaptive core: ability estimation, maximum
// information item selection, and stopping rule evaluation. Everything here
// is a pure function of session history and pool state; persistence and
// lifecycle live in the services layer.
package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/SAP-F-2025/adaptive-testing-service/internal/irt"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
)

// ErrEstimationDiverged is a safety net only: theta is clamped every
// iteration, so this should never surface when clamping works.
var ErrEstimationDiverged = errors.New("ability estimation diverged")

const (
	// ThetaMin and ThetaMax bound the ability scale. Estimates are clamped
	// here at every Newton iteration to prevent divergence.
	ThetaMin = -4.0
	ThetaMax = 4.0

	convergenceTolerance = 1e-4
	maxIterations        = 50

	// shrinkageStep is the fixed theta step applied while the response
	// pattern is degenerate (all correct or all incorrect) and MLE is
	// unbounded.
	shrinkageStep = 0.7
)

// ScoredItem pairs an administered item with its scored response.
type ScoredItem struct {
	Item    *models.Item
	Correct bool
}

// Estimate holds the outcome of one ability update.
type Estimate struct {
	Theta float64
	SE    float64
}

// Clamp restricts theta to the supported ability scale.
func Clamp(theta float64) float64 {
	return math.Min(ThetaMax, math.Max(ThetaMin, theta))
}

// UpdateAbility re-estimates theta and SE from the full scored history. The
// result is deterministic given identical history and prior theta.
//
// When the history contains both correct and incorrect responses the MLE is
// found by Fisher-scoring Newton iterations on the log-likelihood. Degenerate
// histories (all correct or all incorrect) have no finite MLE, so a fixed
// shrinkage step is applied instead, which avoids the classic failure mode of
// theta running away on long streaks.
func UpdateAbility(history []ScoredItem, priorTheta float64) (Estimate, error) {
	if len(history) == 0 {
		return Estimate{Theta: Clamp(priorTheta), SE: math.Inf(1)}, nil
	}

	correct, incorrect := 0, 0
	for _, h := range history {
		if h.Correct {
			correct++
		} else {
			incorrect++
		}
	}

	var theta float64
	var err error
	if correct == 0 || incorrect == 0 {
		theta = shrinkageUpdate(priorTheta, history[len(history)-1].Correct)
	} else {
		theta, err = newtonRaphson(history, priorTheta)
		if err != nil {
			return Estimate{}, err
		}
	}

	items := make([]*models.Item, len(history))
	for i, h := range history {
		items[i] = h.Item
	}
	se := irt.StandardError(irt.TestInformation(theta, items))

	return Estimate{Theta: theta, SE: se}, nil
}

func shrinkageUpdate(priorTheta float64, lastCorrect bool) float64 {
	if lastCorrect {
		return Clamp(priorTheta + shrinkageStep)
	}
	return Clamp(priorTheta - shrinkageStep)
}

// newtonRaphson maximizes the log-likelihood via Fisher scoring: the observed
// second derivative is replaced by the (always positive) test information,
// which keeps every step in the ascent direction.
func newtonRaphson(history []ScoredItem, start float64) (float64, error) {
	theta := Clamp(start)

	for i := 0; i < maxIterations; i++ {
		score, info := scoreAndInformation(history, theta)
		if info <= 0 {
			break
		}
		delta := score / info
		theta = Clamp(theta + delta)
		if math.Abs(delta) < convergenceTolerance {
			break
		}
	}

	if math.IsNaN(theta) || math.IsInf(theta, 0) {
		return 0, fmt.Errorf("%w: theta=%v after %d iterations", ErrEstimationDiverged, theta, maxIterations)
	}
	return theta, nil
}

// scoreAndInformation evaluates the first derivative of the log-likelihood
// (the score function) and the test information at theta.
//
// For the 3PL model dL/dtheta = sum a_i * (p_i - c_i) / (p_i * (1 - c_i)) * (u_i - p_i).
func scoreAndInformation(history []ScoredItem, theta float64) (score, info float64) {
	for _, h := range history {
		item := h.Item
		p := irt.Probability(theta, item)
		if p <= 0 || p >= 1 {
			continue
		}
		u := 0.0
		if h.Correct {
			u = 1.0
		}
		score += item.Discrimination * (p - item.Guessing) / (p * (1 - item.Guessing)) * (u - p)
		info += irt.Information(theta, item)
	}
	return score, info
}
