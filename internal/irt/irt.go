// Package irt implements the three-parameter logistic (3PL) item response
// model used by the selection and estimation engine.
package irt

import (
	"math"

	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
)

// Probability returns P(correct | theta) under the 3PL model:
//
//	p = c + (1-c) / (1 + exp(-a*(theta-b)))
//
// For a > 0 the curve is strictly increasing in theta, approaching c as
// theta -> -Inf and 1 as theta -> +Inf.
func Probability(theta float64, item *models.Item) float64 {
	a := item.Discrimination
	b := item.Difficulty
	c := item.Guessing
	return c + (1-c)/(1+math.Exp(-a*(theta-b)))
}

// Information returns the Fisher information the item contributes at theta:
//
//	I = a^2 * ((p-c)/(1-c))^2 * (1-p)/p
//
// Information peaks near theta = b (the exact maximizer shifts slightly with
// c) and vanishes at both tails. It is a selection and precision heuristic
// only and is never persisted.
func Information(theta float64, item *models.Item) float64 {
	a := item.Discrimination
	c := item.Guessing
	p := Probability(theta, item)
	if p <= 0 || p >= 1 {
		return 0
	}
	q := (p - c) / (1 - c)
	return a * a * q * q * (1 - p) / p
}

// TestInformation sums item information over a set of administered items.
func TestInformation(theta float64, items []*models.Item) float64 {
	var total float64
	for _, item := range items {
		total += Information(theta, item)
	}
	return total
}

// StandardError converts total test information into the standard error of
// the ability estimate. Zero information means precision is still undefined
// and is reported as +Inf.
func StandardError(totalInformation float64) float64 {
	if totalInformation <= 0 {
		return math.Inf(1)
	}
	return math.Sqrt(1 / totalInformation)
}

// NormalCDF is the standard normal cumulative distribution function, used to
// map theta onto a population percentile.
func NormalCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}
