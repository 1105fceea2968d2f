package irt

import (
	"math"
	"testing"

	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
	"github.com/stretchr/testify/assert"
)

func testItem(a, b, c float64) *models.Item {
	return &models.Item{
		Discrimination: a,
		Difficulty:     b,
		Guessing:       c,
	}
}

func TestProbability_Monotonic(t *testing.T) {
	item := testItem(1.5, 0.5, 0.25)

	prev := Probability(-6, item)
	for theta := -5.5; theta <= 6; theta += 0.5 {
		p := Probability(theta, item)
		assert.Greater(t, p, prev, "probability must strictly increase in theta (theta=%v)", theta)
		prev = p
	}
}

func TestProbability_Asymptotes(t *testing.T) {
	item := testItem(1.2, 0, 0.2)

	assert.InDelta(t, 0.2, Probability(-50, item), 1e-9, "lower asymptote is the guessing parameter")
	assert.InDelta(t, 1.0, Probability(50, item), 1e-9, "upper asymptote is 1")

	p := Probability(0, item)
	assert.Greater(t, p, 0.0)
	assert.Less(t, p, 1.0)
}

func TestProbability_AtDifficulty(t *testing.T) {
	// With c=0 the curve passes through 0.5 at theta = b.
	item := testItem(2.0, 1.0, 0)
	assert.InDelta(t, 0.5, Probability(1.0, item), 1e-12)
}

func TestInformation_PeaksNearDifficulty(t *testing.T) {
	item := testItem(1.5, 0.8, 0)

	atB := Information(0.8, item)
	assert.GreaterOrEqual(t, atB, Information(1.8, item))
	assert.GreaterOrEqual(t, atB, Information(-0.2, item))
}

func TestInformation_VanishesAtTails(t *testing.T) {
	item := testItem(1.5, 0, 0.25)

	assert.InDelta(t, 0, Information(-40, item), 1e-9)
	assert.InDelta(t, 0, Information(40, item), 1e-9)
	assert.Greater(t, Information(0, item), 0.0)
}

func TestInformation_NonNegative(t *testing.T) {
	item := testItem(0.7, -2, 0.3)
	for theta := -4.0; theta <= 4; theta += 0.25 {
		assert.GreaterOrEqual(t, Information(theta, item), 0.0)
	}
}

func TestTestInformationAndStandardError(t *testing.T) {
	items := []*models.Item{
		testItem(1.2, -1, 0.2),
		testItem(1.5, 0, 0.2),
		testItem(1.8, 1, 0.2),
	}

	total := TestInformation(0, items)
	assert.Greater(t, total, 0.0)

	se := StandardError(total)
	assert.InDelta(t, math.Sqrt(1/total), se, 1e-12)

	assert.True(t, math.IsInf(StandardError(0), 1), "zero information means undefined precision")
}

func TestNormalCDF(t *testing.T) {
	assert.InDelta(t, 0.5, NormalCDF(0), 1e-12)
	assert.InDelta(t, 0.8413, NormalCDF(1), 1e-4)
	assert.InDelta(t, 0.0228, NormalCDF(-2), 1e-4)
}
