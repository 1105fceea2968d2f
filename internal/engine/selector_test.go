package engine

import (
	"testing"

	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func topicItem(id uint, topic string, a, b, c float64) *models.Item {
	item := gridItem(id, a, b, c)
	item.Topic = topic
	return item
}

func sessionWith(cfg models.SessionConfig, theta float64) *models.Session {
	return &models.Session{
		Status: models.SessionInProgress,
		Theta:  theta,
		Config: datatypes.NewJSONType(cfg),
	}
}

// The three-item scenario: B peaks nearest theta=0, and a correct first
// answer must push selection toward the harder item C.
func scenarioPool(t *testing.T) *pool.Pool {
	t.Helper()
	p, err := pool.New(1, []*models.Item{
		topicItem(1, "general", 1.2, -2, 0.25), // A
		topicItem(2, "general", 1.5, 0, 0.25),  // B
		topicItem(3, "general", 1.8, 2, 0.25),  // C
	}, nil)
	require.NoError(t, err)
	return p
}

func TestSelectNext_MaxInformationAtInitialTheta(t *testing.T) {
	p := scenarioPool(t)
	sess := sessionWith(models.SessionConfig{MaxQuestions: 3, MinQuestions: 1, SEThreshold: 0.01}, 0)

	item, err := NewSelector().SelectNext(sess, p)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, uint(2), item.ID, "item B has the information peak nearest theta=0")
	assert.Equal(t, int64(1), p.Exposure(2), "selection records exposure")
}

func TestSelectNext_FavorsHarderItemAfterCorrectAnswer(t *testing.T) {
	p := scenarioPool(t)
	selector := NewSelector()
	sess := sessionWith(models.SessionConfig{MaxQuestions: 3, MinQuestions: 1, SEThreshold: 0.01}, 0)

	first, err := selector.SelectNext(sess, p)
	require.NoError(t, err)
	require.Equal(t, uint(2), first.ID)

	// Correct answer on B: degenerate all-correct pattern, theta steps up.
	history := []ScoredItem{{Item: first, Correct: true}}
	est, err := UpdateAbility(history, sess.Theta)
	require.NoError(t, err)
	assert.Greater(t, est.Theta, 0.0)

	sess.Theta = est.Theta
	sess.StandardError = est.SE
	sess.Responses = append(sess.Responses, models.Response{ItemID: first.ID, IsCorrect: true})

	second, err := selector.SelectNext(sess, p)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, uint(3), second.ID, "rising theta must favor item C")
}

func TestSelectNext_NoRepeatedAdministration(t *testing.T) {
	p := scenarioPool(t)
	selector := NewSelector()
	sess := sessionWith(models.SessionConfig{MaxQuestions: 3, MinQuestions: 1, SEThreshold: 0.01}, 0)

	seen := map[uint]bool{}
	for i := 0; i < 3; i++ {
		item, err := selector.SelectNext(sess, p)
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.False(t, seen[item.ID], "item %d administered twice", item.ID)
		seen[item.ID] = true
		sess.Responses = append(sess.Responses, models.Response{ItemID: item.ID, IsCorrect: true})
	}

	item, err := selector.SelectNext(sess, p)
	require.NoError(t, err)
	assert.Nil(t, item, "exhausted pool returns no item")
}

func TestSelectNext_TieBreaksOnLowestID(t *testing.T) {
	// Identical calibration: information ties exactly, lowest id must win.
	p, err := pool.New(1, []*models.Item{
		topicItem(7, "general", 1.5, 0, 0.2),
		topicItem(4, "general", 1.5, 0, 0.2),
		topicItem(9, "general", 1.5, 0, 0.2),
	}, nil)
	require.NoError(t, err)

	sess := sessionWith(models.SessionConfig{MaxQuestions: 3, MinQuestions: 1, SEThreshold: 0.01}, 0)
	item, err := NewSelector().SelectNext(sess, p)
	require.NoError(t, err)
	assert.Equal(t, uint(4), item.ID)
}

func TestSelectNext_ExposureControlExcludesOverexposedItems(t *testing.T) {
	// Item 1 carries all prior administrations and blows through the cap;
	// item 2 is fresh and must be selected despite identical information.
	p, err := pool.New(1, []*models.Item{
		topicItem(1, "general", 1.5, 0, 0.2),
		topicItem(2, "general", 1.5, 0, 0.2),
	}, map[uint]int64{1: 40})
	require.NoError(t, err)

	cfg := models.SessionConfig{
		MaxQuestions:    2,
		MinQuestions:    1,
		SEThreshold:     0.01,
		ExposureControl: true,
	}
	item, err := NewSelector().SelectNext(sessionWith(cfg, 0), p)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, uint(2), item.ID)
}

func TestSelectNext_ExposureControlCanExhaustPool(t *testing.T) {
	p, err := pool.New(1, []*models.Item{
		topicItem(1, "general", 1.5, 0, 0.2),
	}, map[uint]int64{1: 40})
	require.NoError(t, err)

	cfg := models.SessionConfig{
		MaxQuestions:    2,
		MinQuestions:    1,
		SEThreshold:     0.01,
		ExposureControl: true,
	}
	item, err := NewSelector().SelectNext(sessionWith(cfg, 0), p)
	require.NoError(t, err)
	assert.Nil(t, item, "every candidate over the cap is a forced stop")
}

func TestSelectNext_TopicBalancingRerankToUnderrepresentedTopic(t *testing.T) {
	items := []*models.Item{
		topicItem(1, "algebra", 1.5, 0, 0),  // slightly more informative
		topicItem(2, "geometry", 1.45, 0, 0), // close second
		topicItem(10, "algebra", 1.5, -0.2, 0),
		topicItem(11, "algebra", 1.5, 0.2, 0),
	}

	run := func(balancing bool) uint {
		p, err := pool.New(1, items, nil)
		require.NoError(t, err)
		cfg := models.SessionConfig{
			MaxQuestions:   4,
			MinQuestions:   1,
			SEThreshold:    0.01,
			TopicBalancing: balancing,
		}
		sess := sessionWith(cfg, 0)
		// Two algebra items already administered, geometry untouched.
		sess.Responses = []models.Response{
			{ItemID: 10, IsCorrect: true},
			{ItemID: 11, IsCorrect: false},
		}
		item, err := NewSelector().SelectNext(sess, p)
		require.NoError(t, err)
		require.NotNil(t, item)
		return item.ID
	}

	assert.Equal(t, uint(1), run(false), "raw information prefers the algebra item")
	assert.Equal(t, uint(2), run(true), "balancing penalty lifts the under-represented topic")
}

func TestSelectNext_TopicBalancingNeverEmptiesCandidates(t *testing.T) {
	// Only one topic left: the penalty re-ranks but must never return nil
	// while a valid item exists.
	p, err := pool.New(1, []*models.Item{
		topicItem(1, "algebra", 1.5, 0, 0),
		topicItem(2, "geometry", 1.5, 0.1, 0),
	}, nil)
	require.NoError(t, err)

	cfg := models.SessionConfig{
		MaxQuestions:   3,
		MinQuestions:   1,
		SEThreshold:    0.01,
		TopicBalancing: true,
	}
	sess := sessionWith(cfg, 0)
	sess.Responses = []models.Response{{ItemID: 2, IsCorrect: true}}

	item, err := NewSelector().SelectNext(sess, p)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, uint(1), item.ID)
}

func TestHasEligible_NoSideEffects(t *testing.T) {
	p := scenarioPool(t)
	selector := NewSelector()
	sess := sessionWith(models.SessionConfig{MaxQuestions: 3, MinQuestions: 1, SEThreshold: 0.01}, 0)

	assert.True(t, selector.HasEligible(sess, p))
	assert.Equal(t, int64(0), p.TotalAdministrations(), "eligibility probe must not record exposure")
}
