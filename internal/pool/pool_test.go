package pool

import (
	"sync"
	"testing"

	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calibratedItem(id uint, topic string) *models.Item {
	return &models.Item{
		ID:             id,
		Text:           "stub",
		Type:           models.MultipleChoice,
		Difficulty:     0,
		Discrimination: 1.0,
		Guessing:       0.25,
		Topic:          topic,
		CorrectAnswer:  "A",
	}
}

func TestValidateItemParameters(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.Item)
		wantErr bool
	}{
		{"valid", func(i *models.Item) {}, false},
		{"zero discrimination", func(i *models.Item) { i.Discrimination = 0 }, true},
		{"negative discrimination", func(i *models.Item) { i.Discrimination = -1.2 }, true},
		{"guessing at 1", func(i *models.Item) { i.Guessing = 1 }, true},
		{"negative guessing", func(i *models.Item) { i.Guessing = -0.1 }, true},
		{"guessing zero is valid", func(i *models.Item) { i.Guessing = 0 }, false},
		{"missing text", func(i *models.Item) { i.Text = "" }, true},
		{"missing correct answer", func(i *models.Item) { i.CorrectAnswer = "" }, true},
		{"missing topic", func(i *models.Item) { i.Topic = "" }, true},
		{"unknown type", func(i *models.Item) { i.Type = "essay" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := calibratedItem(1, "algebra")
			tt.mutate(item)
			err := ValidateItemParameters(item)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidItemParameters)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew_RejectsInvalidAndDuplicateItems(t *testing.T) {
	bad := calibratedItem(2, "algebra")
	bad.Discrimination = -0.5
	_, err := New(1, []*models.Item{calibratedItem(1, "algebra"), bad}, nil)
	assert.ErrorIs(t, err, ErrInvalidItemParameters)

	_, err = New(1, []*models.Item{calibratedItem(1, "algebra"), calibratedItem(1, "algebra")}, nil)
	assert.ErrorIs(t, err, ErrInvalidItemParameters)
}

func TestUnadministeredItems(t *testing.T) {
	p, err := New(1, []*models.Item{
		calibratedItem(3, "algebra"),
		calibratedItem(1, "geometry"),
		calibratedItem(2, "algebra"),
	}, nil)
	require.NoError(t, err)

	remaining := p.UnadministeredItems([]uint{2})
	require.Len(t, remaining, 2)
	assert.Equal(t, uint(1), remaining[0].ID, "items come back in ascending id order")
	assert.Equal(t, uint(3), remaining[1].ID)

	assert.Empty(t, p.UnadministeredItems([]uint{1, 2, 3}))
}

func TestRecordExposure_SeededCounts(t *testing.T) {
	p, err := New(1, []*models.Item{calibratedItem(1, "algebra")}, map[uint]int64{1: 7})
	require.NoError(t, err)

	assert.Equal(t, int64(7), p.Exposure(1))
	assert.Equal(t, int64(7), p.TotalAdministrations())

	require.NoError(t, p.RecordExposure(1))
	assert.Equal(t, int64(8), p.Exposure(1))

	assert.ErrorIs(t, p.RecordExposure(99), ErrItemNotFound)
}

func TestRecordExposure_ConcurrentSessions(t *testing.T) {
	p, err := New(1, []*models.Item{calibratedItem(1, "algebra"), calibratedItem(2, "algebra")}, nil)
	require.NoError(t, err)

	const workers = 16
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			id := uint(w%2 + 1)
			for i := 0; i < perWorker; i++ {
				_ = p.RecordExposure(id)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, int64(workers*perWorker), p.TotalAdministrations(), "no lost updates")
	assert.Equal(t, int64(workers*perWorker), p.Exposure(1)+p.Exposure(2))
}
