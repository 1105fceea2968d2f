package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/SAP-F-2025/adaptive-testing-service/internal/cache"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
)

func newTestImportService(repo *MockRepository) ImportService {
	logger := utils.NewSlogLogger(testLogger())
	pools := NewPoolService(repo, logger, utils.NewValidator(), cache.NoopCache{})
	return NewImportService(pools, logger)
}

const importCSV = `text,type,difficulty,discrimination,guessing,topic,correct_answer,answer_options
What is 2+2?,multiple_choice,0.5,1.2,0.25,arithmetic,4,2|3|4|5
Broken row,multiple_choice,not_a_number,1.0,0,arithmetic,x,
Is 7 prime?,true_false,-0.3,0.9,0,number_theory,true,
`

func TestImportService_ImportItemsFromCSV(t *testing.T) {
	t.Run("valid rows imported and bad rows collected", func(t *testing.T) {
		repo := newMockRepository()
		repo.pool.On("GetByID", mock.Anything, uint(1)).Return(&models.Pool{ID: 1, Status: models.PoolDraft}, nil)

		var added []*models.Item
		repo.pool.On("AddItems", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				added = args.Get(1).([]*models.Item)
			}).Return(nil)

		result, err := newTestImportService(repo).ImportItemsFromCSV(context.Background(), 1, strings.NewReader(importCSV))
		require.NoError(t, err)

		assert.Equal(t, 3, result.TotalRows)
		assert.Equal(t, 2, result.SuccessCount)
		assert.Equal(t, 1, result.ErrorCount)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, 3, result.Errors[0].Row)
		assert.Equal(t, "difficulty", result.Errors[0].Column)

		require.Len(t, added, 2)
		assert.Equal(t, models.MultipleChoice, added[0].Type)
		assert.Equal(t, 1.2, added[0].Discrimination)
		assert.Equal(t, models.TrueFalse, added[1].Type)
		assert.Equal(t, "number_theory", added[1].Topic)
		repo.assertExpectations(t)
	})

	t.Run("missing required column rejected", func(t *testing.T) {
		repo := newMockRepository()
		csvData := "text,type,difficulty,topic,correct_answer\nq,multiple_choice,0,algebra,a\n"

		_, err := newTestImportService(repo).ImportItemsFromCSV(context.Background(), 1, strings.NewReader(csvData))
		require.Error(t, err)
		assert.True(t, IsValidation(err))
		repo.assertExpectations(t)
	})

	t.Run("header-only file rejected", func(t *testing.T) {
		repo := newMockRepository()
		csvData := "text,type,difficulty,discrimination,topic,correct_answer\n"

		_, err := newTestImportService(repo).ImportItemsFromCSV(context.Background(), 1, strings.NewReader(csvData))
		require.Error(t, err)
		assert.True(t, IsValidation(err))
		repo.assertExpectations(t)
	})

	t.Run("published pool aborts the import", func(t *testing.T) {
		repo := newMockRepository()
		repo.pool.On("GetByID", mock.Anything, uint(1)).Return(&models.Pool{ID: 1, Status: models.PoolPublished}, nil)

		_, err := newTestImportService(repo).ImportItemsFromCSV(context.Background(), 1, strings.NewReader(importCSV))
		assert.ErrorIs(t, err, ErrPoolNotEditable)
		repo.assertExpectations(t)
	})
}

func TestImportService_ImportItemsFromExcel(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"text", "type", "difficulty", "discrimination", "guessing", "topic", "correct_answer"},
		{"Is the sky blue?", "true_false", 0.2, 1.1, 0.0, "nature", "true"},
	}
	for rowIdx, row := range rows {
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, value))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	repo := newMockRepository()
	repo.pool.On("GetByID", mock.Anything, uint(1)).Return(&models.Pool{ID: 1, Status: models.PoolDraft}, nil)
	repo.pool.On("AddItems", mock.Anything, mock.MatchedBy(func(items []*models.Item) bool {
		return len(items) == 1 && items[0].Type == models.TrueFalse && items[0].Topic == "nature"
	})).Return(nil)

	result, err := newTestImportService(repo).ImportItemsFromExcel(context.Background(), 1, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 0, result.ErrorCount)
	repo.assertExpectations(t)
}

func TestImportService_ExportItemsToCSV(t *testing.T) {
	repo := newMockRepository()
	repo.pool.On("GetByIDWithItems", mock.Anything, uint(1)).Return(&models.Pool{
		ID:     1,
		Status: models.PoolPublished,
		Items: []models.Item{
			{ID: 1, Text: "q1", Type: models.MultipleChoice, Difficulty: -0.5, Discrimination: 1.2, Guessing: 0.25, Topic: "algebra", CorrectAnswer: "a", AnswerOptions: datatypes.JSON(`["a","b"]`)},
		},
	}, nil)

	data, err := newTestImportService(repo).ExportItemsToCSV(context.Background(), 1)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, exportHeaders, records[0])
	assert.Equal(t, "q1", records[1][0])
	assert.Equal(t, "-0.5", records[1][2])
	assert.Equal(t, "a|b", records[1][9])
	repo.assertExpectations(t)
}

func TestImportService_UnsupportedFormat(t *testing.T) {
	repo := newMockRepository()

	_, err := newTestImportService(repo).ImportItemsFromFile(context.Background(), 1, nil, "items.pdf")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	repo.assertExpectations(t)
}
