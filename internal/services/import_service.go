package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/utils"
	"github.com/xuri/excelize/v2"
)

// ImportService handles bulk item import and export for draft pools.
type ImportService interface {
	ImportItemsFromFile(ctx context.Context, poolID uint, file multipart.File, filename string) (*ImportResult, error)
	ImportItemsFromCSV(ctx context.Context, poolID uint, reader io.Reader) (*ImportResult, error)
	ImportItemsFromExcel(ctx context.Context, poolID uint, reader io.Reader) (*ImportResult, error)

	ExportItemsToCSV(ctx context.Context, poolID uint) ([]byte, error)
	ExportItemsToExcel(ctx context.Context, poolID uint) ([]byte, error)
}

type importService struct {
	pools  PoolService
	logger utils.Logger
}

func NewImportService(pools PoolService, logger utils.Logger) ImportService {
	return &importService{
		pools:  pools,
		logger: logger,
	}
}

// ===== IMPORT OPERATIONS =====

// RowError pins a rejected import row to the column that failed.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
	Value   string `json:"value"`
}

type ImportResult struct {
	TotalRows    int            `json:"total_rows"`
	SuccessCount int            `json:"success_count"`
	ErrorCount   int            `json:"error_count"`
	Errors       []RowError     `json:"errors,omitempty"`
	Items        []*models.Item `json:"items,omitempty"`
}

// requiredColumns must be present in the header row; remaining columns are
// optional and default per the item parameter rules.
var requiredColumns = []string{"text", "type", "difficulty", "discrimination", "topic", "correct_answer"}

func (s *importService) ImportItemsFromFile(ctx context.Context, poolID uint, file multipart.File, filename string) (*ImportResult, error) {
	s.logger.Info("Starting item import", "pool_id", poolID, "filename", filename)

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return s.ImportItemsFromCSV(ctx, poolID, file)
	case ".xlsx", ".xls":
		return s.ImportItemsFromExcel(ctx, poolID, file)
	default:
		return nil, fmt.Errorf("unsupported file format %q: %w", ext, ErrValidationFailed)
	}
}

func (s *importService) ImportItemsFromCSV(ctx context.Context, poolID uint, reader io.Reader) (*ImportResult, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	return s.importRows(ctx, poolID, records, "CSV")
}

func (s *importService) ImportItemsFromExcel(ctx context.Context, poolID uint, reader io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file has no sheets: %w", ErrValidationFailed)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}

	return s.importRows(ctx, poolID, rows, "Excel")
}

// importRows is the shared pipeline: parse header, collect per-row errors,
// then add the valid items to the pool in one batch. A row error never aborts
// the import; a pool in the wrong lifecycle state does.
func (s *importService) importRows(ctx context.Context, poolID uint, rows [][]string, format string) (*ImportResult, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("file must have a header row and at least one data row: %w", ErrValidationFailed)
	}

	headerMap := make(map[string]int)
	for i, header := range rows[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := headerMap[col]; !ok {
			return nil, fmt.Errorf("missing required column %q: %w", col, ErrValidationFailed)
		}
	}

	result := &ImportResult{TotalRows: len(rows) - 1}
	var reqs []*AddItemRequest
	for rowIndex, record := range rows[1:] {
		req, rowErrors := parseItemRow(record, headerMap, rowIndex+2)
		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
			result.ErrorCount++
			continue
		}
		reqs = append(reqs, req)
	}

	if len(reqs) > 0 {
		items, err := s.pools.AddItems(ctx, poolID, reqs)
		if err != nil {
			return nil, err
		}
		result.Items = items
		result.SuccessCount = len(items)
	}

	s.logger.Info("Item import completed",
		"pool_id", poolID,
		"format", format,
		"total_rows", result.TotalRows,
		"success_count", result.SuccessCount,
		"error_count", result.ErrorCount)

	return result, nil
}

func parseItemRow(record []string, headerMap map[string]int, rowNum int) (*AddItemRequest, []RowError) {
	var errors []RowError

	getColumn := func(name string) string {
		if index, ok := headerMap[name]; ok && index < len(record) {
			return strings.TrimSpace(record[index])
		}
		return ""
	}
	getFloat := func(name string, required bool) float64 {
		raw := getColumn(name)
		if raw == "" {
			if required {
				errors = append(errors, RowError{Row: rowNum, Column: name, Message: "required field"})
			}
			return 0
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errors = append(errors, RowError{Row: rowNum, Column: name, Message: "not a number", Value: raw})
			return 0
		}
		return v
	}

	req := &AddItemRequest{
		Text:           getColumn("text"),
		Type:           strings.ToLower(getColumn("type")),
		Difficulty:     getFloat("difficulty", true),
		Discrimination: getFloat("discrimination", true),
		Guessing:       getFloat("guessing", false),
		Topic:          getColumn("topic"),
		Subtopic:       getColumn("subtopic"),
		CognitiveLevel: getColumn("cognitive_level"),
		CorrectAnswer:  getColumn("correct_answer"),
	}

	for _, col := range []string{"text", "type", "topic", "correct_answer"} {
		if getColumn(col) == "" {
			errors = append(errors, RowError{Row: rowNum, Column: col, Message: "required field"})
		}
	}
	switch models.QuestionType(req.Type) {
	case models.MultipleChoice, models.TrueFalse:
	case "":
	default:
		errors = append(errors, RowError{Row: rowNum, Column: "type", Message: "unsupported question type", Value: req.Type})
	}
	if req.Discrimination <= 0 && getColumn("discrimination") != "" {
		errors = append(errors, RowError{Row: rowNum, Column: "discrimination", Message: "must be positive", Value: getColumn("discrimination")})
	}
	if req.Guessing < 0 || req.Guessing >= 1 {
		errors = append(errors, RowError{Row: rowNum, Column: "guessing", Message: "must be in [0, 1)", Value: getColumn("guessing")})
	}

	// Options arrive pipe-separated: "2|4|6|8".
	if raw := getColumn("answer_options"); raw != "" {
		for _, opt := range strings.Split(raw, "|") {
			req.AnswerOptions = append(req.AnswerOptions, strings.TrimSpace(opt))
		}
	}
	if models.QuestionType(req.Type) == models.TrueFalse {
		if _, err := parseBoolAnswer(req.CorrectAnswer); err != nil {
			errors = append(errors, RowError{Row: rowNum, Column: "correct_answer", Message: "must be a true/false value", Value: req.CorrectAnswer})
		}
	}

	if len(errors) > 0 {
		return nil, errors
	}
	return req, nil
}

// ===== EXPORT OPERATIONS =====

var exportHeaders = []string{
	"text", "type", "difficulty", "discrimination", "guessing",
	"topic", "subtopic", "cognitive_level", "correct_answer", "answer_options",
}

func (s *importService) ExportItemsToCSV(ctx context.Context, poolID uint) ([]byte, error) {
	items, err := s.itemsForExport(ctx, poolID)
	if err != nil {
		return nil, err
	}

	var buf strings.Builder
	writer := csv.NewWriter(&buf)
	if err := writer.Write(exportHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, item := range items {
		if err := writer.Write(itemToRow(item)); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return []byte(buf.String()), nil
}

func (s *importService) ExportItemsToExcel(ctx context.Context, poolID uint) ([]byte, error) {
	items, err := s.itemsForExport(ctx, poolID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheetName := "Items"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	for i, header := range exportHeaders {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}
	for rowIndex, item := range items {
		for colIndex, value := range itemToRow(item) {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *importService) itemsForExport(ctx context.Context, poolID uint) ([]models.Item, error) {
	p, err := s.pools.GetByIDWithItems(ctx, poolID)
	if err != nil {
		return nil, err
	}
	return p.Items, nil
}

func itemToRow(item models.Item) []string {
	row := make([]string, len(exportHeaders))
	row[0] = item.Text
	row[1] = string(item.Type)
	row[2] = strconv.FormatFloat(item.Difficulty, 'f', -1, 64)
	row[3] = strconv.FormatFloat(item.Discrimination, 'f', -1, 64)
	row[4] = strconv.FormatFloat(item.Guessing, 'f', -1, 64)
	row[5] = item.Topic
	row[6] = item.Subtopic
	row[7] = item.CognitiveLevel
	row[8] = item.CorrectAnswer

	if len(item.AnswerOptions) > 0 {
		var options []string
		if err := json.Unmarshal(item.AnswerOptions, &options); err == nil {
			row[9] = strings.Join(options, "|")
		}
	}
	return row
}
