package handlers

import (
	"net/http"
	"time"

	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/repositories"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/services"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
	reportService  services.ReportService
}

func NewSessionHandler(
	sessionService services.SessionService,
	reportService services.ReportService,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
		reportService:  reportService,
	}
}

// ItemView is the examinee-facing projection of an item. The answer key and
// the calibration parameters never leave the server during a session.
type ItemView struct {
	ID            uint                `json:"id"`
	Text          string              `json:"text"`
	Type          models.QuestionType `json:"type"`
	Topic         string              `json:"topic"`
	AnswerOptions datatypes.JSON      `json:"answer_options,omitempty"`
}

func toItemView(item *models.Item) ItemView {
	return ItemView{
		ID:            item.ID,
		Text:          item.Text,
		Type:          item.Type,
		Topic:         item.Topic,
		AnswerOptions: item.AnswerOptions,
	}
}

// StartSession begins a new adaptive session on a published pool
func (h *SessionHandler) StartSession(c *gin.Context) {
	h.LogRequest(c, "Starting session")

	var req services.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	session, err := h.sessionService.Start(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// GetSession retrieves a session with its response history
func (h *SessionHandler) GetSession(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	session, err := h.sessionService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// ListSessions lists sessions with optional filters
func (h *SessionHandler) ListSessions(c *gin.Context) {
	filters := h.parseSessionFilters(c)

	sessions, total, err := h.sessionService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Data: sessions, Total: total})
}

// NextItem selects and returns the next question for the session
func (h *SessionHandler) NextItem(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	item, err := h.sessionService.NextItem(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toItemView(item))
}

// SubmitResponse scores an answer and advances the session
func (h *SessionHandler) SubmitResponse(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.SubmitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	req.SessionID = id

	result, err := h.sessionService.SubmitResponse(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CompleteSession finalizes a session and returns its report
func (h *SessionHandler) CompleteSession(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Completing session", "session_id", id)

	report, err := h.sessionService.Complete(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// AbandonSession marks a session abandoned without generating a report
func (h *SessionHandler) AbandonSession(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Abandoning session", "session_id", id)

	if err := h.sessionService.Abandon(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Session abandoned"})
}

// GetReport retrieves the report for a completed session
func (h *SessionHandler) GetReport(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	report, err := h.reportService.GetBySessionID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *SessionHandler) parseSessionFilters(c *gin.Context) repositories.SessionFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 10)

	filters := repositories.SessionFilters{
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if status := c.Query("status"); status != "" {
		sessionStatus := models.SessionStatus(status)
		filters.Status = &sessionStatus
	}
	if examineeID := c.Query("examinee_id"); examineeID != "" {
		filters.ExamineeID = &examineeID
	}
	if poolID := uint(h.parseIntQuery(c, "pool_id", 0)); poolID != 0 {
		filters.PoolID = &poolID
	}
	if from := c.Query("date_from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filters.DateFrom = &t
		}
	}
	if to := c.Query("date_to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filters.DateTo = &t
		}
	}

	return filters
}
