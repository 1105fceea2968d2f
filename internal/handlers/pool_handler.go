package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/repositories"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/services"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type PoolHandler struct {
	BaseHandler
	poolService   services.PoolService
	importService services.ImportService
}

func NewPoolHandler(
	poolService services.PoolService,
	importService services.ImportService,
	logger utils.Logger,
) *PoolHandler {
	return &PoolHandler{
		BaseHandler:   NewBaseHandler(logger),
		poolService:   poolService,
		importService: importService,
	}
}

// CreatePool creates a new question pool in Draft status
func (h *PoolHandler) CreatePool(c *gin.Context) {
	h.LogRequest(c, "Creating pool")

	var req services.CreatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	pool, err := h.poolService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, pool)
}

// GetPool retrieves a pool by ID
func (h *PoolHandler) GetPool(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	pool, err := h.poolService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, pool)
}

// GetPoolWithItems retrieves a pool including its item list
func (h *PoolHandler) GetPoolWithItems(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	pool, err := h.poolService.GetByIDWithItems(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, pool)
}

// ListPools lists pools with optional filters
func (h *PoolHandler) ListPools(c *gin.Context) {
	filters := h.parsePoolFilters(c)

	pools, total, err := h.poolService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Data: pools, Total: total})
}

// PublishPool transitions a draft pool to Published
func (h *PoolHandler) PublishPool(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Publishing pool", "pool_id", id)

	if err := h.poolService.Publish(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Pool published"})
}

// ArchivePool transitions a pool to Archived
func (h *PoolHandler) ArchivePool(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Archiving pool", "pool_id", id)

	if err := h.poolService.Archive(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Pool archived"})
}

// AddItem appends one calibrated item to a draft pool
func (h *PoolHandler) AddItem(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	item, err := h.poolService.AddItem(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// AddItems appends a batch of items to a draft pool
func (h *PoolHandler) AddItems(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var reqs []*services.AddItemRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if len(reqs) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Request must contain at least one item",
		})
		return
	}

	items, err := h.poolService.AddItems(c.Request.Context(), id, reqs)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, items)
}

// ImportItems bulk-imports items from an uploaded CSV or Excel file
func (h *PoolHandler) ImportItems(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing file upload",
			Details: err.Error(),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Cannot open uploaded file",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing items", "pool_id", id, "filename", fileHeader.Filename)

	result, err := h.importService.ImportItemsFromFile(c.Request.Context(), id, file, fileHeader.Filename)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportItems downloads the pool's items as CSV or Excel
func (h *PoolHandler) ExportItems(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	switch c.DefaultQuery("format", "csv") {
	case "csv":
		data, err := h.importService.ExportItemsToCSV(c.Request.Context(), id)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="items.csv"`)
		c.Data(http.StatusOK, "text/csv", data)
	case "xlsx":
		data, err := h.importService.ExportItemsToExcel(c.Request.Context(), id)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="items.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Unsupported export format",
		})
	}
}

func (h *PoolHandler) parsePoolFilters(c *gin.Context) repositories.PoolFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 10)

	filters := repositories.PoolFilters{
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if status := c.Query("status"); status != "" {
		poolStatus := models.PoolStatus(status)
		filters.Status = &poolStatus
	}
	if subject := c.Query("subject"); subject != "" {
		filters.Subject = &subject
	}
	if createdBy := c.Query("created_by"); createdBy != "" {
		filters.CreatedBy = &createdBy
	}

	return filters
}
