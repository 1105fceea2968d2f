package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/adaptive-testing-service/internal/services"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	poolHandler    *PoolHandler
	sessionHandler *SessionHandler
}

func NewHandlerManager(
	poolService services.PoolService,
	sessionService services.SessionService,
	reportService services.ReportService,
	importService services.ImportService,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		poolHandler:    NewPoolHandler(poolService, importService, logger),
		sessionHandler: NewSessionHandler(sessionService, reportService, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "adaptive-testing-service",
		})
	})

	v1 := router.Group("/api/v1")
	{
		pools := v1.Group("/pools")
		{
			pools.POST("", hm.poolHandler.CreatePool)
			pools.GET("", hm.poolHandler.ListPools)
			pools.GET("/:id", hm.poolHandler.GetPool)
			pools.GET("/:id/items", hm.poolHandler.GetPoolWithItems)
			pools.POST("/:id/publish", hm.poolHandler.PublishPool)
			pools.POST("/:id/archive", hm.poolHandler.ArchivePool)

			// Item authoring
			pools.POST("/:id/items", hm.poolHandler.AddItem)
			pools.POST("/:id/items/batch", hm.poolHandler.AddItems)
			pools.POST("/:id/items/import", hm.poolHandler.ImportItems)
			pools.GET("/:id/items/export", hm.poolHandler.ExportItems)
		}

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.StartSession)
			sessions.GET("", hm.sessionHandler.ListSessions)
			sessions.GET("/:id", hm.sessionHandler.GetSession)

			// Adaptive loop
			sessions.GET("/:id/next", hm.sessionHandler.NextItem)
			sessions.POST("/:id/responses", hm.sessionHandler.SubmitResponse)

			// Lifecycle
			sessions.POST("/:id/complete", hm.sessionHandler.CompleteSession)
			sessions.POST("/:id/abandon", hm.sessionHandler.AbandonSession)

			sessions.GET("/:id/report", hm.sessionHandler.GetReport)
		}
	}
}
