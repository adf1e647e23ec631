package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	// Health check
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/session/current", handler.GetCurrentSession)
		v1.GET("/session/events", handler.ListSessionEvents)
		v1.POST("/session/advance-term", handler.AdvanceTerm)
		v1.POST("/session/migrate", handler.MigrateSession)
		v1.PUT("/session/:id", handler.UpdateSession)
		v1.PUT("/session/:id/dates", handler.UpdateSessionDates)

		v1.GET("/grading/evaluate", handler.EvaluateScores)

		v1.POST("/results", handler.SubmitResult)
		v1.GET("/results", handler.ListResults)
		v1.DELETE("/results/:id", handler.DeleteResult)

		v1.POST("/batches", handler.SubmitBatch)
		v1.POST("/batches/sheet", handler.UploadSheet)
		v1.GET("/batches/:run_id", handler.GetBatchRun)
	}
}
