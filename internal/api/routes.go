package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.GET("/recommendations", handler.GetRecommendations)

		api.GET("/units/:id/negotiation", handler.GetNegotiationStrategy)
		api.GET("/units/:id/script", handler.GetNegotiationScript)
		api.GET("/units/:id/forecast", handler.GetUnitForecast)
		api.GET("/units/:id/history", handler.GetPriceHistory)

		api.GET("/market/context", handler.GetMarketContext)

		api.GET("/preferences/:user_id", handler.GetPreferences)
		api.PUT("/preferences/:user_id", handler.SavePreferences)

		api.POST("/listings", handler.IngestListings)
		api.POST("/alerts/test", handler.TestAlert)
	}
}
