package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/kkkppp/p2proto/internal/application/services"
	"github.com/kkkppp/p2proto/internal/interfaces/middleware"
	"github.com/kkkppp/p2proto/pkg/auth"
	"github.com/kkkppp/p2proto/pkg/versioning"
)

// NewRouter registers every route on a new gin engine. Everything under
// /api needs a bearer token signed by tokens.
func NewRouter(svcMgr *services.ServiceManager, tokens *auth.TokenManager) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	systemHandler := NewSystemHandler(svcMgr)
	tableHandler := NewTableHandler(svcMgr)
	dataHandler := NewDataHandler(svcMgr)
	formulaHandler := NewFormulaHandler(svcMgr)

	router.GET("/health", systemHandler.Health)

	api := router.Group("/api")
	api.Use(versioning.Middleware(), middleware.RequireAuth(tokens))
	{
		api.GET("/domains", systemHandler.GetDomains)

		tables := api.Group("/tables")
		{
			tables.GET("", tableHandler.GetTables)
			tables.POST("", tableHandler.CreateTable)
			tables.GET("/:id", tableHandler.GetTable)
			tables.PUT("/:id/labels", tableHandler.UpdateLabels)
		}

		data := api.Group("/data")
		{
			data.GET("/:table", dataHandler.GetRecords)
			data.POST("/:table", dataHandler.CreateRecord)
			data.POST("/:table/query", dataHandler.QueryRecords)
			data.GET("/:table/:id", dataHandler.GetRecord)
			data.PUT("/:table/:id", dataHandler.UpdateRecord)
			data.DELETE("/:table/:id", dataHandler.DeleteRecord)
		}

		formula := api.Group("/formula")
		{
			formula.POST("/validate", formulaHandler.Validate)
			formula.POST("/preview", formulaHandler.Preview)
			formula.GET("/functions", formulaHandler.GetFunctions)
		}
	}

	return router
}
