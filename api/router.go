package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/coursefetch/api/handlers"
	"github.com/meghashyamc/coursefetch/logger"
	"github.com/meghashyamc/coursefetch/validation"
)

func setupRoutes(router *gin.Engine, logger logger.Logger, deps *dependencies, validator *validation.Validator) {
	router.GET("/health", health(deps))

	handlers.SetupIndex(router, logger, deps.indexService, validator)
	handlers.SetupSearch(router, logger, deps.searchDB, validator)
	handlers.SetupDocuments(router, logger, deps.docStore, validator)
	handlers.SetupRuns(router, logger, deps.ledger, validator)
}

func health(deps *dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.docStore.Ping(c.Request.Context()); err != nil {
			c.String(http.StatusServiceUnavailable, "document store unreachable")
			return
		}
		c.String(http.StatusOK, "OK")
	}
}

func newRouter() *gin.Engine {
	router := gin.New()
	router.UseRawPath = true
	router.Use(_CORSMiddleware())
	router.Use(gin.Recovery())

	return router
}
