package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

func RegisterRoutes(r gin.IRouter, h *QueryHandler) {
	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	api.POST("/query", h.Query)
	api.POST("/chat", h.Chat)
	api.POST("/extract", h.Extract)
	api.POST("/retrieve", h.Retrieve)
}

// NewRouter builds the gin engine serving the query API.
func NewRouter(h *QueryHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), accessLog())
	RegisterRoutes(r, h)
	return r
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("cost", time.Since(start)),
		}
		if err := c.Errors.Last(); err != nil {
			fields = append(fields, zap.Error(err.Err))
		}
		logutil.GetLogger(c.Request.Context()).Info("request", fields...)
	}
}
