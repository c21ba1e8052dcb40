// Package server exposes the query handler over plain HTTP with gin,
// for local development and for running behind the Lambda gin adapter.
package server

import (
	"io"
	"net/http"

	"ragkb"
	"ragkb/handler"

	"github.com/gin-gonic/gin"
)

const QueryPath = "/query"

func New(h *handler.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logRequests())
	r.POST(QueryPath, query(h))
	r.OPTIONS(QueryPath, query(h))
	return r
}

func query(h *handler.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		resp, _ := h.Handle(c.Request.Context(), handler.NewEvent(c.Request.Method, body))
		for k, v := range resp.Headers {
			c.Header(k, v)
		}
		c.Status(resp.StatusCode)
		if resp.Body == "" {
			c.Writer.WriteHeaderNow()
			return
		}
		_, _ = c.Writer.WriteString(resp.Body)
	}
}

func logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		ragkb.Logger.Info("Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status())
	}
}
