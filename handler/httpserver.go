package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
)

// maxLocalBody caps request bodies read by the local server.
const maxLocalBody = 1 << 20

// NewEngine serves h over plain HTTP for local development. Every request
// except /health is converted into a proxy event and passed to Handle.
func NewEngine(h *Handler) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(gin.LoggerWithConfig(gin.LoggerConfig{SkipPaths: []string{"/health"}}))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.NoRoute(func(c *gin.Context) {
		serveProxy(c, h)
	})
	return engine
}

func serveProxy(c *gin.Context, h *Handler) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxLocalBody))
	if err != nil {
		slog.Error("failed to read request body", "err", err)
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid JSON in request body"})
		return
	}

	resp, err := h.Handle(c.Request.Context(), toProxyEvent(c.Request, body))
	if err != nil {
		slog.Error("handler returned error", "err", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}

	for k, v := range resp.Headers {
		c.Writer.Header().Set(k, v)
	}
	for k, values := range resp.MultiValueHeaders {
		for _, v := range values {
			c.Writer.Header().Add(k, v)
		}
	}
	c.Data(resp.StatusCode, resp.Headers["Content-Type"], []byte(resp.Body))
}

func toProxyEvent(r *http.Request, body []byte) events.APIGatewayProxyRequest {
	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		headers[k] = strings.Join(v, ", ")
	}
	// Multiple Cookie headers are joined with "; " as browsers send them.
	if cookies := r.Header.Values("Cookie"); len(cookies) > 0 {
		headers["Cookie"] = strings.Join(cookies, "; ")
	}
	query := make(map[string]string, len(r.URL.Query()))
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}
	return events.APIGatewayProxyRequest{
		HTTPMethod:            r.Method,
		Path:                  r.URL.Path,
		Headers:               headers,
		MultiValueHeaders:     r.Header,
		QueryStringParameters: query,
		Body:                  string(body),
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Correlation-Id")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
