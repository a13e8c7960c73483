package web

import (
	"embed"
	"html/template"
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const indexTemplate = "index.html"

//go:embed templates/index.html
var templatesFS embed.FS

// NewRouter wires the handler routes. Cross-origin requests are allowed
// from allowedOrigins only; none are allowed when it is empty.
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.logger))

	if len(allowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: allowedOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type"},
		}))
	}

	tmpl := template.Must(template.ParseFS(templatesFS, "templates/"+indexTemplate))
	r.SetHTMLTemplate(tmpl)

	r.GET("/", h.Index)
	r.POST("/", h.Submit)
	r.POST("/api/ask", h.Ask)
	r.GET("/health", h.Health)

	return r
}

// requestLogger logs one line per request.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
