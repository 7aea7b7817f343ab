package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"news_ingestor/internal/domain"
)

// SummaryReader returns the latest run summary of a source, nil if none.
type SummaryReader interface {
	Get(ctx context.Context, sourceID string) (*domain.RunSummary, error)
}

type Server struct {
	summaries SummaryReader
	logger    *slog.Logger
}

func NewServer(summaries SummaryReader, logger *slog.Logger) *Server {
	return &Server{summaries: summaries, logger: logger}
}

// Router builds the engine; liveness never depends on ingestion state.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	s.RegisterRoutes(r)
	return r
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/summaries/:source", s.getSummary)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getSummary(c *gin.Context) {
	sourceID := c.Param("source")

	summary, err := s.summaries.Get(c.Request.Context(), sourceID)
	if err != nil {
		s.logger.Error("read summary failed", "source", sourceID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": "no run recorded for source",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    summary,
	})
}
