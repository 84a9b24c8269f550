// Package tools hosts the collaborator side of the investigation pipeline:
// web search, page scraping, and LLM-backed fact extraction, exposed as
// HTTP endpoints. The agent never touches the internet directly; everything
// external flows through these tools.
package tools

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/osvaldoandrade/osintq/pkg/config"
)

type Service struct {
	cfg    config.ToolsConfig
	logger *slog.Logger
	client *http.Client
}

func NewService(cfg config.ToolsConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *Service) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
