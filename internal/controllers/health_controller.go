package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osvaldoandrade/osintq/pkg/store"
)

type healthController struct{ store store.TaskStore }

func NewHealthController(st store.TaskStore) *healthController {
	return &healthController{st}
}

func (h *healthController) Handle(c *gin.Context) {
	if err := h.store.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
