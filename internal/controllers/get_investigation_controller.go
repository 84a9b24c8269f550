package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osvaldoandrade/osintq/internal/services"
	"github.com/osvaldoandrade/osintq/pkg/store"
)

type getInvestigationController struct{ svc services.AgentService }

func NewGetInvestigationController(svc services.AgentService) *getInvestigationController {
	return &getInvestigationController{svc}
}

func (h *getInvestigationController) Handle(c *gin.Context) {
	taskID := c.Param("id")
	task, err := h.svc.GetInvestigation(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}
