package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osvaldoandrade/osintq/internal/services"
	"github.com/osvaldoandrade/osintq/pkg/domain"
)

type startInvestigationController struct{ svc services.AgentService }

func NewStartInvestigationController(svc services.AgentService) *startInvestigationController {
	return &startInvestigationController{svc}
}

type startReq struct {
	PhoneNumber string `json:"phoneNumber"`
	Identifier  string `json:"identifier"`
	CVE         string `json:"cve"`
	Keyword     string `json:"keyword"`
	Webhook     string `json:"webhook,omitempty"`
}

func (h *startInvestigationController) Handle(c *gin.Context) {
	var req startReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	payload := domain.QueryPayload{
		PhoneNumber: req.PhoneNumber,
		Identifier:  req.Identifier,
		CVE:         req.CVE,
		Keyword:     req.Keyword,
	}

	task, err := h.svc.StartInvestigation(c.Request.Context(), payload, req.Webhook)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, task)
}
