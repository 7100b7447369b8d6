package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kkkppp/p2proto/internal/application/services"
	"github.com/kkkppp/p2proto/pkg/constants"
)

type SystemHandler struct {
	svc *services.ServiceManager
}

func NewSystemHandler(svc *services.ServiceManager) *SystemHandler {
	return &SystemHandler{svc: svc}
}

// Health handles GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	if err := h.svc.DB().DB().PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":                "down",
			constants.ResponseError: "database unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"dialect": h.svc.DB().Dialect(),
	})
}

// GetDomains handles GET /api/domains
func (h *SystemHandler) GetDomains(c *gin.Context) {
	domains := GetAllDomains(h.svc.DB().Dialect())
	c.JSON(http.StatusOK, gin.H{
		constants.ResponseData: gin.H{
			"domains": domains,
			"count":   len(domains),
		},
	})
}
