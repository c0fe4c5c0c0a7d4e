package handler

import (
	"net/http"

	"loyalty/internal/middleware"
	"loyalty/internal/service"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	svc *service.DashboardService
}

func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

func (h *DashboardHandler) Metrics(c *gin.Context) {
	u := middleware.CurrentUser(c)
	m, err := h.svc.Metrics(c.Request.Context(), u.BusinessID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *DashboardHandler) Detail(c *gin.Context) {
	u := middleware.CurrentUser(c)
	d, err := h.svc.Detail(c.Request.Context(), u.BusinessID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, d)
}
