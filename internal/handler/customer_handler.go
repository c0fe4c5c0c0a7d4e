package handler

import (
	"net/http"

	"loyalty/internal/middleware"
	"loyalty/internal/service"

	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	svc *service.CustomerService
}

func NewCustomerHandler(svc *service.CustomerService) *CustomerHandler {
	return &CustomerHandler{svc: svc}
}

type EnrollRequest struct {
	CustomerName string `json:"customer_name" binding:"required,max=100"`
	PhoneNumber  string `json:"phone_number" binding:"required,max=20"`
}

func (h *CustomerHandler) List(c *gin.Context) {
	u := middleware.CurrentUser(c)
	list, err := h.svc.ListEnrollments(c.Request.Context(), u.BusinessID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *CustomerHandler) Enroll(c *gin.Context) {
	var req EnrollRequest
	if !bindJSON(c, &req) {
		return
	}
	u := middleware.CurrentUser(c)
	bc, err := h.svc.Enroll(c.Request.Context(), u.BusinessID, req.CustomerName, req.PhoneNumber)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, bc)
}

func (h *CustomerHandler) Unenroll(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if err := h.svc.Unenroll(c.Request.Context(), u.BusinessID, c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CustomerHandler) ListCards(c *gin.Context) {
	u := middleware.CurrentUser(c)
	cards, err := h.svc.ListCards(c.Request.Context(), u.BusinessID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, cards)
}

func (h *CustomerHandler) CardQR(c *gin.Context) {
	u := middleware.CurrentUser(c)
	payload, err := h.svc.QRPayload(c.Request.Context(), u.BusinessID, c.Param("token"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"qr_payload": payload})
}
