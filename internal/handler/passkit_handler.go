package handler

import (
	"errors"
	"fmt"
	"net/http"

	"loyalty/internal/models"
	"loyalty/internal/service"
	"loyalty/pkg/errutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const pkpassContentType = "application/vnd.apple.pkpass"

// PassKitHandler serves the web service Wallet calls on behalf of devices.
type PassKitHandler struct {
	regs   *service.RegistrationService
	passes *service.PassService
	log    *zap.Logger
}

func NewPassKitHandler(regs *service.RegistrationService, passes *service.PassService, log *zap.Logger) *PassKitHandler {
	return &PassKitHandler{regs: regs, passes: passes, log: log}
}

type registerDeviceRequest struct {
	PushToken string `json:"pushToken"`
}

type logRequest struct {
	Logs []string `json:"logs"`
}

// authorizedCard enforces pass type, serial existence and the ApplePass header.
func (h *PassKitHandler) authorizedCard(c *gin.Context) (*models.LoyaltyCard, bool) {
	if err := h.regs.RequirePassType(c.Param("passType")); err != nil {
		_ = c.Error(errutil.NotFound("Unknown pass type identifier."))
		return nil, false
	}
	card, err := h.regs.AuthorizeCard(c.Request.Context(), c.Param("serial"), c.GetHeader("Authorization"))
	if errors.Is(err, service.ErrPassAuth) {
		_ = c.Error(errutil.Unauthorized("Invalid pass authorization."))
		return nil, false
	}
	if err != nil {
		_ = c.Error(err)
		return nil, false
	}
	return card, true
}

func (h *PassKitHandler) Register(c *gin.Context) {
	card, ok := h.authorizedCard(c)
	if !ok {
		return
	}
	var req registerDeviceRequest
	// an unreadable body is treated like a missing push token
	_ = c.ShouldBindJSON(&req)

	created, err := h.regs.Register(c.Request.Context(), card, c.Param("device"), c.Param("passType"), req.PushToken)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if created {
		c.Status(http.StatusCreated)
		return
	}
	c.Status(http.StatusOK)
}

func (h *PassKitHandler) Unregister(c *gin.Context) {
	card, ok := h.authorizedCard(c)
	if !ok {
		return
	}
	if err := h.regs.Unregister(c.Request.Context(), card, c.Param("device"), c.Param("passType")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *PassKitHandler) ListSerials(c *gin.Context) {
	if err := h.regs.RequirePassType(c.Param("passType")); err != nil {
		_ = c.Error(errutil.NotFound("Unknown pass type identifier."))
		return
	}
	serials, lastUpdated, err := h.regs.ListChangedSerials(c.Request.Context(),
		c.Param("device"), c.Param("passType"), c.Query("passesUpdatedSince"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if len(serials) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lastUpdated": lastUpdated, "serialNumbers": serials})
}

func (h *PassKitHandler) Download(c *gin.Context) {
	card, ok := h.authorizedCard(c)
	if !ok {
		return
	}
	pkg, err := h.passes.Build(c.Request.Context(), card)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pkpass"`, card.Token))
	c.Header("Last-Modified", card.UpdatedAt.UTC().Format(http.TimeFormat))
	c.Data(http.StatusOK, pkpassContentType, pkg.Data)
}

// Log records diagnostics Wallet reports about this web service.
func (h *PassKitHandler) Log(c *gin.Context) {
	var req logRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		for _, line := range req.Logs {
			h.log.Warn("passkit device log", zap.String("message", line))
		}
	}
	c.Status(http.StatusOK)
}
