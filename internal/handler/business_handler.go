package handler

import (
	"errors"
	"net/http"

	"loyalty/internal/middleware"
	"loyalty/internal/service"
	"loyalty/pkg/errutil"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const maxLogoBytes = 5 << 20

type BusinessHandler struct {
	svc *service.BusinessService
}

func NewBusinessHandler(svc *service.BusinessService) *BusinessHandler {
	return &BusinessHandler{svc: svc}
}

type UpdateBusinessRequest struct {
	Name             *string          `json:"name" binding:"omitempty,max=100"`
	RewardRate       *decimal.Decimal `json:"reward_rate"`
	RedemptionPoints *uint            `json:"redemption_points"`
	RedemptionRate   *decimal.Decimal `json:"redemption_rate"`
	LogoURL          *string          `json:"logo_url" binding:"omitempty,url"`
	PrimaryColor     *string          `json:"primary_color"`
	BackgroundColor  *string          `json:"background_color"`
}

func (h *BusinessHandler) Get(c *gin.Context) {
	u := middleware.CurrentUser(c)
	biz, err := h.svc.Get(c.Request.Context(), u.BusinessID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, biz)
}

// Update changes rates and branding. New rates apply to future settlements only.
func (h *BusinessHandler) Update(c *gin.Context) {
	var req UpdateBusinessRequest
	if !bindJSON(c, &req) {
		return
	}
	u := middleware.CurrentUser(c)
	biz, err := h.svc.Update(c.Request.Context(), u.BusinessID, service.BusinessUpdate{
		Name:             req.Name,
		RewardRate:       req.RewardRate,
		RedemptionPoints: req.RedemptionPoints,
		RedemptionRate:   req.RedemptionRate,
		LogoURL:          req.LogoURL,
		PrimaryColor:     req.PrimaryColor,
		BackgroundColor:  req.BackgroundColor,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, biz)
}

func (h *BusinessHandler) UploadLogo(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		_ = c.Error(errutil.Validation(map[string]string{"file": "No file was submitted."}))
		return
	}
	if fh.Size > maxLogoBytes {
		_ = c.Error(errutil.Validation(map[string]string{"file": "Logo must be 5 MB or smaller."}))
		return
	}
	f, err := fh.Open()
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer f.Close()

	u := middleware.CurrentUser(c)
	biz, err := h.svc.UploadLogo(c.Request.Context(), u.BusinessID, f)
	if errors.Is(err, service.ErrLogoUploadDisabled) {
		_ = c.Error(errutil.Unavailable("Logo upload is not available."))
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, biz)
}
