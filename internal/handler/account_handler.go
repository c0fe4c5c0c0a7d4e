package handler

import (
	"errors"
	"net/http"

	"loyalty/config"
	"loyalty/internal/middleware"
	"loyalty/internal/models"
	"loyalty/internal/service"
	"loyalty/pkg/errutil"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type AccountHandler struct {
	svc *service.AuthService
	jwt *config.JWTConfig
}

func NewAccountHandler(svc *service.AuthService, jwt *config.JWTConfig) *AccountHandler {
	return &AccountHandler{svc: svc, jwt: jwt}
}

type SignupRequest struct {
	BusinessName     string           `json:"business_name" binding:"required,max=100"`
	RewardRate       *decimal.Decimal `json:"reward_rate" binding:"required"`
	RedemptionPoints *uint            `json:"redemption_points" binding:"required"`
	RedemptionRate   *decimal.Decimal `json:"redemption_rate" binding:"required"`
	LogoURL          string           `json:"logo_url" binding:"omitempty,url"`
	PrimaryColor     string           `json:"primary_color" binding:"omitempty,max=7"`
	BackgroundColor  string           `json:"background_color" binding:"omitempty,max=7"`
	Username         string           `json:"username" binding:"required,max=150"`
	Email            string           `json:"email" binding:"omitempty,email"`
	Password         string           `json:"password" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type PasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

type businessRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type userResponse struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Business    businessRef `json:"business"`
	AccessToken string      `json:"access_token,omitempty"`
}

func toUserResponse(u *models.BusinessUser) userResponse {
	resp := userResponse{ID: u.ID, Username: u.Username, Name: u.DisplayName(), Email: u.Email}
	resp.Business.ID = u.BusinessID
	if u.Business != nil {
		resp.Business.Name = u.Business.Name
	}
	return resp
}

func (h *AccountHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.svc.Signup(c.Request.Context(), service.SignupInput{
		BusinessName:     req.BusinessName,
		RewardRate:       *req.RewardRate,
		RedemptionPoints: *req.RedemptionPoints,
		RedemptionRate:   *req.RedemptionRate,
		LogoURL:          req.LogoURL,
		PrimaryColor:     req.PrimaryColor,
		BackgroundColor:  req.BackgroundColor,
		Username:         req.Username,
		Email:            req.Email,
		Password:         req.Password,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"business_id":   u.BusinessID,
		"business_name": u.Business.Name,
		"username":      u.Username,
	})
}

func (h *AccountHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	u, access, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCreds) {
			_ = c.Error(errutil.BadRequest("Invalid username or password."))
			return
		}
		_ = c.Error(err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.jwt.CookieName, access, int(h.jwt.AccessExpiry.Seconds()), "/", "", h.jwt.CookieSecure, true)

	resp := toUserResponse(u)
	resp.AccessToken = access
	c.JSON(http.StatusOK, resp)
}

func (h *AccountHandler) Logout(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if err := h.svc.Logout(c.Request.Context(), u.ID); err != nil {
		_ = c.Error(err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.jwt.CookieName, "", -1, "/", "", h.jwt.CookieSecure, true)
	c.Status(http.StatusNoContent)
}

func (h *AccountHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, toUserResponse(middleware.CurrentUser(c)))
}

func (h *AccountHandler) ChangePassword(c *gin.Context) {
	var req PasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	u := middleware.CurrentUser(c)
	err := h.svc.ChangePassword(c.Request.Context(), u.ID, req.CurrentPassword, req.NewPassword)
	switch {
	case errors.Is(err, service.ErrWrongPassword):
		_ = c.Error(errutil.BadRequest("Current password is incorrect."))
		return
	case errors.Is(err, service.ErrPasswordTooWeak):
		_ = c.Error(errutil.Validation(map[string]string{"new_password": "Ensure this field has at least 8 characters."}))
		return
	case err != nil:
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Password updated successfully."})
}
