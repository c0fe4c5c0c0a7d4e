package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"loyalty/internal/domain"
	"loyalty/internal/middleware"
	"loyalty/internal/models"
	"loyalty/internal/service"
	"loyalty/pkg/errutil"

	"github.com/gin-gonic/gin"
)

type StationHandler struct {
	svc *service.StationService
}

func NewStationHandler(svc *service.StationService) *StationHandler {
	return &StationHandler{svc: svc}
}

type CreateStationRequest struct {
	Name string `json:"name" binding:"required,max=50"`
}

type IssueRequest struct {
	CustomerName string `json:"customer_name" binding:"required,max=100"`
	PhoneNumber  string `json:"phone_number" binding:"required,max=20"`
}

type issuedCard struct {
	*models.LoyaltyCard
	QRPayload           string `json:"qr_payload"`
	AuthenticationToken string `json:"authentication_token"`
}

type walletLink struct {
	DownloadURL string `json:"download_url"`
}

type issueResponse struct {
	Customer           *models.Customer `json:"customer"`
	BusinessCustomerID string           `json:"business_customer_id"`
	LoyaltyCard        issuedCard       `json:"loyalty_card"`
	StationID          string           `json:"station_id"`
	PreparedPassURL    string           `json:"prepared_pass_url"`
	Wallet             struct {
		Apple  walletLink `json:"apple"`
		Google walletLink `json:"google"`
	} `json:"wallet"`
}

// stationOfBusiness returns the authenticated station, recording a 403 when
// it belongs to another business than the signed-in user.
func stationOfBusiness(c *gin.Context) (*models.Station, bool) {
	st := middleware.CurrentStation(c)
	u := middleware.CurrentUser(c)
	if st == nil || u == nil || st.BusinessID != u.BusinessID {
		_ = c.Error(errutil.Forbidden("Station does not belong to your business."))
		return nil, false
	}
	return st, true
}

func (h *StationHandler) List(c *gin.Context) {
	u := middleware.CurrentUser(c)
	list, err := h.svc.List(c.Request.Context(), u.BusinessID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *StationHandler) Create(c *gin.Context) {
	var req CreateStationRequest
	if !bindJSON(c, &req) {
		return
	}
	u := middleware.CurrentUser(c)
	st, err := h.svc.Create(c.Request.Context(), u.BusinessID, req.Name)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

// Issue prepares a pass on the calling station for the customer at the counter.
func (h *StationHandler) Issue(c *gin.Context) {
	st, ok := stationOfBusiness(c)
	if !ok {
		return
	}
	var req IssueRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Issue(c.Request.Context(), st, req.CustomerName, req.PhoneNumber)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var resp issueResponse
	resp.Customer = res.Customer
	resp.BusinessCustomerID = res.Enrollment.ID
	resp.LoyaltyCard = issuedCard{
		LoyaltyCard:         res.Card,
		QRPayload:           res.Card.Token,
		AuthenticationToken: res.Card.AuthToken(),
	}
	resp.StationID = st.ID
	resp.PreparedPassURL = res.PreparedPassURL
	resp.Wallet.Apple.DownloadURL = res.AppleDownloadURL
	resp.Wallet.Google.DownloadURL = res.GoogleClaimURL
	c.JSON(http.StatusCreated, resp)
}

// Claim is opened by the customer's phone, so it is authenticated by the
// station token in the query string instead of a session.
func (h *StationHandler) Claim(c *gin.Context) {
	platform := strings.ToLower(c.DefaultQuery("platform", domain.PlatformJSON))
	clear := strings.ToLower(c.DefaultQuery("clear", "true")) != "false"

	res, err := h.svc.Claim(c.Request.Context(), c.Param("id"), c.Query("token"), platform, clear)
	switch {
	case errors.Is(err, service.ErrStationNotFound):
		_ = c.Error(errutil.NotFound("Not found."))
		return
	case errors.Is(err, service.ErrStationToken):
		_ = c.Error(errutil.Forbidden("Invalid station token."))
		return
	case errors.Is(err, service.ErrNoPreparedPass):
		_ = c.Error(errutil.NotFound("No pass prepared."))
		return
	case err != nil:
		_ = c.Error(err)
		return
	}

	if res.PKPass != nil {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pkpass"`, res.Card.Token))
		c.Data(http.StatusOK, pkpassContentType, res.PKPass)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"loyalty_card_token":     res.Card.Token,
		"qr_payload":             res.Card.Token,
		"apple_wallet_available": true,
	})
}
