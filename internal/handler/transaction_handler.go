package handler

import (
	"net/http"

	"loyalty/internal/middleware"
	"loyalty/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const transactionListLimit = 50

type TransactionHandler struct {
	settlement *service.SettlementService
	customers  *service.CustomerService
}

func NewTransactionHandler(settlement *service.SettlementService, customers *service.CustomerService) *TransactionHandler {
	return &TransactionHandler{settlement: settlement, customers: customers}
}

type SettleRequest struct {
	LoyaltyCardID *string          `json:"loyalty_card_id"`
	Amount        *decimal.Decimal `json:"amount" binding:"required"`
	Redeem        bool             `json:"redeem"`
}

func (h *TransactionHandler) List(c *gin.Context) {
	u := middleware.CurrentUser(c)
	list, err := h.customers.RecentTransactions(c.Request.Context(), u.BusinessID, transactionListLimit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Create settles a sale rung up at the calling station.
func (h *TransactionHandler) Create(c *gin.Context) {
	st, ok := stationOfBusiness(c)
	if !ok {
		return
	}
	var req SettleRequest
	if !bindJSON(c, &req) {
		return
	}
	txn, err := h.settlement.Settle(c.Request.Context(), st, service.SettleInput{
		LoyaltyCardToken: req.LoyaltyCardID,
		Amount:           *req.Amount,
		Redeem:           req.Redeem,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}
