package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"clicker_webapp/internal/domain"
)

// CreateDeposit opens a deposit and returns the wallet payment link.
func (h *Handler) CreateDeposit(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
		Method string          `json:"method"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	receipt, err := h.Transactions.CreateDeposit(c.Request.Context(), userID, req.Amount, domain.TransactionMethod(req.Method))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

// CancelDeposit abandons the caller's deposit while it awaits payment.
func (h *Handler) CancelDeposit(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	txID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.Transactions.CancelCreatedDeposit(c.Request.Context(), userID, txID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// RequestWithdrawal reserves funds and queues a withdrawal for review.
func (h *Handler) RequestWithdrawal(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		Amount    decimal.Decimal `json:"amount"`
		Method    string          `json:"method"`
		Recipient string          `json:"recipient"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	tx, err := h.Transactions.RequestWithdrawal(c.Request.Context(), userID, req.Amount, domain.TransactionMethod(req.Method), req.Recipient)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

// History lists the caller's transactions, optionally filtered by type.
func (h *Handler) History(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	txs, err := h.Transactions.History(c.Request.Context(), userID, domain.TransactionType(c.Query("type")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}
