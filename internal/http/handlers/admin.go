package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"clicker_webapp/internal/domain"
	"clicker_webapp/internal/service"
	"clicker_webapp/internal/storage"
)

// AdminSearchTransactions filters transactions by user, status and
// minimum amount.
func (h *Handler) AdminSearchTransactions(c *gin.Context) {
	var f storage.TransactionFilter
	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		f.UserID = &id
	}
	f.Status = domain.TransactionStatus(c.Query("status"))
	if v := c.Query("min_amount"); v != "" {
		min, err := decimal.NewFromString(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_amount"})
			return
		}
		f.MinAmount = &min
	}

	txs, err := h.Admin.SearchTransactions(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

// AdminSearchUsers filters accounts by login substring, role and minimum
// balance.
func (h *Handler) AdminSearchUsers(c *gin.Context) {
	f := storage.UserFilter{
		Login: c.Query("login"),
		Role:  domain.Role(c.Query("role")),
	}
	if v := c.Query("min_balance"); v != "" {
		min, err := decimal.NewFromString(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_balance"})
			return
		}
		f.MinBalance = &min
	}

	users, err := h.Admin.SearchUsers(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// AdminUpdateUser edits login, role or blocked state of an account.
func (h *Handler) AdminUpdateUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req struct {
		Login     *string `json:"login"`
		Role      *string `json:"role"`
		IsBlocked *bool   `json:"is_blocked"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	in := service.UpdateUserInput{Login: req.Login, IsBlocked: req.IsBlocked}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		if role != domain.RoleUser && role != domain.RoleAdmin {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
			return
		}
		in.Role = &role
	}

	user, err := h.Admin.UpdateUser(c.Request.Context(), userID, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// AdminConfirmDeposit moves a deposit into the moderation queue once the
// transfer shows up on chain.
func (h *Handler) AdminConfirmDeposit(c *gin.Context) {
	txID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	tx, err := h.Transactions.ConfirmDeposit(c.Request.Context(), txID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// AdminApproveTransaction finalizes a pending transaction.
func (h *Handler) AdminApproveTransaction(c *gin.Context) {
	txID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	tx, err := h.Transactions.Approve(c.Request.Context(), txID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// AdminRejectTransaction declines a pending transaction.
func (h *Handler) AdminRejectTransaction(c *gin.Context) {
	txID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	tx, err := h.Transactions.Reject(c.Request.Context(), txID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// AdminCancelTransaction removes a pending transaction entirely.
func (h *Handler) AdminCancelTransaction(c *gin.Context) {
	txID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.Transactions.CancelPending(c.Request.Context(), txID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// AdminStats returns platform-wide aggregates.
func (h *Handler) AdminStats(c *gin.Context) {
	stats, err := h.Admin.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
