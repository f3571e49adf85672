package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Me returns the caller's profile with referral earnings state.
func (h *Handler) Me(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.Auth.GetUser(ctx, userID)
	if err != nil {
		fail(c, err)
		return
	}
	stats, err := h.Referrals.Stats(ctx, userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":              user.ID,
		"login":           user.Login,
		"role":            user.Role,
		"balance":         user.Balance,
		"game_balance":    user.GameBalance,
		"level":           user.Level,
		"clicks":          user.Clicks,
		"skin_id":         user.SkinID,
		"package_id":      user.PackageID,
		"earnings_limit":  stats.EarningsLimit,
		"total_earnings":  stats.TotalEarnings,
		"remaining_limit": stats.RemainingLimit,
		"created_at":      user.CreatedAt,
	})
}
