package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MyReferrals lists the caller's direct referrals.
func (h *Handler) MyReferrals(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	referrals, err := h.Referrals.ListReferrals(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"referrals": referrals})
}

// ReferralStats reports earnings against the caller's cap.
func (h *Handler) ReferralStats(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	stats, err := h.Referrals.Stats(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
