package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Click applies a single click over HTTP. The websocket feed is the
// primary path; this exists for clients without a socket.
func (h *Handler) Click(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	res, err := h.Clicker.Click(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	if res.Throttled {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too fast"})
		return
	}
	c.JSON(http.StatusOK, res)
}
