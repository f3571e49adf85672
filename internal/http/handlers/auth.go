package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Register creates a new account. An optional referrer_id links the new
// user into the referral program.
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Login      string `json:"login" binding:"required,min=3,max=32"`
		Password   string `json:"password" binding:"required,min=6,max=72"`
		ReferrerID *int64 `json:"referrer_id"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	user, err := h.Auth.Register(c.Request.Context(), req.Login, req.Password, req.ReferrerID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "login": user.Login})
}

// Login checks credentials and returns a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Login    string `json:"login" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	token, user, err := h.Auth.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  gin.H{"id": user.ID, "login": user.Login, "role": user.Role},
	})
}

// ChangePassword replaces the caller's password.
func (h *Handler) ChangePassword(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required,min=6,max=72"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	if err := h.Auth.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
