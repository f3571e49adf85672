package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"clicker_webapp/internal/logger"
	"clicker_webapp/internal/rates"
	"clicker_webapp/internal/service"
)

// Handler bundles the services behind the HTTP API.
type Handler struct {
	Auth         *service.AuthService
	Transactions *service.TransactionService
	Packages     *service.PackageService
	Store        *service.StoreService
	Clicker      *service.ClickerService
	Referrals    *service.ReferralService
	Admin        *service.AdminService
	JWT          *service.JWTManager
}

// getUserID extracts the authenticated user id set by the JWT middleware.
func getUserID(c *gin.Context) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	uid, ok := uidVal.(int64)
	return uid, ok
}

// fail translates service errors to HTTP responses.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrWrongPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserBlocked):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicateActiveDeposit),
		errors.Is(err, service.ErrPackageAlreadyOwned),
		errors.Is(err, service.ErrBoostAlreadyOwned),
		errors.Is(err, service.ErrActiveMultiplier),
		errors.Is(err, service.ErrSkinOutOfOrder),
		errors.Is(err, service.ErrNoActivePackage),
		errors.Is(err, service.ErrLoginInUse):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrUnsupportedMethod),
		errors.Is(err, service.ErrMissingRecipient),
		errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrInsufficientGameBalance),
		errors.Is(err, service.ErrSamePassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, rates.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "exchange rate unavailable"})
	default:
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
