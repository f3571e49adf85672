package service

import (
	"errors"

	"clicker_webapp/internal/storage"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrNotFound          = errors.New("not found")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrUnsupportedMethod = errors.New("unsupported payment method")
	ErrMissingRecipient  = errors.New("recipient is required")
	ErrInsufficientFunds = errors.New("insufficient funds")

	ErrDuplicateActiveDeposit = errors.New("a deposit is already awaiting payment")

	ErrLoginInUse         = errors.New("login already in use")
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrUserBlocked        = errors.New("user is blocked")
	ErrWrongPassword      = errors.New("wrong current password")
	ErrSamePassword       = errors.New("new password must differ from the current one")

	ErrPackageAlreadyOwned = errors.New("package already purchased")

	ErrInsufficientGameBalance = errors.New("insufficient game balance")
	ErrNoActivePackage         = errors.New("an active package is required")
	ErrBoostAlreadyOwned       = errors.New("limit boost already purchased")
	ErrActiveMultiplier        = errors.New("a multiplier is already active")
	ErrSkinOutOfOrder          = errors.New("skins must be bought in order")
)

func mapUserErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

func mapNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
