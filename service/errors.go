package service

import "errors"

// Errors surfaced to callers for direct display. Match with errors.Is.
var (
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrDuplicateUsername   = errors.New("username taken")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrNotAuthenticated    = errors.New("not signed in")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidAsset        = errors.New("asset symbol is required")
	ErrRecipientNotFound   = errors.New("recipient not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidPinFormat    = errors.New("invalid PIN: must be 4 to 6 digits")
	ErrPinSetupRequired    = errors.New("PIN setup required")
	ErrPinNotSet           = errors.New("transfer PIN not set")
	ErrInvalidPin          = errors.New("invalid transfer PIN")
	ErrUserNotFound        = errors.New("user not found")
)
