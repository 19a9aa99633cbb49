package server

import (
	"errors"
	"net/http"
	"time"

	"noblechain/models"
	"noblechain/service"

	"github.com/go-chi/render"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error string `json:"error"`
}

// userResponse is the public view of a user; credential hashes never leave the service
type userResponse struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Username          string     `json:"username"`
	CreatedAt         time.Time  `json:"created_at"`
	LastLogin         *time.Time `json:"last_login,omitempty"`
	HasLoggedInBefore bool       `json:"has_logged_in_before"`
	HasTransferPin    bool       `json:"has_transfer_pin"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:                u.ID,
		Email:             u.Email,
		Username:          u.Username,
		CreatedAt:         u.CreatedAt,
		LastLogin:         u.LastLogin,
		HasLoggedInBefore: u.HasLoggedInBefore,
		HasTransferPin:    u.TransferPinHash != "",
	}
}

type sessionResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

type walletResponse struct {
	*models.Wallet
	TotalValue decimal.Decimal `json:"total_value"`
}

type addressResponse struct {
	Symbol  string `json:"symbol"`
	Address string `json:"address"`
}

type pinCheckResponse struct {
	Verified bool `json:"verified"`
}

type supportReplyResponse struct {
	Message *models.SupportMessage `json:"message"`
	Reply   *models.SupportMessage `json:"reply,omitempty"`
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotAuthenticated),
		errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrDuplicateEmail),
		errors.Is(err, service.ErrDuplicateUsername):
		return http.StatusConflict
	case errors.Is(err, service.ErrRecipientNotFound),
		errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrInvalidPin),
		errors.Is(err, service.ErrPinNotSet),
		errors.Is(err, service.ErrPinSetupRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidAsset),
		errors.Is(err, service.ErrInvalidPinFormat),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"path":  r.URL.Path,
			"error": err,
		}).Error("Request failed")
		message = "internal error"
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
