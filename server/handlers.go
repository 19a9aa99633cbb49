package server

import (
	"errors"
	"fmt"
	"net/http"

	"noblechain/metrics"
	"noblechain/models"
	"noblechain/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/shopspring/decimal"
)

var errBadRequest = errors.New("malformed request body")

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Device   string `json:"device"`
}

type transferRequest struct {
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	Pin       string          `json:"pin"`
}

type pinRequest struct {
	Pin string `json:"pin"`
}

type supportRequest struct {
	Message string `json:"message"`
}

func decode(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" || req.Username == "" {
		writeError(w, r, fmt.Errorf("%w: email, password and username are required", errBadRequest))
		return
	}

	user, session, err := s.svc.Identity.Register(r.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, sessionResponse{User: newUserResponse(user), Token: session.Token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	device := req.Device
	if device == "" {
		device = r.Header.Get("X-Device")
	}

	user, session, err := s.svc.Identity.Authenticate(r.Context(), req.Email, req.Password, device)
	metrics.ObserveLogin(err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sessionResponse{User: newUserResponse(user), Token: session.Token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Identity.EndSession(r.Context(), sessionFrom(r).UserID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLoginHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.svc.Identity.LoginHistory(r.Context(), sessionFrom(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, history)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	userID := sessionFrom(r).UserID
	wallet, err := s.svc.Wallets.GetWallet(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := s.svc.Wallets.TotalValue(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, walletResponse{Wallet: wallet, TotalValue: total})
}

func (s *Server) handleWalletAddress(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	address := s.svc.Wallets.WalletAddress(sessionFrom(r).UserID, symbol)
	writeJSON(w, r, http.StatusOK, addressResponse{Symbol: symbol, Address: address})
}

func (s *Server) handleAddAsset(w http.ResponseWriter, r *http.Request) {
	userID := sessionFrom(r).UserID
	if err := s.svc.Wallets.AddAsset(r.Context(), userID, chi.URLParam(r, "symbol")); err != nil {
		writeError(w, r, err)
		return
	}
	wallet, err := s.svc.Wallets.GetWallet(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, wallet)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.svc.Wallets.Transfer(r.Context(), service.TransferRequest{
		SenderID:          sessionFrom(r).UserID,
		RecipientUsername: req.Recipient,
		Amount:            req.Amount,
		Pin:               req.Pin,
	})
	metrics.ObserveTransfer(err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, result)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.Transactions.ListFor(r.Context(), sessionFrom(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []*models.Transaction{}
	}
	writeJSON(w, r, http.StatusOK, txs)
}

func (s *Server) handleProvisionPin(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Pins.ProvisionPinSlot(r.Context(), sessionFrom(r).UserID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetPin(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Pins.SetPin(r.Context(), sessionFrom(r).UserID, req.Pin); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVerifyPin(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Pins.VerifyPin(r.Context(), sessionFrom(r).UserID, req.Pin); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, pinCheckResponse{Verified: true})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.svc.Market.Snapshot())
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	notices, err := s.svc.Notifications.List(r.Context(), sessionFrom(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if notices == nil {
		notices = []*models.Notification{}
	}
	writeJSON(w, r, http.StatusOK, notices)
}

func (s *Server) handleSupportChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.svc.Support.Chats(r.Context(), sessionFrom(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if chats == nil {
		chats = []*models.SupportMessage{}
	}
	writeJSON(w, r, http.StatusOK, chats)
}

// handleSupportMessage stores the user's message followed by the canned reply
func (s *Server) handleSupportMessage(w http.ResponseWriter, r *http.Request) {
	var req supportRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	userID := sessionFrom(r).UserID

	msg, err := s.svc.Support.SendMessage(r.Context(), userID, req.Message, false, service.SenderUser)
	if err != nil {
		writeError(w, r, err)
		return
	}
	reply, err := s.svc.Support.SendMessage(r.Context(), userID, s.svc.Support.ChatReply(req.Message), false, service.SenderAI)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, supportReplyResponse{Message: msg, Reply: reply})
}
