package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"noblechain/events"
	"noblechain/kvstore"
	"noblechain/market"
	"noblechain/repository/kvrepo"
	"noblechain/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	*httptest.Server
	wallets service.WalletService
	bus     *events.Bus
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	bus := events.NewBus()
	factory := kvrepo.NewUnitOfWorkFactory(kvstore.NewMemoryStore(), bus)
	feed := market.NewFeed(bus)
	notifications := service.NewNotificationService(factory)
	service.SubscribeNotifications(bus, notifications)
	pins := service.NewPinService(factory, bcrypt.MinCost)
	wallets := service.NewWalletService(factory, feed)

	srv := New(Services{
		Identity:      service.NewIdentityService(factory, bcrypt.MinCost),
		Pins:          pins,
		Wallets:       wallets,
		Transactions:  service.NewTransactionService(factory),
		Notifications: notifications,
		Support:       service.NewSupportService(factory),
		Market:        feed,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, wallets: wallets, bus: bus}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func (ts *testServer) signup(t *testing.T, username string) sessionResponse {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/v1/auth/signup", "", signupRequest{
		Email:    username + "@x.com",
		Password: "pw-" + username,
		Username: username,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out sessionResponse
	decodeBody(t, resp, &out)
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSignup_HidesCredentialsAndRejectsDuplicates(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/v1/auth/signup", "", signupRequest{
		Email: "alice@x.com", Password: "pw1", Username: "alice",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var raw map[string]map[string]any
	decodeBody(t, resp, &raw)
	assert.Equal(t, "alice", raw["user"]["username"])
	assert.NotContains(t, raw["user"], "password_hash")

	resp = ts.do(t, http.MethodPost, "/api/v1/auth/signup", "", signupRequest{
		Email: "alice@x.com", Password: "pw2", Username: "alice2",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var errBody errorResponse
	decodeBody(t, resp, &errBody)
	assert.Equal(t, service.ErrDuplicateEmail.Error(), errBody.Error)
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "alice")

	resp := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: "alice@x.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: "alice@x.com", Password: "pw-alice", Device: "cli"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out sessionResponse
	decodeBody(t, resp, &out)
	assert.NotEmpty(t, out.Token)

	resp = ts.do(t, http.MethodGet, "/api/v1/auth/history", out.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []map[string]any
	decodeBody(t, resp, &history)
	assert.Len(t, history, 2)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/v1/wallet", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/v1/wallet", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutEndsSession(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")

	resp := ts.do(t, http.MethodPost, "/api/v1/auth/logout", alice.Token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/v1/wallet", alice.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTransferFlow(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	bob := ts.signup(t, "bob")

	_, err := ts.wallets.Credit(ctx, alice.User.ID, decimal.NewFromInt(100), "")
	require.NoError(t, err)

	resp := ts.do(t, http.MethodPost, "/api/v1/transfers", alice.Token, transferRequest{Recipient: "bob", Amount: decimal.NewFromInt(40)})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/v1/transfers", alice.Token, transferRequest{Recipient: "bob", Amount: decimal.NewFromInt(1000)})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/v1/transfers", alice.Token, transferRequest{Recipient: "carol", Amount: decimal.NewFromInt(1)})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/v1/transfers", alice.Token, transferRequest{Recipient: "bob", Amount: decimal.Zero})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/v1/transfers", alice.Token, transferRequest{Recipient: "bob", Amount: decimal.RequireFromString("0.00000000001")})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/v1/wallet", bob.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var wallet struct {
		CashBalance decimal.Decimal `json:"cash_balance"`
		TotalValue  decimal.Decimal `json:"total_value"`
	}
	decodeBody(t, resp, &wallet)
	assert.Equal(t, "40", wallet.CashBalance.String())
	assert.Equal(t, "40", wallet.TotalValue.String())

	resp = ts.do(t, http.MethodGet, "/api/v1/transactions", bob.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var txs []map[string]any
	decodeBody(t, resp, &txs)
	require.Len(t, txs, 1)
	assert.Equal(t, "receive", txs[0]["type"])

	ts.bus.Wait()
	resp = ts.do(t, http.MethodGet, "/api/v1/notifications", bob.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var notices []map[string]any
	decodeBody(t, resp, &notices)
	require.NotEmpty(t, notices)
	assert.Equal(t, "Transfer Received", notices[0]["title"])
}

func TestPinRoutes(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")

	resp := ts.do(t, http.MethodPost, "/api/v1/pin", alice.Token, pinRequest{Pin: "1234"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/v1/pin/provision", alice.Token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/v1/pin", alice.Token, pinRequest{Pin: "12"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/v1/pin", alice.Token, pinRequest{Pin: "1234"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/v1/pin/verify", alice.Token, pinRequest{Pin: "9999"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/v1/pin/verify", alice.Token, pinRequest{Pin: "1234"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out pinCheckResponse
	decodeBody(t, resp, &out)
	assert.True(t, out.Verified)
}

func TestWalletAddressAndAssets(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")

	resp := ts.do(t, http.MethodGet, "/api/v1/wallet/address/btc", alice.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var addr addressResponse
	decodeBody(t, resp, &addr)
	assert.Regexp(t, `^NBL-BTC-[A-Za-z0-9+/=]{8}-[0-9a-z]{4}$`, addr.Address)

	resp = ts.do(t, http.MethodPost, "/api/v1/wallet/assets/eth", alice.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var wallet struct {
		Holdings map[string]any `json:"holdings"`
	}
	decodeBody(t, resp, &wallet)
	assert.Contains(t, wallet.Holdings, "ETH")

	resp = ts.do(t, http.MethodPost, "/api/v1/wallet/assets/--", alice.Token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMarketSnapshot(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/api/v1/market", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var assets []map[string]any
	decodeBody(t, resp, &assets)
	assert.Len(t, assets, 18)
}

func TestSupportMessages(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")

	resp := ts.do(t, http.MethodPost, "/api/v1/support/messages", alice.Token, supportRequest{Message: "what are the fees?"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out supportReplyResponse
	decodeBody(t, resp, &out)
	assert.Equal(t, service.SenderAI, out.Reply.SenderType)
	assert.Equal(t, service.NewSupportService(nil).ChatReply("fees"), out.Reply.Message)

	resp = ts.do(t, http.MethodGet, "/api/v1/support/messages", alice.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var chats []map[string]any
	decodeBody(t, resp, &chats)
	assert.Len(t, chats, 2)
}

func TestMalformedBody(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/auth/login", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
