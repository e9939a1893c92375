package api

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mr-tron/base58"

	"github.com/rent-to-earn/internal/auth"
	apperrors "github.com/rent-to-earn/internal/errors"
	"github.com/rent-to-earn/internal/models"
	"github.com/rent-to-earn/internal/types"
)

type fakeLedger struct {
	campaign   *models.Campaign
	lastAction types.TransitionAction
	lastActor  string
	err        error
}

func (f *fakeLedger) CreateCampaign(ctx context.Context, sponsorWallet, creatorWallet string, amountLamports *big.Int, durationSeconds uint64) (*models.Campaign, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Campaign{
		ID:              "campaign-1",
		SponsorWallet:   sponsorWallet,
		CreatorWallet:   creatorWallet,
		AmountLamports:  amountLamports,
		DurationSeconds: durationSeconds,
		Status:          types.StatusDraft,
	}, nil
}

func (f *fakeLedger) GetCampaign(ctx context.Context, campaignID, wallet string) (*models.Campaign, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.campaign, nil
}

func (f *fakeLedger) ListCampaigns(ctx context.Context, wallet string) ([]*models.Campaign, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.campaign == nil {
		return nil, nil
	}
	return []*models.Campaign{f.campaign}, nil
}

func (f *fakeLedger) RequestTransition(ctx context.Context, campaignID, actorWallet string, action types.TransitionAction, chainCampaignID *uint64) (*models.Campaign, error) {
	f.lastAction = action
	f.lastActor = actorWallet
	if f.err != nil {
		return nil, f.err
	}
	return f.campaign, nil
}

type fakeSessions struct {
	tokens  map[string]string
	revoked []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: make(map[string]string)}
}

func (f *fakeSessions) Create(ctx context.Context, wallet string) (*auth.Session, error) {
	token := "token-" + wallet
	f.tokens[token] = wallet
	return &auth.Session{Token: token, Wallet: wallet, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeSessions) Resolve(ctx context.Context, token string) (string, error) {
	wallet, ok := f.tokens[token]
	if !ok {
		return "", apperrors.NewAuthRequiredError()
	}
	return wallet, nil
}

func (f *fakeSessions) Revoke(ctx context.Context, token string) error {
	delete(f.tokens, token)
	f.revoked = append(f.revoked, token)
	return nil
}

type fakeNonces struct {
	issued map[string]string
}

func newFakeNonces() *fakeNonces {
	return &fakeNonces{issued: make(map[string]string)}
}

func (f *fakeNonces) Issue(ctx context.Context, wallet string) (string, error) {
	f.issued[wallet] = "nonce-" + wallet
	return f.issued[wallet], nil
}

func (f *fakeNonces) Consume(ctx context.Context, wallet, presented string) (bool, error) {
	stored, ok := f.issued[wallet]
	delete(f.issued, wallet)
	return ok && stored == presented, nil
}

type fakeNotifications struct {
	items []*models.Notification
}

func (f *fakeNotifications) ListByWallet(ctx context.Context, wallet string, limit int) ([]*models.Notification, error) {
	return f.items, nil
}

type fakeUsers struct{}

func (f *fakeUsers) Upsert(ctx context.Context, wallet string) (*models.User, error) {
	return &models.User{Wallet: wallet}, nil
}

type testServer struct {
	server   *Server
	ledger   *fakeLedger
	sessions *fakeSessions
	nonces   *fakeNonces
}

func newTestServer() *testServer {
	ledger := &fakeLedger{}
	sessions := newFakeSessions()
	nonces := newFakeNonces()

	server := NewServer(
		&ServerConfig{
			Host:           "127.0.0.1",
			Port:           "0",
			AppURL:         "http://localhost:3000",
			MessageTTL:     10 * time.Minute,
			CookieName:     "rte_session",
			RateLimitRPS:   1000,
			RateLimitBurst: 1000,
		},
		ledger,
		sessions,
		nonces,
		&fakeNotifications{},
		&fakeUsers{},
	)

	return &testServer{server: server, ledger: ledger, sessions: sessions, nonces: nonces}
}

func newTestWallet(t *testing.T) (string, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return base58.Encode(pub), priv
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, req)
	return w
}

func authedRequest(method, path string, body []byte, token string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestHealth(t *testing.T) {
	ts := newTestServer()

	w := ts.do(httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestNonce_RequiresValidWallet(t *testing.T) {
	ts := newTestServer()

	w := ts.do(httptest.NewRequest("GET", "/api/auth/nonce", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing wallet, got %d", w.Code)
	}

	w = ts.do(httptest.NewRequest("GET", "/api/auth/nonce?wallet=garbage", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid wallet, got %d", w.Code)
	}
}

func TestNonce_ReturnsSignableMessage(t *testing.T) {
	ts := newTestServer()
	wallet, _ := newTestWallet(t)

	w := ts.do(httptest.NewRequest("GET", "/api/auth/nonce?wallet="+wallet, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp["nonce"] == "" {
		t.Error("Expected a nonce in the response")
	}
	if !strings.Contains(resp["message"], auth.MessageStatement) {
		t.Errorf("Message missing statement line: %q", resp["message"])
	}
	if !strings.Contains(resp["message"], wallet) {
		t.Error("Message missing wallet public key")
	}
}

// signIn walks the full handshake: fetch nonce, sign the returned message,
// post the signature, return the session token.
func signIn(t *testing.T, ts *testServer, wallet string, priv ed25519.PrivateKey) string {
	t.Helper()

	w := ts.do(httptest.NewRequest("GET", "/api/auth/nonce?wallet="+wallet, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("nonce request failed: %d", w.Code)
	}

	var nonceResp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &nonceResp); err != nil {
		t.Fatalf("failed to decode nonce response: %v", err)
	}

	message := nonceResp["message"]
	signature := base58.Encode(ed25519.Sign(priv, []byte(message)))

	body, _ := json.Marshal(map[string]string{
		"message":   message,
		"signature": signature,
	})

	req := httptest.NewRequest("POST", "/api/auth/signin", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = ts.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("signin failed: %d: %s", w.Code, w.Body.String())
	}

	var signInResp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &signInResp); err != nil {
		t.Fatalf("failed to decode signin response: %v", err)
	}

	return signInResp["token"]
}

func TestSignIn_FullHandshake(t *testing.T) {
	ts := newTestServer()
	wallet, priv := newTestWallet(t)

	token := signIn(t, ts, wallet, priv)
	if token == "" {
		t.Fatal("Expected a session token")
	}

	if got := ts.sessions.tokens[token]; got != wallet {
		t.Errorf("Session bound to %q, want %q", got, wallet)
	}
}

func TestSignIn_WrongKeyRejected(t *testing.T) {
	ts := newTestServer()
	wallet, _ := newTestWallet(t)
	_, otherPriv := newTestWallet(t)

	w := ts.do(httptest.NewRequest("GET", "/api/auth/nonce?wallet="+wallet, nil))
	var nonceResp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &nonceResp); err != nil {
		t.Fatalf("failed to decode nonce response: %v", err)
	}

	message := nonceResp["message"]
	signature := base58.Encode(ed25519.Sign(otherPriv, []byte(message)))

	body, _ := json.Marshal(map[string]string{"message": message, "signature": signature})
	req := httptest.NewRequest("POST", "/api/auth/signin", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = ts.do(req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestSignIn_NonceSingleUse(t *testing.T) {
	ts := newTestServer()
	wallet, priv := newTestWallet(t)

	w := ts.do(httptest.NewRequest("GET", "/api/auth/nonce?wallet="+wallet, nil))
	var nonceResp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &nonceResp); err != nil {
		t.Fatalf("failed to decode nonce response: %v", err)
	}

	message := nonceResp["message"]
	signature := base58.Encode(ed25519.Sign(priv, []byte(message)))
	body, _ := json.Marshal(map[string]string{"message": message, "signature": signature})

	req := httptest.NewRequest("POST", "/api/auth/signin", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if w := ts.do(req); w.Code != http.StatusOK {
		t.Fatalf("first signin failed: %d", w.Code)
	}

	// Replaying the identical signed message must fail: the nonce burned.
	req = httptest.NewRequest("POST", "/api/auth/signin", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = ts.do(req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 on nonce replay, got %d", w.Code)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errResp.Error.Code != apperrors.CodeNonceExpiredOrUnknown {
		t.Errorf("Expected code %s, got %s", apperrors.CodeNonceExpiredOrUnknown, errResp.Error.Code)
	}
}

func TestCampaigns_RequireAuth(t *testing.T) {
	ts := newTestServer()

	w := ts.do(httptest.NewRequest("GET", "/api/campaigns", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}

	req := httptest.NewRequest("GET", "/api/campaigns", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	w = ts.do(req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for bogus token, got %d", w.Code)
	}
}

func TestCreateCampaign(t *testing.T) {
	ts := newTestServer()
	wallet, priv := newTestWallet(t)
	creator, _ := newTestWallet(t)
	token := signIn(t, ts, wallet, priv)

	body, _ := json.Marshal(map[string]interface{}{
		"creatorWallet":   creator,
		"amountLamports":  "1000000000",
		"durationSeconds": 86400,
	})

	w := ts.do(authedRequest("POST", "/api/campaigns", body, token))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var view models.CampaignView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if view.SponsorWallet != wallet {
		t.Errorf("Sponsor = %q, want authenticated wallet %q", view.SponsorWallet, wallet)
	}
	if view.AmountLamports != "1000000000" {
		t.Errorf("Amount = %q, want decimal string", view.AmountLamports)
	}
}

func TestCreateCampaign_RejectsNonDecimalAmount(t *testing.T) {
	ts := newTestServer()
	wallet, priv := newTestWallet(t)
	creator, _ := newTestWallet(t)
	token := signIn(t, ts, wallet, priv)

	for _, amount := range []string{"", "1.5", "1e9", "abc"} {
		body, _ := json.Marshal(map[string]interface{}{
			"creatorWallet":   creator,
			"amountLamports":  amount,
			"durationSeconds": 86400,
		})

		w := ts.do(authedRequest("POST", "/api/campaigns", body, token))
		if w.Code != http.StatusBadRequest {
			t.Errorf("amount %q: expected status 400, got %d", amount, w.Code)
		}
	}
}

func TestTransitionEndpoints_MapToActions(t *testing.T) {
	ts := newTestServer()
	wallet, priv := newTestWallet(t)
	token := signIn(t, ts, wallet, priv)

	ts.ledger.campaign = &models.Campaign{
		ID:             "campaign-1",
		SponsorWallet:  wallet,
		AmountLamports: big.NewInt(100),
		Status:         types.StatusApprovalPending,
	}

	cases := []struct {
		path string
		want types.TransitionAction
	}{
		{"/api/campaigns/campaign-1/approve", types.ActionApprove},
		{"/api/campaigns/campaign-1/reject", types.ActionReject},
		{"/api/campaigns/campaign-1/cancel", types.ActionCancel},
		{"/api/campaigns/campaign-1/claim", types.ActionClaim},
	}

	for _, tc := range cases {
		w := ts.do(authedRequest("POST", tc.path, nil, token))
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", tc.path, w.Code)
		}
		if ts.ledger.lastAction != tc.want {
			t.Errorf("%s: action = %q, want %q", tc.path, ts.ledger.lastAction, tc.want)
		}
		if ts.ledger.lastActor != wallet {
			t.Errorf("%s: actor = %q, want %q", tc.path, ts.ledger.lastActor, wallet)
		}
	}
}

func TestMarkDeposited_RequiresChainID(t *testing.T) {
	ts := newTestServer()
	wallet, priv := newTestWallet(t)
	token := signIn(t, ts, wallet, priv)

	body, _ := json.Marshal(map[string]string{"chainCampaignId": "not-a-number"})
	w := ts.do(authedRequest("POST", "/api/campaigns/campaign-1/deposit", body, token))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestTransition_ErrorMapping(t *testing.T) {
	ts := newTestServer()
	wallet, priv := newTestWallet(t)
	token := signIn(t, ts, wallet, priv)

	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{apperrors.NewInvalidStateError(types.StatusClaimed, types.ActionApprove), http.StatusConflict, apperrors.CodeInvalidState},
		{apperrors.NewForbiddenError("only the creator may approve"), http.StatusForbidden, apperrors.CodeForbidden},
		{apperrors.NewChainStateMismatchError("not confirmed"), http.StatusConflict, apperrors.CodeChainStateMismatch},
		{apperrors.NewWriteConflictError("campaign-1"), http.StatusConflict, apperrors.CodeWriteConflict},
		{apperrors.NewNotFoundError("campaign", "campaign-1"), http.StatusNotFound, apperrors.CodeNotFound},
	}

	for _, tc := range cases {
		ts.ledger.err = tc.err

		w := ts.do(authedRequest("POST", "/api/campaigns/campaign-1/approve", nil, token))
		if w.Code != tc.wantStatus {
			t.Errorf("%v: expected status %d, got %d", tc.err, tc.wantStatus, w.Code)
		}

		var errResp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
			t.Fatalf("failed to decode error response: %v", err)
		}
		if errResp.Error.Code != tc.wantCode {
			t.Errorf("%v: expected code %s, got %s", tc.err, tc.wantCode, errResp.Error.Code)
		}
	}
}

func TestSignOut_RevokesSession(t *testing.T) {
	ts := newTestServer()
	wallet, priv := newTestWallet(t)
	token := signIn(t, ts, wallet, priv)

	w := ts.do(authedRequest("POST", "/api/auth/signout", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	// The session no longer resolves.
	req := httptest.NewRequest("GET", "/api/campaigns", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = ts.do(req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 after signout, got %d", w.Code)
	}
}

func TestListNotifications_ValidatesLimit(t *testing.T) {
	ts := newTestServer()
	wallet, priv := newTestWallet(t)
	token := signIn(t, ts, wallet, priv)

	w := ts.do(authedRequest("GET", "/api/notifications?limit=0", nil, token))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	w = ts.do(authedRequest("GET", "/api/notifications", nil, token))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}
