package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"monety/internal/auth"
	"monety/internal/invest"
	"monety/internal/store/memstore"
	"monety/internal/userlock"
)

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hash:" + p, nil }

func (plainHasher) Compare(hash, p string) error {
	if hash != "hash:"+p {
		return errors.New("password mismatch")
	}
	return nil
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string) (func(), error) { return nil, userlock.ErrBusy }

type testEnv struct {
	srv *httptest.Server
	now time.Time
}

func newTestEnv(t *testing.T, now time.Time, locks userlock.Locker) *testEnv {
	t.Helper()
	env := &testEnv{now: now}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := invest.NewService(memstore.New(), plainHasher{}, logger, invest.WithClock(func() time.Time { return env.now }))
	if err := svc.SeedProducts(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	tokens, err := auth.NewTokens("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	env.srv = httptest.NewServer(New(logger, tokens, svc, locks).Handler())
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (e *testEnv) signup(t *testing.T, email, invite string) sessionResponse {
	t.Helper()
	var sess sessionResponse
	status := e.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email":       email,
		"password":    "secret123",
		"invite_code": invite,
	}, &sess)
	if status != http.StatusCreated {
		t.Fatalf("register %s: status %d", email, status)
	}
	return sess
}

var inWindow = time.Date(2026, time.March, 10, 10, 0, 0, 0, invest.CivilZone)

func TestRegisterLoginAndProfile(t *testing.T) {
	env := newTestEnv(t, inWindow, nil)
	sess := env.signup(t, "ana@example.com", "")
	if sess.AccessToken == "" || sess.User.InviteCode == "" {
		t.Fatalf("unexpected session %+v", sess)
	}

	var login sessionResponse
	if status := env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "ana@example.com", "password": "secret123"}, &login); status != http.StatusOK {
		t.Fatalf("login status %d", status)
	}
	var me invest.Profile
	if status := env.do(t, http.MethodGet, "/v1/me", login.AccessToken, nil, &me); status != http.StatusOK {
		t.Fatalf("me status %d", status)
	}
	if me.ID != sess.User.ID {
		t.Fatalf("me got %s want %s", me.ID, sess.User.ID)
	}

	var body errorBody
	if status := env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "ana@example.com", "password": "nope-nope"}, &body); status != http.StatusUnauthorized {
		t.Fatalf("bad login status %d", status)
	}
	if body.Code != "invalid_credentials" || body.Kind != "unauthenticated" {
		t.Fatalf("unexpected error body %+v", body)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	env := newTestEnv(t, time.Date(2026, time.March, 10, 8, 0, 0, 0, invest.CivilZone), nil)
	sess := env.signup(t, "bia@example.com", "")
	tok := sess.AccessToken

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"missing token", http.MethodGet, "/v1/me", "", nil, http.StatusUnauthorized, "unauthenticated"},
		{"garbage token", http.MethodGet, "/v1/me", "abc", nil, http.StatusUnauthorized, "unauthenticated"},
		{"unknown product", http.MethodPost, "/v1/investments", tok, map[string]string{"product_id": "nope"}, http.StatusNotFound, "product_not_found"},
		{"missing product", http.MethodPost, "/v1/investments", tok, map[string]string{}, http.StatusBadRequest, "invalid_input"},
		{"unknown field", http.MethodPost, "/v1/investments", tok, map[string]string{"product": "x"}, http.StatusBadRequest, "invalid_input"},
		{"insufficient", http.MethodPost, "/v1/investments", tok, map[string]string{"product_id": "minerador-bronze"}, http.StatusBadRequest, "insufficient_balance"},
		{"window closed", http.MethodPost, "/v1/withdrawals", tok, map[string]any{"amount": "40", "pix_key": "k", "pix_key_type": "email"}, http.StatusForbidden, "outside_withdrawal_window"},
		{"small deposit", http.MethodPost, "/v1/deposits/simulate", tok, map[string]any{"amount": 10}, http.StatusBadRequest, "below_minimum_deposit"},
		{"bad invite", http.MethodPost, "/v1/auth/register", "", map[string]string{"email": "x@example.com", "password": "secret123", "invite_code": "MPZZZZZZ"}, http.StatusNotFound, "invite_code_not_found"},
		{"duplicate email", http.MethodPost, "/v1/auth/register", "", map[string]string{"email": "bia@example.com", "password": "secret123"}, http.StatusConflict, "email_taken"},
	}
	for _, tc := range tests {
		var body errorBody
		status := env.do(t, tc.method, tc.path, tc.token, tc.body, &body)
		if status != tc.status || body.Code != tc.code {
			t.Fatalf("%s: got %d/%s want %d/%s", tc.name, status, body.Code, tc.status, tc.code)
		}
	}
}

func TestCheckinAndSpinOncePerDay(t *testing.T) {
	env := newTestEnv(t, inWindow, nil)
	tok := env.signup(t, "caio@example.com", "").AccessToken

	var res invest.CheckinResult
	if status := env.do(t, http.MethodPost, "/v1/checkin", tok, nil, &res); status != http.StatusOK {
		t.Fatalf("checkin status %d", status)
	}
	if res.DayNumber != 1 {
		t.Fatalf("day got %d want 1", res.DayNumber)
	}
	var body errorBody
	if status := env.do(t, http.MethodPost, "/v1/checkin", tok, nil, &body); status != http.StatusConflict || body.Code != "already_checked_in_today" {
		t.Fatalf("second checkin got %d/%s", status, body.Code)
	}
	var st invest.CheckinStatus
	env.do(t, http.MethodGet, "/v1/checkin/status", tok, nil, &st)
	if !st.CheckedInToday || st.CurrentDay != 1 {
		t.Fatalf("unexpected status %+v", st)
	}

	if status := env.do(t, http.MethodPost, "/v1/roulette/spin", tok, nil, nil); status != http.StatusOK {
		t.Fatalf("spin status %d", status)
	}
	if status := env.do(t, http.MethodPost, "/v1/roulette/spin", tok, nil, &body); status != http.StatusConflict || body.Code != "already_spun_today" {
		t.Fatalf("second spin got %d/%s", status, body.Code)
	}
}

func TestDepositInvestWithdrawFlow(t *testing.T) {
	env := newTestEnv(t, inWindow, nil)
	host := env.signup(t, "host@example.com", "")
	guest := env.signup(t, "guest@example.com", host.User.InviteCode)

	var dep invest.DepositResult
	if status := env.do(t, http.MethodPost, "/v1/deposits/simulate", guest.AccessToken, map[string]any{"amount": "200"}, &dep); status != http.StatusCreated {
		t.Fatalf("deposit status %d", status)
	}
	if dep.PixCode == "" {
		t.Fatalf("missing pix code")
	}

	var buy invest.PurchaseResult
	if status := env.do(t, http.MethodPost, "/v1/investments", guest.AccessToken, map[string]string{"product_id": "minerador-ouro"}, &buy); status != http.StatusCreated {
		t.Fatalf("purchase status %d", status)
	}
	if len(buy.Commissions) != 1 || buy.Balance.String() != "100" {
		t.Fatalf("unexpected purchase %+v", buy)
	}

	var w invest.WithdrawalResult
	if status := env.do(t, http.MethodPost, "/v1/withdrawals", guest.AccessToken, map[string]any{"amount": 50, "pix_key": "guest@example.com", "pix_key_type": "email"}, &w); status != http.StatusCreated {
		t.Fatalf("withdraw status %d", status)
	}
	if w.Fee.String() != "5" || w.Balance.String() != "45" || w.Status != invest.StatusPending {
		t.Fatalf("unexpected withdrawal %+v", w)
	}

	var team invest.Team
	env.do(t, http.MethodGet, "/v1/team", host.AccessToken, nil, &team)
	if team.Level1.Count != 1 || team.Level1.TotalEarned.String() != "20" {
		t.Fatalf("unexpected team %+v", team.Level1)
	}
	var stats invest.TodayStats
	env.do(t, http.MethodGet, "/v1/stats/today", host.AccessToken, nil, &stats)
	if stats.NewInvites != 1 || stats.TodayEarnings.String() != "20" {
		t.Fatalf("unexpected stats %+v", stats)
	}
	var txs struct {
		Transactions []invest.Transaction `json:"transactions"`
	}
	env.do(t, http.MethodGet, "/v1/transactions", guest.AccessToken, nil, &txs)
	if len(txs.Transactions) != 3 || txs.Transactions[0].Type != invest.TxWithdrawal {
		t.Fatalf("unexpected history %+v", txs.Transactions)
	}
}

func TestIdempotencyKeyReplay(t *testing.T) {
	env := newTestEnv(t, inWindow, nil)
	tok := env.signup(t, "duda@example.com", "").AccessToken

	send := func() int {
		b, _ := json.Marshal(map[string]any{"amount": "50"})
		req, _ := http.NewRequest(http.MethodPost, env.srv.URL+"/v1/deposits/simulate", bytes.NewReader(b))
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("Idempotency-Key", "same-key")
		resp, err := env.srv.Client().Do(req)
		if err != nil {
			t.Fatalf("deposit: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}
	if got := send(); got != http.StatusCreated {
		t.Fatalf("first deposit status %d", got)
	}
	if got := send(); got != http.StatusConflict {
		t.Fatalf("replay status %d", got)
	}
	var me invest.Profile
	env.do(t, http.MethodGet, "/v1/me", tok, nil, &me)
	if me.Balance.String() != "50" {
		t.Fatalf("balance got %s want 50", me.Balance)
	}
}

func TestBusyUserLock(t *testing.T) {
	env := newTestEnv(t, inWindow, busyLocker{})
	tok := env.signup(t, "edu@example.com", "").AccessToken

	var body errorBody
	if status := env.do(t, http.MethodPost, "/v1/checkin", tok, nil, &body); status != http.StatusConflict || body.Code != "request_in_progress" {
		t.Fatalf("got %d/%s", status, body.Code)
	}
	if status := env.do(t, http.MethodGet, "/v1/checkin/status", tok, nil, nil); status != http.StatusOK {
		t.Fatalf("reads must bypass the lock, got %d", status)
	}
}

func TestOpsEndpoints(t *testing.T) {
	env := newTestEnv(t, inWindow, nil)
	if status := env.do(t, http.MethodGet, "/healthz", "", nil, nil); status != http.StatusOK {
		t.Fatalf("healthz status %d", status)
	}
	var products struct {
		Products []invest.Product `json:"products"`
	}
	env.do(t, http.MethodGet, "/v1/products", "", nil, &products)
	if len(products.Products) != 7 {
		t.Fatalf("expected 7 products, got %d", len(products.Products))
	}
	resp, err := env.srv.Client().Get(env.srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !bytes.Contains(b, []byte("monety_http_requests_total")) {
		t.Fatalf("metrics missing request counter")
	}
}
