package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"monety/internal/invest"

	"github.com/shopspring/decimal"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a structured error answered by the server.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api status %d", e.Status)
	}
	return e.Message
}

type AuthResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int            `json:"expires_in"`
	User        invest.Profile `json:"user"`
}

func (c *Client) Register(ctx context.Context, email, password, inviteCode string) (AuthResponse, error) {
	var out AuthResponse
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email":       email,
		"password":    password,
		"invite_code": inviteCode,
	}, &out, "")
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out, "")
	return out, err
}

func (c *Client) Me(ctx context.Context, accessToken string) (invest.Profile, error) {
	var out invest.Profile
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/me", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Products(ctx context.Context) ([]invest.Product, error) {
	var out struct {
		Products []invest.Product `json:"products"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/products", "", nil, &out, "")
	return out.Products, err
}

func (c *Client) Invest(ctx context.Context, accessToken, productID, idem string) (invest.PurchaseResult, error) {
	var out invest.PurchaseResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/investments", accessToken, map[string]any{
		"product_id": productID,
	}, &out, idem)
	return out, err
}

func (c *Client) Investments(ctx context.Context, accessToken string) ([]invest.Investment, error) {
	var out struct {
		Investments []invest.Investment `json:"investments"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/investments", accessToken, nil, &out, "")
	return out.Investments, err
}

func (c *Client) Checkin(ctx context.Context, accessToken string) (invest.CheckinResult, error) {
	var out invest.CheckinResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/checkin", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) CheckinStatus(ctx context.Context, accessToken string) (invest.CheckinStatus, error) {
	var out invest.CheckinStatus
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/checkin/status", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Spin(ctx context.Context, accessToken string) (invest.SpinResult, error) {
	var out invest.SpinResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/roulette/spin", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) RouletteStatus(ctx context.Context, accessToken string) (invest.RouletteStatus, error) {
	var out invest.RouletteStatus
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/roulette/status", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) TodayStats(ctx context.Context, accessToken string) (invest.TodayStats, error) {
	var out invest.TodayStats
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/stats/today", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Team(ctx context.Context, accessToken string) (invest.Team, error) {
	var out invest.Team
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/team", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Transactions(ctx context.Context, accessToken string) ([]invest.Transaction, error) {
	var out struct {
		Transactions []invest.Transaction `json:"transactions"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/transactions", accessToken, nil, &out, "")
	return out.Transactions, err
}

func (c *Client) Deposit(ctx context.Context, accessToken string, amount decimal.Decimal, idem string) (invest.DepositResult, error) {
	var out invest.DepositResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/deposits/simulate", accessToken, map[string]any{
		"amount": amount,
	}, &out, idem)
	return out, err
}

func (c *Client) Withdraw(ctx context.Context, accessToken string, amount decimal.Decimal, pixKey, pixKeyType, idem string) (invest.WithdrawalResult, error) {
	var out invest.WithdrawalResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/withdrawals", accessToken, map[string]any{
		"amount":       amount,
		"pix_key":      pixKey,
		"pix_key_type": pixKeyType,
	}, &out, idem)
	return out, err
}

func (c *Client) Do(ctx context.Context, method, path, accessToken string, body map[string]any, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, method, path, accessToken, body, &out, idem)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, accessToken string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
