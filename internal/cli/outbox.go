package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Pending is a mutating request that never got an answer. It keeps its
// idempotency key so a replay cannot apply twice.
type Pending struct {
	Method         string         `json:"method"`
	Path           string         `json:"path"`
	Body           map[string]any `json:"body,omitempty"`
	IdempotencyKey string         `json:"idempotency_key"`
	QueuedAt       time.Time      `json:"queued_at"`
}

func outboxPath() (string, error) {
	dir, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "outbox.json"), nil
}

func LoadOutbox() ([]Pending, error) {
	path, err := outboxPath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Pending{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []Pending{}, nil
	}
	var out []Pending
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func SaveOutbox(items []Pending) error {
	path, err := outboxPath()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func Enqueue(p Pending) error {
	items, err := LoadOutbox()
	if err != nil {
		return err
	}
	if p.QueuedAt.IsZero() {
		p.QueuedAt = time.Now().UTC()
	}
	return SaveOutbox(append(items, p))
}

type ReplayResult struct {
	Sent      int
	Duplicate int
	Rejected  []error
	Remaining []Pending
}

// Replay resends queued requests. An answer of duplicate_request means the
// original did land, so it counts as delivered. Other API errors drop the
// request; transport errors keep it queued.
func Replay(ctx context.Context, c *Client, accessToken string, items []Pending) ReplayResult {
	var res ReplayResult
	for _, p := range items {
		_, err := c.Do(ctx, p.Method, p.Path, accessToken, p.Body, p.IdempotencyKey)
		var apiErr *APIError
		switch {
		case err == nil:
			res.Sent++
		case errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict && apiErr.Code == "duplicate_request":
			res.Duplicate++
		case errors.As(err, &apiErr):
			res.Rejected = append(res.Rejected, err)
		default:
			res.Remaining = append(res.Remaining, p)
		}
	}
	return res
}
