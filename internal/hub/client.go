// Package hub is the HTTP client for the capsule hub: the external store
// the pipeline fetches capsules from and optionally saves emerged capsules
// back to. All calls are time-bounded and wrapped with circuit breaker
// protection so a dead hub cannot stall the scheduler.
package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/scrypster/collider/pkg/types"
)

// ErrCircuitOpen is returned when the hub circuit breaker is open and
// rejects requests to prevent hammering a failing hub.
var ErrCircuitOpen = errors.New("hub circuit breaker is open")

// Client talks to the capsule hub API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	timeout    time.Duration
}

// Config holds hub client configuration.
type Config struct {
	// BaseURL is the base URL for the hub API (default: http://localhost:8001)
	BaseURL string

	// Timeout is the per-request timeout duration (default: 10s)
	Timeout time.Duration
}

// capsulesResponse is the payload of GET /api/capsules.
type capsulesResponse struct {
	Capsules []types.CapsuleRecord `json:"capsules"`
}

// saveRequest is the payload of POST /api/capsules for an emerged capsule.
type saveRequest struct {
	Title          string   `json:"title"`
	Domain         string   `json:"domain"`
	Topics         []string `json:"topics"`
	Insight        string   `json:"insight"`
	Evidence       []string `json:"evidence"`
	ActionItems    []string `json:"action_items"`
	Authors        []string `json:"authors"`
	IsEmergent     bool     `json:"is_emergent"`
	ParentCapsules []string `json:"parent_capsules"`
}

// NewClient creates a hub client. Missing config values fall back to the
// defaults documented on Config.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8001"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    "HubCircuitBreaker",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    gobreaker.NewCircuitBreaker(settings),
		timeout:    cfg.Timeout,
	}
}

// FetchCapsules retrieves up to limit capsules from the hub. Connectivity
// failure surfaces as a nil slice plus an error; callers treat that as an
// empty cycle input, never a crash.
func (c *Client) FetchCapsules(ctx context.Context, limit int) ([]types.CapsuleRecord, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchCapsules(ctx, limit)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	return result.([]types.CapsuleRecord), nil
}

// fetchCapsules is the internal implementation without breaker wrapping.
func (c *Client) fetchCapsules(ctx context.Context, limit int) ([]types.CapsuleRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/capsules?limit=%d", c.baseURL, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("hub: failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hub: fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("hub: fetch returned status %d: %s", resp.StatusCode, body)
	}

	var payload capsulesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("hub: failed to decode capsules: %w", err)
	}

	return payload.Capsules, nil
}

// SaveEmerged posts emerged capsules back to the hub, one at a time.
// Each save is best-effort: a failing item is logged and skipped, and the
// number of successful saves is returned.
func (c *Client) SaveEmerged(ctx context.Context, capsules []types.EmergedCapsule) int {
	saved := 0
	for _, capsule := range capsules {
		if err := c.saveOne(ctx, capsule); err != nil {
			log.Printf("WARNING: hub save failed for %q: %v", capsule.Title, err)
			continue
		}
		saved++
	}
	return saved
}

// saveOne posts a single emerged capsule.
func (c *Client) saveOne(ctx context.Context, capsule types.EmergedCapsule) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(saveRequest{
		Title:          capsule.Title,
		Domain:         capsule.Domain,
		Topics:         capsule.Topics,
		Insight:        capsule.Insight,
		Evidence:       capsule.Evidence,
		ActionItems:    capsule.ActionItems,
		Authors:        []string{"CollisionSystem"},
		IsEmergent:     true,
		ParentCapsules: capsule.ParentIDs,
	})
	if err != nil {
		return fmt.Errorf("hub: failed to marshal capsule: %w", err)
	}

	url := c.baseURL + "/api/capsules"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("hub: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hub: save failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("hub: save returned status %d", resp.StatusCode)
	}
	return nil
}
