// Package moltbook publishes emerged capsules to Moltbook as posts.
// Publishing is gated on the agent's claim status and paced with a rate
// limiter; every post is individually best-effort.
package moltbook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/scrypster/collider/pkg/types"
)

// ErrNotClaimed is returned when the Moltbook agent has not been claimed
// and therefore may not post.
var ErrNotClaimed = errors.New("moltbook agent is not claimed")

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("moltbook api key is missing")

// Bounds enforced on outgoing posts.
const (
	maxTitleLen   = 100
	maxContentLen = 2000
	maxBullets    = 3
	defaultMaxPer = 10
)

// Publisher submits emerged capsules to the Moltbook API.
type Publisher struct {
	baseURL    string
	apiKey     string
	submolt    string
	maxPer     int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Config holds publisher configuration.
type Config struct {
	// BaseURL is the Moltbook API base URL (default: https://www.moltbook.com)
	BaseURL string

	// APIKey is the bearer token used for all requests.
	APIKey string

	// Submolt is the community posts are submitted to (default: knowledge)
	Submolt string

	// MaxPerBatch caps posts per Publish call (default: 10)
	MaxPerBatch int

	// PostsPerSec is the sustained posting rate (default: 0.5)
	PostsPerSec float64

	// Timeout is the per-request timeout (default: 15s)
	Timeout time.Duration
}

// statusResponse is the payload of GET /api/v1/agents/status.
type statusResponse struct {
	Status string `json:"status"`
}

// postRequest is the payload of POST /api/v1/posts.
type postRequest struct {
	Submolt string `json:"submolt"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// postResponse is the payload returned by POST /api/v1/posts.
type postResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// NewPublisher creates a publisher. Missing config values fall back to the
// defaults documented on Config.
func NewPublisher(cfg Config) *Publisher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.moltbook.com"
	}
	if cfg.Submolt == "" {
		cfg.Submolt = "knowledge"
	}
	if cfg.MaxPerBatch <= 0 {
		cfg.MaxPerBatch = defaultMaxPer
	}
	if cfg.PostsPerSec <= 0 {
		cfg.PostsPerSec = 0.5
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Publisher{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		submolt:    cfg.Submolt,
		maxPer:     cfg.MaxPerBatch,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.PostsPerSec), 1),
	}
}

// CheckClaimed verifies the agent's claim status. Posting is only allowed
// once the agent has been claimed by its owner.
func (p *Publisher) CheckClaimed(ctx context.Context) error {
	if p.apiKey == "" {
		return ErrNoAPIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/v1/agents/status", nil)
	if err != nil {
		return fmt.Errorf("moltbook: failed to create status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("moltbook: status check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("moltbook: status check returned %d", resp.StatusCode)
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("moltbook: failed to decode status: %w", err)
	}
	if status.Status != "claimed" {
		return ErrNotClaimed
	}
	return nil
}

// Publish submits capsules as posts, at most MaxPerBatch of them, pacing
// submissions with the rate limiter. A failing item is logged and skipped;
// the count of successful posts is returned. The claim gate failing stops
// the whole batch, since no post can succeed without it.
func (p *Publisher) Publish(ctx context.Context, capsules []types.EmergedCapsule) (int, error) {
	if err := p.CheckClaimed(ctx); err != nil {
		return 0, err
	}

	if len(capsules) > p.maxPer {
		capsules = capsules[:p.maxPer]
	}

	published := 0
	for _, capsule := range capsules {
		if err := p.limiter.Wait(ctx); err != nil {
			return published, err
		}
		if err := p.post(ctx, capsule); err != nil {
			log.Printf("WARNING: moltbook post failed for %q: %v", capsule.Title, err)
			continue
		}
		published++
	}
	return published, nil
}

// post submits one capsule.
func (p *Publisher) post(ctx context.Context, capsule types.EmergedCapsule) error {
	title, content := FormatPost(capsule)

	body, err := json.Marshal(postRequest{
		Submolt: p.submolt,
		Title:   title,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("moltbook: failed to marshal post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/v1/posts", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("moltbook: failed to create post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("moltbook: post failed: %w", err)
	}
	defer resp.Body.Close()

	var result postResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("moltbook: failed to decode post response: %w", err)
	}
	if !result.Success {
		if result.Error != "" {
			return fmt.Errorf("moltbook: post rejected: %s", result.Error)
		}
		return fmt.Errorf("moltbook: post rejected with status %d", resp.StatusCode)
	}
	return nil
}

// FormatPost renders an emerged capsule into a bounded post: truncated
// title, insight, score line, and up to three evidence and three
// action-item bullets.
func FormatPost(capsule types.EmergedCapsule) (title, content string) {
	title = truncate("Emerged: "+capsule.Title, maxTitleLen)

	var b strings.Builder
	b.WriteString("**Knowledge emergence**\n\n")
	b.WriteString(capsule.Insight)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "**Collision type**: %s\n", capsule.Type)
	fmt.Fprintf(&b, "**Emergence score**: %.0f/100\n", capsule.EmergenceScore)

	if len(capsule.Evidence) > 0 {
		b.WriteString("\n**Evidence**:\n")
		for _, e := range capLines(capsule.Evidence, maxBullets) {
			b.WriteString("- " + e + "\n")
		}
	}
	if len(capsule.ActionItems) > 0 {
		b.WriteString("\n**Action items**:\n")
		for _, a := range capLines(capsule.ActionItems, maxBullets) {
			b.WriteString("- " + a + "\n")
		}
	}
	b.WriteString("\n#capsules #collision #emergence")

	return title, truncate(b.String(), maxContentLen)
}

// capLines returns at most n leading entries of list.
func capLines(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
