// Package reasoning sends one interval plus its correlated events to an
// external chat-completions service and parses a structured causal verdict.
// Terminal failures never surface as batch errors; the client synthesizes a
// fallback verdict instead.
package reasoning

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/netsentry/kpi-rca/internal/cache"
	"github.com/netsentry/kpi-rca/internal/metrics"
	"github.com/netsentry/kpi-rca/internal/models"
)

// Config holds the reasoning service connection parameters.
type Config struct {
	Model       string
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxAttempts int
	VerdictTTL  time.Duration
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	cache      cache.Provider
	logger     *slog.Logger
}

// statusError carries the HTTP status of a failed upstream call so retry
// policy can distinguish auth failures from transient ones.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("reasoning service returned status %d: %s", e.status, e.body)
}

// NewClient constructs a reasoning client. A nil cache provider disables
// verdict caching.
func NewClient(cfg Config, cacheProvider cache.Provider, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cacheProvider,
		logger:     logger,
	}
}

// EvaluateCorrelation judges causality between one interval and its
// consolidated events. The same request is retried up to the configured
// attempt bound on transient failures and unparsable responses;
// non-retryable transport/auth errors and exhausted retries both yield the
// fixed fallback verdict with the failure recorded on it.
func (c *Client) EvaluateCorrelation(ctx context.Context, index int, interval models.DegradationInterval, events []models.ConsolidatedEvent) models.CausalVerdict {
	key := c.verdictKey(interval, events)

	if cached, err := c.cache.Get(ctx, key); err == nil {
		var verdict models.CausalVerdict
		if err := json.Unmarshal(cached, &verdict); err == nil {
			verdict.IntervalIndex = index
			metrics.ObserveReasoning(0, metrics.OutcomeCached)
			return verdict
		}
		// A corrupt cache entry is dropped and re-evaluated.
		_ = c.cache.Del(ctx, key)
	}

	prompt := BuildPrompt(interval, events)
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		verdict, err := c.evaluateOnce(ctx, prompt)
		if err == nil {
			c.attachMetadata(&verdict, index, interval, events)
			metrics.ObserveReasoning(time.Since(start), metrics.OutcomeSuccess)
			c.storeVerdict(ctx, key, verdict)
			return verdict
		}

		lastErr = err
		if !retryable(err) {
			c.logger.Warn("reasoning call failed terminally",
				slog.Int("interval", index), slog.Any("error", err))
			break
		}
		c.logger.Debug("reasoning call failed, retrying",
			slog.Int("interval", index), slog.Int("attempt", attempt), slog.Any("error", err))
	}

	metrics.ObserveReasoning(time.Since(start), metrics.OutcomeError)
	fallback := c.fallbackVerdict(lastErr)
	c.attachMetadata(&fallback, index, interval, events)
	return fallback
}

func (c *Client) evaluateOnce(ctx context.Context, prompt string) (models.CausalVerdict, error) {
	reqBody := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    0.3,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return models.CausalVerdict{}, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return models.CausalVerdict{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.CausalVerdict{}, fmt.Errorf("reasoning request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.CausalVerdict{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.CausalVerdict{}, &statusError{status: resp.StatusCode, body: truncate(string(respBody), 200)}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return models.CausalVerdict{}, fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return models.CausalVerdict{}, fmt.Errorf("completion contained no choices")
	}

	var verdict models.CausalVerdict
	content := completion.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return models.CausalVerdict{}, fmt.Errorf("parse verdict JSON: %w", err)
	}

	if verdict.ConfidenceScore < 0 {
		verdict.ConfidenceScore = 0
	}
	if verdict.ConfidenceScore > 1 {
		verdict.ConfidenceScore = 1
	}
	switch verdict.OverallVerdict {
	case models.VerdictCausal, models.VerdictPossible, models.VerdictCoincidental, models.VerdictNoCorrelation:
	default:
		return models.CausalVerdict{}, fmt.Errorf("unknown verdict %q", verdict.OverallVerdict)
	}

	return verdict, nil
}

// retryable reports whether an attempt is worth repeating: everything except
// auth and client errors. Context cancellation also ends the loop.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		switch se.status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return false
		}
		return true
	}
	return true
}

func (c *Client) fallbackVerdict(cause error) models.CausalVerdict {
	reason := "reasoning service unavailable"
	errText := ""
	if cause != nil {
		errText = cause.Error()
		var se *statusError
		switch {
		case errors.As(cause, &se):
			reason = fmt.Sprintf("reasoning service rejected the request (status %d)", se.status)
		case strings.Contains(errText, "parse verdict"):
			reason = "failed to parse reasoning response"
		}
	}

	return models.CausalVerdict{
		OverallVerdict:     models.VerdictNoCorrelation,
		ConfidenceScore:    0.0,
		EventAssessments:   []models.EventAssessment{},
		TopReasons:         []string{reason},
		RecommendedActions: []string{"Review the correlation manually", "Check reasoning service connectivity and credentials"},
		AnalysisSummary:    fmt.Sprintf("Causal evaluation failed after %d attempt(s): %s", c.cfg.MaxAttempts, errText),
		Err:                errText,
	}
}

func (c *Client) attachMetadata(v *models.CausalVerdict, index int, interval models.DegradationInterval, events []models.ConsolidatedEvent) {
	v.IntervalIndex = index
	v.Node = interval.Node
	v.StartTime = interval.StartTimestamp.Format(time.RFC3339)
	v.EventsCount = len(events)
}

func (c *Client) storeVerdict(ctx context.Context, key string, verdict models.CausalVerdict) {
	data, err := json.Marshal(verdict)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, c.cfg.VerdictTTL); err != nil {
		c.logger.Debug("verdict cache store failed", slog.Any("error", err))
	}
}

// verdictKey fingerprints one evaluation: model, interval bounds, and the
// matched evidence. Any change in the evidence changes the key.
func (c *Client) verdictKey(interval models.DegradationInterval, events []models.ConsolidatedEvent) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%.4f",
		c.cfg.Model,
		interval.Node,
		interval.StartTimestamp.Format(time.RFC3339Nano),
		interval.EndTimestamp.Format(time.RFC3339Nano),
		interval.MinValue,
	)
	for _, ev := range events {
		fmt.Fprintf(h, "|%s:%d", ev.EventID, len(ev.StatusTimeline))
	}
	return "kpi-rca:verdict:" + hex.EncodeToString(h.Sum(nil))
}
