// Package apiclient talks to the innerpath REST backend. Every response is
// normalized into a ports.Envelope; the typed wrappers in api.go turn failed
// envelopes into *domain.APIError.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/innerpath/client-core/internal/core/ports"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20

	msgNetwork = "Network error. Please check your connection."
	msgTimeout = "Request timed out. Please try again."
)

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit is the sustained requests per second; zero disables
	// throttling.
	RateLimit float64
	RateBurst int
	DeviceID  string
}

// Client is the envelope-normalizing Requester.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	deviceID   string
	log        zerolog.Logger
}

// New creates a Client for cfg.BaseURL.
func New(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		deviceID:   cfg.DeviceID,
		log:        log.With().Str("component", "apiclient").Logger(),
	}
}

// Request performs one call and never fails with a Go error: transport
// failures, timeouts and non-2xx responses become Success=false envelopes.
func (c *Client) Request(ctx context.Context, endpoint string, opts ports.RequestOptions) ports.Envelope {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return ports.Envelope{Message: transportMessage(err)}
		}
	}

	var body io.Reader
	if opts.Body != nil {
		raw, err := json.Marshal(opts.Body)
		if err != nil {
			return ports.Envelope{Message: fmt.Sprintf("encode request: %v", err)}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return ports.Envelope{Message: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}
	if c.deviceID != "" {
		req.Header.Set("X-Device-ID", c.deviceID)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("endpoint", endpoint).Msg("request failed")
		return ports.Envelope{Message: transportMessage(err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return ports.Envelope{Status: resp.StatusCode, Message: transportMessage(err)}
	}

	env := normalize(resp.StatusCode, raw)
	c.log.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Bool("success", env.Success).
		Msg("request")
	return env
}

// normalize maps a raw response onto the envelope. The backend answers
// {success, data, message}; bodies that do not follow that shape are
// accepted as data when the status is 2xx.
func normalize(status int, raw []byte) ports.Envelope {
	env := ports.Envelope{Status: status}
	ok2xx := status >= 200 && status < 300

	if len(bytes.TrimSpace(raw)) == 0 || !gjson.ValidBytes(raw) {
		env.Success = ok2xx
		if !ok2xx {
			env.Message = http.StatusText(status)
		}
		return env
	}

	doc := gjson.ParseBytes(raw)
	env.Success = ok2xx
	if s := doc.Get("success"); s.Exists() {
		env.Success = ok2xx && s.Bool()
	}
	env.Message = firstString(doc, "message", "error.message", "error", "errors.0.msg", "errors.0.message")

	if d := doc.Get("data"); d.Exists() && doc.IsObject() {
		env.Data = json.RawMessage(d.Raw)
	} else if !doc.Get("success").Exists() {
		env.Data = json.RawMessage(doc.Raw)
	}

	if !env.Success && env.Message == "" {
		env.Message = http.StatusText(status)
		if env.Message == "" {
			env.Message = "Request failed"
		}
	}
	return env
}

func firstString(doc gjson.Result, paths ...string) string {
	for _, p := range paths {
		if r := doc.Get(p); r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

func transportMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return msgTimeout
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return msgTimeout
	}
	return msgNetwork
}
