// Package lmsclient reads and writes submission state against the LMS API
// and composes the reconciliation view any UI shell can render.
package lmsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const maxErrorBody = 64 << 10

// Client talks to the /api/v1 surface of the LMS backend.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
	logger     zerolog.Logger
	now        func() time.Time
	newBackOff func() backoff.BackOff
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithToken attaches a bearer token to every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "lmsclient").Logger()
	}
}

// WithClock sets the clock used for eligibility and lateness.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRetryBackoff sets the backoff policy for the single read retry.
func WithRetryBackoff(factory func() backoff.BackOff) Option {
	return func(c *Client) {
		if factory != nil {
			c.newBackOff = factory
		}
	}
}

// New builds a client for baseURL, for example https://lms.example.com/api/v1.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", baseURL)
	}

	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zerolog.Nop(),
		now:        time.Now,
		newBackOff: defaultBackOff,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func defaultBackOff() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	policy.MaxElapsedTime = 5 * time.Second
	return policy
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

// read performs an idempotent GET, retrying once on transport failure.
func (c *Client) read(ctx context.Context, op, path string, query url.Values, schema *jsonschema.Schema, out interface{}) error {
	req := request{method: http.MethodGet, path: path, query: query}

	var payload envelope
	attempt := func() error {
		result, err := c.do(ctx, op, req)
		if err != nil {
			if KindOf(err) == KindTransport && ctx.Err() == nil {
				return err
			}
			return backoff.Permanent(err)
		}
		payload = result
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn().Err(err).Str("op", op).Dur("wait", wait).Msg("retrying read")
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), 1), ctx)
	if err := backoff.RetryNotify(attempt, policy, notify); err != nil {
		if KindOf(err) == "" {
			err = &Error{Kind: KindTransport, Op: op, Err: err}
		}
		return err
	}

	return c.decode(op, schema, payload, out)
}

// write performs a single request. Writes are never retried.
func (c *Client) write(ctx context.Context, op string, req request, schema *jsonschema.Schema, out interface{}) error {
	payload, err := c.do(ctx, op, req)
	if err != nil {
		return err
	}
	return c.decode(op, schema, payload, out)
}

func (c *Client) decode(op string, schema *jsonschema.Schema, payload envelope, out interface{}) error {
	if err := decodeValidated(schema, payload.Data, out); err != nil {
		return &Error{Kind: KindValidation, Op: op, Err: err}
	}
	return nil
}

func (c *Client) do(ctx context.Context, op string, req request) (envelope, error) {
	endpoint := *c.baseURL
	endpoint.Path = c.baseURL.Path + req.path
	if len(req.query) > 0 {
		endpoint.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint.String(), body)
	if err != nil {
		return envelope{}, &Error{Kind: KindTransport, Op: op, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return envelope{}, &Error{Kind: KindTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return envelope{}, &Error{Kind: KindTransport, Op: op, Status: resp.StatusCode, Err: err}
	}

	var payload envelope
	decodeErr := json.Unmarshal(raw, &payload)

	if resp.StatusCode >= 400 {
		message := payload.Message
		if decodeErr != nil || message == "" {
			message = strings.TrimSpace(string(truncate(raw, maxErrorBody)))
		}
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		clientErr := &Error{
			Kind:   kindForStatus(resp.StatusCode, payload.Code),
			Op:     op,
			Status: resp.StatusCode,
			Code:   payload.Code,
			Err:    errors.New(message),
		}
		if clientErr.Kind == KindIneligible {
			clientErr.Eligibility = eligibilityForCode(payload.Code)
		}
		return envelope{}, clientErr
	}

	if decodeErr != nil {
		return envelope{}, &Error{Kind: KindValidation, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("malformed response envelope: %w", decodeErr)}
	}

	return payload, nil
}

func truncate(raw []byte, limit int) []byte {
	if len(raw) > limit {
		return raw[:limit]
	}
	return raw
}
