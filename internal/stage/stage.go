// Package stage is a thin client for the Stage subscription platform's
// SDK API. The platform owns the plan catalog, user registrations, and
// checkout sessions; this service only reads plans and asks Stage to
// mint checkout sessions.
//
// The client holds the read-write credential and must stay server-side.
package stage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/stagedemo/internal/model"
)

const (
	defaultBaseURL = "https://api.heystage.com/sdk-api"

	// Stage versions its API through the accept header.
	acceptHeader = "application/vnd.heystage.v1+json"
)

// BillingIntervalMonth is the only interval this demo checks out with.
const BillingIntervalMonth = "MONTH"

// UpstreamError reports a failed call to the Stage API.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("stage %s: status %d", e.Op, e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// CheckoutParams configure a checkout session request.
type CheckoutParams struct {
	SuccessURL      string `json:"successUrl"`
	CancelURL       string `json:"cancelUrl"`
	BillingInterval string `json:"billingInterval"`
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxRetries uint64
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithBaseURL(url string) Option {
	return func(cl *Client) {
		cl.baseURL = url
	}
}

// NewClient creates a Stage client with the given read-write API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// ListPlans fetches the full plan catalog, drafts included.
func (c *Client) ListPlans(ctx context.Context) (*model.PlanList, error) {
	var out model.PlanList
	if err := c.do(ctx, http.MethodGet, "/plans", nil, &out, ""); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUserPlans fetches the catalog plus the plan the user currently holds.
func (c *Client) GetUserPlans(ctx context.Context, identifier string) (*model.UserPlans, error) {
	var out model.UserPlans
	path := "/users/" + identifier + "/plans"
	if err := c.do(ctx, http.MethodGet, path, nil, &out, ""); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateUser registers an identifier with Stage so subscriptions can be
// attached to it later.
func (c *Client) CreateUser(ctx context.Context, identifier string) error {
	body := map[string]string{"identifier": identifier}
	return c.do(ctx, http.MethodPost, "/users", body, nil, "")
}

// CreateCheckoutSession asks Stage to mint a hosted-checkout session for
// the user and plan, returning its redirect URL. The request carries an
// idempotency key so the retry loop cannot mint duplicate sessions.
func (c *Client) CreateCheckoutSession(ctx context.Context, userIdentifier, planIdentifier string, params CheckoutParams) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	path := "/users/" + userIdentifier + "/plans/" + planIdentifier + "/checkout-sessions"
	if err := c.do(ctx, http.MethodPost, path, params, &out, uuid.NewString()); err != nil {
		return "", err
	}
	return out.URL, nil
}

// do runs one API call with bounded, jittered retries. Network errors
// and 5xx responses are retried; anything else fails immediately.
func (c *Client) do(ctx context.Context, method, path string, body, out any, idempotencyKey string) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	op := method + " " + path
	backoff := retry.WithMaxRetries(c.maxRetries,
		retry.WithJitter(50*time.Millisecond,
			retry.NewExponential(100*time.Millisecond)))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", acceptHeader)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if idempotencyKey != "" {
			req.Header.Set("Idempotency-Key", idempotencyKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(&UpstreamError{Op: op, Err: err})
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(&UpstreamError{Op: op, Status: resp.StatusCode})
		}
		if resp.StatusCode >= 400 {
			return &UpstreamError{Op: op, Status: resp.StatusCode}
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return &UpstreamError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
			}
		}
		return nil
	})
}
