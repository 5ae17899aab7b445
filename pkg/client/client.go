package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/adamsih300u/bastion-sub008/pkg/graph"
	"github.com/adamsih300u/bastion-sub008/pkg/simulation"
)

const DefaultEndpoint = "http://127.0.0.1:8090"

// Client is the faultsim SDK client.
type Client struct {
	endpoint   string
	http       *http.Client
	backoff    BackoffStrategy
	maxRetries int
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRetry sets how namespace_busy conflicts are retried. retries of zero
// disables retrying.
func WithRetry(b BackoffStrategy, retries int) Option {
	return func(c *Client) {
		c.backoff = b
		c.maxRetries = retries
	}
}

// NewClient creates a new faultsim client.
// endpoint defaults to "http://127.0.0.1:8090" if empty.
func NewClient(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: 5 * time.Minute,
		},
		backoff:    DefaultBackoff(),
		maxRetries: 5,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// DesignComponent upserts a component. A rejected design is returned with
// Success false and a nil error.
func (c *Client) DesignComponent(ctx context.Context, namespace string, spec graph.DesignSpec) (simulation.DesignResponse, error) {
	var out simulation.DesignResponse
	err := c.do(ctx, http.MethodPost, namespacePath(namespace, "components"), spec, &out, true)
	return out, err
}

// SimulateFailure runs a simulation. A failed simulation is returned with
// Success false and a nil error.
func (c *Client) SimulateFailure(ctx context.Context, namespace string, req simulation.SimulateRequest) (simulation.SimulateResponse, error) {
	var out simulation.SimulateResponse
	err := c.do(ctx, http.MethodPost, namespacePath(namespace, "simulations"), req, &out, true)
	return out, err
}

func (c *Client) GetTopology(ctx context.Context, namespace string) (simulation.TopologyResponse, error) {
	var out simulation.TopologyResponse
	err := c.do(ctx, http.MethodGet, namespacePath(namespace, "topology"), nil, &out, false)
	return out, err
}

// LatestResult returns the most recent successful simulation. found is
// false when the namespace has none.
func (c *Client) LatestResult(ctx context.Context, namespace string) (res simulation.SimulateResponse, found bool, err error) {
	err = c.do(ctx, http.MethodGet, namespacePath(namespace, "simulations/latest"), nil, &res, false)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return simulation.SimulateResponse{}, false, nil
	}
	if err != nil {
		return simulation.SimulateResponse{}, false, err
	}
	return res, true, nil
}

func (c *Client) Namespaces(ctx context.Context) ([]string, error) {
	var out struct {
		Namespaces []string `json:"namespaces"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/namespaces", nil, &out, false); err != nil {
		return nil, err
	}
	return out.Namespaces, nil
}

// GetEvents fetches recent events from the daemon, newest first.
func (c *Client) GetEvents(ctx context.Context, opts EventsOptions) ([]Event, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(opts.Limit))
	if opts.Namespace != "" {
		q.Set("namespace", opts.Namespace)
	}
	if opts.Type != "" {
		q.Set("type", opts.Type)
	}

	var events []Event
	if err := c.do(ctx, http.MethodGet, "/v1/events?"+q.Encode(), nil, &events, false); err != nil {
		return nil, err
	}
	return events, nil
}

// Ping checks the health of the daemon.
func (c *Client) Ping(ctx context.Context) (Status, error) {
	var status Status
	err := c.do(ctx, http.MethodGet, "/v1/health", nil, &status, false)
	return status, err
}

func namespacePath(namespace, rest string) string {
	return "/v1/namespaces/" + url.PathEscape(namespace) + "/" + rest
}

// do sends one request, retrying while the namespace is busy. When
// acceptFailure is set a 422 body is decoded into out like a 200.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}, acceptFailure bool) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		err := c.once(ctx, method, path, body, out, acceptFailure)
		if err == nil || !errors.Is(err, ErrNamespaceBusy) || attempt >= c.maxRetries {
			return err
		}
		select {
		case <-time.After(c.backoff.Next(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) once(ctx context.Context, method, path string, body []byte, out interface{}, acceptFailure bool) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || (acceptFailure && resp.StatusCode == http.StatusUnprocessableEntity) {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = fmt.Sprintf("unexpected_status_%d", resp.StatusCode)
	}
	return apiErr
}
