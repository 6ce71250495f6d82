package relayer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/cloudent/reputation-node/log"
)

const (
	registerVKEndpoint  = "register-vk"
	submitProofEndpoint = "submit-proof"
	jobStatusEndpoint   = "job-status"

	// DefaultTimeout is the default timeout for the HTTP client.
	DefaultTimeout = 30 * time.Second
)

// Client is the HTTP client of the relayer API. The API key is sent as a
// path segment of every request.
type Client struct {
	c      *http.Client
	host   *url.URL
	apiKey string
}

// NewClient creates a relayer client for the given base URL and API key.
func NewClient(host, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("relayer API key not provided")
	}
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid relayer URL: %w", err)
	}
	return &Client{
		c:      &http.Client{Timeout: DefaultTimeout},
		host:   hostURL,
		apiKey: apiKey,
	}, nil
}

// SetTimeout configures the timeout for the HTTP client.
func (c *Client) SetTimeout(d time.Duration) {
	c.c.Timeout = d
}

// RegisterVK registers a verification key with the relayer. When the key is
// already registered the returned error is an *APIError whose
// AlreadyRegistered method recovers the existing hash.
func (c *Client) RegisterVK(ctx context.Context, vk json.RawMessage) (*RegisterVKResponse, error) {
	req := &RegisterVKRequest{
		ProofType:    ProofType,
		ProofOptions: DefaultProofOptions(),
		VK:           vk,
	}
	res := &RegisterVKResponse{}
	if err := c.request(ctx, http.MethodPost, req, res, registerVKEndpoint, c.apiKey); err != nil {
		return nil, err
	}
	return res, nil
}

// SubmitProof submits a proof for optimistic verification and aggregation.
func (c *Client) SubmitProof(ctx context.Context, req *SubmitProofRequest) (*SubmitProofResponse, error) {
	res := &SubmitProofResponse{}
	if err := c.request(ctx, http.MethodPost, req, res, submitProofEndpoint, c.apiKey); err != nil {
		return nil, err
	}
	return res, nil
}

// JobStatus queries the aggregation status of a submitted proof.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*JobStatusResponse, error) {
	res := &JobStatusResponse{}
	if err := c.request(ctx, http.MethodGet, nil, res, jobStatusEndpoint, c.apiKey, jobID); err != nil {
		return nil, err
	}
	return res, nil
}

// request performs a JSON request against the relayer and decodes the
// response into out. Non-2xx responses are decoded into an *APIError.
func (c *Client) request(ctx context.Context, method string, body, out any, urlPath ...string) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}
	u := *c.host
	u.Path = path.Join(u.Path, path.Join(urlPath...))
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	log.Debugw("relayer request", "method", method, "endpoint", urlPath[0])

	res, err := c.c.Do(req)
	if err != nil {
		return fmt.Errorf("relayer request failed: %w", err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			log.Warnw("failed to close response body", "error", err.Error())
		}
	}()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read relayer response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{HTTPStatus: res.StatusCode}
		if err := json.Unmarshal(data, apiErr); err != nil {
			apiErr.Message = string(data)
		}
		return apiErr
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode relayer response: %w", err)
	}
	return nil
}
