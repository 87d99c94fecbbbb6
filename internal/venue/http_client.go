package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements Client against a Jupiter-style aggregator REST API:
// GET /quote for pricing, POST /swap for submission.
type HTTPClient struct {
	endpoint    string
	signerKey   string // base58 signer pubkey; live readiness requires it
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for quote calls.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithSigner sets the base58 signer pubkey. Live execution is gated off
// until a valid signer is configured.
func WithSigner(pubkey string) ClientOption {
	return func(c *HTTPClient) {
		c.signerKey = pubkey
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a venue client for the given API endpoint.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

type quoteResponse struct {
	InputMint   string  `json:"inputMint"`
	OutputMint  string  `json:"outputMint"`
	InAmount    float64 `json:"inAmount,string"`
	OutAmount   float64 `json:"outAmount,string"`
	SlippageBps int64   `json:"slippageBps"`
}

type swapRequest struct {
	Quote      json.RawMessage `json:"quoteResponse"`
	Signer     string          `json:"userPublicKey"`
	FeeAccount string          `json:"feeAccount,omitempty"`
}

type swapResponse struct {
	TxSignature string `json:"txSignature"`
	Simulated   bool   `json:"simulated"`
	Error       string `json:"error,omitempty"`
}

// Quote prices a swap with retries and exponential backoff. Venue-reported
// errors are not retried.
func (c *HTTPClient) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	q := url.Values{}
	q.Set("inputMint", req.InAsset)
	q.Set("outputMint", req.OutAsset)
	q.Set("amount", strconv.FormatFloat(req.Amount, 'f', -1, 64))
	q.Set("slippageBps", strconv.FormatInt(req.SlippageBps, 10))
	if req.FeeBps > 0 {
		q.Set("platformFeeBps", strconv.FormatInt(req.FeeBps, 10))
	}
	quoteURL := c.endpoint + "/quote?" + q.Encode()

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		body, err := c.get(ctx, quoteURL)
		if err != nil {
			lastErr = err
			continue
		}

		var resp quoteResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("unmarshal quote: %w", err)
		}

		return &Quote{
			InAsset:     resp.InputMint,
			OutAsset:    resp.OutputMint,
			InAmount:    resp.InAmount,
			OutAmount:   resp.OutAmount,
			SlippageBps: resp.SlippageBps,
			Raw:         body,
		}, nil
	}

	return nil, fmt.Errorf("quote: max retries exceeded: %w", lastErr)
}

// SwapFromQuote submits a swap built from quote. Submission is never
// retried here: a swap that may have landed must not be re-sent.
func (c *HTTPClient) SwapFromQuote(ctx context.Context, quote *Quote, feeAccount string) (*SwapResult, error) {
	reqBody, err := json.Marshal(swapRequest{
		Quote:      quote.Raw,
		Signer:     c.signerKey,
		FeeAccount: feeAccount,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/swap", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("swap request: %w", err)
	}
	body, err := io.ReadAll(httpResp.Body)
	httpResp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read swap response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("swap status %d: %s", httpResp.StatusCode, string(body))
	}

	var resp swapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal swap response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("venue rejected swap: %s", resp.Error)
	}

	return &SwapResult{TxSignature: resp.TxSignature, Simulated: resp.Simulated}, nil
}

// IsReadyForLive reports whether an endpoint and a valid signer pubkey are
// configured.
func (c *HTTPClient) IsReadyForLive() bool {
	return c.endpoint != "" && ValidatePubkey(c.signerKey) == nil
}

func (c *HTTPClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
