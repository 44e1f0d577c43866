package upc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shelfscan/internal/services"
)

// ProductRecord is the retail description of a scanned barcode.
type ProductRecord struct {
	Barcode     string   `json:"barcode"`
	RawTitle    string   `json:"rawTitle"`
	Brand       string   `json:"brand,omitempty"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
	Images      []string `json:"images,omitempty"`
}

// Texts returns the free-text fields used for edition extraction.
func (p ProductRecord) Texts() []string {
	return []string{p.RawTitle, p.Description, p.Category, p.Brand}
}

type lookupItem struct {
	Title       string   `json:"title"`
	Brand       string   `json:"brand"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
}

type lookupResponse struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Total   int          `json:"total"`
	Items   []lookupItem `json:"items"`
}

// Looker resolves barcodes to product records.
type Looker interface {
	Lookup(ctx context.Context, barcode string) (*ProductRecord, error)
}

// Client queries the UPC lookup service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ Looker = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// New creates a UPC lookup client. apiKey is optional; the trial endpoint
// works without one at a reduced rate limit.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("upc base url required")
	}
	client := &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Lookup validates barcode and fetches its product record. An unknown code or
// an empty item list fails with services.ErrNotFound; transport problems fail
// with services.ErrNetwork or services.ErrTimeout.
func (c *Client) Lookup(ctx context.Context, barcode string) (*ProductRecord, error) {
	code, err := ValidateBarcode(barcode)
	if err != nil {
		return nil, err
	}
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "upc", "lookup", "parse base url", err)
	}
	params := endpoint.Query()
	params.Set("upc", code)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("user_key", c.apiKey)
		req.Header.Set("key_type", "3scale")
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		marker := services.ErrNetwork
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return nil, services.Wrap(marker, "upc", "lookup", fmt.Sprintf("latency=%v", latency), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, services.Wrap(services.ErrNotFound, "upc", "lookup", "no product for "+code, nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, services.Wrap(services.ErrNetwork, "upc", "lookup", "rate limited by upc service", nil)
	case resp.StatusCode != http.StatusOK:
		return nil, services.Wrap(services.ErrNetwork, "upc", "lookup",
			fmt.Sprintf("upc lookup returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	var payload lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrNetwork, "upc", "lookup", "decode upc response", err)
	}
	if !strings.EqualFold(payload.Code, "OK") || len(payload.Items) == 0 {
		detail := "no product for " + code
		if payload.Message != "" {
			detail += ": " + payload.Message
		}
		return nil, services.Wrap(services.ErrNotFound, "upc", "lookup", detail, nil)
	}

	item := payload.Items[0]
	return &ProductRecord{
		Barcode:     code,
		RawTitle:    strings.TrimSpace(item.Title),
		Brand:       strings.TrimSpace(item.Brand),
		Category:    strings.TrimSpace(item.Category),
		Description: strings.TrimSpace(item.Description),
		Images:      item.Images,
	}, nil
}
