package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shelfscan/internal/services"
)

// Media types returned by multi search that the resolver can use.
const (
	MediaMovie = "movie"
	MediaTV    = "tv"
)

// Result represents a single TMDB search match.
type Result struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title,omitempty"`
	Name         string  `json:"name,omitempty"`
	Overview     string  `json:"overview,omitempty"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	FirstAirDate string  `json:"first_air_date,omitempty"`
	PosterPath   string  `json:"poster_path,omitempty"`
	MediaType    string  `json:"media_type"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int64   `json:"vote_count"`
}

// DisplayTitle returns the movie title or the show name.
func (r Result) DisplayTitle() string {
	if strings.TrimSpace(r.Title) != "" {
		return r.Title
	}
	return r.Name
}

// Year returns the release or first-air year, or 0 when unknown.
func (r Result) Year() int {
	date := r.ReleaseDate
	if date == "" {
		date = r.FirstAirDate
	}
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

// Response models the TMDB paginated search response.
type Response struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// CastMember is one billed performer from appended credits.
type CastMember struct {
	Name      string `json:"name"`
	Character string `json:"character,omitempty"`
	Order     int    `json:"order"`
}

// CrewMember is one crew credit from appended credits.
type CrewMember struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

// Credits holds the appended credits block of a detail response.
type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// Details is a movie or TV detail record. Raw holds the response body
// exactly as TMDB returned it.
type Details struct {
	Result
	Runtime int             `json:"runtime,omitempty"`
	Tagline string          `json:"tagline,omitempty"`
	Credits Credits         `json:"credits"`
	Raw     json.RawMessage `json:"-"`
}

// Directors returns the names of crew credited as Director.
func (d Details) Directors() []string {
	var names []string
	for _, member := range d.Credits.Crew {
		if member.Job == "Director" {
			names = append(names, member.Name)
		}
	}
	return names
}

// Searcher defines the TMDB operations used by identification.
type Searcher interface {
	SearchMulti(ctx context.Context, query string, page int) (*Response, error)
	GetDetails(ctx context.Context, mediaType string, id int64) (*Details, error)
}

// Client provides access to the TMDB API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
}

var _ Searcher = (*Client)(nil)

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

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SearchMulti performs a TMDB multi search. Results of every media type are
// returned; callers filter to movie and tv.
func (c *Client) SearchMulti(ctx context.Context, query string, page int) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("query", query)
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}

	var payload Response
	if _, err := c.get(ctx, "/search/multi", params, "multi search", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// GetDetails fetches the movie or TV record for id with credits appended.
func (c *Client) GetDetails(ctx context.Context, mediaType string, id int64) (*Details, error) {
	if id <= 0 {
		return nil, errors.New("tmdb id must be positive")
	}
	if mediaType != MediaMovie && mediaType != MediaTV {
		return nil, fmt.Errorf("unsupported media type %q", mediaType)
	}
	params := url.Values{}
	params.Set("append_to_response", "credits")

	var payload Details
	raw, err := c.get(ctx, fmt.Sprintf("/%s/%d", mediaType, id), params, mediaType+" details", &payload)
	if err != nil {
		return nil, err
	}
	payload.MediaType = mediaType
	payload.Raw = raw
	return &payload, nil
}

// Configuration probes the API configuration endpoint to confirm the key is
// accepted.
func (c *Client) Configuration(ctx context.Context) error {
	var payload map[string]any
	_, err := c.get(ctx, "/configuration", url.Values{}, "configuration", &payload)
	return err
}

// get issues an authenticated GET and decodes the body into dest, returning
// the raw body as well.
func (c *Client) get(ctx context.Context, path string, params url.Values, operation string, dest any) ([]byte, error) {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("parse tmdb url: %w", err)
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		marker := services.ErrNetwork
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return nil, services.Wrap(marker, "tmdb", operation, fmt.Sprintf("latency=%v", latency), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, services.Wrap(services.ErrNotFound, "tmdb", operation, "returned 404", nil)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, services.Wrap(services.ErrConfiguration, "tmdb", operation, "api key rejected", nil)
	case resp.StatusCode != http.StatusOK:
		return nil, services.Wrap(services.ErrNetwork, "tmdb", operation,
			fmt.Sprintf("tmdb %s returned %d (latency=%v)", operation, resp.StatusCode, latency), nil)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, services.Wrap(services.ErrNetwork, "tmdb", operation, "decode tmdb response", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return nil, services.Wrap(services.ErrNetwork, "tmdb", operation, "decode tmdb response", err)
	}
	return raw, nil
}
