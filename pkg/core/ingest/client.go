// Package ingest fetches raw financial statements and company profiles
// from a statements provider over HTTP. Responses are decoded tolerantly:
// sloppy JSON goes through the repair cascade, HTML pages through the
// table parser, and non-numeric cells are dropped rather than failing the
// fetch.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/time/rate"

	"finstat/pkg/core/statements"
	"finstat/pkg/core/utils"
	"finstat/pkg/models"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 5
)

// Client is a statements provider API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithAPIKey sets the provider API key sent on every request.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP timeout on the default client.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a new statements provider client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ProviderError represents an error response from the provider API.
type ProviderError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider API error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// statementsPayload is the provider's JSON shape for one statements fetch.
// Cell values arrive as numbers or as formatted strings; coercion happens
// after decoding.
type statementsPayload struct {
	Symbol   string                            `json:"symbol"`
	Period   string                            `json:"period"`
	Income   map[string]map[string]interface{} `json:"income_statement"`
	Balance  map[string]map[string]interface{} `json:"balance_sheet"`
	CashFlow map[string]map[string]interface{} `json:"cash_flow"`
}

// FetchStatements retrieves the three raw statement tables for a symbol.
// Any of the tables may come back empty; a provider error is returned as a
// *ProviderError for the caller to classify.
func (c *Client) FetchStatements(ctx context.Context, symbol string, kind models.PeriodKind) (statements.RawSet, error) {
	params := url.Values{}
	params.Set("period", string(kind))

	body, contentType, err := c.get(ctx, "/v1/statements/"+url.PathEscape(symbol), params)
	if err != nil {
		return nil, fmt.Errorf("fetch statements for %s: %w", symbol, err)
	}

	if looksLikeHTML(contentType, body) {
		return c.statementsFromHTML(symbol, string(body)), nil
	}

	var payload statementsPayload
	decoded, err := utils.SmartParse(string(body), &payload)
	if err != nil {
		return nil, fmt.Errorf("decode statements for %s: %w", symbol, err)
	}
	if decoded != string(body) {
		log.Debug().
			Str("symbol", symbol).
			Msg("statements payload needed tolerant decoding")
	}

	return statements.RawSet{
		statements.Income:   coerceTable(statements.Income, payload.Income, symbol),
		statements.Balance:  coerceTable(statements.Balance, payload.Balance, symbol),
		statements.CashFlow: coerceTable(statements.CashFlow, payload.CashFlow, symbol),
	}, nil
}

// FetchProfile retrieves the company profile for a symbol. An unknown
// symbol (404) yields (nil, nil): a missing profile never blocks analysis.
func (c *Client) FetchProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error) {
	body, _, err := c.get(ctx, "/v1/profile/"+url.PathEscape(symbol), nil)
	if err != nil {
		var provErr *ProviderError
		if errors.As(err, &provErr) && provErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch profile for %s: %w", symbol, err)
	}

	var profile models.CompanyProfile
	if _, err := utils.SmartParse(string(body), &profile); err != nil {
		return nil, fmt.Errorf("decode profile for %s: %w", symbol, err)
	}
	if profile.Symbol == "" {
		profile.Symbol = symbol
	}
	return &profile, nil
}

// get performs a GET request against the provider API.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL = reqURL + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	log.Debug().Str("url", reqURL).Msg("provider API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, "", &ProviderError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	return body, resp.Header.Get("Content-Type"), nil
}

// statementsFromHTML parses an HTML statements page. A table that cannot
// be located is logged and left empty rather than failing the fetch.
func (c *Client) statementsFromHTML(symbol, body string) statements.RawSet {
	set := make(statements.RawSet, len(statements.Kinds))
	for _, kind := range statements.Kinds {
		table, err := ParseStatementHTML(body, kind)
		if err != nil {
			log.Warn().
				Str("symbol", symbol).
				Str("statement", string(kind)).
				Err(err).
				Msg("no usable table in HTML response")
			table = &statements.RawTable{Kind: kind, Items: map[string]map[string]float64{}}
		}
		set[kind] = table
	}
	return set
}

// coerceTable converts one decoded provider table into a RawTable,
// dropping cells that do not carry a usable number.
func coerceTable(kind statements.Kind, raw map[string]map[string]interface{}, symbol string) *statements.RawTable {
	table := &statements.RawTable{
		Kind:  kind,
		Items: make(map[string]map[string]float64, len(raw)),
	}

	dropped := 0
	for label, periods := range raw {
		for period, cell := range periods {
			value, ok := coerceCell(cell)
			if !ok {
				dropped++
				continue
			}
			if table.Items[label] == nil {
				table.Items[label] = make(map[string]float64, len(periods))
			}
			table.Items[label][period] = value
		}
	}

	if dropped > 0 {
		log.Debug().
			Str("symbol", symbol).
			Str("statement", string(kind)).
			Int("dropped", dropped).
			Msg("dropped non-numeric statement cells")
	}
	return table
}

// coerceCell extracts a number from whatever the provider put in a cell.
func coerceCell(cell interface{}) (float64, bool) {
	switch v := cell.(type) {
	case float64:
		return v, isFinite(v)
	case string:
		return parseCellText(v)
	default:
		return 0, false
	}
}

// looksLikeHTML reports whether a response should go through the HTML
// table parser instead of the JSON decoders.
func looksLikeHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "<!") || strings.HasPrefix(trimmed, "<html")
}
