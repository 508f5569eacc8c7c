package management

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"identity-mcp/pkg/logging"
)

// maxResponseBytes bounds the body read from the management API.
const maxResponseBytes = 10 << 20

// Call describes one management API request.
type Call struct {
	Method string
	// Path is relative to the API root, e.g. "clients/abc".
	Path  string
	Query url.Values
	// Body is JSON-encoded when non-nil.
	Body any
}

// API is the management API as seen by capability handlers.
type API interface {
	Do(ctx context.Context, call Call) (*Response, error)
}

// Client talks to one tenant's management API with an authenticated http.Client.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
	now        func() time.Time
	// limiter paces calls made with this client. Nil means unlimited.
	limiter *rate.Limiter
}

// NewClient creates a client rooted at baseURL, e.g. https://tenant/api/v2/.
// The http.Client must already attach credentials.
func NewClient(baseURL string, httpClient *http.Client, userAgent string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid management base URL %q: %w", baseURL, err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    u,
		httpClient: httpClient,
		userAgent:  userAgent,
		now:        time.Now,
	}, nil
}

// Do performs the call and normalizes the result. Non-2xx responses are
// returned as *APIError, network failures as *TransportError.
func (c *Client) Do(ctx context.Context, call Call) (*Response, error) {
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(call.Path, "/")})
	if len(call.Query) > 0 {
		endpoint.RawQuery = call.Query.Encode()
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var body io.Reader
	if call.Body != nil {
		data, err := json.Marshal(call.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, endpoint.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	logging.Debug("ManagementClient", "%s %s", call.Method, endpoint.Path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: call.Method + " " + endpoint.Path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Op: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.decodeError(resp, data)
	}
	if resp.StatusCode == http.StatusNoContent {
		return &Response{Kind: KindEmpty}, nil
	}
	return Normalize(data), nil
}

// wait blocks until the limiter admits one more call. A wait that cannot
// finish before ctx's deadline fails with context.DeadlineExceeded.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("management API rate limit: %w", context.DeadlineExceeded)
	}
	return nil
}

// upstreamError is the management API's error body.
type upstreamError struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
	ErrorCode  string `json:"errorCode"`
}

func (c *Client) decodeError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var ue upstreamError
	if err := json.Unmarshal(body, &ue); err == nil {
		apiErr.Message = ue.Message
		apiErr.ErrorCode = ue.ErrorCode
		if apiErr.Message == "" {
			apiErr.Message = ue.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), c.now())
	}
	return apiErr
}
