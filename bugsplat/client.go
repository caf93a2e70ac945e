package bugsplat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// maxBodyExcerpt bounds how much of an unexpected response is kept for logs
const maxBodyExcerpt = 500

// Client represents a BugSplat web client. It holds one cookie session that
// is shared by every request after Login.
type Client struct {
	baseURL   string
	http      *retryablehttp.Client
	limiter   *rate.Limiter
	userAgent string
	logger    zerolog.Logger
}

// NewClient creates a new BugSplat client
func NewClient(baseURL string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: BugSplat URL is required", ErrInvalidConfig)
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid BugSplat URL %q", ErrInvalidConfig, baseURL)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	rc := retryablehttp.NewClient()
	if o.httpClient != nil {
		rc.HTTPClient = o.httpClient
	} else {
		rc.HTTPClient.Timeout = o.timeout
	}
	if rc.HTTPClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		rc.HTTPClient.Jar = jar
	}
	rc.RetryMax = o.maxRetries
	rc.RetryWaitMin = o.retryWaitMin
	rc.RetryWaitMax = o.retryWaitMax
	rc.Logger = leveledLogger{logger: logger}
	// Hand the final response back so status errors become APIErrors.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	limiter := rate.NewLimiter(rate.Inf, 0)
	if o.rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(o.rateLimit), 1)
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      rc,
		limiter:   limiter,
		userAgent: o.userAgent,
		logger:    logger,
	}, nil
}

// BaseURL returns the service root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login performs the two-step handshake: a GET to obtain the session cookie,
// then a POST of the credentials form.
func (c *Client) Login(ctx context.Context, username, password string) error {
	loginURL := c.baseURL + "/login"
	c.logger.Debug().Str("user", username).Msg("Logging into BugSplat")

	if _, err := c.getURL(ctx, "login", loginURL); err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	form := url.Values{
		"currusername": {username},
		"currpasswd":   {password},
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %w", ErrAuthentication, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(req, "login")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	c.logger.Debug().Msg("Login complete")
	return nil
}

// FetchPage fetches one page of a listing endpoint
func (c *Client) FetchPage(ctx context.Context, op Operation, database string, pageSize, pageNum int) (*Page, error) {
	params := url.Values{}
	params.Set("database", database)
	params.Set("pagesize", strconv.Itoa(pageSize))
	params.Set("pagenum", strconv.Itoa(pageNum))
	for k, v := range op.query() {
		params[k] = v
	}

	body, err := c.get(ctx, op.Name(), "data&"+params.Encode())
	if err != nil {
		return nil, err
	}

	return decodePage(body)
}

// pageEnvelope is the wire form of a listing element
type pageEnvelope struct {
	Database string    `json:"Database"`
	Rows     *[]Record `json:"Rows"`
}

func decodePage(body []byte) (*Page, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var envelopes []pageEnvelope
	if err := dec.Decode(&envelopes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}
	if len(envelopes) == 0 {
		return nil, fmt.Errorf("%w: empty response array", ErrMalformedPage)
	}
	if envelopes[0].Rows == nil {
		return nil, fmt.Errorf("%w: missing Rows", ErrMalformedPage)
	}

	return &Page{Database: envelopes[0].Database, Rows: *envelopes[0].Rows}, nil
}

// get issues GET {base}/{endpoint}/?{query} and returns the body
func (c *Client) get(ctx context.Context, endpoint, query string) ([]byte, error) {
	return c.getURL(ctx, endpoint, fmt.Sprintf("%s/%s/?%s", c.baseURL, endpoint, query))
}

func (c *Client) getURL(ctx context.Context, endpoint, rawURL string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// do sends req after pacing and returns the response only for 2xx statuses.
// The caller owns the response body.
func (c *Client) do(req *retryablehttp.Request, endpoint string) (*http.Response, error) {
	ctx := req.Context()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("request canceled: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Trace().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Msg("Making BugSplat request")

	start := time.Now()
	resp, err := c.http.Do(req)
	requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("request to %s failed: %w", req.URL.Redacted(), err)
	}
	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyExcerpt))
		resp.Body.Close()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			URL:        req.URL.Redacted(),
			Body:       string(excerpt),
		}
	}

	return resp, nil
}

func excerpt(body []byte) string {
	if len(body) > maxBodyExcerpt {
		body = body[:maxBodyExcerpt]
	}
	return string(body)
}
