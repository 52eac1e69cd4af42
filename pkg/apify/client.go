package apify

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"igpicker/pkg/config"
	"igpicker/pkg/errors"
	"igpicker/pkg/logger"
	"igpicker/pkg/retry"
)

// maxErrorBody caps how much of a failed response is read for its message
const maxErrorBody = 4096

// Client calls the Apify run-sync endpoint of the Instagram scraper actor
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	actor      string
	retry      *retry.Config
	logger     logger.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at another API host, e.g. a test server
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithActor selects a different actor
func WithActor(actor string) Option {
	return func(c *Client) { c.actor = actor }
}

// WithRetry sets the retry policy for each fetch
func WithRetry(cfg *retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// NewClient creates a new Apify client
func NewClient(timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
			"User-Agent":   "igpicker/" + logger.Version,
		},
		baseURL: DefaultBaseURL,
		actor:   DefaultActor,
		retry:   retry.NoRetry(),
		logger:  log.WithField("component", "apify"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig creates a client from the provider and retry sections
func NewClientFromConfig(pc config.ProviderConfig, rc config.RetryConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	return NewClient(pc.Timeout, log,
		WithBaseURL(pc.BaseURL),
		WithActor(pc.Actor),
		WithRetry(retry.FromConfig(rc, log)),
	)
}

// FetchPosts runs the actor for one profile and returns at most what the
// actor produced for it. Callers enforce their own cap on the result.
func (c *Client) FetchPosts(ctx context.Context, token, username string, limit int) ([]Item, error) {
	if token == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "provider token is required")
	}
	if username == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "username is required")
	}

	items, err := retry.DoWithResult(ctx, func(ctx context.Context) ([]Item, error) {
		return c.fetchOnce(ctx, token, username, limit)
	}, c.retry)
	if err != nil {
		c.logger.WarnWithFields("failed to fetch posts", map[string]interface{}{
			"username": username,
			"error":    err.Error(),
		})
		return nil, err
	}

	c.logger.DebugWithFields("fetched posts", map[string]interface{}{
		"username": username,
		"items":    len(items),
	})
	return items, nil
}

func (c *Client) fetchOnce(ctx context.Context, token, username string, limit int) ([]Item, error) {
	body, err := json.Marshal(RunInput{
		DirectURLs:   []string{ProfileURL(username)},
		ResultsLimit: limit,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeUnknown, "failed to encode actor input", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, RunSyncURL(c.baseURL, c.actor, token), bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeUnknown, "failed to create request", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeNetwork, "failed to read response body", err)
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		preview := string(data)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse provider response", map[string]interface{}{
			"username":     username,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return nil, &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: fmt.Sprintf("malformed provider response: %v", err),
			Code:    resp.StatusCode,
			Err:     err,
		}
	}

	return items, nil
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	target := redactURL(req.URL)
	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    target,
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      target,
			"error":    redactError(err),
			"duration": duration,
		})
		return nil, classifyTransportError(err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      target,
		"status":   resp.StatusCode,
		"duration": duration,
	})
	return resp, nil
}

// checkResponseStatus maps non-2xx responses to typed errors. The actor
// answers 201 Created on success, so any 2xx is accepted.
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	message := readErrorMessage(resp.Body)
	var errType errors.ErrorType
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		errType = errors.ErrorTypeAuth
		if message == "" {
			message = "provider rejected the API token"
		}
	case resp.StatusCode == http.StatusNotFound:
		errType = errors.ErrorTypeNotFound
		if message == "" {
			message = "actor not found"
		}
	case resp.StatusCode == http.StatusRequestTimeout:
		errType = errors.ErrorTypeTimeout
		if message == "" {
			message = "actor run timed out"
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		errType = errors.ErrorTypeRateLimit
		if message == "" {
			message = "rate limit exceeded"
		}
	case resp.StatusCode >= 500:
		errType = errors.ErrorTypeServerError
		if message == "" {
			message = "provider server error"
		}
	default:
		errType = errors.ErrorTypeUnknown
		if message == "" {
			message = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
		}
	}

	c.logger.WarnWithFields("provider returned error status", map[string]interface{}{
		"status": resp.StatusCode,
		"type":   string(errType),
		"url":    redactURL(resp.Request.URL),
	})
	return &errors.Error{Type: errType, Message: message, Code: resp.StatusCode}
}

func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var env apiError
	if json.Unmarshal(data, &env) == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return ""
}

func classifyTransportError(err error) error {
	if stderrors.Is(err, context.Canceled) {
		return errors.Wrap(errors.ErrorTypeNetwork, "request cancelled", err)
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(errors.ErrorTypeTimeout, "provider did not answer in time", err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.Wrap(errors.ErrorTypeTimeout, "provider did not answer in time", err)
	}
	return errors.Wrap(errors.ErrorTypeNetwork, fmt.Sprintf("network error: %s", redactError(err)), err)
}

// redactURL drops the query string, which carries the API token
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	clean := *u
	clean.RawQuery = ""
	clean.User = nil
	return clean.String()
}

// redactError strips the token from errors that embed the request URL
func redactError(err error) string {
	var urlErr *url.Error
	if stderrors.As(err, &urlErr) {
		if u, perr := url.Parse(urlErr.URL); perr == nil {
			return fmt.Sprintf("%s %q: %v", urlErr.Op, redactURL(u), urlErr.Err)
		}
	}
	return err.Error()
}
