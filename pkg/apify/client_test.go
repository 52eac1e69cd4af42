package apify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igpicker/internal/testutil"
	"igpicker/pkg/config"
	"igpicker/pkg/errors"
	"igpicker/pkg/logger"
	"igpicker/pkg/retry"
)

const testToken = "apify_api_test_secret"

func newMockClient(t *testing.T, log logger.Logger, opts ...Option) (*Client, *testutil.MockApifyServer) {
	t.Helper()
	server := testutil.NewMockApifyServer(testToken)
	t.Cleanup(server.Close)

	if log == nil {
		log = logger.NewNopLogger()
	}
	opts = append([]Option{WithBaseURL(server.URL())}, opts...)
	return NewClient(5*time.Second, log, opts...), server
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(120*time.Second, logger.NewNopLogger())

	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultActor, c.actor)
	assert.Equal(t, 120*time.Second, c.httpClient.Timeout)
	assert.Equal(t, 1, c.retry.MaxAttempts)
}

func TestNewClientFromConfig(t *testing.T) {
	pc := config.DefaultConfig().Provider
	pc.BaseURL = "http://localhost:9999"
	pc.Timeout = 30 * time.Second

	c := NewClientFromConfig(pc, config.RetryConfig{Enabled: true, MaxAttempts: 4, InitialDelay: time.Second, MaxDelay: time.Second, Multiplier: 2}, logger.NewNopLogger())
	assert.Equal(t, "http://localhost:9999", c.baseURL)
	assert.Equal(t, 30*time.Second, c.httpClient.Timeout)
	assert.Equal(t, 4, c.retry.MaxAttempts)
}

func TestFetchPostsRequestShape(t *testing.T) {
	var gotMethod, gotPath, gotToken, gotContentType string
	var gotInput RunInput

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("token")
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotInput)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewClient(5*time.Second, logger.NewNopLogger(), WithBaseURL(server.URL))
	items, err := c.FetchPosts(context.Background(), testToken, "natgeo", 5)
	require.NoError(t, err)
	assert.Empty(t, items)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/v2/acts/apify~instagram-scraper/run-sync-get-dataset-items", gotPath)
	assert.Equal(t, testToken, gotToken)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, []string{"https://www.instagram.com/natgeo/"}, gotInput.DirectURLs)
	assert.Equal(t, 5, gotInput.ResultsLimit)
}

func TestFetchPostsDecodesItems(t *testing.T) {
	c, server := newMockClient(t, nil)
	server.SetPosts("natgeo", testutil.Posts("natgeo", 7)...)

	items, err := c.FetchPosts(context.Background(), testToken, "natgeo", 5)
	require.NoError(t, err)
	require.Len(t, items, 5)

	assert.Equal(t, testutil.ImageURL("natgeo", 1), items[0].DisplayURL)
	assert.Equal(t, "https://www.instagram.com/p/natgeo1/", items[0].Permalink())
	assert.Equal(t, "post 1 by natgeo", items[0].CaptionText())
	assert.Equal(t, 1, server.RequestCount())
}

func TestFetchPostsValidation(t *testing.T) {
	c, server := newMockClient(t, nil)

	_, err := c.FetchPosts(context.Background(), "", "natgeo", 5)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = c.FetchPosts(context.Background(), testToken, "", 5)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	assert.Zero(t, server.RequestCount())
}

func TestFetchPostsErrorStatuses(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType errors.ErrorType
		wantMsg  string
	}{
		{"unauthorized with envelope", 401, `{"error":{"type":"token-not-valid","message":"Authentication token is not valid."}}`, errors.ErrorTypeAuth, "Authentication token is not valid."},
		{"forbidden", 403, ``, errors.ErrorTypeAuth, "provider rejected the API token"},
		{"not found", 404, `{}`, errors.ErrorTypeNotFound, "actor not found"},
		{"run timeout", 408, ``, errors.ErrorTypeTimeout, "actor run timed out"},
		{"rate limited", 429, ``, errors.ErrorTypeRateLimit, "rate limit exceeded"},
		{"server error", 502, `<html>bad gateway</html>`, errors.ErrorTypeServerError, "provider server error"},
		{"payment required", 402, `{"error":{"message":"Monthly usage limit exceeded"}}`, errors.ErrorTypeUnknown, "Monthly usage limit exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, server := newMockClient(t, nil)
			server.SetResponse("natgeo", tt.status, tt.body)

			_, err := c.FetchPosts(context.Background(), testToken, "natgeo", 5)
			require.Error(t, err)

			var apiErr *errors.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantType, apiErr.Type)
			assert.Equal(t, tt.status, apiErr.Code)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

func TestFetchPostsWrongToken(t *testing.T) {
	c, _ := newMockClient(t, nil)

	_, err := c.FetchPosts(context.Background(), "wrong", "natgeo", 5)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuth))
}

func TestFetchPostsMalformedBody(t *testing.T) {
	for name, body := range map[string]string{
		"object instead of list": `{"items":[]}`,
		"truncated":              `[{"displayUrl":`,
		"html":                   `<html>oops</html>`,
	} {
		t.Run(name, func(t *testing.T) {
			c, server := newMockClient(t, nil)
			server.SetResponse("natgeo", http.StatusCreated, body)

			_, err := c.FetchPosts(context.Background(), testToken, "natgeo", 5)
			assert.True(t, errors.IsType(err, errors.ErrorTypeParsing), "got %v", err)
		})
	}
}

func TestFetchPostsTimeout(t *testing.T) {
	server := testutil.NewMockApifyServer(testToken)
	defer server.Close()
	server.SetDelay("slow", time.Second)

	c := NewClient(50*time.Millisecond, logger.NewNopLogger(), WithBaseURL(server.URL()))
	_, err := c.FetchPosts(context.Background(), testToken, "slow", 5)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTimeout), "got %v", err)
}

func TestFetchPostsContextCancelled(t *testing.T) {
	c, server := newMockClient(t, nil)
	server.SetDelay("slow", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.FetchPosts(ctx, testToken, "slow", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchPostsRetriesWhenEnabled(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"displayUrl":"https://cdn.example.com/a.jpg"}]`))
	}))
	defer server.Close()

	cfg := &retry.Config{MaxAttempts: 2, Backoff: &retry.ConstantBackoff{}, RetryIf: retry.DefaultRetryIf}
	c := NewClient(5*time.Second, logger.NewNopLogger(), WithBaseURL(server.URL), WithRetry(cfg))

	items, err := c.FetchPosts(context.Background(), testToken, "natgeo", 5)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 2, calls)
}

func TestFetchPostsNoRetryByDefault(t *testing.T) {
	c, server := newMockClient(t, nil)
	server.SetResponse("natgeo", http.StatusServiceUnavailable, ``)

	_, err := c.FetchPosts(context.Background(), testToken, "natgeo", 5)
	require.Error(t, err)
	assert.Equal(t, 1, server.RequestCount())
}

func TestTokenNeverLogged(t *testing.T) {
	log := logger.NewTestLogger()
	c, server := newMockClient(t, log)
	server.SetResponse("natgeo", http.StatusInternalServerError, ``)

	_, _ = c.FetchPosts(context.Background(), testToken, "natgeo", 5)
	_, _ = c.FetchPosts(context.Background(), testToken, "other", 5)

	// unreachable host: transport errors embed the URL
	dead := NewClient(time.Second, log, WithBaseURL("http://127.0.0.1:1"))
	_, err := dead.FetchPosts(context.Background(), testToken, "natgeo", 5)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), testToken)

	require.NotEmpty(t, log.GetMessages())
	for _, msg := range log.GetMessages() {
		assert.NotContains(t, msg.Message, testToken)
		for k, v := range msg.Fields {
			s, ok := v.(string)
			if ok {
				assert.False(t, strings.Contains(s, testToken), "field %s leaked token", k)
			}
		}
	}
}

func TestRedactURL(t *testing.T) {
	req, err := http.NewRequest(http.MethodPost, RunSyncURL("https://api.apify.com", DefaultActor, testToken), nil)
	require.NoError(t, err)

	assert.Equal(t, "https://api.apify.com/v2/acts/apify~instagram-scraper/run-sync-get-dataset-items", redactURL(req.URL))
	assert.Equal(t, "", redactURL(nil))
}
