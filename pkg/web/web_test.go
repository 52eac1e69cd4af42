package web

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igpicker/internal/testutil"
	"igpicker/pkg/config"
	"igpicker/pkg/logger"
	"igpicker/pkg/picker"
	"igpicker/pkg/selection"
)

const testToken = "apify_api_web_secret"

type testEnv struct {
	provider *testutil.MockApifyServer
	server   *Server
	http     *httptest.Server
	client   *http.Client
}

func newTestEnv(t *testing.T, mutate func(*config.Config), opts ...Option) *testEnv {
	t.Helper()

	provider := testutil.NewMockApifyServer(testToken)
	t.Cleanup(provider.Close)

	cfg := config.DefaultConfig()
	cfg.Provider.BaseURL = provider.URL()
	cfg.Provider.Timeout = 5 * time.Second
	cfg.RateLimit.RequestsPerMinute = 0
	cfg.Server.Mode = "test"
	cfg.Server.RequestsPerSecond = 1000
	cfg.Server.Burst = 1000
	if mutate != nil {
		mutate(cfg)
	}

	log := logger.NewNopLogger()
	p := picker.NewFromConfig(cfg, log)
	srv := NewServer(cfg, p, append([]Option{WithLogger(log)}, opts...)...)
	t.Cleanup(srv.Close)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{
		provider: provider,
		server:   srv,
		http:     ts,
		client:   newClient(t),
	}
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := e.client.PostForm(e.http.URL+path, form)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := e.client.Get(e.http.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) doJSON(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(method, e.http.URL+path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func document(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

func TestIndexDefaults(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc := document(t, resp)
	assert.Equal(t, DefaultUsernames, doc.Find("textarea#usernames").Text())
	assert.Equal(t, "password", doc.Find("input#token").AttrOr("type", ""))
	assert.Zero(t, doc.Find("section.result").Length())
	assert.Zero(t, doc.Find("#export").Length())

	u, _ := url.Parse(env.http.URL)
	require.Len(t, env.client.Jar.Cookies(u), 1)
	assert.Equal(t, SessionCookie, env.client.Jar.Cookies(u)[0].Name)
}

func TestFetchSelectExportFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	env.provider.SetPosts("alpha", testutil.Posts("alpha", 7)...)

	resp := env.postForm(t, "/fetch", url.Values{
		"token":     {testToken},
		"usernames": {"alpha\n\nbeta"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc := document(t, resp)
	sections := doc.Find("section.result")
	require.Equal(t, 2, sections.Length())

	alpha := sections.Eq(0)
	assert.Equal(t, "alpha", alpha.AttrOr("data-username", ""))
	assert.Equal(t, 5, alpha.Find(`input[type=checkbox][name=selected]`).Length())
	assert.Equal(t, testutil.ImageURL("alpha", 1), alpha.Find("img").First().AttrOr("src", ""))
	assert.Equal(t, "Open in Instagram", alpha.Find("a").First().Text())

	beta := sections.Eq(1)
	assert.Equal(t, "empty", beta.AttrOr("data-status", ""))
	assert.Contains(t, beta.Find(".alert-warning").Text(), picker.NoPostsMessage)
	assert.Zero(t, doc.Find("#export").Length())

	resp = env.postForm(t, "/select", url.Values{"selected": {"0:1", "0:3"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc = document(t, resp)
	assert.Contains(t, doc.Find("#export .alert-success").Text(), "2 photos")
	var header []string
	doc.Find("#preview th").Each(func(_ int, s *goquery.Selection) {
		header = append(header, s.Text())
	})
	assert.Equal(t, []string{"username", "photo_1", "photo_2", "photo_3", "photo_4", "photo_5"}, header)
	rows := doc.Find("#preview tbody tr")
	require.Equal(t, 1, rows.Length())
	assert.Equal(t, "alpha", rows.First().Find("td").First().Text())
	assert.True(t, doc.Find(`input[value="0:1"]`).Is("[checked]"))

	resp = env.get(t, "/export.csv")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "instagram_photos.csv")

	records, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"username", "photo_1", "photo_2", "photo_3", "photo_4", "photo_5"},
		{"alpha", testutil.ImageURL("alpha", 2), testutil.ImageURL("alpha", 4), "", "", ""},
	}, records)
}

func TestNewFetchReplacesSession(t *testing.T) {
	env := newTestEnv(t, nil)
	env.provider.SetPosts("alpha", testutil.Posts("alpha", 3)...)
	env.provider.SetPosts("gamma", testutil.Posts("gamma", 2)...)

	env.postForm(t, "/fetch", url.Values{"token": {testToken}, "usernames": {"alpha"}})
	env.postForm(t, "/select", url.Values{"selected": {"0:0"}})
	resp := env.postForm(t, "/fetch", url.Values{"token": {testToken}, "usernames": {"gamma"}})

	doc := document(t, resp)
	require.Equal(t, 1, doc.Find("section.result").Length())
	assert.Equal(t, "gamma", doc.Find("section.result").AttrOr("data-username", ""))
	assert.Zero(t, doc.Find("input[checked]").Length())
	assert.Zero(t, doc.Find("#export").Length())
	assert.Equal(t, "gamma", doc.Find("textarea#usernames").Text())
}

func TestFetchValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name    string
		form    url.Values
		wantMsg string
	}{
		{"missing token", url.Values{"usernames": {"alpha"}}, "API token is required"},
		{"no usernames", url.Values{"token": {testToken}, "usernames": {" \n\n"}}, "at least one username"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.postForm(t, "/fetch", tt.form)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			doc := document(t, resp)
			assert.Contains(t, doc.Find("#error").Text(), tt.wantMsg)
		})
	}
	assert.Zero(t, env.provider.RequestCount())
}

func TestFetchUsesTokenSource(t *testing.T) {
	env := newTestEnv(t, nil, WithTokenSource(func() string { return testToken }))
	env.provider.SetPosts("alpha", testutil.Posts("alpha", 1)...)

	doc := document(t, env.get(t, "/"))
	assert.Contains(t, doc.Find("input#token").AttrOr("placeholder", ""), "configured token")

	resp := env.postForm(t, "/fetch", url.Values{"usernames": {"alpha"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, env.provider.Requests(), 1)
	assert.Equal(t, testToken, env.provider.Requests()[0].Token)
}

func TestSelectInvalidKey(t *testing.T) {
	env := newTestEnv(t, nil)
	env.provider.SetPosts("alpha", testutil.Posts("alpha", 2)...)

	resp := env.postForm(t, "/select", url.Values{"selected": {"0:0"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	env.postForm(t, "/fetch", url.Values{"token": {testToken}, "usernames": {"alpha"}})
	for _, key := range []string{"0:9", "3:0", "nonsense"} {
		resp = env.postForm(t, "/select", url.Values{"selected": {key}})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, key)
	}
}

func TestExportNotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.Equal(t, http.StatusNotFound, env.get(t, "/export.csv").StatusCode)

	// every username empty or failed: nothing to export
	env.postForm(t, "/fetch", url.Values{"token": {testToken}, "usernames": {"nobody\nbad!name"}})
	assert.Equal(t, http.StatusNotFound, env.get(t, "/export.xlsx").StatusCode)
}

func TestExportXLSX(t *testing.T) {
	env := newTestEnv(t, nil)
	env.provider.SetPosts("alpha", testutil.Posts("alpha", 2)...)

	env.postForm(t, "/fetch", url.Values{"token": {testToken}, "usernames": {"alpha"}})
	resp := env.get(t, "/export.xlsx")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "instagram_photos.xlsx")
}

func TestAPIFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	env.provider.SetPosts("alpha", testutil.Posts("alpha", 3)...)
	env.provider.SetPosts("beta", testutil.Posts("beta", 2)...)

	resp := env.doJSON(t, http.MethodPost, "/api/v1/fetch", FetchRequest{
		Token:     testToken,
		Usernames: []string{"alpha", "beta"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fetched))
	assert.Equal(t, 5, fetched.Limit)
	require.Len(t, fetched.Results, 2)
	assert.Len(t, fetched.Results[0].Posts, 3)
	assert.Equal(t, 2, fetched.Summary.Success)
	require.Len(t, fetched.Rows, 2)
	assert.Equal(t, []string{"", "", "", "", ""}, fetched.Rows[0].Photos)

	resp = env.doJSON(t, http.MethodPut, "/api/v1/selection", SelectionRequest{Selected: []string{"1:1", "0:2"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var selected SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&selected))
	assert.Equal(t, fetched.ID, selected.ID)
	assert.Equal(t, testutil.ImageURL("alpha", 3), selected.Rows[0].Photos[0])
	assert.Equal(t, testutil.ImageURL("beta", 2), selected.Rows[1].Photos[0])

	resp = env.get(t, "/api/v1/session")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var current SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&current))
	assert.Equal(t, 2, current.Summary.Selected)

	resp = env.doJSON(t, http.MethodPut, "/api/v1/selection", SelectionRequest{Selected: []string{"0:7"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var apiErr ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	assert.Equal(t, "validation", apiErr.Type)
}

func TestAPIFetchText(t *testing.T) {
	env := newTestEnv(t, nil)
	env.provider.SetPosts("alpha", testutil.Posts("alpha", 1)...)

	resp := env.doJSON(t, http.MethodPost, "/api/v1/fetch", FetchRequest{Token: testToken, Text: "@alpha\n\n"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got.Results, 1)
	assert.Equal(t, "alpha", got.Results[0].Username)
}

func TestAPIErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.get(t, "/api/v1/session")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.doJSON(t, http.MethodPut, "/api/v1/selection", SelectionRequest{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.doJSON(t, http.MethodPost, "/api/v1/fetch", FetchRequest{Usernames: []string{"alpha"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var apiErr ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	assert.Equal(t, "validation", apiErr.Type)
	assert.Contains(t, apiErr.Error, "API token is required")

	req, err := http.NewRequest(http.MethodPost, env.http.URL+"/api/v1/fetch", strings.NewReader("{"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err = env.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionsAreIsolated(t *testing.T) {
	env := newTestEnv(t, nil)
	env.provider.SetPosts("alpha", testutil.Posts("alpha", 1)...)

	env.postForm(t, "/fetch", url.Values{"token": {testToken}, "usernames": {"alpha"}})
	require.Equal(t, http.StatusOK, env.get(t, "/api/v1/session").StatusCode)

	other := newClient(t)
	resp, err := other.Get(env.http.URL + "/api/v1/session")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.get(t, "/api/v1/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, logger.Version, health.Version)
}

func TestRateLimitOnMutatingRoutes(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Server.RequestsPerSecond = 0.001
		cfg.Server.Burst = 1
	})

	first := env.doJSON(t, http.MethodPost, "/api/v1/fetch", FetchRequest{})
	assert.Equal(t, http.StatusBadRequest, first.StatusCode)

	second := env.doJSON(t, http.MethodPost, "/api/v1/fetch", FetchRequest{})
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)

	// reads are not limited
	assert.Equal(t, http.StatusOK, env.get(t, "/api/v1/health").StatusCode)
	assert.Equal(t, http.StatusOK, env.get(t, "/").StatusCode)
}

func TestRequestLogger(t *testing.T) {
	log := logger.NewTestLogger()
	env := newTestEnv(t, nil, WithLogger(log))

	env.get(t, "/api/v1/health")
	env.get(t, "/export.csv")

	var paths []string
	for _, msg := range log.GetMessages() {
		if p, ok := msg.Fields["path"].(string); ok {
			paths = append(paths, p)
		}
	}
	assert.Contains(t, paths, "/api/v1/health")
	assert.Contains(t, paths, "/export.csv")
}

func TestSessionStoreExpiry(t *testing.T) {
	store := NewSessionStore(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	id, st := store.Get("")
	assert.NotEmpty(t, id)
	assert.Equal(t, DefaultUsernames, st.Usernames)
	assert.Nil(t, st.Session)

	store.Replace(id, "alpha", selection.NewSession(5))
	got, ok := store.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, "alpha", got.Usernames)

	now = now.Add(30 * time.Second)
	same, _ := store.Get(id)
	assert.Equal(t, id, same)

	now = now.Add(2 * time.Minute)
	_, ok = store.Lookup(id)
	assert.False(t, ok)
	assert.Equal(t, 1, store.Evict())
	assert.Zero(t, store.Len())

	fresh, st := store.Get(id)
	assert.NotEqual(t, id, fresh)
	assert.Nil(t, st.Session)
}
