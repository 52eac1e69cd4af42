// Package testutil provides a fake Apify API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// RunSyncPath is the path the fake actor answers on
const RunSyncPath = "/v2/acts/apify~instagram-scraper/run-sync-get-dataset-items"

// MockPost is one dataset item served by the fake actor
type MockPost struct {
	DisplayURL string `json:"displayUrl,omitempty"`
	URL        string `json:"url,omitempty"`
	Text       string `json:"text,omitempty"`
	ShortCode  string `json:"shortCode,omitempty"`
	Type       string `json:"type,omitempty"`
}

// RecordedRequest is what the fake actor saw for one call
type RecordedRequest struct {
	Username     string
	ResultsLimit int
	Token        string
}

type cannedResponse struct {
	status int
	body   string
}

// MockApifyServer simulates the run-sync endpoint of the Instagram scraper actor
type MockApifyServer struct {
	server       *httptest.Server
	token        string
	requestCount int32

	mu       sync.RWMutex
	posts    map[string][]MockPost
	canned   map[string]cannedResponse
	delays   map[string]time.Duration
	requests []RecordedRequest
}

// NewMockApifyServer starts a fake actor accepting only token
func NewMockApifyServer(token string) *MockApifyServer {
	m := &MockApifyServer{
		token:  token,
		posts:  make(map[string][]MockPost),
		canned: make(map[string]cannedResponse),
		delays: make(map[string]time.Duration),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(RunSyncPath, m.handleRunSync)
	m.server = httptest.NewServer(mux)
	return m
}

// URL returns the base URL to configure the client with
func (m *MockApifyServer) URL() string {
	return m.server.URL
}

// Close shuts the server down
func (m *MockApifyServer) Close() {
	m.server.Close()
}

// SetPosts sets the items returned for username
func (m *MockApifyServer) SetPosts(username string, posts ...MockPost) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[username] = posts
}

// SetResponse makes the server answer username with a fixed status and body
func (m *MockApifyServer) SetResponse(username string, status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.canned[username] = cannedResponse{status: status, body: body}
}

// SetDelay delays the answer for username
func (m *MockApifyServer) SetDelay(username string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[username] = d
}

// RequestCount returns the number of requests received
func (m *MockApifyServer) RequestCount() int {
	return int(atomic.LoadInt32(&m.requestCount))
}

// Requests returns the recorded requests in arrival order
func (m *MockApifyServer) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Posts builds n image posts for username with predictable URLs
func Posts(username string, n int) []MockPost {
	posts := make([]MockPost, 0, n)
	for i := 1; i <= n; i++ {
		code := fmt.Sprintf("%s%d", username, i)
		posts = append(posts, MockPost{
			DisplayURL: ImageURL(username, i),
			URL:        "https://www.instagram.com/p/" + code + "/",
			Text:       fmt.Sprintf("post %d by %s", i, username),
			ShortCode:  code,
			Type:       "Image",
		})
	}
	return posts
}

// ImageURL is the display URL Posts gives post i of username
func ImageURL(username string, i int) string {
	return fmt.Sprintf("https://cdn.example.com/%s/%d.jpg", username, i)
}

func (m *MockApifyServer) handleRunSync(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requestCount, 1)

	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method-not-allowed", "Use POST")
		return
	}

	token := r.URL.Query().Get("token")
	if token != m.token {
		writeAPIError(w, http.StatusUnauthorized, "token-not-valid", "Authentication token is not valid.")
		return
	}

	var input struct {
		DirectURLs   []string `json:"directUrls"`
		ResultsLimit int      `json:"resultsLimit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || len(input.DirectURLs) == 0 {
		writeAPIError(w, http.StatusBadRequest, "invalid-input", "Input is not valid JSON")
		return
	}

	username := usernameFromProfileURL(input.DirectURLs[0])

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Username:     username,
		ResultsLimit: input.ResultsLimit,
		Token:        token,
	})
	delay := m.delays[username]
	canned, hasCanned := m.canned[username]
	posts := m.posts[username]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if hasCanned {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(canned.status)
		w.Write([]byte(canned.body))
		return
	}

	if input.ResultsLimit > 0 && len(posts) > input.ResultsLimit {
		posts = posts[:input.ResultsLimit]
	}
	if posts == nil {
		posts = []MockPost{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(posts)
}

func usernameFromProfileURL(profileURL string) string {
	trimmed := strings.TrimSuffix(profileURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

func writeAPIError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"type":    errType,
			"message": message,
		},
	})
}
