package picker

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igpicker/internal/testutil"
	"igpicker/pkg/apify"
	"igpicker/pkg/config"
	"igpicker/pkg/errors"
	"igpicker/pkg/logger"
	"igpicker/pkg/selection"
)

const testToken = "apify_api_test_secret"

type fakeFetcher struct {
	mu      sync.Mutex
	items   map[string][]apify.Item
	errs    map[string]error
	calls   []string
	limits  []int
	onFetch func(username string)
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{items: map[string][]apify.Item{}, errs: map[string]error{}}
}

func (f *fakeFetcher) FetchPosts(ctx context.Context, token, username string, limit int) ([]apify.Item, error) {
	f.mu.Lock()
	f.calls = append(f.calls, username)
	f.limits = append(f.limits, limit)
	hook := f.onFetch
	f.mu.Unlock()
	if hook != nil {
		hook(username)
	}
	if err := f.errs[username]; err != nil {
		return nil, err
	}
	return f.items[username], nil
}

func images(username string, n int) []apify.Item {
	items := make([]apify.Item, n)
	for i := range items {
		items[i] = apify.Item{DisplayURL: testutil.ImageURL(username, i+1), Text: "caption"}
	}
	return items
}

func newTestPicker(f PostFetcher, opts ...Option) *Picker {
	return New(f, append([]Option{WithLogger(logger.NewNopLogger())}, opts...)...)
}

func TestRunRejectsMissingInput(t *testing.T) {
	f := newFakeFetcher()
	p := newTestPicker(f)

	session, err := p.Run(context.Background(), "", "natgeo")
	assert.Nil(t, session)
	assert.ErrorIs(t, err, ErrMissingToken)

	session, err = p.Run(context.Background(), "  ", "natgeo")
	assert.Nil(t, session)
	assert.ErrorIs(t, err, ErrMissingToken)

	session, err = p.Run(context.Background(), testToken, "\n  \n@\n")
	assert.Nil(t, session)
	assert.ErrorIs(t, err, ErrNoUsernames)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	assert.Empty(t, f.calls)
	assert.Equal(t, StateIdle, p.State())
}

func TestRunAlphaBeta(t *testing.T) {
	f := newFakeFetcher()
	f.items["alpha"] = images("alpha", 3)
	p := newTestPicker(f)

	session, err := p.Run(context.Background(), testToken, "alpha\n@beta\n\n")
	require.NoError(t, err)
	require.Equal(t, 2, session.Len())
	assert.Equal(t, []string{"alpha", "beta"}, f.calls)

	results := session.Results()
	assert.Equal(t, selection.StatusSuccess, results[0].Status)
	assert.Len(t, results[0].Posts, 3)
	assert.Equal(t, selection.StatusEmpty, results[1].Status)
	assert.Equal(t, NoPostsMessage, results[1].Message)

	require.NoError(t, session.SetSelected(selection.Key{Result: 0, Post: 0}, true))
	require.NoError(t, session.SetSelected(selection.Key{Result: 0, Post: 2}, true))

	rows := session.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"alpha", testutil.ImageURL("alpha", 1), testutil.ImageURL("alpha", 3), "", "", ""}, rows[0].Record())
}

func TestRunKeepsDuplicatesInOrder(t *testing.T) {
	f := newFakeFetcher()
	f.items["natgeo"] = images("natgeo", 1)
	p := newTestPicker(f)

	session, err := p.Run(context.Background(), testToken, "natgeo\ninstagram\nnatgeo")
	require.NoError(t, err)
	assert.Equal(t, []string{"natgeo", "instagram", "natgeo"}, f.calls)
	assert.Equal(t, 3, session.Len())
}

func TestRunTruncatesToLimitAndCountsImagelessRanks(t *testing.T) {
	f := newFakeFetcher()
	items := images("natgeo", 8)
	items[1].DisplayURL = ""
	f.items["natgeo"] = items
	p := newTestPicker(f, WithLimit(5))

	session, err := p.Run(context.Background(), testToken, "natgeo")
	require.NoError(t, err)
	assert.Equal(t, []int{5}, f.limits)

	result, err := session.Result(0)
	require.NoError(t, err)
	require.Len(t, result.Posts, 4)
	ranks := make([]int, len(result.Posts))
	for i, post := range result.Posts {
		ranks[i] = post.Rank
	}
	assert.Equal(t, []int{1, 3, 4, 5}, ranks)
}

func TestRunProviderErrorItemsAreEmpty(t *testing.T) {
	f := newFakeFetcher()
	f.items["ghost"] = []apify.Item{{Error: "not_found", ErrorDescription: "Page not found"}}
	p := newTestPicker(f)

	session, err := p.Run(context.Background(), testToken, "ghost")
	require.NoError(t, err)

	result, _ := session.Result(0)
	assert.Equal(t, selection.StatusEmpty, result.Status)
	assert.Contains(t, result.Message, "Page not found")
	assert.False(t, session.HasRows())
}

func TestRunErrorsDoNotAbort(t *testing.T) {
	f := newFakeFetcher()
	f.errs["broken"] = errors.New(errors.ErrorTypeServerError, "provider server error")
	f.errs["garbled"] = errors.New(errors.ErrorTypeParsing, "malformed provider response")
	f.items["natgeo"] = images("natgeo", 2)
	p := newTestPicker(f)

	session, err := p.Run(context.Background(), testToken, "broken\ngarbled\nnatgeo")
	require.NoError(t, err)

	results := session.Results()
	require.Len(t, results, 3)
	assert.Equal(t, selection.StatusFailed, results[0].Status)
	assert.Contains(t, results[0].Message, "provider server error")
	assert.Equal(t, selection.StatusEmpty, results[1].Status)
	assert.Equal(t, MalformedMessage, results[1].Message)
	assert.Equal(t, selection.StatusSuccess, results[2].Status)

	rows := session.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "natgeo", rows[0].Username)
}

func TestRunInvalidUsernameSkipsRequest(t *testing.T) {
	f := newFakeFetcher()
	p := newTestPicker(f)

	session, err := p.Run(context.Background(), testToken, "not a user!\nnatgeo")
	require.NoError(t, err)
	assert.Equal(t, []string{"natgeo"}, f.calls)

	result, _ := session.Result(0)
	assert.Equal(t, selection.StatusFailed, result.Status)
	assert.Equal(t, InvalidUsernameMessage, result.Message)
}

func TestRunObserverSeesStatesAndProgress(t *testing.T) {
	f := newFakeFetcher()
	f.items["a"] = images("a", 1)

	var states []State
	var started, finished []string
	obs := ObserverFuncs{
		OnState:    func(s State) { states = append(states, s) },
		OnStarted:  func(i, total int, u string) { started = append(started, u) },
		OnFinished: func(i, total int, r selection.Result) { finished = append(finished, string(r.Status)) },
	}
	p := newTestPicker(f, WithObserver(obs))

	_, err := p.Run(context.Background(), testToken, "a\nb")
	require.NoError(t, err)
	assert.Equal(t, []State{StateValidating, StateFetching, StateExporting, StateIdle}, states)
	assert.Equal(t, []string{"a", "b"}, started)
	assert.Equal(t, []string{"success", "empty"}, finished)

	states = nil
	_, err = p.Run(context.Background(), "", "a")
	require.Error(t, err)
	assert.Equal(t, []State{StateValidating, StateRejected, StateIdle}, states)
}

func TestRunNoExportingStateWithoutRows(t *testing.T) {
	f := newFakeFetcher()
	f.errs["a"] = errors.New(errors.ErrorTypeAuth, "bad token")

	var states []State
	p := newTestPicker(f, WithObserver(ObserverFuncs{OnState: func(s State) { states = append(states, s) }}))

	_, err := p.Run(context.Background(), testToken, "a")
	require.NoError(t, err)
	assert.NotContains(t, states, StateExporting)
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFakeFetcher()
	f.onFetch = func(username string) {
		if username == "b" {
			cancel()
		}
	}
	f.errs["b"] = context.Canceled
	p := newTestPicker(f)

	session, err := p.Run(ctx, testToken, "a\nb\nc")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.Canceled))
	require.NotNil(t, session)
	assert.Equal(t, 1, session.Len())
	assert.Equal(t, []string{"a", "b"}, f.calls)
	assert.Equal(t, StateIdle, p.State())
}

func TestRunAgainstMockProvider(t *testing.T) {
	server := testutil.NewMockApifyServer(testToken)
	defer server.Close()
	server.SetPosts("natgeo", testutil.Posts("natgeo", 7)...)
	server.SetResponse("broken", http.StatusBadGateway, "")

	cfg := config.DefaultConfig()
	cfg.Provider.BaseURL = server.URL()
	cfg.Provider.Timeout = 5 * time.Second
	cfg.RateLimit.RequestsPerMinute = 0

	p := NewFromConfig(cfg, logger.NewNopLogger())
	session, err := p.Run(context.Background(), testToken, "natgeo\nbroken\nnobody")
	require.NoError(t, err)

	summary := session.Summary()
	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, 1, summary.Empty)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 5, summary.Posts)

	for _, req := range server.Requests() {
		assert.Equal(t, 5, req.ResultsLimit)
	}
	assert.Equal(t, 3, server.RequestCount())
}

func TestRunWrongTokenMarksEveryUsernameFailed(t *testing.T) {
	server := testutil.NewMockApifyServer(testToken)
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.Provider.BaseURL = server.URL()
	cfg.RateLimit.RequestsPerMinute = 0

	session, err := NewFromConfig(cfg, logger.NewNopLogger()).Run(context.Background(), "wrong", "a\nb")
	require.NoError(t, err)
	assert.Equal(t, 2, session.Summary().Failed)
	assert.False(t, session.HasRows())
}
