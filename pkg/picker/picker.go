package picker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"igpicker/pkg/apify"
	"igpicker/pkg/config"
	"igpicker/pkg/errors"
	"igpicker/pkg/logger"
	"igpicker/pkg/ratelimit"
	"igpicker/pkg/selection"
)

// Messages shown for usernames that produced nothing to select
const (
	NoPostsMessage         = "No posts found. The account might be private or empty."
	MalformedMessage       = "The provider returned an unreadable response. No posts to show."
	InvalidUsernameMessage = "Not a valid Instagram username."
)

var (
	// ErrMissingToken rejects a run without a provider token
	ErrMissingToken = errors.New(errors.ErrorTypeValidation, "an API token is required")
	// ErrNoUsernames rejects a run without any username
	ErrNoUsernames = errors.New(errors.ErrorTypeValidation, "at least one username is required")
)

// Picker runs the fetch cycle: validate input, fetch each username in turn,
// and collect the outcomes into a fresh selection.Session.
type Picker struct {
	fetcher  PostFetcher
	limiter  ratelimit.Limiter
	limit    int
	observer Observer
	logger   logger.Logger

	mu    sync.Mutex
	state State
}

// Option customizes a Picker
type Option func(*Picker)

// WithLimiter paces provider calls
func WithLimiter(l ratelimit.Limiter) Option {
	return func(p *Picker) { p.limiter = l }
}

// WithLimit sets N, the posts requested per username and export columns
func WithLimit(n int) Option {
	return func(p *Picker) {
		if n > 0 {
			p.limit = n
		}
	}
}

// WithObserver receives progress callbacks
func WithObserver(o Observer) Option {
	return func(p *Picker) { p.observer = o }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(p *Picker) { p.logger = l }
}

// New creates a Picker over fetcher
func New(fetcher PostFetcher, opts ...Option) *Picker {
	p := &Picker{
		fetcher:  fetcher,
		limiter:  ratelimit.Unlimited{},
		limit:    5,
		observer: ObserverFuncs{},
		logger:   logger.GetLogger(),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithField("component", "picker")
	return p
}

// NewFromConfig wires a Picker to the Apify client described by cfg
func NewFromConfig(cfg *config.Config, log logger.Logger, opts ...Option) *Picker {
	if log == nil {
		log = logger.GetLogger()
	}
	client := apify.NewClientFromConfig(cfg.Provider, cfg.Retry, log)
	base := []Option{
		WithLimit(cfg.Provider.ResultsLimit),
		WithLimiter(ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute)),
		WithLogger(log),
	}
	return New(client, append(base, opts...)...)
}

// Limit returns the number of posts requested per username
func (p *Picker) Limit() int {
	return p.limit
}

// State returns the current lifecycle state
func (p *Picker) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Picker) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	p.observer.StateChanged(s)
}

// Run parses newline-separated usernames and fetches each of them
func (p *Picker) Run(ctx context.Context, token, usernames string) (*selection.Session, error) {
	return p.RunUsernames(ctx, token, apify.ParseUsernames(usernames))
}

// RunUsernames fetches posts for each username, one at a time, and returns
// the new session. A missing token or empty list is rejected before any
// request. Per-username failures are recorded in the session and never
// abort the run; only cancellation of ctx does, in which case the partial
// session is returned alongside the error.
func (p *Picker) RunUsernames(ctx context.Context, token string, usernames []string) (*selection.Session, error) {
	p.setState(StateValidating)

	token = strings.TrimSpace(token)
	var cleaned []string
	for _, u := range usernames {
		if u = apify.SanitizeUsername(u); u != "" {
			cleaned = append(cleaned, u)
		}
	}

	if err := validate(token, cleaned); err != nil {
		p.logger.WithError(err).Warn("Rejected fetch request")
		p.setState(StateRejected)
		p.setState(StateIdle)
		return nil, err
	}

	session := selection.NewSession(p.limit)
	total := len(cleaned)
	p.logger.InfoWithFields("Starting fetch", map[string]interface{}{
		"session":   session.ID,
		"usernames": total,
		"limit":     p.limit,
	})
	p.setState(StateFetching)

	for i, username := range cleaned {
		if err := ctx.Err(); err != nil {
			return p.abort(session, err)
		}
		p.observer.UsernameStarted(i, total, username)

		idx, err := p.fetchOne(ctx, session, token, username)
		if err != nil {
			return p.abort(session, err)
		}

		result, _ := session.Result(idx)
		logger.LogFetchProgress(p.logger, username, i+1, total)
		p.observer.UsernameFinished(i, total, result)
	}

	if session.HasRows() {
		p.setState(StateExporting)
	}
	summary := session.Summary()
	p.logger.InfoWithFields("Fetch finished", map[string]interface{}{
		"session": session.ID,
		"success": summary.Success,
		"empty":   summary.Empty,
		"failed":  summary.Failed,
		"posts":   summary.Posts,
	})
	p.setState(StateIdle)
	return session, nil
}

func validate(token string, usernames []string) error {
	if token == "" {
		return ErrMissingToken
	}
	if len(usernames) == 0 {
		return ErrNoUsernames
	}
	return nil
}

// fetchOne records the outcome for one username and returns its result
// index. An error is returned only when ctx was cancelled.
func (p *Picker) fetchOne(ctx context.Context, session *selection.Session, token, username string) (int, error) {
	log := p.logger.WithField("username", username)

	if !apify.IsValidUsername(username) {
		log.Warn("Skipping invalid username")
		return session.AddFailed(username, InvalidUsernameMessage), nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	items, err := p.fetcher.FetchPosts(ctx, token, username, p.limit)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if errors.IsType(err, errors.ErrorTypeParsing) {
			log.WithError(err).Warn("Malformed provider response")
			return session.AddEmpty(username, MalformedMessage), nil
		}
		log.WithError(err).Error("Fetch failed")
		return session.AddFailed(username, fmt.Sprintf("Error: %v", err)), nil
	}

	if len(items) > p.limit {
		items = items[:p.limit]
	}

	if len(items) == 0 {
		log.Warn("No posts returned")
		return session.AddEmpty(username, NoPostsMessage), nil
	}
	if allErrors(items) {
		msg := items[0].ErrorText()
		log.WithField("provider_error", msg).Warn("Provider could not scrape profile")
		return session.AddEmpty(username, fmt.Sprintf("%s (%s)", NoPostsMessage, msg)), nil
	}

	posts := make([]selection.Post, 0, len(items))
	for rank, item := range items {
		if item.IsError() {
			continue
		}
		posts = append(posts, selection.Post{
			Rank:      rank + 1,
			ImageURL:  item.DisplayURL,
			Permalink: item.Permalink(),
			Caption:   item.CaptionText(),
			ShortCode: item.ShortCode,
		})
	}

	idx := session.AddSuccess(username, posts)
	log.DebugWithFields("Posts ready for selection", map[string]interface{}{
		"items":      len(items),
		"selectable": len(posts),
	})
	return idx, nil
}

func allErrors(items []apify.Item) bool {
	for _, item := range items {
		if !item.IsError() {
			return false
		}
	}
	return true
}

func (p *Picker) abort(session *selection.Session, err error) (*selection.Session, error) {
	p.logger.WithError(err).Warn("Fetch cancelled")
	p.setState(StateIdle)
	return session, fmt.Errorf("fetch cancelled: %w", err)
}
