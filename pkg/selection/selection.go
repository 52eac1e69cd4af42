package selection

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of fetching one username
type Status string

const (
	StatusSuccess Status = "success"
	StatusEmpty   Status = "empty"
	StatusFailed  Status = "failed"
)

// Post is one selectable image from a provider response
type Post struct {
	// Rank is the 1-based position in the provider response, counting
	// items that had no image.
	Rank      int    `json:"rank"`
	ImageURL  string `json:"image_url"`
	Permalink string `json:"permalink,omitempty"`
	Caption   string `json:"caption,omitempty"`
	ShortCode string `json:"short_code,omitempty"`
}

// Result is the outcome for one submitted username. Selected runs parallel
// to Posts.
type Result struct {
	Username string `json:"username"`
	Status   Status `json:"status"`
	Message  string `json:"message,omitempty"`
	Posts    []Post `json:"posts"`
	Selected []bool `json:"selected"`
}

// Exportable reports whether the result contributes an export row
func (r Result) Exportable() bool {
	return r.Status == StatusSuccess
}

// SelectedURLs returns the selected image URLs in provider order
func (r Result) SelectedURLs() []string {
	var urls []string
	for i, p := range r.Posts {
		if i < len(r.Selected) && r.Selected[i] {
			urls = append(urls, p.ImageURL)
		}
	}
	return urls
}

// Key addresses one post of one result in a session
type Key struct {
	Result int
	Post   int
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d", k.Result, k.Post)
}

// ParseKey parses the "result:post" form produced by Key.String
func ParseKey(s string) (Key, error) {
	r, p, ok := strings.Cut(s, ":")
	if !ok {
		return Key{}, fmt.Errorf("invalid selection key %q", s)
	}
	ri, err := strconv.Atoi(r)
	if err != nil || ri < 0 {
		return Key{}, fmt.Errorf("invalid selection key %q", s)
	}
	pi, err := strconv.Atoi(p)
	if err != nil || pi < 0 {
		return Key{}, fmt.Errorf("invalid selection key %q", s)
	}
	return Key{Result: ri, Post: pi}, nil
}

// Session holds the results of one fetch cycle and the user's selection.
// A new fetch always starts a new Session; nothing carries over.
type Session struct {
	ID        string
	Limit     int
	CreatedAt time.Time

	mu      sync.RWMutex
	results []Result
}

// NewSession creates an empty session exporting limit photo columns
func NewSession(limit int) *Session {
	if limit < 1 {
		limit = 1
	}
	return &Session{
		ID:        uuid.NewString(),
		Limit:     limit,
		CreatedAt: time.Now(),
	}
}

// AddSuccess records posts fetched for username. Posts ranked beyond the
// session limit and posts without an image URL are dropped. Returns the
// result index.
func (s *Session) AddSuccess(username string, posts []Post) int {
	kept := make([]Post, 0, len(posts))
	for _, p := range posts {
		if p.Rank < 1 || p.Rank > s.Limit || p.ImageURL == "" {
			continue
		}
		kept = append(kept, p)
	}
	return s.add(Result{
		Username: username,
		Status:   StatusSuccess,
		Posts:    kept,
		Selected: make([]bool, len(kept)),
	})
}

// AddEmpty records a username whose response had nothing usable
func (s *Session) AddEmpty(username, message string) int {
	return s.add(Result{Username: username, Status: StatusEmpty, Message: message})
}

// AddFailed records a username whose request failed
func (s *Session) AddFailed(username, message string) int {
	return s.add(Result{Username: username, Status: StatusFailed, Message: message})
}

func (s *Session) add(r Result) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return len(s.results) - 1
}

// Len returns the number of results
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// Results returns a copy of all results in submission order
func (s *Session) Results() []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Result, len(s.results))
	for i, r := range s.results {
		out[i] = copyResult(r)
	}
	return out
}

// Result returns a copy of result i
func (s *Session) Result(i int) (Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.results) {
		return Result{}, fmt.Errorf("result %d out of range", i)
	}
	return copyResult(s.results[i]), nil
}

func copyResult(r Result) Result {
	r.Posts = append([]Post(nil), r.Posts...)
	r.Selected = append([]bool(nil), r.Selected...)
	return r
}

// SetSelected marks one post as selected or not
func (s *Session) SetSelected(k Key, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkKey(k); err != nil {
		return err
	}
	s.results[k.Result].Selected[k.Post] = selected
	return nil
}

// Toggle flips one post's selection and returns the new state
func (s *Session) Toggle(k Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkKey(k); err != nil {
		return false, err
	}
	sel := s.results[k.Result].Selected
	sel[k.Post] = !sel[k.Post]
	return sel[k.Post], nil
}

// SelectAll sets every post of result i to selected
func (s *Session) SelectAll(i int, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.results) {
		return fmt.Errorf("result %d out of range", i)
	}
	for p := range s.results[i].Selected {
		s.results[i].Selected[p] = selected
	}
	return nil
}

// ReplaceSelection makes keys the complete selection of the session. It is
// all-or-nothing: on an invalid key nothing changes.
func (s *Session) ReplaceSelection(keys []Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		if err := s.checkKey(k); err != nil {
			return err
		}
	}
	for i := range s.results {
		for p := range s.results[i].Selected {
			s.results[i].Selected[p] = false
		}
	}
	for _, k := range keys {
		s.results[k.Result].Selected[k.Post] = true
	}
	return nil
}

func (s *Session) checkKey(k Key) error {
	if k.Result < 0 || k.Result >= len(s.results) {
		return fmt.Errorf("result %d out of range", k.Result)
	}
	if k.Post < 0 || k.Post >= len(s.results[k.Result].Posts) {
		return fmt.Errorf("post %d out of range for @%s", k.Post, s.results[k.Result].Username)
	}
	return nil
}

// Rows derives the export table: one row per successful username, in
// submission order. Empty and failed usernames contribute no row.
func (s *Session) Rows() []ExportRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []ExportRow
	for _, r := range s.results {
		if !r.Exportable() {
			continue
		}
		rows = append(rows, NewExportRow(r.Username, r.SelectedURLs(), s.Limit))
	}
	return rows
}

// HasRows reports whether there is anything to export
func (s *Session) HasRows() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.Exportable() {
			return true
		}
	}
	return false
}

// Summary counts results by status and selected posts
type Summary struct {
	Usernames int `json:"usernames"`
	Success   int `json:"success"`
	Empty     int `json:"empty"`
	Failed    int `json:"failed"`
	Posts     int `json:"posts"`
	Selected  int `json:"selected"`
}

// Summary returns counts over the whole session
func (s *Session) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{Usernames: len(s.results)}
	for _, r := range s.results {
		switch r.Status {
		case StatusSuccess:
			sum.Success++
		case StatusEmpty:
			sum.Empty++
		case StatusFailed:
			sum.Failed++
		}
		sum.Posts += len(r.Posts)
		for _, sel := range r.Selected {
			if sel {
				sum.Selected++
			}
		}
	}
	return sum
}
