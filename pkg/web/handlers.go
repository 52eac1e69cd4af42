package web

import (
	"bytes"
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"igpicker/pkg/errors"
	"igpicker/pkg/export"
	"igpicker/pkg/logger"
	"igpicker/pkg/selection"
)

// DefaultUsernames prefills the username box of a fresh browser session
const DefaultUsernames = "instagram\nnatgeo"

// Runner runs one fetch cycle. *picker.Picker satisfies it.
type Runner interface {
	Run(ctx context.Context, token, usernames string) (*selection.Session, error)
	RunUsernames(ctx context.Context, token string, usernames []string) (*selection.Session, error)
	Limit() int
}

// TokenSource supplies the provider token when a request carries none
type TokenSource func() string

// ErrorResponse is the JSON body of every API error
type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

// FetchRequest is the body of POST /api/v1/fetch. Usernames wins over Text
// when both are set.
type FetchRequest struct {
	Token     string   `json:"token"`
	Usernames []string `json:"usernames"`
	Text      string   `json:"text"`
}

// SelectionRequest is the body of PUT /api/v1/selection; Selected holds
// "result:post" keys and replaces the whole selection.
type SelectionRequest struct {
	Selected []string `json:"selected"`
}

// SessionResponse describes a browser session's current fetch
type SessionResponse struct {
	ID        string                `json:"id"`
	Limit     int                   `json:"limit"`
	CreatedAt time.Time             `json:"created_at"`
	Results   []selection.Result    `json:"results"`
	Summary   selection.Summary     `json:"summary"`
	Header    []string              `json:"header"`
	Rows      []selection.ExportRow `json:"rows"`
}

// HealthResponse is the body of GET /api/v1/health
type HealthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Version  string `json:"version"`
	Sessions int    `json:"sessions"`
}

type handlers struct {
	runner   Runner
	sessions *SessionStore
	token    TokenSource
	fileName string
	ttl      time.Duration
	started  time.Time
	log      logger.Logger
}

func newSessionResponse(s *selection.Session) SessionResponse {
	return SessionResponse{
		ID:        s.ID,
		Limit:     s.Limit,
		CreatedAt: s.CreatedAt,
		Results:   s.Results(),
		Summary:   s.Summary(),
		Header:    selection.Header(s.Limit),
		Rows:      s.Rows(),
	}
}

// browser resolves the cookie to a store entry, refreshing the cookie
func (h *handlers) browser(c *gin.Context) (string, BrowserState) {
	cookie, _ := c.Cookie(SessionCookie)
	id, st := h.sessions.Get(cookie)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, id, int(h.ttl.Seconds()), "/", "", false, true)
	return id, st
}

func (h *handlers) resolveToken(submitted string) string {
	if t := strings.TrimSpace(submitted); t != "" {
		return t
	}
	if h.token != nil {
		return h.token()
	}
	return ""
}

func statusFor(err error) int {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	}
	if stderrors.Is(err, context.Canceled) {
		return 499
	}
	return http.StatusInternalServerError
}

// userMessage drops the type prefix from typed errors
func userMessage(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func abortJSON(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: err.Error(),
		Type:  string(errors.TypeOf(err)),
	})
}

// index renders the page for the browser's current state
func (h *handlers) index(c *gin.Context) {
	_, st := h.browser(c)
	c.HTML(http.StatusOK, "index.html", h.page(st, ""))
}

// fetch runs the picker for the submitted form and replaces the session
func (h *handlers) fetch(c *gin.Context) {
	id, st := h.browser(c)
	usernames := c.PostForm("usernames")
	st.Usernames = usernames

	session, err := h.runner.Run(c.Request.Context(), h.resolveToken(c.PostForm("token")), usernames)
	if err != nil {
		_ = c.Error(err)
		if errors.IsType(err, errors.ErrorTypeValidation) {
			c.HTML(http.StatusBadRequest, "index.html", h.page(st, userMessage(err)))
			return
		}
		// client went away mid-run; nothing to render
		if session != nil {
			h.sessions.Replace(id, usernames, session)
		}
		c.Status(statusFor(err))
		return
	}

	h.sessions.Replace(id, usernames, session)
	c.Redirect(http.StatusSeeOther, "/")
}

// selectPosts replaces the selection with the submitted checkboxes
func (h *handlers) selectPosts(c *gin.Context) {
	id, st := h.browser(c)
	if st.Session == nil {
		c.HTML(http.StatusNotFound, "index.html", h.page(st, "Nothing to select yet. Fetch posts first."))
		return
	}

	keys, err := parseKeys(c.PostFormArray("selected"))
	if err == nil {
		err = st.Session.ReplaceSelection(keys)
	}
	if err != nil {
		_ = c.Error(err)
		c.HTML(http.StatusBadRequest, "index.html", h.page(st, userMessage(err)))
		return
	}

	h.sessions.MarkSaved(id)
	h.log.WithFields(map[string]interface{}{
		"session":  st.Session.ID,
		"selected": len(keys),
	}).Info("Selection saved")
	c.Redirect(http.StatusSeeOther, "/#export")
}

func parseKeys(raw []string) ([]selection.Key, error) {
	keys := make([]selection.Key, 0, len(raw))
	for _, r := range raw {
		k, err := selection.ParseKey(r)
		if err != nil {
			return nil, errors.Wrap(errors.ErrorTypeValidation, err.Error(), err)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// download serves the session's export in format f
func (h *handlers) download(f export.Format) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, st := h.browser(c)
		if st.Session == nil || !st.Session.HasRows() {
			c.String(http.StatusNotFound, "nothing to export")
			return
		}

		var buf bytes.Buffer
		if err := export.WriteSession(&buf, f, st.Session); err != nil {
			_ = c.Error(err)
			c.String(statusFor(err), err.Error())
			return
		}

		c.Header("Content-Disposition", `attachment; filename="`+export.FileName(h.fileName, f)+`"`)
		c.Data(http.StatusOK, f.ContentType(), buf.Bytes())
	}
}

// apiFetch handles POST /api/v1/fetch
func (h *handlers) apiFetch(c *gin.Context) {
	id, _ := h.browser(c)

	var req FetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, errors.Wrap(errors.ErrorTypeValidation, "invalid request body", err))
		return
	}

	token := h.resolveToken(req.Token)
	var session *selection.Session
	var err error
	text := req.Text
	if len(req.Usernames) > 0 {
		text = strings.Join(req.Usernames, "\n")
		session, err = h.runner.RunUsernames(c.Request.Context(), token, req.Usernames)
	} else {
		session, err = h.runner.Run(c.Request.Context(), token, req.Text)
	}
	if session != nil {
		h.sessions.Replace(id, text, session)
	}
	if err != nil {
		abortJSON(c, statusFor(err), err)
		return
	}

	c.JSON(http.StatusOK, newSessionResponse(session))
}

// apiSelect handles PUT /api/v1/selection
func (h *handlers) apiSelect(c *gin.Context) {
	id, st := h.browser(c)
	if st.Session == nil {
		abortJSON(c, http.StatusNotFound, errors.New(errors.ErrorTypeNotFound, "no fetch in this session"))
		return
	}

	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, errors.Wrap(errors.ErrorTypeValidation, "invalid request body", err))
		return
	}
	keys, err := parseKeys(req.Selected)
	if err == nil {
		err = st.Session.ReplaceSelection(keys)
	}
	if err != nil {
		if errors.TypeOf(err) == errors.ErrorTypeUnknown {
			err = errors.Wrap(errors.ErrorTypeValidation, err.Error(), err)
		}
		abortJSON(c, http.StatusBadRequest, err)
		return
	}

	h.sessions.MarkSaved(id)
	c.JSON(http.StatusOK, newSessionResponse(st.Session))
}

// apiSession handles GET /api/v1/session
func (h *handlers) apiSession(c *gin.Context) {
	_, st := h.browser(c)
	if st.Session == nil {
		abortJSON(c, http.StatusNotFound, errors.New(errors.ErrorTypeNotFound, "no fetch in this session"))
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(st.Session))
}

// health handles GET /api/v1/health
func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "healthy",
		Uptime:   time.Since(h.started).Round(time.Second).String(),
		Version:  logger.Version,
		Sessions: h.sessions.Len(),
	})
}
