package web

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"igpicker/pkg/config"
	"igpicker/pkg/export"
	"igpicker/pkg/logger"
)

// Server is the browser front end: a gin engine over a Runner plus the
// in-memory browser session store.
type Server struct {
	cfg      *config.Config
	engine   *gin.Engine
	sessions *SessionStore
	log      logger.Logger

	stop     chan struct{}
	stopOnce sync.Once
	http     *http.Server
}

// Option customizes a Server
type Option func(*handlers)

// WithTokenSource sets the fallback used when a request carries no token
func WithTokenSource(ts TokenSource) Option {
	return func(h *handlers) { h.token = ts }
}

// WithLogger sets the logger for request and handler logs
func WithLogger(l logger.Logger) Option {
	return func(h *handlers) { h.log = l }
}

// NewServer builds the router and session store for cfg
func NewServer(cfg *config.Config, runner Runner, opts ...Option) *Server {
	h := &handlers{
		runner:   runner,
		sessions: NewSessionStore(cfg.Server.SessionTTL),
		fileName: cfg.Export.FileName,
		ttl:      cfg.Server.SessionTTL,
		started:  time.Now(),
		log:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.WithField("component", "web")
	if h.ttl <= 0 {
		h.ttl = h.sessions.ttl
	}

	s := &Server{
		cfg:      cfg,
		sessions: h.sessions,
		log:      h.log,
		stop:     make(chan struct{}),
	}
	s.engine = newRouter(cfg, h, s.stop)
	s.http = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go h.sessions.RunCleanup(time.Minute, s.stop)
	return s
}

// newRouter wires middleware and routes.
//
//	Global:   Recovery, RequestLogger
//	Mutating: RateLimit
//
// Reads and health stay outside the rate limit.
func newRouter(cfg *config.Config, h *handlers, stop <-chan struct{}) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(h.log))
	r.SetHTMLTemplate(parseTemplates())

	limited := RateLimit(cfg.Server, stop)

	r.GET("/", h.index)
	r.POST("/fetch", limited, h.fetch)
	r.POST("/select", limited, h.selectPosts)
	r.GET("/export.csv", h.download(export.FormatCSV))
	r.GET("/export.xlsx", h.download(export.FormatXLSX))

	v1 := r.Group("/api/v1")
	v1.GET("/health", h.health)
	v1.GET("/session", h.apiSession)
	v1.POST("/fetch", limited, h.apiFetch)
	v1.PUT("/selection", limited, h.apiSelect)

	return r
}

// Handler returns the HTTP handler, for tests and custom listeners
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Sessions returns the browser session store
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// ListenAndServe serves on cfg.Server.Addr() until Shutdown
func (s *Server) ListenAndServe() error {
	logger.LogComponentStart(s.log, "web", map[string]interface{}{
		"addr": s.http.Addr,
		"mode": s.cfg.Server.Mode,
	})
	if err := s.http.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops background cleanup
func (s *Server) Shutdown(ctx context.Context) error {
	s.Close()
	err := s.http.Shutdown(ctx)
	logger.LogComponentStop(s.log, "web", "shutdown")
	return err
}

// Close stops the background goroutines without touching the listener
func (s *Server) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}
