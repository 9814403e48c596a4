// Package uiread is the read-only contract the Web UI uses against the
// persistence layer. Pinball's core never calls into this package; it
// exists so the UI has a single, typed surface to depend on instead of
// reaching into pkg/persistence directly.
package uiread

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"

	"github.com/pinball-run/pinball/pkg/persistence"
	"github.com/pinball-run/pinball/pkg/token"
)

// The UI read service is deployed as its own small HTTP listener, either
// inside the master binary or standalone.
const (
	DefaultBindAddr = "0.0.0.0"
	DefaultBindPort = 8086

	HTTPReadTimeout       = 30 * time.Second
	HTTPReadHeaderTimeout = 10 * time.Second
	HTTPWriteTimeout      = 30 * time.Second
	HTTPIdleTimeout       = 120 * time.Second
)

// Reader is the subset of persistence.Store the UI is allowed to touch:
// both methods are pure reads, never on the Master's critical path (spec
// §4.1: "used by the UI-facing read path, not by the Master's critical
// path").
type Reader interface {
	LoadAll(ctx context.Context) ([]token.Token, error)
	ReadArchive(ctx context.Context, namePrefix string) ([]token.Token, error)
}

var _ Reader = (persistence.Store)(nil)

// Config configures the read-only UI HTTP service.
type Config struct {
	Store     Reader
	Logger    logr.Logger
	BindAddr  string
	BindPort  int
	URLPrefix string
}

func (c *Config) setDefaults() {
	if c.BindAddr == "" {
		c.BindAddr = DefaultBindAddr
	}
	if c.BindPort == 0 {
		c.BindPort = DefaultBindPort
	}
	if c.URLPrefix == "" {
		c.URLPrefix = "/ui"
	}
	if c.Logger.GetSink() == nil {
		c.Logger = logr.Discard()
	}
}

// Service is the read-only UI backend.
type Service struct {
	cfg    Config
	engine *gin.Engine
}

// New builds a Service with its routes registered.
func New(cfg Config) (*Service, error) {
	cfg.setDefaults()
	if cfg.Store == nil {
		return nil, errors.New("uiread: Store is required")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	s := &Service{cfg: cfg, engine: engine}

	group := engine.Group(cfg.URLPrefix)
	group.GET("/current", s.handleCurrent)
	group.GET("/archive", s.handleArchive)

	return s, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddr, s.cfg.BindPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadTimeout:       HTTPReadTimeout,
		ReadHeaderTimeout: HTTPReadHeaderTimeout,
		WriteTimeout:      HTTPWriteTimeout,
		IdleTimeout:       HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// tokenView is the JSON shape returned to the UI: the same fields as
// pkg/token.Token, but with Data left as opaque base64 (gin's default for
// []byte) since the UI never interprets job payloads itself.
type tokenView struct {
	Version        int64  `json:"version"`
	Name           string `json:"name"`
	Owner          string `json:"owner"`
	ExpirationTime int64  `json:"expirationTime"`
	Priority       float64 `json:"priority"`
	Data           []byte `json:"data"`
}

func toView(t token.Token) tokenView {
	return tokenView{
		Version:        t.Version,
		Name:           t.Name,
		Owner:          t.Owner,
		ExpirationTime: t.ExpirationTime,
		Priority:       t.Priority,
		Data:           t.Data,
	}
}

// handleCurrent serves GET /ui/current, the live namespace, via
// persistence.Store.LoadAll. It is intentionally unfiltered: the UI itself
// is responsible for prefix filtering and pagination over the result.
func (s *Service) handleCurrent(c *gin.Context) {
	tokens, err := s.cfg.Store.LoadAll(c.Request.Context())
	if err != nil {
		s.cfg.Logger.Error(err, "uiread: load current")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load current tokens"})
		return
	}
	c.JSON(http.StatusOK, viewAll(tokens))
}

// handleArchive serves GET /ui/archive?prefix=..., reading from the
// immutable archive namespace.
func (s *Service) handleArchive(c *gin.Context) {
	prefix := c.Query("prefix")
	tokens, err := s.cfg.Store.ReadArchive(c.Request.Context(), prefix)
	if err != nil {
		s.cfg.Logger.Error(err, "uiread: read archive", "prefix", prefix)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read archive"})
		return
	}
	c.JSON(http.StatusOK, viewAll(tokens))
}

func viewAll(tokens []token.Token) []tokenView {
	out := make([]tokenView, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, toView(t))
	}
	return out
}

// MarshalDebug renders tokens as indented JSON for CLI inspection
// tooling.
func MarshalDebug(tokens []token.Token) ([]byte, error) {
	return json.MarshalIndent(viewAll(tokens), "", "  ")
}
