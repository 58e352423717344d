package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"fbtimeline/internal/config"
	appLog "fbtimeline/internal/log"
	"fbtimeline/internal/model"
	"fbtimeline/internal/store"
)

// responseTTL bounds how long rendered responses are reused between
// refreshes. A refresh flushes them early.
const responseTTL = 30 * time.Second

// Server provides the timeline HTTP API and rendered views.
type Server struct {
	store     *store.Store
	cfg       *config.Config
	mux       *http.ServeMux
	responses *cache.Cache
}

// NewServer constructs a Server on top of st.
func NewServer(st *store.Store) *Server {
	s := &Server{
		store:     st,
		cfg:       st.Config(),
		mux:       http.NewServeMux(),
		responses: cache.New(responseTTL, 2*responseTTL),
	}
	st.OnRefresh(func(*model.Snapshot) { s.responses.Flush() })
	s.registerRoutes()
	return s
}

// Handler returns the server's http.Handler with auth and rate limiting
// applied as configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if rl := s.cfg.RateLimit; rl.RPS > 0 {
		h = rateLimit(h, newIPRateLimiter(rate.Limit(rl.RPS), rl.Burst, limiterIdle))
	}
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = basicAuth(h, s.cfg.BasicAuth.Username, s.cfg.BasicAuth.Password)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured. Empty
// credentials count as disabled.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

func (s *Server) registerRoutes() {
	cached := func(h http.HandlerFunc) http.Handler {
		return cacheResponses(h, s.responses, responseTTL)
	}

	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/api/grid", cached(s.handleGrid))
	s.mux.Handle("/api/blocks", cached(s.handleBlocks))
	s.mux.HandleFunc("/api/viewport", s.handleViewport)
	s.mux.HandleFunc("/api/suggestions", s.handleSuggestions)
	s.mux.HandleFunc("/api/check", s.handleCheck)
	s.mux.Handle("/timeline", cached(s.handleTimeline))
	s.mux.Handle("/timeline.svg", cached(s.handleSVG))
	s.mux.Handle("/timeline.pdf", cached(s.handlePDF))
	s.mux.HandleFunc("/preview.png", s.handlePreview)
}

// Serve listens on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves the last captured PNG preview from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.cfg.PreviewPath == "" {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, s.cfg.PreviewPath)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// writeLoadError maps store errors onto HTTP statuses.
func writeLoadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNoAttendees):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "load cancelled")
	default:
		appLog.Error("snapshot load failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load free/busy data")
	}
}
