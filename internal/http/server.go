// Package http serves the dues report as a small JSON API.
package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yuin/goldmark"
	"golang.org/x/sync/singleflight"

	"moim/internal/cache"
	"moim/internal/core"
	applog "moim/internal/log"
	"moim/internal/services"
	"moim/internal/sheets"
)

const (
	defaultCacheSize  = 24
	defaultLoginLimit = 10
	loadTimeout       = 15 * time.Second
)

// Options configures a Server.
type Options struct {
	Reader     sheets.SnapshotReader
	Reconciler services.Reconciler

	// CacheTTL bounds how stale a served report may be; zero disables caching.
	CacheTTL  time.Duration
	CacheSize int

	// LoginLimit is the number of POST /api/me attempts allowed per client
	// IP per minute.
	LoginLimit int

	Logger *applog.Logger
	Now    func() time.Time
}

// state is everything derived from one snapshot read.
type state struct {
	report    services.Report
	members   []core.Member
	rules     string
	rulesHTML string
}

type Server struct {
	http.Server

	reader     sheets.SnapshotReader
	reconciler services.Reconciler
	logger     *applog.Logger
	now        func() time.Time
	md         goldmark.Markdown

	states      *cache.LRUCache[*state]
	cacheMgr    *cache.Manager
	stopCleanup context.CancelFunc
	loads       singleflight.Group

	// generation counts purges; a load started under an older generation
	// must not repopulate the cache.
	genMu      sync.Mutex
	generation uint64

	rateLimiter  *rateLimiter
	metrics      securityMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.LoginLimit <= 0 {
		opts.LoginLimit = defaultLoginLimit
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		reader:      opts.Reader,
		reconciler:  opts.Reconciler,
		logger:      opts.Logger.WithComponent(applog.ComponentHTTP),
		now:         opts.Now,
		md:          newMarkdown(),
		states:      cache.NewLRUCache[*state](opts.CacheSize, opts.CacheTTL),
		rateLimiter: newRateLimiter(opts.LoginLimit, time.Minute),
	}

	cacheLogger := opts.Logger.WithComponent(applog.ComponentCache)
	s.cacheMgr = cache.NewManager(func(n int) {
		cacheLogger.Debug("Expired reports removed", "entries", n)
	})
	s.cacheMgr.Register(s.states)
	if opts.CacheTTL > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopCleanup = cancel
		s.cacheMgr.Start(ctx, opts.CacheTTL)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/views/{view}", s.withSecurityHeaders(s.handleView))
	mux.HandleFunc("GET /api/members", s.withSecurityHeaders(s.handleMembers))
	mux.HandleFunc("GET /api/summary", s.withSecurityHeaders(s.handleSummary))
	mux.HandleFunc("GET /api/rules", s.withSecurityHeaders(s.handleRules))
	mux.HandleFunc("POST /api/me", s.withSecurityHeaders(s.withRateLimit(s.handleMe)))

	return s
}

// withSecurityHeaders adds a request id, security headers and request
// logging around next.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		reqID := requestID(r)

		reqLogger := s.logger.With(applog.FieldRequestID, reqID)
		ctx := context.WithValue(r.Context(), requestIDKey, reqID)
		ctx = applog.IntoContext(ctx, reqLogger)
		r = r.WithContext(ctx)

		w.Header().Set(headerRequestID, reqID)
		setSecurityHeaders(w.Header())

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		reqLogger.InfoContext(ctx, "Request completed", applog.NewFields().
			WithHTTPRequest(r.Method, r.URL.Path, clientIP, r.Header.Get("User-Agent")).
			WithHTTPResponse(rw.statusCode, time.Since(start).Milliseconds()).
			ToSlice()...)
	}
}

// withRateLimit rejects clients over the per-minute limit with 429.
func (s *Server) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)
		if !s.rateLimiter.allow(clientIP, &s.metrics) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldClientIP, clientIP, applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(s.rateLimiter.window.Seconds())))
			writeError(w, r, http.StatusTooManyRequests, "too many attempts, try again later")
			return
		}
		next(w, r)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.reader.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	st, err := s.load(r.Context())
	if err != nil {
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":          "ready",
		"reference_month": st.report.ReferenceMonth,
		"fetched_at":      st.report.FetchedAt,
	})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	v, err := ParseView(r.PathValue("view"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	s.serveView(w, r, v)
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	s.serveView(w, r, ViewMembers)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.serveView(w, r, ViewAggregate)
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	s.serveView(w, r, ViewRules)
}

func (s *Server) serveView(w http.ResponseWriter, r *http.Request, v View) {
	st, err := s.load(r.Context())
	if err != nil {
		s.writeLoadError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, render(v, st, sanitizeInput(r.URL.Query().Get("q"))))
}

// handleMe selects the caller's own row by name and credential. The check
// picks which row to show; it does not protect anything.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	name := sanitizeInput(r.PostForm.Get("name"))
	credential := sanitizeInput(r.PostForm.Get("credential"))
	if name == "" || credential == "" {
		writeError(w, r, http.StatusBadRequest, "name and credential are required")
		return
	}

	st, err := s.load(r.Context())
	if err != nil {
		s.writeLoadError(w, r, err)
		return
	}
	m, ok := services.Authenticate(st.members, name, credential)
	if !ok {
		atomic.AddInt64(&s.metrics.failedLogins, 1)
		writeError(w, r, http.StatusUnauthorized, "name or credential does not match")
		return
	}
	writeJSON(w, r, http.StatusOK, renderMe(st, m))
}

func (s *Server) writeLoadError(w http.ResponseWriter, r *http.Request, err error) {
	applog.FromContext(r.Context()).Failure(r.Context(), "Snapshot load failed", err)
	if errors.Is(err, sheets.ErrNoSnapshot) {
		writeError(w, r, http.StatusServiceUnavailable, "no data yet; the first refresh has not completed")
		return
	}
	writeError(w, r, http.StatusServiceUnavailable, "data source unavailable")
}

// load returns the state for the current reference month, reading the
// snapshot at most once per month key while a read is in flight.
func (s *Server) load(ctx context.Context) (*state, error) {
	now := s.now()
	key := s.reconciler.Policy.ReferenceMonth(now).String()
	if st, ok := s.states.Get(key); ok {
		return st, nil
	}

	gen := s.currentGeneration()
	v, err, _ := s.loads.Do(key+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		snap, err := s.reader.ReadSnapshot(lctx)
		if err != nil {
			return nil, err
		}
		rep := s.reconciler.BuildReport(snap, now)
		html, err := renderRules(s.md, snap.Rules)
		if err != nil {
			s.logger.WarnContext(ctx, "Rules rendering failed", "error", err)
		}
		st := &state{report: rep, members: snap.Members, rules: snap.Rules, rulesHTML: html}
		if !s.storeIfCurrent(gen, key, st) {
			s.logger.DebugContext(ctx, "Report discarded after purge", applog.FieldReferenceMonth, key)
		}

		members, ledger, assets := snap.Counts()
		s.logger.WithOperation(applog.OpReconcile).InfoContext(ctx, "Report computed",
			applog.FieldReferenceMonth, key,
			applog.FieldSource, snap.Source,
			applog.FieldMembers, members,
			applog.FieldLedgerEntries, ledger,
			applog.FieldAssets, assets,
			applog.FieldIssues, len(rep.Issues))
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*state), nil
}

func (s *Server) currentGeneration() uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generation
}

// storeIfCurrent caches st unless a purge happened since gen was read.
func (s *Server) storeIfCurrent(gen uint64, key string, st *state) bool {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if gen != s.generation {
		return false
	}
	s.states.Set(key, st)
	return true
}

// InvalidateReports drops every cached report, e.g. after a refresh
// notification, including any load still in flight. It returns how many
// cached reports were dropped.
func (s *Server) InvalidateReports() int {
	s.genMu.Lock()
	s.generation++
	n := s.states.Purge()
	s.genMu.Unlock()

	s.logger.Info("Report cache purged", "entries", n)
	return n
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopCleanup != nil {
			s.stopCleanup()
			s.cacheMgr.Wait()
		}
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
