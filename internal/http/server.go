package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"h2olog/internal/confirm"
	"h2olog/internal/core"
	"h2olog/internal/insight"
	"h2olog/internal/log"
	"h2olog/internal/middleware/ratelimit"
	"h2olog/internal/middleware/security"
	"h2olog/internal/middleware/trace"
	"h2olog/internal/realtime"
	"h2olog/internal/services"
	"h2olog/internal/storage"
	appweb "h2olog/web"
)

// Deps are the collaborators the handlers work with.
type Deps struct {
	Dashboard *services.Dashboard
	Insights  *insight.Service
	Requester *insight.Requester
	Confirm   *confirm.Gate
	Hub       *realtime.Hub
	// Blobs is pinged by /readyz when it implements storage.Pinger.
	Blobs  storage.BlobStore
	Logger *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template

	dash      *services.Dashboard
	entries   *services.EntryStore
	settings  *services.SettingsStore
	insights  *insight.Service
	requester *insight.Requester
	gate      *confirm.Gate
	hub       *realtime.Hub
	blobs     storage.BlobStore

	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}
	if deps.Confirm == nil {
		deps.Confirm = confirm.NewGate(confirm.DefaultTTL)
	}
	if deps.Hub == nil {
		deps.Hub = realtime.NewHub(deps.Logger)
	}

	t, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	logger := deps.Logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		templates: t,
		dash:      deps.Dashboard,
		entries:   deps.Dashboard.Entries,
		settings:  deps.Dashboard.Settings,
		insights:  deps.Insights,
		requester: deps.Requester,
		gate:      deps.Confirm,
		hub:       deps.Hub,
		blobs:     deps.Blobs,
		logger:    logger,
		limiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:  security.NewDetector(),
		started:   time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ClientIP)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func parseTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"ml": func(v int) string { return core.FormatVolume(float64(v)) },
	}
	t, err := template.New("").Funcs(funcs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /ws", s.hub)

	// pages
	mux.HandleFunc("GET /{$}", s.handleOverview)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("GET /entries/new", s.handleEntryForm)
	mux.HandleFunc("POST /entries", s.handleCreateEntry)
	mux.HandleFunc("POST /entries/{id}/delete", s.handleRequestDelete)
	mux.HandleFunc("POST /entries/clear", s.handleRequestClear)
	mux.HandleFunc("GET /confirm/{token}", s.handleConfirmPage)
	mux.HandleFunc("POST /confirm/{token}", s.handleDecide)
	mux.HandleFunc("GET /insights", s.handleInsights)
	mux.HandleFunc("POST /insights", s.handleTriggerInsight)
	mux.HandleFunc("GET /settings", s.handleSettings)
	mux.HandleFunc("POST /settings/presets", s.handleAddPreset)
	mux.HandleFunc("POST /settings/presets/delete", s.handleRemovePreset)

	// JSON API
	mux.HandleFunc("GET /api/entries", s.handleAPIEntries)
	mux.HandleFunc("POST /api/entries", s.handleAPICreateEntry)
	mux.HandleFunc("GET /api/summary", s.handleAPISummary)
	mux.HandleFunc("GET /api/series", s.handleAPISeries)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ClientIP, nil)(h)
	h = headers.Middleware(h)
	h = s.detector.Middleware(h)
	h = s.tracer.Middleware(h)
	h = log.Middleware(s.logger)(h)
	return h
}

// render executes a template into a buffer so a failing template never
// produces half a page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err, "template", name, log.FieldOperation, log.OpRender)
		InternalServerError("Something went wrong while rendering the page.").Write(w)
		return
	}
	NewResponse().Status(status).BodyHTML(buf.Bytes()).Write(w)
}

// Shutdown closes websocket clients, stops the limiter and then the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.hub.Close()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// Run serves until ctx is cancelled, then shuts down within
// timeout.
func (s *Server) Run(ctx context.Context, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}
