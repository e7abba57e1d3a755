// Package web serves the tracker's HTML pages.
package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/joescharf/tracker/internal/attachments"
	"github.com/joescharf/tracker/internal/auth"
	"github.com/joescharf/tracker/internal/locale"
	"github.com/joescharf/tracker/internal/sessions"
	"github.com/joescharf/tracker/internal/store"
	"github.com/joescharf/tracker/internal/tracker"
	"github.com/joescharf/tracker/internal/ui"
)

// Options tunes request handling.
type Options struct {
	// MaxUploadBytes caps the size of a POST body, attachments included.
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// Server provides the HTTP handlers.
type Server struct {
	tracker  *tracker.Tracker
	files    *attachments.Store
	users    *auth.Users
	sessions *sessions.Manager
	catalog  *locale.Catalog
	pages    map[string]*template.Template
	log      *slog.Logger

	maxUpload int64
}

// NewServer creates a server. It fails only if the embedded templates do
// not parse.
func NewServer(t *tracker.Tracker, files *attachments.Store, users *auth.Users,
	sm *sessions.Manager, catalog *locale.Catalog, opts Options) (*Server, error) {
	pages, err := ui.Templates(templateFuncs())
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}
	return &Server{
		tracker:   t,
		files:     files,
		users:     users,
		sessions:  sm,
		catalog:   catalog,
		pages:     pages,
		log:       logger,
		maxUpload: maxUpload,
	}, nil
}

// Router returns an http.Handler for all routes.
func (s *Server) Router() (http.Handler, error) {
	static, err := ui.StaticHandler()
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleGet)
	mux.HandleFunc("POST /{$}", s.handlePost)

	mux.HandleFunc("GET /api/v1/issues", s.apiListIssues)
	mux.HandleFunc("GET /api/v1/issues/{id}", s.apiGetIssue)

	mux.Handle("GET /static/", static)

	return s.withSession(s.logRequests(mux)), nil
}

// withSession resolves the session cookie, starting an anonymous session
// when there is none, and stores the RequestContext.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess *sessions.Session
		if c, err := r.Cookie(sessions.CookieName); err == nil {
			sess, _ = s.sessions.Get(c.Value)
		}
		if sess == nil {
			sess = s.sessions.Start(s.catalog.Negotiate(r.Header.Get("Accept-Language")))
			http.SetCookie(w, s.sessions.Cookie(sess))
		}
		ctx := withRequestContext(r.Context(), newRequestContext(sess))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"user", FromContext(r.Context()).User,
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeText sends a short plain-text response.
func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprintln(w, msg)
}

// render executes a page into a buffer first so template errors never
// produce half a page.
func (s *Server) render(w http.ResponseWriter, status int, name string, p *page) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.log.Error("unknown page", "page", name)
		writeText(w, http.StatusInternalServerError, "Operation failed")
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", p); err != nil {
		s.log.Error("render page", "page", name, "err", err)
		writeText(w, http.StatusInternalServerError, "Operation failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// failStatus maps a domain error to its HTTP status.
func failStatus(err error) int {
	switch {
	case errors.Is(err, tracker.ErrInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, tracker.ErrNotFound), errors.Is(err, attachments.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail logs unexpected errors and answers with a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := failStatus(err)
	if status == http.StatusInternalServerError {
		var ioErr *store.IOError
		s.log.Error("request failed", "path", r.URL.Path, "err", err, "storage", errors.As(err, &ioErr))
		writeText(w, status, "Operation failed")
		return
	}
	writeText(w, status, err.Error())
}

func redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}
