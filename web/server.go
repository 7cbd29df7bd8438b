// ABOUTME: Web UI server with embedded templates
// ABOUTME: Serves the sign-in page, consent redirects and logout for cookie sessions
package web

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/harperreed/peoplelogin/config"
	"github.com/harperreed/peoplelogin/db"
	"github.com/harperreed/peoplelogin/flow"
	"github.com/harperreed/peoplelogin/provider"
)

//go:embed templates/*
var templatesFS embed.FS

const sessionCookie = "peoplelogin_session"

// AuthorizerFactory returns the authorizer for one browser session.
type AuthorizerFactory func(sessionKey string, consent provider.Consent) flow.Authorizer

// Options wires a Server.
type Options struct {
	Config     *config.Config
	Authorizer AuthorizerFactory
	Contacts   flow.ContactsLoader
	// Store holds per-session grants; logout deletes from it.
	Store provider.TokenStore
	// DB, when set, receives the session transition log.
	DB     *sql.DB
	Logger *log.Logger
	// Template overrides the embedded page. It must define "page".
	Template *template.Template
}

type Server struct {
	cfg       *config.Config
	authorize AuthorizerFactory
	contacts  flow.ContactsLoader
	store     provider.TokenStore
	db        *sql.DB
	logger    *log.Logger
	templates *template.Template
	elements  map[string]bool
	broker    *consentBroker
	now       func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

func NewServer(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Authorizer == nil || opts.Contacts == nil {
		return nil, errors.New("authorizer and contacts loader are required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	tmpl := opts.Template
	if tmpl == nil {
		var err error
		tmpl, err = template.ParseFS(templatesFS, "templates/*.html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse templates: %w", err)
		}
	}

	elements, err := pageElements(tmpl)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:       opts.Config,
		authorize: opts.Authorizer,
		contacts:  opts.Contacts,
		store:     opts.Store,
		db:        opts.DB,
		logger:    logger.WithPrefix("web"),
		templates: tmpl,
		elements:  elements,
		broker:    newConsentBroker(),
		now:       time.Now,
		sessions:  make(map[uuid.UUID]*session),
	}, nil
}

// pageElements renders the page once with zero data and records which
// element ids it contains.
func pageElements(tmpl *template.Template) (map[string]bool, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "page", pageData{}); err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}

	html := buf.Bytes()
	found := make(map[string]bool)
	for _, id := range requiredElements {
		if bytes.Contains(html, []byte(`id="`+id+`"`)) {
			found[id] = true
		}
	}
	return found, nil
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/", s.handlePage)
	r.Post("/login", s.handleLogin)
	r.Get("/oauth/callback", s.handleCallback)
	r.Post("/logout", s.handleLogout)
	r.Post("/hover", s.handleHover)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.evictIdle(ctx)

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Starting web server", "addr", s.cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("Shutting down web server")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	// A page load re-checks authorization unless a session is already
	// showing its connections or mid-flight.
	switch sess.ctrl.State() {
	case flow.StateUnauthenticated, flow.StateLoggedOut:
		if err := sess.ctrl.CheckAuth(r.Context()); err != nil {
			s.logger.Warn("authorization check failed", "session", sess.id, "err", err)
		}
	}

	s.renderPage(w, sess)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	urls := sess.consent.begin()
	done := sess.beginLogin()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.cfg.ConsentTimeout)
	go func() {
		defer cancel()
		err := sess.ctrl.ManualLogin(ctx)
		if err != nil {
			s.logger.Warn("login failed", "session", sess.id, "err", err)
		}
		done <- err
		close(done)
	}()

	select {
	case authURL := <-urls:
		http.Redirect(w, r, authURL, http.StatusSeeOther)
	case <-done:
		// Finished without consent, e.g. rejected as a duplicate login.
		s.renderPage(w, sess)
	case <-r.Context().Done():
	}
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	result := consentResult{code: q.Get("code")}
	if reason := q.Get("error"); reason != "" {
		result = consentResult{err: fmt.Errorf("%w: %s", provider.ErrConsentDenied, reason)}
	} else if result.code == "" {
		result.err = provider.ErrNoCode
	}

	if !s.broker.resolve(q.Get("state"), result) {
		http.Error(w, "unknown or expired login attempt", http.StatusBadRequest)
		return
	}

	if sess := s.lookup(r); sess != nil {
		sess.waitLogin(r.Context())
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout renders the page directly so the logged-out notice and the
// provider logout frame are shown before any reload re-checks.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := sess.ctrl.Logout(r.Context()); err != nil {
		s.logger.Warn("logout failed", "session", sess.id, "err", err)
	}
	s.renderPage(w, sess)
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	over, err := strconv.ParseBool(r.FormValue("over"))
	if err != nil {
		http.Error(w, "over must be true or false", http.StatusBadRequest)
		return
	}
	if err := sess.ctrl.Hover(over); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	palette := sess.ctrl.Flags().Button.Palette()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"borderTop":    palette.BorderTop,
		"borderBottom": palette.BorderBottom,
		"box":          palette.Box,
	})
}

func (s *Server) renderPage(w http.ResponseWriter, sess *session) {
	data := sess.page.data(s.cfg.LogoutURL)

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "page", data); err != nil {
		s.logger.Error("template error", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// requestLogger logs each request without the OAuth code and state.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.Debug("request",
					"id", chimiddleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// session returns the caller's session, creating it and setting the
// cookie when absent.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session {
	if sess := s.lookup(r); sess != nil {
		return sess
	}

	id := uuid.New()
	sess := s.newSession(id)

	s.mu.Lock()
	sess.lastSeen = s.now()
	s.sessions[id] = sess
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id.String(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

func (s *Server) lookup(r *http.Request) *session {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[id]
	if sess != nil {
		sess.lastSeen = s.now()
	}
	return sess
}

func (s *Server) idleLimit() time.Duration {
	if s.cfg.SessionIdle <= 0 {
		return 30 * time.Minute
	}
	return s.cfg.SessionIdle
}

// sweep drops sessions unused for longer than the idle limit and returns
// how many it removed.
func (s *Server) sweep() int {
	cutoff := s.now().Add(-s.idleLimit())

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *Server) evictIdle(ctx context.Context) {
	interval := max(s.idleLimit()/2, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sweep(); n > 0 {
				s.logger.Debug("evicted idle sessions", "count", n)
			}
		}
	}
}

func (s *Server) newSession(id uuid.UUID) *session {
	key := id.String()
	page := newPage(s.elements)
	consent := &webConsent{broker: s.broker}

	var observer flow.Observer
	if s.db != nil {
		observer = db.NewEventRecorder(s.db, id, s.logger)
	}

	ctrl := flow.NewController(flow.Options{
		ClientID:   s.cfg.ClientID,
		PageSize:   s.cfg.PageSize,
		Authorizer: s.authorize(key, consent),
		Contacts:   s.contacts,
		Logout:     &frameLogout{page: page, store: s.store, key: key},
		View:       page,
		Observer:   observer,
		Logger:     s.logger.With("session", key),
	})

	return &session{id: id, ctrl: ctrl, page: page, consent: consent}
}
