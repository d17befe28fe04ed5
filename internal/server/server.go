// Package server exposes the editing service over HTTP: a REST API for
// articles and lookups, and a WebSocket endpoint that drives live
// per-block editing sessions.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/medhayu/grantha/internal/config"
	"github.com/medhayu/grantha/internal/glossary"
	"github.com/medhayu/grantha/internal/lookup"
	"github.com/medhayu/grantha/internal/store"
)

// Server wires the article store, lookup clients and glossary matcher
// behind an http.Handler.
type Server struct {
	config   *config.Config
	store    store.ArticleStore
	api      *APIHandler
	sessions map[*EditHandler]bool
	sessMu   sync.Mutex

	matcherMu sync.RWMutex
	matcher   *glossary.Matcher

	watcher *Watcher
	cancel  context.CancelFunc
	limited http.Handler
}

// New builds a server from config. The store must already be open; the
// caller owns its lifecycle.
func New(cfg *config.Config, st store.ArticleStore) *Server {
	s := &Server{
		config:   cfg,
		store:    st,
		sessions: make(map[*EditHandler]bool),
	}

	clients := &lookup.Clients{}
	timeout := cfg.Services.GetTimeout()
	if cfg.Services.Citations != "" {
		clients.Citations = lookup.NewCitationClient(cfg.Services.Citations, timeout)
	}
	if cfg.Services.Quotes != "" {
		clients.Quotes = lookup.NewQuoteClient(cfg.Services.Quotes, timeout)
	}
	if cfg.Services.Translate != "" {
		clients.Translations = lookup.NewTranslationClient(cfg.Services.Translate, timeout)
	}
	if cfg.Services.Glossary != "" {
		clients.Glossaries = lookup.NewGlossaryClient(cfg.Services.Glossary, timeout)
	}
	s.api = NewAPIHandler(cfg, st, clients, s)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	handler := http.Handler(http.HandlerFunc(s.route))
	handler = WithCompression(handler)
	handler = SecurityHeadersMiddleware()(handler)
	handler = CORSMiddleware(cfg.Server.CORSOrigins)(handler)
	if cfg.Server.RateLimit > 0 {
		mw, _ := RateLimitMiddleware(ctx, cfg.Server.RateLimit, cfg.Server.RateBurst, 0)
		handler = mw(handler)
	}
	handler = LoggingMiddleware()(handler)
	s.limited = handler

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.limited.ServeHTTP(w, r)
}

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/ws/edit":
		s.serveEdit(w, r)
	case r.URL.Path == "/healthz":
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	default:
		s.api.ServeHTTP(w, r)
	}
}

// serveEdit opens a live editing session for one article.
func (s *Server) serveEdit(w http.ResponseWriter, r *http.Request) {
	h, err := NewEditHandler(s, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.sessMu.Lock()
	s.sessions[h] = true
	s.sessMu.Unlock()
	defer func() {
		s.sessMu.Lock()
		delete(s.sessions, h)
		s.sessMu.Unlock()
	}()

	h.ServeHTTP(w, r)
}

// Matcher returns the current glossary matcher, which may be nil when
// no glossary is active.
func (s *Server) Matcher() *glossary.Matcher {
	s.matcherMu.RLock()
	defer s.matcherMu.RUnlock()
	return s.matcher
}

// SetMatcher swaps the glossary matcher. Open sessions pick up the new
// matcher on their next render.
func (s *Server) SetMatcher(m *glossary.Matcher) {
	s.matcherMu.Lock()
	s.matcher = m
	s.matcherMu.Unlock()
}

// LoadGlossary installs a matcher built from the configured glossary.
// A local file takes precedence; otherwise the term list is fetched
// from the glossary service by its id. No configuration clears the
// matcher, turning glossary highlighting off.
func (s *Server) LoadGlossary(ctx context.Context) error {
	switch {
	case s.config.Glossary.File != "":
		terms, err := glossary.LoadFile(s.config.Glossary.File)
		if err != nil {
			return err
		}
		s.SetMatcher(glossary.NewMatcher(terms))
		logrus.Infof("glossary loaded: %d terms from %s", len(terms), s.config.Glossary.File)
	case s.config.Glossary.Active != "" && s.api.clients.Glossaries != nil:
		terms, err := s.api.clients.Glossaries.Terms(ctx, s.config.Glossary.Active)
		if err != nil {
			return err
		}
		s.SetMatcher(glossary.NewMatcher(terms))
		logrus.Infof("glossary loaded: %d terms for %s", len(terms), s.config.Glossary.Active)
	default:
		s.SetMatcher(nil)
	}
	return nil
}

// EnableWatch starts a watcher on the glossary file so term edits take
// effect without a restart.
func (s *Server) EnableWatch() error {
	if s.config.Glossary.File == "" {
		return nil
	}
	w, err := NewWatcher(s.config.Glossary.File, func(path string) error {
		logrus.Infof("glossary changed: %s", path)
		return s.LoadGlossary(context.Background())
	})
	if err != nil {
		return err
	}
	s.watcher = w
	s.watcher.Start()
	return nil
}

// Close flushes open sessions and stops background work.
func (s *Server) Close() error {
	s.sessMu.Lock()
	for h := range s.sessions {
		h.Close()
	}
	s.sessions = make(map[*EditHandler]bool)
	s.sessMu.Unlock()

	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			logrus.Warnf("stopping glossary watcher: %v", err)
		}
	}
	s.cancel()
	if s.api != nil {
		s.api.Close()
	}
	return nil
}
