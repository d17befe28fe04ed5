package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/medhayu/grantha/internal/config"
	"github.com/medhayu/grantha/internal/lookup"
	"github.com/medhayu/grantha/internal/render"
	"github.com/medhayu/grantha/internal/store"
)

// maxRequestBodySize limits the size of incoming request bodies (1MB)
const maxRequestBodySize = 1 << 20

// defaultSearchLimit caps citation search results when no limit is given.
const defaultSearchLimit = 5

// APIHandler handles REST API requests for articles and lookups.
type APIHandler struct {
	config  *config.Config
	store   store.ArticleStore
	clients *lookup.Clients
	srv     *Server
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(cfg *config.Config, st store.ArticleStore, clients *lookup.Clients, srv *Server) *APIHandler {
	return &APIHandler{
		config:  cfg,
		store:   st,
		clients: clients,
		srv:     srv,
	}
}

// Close releases handler resources.
func (h *APIHandler) Close() error {
	return nil
}

// ServeHTTP routes API requests.
//
//	/api/articles/{book}/{chapter}            GET
//	/api/articles/{book}/{chapter}/{verse}    GET, PUT, DELETE
//	/api/articles/{book}/{chapter}/{verse}/view  GET
//	/api/citations?q=                         GET
//	/api/citations/{refID}                    GET
//	/api/quotes                               GET, POST
//	/api/glossaries/{id}/terms                GET
//	/api/translate                            POST
func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/")
	if path == r.URL.Path {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch parts[0] {
	case "articles":
		h.handleArticles(w, r, parts[1:])
	case "citations":
		h.handleCitations(w, r, parts[1:])
	case "quotes":
		h.handleQuotes(w, r)
	case "glossaries":
		h.handleGlossaries(w, r, parts[1:])
	case "translate":
		h.handleTranslate(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *APIHandler) handleArticles(w http.ResponseWriter, r *http.Request, parts []string) {
	switch len(parts) {
	case 2:
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		recs, err := h.store.List(r.Context(), parts[0], parts[1])
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, recs)
	case 3:
		h.handleArticle(w, r, parts[0], parts[1], parts[2])
	case 4:
		if parts[3] != "view" || r.Method != http.MethodGet {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		h.handleArticleView(w, r, parts[0], parts[1], parts[2])
	default:
		writeError(w, http.StatusBadRequest, "expected /api/articles/{book}/{chapter}[/{verse}]")
	}
}

func (h *APIHandler) handleArticle(w http.ResponseWriter, r *http.Request, book, chapter, verse string) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		rec, err := h.store.Get(ctx, book, chapter, verse)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "article not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, rec)

	case http.MethodPut:
		var rec store.ArticleRecord
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeError(w, http.StatusBadRequest, "invalid article body: "+err.Error())
			return
		}
		rec.BookID, rec.ChapterID, rec.Verse = book, chapter, verse
		if err := h.store.Save(ctx, &rec); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})

	case http.MethodDelete:
		err := h.store.Delete(ctx, book, chapter, verse)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "article not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleArticleView renders the saved article for the read-only view:
// per-block render trees plus the collected note listing.
func (h *APIHandler) handleArticleView(w http.ResponseWriter, r *http.Request, book, chapter, verse string) {
	rec, err := h.store.Get(r.Context(), book, chapter, verse)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "article not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	walker := render.NewWalker(h.srv.Matcher())
	type viewBlock struct {
		ID   string           `json:"id"`
		Type string           `json:"type"`
		Tree []map[string]any `json:"tree"`
		HTML string           `json:"html"`
	}
	blocks := make([]viewBlock, 0, len(rec.Blocks))
	for _, b := range rec.Blocks {
		nodes, err := walker.Block(b.Sanskrit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		blocks = append(blocks, viewBlock{
			ID:   b.ID,
			Type: string(b.Type),
			Tree: render.Encode(nodes),
			HTML: render.HTML(nodes),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"title":     rec.Title,
		"verse":     rec.Verse,
		"tags":      rec.Tags,
		"blocks":    blocks,
		"notesHtml": render.NotesHTML(walker.Notes()),
	})
}

func (h *APIHandler) handleCitations(w http.ResponseWriter, r *http.Request, parts []string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.clients.Citations == nil {
		writeError(w, http.StatusServiceUnavailable, "citation service not configured")
		return
	}
	ctx := r.Context()

	if len(parts) == 1 && parts[0] != "" {
		rec, err := h.clients.Citations.Resolve(ctx, parts[0])
		if errors.Is(err, lookup.ErrNotFound) {
			writeError(w, http.StatusNotFound, "citation not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}

	q := r.URL.Query().Get("q")
	limit := defaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	results, err := h.clients.Citations.Search(ctx, q, limit)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *APIHandler) handleQuotes(w http.ResponseWriter, r *http.Request) {
	if h.clients.Quotes == nil {
		writeError(w, http.StatusServiceUnavailable, "quote service not configured")
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		quotes, err := h.clients.Quotes.ListAll(ctx)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, quotes)
	case http.MethodPost:
		var q lookup.Quote
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			writeError(w, http.StatusBadRequest, "invalid quote body: "+err.Error())
			return
		}
		if err := h.clients.Quotes.Create(ctx, q); err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, q)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *APIHandler) handleGlossaries(w http.ResponseWriter, r *http.Request, parts []string) {
	if r.Method != http.MethodGet || len(parts) != 2 || parts[1] != "terms" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if h.clients.Glossaries == nil {
		writeError(w, http.StatusServiceUnavailable, "glossary service not configured")
		return
	}
	terms, err := h.clients.Glossaries.Terms(r.Context(), parts[0])
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, terms)
}

func (h *APIHandler) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.clients.Translations == nil {
		writeError(w, http.StatusServiceUnavailable, "translation service not configured")
		return
	}

	var req struct {
		HTML       string `json:"html"`
		TargetLang string `json:"targetLang"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid translate body: "+err.Error())
		return
	}

	translated, err := h.clients.Translations.Translate(r.Context(), req.HTML, req.TargetLang)
	if err != nil {
		// Translation failures leave the original text in place.
		logrus.Warnf("translate failed: %v", err)
		writeJSON(w, http.StatusOK, map[string]any{"html": req.HTML, "translated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"html": translated, "translated": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
