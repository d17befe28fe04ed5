package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/medhayu/grantha"
	"github.com/medhayu/grantha/internal/autosave"
	"github.com/medhayu/grantha/internal/lookup"
	"github.com/medhayu/grantha/internal/markup"
	"github.com/medhayu/grantha/internal/render"
	"github.com/medhayu/grantha/internal/session"
	"github.com/medhayu/grantha/internal/store"
	"github.com/medhayu/grantha/internal/suggest"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced by the CORS middleware
	},
}

// MessageEnvelope is one multiplexed WebSocket message. BlockID routes
// block-scoped actions; article-scoped actions leave it empty.
type MessageEnvelope struct {
	BlockID string          `json:"blockId,omitempty"`
	Action  string          `json:"action"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// EditHandler drives one live editing session: a block store, per-block
// editor sessions, suggestion engines and an autosave coordinator, all
// scoped to a single article and a single connection.
type EditHandler struct {
	srv   *Server
	book  string
	chap  string
	verse string

	mu       sync.Mutex
	store    *grantha.BlockStore
	registry *session.Registry
	title    string
	tags     []string

	coord    *autosave.Coordinator
	engines  map[string]*suggest.Engine
	resolver *lookup.CachedResolver

	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  bool
}

// NewEditHandler loads the addressed article and assembles its editing
// state. The article address comes from query parameters.
func NewEditHandler(s *Server, r *http.Request) (*EditHandler, error) {
	q := r.URL.Query()
	book, chap, verse := q.Get("book"), q.Get("chapter"), q.Get("verse")
	if book == "" || chap == "" || verse == "" {
		return nil, fmt.Errorf("book, chapter and verse query parameters are required")
	}

	h := &EditHandler{
		srv:      s,
		book:     book,
		chap:     chap,
		verse:    verse,
		store:    grantha.NewBlockStore(),
		registry: session.NewRegistry(),
		engines:  make(map[string]*suggest.Engine),
	}

	rec, err := s.store.Get(r.Context(), book, chap, verse)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// New article at this address.
	case err != nil:
		return nil, err
	default:
		h.store.Load(rec.Blocks)
		h.title = rec.Title
		h.tags = rec.Tags
		for _, b := range h.store.Blocks() {
			h.registry.Register(session.New(b.ID, b.Sanskrit))
		}
	}

	h.coord = autosave.New(s.config.Autosave.GetDelay(), h.snapshot, h.persist, h.notifySaveError)
	h.setupTriggers()
	return h, nil
}

// setupTriggers wires the citation and quote suggestion engines against
// the lookup clients.
func (h *EditHandler) setupTriggers() {
	cfg := h.srv.config
	timeout := cfg.Services.GetTimeout()

	if cfg.Services.Citations != "" {
		client := lookup.NewCitationClient(cfg.Services.Citations, timeout)
		h.resolver = lookup.NewCachedResolver(client, 0)
		eng := suggest.NewEngine(suggest.Trigger{
			Prefix: "@",
			Fetch: func(ctx context.Context, query string, limit int) ([]suggest.Item, error) {
				previews, err := client.Search(ctx, query, limit)
				if err != nil {
					return nil, err
				}
				items := make([]suggest.Item, len(previews))
				for i, p := range previews {
					items[i] = suggest.Item{ID: p.RefID, Preview: p.Preview}
				}
				return items, nil
			},
			Resolve: func(ctx context.Context, id string) (string, error) {
				rec, err := h.resolver.Resolve(ctx, id)
				if err != nil {
					return "", err
				}
				return markup.Citation{RefID: rec.RefID, Text: rec.Sanskrit}.HTML(), nil
			},
		})
		h.registerEngine("citation", eng)
	}

	if cfg.Services.Quotes != "" {
		client := lookup.NewQuoteClient(cfg.Services.Quotes, timeout)
		eng := suggest.NewEngine(suggest.Trigger{
			Prefix: ">",
			Allow:  func(at suggest.Cursor) bool { return at.AtParagraphStart },
			Fetch: func(ctx context.Context, query string, limit int) ([]suggest.Item, error) {
				quotes, err := client.ListAll(ctx)
				if err != nil {
					return nil, err
				}
				var items []suggest.Item
				for _, qt := range quotes {
					if query != "" && !strings.Contains(strings.ToLower(qt.Quote), strings.ToLower(query)) {
						continue
					}
					items = append(items, suggest.Item{ID: qt.ID, Preview: qt.Quote})
					if len(items) >= limit {
						break
					}
				}
				return items, nil
			},
			Resolve: func(ctx context.Context, id string) (string, error) {
				quotes, err := client.ListAll(ctx)
				if err != nil {
					return "", err
				}
				for _, qt := range quotes {
					if qt.ID == id {
						return markup.ScholarlyQuote{Text: qt.Quote, Author: qt.Author}.HTML(), nil
					}
				}
				return "", lookup.ErrNotFound
			},
		})
		h.registerEngine("quote", eng)
	}
}

func (h *EditHandler) registerEngine(name string, eng *suggest.Engine) {
	eng.OnCandidates(func(query string, items []suggest.Item) {
		h.send(MessageEnvelope{Action: "suggest.candidates", Data: mustJSON(map[string]any{
			"trigger":    name,
			"query":      query,
			"candidates": items,
		})})
	})
	h.engines[name] = eng
}

// ServeHTTP upgrades the connection and runs the message loop.
func (h *EditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("ws upgrade failed: %v", err)
		return
	}
	h.conn = conn
	defer h.Close()

	h.sendArticle()
	h.coord.MarkLoaded()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.Debugf("ws unexpected close: %v", err)
			}
			return
		}
		h.handleMessage(r.Context(), message)
	}
}

// Close flushes pending work and disposes the session state.
func (h *EditHandler) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.coord.Flush(ctx); err != nil {
		logrus.Warnf("flush on close failed: %v", err)
	}
	h.registry.Close()
	if h.resolver != nil {
		h.resolver.Close()
	}
	if h.conn != nil {
		h.conn.Close()
	}
}

func (h *EditHandler) handleMessage(ctx context.Context, message []byte) {
	var env MessageEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		logrus.Debugf("ws bad message: %v", err)
		return
	}

	switch env.Action {
	case "block.insert":
		h.handleInsert(env)
	case "block.update":
		h.handleUpdate(env)
	case "block.remove":
		h.handleRemove(env)
	case "block.focus":
		h.mu.Lock()
		h.registry.SetActive(env.BlockID)
		h.mu.Unlock()
	case "block.blur":
		h.mu.Lock()
		h.registry.ClearActive()
		h.mu.Unlock()
	case "block.sync":
		h.handleSync(env)
	case "block.undo":
		h.handleUndo(env)
	case "block.render":
		h.handleRender(env)
	case "title.update":
		h.handleTitle(env)
	case "tags.update":
		h.handleTags(env)
	case "suggest.open", "suggest.input", "suggest.move", "suggest.commit", "suggest.cancel":
		h.handleSuggest(ctx, env)
	case "save.flush":
		h.handleFlush(ctx)
	default:
		logrus.Debugf("ws unknown action: %s", env.Action)
	}
}

func (h *EditHandler) handleInsert(env MessageEnvelope) {
	var data struct {
		Type grantha.BlockType `json:"type"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || !data.Type.Known() {
		h.sendError(env.BlockID, "unknown block type")
		return
	}

	h.mu.Lock()
	id := h.store.Insert(data.Type)
	h.registry.Register(session.New(id, ""))
	h.mu.Unlock()

	h.coord.Changed()
	h.send(MessageEnvelope{BlockID: id, Action: "block.inserted", Data: mustJSON(map[string]string{
		"id":   id,
		"type": string(data.Type),
	})})
}

func (h *EditHandler) handleUpdate(env MessageEnvelope) {
	var data struct {
		Type            *grantha.BlockType      `json:"type"`
		Sanskrit        *string                 `json:"sanskrit"`
		Commentary      *grantha.CommentaryInfo `json:"commentary"`
		ClearCommentary bool                    `json:"clearCommentary"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		h.sendError(env.BlockID, "invalid update payload")
		return
	}
	if data.Type != nil && !data.Type.Known() {
		h.sendError(env.BlockID, "unknown block type")
		return
	}

	h.mu.Lock()
	ok := h.store.Update(env.BlockID, grantha.BlockPatch{
		Type:            data.Type,
		Sanskrit:        data.Sanskrit,
		Commentary:      data.Commentary,
		ClearCommentary: data.ClearCommentary,
	})
	if ok && data.Sanskrit != nil {
		if s, found := h.registry.Get(env.BlockID); found {
			s.Edit(*data.Sanskrit)
		}
	}
	h.mu.Unlock()

	if !ok {
		h.sendError(env.BlockID, "unknown block")
		return
	}
	h.coord.Changed()
}

func (h *EditHandler) handleRemove(env MessageEnvelope) {
	h.mu.Lock()
	ok := h.store.Remove(env.BlockID)
	if ok {
		h.registry.Unregister(env.BlockID)
	}
	h.mu.Unlock()

	if !ok {
		h.sendError(env.BlockID, "unknown block")
		return
	}
	h.coord.Changed()
	h.send(MessageEnvelope{BlockID: env.BlockID, Action: "block.removed"})
}

// handleSync applies an externally originated content change. A focused
// surface rejects it so in-flight keystrokes are never clobbered.
func (h *EditHandler) handleSync(env MessageEnvelope) {
	var data struct {
		Sanskrit string `json:"sanskrit"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		h.sendError(env.BlockID, "invalid sync payload")
		return
	}

	h.mu.Lock()
	applied := false
	if s, ok := h.registry.Get(env.BlockID); ok {
		if applied = s.Sync(data.Sanskrit); applied {
			h.store.Update(env.BlockID, grantha.BlockPatch{Sanskrit: &data.Sanskrit})
		}
	}
	h.mu.Unlock()

	if applied {
		h.coord.Changed()
	}
	h.send(MessageEnvelope{BlockID: env.BlockID, Action: "block.synced", Data: mustJSON(map[string]bool{
		"applied": applied,
	})})
}

func (h *EditHandler) handleUndo(env MessageEnvelope) {
	h.mu.Lock()
	var content string
	var ok bool
	if s, found := h.registry.Get(env.BlockID); found {
		if content, ok = s.Undo(); ok {
			h.store.Update(env.BlockID, grantha.BlockPatch{Sanskrit: &content})
		}
	}
	h.mu.Unlock()

	if ok {
		h.coord.Changed()
	}
	h.send(MessageEnvelope{BlockID: env.BlockID, Action: "block.undone", Data: mustJSON(map[string]any{
		"sanskrit": content,
		"applied":  ok,
	})})
}

// handleRender returns the render tree of one block, glossary matches
// included. Single-block renders number notes from 1; whole-article
// numbering is the view endpoint's concern.
func (h *EditHandler) handleRender(env MessageEnvelope) {
	h.mu.Lock()
	b, ok := h.store.Get(env.BlockID)
	var body string
	if ok {
		body = b.Sanskrit
	}
	h.mu.Unlock()

	if !ok {
		h.sendError(env.BlockID, "unknown block")
		return
	}

	walker := render.NewWalker(h.srv.Matcher())
	nodes, err := walker.Block(body)
	if err != nil {
		h.sendError(env.BlockID, err.Error())
		return
	}
	h.send(MessageEnvelope{BlockID: env.BlockID, Action: "block.rendered", Data: mustJSON(map[string]any{
		"tree": render.Encode(nodes),
		"html": render.HTML(nodes),
	})})
}

func (h *EditHandler) handleTitle(env MessageEnvelope) {
	var data struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		h.sendError("", "invalid title payload")
		return
	}
	h.mu.Lock()
	h.title = data.Title
	h.mu.Unlock()
	h.coord.Changed()
}

func (h *EditHandler) handleTags(env MessageEnvelope) {
	var data struct {
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		h.sendError("", "invalid tags payload")
		return
	}
	h.mu.Lock()
	h.tags = data.Tags
	h.mu.Unlock()
	h.coord.Changed()
}

func (h *EditHandler) handleSuggest(ctx context.Context, env MessageEnvelope) {
	var data struct {
		Trigger          string `json:"trigger"`
		Query            string `json:"query"`
		Delta            int    `json:"delta"`
		ParagraphText    string `json:"paragraphText"`
		AtParagraphStart bool   `json:"atParagraphStart"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			h.sendError(env.BlockID, "invalid suggest payload")
			return
		}
	}

	eng, ok := h.engines[data.Trigger]
	if !ok {
		h.sendError(env.BlockID, "unknown trigger: "+data.Trigger)
		return
	}

	switch env.Action {
	case "suggest.open":
		opened := eng.TryOpen(context.WithoutCancel(ctx), suggest.Cursor{
			BlockID:          env.BlockID,
			ParagraphText:    data.ParagraphText,
			AtParagraphStart: data.AtParagraphStart,
		})
		h.send(MessageEnvelope{BlockID: env.BlockID, Action: "suggest.opened", Data: mustJSON(map[string]bool{
			"opened": opened,
		})})
	case "suggest.input":
		eng.Input(context.WithoutCancel(ctx), data.Query)
	case "suggest.move":
		eng.Move(data.Delta)
	case "suggest.commit":
		body, committed := eng.Commit(ctx)
		h.send(MessageEnvelope{BlockID: env.BlockID, Action: "suggest.committed", Data: mustJSON(map[string]any{
			"markup":    body,
			"committed": committed,
		})})
	case "suggest.cancel":
		eng.Cancel()
	}
}

func (h *EditHandler) handleFlush(ctx context.Context) {
	err := h.coord.Flush(ctx)
	data := map[string]any{"saved": err == nil}
	if err != nil {
		data["error"] = err.Error()
	}
	h.send(MessageEnvelope{Action: "save.flushed", Data: mustJSON(data)})
}

// sendArticle pushes the loaded article state as the first message.
func (h *EditHandler) sendArticle() {
	h.mu.Lock()
	blocks := h.store.Blocks()
	title, tags := h.title, h.tags
	h.mu.Unlock()

	h.send(MessageEnvelope{Action: "article", Data: mustJSON(map[string]any{
		"book":    h.book,
		"chapter": h.chap,
		"verse":   h.verse,
		"title":   title,
		"tags":    tags,
		"blocks":  blocks,
	})})
}

// snapshot captures the draft for the autosave coordinator.
func (h *EditHandler) snapshot() autosave.Draft {
	h.mu.Lock()
	defer h.mu.Unlock()
	return autosave.Draft{
		BookID:    h.book,
		ChapterID: h.chap,
		Verse:     h.verse,
		Title:     h.title,
		Blocks:    h.store.Snapshot(),
		Tags:      h.tags,
	}
}

func (h *EditHandler) persist(ctx context.Context, d autosave.Draft) error {
	return h.srv.store.Save(ctx, &store.ArticleRecord{
		BookID:    d.BookID,
		ChapterID: d.ChapterID,
		Verse:     d.Verse,
		Title:     d.Title,
		Blocks:    d.Blocks,
		Tags:      d.Tags,
	})
}

func (h *EditHandler) notifySaveError(err error) {
	h.send(MessageEnvelope{Action: "save.error", Data: mustJSON(map[string]string{
		"error": err.Error(),
	})})
}

func (h *EditHandler) sendError(blockID, message string) {
	h.send(MessageEnvelope{BlockID: blockID, Action: "error", Data: mustJSON(map[string]string{
		"error": message,
	})})
}

func (h *EditHandler) send(env MessageEnvelope) {
	if h.conn == nil {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		logrus.Warnf("ws marshal: %v", err)
		return
	}
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := h.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logrus.Debugf("ws write: %v", err)
	}
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		logrus.Warnf("ws encode payload: %v", err)
		return json.RawMessage("{}")
	}
	return data
}
