package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/medhayu/grantha/internal/config"
)

// citationStub serves a one-entry citation collection.
func citationStub() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/citations/") {
			w.Write([]byte(`{"refId":"ca-su-1.27","sanskrit":"tatra shlokau"}`))
			return
		}
		w.Write([]byte(`[{"refId":"ca-su-1.27","preview":"tatra shlokau..."}]`))
	})
}

// wsClient wraps a dialed connection with helpers for the envelope
// protocol.
type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialEdit(t *testing.T, srv *Server, book, chapter, verse string) *wsClient {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") +
		"/ws/edit?book=" + book + "&chapter=" + chapter + "&verse=" + verse
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(env MessageEnvelope) {
	c.t.Helper()
	if err := c.conn.WriteJSON(env); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

// waitFor reads until an envelope with the given action arrives,
// discarding everything else.
func (c *wsClient) waitFor(action string) MessageEnvelope {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var env MessageEnvelope
		if err := c.conn.ReadJSON(&env); err != nil {
			c.t.Fatalf("waiting for %q: %v", action, err)
		}
		if env.Action == action {
			return env
		}
	}
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return v
}

func TestEditSessionRequiresAddress(t *testing.T) {
	srv := newTestServer(t, nil)
	w := do(srv, "GET", "/ws/edit?book=a&chapter=b", "")
	if w.Code != 400 {
		t.Errorf("status = %d, want 400 for missing verse", w.Code)
	}
}

func TestEditSessionLifecycle(t *testing.T) {
	srv := newTestServer(t, func(c *config.Config) {
		c.Autosave.Delay = "20ms"
	})
	c := dialEdit(t, srv, "charaka", "sutrasthana", "1.1")

	// New address: the opening article message carries no blocks.
	env := c.waitFor("article")
	art := decode[struct {
		Book   string            `json:"book"`
		Verse  string            `json:"verse"`
		Blocks []json.RawMessage `json:"blocks"`
	}](t, env.Data)
	if art.Book != "charaka" || art.Verse != "1.1" || len(art.Blocks) != 0 {
		t.Errorf("article = %+v", art)
	}

	// Insert a block, type into it, then flush.
	c.send(MessageEnvelope{Action: "block.insert", Data: json.RawMessage(`{"type":"shloka"}`)})
	env = c.waitFor("block.inserted")
	blockID := env.BlockID
	if blockID == "" {
		t.Fatal("no block id assigned")
	}

	c.send(MessageEnvelope{BlockID: blockID, Action: "block.update",
		Data: json.RawMessage(`{"sanskrit":"<p>vayuh pittam</p>"}`)})
	c.send(MessageEnvelope{Action: "title.update", Data: json.RawMessage(`{"title":"First Verse"}`)})
	c.send(MessageEnvelope{Action: "save.flush"})
	env = c.waitFor("save.flushed")
	flushed := decode[struct {
		Saved bool `json:"saved"`
	}](t, env.Data)
	if !flushed.Saved {
		t.Fatalf("flush failed: %s", env.Data)
	}

	rec, err := srv.store.Get(context.Background(), "charaka", "sutrasthana", "1.1")
	if err != nil {
		t.Fatalf("article not persisted: %v", err)
	}
	if rec.Title != "First Verse" || len(rec.Blocks) != 1 {
		t.Errorf("persisted record = %+v", rec)
	}
	if rec.Blocks[0].Sanskrit != "<p>vayuh pittam</p>" {
		t.Errorf("persisted body = %q", rec.Blocks[0].Sanskrit)
	}
}

func TestEditSessionLoadsExistingArticle(t *testing.T) {
	srv := newTestServer(t, nil)
	if w := do(srv, "PUT", "/api/articles/b/c/1",
		`{"title":"Seeded","blocks":[{"id":"x1","type":"shloka","sanskrit":"<p>old</p>"}]}`); w.Code != 200 {
		t.Fatalf("seed: %d", w.Code)
	}

	c := dialEdit(t, srv, "b", "c", "1")
	env := c.waitFor("article")
	art := decode[struct {
		Title  string `json:"title"`
		Blocks []struct {
			ID       string `json:"id"`
			Sanskrit string `json:"sanskrit"`
		} `json:"blocks"`
	}](t, env.Data)
	if art.Title != "Seeded" || len(art.Blocks) != 1 || art.Blocks[0].Sanskrit != "<p>old</p>" {
		t.Errorf("article = %+v", art)
	}
}

func TestSyncRejectedWhileBlockFocused(t *testing.T) {
	srv := newTestServer(t, nil)
	c := dialEdit(t, srv, "b", "c", "1")
	c.waitFor("article")

	c.send(MessageEnvelope{Action: "block.insert", Data: json.RawMessage(`{"type":"shloka"}`)})
	blockID := c.waitFor("block.inserted").BlockID

	c.send(MessageEnvelope{BlockID: blockID, Action: "block.focus"})
	c.send(MessageEnvelope{BlockID: blockID, Action: "block.sync",
		Data: json.RawMessage(`{"sanskrit":"<p>external</p>"}`)})
	env := c.waitFor("block.synced")
	if decode[struct {
		Applied bool `json:"applied"`
	}](t, env.Data).Applied {
		t.Error("sync applied to a focused block")
	}

	c.send(MessageEnvelope{BlockID: blockID, Action: "block.blur"})
	c.send(MessageEnvelope{BlockID: blockID, Action: "block.sync",
		Data: json.RawMessage(`{"sanskrit":"<p>external</p>"}`)})
	env = c.waitFor("block.synced")
	if !decode[struct {
		Applied bool `json:"applied"`
	}](t, env.Data).Applied {
		t.Error("sync rejected after blur")
	}
}

func TestUndoOverWebSocket(t *testing.T) {
	srv := newTestServer(t, nil)
	c := dialEdit(t, srv, "b", "c", "1")
	c.waitFor("article")

	c.send(MessageEnvelope{Action: "block.insert", Data: json.RawMessage(`{"type":"sutra"}`)})
	blockID := c.waitFor("block.inserted").BlockID

	c.send(MessageEnvelope{BlockID: blockID, Action: "block.update",
		Data: json.RawMessage(`{"sanskrit":"<p>v1</p>"}`)})
	c.send(MessageEnvelope{BlockID: blockID, Action: "block.update",
		Data: json.RawMessage(`{"sanskrit":"<p>v2</p>"}`)})
	c.send(MessageEnvelope{BlockID: blockID, Action: "block.undo"})

	env := c.waitFor("block.undone")
	undone := decode[struct {
		Sanskrit string `json:"sanskrit"`
		Applied  bool   `json:"applied"`
	}](t, env.Data)
	if !undone.Applied || undone.Sanskrit != "<p>v1</p>" {
		t.Errorf("undo = %+v", undone)
	}
}

func TestRenderOverWebSocket(t *testing.T) {
	srv := newTestServer(t, nil)
	c := dialEdit(t, srv, "b", "c", "1")
	c.waitFor("article")

	c.send(MessageEnvelope{Action: "block.insert", Data: json.RawMessage(`{"type":"shloka"}`)})
	blockID := c.waitFor("block.inserted").BlockID

	body := `<p>text <sup data-type=\"footnote\" data-content=\"a note\">[FN]</sup></p>`
	c.send(MessageEnvelope{BlockID: blockID, Action: "block.update",
		Data: json.RawMessage(`{"sanskrit":"` + body + `"}`)})
	c.send(MessageEnvelope{BlockID: blockID, Action: "block.render"})

	env := c.waitFor("block.rendered")
	rendered := decode[struct {
		HTML string `json:"html"`
	}](t, env.Data)
	if !strings.Contains(rendered.HTML, "[1]") {
		t.Errorf("rendered html = %q", rendered.HTML)
	}
}

func TestInsertRejectsUnknownType(t *testing.T) {
	srv := newTestServer(t, nil)
	c := dialEdit(t, srv, "b", "c", "1")
	c.waitFor("article")

	c.send(MessageEnvelope{Action: "block.insert", Data: json.RawMessage(`{"type":"markdown"}`)})
	env := c.waitFor("error")
	if !strings.Contains(string(env.Data), "unknown block type") {
		t.Errorf("error payload = %s", env.Data)
	}
}

func TestSuggestCommitOverWebSocket(t *testing.T) {
	upstream := httptest.NewServer(citationStub())
	defer upstream.Close()

	srv := newTestServer(t, func(c *config.Config) {
		c.Services.Citations = upstream.URL
	})
	c := dialEdit(t, srv, "b", "c", "1")
	c.waitFor("article")

	c.send(MessageEnvelope{Action: "suggest.open", Data: json.RawMessage(`{"trigger":"citation"}`)})
	c.waitFor("suggest.opened")
	c.send(MessageEnvelope{Action: "suggest.input", Data: json.RawMessage(`{"trigger":"citation","query":"tatra"}`)})
	env := c.waitFor("suggest.candidates")
	cands := decode[struct {
		Candidates []struct {
			ID string `json:"id"`
		} `json:"candidates"`
	}](t, env.Data)
	if len(cands.Candidates) == 0 {
		t.Fatal("no candidates")
	}

	c.send(MessageEnvelope{Action: "suggest.commit", Data: json.RawMessage(`{"trigger":"citation"}`)})
	env = c.waitFor("suggest.committed")
	committed := decode[struct {
		Markup    string `json:"markup"`
		Committed bool   `json:"committed"`
	}](t, env.Data)
	if !committed.Committed {
		t.Fatalf("commit failed: %s", env.Data)
	}
	if !strings.Contains(committed.Markup, `data-ref-id="ca-su-1.27"`) {
		t.Errorf("markup = %q", committed.Markup)
	}
}
