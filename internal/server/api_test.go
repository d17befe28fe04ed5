package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/medhayu/grantha"
	"github.com/medhayu/grantha/internal/config"
	"github.com/medhayu/grantha/internal/markup"
	"github.com/medhayu/grantha/internal/store"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	srv := New(cfg, st)
	t.Cleanup(func() {
		srv.Close()
		st.Close()
	})
	return srv
}

func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil)
	w := do(srv, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out["status"] != "ok" {
		t.Errorf("body = %v", out)
	}
}

func TestArticleCRUD(t *testing.T) {
	srv := newTestServer(t, nil)

	article := `{"title":"Verse One","blocks":[{"id":"b1","type":"shloka","sanskrit":"<p>text</p>"}],"tags":["dosha"]}`
	w := do(srv, http.MethodPut, "/api/articles/charaka/sutrasthana/1.1", article)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT status = %d: %s", w.Code, w.Body.String())
	}

	w = do(srv, http.MethodGet, "/api/articles/charaka/sutrasthana/1.1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d", w.Code)
	}
	var rec store.ArticleRecord
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Title != "Verse One" || rec.BookID != "charaka" || rec.Verse != "1.1" {
		t.Errorf("record = %+v", rec)
	}
	if len(rec.Blocks) != 1 || rec.Blocks[0].Type != grantha.Shloka {
		t.Errorf("blocks = %+v", rec.Blocks)
	}

	w = do(srv, http.MethodGet, "/api/articles/charaka/sutrasthana", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var recs []store.ArticleRecord
	if err := json.Unmarshal(w.Body.Bytes(), &recs); err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Errorf("list = %+v", recs)
	}

	w = do(srv, http.MethodDelete, "/api/articles/charaka/sutrasthana/1.1", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d", w.Code)
	}
	w = do(srv, http.MethodGet, "/api/articles/charaka/sutrasthana/1.1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("GET after delete = %d", w.Code)
	}
	w = do(srv, http.MethodDelete, "/api/articles/charaka/sutrasthana/1.1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second DELETE = %d", w.Code)
	}
}

func TestArticlePutRejectsBadBody(t *testing.T) {
	srv := newTestServer(t, nil)
	w := do(srv, http.MethodPut, "/api/articles/b/c/1", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestArticleView(t *testing.T) {
	srv := newTestServer(t, nil)

	note1 := markup.Note{Type: markup.Footnote, Content: "first"}.HTML()
	note2 := markup.Note{Type: markup.Footnote, Content: "second"}.HTML()
	article := `{"title":"V","blocks":[` +
		`{"id":"b1","type":"shloka","sanskrit":"<p>one ` + jsonEscape(note1) + `</p>"},` +
		`{"id":"b2","type":"bhashya","sanskrit":"<p>two ` + jsonEscape(note2) + `</p>"}]}`
	if w := do(srv, http.MethodPut, "/api/articles/b/c/1", article); w.Code != http.StatusOK {
		t.Fatalf("PUT = %d: %s", w.Code, w.Body.String())
	}

	w := do(srv, http.MethodGet, "/api/articles/b/c/1/view", "")
	if w.Code != http.StatusOK {
		t.Fatalf("view status = %d: %s", w.Code, w.Body.String())
	}
	var view struct {
		Title  string `json:"title"`
		Blocks []struct {
			ID   string `json:"id"`
			HTML string `json:"html"`
		} `json:"blocks"`
		NotesHTML string `json:"notesHtml"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if len(view.Blocks) != 2 {
		t.Fatalf("blocks = %+v", view.Blocks)
	}
	// Note numbering is continuous across blocks in document order.
	if !strings.Contains(view.Blocks[0].HTML, "[1]") {
		t.Errorf("first block html = %q", view.Blocks[0].HTML)
	}
	if !strings.Contains(view.Blocks[1].HTML, "[2]") {
		t.Errorf("second block html = %q", view.Blocks[1].HTML)
	}
	if !strings.Contains(view.NotesHTML, "first") || !strings.Contains(view.NotesHTML, "second") {
		t.Errorf("notes listing = %q", view.NotesHTML)
	}
}

func jsonEscape(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}

func TestViewMissingArticle(t *testing.T) {
	srv := newTestServer(t, nil)
	if w := do(srv, http.MethodGet, "/api/articles/b/c/99/view", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestCitationProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/citations/ref-1":
			w.Write([]byte(`{"refId":"ref-1","sanskrit":"tatra"}`))
		case "/citations":
			w.Write([]byte(`[{"refId":"ref-1","preview":"tatra..."}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer upstream.Close()

	srv := newTestServer(t, func(c *config.Config) {
		c.Services.Citations = upstream.URL
	})

	w := do(srv, http.MethodGet, "/api/citations/ref-1", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "tatra") {
		t.Errorf("resolve: %d %s", w.Code, w.Body.String())
	}

	w = do(srv, http.MethodGet, "/api/citations?q=tatra", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "preview") {
		t.Errorf("search: %d %s", w.Code, w.Body.String())
	}
}

func TestCitationServiceUnconfigured(t *testing.T) {
	srv := newTestServer(t, nil)
	if w := do(srv, http.MethodGet, "/api/citations?q=x", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", w.Code)
	}
}

func TestQuoteCreateProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer upstream.Close()

	srv := newTestServer(t, func(c *config.Config) {
		c.Services.Quotes = upstream.URL
	})

	w := do(srv, http.MethodPost, "/api/quotes", `{"quote":"text","author":"a"}`)
	if w.Code != http.StatusCreated {
		t.Errorf("status = %d: %s", w.Code, w.Body.String())
	}

	// Empty quote text fails client-side validation.
	w = do(srv, http.MethodPost, "/api/quotes", `{"author":"a"}`)
	if w.Code != http.StatusBadGateway {
		t.Errorf("empty quote status = %d", w.Code)
	}
}

func TestTranslateFallsBackToOriginal(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model offline", http.StatusBadGateway)
	}))
	defer upstream.Close()

	srv := newTestServer(t, func(c *config.Config) {
		c.Services.Translate = upstream.URL
	})

	w := do(srv, http.MethodPost, "/api/translate", `{"html":"<p>mula</p>","targetLang":"en"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out struct {
		HTML       string `json:"html"`
		Translated bool   `json:"translated"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Translated || out.HTML != "<p>mula</p>" {
		t.Errorf("out = %+v, want original text back", out)
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, nil)
	if w := do(srv, http.MethodGet, "/api/nonsense", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}
