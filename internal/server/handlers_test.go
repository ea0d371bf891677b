package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/hyperjump/shinbun/internal/auth"
	"github.com/hyperjump/shinbun/internal/config"
	"github.com/hyperjump/shinbun/internal/corpus"
	"github.com/hyperjump/shinbun/internal/keyword"
	"github.com/hyperjump/shinbun/internal/models"
	"github.com/hyperjump/shinbun/internal/recommend"
	"github.com/hyperjump/shinbun/internal/storage"
	"github.com/hyperjump/shinbun/internal/tfidf"
	"github.com/hyperjump/shinbun/internal/validation"
)

type stubRecommender struct {
	res   *recommend.Result
	err   error
	stats recommend.Stats
	calls int
}

func (s *stubRecommender) Recommend(_ context.Context, query string) (*recommend.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	res := *s.res
	res.Query = query
	return &res, nil
}

func (s *stubRecommender) Stats() recommend.Stats { return s.stats }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "localhost", Port: 0},
		Storage: config.StorageConfig{
			DatabasePath:   filepath.Join(dir, "shinbun.db"),
			BleveIndexPath: filepath.Join(dir, "bleve"),
		},
		Recommend: config.RecommendConfig{CorpusPath: filepath.Join(dir, "news.jsonl"), TopK: 3},
		Auth: config.AuthConfig{
			JWTSecret:  "0123456789abcdef0123456789abcdef",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: time.Hour,
			BcryptCost: bcrypt.MinCost,
			Issuer:     "shinbun",
		},
	}
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, rec Recommender) (*Server, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	idx, err := keyword.NewMemoryIndex()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	tokens, err := auth.NewTokenManager(&cfg.Auth)
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil {
		rec = &stubRecommender{res: &recommend.Result{Categories: []string{"BUSINESS", "TECH", "POLITICS"}}}
	}
	return NewServer(store, idx, rec, tokens, cfg), store
}

// withParams attaches chi URL params and the caller's claims to r.
func withParams(r *http.Request, userID int64, params ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(params); i += 2 {
		rctx.URLParams.Add(params[i], params[i+1])
	}
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	if userID > 0 {
		ctx = auth.WithClaims(ctx, &auth.Claims{UserID: userID})
	}
	return r.WithContext(ctx)
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(b)
}

func mustCreateUser(t *testing.T, store storage.Storage, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, FirstName: strings.ToUpper(username[:1]) + username[1:], PasswordHash: "x"}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t), nil)
	w := httptest.NewRecorder()
	srv.handleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("got %d %s", w.Code, w.Body.String())
	}
}

func TestHandleRecommend(t *testing.T) {
	rec := &stubRecommender{res: &recommend.Result{
		Categories: []string{"BUSINESS", "TECH", "POLITICS"},
		Matches: []recommend.Match{
			{Rank: 1, Headline: "Stocks rally", Category: "BUSINESS", Score: 0.8},
			{Rank: 2, Headline: "New phone released", Category: "TECH"},
			{Rank: 3, Headline: "Election results", Category: "POLITICS"},
		},
	}}
	srv, _ := newTestServer(t, testConfig(t), rec)

	t.Run("categories only", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/v1/recommend", strings.NewReader(`{"query":"stocks markets"}`))
		srv.handleRecommend(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		var out models.RecommendResponse
		if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		if out.Query != "stocks markets" || len(out.Categories) != 3 || out.Categories[0] != "BUSINESS" {
			t.Errorf("unexpected response %+v", out)
		}
		if len(out.Matches) != 0 {
			t.Errorf("matches returned without explain: %+v", out.Matches)
		}
	})

	t.Run("explain", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/v1/recommend", strings.NewReader(`{"query":"stocks","explain":true}`))
		srv.handleRecommend(w, r)
		var out models.RecommendResponse
		if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		if len(out.Matches) != 3 || out.Matches[0].Headline != "Stocks rally" || out.Matches[0].Score != 0.8 {
			t.Errorf("matches = %+v", out.Matches)
		}
	})

	t.Run("missing query", func(t *testing.T) {
		calls := rec.calls
		w := httptest.NewRecorder()
		srv.handleRecommend(w, httptest.NewRequest(http.MethodPost, "/api/v1/recommend", strings.NewReader(`{}`)))
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d", w.Code)
		}
		if rec.calls != calls {
			t.Error("recommender called for an invalid request")
		}
		if !strings.Contains(w.Body.String(), `"fields"`) {
			t.Errorf("body = %s", w.Body.String())
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.handleRecommend(w, httptest.NewRequest(http.MethodPost, "/api/v1/recommend", strings.NewReader(`{"query":`)))
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d", w.Code)
		}
	})
}

func TestHandleRecommend_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty query", tfidf.ErrEmptyQuery, http.StatusBadRequest},
		{"insufficient documents", fmt.Errorf("rank: %w", recommend.ErrInsufficientDocuments), http.StatusUnprocessableEntity},
		{"empty corpus", tfidf.ErrEmptyCorpus, http.StatusUnprocessableEntity},
		{"data source", &corpus.DataSourceError{Source: "news.jsonl", Line: 2, Err: errors.New("missing category")}, http.StatusServiceUnavailable},
		{"not loaded", recommend.ErrNotLoaded, http.StatusServiceUnavailable},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, testConfig(t), &stubRecommender{err: tt.err})
			w := httptest.NewRecorder()
			srv.handleRecommend(w, httptest.NewRequest(http.MethodPost, "/api/v1/recommend", strings.NewReader(`{"query":"the"}`)))
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusInternalServerError && strings.Contains(w.Body.String(), "disk on fire") {
				t.Errorf("internal error leaked: %s", w.Body.String())
			}
		})
	}
}

func TestHandlerTimeout(t *testing.T) {
	tests := []struct {
		write time.Duration
		want  time.Duration
	}{
		{0, defaultHandlerTimeout},
		{30 * time.Second, 29 * time.Second},
		{2 * time.Second, time.Second},
		{time.Second, 500 * time.Millisecond},
	}
	for _, tt := range tests {
		got := handlerTimeout(tt.write)
		if got != tt.want {
			t.Errorf("handlerTimeout(%v) = %v, want %v", tt.write, got, tt.want)
		}
		if tt.write > 0 && got >= tt.write {
			t.Errorf("handlerTimeout(%v) = %v, not below the write timeout", tt.write, got)
		}
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("user 3: %w", storage.ErrNotFound), http.StatusNotFound},
		{storage.ErrConflict, http.StatusConflict},
		{storage.ErrInvalid, http.StatusBadRequest},
		{&validation.Error{}, http.StatusBadRequest},
		{errBadRequest, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusForError(tt.err); got != tt.want {
			t.Errorf("statusForError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func validArticle() map[string]any {
	return map[string]any{
		"source_name":  "Wire",
		"author":       "Jane",
		"title":        "Stocks rally on strong earnings",
		"url":          "https://example.com/stocks",
		"published_at": "2024-03-01T09:00:00Z",
		"content":      "Markets closed higher today",
	}
}

func TestHandleCreateArticle(t *testing.T) {
	srv, store := newTestServer(t, testConfig(t), nil)

	w := httptest.NewRecorder()
	srv.handleCreateArticle(w, httptest.NewRequest(http.MethodPost, "/api/v1/articles", jsonBody(t, validArticle())))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var created models.ArticleCreated
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if !created.Success || created.NewsID == 0 || created.Message != msgArticleCreated {
		t.Errorf("unexpected response %+v", created)
	}
	if _, err := store.GetArticle(context.Background(), created.NewsID); err != nil {
		t.Errorf("article not stored: %v", err)
	}
	if n, _ := srv.index.DocCount(); n != 1 {
		t.Errorf("indexed = %d, want 1", n)
	}

	invalid := validArticle()
	delete(invalid, "title")
	invalid["url"] = "not a url"
	for name, body := range map[string]string{
		"validation": mustJSON(t, invalid),
		"malformed":  `{"title":`,
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.handleCreateArticle(w, httptest.NewRequest(http.MethodPost, "/api/v1/articles", strings.NewReader(body)))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", w.Code)
			}
			if got := strings.TrimSpace(w.Body.String()); got != `{"success":false,"message":"Invalid data provided."}` {
				t.Errorf("body = %s", got)
			}
		})
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestHandleDeleteArticle(t *testing.T) {
	srv, store := newTestServer(t, testConfig(t), nil)
	ctx := context.Background()
	a := &models.Article{SourceName: "Wire", Title: "Stocks rally", URL: "https://example.com", PublishedAt: time.Now().UTC(), Content: "up"}
	if err := store.CreateArticle(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := srv.index.Index(ctx, a); err != nil {
		t.Fatal(err)
	}
	id := fmt.Sprint(a.ID)

	w := httptest.NewRecorder()
	srv.handleDeleteArticle(w, withParams(httptest.NewRequest(http.MethodDelete, "/api/v1/articles/"+id, nil), 0, "id", id))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if n, _ := srv.index.DocCount(); n != 0 {
		t.Errorf("article still indexed")
	}

	w = httptest.NewRecorder()
	srv.handleGetArticle(w, withParams(httptest.NewRequest(http.MethodGet, "/api/v1/articles/"+id, nil), 0, "id", id))
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d", w.Code)
	}

	w = httptest.NewRecorder()
	srv.handleGetArticle(w, withParams(httptest.NewRequest(http.MethodGet, "/api/v1/articles/abc", nil), 0, "id", "abc"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id = %d", w.Code)
	}
}

func TestHandleSearchArticles(t *testing.T) {
	srv, store := newTestServer(t, testConfig(t), nil)
	ctx := context.Background()
	for _, title := range []string{"Stocks rally on earnings", "New phone released", "Election results announced"} {
		a := &models.Article{SourceName: "Wire", Title: title, URL: "https://example.com", PublishedAt: time.Now().UTC(), Content: title}
		if err := store.CreateArticle(ctx, a); err != nil {
			t.Fatal(err)
		}
		if err := srv.index.Index(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	w := httptest.NewRecorder()
	srv.handleSearchArticles(w, httptest.NewRequest(http.MethodGet, "/api/v1/articles/search?q=stocks&limit=5", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var out models.ArticleSearchResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 1 || out.Results[0].Article.Title != "Stocks rally on earnings" || out.Results[0].Rank != 1 {
		t.Errorf("results = %+v", out.Results)
	}

	w = httptest.NewRecorder()
	srv.handleSearchArticles(w, httptest.NewRequest(http.MethodGet, "/api/v1/articles/search", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty query status = %d", w.Code)
	}
}

func TestHandleUpdateUser(t *testing.T) {
	srv, store := newTestServer(t, testConfig(t), nil)
	alice := mustCreateUser(t, store, "alice")
	bob := mustCreateUser(t, store, "bob")
	id := fmt.Sprint(alice.ID)

	body := `{"first_name":"Alicia","topics_selected":[{"topic":"tech"},{"topic":"sports"}]}`
	w := httptest.NewRecorder()
	srv.handleUpdateUser(w, withParams(httptest.NewRequest(http.MethodPut, "/api/v1/users/"+id, strings.NewReader(body)), alice.ID, "id", id))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var got models.User
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.FirstName != "Alicia" || len(got.TopicsSelected) != 2 {
		t.Errorf("user = %+v", got)
	}

	// Topics accumulate.
	w = httptest.NewRecorder()
	srv.handleUpdateUser(w, withParams(httptest.NewRequest(http.MethodPut, "/api/v1/users/"+id, strings.NewReader(`{"topics_selected":[{"topic":"tech"},{"topic":"world"}]}`)), alice.ID, "id", id))
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got.TopicsSelected) != 3 || got.FirstName != "Alicia" {
		t.Errorf("after second update: %+v", got)
	}

	// A rejected topic leaves the profile untouched.
	w = httptest.NewRecorder()
	srv.handleUpdateUser(w, withParams(httptest.NewRequest(http.MethodPut, "/api/v1/users/"+id, strings.NewReader(`{"first_name":"Alice","topics_selected":[{"topic":"   "}]}`)), alice.ID, "id", id))
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank topic = %d", w.Code)
	}
	if u, _ := store.GetUser(context.Background(), alice.ID); u.FirstName != "Alicia" || len(u.TopicsSelected) != 3 {
		t.Errorf("user changed by a failed update: %+v", u)
	}

	w = httptest.NewRecorder()
	srv.handleUpdateUser(w, withParams(httptest.NewRequest(http.MethodPut, "/api/v1/users/"+id, strings.NewReader(`{"first_name":"Mallory"}`)), bob.ID, "id", id))
	if w.Code != http.StatusForbidden {
		t.Errorf("update by another user = %d", w.Code)
	}
}

func TestHandleLikesForArticle(t *testing.T) {
	srv, store := newTestServer(t, testConfig(t), nil)
	ctx := context.Background()
	alice := mustCreateUser(t, store, "alice")
	a := &models.Article{SourceName: "Wire", Title: "Stocks", URL: "https://example.com", PublishedAt: time.Now().UTC(), Content: "up"}
	if err := store.CreateArticle(ctx, a); err != nil {
		t.Fatal(err)
	}
	id := fmt.Sprint(a.ID)

	w := httptest.NewRecorder()
	srv.handleLikesForArticle(w, withParams(httptest.NewRequest(http.MethodGet, "/api/v1/stored/"+id, nil), 0, "newsID", id))
	if w.Code != http.StatusNotFound {
		t.Errorf("no likes: status = %d", w.Code)
	}

	if err := store.CreateStoredNews(ctx, &models.StoredNews{UserID: alice.ID, NewsID: &a.ID, Liked: true}); err != nil {
		t.Fatal(err)
	}
	w = httptest.NewRecorder()
	srv.handleLikesForArticle(w, withParams(httptest.NewRequest(http.MethodGet, "/api/v1/stored/"+id, nil), 0, "newsID", id))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"user_name":"Alice"`) {
		t.Errorf("got %d %s", w.Code, w.Body.String())
	}
}

func TestHandleStatus(t *testing.T) {
	built := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	rec := &stubRecommender{stats: recommend.Stats{Loaded: true, Source: "news.jsonl", Documents: 3, Categories: []string{"BUSINESS", "TECH"}, VocabularySize: 17, TopK: 3, BuiltAt: built}}
	srv, store := newTestServer(t, testConfig(t), rec)
	mustCreateUser(t, store, "alice")

	w := httptest.NewRecorder()
	srv.handleStatus(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out models.StatusResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Users != 1 || out.Articles != 0 || !out.Model.Loaded || out.Model.Documents != 3 || len(out.Model.Categories) != 2 || out.Model.BuiltAt != "2024-03-01T09:00:00Z" {
		t.Errorf("status = %+v", out)
	}
	if out.DiskUsageBytes <= 0 {
		t.Errorf("disk usage = %d, want > 0", out.DiskUsageBytes)
	}
}
