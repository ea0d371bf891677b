package main

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shinbun/internal/cli"
	"github.com/hyperjump/shinbun/internal/config"
	"github.com/hyperjump/shinbun/internal/models"
	"github.com/hyperjump/shinbun/internal/recommend"
)

const corpusLines = `{"headline":"Stocks rally","short_description":"Markets up today","category":"BUSINESS"}
{"headline":"New phone released","short_description":"Tech giant unveils device","category":"TECH"}
{"headline":"Election results","short_description":"Votes counted nationwide","category":"POLITICS"}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{"flags after query are moved first", []string{"stocks rally", "-k", "5"}, []string{"-k", "5", "stocks rally"}},
		{"flags first returns unchanged", []string{"-k", "5", "stocks rally"}, []string{"-k", "5", "stocks rally"}},
		{"query only returns unchanged", []string{"stocks rally"}, []string{"stocks rally"}},
		{"empty args returns unchanged", []string{}, []string{}},
		{"multiple positionals then flags", []string{"one", "two", "--explain"}, []string{"--explain", "one", "two"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := argsReorder(tt.args); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		args     []string
		expected string
	}{
		{[]string{"stocks"}, "stocks"},
		{[]string{"stocks", "rally"}, "stocks rally"},
		{[]string{"stocks rally"}, "stocks rally"},
		{[]string{}, ""},
		{[]string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		if got := buildQuery(tt.args); got != tt.expected {
			t.Errorf("buildQuery(%v) = %q, want %q", tt.args, got, tt.expected)
		}
	}
}

func TestParseRecommendArgs(t *testing.T) {
	t.Setenv(envToken, "env-token")

	opts, err := parseRecommendArgs([]string{"stocks", "rally", "--k", "2", "--output", "json", "--explain"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.query != "stocks rally" || opts.k != 2 || opts.format != cli.OutputJSON || !opts.explain {
		t.Errorf("opts = %+v", opts)
	}
	if opts.token != "env-token" {
		t.Errorf("token = %q, want value from %s", opts.token, envToken)
	}

	for name, args := range map[string][]string{
		"no query":   {"--k", "2"},
		"bad format": {"--output", "xml", "stocks"},
		"negative k": {"--k", "-1", "stocks"},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := parseRecommendArgs(args); err == nil {
				t.Errorf("parseRecommendArgs(%v) should fail", args)
			}
		})
	}
}

func TestRecommendLocal(t *testing.T) {
	dir := t.TempDir()
	corpusPath := writeFile(t, dir, "news.jsonl", corpusLines)

	t.Run("corpus flag without config", func(t *testing.T) {
		resp, err := recommendLocal(&recommendOptions{
			configPath: filepath.Join(dir, "missing.yaml"),
			corpusPath: corpusPath,
			query:      "stocks markets",
			explain:    true,
		})
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"BUSINESS", "TECH", "POLITICS"}
		if !reflect.DeepEqual(resp.Categories, want) {
			t.Errorf("categories = %v, want %v", resp.Categories, want)
		}
		if len(resp.Matches) != 3 || resp.Matches[0].Headline != "Stocks rally" {
			t.Errorf("matches = %+v", resp.Matches)
		}
	})

	t.Run("corpus and k from config", func(t *testing.T) {
		cfgPath := writeFile(t, dir, "config.yaml", "recommend:\n  corpus_path: ./news.jsonl\n  top_k: 1\n")
		resp, err := recommendLocal(&recommendOptions{configPath: cfgPath, query: "phone device"})
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(resp.Categories, []string{"TECH"}) || resp.Matches != nil {
			t.Errorf("resp = %+v", resp)
		}
	})

	t.Run("missing config and no corpus", func(t *testing.T) {
		_, err := recommendLocal(&recommendOptions{configPath: filepath.Join(dir, "missing.yaml"), query: "x"})
		if err == nil {
			t.Error("expected error")
		}
	})
}

func TestToResponse(t *testing.T) {
	res := &recommend.Result{
		Query:      "q",
		Categories: []string{"A"},
		Matches:    []recommend.Match{{Rank: 1, Index: 4, Headline: "h", Category: "A", Score: 0.3}},
	}
	plain := toResponse(res, false, 5*time.Millisecond)
	if plain.QueryTime != 5 || plain.Matches != nil {
		t.Errorf("plain = %+v", plain)
	}
	explained := toResponse(res, true, 0)
	want := []models.RecommendMatch{{Rank: 1, Headline: "h", Category: "A", Score: 0.3}}
	if !reflect.DeepEqual(explained.Matches, want) {
		t.Errorf("matches = %+v", explained.Matches)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config.yaml", "debug: true\nserver:\n  port: 8080\n")
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// t.TempDir may sit behind a symlink (macOS /var -> /private/var).
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config.yaml", "server:\n  host: \"127.0.0.1\"\n  port: 9000\n")
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func testComponentsConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			DatabasePath:   filepath.Join(dir, "db", "shinbun.db"),
			BleveIndexPath: filepath.Join(dir, "indices", "articles.bleve"),
		},
		Recommend: config.RecommendConfig{CorpusPath: writeFile(t, dir, "news.jsonl", corpusLines)},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestInitializeComponents_RebuildsEmptyIndex(t *testing.T) {
	ctx := context.Background()
	cfg := testComponentsConfig(t)

	c, err := initializeComponents(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	for _, title := range []string{"Stocks rally", "New phone"} {
		a := &models.Article{SourceName: "Wire", Title: title, URL: "https://example.com", PublishedAt: time.Now().UTC(), Content: title}
		if err := c.Storage.CreateArticle(ctx, a); err != nil {
			t.Fatal(err)
		}
	}
	c.Close()

	// Index directory lost; the database still has the articles.
	if err := os.RemoveAll(cfg.Storage.BleveIndexPath); err != nil {
		t.Fatal(err)
	}
	c, err = initializeComponents(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if n, _ := c.Index.DocCount(); n != 2 {
		t.Errorf("indexed = %d, want 2", n)
	}
}

func TestLocalStatus(t *testing.T) {
	cfg := testComponentsConfig(t)
	st, err := localStatus(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Model.Loaded || st.Model.Documents != 3 || st.Model.TopK != 3 || st.Users != 0 {
		t.Errorf("status = %+v", st)
	}
	if st.DiskUsageBytes <= 0 {
		t.Errorf("disk usage = %d", st.DiskUsageBytes)
	}
	if len(st.Model.Categories) != 3 || st.Model.Categories[0] != "BUSINESS" {
		t.Errorf("categories = %v", st.Model.Categories)
	}
}

func TestStartCorpusWatcher_MissingDirectory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "not-yet", "news.jsonl")
	cfg := &config.Config{Recommend: config.RecommendConfig{CorpusPath: path, Debounce: 20 * time.Millisecond}}
	config.ApplyDefaults(cfg)
	svc := recommend.NewService(path, 1)
	if err := svc.Load(ctx); err == nil {
		t.Fatal("Load should fail before the corpus exists")
	}

	w, err := startCorpusWatcher(ctx, cfg, svc, zap.NewNop())
	if err != nil {
		t.Fatalf("startCorpusWatcher: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte(corpusLines), 0600); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for !svc.Stats().Loaded {
		if time.Now().After(deadline) {
			t.Fatalf("model not loaded after the corpus appeared: %+v", svc.Stats())
		}
		time.Sleep(20 * time.Millisecond)
	}
}
