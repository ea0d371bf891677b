// Package main is the Shinbun CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shinbun/internal/auth"
	"github.com/hyperjump/shinbun/internal/cli"
	"github.com/hyperjump/shinbun/internal/config"
	"github.com/hyperjump/shinbun/internal/keyword"
	"github.com/hyperjump/shinbun/internal/models"
	"github.com/hyperjump/shinbun/internal/recommend"
	"github.com/hyperjump/shinbun/internal/server"
	"github.com/hyperjump/shinbun/internal/storage"
	"github.com/hyperjump/shinbun/internal/watcher"
	"github.com/hyperjump/shinbun/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/shinbun/config.yaml"
	envToken          = "SHINBUN_TOKEN"
)

// loadConfig loads config from path. When path is the default and config.yaml exists in
// the current directory, that file is used instead so "shinbun server" works from a
// checkout. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "recommend":
		runRecommend()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("shinbun version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config %s:\n%v\n", resolvedConfigPath, err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode, cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	// A corpus that fails to load is reported by /status and by every recommendation
	// until a reload succeeds.
	_ = components.Recommender.Load(ctx)

	if cfg.Recommend.WatchOrDefault() {
		w, err := startCorpusWatcher(ctx, cfg, components.Recommender, logger)
		if err != nil {
			logger.Warn("corpus watcher not started; restart to pick up corpus changes", zap.Error(err))
		} else {
			defer w.Stop()
		}
	}

	tokens, err := auth.NewTokenManager(&cfg.Auth)
	if err != nil {
		logger.Fatal("Failed to create token manager", zap.Error(err))
	}
	srv := server.NewServer(
		components.Storage,
		components.Index,
		components.Recommender,
		tokens,
		cfg,
		server.WithLogger(logger),
	)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

// startCorpusWatcher rebuilds the model whenever the corpus file is written or created.
// The corpus directory is created if missing so a corpus dropped in later is still seen.
func startCorpusWatcher(ctx context.Context, cfg *config.Config, svc *recommend.Service, logger *zap.Logger) (*watcher.Watcher, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Recommend.CorpusPath), 0755); err != nil {
		return nil, fmt.Errorf("create corpus directory: %w", err)
	}
	w, err := watcher.NewWatcher(
		[]string{cfg.Recommend.CorpusPath},
		func(path string) {
			logger.Info("corpus changed, reloading", zap.String("path", path))
			_ = svc.Reload(ctx)
		},
		watcher.WithLogger(logger),
		watcher.WithDebounce(cfg.Recommend.Debounce),
		watcher.WithRemoveHandler(func(path string) {
			logger.Warn("corpus removed; serving the last loaded model", zap.String("path", path))
		}),
	)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	logger.Info("watching corpus", zap.Strings("files", w.Files()))
	return w, nil
}

// printRecommendUsage prints recommend subcommand usage.
func printRecommendUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: shinbun recommend [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Without --server the corpus is loaded and ranked locally, once.

Examples:
  shinbun recommend stocks rally on strong earnings
  shinbun recommend --corpus ./data/news_category.jsonl --explain "new phone"
  shinbun recommend --server http://localhost:8080 --token $SHINBUN_TOKEN election results
`)
}

// buildQuery joins all positional args with spaces so multi-word queries work the same
// with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves flags that appear after the query to the front so flag.Parse sees
// them; the flag package stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

type recommendOptions struct {
	configPath string
	corpusPath string
	k          int
	serverURL  string
	token      string
	explain    bool
	format     cli.OutputFormat
	query      string
}

func parseRecommendArgs(args []string) (*recommendOptions, error) {
	fs := flag.NewFlagSet("recommend", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	corpusPath := fs.String("corpus", "", "corpus file (overrides recommend.corpus_path)")
	k := fs.Int("k", 0, "number of categories (default recommend.top_k)")
	serverURL := fs.String("server", "", "server URL; empty computes locally")
	token := fs.String("token", os.Getenv(envToken), "access token for --server (default $"+envToken+")")
	explain := fs.Bool("explain", false, "show the matched headlines and scores")
	output := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printRecommendUsage(fs) }
	if err := fs.Parse(argsReorder(args)); err != nil {
		return nil, err
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return nil, err
	}
	query := buildQuery(fs.Args())
	if query == "" {
		fs.Usage()
		return nil, errors.New("query is required")
	}
	if *k < 0 {
		return nil, fmt.Errorf("--k must be positive, got %d", *k)
	}
	return &recommendOptions{
		configPath: *configPath,
		corpusPath: *corpusPath,
		k:          *k,
		serverURL:  *serverURL,
		token:      *token,
		explain:    *explain,
		format:     format,
		query:      query,
	}, nil
}

func runRecommend() {
	opts, err := parseRecommendArgs(os.Args[2:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	var resp *models.RecommendResponse
	if opts.serverURL != "" {
		resp, err = cli.NewClient(opts.serverURL, opts.token).Recommend(context.Background(), opts.query, opts.explain)
	} else {
		resp, err = recommendLocal(opts)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Recommendation failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRecommendation(os.Stdout, resp, opts.format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// recommendLocal runs the whole pipeline once against the corpus file. The config file
// is optional when --corpus is given.
func recommendLocal(opts *recommendOptions) (*models.RecommendResponse, error) {
	corpusPath, k := opts.corpusPath, opts.k
	if corpusPath == "" || k == 0 {
		cfg, _, err := loadConfig(opts.configPath)
		switch {
		case err == nil:
			if corpusPath == "" {
				corpusPath = cfg.Recommend.CorpusPath
			}
			if k == 0 {
				k = cfg.Recommend.TopK
			}
		case corpusPath == "":
			return nil, err
		}
	}
	if k == 0 {
		k = recommend.DefaultK
	}

	start := time.Now()
	res, err := recommend.Recommend(corpusPath, opts.query, k)
	if err != nil {
		return nil, err
	}
	return toResponse(res, opts.explain, time.Since(start)), nil
}

func toResponse(res *recommend.Result, explain bool, took time.Duration) *models.RecommendResponse {
	resp := &models.RecommendResponse{
		Query:      res.Query,
		Categories: res.Categories,
		QueryTime:  took.Milliseconds(),
	}
	if explain {
		for _, m := range res.Matches {
			resp.Matches = append(resp.Matches, models.RecommendMatch{
				Rank:     m.Rank,
				Headline: m.Headline,
				Category: m.Category,
				Score:    m.Score,
			})
		}
	}
	return resp
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL; empty reads the local database and corpus")
	token := fs.String("token", os.Getenv(envToken), "access token for --server (default $"+envToken+")")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	var st *models.StatusResponse
	if *serverURL != "" {
		st, err = cli.NewClient(*serverURL, *token).Status(context.Background())
	} else {
		var cfg *config.Config
		cfg, _, err = loadConfig(*configPath)
		if err == nil {
			st, err = localStatus(context.Background(), cfg)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// localStatus opens the database and index directly. It must not run while the server
// holds the Bleve index lock.
func localStatus(ctx context.Context, cfg *config.Config) (*models.StatusResponse, error) {
	components, err := initializeComponents(ctx, cfg, zap.NewNop())
	if err != nil {
		return nil, err
	}
	defer components.Close()
	_ = components.Recommender.Load(ctx)

	users, err := components.Storage.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	articles, err := components.Storage.CountArticles(ctx)
	if err != nil {
		return nil, err
	}
	indexed, _ := components.Index.DocCount()
	disk, _ := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath, cfg.Recommend.CorpusPath)

	stats := components.Recommender.Stats()
	st := &models.StatusResponse{
		Users:           int(users),
		Articles:        int(articles),
		IndexedArticles: indexed,
		DiskUsageBytes:  disk,
		Model: models.ModelStatus{
			Loaded:         stats.Loaded,
			Source:         stats.Source,
			Documents:      stats.Documents,
			Categories:     stats.Categories,
			VocabularySize: stats.VocabularySize,
			TopK:           stats.TopK,
			LastError:      stats.LastError,
		},
	}
	if !stats.BuiltAt.IsZero() {
		st.Model.BuiltAt = stats.BuiltAt.UTC().Format(time.RFC3339)
	}
	return st, nil
}

// Components holds the long-lived dependencies of the server.
type Components struct {
	Storage     *storage.SQLiteStorage
	Index       *keyword.BleveIndex
	Recommender *recommend.Service
}

// Close releases the database and index.
func (c *Components) Close() {
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}
	idx, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	c := &Components{
		Storage: store,
		Index:   idx,
		Recommender: recommend.NewService(cfg.Recommend.CorpusPath, cfg.Recommend.TopK,
			recommend.WithLogger(logger),
			recommend.WithCacheSize(cfg.Recommend.CacheSize)),
	}
	if err := syncIndex(ctx, store, idx, logger); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// syncIndex rebuilds the keyword index from the database when the index is empty but
// articles exist, e.g. after the index directory was deleted.
func syncIndex(ctx context.Context, store storage.Storage, idx keyword.ArticleIndex, logger *zap.Logger) error {
	indexed, err := idx.DocCount()
	if err != nil {
		return err
	}
	stored, err := store.CountArticles(ctx)
	if err != nil {
		return err
	}
	if indexed > 0 || stored == 0 {
		return nil
	}
	articles, err := store.ListArticles(ctx, 0, 0)
	if err != nil {
		return err
	}
	logger.Info("rebuilding article index", zap.Int("articles", len(articles)))
	return idx.Reindex(ctx, articles)
}

func printUsage() {
	fmt.Print(`Shinbun - news aggregation backend with content-based recommendations

Usage:
  shinbun <command> [flags]

Commands:
  server     Start the HTTP API server
  recommend  Recommend categories for a piece of text
  status     Show database, index and model status
  version    Show version information
  help       Show this help message

Server flags:
  --config PATH   Config file (default: /usr/local/etc/shinbun/config.yaml, or ./config.yaml)
  --debug         Enable debug logging

Recommend flags:
  --corpus PATH   Corpus file (JSON lines with headline, short_description, category)
  --k N           Number of categories to return
  --server URL    Ask a running server instead of computing locally
  --token TOKEN   Access token for --server (default: $SHINBUN_TOKEN)
  --explain       Show matched headlines and scores
  --output FMT    text or json

Status flags:
  --config PATH, --server URL, --token TOKEN, --output FMT

The JWT signing secret may be supplied through SHINBUN_JWT_SECRET instead of the config file.
`)
}
