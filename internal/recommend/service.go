package recommend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyperjump/shinbun/internal/corpus"
	"github.com/hyperjump/shinbun/internal/metrics"
	"github.com/hyperjump/shinbun/internal/tfidf"
	"github.com/hyperjump/shinbun/pkg/utils"
	"go.uber.org/zap"
)

// ErrNotLoaded is returned by Service.Recommend before Load has been called.
var ErrNotLoaded = errors.New("recommendation model not loaded")

// Service serves recommendations from a model built once from the corpus file and
// rebuilt on Reload. Readers never lock: the current model sits behind an atomic pointer.
type Service struct {
	path   string
	k      int
	logger *zap.Logger
	cache  *resultCache

	current atomic.Pointer[Model]
	lastErr atomic.Pointer[loadError]
	reload  sync.Mutex
}

type loadError struct {
	err error
	at  time.Time
}

// Stats describes the loaded model.
type Stats struct {
	Loaded         bool      `json:"loaded"`
	Source         string    `json:"source"`
	Documents      int       `json:"documents"`
	Categories     []string  `json:"categories,omitempty"`
	VocabularySize int       `json:"vocabulary_size"`
	TopK           int       `json:"top_k"`
	BuiltAt        time.Time `json:"built_at,omitempty"`
	LastError      string    `json:"last_error,omitempty"`
	LastErrorAt    time.Time `json:"last_error_at,omitempty"`
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for load and reload events.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithCacheSize caches up to n results per loaded model. n <= 0 disables caching.
func WithCacheSize(n int) ServiceOption {
	return func(s *Service) {
		s.cache = nil
		if n > 0 {
			s.cache = newResultCache(n)
		}
	}
}

// NewService creates a service for the corpus at path returning k categories per query.
// Call Load before serving.
func NewService(path string, k int, opts ...ServiceOption) *Service {
	if k <= 0 {
		k = DefaultK
	}
	s := &Service{path: path, k: k, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the corpus path.
func (s *Service) Path() string { return s.path }

// K returns the number of categories returned per query.
func (s *Service) K() int { return s.k }

// Load builds the initial model. It is Reload under a name that reads well at startup.
func (s *Service) Load(ctx context.Context) error {
	return s.Reload(ctx)
}

// Reload rebuilds the model from the corpus file and swaps it in. On failure the
// previous model, if any, stays in service and the error is recorded.
func (s *Service) Reload(ctx context.Context) error {
	s.reload.Lock()
	defer s.reload.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	m, err := s.build()
	if err != nil {
		s.lastErr.Store(&loadError{err: err, at: time.Now()})
		metrics.ObserveModelLoad(false, 0)
		s.logger.Warn("recommendation model build failed",
			zap.String("corpus", s.path),
			zap.Bool("previous_model_kept", s.current.Load() != nil),
			zap.Error(err))
		return err
	}
	s.current.Store(m)
	s.lastErr.Store(nil)
	metrics.ObserveModelLoad(true, m.Documents())
	s.logger.Info("recommendation model loaded",
		zap.String("corpus", s.path),
		zap.Int("documents", m.Documents()),
		zap.Int("vocabulary", m.VocabularySize()),
		zap.Duration("took", time.Since(start)))
	return nil
}

func (s *Service) build() (*Model, error) {
	c, err := corpus.Load(s.path)
	if err != nil {
		return nil, err
	}
	return NewModel(c, nil)
}

// Model returns the current model, or nil before a successful load.
func (s *Service) Model() *Model { return s.current.Load() }

// Recommend returns the service's K categories for query. Before any successful load it
// returns the last load error (or ErrNotLoaded).
func (s *Service) Recommend(ctx context.Context, query string) (*Result, error) {
	start := time.Now()
	res, err := s.recommend(ctx, query)
	metrics.ObserveRecommendation(Outcome(err), time.Since(start))
	return res, err
}

func (s *Service) recommend(ctx context.Context, query string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := s.current.Load()
	if m == nil {
		if le := s.lastErr.Load(); le != nil {
			return nil, le.err
		}
		return nil, ErrNotLoaded
	}
	if s.cache == nil {
		return m.Recommend(query, s.k)
	}
	key := utils.CollapseSpace(query)
	if res, ok := s.cache.get(m, key); ok {
		res.Query = query
		return res, nil
	}
	res, err := m.Recommend(query, s.k)
	if err != nil {
		return nil, err
	}
	s.cache.set(m, key, res)
	return res, nil
}

// Stats reports the current model and the last load error.
func (s *Service) Stats() Stats {
	st := Stats{Source: s.path, TopK: s.k}
	if m := s.current.Load(); m != nil {
		st.Loaded = true
		st.Source = m.Source()
		st.Documents = m.Documents()
		st.Categories = m.Categories()
		st.VocabularySize = m.VocabularySize()
		st.BuiltAt = m.BuiltAt()
	}
	if le := s.lastErr.Load(); le != nil {
		st.LastError = le.err.Error()
		st.LastErrorAt = le.at
	}
	return st
}

// Outcome classifies err for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, tfidf.ErrEmptyQuery):
		return "empty_query"
	case errors.Is(err, tfidf.ErrEmptyCorpus):
		return "empty_corpus"
	case errors.Is(err, ErrInsufficientDocuments):
		return "insufficient_documents"
	case errors.Is(err, corpus.ErrDataSource):
		return "data_source"
	case errors.Is(err, ErrNotLoaded):
		return "not_loaded"
	default:
		return "error"
	}
}
