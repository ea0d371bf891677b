package recommend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/shinbun/internal/corpus"
	"github.com/hyperjump/shinbun/internal/tfidf"
)

const threeDocs = `{"headline":"Stocks rally","short_description":"Markets up today","category":"BUSINESS"}
{"headline":"New phone released","short_description":"Tech giant unveils device","category":"TECH"}
{"headline":"Election results","short_description":"Votes counted nationwide","category":"POLITICS"}
`

const twoDocs = `{"headline":"Stocks rally","short_description":"Markets up today","category":"BUSINESS"}
{"headline":"New phone released","short_description":"Tech giant unveils device","category":"TECH"}
`

func writeCorpus(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "news.jsonl")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRecommend_Business(t *testing.T) {
	path := writeCorpus(t, threeDocs)
	res, err := Recommend(path, "stocks markets", DefaultK)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Categories) != DefaultK {
		t.Fatalf("got %d categories, want %d", len(res.Categories), DefaultK)
	}
	if res.Categories[0] != "BUSINESS" {
		t.Errorf("top category = %s, want BUSINESS", res.Categories[0])
	}
	// The other two share nothing with the query and keep corpus order.
	if res.Categories[1] != "TECH" || res.Categories[2] != "POLITICS" {
		t.Errorf("tail = %v, want [TECH POLITICS]", res.Categories[1:])
	}
}

func TestRecommend_InsufficientDocuments(t *testing.T) {
	path := writeCorpus(t, twoDocs)
	_, err := Recommend(path, "stocks markets", 3)
	if !errors.Is(err, ErrInsufficientDocuments) {
		t.Fatalf("error = %v, want ErrInsufficientDocuments", err)
	}
}

func TestRecommend_StopWordQuery(t *testing.T) {
	path := writeCorpus(t, threeDocs)
	for _, q := range []string{"the and of", "", "   "} {
		if _, err := Recommend(path, q, DefaultK); !errors.Is(err, tfidf.ErrEmptyQuery) {
			t.Errorf("Recommend(%q) error = %v, want ErrEmptyQuery", q, err)
		}
	}
}

func TestRecommend_DataSourceErrors(t *testing.T) {
	_, err := Recommend(filepath.Join(t.TempDir(), "missing.jsonl"), "stocks", DefaultK)
	if !errors.Is(err, corpus.ErrDataSource) {
		t.Errorf("missing file error = %v, want ErrDataSource", err)
	}

	path := writeCorpus(t, `{"headline":"x","short_description":"y"}`+"\n")
	_, err = Recommend(path, "stocks", 1)
	var dsErr *corpus.DataSourceError
	if !errors.As(err, &dsErr) || dsErr.Line != 1 {
		t.Errorf("malformed record error = %v, want DataSourceError at line 1", err)
	}
}

func TestRecommend_EmptyCorpus(t *testing.T) {
	path := writeCorpus(t, "\n\n")
	if _, err := Recommend(path, "stocks", 1); !errors.Is(err, tfidf.ErrEmptyCorpus) {
		t.Errorf("error = %v, want ErrEmptyCorpus", err)
	}
}

func TestModel_SelfSimilarityFirst(t *testing.T) {
	c, err := corpus.Read(strings.NewReader(threeDocs), "test")
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewModel(c, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, doc := range c.Documents {
		res, err := m.Recommend(doc.CombinedText(), DefaultK)
		if err != nil {
			t.Fatal(err)
		}
		if res.Matches[0].Index != i {
			t.Errorf("query of doc %d ranked doc %d first", i, res.Matches[0].Index)
		}
		for _, match := range res.Matches {
			if match.Score < 0 || match.Score > 1 {
				t.Errorf("score %v out of [0,1]", match.Score)
			}
		}
	}
}

func TestModel_Idempotent(t *testing.T) {
	c, err := corpus.Read(strings.NewReader(threeDocs), "test")
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewModel(c, nil)
	if err != nil {
		t.Fatal(err)
	}
	first, err := m.Recommend("phone markets election", DefaultK)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Recommend("phone markets election", DefaultK)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ:\n%+v\n%+v", first, second)
	}
}

func TestModel_UnseenQueryRejected(t *testing.T) {
	c, err := corpus.Read(strings.NewReader(threeDocs), "test")
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewModel(c, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := m.Recommend("zebra giraffe quantum", DefaultK)
	if !errors.Is(err, tfidf.ErrEmptyQuery) {
		t.Fatalf("Recommend = %+v, %v; want ErrEmptyQuery", res, err)
	}
	if _, err := m.Recommend("zebra stocks", DefaultK); err != nil {
		t.Errorf("one known term should be enough: %v", err)
	}
}

func TestRank(t *testing.T) {
	docs := []tfidf.Vector{
		{Indices: []int{0}, Weights: []float64{1}},
		{Indices: []int{1}, Weights: []float64{1}},
		{Indices: []int{0, 1}, Weights: []float64{0.6, 0.8}},
	}
	query := tfidf.Vector{Indices: []int{1}, Weights: []float64{1}}

	top, err := Rank(query, docs, 2)
	if err != nil {
		t.Fatal(err)
	}
	if top[0].Index != 1 || top[1].Index != 2 {
		t.Errorf("Rank order = %+v", top)
	}
	if _, err := Rank(query, docs, 0); !errors.Is(err, ErrInvalidK) {
		t.Errorf("k=0 error = %v", err)
	}
	if _, err := Rank(query, docs, 4); !errors.Is(err, ErrInsufficientDocuments) {
		t.Errorf("k=4 error = %v", err)
	}
}

func TestService_LoadAndRecommend(t *testing.T) {
	path := writeCorpus(t, threeDocs)
	svc := NewService(path, DefaultK)

	if _, err := svc.Recommend(context.Background(), "stocks"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("before Load: error = %v, want ErrNotLoaded", err)
	}
	if err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	res, err := svc.Recommend(context.Background(), "stocks markets")
	if err != nil {
		t.Fatal(err)
	}
	if res.Categories[0] != "BUSINESS" {
		t.Errorf("top category = %s", res.Categories[0])
	}
	st := svc.Stats()
	if !st.Loaded || st.Documents != 3 || st.VocabularySize == 0 || st.TopK != DefaultK || st.Source != path {
		t.Errorf("unexpected stats %+v", st)
	}
	if want := []string{"BUSINESS", "TECH", "POLITICS"}; !reflect.DeepEqual(st.Categories, want) {
		t.Errorf("Categories = %v, want %v", st.Categories, want)
	}
}

func TestService_LoadFailureSurfaces(t *testing.T) {
	svc := NewService(filepath.Join(t.TempDir(), "missing.jsonl"), DefaultK)
	if err := svc.Load(context.Background()); !errors.Is(err, corpus.ErrDataSource) {
		t.Fatalf("Load error = %v", err)
	}
	if _, err := svc.Recommend(context.Background(), "stocks"); !errors.Is(err, corpus.ErrDataSource) {
		t.Errorf("Recommend error = %v, want the load error", err)
	}
	if st := svc.Stats(); st.Loaded || st.LastError == "" {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestService_FailedReloadKeepsModel(t *testing.T) {
	path := writeCorpus(t, threeDocs)
	svc := NewService(path, DefaultK)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := svc.Model()

	if err := os.WriteFile(path, []byte("{not json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := svc.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error")
	}
	if svc.Model() != before {
		t.Error("failed reload replaced the model")
	}
	if _, err := svc.Recommend(context.Background(), "stocks markets"); err != nil {
		t.Errorf("Recommend after failed reload: %v", err)
	}
	if svc.Stats().LastError == "" {
		t.Error("Stats should report the reload error")
	}

	if err := os.WriteFile(path, []byte(twoDocs), 0644); err != nil {
		t.Fatal(err)
	}
	if err := svc.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	if svc.Model() == before || svc.Stats().Documents != 2 {
		t.Error("successful reload did not swap the model")
	}
	if _, err := svc.Recommend(context.Background(), "stocks"); !errors.Is(err, ErrInsufficientDocuments) {
		t.Errorf("error = %v, want ErrInsufficientDocuments", err)
	}
}

func TestService_CacheFollowsModel(t *testing.T) {
	path := writeCorpus(t, threeDocs)
	svc := NewService(path, 1, WithCacheSize(8))
	ctx := context.Background()
	if err := svc.Load(ctx); err != nil {
		t.Fatal(err)
	}
	first, err := svc.Recommend(ctx, "election")
	if err != nil {
		t.Fatal(err)
	}
	first.Categories[0] = "MUTATED"
	first.Matches[0].Category = "MUTATED"
	again, err := svc.Recommend(ctx, "election")
	if err != nil || len(again.Categories) != 1 || again.Categories[0] != "POLITICS" || again.Matches[0].Category != "POLITICS" {
		t.Fatalf("cached result = %+v, %v", again, err)
	}
	spaced, err := svc.Recommend(ctx, "  election ")
	if err != nil || spaced.Query != "  election " {
		t.Errorf("whitespace variant = %+v, %v", spaced, err)
	}
	if svc.cache.len() != 1 {
		t.Errorf("cache len = %d, want 1", svc.cache.len())
	}

	relabeled := strings.Replace(threeDocs, `"POLITICS"`, `"WORLD"`, 1)
	if err := os.WriteFile(path, []byte(relabeled), 0644); err != nil {
		t.Fatal(err)
	}
	if err := svc.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	res, err := svc.Recommend(ctx, "election")
	if err != nil || res.Categories[0] != "WORLD" {
		t.Errorf("after reload = %+v, %v", res, err)
	}
}

func TestOutcome(t *testing.T) {
	cases := map[string]error{
		"ok":                     nil,
		"empty_query":            tfidf.ErrEmptyQuery,
		"insufficient_documents": ErrInsufficientDocuments,
		"data_source":            &corpus.DataSourceError{Source: "x", Err: errors.New("boom")},
		"not_loaded":             ErrNotLoaded,
		"error":                  errors.New("other"),
	}
	for want, err := range cases {
		if got := Outcome(err); got != want {
			t.Errorf("Outcome(%v) = %s, want %s", err, got, want)
		}
	}
}
