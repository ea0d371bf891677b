// Package tfidf builds TF-IDF vectors over a fixed corpus.
package tfidf

import (
	"fmt"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	bleveregexp "github.com/blevesearch/bleve/v2/analysis/tokenizer/regexp"
	"github.com/blevesearch/bleve/v2/registry"
)

// Analyzer turns text into index terms.
type Analyzer interface {
	Terms(text string) []string
}

const (
	alnumTokenizerName  = "shinbun_alnum"
	englishAnalyzerName = "shinbun_english"

	// alnumPattern keeps runs of letters and digits; everything else is a boundary.
	alnumPattern = `[\p{L}\p{N}]+`
)

// BleveAnalyzer runs a bleve analysis chain: alphanumeric tokenizer, lower-case filter,
// and bleve's English stop-word list (stop_en, the Snowball English list).
type BleveAnalyzer struct {
	analyzer interface {
		Analyze([]byte) analysis.TokenStream
	}
}

// NewEnglishAnalyzer returns the default analyzer used for corpus and queries.
func NewEnglishAnalyzer() (*BleveAnalyzer, error) {
	cache := registry.NewCache()
	if _, err := cache.DefineTokenizer(alnumTokenizerName, map[string]interface{}{
		"type":   bleveregexp.Name,
		"regexp": alnumPattern,
	}); err != nil {
		return nil, fmt.Errorf("define tokenizer: %w", err)
	}
	a, err := cache.DefineAnalyzer(englishAnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     alnumTokenizerName,
		"token_filters": []interface{}{lowercase.Name, en.StopName},
	})
	if err != nil {
		return nil, fmt.Errorf("define analyzer: %w", err)
	}
	return &BleveAnalyzer{analyzer: a}, nil
}

// Terms returns the surviving terms of text in order of appearance (duplicates kept).
func (b *BleveAnalyzer) Terms(text string) []string {
	stream := b.analyzer.Analyze([]byte(text))
	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		if len(tok.Term) == 0 {
			continue
		}
		terms = append(terms, string(tok.Term))
	}
	return terms
}
