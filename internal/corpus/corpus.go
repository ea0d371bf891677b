// Package corpus loads the categorized news corpus used for recommendations.
package corpus

import "strings"

// Document is one categorized corpus record.
type Document struct {
	Headline         string `json:"headline"`
	ShortDescription string `json:"short_description"`
	Category         string `json:"category"`
}

// CombinedText returns headline, short description and category joined by single spaces.
func (d Document) CombinedText() string {
	return strings.Join([]string{d.Headline, d.ShortDescription, d.Category}, " ")
}

// Corpus is an ordered, index-addressable sequence of documents.
// Order is the source order and is what similarity scores are mapped back to.
type Corpus struct {
	Source    string
	Documents []Document
}

// Len returns the number of documents.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Documents)
}

// Texts returns the combined text of every document, in corpus order.
func (c *Corpus) Texts() []string {
	texts := make([]string, c.Len())
	for i, d := range c.Documents {
		texts[i] = d.CombinedText()
	}
	return texts
}

// Categories returns the distinct categories in order of first appearance.
func (c *Corpus) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range c.Documents {
		if !seen[d.Category] {
			seen[d.Category] = true
			out = append(out, d.Category)
		}
	}
	return out
}
