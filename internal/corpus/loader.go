package corpus

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"
)

// maxLineSize bounds a single JSON record.
const maxLineSize = 1 << 20

// ErrDataSource is the sentinel matched by every DataSourceError.
var ErrDataSource = errors.New("corpus data source error")

// DataSourceError reports an unreadable source or a malformed record.
// Line is 1-based; zero means the source itself could not be opened or read.
type DataSourceError struct {
	Source string
	Line   int
	Err    error
}

func (e *DataSourceError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s line %d: %v", ErrDataSource, e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrDataSource, e.Source, e.Err)
}

func (e *DataSourceError) Unwrap() []error { return []error{ErrDataSource, e.Err} }

// record mirrors one corpus line. Pointers distinguish absent/null fields from empty strings.
type record struct {
	Headline         *string `json:"headline"`
	ShortDescription *string `json:"short_description"`
	Category         *string `json:"category"`
}

// Load reads the JSON-lines corpus at path.
func Load(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DataSourceError{Source: path, Err: err}
	}
	defer f.Close()
	return Read(f, path)
}

// Read parses one JSON object per line from r, preserving line order.
// The first malformed line aborts the whole read. Blank lines are skipped.
func Read(r io.Reader, source string) (*Corpus, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	c := &Corpus{Source: source}
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		doc, err := decodeRecord(raw)
		if err != nil {
			return nil, &DataSourceError{Source: source, Line: line, Err: err}
		}
		c.Documents = append(c.Documents, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, &DataSourceError{Source: source, Line: line + 1, Err: err}
	}
	return c, nil
}

func decodeRecord(raw []byte) (Document, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Document{}, fmt.Errorf("invalid JSON record: %w", err)
	}
	if rec.Headline == nil {
		return Document{}, errors.New(`missing field "headline"`)
	}
	if rec.ShortDescription == nil {
		return Document{}, errors.New(`missing field "short_description"`)
	}
	if rec.Category == nil {
		return Document{}, errors.New(`missing field "category"`)
	}
	if strings.TrimSpace(*rec.Category) == "" {
		return Document{}, errors.New(`field "category" is blank`)
	}
	return Document{
		Headline:         *rec.Headline,
		ShortDescription: *rec.ShortDescription,
		Category:         *rec.Category,
	}, nil
}
