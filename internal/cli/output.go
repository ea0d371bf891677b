// Package cli provides output formatting and an API client for the shinbun command.
package cli

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/hyperjump/shinbun/internal/models"
	"github.com/hyperjump/shinbun/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text", "json" or "" (text).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(OutputText):
		return OutputText, nil
	case string(OutputJSON):
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// WriteRecommendation writes a recommendation to w in the given format.
func WriteRecommendation(w io.Writer, resp *models.RecommendResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "Query: %s\n", utils.Truncate(resp.Query, 80))
	fmt.Fprintf(w, "Categories: %s\n", strings.Join(resp.Categories, ", "))
	if len(resp.Matches) > 0 {
		fmt.Fprintln(w)
		for _, m := range resp.Matches {
			fmt.Fprintf(w, "%d. [%s] %.4f  %s\n", m.Rank, m.Category, m.Score, utils.Truncate(m.Headline, 72))
		}
	}
	if resp.QueryTime > 0 {
		fmt.Fprintf(w, "\n(%dms)\n", resp.QueryTime)
	}
	return nil
}

// WriteStatus writes server status to w in the given format.
func WriteStatus(w io.Writer, st *models.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Users:            %d\n", st.Users)
	fmt.Fprintf(w, "Articles:         %d\n", st.Articles)
	fmt.Fprintf(w, "Indexed articles: %d\n", st.IndexedArticles)
	fmt.Fprintf(w, "Disk usage:       %s\n", FormatBytes(st.DiskUsageBytes))
	fmt.Fprintln(w, "Model:")
	if !st.Model.Loaded {
		fmt.Fprintf(w, "  not loaded (%s)\n", st.Model.Source)
	} else {
		fmt.Fprintf(w, "  source:     %s\n", st.Model.Source)
		fmt.Fprintf(w, "  documents:  %d\n", st.Model.Documents)
		if len(st.Model.Categories) > 0 {
			fmt.Fprintf(w, "  categories: %d (%s)\n", len(st.Model.Categories), strings.Join(st.Model.Categories, ", "))
		}
		fmt.Fprintf(w, "  vocabulary: %d\n", st.Model.VocabularySize)
		fmt.Fprintf(w, "  top k:      %d\n", st.Model.TopK)
		if st.Model.BuiltAt != "" {
			fmt.Fprintf(w, "  built at:   %s\n", st.Model.BuiltAt)
		}
	}
	if st.Model.LastError != "" {
		fmt.Fprintf(w, "  last error: %s\n", st.Model.LastError)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
