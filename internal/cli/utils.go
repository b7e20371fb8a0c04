// Package cli provides CLI output utilities for Miru.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperjump/miru/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms (mode: %s)\n\n",
		response.Total, response.QueryTime, response.Mode)
	for rank, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Similarity: %.4f", rank+1, result.Similarity)
		if result.KeywordScore != 0 {
			fmt.Fprintf(w, " (Keyword: %.4f)", result.KeywordScore)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "ID: %d | %s\n", result.ID, result.OriginalFilename)
		fmt.Fprintf(w, "Path: %s\n", result.Path)
		fmt.Fprintf(w, "\n%s\n", Truncate(result.Description, 200))
		fmt.Fprintln(w)
	}
}

// WriteImageList writes image summaries to w in the given format.
func WriteImageList(w io.Writer, images []*models.ImageSummary, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(images)
	default:
		fmt.Fprintf(w, "\n%d images stored\n\n", len(images))
		for _, img := range images {
			fmt.Fprintf(w, "%6d  %s  %s\n", img.ID, img.UploadedAt.Format("2006-01-02 15:04:05"), img.OriginalFilename)
			fmt.Fprintf(w, "        %s\n", Truncate(img.Description, 120))
		}
		return nil
	}
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
