package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
)

// supportedExtensions lists the file types the loader understands.
var supportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".html": true,
	".htm":  true,
}

// listSources returns the loadable files in dir, sorted by name for
// deterministic chunk ordering.
func listSources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading source directory: %w", err)
	}

	var sources []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			sources = append(sources, entry.Name())
		}
	}
	sort.Strings(sources)
	return sources, nil
}

// loadText extracts plain text from raw file content based on the
// file extension.
func loadText(ctx context.Context, content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".txt", ".md":
		docs, err := documentloaders.NewText(bytes.NewReader(content)).Load(ctx)
		if err != nil {
			return "", fmt.Errorf("loading text: %w", err)
		}
		return joinDocuments(docs, "\n\n"), nil

	case ".csv":
		docs, err := documentloaders.NewCSV(bytes.NewReader(content)).Load(ctx)
		if err != nil {
			return "", fmt.Errorf("loading csv: %w", err)
		}
		return joinDocuments(docs, "\n"), nil

	case ".html", ".htm":
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
		if err != nil {
			return "", fmt.Errorf("parsing html: %w", err)
		}
		doc.Find("script, style, noscript").Remove()
		return normalizeSpace(doc.Text()), nil

	default:
		return "", fmt.Errorf("unsupported extension %q", ext)
	}
}

// joinDocuments concatenates loader output into a single string.
func joinDocuments(docs []schema.Document, sep string) string {
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		if content := strings.TrimSpace(doc.PageContent); content != "" {
			parts = append(parts, content)
		}
	}
	return strings.Join(parts, sep)
}

// normalizeSpace trims each line and drops blank runs, which is enough
// cleanup for text extracted from rendered HTML.
func normalizeSpace(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n")
}
