package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Document Source errors
var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrExtractionFailed  = errors.New("could not extract text from document")
)

const (
	// HTTP timeout for fetching a document URL
	DocumentFetchTimeout = 30 * time.Second

	// User agent for document fetches
	DocumentFetchUserAgent = "Debate-Bench-Document-Fetcher/1.0"
)

// SupportedExtensions lists the uploadable file types
var SupportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".html": true,
	".htm":  true,
}

// ExtractText wraps pasted text as a document
func ExtractText(text string) (*Document, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: no text provided", ErrExtractionFailed)
	}
	return &Document{
		Filename:  "pasted-text.txt",
		Text:      text,
		CharCount: len(text),
		Preview:   makePreview(text),
	}, nil
}

// ExtractDocument extracts plain text from an uploaded file based on its
// extension. Plain text formats are read directly; HTML is stripped to
// its visible text.
func ExtractDocument(filename string, data []byte) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !SupportedExtensions[ext] {
		return nil, fmt.Errorf("%w: %q (supported: .txt, .md, .html, .htm)", ErrUnsupportedFormat, ext)
	}

	var text string
	switch ext {
	case ".html", ".htm":
		extracted, err := extractHTMLText(strings.NewReader(string(data)))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		}
		text = extracted
	default:
		text = string(data)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: file appears to be empty", ErrExtractionFailed)
	}

	return &Document{
		Filename:  filepath.Base(filename),
		Text:      text,
		CharCount: len(text),
		Preview:   makePreview(text),
	}, nil
}

// FetchDocumentFromURL downloads a page and extracts its visible text
func FetchDocumentFromURL(ctx context.Context, rawURL string) (*Document, error) {
	client := &http.Client{Timeout: DocumentFetchTimeout}

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", DocumentFetchUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: URL returned status %d", ErrExtractionFailed, resp.StatusCode)
	}

	text, err := extractHTMLText(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: page has no extractable text", ErrExtractionFailed)
	}

	return &Document{
		Filename:  rawURL,
		Text:      text,
		CharCount: len(text),
		Preview:   makePreview(text),
	}, nil
}

// extractHTMLText strips markup and returns normalized visible text
func extractHTMLText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	// Drop non-content elements before reading text
	doc.Find("script, style, noscript, nav, header, footer").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		return strings.TrimSpace(doc.Text()), nil
	}

	// Collapse runs of whitespace left behind by removed markup
	var parts []string
	for _, field := range strings.Fields(body.Text()) {
		parts = append(parts, field)
	}
	return strings.Join(parts, " "), nil
}

// makePreview returns the first DocumentPreviewLimit characters of text
func makePreview(text string) string {
	runes := []rune(text)
	if len(runes) <= DocumentPreviewLimit {
		return text
	}
	return string(runes[:DocumentPreviewLimit]) + "…"
}
