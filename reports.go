package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ReportInput gathers everything that goes into an exported report
type ReportInput struct {
	WorkflowName  string
	DocumentName  string
	StandardText  string
	DebateText    string
	ReviewText    string
	StandardUsage TokenUsage
	DebateUsage   TokenUsage
	ReviewUsage   TokenUsage
}

// EnsureReportsDir ensures the reports directory exists
func EnsureReportsDir() error {
	return os.MkdirAll(ReportsDir, 0755)
}

// reportPath returns the markdown file path for a report id
func reportPath(id string) string {
	return filepath.Join(ReportsDir, id+".md")
}

// reportMetaPath returns the metadata sidecar path for a report id
func reportMetaPath(id string) string {
	return filepath.Join(ReportsDir, id+".json")
}

// BuildReportMarkdown renders the full session as a markdown report
func BuildReportMarkdown(in ReportInput, now time.Time) string {
	orDefault := func(s, def string) string {
		if strings.TrimSpace(s) == "" {
			return def
		}
		return s
	}

	var b strings.Builder
	b.WriteString("# Legal AI Analysis Report\n\n")
	b.WriteString(fmt.Sprintf("**Generated:** %s\n", now.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("**Workflow:** %s\n", orDefault(in.WorkflowName, "Unknown Workflow")))
	b.WriteString(fmt.Sprintf("**Document:** %s\n\n", orDefault(in.DocumentName, "Unknown Document")))
	b.WriteString("---\n\n")
	b.WriteString("## Standard Analysis (Single-Pass)\n\n")
	b.WriteString(orDefault(in.StandardText, "*(No output)*"))
	b.WriteString("\n\n---\n\n")
	b.WriteString("## Debate Analysis (Doer/Reviewer Consensus)\n\n")
	b.WriteString(orDefault(in.DebateText, "*(No output)*"))
	b.WriteString("\n\n---\n\n")
	b.WriteString("## Final Review\n\n")
	b.WriteString(orDefault(in.ReviewText, "*(Not run)*"))
	b.WriteString("\n\n---\n\n")
	b.WriteString("## Token Usage Summary\n\n")
	b.WriteString("| Panel | Input Tokens | Output Tokens | Total |\n")
	b.WriteString("|-------|-------------|---------------|-------|\n")

	writeRow := func(panel string, u TokenUsage) {
		b.WriteString(fmt.Sprintf("| %s | %d | %d | %d |\n", panel, u.InputTokens, u.OutputTokens, u.InputTokens+u.OutputTokens))
	}
	writeRow("Standard", in.StandardUsage)
	writeRow("Debate", in.DebateUsage)
	writeRow("Final Review", in.ReviewUsage)

	return b.String()
}

// SaveReport writes a rendered report and its metadata sidecar to disk.
// Returns the stored metadata.
func SaveReport(markdown string, in ReportInput, now time.Time) (*ReportMetadata, error) {
	if err := EnsureReportsDir(); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}

	meta := &ReportMetadata{
		ID:           now.Format("20060102-150405") + "-" + sanitizeReportName(in.WorkflowName),
		CreatedAt:    now.UTC(),
		WorkflowName: in.WorkflowName,
		DocumentName: in.DocumentName,
	}

	if err := os.WriteFile(reportPath(meta.ID), []byte(markdown), 0644); err != nil {
		return nil, fmt.Errorf("failed to write report file: %w", err)
	}

	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report metadata: %w", err)
	}
	if err := os.WriteFile(reportMetaPath(meta.ID), metaBytes, 0644); err != nil {
		return nil, fmt.Errorf("failed to write report metadata: %w", err)
	}

	return meta, nil
}

// LoadReport reads a stored report's markdown by id
func LoadReport(id string) (string, error) {
	data, err := os.ReadFile(reportPath(id))
	if err != nil {
		return "", fmt.Errorf("failed to read report %s: %w", id, err)
	}
	return string(data), nil
}

// ListReports lists stored reports, newest first. Invalid or unreadable
// metadata files are skipped.
func ListReports() ([]ReportMetadata, error) {
	if err := EnsureReportsDir(); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}

	entries, err := os.ReadDir(ReportsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read reports directory: %w", err)
	}

	reports := make([]ReportMetadata, 0)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(ReportsDir, entry.Name()))
		if err != nil {
			continue
		}

		var meta ReportMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		reports = append(reports, meta)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})

	return reports, nil
}

// sanitizeReportName reduces a display name to a filesystem-safe slug
func sanitizeReportName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "report"
	}
	return b.String()
}
