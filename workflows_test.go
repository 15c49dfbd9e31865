package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWorkflowRegistryFilesExist(t *testing.T) {
	for _, w := range WorkflowRegistry {
		if _, err := os.Stat(filepath.Join(WorkflowsDir, w.File)); err != nil {
			t.Errorf("Workflow %s: instruction file missing: %v", w.ID, err)
		}
	}
}

func TestLoadWorkflow(t *testing.T) {
	tmpDir := t.TempDir()
	content := "# Contract Review\n\nReview every clause."
	if err := os.WriteFile(filepath.Join(tmpDir, "review-contract.md"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write workflow file: %v", err)
	}

	originalDir := WorkflowsDir
	WorkflowsDir = tmpDir
	defer func() { WorkflowsDir = originalDir }()

	loaded, err := LoadWorkflow("review-contract")
	if err != nil {
		t.Fatalf("LoadWorkflow failed: %v", err)
	}
	if loaded != content {
		t.Errorf("Expected file content, got %q", loaded)
	}
}

func TestLoadWorkflowUnknownID(t *testing.T) {
	_, err := LoadWorkflow("no-such-workflow")
	if !errors.Is(err, ErrUnknownWorkflow) {
		t.Errorf("Expected ErrUnknownWorkflow, got %v", err)
	}
}

func TestLoadWorkflowMissingFile(t *testing.T) {
	originalDir := WorkflowsDir
	WorkflowsDir = t.TempDir() // registry ids are valid but no files exist
	defer func() { WorkflowsDir = originalDir }()

	_, err := LoadWorkflow("brief")
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if errors.Is(err, ErrUnknownWorkflow) {
		t.Error("Missing file is not an unknown workflow")
	}
}

func TestLoadWorkflowForAutomation(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "triage-nda.md"), []byte("# NDA Triage"), 0644); err != nil {
		t.Fatalf("Failed to write workflow file: %v", err)
	}

	originalDir := WorkflowsDir
	WorkflowsDir = tmpDir
	defer func() { WorkflowsDir = originalDir }()

	loaded, err := LoadWorkflowForAutomation("triage-nda")
	if err != nil {
		t.Fatalf("LoadWorkflowForAutomation failed: %v", err)
	}
	if !strings.HasPrefix(loaded, automationPreamble) {
		t.Error("Automation preamble must be prepended")
	}
	if !strings.HasSuffix(loaded, "# NDA Triage") {
		t.Error("Workflow content must follow the preamble")
	}
}

func TestGetWorkflowName(t *testing.T) {
	if got := GetWorkflowName("review-contract"); got != "Contract Review" {
		t.Errorf("Expected display name, got %q", got)
	}
	if got := GetWorkflowName("mystery"); got != "mystery" {
		t.Errorf("Unknown id must fall back to itself, got %q", got)
	}
}

func TestListWorkflows(t *testing.T) {
	workflows := ListWorkflows()
	if len(workflows) != 5 {
		t.Fatalf("Expected 5 workflows, got %d", len(workflows))
	}

	seen := make(map[string]bool)
	for _, w := range workflows {
		if w.ID == "" || w.Name == "" || w.Description == "" {
			t.Errorf("Workflow %+v has empty display fields", w)
		}
		if seen[w.ID] {
			t.Errorf("Duplicate workflow id %s", w.ID)
		}
		seen[w.ID] = true
	}
}
