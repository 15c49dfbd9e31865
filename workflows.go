package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrUnknownWorkflow is returned for workflow ids outside the registry
var ErrUnknownWorkflow = errors.New("unknown workflow")

// WorkflowRegistry lists the five legal workflow instruction files.
// Each file holds the full instruction text a model executes.
var WorkflowRegistry = []Workflow{
	{
		ID:          "review-contract",
		Name:        "Contract Review",
		File:        "review-contract.md",
		Description: "Clause-by-clause contract review with RED/YELLOW/GREEN playbook flags and redline suggestions",
		Icon:        "📋",
	},
	{
		ID:          "triage-nda",
		Name:        "NDA Triage",
		File:        "triage-nda.md",
		Description: "Pre-screen and classify NDAs using 12 screening criteria with GREEN/YELLOW/RED routing",
		Icon:        "🔍",
	},
	{
		ID:          "brief",
		Name:        "Legal Brief",
		File:        "brief.md",
		Description: "Generate legal team briefings — daily brief, topic brief, or incident brief",
		Icon:        "📰",
	},
	{
		ID:          "respond",
		Name:        "Response Generation",
		File:        "respond.md",
		Description: "Generate legal responses from templates — DSR, discovery hold, vendor Q&A, NDA requests",
		Icon:        "✉️",
	},
	{
		ID:          "vendor-check",
		Name:        "Vendor Check",
		File:        "vendor-check.md",
		Description: "Consolidated vendor agreement status check across connected systems",
		Icon:        "🏢",
	},
}

// automationPreamble is prepended to every workflow before it reaches a
// model. The workflows were written for interactive use; without this the
// models stop mid-analysis to ask setup questions.
const automationPreamble = `
## OPERATING MODE: AUTOMATED BATCH ANALYSIS

You are running in automated batch mode — NOT in an interactive conversation.

**Critical rules that override all workflow steps below:**
1. **DO NOT ask the user any questions.** The document and all available context have already been provided. Proceed immediately to the analysis.
2. **DO NOT wait for input.** Any workflow step that says "ask the user", "prompt the user", or "gather context" should be skipped or satisfied using the context notes provided.
3. **Use context notes as your answers.** If context notes are provided, treat them as the user's answers to any setup questions. If a piece of context is missing (e.g., no deadline given), state your assumption briefly and continue.
4. **If no playbook is configured**, proceed immediately with general commercial standards as the baseline and note this clearly.
5. **If no external system is connected**, skip those steps and note that they are unavailable.
6. **Produce a complete, standalone analysis** in a single response using the output format specified in the workflow.

---
`

// workflowByID looks up a registry entry
func workflowByID(id string) (Workflow, bool) {
	for _, w := range WorkflowRegistry {
		if w.ID == id {
			return w, true
		}
	}
	return Workflow{}, false
}

// ListWorkflows returns the registry for the UI
func ListWorkflows() []Workflow {
	return WorkflowRegistry
}

// GetWorkflowName returns the display name for a workflow id, falling
// back to the id itself
func GetWorkflowName(id string) string {
	if w, ok := workflowByID(id); ok {
		return w.Name
	}
	return id
}

// LoadWorkflow reads the raw instruction text for a workflow
func LoadWorkflow(id string) (string, error) {
	w, ok := workflowByID(id)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownWorkflow, id)
	}

	path := filepath.Join(WorkflowsDir, w.File)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read workflow file %s: %w", path, err)
	}
	return string(data), nil
}

// LoadWorkflowForAutomation reads a workflow with the automation preamble
// prepended. Use this for all model calls.
func LoadWorkflowForAutomation(id string) (string, error) {
	raw, err := LoadWorkflow(id)
	if err != nil {
		return "", err
	}
	return automationPreamble + raw, nil
}
