package main

import (
	"fmt"
	"strings"
)

// System prompts for the debate roles. The workflow instructions are
// substituted into the role templates per run.

const doerSystemTemplate = `You are the DOER — a meticulous legal analyst executing this analysis workflow.

WORKFLOW TO FOLLOW:
%s

INSTRUCTIONS:
- Execute the workflow above against the provided document
- Be thorough, specific, and cite relevant sections of the document by clause number or section name
- Provide actionable findings with specific references
- Do not be defensive — if the Reviewer raises valid points, acknowledge and incorporate them
- Your goal is the most accurate analysis possible, not winning an argument
- Format your output exactly as specified in the workflow`

const reviewerSystemTemplate = `You are the REVIEWER — a senior legal analyst who critically reviews analysis work.

WORKFLOW STANDARD:
%s

INSTRUCTIONS:
- Review the Doer's analysis against the workflow standard above
- Check thoroughly for: missed clauses, misinterpretations, incorrect risk classifications, gaps in coverage, logical errors, and unsupported conclusions
- FIRST steel-man the Doer's analysis — explicitly state what they got right before critiquing
- Be specific — cite exactly what was missed or misread, with document references where possible
- Suggest concrete, actionable improvements — not vague criticism
- Your goal is to strengthen the final output quality, not to attack the Doer
- If the analysis is largely correct, say so clearly and note only genuine gaps`

const synthesisSystem = `You are a senior legal analyst synthesizing a Doer/Reviewer debate into a final unified analysis.
Your job is to produce the highest-quality legal analysis by combining the best insights from both sides.`

const synthesisTemplate = `You are synthesizing the final consensus from a Doer/Reviewer legal analysis debate.

ORIGINAL WORKFLOW:
%s

DOER'S FINAL POSITION:
%s

REVIEWER'S FINAL POSITION:
%s

INSTRUCTIONS:
- Produce a unified analysis that incorporates the best from both positions
- Where they agree, state the agreed finding clearly
- Where they disagree, present both views and note which has stronger document support
- Flag any items where human legal judgment is essential
- Format the output according to the workflow's specified output format
- Be comprehensive — this is the final deliverable`

const consensusSystem = `You are a neutral consensus evaluator. Respond only with valid JSON.`

const consensusCheckTemplate = `Given these two positions from a legal analysis debate, have they reached substantial consensus (75%%+ agreement on key findings)?

DOER'S LATEST POSITION (excerpt):
%s

REVIEWER'S LATEST POSITION (excerpt):
%s

Respond with JSON only, no other text:
{"reached": true_or_false, "reasoning": "one sentence explanation"}`

const finalReviewSystem = `You are the FINAL REVIEWER — an independent senior legal analyst comparing two analyses of the same document. Your role is to objectively evaluate both analyses and determine which is superior based on accuracy, thoroughness, and practical value.`

const finalReviewTemplate = `THE LEGAL WORKFLOW USED:
%s

---

ANALYSIS A — Standard (Single-Pass AI):
%s

---

ANALYSIS B — Debate Consensus (Doer/Reviewer):
%s

---

INSTRUCTIONS:
- Compare both analyses for accuracy, thoroughness, and practical value
- Identify findings that appear in one but not the other
- Identify any errors or misinterpretations in either analysis
- Determine which analysis is MORE:
  1. Accurate (correct interpretation of clauses and risks)
  2. Thorough (complete coverage of the workflow requirements)
  3. Actionable (provides specific, useful next steps)
  4. Reliable (fewer errors, better-supported conclusions)
- Declare a winner and explain WHY with specific examples from both analyses
- Note any areas where NEITHER analysis was adequate
- Provide your confidence level (High/Medium/Low) in your winner determination

OUTPUT FORMAT:
## Final Review: Standard vs. Debate Analysis

### Winner: [Analysis A or Analysis B]
### Confidence: [High/Medium/Low]

### Comparison Summary
[2-3 sentence summary of key differences]

### Accuracy Comparison
[Which got more things right, with specific examples]

### Thoroughness Comparison
[Which covered more ground, with specific examples]

### Unique Findings
- Found only in Standard: [list]
- Found only in Debate: [list]

### Errors Identified
- Standard errors: [list or "None identified"]
- Debate errors: [list or "None identified"]

### Verdict
[Detailed explanation of why the winner is better and what the loser missed]`

// buildBasePrompt frames the document and any context notes the way every
// exchange and the standard pass see them
func buildBasePrompt(documentText, contextNotes string) string {
	contextBlock := ""
	if strings.TrimSpace(contextNotes) != "" {
		contextBlock = fmt.Sprintf("\nADDITIONAL CONTEXT: %s\n", contextNotes)
	}
	return fmt.Sprintf("Please analyze the following legal document according to the workflow.\n%s\nDOCUMENT TO ANALYZE:\n%s", contextBlock, documentText)
}

// buildStandardPrompt is the user prompt for the single-pass pipeline
func buildStandardPrompt(documentText, contextNotes string) string {
	return buildBasePrompt(documentText, contextNotes)
}

// exchangeSpec returns the role and display label for an exchange slot.
// Odd sequence numbers belong to the Doer, even ones to the Reviewer.
func exchangeSpec(round, seq int) (Role, string) {
	if seq%2 == 1 {
		switch {
		case seq == 1 && round == 1:
			return RoleDoer, "DOER: Initial Analysis"
		case seq == 1:
			return RoleDoer, fmt.Sprintf("DOER: Revised Analysis (Round %d)", round)
		case seq == 3:
			return RoleDoer, fmt.Sprintf("DOER: Response to Critique (Round %d)", round)
		default:
			return RoleDoer, fmt.Sprintf("DOER: Consensus Position (Round %d)", round)
		}
	}
	switch {
	case seq == 2 && round == 1:
		return RoleReviewer, "REVIEWER: Initial Challenge"
	case seq == 2:
		return RoleReviewer, fmt.Sprintf("REVIEWER: Follow-up (Round %d)", round)
	default:
		return RoleReviewer, fmt.Sprintf("REVIEWER: Evaluation (Round %d)", round)
	}
}

// exchangeInstruction is the role-specific tail instruction for a slot
func exchangeInstruction(round, seq int) string {
	if seq%2 == 1 {
		switch {
		case seq == 1 && round == 1:
			return "Produce your initial analysis of the document following the workflow."
		case seq == 1:
			return "The Reviewer has challenged your analysis. Review their feedback carefully. " +
				"Acknowledge valid points explicitly, defend positions where you have document evidence, " +
				"and produce a revised, improved analysis that incorporates legitimate feedback."
		case seq == 3:
			return "Respond to the Reviewer's specific concerns. Acknowledge valid points with document evidence, " +
				"defend positions where warranted, and state your refined position clearly."
		default:
			return "The debate has progressed through several exchanges. " +
				"Synthesize your final position, acknowledging the strongest points from both sides. " +
				"Propose a final unified analysis that addresses all major concerns raised."
		}
	}
	switch {
	case seq == 2 && round == 1:
		return "Critically review the Doer's analysis. First acknowledge what they got right, " +
			"then identify missed clauses, misinterpretations, incorrect classifications, or gaps."
	case seq == 2:
		return "Evaluate whether the Doer adequately addressed your previous concerns. " +
			"Acknowledge what was resolved. Raise any remaining substantive issues clearly."
	default:
		return "Has the Doer adequately addressed your concerns? Acknowledge resolved issues clearly. " +
			"Raise only genuine remaining substantive issues. Work toward consensus."
	}
}

// buildExchangePrompt assembles the full user prompt for one exchange:
// document framing, the complete prior transcript, then the slot's
// instruction. The transcript is read-only here.
func buildExchangePrompt(cfg DebateConfig, transcript []ExchangeRecord, round, seq int) string {
	var prompt strings.Builder
	prompt.WriteString(buildBasePrompt(cfg.DocumentText, cfg.ContextNotes))

	if len(transcript) > 0 {
		prompt.WriteString("\n\n--- PREVIOUS DEBATE CONTEXT ---\n")
		for _, rec := range transcript {
			prompt.WriteString(fmt.Sprintf("\n[%s]\n%s\n", rec.Label, rec.Text))
		}
	}

	prompt.WriteString("\n\n")
	prompt.WriteString(exchangeInstruction(round, seq))
	return prompt.String()
}

// buildSynthesisPrompt assembles the final synthesis user prompt
func buildSynthesisPrompt(cfg DebateConfig, doerFinal, reviewerFinal string) string {
	return fmt.Sprintf(synthesisTemplate, cfg.WorkflowInstructions, doerFinal, reviewerFinal)
}

// buildConsensusPrompt assembles the consensus-check prompt from position
// excerpts
func buildConsensusPrompt(doerText, reviewerText string) string {
	return fmt.Sprintf(consensusCheckTemplate, excerpt(doerText, ConsensusExcerptLimit), excerpt(reviewerText, ConsensusExcerptLimit))
}

// buildReviewPrompt assembles the comparison-step user prompt
func buildReviewPrompt(workflowInstructions, standardText, debateText string) string {
	return fmt.Sprintf(finalReviewTemplate, workflowInstructions, standardText, debateText)
}

// doerSystem and reviewerSystem bind the workflow into the role templates

func doerSystem(workflowInstructions string) string {
	return fmt.Sprintf(doerSystemTemplate, workflowInstructions)
}

func reviewerSystem(workflowInstructions string) string {
	return fmt.Sprintf(reviewerSystemTemplate, workflowInstructions)
}

// excerpt truncates text to at most limit bytes
func excerpt(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}

// exchangeTemperature cools the debate down as a round progresses
func exchangeTemperature(seq int) float64 {
	if seq <= 2 {
		return 0.7
	}
	if seq <= 4 {
		return 0.6
	}
	return 0.5
}
