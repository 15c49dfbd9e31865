package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Global session store instance
var sessions *SessionStore

func main() {
	// Load configuration
	LoadConfig()

	// Initialize session store
	sessions = NewSessionStore(SessionTTL)

	router := buildRouter()

	log.Printf("Starting Debate Bench backend on %s...", ServerAddr)
	if err := router.Run(ServerAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// buildRouter creates the Gin router with middleware and all routes
func buildRouter() *gin.Engine {
	router := gin.Default()

	// Request size limit middleware
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxRequestBodySize)
		c.Next()
	})

	// CORS middleware with dynamic origin validation
	router.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			// In production, use environment-configured origins
			if len(CORSAllowedOrigins) > 0 && CORSAllowedOrigins[0] != "" {
				for _, allowedOrigin := range CORSAllowedOrigins {
					if origin == allowedOrigin {
						return true
					}
				}
				return false
			}
			// In development, allow any localhost/127.0.0.1 origin
			return strings.HasPrefix(origin, "http://localhost") ||
				strings.HasPrefix(origin, "http://127.0.0.1")
		},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: true,
	}))

	// Routes
	router.GET("/", healthCheck)
	router.GET("/api/workflows", listWorkflowsHandler)
	router.GET("/api/models", listModelsHandler)
	router.POST("/api/sessions", createSessionHandler)
	router.GET("/api/sessions/:id", getSessionHandler)
	router.DELETE("/api/sessions/:id", deleteSessionHandler)
	router.POST("/api/sessions/:id/keys", setKeysHandler)
	router.GET("/api/sessions/:id/keys", checkKeysHandler)
	router.POST("/api/sessions/:id/document", uploadDocumentHandler)
	router.POST("/api/sessions/:id/run-standard", runStandardHandler)
	router.POST("/api/sessions/:id/run-debate", runDebateHandler)
	router.POST("/api/sessions/:id/run-benchmark", runBenchmarkHandler)
	router.POST("/api/sessions/:id/run-review", runReviewHandler)
	router.POST("/api/sessions/:id/export", exportReportHandler)
	router.GET("/api/reports", listReportsHandler)
	router.GET("/api/reports/:id", getReportHandler)

	return router
}

// healthCheck returns a simple health check response.
// GET / - Returns service status information.
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "Debate Bench API",
	})
}

// listWorkflowsHandler lists the workflow registry.
// GET /api/workflows
func listWorkflowsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, ListWorkflows())
}

// listModelsHandler lists the selectable models.
// GET /api/models
func listModelsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, AvailableModels)
}

// createSessionHandler creates a new session.
// POST /api/sessions - Generates a new UUID-backed session.
func createSessionHandler(c *gin.Context) {
	session := sessions.Create()
	c.JSON(http.StatusOK, session.Info())
}

// requireSession resolves the :id path parameter to a live session,
// writing a 404 response when it is unknown or expired
func requireSession(c *gin.Context) *Session {
	session := sessions.Get(c.Param("id"))
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Session not found",
		})
		return nil
	}
	return session
}

// getSessionHandler returns session state.
// GET /api/sessions/:id
func getSessionHandler(c *gin.Context) {
	session := requireSession(c)
	if session == nil {
		return
	}
	c.JSON(http.StatusOK, session.Info())
}

// deleteSessionHandler tears a session down.
// DELETE /api/sessions/:id
func deleteSessionHandler(c *gin.Context) {
	session := requireSession(c)
	if session == nil {
		return
	}
	sessions.Delete(session.ID)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// setKeysHandler stores the session's provider API keys (BYOK - keys are
// held in memory for the session lifetime only).
// POST /api/sessions/:id/keys
func setKeysHandler(c *gin.Context) {
	session := requireSession(c)
	if session == nil {
		return
	}

	var request SetKeysRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}

	session.SetKeys(strings.TrimSpace(request.AnthropicKey), strings.TrimSpace(request.GoogleKey))

	anthropicKey, googleKey := session.Keys()
	c.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"anthropic_set": anthropicKey != "",
		"google_set":    googleKey != "",
	})
}

// checkKeysHandler reports which keys are set without echoing them.
// GET /api/sessions/:id/keys
func checkKeysHandler(c *gin.Context) {
	session := requireSession(c)
	if session == nil {
		return
	}

	anthropicKey, googleKey := session.Keys()
	c.JSON(http.StatusOK, gin.H{
		"anthropic_set":    anthropicKey != "",
		"google_set":       googleKey != "",
		"anthropic_length": len(anthropicKey),
		"google_length":    len(googleKey),
	})
}

// uploadDocumentHandler accepts a document as pasted text, a URL to fetch,
// or an uploaded file, and stores the extracted text on the session.
// POST /api/sessions/:id/document
func uploadDocumentHandler(c *gin.Context) {
	session := requireSession(c)
	if session == nil {
		return
	}

	var doc *Document
	var err error

	contentType := c.ContentType()
	if strings.Contains(contentType, "application/json") {
		var request UploadDocumentRequest
		if bindErr := c.ShouldBindJSON(&request); bindErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Invalid request: %v", bindErr),
			})
			return
		}

		switch {
		case strings.TrimSpace(request.Text) != "":
			doc, err = ExtractText(request.Text)
		case strings.TrimSpace(request.URL) != "":
			doc, err = FetchDocumentFromURL(c.Request.Context(), strings.TrimSpace(request.URL))
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "No text or URL provided"})
			return
		}
	} else {
		fileHeader, fileErr := c.FormFile("file")
		if fileErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
			return
		}

		file, openErr := fileHeader.Open()
		if openErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to open upload: %v", openErr)})
			return
		}
		defer file.Close()

		data, readErr := io.ReadAll(file)
		if readErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to read upload: %v", readErr)})
			return
		}

		doc, err = ExtractDocument(fileHeader.Filename, data)
	}

	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, ErrUnsupportedFormat) && !errors.Is(err, ErrExtractionFailed) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	session.SetDocument(doc)
	c.JSON(http.StatusOK, doc)
}

// setSSEHeaders prepares the response for Server-Sent Events
func setSSEHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
}

// sendSSEEvent sends a Server-Sent Event.
// Marshals the event to JSON and writes it in SSE format.
func sendSSEEvent(c *gin.Context, event Event) {
	jsonData, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal SSE event: %v", err)
		return
	}
	c.Writer.WriteString(fmt.Sprintf("data: %s\n\n", string(jsonData)))
	c.Writer.Flush()
}

// streamEvents drains the channel into the SSE response. The channel is
// always drained to completion so producers can finish even after the
// client disconnects; writes are skipped once the request context is gone
// and the producers stop issuing new model calls on their own.
func streamEvents(c *gin.Context, events <-chan Event, tagPipeline string) {
	for event := range events {
		if tagPipeline != "" {
			event.Pipeline = tagPipeline
		}
		if c.Request.Context().Err() == nil {
			sendSSEEvent(c, event)
		}
	}
}

// prepareRun loads the workflow and checks the session can issue model
// calls. Writes the error response itself on failure.
func prepareRun(c *gin.Context, session *Session, workflowID string) (instructions string, doc *Document, ok bool) {
	doc = session.Document()
	if doc == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No document loaded. Please upload a document first."})
		return "", nil, false
	}

	if !session.HasAnyKey() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No API keys set. Please set your API keys first."})
		return "", nil, false
	}

	instructions, err := LoadWorkflowForAutomation(workflowID)
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, ErrUnknownWorkflow) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return "", nil, false
	}

	return instructions, doc, true
}

// runStandardHandler runs the single-pass analysis, streaming fragments.
// POST /api/sessions/:id/run-standard
func runStandardHandler(c *gin.Context) {
	session := requireSession(c)
	if session == nil {
		return
	}

	var request RunStandardRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request: %v", err)})
		return
	}

	instructions, doc, ok := prepareRun(c, session, request.WorkflowID)
	if !ok {
		return
	}

	run := StandardRun{
		Model:                request.Model,
		WorkflowInstructions: instructions,
		DocumentText:         doc.Text,
		ContextNotes:         request.ContextNotes,
	}
	if err := run.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	anthropicKey, googleKey := session.Keys()
	providers := NewProviderSet(anthropicKey, googleKey)

	setSSEHeaders(c)
	ctx := c.Request.Context()
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		text, usage, err := RunStandardAnalysis(ctx, run, providers, events)
		if err == nil {
			session.SetStandardResult(text, usage)
		}
	}()

	streamEvents(c, events, "")
}

// runDebateHandler runs the Doer/Reviewer debate, streaming per-exchange
// events. Each exchange is a complete model call; events fire after each
// completes.
// POST /api/sessions/:id/run-debate
func runDebateHandler(c *gin.Context) {
	session := requireSession(c)
	if session == nil {
		return
	}

	var request RunDebateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request: %v", err)})
		return
	}

	instructions, doc, ok := prepareRun(c, session, request.WorkflowID)
	if !ok {
		return
	}

	anthropicKey, googleKey := session.Keys()
	providers := NewProviderSet(anthropicKey, googleKey)

	cfg := DebateConfig{
		DoerModel:            request.DoerModel,
		ReviewerModel:        request.ReviewerModel,
		MaxRounds:            request.MaxRounds,
		ExchangesPerRound:    request.ExchangesPerRound,
		ContextNotes:         request.ContextNotes,
		DocumentText:         doc.Text,
		WorkflowInstructions: instructions,
	}

	orchestrator, err := NewDebateOrchestrator(cfg, providers, NewLLMConsensusEvaluator(providers, cfg.DoerModel))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	setSSEHeaders(c)
	ctx := c.Request.Context()
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		result, runErr := orchestrator.Run(ctx, events)
		if runErr == nil {
			session.SetDebateResult(result)
		}
	}()

	streamEvents(c, events, "")
}

// runBenchmarkHandler runs both pipelines concurrently through the
// coordinator and streams the merged, pipeline-tagged event sequence.
// When both sides succeed and a review model is configured, the
// comparison step streams immediately after.
// POST /api/sessions/:id/run-benchmark
func runBenchmarkHandler(c *gin.Context) {
	session := requireSession(c)
	if session == nil {
		return
	}

	var request RunBenchmarkRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request: %v", err)})
		return
	}

	instructions, doc, ok := prepareRun(c, session, request.WorkflowID)
	if !ok {
		return
	}

	anthropicKey, googleKey := session.Keys()
	providers := NewProviderSet(anthropicKey, googleKey)

	run := StandardRun{
		Model:                request.StandardModel,
		WorkflowInstructions: instructions,
		DocumentText:         doc.Text,
		ContextNotes:         request.ContextNotes,
	}
	if err := run.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := DebateConfig{
		DoerModel:            request.DoerModel,
		ReviewerModel:        request.ReviewerModel,
		MaxRounds:            request.MaxRounds,
		ExchangesPerRound:    request.ExchangesPerRound,
		ContextNotes:         request.ContextNotes,
		DocumentText:         doc.Text,
		WorkflowInstructions: instructions,
	}
	orchestrator, err := NewDebateOrchestrator(cfg, providers, NewLLMConsensusEvaluator(providers, cfg.DoerModel))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	setSSEHeaders(c)
	ctx := c.Request.Context()

	merged := make(chan Event, 32)
	outcomeCh := make(chan *BenchmarkOutcome, 1)
	go func() {
		defer close(merged)
		outcomeCh <- RunBenchmark(ctx, providers, run, orchestrator, merged)
	}()

	streamEvents(c, merged, "")
	outcome := <-outcomeCh

	if outcome.StandardErr == nil {
		session.SetStandardResult(outcome.StandardText, outcome.StandardUsage)
	}
	if outcome.DebateErr == nil {
		session.SetDebateResult(outcome.Debate)
	}

	// The comparison step is never attempted against a failed pipeline.
	if !outcome.ReadyForReview() || request.ReviewModel == "" {
		return
	}

	reviewEvents := make(chan Event, 16)
	verdictCh := make(chan *ReviewVerdict, 1)
	go func() {
		defer close(reviewEvents)
		verdict, reviewErr := RunFinalReview(ctx, providers, request.ReviewModel, instructions,
			outcome.StandardText, outcome.Debate.SynthesisText, reviewEvents)
		if reviewErr != nil {
			verdictCh <- nil
			return
		}
		verdictCh <- verdict
	}()

	streamEvents(c, reviewEvents, PipelineReview)
	if verdict := <-verdictCh; verdict != nil {
		session.SetReviewVerdict(verdict)
	}
}

// runReviewHandler runs the comparison step against the session's stored
// pipeline outputs, streaming fragments.
// POST /api/sessions/:id/run-review
func runReviewHandler(c *gin.Context) {
	session := requireSession(c)
	if session == nil {
		return
	}

	var request RunReviewRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request: %v", err)})
		return
	}

	standardText, _ := session.StandardResult()
	debateResult := session.DebateResult()
	if standardText == "" || debateResult == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Both standard and debate outputs are required"})
		return
	}

	if !session.HasAnyKey() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No API keys set. Please set your API keys first."})
		return
	}

	instructions, err := LoadWorkflowForAutomation(request.WorkflowID)
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, ErrUnknownWorkflow) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	anthropicKey, googleKey := session.Keys()
	providers := NewProviderSet(anthropicKey, googleKey)

	setSSEHeaders(c)
	ctx := c.Request.Context()
	events := make(chan Event, 16)
	verdictCh := make(chan *ReviewVerdict, 1)
	go func() {
		defer close(events)
		verdict, reviewErr := RunFinalReview(ctx, providers, request.Model, instructions,
			standardText, debateResult.SynthesisText, events)
		if reviewErr != nil {
			verdictCh <- nil
			return
		}
		verdictCh <- verdict
	}()

	streamEvents(c, events, "")
	if verdict := <-verdictCh; verdict != nil {
		session.SetReviewVerdict(verdict)
	}
}

// exportReportHandler renders the session as a markdown report, saves it
// under the reports directory, and returns it as an attachment.
// POST /api/sessions/:id/export
func exportReportHandler(c *gin.Context) {
	session := requireSession(c)
	if session == nil {
		return
	}

	var request struct {
		WorkflowID string `json:"workflow_id"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request: %v", err)})
		return
	}

	standardText, standardUsage := session.StandardResult()

	input := ReportInput{
		WorkflowName:  GetWorkflowName(request.WorkflowID),
		StandardText:  standardText,
		StandardUsage: standardUsage,
	}
	if doc := session.Document(); doc != nil {
		input.DocumentName = doc.Filename
	}
	if debate := session.DebateResult(); debate != nil {
		input.DebateText = debate.SynthesisText
		input.DebateUsage = debate.TotalUsage
	}
	if review := session.ReviewVerdict(); review != nil {
		input.ReviewText = review.Text
		input.ReviewUsage = review.Usage
	}

	now := time.Now()
	markdown := BuildReportMarkdown(input, now)

	meta, err := SaveReport(markdown, input, now)
	if err != nil {
		log.Printf("Failed to save report: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to save report: %v", err)})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.md", meta.ID))
	c.Data(http.StatusOK, "text/markdown", []byte(markdown))
}

// listReportsHandler lists saved reports, newest first.
// GET /api/reports
func listReportsHandler(c *gin.Context) {
	reports, err := ListReports()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to list reports: %v", err),
		})
		return
	}
	c.JSON(http.StatusOK, reports)
}

// getReportHandler returns a saved report's markdown.
// GET /api/reports/:id
func getReportHandler(c *gin.Context) {
	markdown, err := LoadReport(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}
	c.Data(http.StatusOK, "text/markdown", []byte(markdown))
}
