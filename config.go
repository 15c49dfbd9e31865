package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Configuration constants
var (
	// ServerAddr is the listen address for the HTTP server
	ServerAddr = ":8002"

	// GeminiAPIBaseURL is the base endpoint for the Google Generative Language API
	GeminiAPIBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// ReportsDir is the directory where exported reports are stored
	ReportsDir = "data/reports"

	// WorkflowsDir is the directory holding the workflow instruction files
	WorkflowsDir = "workflows"

	// ModelCallTimeout is the HTTP client timeout for a single Gemini call.
	// There is deliberately no other per-call deadline and no retry policy;
	// see the Backend contract in llm.go.
	ModelCallTimeout = 180 * time.Second

	// SessionTTL is how long an idle session survives before being purged
	SessionTTL = 2 * time.Hour

	// Debate bounds
	MaxRoundsLimit    = 5
	MaxExchangesLimit = 5

	// DefaultMaxTokens is the completion budget for every model call
	DefaultMaxTokens int64 = 8192

	// ConsensusExcerptLimit caps how much of each position the consensus
	// evaluator sees, in bytes
	ConsensusExcerptLimit = 1500

	// ConsensusMaxTokens caps the consensus verdict completion
	ConsensusMaxTokens int64 = 256

	// DocumentPreviewLimit is the preview length returned on document upload
	DocumentPreviewLimit = 300

	// CORS allowed origins (configurable via environment)
	// In development (empty/default), allows any localhost port
	// In production, set CORS_ALLOWED_ORIGINS environment variable
	CORSAllowedOrigins = []string{}

	// MaxRequestBodySize is the maximum allowed request body size (10MB,
	// uploaded documents included)
	MaxRequestBodySize int64 = 10 << 20
)

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	// Load .env file - try multiple locations
	envLocations := []string{
		".env",    // Current directory
		"../.env", // Parent directory
	}

	envLoaded := false
	for _, envPath := range envLocations {
		absPath, err := filepath.Abs(envPath)
		if err != nil {
			continue
		}

		if _, err := os.Stat(absPath); err == nil {
			if err := godotenv.Load(absPath); err == nil {
				log.Printf("Loaded .env from: %s", absPath)
				envLoaded = true
				break
			}
		}
	}

	if !envLoaded {
		log.Printf("No .env file found; relying on process environment")
	}

	// API keys are supplied per session (BYOK), so none are required here.

	if port := os.Getenv("PORT"); port != "" {
		ServerAddr = ":" + port
	}

	if dir := os.Getenv("REPORTS_DIR"); dir != "" {
		ReportsDir = dir
	}

	if dir := os.Getenv("WORKFLOWS_DIR"); dir != "" {
		WorkflowsDir = dir
	}

	// Load CORS origins from environment if provided (comma-separated)
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		CORSAllowedOrigins = []string{}
		for _, origin := range strings.Split(corsOrigins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				CORSAllowedOrigins = append(CORSAllowedOrigins, origin)
			}
		}
	}

	log.Println("Configuration loaded successfully")
}
