// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package campaign

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	mathRand "math/rand"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// AxonFlow Campaign - Video-to-Campaign Pipeline Service
// This service turns a video or transcript into a composed marketing campaign

// contextKey is a private type for context keys to avoid collisions
type contextKey string

const (
	ctxKeyRequestID contextKey = "request_id"
)

// Components
var (
	llmRouter        *LLMRouter
	pipelineEngine   *PipelineEngine
	strategyAgent    *StrategyAgent
	platformAgent    *PlatformAgent
	productionAgent  *ProductionAgent
	analyticsAgent   *AnalyticsAgent
	transcriber      *Transcriber
	campaignCache    *CampaignCache
	campaignRepo     *CampaignRepository
	auditLogger      *AuditLogger
	metricsCollector *MetricsCollector
)

// Prometheus metrics
var (
	promRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axonflow_campaign_requests_total",
			Help: "Total number of requests processed by the campaign service",
		},
		[]string{"status"},
	)
	promRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "axonflow_campaign_request_duration_milliseconds",
			Help:    "Request duration in milliseconds",
			Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 10000},
		},
		[]string{"type"},
	)
	promStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "axonflow_campaign_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)
	promFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axonflow_campaign_stage_fallbacks_total",
			Help: "Total number of stage executions served by heuristic fallback",
		},
		[]string{"stage"},
	)
	promLLMCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axonflow_campaign_llm_calls_total",
			Help: "Total number of LLM API calls",
		},
		[]string{"provider", "status"},
	)
)

func init() {
	// Register Prometheus metrics
	prometheus.MustRegister(promRequestsTotal)
	prometheus.MustRegister(promRequestDuration)
	prometheus.MustRegister(promStageDuration)
	prometheus.MustRegister(promFallbacks)
	prometheus.MustRegister(promLLMCalls)
}

// Request structures

// TranscriptRequest is a manual transcript input
type TranscriptRequest struct {
	Transcript string `json:"transcript"`
	VideoTitle string `json:"video_title"`
}

// CampaignRequest is a campaign creation request
type CampaignRequest struct {
	Transcript    string            `json:"transcript"`
	VideoMetadata map[string]string `json:"video_metadata"`
}

// CampaignServiceResponse is the common response envelope
type CampaignServiceResponse struct {
	RequestID      string      `json:"request_id,omitempty"`
	Success        bool        `json:"success"`
	Data           interface{} `json:"data,omitempty"`
	Error          string      `json:"error,omitempty"`
	ProcessingTime string      `json:"processing_time,omitempty"`
}

// ProviderInfo identifies which provider served an LLM call
type ProviderInfo struct {
	Provider       string  `json:"provider"`
	Model          string  `json:"model"`
	ResponseTimeMs int64   `json:"response_time_ms"`
	TokensUsed     int     `json:"tokens_used,omitempty"`
	Cost           float64 `json:"cost,omitempty"`
}

// LoadLLMConfig loads LLM provider configuration from the environment,
// optionally overridden by a YAML config file (CAMPAIGN_CONFIG_FILE).
func LoadLLMConfig() LLMRouterConfig {
	config := LLMRouterConfig{}

	config.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	config.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	config.BedrockRegion = os.Getenv("BEDROCK_REGION")
	config.BedrockModel = os.Getenv("BEDROCK_MODEL")
	config.OllamaEndpoint = os.Getenv("OLLAMA_ENDPOINT")
	config.OllamaModel = os.Getenv("OLLAMA_MODEL")

	// Config file overrides (community deployments)
	if file := loadConfigFile(); file != nil {
		applyConfigFile(&config, file)
		log.Printf("[LLM Config] Applied config file")
	}

	log.Printf("[LLM Config] Loaded provider configuration:")
	if config.AnthropicKey != "" {
		log.Printf("  - Anthropic: enabled (key: %s...)", config.AnthropicKey[:min(10, len(config.AnthropicKey))])
	}
	if config.OpenAIKey != "" {
		log.Printf("  - OpenAI: enabled (key: %s...)", config.OpenAIKey[:min(10, len(config.OpenAIKey))])
	}
	if config.BedrockRegion != "" {
		log.Printf("  - Bedrock: enabled (region: %s, model: %s)", config.BedrockRegion, config.BedrockModel)
	}
	if config.OllamaEndpoint != "" {
		log.Printf("  - Ollama: enabled (endpoint: %s, model: %s)", config.OllamaEndpoint, config.OllamaModel)
	}

	return config
}

// loadConfigFile reads and validates the optional CAMPAIGN_CONFIG_FILE.
// Returns nil when unset or unusable, so callers fall back to env-only config.
func loadConfigFile() *ConfigFile {
	configFile := os.Getenv("CAMPAIGN_CONFIG_FILE")
	if configFile == "" {
		return nil
	}

	loader, err := NewYAMLConfigFileLoader(configFile)
	if err != nil {
		log.Printf("[Config] Failed to load config file %s: %v", configFile, err)
		return nil
	}
	if err := ValidateConfigFile(loader.Config()); err != nil {
		log.Printf("[Config] Invalid config file %s: %v", configFile, err)
		return nil
	}
	return loader.Config()
}

// settingOr resolves a setting with env winning over the config file value
func settingOr(envKey, fileValue, defaultValue string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	if fileValue != "" {
		return fileValue
	}
	return defaultValue
}

// applyConfigFile merges enabled providers from the config file into config
func applyConfigFile(config *LLMRouterConfig, file *ConfigFile) {
	for name, provider := range file.LLMProviders {
		if !provider.Enabled {
			continue
		}

		if provider.Weight > 0 {
			if config.Weights == nil {
				config.Weights = make(map[string]float64)
			}
			config.Weights[name] = provider.Weight
		}

		switch name {
		case "anthropic":
			if key := provider.Credentials["api_key"]; key != "" {
				config.AnthropicKey = key
			}
		case "openai":
			if key := provider.Credentials["api_key"]; key != "" {
				config.OpenAIKey = key
			}
		case "bedrock":
			if region, ok := provider.Config["region"].(string); ok && region != "" {
				config.BedrockRegion = region
			}
			if model, ok := provider.Config["model"].(string); ok && model != "" {
				config.BedrockModel = model
			}
		case "ollama":
			if endpoint, ok := provider.Config["endpoint"].(string); ok && endpoint != "" {
				config.OllamaEndpoint = endpoint
			}
			if model, ok := provider.Config["model"].(string); ok && model != "" {
				config.OllamaModel = model
			}
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Run is the exported entry point for the campaign service.
//
// It initializes all components (LLM providers, transcriber, storage),
// sets up HTTP routes, and starts the server. The function blocks until
// the server is shut down.
//
// Environment variables used:
//   - PORT: HTTP server port (default: 8005)
//   - DATABASE_URL: PostgreSQL connection string (optional)
//   - REDIS_HOST: Redis host for caching (optional)
//   - ANTHROPIC_API_KEY / OPENAI_API_KEY / BEDROCK_REGION / OLLAMA_ENDPOINT
//   - STT_URL / STT_API_KEY: speech-to-text service (optional)
func Run() {
	log.Println("Starting AxonFlow Campaign service...")

	file := loadConfigFile()

	// Initialize components
	initializeComponents(file)

	// Setup router
	r := mux.NewRouter()

	// CORS middleware, origins configurable from the config file
	corsOrigins := []string{"*"}
	if file != nil && len(file.Server.CORSOrigins) > 0 {
		corsOrigins = file.Server.CORSOrigins
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	// API info and health check
	r.HandleFunc("/", apiInfoHandler).Methods("GET")
	r.HandleFunc("/api/health", healthHandler).Methods("GET")

	// Metrics endpoints
	r.HandleFunc("/metrics", simpleMetricsHandler).Methods("GET") // JSON metrics
	r.Handle("/prometheus", promhttp.Handler()).Methods("GET")    // Prometheus native format

	// Video upload and transcription
	r.HandleFunc("/api/video/upload", uploadVideoHandler).Methods("POST")

	// Campaign creation
	r.HandleFunc("/api/campaign/create", createCampaignHandler).Methods("POST")
	r.HandleFunc("/api/campaign/from-transcript", createFromTranscriptHandler).Methods("POST")
	r.HandleFunc("/api/campaigns/{id}", getCampaignHandler).Methods("GET")

	// Individual agent endpoints
	r.HandleFunc("/api/agent/strategy", strategyAgentHandler).Methods("POST")
	r.HandleFunc("/api/agent/platform", platformAgentHandler).Methods("POST")
	r.HandleFunc("/api/agent/production", productionAgentHandler).Methods("POST")
	r.HandleFunc("/api/agent/analytics", analyticsAgentHandler).Methods("POST")

	// Pipeline orchestration
	r.HandleFunc("/api/orchestrate/trigger", triggerPipelineHandler).Methods("POST")
	r.HandleFunc("/api/orchestrate/status/{workflow_id}", pipelineStatusHandler).Methods("GET")

	// Provider management
	r.HandleFunc("/api/providers/status", providerStatusHandler).Methods("GET")
	r.HandleFunc("/api/providers/weights", requireAdmin(updateProviderWeightsHandler)).Methods("PUT")

	// Start server
	var filePort string
	if file != nil {
		filePort = file.Server.Port
	}
	port := settingOr("PORT", filePort, "8005")
	handler := c.Handler(r)
	log.Printf("AxonFlow Campaign service listening on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}

func initializeComponents(file *ConfigFile) {
	var fileTranscriber TranscriberFileConfig
	var fileStorage StorageFileConfig
	if file != nil {
		fileTranscriber = file.Transcriber
		fileStorage = file.Storage
	}

	// Initialize LLM Router
	llmRouter = NewLLMRouter(LoadLLMConfig())
	if llmRouter.HasProviders() {
		log.Println("LLM Router initialized with multi-provider support")
	} else {
		log.Println("LLM Router initialized with NO providers - all stages will use heuristics")
	}

	// Initialize stage agents
	strategyAgent = NewStrategyAgent(llmRouter)
	platformAgent = NewPlatformAgent(llmRouter)
	productionAgent = NewProductionAgent(llmRouter)
	analyticsAgent = NewAnalyticsAgent(llmRouter)
	log.Println("Stage agents initialized (strategy, platform, production, analytics)")

	// Initialize pipeline engine
	pipelineEngine = NewPipelineEngine(llmRouter, NewInMemoryPipelineStorage())
	log.Println("Pipeline engine initialized")

	// Initialize transcriber
	transcriber = NewTranscriber(
		settingOr("STT_URL", fileTranscriber.URL, ""),
		settingOr("STT_API_KEY", fileTranscriber.APIKey, ""),
	)
	if transcriber.IsConfigured() {
		log.Println("Transcriber initialized with speech-to-text backend")
	} else {
		log.Println("Transcriber initialized (no STT configured - uploads get demo transcript)")
	}

	// Initialize cache
	campaignCache = NewCampaignCache(
		settingOr("REDIS_HOST", fileStorage.RedisHost, ""),
		settingOr("REDIS_PORT", fileStorage.RedisPort, "6379"),
	)

	// Initialize campaign repository
	databaseURL := settingOr("DATABASE_URL", fileStorage.DatabaseURL, "")
	var err error
	campaignRepo, err = NewCampaignRepository(databaseURL)
	if err != nil {
		log.Printf("Warning: campaign repository unavailable: %v", err)
		campaignRepo, _ = NewCampaignRepository("")
	}

	// Initialize Audit Logger
	auditLogger = NewAuditLogger(databaseURL)
	log.Println("Audit Logger initialized")

	// Initialize Metrics Collector
	metricsCollector = NewMetricsCollector()
	log.Println("Metrics Collector initialized")
}

// apiInfoHandler serves basic service and endpoint information at the root
func apiInfoHandler(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":    "AxonFlow Campaign API",
		"version": "1.0.0",
		"status":  "operational",
		"endpoints": map[string]string{
			"upload_video":           "/api/video/upload",
			"create_campaign":        "/api/campaign/create",
			"campaign_by_transcript": "/api/campaign/from-transcript",
			"get_campaign":           "/api/campaigns/{id}",
			"health":                 "/api/health",
			"metrics":                "/metrics",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	cacheHealthy, _ := campaignCache.HealthCheck(r.Context())

	components := map[string]bool{
		"llm_router":   llmRouter != nil && llmRouter.IsHealthy(),
		"pipeline":     pipelineEngine != nil && pipelineEngine.IsHealthy(),
		"audit_logger": auditLogger.IsHealthy(),
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"service":   "axonflow-campaign",
		"version":   "1.0.0",
		"timestamp": time.Now().UTC(),
		"components": components,
		"services": map[string]bool{
			"stt":      transcriber.IsConfigured(),
			"llm":      llmRouter.HasProviders(),
			"database": campaignRepo.Enabled(),
			"redis":    cacheHealthy,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// uploadVideoHandler accepts a multipart video upload, extracts the audio
// and returns the transcript.
func uploadVideoHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()
	ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		sendErrorResponse(w, "Invalid multipart form or file too large", http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		sendErrorResponse(w, "Missing 'file' field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := transcriber.ValidateUpload(header.Filename, header.Size); err != nil {
		sendErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	contentHash, err := hashUploadContent(file)
	if err != nil {
		sendErrorResponse(w, "Failed to read upload", http.StatusInternalServerError)
		return
	}

	var result *TranscriptionResult
	if cached, cacheErr := campaignCache.GetTranscript(ctx, contentHash); cacheErr == nil && cached != "" {
		log.Printf("[Upload] Transcript cache hit for %s", header.Filename)
		result = &TranscriptionResult{
			VideoTitle:       header.Filename,
			Transcript:       cached,
			TranscriptLength: len(cached),
			Source:           "cache",
			ProcessingTime:   time.Since(startTime).Seconds(),
		}
	} else {
		result, err = transcriber.ProcessVideo(ctx, header.Filename, file)
		if err != nil {
			log.Printf("[Upload] Processing failed for %s: %v", header.Filename, err)
			auditLogger.LogFailedRequest(ctx, requestID, "upload", err)
			metricsCollector.RecordRequestError("upload")
			promRequestsTotal.WithLabelValues("error").Inc()
			sendErrorResponse(w, err.Error(), http.StatusInternalServerError)
			return
		}

		// Cache by content hash so re-uploads of the same file skip transcription
		if err := campaignCache.PutTranscript(ctx, contentHash, result.Transcript); err != nil {
			log.Printf("[Upload] Failed to cache transcript: %v", err)
		}
	}

	auditLogger.LogUpload(ctx, requestID, result)
	metricsCollector.RecordRequest("upload", "", time.Since(startTime))
	metricsCollector.RecordVideoProcessed()
	promRequestsTotal.WithLabelValues("success").Inc()
	promRequestDuration.WithLabelValues("upload").Observe(float64(time.Since(startTime).Milliseconds()))

	response := map[string]interface{}{
		"success":           true,
		"video_title":       result.VideoTitle,
		"transcript":        result.Transcript,
		"transcript_source": result.Source,
		"transcript_length": result.TranscriptLength,
		"processing_time":   time.Since(startTime).Seconds(),
		"message":           "Video processed successfully",
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// hashUploadContent hashes the upload so identical files share one cached
// transcript, then rewinds the file for processing
func hashUploadContent(file io.ReadSeeker) (string, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to hash upload: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind upload: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// createCampaignHandler runs the full pipeline synchronously
func createCampaignHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()
	ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)

	var req CampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Transcript == "" {
		sendErrorResponse(w, "Missing transcript", http.StatusBadRequest)
		return
	}

	videoTitle := req.VideoMetadata["title"]
	if videoTitle == "" {
		videoTitle = "Uploaded Video"
	}

	campaign, execution, err := pipelineEngine.Execute(ctx, req.Transcript, videoTitle)
	if err != nil {
		auditLogger.LogFailedRequest(ctx, requestID, "campaign", err)
		metricsCollector.RecordRequestError("campaign")
		promRequestsTotal.WithLabelValues("error").Inc()
		sendErrorResponse(w, fmt.Sprintf("Failed to create campaign: %v", err), http.StatusInternalServerError)
		return
	}

	persistCampaign(ctx, campaign)

	auditLogger.LogCampaignCreated(ctx, requestID, campaign, execution)
	recordCampaignMetrics(campaign, startTime)

	log.Printf("[Campaign] Created %s in %.2fs", campaign.ID, campaign.ProcessingTime)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(campaign); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// createFromTranscriptHandler wraps createCampaignHandler for manual transcripts
func createFromTranscriptHandler(w http.ResponseWriter, r *http.Request) {
	var req TranscriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.VideoTitle == "" {
		req.VideoTitle = "Manual Input"
	}

	startTime := time.Now()
	requestID := generateRequestID()
	ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)

	if req.Transcript == "" {
		sendErrorResponse(w, "Missing transcript", http.StatusBadRequest)
		return
	}

	campaign, execution, err := pipelineEngine.Execute(ctx, req.Transcript, req.VideoTitle)
	if err != nil {
		auditLogger.LogFailedRequest(ctx, requestID, "campaign", err)
		metricsCollector.RecordRequestError("campaign")
		promRequestsTotal.WithLabelValues("error").Inc()
		sendErrorResponse(w, fmt.Sprintf("Failed to create campaign: %v", err), http.StatusInternalServerError)
		return
	}

	persistCampaign(ctx, campaign)

	auditLogger.LogCampaignCreated(ctx, requestID, campaign, execution)
	recordCampaignMetrics(campaign, startTime)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(campaign); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// getCampaignHandler returns a stored campaign by ID (cache first, then DB)
func getCampaignHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	if campaign, err := campaignCache.GetCampaign(r.Context(), id); err == nil && campaign != nil {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(campaign); err != nil {
			log.Printf("Error encoding response: %v", err)
		}
		return
	}

	campaign, err := campaignRepo.Get(r.Context(), id)
	if err != nil {
		sendErrorResponse(w, fmt.Sprintf("Campaign not found: %s", id), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(campaign); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// Agent endpoints run a single stage and return its raw result

func strategyAgentHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()
	ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)

	var req struct {
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, info, err := strategyAgent.Execute(ctx, req.Transcript)
	if err != nil {
		sendErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	auditLogger.LogAgentCall(ctx, requestID, "strategy", info)
	metricsCollector.RecordStage(info)
	sendAgentResponse(w, requestID, result, info, startTime)
}

func platformAgentHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()
	ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)

	var req struct {
		Strategy   *StrategyResult `json:"strategy"`
		Transcript string          `json:"transcript"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// A bare transcript gets an implied strategy run first
	if req.Strategy == nil && req.Transcript != "" {
		strategy, strategyInfo, err := strategyAgent.Execute(ctx, req.Transcript)
		if err != nil {
			sendErrorResponse(w, err.Error(), http.StatusInternalServerError)
			return
		}
		metricsCollector.RecordStage(strategyInfo)
		req.Strategy = strategy
	}
	if req.Strategy == nil {
		sendErrorResponse(w, "Invalid request body: strategy or transcript required", http.StatusBadRequest)
		return
	}

	result, info, err := platformAgent.Execute(ctx, req.Strategy)
	if err != nil {
		sendErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	auditLogger.LogAgentCall(ctx, requestID, "platform", info)
	metricsCollector.RecordStage(info)
	sendAgentResponse(w, requestID, result, info, startTime)
}

func productionAgentHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()
	ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)

	var req struct {
		PlatformContent *PlatformResult `json:"platform_content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlatformContent == nil {
		sendErrorResponse(w, "Invalid request body: platform_content required", http.StatusBadRequest)
		return
	}

	result, info, err := productionAgent.Execute(ctx, req.PlatformContent)
	if err != nil {
		sendErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	auditLogger.LogAgentCall(ctx, requestID, "production", info)
	metricsCollector.RecordStage(info)
	sendAgentResponse(w, requestID, result, info, startTime)
}

func analyticsAgentHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()
	ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)

	var req struct {
		Strategy        *StrategyResult   `json:"strategy"`
		PlatformContent *PlatformResult   `json:"platform_content"`
		ProductionTasks *ProductionResult `json:"production_tasks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Defaults keep the endpoint usable with partial input
	if req.Strategy == nil {
		req.Strategy = &StrategyResult{KeyThemes: []string{"Content"}, TargetAudience: "General"}
	}
	if req.PlatformContent == nil {
		req.PlatformContent = &PlatformResult{}
	}
	if req.ProductionTasks == nil {
		req.ProductionTasks = &ProductionResult{}
	}

	result, info, err := analyticsAgent.Execute(ctx, req.Strategy, req.PlatformContent, req.ProductionTasks)
	if err != nil {
		sendErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	auditLogger.LogAgentCall(ctx, requestID, "analytics", info)
	metricsCollector.RecordStage(info)
	sendAgentResponse(w, requestID, result, info, startTime)
}

// triggerPipelineHandler runs the full pipeline and returns the tracked execution
func triggerPipelineHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()
	ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)

	var req TranscriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Transcript == "" {
		sendErrorResponse(w, "Missing transcript", http.StatusBadRequest)
		return
	}
	if req.VideoTitle == "" {
		req.VideoTitle = "Pipeline Trigger"
	}

	campaign, execution, err := pipelineEngine.Execute(ctx, req.Transcript, req.VideoTitle)
	if err != nil {
		auditLogger.LogFailedRequest(ctx, requestID, "orchestrate", err)
		metricsCollector.RecordRequestError("orchestrate")
		promRequestsTotal.WithLabelValues("error").Inc()

		response := map[string]interface{}{
			"success":     false,
			"workflow_id": execution.ID,
			"status":      execution.Status,
			"error":       execution.Error,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		if err := json.NewEncoder(w).Encode(response); err != nil {
			log.Printf("Error encoding response: %v", err)
		}
		return
	}

	persistCampaign(ctx, campaign)
	auditLogger.LogCampaignCreated(ctx, requestID, campaign, execution)
	recordCampaignMetrics(campaign, startTime)

	response := map[string]interface{}{
		"success":     true,
		"workflow_id": execution.ID,
		"status":      execution.Status,
		"results": map[string]interface{}{
			"strategy":         campaign.Strategy,
			"platform_content": campaign.PlatformContent,
			"production_tasks": campaign.ProductionTasks,
			"analytics":        campaign.Analytics,
		},
		"campaign_id": campaign.ID,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// pipelineStatusHandler returns the status of a tracked pipeline execution
func pipelineStatusHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	workflowID := vars["workflow_id"]

	execution, err := pipelineEngine.GetExecution(workflowID)
	if err != nil {
		sendErrorResponse(w, fmt.Sprintf("Workflow not found: %s", workflowID), http.StatusNotFound)
		return
	}

	response := map[string]interface{}{
		"workflow_id": execution.ID,
		"status":      execution.Status,
		"progress":    pipelineEngine.Progress(execution),
		"stages":      execution.Stages,
	}
	if execution.Error != "" {
		response["error"] = execution.Error
	}
	if execution.Status == "completed" {
		response["message"] = "All agents completed successfully"
		if execution.Campaign != nil {
			response["campaign_id"] = execution.Campaign.ID
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// simpleMetricsHandler returns collected metrics as JSON
func simpleMetricsHandler(w http.ResponseWriter, r *http.Request) {
	metrics := metricsCollector.GetMetrics()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(metrics); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// providerStatusHandler returns per-provider health and usage
func providerStatusHandler(w http.ResponseWriter, r *http.Request) {
	status := llmRouter.GetProviderStatus()

	response := CampaignServiceResponse{
		Success: true,
		Data:    status,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// updateProviderWeightsHandler adjusts provider routing weights (admin only)
func updateProviderWeightsHandler(w http.ResponseWriter, r *http.Request) {
	var weights map[string]float64
	if err := json.NewDecoder(r.Body).Decode(&weights); err != nil {
		sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := llmRouter.UpdateProviderWeights(weights); err != nil {
		sendErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	response := CampaignServiceResponse{
		Success: true,
		Data:    map[string]interface{}{"weights": weights},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// Helpers

// persistCampaign writes the campaign to cache and database, logging failures
func persistCampaign(ctx context.Context, campaign *Campaign) {
	if err := campaignCache.PutCampaign(ctx, campaign); err != nil {
		log.Printf("[Campaign] Failed to cache campaign %s: %v", campaign.ID, err)
	}
	if err := campaignRepo.Save(ctx, campaign); err != nil {
		log.Printf("[Campaign] Failed to persist campaign %s: %v", campaign.ID, err)
	}
}

// recordCampaignMetrics updates counters after a successful pipeline run
func recordCampaignMetrics(campaign *Campaign, startTime time.Time) {
	metricsCollector.RecordRequest("campaign", "", time.Since(startTime))
	metricsCollector.RecordCampaignCreated()
	for _, info := range campaign.StageInfo {
		metricsCollector.RecordStage(info)
	}
	promRequestsTotal.WithLabelValues("success").Inc()
	promRequestDuration.WithLabelValues("campaign").Observe(float64(time.Since(startTime).Milliseconds()))
}

// sendAgentResponse wraps a single-stage result in the response envelope
func sendAgentResponse(w http.ResponseWriter, requestID string, result interface{}, info *StageInfo, startTime time.Time) {
	promRequestsTotal.WithLabelValues("success").Inc()
	promRequestDuration.WithLabelValues("agent").Observe(float64(time.Since(startTime).Milliseconds()))

	response := CampaignServiceResponse{
		RequestID: requestID,
		Success:   true,
		Data: map[string]interface{}{
			"result":     result,
			"stage_info": info,
		},
		ProcessingTime: time.Since(startTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	response := CampaignServiceResponse{
		Success: false,
		Error:   message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func generateRequestID() string {
	return fmt.Sprintf("req_%d_%s", time.Now().Unix(), generateRandomString(8))
}

func generateRandomString(length int) string {
	// Cryptographically secure random string generation
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, length)

	// Use crypto/rand for true randomness
	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		// Fallback to math/rand if crypto/rand fails (shouldn't happen)
		for i := range b {
			b[i] = charset[mathRand.Intn(len(charset))]
		}
		return string(b)
	}

	for i := range b {
		b[i] = charset[int(randomBytes[i])%len(charset)]
	}
	return string(b)
}
