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
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gorilla/mux"
)

// setupHandlerComponents wires the package-level components with offline
// implementations (heuristic-only router, disabled cache/repo, no-op audit)
// and restores the previous values when the test finishes.
func setupHandlerComponents(t *testing.T) {
	t.Helper()

	prevRouter := llmRouter
	prevPipeline := pipelineEngine
	prevStrategy := strategyAgent
	prevPlatform := platformAgent
	prevProduction := productionAgent
	prevAnalytics := analyticsAgent
	prevTranscriber := transcriber
	prevCache := campaignCache
	prevRepo := campaignRepo
	prevAudit := auditLogger
	prevMetrics := metricsCollector

	llmRouter = newHeuristicRouter()
	strategyAgent = NewStrategyAgent(llmRouter)
	platformAgent = NewPlatformAgent(llmRouter)
	productionAgent = NewProductionAgent(llmRouter)
	analyticsAgent = NewAnalyticsAgent(llmRouter)
	pipelineEngine = NewPipelineEngine(llmRouter, NewInMemoryPipelineStorage())
	transcriber = NewTranscriber("", "")
	campaignCache = NewCampaignCache("", "")
	campaignRepo, _ = NewCampaignRepository("")
	auditLogger = NewAuditLogger("")
	metricsCollector = NewMetricsCollector()

	t.Cleanup(func() {
		llmRouter = prevRouter
		pipelineEngine = prevPipeline
		strategyAgent = prevStrategy
		platformAgent = prevPlatform
		productionAgent = prevProduction
		analyticsAgent = prevAnalytics
		transcriber = prevTranscriber
		campaignCache = prevCache
		campaignRepo = prevRepo
		auditLogger = prevAudit
		metricsCollector = prevMetrics
	})
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request body: %v", err)
	}

	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

// TestHealthHandler tests the health check endpoint
func TestHealthHandler(t *testing.T) {
	setupHandlerComponents(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	healthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var health map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if health["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", health["status"])
	}

	if health["service"] != "axonflow-campaign" {
		t.Errorf("Unexpected service name: %v", health["service"])
	}

	services, ok := health["services"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected services map")
	}

	// No providers, STT, database, or Redis configured in the test setup
	for _, name := range []string{"stt", "llm", "database", "redis"} {
		if services[name] != false {
			t.Errorf("Expected service %s to be false, got %v", name, services[name])
		}
	}
}

// TestCreateFromTranscriptHandler tests synchronous campaign creation
func TestCreateFromTranscriptHandler(t *testing.T) {
	setupHandlerComponents(t)

	rec := postJSON(t, createFromTranscriptHandler, "/api/campaign/from-transcript", TranscriptRequest{
		Transcript: "Our new software platform automates weekly reporting for marketing teams.",
		VideoTitle: "Product Demo",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var campaign Campaign
	if err := json.NewDecoder(rec.Body).Decode(&campaign); err != nil {
		t.Fatalf("Failed to decode campaign: %v", err)
	}

	if !strings.HasPrefix(campaign.ID, "campaign_") {
		t.Errorf("Unexpected campaign ID: %s", campaign.ID)
	}

	if campaign.Strategy == nil || campaign.PlatformContent == nil ||
		campaign.ProductionTasks == nil || campaign.Analytics == nil {
		t.Error("Expected all four stage results in the campaign")
	}

	if len(campaign.StageInfo) != 4 {
		t.Errorf("Expected 4 stage infos, got %d", len(campaign.StageInfo))
	}

	if campaign.ExecutiveSummary == "" {
		t.Error("Expected non-empty executive summary")
	}
}

// TestCreateFromTranscriptHandlerValidation tests request validation
func TestCreateFromTranscriptHandlerValidation(t *testing.T) {
	setupHandlerComponents(t)

	t.Run("missing transcript", func(t *testing.T) {
		rec := postJSON(t, createFromTranscriptHandler, "/api/campaign/from-transcript", TranscriptRequest{})

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}

		var response CampaignServiceResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		if response.Success {
			t.Error("Expected success false")
		}

		if response.Error != "Missing transcript" {
			t.Errorf("Unexpected error message: %s", response.Error)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/campaign/from-transcript", strings.NewReader("not json"))
		rec := httptest.NewRecorder()
		createFromTranscriptHandler(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})
}

// TestGetCampaignHandler tests campaign retrieval through the cache
func TestGetCampaignHandler(t *testing.T) {
	setupHandlerComponents(t)
	campaignCache, _ = newTestCache(t)

	stored := &Campaign{
		ID:               "campaign_handler_test",
		VideoTitle:       "Stored Campaign",
		ExecutiveSummary: "A cached campaign.",
	}
	if err := campaignCache.PutCampaign(httptest.NewRequest("GET", "/", nil).Context(), stored); err != nil {
		t.Fatalf("Failed to seed cache: %v", err)
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/campaigns/{id}", getCampaignHandler).Methods("GET")

	t.Run("cache hit", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/campaigns/campaign_handler_test", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}

		var campaign Campaign
		if err := json.NewDecoder(rec.Body).Decode(&campaign); err != nil {
			t.Fatalf("Failed to decode campaign: %v", err)
		}

		if campaign.ID != stored.ID {
			t.Errorf("Expected %s, got %s", stored.ID, campaign.ID)
		}
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/campaigns/campaign_missing", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", rec.Code)
		}
	})
}

// TestUploadVideoHandlerValidation tests upload rejection paths
func TestUploadVideoHandlerValidation(t *testing.T) {
	setupHandlerComponents(t)

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/video/upload", strings.NewReader("plain body"))
		rec := httptest.NewRecorder()
		uploadVideoHandler(rec, req)

		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("Expected 413 for non-multipart body, got %d", rec.Code)
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		part, err := writer.CreateFormFile("file", "document.txt")
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		part.Write([]byte("not a video"))
		writer.Close()

		req := httptest.NewRequest("POST", "/api/video/upload", &buf)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		rec := httptest.NewRecorder()
		uploadVideoHandler(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for unsupported extension, got %d", rec.Code)
		}
	})

	t.Run("missing file field", func(t *testing.T) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		writer.WriteField("name", "no file here")
		writer.Close()

		req := httptest.NewRequest("POST", "/api/video/upload", &buf)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		rec := httptest.NewRecorder()
		uploadVideoHandler(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for missing file field, got %d", rec.Code)
		}
	})
}

// TestAPIInfoHandler tests the root service information endpoint
func TestAPIInfoHandler(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	apiInfoHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var info map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if info["status"] != "operational" {
		t.Errorf("Expected operational status, got %v", info["status"])
	}

	endpoints, ok := info["endpoints"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected endpoints map, got %T", info["endpoints"])
	}

	for _, key := range []string{"upload_video", "create_campaign", "health"} {
		if _, found := endpoints[key]; !found {
			t.Errorf("Expected endpoint entry %q", key)
		}
	}
}

// TestUploadVideoHandlerCachedTranscript tests that re-uploading the same
// content serves the cached transcript instead of transcribing again
func TestUploadVideoHandlerCachedTranscript(t *testing.T) {
	setupHandlerComponents(t)
	campaignCache, _ = newTestCache(t)

	videoBytes := []byte("fake mp4 content for cache test")
	transcript := "Our new AI platform builds marketing campaigns from video"

	sum := sha256.Sum256(videoBytes)
	contentHash := hex.EncodeToString(sum[:])

	if err := campaignCache.PutTranscript(context.Background(), contentHash, transcript); err != nil {
		t.Fatalf("Failed to seed transcript cache: %v", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "demo.mp4")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write(videoBytes)
	writer.Close()

	req := httptest.NewRequest("POST", "/api/video/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	uploadVideoHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for cached upload, got %d: %s", rec.Code, rec.Body.String())
	}

	var response map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["transcript_source"] != "cache" {
		t.Errorf("Expected transcript_source cache, got %v", response["transcript_source"])
	}

	if response["transcript"] != transcript {
		t.Errorf("Expected cached transcript, got %v", response["transcript"])
	}
}

// TestHashUploadContent tests hashing and rewinding of uploads
func TestHashUploadContent(t *testing.T) {
	content := []byte("same bytes, different name")

	first, err := hashUploadContent(bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	reader := bytes.NewReader(content)
	second, err := hashUploadContent(reader)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if first != second {
		t.Errorf("Expected identical hashes for identical content, got %s and %s", first, second)
	}

	// The reader must be rewound for the transcriber to consume it
	if pos, _ := reader.Seek(0, io.SeekCurrent); pos != 0 {
		t.Errorf("Expected reader rewound to 0, got %d", pos)
	}
}

// TestStrategyAgentHandler tests the single-stage strategy endpoint
func TestStrategyAgentHandler(t *testing.T) {
	setupHandlerComponents(t)

	rec := postJSON(t, strategyAgentHandler, "/api/agent/strategy", map[string]string{
		"transcript": "Grow your business with better marketing and sales automation.",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var response struct {
		RequestID string `json:"request_id"`
		Success   bool   `json:"success"`
		Data      struct {
			Result    *StrategyResult `json:"result"`
			StageInfo *StageInfo      `json:"stage_info"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if !response.Success {
		t.Error("Expected success true")
	}

	if !strings.HasPrefix(response.RequestID, "req_") {
		t.Errorf("Unexpected request ID: %s", response.RequestID)
	}

	if response.Data.Result == nil || len(response.Data.Result.KeyThemes) == 0 {
		t.Error("Expected strategy result with themes")
	}

	if response.Data.StageInfo == nil || response.Data.StageInfo.Source != "heuristic" {
		t.Errorf("Expected heuristic stage info, got %+v", response.Data.StageInfo)
	}
}

// TestPlatformAgentHandlerValidation tests that strategy input is required
func TestPlatformAgentHandlerValidation(t *testing.T) {
	setupHandlerComponents(t)

	rec := postJSON(t, platformAgentHandler, "/api/agent/platform", map[string]interface{}{})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without strategy, got %d", rec.Code)
	}
}

// TestPlatformAgentHandlerImpliedStrategy tests deriving strategy from a transcript
func TestPlatformAgentHandlerImpliedStrategy(t *testing.T) {
	setupHandlerComponents(t)

	rec := postJSON(t, platformAgentHandler, "/api/agent/platform", map[string]string{
		"transcript": "Grow your business with better marketing and sales funnels.",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 with transcript input, got %d: %s", rec.Code, rec.Body.String())
	}

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			Result *PlatformResult `json:"result"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if !response.Success {
		t.Error("Expected success true")
	}

	if response.Data.Result == nil || response.Data.Result.TikTok == nil {
		t.Error("Expected platform content generated from implied strategy")
	}
}

// TestAnalyticsAgentHandlerDefaults tests that partial input gets defaults
func TestAnalyticsAgentHandlerDefaults(t *testing.T) {
	setupHandlerComponents(t)

	rec := postJSON(t, analyticsAgentHandler, "/api/agent/analytics", map[string]interface{}{})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 with empty input, got %d", rec.Code)
	}

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			Result *AnalyticsResult `json:"result"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if !response.Success {
		t.Error("Expected success true")
	}

	if response.Data.Result == nil || response.Data.Result.Metrics == nil {
		t.Error("Expected analytics result with predicted metrics")
	}
}

// TestTriggerPipelineHandler tests orchestrated pipeline execution
func TestTriggerPipelineHandler(t *testing.T) {
	setupHandlerComponents(t)

	rec := postJSON(t, triggerPipelineHandler, "/api/orchestrate/trigger", TranscriptRequest{
		Transcript: "This workout routine builds strength with simple home exercises.",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var response map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["success"] != true {
		t.Error("Expected success true")
	}

	workflowID, _ := response["workflow_id"].(string)
	if !strings.HasPrefix(workflowID, "wf_") {
		t.Errorf("Unexpected workflow ID: %v", response["workflow_id"])
	}

	results, ok := response["results"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected results map")
	}

	for _, key := range []string{"strategy", "platform_content", "production_tasks", "analytics"} {
		if results[key] == nil {
			t.Errorf("Expected %s in results", key)
		}
	}

	if response["campaign_id"] == nil {
		t.Error("Expected campaign_id in response")
	}
}

// TestPipelineStatusHandler tests workflow status lookup
func TestPipelineStatusHandler(t *testing.T) {
	setupHandlerComponents(t)

	// Run a pipeline so an execution exists
	ctx := httptest.NewRequest("GET", "/", nil).Context()
	_, execution, err := pipelineEngine.Execute(ctx, "A travel vlog about hidden beaches.", "Travel Vlog")
	if err != nil {
		t.Fatalf("Pipeline execution failed: %v", err)
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/orchestrate/status/{workflow_id}", pipelineStatusHandler).Methods("GET")

	t.Run("completed workflow", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/orchestrate/status/"+execution.ID, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		if response["status"] != "completed" {
			t.Errorf("Expected completed status, got %v", response["status"])
		}

		if response["progress"] != float64(100) {
			t.Errorf("Expected progress 100, got %v", response["progress"])
		}

		if response["campaign_id"] == nil {
			t.Error("Expected campaign_id for completed workflow")
		}
	})

	t.Run("unknown workflow", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/orchestrate/status/wf_unknown", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", rec.Code)
		}
	})
}

// TestProviderStatusHandler tests the provider status endpoint
func TestProviderStatusHandler(t *testing.T) {
	setupHandlerComponents(t)
	llmRouter = newTestRouter(
		&TestMockProvider{name: "anthropic", healthy: true},
	)

	req := httptest.NewRequest("GET", "/api/providers/status", nil)
	rec := httptest.NewRecorder()
	providerStatusHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var response struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if !response.Success {
		t.Error("Expected success true")
	}

	if _, exists := response.Data["anthropic"]; !exists {
		t.Error("Expected anthropic in provider status")
	}
}

// TestUpdateProviderWeightsHandler tests the admin weight update endpoint
func TestUpdateProviderWeightsHandler(t *testing.T) {
	setupHandlerComponents(t)
	llmRouter = newTestRouter(
		&TestMockProvider{name: "anthropic", healthy: true},
		&TestMockProvider{name: "openai", healthy: true},
	)

	t.Run("valid weights", func(t *testing.T) {
		rec := postJSON(t, updateProviderWeightsHandler, "/api/providers/weights", map[string]float64{
			"anthropic": 0.7,
			"openai":    0.3,
		})

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var response CampaignServiceResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		if !response.Success {
			t.Error("Expected success true")
		}
	})

	t.Run("weights do not sum to one", func(t *testing.T) {
		rec := postJSON(t, updateProviderWeightsHandler, "/api/providers/weights", map[string]float64{
			"anthropic": 0.9,
			"openai":    0.9,
		})

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest("PUT", "/api/providers/weights", strings.NewReader("not json"))
		rec := httptest.NewRecorder()
		updateProviderWeightsHandler(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})
}

// TestSimpleMetricsHandler tests the JSON metrics endpoint
func TestSimpleMetricsHandler(t *testing.T) {
	setupHandlerComponents(t)
	metricsCollector.RecordCampaignCreated()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	simpleMetricsHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var metrics Metrics
	if err := json.NewDecoder(rec.Body).Decode(&metrics); err != nil {
		t.Fatalf("Failed to decode metrics: %v", err)
	}

	if metrics.SystemMetrics.CampaignsCreated != 1 {
		t.Errorf("Expected 1 campaign created, got %d", metrics.SystemMetrics.CampaignsCreated)
	}
}

// TestApplyConfigFile tests merging file-based provider config
func TestApplyConfigFile(t *testing.T) {
	config := LLMRouterConfig{}

	file := &ConfigFile{
		Version: "1.0",
		LLMProviders: map[string]LLMProviderFileConfig{
			"anthropic": {
				Enabled:     true,
				Credentials: map[string]string{"api_key": "sk-from-file"},
				Weight:      0.6,
			},
			"openai": {
				Enabled:     false,
				Credentials: map[string]string{"api_key": "sk-disabled"},
				Weight:      0.9,
			},
			"bedrock": {
				Enabled: true,
				Config: map[string]interface{}{
					"region": "eu-west-1",
					"model":  "anthropic.claude-3-5-sonnet-20240620-v1:0",
				},
				Weight: 0.2,
			},
			"ollama": {
				Enabled: true,
				Config: map[string]interface{}{
					"endpoint": "http://ollama.internal:11434",
					"model":    "llama3.1:70b",
				},
			},
		},
	}

	applyConfigFile(&config, file)

	if config.AnthropicKey != "sk-from-file" {
		t.Errorf("Expected anthropic key applied, got %s", config.AnthropicKey)
	}

	if config.OpenAIKey != "" {
		t.Errorf("Expected disabled openai ignored, got %s", config.OpenAIKey)
	}

	if config.BedrockRegion != "eu-west-1" {
		t.Errorf("Expected bedrock region applied, got %s", config.BedrockRegion)
	}

	if config.OllamaEndpoint != "http://ollama.internal:11434" {
		t.Errorf("Expected ollama endpoint applied, got %s", config.OllamaEndpoint)
	}

	if config.OllamaModel != "llama3.1:70b" {
		t.Errorf("Expected ollama model applied, got %s", config.OllamaModel)
	}

	if config.Weights["anthropic"] != 0.6 {
		t.Errorf("Expected anthropic weight 0.6, got %f", config.Weights["anthropic"])
	}

	if config.Weights["bedrock"] != 0.2 {
		t.Errorf("Expected bedrock weight 0.2, got %f", config.Weights["bedrock"])
	}

	if _, exists := config.Weights["openai"]; exists {
		t.Error("Expected disabled provider weight ignored")
	}
}

// TestSettingOr tests env-over-file-over-default setting resolution
func TestSettingOr(t *testing.T) {
	os.Setenv("CAMPAIGN_SETTING_TEST", "from-env")
	defer os.Unsetenv("CAMPAIGN_SETTING_TEST")

	if got := settingOr("CAMPAIGN_SETTING_TEST", "from-file", "fallback"); got != "from-env" {
		t.Errorf("Expected env to win, got %s", got)
	}

	if got := settingOr("CAMPAIGN_SETTING_UNSET", "from-file", "fallback"); got != "from-file" {
		t.Errorf("Expected file value, got %s", got)
	}

	if got := settingOr("CAMPAIGN_SETTING_UNSET", "", "fallback"); got != "fallback" {
		t.Errorf("Expected fallback, got %s", got)
	}
}

// TestLoadConfigFileResolvesSettings tests the config file feeding service settings
func TestLoadConfigFileResolvesSettings(t *testing.T) {
	path := writeConfigFile(t, `
version: "1.0"
server:
  port: "9010"
transcriber:
  url: https://stt.example.com/v1/recognize
  api_key: stt-key
storage:
  database_url: postgres://campaign:pw@db/campaigns
  redis_host: redis.internal
  redis_port: "6380"
llm_providers:
  anthropic:
    enabled: true
    weight: 0.9
    credentials:
      api_key: sk-file
`)
	os.Setenv("CAMPAIGN_CONFIG_FILE", path)
	defer os.Unsetenv("CAMPAIGN_CONFIG_FILE")

	file := loadConfigFile()
	if file == nil {
		t.Fatal("Expected config file to load")
	}

	if got := settingOr("CAMPAIGN_UNSET_PORT", file.Server.Port, "8005"); got != "9010" {
		t.Errorf("Expected file port 9010, got %s", got)
	}

	if file.Transcriber.URL != "https://stt.example.com/v1/recognize" {
		t.Errorf("Unexpected transcriber URL: %s", file.Transcriber.URL)
	}

	if file.Storage.RedisHost != "redis.internal" {
		t.Errorf("Unexpected redis host: %s", file.Storage.RedisHost)
	}

	config := LLMRouterConfig{}
	applyConfigFile(&config, file)

	if config.Weights["anthropic"] != 0.9 {
		t.Errorf("Expected YAML weight 0.9 applied, got %f", config.Weights["anthropic"])
	}
}

// TestGetEnv tests environment lookup with defaults
func TestGetEnv(t *testing.T) {
	os.Setenv("CAMPAIGN_GETENV_TEST", "set-value")
	defer os.Unsetenv("CAMPAIGN_GETENV_TEST")

	if got := getEnv("CAMPAIGN_GETENV_TEST", "default"); got != "set-value" {
		t.Errorf("Expected set-value, got %s", got)
	}

	if got := getEnv("CAMPAIGN_GETENV_UNSET", "default"); got != "default" {
		t.Errorf("Expected default, got %s", got)
	}
}

// TestGenerateRequestID tests request ID format
func TestGenerateRequestID(t *testing.T) {
	id := generateRequestID()

	if !strings.HasPrefix(id, "req_") {
		t.Errorf("Expected req_ prefix, got %s", id)
	}

	if id == generateRequestID() {
		t.Error("Expected unique request IDs")
	}
}

// TestGenerateRandomString tests random string length and charset
func TestGenerateRandomString(t *testing.T) {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"

	s := generateRandomString(16)
	if len(s) != 16 {
		t.Errorf("Expected length 16, got %d", len(s))
	}

	for _, c := range s {
		if !strings.ContainsRune(charset, c) {
			t.Errorf("Unexpected character %q in random string", c)
		}
	}
}

// TestMin tests the integer minimum helper
func TestMin(t *testing.T) {
	if min(1, 2) != 1 {
		t.Error("Expected min(1, 2) = 1")
	}
	if min(5, 3) != 3 {
		t.Error("Expected min(5, 3) = 3")
	}
	if min(4, 4) != 4 {
		t.Error("Expected min(4, 4) = 4")
	}
}
