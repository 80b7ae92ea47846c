// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1
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
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"
)

// LLMRouter handles intelligent routing to multiple LLM providers
type LLMRouter struct {
	providers      map[string]LLMProvider
	weights        map[string]float64
	healthChecker  *HealthChecker
	loadBalancer   *LoadBalancer
	metricsTracker *ProviderMetricsTracker
	mu             sync.RWMutex
}

// LLMProvider interface for different LLM implementations
type LLMProvider interface {
	Name() string
	Query(ctx context.Context, prompt string, options QueryOptions) (*LLMResponse, error)
	IsHealthy() bool
	GetCapabilities() []string
	EstimateCost(tokens int) float64
}

// LLMRouterConfig contains configuration for the router
type LLMRouterConfig struct {
	AnthropicKey   string
	OpenAIKey      string
	BedrockRegion  string
	BedrockModel   string
	OllamaEndpoint string
	OllamaModel    string
	Weights        map[string]float64 // per-provider routing weights from the config file
}

// QueryOptions contains options for LLM queries
type QueryOptions struct {
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float64 `json:"temperature"`
	Model        string  `json:"model"`
	SystemPrompt string  `json:"system_prompt"`
}

// LLMResponse represents a response from an LLM provider
type LLMResponse struct {
	Content      string                 `json:"content"`
	Model        string                 `json:"model"`
	TokensUsed   int                    `json:"tokens_used"`
	Metadata     map[string]interface{} `json:"metadata"`
	ResponseTime time.Duration          `json:"response_time"`
}

// LLMRequest carries one stage prompt through the router
type LLMRequest struct {
	RequestID string
	Stage     string // strategy, platform, production, analytics, compose
	Prompt    string
	Provider  string // optional explicit provider
	MaxTokens int
}

// ProviderStatus represents the current status of a provider
type ProviderStatus struct {
	Name         string    `json:"name"`
	Healthy      bool      `json:"healthy"`
	Weight       float64   `json:"weight"`
	RequestCount int64     `json:"request_count"`
	ErrorCount   int64     `json:"error_count"`
	AvgLatency   float64   `json:"avg_latency_ms"`
	LastUsed     time.Time `json:"last_used"`
}

// NewLLMRouter creates a new LLM router instance
func NewLLMRouter(config LLMRouterConfig) *LLMRouter {
	router := &LLMRouter{
		providers:      make(map[string]LLMProvider),
		weights:        make(map[string]float64),
		healthChecker:  NewHealthChecker(),
		loadBalancer:   NewLoadBalancer(),
		metricsTracker: NewProviderMetricsTracker(),
	}

	// Initialize providers
	if config.AnthropicKey != "" {
		router.providers["anthropic"] = NewAnthropicProvider(config.AnthropicKey)
		router.weights["anthropic"] = 0.25
	}

	if config.OpenAIKey != "" {
		router.providers["openai"] = NewOpenAIProvider(config.OpenAIKey)
		router.weights["openai"] = 0.25
	}

	if config.BedrockRegion != "" {
		bedrockProvider, err := NewBedrockProvider(config.BedrockRegion, config.BedrockModel)
		if err != nil {
			log.Printf("[LLMRouter] ERROR: Failed to initialize Bedrock provider: %v", err)
			log.Printf("[LLMRouter] WARNING: Bedrock is configured (region=%s) but NOT available", config.BedrockRegion)
		} else {
			router.providers["bedrock"] = bedrockProvider
			router.weights["bedrock"] = 0.25
		}
	}

	if config.OllamaEndpoint != "" {
		router.providers["ollama"] = NewOllamaProvider(config.OllamaEndpoint, config.OllamaModel)
		router.weights["ollama"] = 0.25
	}

	// Configured weights override the defaults; the load balancer
	// normalizes over the total, so partial overrides are fine
	for name, weight := range config.Weights {
		if _, exists := router.providers[name]; exists && weight > 0 {
			router.weights[name] = weight
		}
	}

	// Log provider status summary at startup
	router.logProviderStatus(config)

	// Start health checking
	go router.healthCheckRoutine()

	return router
}

// logProviderStatus logs a summary of configured vs available providers at startup
func (r *LLMRouter) logProviderStatus(config LLMRouterConfig) {
	log.Printf("[LLMRouter] ========== LLM Provider Status ==========")

	var configured []string
	var available []string
	var failed []string

	if config.AnthropicKey != "" {
		configured = append(configured, "anthropic")
		if _, ok := r.providers["anthropic"]; ok {
			available = append(available, "anthropic")
		} else {
			failed = append(failed, "anthropic")
		}
	}

	if config.OpenAIKey != "" {
		configured = append(configured, "openai")
		if _, ok := r.providers["openai"]; ok {
			available = append(available, "openai")
		} else {
			failed = append(failed, "openai")
		}
	}

	if config.BedrockRegion != "" {
		configured = append(configured, fmt.Sprintf("bedrock(%s)", config.BedrockRegion))
		if _, ok := r.providers["bedrock"]; ok {
			available = append(available, "bedrock")
		} else {
			failed = append(failed, "bedrock")
		}
	}

	if config.OllamaEndpoint != "" {
		configured = append(configured, "ollama")
		if _, ok := r.providers["ollama"]; ok {
			available = append(available, "ollama")
		} else {
			failed = append(failed, "ollama")
		}
	}

	log.Printf("[LLMRouter] Configured: %v", configured)
	log.Printf("[LLMRouter] Available:  %v", available)
	if len(failed) > 0 {
		log.Printf("[LLMRouter] FAILED:     %v (check logs above for errors)", failed)
	}

	if len(available) == 0 {
		log.Printf("[LLMRouter] WARNING: No LLM providers available - all stages will use heuristic fallbacks")
	}

	log.Printf("[LLMRouter] ==========================================")
}

// RouteRequest routes a stage prompt to the appropriate LLM provider
func (r *LLMRouter) RouteRequest(ctx context.Context, req LLMRequest) (*LLMResponse, *ProviderInfo, error) {
	provider, err := r.selectProvider(req)
	if err != nil {
		return nil, nil, fmt.Errorf("provider selection failed: %w", err)
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1500
	}

	options := QueryOptions{
		MaxTokens:   maxTokens,
		Temperature: 0.7,
		Model:       r.selectModel(provider.Name(), req),
	}

	startTime := time.Now()

	response, err := provider.Query(ctx, req.Prompt, options)
	if err != nil {
		r.metricsTracker.RecordError(provider.Name())
		promLLMCalls.WithLabelValues(provider.Name(), "error").Inc()

		// Try failover
		if fallbackProvider := r.getFallbackProvider(provider.Name()); fallbackProvider != nil {
			log.Printf("[LLMRouter] Failing over from %s to %s", provider.Name(), fallbackProvider.Name())
			fallbackOptions := options
			fallbackOptions.Model = r.selectModel(fallbackProvider.Name(), req)
			response, err = fallbackProvider.Query(ctx, req.Prompt, fallbackOptions)
			if err != nil {
				promLLMCalls.WithLabelValues(fallbackProvider.Name(), "error").Inc()
				return nil, nil, fmt.Errorf("all providers failed: %w", err)
			}
			provider = fallbackProvider
		} else {
			return nil, nil, fmt.Errorf("primary provider failed and no fallback available: %w", err)
		}
	}

	responseTime := time.Since(startTime)
	r.metricsTracker.RecordSuccess(provider.Name(), responseTime)
	promLLMCalls.WithLabelValues(provider.Name(), "success").Inc()

	cost := provider.EstimateCost(response.TokensUsed)

	providerInfo := &ProviderInfo{
		Provider:       provider.Name(),
		Model:          response.Model,
		ResponseTimeMs: responseTime.Milliseconds(),
		TokensUsed:     response.TokensUsed,
		Cost:           cost,
	}

	return response, providerInfo, nil
}

// selectProvider selects the best provider for a request
func (r *LLMRouter) selectProvider(req LLMRequest) (LLMProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Check if the caller explicitly requested a provider
	if req.Provider != "" {
		if provider, exists := r.providers[req.Provider]; exists && provider.IsHealthy() {
			return provider, nil
		}
		log.Printf("[LLMRouter] Warning: Requested provider '%s' not available, falling back to routing rules", req.Provider)
	}

	// Get healthy providers
	var healthyProviders []string
	for name, provider := range r.providers {
		if provider.IsHealthy() {
			healthyProviders = append(healthyProviders, name)
		}
	}

	if len(healthyProviders) == 0 {
		return nil, fmt.Errorf("no healthy providers available")
	}

	// Strategy analysis benefits from the most capable models
	if req.Stage == "strategy" {
		if provider, exists := r.providers["anthropic"]; exists && provider.IsHealthy() {
			return provider, nil
		}
		if provider, exists := r.providers["bedrock"]; exists && provider.IsHealthy() {
			return provider, nil
		}
	}

	// Weighted random selection
	selected := r.loadBalancer.SelectProvider(healthyProviders, r.weights)
	return r.providers[selected], nil
}

// selectModel selects the appropriate model for a provider
func (r *LLMRouter) selectModel(providerName string, req LLMRequest) string {
	switch providerName {
	case "anthropic":
		if req.Stage == "strategy" || req.Stage == "compose" {
			return ModelClaude35Sonnet
		}
		return ModelClaude3Haiku
	case "openai":
		if req.Stage == "strategy" {
			return "gpt-4-turbo"
		}
		return "gpt-3.5-turbo"
	case "bedrock":
		// Empty string uses the provider's configured model
		return ""
	case "ollama":
		return ""
	default:
		return ""
	}
}

// getFallbackProvider returns a fallback provider
func (r *LLMRouter) getFallbackProvider(failedProvider string) LLMProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, provider := range r.providers {
		if name != failedProvider && provider.IsHealthy() {
			return provider
		}
	}
	return nil
}

// GetProviderStatus returns the status of all providers
func (r *LLMRouter) GetProviderStatus() map[string]ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := make(map[string]ProviderStatus)

	for name, provider := range r.providers {
		metrics := r.metricsTracker.GetMetrics(name)
		status[name] = ProviderStatus{
			Name:         name,
			Healthy:      provider.IsHealthy(),
			Weight:       r.weights[name],
			RequestCount: metrics.RequestCount,
			ErrorCount:   metrics.ErrorCount,
			AvgLatency:   metrics.AvgResponseTime,
			LastUsed:     metrics.LastUsed,
		}
	}

	return status
}

// UpdateProviderWeights updates the routing weights
func (r *LLMRouter) UpdateProviderWeights(weights map[string]float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Validate weights
	total := 0.0
	for provider, weight := range weights {
		if _, exists := r.providers[provider]; !exists {
			return fmt.Errorf("unknown provider: %s", provider)
		}
		if weight < 0 || weight > 1 {
			return fmt.Errorf("invalid weight for %s: %f", provider, weight)
		}
		total += weight
	}

	if total > 1.01 || total < 0.99 { // Allow small floating point errors
		return fmt.Errorf("weights must sum to 1.0, got %f", total)
	}

	for provider, weight := range weights {
		r.weights[provider] = weight
	}

	return nil
}

// IsHealthy checks if the router has any healthy providers
func (r *LLMRouter) IsHealthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, provider := range r.providers {
		if provider.IsHealthy() {
			return true
		}
	}
	return false
}

// HasProviders reports whether any provider is configured at all
func (r *LLMRouter) HasProviders() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers) > 0
}

// healthCheckRoutine periodically checks provider health
func (r *LLMRouter) healthCheckRoutine() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		r.mu.RLock()
		providers := make([]LLMProvider, 0, len(r.providers))
		for _, p := range r.providers {
			providers = append(providers, p)
		}
		r.mu.RUnlock()

		for _, provider := range providers {
			r.healthChecker.CheckProvider(provider)
		}
	}
}

// Supporting components

type HealthChecker struct{}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{}
}

func (h *HealthChecker) CheckProvider(provider LLMProvider) bool {
	return provider.IsHealthy()
}

type LoadBalancer struct {
	random *rand.Rand
	mu     sync.Mutex
}

func NewLoadBalancer() *LoadBalancer {
	return &LoadBalancer{
		random: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (l *LoadBalancer) SelectProvider(providers []string, weights map[string]float64) string {
	// Weighted random selection
	totalWeight := 0.0
	for _, p := range providers {
		totalWeight += weights[p]
	}

	l.mu.Lock()
	r := l.random.Float64() * totalWeight
	l.mu.Unlock()

	for _, p := range providers {
		r -= weights[p]
		if r <= 0 {
			return p
		}
	}

	return providers[0] // Fallback
}

// TrackedProviderMetrics holds per-provider routing counters
type TrackedProviderMetrics struct {
	RequestCount    int64
	ErrorCount      int64
	AvgResponseTime float64
	LastUsed        time.Time
}

type ProviderMetricsTracker struct {
	metrics map[string]*TrackedProviderMetrics
	mu      sync.RWMutex
}

func NewProviderMetricsTracker() *ProviderMetricsTracker {
	return &ProviderMetricsTracker{
		metrics: make(map[string]*TrackedProviderMetrics),
	}
}

func (t *ProviderMetricsTracker) RecordSuccess(provider string, latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.metrics[provider]; !exists {
		t.metrics[provider] = &TrackedProviderMetrics{}
	}

	m := t.metrics[provider]
	m.RequestCount++
	m.LastUsed = time.Now()
	totalMs := float64(m.RequestCount-1) * m.AvgResponseTime
	totalMs += float64(latency.Milliseconds())
	m.AvgResponseTime = totalMs / float64(m.RequestCount)
}

func (t *ProviderMetricsTracker) RecordError(provider string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.metrics[provider]; !exists {
		t.metrics[provider] = &TrackedProviderMetrics{}
	}

	t.metrics[provider].ErrorCount++
}

func (t *ProviderMetricsTracker) GetMetrics(provider string) TrackedProviderMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if m, exists := t.metrics[provider]; exists {
		return *m
	}
	return TrackedProviderMetrics{}
}
