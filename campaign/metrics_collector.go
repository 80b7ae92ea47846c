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
	"sync"
	"time"
)

// MetricsCollector collects and aggregates metrics for the campaign service
type MetricsCollector struct {
	metrics *Metrics
	mu      sync.RWMutex
}

// Metrics represents collected metrics
type Metrics struct {
	RequestMetrics    map[string]*RequestTypeMetrics `json:"request_metrics"`
	StageMetrics      map[string]*StageMetrics       `json:"stage_metrics"`
	ProviderMetrics   map[string]*ProviderMetrics    `json:"provider_metrics"`
	SystemMetrics     *SystemMetrics                 `json:"system_metrics"`
	LastResetTime     time.Time                      `json:"last_reset_time"`
	CollectionStarted time.Time                      `json:"collection_started"`
}

// RequestTypeMetrics tracks metrics per request type
type RequestTypeMetrics struct {
	TotalRequests   int64         `json:"total_requests"`
	SuccessCount    int64         `json:"success_count"`
	ErrorCount      int64         `json:"error_count"`
	AvgResponseTime time.Duration `json:"avg_response_time_ms"`
	P95ResponseTime time.Duration `json:"p95_response_time_ms"`
	P99ResponseTime time.Duration `json:"p99_response_time_ms"`
	responseTimes   []time.Duration
}

// StageMetrics tracks how each pipeline stage produced its result
type StageMetrics struct {
	TotalExecutions int64         `json:"total_executions"`
	LLMCount        int64         `json:"llm_count"`
	HeuristicCount  int64         `json:"heuristic_count"`
	AvgLatency      time.Duration `json:"avg_latency_ms"`
	latencies       []time.Duration
}

// ProviderMetrics tracks metrics per LLM provider
type ProviderMetrics struct {
	RequestCount    int64   `json:"request_count"`
	SuccessCount    int64   `json:"success_count"`
	ErrorCount      int64   `json:"error_count"`
	TotalTokens     int64   `json:"total_tokens"`
	TotalCost       float64 `json:"total_cost"`
	AvgResponseTime float64 `json:"avg_response_time_ms"`
	Availability    float64 `json:"availability_percentage"`
}

// SystemMetrics tracks system-level metrics
type SystemMetrics struct {
	UptimeSeconds     int64     `json:"uptime_seconds"`
	TotalRequests     int64     `json:"total_requests"`
	CampaignsCreated  int64     `json:"campaigns_created"`
	VideosProcessed   int64     `json:"videos_processed"`
	LastHealthCheck   time.Time `json:"last_health_check"`
	HealthCheckPassed bool      `json:"health_check_passed"`
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	collector := &MetricsCollector{
		metrics: &Metrics{
			RequestMetrics:    make(map[string]*RequestTypeMetrics),
			StageMetrics:      make(map[string]*StageMetrics),
			ProviderMetrics:   make(map[string]*ProviderMetrics),
			SystemMetrics:     &SystemMetrics{},
			CollectionStarted: time.Now(),
			LastResetTime:     time.Now(),
		},
	}

	// Start background tasks
	go collector.systemMetricsUpdater()

	return collector
}

// RecordRequest records metrics for a request
func (c *MetricsCollector) RecordRequest(requestType, provider string, responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Update request type metrics
	if _, exists := c.metrics.RequestMetrics[requestType]; !exists {
		c.metrics.RequestMetrics[requestType] = &RequestTypeMetrics{
			responseTimes: make([]time.Duration, 0, 1000),
		}
	}

	rtMetrics := c.metrics.RequestMetrics[requestType]
	rtMetrics.TotalRequests++
	rtMetrics.SuccessCount++
	rtMetrics.responseTimes = append(rtMetrics.responseTimes, responseTime)

	// Keep only last 1000 response times for percentile calculation
	if len(rtMetrics.responseTimes) > 1000 {
		rtMetrics.responseTimes = rtMetrics.responseTimes[len(rtMetrics.responseTimes)-1000:]
	}

	// Update provider metrics
	if provider != "" {
		if _, exists := c.metrics.ProviderMetrics[provider]; !exists {
			c.metrics.ProviderMetrics[provider] = &ProviderMetrics{}
		}

		provMetrics := c.metrics.ProviderMetrics[provider]
		provMetrics.RequestCount++
		provMetrics.SuccessCount++
	}

	// Update system metrics
	c.metrics.SystemMetrics.TotalRequests++
}

// RecordRequestError records a failed request
func (c *MetricsCollector) RecordRequestError(requestType string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.metrics.RequestMetrics[requestType]; !exists {
		c.metrics.RequestMetrics[requestType] = &RequestTypeMetrics{
			responseTimes: make([]time.Duration, 0, 1000),
		}
	}

	c.metrics.RequestMetrics[requestType].TotalRequests++
	c.metrics.RequestMetrics[requestType].ErrorCount++
	c.metrics.SystemMetrics.TotalRequests++
}

// RecordStage records how a pipeline stage produced its result
func (c *MetricsCollector) RecordStage(info *StageInfo) {
	if info == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.metrics.StageMetrics[info.Stage]; !exists {
		c.metrics.StageMetrics[info.Stage] = &StageMetrics{
			latencies: make([]time.Duration, 0, 1000),
		}
	}

	stage := c.metrics.StageMetrics[info.Stage]
	stage.TotalExecutions++
	switch info.Source {
	case "llm":
		stage.LLMCount++
	case "heuristic":
		stage.HeuristicCount++
	}

	stage.latencies = append(stage.latencies, time.Duration(info.LatencyMs)*time.Millisecond)
	if len(stage.latencies) > 1000 {
		stage.latencies = stage.latencies[len(stage.latencies)-1000:]
	}
}

// RecordCampaignCreated counts a successfully composed campaign
func (c *MetricsCollector) RecordCampaignCreated() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metrics.SystemMetrics.CampaignsCreated++
}

// RecordVideoProcessed counts a processed video upload
func (c *MetricsCollector) RecordVideoProcessed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metrics.SystemMetrics.VideosProcessed++
}

// RecordProviderUsage records provider usage metrics
func (c *MetricsCollector) RecordProviderUsage(provider string, tokens int, cost float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.metrics.ProviderMetrics[provider]; !exists {
		c.metrics.ProviderMetrics[provider] = &ProviderMetrics{}
	}

	provMetrics := c.metrics.ProviderMetrics[provider]
	provMetrics.TotalTokens += int64(tokens)
	provMetrics.TotalCost += cost
}

// RecordProviderError records provider error
func (c *MetricsCollector) RecordProviderError(provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.metrics.ProviderMetrics[provider]; !exists {
		c.metrics.ProviderMetrics[provider] = &ProviderMetrics{}
	}

	c.metrics.ProviderMetrics[provider].ErrorCount++
}

// GetMetrics returns current metrics. Takes the write lock because
// derived metrics are computed in place.
func (c *MetricsCollector) GetMetrics() *Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Calculate derived metrics
	c.calculateDerivedMetrics()

	// Deep copy metrics to avoid race conditions
	metricsCopy := &Metrics{
		RequestMetrics:    make(map[string]*RequestTypeMetrics),
		StageMetrics:      make(map[string]*StageMetrics),
		ProviderMetrics:   make(map[string]*ProviderMetrics),
		SystemMetrics:     c.copySystemMetrics(),
		LastResetTime:     c.metrics.LastResetTime,
		CollectionStarted: c.metrics.CollectionStarted,
	}

	// Copy request metrics
	for k, v := range c.metrics.RequestMetrics {
		metricsCopy.RequestMetrics[k] = &RequestTypeMetrics{
			TotalRequests:   v.TotalRequests,
			SuccessCount:    v.SuccessCount,
			ErrorCount:      v.ErrorCount,
			AvgResponseTime: v.AvgResponseTime,
			P95ResponseTime: v.P95ResponseTime,
			P99ResponseTime: v.P99ResponseTime,
		}
	}

	// Copy stage metrics
	for k, v := range c.metrics.StageMetrics {
		metricsCopy.StageMetrics[k] = &StageMetrics{
			TotalExecutions: v.TotalExecutions,
			LLMCount:        v.LLMCount,
			HeuristicCount:  v.HeuristicCount,
			AvgLatency:      v.AvgLatency,
		}
	}

	// Copy provider metrics
	for k, v := range c.metrics.ProviderMetrics {
		metricsCopy.ProviderMetrics[k] = &ProviderMetrics{
			RequestCount:    v.RequestCount,
			SuccessCount:    v.SuccessCount,
			ErrorCount:      v.ErrorCount,
			TotalTokens:     v.TotalTokens,
			TotalCost:       v.TotalCost,
			AvgResponseTime: v.AvgResponseTime,
			Availability:    v.Availability,
		}
	}

	return metricsCopy
}

// ResetMetrics resets all metrics
func (c *MetricsCollector) ResetMetrics() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metrics = &Metrics{
		RequestMetrics:    make(map[string]*RequestTypeMetrics),
		StageMetrics:      make(map[string]*StageMetrics),
		ProviderMetrics:   make(map[string]*ProviderMetrics),
		SystemMetrics:     &SystemMetrics{},
		CollectionStarted: c.metrics.CollectionStarted,
		LastResetTime:     time.Now(),
	}
}

// calculateDerivedMetrics calculates derived metrics like percentiles and averages
func (c *MetricsCollector) calculateDerivedMetrics() {
	// Calculate request type metrics
	for _, rtMetrics := range c.metrics.RequestMetrics {
		if len(rtMetrics.responseTimes) > 0 {
			// Calculate average
			var total time.Duration
			for _, rt := range rtMetrics.responseTimes {
				total += rt
			}
			rtMetrics.AvgResponseTime = total / time.Duration(len(rtMetrics.responseTimes))

			// Calculate percentiles
			rtMetrics.P95ResponseTime = c.calculatePercentile(rtMetrics.responseTimes, 95)
			rtMetrics.P99ResponseTime = c.calculatePercentile(rtMetrics.responseTimes, 99)
		}
	}

	// Calculate stage latency averages
	for _, stage := range c.metrics.StageMetrics {
		if len(stage.latencies) > 0 {
			var total time.Duration
			for _, l := range stage.latencies {
				total += l
			}
			stage.AvgLatency = total / time.Duration(len(stage.latencies))
		}
	}

	// Calculate provider availability
	for _, provMetrics := range c.metrics.ProviderMetrics {
		if provMetrics.RequestCount > 0 {
			provMetrics.Availability = float64(provMetrics.SuccessCount) / float64(provMetrics.RequestCount) * 100
		}
	}

	// Calculate system uptime
	c.metrics.SystemMetrics.UptimeSeconds = int64(time.Since(c.metrics.CollectionStarted).Seconds())
}

// calculatePercentile calculates the nth percentile of response times
func (c *MetricsCollector) calculatePercentile(times []time.Duration, percentile int) time.Duration {
	if len(times) == 0 {
		return 0
	}

	// Simple percentile calculation - in production, use a more efficient algorithm
	index := (len(times) * percentile) / 100
	if index >= len(times) {
		index = len(times) - 1
	}

	return times[index]
}

// copySystemMetrics creates a deep copy of system metrics
func (c *MetricsCollector) copySystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		UptimeSeconds:     c.metrics.SystemMetrics.UptimeSeconds,
		TotalRequests:     c.metrics.SystemMetrics.TotalRequests,
		CampaignsCreated:  c.metrics.SystemMetrics.CampaignsCreated,
		VideosProcessed:   c.metrics.SystemMetrics.VideosProcessed,
		LastHealthCheck:   c.metrics.SystemMetrics.LastHealthCheck,
		HealthCheckPassed: c.metrics.SystemMetrics.HealthCheckPassed,
	}
}

// systemMetricsUpdater updates system-level metrics
func (c *MetricsCollector) systemMetricsUpdater() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		c.metrics.SystemMetrics.LastHealthCheck = time.Now()
		c.metrics.SystemMetrics.HealthCheckPassed = true
		c.mu.Unlock()
	}
}
