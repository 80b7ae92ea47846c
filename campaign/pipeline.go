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
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// init initializes the logger and timezone to avoid race conditions
// during concurrent pipeline execution. This resolves the Go stdlib
// race condition where multiple goroutines simultaneously initialize
// the timezone when log.Printf formats timestamps for the first time.
func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	_ = time.Now() // Initialize timezone
}

// PipelineEngine runs the four agent stages in fixed order and tracks
// every run so its status can be queried afterwards.
type PipelineEngine struct {
	strategy   *StrategyAgent
	platform   *PlatformAgent
	production *ProductionAgent
	analytics  *AnalyticsAgent
	composer   *CampaignComposer
	storage    PipelineStorage
}

// PipelineExecution represents a single pipeline run
type PipelineExecution struct {
	ID         string           `json:"id"`
	Status     string           `json:"status"` // pending, running, completed, failed
	VideoTitle string           `json:"video_title"`
	Transcript string           `json:"transcript"`
	Stages     []StageExecution `json:"stages"`
	Campaign   *Campaign        `json:"campaign,omitempty"`
	StartTime  time.Time        `json:"start_time"`
	EndTime    *time.Time       `json:"end_time,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// StageExecution records the lifecycle of one pipeline stage
type StageExecution struct {
	Name        string     `json:"name"`
	Status      string     `json:"status"` // pending, running, completed, failed
	Source      string     `json:"source,omitempty"`
	Provider    string     `json:"provider,omitempty"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Error       string     `json:"error,omitempty"`
	ProcessTime string     `json:"process_time"`
}

// PipelineStorage persists pipeline executions
type PipelineStorage interface {
	SaveExecution(execution *PipelineExecution) error
	GetExecution(id string) (*PipelineExecution, error)
	UpdateExecution(execution *PipelineExecution) error
}

// InMemoryPipelineStorage is a thread-safe map-backed storage
type InMemoryPipelineStorage struct {
	mu         sync.RWMutex
	executions map[string]*PipelineExecution
}

func NewInMemoryPipelineStorage() *InMemoryPipelineStorage {
	return &InMemoryPipelineStorage{
		executions: make(map[string]*PipelineExecution),
	}
}

func (s *InMemoryPipelineStorage) SaveExecution(execution *PipelineExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[execution.ID] = execution
	return nil
}

func (s *InMemoryPipelineStorage) GetExecution(id string) (*PipelineExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	execution, exists := s.executions[id]
	if !exists {
		return nil, fmt.Errorf("execution not found: %s", id)
	}
	return execution, nil
}

func (s *InMemoryPipelineStorage) UpdateExecution(execution *PipelineExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[execution.ID] = execution
	return nil
}

// NewPipelineEngine creates a pipeline engine over the four agents
func NewPipelineEngine(router *LLMRouter, storage PipelineStorage) *PipelineEngine {
	if storage == nil {
		storage = NewInMemoryPipelineStorage()
	}
	return &PipelineEngine{
		strategy:   NewStrategyAgent(router),
		platform:   NewPlatformAgent(router),
		production: NewProductionAgent(router),
		analytics:  NewAnalyticsAgent(router),
		composer:   NewCampaignComposer(router),
		storage:    storage,
	}
}

// Execute runs the full pipeline synchronously and returns the composed campaign
func (e *PipelineEngine) Execute(ctx context.Context, transcript, videoTitle string) (*Campaign, *PipelineExecution, error) {
	execution := &PipelineExecution{
		ID:         fmt.Sprintf("wf_%s", uuid.New().String()),
		Status:     "running",
		VideoTitle: videoTitle,
		Transcript: transcript,
		StartTime:  time.Now(),
	}

	if err := e.storage.SaveExecution(execution); err != nil {
		log.Printf("[Pipeline] Failed to save execution %s: %v", execution.ID, err)
	}

	log.Printf("[Pipeline] Starting execution %s (%d char transcript)", execution.ID, len(transcript))

	// Stage 1: Strategy
	log.Printf("[Pipeline] Execution %s: running stage 'strategy'", execution.ID)
	strategyResult, strategyInfo, err := e.strategy.Execute(ctx, transcript)
	if err != nil {
		return nil, e.failExecution(execution, "strategy", err), err
	}
	e.recordStage(execution, strategyInfo)

	// Stage 2: Platform content
	log.Printf("[Pipeline] Execution %s: running stage 'platform'", execution.ID)
	platformResult, platformInfo, err := e.platform.Execute(ctx, strategyResult)
	if err != nil {
		return nil, e.failExecution(execution, "platform", err), err
	}
	e.recordStage(execution, platformInfo)

	// Stage 3: Production tasks
	log.Printf("[Pipeline] Execution %s: running stage 'production'", execution.ID)
	productionResult, productionInfo, err := e.production.Execute(ctx, platformResult)
	if err != nil {
		return nil, e.failExecution(execution, "production", err), err
	}
	e.recordStage(execution, productionInfo)

	// Stage 4: Analytics forecast
	log.Printf("[Pipeline] Execution %s: running stage 'analytics'", execution.ID)
	analyticsResult, analyticsInfo, err := e.analytics.Execute(ctx, strategyResult, platformResult, productionResult)
	if err != nil {
		return nil, e.failExecution(execution, "analytics", err), err
	}
	e.recordStage(execution, analyticsInfo)

	// Compose the final campaign
	campaign := e.composer.Compose(ctx, ComposeInput{
		VideoTitle: videoTitle,
		Transcript: transcript,
		Strategy:   strategyResult,
		Platform:   platformResult,
		Production: productionResult,
		Analytics:  analyticsResult,
		StageInfos: []*StageInfo{strategyInfo, platformInfo, productionInfo, analyticsInfo},
		StartTime:  execution.StartTime,
	})

	now := time.Now()
	execution.Status = "completed"
	execution.Campaign = campaign
	execution.EndTime = &now
	if err := e.storage.UpdateExecution(execution); err != nil {
		log.Printf("[Pipeline] Failed to update execution %s: %v", execution.ID, err)
	}

	log.Printf("[Pipeline] Execution %s completed in %s", execution.ID, time.Since(execution.StartTime))
	return campaign, execution, nil
}

// GetExecution returns a tracked pipeline execution by ID
func (e *PipelineEngine) GetExecution(id string) (*PipelineExecution, error) {
	return e.storage.GetExecution(id)
}

// Progress returns completion percentage for a tracked execution
func (e *PipelineEngine) Progress(execution *PipelineExecution) int {
	// strategy, platform, production, analytics
	const totalStages = 4

	if execution.Status == "completed" {
		return 100
	}
	completed := 0
	for _, stage := range execution.Stages {
		if stage.Status == "completed" {
			completed++
		}
	}
	return completed * 100 / totalStages
}

// recordStage appends a completed stage to the execution record
func (e *PipelineEngine) recordStage(execution *PipelineExecution, info *StageInfo) {
	log.Printf("[Pipeline] Execution %s: stage '%s' completed via %s in %dms",
		execution.ID, info.Stage, info.Source, info.LatencyMs)
	promStageDuration.WithLabelValues(info.Stage).Observe(float64(info.LatencyMs) / 1000)

	now := time.Now()
	start := now.Add(-time.Duration(info.LatencyMs) * time.Millisecond)
	execution.Stages = append(execution.Stages, StageExecution{
		Name:        info.Stage,
		Status:      "completed",
		Source:      info.Source,
		Provider:    info.Provider,
		StartTime:   start,
		EndTime:     &now,
		ProcessTime: fmt.Sprintf("%dms", info.LatencyMs),
	})
	if err := e.storage.UpdateExecution(execution); err != nil {
		log.Printf("[Pipeline] Failed to update execution %s: %v", execution.ID, err)
	}
}

// failExecution marks the execution failed at the named stage
func (e *PipelineEngine) failExecution(execution *PipelineExecution, stage string, stageErr error) *PipelineExecution {
	now := time.Now()
	execution.Status = "failed"
	execution.Error = fmt.Sprintf("stage %s: %v", stage, stageErr)
	execution.EndTime = &now
	execution.Stages = append(execution.Stages, StageExecution{
		Name:      stage,
		Status:    "failed",
		StartTime: now,
		EndTime:   &now,
		Error:     stageErr.Error(),
	})
	if err := e.storage.UpdateExecution(execution); err != nil {
		log.Printf("[Pipeline] Failed to update execution %s: %v", execution.ID, err)
	}
	return execution
}

// IsHealthy reports whether the pipeline can run
func (e *PipelineEngine) IsHealthy() bool {
	return e.strategy != nil && e.platform != nil && e.production != nil && e.analytics != nil
}
