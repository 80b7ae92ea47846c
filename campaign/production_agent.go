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
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"axonflow/campaign/shared/logger"
)

// ProductionAgent turns platform content into an actionable task list for
// the content team. LLM-primary with a fixed seven-task template fallback.
type ProductionAgent struct {
	llmRouter *LLMRouter
	logger    *logger.Logger
}

// ProductionResult is the output of the production stage
type ProductionResult struct {
	TaskSource     string           `json:"task_source"`
	Tasks          []ProductionTask `json:"tasks"`
	TotalTasks     int              `json:"total_tasks"`
	TotalHours     float64          `json:"total_estimated_hours"`
	HighPriority   int              `json:"high_priority_count"`
	MediumPriority int              `json:"medium_priority_count"`
	LowPriority    int              `json:"low_priority_count"`
}

// ProductionTask is a single actionable item on the production board
type ProductionTask struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Priority       string            `json:"priority"` // HIGH, MEDIUM or LOW
	Assignee       string            `json:"assignee"`
	DueDate        string            `json:"due_date"` // YYYY-MM-DD
	EstimatedHours float64           `json:"estimated_hours"`
	Status         string            `json:"status"`
	Checklist      []string          `json:"checklist,omitempty"`
	Hashtags       []string          `json:"hashtags,omitempty"`
	ContentDetails map[string]string `json:"content_details,omitempty"`
}

// NewProductionAgent creates a new production agent instance
func NewProductionAgent(router *LLMRouter) *ProductionAgent {
	return &ProductionAgent{
		llmRouter: router,
		logger:    logger.New("production-agent"),
	}
}

// Execute builds the production task list from the platform content
func (a *ProductionAgent) Execute(ctx context.Context, content *PlatformResult) (*ProductionResult, *StageInfo, error) {
	startTime := time.Now()

	log.Printf("[ProductionAgent] Planning tasks for themes: %v", content.ThemesUsed)

	req := LLMRequest{
		RequestID: fmt.Sprintf("production-%d", time.Now().Unix()),
		Stage:     "production",
		Prompt:    a.buildTaskPrompt(content),
	}

	response, providerInfo, err := a.llmRouter.RouteRequest(ctx, req)
	if err != nil {
		a.logger.Warn("", req.RequestID, "LLM request failed, using task templates",
			map[string]interface{}{"error": err.Error()})
		return a.templateTasks(content), heuristicStageInfo("production", startTime), nil
	}

	result, err := a.parseTaskResponse(response)
	if err != nil {
		a.logger.Warn("", req.RequestID, "LLM response parsing failed, using task templates",
			map[string]interface{}{"error": err.Error()})
		return a.templateTasks(content), heuristicStageInfo("production", startTime), nil
	}

	a.logger.StageInfo("", req.RequestID, "production", "Production tasks generated via LLM",
		map[string]interface{}{"provider": providerInfo.Provider, "tasks": len(result.Tasks)})
	return result, llmStageInfo("production", startTime, providerInfo), nil
}

func (a *ProductionAgent) buildTaskPrompt(content *PlatformResult) string {
	contentJSON, _ := json.Marshal(content)

	return fmt.Sprintf(`You are a video production planning AI. Given this platform content plan, create an ordered list of production tasks covering pre-production, filming, editing, graphics, publishing, engagement and analysis.

Platform content: %s

Return a JSON object with this structure:
{
  "tasks": [
    {
      "id": "PROD-001",
      "title": "task title",
      "description": "what needs to be done",
      "priority": "HIGH|MEDIUM|LOW",
      "assignee": "team or role",
      "due_date": "YYYY-MM-DD",
      "estimated_hours": 1.5,
      "status": "TODO",
      "checklist": ["item"]
    }
  ]
}

Use today as the base date for scheduling. Respond ONLY with valid JSON, no additional text.`, string(contentJSON))
}

func (a *ProductionAgent) parseTaskResponse(response *LLMResponse) (*ProductionResult, error) {
	jsonStr, err := extractJSONObject(response.Content)
	if err != nil {
		return nil, err
	}

	var result ProductionResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("JSON parsing failed: %w", err)
	}

	if len(result.Tasks) == 0 {
		return nil, fmt.Errorf("LLM task list is empty")
	}

	result.TaskSource = "llm"
	summarizeTasks(&result)
	return &result, nil
}

// templateTasks builds the standard seven-task production plan from the
// actual platform content.
func (a *ProductionAgent) templateTasks(content *PlatformResult) *ProductionResult {
	mainTheme := "Content"
	if len(content.ThemesUsed) > 0 {
		mainTheme = content.ThemesUsed[0]
	}
	target := content.TargetAudience
	if target == "" {
		target = "General audience"
	}

	hook := "Create engaging hook"
	caption := "Write caption"
	var hashtags []string
	if content.TikTok != nil {
		if content.TikTok.Hook != "" {
			hook = content.TikTok.Hook
		}
		if content.TikTok.Caption != "" {
			caption = content.TikTok.Caption
		}
		hashtags = content.TikTok.Hashtags
	}

	today := time.Now()
	due := func(days int) string {
		return today.AddDate(0, 0, days).Format("2006-01-02")
	}

	topHashtags := hashtags
	if len(topHashtags) > 3 {
		topHashtags = topHashtags[:3]
	}
	editHashtags := hashtags
	if len(editHashtags) > 5 {
		editHashtags = editHashtags[:5]
	}

	tasks := []ProductionTask{
		{
			ID:             "PROD-001",
			Title:          fmt.Sprintf("Pre-production: Script for '%s...'", truncate(hook, 50)),
			Description:    fmt.Sprintf("Prepare script and storyboard for video about: %s", mainTheme),
			Priority:       "HIGH",
			Assignee:       "Content Team",
			DueDate:        due(0),
			EstimatedHours: 1.5,
			Status:         "TODO",
			Checklist: []string{
				"Video script with timestamps",
				"Shot list",
				"Props/equipment needed",
			},
			ContentDetails: map[string]string{
				"hook":       hook,
				"main_theme": mainTheme,
			},
		},
		{
			ID:             "PROD-002",
			Title:          fmt.Sprintf("Film TikTok video: %s", mainTheme),
			Description:    fmt.Sprintf("Record 15-30 second video with hook: '%s'", truncate(hook, 60)),
			Priority:       "HIGH",
			Assignee:       "Video Production",
			DueDate:        due(1),
			EstimatedHours: 2,
			Status:         "TODO",
			Checklist: []string{
				"Film in vertical format (9:16)",
				"Ensure good lighting",
				"Record clear audio",
				fmt.Sprintf("Target audience: %s", truncate(target, 50)),
			},
		},
		{
			ID:             "PROD-003",
			Title:          "Edit video with captions and effects",
			Description:    fmt.Sprintf("Add text overlays, captions: '%s...', trending effects", truncate(caption, 100)),
			Priority:       "HIGH",
			Assignee:       "Video Editor",
			DueDate:        due(1),
			EstimatedHours: 1.5,
			Status:         "TODO",
			Checklist: []string{
				"Add captions for accessibility",
				"Include text overlays for key points",
				"Add trending music/sounds",
				"Color correction and grading",
			},
			Hashtags: editHashtags,
		},
		{
			ID:             "PROD-004",
			Title:          fmt.Sprintf("Create thumbnail for: %s", mainTheme),
			Description:    "Design eye-catching thumbnail and cover image",
			Priority:       "MEDIUM",
			Assignee:       "Graphic Designer",
			DueDate:        due(2),
			EstimatedHours: 1,
			Status:         "TODO",
			Checklist: []string{
				"1080x1920px for TikTok",
				"Include hook text",
				"High contrast for mobile viewing",
			},
		},
		{
			ID:             "PROD-005",
			Title:          fmt.Sprintf("Publish to TikTok with hashtags: %s...", strings.Join(topHashtags, ", ")),
			Description:    fmt.Sprintf("Schedule and publish video with optimized caption and %d hashtags", len(hashtags)),
			Priority:       "MEDIUM",
			Assignee:       "Social Media Manager",
			DueDate:        due(2),
			EstimatedHours: 0.5,
			Status:         "TODO",
			Checklist: []string{
				"Upload video",
				"Add caption with CTA",
				fmt.Sprintf("Include all %d hashtags", len(hashtags)),
				"Schedule for 6-9 PM",
				"Cross-post to Instagram Reels",
			},
			Hashtags: hashtags,
		},
		{
			ID:             "PROD-006",
			Title:          "Monitor and respond to engagement",
			Description:    fmt.Sprintf("Track performance and engage with comments on %s", mainTheme),
			Priority:       "LOW",
			Assignee:       "Community Manager",
			DueDate:        due(3),
			EstimatedHours: 2,
			Status:         "TODO",
			Checklist: []string{
				"View count",
				"Engagement rate",
				"Share count",
				"Comment sentiment",
				"Follower growth",
			},
		},
		{
			ID:             "PROD-007",
			Title:          "Analyze campaign performance",
			Description:    fmt.Sprintf("Create performance report for %s", mainTheme),
			Priority:       "LOW",
			Assignee:       "Analytics Team",
			DueDate:        due(7),
			EstimatedHours: 1,
			Status:         "TODO",
			Checklist: []string{
				"ROI calculation",
				"Engagement analytics",
				"Audience insights",
				"Content performance",
				"Recommendations for optimization",
			},
		},
	}

	result := &ProductionResult{
		TaskSource: "heuristic",
		Tasks:      tasks,
	}
	summarizeTasks(result)

	log.Printf("[ProductionAgent] Task summary: %d tasks, %.1f hours, %d high priority",
		result.TotalTasks, result.TotalHours, result.HighPriority)

	return result
}

// summarizeTasks fills the aggregate counters from the task list
func summarizeTasks(result *ProductionResult) {
	result.TotalTasks = len(result.Tasks)
	result.TotalHours = 0
	result.HighPriority = 0
	result.MediumPriority = 0
	result.LowPriority = 0

	for _, task := range result.Tasks {
		result.TotalHours += task.EstimatedHours
		switch task.Priority {
		case "HIGH":
			result.HighPriority++
		case "MEDIUM":
			result.MediumPriority++
		case "LOW":
			result.LowPriority++
		}
	}
}

// IsHealthy checks if the agent can operate
func (a *ProductionAgent) IsHealthy() bool {
	return true
}
