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
	"strings"
	"time"
)

// CampaignComposer assembles the four stage outputs into the final campaign
// document, with an LLM-written executive summary when a provider is available.
type CampaignComposer struct {
	llmRouter *LLMRouter
}

// Campaign is the complete composed marketing campaign
type Campaign struct {
	ID               string            `json:"id"`
	CreatedAt        string            `json:"created_at"`
	VideoTitle       string            `json:"video_title"`
	Transcript       string            `json:"transcript"`
	ExecutiveSummary string            `json:"executive_summary"`
	Strategy         *StrategyResult   `json:"strategy"`
	PlatformContent  *PlatformResult   `json:"platform_content"`
	ProductionTasks  *ProductionResult `json:"production_tasks"`
	Analytics        *AnalyticsResult  `json:"analytics"`
	StageInfo        []*StageInfo      `json:"stage_info"`
	ProcessingTime   float64           `json:"processing_time"`
}

// ComposeInput carries everything the composer needs
type ComposeInput struct {
	VideoTitle string
	Transcript string
	Strategy   *StrategyResult
	Platform   *PlatformResult
	Production *ProductionResult
	Analytics  *AnalyticsResult
	StageInfos []*StageInfo
	StartTime  time.Time
}

// NewCampaignComposer creates a new composer instance
func NewCampaignComposer(router *LLMRouter) *CampaignComposer {
	return &CampaignComposer{
		llmRouter: router,
	}
}

// Compose assembles the final campaign from the stage outputs
func (c *CampaignComposer) Compose(ctx context.Context, input ComposeInput) *Campaign {
	startTime := time.Now()

	log.Printf("[Composer] Composing campaign from %d stage results", len(input.StageInfos))

	campaign := &Campaign{
		ID:              newCampaignID(),
		CreatedAt:       time.Now().UTC().Format(time.RFC3339),
		VideoTitle:      input.VideoTitle,
		Transcript:      input.Transcript,
		Strategy:        input.Strategy,
		PlatformContent: input.Platform,
		ProductionTasks: input.Production,
		Analytics:       input.Analytics,
		StageInfo:       input.StageInfos,
	}

	campaign.ExecutiveSummary = c.buildSummary(ctx, input)
	campaign.ProcessingTime = time.Since(input.StartTime).Seconds()

	log.Printf("[Composer] Campaign %s composed in %s", campaign.ID, time.Since(startTime))
	return campaign
}

// buildSummary asks the LLM to synthesize an executive summary, falling back
// to a templated summary from the stage outputs.
func (c *CampaignComposer) buildSummary(ctx context.Context, input ComposeInput) string {
	prompt := c.buildSynthesisPrompt(input)

	req := LLMRequest{
		RequestID: fmt.Sprintf("compose-%d", time.Now().Unix()),
		Stage:     "compose",
		Prompt:    prompt,
		MaxTokens: 500,
	}

	response, _, err := c.llmRouter.RouteRequest(ctx, req)
	if err != nil {
		log.Printf("[Composer] LLM synthesis failed, using templated summary: %v", err)
		return c.templatedSummary(input)
	}

	summary := strings.TrimSpace(response.Content)
	if len(summary) < 50 || strings.Contains(summary, "Mock response") {
		log.Printf("[Composer] Synthesis response unusable (%d chars), using templated summary", len(summary))
		return c.templatedSummary(input)
	}

	return summary
}

// buildSynthesisPrompt builds the executive summary prompt
func (c *CampaignComposer) buildSynthesisPrompt(input ComposeInput) string {
	var promptBuilder strings.Builder

	promptBuilder.WriteString("You are a marketing campaign synthesis AI. Write a short executive summary (3-5 sentences) of this campaign for a marketing lead.\n\n")

	if input.Strategy != nil {
		promptBuilder.WriteString(fmt.Sprintf("Themes: %s\n", strings.Join(input.Strategy.KeyThemes, ", ")))
		promptBuilder.WriteString(fmt.Sprintf("Target audience: %s\n", input.Strategy.TargetAudience))
		promptBuilder.WriteString(fmt.Sprintf("Value proposition: %s\n", input.Strategy.ValueProposition))
	}
	if input.Platform != nil && input.Platform.TikTok != nil {
		promptBuilder.WriteString(fmt.Sprintf("TikTok hook: %s\n", input.Platform.TikTok.Hook))
	}
	if input.Production != nil {
		promptBuilder.WriteString(fmt.Sprintf("Production: %d tasks, %.1f estimated hours\n",
			input.Production.TotalTasks, input.Production.TotalHours))
	}
	if input.Analytics != nil && input.Analytics.Metrics != nil {
		promptBuilder.WriteString(fmt.Sprintf("Forecast: %d views, %s engagement\n",
			input.Analytics.Metrics.Views, input.Analytics.Metrics.EngagementRate))
	}

	promptBuilder.WriteString("\nInstructions:\n")
	promptBuilder.WriteString("1. Lead with the campaign's core message and audience\n")
	promptBuilder.WriteString("2. Mention the primary platform play and expected performance\n")
	promptBuilder.WriteString("3. Be concise and actionable\n\n")
	promptBuilder.WriteString("Provide your summary:")

	return promptBuilder.String()
}

// templatedSummary builds a summary without LLM synthesis
func (c *CampaignComposer) templatedSummary(input ComposeInput) string {
	var output strings.Builder

	theme := "the video content"
	if input.Strategy != nil && len(input.Strategy.KeyThemes) > 0 {
		theme = input.Strategy.KeyThemes[0]
	}
	audience := "a general audience"
	if input.Strategy != nil && input.Strategy.TargetAudience != "" {
		audience = input.Strategy.TargetAudience
	}

	output.WriteString(fmt.Sprintf("Campaign built around %s, targeting %s. ", theme, audience))

	if input.Platform != nil && input.Platform.TikTok != nil {
		output.WriteString(fmt.Sprintf("Primary play is short-form video led by the hook %q. ", input.Platform.TikTok.Hook))
	}
	if input.Production != nil {
		output.WriteString(fmt.Sprintf("Production plan covers %d tasks (%.1f hours, %d high priority). ",
			input.Production.TotalTasks, input.Production.TotalHours, input.Production.HighPriority))
	}
	if input.Analytics != nil && input.Analytics.Metrics != nil {
		output.WriteString(fmt.Sprintf("Forecast: %d views at %s engagement.",
			input.Analytics.Metrics.Views, input.Analytics.Metrics.EngagementRate))
	}

	return output.String()
}

// IsHealthy checks if composer is operational
func (c *CampaignComposer) IsHealthy() bool {
	return c.llmRouter != nil
}
