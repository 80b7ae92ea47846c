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
	"unicode/utf8"

	"axonflow/campaign/shared/logger"
)

// StrategyAgent analyzes a transcript and produces the campaign strategy.
// It is LLM-primary: the transcript is sent to a provider with a strict JSON
// prompt, and any routing or parsing failure falls back to local keyword
// analysis so the stage never fails outright.
type StrategyAgent struct {
	llmRouter *LLMRouter
	logger    *logger.Logger
}

// StrategyResult is the output of the strategy stage
type StrategyResult struct {
	AnalysisSource     string            `json:"analysis_source"`
	TranscriptLength   int               `json:"transcript_length"`
	KeyThemes          []string          `json:"key_themes"`
	TargetAudience     string            `json:"target_audience"`
	PrimaryDemographic string            `json:"primary_demographic"`
	Psychographics     []string          `json:"psychographics"`
	CampaignObjectives []string          `json:"campaign_objectives"`
	ValueProposition   string            `json:"value_proposition"`
	ContentPillars     []string          `json:"content_pillars"`
	MessagingTone      []string          `json:"messaging_tone"`
	SuccessMetrics     map[string]string `json:"success_metrics"`
}

// StageInfo records how a stage result was produced
type StageInfo struct {
	Stage      string `json:"stage"`
	Source     string `json:"source"` // "llm" or "heuristic"
	Provider   string `json:"provider,omitempty"`
	Model      string `json:"model,omitempty"`
	LatencyMs  int64  `json:"latency_ms"`
	TokensUsed int    `json:"tokens_used,omitempty"`
}

// themeKeywords maps campaign themes to the transcript keywords that signal them
var themeKeywords = map[string][]string{
	"AI and Technology":      {"ai", "artificial intelligence", "machine learning", "technology", "software", "app"},
	"Marketing and Business": {"marketing", "business", "sales", "revenue", "growth", "customers"},
	"Health and Fitness":     {"fitness", "health", "workout", "exercise", "nutrition", "wellness"},
	"Education":              {"learn", "education", "course", "tutorial", "training", "students"},
	"Product Launch":         {"launch", "introducing", "new", "revolutionary", "innovative"},
	"Social Media":           {"tiktok", "instagram", "youtube", "content", "viral", "followers"},
}

// themeOrder keeps heuristic theme detection deterministic
var themeOrder = []string{
	"AI and Technology",
	"Marketing and Business",
	"Health and Fitness",
	"Education",
	"Product Launch",
	"Social Media",
}

// audienceKeywords maps audience segments to their signal words
var audienceSegments = []struct {
	Audience string
	Keywords []string
}{
	{"Business professionals and decision makers", []string{"enterprise", "business", "company", "corporate"}},
	{"Developers and technical professionals", []string{"developer", "coding", "programming", "api"}},
	{"Health-conscious individuals and fitness enthusiasts", []string{"fitness", "health", "workout", "diet"}},
	{"Students and lifelong learners", []string{"student", "learn", "education", "course"}},
	{"Entrepreneurs and startup founders", []string{"entrepreneur", "startup", "founder"}},
}

// NewStrategyAgent creates a new strategy agent instance
func NewStrategyAgent(router *LLMRouter) *StrategyAgent {
	return &StrategyAgent{
		llmRouter: router,
		logger:    logger.New("strategy-agent"),
	}
}

// Execute analyzes the transcript and returns the campaign strategy
func (a *StrategyAgent) Execute(ctx context.Context, transcript string) (*StrategyResult, *StageInfo, error) {
	startTime := time.Now()

	if len(strings.TrimSpace(transcript)) < 10 {
		log.Printf("[StrategyAgent] Transcript too short (%d chars), using placeholder", len(transcript))
		transcript = "Product or service video content"
	}

	log.Printf("[StrategyAgent] Analyzing transcript (%d chars)", len(transcript))

	prompt := a.buildAnalysisPrompt(transcript)

	req := LLMRequest{
		RequestID: fmt.Sprintf("strategy-%d", time.Now().Unix()),
		Stage:     "strategy",
		Prompt:    prompt,
	}

	response, providerInfo, err := a.llmRouter.RouteRequest(ctx, req)
	if err != nil {
		a.logger.Warn("", req.RequestID, "LLM request failed, using heuristics",
			map[string]interface{}{"error": err.Error()})
		return a.heuristicAnalysis(transcript), heuristicStageInfo("strategy", startTime), nil
	}

	result, err := a.parseStrategyResponse(response, transcript)
	if err != nil {
		a.logger.Warn("", req.RequestID, "LLM response parsing failed, using heuristics",
			map[string]interface{}{"error": err.Error()})
		return a.heuristicAnalysis(transcript), heuristicStageInfo("strategy", startTime), nil
	}

	a.logger.StageInfo("", req.RequestID, "strategy", "Strategy generated via LLM",
		map[string]interface{}{"provider": providerInfo.Provider, "themes": len(result.KeyThemes)})
	return result, llmStageInfo("strategy", startTime, providerInfo), nil
}

// buildAnalysisPrompt builds the strict-JSON analysis prompt
func (a *StrategyAgent) buildAnalysisPrompt(transcript string) string {
	return fmt.Sprintf(`You are a marketing strategy AI. Analyze this video transcript and return a JSON object with the campaign strategy.

Transcript: "%s"

Return a JSON object with this structure:
{
  "key_themes": ["theme1", "theme2", "theme3"],
  "target_audience": "description of the audience",
  "primary_demographic": "short demographic label",
  "psychographics": ["trait1", "trait2"],
  "campaign_objectives": ["objective1", "objective2"],
  "value_proposition": "one sentence value proposition",
  "content_pillars": ["pillar1", "pillar2", "pillar3"],
  "messaging_tone": ["tone1", "tone2"],
  "success_metrics": {"engagement_rate": "target", "conversion_target": "target"}
}

Respond ONLY with valid JSON, no additional text.`, truncate(transcript, 3000))
}

// parseStrategyResponse extracts the strategy JSON from the LLM response
func (a *StrategyAgent) parseStrategyResponse(response *LLMResponse, transcript string) (*StrategyResult, error) {
	jsonStr, err := extractJSONObject(response.Content)
	if err != nil {
		return nil, err
	}

	var result StrategyResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("JSON parsing failed: %w", err)
	}

	if len(result.KeyThemes) == 0 {
		return nil, fmt.Errorf("LLM strategy missing key themes")
	}

	result.AnalysisSource = "llm"
	result.TranscriptLength = len(transcript)
	return &result, nil
}

// heuristicAnalysis is the keyword-matching fallback used when the LLM path fails
func (a *StrategyAgent) heuristicAnalysis(transcript string) *StrategyResult {
	transcriptLower := strings.ToLower(transcript)

	// Detect themes from keywords
	var themes []string
	for _, theme := range themeOrder {
		for _, keyword := range themeKeywords[theme] {
			if strings.Contains(transcriptLower, keyword) {
				themes = append(themes, theme)
				break
			}
		}
	}

	// If no themes found, derive one from the start of the transcript
	if len(themes) == 0 {
		firstWords := strings.TrimSpace(strings.ReplaceAll(truncate(transcript, 100), "\n", " "))
		themes = append(themes, fmt.Sprintf("Topic: %s...", truncate(firstWords, 50)))
	}

	if len(themes) > 3 {
		themes = themes[:3]
	}

	// Determine target audience from signal words
	targetAudience := "General audience"
	for _, segment := range audienceSegments {
		matched := false
		for _, keyword := range segment.Keywords {
			if strings.Contains(transcriptLower, keyword) {
				targetAudience = segment.Audience
				matched = true
				break
			}
		}
		if matched {
			break
		}
	}

	valueProp := strings.TrimSpace(strings.ReplaceAll(truncate(transcript, 150), "\n", " "))

	return &StrategyResult{
		AnalysisSource:     "heuristic",
		TranscriptLength:   len(transcript),
		KeyThemes:          themes,
		TargetAudience:     fmt.Sprintf("%s interested in: %s", targetAudience, themes[0]),
		PrimaryDemographic: targetAudience,
		Psychographics: []string{
			"Early adopters of new solutions",
			"Value efficiency and innovation",
			"Seek proven results",
		},
		CampaignObjectives: []string{
			fmt.Sprintf("Promote: %s", truncate(valueProp, 75)),
			"Build brand awareness and engagement",
			"Generate qualified leads",
			"Drive conversions",
		},
		ValueProposition: valueProp,
		ContentPillars: []string{
			fmt.Sprintf("Pillar 1: %s", themes[0]),
			"Pillar 2: Behind-the-scenes",
			"Pillar 3: Customer success stories",
		},
		MessagingTone: []string{
			"Professional yet approachable",
			"Data-driven and results-focused",
			"Inspiring and actionable",
		},
		SuccessMetrics: map[string]string{
			"engagement_rate":   "25% target",
			"conversion_target": "5% of viewers",
			"reach_goal":        "100K impressions in 30 days",
			"share_rate":        "10% organic sharing",
		},
	}
}

// IsHealthy checks if the agent can operate (heuristics always work)
func (a *StrategyAgent) IsHealthy() bool {
	return true
}

// Shared stage helpers

// extractJSONObject pulls the outermost JSON object out of free-form LLM text
func extractJSONObject(content string) (string, error) {
	jsonStart := strings.Index(content, "{")
	jsonEnd := strings.LastIndex(content, "}")

	if jsonStart == -1 || jsonEnd == -1 || jsonEnd < jsonStart {
		return "", fmt.Errorf("no JSON found in response")
	}

	return content[jsonStart : jsonEnd+1], nil
}

// truncate shortens s to at most n bytes, backing off to the nearest
// rune boundary so multi-byte characters are never split
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func heuristicStageInfo(stage string, start time.Time) *StageInfo {
	promFallbacks.WithLabelValues(stage).Inc()
	return &StageInfo{
		Stage:     stage,
		Source:    "heuristic",
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

func llmStageInfo(stage string, start time.Time, info *ProviderInfo) *StageInfo {
	return &StageInfo{
		Stage:      stage,
		Source:     "llm",
		Provider:   info.Provider,
		Model:      info.Model,
		LatencyMs:  time.Since(start).Milliseconds(),
		TokensUsed: info.TokensUsed,
	}
}
