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

// PlatformAgent turns a campaign strategy into per-network content for
// TikTok, Instagram and LinkedIn. LLM-primary with template fallback.
type PlatformAgent struct {
	llmRouter *LLMRouter
	logger    *logger.Logger
}

// PlatformResult is the output of the platform stage
type PlatformResult struct {
	ContentSource      string            `json:"content_source"`
	PlatformsOptimized bool              `json:"platforms_optimized"`
	TikTok             *TikTokContent    `json:"tiktok"`
	Instagram          *InstagramContent `json:"instagram"`
	LinkedIn           *LinkedInContent  `json:"linkedin"`
	ThemesUsed         []string          `json:"strategy_themes_used"`
	TargetAudience     string            `json:"target_audience"`
}

// TikTokContent is a short-form vertical video plan
type TikTokContent struct {
	Hook           string   `json:"hook"`
	Caption        string   `json:"caption"`
	Hashtags       []string `json:"hashtags"`
	Format         string   `json:"format"`
	Duration       string   `json:"duration"`
	CTA            string   `json:"cta"`
	PostingTime    string   `json:"posting_time"`
	ContentStyle   []string `json:"content_style"`
	VisualElements []string `json:"visual_elements"`
}

// InstagramContent is a Reels content plan
type InstagramContent struct {
	ReelHook string   `json:"reel_hook"`
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
	Format   string   `json:"format"`
	Duration string   `json:"duration"`
}

// LinkedInContent is a professional post plan
type LinkedInContent struct {
	Headline string   `json:"headline"`
	Opening  string   `json:"opening"`
	Body     string   `json:"body"`
	Hashtags []string `json:"hashtags"`
	Format   string   `json:"format"`
	Tone     string   `json:"tone"`
}

// NewPlatformAgent creates a new platform agent instance
func NewPlatformAgent(router *LLMRouter) *PlatformAgent {
	return &PlatformAgent{
		llmRouter: router,
		logger:    logger.New("platform-agent"),
	}
}

// Execute generates platform content from the strategy
func (a *PlatformAgent) Execute(ctx context.Context, strategy *StrategyResult) (*PlatformResult, *StageInfo, error) {
	startTime := time.Now()

	log.Printf("[PlatformAgent] Creating content for themes: %v", strategy.KeyThemes)

	req := LLMRequest{
		RequestID: fmt.Sprintf("platform-%d", time.Now().Unix()),
		Stage:     "platform",
		Prompt:    a.buildContentPrompt(strategy),
	}

	response, providerInfo, err := a.llmRouter.RouteRequest(ctx, req)
	if err != nil {
		a.logger.Warn("", req.RequestID, "LLM request failed, using templates",
			map[string]interface{}{"error": err.Error()})
		return a.templateContent(strategy), heuristicStageInfo("platform", startTime), nil
	}

	result, err := a.parsePlatformResponse(response, strategy)
	if err != nil {
		a.logger.Warn("", req.RequestID, "LLM response parsing failed, using templates",
			map[string]interface{}{"error": err.Error()})
		return a.templateContent(strategy), heuristicStageInfo("platform", startTime), nil
	}

	a.logger.StageInfo("", req.RequestID, "platform", "Platform content generated via LLM",
		map[string]interface{}{"provider": providerInfo.Provider, "platforms": result.PlatformsOptimized})
	return result, llmStageInfo("platform", startTime, providerInfo), nil
}

func (a *PlatformAgent) buildContentPrompt(strategy *StrategyResult) string {
	strategyJSON, _ := json.Marshal(strategy)

	return fmt.Sprintf(`You are a social media content AI. Given this campaign strategy, create platform-optimized content for TikTok, Instagram Reels and LinkedIn.

Strategy: %s

Return a JSON object with this structure:
{
  "tiktok": {
    "hook": "attention-grabbing opening line with emoji",
    "caption": "full caption text",
    "hashtags": ["#tag1", "#tag2"],
    "format": "video format description",
    "duration": "target length",
    "cta": "call to action",
    "posting_time": "recommended posting window",
    "content_style": ["style note"],
    "visual_elements": ["visual note"]
  },
  "instagram": {
    "reel_hook": "opening line",
    "caption": "caption text",
    "hashtags": ["#tag1"],
    "format": "format description",
    "duration": "target length"
  },
  "linkedin": {
    "headline": "post headline",
    "opening": "opening paragraph",
    "body": "body text",
    "hashtags": ["#tag1"],
    "format": "format description",
    "tone": "tone description"
  }
}

Respond ONLY with valid JSON, no additional text.`, string(strategyJSON))
}

func (a *PlatformAgent) parsePlatformResponse(response *LLMResponse, strategy *StrategyResult) (*PlatformResult, error) {
	jsonStr, err := extractJSONObject(response.Content)
	if err != nil {
		return nil, err
	}

	var result PlatformResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("JSON parsing failed: %w", err)
	}

	if result.TikTok == nil || result.Instagram == nil || result.LinkedIn == nil {
		return nil, fmt.Errorf("LLM content missing one or more platforms")
	}

	result.ContentSource = "llm"
	result.PlatformsOptimized = true
	result.ThemesUsed = strategy.KeyThemes
	result.TargetAudience = strategy.TargetAudience
	return &result, nil
}

// templateContent builds deterministic platform content directly from the
// strategy when the LLM path is unavailable.
func (a *PlatformAgent) templateContent(strategy *StrategyResult) *PlatformResult {
	return &PlatformResult{
		ContentSource:      "heuristic",
		PlatformsOptimized: true,
		TikTok:             a.tiktokTemplate(strategy),
		Instagram:          a.instagramTemplate(strategy),
		LinkedIn:           a.linkedinTemplate(strategy),
		ThemesUsed:         strategy.KeyThemes,
		TargetAudience:     strategy.TargetAudience,
	}
}

func (a *PlatformAgent) tiktokTemplate(strategy *StrategyResult) *TikTokContent {
	mainTheme := "Amazing content"
	if len(strategy.KeyThemes) > 0 {
		mainTheme = strategy.KeyThemes[0]
	}
	valueProp := strategy.ValueProposition
	if valueProp == "" {
		valueProp = "Check this out"
	}

	// Theme-aware hook with a platform-appropriate emoji
	var hook string
	switch {
	case strings.Contains(mainTheme, "AI") || strings.Contains(mainTheme, "Technology"):
		hook = fmt.Sprintf("🤖 %s...", truncate(valueProp, 60))
	case strings.Contains(mainTheme, "Fitness") || strings.Contains(mainTheme, "Health"):
		hook = fmt.Sprintf("💪 Transform your health: %s...", truncate(valueProp, 50))
	case strings.Contains(mainTheme, "Marketing") || strings.Contains(mainTheme, "Business"):
		hook = fmt.Sprintf("📈 Grow your business: %s...", truncate(valueProp, 50))
	case strings.Contains(mainTheme, "Education"):
		hook = fmt.Sprintf("🎓 Learn this now: %s...", truncate(valueProp, 50))
	default:
		hook = fmt.Sprintf("🚀 %s: %s...", mainTheme, truncate(valueProp, 50))
	}

	var captionParts []string
	if len(strategy.CampaignObjectives) > 0 {
		captionParts = append(captionParts, truncate(strategy.CampaignObjectives[0], 100))
	}
	captionParts = append(captionParts,
		"",
		fmt.Sprintf("Perfect for: %s", truncate(strategy.TargetAudience, 80)),
		"",
		"👇 Learn more in comments",
	)

	hashtags := themeHashtags(strategy.KeyThemes, 3)
	hashtags = append(hashtags, "#TikTok", "#ForYouPage", "#FYP", "#Viral", "#ContentCreator")
	if len(hashtags) > 10 {
		hashtags = hashtags[:10]
	}

	return &TikTokContent{
		Hook:        truncate(hook, 100),
		Caption:     strings.Join(captionParts, "\n"),
		Hashtags:    hashtags,
		Format:      "15-30 second vertical video",
		Duration:    "15-30 seconds",
		CTA:         "Follow for more insights!",
		PostingTime: "6-9 PM local time (peak engagement)",
		ContentStyle: []string{
			"Fast-paced and engaging",
			"Text overlays for key points",
			"Trending audio if applicable",
		},
		VisualElements: []string{
			"Eye-catching thumbnail",
			"Captions for accessibility",
			"Dynamic transitions",
		},
	}
}

func (a *PlatformAgent) instagramTemplate(strategy *StrategyResult) *InstagramContent {
	valueProp := strategy.ValueProposition
	if valueProp == "" {
		valueProp = "Amazing content"
	}
	firstTheme := "Check this out"
	if len(strategy.KeyThemes) > 0 {
		firstTheme = strategy.KeyThemes[0]
	}

	hashtags := themeHashtags(strategy.KeyThemes, 5)
	hashtags = append(hashtags, "#Reels", "#Instagram")

	return &InstagramContent{
		ReelHook: fmt.Sprintf("📸 %s", truncate(valueProp, 60)),
		Caption:  fmt.Sprintf("%s\n\n%s", valueProp, firstTheme),
		Hashtags: hashtags,
		Format:   "9:16 vertical video reel",
		Duration: "15-60 seconds",
	}
}

func (a *PlatformAgent) linkedinTemplate(strategy *StrategyResult) *LinkedInContent {
	headlineTheme := "Industry Insights"
	if len(strategy.KeyThemes) > 0 {
		headlineTheme = strategy.KeyThemes[0]
	}
	valueProp := strategy.ValueProposition
	if valueProp == "" {
		valueProp = "Professional insights"
	}
	demographic := strategy.PrimaryDemographic
	if demographic == "" {
		demographic = "Professionals"
	}

	hashtags := themeHashtags(strategy.KeyThemes, 3)
	hashtags = append(hashtags, "#LinkedInLearning")

	return &LinkedInContent{
		Headline: fmt.Sprintf("🎯 %s", headlineTheme),
		Opening:  truncate(valueProp, 200),
		Body:     fmt.Sprintf("For %s, this represents a significant opportunity...", demographic),
		Hashtags: hashtags,
		Format:   "Native video or article",
		Tone:     "Professional and thought-leadership focused",
	}
}

// themeHashtags turns up to max themes into hashtags, stripping spaces
// and connecting words.
func themeHashtags(themes []string, max int) []string {
	var hashtags []string
	for i, theme := range themes {
		if i >= max {
			break
		}
		tag := strings.ReplaceAll(theme, " ", "")
		tag = strings.ReplaceAll(tag, "and", "")
		hashtags = append(hashtags, "#"+tag)
	}
	return hashtags
}

// IsHealthy checks if the agent can operate
func (a *PlatformAgent) IsHealthy() bool {
	return true
}
