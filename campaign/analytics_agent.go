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
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"axonflow/campaign/shared/logger"
)

// AnalyticsAgent forecasts campaign performance from the composed stages.
// LLM-primary with a theme-calibrated simulation fallback.
type AnalyticsAgent struct {
	llmRouter *LLMRouter
	logger    *logger.Logger

	mu     sync.Mutex
	random *rand.Rand
}

// AnalyticsResult is the output of the analytics stage
type AnalyticsResult struct {
	PredictionSource     string                 `json:"prediction_source"`
	CampaignID           string                 `json:"campaign_id"`
	AnalysisTimestamp    string                 `json:"analysis_timestamp"`
	ContentTheme         string                 `json:"content_theme"`
	TargetAudience       string                 `json:"target_audience"`
	Metrics              *PredictedMetrics      `json:"metrics"`
	AudienceInsights     *AudienceInsights      `json:"audience_insights"`
	ContentPerformance   *ContentPerformance    `json:"content_performance"`
	ROIAnalysis          map[string]string      `json:"roi_analysis"`
	Recommendations      []string               `json:"recommendations"`
	CompetitiveBenchmark *CompetitiveBenchmark  `json:"competitive_benchmark"`
	ProductionEfficiency map[string]interface{} `json:"production_efficiency"`
}

// PredictedMetrics are the forecast core engagement numbers
type PredictedMetrics struct {
	Views            int    `json:"views"`
	Likes            int    `json:"likes"`
	Comments         int    `json:"comments"`
	Shares           int    `json:"shares"`
	Saves            int    `json:"saves"`
	EngagementRate   string `json:"engagement_rate"`
	ShareRate        string `json:"share_rate"`
	CompletionRate   string `json:"completion_rate"`
	AverageWatchTime string `json:"average_watch_time"`
}

// AudienceInsights describe who the campaign is expected to reach
type AudienceInsights struct {
	TopDemographics        []string          `json:"top_demographics"`
	PeakEngagementTime     string            `json:"peak_engagement_time"`
	DeviceBreakdown        map[string]string `json:"device_breakdown"`
	GeographicDistribution map[string]string `json:"geographic_distribution"`
}

// ContentPerformance predicts which content elements will perform
type ContentPerformance struct {
	BestPerformingElement string              `json:"best_performing_element"`
	HashtagPerformance    *HashtagPerformance `json:"hashtag_performance"`
	HookEffectiveness     string              `json:"hook_effectiveness"`
	CTAConversion         string              `json:"cta_conversion"`
}

// HashtagPerformance summarizes predicted hashtag reach
type HashtagPerformance struct {
	TopPerformer       string                       `json:"top_performer"`
	ReachContribution  string                       `json:"reach_contribution"`
	HashtagDetails     map[string]map[string]string `json:"hashtag_details,omitempty"`
}

// CompetitiveBenchmark places the forecast against industry averages
type CompetitiveBenchmark struct {
	VsIndustryAverage  map[string]string `json:"vs_industry_average"`
	PerformanceRanking string            `json:"performance_ranking"`
}

// themeBaseline are the simulation parameters per content theme
type themeBaseline struct {
	viewsMin       int
	viewsMax       int
	engagementRate float64
	shareRate      float64
	conversionRate float64
}

// NewAnalyticsAgent creates a new analytics agent instance
func NewAnalyticsAgent(router *LLMRouter) *AnalyticsAgent {
	return &AnalyticsAgent{
		llmRouter: router,
		logger:    logger.New("analytics-agent"),
		random:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Execute forecasts campaign performance from the earlier stage outputs
func (a *AnalyticsAgent) Execute(ctx context.Context, strategy *StrategyResult, content *PlatformResult, production *ProductionResult) (*AnalyticsResult, *StageInfo, error) {
	startTime := time.Now()

	log.Printf("[AnalyticsAgent] Forecasting performance for themes: %v", strategy.KeyThemes)

	req := LLMRequest{
		RequestID: fmt.Sprintf("analytics-%d", time.Now().Unix()),
		Stage:     "analytics",
		Prompt:    a.buildForecastPrompt(strategy, content),
	}

	response, providerInfo, err := a.llmRouter.RouteRequest(ctx, req)
	if err != nil {
		a.logger.Warn("", req.RequestID, "LLM request failed, using simulation",
			map[string]interface{}{"error": err.Error()})
		return a.simulatePerformance(strategy, content, production), heuristicStageInfo("analytics", startTime), nil
	}

	result, err := a.parseForecastResponse(response, strategy, production)
	if err != nil {
		a.logger.Warn("", req.RequestID, "LLM response parsing failed, using simulation",
			map[string]interface{}{"error": err.Error()})
		return a.simulatePerformance(strategy, content, production), heuristicStageInfo("analytics", startTime), nil
	}

	a.logger.StageInfo("", req.RequestID, "analytics", "Performance forecast generated via LLM",
		map[string]interface{}{"provider": providerInfo.Provider})
	return result, llmStageInfo("analytics", startTime, providerInfo), nil
}

func (a *AnalyticsAgent) buildForecastPrompt(strategy *StrategyResult, content *PlatformResult) string {
	strategyJSON, _ := json.Marshal(strategy)
	contentJSON, _ := json.Marshal(content)

	return fmt.Sprintf(`You are a social media analytics AI. Forecast the performance of this campaign.

Strategy: %s

Platform content: %s

Return a JSON object with this structure:
{
  "metrics": {
    "views": 100000,
    "likes": 6000,
    "comments": 900,
    "shares": 4000,
    "saves": 2000,
    "engagement_rate": "6.0%%",
    "share_rate": "4.0%%",
    "completion_rate": "60.0%%",
    "average_watch_time": "15.0 seconds"
  },
  "audience_insights": {
    "top_demographics": ["segment"],
    "peak_engagement_time": "window",
    "device_breakdown": {"mobile": "78%%"},
    "geographic_distribution": {"North America": "40%%"}
  },
  "content_performance": {
    "best_performing_element": "element",
    "hashtag_performance": {"top_performer": "#tag", "reach_contribution": "40%%"},
    "hook_effectiveness": "80%% scroll-stop rate",
    "cta_conversion": "3.0%%"
  },
  "roi_analysis": {"roi_percentage": "200%%"},
  "recommendations": ["recommendation"],
  "competitive_benchmark": {
    "vs_industry_average": {"engagement": "+20%%"},
    "performance_ranking": "Top 10%% in theme"
  }
}

Respond ONLY with valid JSON, no additional text.`, string(strategyJSON), string(contentJSON))
}

func (a *AnalyticsAgent) parseForecastResponse(response *LLMResponse, strategy *StrategyResult, production *ProductionResult) (*AnalyticsResult, error) {
	jsonStr, err := extractJSONObject(response.Content)
	if err != nil {
		return nil, err
	}

	var result AnalyticsResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("JSON parsing failed: %w", err)
	}

	if result.Metrics == nil || result.Metrics.Views == 0 {
		return nil, fmt.Errorf("LLM forecast missing core metrics")
	}

	result.PredictionSource = "llm"
	result.CampaignID = newCampaignID()
	result.AnalysisTimestamp = time.Now().UTC().Format(time.RFC3339)
	if len(strategy.KeyThemes) > 0 {
		result.ContentTheme = strategy.KeyThemes[0]
	}
	result.TargetAudience = strategy.TargetAudience
	result.ProductionEfficiency = productionEfficiency(production, a.randFloat(85, 98))
	return &result, nil
}

// simulatePerformance is the theme-calibrated fallback forecast
func (a *AnalyticsAgent) simulatePerformance(strategy *StrategyResult, content *PlatformResult, production *ProductionResult) *AnalyticsResult {
	mainTheme := "General"
	if len(strategy.KeyThemes) > 0 {
		mainTheme = strategy.KeyThemes[0]
	}

	baseline := baselineForTheme(mainTheme)

	views := a.randInt(baseline.viewsMin, baseline.viewsMax)
	likes := int(float64(views) * baseline.engagementRate / 100)
	shares := int(float64(views) * baseline.shareRate / 100)
	comments := int(float64(likes) * 0.15)
	saves := int(float64(views) * 0.02)

	var hashtags []string
	if content != nil && content.TikTok != nil {
		hashtags = content.TikTok.Hashtags
	}

	result := &AnalyticsResult{
		PredictionSource:  "heuristic",
		CampaignID:        newCampaignID(),
		AnalysisTimestamp: time.Now().UTC().Format(time.RFC3339),
		ContentTheme:      mainTheme,
		TargetAudience:    strategy.TargetAudience,
		Metrics: &PredictedMetrics{
			Views:            views,
			Likes:            likes,
			Comments:         comments,
			Shares:           shares,
			Saves:            saves,
			EngagementRate:   fmt.Sprintf("%.1f%%", baseline.engagementRate),
			ShareRate:        fmt.Sprintf("%.1f%%", baseline.shareRate),
			CompletionRate:   fmt.Sprintf("%.1f%%", a.randFloat(45, 75)),
			AverageWatchTime: fmt.Sprintf("%.1f seconds", a.randFloat(8, 25)),
		},
		AudienceInsights: &AudienceInsights{
			TopDemographics:    demographicsFor(strategy.TargetAudience),
			PeakEngagementTime: "6-9 PM local time",
			DeviceBreakdown: map[string]string{
				"mobile":  "78%",
				"tablet":  "15%",
				"desktop": "7%",
			},
			GeographicDistribution: geoDistributionFor(strategy.TargetAudience),
		},
		ContentPerformance: &ContentPerformance{
			BestPerformingElement: bestElementFor(strategy.KeyThemes),
			HashtagPerformance:    a.hashtagForecast(hashtags),
			HookEffectiveness:     fmt.Sprintf("%.1f%% scroll-stop rate", a.randFloat(65, 95)),
			CTAConversion:         fmt.Sprintf("%.1f%%", baseline.conversionRate),
		},
		ROIAnalysis: map[string]string{
			"time_saved":          "3.5 hours → 3 minutes (98% reduction)",
			"cost_per_view":       fmt.Sprintf("$%.3f", 0.02*a.randFloat(0.8, 1.2)),
			"cost_per_engagement": fmt.Sprintf("$%.2f", 0.15*a.randFloat(0.8, 1.2)),
			"estimated_revenue":   fmt.Sprintf("$%.2f", float64(likes)*0.001*a.randFloat(5, 15)),
			"roi_percentage":      fmt.Sprintf("%.1f%%", a.randFloat(150, 350)),
		},
		Recommendations: recommendationsFor(strategy.KeyThemes, baseline, views),
		CompetitiveBenchmark: &CompetitiveBenchmark{
			VsIndustryAverage: map[string]string{
				"engagement": fmt.Sprintf("+%.1f%%", a.randFloat(10, 40)),
				"shares":     fmt.Sprintf("+%.1f%%", a.randFloat(5, 25)),
				"conversion": fmt.Sprintf("+%.1f%%", a.randFloat(8, 30)),
			},
			PerformanceRanking: fmt.Sprintf("Top %d%% in %s", a.randInt(5, 20), mainTheme),
		},
		ProductionEfficiency: productionEfficiency(production, a.randFloat(85, 98)),
	}

	log.Printf("[AnalyticsAgent] Forecast generated for %s campaign with %d views", mainTheme, views)
	return result
}

func baselineForTheme(mainTheme string) themeBaseline {
	switch {
	case strings.Contains(mainTheme, "Fitness") || strings.Contains(mainTheme, "Health"):
		return themeBaseline{50000, 150000, 8.5, 6.2, 3.8}
	case strings.Contains(mainTheme, "AI") || strings.Contains(mainTheme, "Technology"):
		return themeBaseline{75000, 200000, 6.3, 4.5, 2.9}
	case strings.Contains(mainTheme, "Marketing") || strings.Contains(mainTheme, "Business"):
		return themeBaseline{30000, 100000, 5.8, 3.9, 4.2}
	case strings.Contains(mainTheme, "Education"):
		return themeBaseline{40000, 120000, 7.2, 8.1, 2.5}
	default:
		return themeBaseline{25000, 80000, 4.5, 3.2, 2.1}
	}
}

func demographicsFor(targetAudience string) []string {
	audienceLower := strings.ToLower(targetAudience)
	switch {
	case strings.Contains(audienceLower, "business"):
		return []string{"25-45 years", "Business professionals", "Urban areas", "College-educated"}
	case strings.Contains(audienceLower, "health") || strings.Contains(audienceLower, "fitness"):
		return []string{"22-40 years", "Health-conscious", "Active lifestyle", "Mixed urban/suburban"}
	case strings.Contains(audienceLower, "developer") || strings.Contains(audienceLower, "technical"):
		return []string{"20-35 years", "Tech professionals", "STEM educated", "Global distribution"}
	case strings.Contains(audienceLower, "student"):
		return []string{"18-25 years", "College/University", "Budget-conscious", "Mobile-first"}
	default:
		return []string{"18-34 years", "Diverse interests", "Social media active", "Mixed backgrounds"}
	}
}

func geoDistributionFor(targetAudience string) map[string]string {
	if strings.Contains(strings.ToLower(targetAudience), "business") {
		return map[string]string{
			"North America": "45%",
			"Europe":        "30%",
			"Asia Pacific":  "20%",
			"Other":         "5%",
		}
	}
	return map[string]string{
		"North America": "35%",
		"Europe":        "25%",
		"Asia Pacific":  "25%",
		"Latin America": "10%",
		"Other":         "5%",
	}
}

func bestElementFor(themes []string) string {
	if len(themes) == 0 {
		return "Opening hook"
	}
	switch {
	case strings.Contains(themes[0], "Fitness") || strings.Contains(themes[0], "Health"):
		return "Before/after transformation visuals"
	case strings.Contains(themes[0], "AI") || strings.Contains(themes[0], "Technology"):
		return "Demo of AI capabilities"
	case strings.Contains(themes[0], "Education"):
		return "Step-by-step tutorial format"
	default:
		return fmt.Sprintf("Hook mentioning %s", themes[0])
	}
}

func (a *AnalyticsAgent) hashtagForecast(hashtags []string) *HashtagPerformance {
	if len(hashtags) == 0 {
		return &HashtagPerformance{TopPerformer: "N/A", ReachContribution: "0%"}
	}

	details := make(map[string]map[string]string)
	for i, hashtag := range hashtags {
		if i >= 5 {
			break
		}
		details[hashtag] = map[string]string{
			"reach":      fmt.Sprintf("%d", a.randInt(5000, 50000)),
			"engagement": fmt.Sprintf("%.1f%%", a.randFloat(3, 12)),
		}
	}

	return &HashtagPerformance{
		TopPerformer:      hashtags[0],
		ReachContribution: "35-45%",
		HashtagDetails:    details,
	}
}

func recommendationsFor(themes []string, baseline themeBaseline, views int) []string {
	var recommendations []string

	if len(themes) > 0 {
		switch {
		case strings.Contains(themes[0], "Fitness") || strings.Contains(themes[0], "Health"):
			recommendations = append(recommendations,
				"Add more transformation stories and testimonials",
				"Create workout challenge series for higher engagement")
		case strings.Contains(themes[0], "AI") || strings.Contains(themes[0], "Technology"):
			recommendations = append(recommendations,
				"Include more live demos and use cases",
				"Create 'how it works' explainer content")
		case strings.Contains(themes[0], "Education"):
			recommendations = append(recommendations,
				"Develop a content series with progressive learning",
				"Add downloadable resources to increase saves")
		case strings.Contains(themes[0], "Marketing") || strings.Contains(themes[0], "Business"):
			recommendations = append(recommendations,
				"Include case studies and ROI data",
				"Create templates and actionable takeaways")
		}
	}

	if baseline.engagementRate < 5 {
		recommendations = append(recommendations, "Improve hook to increase scroll-stop rate")
	}
	if baseline.shareRate < 4 {
		recommendations = append(recommendations, "Add more shareable moments and quotes")
	}
	if views < 50000 {
		recommendations = append(recommendations, "Optimize posting time and increase hashtag research")
	}

	mainTheme := "main theme"
	if len(themes) > 0 {
		mainTheme = themes[0]
	}
	recommendations = append(recommendations,
		fmt.Sprintf("Continue focusing on %s content", mainTheme),
		"Test different video lengths to optimize completion rate",
		"Engage with comments within first hour of posting",
	)

	if len(recommendations) > 5 {
		recommendations = recommendations[:5]
	}
	return recommendations
}

func productionEfficiency(production *ProductionResult, teamEfficiency float64) map[string]interface{} {
	completed := 0
	total := 0
	if production != nil {
		total = len(production.Tasks)
		for _, task := range production.Tasks {
			if task.Status == "DONE" {
				completed++
			}
		}
	}
	return map[string]interface{}{
		"tasks_completed": completed,
		"tasks_total":     total,
		"time_to_market":  "48 hours",
		"team_efficiency": fmt.Sprintf("%.1f%%", teamEfficiency),
	}
}

func newCampaignID() string {
	return fmt.Sprintf("campaign_%s", uuid.New().String())
}

func (a *AnalyticsAgent) randInt(min, max int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return min + a.random.Intn(max-min+1)
}

func (a *AnalyticsAgent) randFloat(min, max float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return min + a.random.Float64()*(max-min)
}

// IsHealthy checks if the agent can operate
func (a *AnalyticsAgent) IsHealthy() bool {
	return true
}
