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

// Package main is the entry point for the AxonFlow Campaign service.
//
// The Campaign service turns a video or transcript into a complete
// marketing campaign by running four agent stages in sequence:
// - Strategy: theme and audience analysis of the transcript
// - Platform: per-network content generation (TikTok, Instagram, LinkedIn)
// - Production: actionable task planning for the content team
// - Analytics: performance forecasting for the campaign
//
// Every stage is LLM-primary with a deterministic heuristic fallback, so
// the service stays fully functional with no provider configured.
//
// Usage:
//
//	./campaign
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8005)
//	DATABASE_URL - PostgreSQL connection string (optional)
//	REDIS_HOST - Redis host for transcript caching (optional)
//	ANTHROPIC_API_KEY - Anthropic API key (optional)
//	OPENAI_API_KEY - OpenAI API key (optional)
//	BEDROCK_REGION - AWS Bedrock region (optional)
//	OLLAMA_ENDPOINT - Ollama endpoint URL (optional)
//	STT_URL - Speech-to-text service URL (optional)
//	STT_API_KEY - Speech-to-text API key (optional)
//
// For more information, see https://docs.getaxonflow.com
package main

import (
	"axonflow/campaign/campaign"
)

func main() {
	campaign.Run()
}
