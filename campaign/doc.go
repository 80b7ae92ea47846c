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

/*
Package campaign provides the AxonFlow Campaign service - a video-to-campaign
pipeline that turns a video or transcript into a complete, multi-platform
marketing campaign.

# Overview

The Campaign service accepts a video upload or a raw transcript and runs it
through a four-stage agent pipeline:

  - Strategy: theme extraction, audience segmentation, campaign objectives
  - Platform: TikTok, Instagram, and LinkedIn content generation
  - Production: prioritized task list with assignees and time estimates
  - Analytics: performance forecast with ROI analysis and recommendations

Each stage is LLM-primary with a deterministic heuristic fallback: when no
provider is configured, a provider call fails, or the response cannot be
parsed, the stage produces its result from keyword and template heuristics
instead. A campaign is always produced.

# Architecture

Requests flow through the pipeline engine:

	Transcript → Strategy → Platform → Production → Analytics → Composer

The composer assembles the final Campaign with an executive summary and
per-stage provenance (which stages were LLM-generated vs heuristic).

# LLM Router

The LLMRouter provides weighted routing across multiple LLM providers:

  - Anthropic (Claude 3.5 Sonnet, Claude 3 Haiku)
  - OpenAI (GPT-4 family)
  - AWS Bedrock (Claude, Titan, Llama)
  - Ollama (self-hosted models)

Features include weighted load balancing, automatic failover on provider
errors, background health checking, and per-request cost tracking.

Example:

	router := NewLLMRouter(LoadLLMConfig())
	response, providerInfo, err := router.RouteRequest(ctx, request)

# Video Transcription

Uploaded videos (up to 500MB; mp4, mov, webm, avi, mkv) have their audio
extracted with ffmpeg and transcribed via an external speech-to-text
service. When no STT backend is configured or transcription fails, a demo
transcript keeps the rest of the pipeline functional.

# HTTP API

	GET  /api/health                         - Service and component health
	POST /api/video/upload                   - Multipart video upload + transcription
	POST /api/campaign/create                - Full pipeline from transcript
	POST /api/campaign/from-transcript       - Full pipeline from manual transcript
	GET  /api/campaigns/{id}                 - Retrieve a stored campaign
	POST /api/agent/strategy                 - Run the strategy stage alone
	POST /api/agent/platform                 - Run the platform stage alone
	POST /api/agent/production               - Run the production stage alone
	POST /api/agent/analytics                - Run the analytics stage alone
	POST /api/orchestrate/trigger            - Run the pipeline with execution tracking
	GET  /api/orchestrate/status/{workflow_id} - Pipeline execution status
	GET  /metrics                            - JSON metrics snapshot
	GET  /prometheus                         - Prometheus native format
	GET  /api/providers/status               - Per-provider health and usage
	PUT  /api/providers/weights              - Adjust routing weights (admin)

# Usage

	// Start the Campaign service
	campaign.Run()

	// The service reads configuration from environment variables:
	// PORT              - HTTP server port (default: 8005)
	// DATABASE_URL      - PostgreSQL connection string (optional)
	// REDIS_HOST        - Redis host for caching (optional)
	// STT_URL           - Speech-to-text endpoint (optional)
	// ANTHROPIC_API_KEY - Anthropic API key (optional)
	// OPENAI_API_KEY    - OpenAI API key (optional)
	// BEDROCK_REGION    - AWS Bedrock region (optional)
	// OLLAMA_ENDPOINT   - Ollama endpoint URL (optional)

# Thread Safety

All exported functions and types in this package are safe for concurrent use.
Pipeline executions run independently and shared state is synchronized via
sync.RWMutex.

# Metrics

The service exposes Prometheus metrics at /prometheus:

  - axonflow_campaign_requests_total - Total requests by status
  - axonflow_campaign_request_duration_milliseconds - Request latency
  - axonflow_campaign_stage_duration_seconds - Per-stage pipeline latency
  - axonflow_campaign_stage_fallbacks_total - Heuristic fallbacks by stage
  - axonflow_campaign_llm_calls_total - LLM calls by provider/status
*/
package campaign
