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
Package logger provides structured JSON logging for AxonFlow Campaign
components.

# Overview

The logger package provides structured logging that outputs JSON to stdout,
making logs easily consumable by CloudWatch, ELK stack, or other log
aggregation systems.

Each log entry includes:
  - Timestamp (RFC3339Nano format)
  - Log level (DEBUG, INFO, WARN, ERROR)
  - Component name (campaign, transcription, etc.)
  - Instance ID and container name (for distributed tracing)
  - Campaign ID (for correlating all four pipeline stages of one run)
  - Request ID (for request correlation)
  - Stage name (optional, for stage-scoped entries)
  - Custom fields

# Usage

Create a logger for your component:

	log := logger.New("campaign")

Log messages with campaign and request context:

	log.Info("campaign-123", "req-456", "Pipeline started", map[string]interface{}{
	    "transcript_chars": 1842,
	})

Log stage-scoped entries:

	log.StageInfo("campaign-123", "req-456", "strategy", "Stage completed", nil)

Log with duration tracking:

	start := time.Now()
	// ... do work ...
	log.InfoWithDuration("campaign-123", "req-456", "Pipeline completed",
	    float64(time.Since(start).Milliseconds()), nil)

# Output Format

Log entries are output as single-line JSON:

	{"timestamp":"2025-01-15T10:30:00.123456789Z","level":"INFO",
	 "component":"campaign","instance_id":"i-abc123","container":"campaign-xyz",
	 "campaign_id":"campaign-123","request_id":"req-456",
	 "message":"Pipeline started","fields":{"transcript_chars":1842}}

# Environment Variables

The logger reads these environment variables:

  - INSTANCE_ID: Deployment instance identifier
  - HOSTNAME: Container hostname (auto-detected)

# Thread Safety

Logger instances are safe for concurrent use from multiple goroutines.
*/
package logger
