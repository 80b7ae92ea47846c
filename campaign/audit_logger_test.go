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
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

// TestAuditLoggerNoOp tests the no-op logger without a database
func TestAuditLoggerNoOp(t *testing.T) {
	logger := NewAuditLogger("")

	if !logger.IsHealthy() {
		t.Error("Expected no-op logger to be healthy")
	}

	// Logging must not panic or block without a database
	logger.LogUpload(context.Background(), "req_1", &TranscriptionResult{
		VideoTitle: "demo.mp4",
		Source:     "demo",
	})
	logger.LogFailedRequest(context.Background(), "req_2", "campaign", fmt.Errorf("boom"))

	entries, err := logger.SearchAuditLogs(AuditSearchCriteria{})
	if err != nil {
		t.Fatalf("Unexpected search error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty results from no-op logger, got %d", len(entries))
	}
}

// TestAuditLoggerNoOpDropsEntries tests that without a database, entries
// are dropped instead of accumulating in a queue nothing consumes
func TestAuditLoggerNoOpDropsEntries(t *testing.T) {
	logger := NewAuditLogger("")

	for i := 0; i < 50; i++ {
		logger.LogUpload(context.Background(), fmt.Sprintf("req_%d", i), &TranscriptionResult{
			VideoTitle: "demo.mp4",
			Source:     "demo",
		})
	}

	if queued := len(logger.auditQueue); queued != 0 {
		t.Errorf("Expected empty audit queue on no-op logger, got %d entries", queued)
	}
}

// TestLogCampaignCreated tests the campaign audit entry
func TestLogCampaignCreated(t *testing.T) {
	logger := NewAuditLogger("")

	campaign := &Campaign{
		ID:             "campaign_20250815_120000",
		VideoTitle:     "Product Demo",
		Transcript:     "Our new AI platform",
		ProcessingTime: 2.5,
		StageInfo: []*StageInfo{
			{Stage: "strategy", Source: "llm", Provider: "anthropic", Model: ModelClaude35Sonnet, TokensUsed: 400},
			{Stage: "platform", Source: "llm", Provider: "anthropic", Model: ModelClaude3Haiku, TokensUsed: 300},
			{Stage: "production", Source: "heuristic"},
			{Stage: "analytics", Source: "heuristic"},
		},
	}
	execution := &PipelineExecution{ID: "wf_abc"}

	entry := logger.LogCampaignCreated(context.Background(), "req_42", campaign, execution)

	if entry.RequestType != "campaign" {
		t.Errorf("Expected request type campaign, got %s", entry.RequestType)
	}

	if entry.CampaignID != campaign.ID {
		t.Errorf("Expected campaign ID %s, got %s", campaign.ID, entry.CampaignID)
	}

	if entry.ExecutionID != "wf_abc" {
		t.Errorf("Expected execution ID wf_abc, got %s", entry.ExecutionID)
	}

	if entry.TranscriptLength != len(campaign.Transcript) {
		t.Errorf("Expected transcript length %d, got %d", len(campaign.Transcript), entry.TranscriptLength)
	}

	if entry.Outcome != "completed" {
		t.Errorf("Expected outcome completed, got %s", entry.Outcome)
	}

	if entry.ResponseTime != 2500 {
		t.Errorf("Expected 2500ms response time, got %d", entry.ResponseTime)
	}

	// Token usage sums across LLM stages only
	if entry.TokensUsed != 700 {
		t.Errorf("Expected 700 tokens, got %d", entry.TokensUsed)
	}

	if entry.Provider != "anthropic" || entry.Model != ModelClaude35Sonnet {
		t.Errorf("Expected attribution to first LLM stage, got %s/%s", entry.Provider, entry.Model)
	}

	if entry.StageSources["strategy"] != "llm" || entry.StageSources["production"] != "heuristic" {
		t.Errorf("Unexpected stage sources: %v", entry.StageSources)
	}

	if !strings.HasPrefix(entry.ID, "audit_") {
		t.Errorf("Expected audit_ ID prefix, got %s", entry.ID)
	}
}

// TestStageSources tests flattening stage info into a source map
func TestStageSources(t *testing.T) {
	infos := []*StageInfo{
		{Stage: "strategy", Source: "llm"},
		nil,
		{Stage: "platform", Source: "heuristic"},
	}

	sources := stageSources(infos)

	if len(sources) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(sources))
	}

	if sources["strategy"] != "llm" {
		t.Errorf("Expected strategy llm, got %v", sources["strategy"])
	}

	if sources["platform"] != "heuristic" {
		t.Errorf("Expected platform heuristic, got %v", sources["platform"])
	}
}

// TestSearchAuditLogs tests criteria-driven audit queries
func TestSearchAuditLogs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	logger := &AuditLogger{db: db}

	columns := []string{
		"id", "request_id", "timestamp", "campaign_id", "execution_id", "request_type",
		"video_title", "transcript_length", "outcome", "stage_sources", "provider",
		"model", "response_time_ms", "tokens_used", "cost", "error_message",
	}
	rows := sqlmock.NewRows(columns).AddRow(
		"audit_1", "req_1", time.Now(), "campaign_x", "wf_1", "campaign",
		"Demo", 120, "completed", []byte(`{"strategy":"llm"}`), "anthropic",
		ModelClaude35Sonnet, int64(2500), 700, 0.021, nil,
	)

	mock.ExpectQuery("SELECT id, request_id, timestamp, campaign_id").
		WithArgs("campaign_x", "campaign").
		WillReturnRows(rows)

	entries, err := logger.SearchAuditLogs(AuditSearchCriteria{
		CampaignID:  "campaign_x",
		RequestType: "campaign",
		Limit:       10,
	})
	if err != nil {
		t.Fatalf("Unexpected search error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.CampaignID != "campaign_x" {
		t.Errorf("Expected campaign_x, got %s", entry.CampaignID)
	}

	if entry.StageSources["strategy"] != "llm" {
		t.Errorf("Expected stage sources decoded, got %v", entry.StageSources)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

// TestBatchWriterWrite tests transactional batch inserts
func TestBatchWriterWrite(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	writer := &BatchWriter{db: db, batchSize: 100}

	entries := []*AuditEntry{
		{ID: "audit_1", RequestID: "req_1", Timestamp: time.Now(), RequestType: "campaign", Outcome: "completed"},
		{ID: "audit_2", RequestID: "req_2", Timestamp: time.Now(), RequestType: "agent", Outcome: "completed"},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO campaign_audit_logs")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := writer.Write(entries); err != nil {
		t.Fatalf("Unexpected write error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

// TestBatchWriterAddFlushesAtBatchSize tests automatic flush on full batch
func TestBatchWriterAddFlushesAtBatchSize(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	writer := &BatchWriter{db: db, batchSize: 2, entries: make([]*AuditEntry, 0, 2)}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO campaign_audit_logs")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	writer.Add(&AuditEntry{ID: "audit_1", Timestamp: time.Now()})
	writer.Add(&AuditEntry{ID: "audit_2", Timestamp: time.Now()})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Expected flush after reaching batch size: %v", err)
	}

	writer.mu.Lock()
	remaining := len(writer.entries)
	writer.mu.Unlock()
	if remaining != 0 {
		t.Errorf("Expected empty buffer after flush, got %d entries", remaining)
	}
}

// TestGenerateAuditID tests audit ID format
func TestGenerateAuditID(t *testing.T) {
	id := generateAuditID()

	if !strings.HasPrefix(id, "audit_") {
		t.Errorf("Expected audit_ prefix, got %s", id)
	}

	other := generateAuditID()
	if id == other {
		t.Error("Expected unique audit IDs")
	}
}
