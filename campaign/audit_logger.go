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
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

// AuditLogger records every campaign request for traceability: which
// transcript came in, which stages ran via LLM vs heuristics, which
// providers served them and what they cost.
type AuditLogger struct {
	db           *sql.DB
	batchWriter  *BatchWriter
	auditQueue   chan *AuditEntry
	wg           sync.WaitGroup
	shutdownChan chan struct{}
}

// AuditEntry represents a single audit log entry
type AuditEntry struct {
	ID               string                 `json:"id"`
	RequestID        string                 `json:"request_id"`
	Timestamp        time.Time              `json:"timestamp"`
	CampaignID       string                 `json:"campaign_id"`
	ExecutionID      string                 `json:"execution_id"`
	RequestType      string                 `json:"request_type"` // "upload", "campaign", "agent", "orchestrate"
	VideoTitle       string                 `json:"video_title"`
	TranscriptLength int                    `json:"transcript_length"`
	Outcome          string                 `json:"outcome"` // "completed", "failed"
	StageSources     map[string]interface{} `json:"stage_sources"`
	Provider         string                 `json:"provider"`
	Model            string                 `json:"model"`
	ResponseTime     int64                  `json:"response_time_ms"`
	TokensUsed       int                    `json:"tokens_used"`
	Cost             float64                `json:"cost"`
	ErrorMessage     string                 `json:"error_message,omitempty"`
}

// BatchWriter handles batch writing of audit entries
type BatchWriter struct {
	db          *sql.DB
	batchSize   int
	flushTicker *time.Ticker
	entries     []*AuditEntry
	mu          sync.Mutex
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(databaseURL string) *AuditLogger {
	if databaseURL == "" {
		// No-op logger when no database is configured
		return &AuditLogger{
			auditQueue:   make(chan *AuditEntry, 10000),
			shutdownChan: make(chan struct{}),
		}
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		log.Printf("Failed to connect to audit database: %v", err)
		// Return a no-op logger if database is unavailable
		return &AuditLogger{
			auditQueue:   make(chan *AuditEntry, 10000),
			shutdownChan: make(chan struct{}),
		}
	}

	// Create tables if they don't exist
	if err := createAuditTables(db); err != nil {
		log.Printf("Failed to create audit tables: %v", err)
	}

	logger := &AuditLogger{
		db:           db,
		batchWriter:  NewBatchWriter(db, 100),
		auditQueue:   make(chan *AuditEntry, 10000),
		shutdownChan: make(chan struct{}),
	}

	// Start background workers
	logger.wg.Add(1)
	go logger.processAuditQueue()

	return logger
}

// LogCampaignCreated logs a completed campaign pipeline run
func (l *AuditLogger) LogCampaignCreated(ctx context.Context, requestID string, campaign *Campaign, execution *PipelineExecution) *AuditEntry {
	entry := &AuditEntry{
		ID:               generateAuditID(),
		RequestID:        requestID,
		Timestamp:        time.Now().UTC(),
		CampaignID:       campaign.ID,
		RequestType:      "campaign",
		VideoTitle:       campaign.VideoTitle,
		TranscriptLength: len(campaign.Transcript),
		Outcome:          "completed",
		StageSources:     stageSources(campaign.StageInfo),
		ResponseTime:     int64(campaign.ProcessingTime * 1000),
	}

	if execution != nil {
		entry.ExecutionID = execution.ID
	}

	// Attribute the run to the provider that handled the most tokens
	for _, info := range campaign.StageInfo {
		if info == nil || info.Source != "llm" {
			continue
		}
		entry.TokensUsed += info.TokensUsed
		if entry.Provider == "" {
			entry.Provider = info.Provider
			entry.Model = info.Model
		}
	}

	l.enqueueEntry(entry)
	return entry
}

// LogAgentCall logs a single-agent endpoint invocation
func (l *AuditLogger) LogAgentCall(ctx context.Context, requestID, stage string, info *StageInfo) {
	entry := &AuditEntry{
		ID:          generateAuditID(),
		RequestID:   requestID,
		Timestamp:   time.Now().UTC(),
		RequestType: "agent",
		Outcome:     "completed",
		StageSources: map[string]interface{}{
			stage: info.Source,
		},
		Provider:     info.Provider,
		Model:        info.Model,
		ResponseTime: info.LatencyMs,
		TokensUsed:   info.TokensUsed,
	}

	l.enqueueEntry(entry)
}

// LogUpload logs a video upload and transcription
func (l *AuditLogger) LogUpload(ctx context.Context, requestID string, result *TranscriptionResult) {
	entry := &AuditEntry{
		ID:               generateAuditID(),
		RequestID:        requestID,
		Timestamp:        time.Now().UTC(),
		RequestType:      "upload",
		VideoTitle:       result.VideoTitle,
		TranscriptLength: result.TranscriptLength,
		Outcome:          "completed",
		StageSources: map[string]interface{}{
			"transcription": result.Source,
		},
		ResponseTime: int64(result.ProcessingTime * 1000),
	}

	l.enqueueEntry(entry)
}

// LogFailedRequest logs a failed request
func (l *AuditLogger) LogFailedRequest(ctx context.Context, requestID, requestType string, err error) {
	entry := &AuditEntry{
		ID:           generateAuditID(),
		RequestID:    requestID,
		Timestamp:    time.Now().UTC(),
		RequestType:  requestType,
		Outcome:      "failed",
		ErrorMessage: err.Error(),
	}

	l.enqueueEntry(entry)
}

// AuditSearchCriteria filters audit log searches
type AuditSearchCriteria struct {
	CampaignID  string
	RequestType string
	StartTime   time.Time
	EndTime     time.Time
	Limit       int
}

// SearchAuditLogs searches audit logs based on criteria
func (l *AuditLogger) SearchAuditLogs(criteria AuditSearchCriteria) ([]*AuditEntry, error) {
	if l.db == nil {
		return []*AuditEntry{}, nil
	}

	query := `
		SELECT id, request_id, timestamp, campaign_id, execution_id, request_type,
			   video_title, transcript_length, outcome, stage_sources, provider,
			   model, response_time_ms, tokens_used, cost, error_message
		FROM campaign_audit_logs
		WHERE 1=1
	`

	args := []interface{}{}
	argIndex := 1

	if criteria.CampaignID != "" {
		query += fmt.Sprintf(" AND campaign_id = $%d", argIndex)
		args = append(args, criteria.CampaignID)
		argIndex++
	}
	if criteria.RequestType != "" {
		query += fmt.Sprintf(" AND request_type = $%d", argIndex)
		args = append(args, criteria.RequestType)
		argIndex++
	}
	if !criteria.StartTime.IsZero() {
		query += fmt.Sprintf(" AND timestamp >= $%d", argIndex)
		args = append(args, criteria.StartTime)
		argIndex++
	}
	if !criteria.EndTime.IsZero() {
		query += fmt.Sprintf(" AND timestamp <= $%d", argIndex)
		args = append(args, criteria.EndTime)
		argIndex++
	}

	query += " ORDER BY timestamp DESC"

	if criteria.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", criteria.Limit)
	}

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []*AuditEntry
	for rows.Next() {
		entry := &AuditEntry{}
		var stageSourcesJSON []byte
		var errorMessage sql.NullString

		err := rows.Scan(
			&entry.ID,
			&entry.RequestID,
			&entry.Timestamp,
			&entry.CampaignID,
			&entry.ExecutionID,
			&entry.RequestType,
			&entry.VideoTitle,
			&entry.TranscriptLength,
			&entry.Outcome,
			&stageSourcesJSON,
			&entry.Provider,
			&entry.Model,
			&entry.ResponseTime,
			&entry.TokensUsed,
			&entry.Cost,
			&errorMessage,
		)
		if err != nil {
			log.Printf("Error scanning audit log: %v", err)
			continue
		}

		_ = json.Unmarshal(stageSourcesJSON, &entry.StageSources)
		entry.ErrorMessage = errorMessage.String

		entries = append(entries, entry)
	}

	return entries, nil
}

// IsHealthy checks if the audit logger is healthy
func (l *AuditLogger) IsHealthy() bool {
	if l.db == nil {
		return true // No-op logger is always healthy
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	err := l.db.PingContext(ctx)
	return err == nil
}

// Shutdown flushes pending entries and stops background workers
func (l *AuditLogger) Shutdown() {
	close(l.shutdownChan)
	l.wg.Wait()
}

// enqueueEntry adds an entry to the processing queue. Without a database
// there is no queue consumer, so entries are dropped instead of piling up.
func (l *AuditLogger) enqueueEntry(entry *AuditEntry) {
	if l.db == nil {
		return
	}

	select {
	case l.auditQueue <- entry:
		// Entry queued successfully
	default:
		// Queue is full, log directly (blocking)
		log.Printf("Audit queue full, writing directly")
		if l.batchWriter != nil {
			_ = l.batchWriter.Write([]*AuditEntry{entry})
		}
	}
}

// processAuditQueue processes audit entries from the queue
func (l *AuditLogger) processAuditQueue() {
	defer l.wg.Done()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case entry := <-l.auditQueue:
			if l.batchWriter != nil {
				l.batchWriter.Add(entry)
			}
		case <-ticker.C:
			if l.batchWriter != nil {
				l.batchWriter.Flush()
			}
		case <-l.shutdownChan:
			// Flush remaining entries
			if l.batchWriter != nil {
				l.batchWriter.Flush()
			}
			return
		}
	}
}

// stageSources flattens stage info into a stage -> source map
func stageSources(infos []*StageInfo) map[string]interface{} {
	sources := make(map[string]interface{}, len(infos))
	for _, info := range infos {
		if info != nil {
			sources[info.Stage] = info.Source
		}
	}
	return sources
}

func generateAuditID() string {
	return fmt.Sprintf("audit_%d_%s", time.Now().Unix(), generateRandomString(8))
}

// BatchWriter implementation

func NewBatchWriter(db *sql.DB, batchSize int) *BatchWriter {
	writer := &BatchWriter{
		db:          db,
		batchSize:   batchSize,
		entries:     make([]*AuditEntry, 0, batchSize),
		flushTicker: time.NewTicker(10 * time.Second),
	}

	go writer.periodicFlush()

	return writer
}

func (b *BatchWriter) Add(entry *AuditEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, entry)

	if len(b.entries) >= b.batchSize {
		b.flush()
	}
}

func (b *BatchWriter) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flush()
}

func (b *BatchWriter) flush() {
	if len(b.entries) == 0 {
		return
	}

	if err := b.Write(b.entries); err != nil {
		log.Printf("Failed to write audit batch: %v", err)
	}

	b.entries = b.entries[:0]
}

func (b *BatchWriter) Write(entries []*AuditEntry) error {
	if b.db == nil {
		return nil
	}

	tx, err := b.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO campaign_audit_logs (
			id, request_id, timestamp, campaign_id, execution_id, request_type,
			video_title, transcript_length, outcome, stage_sources, provider,
			model, response_time_ms, tokens_used, cost, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, entry := range entries {
		stageSourcesJSON, _ := json.Marshal(entry.StageSources)

		_, err = stmt.Exec(
			entry.ID,
			entry.RequestID,
			entry.Timestamp,
			entry.CampaignID,
			entry.ExecutionID,
			entry.RequestType,
			entry.VideoTitle,
			entry.TranscriptLength,
			entry.Outcome,
			stageSourcesJSON,
			entry.Provider,
			entry.Model,
			entry.ResponseTime,
			entry.TokensUsed,
			entry.Cost,
			entry.ErrorMessage,
		)
		if err != nil {
			log.Printf("Failed to insert audit entry: %v", err)
		}
	}

	return tx.Commit()
}

func (b *BatchWriter) periodicFlush() {
	for range b.flushTicker.C {
		b.Flush()
	}
}

// createAuditTables creates the audit tables if they don't exist
func createAuditTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS campaign_audit_logs (
		id VARCHAR(255) PRIMARY KEY,
		request_id VARCHAR(255) NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		campaign_id VARCHAR(255),
		execution_id VARCHAR(255),
		request_type VARCHAR(50) NOT NULL,
		video_title VARCHAR(1024),
		transcript_length INTEGER,
		outcome VARCHAR(50) NOT NULL,
		stage_sources JSONB,
		provider VARCHAR(50),
		model VARCHAR(100),
		response_time_ms BIGINT,
		tokens_used INTEGER,
		cost DECIMAL(10, 6),
		error_message TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_campaign_audit_timestamp ON campaign_audit_logs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_campaign_audit_campaign_id ON campaign_audit_logs(campaign_id);
	CREATE INDEX IF NOT EXISTS idx_campaign_audit_request_id ON campaign_audit_logs(request_id);
	CREATE INDEX IF NOT EXISTS idx_campaign_audit_outcome ON campaign_audit_logs(outcome);
	`

	_, err := db.Exec(query)
	return err
}
