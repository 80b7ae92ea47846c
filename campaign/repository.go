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
	"time"

	_ "github.com/lib/pq"
)

// CampaignRepository persists composed campaigns to PostgreSQL. Storage is
// optional: when no database is configured the repository is a no-op and
// campaigns live only in the pipeline's in-memory execution store.
type CampaignRepository struct {
	db      *sql.DB
	enabled bool
}

// StoredCampaign is a persisted campaign row
type StoredCampaign struct {
	ID         string    `json:"id"`
	VideoTitle string    `json:"video_title"`
	Theme      string    `json:"theme"`
	CreatedAt  time.Time `json:"created_at"`
	Campaign   *Campaign `json:"campaign"`
}

// NewCampaignRepository connects to PostgreSQL and ensures the schema.
// Pass an empty URL for a disabled repository.
func NewCampaignRepository(databaseURL string) (*CampaignRepository, error) {
	if databaseURL == "" {
		log.Printf("[CampaignRepository] No database configured, persistence disabled")
		return &CampaignRepository{enabled: false}, nil
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &CampaignRepository{db: db, enabled: true}
	if err := repo.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[CampaignRepository] Connected, campaign persistence enabled")
	return repo, nil
}

// ensureSchema creates the campaigns table if missing
func (r *CampaignRepository) ensureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS campaigns (
		id VARCHAR(255) PRIMARY KEY,
		video_title VARCHAR(1024) NOT NULL,
		theme VARCHAR(255),
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		data JSONB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_campaigns_created_at ON campaigns(created_at);
	CREATE INDEX IF NOT EXISTS idx_campaigns_theme ON campaigns(theme);
	`

	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create campaigns schema: %w", err)
	}
	return nil
}

// Enabled reports whether campaigns are persisted
func (r *CampaignRepository) Enabled() bool {
	return r.enabled
}

// Save stores a composed campaign
func (r *CampaignRepository) Save(ctx context.Context, campaign *Campaign) error {
	if !r.enabled {
		return nil
	}

	data, err := json.Marshal(campaign)
	if err != nil {
		return fmt.Errorf("failed to marshal campaign: %w", err)
	}

	theme := ""
	if campaign.Strategy != nil && len(campaign.Strategy.KeyThemes) > 0 {
		theme = campaign.Strategy.KeyThemes[0]
	}

	query := `
		INSERT INTO campaigns (id, video_title, theme, created_at, data)
		VALUES ($1, $2, $3, NOW(), $4)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, theme = EXCLUDED.theme
	`
	if _, err := r.db.ExecContext(ctx, query, campaign.ID, campaign.VideoTitle, theme, data); err != nil {
		return fmt.Errorf("failed to save campaign %s: %w", campaign.ID, err)
	}

	log.Printf("[CampaignRepository] Saved campaign %s (theme=%s)", campaign.ID, theme)
	return nil
}

// Get loads a campaign by ID. Returns sql.ErrNoRows when not found.
func (r *CampaignRepository) Get(ctx context.Context, id string) (*Campaign, error) {
	if !r.enabled {
		return nil, sql.ErrNoRows
	}

	var data []byte
	query := `SELECT data FROM campaigns WHERE id = $1`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&data); err != nil {
		return nil, err
	}

	var campaign Campaign
	if err := json.Unmarshal(data, &campaign); err != nil {
		return nil, fmt.Errorf("failed to unmarshal campaign %s: %w", id, err)
	}
	return &campaign, nil
}

// List returns the most recent campaigns, newest first
func (r *CampaignRepository) List(ctx context.Context, limit int) ([]StoredCampaign, error) {
	if !r.enabled {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, video_title, theme, created_at, data
		FROM campaigns
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []StoredCampaign
	for rows.Next() {
		var stored StoredCampaign
		var data []byte
		if err := rows.Scan(&stored.ID, &stored.VideoTitle, &stored.Theme, &stored.CreatedAt, &data); err != nil {
			return nil, fmt.Errorf("failed to scan campaign row: %w", err)
		}
		var campaign Campaign
		if err := json.Unmarshal(data, &campaign); err != nil {
			log.Printf("[CampaignRepository] Skipping corrupt campaign row %s: %v", stored.ID, err)
			continue
		}
		stored.Campaign = &campaign
		campaigns = append(campaigns, stored)
	}

	return campaigns, rows.Err()
}

// HealthCheck pings the database
func (r *CampaignRepository) HealthCheck(ctx context.Context) bool {
	if !r.enabled {
		return false
	}
	return r.db.PingContext(ctx) == nil
}

// Close releases the database handle
func (r *CampaignRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}
