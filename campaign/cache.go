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
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

// CampaignCache caches composed campaigns and transcripts in Redis so
// repeated requests for the same content skip the pipeline. The cache is
// optional: when Redis is unreachable every operation is a no-op miss.
type CampaignCache struct {
	client *redis.Client
	logger *log.Logger
	ttl    time.Duration
}

// NewCampaignCache connects to Redis at host:port (REDIS_PASSWORD from env).
// Returns a disabled cache when no host is given or the connection fails.
func NewCampaignCache(host, port string) *CampaignCache {
	cacheLogger := log.New(os.Stdout, "[CampaignCache] ", log.LstdFlags)

	if host == "" {
		cacheLogger.Printf("No Redis host configured, campaign caching disabled")
		return &CampaignCache{logger: cacheLogger, ttl: time.Hour}
	}
	if port == "" {
		port = "6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     100,
		MinIdleConns: 10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		cacheLogger.Printf("Failed to ping Redis at %s:%s, campaign caching disabled: %v", host, port, err)
		client.Close()
		return &CampaignCache{logger: cacheLogger, ttl: time.Hour}
	}

	cacheLogger.Printf("Connected to Redis: %s:%s (pool_size=100)", host, port)

	return &CampaignCache{
		client: client,
		logger: cacheLogger,
		ttl:    time.Hour,
	}
}

// Enabled reports whether a Redis backend is connected
func (c *CampaignCache) Enabled() bool {
	return c.client != nil
}

// GetCampaign returns a cached campaign by ID, or nil on miss
func (c *CampaignCache) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	if c.client == nil {
		return nil, nil
	}

	val, err := c.client.Get(ctx, campaignKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache read failed: %w", err)
	}

	var campaign Campaign
	if err := json.Unmarshal([]byte(val), &campaign); err != nil {
		return nil, fmt.Errorf("cache entry corrupt: %w", err)
	}
	return &campaign, nil
}

// PutCampaign stores a composed campaign
func (c *CampaignCache) PutCampaign(ctx context.Context, campaign *Campaign) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(campaign)
	if err != nil {
		return fmt.Errorf("failed to marshal campaign: %w", err)
	}

	if err := c.client.Set(ctx, campaignKey(campaign.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	return nil
}

// GetTranscript returns the cached transcript for an upload content hash,
// or "" on miss
func (c *CampaignCache) GetTranscript(ctx context.Context, contentHash string) (string, error) {
	if c.client == nil {
		return "", nil
	}

	val, err := c.client.Get(ctx, transcriptKey(contentHash)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("cache read failed: %w", err)
	}
	return val, nil
}

// PutTranscript stores a transcript keyed by the upload content hash
func (c *CampaignCache) PutTranscript(ctx context.Context, contentHash, transcript string) error {
	if c.client == nil {
		return nil
	}

	if err := c.client.Set(ctx, transcriptKey(contentHash), transcript, 24*time.Hour).Err(); err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	return nil
}

// HealthCheck pings Redis and reports latency
func (c *CampaignCache) HealthCheck(ctx context.Context) (bool, time.Duration) {
	if c.client == nil {
		return false, 0
	}

	start := time.Now()
	err := c.client.Ping(ctx).Err()
	latency := time.Since(start)

	return err == nil, latency
}

// Close releases the Redis connection pool
func (c *CampaignCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func campaignKey(id string) string {
	return "campaign:" + id
}

func transcriptKey(contentHash string) string {
	return "transcript:" + contentHash
}
