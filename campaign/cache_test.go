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
	"log"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// newTestCache wires a CampaignCache to an in-process miniredis
func newTestCache(t *testing.T) (*CampaignCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	cache := &CampaignCache{
		client: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		logger: log.New(os.Stdout, "[CampaignCache] ", log.LstdFlags),
		ttl:    time.Hour,
	}
	t.Cleanup(func() { cache.Close() })

	return cache, mr
}

// TestCacheCampaignRoundTrip tests campaign store and retrieve
func TestCacheCampaignRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	campaign := &Campaign{
		ID:         "campaign_20250815_120000",
		VideoTitle: "Product Demo",
		Strategy: &StrategyResult{
			KeyThemes: []string{"AI and Technology"},
		},
	}

	if err := cache.PutCampaign(ctx, campaign); err != nil {
		t.Fatalf("Unexpected put error: %v", err)
	}

	stored, err := cache.GetCampaign(ctx, campaign.ID)
	if err != nil {
		t.Fatalf("Unexpected get error: %v", err)
	}

	if stored == nil {
		t.Fatal("Expected cached campaign")
	}

	if stored.ID != campaign.ID {
		t.Errorf("Expected ID %s, got %s", campaign.ID, stored.ID)
	}

	if stored.Strategy.KeyThemes[0] != "AI and Technology" {
		t.Errorf("Expected themes preserved, got %v", stored.Strategy.KeyThemes)
	}
}

// TestCacheCampaignMiss tests cache miss semantics
func TestCacheCampaignMiss(t *testing.T) {
	cache, _ := newTestCache(t)

	stored, err := cache.GetCampaign(context.Background(), "campaign_missing")
	if err != nil {
		t.Fatalf("Expected nil error on miss, got: %v", err)
	}

	if stored != nil {
		t.Error("Expected nil campaign on miss")
	}
}

// TestCacheCampaignTTL tests that cached campaigns expire
func TestCacheCampaignTTL(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	campaign := &Campaign{ID: "campaign_ttl"}
	if err := cache.PutCampaign(ctx, campaign); err != nil {
		t.Fatalf("Unexpected put error: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	stored, err := cache.GetCampaign(ctx, campaign.ID)
	if err != nil {
		t.Fatalf("Unexpected get error: %v", err)
	}

	if stored != nil {
		t.Error("Expected campaign to expire after TTL")
	}
}

// TestCacheCorruptEntry tests handling of non-JSON cache values
func TestCacheCorruptEntry(t *testing.T) {
	cache, mr := newTestCache(t)

	mr.Set(campaignKey("campaign_bad"), "not json")

	_, err := cache.GetCampaign(context.Background(), "campaign_bad")
	if err == nil {
		t.Error("Expected error for corrupt cache entry")
	}
}

// TestCacheTranscriptRoundTrip tests transcript store and retrieve
func TestCacheTranscriptRoundTrip(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	transcript := "Our new AI platform builds marketing campaigns from video"
	contentHash := "4f9c8e2a1b7d6c5e3a0f9b8d7c6e5a4f3b2d1c0e9a8b7c6d5e4f3a2b1c0d9e8f"

	if err := cache.PutTranscript(ctx, contentHash, transcript); err != nil {
		t.Fatalf("Unexpected put error: %v", err)
	}

	stored, err := cache.GetTranscript(ctx, contentHash)
	if err != nil {
		t.Fatalf("Unexpected get error: %v", err)
	}

	if stored != transcript {
		t.Errorf("Expected %q, got %q", transcript, stored)
	}

	// Transcripts are kept for 24h
	mr.FastForward(25 * time.Hour)

	stored, err = cache.GetTranscript(ctx, contentHash)
	if err != nil {
		t.Fatalf("Unexpected get error after expiry: %v", err)
	}
	if stored != "" {
		t.Errorf("Expected transcript to expire, got %q", stored)
	}
}

// TestCacheDisabled tests no-op behavior without a Redis client
func TestCacheDisabled(t *testing.T) {
	cache := &CampaignCache{
		logger: log.New(os.Stdout, "[CampaignCache] ", log.LstdFlags),
		ttl:    time.Hour,
	}
	ctx := context.Background()

	if cache.Enabled() {
		t.Error("Expected disabled cache")
	}

	if err := cache.PutCampaign(ctx, &Campaign{ID: "x"}); err != nil {
		t.Errorf("Expected nil error from disabled put, got: %v", err)
	}

	stored, err := cache.GetCampaign(ctx, "x")
	if err != nil || stored != nil {
		t.Errorf("Expected nil/nil from disabled get, got %v/%v", stored, err)
	}

	transcript, err := cache.GetTranscript(ctx, "x")
	if err != nil || transcript != "" {
		t.Errorf("Expected empty transcript from disabled cache, got %q/%v", transcript, err)
	}

	healthy, _ := cache.HealthCheck(ctx)
	if healthy {
		t.Error("Expected disabled cache to be unhealthy")
	}

	if err := cache.Close(); err != nil {
		t.Errorf("Expected nil close error, got: %v", err)
	}
}

// TestCacheHealthCheck tests Redis health reporting
func TestCacheHealthCheck(t *testing.T) {
	cache, mr := newTestCache(t)

	healthy, latency := cache.HealthCheck(context.Background())
	if !healthy {
		t.Error("Expected healthy cache")
	}
	if latency < 0 {
		t.Errorf("Expected non-negative latency, got %s", latency)
	}

	mr.Close()

	healthy, _ = cache.HealthCheck(context.Background())
	if healthy {
		t.Error("Expected unhealthy cache after Redis shutdown")
	}
}

// TestCacheKeys tests key construction
func TestCacheKeys(t *testing.T) {
	if campaignKey("abc") != "campaign:abc" {
		t.Errorf("Unexpected campaign key: %s", campaignKey("abc"))
	}
	if transcriptKey("demo.mp4") != "transcript:demo.mp4" {
		t.Errorf("Unexpected transcript key: %s", transcriptKey("demo.mp4"))
	}
}
