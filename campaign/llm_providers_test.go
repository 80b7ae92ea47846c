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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestProviderMockFallback tests that empty credentials produce mock providers
func TestProviderMockFallback(t *testing.T) {
	anthropic := NewAnthropicProvider("")
	assert.IsType(t, &MockProvider{}, anthropic)
	assert.Equal(t, "anthropic", anthropic.Name())
	assert.True(t, anthropic.IsHealthy())

	openai := NewOpenAIProvider("")
	assert.IsType(t, &MockProvider{}, openai)
	assert.Equal(t, "openai", openai.Name())
}

// TestProviderRealConstruction tests real providers with credentials
func TestProviderRealConstruction(t *testing.T) {
	assert.IsType(t, &AnthropicProvider{}, NewAnthropicProvider("sk-test"))
	assert.IsType(t, &OpenAIProvider{}, NewOpenAIProvider("sk-test"))

	ollama := NewOllamaProvider("http://localhost:11434", "llama3.1:70b")
	assert.Equal(t, "ollama", ollama.Name())
}

// TestMockProviderQuery tests the built-in mock provider
func TestMockProviderQuery(t *testing.T) {
	provider := &MockProvider{name: "anthropic", healthy: true}

	response, err := provider.Query(context.Background(), "Analyze this transcript", QueryOptions{
		Model: ModelClaude35Sonnet,
	})
	require.NoError(t, err)

	assert.Contains(t, response.Content, "Mock response from anthropic")
	assert.Equal(t, ModelClaude35Sonnet, response.Model)
	assert.Greater(t, response.TokensUsed, 0)
	assert.Equal(t, true, response.Metadata["mock"])
}

// TestEstimateCost tests per-provider cost estimation
func TestEstimateCost(t *testing.T) {
	tests := []struct {
		name     string
		provider LLMProvider
		tokens   int
		expected float64
	}{
		{"anthropic", NewAnthropicProvider("sk-test"), 1000, 0.03},
		{"openai", NewOpenAIProvider("sk-test"), 1000, 0.02},
		{"ollama is free", NewOllamaProvider("http://localhost:11434", ""), 1000, 0},
		{"mock is free", &MockProvider{name: "mock", healthy: true}, 1000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.provider.EstimateCost(tt.tokens), 0.0001)
		})
	}
}

// TestGetCapabilities tests capability advertisement
func TestGetCapabilities(t *testing.T) {
	anthropic := NewAnthropicProvider("sk-test")
	assert.Equal(t, []string{"reasoning", "analysis", "writing"}, anthropic.GetCapabilities())

	ollama := NewOllamaProvider("http://localhost:11434", "")
	assert.Contains(t, ollama.GetCapabilities(), "air_gapped")
}

// TestDetectBedrockModelFamily tests model family detection
func TestDetectBedrockModelFamily(t *testing.T) {
	tests := []struct {
		name     string
		modelID  string
		expected string
	}{
		{"anthropic model", "anthropic.claude-3-5-sonnet-20240620-v1:0", "anthropic"},
		{"amazon titan", "amazon.titan-text-express-v1", "amazon"},
		{"meta llama", "meta.llama3-70b-instruct-v1:0", "meta"},
		{"us inference profile", "us.anthropic.claude-3-5-sonnet-20240620-v1:0", "anthropic"},
		{"eu inference profile", "eu.meta.llama3-70b-instruct-v1:0", "meta"},
		{"apac inference profile", "apac.amazon.titan-text-express-v1", "amazon"},
		{"global inference profile", "global.anthropic.claude-sonnet-4", "anthropic"},
		{"unsupported family", "mistral.mistral-large-2402-v1:0", ""},
		{"prefix with unsupported family", "us.mistral.mistral-large-2402-v1:0", ""},
		{"no dots", "claude", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, detectBedrockModelFamily(tt.modelID))
		})
	}
}

// TestBedrockBuildRequestBody tests per-family request shapes
func TestBedrockBuildRequestBody(t *testing.T) {
	provider := &BedrockProvider{region: "us-east-1", healthy: true}
	options := QueryOptions{MaxTokens: 1500, Temperature: 0.7}

	t.Run("anthropic family", func(t *testing.T) {
		body, err := provider.buildRequestBody("hello", options, "anthropic.claude-3-5-sonnet-20240620-v1:0")
		require.NoError(t, err)

		assert.Equal(t, "bedrock-2023-05-31", body["anthropic_version"])
		assert.Equal(t, options.MaxTokens, body["max_tokens"])

		messages, ok := body["messages"].([]map[string]string)
		require.True(t, ok, "messages should be a slice of role/content maps")
		require.Len(t, messages, 1)
		assert.Equal(t, "hello", messages[0]["content"])
	})

	t.Run("amazon family", func(t *testing.T) {
		body, err := provider.buildRequestBody("hello", options, "amazon.titan-text-express-v1")
		require.NoError(t, err)

		assert.Equal(t, "hello", body["inputText"])
		assert.Contains(t, body, "textGenerationConfig")
	})

	t.Run("meta family", func(t *testing.T) {
		body, err := provider.buildRequestBody("hello", options, "meta.llama3-70b-instruct-v1:0")
		require.NoError(t, err)

		assert.Equal(t, "hello", body["prompt"])
		assert.Equal(t, options.MaxTokens, body["max_gen_len"])
	})

	t.Run("unsupported family", func(t *testing.T) {
		_, err := provider.buildRequestBody("hello", options, "mistral.mistral-large-2402-v1:0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported model family")
	})
}

// TestBedrockParseResponseBody tests per-family response parsing
func TestBedrockParseResponseBody(t *testing.T) {
	provider := &BedrockProvider{region: "us-east-1", healthy: true}

	t.Run("anthropic response", func(t *testing.T) {
		body := []byte(`{
			"content": [{"text": "generated text"}],
			"usage": {"input_tokens": 100, "output_tokens": 50}
		}`)

		response, err := provider.parseResponseBody(body, "anthropic.claude-3-5-sonnet-20240620-v1:0")
		require.NoError(t, err)

		assert.Equal(t, "generated text", response.Content)
		assert.Equal(t, 150, response.TokensUsed)
	})

	t.Run("amazon response", func(t *testing.T) {
		body := []byte(`{
			"results": [{"outputText": "titan text", "tokenCount": 40}],
			"inputTextTokenCount": 60
		}`)

		response, err := provider.parseResponseBody(body, "amazon.titan-text-express-v1")
		require.NoError(t, err)

		assert.Equal(t, "titan text", response.Content)
		assert.Equal(t, 100, response.TokensUsed)
	})

	t.Run("meta response", func(t *testing.T) {
		body := []byte(`{
			"generation": "llama text",
			"prompt_token_count": 30,
			"generation_token_count": 20
		}`)

		response, err := provider.parseResponseBody(body, "meta.llama3-70b-instruct-v1:0")
		require.NoError(t, err)

		assert.Equal(t, "llama text", response.Content)
		assert.Equal(t, 50, response.TokensUsed)
	})

	t.Run("malformed response", func(t *testing.T) {
		_, err := provider.parseResponseBody([]byte("not json"), "anthropic.claude-3-5-sonnet-20240620-v1:0")
		assert.Error(t, err)
	})
}
