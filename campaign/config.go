// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1
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
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFile represents the root structure of the service configuration file
type ConfigFile struct {
	Version      string                           `yaml:"version"`
	Server       ServerFileConfig                 `yaml:"server,omitempty"`
	LLMProviders map[string]LLMProviderFileConfig `yaml:"llm_providers,omitempty"`
	Transcriber  TranscriberFileConfig            `yaml:"transcriber,omitempty"`
	Storage      StorageFileConfig                `yaml:"storage,omitempty"`
}

// ServerFileConfig configures the HTTP server
type ServerFileConfig struct {
	Port        string   `yaml:"port,omitempty"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

// LLMProviderFileConfig configures one LLM provider
type LLMProviderFileConfig struct {
	Enabled     bool                   `yaml:"enabled"`
	DisplayName string                 `yaml:"display_name,omitempty"`
	Config      map[string]interface{} `yaml:"config,omitempty"`
	Credentials map[string]string      `yaml:"credentials,omitempty"`
	Weight      float64                `yaml:"weight,omitempty"`
}

// TranscriberFileConfig configures the speech-to-text backend
type TranscriberFileConfig struct {
	URL    string `yaml:"url,omitempty"`
	APIKey string `yaml:"api_key,omitempty"`
}

// StorageFileConfig configures persistence and caching
type StorageFileConfig struct {
	DatabaseURL string `yaml:"database_url,omitempty"`
	RedisHost   string `yaml:"redis_host,omitempty"`
	RedisPort   string `yaml:"redis_port,omitempty"`
}

// YAMLConfigFileLoader loads service configuration from a YAML file
type YAMLConfigFileLoader struct {
	filePath string
	config   *ConfigFile
}

// NewYAMLConfigFileLoader creates a new YAML config file loader
func NewYAMLConfigFileLoader(filePath string) (*YAMLConfigFileLoader, error) {
	loader := &YAMLConfigFileLoader{
		filePath: filePath,
	}

	// Load and parse the config file
	if err := loader.reload(); err != nil {
		return nil, err
	}

	return loader, nil
}

// reload reads and parses the configuration file
func (l *YAMLConfigFileLoader) reload() error {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", l.filePath, err)
	}

	// Expand environment variables in the content
	expanded := expandEnvVars(string(data))

	var config ConfigFile
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	l.config = &config
	return nil
}

// Config returns the loaded configuration
func (l *YAMLConfigFileLoader) Config() *ConfigFile {
	return l.config
}

// Reload reloads the configuration file
func (l *YAMLConfigFileLoader) Reload() error {
	return l.reload()
}

// envVarRegex matches ${VAR_NAME} or $VAR_NAME patterns
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars expands environment variable references in the string
// Supports both ${VAR_NAME} and $VAR_NAME syntax
// Returns empty string for undefined variables
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		// Handle default values: ${VAR_NAME:-default}
		defaultVal := ""
		if idx := strings.Index(varName, ":-"); idx != -1 {
			defaultVal = varName[idx+2:]
			varName = varName[:idx]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		if defaultVal != "" {
			return defaultVal
		}

		// Return empty string for undefined variables
		return ""
	})
}

// ValidateConfigFile validates the structure of a config file
func ValidateConfigFile(config *ConfigFile) error {
	if config.Version == "" {
		return fmt.Errorf("config file must specify a version")
	}

	validProviders := map[string]bool{
		"bedrock":   true,
		"ollama":    true,
		"openai":    true,
		"anthropic": true,
	}

	for name, provider := range config.LLMProviders {
		if !validProviders[name] {
			return fmt.Errorf("invalid LLM provider '%s'", name)
		}

		if provider.Weight < 0 || provider.Weight > 1 {
			return fmt.Errorf("LLM provider '%s' weight must be between 0 and 1", name)
		}
	}

	return nil
}

// GenerateExampleConfigFile generates an example configuration file
func GenerateExampleConfigFile() string {
	return `# AxonFlow Campaign Service Configuration
# Environment variables can be referenced using ${VAR_NAME} or ${VAR_NAME:-default} syntax

version: "1.0"

server:
  port: "${PORT:-8005}"
  cors_origins:
    - http://localhost:3000
    - http://localhost:3001

transcriber:
  url: ${STT_URL}
  api_key: ${STT_API_KEY}

storage:
  database_url: ${DATABASE_URL}
  redis_host: ${REDIS_HOST}
  redis_port: "${REDIS_PORT:-6379}"

llm_providers:
  # Anthropic (direct API access)
  anthropic:
    enabled: true
    display_name: "Anthropic"
    config:
      model: ${ANTHROPIC_MODEL:-claude-3-5-sonnet-20241022}
      max_tokens: 8192
    credentials:
      api_key: ${ANTHROPIC_API_KEY}
    weight: 0.4

  # OpenAI (alternative commercial provider)
  openai:
    enabled: false  # Enable when API key is available
    display_name: "OpenAI"
    config:
      model: ${OPENAI_MODEL:-gpt-4-turbo}
      max_tokens: 4096
    credentials:
      api_key: ${OPENAI_API_KEY}
    weight: 0.2

  # Amazon Bedrock (recommended for AWS deployments)
  bedrock:
    enabled: false
    display_name: "Amazon Bedrock"
    config:
      region: ${AWS_REGION:-us-east-1}
      model: ${BEDROCK_MODEL:-anthropic.claude-3-5-sonnet-20240620-v1:0}
    weight: 0.2

  # Ollama (self-hosted, good for local/private deployments)
  ollama:
    enabled: false  # Enable when running locally
    display_name: "Ollama (Self-hosted)"
    config:
      endpoint: ${OLLAMA_ENDPOINT:-http://localhost:11434}
      model: ${OLLAMA_MODEL:-llama3.1:70b}
    weight: 0.2
`
}
