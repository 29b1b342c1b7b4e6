package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Memory backend selection.
const (
	BackendAgentCore = "agentcore"
	BackendLocal     = "local"
)

type Config struct {
	Agent  AgentConfig  `json:"agent"`
	AWS    AWSConfig    `json:"aws"`
	Memory MemoryConfig `json:"memory"`
	Tools  ToolsConfig  `json:"tools"`
	Log    LogConfig    `json:"log"`
}

type AgentConfig struct {
	Model             string  `json:"model" env:"OPSAGENT_AGENT_MODEL"`
	Temperature       float64 `json:"temperature" env:"OPSAGENT_AGENT_TEMPERATURE"`
	MaxTokens         int     `json:"max_tokens" env:"OPSAGENT_AGENT_MAX_TOKENS"`
	MaxToolIterations int     `json:"max_tool_iterations" env:"OPSAGENT_AGENT_MAX_TOOL_ITERATIONS"`
}

type AWSConfig struct {
	Region string `json:"region" env:"OPSAGENT_AWS_REGION"`
}

type MemoryConfig struct {
	Backend         string `json:"backend" env:"OPSAGENT_MEMORY_BACKEND"`
	ResourceName    string `json:"resource_name" env:"OPSAGENT_MEMORY_RESOURCE_NAME"`
	Description     string `json:"description"`
	ParameterPath   string `json:"parameter_path" env:"OPSAGENT_MEMORY_PARAMETER_PATH"`
	EventExpiryDays int    `json:"event_expiry_days" env:"OPSAGENT_MEMORY_EVENT_EXPIRY_DAYS"`
	ContextTopK     int    `json:"context_top_k" env:"OPSAGENT_MEMORY_CONTEXT_TOP_K"`
	ActorID         string `json:"actor_id" env:"OPSAGENT_MEMORY_ACTOR_ID"`
	LocalPath       string `json:"local_path" env:"OPSAGENT_MEMORY_LOCAL_PATH"`
}

type ToolsConfig struct {
	Web WebToolsConfig `json:"web"`
}

type WebToolsConfig struct {
	DuckDuckGo DuckDuckGoConfig `json:"duckduckgo"`
}

type DuckDuckGoConfig struct {
	Enabled    bool   `json:"enabled" env:"OPSAGENT_TOOLS_WEB_DUCKDUCKGO_ENABLED"`
	Region     string `json:"region" env:"OPSAGENT_TOOLS_WEB_DUCKDUCKGO_REGION"`
	MaxResults int    `json:"max_results" env:"OPSAGENT_TOOLS_WEB_DUCKDUCKGO_MAX_RESULTS"`
}

type LogConfig struct {
	Level  string `json:"level" env:"OPSAGENT_LOG_LEVEL"`
	Format string `json:"format" env:"OPSAGENT_LOG_FORMAT"`
}

// Model is one selectable Bedrock model.
type Model struct {
	Key         string
	ID          string
	Description string
}

// AvailableModels lists the supported Claude Bedrock models in display order.
var AvailableModels = []Model{
	{"claude-sonnet-4", "us.anthropic.claude-sonnet-4-20250514-v1:0", "Claude Sonnet 4 (Latest, Most Capable)"},
	{"claude-3-7-sonnet", "us.anthropic.claude-3-7-sonnet-20250219-v1:0", "Claude 3.7 Sonnet (Enhanced Reasoning)"},
	{"claude-3-5-sonnet-v2", "us.anthropic.claude-3-5-sonnet-20241022-v2:0", "Claude 3.5 Sonnet v2 (Balanced Performance)"},
	{"claude-3-5-sonnet-v1", "us.anthropic.claude-3-5-sonnet-20240620-v1:0", "Claude 3.5 Sonnet v1 (Stable)"},
	{"claude-3-5-haiku", "us.anthropic.claude-3-5-haiku-20241022-v1:0", "Claude 3.5 Haiku (Fast & Efficient)"},
}

// LookupModel resolves a model key to its Bedrock model id.
func LookupModel(key string) (Model, bool) {
	for _, m := range AvailableModels {
		if m.Key == key {
			return m, true
		}
	}
	return Model{}, false
}

func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Model:             "claude-3-5-haiku",
			Temperature:       0.3,
			MaxTokens:         4096,
			MaxToolIterations: 10,
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		Memory: MemoryConfig{
			Backend:         BackendAgentCore,
			ResourceName:    "DevOpsAgentMemory",
			Description:     "DevOps Agent memory",
			ParameterPath:   "/app/devopsagent/agentcore/memory_id",
			EventExpiryDays: 90,
			ContextTopK:     3,
			ActorID:         "devops_001",
			LocalPath:       "~/.opsagent/state/memory.db",
		},
		Tools: ToolsConfig{
			Web: WebToolsConfig{
				DuckDuckGo: DuckDuckGoConfig{
					Enabled:    true,
					Region:     "us-en",
					MaxResults: 5,
				},
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "opsagent-config.json"
	}
	return filepath.Join(home, ".opsagent", "config.json")
}

// LoadConfig reads the config file at path, falling back to defaults when it
// does not exist, then applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if _, ok := LookupModel(cfg.Agent.Model); !ok {
		return nil, fmt.Errorf("unknown model %q", cfg.Agent.Model)
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// ModelID returns the Bedrock model id for the configured model key.
func (c *Config) ModelID() string {
	if m, ok := LookupModel(c.Agent.Model); ok {
		return m.ID
	}
	// LoadConfig validates the key; this path only serves zero-value configs.
	return AvailableModels[len(AvailableModels)-1].ID
}

// LocalMemoryPath expands ~ in the configured local store path.
func (c *Config) LocalMemoryPath() string {
	return expandHome(c.Memory.LocalPath)
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
