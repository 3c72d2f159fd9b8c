package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig                 `json:"app" yaml:"app"`
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`
	Agent     AgentConfig               `json:"agent" yaml:"agent"`
	Memory    MemoryConfig              `json:"memory" yaml:"memory"`
}

type AppConfig struct {
	Name      string `json:"name" yaml:"name"`
	Workspace string `json:"workspace" yaml:"workspace"`
}

type ProviderConfig struct {
	APIKey   string `json:"api_key" yaml:"api_key"`
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url,omitempty" yaml:"base_url"`
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Priority int    `json:"priority" yaml:"priority"`
}

// AgentConfig holds the orchestration tunables. MaxRetries and MaxReplans
// treat 0 as "use the default" and -1 as "none at all", so retry-free and
// replan-free runs stay expressible from a config file.
type AgentConfig struct {
	MaxPlanSteps        int `json:"max_plan_steps" yaml:"max_plan_steps"`
	MaxRetries          int `json:"max_retries" yaml:"max_retries"`
	MaxReplans          int `json:"max_replans" yaml:"max_replans"`
	ToolTimeoutSeconds  int `json:"tool_timeout_seconds" yaml:"tool_timeout_seconds"`
	TaskDeadlineSeconds int `json:"task_deadline_seconds" yaml:"task_deadline_seconds"`
}

func (a AgentConfig) ToolTimeout() time.Duration {
	return time.Duration(a.ToolTimeoutSeconds) * time.Second
}

func (a AgentConfig) TaskDeadline() time.Duration {
	return time.Duration(a.TaskDeadlineSeconds) * time.Second
}

type MemoryConfig struct {
	Path string `json:"path" yaml:"path"`
}

// Load reads a YAML or JSON config file (by extension) and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "orbit"
	}
	if c.App.Workspace == "" {
		c.App.Workspace = "./workspace"
	}
	if c.Memory.Path == "" {
		c.Memory.Path = "orbit.db"
	}
	if c.Agent.MaxPlanSteps <= 0 {
		c.Agent.MaxPlanSteps = 10
	}
	if c.Agent.MaxRetries < 0 {
		c.Agent.MaxRetries = 0
	} else if c.Agent.MaxRetries == 0 {
		c.Agent.MaxRetries = 2
	}
	if c.Agent.MaxReplans < 0 {
		c.Agent.MaxReplans = 0
	} else if c.Agent.MaxReplans == 0 {
		c.Agent.MaxReplans = 2
	}
	if c.Agent.ToolTimeoutSeconds <= 0 {
		c.Agent.ToolTimeoutSeconds = 30
	}
	if c.Agent.TaskDeadlineSeconds <= 0 {
		c.Agent.TaskDeadlineSeconds = 600
	}
}

// NamedProvider pairs a provider entry with its config key.
type NamedProvider struct {
	Name string
	ProviderConfig
}

// EnabledProviders returns the enabled providers sorted by priority
// (ascending), then name for a deterministic tie-break.
func (c *Config) EnabledProviders() []NamedProvider {
	var out []NamedProvider
	for name, p := range c.Providers {
		if p.Enabled {
			out = append(out, NamedProvider{Name: name, ProviderConfig: p})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}
