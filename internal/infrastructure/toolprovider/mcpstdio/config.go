package mcpstdio

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ServerConfig describes how to launch the MCP server process.
type ServerConfig struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
}

// DefaultServerConfig runs the Playwright MCP server without a visible browser.
func DefaultServerConfig() ServerConfig {
	return PlaywrightConfig(true)
}

func PlaywrightConfig(headless bool) ServerConfig {
	cfg := ServerConfig{Command: "npx", Args: []string{"@playwright/mcp@latest"}}
	if headless {
		cfg.Args = append(cfg.Args, "--headless")
	}
	return cfg
}

// LoadConfig reads a YAML server config. An empty path yields the default.
func LoadConfig(path string) (ServerConfig, error) {
	if path == "" {
		return DefaultServerConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("read mcp config: %w", err)
	}

	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("parse mcp config %s: %w", path, err)
	}
	if cfg.Command == "" {
		return ServerConfig{}, fmt.Errorf("mcp config %s: command is required", path)
	}
	return cfg, nil
}

// Environ returns the process environment plus the configured overrides.
func (c ServerConfig) Environ() []string {
	env := os.Environ()
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+c.Env[k])
	}
	return env
}
