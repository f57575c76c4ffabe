package mcp

import (
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultWriteTool  = "add_memories"
	DefaultWriteArg   = "text"
	DefaultSearchTool = "search_memory"
	DefaultSearchArg  = "query"
)

// Config describes the remote memory server and which of its tools store
// and search payloads.
type Config struct {
	Server     ServerConfig `yaml:"server"`
	WriteTool  string       `yaml:"write_tool"`
	WriteArg   string       `yaml:"write_arg"`
	SearchTool string       `yaml:"search_tool"`
	SearchArg  string       `yaml:"search_arg"`
	// LimitArg is passed the result limit when set. Servers without such an
	// argument get their results truncated locally.
	LimitArg string `yaml:"limit_arg"`
}

func (c *Config) setDefaults() {
	if c.Server.Name == "" {
		c.Server.Name = "memory"
	}
	if c.WriteTool == "" {
		c.WriteTool = DefaultWriteTool
	}
	if c.WriteArg == "" {
		c.WriteArg = DefaultWriteArg
	}
	if c.SearchTool == "" {
		c.SearchTool = DefaultSearchTool
	}
	if c.SearchArg == "" {
		c.SearchArg = DefaultSearchArg
	}
}

// LoadConfig reads a memory server config file
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, goerr.New("MCP config path is required")
	}

	absConfigPath, err := getAbsPath(configPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve config path",
			goerr.V("path", configPath))
	}

	data, err := os.ReadFile(absConfigPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read MCP config file",
			goerr.V("path", absConfigPath))
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to parse MCP config file",
			goerr.V("path", absConfigPath))
	}
	cfg.setDefaults()

	if cfg.Server.Transport == "" {
		return nil, goerr.New("server transport is required", goerr.V("path", absConfigPath))
	}

	return &cfg, nil
}

// getAbsPath returns absolute path, resolving relative paths from current directory
func getAbsPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Abs(path)
}
