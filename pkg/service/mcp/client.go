package mcp

import (
	"context"
	"os"
	"os/exec"

	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Client manages connections to multiple MCP servers
type Client struct {
	servers map[string]*server
}

type server struct {
	name    string
	client  *mcp.Client
	session *mcp.ClientSession
	tools   []*mcp.Tool
}

// ServerConfig represents configuration for a single MCP server
type ServerConfig struct {
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport"` // "stdio" or "http"
	Command   []string          `yaml:"command"`
	URL       string            `yaml:"url"`
	Env       map[string]string `yaml:"env"`
}

// NewClient creates a new MCP client
func NewClient() *Client {
	return &Client{
		servers: make(map[string]*server),
	}
}

// Connect connects to an MCP server with the given configuration
func (c *Client) Connect(ctx context.Context, cfg ServerConfig) error {
	if _, exists := c.servers[cfg.Name]; exists {
		return goerr.New("server already connected", goerr.V("name", cfg.Name))
	}

	// Create MCP client
	mcpClient := mcp.NewClient(&mcp.Implementation{
		Name:    "duet",
		Version: Version,
	}, nil)

	var transport mcp.Transport
	var err error

	switch cfg.Transport {
	case "stdio":
		transport, err = c.createStdioTransport(cfg)
	case "http":
		transport, err = c.createHTTPTransport(cfg)
	default:
		return goerr.New("unsupported transport",
			goerr.V("transport", cfg.Transport),
			goerr.V("supported", []string{"stdio", "http"}))
	}

	if err != nil {
		return goerr.Wrap(err, "failed to create transport",
			goerr.V("server", cfg.Name))
	}

	// Connect to MCP server
	session, err := mcpClient.Connect(ctx, transport, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to connect to MCP server",
			goerr.V("server", cfg.Name))
	}

	// List available tools
	toolsResult, err := session.ListTools(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to list tools",
			goerr.V("server", cfg.Name))
	}

	c.servers[cfg.Name] = &server{
		name:    cfg.Name,
		client:  mcpClient,
		session: session,
		tools:   toolsResult.Tools,
	}

	return nil
}

// createStdioTransport creates a stdio transport for MCP
func (c *Client) createStdioTransport(cfg ServerConfig) (mcp.Transport, error) {
	if len(cfg.Command) == 0 {
		return nil, goerr.New("command is required for stdio transport")
	}

	cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)

	// Extra variables are appended to the inherited environment
	if len(cfg.Env) > 0 {
		env := os.Environ()
		for k, v := range cfg.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	return &mcp.CommandTransport{Command: cmd}, nil
}

// createHTTPTransport creates an HTTP transport for MCP
func (c *Client) createHTTPTransport(cfg ServerConfig) (mcp.Transport, error) {
	if cfg.URL == "" {
		return nil, goerr.New("url is required for http transport")
	}

	return &mcp.StreamableClientTransport{
		Endpoint: cfg.URL,
	}, nil
}

// GetTools returns all tools from a specific server
func (c *Client) GetTools(serverName string) ([]*mcp.Tool, error) {
	srv, exists := c.servers[serverName]
	if !exists {
		return nil, goerr.New("server not found", goerr.V("name", serverName))
	}
	return srv.tools, nil
}

// FindTool returns the named tool of a server
func (c *Client) FindTool(serverName, toolName string) (*mcp.Tool, error) {
	tools, err := c.GetTools(serverName)
	if err != nil {
		return nil, err
	}
	for _, t := range tools {
		if t.Name == toolName {
			return t, nil
		}
	}
	return nil, goerr.New("tool not found",
		goerr.V("server", serverName),
		goerr.V("tool", toolName))
}

// CallTool calls a tool on a specific server
func (c *Client) CallTool(ctx context.Context, serverName string, toolName string, arguments map[string]any) (*mcp.CallToolResult, error) {
	srv, exists := c.servers[serverName]
	if !exists {
		return nil, goerr.New("server not found", goerr.V("name", serverName))
	}

	result, err := srv.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: arguments,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call tool",
			goerr.V("server", serverName),
			goerr.V("tool", toolName))
	}

	return result, nil
}

// Close closes all MCP server connections
func (c *Client) Close() error {
	for name, srv := range c.servers {
		if err := srv.session.Close(); err != nil {
			return goerr.Wrap(err, "failed to close session",
				goerr.V("server", name))
		}
	}
	c.servers = make(map[string]*server)
	return nil
}
