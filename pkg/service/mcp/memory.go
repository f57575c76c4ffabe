package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/m-mizutani/duet/pkg/adapter"
	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/duet/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrToolFailed is returned when the memory server reports a tool error
var ErrToolFailed = goerr.New("memory tool failed")

// MemoryStore is an adapter.MemoryStore backed by a remote memory MCP server
type MemoryStore struct {
	client *Client
	cfg    Config
}

var _ adapter.MemoryStore = (*MemoryStore)(nil)

// NewMemoryStore connects to the configured server and checks that its
// write and search tools take the configured arguments.
func NewMemoryStore(ctx context.Context, cfg *Config) (*MemoryStore, error) {
	c := *cfg
	c.setDefaults()

	client := NewClient()
	if err := client.Connect(ctx, c.Server); err != nil {
		return nil, err
	}

	store := &MemoryStore{client: client, cfg: c}
	if err := store.checkTools(); err != nil {
		_ = client.Close()
		return nil, err
	}

	logging.From(ctx).Debug("connected to memory server",
		"server", c.Server.Name,
		"write_tool", c.WriteTool,
		"search_tool", c.SearchTool)
	return store, nil
}

func (s *MemoryStore) checkTools() error {
	writeTool, err := s.client.FindTool(s.cfg.Server.Name, s.cfg.WriteTool)
	if err != nil {
		return err
	}
	if err := requireStringArgument(writeTool, s.cfg.WriteArg); err != nil {
		return err
	}

	searchTool, err := s.client.FindTool(s.cfg.Server.Name, s.cfg.SearchTool)
	if err != nil {
		return err
	}
	var optional []string
	if s.cfg.LimitArg != "" {
		optional = append(optional, s.cfg.LimitArg)
	}
	return requireStringArgument(searchTool, s.cfg.SearchArg, optional...)
}

func (s *MemoryStore) Write(ctx context.Context, payload string) (model.MemoryID, error) {
	result, err := s.call(ctx, s.cfg.WriteTool, map[string]any{s.cfg.WriteArg: payload})
	if err != nil {
		return "", err
	}

	// Servers that do not echo an ID get a locally generated one so that
	// journal records still reference something unique.
	for _, m := range parseMemories(textOf(result)) {
		if m.ID != "" {
			return m.ID, nil
		}
	}
	return model.NewMemoryID(), nil
}

func (s *MemoryStore) Query(ctx context.Context, query model.Query, limit int) ([]*model.Memory, error) {
	if limit <= 0 {
		return nil, goerr.New("limit must be positive", goerr.V("limit", limit))
	}

	args := map[string]any{s.cfg.SearchArg: string(query)}
	if s.cfg.LimitArg != "" {
		args[s.cfg.LimitArg] = limit
	}

	result, err := s.call(ctx, s.cfg.SearchTool, args)
	if err != nil {
		return nil, err
	}

	memories := parseMemories(textOf(result))
	if len(memories) > limit {
		memories = memories[:limit]
	}
	return memories, nil
}

func (s *MemoryStore) Close() error {
	return s.client.Close()
}

func (s *MemoryStore) call(ctx context.Context, toolName string, args map[string]any) (*mcp.CallToolResult, error) {
	result, err := s.client.CallTool(ctx, s.cfg.Server.Name, toolName, args)
	if err != nil {
		return nil, err
	}
	if result.IsError {
		return nil, goerr.Wrap(ErrToolFailed, "memory server returned an error",
			goerr.V("tool", toolName),
			goerr.V("message", textOf(result)))
	}
	return result, nil
}

func textOf(result *mcp.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		if text, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// parseMemories reads the JSON shapes memory servers commonly return: a
// list of entries or an object with a "results" list. Anything that is not
// JSON is taken as a single memory.
func parseMemories(text string) []*model.Memory {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return []*model.Memory{{Content: text}}
	}

	var entries []any
	switch v := decoded.(type) {
	case []any:
		entries = v
	case map[string]any:
		if results, ok := v["results"].([]any); ok {
			entries = results
		} else {
			entries = []any{v}
		}
	case string:
		entries = []any{v}
	default:
		return []*model.Memory{{Content: text}}
	}

	memories := make([]*model.Memory, 0, len(entries))
	for _, entry := range entries {
		if m := toMemory(entry); m != nil {
			memories = append(memories, m)
		}
	}
	return memories
}

func toMemory(entry any) *model.Memory {
	switch v := entry.(type) {
	case string:
		if v == "" {
			return nil
		}
		return &model.Memory{Content: v}

	case map[string]any:
		m := &model.Memory{}
		for _, key := range []string{"memory", "content", "text"} {
			if s, ok := v[key].(string); ok && s != "" {
				m.Content = s
				break
			}
		}
		if id, ok := v["id"].(string); ok {
			m.ID = model.MemoryID(id)
		}
		if score, ok := v["score"].(float64); ok {
			m.Score = score
		}
		if created, ok := v["created_at"].(string); ok {
			if t, err := time.Parse(time.RFC3339, created); err == nil {
				m.CreatedAt = t
			}
		}
		if m.Content == "" && m.ID == "" {
			return nil
		}
		return m
	}
	return nil
}
