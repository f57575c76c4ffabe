package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// A minimal memory server: payloads are kept in process and searched by
// counting shared terms.

type addParams struct {
	Text string `json:"text" jsonschema:"Memory to store"`
}

type searchParams struct {
	Query string `json:"query" jsonschema:"Search query"`
}

type entry struct {
	ID     string  `json:"id"`
	Memory string  `json:"memory"`
	Score  float64 `json:"score,omitempty"`
}

var (
	mu      sync.Mutex
	entries []entry
)

func add(ctx context.Context, req *mcp.CallToolRequest, params *addParams) (*mcp.CallToolResult, any, error) {
	mu.Lock()
	defer mu.Unlock()

	e := entry{ID: fmt.Sprintf("mem-%d", len(entries)+1), Memory: params.Text}
	entries = append(entries, e)
	return jsonResult(map[string]any{"results": []entry{e}})
}

func search(ctx context.Context, req *mcp.CallToolRequest, params *searchParams) (*mcp.CallToolResult, any, error) {
	mu.Lock()
	defer mu.Unlock()

	terms := strings.Fields(params.Query)
	var hits []entry
	for _, e := range entries {
		var n int
		for _, term := range terms {
			if strings.Contains(e.Memory, term) {
				n++
			}
		}
		if n > 0 {
			e.Score = float64(n) / float64(len(terms))
			hits = append(hits, e)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return jsonResult(map[string]any{"results": hits})
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

func main() {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "test-memory-server",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_memories",
		Description: "Store a memory",
	}, add)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_memory",
		Description: "Search stored memories",
	}, search)

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Printf("Server failed: %v", err)
		os.Exit(1)
	}
}
