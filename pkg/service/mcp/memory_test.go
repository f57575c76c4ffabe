package mcp_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/duet/pkg/correlator"
	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/duet/pkg/service/mcp"
	"github.com/m-mizutani/gt"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type textParams struct {
	Text string `json:"text"`
}

type queryParams struct {
	Query string `json:"query"`
}

// fakeMemoryServer answers searches with a fixed text reply
func fakeMemoryServer(t *testing.T, reply string) string {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "fake-memory", Version: "1.0.0"}, nil)

	mcpsdk.AddTool(server, &mcpsdk.Tool{Name: "add_memories"},
		func(ctx context.Context, req *mcpsdk.CallToolRequest, params *textParams) (*mcpsdk.CallToolResult, any, error) {
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "stored"}},
			}, nil, nil
		})
	mcpsdk.AddTool(server, &mcpsdk.Tool{Name: "search_memory"},
		func(ctx context.Context, req *mcpsdk.CallToolRequest, params *queryParams) (*mcpsdk.CallToolResult, any, error) {
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: reply}},
			}, nil, nil
		})

	return serveHTTP(t, server)
}

func httpConfig(url string) *mcp.Config {
	return &mcp.Config{
		Server: mcp.ServerConfig{Name: "memory", Transport: "http", URL: url},
	}
}

func TestMemoryStoreStdio(t *testing.T) {
	ctx := context.Background()

	store, err := mcp.NewMemoryStore(ctx, &mcp.Config{
		Server: mcp.ServerConfig{
			Name:      "memory",
			Transport: "stdio",
			Command:   []string{"go", "run", "./testdata/stdio/main.go"},
		},
	})
	gt.NoError(t, err)
	defer store.Close()

	ours := model.SessionID("payment-auth-20261015-7Q2M9XKD")
	theirs := model.SessionID("payment-auth-20261015-K3P8VW2N")

	for _, id := range []model.SessionID{theirs, ours} {
		payload, err := correlator.Format(&model.Artifact{
			SessionID: id,
			Phase:     model.PhasePlan,
			Version:   1,
			Content:   "Retry token refresh",
		})
		gt.NoError(t, err)

		memID, err := store.Write(ctx, payload)
		gt.NoError(t, err)
		gt.NotEqual(t, memID, "")
	}

	q, err := correlator.BuildQuery(correlator.QueryInput{SessionID: ours, Phase: model.PhasePlan, Version: 1})
	gt.NoError(t, err)

	results, err := store.Query(ctx, q, 5)
	gt.NoError(t, err)
	gt.A(t, results).Length(2)
	gt.True(t, correlator.Matches(results[0].Content, ours, model.PhasePlan, 1))
	gt.Equal(t, results[0].ID, model.MemoryID("mem-2"))

	limited, err := store.Query(ctx, q, 1)
	gt.NoError(t, err)
	gt.A(t, limited).Length(1)
}

func TestMemoryStoreResultShapes(t *testing.T) {
	ctx := context.Background()

	testCases := map[string]struct {
		reply   string
		content []string
		score   float64
	}{
		"results object": {
			reply:   `{"results":[{"id":"a","memory":"first","score":0.9},{"id":"b","memory":"second"}]}`,
			content: []string{"first", "second"},
			score:   0.9,
		},
		"array with content field": {
			reply:   `[{"content":"first"},{"text":"second"}]`,
			content: []string{"first", "second"},
		},
		"array of strings": {
			reply:   `["first","second"]`,
			content: []string{"first", "second"},
		},
		"plain text": {
			reply:   "no JSON here",
			content: []string{"no JSON here"},
		},
		"empty": {
			reply:   "",
			content: []string{},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			store, err := mcp.NewMemoryStore(ctx, httpConfig(fakeMemoryServer(t, tc.reply)))
			gt.NoError(t, err)
			defer store.Close()

			results, err := store.Query(ctx, "anything", 10)
			gt.NoError(t, err)
			gt.A(t, results).Length(len(tc.content))
			for i, c := range tc.content {
				gt.Equal(t, results[i].Content, c)
			}
			if len(results) > 0 {
				gt.Equal(t, results[0].Score, tc.score)
			}

			_, err = store.Query(ctx, "anything", 0)
			gt.Error(t, err)
		})
	}
}

func TestMemoryStoreWriteWithoutID(t *testing.T) {
	ctx := context.Background()
	store, err := mcp.NewMemoryStore(ctx, httpConfig(fakeMemoryServer(t, "")))
	gt.NoError(t, err)
	defer store.Close()

	id, err := store.Write(ctx, "payload")
	gt.NoError(t, err)
	gt.NotEqual(t, id, "")
}

func TestMemoryStoreToolError(t *testing.T) {
	ctx := context.Background()
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "broken-memory", Version: "1.0.0"}, nil)
	mcpsdk.AddTool(server, &mcpsdk.Tool{Name: "add_memories"},
		func(ctx context.Context, req *mcpsdk.CallToolRequest, params *textParams) (*mcpsdk.CallToolResult, any, error) {
			return &mcpsdk.CallToolResult{
				IsError: true,
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "quota exceeded"}},
			}, nil, nil
		})
	mcpsdk.AddTool(server, &mcpsdk.Tool{Name: "search_memory"},
		func(ctx context.Context, req *mcpsdk.CallToolRequest, params *queryParams) (*mcpsdk.CallToolResult, any, error) {
			return &mcpsdk.CallToolResult{
				IsError: true,
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "index unavailable"}},
			}, nil, nil
		})

	store, err := mcp.NewMemoryStore(ctx, httpConfig(serveHTTP(t, server)))
	gt.NoError(t, err)
	defer store.Close()

	_, err = store.Write(ctx, "payload")
	gt.True(t, errors.Is(err, mcp.ErrToolFailed))

	_, err = store.Query(ctx, "anything", 3)
	gt.True(t, errors.Is(err, mcp.ErrToolFailed))
}

func TestMemoryStoreToolChecks(t *testing.T) {
	ctx := context.Background()

	t.Run("missing search tool", func(t *testing.T) {
		server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "write-only", Version: "1.0.0"}, nil)
		mcpsdk.AddTool(server, &mcpsdk.Tool{Name: "add_memories"},
			func(ctx context.Context, req *mcpsdk.CallToolRequest, params *textParams) (*mcpsdk.CallToolResult, any, error) {
				return &mcpsdk.CallToolResult{Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "ok"}}}, nil, nil
			})

		_, err := mcp.NewMemoryStore(ctx, httpConfig(serveHTTP(t, server)))
		gt.Error(t, err)
	})

	t.Run("argument name differs", func(t *testing.T) {
		url := fakeMemoryServer(t, "")

		cfg := httpConfig(url)
		cfg.WriteArg = "content"
		_, err := mcp.NewMemoryStore(ctx, cfg)
		gt.Error(t, err)

		cfg = httpConfig(url)
		cfg.SearchTool = "search_memory"
		cfg.SearchArg = "query"
		store, err := mcp.NewMemoryStore(ctx, cfg)
		gt.NoError(t, err)
		gt.NoError(t, store.Close())
	})
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "memory.yaml")
	gt.NoError(t, os.WriteFile(path, []byte(`
server:
  name: openmemory
  transport: http
  url: http://localhost:8765/mcp
search_tool: search
limit_arg: limit
`), 0644))

	cfg, err := mcp.LoadConfig(path)
	gt.NoError(t, err)
	gt.Equal(t, cfg.Server.Name, "openmemory")
	gt.Equal(t, cfg.Server.URL, "http://localhost:8765/mcp")
	gt.Equal(t, cfg.WriteTool, mcp.DefaultWriteTool)
	gt.Equal(t, cfg.WriteArg, mcp.DefaultWriteArg)
	gt.Equal(t, cfg.SearchTool, "search")
	gt.Equal(t, cfg.SearchArg, mcp.DefaultSearchArg)
	gt.Equal(t, cfg.LimitArg, "limit")

	t.Run("transport is required", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		gt.NoError(t, os.WriteFile(bad, []byte("server:\n  name: x\n"), 0644))
		_, err := mcp.LoadConfig(bad)
		gt.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := mcp.LoadConfig(filepath.Join(dir, "none.yaml"))
		gt.Error(t, err)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := mcp.LoadConfig("")
		gt.Error(t, err)
	})
}
