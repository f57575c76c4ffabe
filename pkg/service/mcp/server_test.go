package mcp_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/duet/pkg/correlator"
	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/duet/pkg/service/mcp"
	"github.com/m-mizutani/gt"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func textOf(t *testing.T, result *mcpsdk.CallToolResult) string {
	gt.A(t, result.Content).Length(1)
	text, ok := result.Content[0].(*mcpsdk.TextContent)
	gt.True(t, ok)
	return text.Text
}

func TestServerTools(t *testing.T) {
	ctx := context.Background()
	gen := correlator.NewGenerator(
		correlator.WithClock(func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }),
		correlator.WithRandom(strings.NewReader(strings.Repeat("\x00", 64))),
	)

	client := mcp.NewClient()
	gt.NoError(t, client.Connect(ctx, mcp.ServerConfig{
		Name:      "duet",
		Transport: "http",
		URL:       serveHTTP(t, mcp.NewServer(gen)),
	}))
	defer client.Close()

	tools, err := client.GetTools("duet")
	gt.NoError(t, err)
	gt.A(t, tools).Length(3)

	t.Run("new_session", func(t *testing.T) {
		result, err := client.CallTool(ctx, "duet", "new_session", map[string]any{"label": "Payment Auth"})
		gt.NoError(t, err)
		gt.False(t, result.IsError)
		gt.Equal(t, textOf(t, result), "payment-auth-20261015-AAAAAAAA")
	})

	t.Run("format_artifact", func(t *testing.T) {
		result, err := client.CallTool(ctx, "duet", "format_artifact", map[string]any{
			"session_id": "demo-20261015-ABCDEFGH",
			"phase":      "review",
			"version":    2,
			"content":    "Looks good",
		})
		gt.NoError(t, err)
		gt.False(t, result.IsError)

		a, err := correlator.Parse(textOf(t, result))
		gt.NoError(t, err)
		gt.Equal(t, a.Phase, model.PhaseReview)
		gt.Equal(t, a.Version, 2)
		gt.Equal(t, a.Content, "Looks good")
	})

	t.Run("format_artifact rejects unknown phase", func(t *testing.T) {
		result, err := client.CallTool(ctx, "duet", "format_artifact", map[string]any{
			"session_id": "demo-20261015-ABCDEFGH",
			"phase":      "deploy",
			"content":    "x",
		})
		gt.NoError(t, err)
		gt.True(t, result.IsError)
	})

	t.Run("build_query", func(t *testing.T) {
		result, err := client.CallTool(ctx, "duet", "build_query", map[string]any{
			"session_id": "demo-20261015-ABCDEFGH",
			"phase":      "plan",
			"version":    1,
		})
		gt.NoError(t, err)
		gt.S(t, textOf(t, result)).HasPrefix("[SESSION demo-20261015-ABCDEFGH] PLAN v1")
	})
}
