package mcp

import (
	"context"

	"github.com/m-mizutani/duet/pkg/correlator"
	"github.com/m-mizutani/duet/pkg/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP peers
const Version = "0.1.0"

type newSessionInput struct {
	Label string `json:"label,omitempty" jsonschema:"Task label the identifier is derived from"`
}

type newSessionOutput struct {
	SessionID string `json:"session_id"`
}

type formatArtifactInput struct {
	SessionID string `json:"session_id" jsonschema:"Session identifier"`
	Phase     string `json:"phase" jsonschema:"One of plan, review, implementation, validation, pattern"`
	Version   int    `json:"version,omitempty" jsonschema:"Version for plan and review, starting at 1"`
	Content   string `json:"content" jsonschema:"Artifact body"`
}

type formatArtifactOutput struct {
	Payload string `json:"payload"`
}

type buildQueryInput struct {
	SessionID string   `json:"session_id" jsonschema:"Session identifier"`
	Phase     string   `json:"phase,omitempty" jsonschema:"One of plan, review, implementation, validation, pattern"`
	Version   int      `json:"version,omitempty" jsonschema:"Version for plan and review"`
	Keywords  []string `json:"keywords,omitempty" jsonschema:"Extra search terms"`
}

type buildQueryOutput struct {
	Query string `json:"query"`
}

// NewServer returns an MCP server exposing the session correlator, so that
// agents can tag and look up artifacts without shelling out.
func NewServer(gen *correlator.Generator) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "duet",
		Version: Version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "new_session",
		Description: "Generate a session identifier for a collaboration",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in newSessionInput) (*mcp.CallToolResult, newSessionOutput, error) {
		id, err := gen.New(in.Label)
		if err != nil {
			return nil, newSessionOutput{}, err
		}
		return textResult(id.String()), newSessionOutput{SessionID: id.String()}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "format_artifact",
		Description: "Wrap an artifact in session header and footer lines before storing it in memory",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in formatArtifactInput) (*mcp.CallToolResult, formatArtifactOutput, error) {
		payload, err := correlator.Format(&model.Artifact{
			SessionID: model.SessionID(in.SessionID),
			Phase:     model.Phase(in.Phase),
			Version:   in.Version,
			Content:   in.Content,
		})
		if err != nil {
			return nil, formatArtifactOutput{}, err
		}
		return textResult(payload), formatArtifactOutput{Payload: payload}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "build_query",
		Description: "Build the memory search query that retrieves an artifact of a session",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in buildQueryInput) (*mcp.CallToolResult, buildQueryOutput, error) {
		q, err := correlator.BuildQuery(correlator.QueryInput{
			SessionID: model.SessionID(in.SessionID),
			Phase:     model.Phase(in.Phase),
			Version:   in.Version,
			Keywords:  in.Keywords,
		})
		if err != nil {
			return nil, buildQueryOutput{}, err
		}
		return textResult(q.String()), buildQueryOutput{Query: q.String()}, nil
	})

	return server
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
