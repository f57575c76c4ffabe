package cli

import (
	"context"

	"github.com/m-mizutani/duet/pkg/correlator"
	"github.com/m-mizutani/duet/pkg/service/mcp"
	"github.com/m-mizutani/duet/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve session ID, artifact formatting and query tools over MCP on stdio",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, c)
			logging.From(ctx).Info("serving MCP on stdio", "version", mcp.Version)

			server := mcp.NewServer(correlator.NewGenerator())
			if err := server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
				return goerr.Wrap(err, "MCP server stopped")
			}
			return nil
		},
	}
}
