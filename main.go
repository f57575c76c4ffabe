package main

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/duet/pkg/cli"
)

func main() {
	ctx := context.Background()
	if err := cli.Run(ctx, os.Args); err != nil {
		if err.Code != 2 {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)
		}
		os.Exit(err.Code)
	}
}
