package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "social-media-analyzer",
		Usage:   "turn a PDF or text document into social media engagement tips",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config.json or config.yaml (defaults apply when empty)",
				EnvVars: []string{"ANALYZER_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override log_level: debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "analyze",
				Usage:     "analyze one or more documents and print their tips",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print results as JSON"},
					&cli.StringFlag{Name: "out", Usage: "also write <name>.tips.json files into `DIR`"},
					&cli.BoolFlag{Name: "html", Usage: "with --out, also write an HTML report per document"},
				},
				Action: analyzeAction,
			},
			{
				Name:  "serve",
				Usage: "start the HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "listen address (overrides server_addr)"},
				},
				Action: serveAction,
			},
			{
				Name:   "mcp",
				Usage:  "serve the analyzer tools over MCP on stdin/stdout",
				Action: mcpAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
