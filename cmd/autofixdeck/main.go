package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/waabox/autofixdeck/internal/config"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	if err := newRootCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "autofixdeck: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "autofixdeck",
		Usage:   "Follow AI auto-fix workflows and their CI pipelines from the terminal",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the config file",
				Value:   config.DefaultConfigPath(),
				Sources: cli.EnvVars("AUTOFIX_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "backend API base URL",
				Sources: cli.EnvVars("AUTOFIX_API_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Sources: cli.EnvVars("AUTOFIX_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "dashboard log file",
				Sources: cli.EnvVars("AUTOFIX_LOG_FILE"),
			},
		},
		Commands: []*cli.Command{
			watchCommand(),
			mrCommand(),
			startCommand(),
			stopCommand(),
			statusCommand(),
			retryCommand(),
			traceCommand(),
			healthCommand(),
			configCommand(),
		},
	}
}
