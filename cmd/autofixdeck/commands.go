package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/waabox/autofixdeck/internal/config"
	"github.com/waabox/autofixdeck/internal/domain"
	"github.com/waabox/autofixdeck/internal/polling"
)

// oneShot wraps an action that runs a single backend call with console logging.
func oneShot(args int, usage string, run func(ctx context.Context, e *env, cmd *cli.Command) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if cmd.Args().Len() != args {
			return errors.New("usage: autofixdeck " + usage)
		}
		e, err := newEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.close()
		return run(e.withLogger(ctx), e, cmd)
	}
}

func stopCommand() *cli.Command {
	return &cli.Command{
		Name:      "stop",
		Usage:     "Stop a workflow session",
		ArgsUsage: "<session-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "stop without waiting for the current step"},
		},
		Action: oneShot(1, "stop [--force] <session-id>", func(ctx context.Context, e *env, cmd *cli.Command) error {
			sessionID := cmd.Args().First()
			if err := e.adapter.StopWorkflow(ctx, sessionID, cmd.Bool("force")); err != nil {
				return fmt.Errorf("stopping workflow %s: %w", sessionID, err)
			}
			zerolog.Ctx(ctx).Info().Str("session_id", sessionID).Msg("workflow stopped")
			return nil
		}),
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Print the current status of a workflow session as JSON",
		ArgsUsage: "<session-id>",
		Action: oneShot(1, "status <session-id>", func(ctx context.Context, e *env, cmd *cli.Command) error {
			sessionID := cmd.Args().First()
			status, err := e.adapter.WorkflowStatus(ctx, sessionID)
			if err != nil {
				return fmt.Errorf("fetching status of %s: %w", sessionID, err)
			}
			controller := polling.NewController(polling.WithLogger(*zerolog.Ctx(ctx)))
			if controller.Inspect(status, "workflow status") {
				zerolog.Ctx(ctx).Info().Str("reason", controller.StoppedReason()).Msg("session would no longer be polled")
			}
			return printJSON(status)
		}),
	}
}

func retryCommand() *cli.Command {
	return &cli.Command{
		Name:      "retry",
		Usage:     "Retry the failed jobs of a session's pipeline",
		ArgsUsage: "<session-id>",
		Action: oneShot(1, "retry <session-id>", func(ctx context.Context, e *env, cmd *cli.Command) error {
			sessionID := cmd.Args().First()
			if err := e.adapter.RetryFailedJobs(ctx, sessionID); err != nil {
				return fmt.Errorf("retrying failed jobs of %s: %w", sessionID, err)
			}
			zerolog.Ctx(ctx).Info().Str("session_id", sessionID).Msg("failed jobs retried")
			return nil
		}),
	}
}

func traceCommand() *cli.Command {
	return &cli.Command{
		Name:      "trace",
		Usage:     "Print the trace of a CI job",
		ArgsUsage: "<session-id> <job-id>",
		Action: oneShot(2, "trace <session-id> <job-id>", func(ctx context.Context, e *env, cmd *cli.Command) error {
			sessionID := cmd.Args().Get(0)
			jobID, err := strconv.ParseInt(cmd.Args().Get(1), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q: %w", cmd.Args().Get(1), err)
			}
			trace, err := e.adapter.JobTrace(ctx, sessionID, jobID)
			if err != nil {
				return fmt.Errorf("fetching trace of job %d: %w", jobID, err)
			}
			fmt.Print(trace)
			return nil
		}),
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check that the backend is reachable",
		Action: oneShot(0, "health", func(ctx context.Context, e *env, cmd *cli.Command) error {
			client := e.adapter.Client()
			if !client.HealthCheck(ctx) {
				return fmt.Errorf("backend at %s is not healthy", client.BaseURL())
			}
			fmt.Printf("backend at %s is healthy\n", client.BaseURL())
			return nil
		}),
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show or change configuration",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the local configuration and the backend polling intervals",
				Action: oneShot(0, "config show", func(ctx context.Context, e *env, cmd *cli.Command) error {
					fmt.Printf("# %s\n", e.configPath)
					if err := toml.NewEncoder(os.Stdout).Encode(e.cfg); err != nil {
						return fmt.Errorf("encoding config: %w", err)
					}
					intervals := polling.DefaultIntervals()
					if pc, err := e.adapter.PollingConfig(ctx); err != nil {
						zerolog.Ctx(ctx).Warn().Err(err).Msg("polling config unavailable, showing defaults")
					} else {
						intervals = polling.IntervalsFromConfig(pc)
					}
					fmt.Println()
					fmt.Println("# effective polling intervals")
					for _, ch := range polling.Channels {
						fmt.Printf("%-10s %s\n", ch, intervals.Effective(ch))
					}
					return nil
				}),
			},
			{
				Name:  "set-polling",
				Usage: "Update the backend polling intervals (seconds)",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "default", Usage: "default interval"},
					&cli.IntFlag{Name: "pipeline", Usage: "pipeline interval"},
					&cli.IntFlag{Name: "job", Usage: "job interval"},
					&cli.IntFlag{Name: "log", Usage: "log interval"},
				},
				Action: oneShot(0, "config set-polling [--default n] [--pipeline n] [--job n] [--log n]", func(ctx context.Context, e *env, cmd *cli.Command) error {
					update := domain.PollingConfig{
						DefaultInterval:  int(cmd.Int("default")),
						PipelineInterval: int(cmd.Int("pipeline")),
						JobInterval:      int(cmd.Int("job")),
						LogInterval:      int(cmd.Int("log")),
					}
					if update == (domain.PollingConfig{}) {
						return errors.New("set at least one interval")
					}
					if err := e.adapter.UpdatePollingConfig(ctx, update); err != nil {
						return fmt.Errorf("updating polling config: %w", err)
					}
					zerolog.Ctx(ctx).Info().Interface("intervals", update).Msg("polling config updated")
					return nil
				}),
			},
			{
				Name:      "set-api-url",
				Usage:     "Save the backend API URL to the config file",
				ArgsUsage: "<url>",
				Action: oneShot(1, "config set-api-url <url>", func(ctx context.Context, e *env, cmd *cli.Command) error {
					cfg, err := config.LoadFile(e.configPath)
					if err != nil {
						return err
					}
					cfg.API.URL = cmd.Args().First()
					if err := config.Save(e.configPath, cfg); err != nil {
						return fmt.Errorf("saving config: %w", err)
					}
					zerolog.Ctx(ctx).Info().Str("path", e.configPath).Str("url", cfg.API.URL).Msg("config saved")
					return nil
				}),
			},
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
