package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/waabox/autofixdeck/internal/domain"
	"github.com/waabox/autofixdeck/internal/polling"
	"github.com/waabox/autofixdeck/internal/tracker"
	"github.com/waabox/autofixdeck/internal/tui"
)

// shutdownTimeout bounds how long the dashboard waits for poll goroutines on exit.
const shutdownTimeout = 5 * time.Second

// dashboard owns the trackers shown by the TUI for one run.
type dashboard struct {
	env        *env
	controller *polling.Controller
	notifier   *tui.Notifier
	workflow   *tracker.WorkflowTracker
	pipeline   *tracker.PipelineTracker
	recovery   *tracker.RecoveryTracker
}

func newDashboard(ctx context.Context, e *env) *dashboard {
	d := &dashboard{
		env:        e,
		controller: e.newController(ctx),
		notifier:   tui.NewNotifier(),
	}
	opts := []tracker.Option{
		tracker.WithLogger(*zerolog.Ctx(ctx)),
		tracker.WithOnUpdate(d.notifier.Notify),
	}
	d.workflow = tracker.NewWorkflowTracker(e.adapter, d.controller, opts...)
	d.pipeline = tracker.NewPipelineTracker(e.adapter, d.controller, opts...)
	return d
}

func (d *dashboard) withRecovery(ctx context.Context) *dashboard {
	d.recovery = tracker.NewRecoveryTracker(d.env.adapter, d.env.adapter, d.controller,
		tracker.WithLogger(*zerolog.Ctx(ctx)),
		tracker.WithOnUpdate(d.notifier.Notify),
	)
	return d
}

// run blocks in the TUI until the user quits, then stops every poll goroutine.
func (d *dashboard) run(ctx context.Context) error {
	deps := tui.Deps{
		Controller: d.controller,
		Workflow:   d.workflow,
		Pipeline:   d.pipeline,
		Updates:    d.notifier.Updates(),
		App:        d.env.appConfig(ctx),
	}
	if d.recovery != nil {
		deps.Recovery = d.recovery
	}
	err := tui.Run(tui.NewAppModel(ctx, deps))

	waitCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	d.workflow.Close()
	d.pipeline.Close()
	werr := errors.Join(d.workflow.Wait(waitCtx), d.pipeline.Wait(waitCtx))
	if d.recovery != nil {
		d.recovery.Close()
		werr = errors.Join(werr, d.recovery.Wait(waitCtx))
	}
	if werr != nil {
		zerolog.Ctx(ctx).Warn().Err(werr).Msg("poll goroutines did not finish")
	}
	return err
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Open the dashboard for a workflow session",
		ArgsUsage: "<session-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("usage: autofixdeck watch <session-id>")
			}
			sessionID := cmd.Args().First()

			e, err := newEnv(cmd, true)
			if err != nil {
				return err
			}
			defer e.close()
			ctx, cancel := context.WithCancel(e.withLogger(ctx))
			defer cancel()

			d := newDashboard(ctx, e)
			d.workflow.Attach(ctx, sessionID)
			d.pipeline.Start(ctx, sessionID)
			return d.run(ctx)
		},
	}
}

func mrCommand() *cli.Command {
	return &cli.Command{
		Name:      "mr",
		Usage:     "Open the dashboard for a merge request, recovering the workflow view from CI when needed",
		ArgsUsage: "<mr-iid>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "project",
				Aliases: []string{"p"},
				Usage:   "GitLab project path (defaults to the config or the origin remote)",
				Sources: cli.EnvVars("AUTOFIX_PROJECT"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("usage: autofixdeck mr [--project group/app] <mr-iid>")
			}
			mrID := cmd.Args().First()

			e, err := newEnv(cmd, true)
			if err != nil {
				return err
			}
			defer e.close()
			project, err := e.project(cmd.String("project"))
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(e.withLogger(ctx))
			defer cancel()

			d := newDashboard(ctx, e).withRecovery(ctx)
			go func() {
				if err := d.recovery.Load(ctx, project, mrID); err != nil {
					zerolog.Ctx(ctx).Warn().Err(err).Str("project", project).Str("mr", mrID).Msg("recovery load failed")
				}
			}()
			return d.run(ctx)
		},
	}
}

func startCommand() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "Start an auto-fix workflow",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "GitLab project path"},
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "branch the fixes are pushed to (defaults to the current branch)"},
			&cli.StringFlag{Name: "target", Aliases: []string{"t"}, Usage: "merge request target branch"},
			&cli.BoolFlag{Name: "auto-merge", Usage: "merge automatically once the pipeline passes"},
			&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "open the dashboard after starting"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			watch := cmd.Bool("watch")
			e, err := newEnv(cmd, watch)
			if err != nil {
				return err
			}
			defer e.close()

			req, err := startRequest(e, cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(e.withLogger(ctx))
			defer cancel()

			if !watch {
				resp, err := e.adapter.StartWorkflow(ctx, req)
				if err != nil {
					return fmt.Errorf("starting workflow: %w", err)
				}
				fmt.Printf("%s %s\n", resp.SessionID, resp.Message)
				return nil
			}

			d := newDashboard(ctx, e)
			resp, err := d.workflow.StartWorkflow(ctx, req)
			if err != nil {
				return err
			}
			d.pipeline.Start(ctx, resp.SessionID)
			return d.run(ctx)
		},
	}
}

func startRequest(e *env, cmd *cli.Command) (domain.StartRequest, error) {
	project, err := e.project(cmd.String("project"))
	if err != nil {
		return domain.StartRequest{}, err
	}
	source, err := e.sourceBranch(cmd.String("source"))
	if err != nil {
		return domain.StartRequest{}, err
	}
	target := cmd.String("target")
	if target == "" {
		target = e.cfg.TargetBranchOrDefault()
	}
	return domain.StartRequest{
		ProjectName:  project,
		SourceBranch: source,
		TargetBranch: target,
		AutoMerge:    cmd.Bool("auto-merge"),
	}, nil
}
