package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/dukex/stageflow/pkg/canvas"
	"github.com/dukex/stageflow/pkg/directory"
	"github.com/dukex/stageflow/pkg/log"
	"github.com/dukex/stageflow/pkg/models"
	"github.com/dukex/stageflow/pkg/otelhelper"
	"github.com/dukex/stageflow/pkg/schema"
	"github.com/dukex/stageflow/pkg/simulator"
	"github.com/dukex/stageflow/pkg/visual"
	cli "github.com/urfave/cli/v3"
)

var errArgument = errors.New("missing argument")

func workflowsCommand() *cli.Command {
	return &cli.Command{
		Name:    "workflows",
		Aliases: []string{"wf"},
		Usage:   "Browse and delete stored workflows",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List workflows, optionally filtered and paged",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Case-insensitive text matched against name and description"},
					&cli.StringFlag{Name: "status", Usage: "Only workflows with this status (draft, active, inactive)"},
					&cli.IntFlag{Name: "page", Value: 1, Usage: "Page number"},
					&cli.BoolFlag{Name: "refresh", Usage: "Bypass the listing cache"},
				},
				Action: listWorkflows,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a workflow",
				ArgsUsage: "<workflow-id>",
				Flags:     []cli.Flag{yesFlag()},
				Action:    deleteWorkflow,
			},
		},
	}
}

func listWorkflows(ctx context.Context, command *cli.Command) error {
	status := models.WorkflowStatus(command.String("status"))
	if status != "" && !status.IsValid() {
		return fmt.Errorf("invalid status %q", status)
	}

	dir, cleanup, err := newDirectory(ctx, command)
	if err != nil {
		return err
	}
	defer cleanup()

	if command.Bool("refresh") {
		_, err = dir.Refresh(ctx)
		if err != nil {
			return err
		}
	}

	results, err := dir.Search(ctx, directory.Query{Text: command.String("search"), Status: status})
	if err != nil {
		return err
	}

	page, err := dir.Page(results, command.Int("page"))
	if err != nil {
		return err
	}

	out := stdout(command)
	table := newTable(out)

	fmt.Fprintln(table, "ID\tNAME\tSTATUS\tVERSION\tSTAGES\tUPDATED")

	for _, summary := range page.Items {
		fmt.Fprintf(table, "%s\t%s\t%s\t%d\t%d\t%s\n",
			summary.ID, summary.Name, summary.Status, summary.Version, summary.StageCount,
			summary.UpdatedAt.Format(time.RFC3339))
	}

	err = table.Flush()
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "page %d/%d, %d workflows\n", page.Number, page.TotalPages, page.TotalItems)

	return err
}

func deleteWorkflow(ctx context.Context, command *cli.Command) error {
	id := command.Args().First()
	if id == "" {
		return fmt.Errorf("%w: workflow id", errArgument)
	}

	dir, cleanup, err := newDirectory(ctx, command)
	if err != nil {
		return err
	}
	defer cleanup()

	deleted, err := dir.Delete(ctx, id, newConfirmer(command))
	if err != nil {
		return err
	}

	if !deleted {
		_, err = fmt.Fprintln(stdout(command), "Aborted.")

		return err
	}

	_, err = fmt.Fprintf(stdout(command), "Deleted workflow %s\n", id)

	return err
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Validate a workflow snapshot file and store it",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "Replace this existing workflow instead of creating a new one"},
		},
		Action: importWorkflow,
	}
}

func importWorkflow(ctx context.Context, command *cli.Command) error {
	path := command.Args().First()
	if path == "" {
		return fmt.Errorf("%w: snapshot file", errArgument)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	workflow, err := schema.DecodeWorkflow(raw)
	if err != nil {
		return err
	}

	api := newClient(command)

	var saved *models.Workflow

	if id := command.String("id"); id != "" {
		saved, err = api.UpdateWorkflow(ctx, id, workflow)
	} else {
		saved, err = api.CreateWorkflow(ctx, workflow)
	}

	if err != nil {
		log.WithModule("import").ErrorContext(ctx, "Failed to store workflow", "file", path, "error", err)

		return err
	}

	_, err = fmt.Fprintf(stdout(command), "Stored workflow %s (%s) version %d\n", saved.ID, saved.Name, saved.Version)

	return err
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:      "simulate",
		Usage:     "Rehearse a workflow stage by stage with simulated outcomes",
		ArgsUsage: "<workflow-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "save", Usage: "Store the resulting stage statuses back to the API"},
			&cli.FloatFlag{Name: "success-rate", Value: simulator.DefaultConfig().SuccessRate, Usage: "Probability each step succeeds"},
			&cli.DurationFlag{Name: "unit", Value: simulator.DefaultConfig().Unit, Usage: "Duration of one delay unit"},
			&cli.Int64Flag{Name: "seed", Usage: "Random seed (time based when zero)"},
		},
		Action: simulateWorkflow,
	}
}

func simulateWorkflow(ctx context.Context, command *cli.Command) error {
	id := command.Args().First()
	if id == "" {
		return fmt.Errorf("%w: workflow id", errArgument)
	}

	logger := log.WithModule("simulate")

	shutdownTracing, err := otelhelper.Setup(ctx, "stageflow-cli", command.Bool("tracing"))
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
		}
	}()

	api := newClient(command)

	workflow, err := api.GetWorkflow(ctx, id)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load workflow", "workflow_id", id, "error", err)

		return err
	}

	seed := command.Int64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	random := rand.New(rand.NewSource(seed))

	controller := canvas.New(canvas.Options{Rand: random, Logger: logger})
	controller.Load(workflow)
	controller.ResetStatuses()

	rate := command.Float("success-rate")
	if rate < 0 || rate > 1 {
		return fmt.Errorf("%w: success rate %v is outside [0, 1]", errArgument, rate)
	}

	config := simulator.DefaultConfig()
	config.SuccessRate = rate
	config.Unit = command.Duration("unit")

	sim := simulator.New(config, simulator.WithRandom(random), simulator.WithLogger(logger))

	out := stdout(command)

	result, err := sim.Run(ctx, controller.Save(), func(step models.ExecutionStep) {
		if err := controller.ApplyStep(step); err != nil {
			logger.WarnContext(ctx, "Failed to render step", "step_id", step.ID, "error", err)
		}

		status := step.Status.NodeStatus()
		line := fmt.Sprintf("%-8s %-24s %s", visual.StatusIcon(status), step.Name, paintNodeStatus(status))

		if step.Duration > 0 {
			line += " " + step.Duration.Round(time.Millisecond).String()
		}

		if step.ErrorMessage != "" {
			line += ": " + step.ErrorMessage
		}

		fmt.Fprintln(out, line)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Simulation %s: %s\n", result.RunID, result.Outcome)

	if !command.Bool("save") {
		return nil
	}

	saved, err := api.UpdateWorkflow(ctx, id, controller.Save())
	if err != nil {
		logger.ErrorContext(ctx, "Failed to save simulated statuses", "workflow_id", id, "error", err)

		return err
	}

	_, err = fmt.Fprintf(out, "Saved workflow %s version %d\n", saved.ID, saved.Version)

	return err
}
