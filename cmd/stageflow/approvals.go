package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dukex/stageflow/pkg/client"
	"github.com/dukex/stageflow/pkg/log"
	"github.com/dukex/stageflow/pkg/models"
	"github.com/dukex/stageflow/pkg/monitor"
	"github.com/dukex/stageflow/pkg/visual"
	cli "github.com/urfave/cli/v3"
)

func approvalsCommand() *cli.Command {
	return &cli.Command{
		Name:  "approvals",
		Usage: "List pending approvals",
		Action: func(ctx context.Context, command *cli.Command) error {
			approvals, err := newClient(command).PendingApprovals(ctx)
			if err != nil {
				log.WithModule("approvals").ErrorContext(ctx, "Failed to fetch pending approvals", "error", err)

				return err
			}

			return printApprovals(stdout(command), approvals)
		},
	}
}

func printApprovals(w io.Writer, approvals []*models.PendingApproval) error {
	if len(approvals) == 0 {
		_, err := fmt.Fprintln(w, "No pending approvals.")

		return err
	}

	table := newTable(w)

	fmt.Fprintln(table, "ID\tWORKFLOW\tSTAGE\tAPPROVER\tPRIORITY\tREQUESTED\tEXPIRES")

	for _, record := range approvals {
		expires := "-"
		if record.ExpiresAt != nil {
			expires = record.ExpiresAt.Format(time.RFC3339)
		}

		fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			record.ID, record.WorkflowName, record.StageName, record.Approver, record.Priority,
			record.RequestedAt.Format(time.RFC3339), expires)
	}

	return table.Flush()
}

func requestApprovalCommand() *cli.Command {
	return &cli.Command{
		Name:      "request-approval",
		Usage:     "Open an approval on a gated transition",
		ArgsUsage: "<workflow-id> <transition-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "by", Usage: "Requester", Required: true, Sources: cli.EnvVars("STAGEFLOW_USER")},
			&cli.StringFlag{Name: "priority", Usage: "Priority (low, medium, high)"},
			&cli.StringFlag{Name: "description", Usage: "What is being promoted"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			workflowID, transitionID := command.Args().Get(0), command.Args().Get(1)
			if workflowID == "" || transitionID == "" {
				return fmt.Errorf("%w: workflow id and transition id", errArgument)
			}

			record, err := newClient(command).RequestApproval(ctx, client.ApprovalRequest{
				WorkflowID:   workflowID,
				TransitionID: transitionID,
				RequestedBy:  command.String("by"),
				Priority:     models.Priority(command.String("priority")),
				Description:  command.String("description"),
			})
			if err != nil {
				log.WithModule("approvals").ErrorContext(ctx, "Failed to request approval", "workflow_id", workflowID, "error", err)

				return err
			}

			_, err = fmt.Fprintf(stdout(command), "Requested approval %s for %s from %s\n", record.ID, record.StageName, record.Approver)

			return err
		},
	}
}

func decisionCommand(name, usage string) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<approval-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "by", Usage: "Approver recorded on the decision", Required: true, Sources: cli.EnvVars("STAGEFLOW_USER")},
			&cli.StringFlag{Name: "comments", Aliases: []string{"m"}, Usage: "Comment recorded on the decision"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			id := command.Args().First()
			if id == "" {
				return fmt.Errorf("%w: approval id", errArgument)
			}

			api := newClient(command)
			decide := api.Approve

			if name == "reject" {
				decide = api.Reject
			}

			record, err := decide(ctx, id, client.Decision{By: command.String("by"), Comments: command.String("comments")})
			if err != nil {
				log.WithModule("approvals").ErrorContext(ctx, "Failed to record decision", "approval_id", id, "error", err)

				return err
			}

			_, err = fmt.Fprintf(stdout(command), "Approval %s for %s is %s\n",
				record.ID, record.StageName, paintApprovalStatus(record.Status))

			return err
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Poll execution status until interrupted",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "interval", Value: monitor.DefaultInterval, Usage: "Refresh interval"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			out := stdout(command)

			poller := monitor.NewPoller(newClient(command), func(_ context.Context, snapshot monitor.Snapshot) {
				printSnapshot(out, snapshot)
			}, monitor.Config{
				Interval: command.Duration("interval"),
				Logger:   log.WithModule("watch"),
			})

			poller.Start(ctx)
			<-ctx.Done()
			poller.Stop()

			return nil
		},
	}
}

func printSnapshot(w io.Writer, snapshot monitor.Snapshot) {
	stamp := snapshot.FetchedAt.Format(time.TimeOnly)

	if snapshot.Err != nil {
		fmt.Fprintf(w, "[%s] %s\n", stamp, paint(visual.ColorRed, snapshot.Err.Error()))

		return
	}

	summary := snapshot.Summary

	fmt.Fprintf(w, "[%s] total %d  running %d  completed %d  pending approval %d\n",
		stamp, summary.Total, summary.Running, summary.Completed, summary.PendingApproval)

	for _, record := range snapshot.Approvals {
		fmt.Fprintf(w, "  %s  %s / %s  waiting for %s\n", record.ID, record.WorkflowName, record.StageName, record.Approver)
	}
}
