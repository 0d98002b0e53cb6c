package main

import (
	"context"
	"fmt"

	"github.com/dukex/stageflow/pkg/log"
	"github.com/dukex/stageflow/pkg/mapping"
	"github.com/dukex/stageflow/pkg/models"
	cli "github.com/urfave/cli/v3"
)

func newManager(ctx context.Context, command *cli.Command) (*mapping.Manager, error) {
	manager := mapping.NewManager(newClient(command), log.WithModule("mapping"))

	err := manager.Load(ctx)
	if err != nil {
		return nil, err
	}

	return manager, nil
}

func mapCommand() *cli.Command {
	return &cli.Command{
		Name:      "map",
		Usage:     "Assign a workflow to a feature, alert or task",
		ArgsUsage: "<workflow-id> <functionality-id>",
		Action: func(ctx context.Context, command *cli.Command) error {
			workflowID, functionalityID := command.Args().Get(0), command.Args().Get(1)
			if workflowID == "" || functionalityID == "" {
				return fmt.Errorf("%w: workflow id and functionality id", errArgument)
			}

			manager, err := newManager(ctx, command)
			if err != nil {
				return err
			}

			functionality, ok := manager.Functionality(functionalityID)
			if !ok {
				return fmt.Errorf("unknown functionality %q", functionalityID)
			}

			created, err := manager.Assign(ctx, workflowID, functionality)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(stdout(command), "Mapped workflow %s to %s %q (%s)\n",
				created.WorkflowID, created.FunctionalityType, created.FunctionalityName, created.ID)

			return err
		},
	}
}

func mappingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "mappings",
		Usage: "List workflow mappings grouped by functionality type",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "Only mappings of this type (feature, alert, task)"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			manager, err := newManager(ctx, command)
			if err != nil {
				return err
			}

			types := models.FunctionalityTypes
			if only := models.FunctionalityType(command.String("type")); only != "" {
				types = []models.FunctionalityType{only}
			}

			table := newTable(stdout(command))
			fmt.Fprintln(table, "TYPE\tID\tWORKFLOW\tFUNCTIONALITY")

			groups := manager.Grouped()

			for _, functionalityType := range types {
				for _, m := range groups[functionalityType] {
					fmt.Fprintf(table, "%s\t%s\t%s\t%s\n", functionalityType, m.ID, m.WorkflowID, m.FunctionalityName)
				}
			}

			return table.Flush()
		},
	}
}

func unmapCommand() *cli.Command {
	return &cli.Command{
		Name:      "unmap",
		Usage:     "Remove a workflow mapping",
		ArgsUsage: "<mapping-id>",
		Flags:     []cli.Flag{yesFlag()},
		Action: func(ctx context.Context, command *cli.Command) error {
			id := command.Args().First()
			if id == "" {
				return fmt.Errorf("%w: mapping id", errArgument)
			}

			manager, err := newManager(ctx, command)
			if err != nil {
				return err
			}

			removed, err := manager.Remove(ctx, id, newConfirmer(command))
			if err != nil {
				return err
			}

			if !removed {
				_, err = fmt.Fprintln(stdout(command), "Aborted.")

				return err
			}

			_, err = fmt.Fprintf(stdout(command), "Removed mapping %s\n", id)

			return err
		},
	}
}
