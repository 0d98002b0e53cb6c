package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dukex/stageflow/pkg/models"
	"github.com/dukex/stageflow/pkg/visual"
	"github.com/fatih/color"
	cli "github.com/urfave/cli/v3"
)

var terminalColors = map[string]*color.Color{
	visual.ColorGray:   color.New(color.FgHiBlack),
	visual.ColorBlue:   color.New(color.FgBlue),
	visual.ColorYellow: color.New(color.FgYellow),
	visual.ColorGreen:  color.New(color.FgGreen),
	visual.ColorRed:    color.New(color.FgRed),
}

func paint(colorName, text string) string {
	c, ok := terminalColors[colorName]
	if !ok {
		return text
	}

	return c.Sprint(text)
}

func paintNodeStatus(status models.NodeStatus) string {
	return paint(visual.StatusColor(status), string(status))
}

var approvalColors = map[models.ApprovalStatus]string{
	models.ApprovalStatusPending:  visual.ColorYellow,
	models.ApprovalStatusApproved: visual.ColorGreen,
	models.ApprovalStatusRejected: visual.ColorRed,
}

func paintApprovalStatus(status models.ApprovalStatus) string {
	return paint(approvalColors[status], string(status))
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func stdout(command *cli.Command) io.Writer {
	return command.Root().Writer
}

// promptConfirmer asks on the command's writer and reads y/yes from its reader.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newConfirmer(command *cli.Command) confirmer {
	if command.Bool("yes") {
		return alwaysConfirm{}
	}

	return &promptConfirmer{
		in:  bufio.NewReader(command.Root().Reader),
		out: command.Root().Writer,
	}
}

type confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

func (p *promptConfirmer) Confirm(_ context.Context, prompt string) (bool, error) {
	_, err := fmt.Fprintf(p.out, "%s [y/N] ", prompt)
	if err != nil {
		return false, err
	}

	answer, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

type alwaysConfirm struct{}

func (alwaysConfirm) Confirm(context.Context, string) (bool, error) {
	return true, nil
}

func yesFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "Skip the confirmation prompt",
	}
}
