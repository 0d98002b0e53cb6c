// Package visual maps stage and gate states onto their rendered appearance.
package visual

import (
	"strings"

	"github.com/dukex/stageflow/pkg/approval"
	"github.com/dukex/stageflow/pkg/models"
)

// Color names shared by nodes and edges.
const (
	ColorGray   = "gray"
	ColorBlue   = "blue"
	ColorYellow = "yellow"
	ColorGreen  = "green"
	ColorRed    = "red"
)

// NodeStyle is how a stage node renders for a given status.
type NodeStyle struct {
	Color    string `json:"color"`
	Icon     string `json:"icon"`
	Progress int    `json:"progress"`
}

var nodeStyles = map[models.NodeStatus]NodeStyle{
	models.NodeStatusNotStarted:       {Color: ColorGray, Icon: "circle", Progress: 0},
	models.NodeStatusRunning:          {Color: ColorBlue, Icon: "spinner", Progress: 50},
	models.NodeStatusAwaitingApproval: {Color: ColorYellow, Icon: "hourglass", Progress: 75},
	models.NodeStatusCompleted:        {Color: ColorGreen, Icon: "check", Progress: 100},
	models.NodeStatusFailed:           {Color: ColorRed, Icon: "cross", Progress: 25},
}

// ForNodeStatus returns the style of a node status. Unknown statuses render as not started.
func ForNodeStatus(status models.NodeStatus) NodeStyle {
	if style, ok := nodeStyles[status]; ok {
		return style
	}

	return nodeStyles[models.NodeStatusNotStarted]
}

// StatusColor returns the color of a node status.
func StatusColor(status models.NodeStatus) string {
	return ForNodeStatus(status).Color
}

// StatusIcon returns the icon of a node status.
func StatusIcon(status models.NodeStatus) string {
	return ForNodeStatus(status).Icon
}

// Progress returns the completion percentage shown for a node status.
func Progress(status models.NodeStatus) int {
	return ForNodeStatus(status).Progress
}

var stageIcons = map[string]string{
	"dev":   "code",
	"qa":    "flask",
	"stage": "layers",
	"prod":  "rocket",
}

// DefaultStageIcon is used for stage names without a dedicated icon.
const DefaultStageIcon = "box"

// StageIcon returns the icon for a stage name, matched case-insensitively.
func StageIcon(stageName string) string {
	if icon, ok := stageIcons[strings.ToLower(strings.TrimSpace(stageName))]; ok {
		return icon
	}

	return DefaultStageIcon
}

// EdgeStyle is how a transition renders. MissingRole flags a gate that requires
// approval but names no approver role.
type EdgeStyle struct {
	Color       string `json:"color"`
	Dashed      bool   `json:"dashed"`
	MissingRole bool   `json:"missingRole"`
}

var edgeStyles = map[approval.State]EdgeStyle{
	approval.StateNoApproval: {Color: ColorGray},
	approval.StatePending:    {Color: ColorYellow, Dashed: true},
	approval.StateApproved:   {Color: ColorGreen},
	approval.StateRejected:   {Color: ColorRed},
}

// ForEdge returns the style of a transition from its gate state.
func ForEdge(edge *models.Transition) EdgeStyle {
	style := edgeStyles[approval.StateOf(edge)]
	style.MissingRole = approval.MissingApproverRole(edge)

	return style
}
