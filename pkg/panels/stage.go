// Package panels implements the stage and approval configuration panels opened from the canvas.
//
// Panels work on private copies of the selected element. Nothing reaches the graph until
// Save returns a validated patch that the caller commits.
package panels

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/dukex/stageflow/pkg/models"
)

var (
	ErrStageNameRequired      = errors.New("stage name is required")
	ErrParameterKeyRequired   = errors.New("parameter key is required")
	ErrParameterValueRequired = errors.New("parameter value is required")
	ErrParameterNotFound      = errors.New("parameter not found")
	ErrApproverRoleRequired   = errors.New("approver role is required when approval is required")
	ErrInvalidTimeout         = errors.New("invalid approval timeout")
)

// StagePanel edits a stage node's name, environment and parameters.
type StagePanel struct {
	nodeID      string
	stageName   string
	environment string
	parameters  map[string]string
}

// NewStagePanel opens a panel pre-populated from node.
func NewStagePanel(node *models.StageNode) *StagePanel {
	parameters := maps.Clone(node.Parameters)
	if parameters == nil {
		parameters = map[string]string{}
	}

	return &StagePanel{
		nodeID:      node.ID,
		stageName:   node.StageName,
		environment: node.Environment,
		parameters:  parameters,
	}
}

// NodeID returns the id of the node being edited.
func (p *StagePanel) NodeID() string {
	return p.nodeID
}

func (p *StagePanel) StageName() string {
	return p.stageName
}

func (p *StagePanel) SetStageName(name string) {
	p.stageName = name
}

func (p *StagePanel) Environment() string {
	return p.environment
}

func (p *StagePanel) SetEnvironment(environment string) {
	p.environment = environment
}

// Parameters returns a copy of the current parameter map.
func (p *StagePanel) Parameters() map[string]string {
	return maps.Clone(p.parameters)
}

// ParameterKeys returns the parameter keys in sorted order.
func (p *StagePanel) ParameterKeys() []string {
	return slices.Sorted(maps.Keys(p.parameters))
}

// AddParameter adds or overwrites a parameter. Empty keys or values are rejected.
func (p *StagePanel) AddParameter(key, value string) error {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	if key == "" {
		return ErrParameterKeyRequired
	}

	if value == "" {
		return ErrParameterValueRequired
	}

	p.parameters[key] = value

	return nil
}

// RemoveParameter deletes a parameter.
func (p *StagePanel) RemoveParameter(key string) error {
	if _, ok := p.parameters[key]; !ok {
		return fmt.Errorf("%w: %s", ErrParameterNotFound, key)
	}

	delete(p.parameters, key)

	return nil
}

// UpdateParameter changes the value of an existing parameter.
func (p *StagePanel) UpdateParameter(key, value string) error {
	if _, ok := p.parameters[key]; !ok {
		return fmt.Errorf("%w: %s", ErrParameterNotFound, key)
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return ErrParameterValueRequired
	}

	p.parameters[key] = value

	return nil
}

// CanSave reports whether Save would succeed.
func (p *StagePanel) CanSave() bool {
	return strings.TrimSpace(p.stageName) != ""
}

// Save validates the panel and returns the patch to apply to the node.
func (p *StagePanel) Save() (models.StageNodeData, error) {
	if !p.CanSave() {
		return models.StageNodeData{}, ErrStageNameRequired
	}

	data, err := models.NewStageNodeData(p.stageName, p.environment, p.parameters)
	if err != nil {
		return models.StageNodeData{}, fmt.Errorf("save stage panel: %w", err)
	}

	return data, nil
}
