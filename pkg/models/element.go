package models

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidStageData is returned when a stage patch fails validation.
	ErrInvalidStageData = errors.New("invalid stage data")

	// ErrInvalidApprovalData is returned when an approval patch fails validation.
	ErrInvalidApprovalData = errors.New("invalid approval data")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ElementData is a validated payload written back onto a graph element.
// The set of implementations is closed: StageNodeData and ApprovalEdgeData.
type ElementData interface {
	elementData()
}

// StageNodeData is the patch a stage configuration panel emits for a node.
type StageNodeData struct {
	StageName   string            `json:"stageName"   validate:"required"`
	Environment string            `json:"environment"`
	Parameters  map[string]string `json:"parameters"  validate:"dive,keys,required,endkeys,required"`
	Label       string            `json:"label"`
}

func (StageNodeData) elementData() {}

// NewStageNodeData builds a stage patch. The label always mirrors the stage name.
func NewStageNodeData(stageName, environment string, parameters map[string]string) (StageNodeData, error) {
	data := StageNodeData{
		StageName:   strings.TrimSpace(stageName),
		Environment: environment,
		Parameters:  maps.Clone(parameters),
	}
	data.Label = data.StageName

	if data.Parameters == nil {
		data.Parameters = map[string]string{}
	}

	if err := data.Validate(); err != nil {
		return StageNodeData{}, err
	}

	return data, nil
}

// Validate reports whether the patch can be applied. Patches built as struct literals
// must pass it too.
func (d StageNodeData) Validate() error {
	if strings.TrimSpace(d.StageName) == "" {
		return fmt.Errorf("%w: stage name is required", ErrInvalidStageData)
	}

	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidStageData, err)
	}

	return nil
}

// Apply writes the patch onto node.
func (d StageNodeData) Apply(node *StageNode) {
	node.StageName = d.StageName
	node.Label = d.Label
	node.Environment = d.Environment
	node.Parameters = maps.Clone(d.Parameters)
}

// ApprovalEdgeData is the patch an approval configuration panel emits for a transition.
type ApprovalEdgeData struct {
	RequiresApproval bool           `json:"requiresApproval"`
	ApproverRole     string         `json:"approverRole"     validate:"required_if=RequiresApproval true"`
	ApprovalTimeout  string         `json:"approvalTimeout"`
	AutoApprove      bool           `json:"autoApprove"`
	Status           ApprovalStatus `json:"status"`
}

func (ApprovalEdgeData) elementData() {}

// NewApprovalEdgeData builds an approval patch. Role and timeout are cleared when no
// approval is required, and the status is always reset to pending.
func NewApprovalEdgeData(requiresApproval bool, approverRole, approvalTimeout string, autoApprove bool) (ApprovalEdgeData, error) {
	data := ApprovalEdgeData{
		RequiresApproval: requiresApproval,
		AutoApprove:      autoApprove,
		Status:           ApprovalStatusPending,
	}

	if requiresApproval {
		data.ApproverRole = strings.TrimSpace(approverRole)
		data.ApprovalTimeout = strings.TrimSpace(approvalTimeout)
	}

	if err := data.Validate(); err != nil {
		return ApprovalEdgeData{}, err
	}

	return data, nil
}

// Validate reports whether the patch can be applied: a required approval names a role,
// an ungated patch carries no role or timeout, and the status is pending.
func (d ApprovalEdgeData) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidApprovalData, err)
	}

	if !d.RequiresApproval && (d.ApproverRole != "" || d.ApprovalTimeout != "") {
		return fmt.Errorf("%w: approver role and timeout need a required approval", ErrInvalidApprovalData)
	}

	if d.Status != ApprovalStatusPending {
		return fmt.Errorf("%w: status must be %s, got %q", ErrInvalidApprovalData, ApprovalStatusPending, d.Status)
	}

	if d.ApprovalTimeout != "" {
		if _, err := ParseTimeoutHours(d.ApprovalTimeout); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidApprovalData, err)
		}
	}

	return nil
}

// Apply writes the patch onto edge. Decision fields from a previous approval are dropped
// together with the status reset.
func (d ApprovalEdgeData) Apply(edge *Transition) {
	edge.RequiresApproval = d.RequiresApproval
	edge.ApproverRole = d.ApproverRole
	edge.ApprovalTimeoutHours = d.ApprovalTimeout
	edge.AutoApprove = d.AutoApprove
	edge.Status = d.Status
	edge.ApprovedBy = ""
	edge.ApprovedAt = nil
	edge.Comments = ""
	edge.Normalize()
}

// ParseTimeoutHours parses an approval timeout expressed in whole hours.
func ParseTimeoutHours(value string) (int, error) {
	hours, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("approval timeout %q is not a whole number of hours", value)
	}

	if hours <= 0 {
		return 0, fmt.Errorf("approval timeout must be positive, got %d", hours)
	}

	return hours, nil
}
