// Package schema validates workflow snapshots imported from files against a JSON schema.
package schema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dukex/stageflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed workflow.schema.json
var workflowSchema []byte

var ErrInvalidSnapshot = errors.New("invalid workflow snapshot")

// ValidationError lists every schema violation of a snapshot.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidSnapshot, strings.Join(e.Violations, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidSnapshot
}

var compiled = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(workflowSchema))
})

// ValidateWorkflow checks raw JSON against the workflow snapshot schema.
func ValidateWorkflow(raw []byte) error {
	schema, err := compiled()
	if err != nil {
		return fmt.Errorf("failed to load workflow schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			violations = append(violations, desc.String())
		}

		return &ValidationError{Violations: violations}
	}

	return nil
}

// DecodeWorkflow validates raw and decodes it into a workflow.
func DecodeWorkflow(raw []byte) (*models.Workflow, error) {
	err := ValidateWorkflow(raw)
	if err != nil {
		return nil, err
	}

	var workflow models.Workflow

	err = json.Unmarshal(raw, &workflow)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	return &workflow, nil
}
