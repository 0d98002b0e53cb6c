package persistence

import (
	"sort"

	"github.com/dukex/stageflow/pkg/models"
)

// SortWorkflows orders workflows in place by a normalized option set.
func SortWorkflows(workflows []*models.Workflow, opts ListWorkflowsOptions) {
	sort.SliceStable(workflows, func(i, j int) bool {
		var less bool

		switch opts.SortBy {
		case "created_at":
			less = workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
		case "name":
			less = workflows[i].Name < workflows[j].Name
		default:
			less = workflows[i].UpdatedAt.Before(workflows[j].UpdatedAt)
		}

		if opts.SortOrder == "desc" {
			return !less
		}

		return less
	})
}

// FilterWorkflows returns the workflows matching the status filter of opts.
func FilterWorkflows(workflows []*models.Workflow, opts ListWorkflowsOptions) []*models.Workflow {
	filtered := make([]*models.Workflow, 0, len(workflows))

	for _, workflow := range workflows {
		if opts.Status != nil && workflow.Status != *opts.Status {
			continue
		}

		filtered = append(filtered, workflow)
	}

	return filtered
}
