// Package directory lists, searches, pages and deletes the workflows stored by the backend.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/stageflow/pkg/log"
	"github.com/dukex/stageflow/pkg/models"
)

const DefaultPageSize = 10

var ErrInvalidPage = errors.New("page out of range")

// Backend is the slice of the REST client the directory needs.
type Backend interface {
	ListWorkflows(ctx context.Context) ([]*models.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
}

type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Query filters a listing. Both criteria must match; empty criteria match everything.
type Query struct {
	Text   string
	Status models.WorkflowStatus
}

// Matches reports whether the summary's name or description contains Text
// case-insensitively and its status equals Status.
func (q Query) Matches(summary models.WorkflowSummary) bool {
	if q.Status != "" && summary.Status != q.Status {
		return false
	}

	text := strings.ToLower(strings.TrimSpace(q.Text))
	if text == "" {
		return true
	}

	return strings.Contains(strings.ToLower(summary.Name), text) ||
		strings.Contains(strings.ToLower(summary.Description), text)
}

// ResultPage is one page of a filtered listing. Number is 1-based.
type ResultPage struct {
	Items      []models.WorkflowSummary
	Number     int
	TotalPages int
	TotalItems int
}

func (p ResultPage) HasPrev() bool { return p.Number > 1 }
func (p ResultPage) HasNext() bool { return p.Number < p.TotalPages }

type Options struct {
	Cache    Cache
	PageSize int
	Logger   *slog.Logger
}

type Directory struct {
	backend  Backend
	cache    Cache
	pageSize int
	logger   *slog.Logger
}

func New(backend Backend, opts Options) *Directory {
	d := &Directory{
		backend:  backend,
		cache:    opts.Cache,
		pageSize: opts.PageSize,
		logger:   log.OrDefault(opts.Logger, "directory"),
	}

	if d.cache == nil {
		d.cache = NewMemoryCache(0)
	}

	if d.pageSize <= 0 {
		d.pageSize = DefaultPageSize
	}

	return d
}

// Fetch returns the cached listing, loading it from the backend on a miss.
func (d *Directory) Fetch(ctx context.Context) ([]models.WorkflowSummary, error) {
	summaries, ok, err := d.cache.Load(ctx)
	if err != nil {
		d.logger.WarnContext(ctx, "Failed to read directory cache", "error", err)
	}

	if ok {
		return summaries, nil
	}

	return d.Refresh(ctx)
}

// Refresh always reloads the listing from the backend.
func (d *Directory) Refresh(ctx context.Context) ([]models.WorkflowSummary, error) {
	workflows, err := d.backend.ListWorkflows(ctx)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to fetch workflows", "error", err)

		return nil, fmt.Errorf("failed to fetch workflows: %w", err)
	}

	summaries := make([]models.WorkflowSummary, 0, len(workflows))
	for _, workflow := range workflows {
		summaries = append(summaries, workflow.Summary())
	}

	err = d.cache.Store(ctx, summaries)
	if err != nil {
		d.logger.WarnContext(ctx, "Failed to store directory cache", "error", err)
	}

	d.logger.DebugContext(ctx, "Directory refreshed", "workflows", len(summaries))

	return summaries, nil
}

// Search filters the listing client side.
func (d *Directory) Search(ctx context.Context, query Query) ([]models.WorkflowSummary, error) {
	summaries, err := d.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	return Filter(summaries, query), nil
}

func Filter(summaries []models.WorkflowSummary, query Query) []models.WorkflowSummary {
	matched := make([]models.WorkflowSummary, 0, len(summaries))

	for _, summary := range summaries {
		if query.Matches(summary) {
			matched = append(matched, summary)
		}
	}

	return matched
}

// Page slices results into page n. An empty result set has a single empty page 1.
func (d *Directory) Page(results []models.WorkflowSummary, n int) (ResultPage, error) {
	totalPages := (len(results) + d.pageSize - 1) / d.pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	if n < 1 || n > totalPages {
		return ResultPage{}, fmt.Errorf("%w: page %d of %d", ErrInvalidPage, n, totalPages)
	}

	start := (n - 1) * d.pageSize
	end := min(start+d.pageSize, len(results))

	return ResultPage{
		Items:      results[start:end],
		Number:     n,
		TotalPages: totalPages,
		TotalItems: len(results),
	}, nil
}

// Delete removes a workflow after the confirmer agrees. It reports false without error when
// the user declines. A successful delete invalidates the cache.
func (d *Directory) Delete(ctx context.Context, id string, confirmer Confirmer) (bool, error) {
	ok, err := confirmer.Confirm(ctx, fmt.Sprintf("Delete workflow %s?", id))
	if err != nil {
		return false, fmt.Errorf("confirmation failed: %w", err)
	}

	if !ok {
		d.logger.InfoContext(ctx, "Workflow delete cancelled", "workflow_id", id)

		return false, nil
	}

	err = d.backend.DeleteWorkflow(ctx, id)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to delete workflow", "workflow_id", id, "error", err)

		return false, fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	err = d.cache.Invalidate(ctx)
	if err != nil {
		d.logger.WarnContext(ctx, "Failed to invalidate directory cache", "error", err)
	}

	d.logger.InfoContext(ctx, "Workflow deleted", "workflow_id", id)

	return true, nil
}
