// Package client is the REST client of the stageflow backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukex/stageflow/pkg/models"
	"github.com/moogar0880/problems"
)

const defaultTimeout = 30 * time.Second

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode int
	Problem    problems.Problem
}

func (e *APIError) Error() string {
	detail := e.Problem.Detail
	if detail == "" {
		detail = e.Problem.Title
	}

	if detail == "" {
		detail = http.StatusText(e.StatusCode)
	}

	return fmt.Sprintf("stageflow api: status %d: %s", e.StatusCode, detail)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError

	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsConflict reports whether err is a 409 from the backend.
func IsConflict(err error) bool {
	var apiErr *APIError

	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// Client calls the backend over HTTP. It never retries; failures are returned to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a client for the backend at baseURL, e.g. http://localhost:9091.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) ListWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	var workflows []*models.Workflow

	err := c.do(ctx, http.MethodGet, "/workflows", nil, &workflows)

	return workflows, err
}

func (c *Client) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := c.do(ctx, http.MethodGet, "/workflows/"+url.PathEscape(id), nil, &workflow)
	if err != nil {
		return nil, err
	}

	return &workflow, nil
}

func (c *Client) CreateWorkflow(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	var created models.Workflow

	err := c.do(ctx, http.MethodPost, "/workflows", workflow, &created)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

// UpdateWorkflow sends the full snapshot. Concurrent saves are last-write-wins.
func (c *Client) UpdateWorkflow(ctx context.Context, id string, workflow *models.Workflow) (*models.Workflow, error) {
	var updated models.Workflow

	err := c.do(ctx, http.MethodPut, "/workflows/"+url.PathEscape(id), workflow, &updated)
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

func (c *Client) DeleteWorkflow(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/workflows/"+url.PathEscape(id), nil, nil)
}

// ListActivities returns every activity, or those of workflowID when it is set.
func (c *Client) ListActivities(ctx context.Context, workflowID string) ([]*models.Activity, error) {
	path := "/activities"
	if workflowID != "" {
		path += "?workflowId=" + url.QueryEscape(workflowID)
	}

	var activities []*models.Activity

	err := c.do(ctx, http.MethodGet, path, nil, &activities)

	return activities, err
}

func (c *Client) CreateActivity(ctx context.Context, activity *models.Activity) (*models.Activity, error) {
	var created models.Activity

	err := c.do(ctx, http.MethodPost, "/activities", activity, &created)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (c *Client) UpdateActivity(ctx context.Context, id string, activity *models.Activity) (*models.Activity, error) {
	var updated models.Activity

	err := c.do(ctx, http.MethodPut, "/activities/"+url.PathEscape(id), activity, &updated)
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

func (c *Client) DeleteActivity(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/activities/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListMappings(ctx context.Context) ([]*models.WorkflowMapping, error) {
	var mappings []*models.WorkflowMapping

	err := c.do(ctx, http.MethodGet, "/workflow-mappings", nil, &mappings)

	return mappings, err
}

func (c *Client) CreateMapping(ctx context.Context, mapping *models.WorkflowMapping) (*models.WorkflowMapping, error) {
	var created models.WorkflowMapping

	err := c.do(ctx, http.MethodPost, "/workflow-mappings", mapping, &created)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (c *Client) DeleteMapping(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/workflow-mappings/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Functionalities(ctx context.Context) ([]*models.Functionality, error) {
	var functionalities []*models.Functionality

	err := c.do(ctx, http.MethodGet, "/functionalities", nil, &functionalities)

	return functionalities, err
}

func (c *Client) Summary(ctx context.Context) (models.ExecutionSummary, error) {
	var summary models.ExecutionSummary

	err := c.do(ctx, http.MethodGet, "/workflow-executors/workflow-summary", nil, &summary)

	return summary, err
}

func (c *Client) PendingApprovals(ctx context.Context) ([]*models.PendingApproval, error) {
	var approvals []*models.PendingApproval

	err := c.do(ctx, http.MethodGet, "/workflow-executors/pending-approvals", nil, &approvals)

	return approvals, err
}

// ApprovalRequest opens an approval on a gated transition.
type ApprovalRequest struct {
	WorkflowID   string          `json:"workflowId"`
	TransitionID string          `json:"transitionId"`
	InstanceID   string          `json:"instanceId,omitempty"`
	ActivityID   string          `json:"activityId,omitempty"`
	ActivityName string          `json:"activityName,omitempty"`
	RequestedBy  string          `json:"requestedBy"`
	Priority     models.Priority `json:"priority,omitempty"`
	Description  string          `json:"description,omitempty"`
}

func (c *Client) RequestApproval(ctx context.Context, req ApprovalRequest) (*models.PendingApproval, error) {
	var record models.PendingApproval

	err := c.do(ctx, http.MethodPost, "/workflow-executors/pending-approvals", req, &record)
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// Decision is the body of an approve or reject call.
type Decision struct {
	By       string `json:"by"`
	Comments string `json:"comments,omitempty"`
}

func (c *Client) Approve(ctx context.Context, id string, decision Decision) (*models.PendingApproval, error) {
	return c.decide(ctx, id, "approve", decision)
}

func (c *Client) Reject(ctx context.Context, id string, decision Decision) (*models.PendingApproval, error) {
	return c.decide(ctx, id, "reject", decision)
}

func (c *Client) decide(ctx context.Context, id, action string, decision Decision) (*models.PendingApproval, error) {
	var record models.PendingApproval

	err := c.do(ctx, http.MethodPost, "/workflow-executors/pending-approvals/"+url.PathEscape(id)+"/"+action, decision, &record)
	if err != nil {
		return nil, err
	}

	return &record, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}

		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}

		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		_ = json.Unmarshal(raw, &apiErr.Problem)

		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}

	return nil
}
