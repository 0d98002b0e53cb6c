// Package web provides HTTP handlers and REST API endpoints for stage workflows.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/dukex/stageflow/pkg/models"
	"github.com/dukex/stageflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	workflowService *services.Workflow
	activityService *services.Activity
	mappingService  *services.Mapping
	executorService *services.Executor
	validator       *validator.Validate
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	activityService *services.Activity,
	mappingService *services.Mapping,
	executorService *services.Executor,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		activityService: activityService,
		mappingService:  mappingService,
		executorService: executorService,
		validator:       validator,
	}
}

// Register mounts every resource route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Put("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)

	a := router.Group("/activities")
	a.Get("/", h.GetActivities)
	a.Post("/", h.CreateActivity)
	a.Put("/:id", h.UpdateActivity)
	a.Delete("/:id", h.DeleteActivity)

	m := router.Group("/workflow-mappings")
	m.Get("/", h.GetMappings)
	m.Post("/", h.CreateMapping)
	m.Delete("/:id", h.DeleteMapping)

	router.Get("/functionalities", h.GetFunctionalities)

	e := router.Group("/workflow-executors")
	e.Get("/workflow-summary", h.GetWorkflowSummary)
	e.Get("/pending-approvals", h.GetPendingApprovals)
	e.Post("/pending-approvals", h.RequestApproval)
	e.Post("/pending-approvals/:id/approve", h.ApproveApproval)
	e.Post("/pending-approvals/:id/reject", h.RejectApproval)

	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	req := services.ListWorkflowsRequest{
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.WorkflowStatus(statusStr)
		req.Status = &status
	}

	workflows, err := h.workflowService.ListWorkflows(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflows)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req WorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Create(c.Context(), req.Workflow())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateWorkflow replaces the whole snapshot; partial updates are not supported.
func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req WorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.workflowService.Update(c.Context(), c.Params("id"), req.Workflow())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	err := h.workflowService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetActivities(c fiber.Ctx) error {
	activities, err := h.activityService.List(c.Context(), c.Query("workflowId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(activities)
}

func (h *APIHandlers) CreateActivity(c fiber.Ctx) error {
	var req ActivityRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.activityService.Create(c.Context(), req.Activity())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateActivity(c fiber.Ctx) error {
	var req ActivityRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.activityService.Update(c.Context(), c.Params("id"), req.Activity())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteActivity(c fiber.Ctx) error {
	err := h.activityService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetMappings(c fiber.Ctx) error {
	mappings, err := h.mappingService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(mappings)
}

func (h *APIHandlers) CreateMapping(c fiber.Ctx) error {
	var req MappingRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.mappingService.Create(c.Context(), req.Mapping())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) DeleteMapping(c fiber.Ctx) error {
	err := h.mappingService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetFunctionalities(c fiber.Ctx) error {
	functionalities, err := h.mappingService.Functionalities(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(functionalities)
}

func (h *APIHandlers) GetWorkflowSummary(c fiber.Ctx) error {
	summary, err := h.executorService.Summary(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(summary)
}

func (h *APIHandlers) GetPendingApprovals(c fiber.Ctx) error {
	approvals, err := h.executorService.PendingApprovals(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(approvals)
}

func (h *APIHandlers) RequestApproval(c fiber.Ctx) error {
	var req services.RequestApprovalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	record, err := h.executorService.RequestApproval(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(record)
}

func (h *APIHandlers) ApproveApproval(c fiber.Ctx) error {
	return h.decide(c, h.executorService.Approve)
}

func (h *APIHandlers) RejectApproval(c fiber.Ctx) error {
	return h.decide(c, h.executorService.Reject)
}

type decideFunc func(ctx context.Context, id string, req services.DecisionRequest) (*models.PendingApproval, error)

func (h *APIHandlers) decide(c fiber.Ctx, decide decideFunc) error {
	var req services.DecisionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	record, err := decide(c.Context(), c.Params("id"), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Stageflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Stageflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
