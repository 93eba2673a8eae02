// Package web provides the HTTP API of the automation engine: trigger intake, workflow
// definition management and read access to executions, deferred actions and the audit trail.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/persistence"
	"github.com/pandacrm/automation/pkg/registry"
	"github.com/pandacrm/automation/pkg/workflow"
)

type APIHandlers struct {
	dispatcher  *workflow.Dispatcher
	repository  *workflow.Repository
	persistence persistence.Persistence
	registry    *registry.Registry
	validator   *validator.Validate
}

func NewAPIHandlers(
	dispatcher *workflow.Dispatcher,
	repository *workflow.Repository,
	persistence persistence.Persistence,
	registry *registry.Registry,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		dispatcher:  dispatcher,
		repository:  repository,
		persistence: persistence,
		registry:    registry,
		validator:   validator,
	}
}

// ProcessTrigger runs every workflow matching the record change in the request body.
func (h *APIHandlers) ProcessTrigger(c fiber.Ctx) error {
	var req workflow.TriggerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	summaries, err := h.dispatcher.ProcessTrigger(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TriggerResponse{Executions: summaries})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.repository.FetchAll(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(workflows)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	definition, err := h.repository.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(definition)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var definition models.WorkflowDefinition
	if err := c.Bind().JSON(&definition); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	created, err := h.repository.Create(c.Context(), &definition)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var definition models.WorkflowDefinition
	if err := c.Bind().JSON(&definition); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	updated, err := h.repository.Update(c.Context(), id, &definition)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	err := h.repository.Delete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.persistence.ExecutionRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

// GetExecutions lists the executions of the workflow named by the workflow_id query parameter.
func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	workflowID := c.Query("workflow_id")
	if workflowID == "" {
		return badRequest(c, "workflow_id query parameter is required")
	}

	executions, err := h.persistence.ExecutionRepository().ListByWorkflow(c.Context(), workflowID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(executions)
}

func (h *APIHandlers) GetDeferredActions(c fiber.Ctx) error {
	executionID := c.Query("execution_id")
	if executionID == "" {
		return badRequest(c, "execution_id query parameter is required")
	}

	deferred, err := h.persistence.DeferredActionRepository().ListByExecution(c.Context(), executionID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(deferred)
}

func (h *APIHandlers) GetAuditLog(c fiber.Ctx) error {
	var query AuditQuery
	if err := c.Bind().Query(&query); err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	if err := h.validator.Struct(query); err != nil {
		return badRequest(c, err.Error())
	}

	entries, err := h.persistence.AuditLogRepository().ListByEntity(c.Context(), query.EntityType, query.EntityID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(entries)
}

// GetActionTypes lists the registered action kinds with their configuration schemas.
func (h *APIHandlers) GetActionTypes(c fiber.Ctx) error {
	factories := h.registry.Factories()
	response := make([]ActionTypeResponse, 0, len(factories))

	for _, factory := range factories {
		response = append(response, ActionTypeResponse{
			ID:          factory.ID(),
			Name:        factory.Name(),
			Description: factory.Description(),
			Schema:      factory.Schema(),
		})
	}

	return c.JSON(response)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.repository.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Automation API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Automation API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository":   repositoryCheck,
			"action_types": len(h.registry.ActionTypes()),
		},
		"timestamp": time.Now().UTC(),
	})
}

// Register mounts every handler on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Post("/triggers", h.ProcessTrigger)

	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Put("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)

	router.Get("/executions", h.GetExecutions)
	router.Get("/executions/:id", h.GetExecution)
	router.Get("/deferred", h.GetDeferredActions)
	router.Get("/audit", h.GetAuditLog)
	router.Get("/action-types", h.GetActionTypes)
	router.Get("/health", h.HealthCheck)
}
