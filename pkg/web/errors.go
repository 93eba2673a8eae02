package web

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
	"github.com/pandacrm/automation/pkg/condition"
	"github.com/pandacrm/automation/pkg/persistence"
	"github.com/pandacrm/automation/pkg/records"
	"github.com/pandacrm/automation/pkg/registry"
	"github.com/pandacrm/automation/pkg/workflow"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// isConfigurationError reports errors caused by a bad definition or request rather than
// by the engine.
func isConfigurationError(err error) bool {
	var validationErrors validator.ValidationErrors

	return errors.As(err, &validationErrors) ||
		errors.Is(err, workflow.ErrInvalidTrigger) ||
		errors.Is(err, registry.ErrUnknownActionType) ||
		errors.Is(err, registry.ErrInvalidConfig) ||
		errors.Is(err, registry.ErrInvalidDelay) ||
		errors.Is(err, condition.ErrMalformedTree) ||
		records.IsUnknownEntityType(err)
}

// handleServiceError maps engine and persistence errors to problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case isConfigurationError(err):
		return badRequest(c, err.Error())

	case persistence.IsWorkflowNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("workflow_not_found").
			WithDetail("workflow not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case persistence.IsExecutionNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("execution_not_found").
			WithDetail("execution not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case persistence.IsNotFound(err):
		return notFound(c, err.Error())

	default:
		return internalError(c, err)
	}
}
