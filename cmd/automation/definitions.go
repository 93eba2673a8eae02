package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pandacrm/automation/pkg/log"
	"github.com/pandacrm/automation/pkg/models"
	"github.com/pandacrm/automation/pkg/persistence"
	"github.com/pandacrm/automation/pkg/registry"
	"github.com/pandacrm/automation/pkg/workflow"
	cli "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoDefinitionFiles  = errors.New("no definition files given")
	ErrInvalidDefinitions = errors.New("invalid workflow definitions found")
)

// loadDefinitions reads workflow definitions from a JSON file (one definition or an array)
// or a YAML file (one definition per document).
func loadDefinitions(path string) ([]*models.WorkflowDefinition, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is an operator supplied CLI argument
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return decodeJSONDefinitions(path, data)
	}

	definitions := make([]*models.WorkflowDefinition, 0)
	decoder := yaml.NewDecoder(bytes.NewReader(data))

	for {
		var definition models.WorkflowDefinition

		err := decoder.Decode(&definition)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}

		definitions = append(definitions, &definition)
	}

	return definitions, nil
}

func decodeJSONDefinitions(path string, data []byte) ([]*models.WorkflowDefinition, error) {
	trimmed := bytes.TrimSpace(data)

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var definitions []*models.WorkflowDefinition

		err := json.Unmarshal(trimmed, &definitions)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}

		return definitions, nil
	}

	var definition models.WorkflowDefinition

	err := json.Unmarshal(trimmed, &definition)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return []*models.WorkflowDefinition{&definition}, nil
}

// validateFiles checks every definition in paths against reg and writes one line per
// definition to out.
func validateFiles(ctx context.Context, out io.Writer, reg *registry.Registry, paths []string) error {
	if len(paths) == 0 {
		return ErrNoDefinitionFiles
	}

	invalid := 0

	for _, path := range paths {
		definitions, err := loadDefinitions(path)
		if err != nil {
			return err
		}

		for _, definition := range definitions {
			err := reg.ValidateWorkflow(ctx, definition)
			if err != nil {
				invalid++

				_, _ = fmt.Fprintf(out, "INVALID %s: %s: %v\n", path, definition.Name, err)

				continue
			}

			_, _ = fmt.Fprintf(out, "OK      %s: %s (%d actions)\n", path, definition.Name, len(definition.Actions))
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDefinitions, invalid)
	}

	return nil
}

// importFiles stores every definition in paths. Definitions with an id that already exists
// replace the stored one. Nothing is stored unless every definition is valid.
func importFiles(ctx context.Context, out io.Writer, repo *workflow.Repository, reg *registry.Registry, paths []string) error {
	err := validateFiles(ctx, io.Discard, reg, paths)
	if err != nil {
		return err
	}

	for _, path := range paths {
		definitions, err := loadDefinitions(path)
		if err != nil {
			return err
		}

		for _, definition := range definitions {
			stored, err := upsert(ctx, repo, definition)
			if err != nil {
				return fmt.Errorf("failed to import %s from %s: %w", definition.Name, path, err)
			}

			_, _ = fmt.Fprintf(out, "Imported %s (%s)\n", stored.Name, stored.ID)
		}
	}

	return nil
}

func upsert(ctx context.Context, repo *workflow.Repository, definition *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	if definition.ID != "" {
		_, err := repo.FetchByID(ctx, definition.ID)
		if err == nil {
			return repo.Update(ctx, definition.ID, definition)
		}

		if !persistence.IsWorkflowNotFound(err) {
			return nil, err
		}
	}

	return repo.Create(ctx, definition)
}

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Validate workflow definition files against the registered action types",
		ArgsUsage: "FILE...",
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("validate")

			rt, err := newRuntime(ctx, logger, configFromCommand(command))
			if err != nil {
				return err
			}
			defer rt.Close(context.WithoutCancel(ctx))

			return validateFiles(ctx, os.Stdout, rt.registry, command.Args().Slice())
		},
	}
}

func NewImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Validate and store workflow definition files",
		ArgsUsage: "FILE...",
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("import")

			rt, err := newRuntime(ctx, logger, configFromCommand(command))
			if err != nil {
				return err
			}
			defer rt.Close(context.WithoutCancel(ctx))

			return importFiles(ctx, os.Stdout, rt.repository, rt.registry, command.Args().Slice())
		},
	}
}
