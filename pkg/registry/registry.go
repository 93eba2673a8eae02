// Package registry maps action types to the factories that build their handlers.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"slices"

	"github.com/pandacrm/automation/pkg/protocol"
)

var (
	// ErrUnknownActionType is returned for action types no factory is registered for.
	ErrUnknownActionType = errors.New("unknown action type")

	// ErrInvalidConfig is returned when an action config violates its factory schema.
	ErrInvalidConfig = errors.New("invalid action configuration")
)

// Registry holds the action factories known to the engine. Factories are registered at
// startup; lookups afterwards are read-only and safe for concurrent use.
type Registry struct {
	logger          *slog.Logger
	actionFactories map[string]protocol.ActionFactory
}

// NewRegistry returns an empty Registry logging through log.
func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:          log,
		actionFactories: make(map[string]protocol.ActionFactory),
	}
}

// LoadActionPlugins opens every *.so under <pluginsPath>/actions and returns the exported
// "Action" factory of each.
func (r *Registry) LoadActionPlugins(pluginsPath string) ([]protocol.ActionFactory, error) {
	return loadPlugin[protocol.ActionFactory](r.logger, pluginsPath+"/actions", "Action")
}

// RegisterAction adds actionFactory under its ID, replacing any factory already registered there.
func (r *Registry) RegisterAction(actionFactory protocol.ActionFactory) {
	r.actionFactories[actionFactory.ID()] = actionFactory
}

// CreateAction builds a handler for actionType from config.
func (r *Registry) CreateAction(ctx context.Context, actionType string, config map[string]any) (protocol.Action, error) {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownActionType, actionType)
	}

	if config == nil {
		config = map[string]any{}
	}

	return factory.Create(ctx, config)
}

// Factory returns the factory registered for actionType.
func (r *Registry) Factory(actionType string) (protocol.ActionFactory, bool) {
	factory, ok := r.actionFactories[actionType]

	return factory, ok
}

// Factories returns every registered factory ordered by action type.
func (r *Registry) Factories() []protocol.ActionFactory {
	factories := make([]protocol.ActionFactory, 0, len(r.actionFactories))
	for _, factory := range r.actionFactories {
		factories = append(factories, factory)
	}

	slices.SortFunc(factories, func(a, b protocol.ActionFactory) int {
		if a.ID() < b.ID() {
			return -1
		}

		if a.ID() > b.ID() {
			return 1
		}

		return 0
	})

	return factories
}

// ActionTypes returns the registered action types in order.
func (r *Registry) ActionTypes() []string {
	types := make([]string, 0, len(r.actionFactories))
	for actionType := range r.actionFactories {
		types = append(types, actionType)
	}

	slices.Sort(types)

	return types
}

func loadPlugin[T any](logger *slog.Logger, rootPath string, symbolName string) ([]T, error) {
	root := os.DirFS(rootPath)

	pluginPathList, err := fs.Glob(root, "*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", rootPath), slog.String("type", symbolName))
	l.Info("Loading plugins")

	pluginList := make([]T, 0, len(pluginPathList))
	for _, p := range pluginPathList {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("plugin %s does not export %s: %w", p, symbolName, err)
		}

		castV, ok := v.(T)
		if !ok {
			ptr, isPtr := v.(*T)
			if !isPtr {
				return nil, fmt.Errorf("plugin %s: %s has unexpected type %T", p, symbolName, v)
			}

			castV = *ptr
		}

		pluginList = append(pluginList, castV)

		l.Info("Loaded plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}
