// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/pandacrm/automation/pkg/registry"
)

// NewRegistry registers the action plugins found under pluginsPath, then the native actions.
// A native action replaces a plugin with the same type.
func NewRegistry(log *slog.Logger, pluginsPath string, deps registry.Dependencies) (*registry.Registry, error) {
	reg := registry.NewRegistry(log)

	if pluginsPath != "" {
		actionPlugins, err := reg.LoadActionPlugins(pluginsPath)
		if err != nil {
			return nil, err
		}

		for _, plugin := range actionPlugins {
			reg.RegisterAction(plugin)
		}
	}

	reg.RegisterDefaultActions(deps)

	return reg, nil
}
