package registry_test

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/pandacrm/automation/pkg/records"
	"github.com/pandacrm/automation/pkg/registry"
)

func ExampleRegistry_RegisterDefaultActions() {
	reg := registry.NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
	reg.RegisterDefaultActions(registry.Dependencies{Store: records.NewMemoryStore()})

	err := reg.ValidateConfig("CREATE_TASK", map[string]any{"subject": "Call {{name}}"})
	fmt.Println(err)

	err = reg.ValidateConfig("SEND_FAX", nil)
	fmt.Println(err)

	// Output:
	// <nil>
	// unknown action type: 'SEND_FAX'
}
