package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/lumasim/internal/control"
	"github.com/san-kum/lumasim/internal/dynamo"
	"github.com/san-kum/lumasim/internal/integrators"
)

type Registry struct {
	integrators map[string]func(Config) dynamo.Advancer
	controllers map[string]func(Config) (dynamo.Controller, error)
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func(Config) dynamo.Advancer),
		controllers: make(map[string]func(Config) (dynamo.Controller, error)),
	}

	r.integrators["euler"] = func(c Config) dynamo.Advancer {
		return integrators.NewHold(integrators.NewEuler(), c.Substeps)
	}
	r.integrators["rk4"] = func(c Config) dynamo.Advancer {
		return integrators.NewHold(integrators.NewRK4(), c.Substeps)
	}
	r.integrators["rk45"] = func(c Config) dynamo.Advancer {
		return integrators.NewAdaptiveHold(c.Tolerance)
	}

	r.controllers["pid"] = func(c Config) (dynamo.Controller, error) {
		return control.NewPID(c.PID)
	}
	r.controllers["reference"] = func(c Config) (dynamo.Controller, error) {
		return control.NewReference(c.PID)
	}
	r.controllers["manual"] = func(c Config) (dynamo.Controller, error) {
		return control.NewManual(c.ManualOutput), nil
	}

	return r
}

func (r *Registry) GetIntegrator(c Config) (dynamo.Advancer, error) {
	fn, ok := r.integrators[c.Integrator]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", c.Integrator)
	}
	return fn(c), nil
}

func (r *Registry) GetController(c Config) (dynamo.Controller, error) {
	fn, ok := r.controllers[c.Controller]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", c.Controller)
	}
	return fn(c)
}

func (r *Registry) ListIntegrators() []string {
	return sortedKeys(r.integrators)
}

func (r *Registry) ListControllers() []string {
	return sortedKeys(r.controllers)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
