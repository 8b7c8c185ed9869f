package actions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kestrelci/kestrel/pkg/apis/core/v1beta1"
)

// Invocation is a fully resolved command line for one step. The core
// treats it as opaque beyond exit status inspection.
type Invocation struct {
	Argv []string
}

// Factory turns the declared parameters of an action reference into a
// concrete invocation. Resolution happens at workflow load time, a bad
// reference never reaches dispatch.
type Factory func(with map[string]string) (Invocation, error)

type Registry struct {
	actions map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]Factory),
	}
}

// Register binds a `name@version` reference to a factory. Later
// registrations replace earlier ones.
func (r *Registry) Register(ref string, factory Factory) {
	r.actions[ref] = factory
}

// Resolve maps a step's action reference to an invocation.
func (r *Registry) Resolve(step v1beta1.Step) (Invocation, error) {
	factory, ok := r.actions[step.Uses]
	if !ok {
		return Invocation{}, fmt.Errorf("unknown action %q (known: %s): %w", step.Uses, strings.Join(r.Known(), ", "), v1beta1.ErrInvalidWorkflow)
	}

	invocation, err := factory(step.With)
	if err != nil {
		return Invocation{}, fmt.Errorf("action %q: %v: %w", step.Uses, err, v1beta1.ErrInvalidWorkflow)
	}

	return invocation, nil
}

func (r *Registry) Known() []string {
	known := make([]string, 0, len(r.actions))
	for ref := range r.actions {
		known = append(known, ref)
	}

	sort.Strings(known)
	return known
}

func requireParams(with map[string]string, names ...string) error {
	for _, name := range names {
		if with[name] == "" {
			return fmt.Errorf("missing parameter %q", name)
		}
	}

	return nil
}

// Builtin returns the registry of actions the stock workflows use. Each
// resolves to a plain command; what the command does is not this core's
// business.
func Builtin() *Registry {
	r := NewRegistry()

	r.Register("checkout@v1", func(with map[string]string) (Invocation, error) {
		argv := []string{"git", "clone", "--depth=1"}
		if ref := with["ref"]; ref != "" {
			argv = append(argv, "--branch", ref)
		}

		if err := requireParams(with, "repository"); err != nil {
			return Invocation{}, err
		}

		return Invocation{Argv: append(argv, with["repository"], ".")}, nil
	})

	r.Register("setup-python@v1", func(with map[string]string) (Invocation, error) {
		if err := requireParams(with, "python-version"); err != nil {
			return Invocation{}, err
		}

		return Invocation{Argv: []string{"pyenv", "local", with["python-version"]}}, nil
	})

	r.Register("upload-coverage@v1", func(with map[string]string) (Invocation, error) {
		if err := requireParams(with, "file"); err != nil {
			return Invocation{}, err
		}

		return Invocation{Argv: []string{"coverage-upload", "--file", with["file"]}}, nil
	})

	return r
}
