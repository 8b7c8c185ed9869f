package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"

	"github.com/kestrelci/kestrel/pkg/apis/core/v1beta1"
)

var ErrMissingSecret = errors.New("missing secret")

// Load resolves the workflow's declared secrets. Inline values win,
// otherwise the value comes from the secrets file or the runner
// environment, in that order. A declared secret with no value anywhere
// is an error, dispatching a step with a silently empty credential helps
// nobody.
func Load(declared []v1beta1.SecretVar, environ []string, file string) (map[string]string, error) {
	env := make(map[string]string, len(environ))
	for _, e := range environ {
		k, v, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}

		env[k] = v
	}

	if file != "" {
		fromFile, err := godotenv.Read(file)
		if err != nil {
			return nil, fmt.Errorf("read secrets file %q: %w", file, err)
		}

		for k, v := range fromFile {
			env[k] = v
		}
	}

	resolved := make(map[string]string, len(declared))
	var errs []error

	for _, secret := range declared {
		if secret.Value != nil {
			resolved[secret.Name] = *secret.Value
			continue
		}

		value, ok := env[secret.Name]
		if !ok {
			errs = append(errs, fmt.Errorf("%q: %w", secret.Name, ErrMissingSecret))
			continue
		}

		resolved[secret.Name] = value
	}

	return resolved, errors.Join(errs...)
}

// Select picks the named subset of resolved secrets for one job.
func Select(resolved map[string]string, names []string) (map[string]string, error) {
	selected := make(map[string]string, len(names))
	var errs []error

	for _, name := range names {
		value, ok := resolved[name]
		if !ok {
			errs = append(errs, fmt.Errorf("%q not declared by the workflow: %w", name, ErrMissingSecret))
			continue
		}

		selected[name] = value
	}

	return selected, errors.Join(errs...)
}
