package provider

import (
	"context"
	"errors"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"

	"github.com/kestrelci/kestrel/pkg/apis/core/v1beta1"
)

type Interface interface {
	Resolve(ctx context.Context, ref string) (v1beta1.Workflow, error)
}

type provider struct {
	handlers []Resolver
}

// Resolver attempts to open a workflow manifest for the given ref.
// Handlers are tried in registration order, the first success wins.
type Resolver func(ctx context.Context, ref string) (io.Reader, error)

func New(handlers ...Resolver) *provider {
	return &provider{
		handlers: handlers,
	}
}

func (p *provider) Resolve(ctx context.Context, ref string) (v1beta1.Workflow, error) {
	to := v1beta1.Workflow{}
	var errs []error

	for _, handler := range p.handlers {
		r, err := handler(ctx, ref)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		manifest, err := io.ReadAll(r)
		if closer, ok := r.(io.Closer); ok {
			_ = closer.Close()
		}

		if err != nil {
			return to, err
		}

		if err := yaml.UnmarshalStrict(manifest, &to); err != nil {
			return to, fmt.Errorf("decode workflow %q: %v: %w", ref, err, v1beta1.ErrInvalidWorkflow)
		}

		to.SetDefaults()
		return to, nil
	}

	return to, fmt.Errorf("could not lookup ref: %q: %w", ref, errors.Join(errs...))
}
