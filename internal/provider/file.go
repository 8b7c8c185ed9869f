package provider

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
)

const WorkflowFile = "kestrel.yaml"

func WithFile() Resolver {
	return func(ctx context.Context, ref string) (io.Reader, error) {
		if ref == "" {
			return nil, errors.New("no ref given")
		}

		return os.Open(ref)
	}
}

// WithWorkflowFile resolves an empty ref to the conventional manifest in
// the working directory.
func WithWorkflowFile() Resolver {
	return func(ctx context.Context, ref string) (io.Reader, error) {
		if ref != "" {
			return nil, errors.New("no ref expected")
		}

		return os.Open(WorkflowFile)
	}
}

// WithDir resolves a bare name against a workflows directory, e.g.
// `release` -> `.kestrel/workflows/release.yaml`.
func WithDir(dir string) Resolver {
	return func(ctx context.Context, ref string) (io.Reader, error) {
		if ref == "" {
			return nil, errors.New("no ref given")
		}

		return os.Open(filepath.Join(dir, ref+".yaml"))
	}
}
