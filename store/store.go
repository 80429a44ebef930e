// Package store keeps named, serialized pipelines in a directory or in Redis.
package store

import (
	"bytes"
	"context"
	"regexp"

	"github.com/YuminosukeSato/featurekit/pkg/errors"
	"github.com/YuminosukeSato/featurekit/tabular"
)

// Store persists opaque pipeline blobs under names.
type Store interface {
	// Put creates or replaces the blob stored under name.
	Put(ctx context.Context, name string, blob []byte) error
	// Get returns the blob stored under name, or an error matching ErrNotFound.
	Get(ctx context.Context, name string) ([]byte, error)
	// List returns the stored names in lexical order.
	List(ctx context.Context) ([]string, error)
	// Delete removes name. Deleting an absent name is not an error.
	Delete(ctx context.Context, name string) error
}

// ErrNotFound is returned when no blob exists under a name.
var ErrNotFound = errors.ErrNotFound

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateName rejects names that are empty, too long or not safe as a file
// name or key suffix.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return errors.NewValidationError("name", "must match "+namePattern.String(), name)
	}
	return nil
}

func notFound(name string) error {
	return errors.Wrapf(ErrNotFound, "pipeline %q", name)
}

// SavePipeline serializes p and stores it under name.
func SavePipeline(ctx context.Context, s Store, name string, p *tabular.Pipeline) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := p.Save(&buf); err != nil {
		return err
	}
	return s.Put(ctx, name, buf.Bytes())
}

// LoadPipeline reads the pipeline stored under name.
func LoadPipeline(ctx context.Context, s Store, name string, opts ...tabular.PipelineOption) (*tabular.Pipeline, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	blob, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	p, err := tabular.Load(bytes.NewReader(blob), opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "pipeline %q", name)
	}
	return p, nil
}
