package docnum

import (
	"context"

	"github.com/hashicorp/go-hclog"
)

// Allocator computes the next identifier of a scope.
type Allocator interface {
	Next(ctx context.Context, f Format) (string, error)
}

// Generator allocates identifiers by scanning the owning column for the
// highest identifier of the scope. It keeps no state of its own.
type Generator struct {
	store  Store
	logger hclog.Logger
}

// NewGenerator creates a scanning allocator over store.
func NewGenerator(store Store, logger hclog.Logger) *Generator {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Generator{
		store:  store,
		logger: logger.Named("generator"),
	}
}

// Next returns the identifier following the highest stored one in the scope,
// or serial 1 when the scope is empty.
//
// A stored identifier without a parseable serial fails the call; restarting
// at 1 would hand out a number that may already exist.
func (g *Generator) Next(ctx context.Context, f Format) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}

	prefix := f.ScopePrefix()
	latest, found, err := g.store.LatestWithPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	var next uint64 = 1
	if found {
		last, err := f.Serial(latest)
		if err != nil {
			g.logger.Error("stored identifier has no valid serial",
				"prefix", prefix,
				"identifier", latest,
			)
			return "", err
		}
		next = last + 1
	}

	id := f.Render(next)
	g.logger.Trace("allocated identifier", "prefix", prefix, "serial", next, "identifier", id)
	return id, nil
}
