package build

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// CompileFunc compiles one unit and returns its object path
type CompileFunc func(ctx context.Context, u Unit) (string, error)

// CompileGraph holds one node per unit. Nodes have no edges between them;
// the link step depends on every node and only starts once Run returns
// without error.
type CompileGraph struct {
	units []Unit
	jobs  int
}

// NewCompileGraph creates a graph over units. jobs <= 1 runs nodes strictly
// in declaration order, one at a time.
func NewCompileGraph(units []Unit, jobs int) (*CompileGraph, error) {
	if err := ValidateUnits(units); err != nil {
		return nil, err
	}
	if jobs < 1 {
		jobs = 1
	}
	return &CompileGraph{units: units, jobs: jobs}, nil
}

// Len returns the number of nodes
func (g *CompileGraph) Len() int {
	return len(g.units)
}

// Run executes every node. The first failure stops the remaining nodes from
// starting. The returned set is always in declaration order.
func (g *CompileGraph) Run(ctx context.Context, compile CompileFunc) (*ArtifactSet, error) {
	if g.jobs == 1 {
		return g.runSequential(ctx, compile)
	}
	return g.runParallel(ctx, compile)
}

func (g *CompileGraph) runSequential(ctx context.Context, compile CompileFunc) (*ArtifactSet, error) {
	set := NewArtifactSet()
	for _, u := range g.units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		obj, err := compile(ctx, u)
		if err != nil {
			return nil, err
		}
		if err := set.Add(u.ID, obj); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func (g *CompileGraph) runParallel(ctx context.Context, compile CompileFunc) (*ArtifactSet, error) {
	objects := make([]string, len(g.units))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.jobs)
	for i, u := range g.units {
		// Go blocks while the limit is reached, so a failure seen here
		// means no further nodes are scheduled
		if egCtx.Err() != nil {
			break
		}
		i, u := i, u // per-iteration copies; module targets go 1.21 loop semantics
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			obj, err := compile(egCtx, u)
			if err != nil {
				return err
			}
			objects[i] = obj
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set := NewArtifactSet()
	for i, u := range g.units {
		if objects[i] == "" {
			return nil, fmt.Errorf("unit %s produced no object", u.ID)
		}
		if err := set.Add(u.ID, objects[i]); err != nil {
			return nil, err
		}
	}
	return set, nil
}
