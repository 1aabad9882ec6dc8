package collision

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Danveyd/NewCatroid/internal/geom"
)

// Body is a shape with an optional identity. Polygons of bodies with an ID
// go through the engine's cache.
type Body struct {
	ID    string
	Shape Shape
}

func (e *Engine) collideBodies(ctx context.Context, bodies []Body, workers int) ([]Pair, error) {
	if len(bodies) < 2 {
		return nil, nil
	}

	boxes := make([]geom.AABB, len(bodies))
	for i, b := range bodies {
		boxes[i] = Bounds(b.Shape)
	}
	candidates := BroadPhase(boxes)

	hits := make([]bool, len(candidates))
	if workers <= 1 || len(candidates) < 2 {
		for k, c := range candidates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			hits[k] = e.checkPair(bodies, c)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for k, c := range candidates {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				hits[k] = e.checkPair(bodies, c)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	var pairs []Pair
	for k, hit := range hits {
		if hit {
			pairs = append(pairs, candidates[k])
		}
	}

	e.logger.Debug("collide pairs",
		slog.Int("shapes", len(bodies)),
		slog.Int("candidates", len(candidates)),
		slog.Int("hits", len(pairs)),
	)
	return pairs, nil
}

// checkPair runs the narrow phase for one candidate. A panic from a bad
// shape is logged and counted as no contact so the scan continues.
func (e *Engine) checkPair(bodies []Body, c Pair) (hit bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("narrow phase failed", "i", c.I, "j", c.J, "panic", r)
			hit = false
		}
	}()
	return e.narrowPhase(bodies[c.I], bodies[c.J])
}
