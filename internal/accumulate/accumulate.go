// Package accumulate implements the painter's-algorithm accumulator: as
// higher-priority polygons are drawn first, each subsequent polygon is
// clipped against everything already drawn before it is added to the
// frontier.
package accumulate

import (
	"github.com/tgconstruct/tgconstruct/internal/geod"
	"github.com/tgconstruct/tgconstruct/internal/polygon"
)

// Accumulator owns the running union of every polygon added so far. It
// lives for the lifetime of a single tile (spec §3 "Lifecycles").
type Accumulator struct {
	union []polygon.Polygon
}

// New returns an empty accumulator.
func New() *Accumulator {
	return &Accumulator{}
}

// Union returns the accumulator's current frontier pieces. Callers must
// not mutate the returned slice's polygons.
func (a *Accumulator) Union() []polygon.Polygon {
	return a.union
}

// DiffAndAdd implements diff_and_add(p): p' = p \ U is returned as the
// visible remainder of p after subtracting everything already
// accumulated, and U' = U ∪ p becomes the new frontier -- the *full*
// original p is unioned in, not the clipped remainder, since p
// physically occupies that footprint regardless of what's visible.
//
// p \ U can legitimately be more than one piece -- a lower-priority
// polygon bisected by a higher-priority one already in the frontier
// (a road cutting a forest polygon in two, say) leaves two disjoint
// lobes, and both are visible remainder. DiffAndAdd returns every
// piece; merging them into one Polygon would silently keep only the
// largest (polygon.Union's single-result contract) and drop the rest.
//
// If subtracting U leaves nothing of p, DiffAndAdd returns (nil, false)
// and the caller discards p entirely: the frontier is not updated, per
// spec §4.D's stated failure mode.
func (a *Accumulator) DiffAndAdd(p polygon.Polygon) ([]polygon.Polygon, bool) {
	remaining := []polygon.Polygon{p}
	for _, u := range a.union {
		var next []polygon.Polygon
		for _, r := range remaining {
			pieces, err := polygon.DiffMany(r, u)
			if err != nil {
				continue
			}
			next = append(next, pieces...)
		}
		remaining = next
		if len(remaining) == 0 {
			break
		}
	}
	if len(remaining) == 0 {
		return nil, false
	}

	nodes := gatherVertices(a.union, p)
	for i, piece := range remaining {
		for j, c := range piece.Contours {
			piece.Contours[j] = c.AddColinearNodes(nodes, geod.DefaultEpsilon, geod.DefaultEpsilon)
		}
		remaining[i] = piece
	}

	a.union = append(a.union, p)
	return remaining, true
}

func gatherVertices(union []polygon.Polygon, p polygon.Polygon) []geod.Geod {
	var out []geod.Geod
	for _, u := range union {
		for _, c := range u.Contours {
			out = append(out, c.Pts...)
		}
	}
	for _, c := range p.Contours {
		out = append(out, c.Pts...)
	}
	return out
}
