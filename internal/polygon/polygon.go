// Package polygon implements the Polygon type and its boolean algebra:
// Union/Diff/Intersect/Xor delegate to a planar integer clipper, plus
// StripHoles/Simplify/RemoveSlivers/MergeSlivers/Canonify and a
// Triangulation cache slot populated by internal/triangulate.
package polygon

import (
	"fmt"
	"math"

	clipper "github.com/go-clipper/clipper2"

	"github.com/tgconstruct/tgconstruct/internal/contour"
	"github.com/tgconstruct/tgconstruct/internal/texture"
)

// DefaultSliverMinAngleDeg and the two area thresholds implement the
// RemoveSlivers predicate from spec §4.C verbatim.
const (
	DefaultSliverMinAngleDeg = 10.0
	SliverAreaThresholdA     = 1e-9
	SliverAreaThresholdB     = 1e-10
)

// Triangle is one face of a Polygon's cached triangulation: node-set ids
// for its three corners plus its outward unit normal.
type Triangle struct {
	A, B, C int
	Normal  [3]float64
}

// Triangulation is the per-polygon mesh cache, declared here and
// populated by internal/triangulate so the two packages don't form an
// import cycle.
type Triangulation struct {
	Triangles []Triangle
}

// Polygon is an ordered [boundary, holes...] list of contours plus
// material and texture metadata. Invariant: at most one non-hole
// contour; Canonify and StripHoles are what enforce it.
type Polygon struct {
	Contours []contour.Contour
	Material string
	Tex      texture.Params
	ID       int
	Tri      *Triangulation
}

// New builds a Polygon from a boundary contour and its holes.
func New(boundary contour.Contour, holes []contour.Contour, material string) Polygon {
	boundary.Hole = false
	cs := make([]contour.Contour, 0, 1+len(holes))
	cs = append(cs, boundary)
	for _, h := range holes {
		h.Hole = true
		cs = append(cs, h)
	}
	return Polygon{Contours: cs, Material: material}
}

// Boundary returns the polygon's single non-hole contour. Panics if the
// polygon has no contours -- callers should never hold an empty Polygon
// past construction.
func (p Polygon) Boundary() contour.Contour { return p.Contours[0] }

// Holes returns the polygon's hole contours.
func (p Polygon) Holes() []contour.Contour {
	if len(p.Contours) <= 1 {
		return nil
	}
	return p.Contours[1:]
}

// Area returns the polygon's net area: boundary area minus the sum of
// hole areas, all in absolute square degrees.
func (p Polygon) Area() float64 {
	if len(p.Contours) == 0 {
		return 0
	}
	a := math.Abs(p.Boundary().Area())
	for _, h := range p.Holes() {
		a -= math.Abs(h.Area())
	}
	return a
}

func boolResult(op clipper.ClipType, a, b Polygon) (Polygon, error) {
	groups, err := booleanOp(op, a, b)
	if err != nil {
		return Polygon{}, fmt.Errorf("polygon %s: %w", clipOpName(op), err)
	}
	if len(groups) == 0 {
		return Polygon{}, nil
	}
	// The caller-facing ops return a single Polygon; when the clipper
	// produces multiple disjoint pieces, the largest by area is returned
	// and the rest are dropped. The Many variants below return every
	// piece.
	best := groups[0]
	bestArea := best.Area()
	for _, g := range groups[1:] {
		if a := g.Area(); a > bestArea {
			best, bestArea = g, a
		}
	}
	return best, nil
}

func clipOpName(op clipper.ClipType) string {
	switch op {
	case clipper.Union:
		return "union"
	case clipper.Difference:
		return "diff"
	case clipper.Intersection:
		return "intersect"
	case clipper.Xor:
		return "xor"
	default:
		return "unknown"
	}
}

// Union returns a ∪ b.
func Union(a, b Polygon) (Polygon, error) { return boolResult(clipper.Union, a, b) }

// Diff returns a \ b.
func Diff(a, b Polygon) (Polygon, error) { return boolResult(clipper.Difference, a, b) }

// Intersect returns a ∩ b.
func Intersect(a, b Polygon) (Polygon, error) { return boolResult(clipper.Intersection, a, b) }

// Xor returns the symmetric difference of a and b.
func Xor(a, b Polygon) (Polygon, error) { return boolResult(clipper.Xor, a, b) }

// UnionMany returns every disjoint piece of a ∪ b, for callers (the
// accumulator, the chopper) that must not silently collapse a
// multi-piece result to its largest component.
func UnionMany(a, b Polygon) ([]Polygon, error) { return booleanOp(clipper.Union, a, b) }

// DiffMany returns every disjoint piece of a \ b.
func DiffMany(a, b Polygon) ([]Polygon, error) { return booleanOp(clipper.Difference, a, b) }

// IntersectMany returns every disjoint piece of a ∩ b, for callers (the
// chopper clipping a non-convex polygon against a single grid cell)
// that must not silently collapse a multi-piece result to its largest
// component.
func IntersectMany(a, b Polygon) ([]Polygon, error) { return booleanOp(clipper.Intersection, a, b) }

// StripHoles keeps the first contour as the boundary and discards every
// other contour. Further non-hole contours are dropped, not unioned into
// the boundary.
func StripHoles(p Polygon) Polygon {
	return Polygon{
		Contours: []contour.Contour{p.Boundary().EnsureOrientation(false)},
		Material: p.Material,
		Tex:      p.Tex,
		ID:       p.ID,
	}
}

// Simplify runs a self-union of p through the clipper -- the Vatti
// sweep resolves a contour's own self-intersections as a side effect of
// any boolean op, so unioning a polygon with an empty operand is the
// clipper's "simplify" pass -- then re-inserts colinear nodes gathered
// from the original polygon (spec §4.C: "runs the clipper's
// simplify-polygons pass and re-adds colinear nodes").
func Simplify(p Polygon) (Polygon, error) {
	nodes := collectVertices(p)
	empty := Polygon{}
	simplified, err := boolResult(clipper.Union, p, empty)
	if err != nil {
		return Polygon{}, fmt.Errorf("polygon simplify: %w", err)
	}
	simplified.Material, simplified.Tex, simplified.ID = p.Material, p.Tex, p.ID
	simplified = reinsertColinearNodes(simplified, nodes)
	return simplified, nil
}

// RemoveSlivers scans subject's contours and removes any whose min-angle
// is below DefaultSliverMinAngleDeg and whose area is below one of the
// two sliver thresholds. Removed non-hole contours are returned
// separately for MergeSlivers to attempt reattachment.
func RemoveSlivers(subject Polygon) (kept Polygon, slivers []contour.Contour) {
	kept = Polygon{Material: subject.Material, Tex: subject.Tex, ID: subject.ID}
	for _, c := range subject.Contours {
		area := math.Abs(c.Area())
		isSliver := c.MinAngle() < DefaultSliverMinAngleDeg &&
			(area < SliverAreaThresholdA || area < SliverAreaThresholdB)
		if isSliver {
			if !c.Hole {
				slivers = append(slivers, c)
			}
			continue
		}
		kept.Contours = append(kept.Contours, c)
	}
	return kept, slivers
}

// MergeSlivers attempts, for each sliver in order, to union it with each
// polygon in polys in order, keeping the union iff the polygon's contour
// count does not increase (i.e. the sliver was absorbed without creating
// a new hole or disjoint piece). Slivers that cannot be merged anywhere
// are returned as unmerged.
func MergeSlivers(polys []Polygon, slivers []contour.Contour) (merged []Polygon, unmerged []contour.Contour) {
	merged = append([]Polygon(nil), polys...)
	for _, sliver := range slivers {
		sliverPoly := Polygon{Contours: []contour.Contour{sliver.EnsureOrientation(false)}}
		placed := false
		for i, p := range merged {
			before := len(p.Contours)
			u, err := Union(p, sliverPoly)
			if err != nil {
				continue
			}
			if len(u.Contours) <= before {
				merged[i] = u
				placed = true
				break
			}
		}
		if !placed {
			unmerged = append(unmerged, sliver)
		}
	}
	return merged, unmerged
}

// Canonify walks p's contours, verifies at most one non-hole contour,
// and reverses any contour whose orientation is inconsistent with its
// hole flag (boundaries CCW, holes CW).
func Canonify(p Polygon) (Polygon, error) {
	nonHoles := 0
	for _, c := range p.Contours {
		if !c.Hole {
			nonHoles++
		}
	}
	if nonHoles > 1 {
		return Polygon{}, fmt.Errorf("polygon canonify: %d non-hole contours, want at most 1", nonHoles)
	}

	out := Polygon{Material: p.Material, Tex: p.Tex, ID: p.ID, Tri: p.Tri}
	out.Contours = make([]contour.Contour, len(p.Contours))
	for i, c := range p.Contours {
		out.Contours[i] = c.EnsureOrientation(c.Hole)
	}
	return out, nil
}
