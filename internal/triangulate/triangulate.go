// Package triangulate builds a constrained Delaunay triangulation of a
// polygon's boundary and holes, seeded with extra interior points
// ("Steiner points") gathered from the tile's shared UniqueNodeSet, and
// computes per-face outward normals. Spec §4.G.
//
// The construction follows the classic four-stage recipe: seed a
// bounding super-triangle, incrementally insert every point
// (Bowyer-Watson), recover the boundary/hole loops as explicit edges
// by flipping any triangulation edge they cross, legalize the
// remaining non-constrained edges, then classify and prune. Grounded
// on the phase structure of the retrieved iceisfun/gomesh `cdt`
// package (see DESIGN.md) -- no importable CDT library was available
// in the example pack, so this is a from-scratch implementation of
// the same algorithm shape rather than a wrapped dependency.
package triangulate

import (
	"math"

	"github.com/tgconstruct/tgconstruct/internal/contour"
	"github.com/tgconstruct/tgconstruct/internal/geod"
	"github.com/tgconstruct/tgconstruct/internal/nodeset"
	"github.com/tgconstruct/tgconstruct/internal/polygon"
	"github.com/tgconstruct/tgconstruct/internal/tgerr"
)

// point2 is a local tangent-plane projection of a Geod, used only for
// the 2-D predicates the triangulation needs (orientation, in-circle,
// segment crossing). Scale distortion away from the projection center
// does not affect triangulation topology, only numerical conditioning.
type point2 struct{ x, y float64 }

func project(origin geod.Geod, g geod.Geod) point2 {
	scale := math.Cos(origin.Lat * math.Pi / 180)
	if scale < 0.05 {
		scale = 0.05
	}
	return point2{x: (g.Lon - origin.Lon) * scale, y: g.Lat - origin.Lat}
}

// idsFor round-trips every point of c through ns, returning the stable
// node ids in the contour's original order.
func idsFor(ns *nodeset.UniqueNodeSet, c contour.Contour) []int {
	ids := make([]int, c.Size())
	for i, p := range c.Pts {
		ids[i] = ns.Insert(p)
	}
	return ids
}

// Build triangulates p (boundary + holes), seeding with every node from
// ns whose coordinates fall within p's bounding box, inside the
// boundary, and outside every hole. Every triangle vertex index
// returned is a stable nodeset id.
func Build(ns *nodeset.UniqueNodeSet, p polygon.Polygon) (*polygon.Triangulation, error) {
	boundary := p.Boundary()
	if boundary.Size() < 3 {
		return nil, &tgerr.Degenerate{Op: "triangulate.Build", Detail: "boundary has fewer than 3 vertices"}
	}
	holes := p.Holes()
	origin := boundary.Pts[0]

	boundaryIDs := idsFor(ns, boundary)
	holeIDs := make([][]int, len(holes))
	for i, h := range holes {
		holeIDs[i] = idsFor(ns, h)
	}

	used := map[int]bool{}
	for _, id := range boundaryIDs {
		used[id] = true
	}
	for _, h := range holeIDs {
		for _, id := range h {
			used[id] = true
		}
	}

	boundaryLoop2D := project2DLoop(origin, ns, boundaryIDs)
	holeLoops2D := make([][]point2, len(holeIDs))
	for i, h := range holeIDs {
		holeLoops2D[i] = project2DLoop(origin, ns, h)
	}

	var steinerIDs []int
	for _, id := range ns.QueryBox(boundary.Bounds()) {
		if used[id] {
			continue
		}
		pt := project(origin, ns.Lookup(id))
		if !pointInLoop(pt, boundaryLoop2D) {
			continue
		}
		inHole := false
		for _, hl := range holeLoops2D {
			if pointInLoop(pt, hl) {
				inHole = true
				break
			}
		}
		if inHole {
			continue
		}
		used[id] = true
		steinerIDs = append(steinerIDs, id)
	}

	// Flatten every id (boundary, holes, steiner) into one local point
	// list; index i corresponds to ids[i].
	var ids []int
	var pts []point2
	localIndex := make(map[int]int)
	addID := func(id int) int {
		if idx, ok := localIndex[id]; ok {
			return idx
		}
		idx := len(ids)
		ids = append(ids, id)
		pts = append(pts, project(origin, ns.Lookup(id)))
		localIndex[id] = idx
		return idx
	}

	boundaryLoop := make([]int, len(boundaryIDs))
	for i, id := range boundaryIDs {
		boundaryLoop[i] = addID(id)
	}
	holeLoops := make([][]int, len(holeIDs))
	for hi, h := range holeIDs {
		loop := make([]int, len(h))
		for i, id := range h {
			loop[i] = addID(id)
		}
		holeLoops[hi] = loop
	}
	for _, id := range steinerIDs {
		addID(id)
	}

	if len(pts) < 3 {
		return nil, &tgerr.Degenerate{Op: "triangulate.Build", Detail: "fewer than 3 distinct points to triangulate"}
	}

	mesh := delaunay(pts)

	constraintLoops := append([][]int{boundaryLoop}, holeLoops...)
	var constraints [][2]int
	for _, loop := range constraintLoops {
		n := len(loop)
		for i := 0; i < n; i++ {
			a, b := loop[i], loop[(i+1)%n]
			if a == b {
				continue
			}
			constraints = append(constraints, [2]int{a, b})
		}
	}
	constrainedSet := make(map[[2]int]bool, len(constraints))
	for _, c := range constraints {
		constrainedSet[edgeKey(c[0], c[1])] = true
	}

	for _, c := range constraints {
		recoverConstraint(&mesh, pts, c[0], c[1])
	}
	legalize(&mesh, pts, constrainedSet)

	faces := classify(mesh, pts, len(pts), boundaryLoop, holeLoops)

	tris := make([]polygon.Triangle, 0, len(faces))
	for _, f := range faces {
		a, b, c := ids[f.verts[0]], ids[f.verts[1]], ids[f.verts[2]]
		normal, area := faceNormal(ns.Lookup(a), ns.Lookup(b), ns.Lookup(c))
		if area < 1e-14 {
			continue
		}
		tris = append(tris, polygon.Triangle{A: a, B: b, C: c, Normal: normal})
	}

	return &polygon.Triangulation{Triangles: tris}, nil
}

func project2DLoop(origin geod.Geod, ns *nodeset.UniqueNodeSet, ids []int) []point2 {
	out := make([]point2, len(ids))
	for i, id := range ids {
		out[i] = project(origin, ns.Lookup(id))
	}
	return out
}
