package triangulate

import (
	"math"

	"github.com/tgconstruct/tgconstruct/internal/geod"
)

// pointInLoop is a standard ray-casting point-in-polygon test over a
// closed 2-D loop. Used both to decide which nodeset Steiner candidates
// fall inside a polygon and, via classify, to decide which triangles
// of the unconstrained-region triangulation belong to the final mesh
// -- the "centroid classification" mode `iceisfun/gomesh/cdt`'s
// BuildOptions documents as an alternative to flood-fill.
func pointInLoop(p point2, loop []point2) bool {
	inside := false
	n := len(loop)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := loop[i], loop[j]
		if (pi.y > p.y) != (pj.y > p.y) {
			xIntersect := (pj.x-pi.x)*(p.y-pi.y)/(pj.y-pi.y) + pi.x
			if p.x < xIntersect {
				inside = !inside
			}
		}
	}
	return inside
}

func centroid(pts []point2, t tri) point2 {
	a, b, c := pts[t.verts[0]], pts[t.verts[1]], pts[t.verts[2]]
	return point2{x: (a.x + b.x + c.x) / 3, y: (a.y + b.y + c.y) / 3}
}

// classify keeps only the triangles whose centroid lies inside the
// boundary loop and outside every hole loop.
func classify(mesh []tri, pts []point2, _ int, boundaryLoop []int, holeLoops [][]int) []tri {
	boundary2D := indexLoop(pts, boundaryLoop)
	holes2D := make([][]point2, len(holeLoops))
	for i, h := range holeLoops {
		holes2D[i] = indexLoop(pts, h)
	}

	out := make([]tri, 0, len(mesh))
	for _, t := range mesh {
		if math.Abs(orientation(pts[t.verts[0]], pts[t.verts[1]], pts[t.verts[2]])) < 1e-15 {
			continue
		}
		c := centroid(pts, t)
		if !pointInLoop(c, boundary2D) {
			continue
		}
		inHole := false
		for _, h := range holes2D {
			if pointInLoop(c, h) {
				inHole = true
				break
			}
		}
		if inHole {
			continue
		}
		out = append(out, t)
	}
	return out
}

func indexLoop(pts []point2, ids []int) []point2 {
	out := make([]point2, len(ids))
	for i, id := range ids {
		out[i] = pts[id]
	}
	return out
}

// ecef converts a Geod to an Earth-Centered-Earth-Fixed vector, using a
// spherical approximation (the pipeline's geodetic distance/azimuth
// work is ellipsoidal via Vincenty, but normal computation only needs
// direction, where the sphere/ellipsoid difference is negligible).
func ecef(g geod.Geod) [3]float64 {
	r := 6378137.0 + g.Elev
	latR := g.Lat * math.Pi / 180
	lonR := g.Lon * math.Pi / 180
	cosLat := math.Cos(latR)
	return [3]float64{
		r * cosLat * math.Cos(lonR),
		r * cosLat * math.Sin(lonR),
		r * math.Sin(latR),
	}
}

func sub3(a, b [3]float64) [3]float64 { return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }

func cross3(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// faceNormal returns the outward unit normal of triangle (a,b,c) via
// ECEF cross product, plus its area (half the cross-product magnitude)
// for the zero-area drop check. Spec §4.G.
func faceNormal(a, b, c geod.Geod) (normal [3]float64, area float64) {
	pa, pb, pc := ecef(a), ecef(b), ecef(c)
	n := cross3(sub3(pb, pa), sub3(pc, pa))
	length := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
	if length == 0 {
		return [3]float64{}, 0
	}
	return [3]float64{n[0] / length, n[1] / length, n[2] / length}, length / 2
}
