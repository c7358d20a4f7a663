package triangulate

import "math"

// tri holds three indices into the shared points slice, always stored
// counter-clockwise.
type tri struct {
	verts [3]int
}

func edgeKey(a, b int) [2]int {
	if a < b {
		return [2]int{a, b}
	}
	return [2]int{b, a}
}

// orientation returns twice the signed area of (a, b, c): positive if
// CCW, negative if CW, zero if colinear.
func orientation(a, b, c point2) float64 {
	return (b.x-a.x)*(c.y-a.y) - (b.y-a.y)*(c.x-a.x)
}

// inCircumcircle reports whether d lies strictly inside the circumcircle
// of CCW triangle (a, b, c).
func inCircumcircle(a, b, c, d point2) bool {
	ax, ay := a.x-d.x, a.y-d.y
	bx, by := b.x-d.x, b.y-d.y
	cx, cy := c.x-d.x, c.y-d.y

	det := (ax*ax+ay*ay)*(bx*cy-cx*by) -
		(bx*bx+by*by)*(ax*cy-cx*ay) +
		(cx*cx+cy*cy)*(ax*by-bx*ay)
	return det > 1e-12
}

// ccw returns a,b,c reordered so the triangle winds counter-clockwise.
func ccw(pts []point2, a, b, c int) [3]int {
	if orientation(pts[a], pts[b], pts[c]) < 0 {
		return [3]int{a, c, b}
	}
	return [3]int{a, b, c}
}

// delaunay builds an unconstrained Delaunay triangulation of pts via
// Bowyer-Watson incremental insertion, seeded by a bounding
// super-triangle whose three vertices (indices len(pts)..len(pts)+2)
// are stripped from the result before returning.
func delaunay(pts []point2) []tri {
	n := len(pts)
	minX, minY := pts[0].x, pts[0].y
	maxX, maxY := pts[0].x, pts[0].y
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.x), math.Max(maxX, p.x)
		minY, maxY = math.Min(minY, p.y), math.Max(maxY, p.y)
	}
	dx, dy := maxX-minX, maxY-minY
	d := math.Max(dx, dy)
	if d <= 0 {
		d = 1
	}
	midX, midY := (minX+maxX)/2, (minY+maxY)/2

	all := make([]point2, n+3)
	copy(all, pts)
	all[n] = point2{midX - 20*d, midY - d}
	all[n+1] = point2{midX, midY + 20*d}
	all[n+2] = point2{midX + 20*d, midY - d}

	triangles := []tri{{verts: ccw(all, n, n+1, n+2)}}
	for i := 0; i < n; i++ {
		triangles = insertPoint(triangles, all, i)
	}

	out := make([]tri, 0, len(triangles))
	for _, t := range triangles {
		if t.verts[0] >= n || t.verts[1] >= n || t.verts[2] >= n {
			continue
		}
		out = append(out, t)
	}
	return out
}

// insertPoint performs one Bowyer-Watson cavity insertion of all[p]
// into triangles.
func insertPoint(triangles []tri, all []point2, p int) []tri {
	bad := make(map[int]bool)
	for i, t := range triangles {
		if inCircumcircle(all[t.verts[0]], all[t.verts[1]], all[t.verts[2]], all[p]) {
			bad[i] = true
		}
	}
	if len(bad) == 0 {
		return triangles
	}

	edgeCount := map[[2]int]int{}
	edgeOrdered := map[[2]int][2]int{}
	for i := range bad {
		t := triangles[i]
		edges := [3][2]int{
			{t.verts[0], t.verts[1]},
			{t.verts[1], t.verts[2]},
			{t.verts[2], t.verts[0]},
		}
		for _, e := range edges {
			k := edgeKey(e[0], e[1])
			edgeCount[k]++
			edgeOrdered[k] = e
		}
	}

	kept := make([]tri, 0, len(triangles)-len(bad))
	for i, t := range triangles {
		if !bad[i] {
			kept = append(kept, t)
		}
	}
	for k, count := range edgeCount {
		if count != 1 {
			continue
		}
		e := edgeOrdered[k]
		kept = append(kept, tri{verts: [3]int{e[0], e[1], p}})
	}
	return kept
}
