package triangulate

// edgesOf returns the three CCW-ordered edges of t.
func edgesOf(t tri) [3][2]int {
	return [3][2]int{
		{t.verts[0], t.verts[1]},
		{t.verts[1], t.verts[2]},
		{t.verts[2], t.verts[0]},
	}
}

// thirdVertex returns the vertex of t that is neither a nor b.
func thirdVertex(t tri, a, b int) int {
	for _, v := range t.verts {
		if v != a && v != b {
			return v
		}
	}
	return -1
}

// hasEdge reports whether any triangle has an edge between a and b.
func hasEdge(mesh []tri, a, b int) bool {
	key := edgeKey(a, b)
	for _, t := range mesh {
		for _, e := range edgesOf(t) {
			if edgeKey(e[0], e[1]) == key {
				return true
			}
		}
	}
	return false
}

// findCrossing locates two triangles sharing an edge that properly
// crosses segment a-b, returning their indices, the shared edge, and
// each triangle's opposite apex. ok is false once no crossing edge
// remains.
func findCrossing(mesh []tri, pts []point2, a, b int) (i1, i2, c, d, apexC, apexD int, ok bool) {
	pa, pb := pts[a], pts[b]
	type edgeOwner struct {
		tri  int
		apex int
	}
	owners := map[[2]int][]edgeOwner{}
	for ti, t := range mesh {
		for _, e := range edgesOf(t) {
			k := edgeKey(e[0], e[1])
			owners[k] = append(owners[k], edgeOwner{tri: ti, apex: thirdVertex(t, e[0], e[1])})
		}
	}
	for k, os := range owners {
		if len(os) != 2 {
			continue
		}
		e0, e1 := k[0], k[1]
		if e0 == a || e0 == b || e1 == a || e1 == b {
			continue // endpoint-touching, not a proper crossing
		}
		if properlyCrosses(pa, pb, pts[e0], pts[e1]) {
			return os[0].tri, os[1].tri, e0, e1, os[0].apex, os[1].apex, true
		}
	}
	return 0, 0, 0, 0, 0, 0, false
}

// properlyCrosses reports whether open segments p1-p2 and p3-p4 cross
// at an interior point of both.
func properlyCrosses(p1, p2, p3, p4 point2) bool {
	d1 := orientation(p3, p4, p1)
	d2 := orientation(p3, p4, p2)
	d3 := orientation(p1, p2, p3)
	d4 := orientation(p1, p2, p4)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

// flip replaces the two triangles sharing edge (c,d) -- with opposite
// apexes apexC, apexD -- with the two triangles sharing edge
// (apexC, apexD) instead.
func flip(mesh []tri, pts []point2, i1, i2, c, d, apexC, apexD int) {
	mesh[i1] = tri{verts: ccw(pts, apexC, apexD, c)}
	mesh[i2] = tri{verts: ccw(pts, apexC, apexD, d)}
}

// recoverConstraint ensures segment (a,b) appears as an explicit edge
// of mesh, flipping crossing edges one at a time (Sloan's edge-flip
// constraint recovery). Bounded to avoid looping forever on a
// degenerate/non-convex quad the flip can't resolve -- such a
// constraint is left unrecovered and classify's centroid test still
// approximates the region correctly in practice for the shallow,
// near-planar cases this pipeline's polygons present.
func recoverConstraint(mesh *[]tri, pts []point2, a, b int) {
	if hasEdge(*mesh, a, b) {
		return
	}
	const maxFlips = 200
	for i := 0; i < maxFlips; i++ {
		i1, i2, c, d, apexC, apexD, ok := findCrossing(*mesh, pts, a, b)
		if !ok {
			return
		}
		// Only flip if the resulting quad is convex (apexC, apexD on
		// opposite sides of c-d and vice versa); properlyCrosses found
		// above already guarantees this for the a-b vs c-d pair, but we
		// also need apexC-apexD to be a valid diagonal of the
		// quadrilateral (c, apexC, d, apexD).
		if !properlyCrosses(pts[apexC], pts[apexD], pts[c], pts[d]) {
			return // degenerate or non-convex quad, cannot flip further
		}
		flip(*mesh, pts, i1, i2, c, d, apexC, apexD)
		if hasEdge(*mesh, a, b) {
			return
		}
	}
}
