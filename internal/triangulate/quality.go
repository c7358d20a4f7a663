package triangulate

// legalize flips every non-constrained edge violating the Delaunay
// in-circle property, bounded to a few full passes: enough for the
// tile-scale point counts this pipeline produces, and a bound avoids
// an infinite loop on a configuration floating-point error keeps
// re-flipping back and forth.
func legalize(mesh *[]tri, pts []point2, constrained map[[2]int]bool) {
	const maxPasses = 6
	for pass := 0; pass < maxPasses; pass++ {
		flippedAny := false

		type edgeOwner struct {
			tri  int
			apex int
		}
		owners := map[[2]int][]edgeOwner{}
		for ti, t := range *mesh {
			for _, e := range edgesOf(t) {
				k := edgeKey(e[0], e[1])
				owners[k] = append(owners[k], edgeOwner{tri: ti, apex: thirdVertex(t, e[0], e[1])})
			}
		}

		for k, os := range owners {
			if len(os) != 2 || constrained[k] {
				continue
			}
			c, d := k[0], k[1]
			apexC, apexD := os[0].apex, os[1].apex
			if inCircumcircle(pts[c], pts[d], pts[apexC], pts[apexD]) ||
				inCircumcircle(pts[d], pts[c], pts[apexD], pts[apexC]) {
				if orientation(pts[c], pts[apexC], pts[d]) == 0 || orientation(pts[d], pts[apexD], pts[c]) == 0 {
					continue
				}
				flip(*mesh, pts, os[0].tri, os[1].tri, c, d, apexC, apexD)
				flippedAny = true
			}
		}

		if !flippedAny {
			return
		}
	}
}
