package polygon

import (
	"math"
	"sort"

	clipper "github.com/go-clipper/clipper2"

	"github.com/tgconstruct/tgconstruct/internal/contour"
	"github.com/tgconstruct/tgconstruct/internal/geod"
)

// toClipperPaths converts every contour of p into a clipper Path64, with
// boundaries forced CCW and holes forced CW per the spec §4.C wire
// contract for the clipper call.
func toClipperPaths(p Polygon) clipper.Paths64 {
	paths := make(clipper.Paths64, len(p.Contours))
	for i, c := range p.Contours {
		oriented := c.EnsureOrientation(i != 0) // index 0: CCW (false); holes: CW (true)
		paths[i] = make(clipper.Path64, len(oriented.Pts))
		for j, pt := range oriented.Pts {
			paths[i][j] = clipper.Point64{
				X: int64(math.Round(pt.Lon * contour.FixedPointFactor)),
				Y: int64(math.Round(pt.Lat * contour.FixedPointFactor)),
			}
		}
	}
	return paths
}

func fromClipperPath(path clipper.Path64) contour.Contour {
	pts := make([]geod.Geod, len(path))
	for i, pt := range path {
		pts[i] = geod.Geod{
			Lon: float64(pt.X) / contour.FixedPointFactor,
			Lat: float64(pt.Y) / contour.FixedPointFactor,
		}
	}
	return contour.New(pts, false)
}

// collectVertices gathers every vertex of every contour in ps, for the
// post-boolean-op AddColinearNodes re-insertion step (spec §4.C step 4).
func collectVertices(ps ...Polygon) []geod.Geod {
	var out []geod.Geod
	for _, p := range ps {
		for _, c := range p.Contours {
			out = append(out, c.Pts...)
		}
	}
	return out
}

// reinsertColinearNodes runs AddColinearNodes on every contour of p against
// nodes, preserving shared edges with whatever produced those nodes.
func reinsertColinearNodes(p Polygon, nodes []geod.Geod) Polygon {
	out := Polygon{Material: p.Material, Tex: p.Tex, ID: p.ID}
	out.Contours = make([]contour.Contour, len(p.Contours))
	for i, c := range p.Contours {
		out.Contours[i] = c.AddColinearNodes(nodes, geod.DefaultEpsilon, geod.DefaultEpsilon)
	}
	return out
}

// booleanOp runs the four-step boolean-op recipe from spec §4.C: gather
// vertices, convert to clipper paths, run the clipper with even-odd fill,
// regroup the flat result contours into nested polygons (boundary/hole by
// containment depth), and re-insert colinear nodes from the gathered set.
func booleanOp(op clipper.ClipType, a, b Polygon) ([]Polygon, error) {
	subj := toClipperPaths(a)
	clip := toClipperPaths(b)

	solution, err := clipper.BooleanOp(op, clipper.EvenOdd, subj, clip)
	if err != nil {
		return nil, err
	}

	flat := make([]contour.Contour, len(solution))
	for i, path := range solution {
		flat[i] = fromClipperPath(path)
	}

	grouped := groupByNesting(flat, firstMaterial(a, b))
	nodes := collectVertices(a, b)
	for i := range grouped {
		grouped[i] = reinsertColinearNodes(grouped[i], nodes)
	}
	return grouped, nil
}

func firstMaterial(a, b Polygon) string {
	if a.Material != "" {
		return a.Material
	}
	return b.Material
}

// groupByNesting assigns each flat contour a containment depth (count of
// other contours it lies within, via contour.IsInside) and groups them
// into polygons: a contour at even depth starts a new boundary; a
// contour at odd depth becomes a hole of its nearest (smallest-area)
// enclosing even-depth ancestor. This mirrors how the original C++
// polygon-clean pass regroups a clipper's flat output, since the planar
// clipper used here returns a flat path list rather than a nesting tree.
func groupByNesting(cs []contour.Contour, material string) []Polygon {
	n := len(cs)
	if n == 0 {
		return nil
	}

	depth := make([]int, n)
	containers := make([][]int, n) // indices of contours that contain i, any depth
	for i := range cs {
		for j := range cs {
			if i == j {
				continue
			}
			if contour.IsInside(cs[i], cs[j]) {
				depth[i]++
				containers[i] = append(containers[i], j)
			}
		}
	}

	boundaries := make(map[int]*Polygon)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return depth[order[a]] < depth[order[b]] })

	var result []int
	for _, i := range order {
		if depth[i]%2 == 0 {
			p := &Polygon{Material: material, Contours: []contour.Contour{cs[i].EnsureOrientation(false)}}
			boundaries[i] = p
			result = append(result, i)
			continue
		}
		// odd depth: find the nearest enclosing even-depth ancestor --
		// the container with the smallest absolute area among those at
		// depth[i]-1.
		best := -1
		bestArea := math.Inf(1)
		for _, j := range containers[i] {
			if depth[j] != depth[i]-1 {
				continue
			}
			a := math.Abs(cs[j].Area())
			if a < bestArea {
				bestArea = a
				best = j
			}
		}
		if best == -1 {
			// No consistent parent found (degenerate clipper output):
			// treat as its own boundary rather than drop it silently.
			p := &Polygon{Material: material, Contours: []contour.Contour{cs[i].EnsureOrientation(false)}}
			boundaries[i] = p
			result = append(result, i)
			continue
		}
		boundaries[best].Contours = append(boundaries[best].Contours, cs[i].EnsureOrientation(true))
	}

	out := make([]Polygon, 0, len(result))
	for _, i := range result {
		out = append(out, *boundaries[i])
	}
	return out
}
