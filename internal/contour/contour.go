// Package contour implements the ordered-ring operations the rest of the
// pipeline composes: area/winding, dedup, spike removal, long-edge
// subdivision, snapping, cycle splitting, colinear-node insertion (the
// T-junction eliminator), and Minkowski-style offset.
package contour

import (
	"fmt"
	"math"
	"sort"

	clipper "github.com/go-clipper/clipper2"

	"github.com/tgconstruct/tgconstruct/internal/geod"
)

// FixedPointFactor is the scale applied when converting degrees to the
// planar clipper's int64 fixed-point coordinate space (spec §4.C step 2).
const FixedPointFactor = 1e7

// Contour is an ordered ring of Geods plus a hole flag.
type Contour struct {
	Pts  []geod.Geod
	Hole bool
}

// New builds a Contour from points.
func New(pts []geod.Geod, hole bool) Contour {
	return Contour{Pts: append([]geod.Geod(nil), pts...), Hole: hole}
}

// Size returns the number of vertices.
func (c Contour) Size() int { return len(c.Pts) }

// Area returns the signed planar area in square degrees:
// ½ Σ (x_i + x_{i+1})(y_i − y_{i+1}). Positive means clockwise.
func (c Contour) Area() float64 {
	n := len(c.Pts)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += (c.Pts[i].Lon + c.Pts[j].Lon) * (c.Pts[i].Lat - c.Pts[j].Lat)
	}
	return sum / 2
}

// IsClockwise reports whether the contour winds clockwise (positive area).
func (c Contour) IsClockwise() bool { return c.Area() > 0 }

// Reverse returns the contour with its vertex order reversed.
func (c Contour) Reverse() Contour {
	n := len(c.Pts)
	out := make([]geod.Geod, n)
	for i, p := range c.Pts {
		out[n-1-i] = p
	}
	return Contour{Pts: out, Hole: c.Hole}
}

// EnsureOrientation returns c reversed if needed so that IsClockwise() ==
// wantCW.
func (c Contour) EnsureOrientation(wantCW bool) Contour {
	if c.IsClockwise() != wantCW {
		return c.Reverse()
	}
	return c
}

// Bounds returns the axis-aligned bounding rectangle.
func (c Contour) Bounds() geod.Rectangle {
	r := geod.EmptyRectangle()
	for _, p := range c.Pts {
		r = r.Expand(p)
	}
	return r
}

// MinAngle returns the smallest interior angle of the contour, in degrees.
// A contour with fewer than 3 vertices has no interior angle and returns
// +Inf so callers treat it as "never the minimum".
func (c Contour) MinAngle() float64 {
	n := len(c.Pts)
	if n < 3 {
		return math.Inf(1)
	}
	min := math.Inf(1)
	for i := 0; i < n; i++ {
		prev := c.Pts[(i-1+n)%n]
		cur := c.Pts[i]
		next := c.Pts[(i+1)%n]
		a := interiorAngleDeg(prev, cur, next)
		if a < min {
			min = a
		}
	}
	return min
}

func interiorAngleDeg(prev, cur, next geod.Geod) float64 {
	v1x, v1y := prev.Lon-cur.Lon, prev.Lat-cur.Lat
	v2x, v2y := next.Lon-cur.Lon, next.Lat-cur.Lat
	l1 := math.Hypot(v1x, v1y)
	l2 := math.Hypot(v2x, v2y)
	if l1 == 0 || l2 == 0 {
		return 0
	}
	cosA := (v1x*v2x + v1y*v2y) / (l1 * l2)
	cosA = math.Max(-1, math.Min(1, cosA))
	return math.Acos(cosA) * 180 / math.Pi
}

// Snap rounds each coordinate to the nearest multiple of step degrees.
func (c Contour) Snap(step float64) Contour {
	out := make([]geod.Geod, len(c.Pts))
	for i, p := range c.Pts {
		out[i] = geod.Geod{
			Lon:  math.Round(p.Lon/step) * step,
			Lat:  math.Round(p.Lat/step) * step,
			Elev: p.Elev,
		}
	}
	return Contour{Pts: out, Hole: c.Hole}
}

// DefaultSnapStep is the spec's default snap grid, in degrees.
const DefaultSnapStep = 1e-7

// RemoveDups iteratively deletes one of each adjacent 2-D-equal pair,
// keeping the one with the higher elevation, until a full pass finds none.
// Idempotent.
func (c Contour) RemoveDups(eps float64) Contour {
	pts := append([]geod.Geod(nil), c.Pts...)
	for {
		changed := false
		out := make([]geod.Geod, 0, len(pts))
		n := len(pts)
		for i := 0; i < n; i++ {
			if len(out) > 0 {
				last := out[len(out)-1]
				if last.Equal2D(pts[i], eps) {
					if pts[i].Elev > last.Elev {
						out[len(out)-1] = pts[i]
					}
					changed = true
					continue
				}
			}
			out = append(out, pts[i])
		}
		// wrap-around pair
		if len(out) > 1 && out[0].Equal2D(out[len(out)-1], eps) {
			if out[len(out)-1].Elev > out[0].Elev {
				out[0] = out[len(out)-1]
			}
			out = out[:len(out)-1]
			changed = true
		}
		pts = out
		if !changed {
			break
		}
	}
	return Contour{Pts: pts, Hole: c.Hole}
}

// DefaultSpikeAngleDeg is the spec's spike-removal threshold.
const DefaultSpikeAngleDeg = 0.1

// RemoveSpikes iteratively deletes any vertex whose interior angle with its
// neighbours is below thresholdDeg, until none remain.
func (c Contour) RemoveSpikes(thresholdDeg float64) Contour {
	pts := append([]geod.Geod(nil), c.Pts...)
	for {
		n := len(pts)
		if n < 3 {
			break
		}
		removedAny := false
		out := make([]geod.Geod, 0, n)
		for i := 0; i < n; i++ {
			prev := pts[(i-1+n)%n]
			cur := pts[i]
			next := pts[(i+1)%n]
			if interiorAngleDeg(prev, cur, next) < thresholdDeg {
				removedAny = true
				continue
			}
			out = append(out, cur)
		}
		pts = out
		if !removedAny {
			break
		}
	}
	return Contour{Pts: pts, Hole: c.Hole}
}

// SplitLongEdges subdivides any edge longer than maxM metres into
// ceil(len/maxM) equal sub-edges in linear lon/lat space -- not geodesic,
// deliberately, to stay cheap (see DESIGN.md / spec §9 open questions).
// Edges touching a pole (|lat| > 90 - eps) are emitted untouched.
func (c Contour) SplitLongEdges(maxM float64) Contour {
	const poleEps = 1e-9
	n := len(c.Pts)
	if n < 2 {
		return c
	}
	out := make([]geod.Geod, 0, n)
	for i := 0; i < n; i++ {
		a := c.Pts[i]
		b := c.Pts[(i+1)%n]
		out = append(out, a)

		if math.Abs(a.Lat) > 90-poleEps || math.Abs(b.Lat) > 90-poleEps {
			continue
		}

		seg := geod.Segment{A: a, B: b}
		length := seg.LengthM()
		if length <= maxM {
			continue
		}
		parts := int(math.Ceil(length / maxM))
		for k := 1; k < parts; k++ {
			t := float64(k) / float64(parts)
			out = append(out, geod.Interpolate(a, b, t))
		}
	}
	return Contour{Pts: out, Hole: c.Hole}
}

// IsInside reports whether the intersection of a and b equals a -- i.e. a
// lies entirely within b. Implemented via "difference returns empty",
// which is the semantics spec §9 flags as not a rigorous point-in-polygon
// test; documented here rather than silently hardened.
func IsInside(a, b Contour) bool {
	diff, err := booleanOp(clipper.Difference, []Contour{a}, []Contour{b})
	if err != nil {
		return false
	}
	return len(diff) == 0
}

// RemoveCycles splits the contour at any non-adjacent pair of 2-D-equal
// vertices into two sub-contours, assigns hole flags by nesting test, and
// recurses on both. A piece lying inside the other takes the opposite of
// c's hole flag; disjoint pieces both keep c's flag. Degenerate results
// (fewer than 3 vertices, or area below epsSq) are discarded.
func (c Contour) RemoveCycles(eps, epsSq float64) []Contour {
	n := len(c.Pts)
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue // adjacent through the wrap
			}
			if !c.Pts[i].Equal2D(c.Pts[j], eps) {
				continue
			}
			first := Contour{Pts: append(append([]geod.Geod(nil), c.Pts[:i+1]...), c.Pts[j+1:]...), Hole: c.Hole}
			second := Contour{Pts: append([]geod.Geod(nil), c.Pts[i:j]...), Hole: c.Hole}
			if IsInside(second, first) {
				second.Hole = !c.Hole
			} else if IsInside(first, second) {
				first.Hole = !c.Hole
			}

			var out []Contour
			for _, piece := range []Contour{first, second} {
				if piece.Size() < 3 || math.Abs(piece.Area()) < epsSq {
					continue
				}
				out = append(out, piece.RemoveCycles(eps, epsSq)...)
			}
			return out
		}
	}
	if c.Size() < 3 || math.Abs(c.Area()) < epsSq {
		return nil
	}
	return []Contour{c}
}

// AddColinearNodes inserts, in order, every node from nodes that lies
// within both a bounding-box-epsilon band and a slope-error-epsilon
// distance of each edge's infinite line. This is the T-junction
// eliminator: run on every contour of every polygon meeting at a shared
// boundary, it makes their vertex sequences identical along that boundary.
//
// AddColinearNodes only inserts nodes; the output's edges are a refinement
// of the input's edges.
func (c Contour) AddColinearNodes(nodes []geod.Geod, bboxEps, slopeEps float64) Contour {
	n := len(c.Pts)
	if n < 2 {
		return c
	}
	out := make([]geod.Geod, 0, n)
	for i := 0; i < n; i++ {
		a := c.Pts[i]
		b := c.Pts[(i+1)%n]
		out = append(out, a)

		type hit struct {
			g geod.Geod
			t float64
		}
		var hits []hit
		seg := geod.Segment{A: a, B: b}
		band := seg.Bounds().Grow(bboxEps)

		for _, cand := range nodes {
			if cand.Equal2D(a, bboxEps) || cand.Equal2D(b, bboxEps) {
				continue
			}
			if !band.Contains(cand) {
				continue
			}
			proj := seg.ProjectPoint(cand)
			if !cand.Equal2D(proj, slopeEps) {
				continue
			}
			dx, dy := b.Lon-a.Lon, b.Lat-a.Lat
			lenSq := dx*dx + dy*dy
			if lenSq == 0 {
				continue
			}
			t := ((cand.Lon-a.Lon)*dx + (cand.Lat-a.Lat)*dy) / lenSq
			if t <= 0 || t >= 1 {
				continue
			}
			hits = append(hits, hit{g: cand, t: t})
		}

		sort.Slice(hits, func(i, j int) bool { return hits[i].t < hits[j].t })
		for _, h := range hits {
			out = append(out, h.g)
		}
	}
	return Contour{Pts: out, Hole: c.Hole}
}

// AddColinearNodes3D is the 3-D-preserving variant: newly inserted nodes
// are moved onto the exact contour line and their elevation is linearly
// interpolated from the edge endpoints. Per spec §9, this variant uses
// wider epsilons than the 2-D-preserving one; calibration is left as-is.
func (c Contour) AddColinearNodes3D(nodes []geod.Geod, bboxEps, slopeEps float64) (Contour, []geod.Geod) {
	n := len(c.Pts)
	if n < 2 {
		return c, nil
	}
	out := make([]geod.Geod, 0, n)
	var fixed []geod.Geod
	for i := 0; i < n; i++ {
		a := c.Pts[i]
		b := c.Pts[(i+1)%n]
		out = append(out, a)

		type hit struct {
			g geod.Geod
			t float64
		}
		var hits []hit
		seg := geod.Segment{A: a, B: b}
		band := seg.Bounds().Grow(bboxEps)

		for _, cand := range nodes {
			if cand.Equal2D(a, bboxEps) || cand.Equal2D(b, bboxEps) {
				continue
			}
			if !band.Contains(cand) {
				continue
			}
			proj := seg.ProjectPoint(cand)
			if !cand.Equal2D(proj, slopeEps) {
				continue
			}
			dx, dy := b.Lon-a.Lon, b.Lat-a.Lat
			lenSq := dx*dx + dy*dy
			if lenSq == 0 {
				continue
			}
			t := ((cand.Lon-a.Lon)*dx + (cand.Lat-a.Lat)*dy) / lenSq
			if t <= 0 || t >= 1 {
				continue
			}
			onLine := geod.Interpolate(a, b, t)
			hits = append(hits, hit{g: onLine, t: t})
		}

		sort.Slice(hits, func(i, j int) bool { return hits[i].t < hits[j].t })
		for _, h := range hits {
			out = append(out, h.g)
			fixed = append(fixed, h.g)
		}
	}
	return Contour{Pts: out, Hole: c.Hole}, fixed
}

// Expand performs a Minkowski-style offset of offsetM metres, using
// square joins and a closed-polygon end type. It asserts the result has
// exactly one contour; any other count is a fatal shape per spec §4.B.
func (c Contour) Expand(offsetM float64) (Contour, error) {
	center := c.Bounds()
	lat0 := (center.MinLat + center.MaxLat) / 2
	degPerMLat := 1 / 110574.0
	degPerMLon := 1 / (111320.0 * math.Max(math.Cos(lat0*math.Pi/180), 1e-6))
	offsetDegLat := offsetM * degPerMLat
	offsetDegLon := offsetM * degPerMLon
	offsetDeg := (offsetDegLat + offsetDegLon) / 2

	path := toClipperPath(c)
	off := clipper.NewClipperOffset(2.0, 0.25)
	off.AddPath(path, clipper.Square, clipper.ClosedPolygon)
	solution, err := off.Execute(offsetDeg * FixedPointFactor)
	if err != nil {
		return Contour{}, fmt.Errorf("contour expand: offset execute: %w", err)
	}
	if len(solution) != 1 {
		return Contour{}, fmt.Errorf("contour expand: offset produced %d contours, want exactly 1", len(solution))
	}
	return fromClipperPath(solution[0], c.Hole), nil
}

func toClipperPath(c Contour) clipper.Path64 {
	path := make(clipper.Path64, len(c.Pts))
	for i, p := range c.Pts {
		path[i] = clipper.Point64{
			X: int64(math.Round(p.Lon * FixedPointFactor)),
			Y: int64(math.Round(p.Lat * FixedPointFactor)),
		}
	}
	return path
}

func fromClipperPath(path clipper.Path64, hole bool) Contour {
	pts := make([]geod.Geod, len(path))
	for i, p := range path {
		pts[i] = geod.Geod{
			Lon: float64(p.X) / FixedPointFactor,
			Lat: float64(p.Y) / FixedPointFactor,
		}
	}
	return Contour{Pts: pts, Hole: hole}
}

// booleanOp is the clipper bridge used by IsInside here. The polygon
// package has its own equivalent (see internal/polygon/clip.go); this
// copy lets contour-level predicates avoid importing polygon.
func booleanOp(op clipper.ClipType, subjects, clips []Contour) ([]Contour, error) {
	subjPaths := make(clipper.Paths64, len(subjects))
	for i, s := range subjects {
		subjPaths[i] = toClipperPath(s.EnsureOrientation(false))
	}
	clipPaths := make(clipper.Paths64, len(clips))
	for i, cl := range clips {
		clipPaths[i] = toClipperPath(cl.EnsureOrientation(false))
	}

	solution, err := clipper.BooleanOp(op, clipper.EvenOdd, subjPaths, clipPaths)
	if err != nil {
		return nil, err
	}

	out := make([]Contour, len(solution))
	for i, p := range solution {
		out[i] = fromClipperPath(p, false)
	}
	return out, nil
}
