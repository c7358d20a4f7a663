package geod

import "math"

// Segment is an ordered pair of geodetic points.
type Segment struct {
	A, B Geod
}

// LengthM returns the WGS-84 inverse-geodesic length of the segment, in
// metres.
func (s Segment) LengthM() float64 {
	d, _, _ := Inverse(s.A, s.B)
	return d
}

// Bounds returns the segment's axis-aligned bounding rectangle.
func (s Segment) Bounds() Rectangle {
	return EmptyRectangle().Expand(s.A).Expand(s.B)
}

// ProjectPoint projects p onto the infinite line through s.A, s.B, in planar
// lon/lat space (consistent with the rest of the short-edge arithmetic in
// this package -- see SplitLongEdges in internal/contour).
func (s Segment) ProjectPoint(p Geod) Geod {
	dx, dy := s.B.Lon-s.A.Lon, s.B.Lat-s.A.Lat
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return s.A
	}
	t := ((p.Lon-s.A.Lon)*dx + (p.Lat-s.A.Lat)*dy) / lenSq
	return Geod{
		Lon:  s.A.Lon + t*dx,
		Lat:  s.A.Lat + t*dy,
		Elev: s.A.Elev + t*(s.B.Elev-s.A.Elev),
	}
}

// IntersectKind classifies the result of a segment-segment intersection
// test.
type IntersectKind int

const (
	// NoIntersection means the segments neither touch nor cross.
	NoIntersection IntersectKind = iota
	// Touching means the segments share an endpoint within 2-D epsilon.
	Touching
	// Crossing means the proper interiors of the segments intersect.
	Crossing
	// ColinearOverlapping means the segments are parallel and their
	// projections onto their shared line overlap by more than epsilon.
	ColinearOverlapping
)

// Intersect computes the intersection of s and o in planar lon/lat space,
// classifying the result per IntersectKind. At most one point is returned;
// colinear-overlapping segments return the midpoint of the overlap.
func (s Segment) Intersect(o Segment, eps float64) (Geod, IntersectKind) {
	// Shared-endpoint check first: cheap and avoids numerical near-misses
	// from the determinant test below being classified as "crossing".
	for _, sp := range [2]Geod{s.A, s.B} {
		for _, op := range [2]Geod{o.A, o.B} {
			if sp.Equal2D(op, eps) {
				return sp, Touching
			}
		}
	}

	p := s.A
	r := Geod{Lon: s.B.Lon - s.A.Lon, Lat: s.B.Lat - s.A.Lat}
	q := o.A
	rq := Geod{Lon: o.B.Lon - o.A.Lon, Lat: o.B.Lat - o.A.Lat}

	rxs := cross(r, rq)
	qmp := Geod{Lon: q.Lon - p.Lon, Lat: q.Lat - p.Lat}
	qpxr := cross(qmp, r)

	if math.Abs(rxs) < eps*eps {
		if math.Abs(qpxr) > eps*eps {
			return Geod{}, NoIntersection // parallel, non-colinear
		}
		// Colinear: project onto the dominant axis and test for overlap.
		rr := r.Lon*r.Lon + r.Lat*r.Lat
		if rr == 0 {
			return Geod{}, NoIntersection
		}
		t0 := (qmp.Lon*r.Lon + qmp.Lat*r.Lat) / rr
		t1 := t0 + (rq.Lon*r.Lon+rq.Lat*r.Lat)/rr
		lo, hi := t0, t1
		if lo > hi {
			lo, hi = hi, lo
		}
		overlapLo, overlapHi := math.Max(lo, 0), math.Min(hi, 1)
		if overlapHi-overlapLo > eps {
			mid := (overlapLo + overlapHi) / 2
			return Geod{Lon: p.Lon + mid*r.Lon, Lat: p.Lat + mid*r.Lat}, ColinearOverlapping
		}
		return Geod{}, NoIntersection
	}

	t := cross(qmp, rq) / rxs
	u := qpxr / rxs
	if t < -eps || t > 1+eps || u < -eps || u > 1+eps {
		return Geod{}, NoIntersection
	}
	pt := Geod{Lon: p.Lon + t*r.Lon, Lat: p.Lat + t*r.Lat, Elev: p.Elev + t*(s.B.Elev-p.Elev)}
	return pt, Crossing
}

// cross returns the 2-D cross product of vectors a and b, each expressed as
// (Lon, Lat) components.
func cross(a, b Geod) float64 {
	return a.Lon*b.Lat - a.Lat*b.Lon
}

// IntersectRect clips s against the axis-aligned rectangle r using the
// Liang-Barsky algorithm, returning the clipped sub-segment endpoints and
// whether any part of s lies within r.
func (s Segment) IntersectRect(r Rectangle) (Geod, Geod, bool) {
	dx := s.B.Lon - s.A.Lon
	dy := s.B.Lat - s.A.Lat
	t0, t1 := 0.0, 1.0

	clip := func(p, q float64) bool {
		if p == 0 {
			return q >= 0
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return false
			}
			if t > t0 {
				t0 = t
			}
		} else {
			if t < t0 {
				return false
			}
			if t < t1 {
				t1 = t
			}
		}
		return true
	}

	if !clip(-dx, s.A.Lon-r.MinLon) || !clip(dx, r.MaxLon-s.A.Lon) ||
		!clip(-dy, s.A.Lat-r.MinLat) || !clip(dy, r.MaxLat-s.A.Lat) {
		return Geod{}, Geod{}, false
	}

	a := Geod{Lon: s.A.Lon + t0*dx, Lat: s.A.Lat + t0*dy, Elev: s.A.Elev}
	b := Geod{Lon: s.A.Lon + t1*dx, Lat: s.A.Lat + t1*dy, Elev: s.B.Elev}
	return a, b, true
}
