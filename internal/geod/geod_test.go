package geod

import (
	"math"
	"testing"
)

func TestEqual2D(t *testing.T) {
	a := Geod{Lon: 1.0, Lat: 2.0}
	b := Geod{Lon: 1.0 + 1e-10, Lat: 2.0 - 1e-10}
	if !a.Equal2D(b, DefaultEpsilon) {
		t.Errorf("expected %v and %v to be 2-D equal within %g", a, b, DefaultEpsilon)
	}
	c := Geod{Lon: 1.001, Lat: 2.0}
	if a.Equal2D(c, DefaultEpsilon) {
		t.Errorf("expected %v and %v not to be 2-D equal", a, c)
	}
}

func TestInverseForwardRoundTrip(t *testing.T) {
	a := Geod{Lon: -122.4194, Lat: 37.7749}
	b := Geod{Lon: -73.9857, Lat: 40.7484}

	dist, az1, _ := Inverse(a, b)
	if dist < 4e6 || dist > 4.2e6 {
		t.Fatalf("SF-NYC distance out of expected range: got %f m", dist)
	}

	got := Forward(a, az1, dist)
	gotDist, _, _ := Inverse(got, b)
	if gotDist > 1.0 {
		t.Errorf("forward(inverse(a,b)) did not return to b: residual %f m", gotDist)
	}
}

func TestInverseZeroDistance(t *testing.T) {
	a := Geod{Lon: 10, Lat: 20}
	dist, az1, az2 := Inverse(a, a)
	if dist != 0 || az1 != 0 || az2 != 0 {
		t.Errorf("Inverse(a,a) = (%f,%f,%f), want zeros", dist, az1, az2)
	}
}

func TestMidpoint(t *testing.T) {
	a := Geod{Lon: 0, Lat: 0}
	b := Geod{Lon: 0, Lat: 1}
	m := Midpoint(a, b)
	if math.Abs(m.Lon) > 1e-6 {
		t.Errorf("expected midpoint longitude near 0, got %f", m.Lon)
	}
	if math.Abs(m.Lat-0.5) > 1e-3 {
		t.Errorf("expected midpoint latitude near 0.5, got %f", m.Lat)
	}
}

func TestSegmentIntersectCrossing(t *testing.T) {
	s1 := Segment{A: Geod{Lon: 0, Lat: 0}, B: Geod{Lon: 2, Lat: 2}}
	s2 := Segment{A: Geod{Lon: 0, Lat: 2}, B: Geod{Lon: 2, Lat: 0}}

	pt, kind := s1.Intersect(s2, DefaultEpsilon)
	if kind != Crossing {
		t.Fatalf("expected Crossing, got %v", kind)
	}
	if math.Abs(pt.Lon-1) > 1e-9 || math.Abs(pt.Lat-1) > 1e-9 {
		t.Errorf("expected intersection at (1,1), got %v", pt)
	}
}

func TestSegmentIntersectTouching(t *testing.T) {
	s1 := Segment{A: Geod{Lon: 0, Lat: 0}, B: Geod{Lon: 1, Lat: 0}}
	s2 := Segment{A: Geod{Lon: 0, Lat: 0}, B: Geod{Lon: 0, Lat: 1}}

	_, kind := s1.Intersect(s2, DefaultEpsilon)
	if kind != Touching {
		t.Fatalf("expected Touching, got %v", kind)
	}
}

func TestSegmentIntersectColinearOverlap(t *testing.T) {
	s1 := Segment{A: Geod{Lon: 0, Lat: 0}, B: Geod{Lon: 2, Lat: 0}}
	s2 := Segment{A: Geod{Lon: 1, Lat: 0}, B: Geod{Lon: 3, Lat: 0}}

	_, kind := s1.Intersect(s2, DefaultEpsilon)
	if kind != ColinearOverlapping {
		t.Fatalf("expected ColinearOverlapping, got %v", kind)
	}
}

func TestSegmentIntersectParallelNoOverlap(t *testing.T) {
	s1 := Segment{A: Geod{Lon: 0, Lat: 0}, B: Geod{Lon: 1, Lat: 0}}
	s2 := Segment{A: Geod{Lon: 0, Lat: 1}, B: Geod{Lon: 1, Lat: 1}}

	_, kind := s1.Intersect(s2, DefaultEpsilon)
	if kind != NoIntersection {
		t.Fatalf("expected NoIntersection, got %v", kind)
	}
}

func TestRectangleIntersect(t *testing.T) {
	r1 := Rectangle{MinLon: 0, MinLat: 0, MaxLon: 2, MaxLat: 2}
	r2 := Rectangle{MinLon: 1, MinLat: 1, MaxLon: 3, MaxLat: 3}

	got, ok := r1.Intersect(r2)
	if !ok {
		t.Fatal("expected rectangles to intersect")
	}
	want := Rectangle{MinLon: 1, MinLat: 1, MaxLon: 2, MaxLat: 2}
	if got != want {
		t.Errorf("Intersect() = %+v, want %+v", got, want)
	}
}

func TestSegmentIntersectRect(t *testing.T) {
	s := Segment{A: Geod{Lon: -1, Lat: 0.5}, B: Geod{Lon: 3, Lat: 0.5}}
	r := Rectangle{MinLon: 0, MinLat: 0, MaxLon: 2, MaxLat: 1}

	a, b, ok := s.IntersectRect(r)
	if !ok {
		t.Fatal("expected segment to intersect rectangle")
	}
	if math.Abs(a.Lon-0) > 1e-9 || math.Abs(b.Lon-2) > 1e-9 {
		t.Errorf("clipped segment = (%v, %v), want Lon 0..2", a, b)
	}
}
