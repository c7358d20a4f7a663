package contour

import (
	"math"
	"testing"

	"github.com/tgconstruct/tgconstruct/internal/geod"
)

func square(side float64) Contour {
	return New([]geod.Geod{
		{Lon: 0, Lat: 0},
		{Lon: side, Lat: 0},
		{Lon: side, Lat: side},
		{Lon: 0, Lat: side},
	}, false)
}

func TestAreaAndWinding(t *testing.T) {
	ccw := square(1)
	if ccw.IsClockwise() {
		t.Errorf("expected (0,0)->(1,0)->(1,1)->(0,1) to be counter-clockwise (negative area) in this area convention")
	}
	cw := ccw.Reverse()
	if !cw.IsClockwise() {
		t.Error("expected reversed square to be clockwise")
	}
	if math.Abs(math.Abs(ccw.Area())-1) > 1e-9 {
		t.Errorf("expected unit area, got %f", ccw.Area())
	}
}

func TestEnsureOrientation(t *testing.T) {
	sq := square(1)
	ccw := sq.EnsureOrientation(false)
	if ccw.IsClockwise() {
		t.Error("expected EnsureOrientation(false) to yield CCW")
	}
	backToCW := ccw.EnsureOrientation(true)
	if !backToCW.IsClockwise() {
		t.Error("expected EnsureOrientation(true) to yield CW")
	}
}

func TestRemoveDupsIsIdempotent(t *testing.T) {
	c := New([]geod.Geod{
		{Lon: 0, Lat: 0},
		{Lon: 0 + 1e-12, Lat: 0},
		{Lon: 1, Lat: 0},
		{Lon: 1, Lat: 1},
	}, false)
	once := c.RemoveDups(geod.DefaultEpsilon)
	twice := once.RemoveDups(geod.DefaultEpsilon)
	if len(once.Pts) != len(twice.Pts) {
		t.Fatalf("RemoveDups not idempotent: %d vs %d points", len(once.Pts), len(twice.Pts))
	}
	if len(once.Pts) != 3 {
		t.Errorf("expected 3 points after dedup, got %d", len(once.Pts))
	}
}

func TestRemoveSpikesDropsNarrowAngle(t *testing.T) {
	c := New([]geod.Geod{
		{Lon: 0, Lat: 0},
		{Lon: 1, Lat: 0},
		{Lon: 1.5, Lat: 0.0002}, // spike tip: about 0.05 deg between its two edges
		{Lon: 1, Lat: 0.0004},
		{Lon: 1, Lat: 1},
		{Lon: 0, Lat: 1},
	}, false)
	out := c.RemoveSpikes(DefaultSpikeAngleDeg)
	for _, p := range out.Pts {
		if p.Lon == 1.5 {
			t.Error("expected spike vertex to be removed")
		}
	}
}

func TestSplitLongEdgesSubdivides(t *testing.T) {
	c := New([]geod.Geod{
		{Lon: 0, Lat: 0},
		{Lon: 1, Lat: 0},
		{Lon: 1, Lat: 1},
		{Lon: 0, Lat: 1},
	}, false)
	out := c.SplitLongEdges(1000) // 1km -- much shorter than ~111km edges
	if len(out.Pts) <= len(c.Pts) {
		t.Errorf("expected subdivision to add points, got %d (started with %d)", len(out.Pts), len(c.Pts))
	}
}

func TestSplitLongEdgesNoOpBelowThreshold(t *testing.T) {
	c := square(0.0001) // tiny square, edges well under 1km
	out := c.SplitLongEdges(1000)
	if len(out.Pts) != len(c.Pts) {
		t.Errorf("expected no subdivision for short edges, got %d points from %d", len(out.Pts), len(c.Pts))
	}
}

func TestMinAngleOfSquareIsNinety(t *testing.T) {
	c := square(1)
	if math.Abs(c.MinAngle()-90) > 1e-6 {
		t.Errorf("expected 90 degree corners, got %f", c.MinAngle())
	}
}

func TestIsInsideSmallerSquareWithinLarger(t *testing.T) {
	inner := New([]geod.Geod{
		{Lon: 0.25, Lat: 0.25}, {Lon: 0.75, Lat: 0.25}, {Lon: 0.75, Lat: 0.75}, {Lon: 0.25, Lat: 0.75},
	}, false)
	outer := square(1)
	if !IsInside(inner, outer) {
		t.Error("expected inner square to be inside outer square")
	}
	if IsInside(outer, inner) {
		t.Error("expected outer square not to be inside inner square")
	}
}

func TestRemoveCyclesSplitsFigureEight(t *testing.T) {
	// A figure-eight: vertex 2 and vertex 5 coincide (self-touching).
	shared := geod.Geod{Lon: 1, Lat: 1}
	c := New([]geod.Geod{
		{Lon: 0, Lat: 0},
		{Lon: 2, Lat: 0},
		shared,
		{Lon: 2, Lat: 2},
		{Lon: 0, Lat: 2},
		shared,
	}, false)
	pieces := c.RemoveCycles(geod.DefaultEpsilon, 1e-6)
	if len(pieces) == 0 {
		t.Fatal("expected at least one simple piece out of the figure-eight")
	}
	for _, p := range pieces {
		if p.Size() < 3 {
			t.Errorf("piece too small to be a polygon: %d points", p.Size())
		}
	}
}

func TestAddColinearNodesInsertsMidEdgeNode(t *testing.T) {
	c := square(2)
	mid := geod.Geod{Lon: 1, Lat: 0} // lies on the bottom edge (0,0)->(2,0)
	out := c.AddColinearNodes([]geod.Geod{mid}, 1e-6, 1e-6)
	found := false
	for _, p := range out.Pts {
		if p.Equal2D(mid, 1e-9) {
			found = true
		}
	}
	if !found {
		t.Error("expected colinear node to be inserted")
	}
	if len(out.Pts) != len(c.Pts)+1 {
		t.Errorf("expected exactly one extra point, got %d vs %d", len(out.Pts), len(c.Pts))
	}
}

func TestAddColinearNodesIgnoresOffLinePoint(t *testing.T) {
	c := square(2)
	off := geod.Geod{Lon: 1, Lat: 0.5}
	out := c.AddColinearNodes([]geod.Geod{off}, 1e-6, 1e-6)
	if len(out.Pts) != len(c.Pts) {
		t.Errorf("expected off-line point to be ignored, got %d points", len(out.Pts))
	}
}

func TestExpandGrowsSquare(t *testing.T) {
	c := square(0.01) // small enough that a 10m offset is a meaningful fraction
	grown, err := c.Expand(10)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if math.Abs(grown.Area()) <= math.Abs(c.Area()) {
		t.Errorf("expected expanded contour to have larger area: got %f vs %f", grown.Area(), c.Area())
	}
}

func TestSnapRoundsToGrid(t *testing.T) {
	c := New([]geod.Geod{{Lon: 0.00000012, Lat: 0.99999991}}, false)
	out := c.Snap(1e-7)
	if math.Abs(out.Pts[0].Lon-1e-7) > 1e-12 {
		t.Errorf("expected snap to round to 1e-7, got %v", out.Pts[0].Lon)
	}
}
