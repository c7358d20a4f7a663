package landclass

import (
	"math"
	"testing"

	"github.com/tgconstruct/tgconstruct/internal/contour"
	"github.com/tgconstruct/tgconstruct/internal/geod"
	"github.com/tgconstruct/tgconstruct/internal/polygon"
)

func squarePoly(x0, y0, side float64, material string) polygon.Polygon {
	c := contour.New([]geod.Geod{
		{Lon: x0, Lat: y0},
		{Lon: x0 + side, Lat: y0},
		{Lon: x0 + side, Lat: y0 + side},
		{Lon: x0, Lat: y0 + side},
	}, false)
	return polygon.New(c, nil, material)
}

func flatElevation(_ geod.Geod) float64 { return 0 }

func TestIngestHigherPriorityOccludesLower(t *testing.T) {
	lb := New(1e-9, nil)
	lb.Ingest([]IncomingPolygon{
		{Poly: squarePoly(0, 0, 2, "water"), AreaType: AreaWater},
		{Poly: squarePoly(0, 0, 2, "grass"), AreaType: AreaNatural},
	})

	if len(lb.kept[AreaWater]) != 1 {
		t.Fatalf("expected water polygon to survive untouched, got %d", len(lb.kept[AreaWater]))
	}
	if len(lb.kept[AreaNatural]) != 0 {
		t.Fatalf("expected the fully-occluded natural polygon to be dropped, got %d kept", len(lb.kept[AreaNatural]))
	}
}

func TestIngestLowerPriorityKeepsResidual(t *testing.T) {
	lb := New(1e-9, nil)
	lb.Ingest([]IncomingPolygon{
		{Poly: squarePoly(0, 0, 2, "water"), AreaType: AreaWater},
		{Poly: squarePoly(0, 0, 4, "grass"), AreaType: AreaNatural},
	})

	if len(lb.kept[AreaNatural]) != 1 {
		t.Fatalf("expected an L-shaped residual to survive, got %d", len(lb.kept[AreaNatural]))
	}
	residualArea := lb.kept[AreaNatural][0].Area()
	if math.Abs(math.Abs(residualArea)-(16-4)) > 1e-6 {
		t.Errorf("expected residual area 12, got %f", residualArea)
	}
}

func TestFinishProducesTriangulatedNormalizedMesh(t *testing.T) {
	lb := New(1e-9, nil)
	lb.Ingest([]IncomingPolygon{
		{Poly: squarePoly(0, 0, 10, "grass"), AreaType: AreaNatural},
	})

	mesh := lb.Finish(flatElevation)

	if len(mesh.Polygons[AreaNatural]) != 1 {
		t.Fatalf("expected one kept natural polygon, got %d", len(mesh.Polygons[AreaNatural]))
	}
	p := mesh.Polygons[AreaNatural][0]
	if p.Tri == nil || len(p.Tri.Triangles) == 0 {
		t.Fatal("expected the polygon to carry a non-empty triangulation")
	}

	if len(mesh.VertexNormals) == 0 {
		t.Fatal("expected computed vertex normals")
	}
	for id, n := range mesh.VertexNormals {
		length := n[0]*n[0] + n[1]*n[1] + n[2]*n[2]
		if length < 0.99 || length > 1.01 {
			t.Errorf("normal at node %d is not unit length: %v", id, n)
		}
	}
}

func TestRunwayPolygonIngestedAsUrbanPriority(t *testing.T) {
	// SPEC_FULL.md EXPANSION 4.J: a synthetic runway footprint ingests
	// like any other urban-priority polygon, behind water/roads.
	lb := New(1e-9, nil)
	runway := squarePoly(100, 100, 0.01, "pa_tarmac")
	lb.Ingest([]IncomingPolygon{
		{Poly: runway, AreaType: AreaUrban},
	})

	if len(lb.kept[AreaUrban]) != 1 {
		t.Fatalf("expected the runway polygon to be kept, got %d", len(lb.kept[AreaUrban]))
	}
	if lb.kept[AreaUrban][0].Material != "pa_tarmac" {
		t.Errorf("expected material to survive canonify, got %q", lb.kept[AreaUrban][0].Material)
	}
}

func TestDroppedBadContourDoesNotPanic(t *testing.T) {
	lb := New(1e-9, nil)
	degenerate := polygon.New(contour.New([]geod.Geod{
		{Lon: 0, Lat: 0},
		{Lon: 1e-12, Lat: 0},
	}, false), nil, "sliver")

	lb.Ingest([]IncomingPolygon{{Poly: degenerate, AreaType: AreaDefault}})

	if len(lb.kept[AreaDefault]) != 0 {
		t.Errorf("expected the degenerate polygon to be dropped, got %d kept", len(lb.kept[AreaDefault]))
	}
	if len(lb.Dropped()) == 0 {
		t.Error("expected a dropped-polygon diagnostic to be recorded")
	}
}
