package chopper

import (
	"testing"

	"github.com/tgconstruct/tgconstruct/internal/contour"
	"github.com/tgconstruct/tgconstruct/internal/geod"
	"github.com/tgconstruct/tgconstruct/internal/polygon"
)

func TestTileIDForFloorsTowardSouthWest(t *testing.T) {
	got := TileIDFor(-122.3, 37.8)
	want := TileID{Lon: -123, Lat: 37}
	if got != want {
		t.Errorf("TileIDFor(-122.3, 37.8) = %+v, want %+v", got, want)
	}
}

func TestSubTileIDForWithinTile(t *testing.T) {
	got := SubTileIDFor(-122.3, 37.8)
	if got.Tile != (TileID{Lon: -123, Lat: 37}) {
		t.Errorf("unexpected tile: %+v", got.Tile)
	}
	if got.SubLon < 0 || got.SubLon >= subCellsPerSide || got.SubLat < 0 || got.SubLat >= subCellsPerSide {
		t.Errorf("sub-cell index out of range: %+v", got)
	}
}

func TestTileIDStringFormat(t *testing.T) {
	got := TileID{Lon: -122, Lat: 37}.String()
	if got != "w122n37" {
		t.Errorf("TileID.String() = %q, want %q", got, "w122n37")
	}
}

func squarePoly(x0, y0, side float64) polygon.Polygon {
	c := contour.New([]geod.Geod{
		{Lon: x0, Lat: y0},
		{Lon: x0 + side, Lat: y0},
		{Lon: x0 + side, Lat: y0 + side},
		{Lon: x0, Lat: y0 + side},
	}, false)
	return polygon.New(c, nil, "grass")
}

func TestAddSplitsAcrossFourSubCells(t *testing.T) {
	// spec §8 scenario 6: a polygon straddling the 0.125 sub-grid boundary
	// splits into the covering sub-cells. Centered on a 0.125 boundary, a
	// small square straddles exactly 4 sub-cells.
	c := New()
	p := squarePoly(-0.05, -0.05, 0.1) // straddles (0,0): one 0.125 corner
	if err := c.Add(p, "grass"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	buckets := c.Buckets()
	if len(buckets) != 4 {
		t.Fatalf("expected 4 buckets, one per covering sub-cell, got %d", len(buckets))
	}
	for _, b := range buckets {
		if b.AreaType != "grass" {
			t.Errorf("unexpected area type %q", b.AreaType)
		}
		for _, poly := range b.Polygons {
			if poly.Boundary().Size() < 3 {
				t.Error("filed a degenerate residue with fewer than 3 vertices")
			}
		}
	}
}

func TestAddWhollyInsideOneSubCellFilesOneBucket(t *testing.T) {
	c := New()
	p := squarePoly(0.01, 0.01, 0.01) // small square, well within sub-cell (0,0)
	if err := c.Add(p, "urban"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if len(c.Buckets()) != 1 {
		t.Errorf("expected exactly 1 bucket, got %d", len(c.Buckets()))
	}
}

// staplePoly returns a non-convex "staple" polygon: a 4x4 square with a
// 2-wide, 3-tall rectangular notch removed from its top middle, leaving
// two disjoint legs when clipped to a band through the notch.
func staplePoly(x0, y0 float64) polygon.Polygon {
	c := contour.New([]geod.Geod{
		{Lon: x0 + 0, Lat: y0 + 0},
		{Lon: x0 + 4, Lat: y0 + 0},
		{Lon: x0 + 4, Lat: y0 + 4},
		{Lon: x0 + 3, Lat: y0 + 4},
		{Lon: x0 + 3, Lat: y0 + 1},
		{Lon: x0 + 1, Lat: y0 + 1},
		{Lon: x0 + 1, Lat: y0 + 4},
		{Lon: x0 + 0, Lat: y0 + 4},
	}, false)
	return polygon.New(c, nil, "grass")
}

func TestClipToRectKeepsEveryDisjointPiece(t *testing.T) {
	// Clipping a non-convex polygon against a single rectangle can
	// legitimately produce more than one piece (here, the staple's two
	// legs once the notch is clipped through); both must come back.
	p := staplePoly(0, 0)
	band := geod.Rectangle{MinLon: -1, MinLat: 1.5, MaxLon: 5, MaxLat: 2.5}

	pieces, err := clipToRect(p, band)
	if err != nil {
		t.Fatalf("clipToRect failed: %v", err)
	}
	if len(pieces) != 2 {
		t.Fatalf("expected 2 disjoint pieces, got %d", len(pieces))
	}

	var total float64
	for _, piece := range pieces {
		total += piece.Area()
		if piece.Material != "grass" {
			t.Errorf("expected material to carry over, got %q", piece.Material)
		}
	}
	if total < 1.9 || total > 2.1 {
		t.Errorf("expected combined piece area ~2 (two 1x1 legs), got %f", total)
	}
}

func TestLookupReturnsNilForUnfiledBucket(t *testing.T) {
	c := New()
	sub := SubTileIDFor(50, 50)
	if b := c.Lookup(sub, "water"); b != nil {
		t.Error("expected nil for a never-filed bucket")
	}
}
