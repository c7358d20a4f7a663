package tiletask

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/tgconstruct/tgconstruct/internal/chopper"
	"github.com/tgconstruct/tgconstruct/internal/idgen"
	"github.com/tgconstruct/tgconstruct/internal/store"
)

func openTestStore(t *testing.T) *store.TileStore {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func squareFeature(x0, y0, side float64, areaType, material string) []byte {
	fc := map[string]interface{}{
		"type": "FeatureCollection",
		"features": []map[string]interface{}{
			{
				"type": "Feature",
				"properties": map[string]interface{}{
					"area_type": areaType,
					"material":  material,
				},
				"geometry": map[string]interface{}{
					"type": "Polygon",
					"coordinates": [][][2]float64{{
						{x0, y0}, {x0 + side, y0}, {x0 + side, y0 + side}, {x0, y0 + side}, {x0, y0},
					}},
				},
			},
		},
	}
	data, _ := json.Marshal(fc)
	return data
}

func classify(props map[string]interface{}) (string, string, float64, float64, string) {
	at, _ := props["area_type"].(string)
	mat, _ := props["material"].(string)
	return at, mat, 0, 0, ""
}

func TestDecodeAndChopFilesAndStampsIDs(t *testing.T) {
	c := chopper.New()
	ids := idgen.New(0)

	data := squareFeature(10.0, 45.0, 0.2, "natural", "grass")
	n, err := DecodeAndChop(c, ids, data, classify)
	if err != nil {
		t.Fatalf("DecodeAndChop failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 polygon filed, got %d", n)
	}
	if ids.Current() != 1 {
		t.Errorf("expected id counter to advance to 1, got %d", ids.Current())
	}

	buckets := c.Buckets()
	if len(buckets) == 0 {
		t.Fatal("expected at least 1 bucket")
	}
	if buckets[0].Polygons[0].ID != 1 {
		t.Errorf("expected stamped polygon id 1, got %d", buckets[0].Polygons[0].ID)
	}
}

func TestBuildTileProducesAndPersistsAMesh(t *testing.T) {
	c := chopper.New()
	ids := idgen.New(0)

	data := squareFeature(10.0, 45.0, 0.2, "natural", "grass")
	if _, err := DecodeAndChop(c, ids, data, classify); err != nil {
		t.Fatalf("DecodeAndChop failed: %v", err)
	}

	s := openTestStore(t)
	b, err := New(c, s, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	tile := chopper.TileIDFor(10.0, 45.0)
	if err := b.BuildTile(t.Context(), tile); err != nil {
		t.Fatalf("BuildTile failed: %v", err)
	}

	sub := chopper.SubTileIDFor(10.0, 45.0)
	var nodeCount int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM mesh_nodes WHERE tile_id = ?", sub.String()).Scan(&nodeCount); err != nil {
		t.Fatalf("query mesh_nodes: %v", err)
	}
	if nodeCount == 0 {
		t.Error("expected mesh_nodes rows to be written for the built sub-tile")
	}
}

func TestBuildTileWithNoBucketsIsANoOp(t *testing.T) {
	c := chopper.New()
	s := openTestStore(t)
	b, err := New(c, s, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := b.BuildTile(t.Context(), chopper.TileID{Lon: 5, Lat: 5}); err != nil {
		t.Fatalf("expected nil error for an empty tile, got %v", err)
	}
}
