package nodeset

import (
	"testing"

	"github.com/tgconstruct/tgconstruct/internal/geod"
)

func TestInsertDeduplicatesWithinEpsilon(t *testing.T) {
	ns := New(geod.DefaultEpsilon)

	id1 := ns.Insert(geod.Geod{Lon: 1, Lat: 2})
	id2 := ns.Insert(geod.Geod{Lon: 1 + 1e-10, Lat: 2 - 1e-10})

	if id1 != id2 {
		t.Fatalf("expected same id for near-duplicate points, got %d and %d", id1, id2)
	}
	if ns.Len() != 1 {
		t.Fatalf("expected 1 stored node, got %d", ns.Len())
	}
}

func TestInsertDistinctPointsGetDistinctIDs(t *testing.T) {
	ns := New(geod.DefaultEpsilon)

	id1 := ns.Insert(geod.Geod{Lon: 0, Lat: 0})
	id2 := ns.Insert(geod.Geod{Lon: 1, Lat: 1})

	if id1 == id2 {
		t.Fatalf("expected distinct ids, got %d for both", id1)
	}
	if ns.Len() != 2 {
		t.Fatalf("expected 2 stored nodes, got %d", ns.Len())
	}
}

func TestLookupReturnsFirstInserted(t *testing.T) {
	ns := New(1e-6)

	first := geod.Geod{Lon: 5, Lat: 5, Elev: 100}
	id := ns.Insert(first)
	ns.Insert(geod.Geod{Lon: 5 + 1e-8, Lat: 5, Elev: 200})

	got := ns.Lookup(id)
	if got.Elev != 100 {
		t.Errorf("expected first-inserted node to win, got elev %f", got.Elev)
	}
}

func TestSetElevationMarksFixed(t *testing.T) {
	ns := New(geod.DefaultEpsilon)
	id := ns.Insert(geod.Geod{Lon: 0, Lat: 0})

	ns.SetElevation(id, 42)

	if ns.Lookup(id).Elev != 42 {
		t.Errorf("expected elevation 42, got %f", ns.Lookup(id).Elev)
	}
	if !ns.Flags(id).FixedElevation {
		t.Error("expected FixedElevation flag to be set")
	}
}

func TestQueryBox(t *testing.T) {
	ns := New(geod.DefaultEpsilon)
	inBox := ns.Insert(geod.Geod{Lon: 0.5, Lat: 0.5})
	ns.Insert(geod.Geod{Lon: 10, Lat: 10})

	ids := ns.QueryBox(geod.Rectangle{MinLon: 0, MinLat: 0, MaxLon: 1, MaxLat: 1})

	found := false
	for _, id := range ids {
		if id == inBox {
			found = true
		}
		if id != inBox && ns.Lookup(id).Lon > 1 {
			t.Errorf("QueryBox returned node outside the query box: %v", ns.Lookup(id))
		}
	}
	if !found {
		t.Error("expected the in-box node to be returned by QueryBox")
	}
}

func TestFunctionAndInjective(t *testing.T) {
	ns := New(geod.DefaultEpsilon)
	pts := []geod.Geod{
		{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}, {Lon: 0, Lat: 1}, {Lon: -1, Lat: -1},
	}
	ids := make(map[int]geod.Geod)
	for _, p := range pts {
		id := ns.Insert(p)
		if other, ok := ids[id]; ok && !other.Equal2D(p, geod.DefaultEpsilon) {
			t.Errorf("same id %d assigned to distinct points %v and %v", id, other, p)
		}
		ids[id] = p
	}
	// re-inserting must yield the same ids (function property)
	for i, p := range pts {
		id := ns.Insert(p)
		if ns.Lookup(id).Lon != pts[i].Lon || ns.Lookup(id).Lat != pts[i].Lat {
			t.Errorf("re-insert of %v changed identity", p)
		}
	}
}
