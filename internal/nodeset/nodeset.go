// Package nodeset implements the content-addressed UniqueNodeSet: a mapping
// from canonical Geod to stable integer id, used to drive T-junction
// elimination and mesh indexing for a single tile.
//
// Two query shapes are needed and are backed by two different indexes
// borrowed from the example pack: an epsilon-tolerant "is this point
// already here" lookup, backed by an s2.PointIndex nearest-neighbour
// search, and a bounding-box band query ("which nodes fall near this
// line/within this box"), backed by an rtreego R-tree.
package nodeset

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"github.com/tgconstruct/tgconstruct/internal/geod"
)

// Flags are per-node booleans consulted by elevation interpolation and by
// AddColinearNodes's 3-D-preserving variant.
type Flags struct {
	FixedElevation      bool
	OnBoundary          bool
	OnInteriorOfContour bool
}

// UniqueNodeSet assigns stable integer ids to Geods within an epsilon
// tolerance. It is the authority for node identity within one tile's
// lifetime and is never shared across tiles.
type UniqueNodeSet struct {
	eps   float64
	nodes []geod.Geod
	flags []Flags

	s2idx *s2.PointIndex
	rt    *rtreego.Rtree
}

// rtreePoint is the rtreego.Spatial adapter for a single stored node.
type rtreePoint struct {
	id     int
	bounds rtreego.Rect
}

func (p *rtreePoint) Bounds() rtreego.Rect { return p.bounds }

// New creates an empty node set with the given 2-D equality tolerance, in
// degrees.
func New(eps float64) *UniqueNodeSet {
	return &UniqueNodeSet{
		eps:   eps,
		s2idx: s2.NewPointIndex(),
		rt:    rtreego.NewTree(2, 25, 50),
	}
}

// Len returns the number of distinct nodes stored.
func (ns *UniqueNodeSet) Len() int { return len(ns.nodes) }

// Insert returns the id of an existing node within epsilon of g, or
// allocates and returns a new id. The first Geod inserted at a given
// location is the one later returned by Lookup -- "first inserted wins".
func (ns *UniqueNodeSet) Insert(g geod.Geod) int {
	if id, ok := ns.find(g); ok {
		return id
	}

	id := len(ns.nodes)
	ns.nodes = append(ns.nodes, g)
	ns.flags = append(ns.flags, Flags{})

	pt := s2.PointFromLatLng(s2.LatLngFromDegrees(g.Lat, g.Lon))
	ns.s2idx.Add(pt, id)

	rect, err := rtreego.NewRect(rtreego.Point{g.Lon, g.Lat}, []float64{1e-12, 1e-12})
	if err == nil {
		ns.rt.Insert(&rtreePoint{id: id, bounds: rect})
	}

	return id
}

// find performs the epsilon-tolerant nearest-point search.
func (ns *UniqueNodeSet) find(g geod.Geod) (int, bool) {
	if ns.s2idx.NumPoints() == 0 {
		return 0, false
	}

	pt := s2.PointFromLatLng(s2.LatLngFromDegrees(g.Lat, g.Lon))
	target := s2.NewMinDistanceToPointTarget(pt)

	// Epsilon is a 2-D box tolerance, not an arc-length radius; search out
	// to the box's diagonal so the chord-angle search radius never rejects
	// a match the box-based Equal2D definition would have accepted.
	radius := s1.Angle(ns.eps * math.Sqrt2 * math.Pi / 180)
	opts := s2.NewClosestPointQueryOptions().MaxResults(1).ConservativeMaxDistance(s1.ChordAngleFromAngle(radius))
	query := s2.NewClosestPointQuery(ns.s2idx, opts)

	result := query.FindClosestPoint(target)
	if result.IsEmpty() {
		return 0, false
	}

	id := result.Data.(int)
	if !ns.nodes[id].Equal2D(g, ns.eps) {
		return 0, false
	}
	return id, true
}

// Lookup returns the canonical Geod stored for id.
func (ns *UniqueNodeSet) Lookup(id int) geod.Geod {
	return ns.nodes[id]
}

// SetElevation overwrites the stored elevation for id and marks it
// FixedElevation so later elevation-assignment passes skip it.
func (ns *UniqueNodeSet) SetElevation(id int, elev float64) {
	ns.nodes[id].Elev = elev
	ns.flags[id].FixedElevation = true
}

// Flags returns the per-node flag set for id.
func (ns *UniqueNodeSet) Flags(id int) Flags {
	return ns.flags[id]
}

// SetFlags merges f into the stored flags for id (true bits are set, false
// bits are left alone so callers can set one flag at a time).
func (ns *UniqueNodeSet) SetFlags(id int, f Flags) {
	cur := &ns.flags[id]
	cur.FixedElevation = cur.FixedElevation || f.FixedElevation
	cur.OnBoundary = cur.OnBoundary || f.OnBoundary
	cur.OnInteriorOfContour = cur.OnInteriorOfContour || f.OnInteriorOfContour
}

// QueryBox returns the ids of every node whose location falls within r,
// via the R-tree band index. Used by AddColinearNodes (edge band search)
// and by the triangulator (gathering Steiner points within a polygon's
// bounding box).
func (ns *UniqueNodeSet) QueryBox(r geod.Rectangle) []int {
	rect, err := rtreego.NewRect(
		rtreego.Point{r.MinLon, r.MinLat},
		[]float64{math.Max(r.MaxLon-r.MinLon, 1e-12), math.Max(r.MaxLat-r.MinLat, 1e-12)},
	)
	if err != nil {
		return nil
	}

	hits := ns.rt.SearchIntersect(rect)
	ids := make([]int, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.(*rtreePoint).id)
	}
	return ids
}

// All returns every stored node id in insertion order.
func (ns *UniqueNodeSet) All() []int {
	ids := make([]int, len(ns.nodes))
	for i := range ids {
		ids[i] = i
	}
	return ids
}
