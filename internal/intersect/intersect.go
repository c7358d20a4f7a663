// Package intersect builds a road ribbon network from an unordered set
// of directed, width/z_order/type-tagged segments: dedup endpoints,
// split crossings, merge colinear overlaps, cap dangling ends, resolve
// junction corners by angle bisector, complete each edge's ribbon
// polygon, split edges that never separate from a neighbour, and
// texture the result. Spec §4.F.
package intersect

import (
	"fmt"
	"strconv"

	"github.com/katalvlaran/lvlath/core"

	"github.com/tgconstruct/tgconstruct/internal/contour"
	"github.com/tgconstruct/tgconstruct/internal/geod"
	"github.com/tgconstruct/tgconstruct/internal/nodeset"
	"github.com/tgconstruct/tgconstruct/internal/tgerr"
)

// NodeEpsilon is the endpoint-dedup tolerance for the intersection
// generator's node set -- larger than the default 2-D equality epsilon
// because road network input data is noisier than already-canonified
// polygon boundaries.
const NodeEpsilon = 1e-6

// State is a value in the per-edge state machine (spec §4.F).
type State int

const (
	StateRaw State = iota
	StateClean
	StateCapped
	StateConstrained
	StateCompleted
	StateTextured
	StateDeleted
)

// InputSegment is one directed road segment handed to BuildNetwork.
type InputSegment struct {
	A, B    geod.Geod
	WidthM  float64
	ZOrder  int
	TypeTag string
}

// Edge is one ribbon-producing edge of the network.
type Edge struct {
	ID       string
	From, To int // nodeset ids
	WidthM   float64
	ZOrder   int
	TypeTag  string
	IsCap    bool

	State State

	graphID string // lvlath edge id backing this edge in n.g, for RemoveEdge/Neighbors

	// fromLeft/fromRight/toLeft/toRight are the phase-3 miter corner
	// points, relative to the travel direction From->To ("left" =
	// azFT-90). Nil means unconstrained: phase 4 falls back to a plain
	// perpendicular offset.
	fromLeft, fromRight *geod.Geod
	toLeft, toRight     *geod.Geod

	Ribbon contour.Contour // populated by phase 4

	Material                string
	U0, U1, V0, V1, VRepeat float64
}

// TextureInfoCallback resolves a (type, is_cap) pair to the material and
// UV envelope phase 6 stretches each edge's ribbon into (spec §4.F
// phase 6).
type TextureInfoCallback func(typeTag string, isCap bool) (material string, u0, u1, v0, v1, vRepeat float64)

// Network is the planar straight-line graph the six phases build and
// refine in place.
type Network struct {
	ns    *nodeset.UniqueNodeSet
	g     *core.Graph
	edges map[string]*Edge
	order []string // edge ids in insertion order, for deterministic traversal

	byGraphID map[string]*Edge // lvlath edge id -> Edge, for edgesAt/degree

	nextEdgeNum int
	dropped     []error
}

func (n *Network) newEdgeID() string {
	n.nextEdgeNum++
	return fmt.Sprintf("rib%d", n.nextEdgeNum)
}

// register files e into n.edges/n.order and indexes it by its lvlath
// graph edge id so edgesAt can map graph adjacency back to Edge.
func (n *Network) register(e *Edge, graphID string) {
	e.graphID = graphID
	n.edges[e.ID] = e
	n.order = append(n.order, e.ID)
	n.byGraphID[graphID] = e
}

// deleteEdge marks e deleted and removes its backing edge from n.g, so
// later Neighbors/Degree queries stop seeing it.
func (n *Network) deleteEdge(e *Edge) {
	e.State = StateDeleted
	if e.graphID != "" {
		_ = n.g.RemoveEdge(e.graphID)
	}
}

// Dropped returns every edge/segment dropped during construction, as
// tgerr errors, for the caller to log at WARN.
func (n *Network) Dropped() []error { return n.dropped }

// Edges returns every non-deleted edge, in insertion order.
func (n *Network) Edges() []*Edge {
	out := make([]*Edge, 0, len(n.order))
	for _, id := range n.order {
		if e := n.edges[id]; e != nil && e.State != StateDeleted {
			out = append(out, e)
		}
	}
	return out
}

// NodeSet exposes the network's node set (phase 1's deduplicated
// endpoints) for the triangulator's Steiner-point gathering.
func (n *Network) NodeSet() *nodeset.UniqueNodeSet { return n.ns }

func vid(id int) string { return strconv.Itoa(id) }

// BuildNetwork runs phase 1 (dedup, crossing split, colinear merge,
// zero-length drop) over segs and returns the resulting network.
func BuildNetwork(segs []InputSegment) *Network {
	n := &Network{
		ns:        nodeset.New(NodeEpsilon),
		g:         core.NewGraph(core.WithWeighted(), core.WithMultiEdges()),
		edges:     make(map[string]*Edge),
		byGraphID: make(map[string]*Edge),
	}

	type rawSeg struct {
		a, b   geod.Geod
		width  float64
		zOrder int
		tag    string
	}
	var pending []rawSeg
	for _, s := range segs {
		d, _, _ := geod.Inverse(s.A, s.B)
		if d < 1e-3 { // sub-millimetre: degenerate
			n.dropped = append(n.dropped, &tgerr.Degenerate{Op: "intersect.BuildNetwork", Detail: "zero-length segment"})
			continue
		}
		pending = append(pending, rawSeg{a: s.A, b: s.B, width: s.WidthM, zOrder: s.ZOrder, tag: s.TypeTag})
	}

	// Split pairwise crossings. One pass: good enough for the
	// tile-local, sparse road graphs this pipeline operates on; a
	// pathological input with many chained crossings on one segment
	// would need a sweep-line arrangement, which this intentionally
	// simpler pass does not attempt.
	for i := 0; i < len(pending); i++ {
		for j := i + 1; j < len(pending); j++ {
			si := geod.Segment{A: pending[i].a, B: pending[i].b}
			sj := geod.Segment{A: pending[j].a, B: pending[j].b}
			pt, kind := si.Intersect(sj, geod.DefaultEpsilon)
			switch kind {
			case geod.Crossing:
				// Split each segment whose interior holds pt; a segment
				// that merely ends at pt is left whole.
				for _, k := range [2]int{j, i} {
					if pt.Equal2D(pending[k].a, geod.DefaultEpsilon) || pt.Equal2D(pending[k].b, geod.DefaultEpsilon) {
						continue
					}
					right := pending[k]
					right.a = pt
					pending[k].b = pt
					pending = append(pending, right)
				}
			case geod.ColinearOverlapping:
				// merge the shorter into the longer: drop j, keep i's
				// attributes but extend nothing further (approximation
				// of "merged into the longer one").
				li, _, _ := geod.Inverse(pending[i].a, pending[i].b)
				lj, _, _ := geod.Inverse(pending[j].a, pending[j].b)
				if lj <= li {
					pending = append(pending[:j], pending[j+1:]...)
					j--
				}
			}
		}
	}

	for _, s := range pending {
		idA := n.ns.Insert(s.a)
		idB := n.ns.Insert(s.b)
		if idA == idB {
			n.dropped = append(n.dropped, &tgerr.Degenerate{Op: "intersect.BuildNetwork", Detail: "segment collapsed to a point after dedup"})
			continue
		}
		gid, err := n.g.AddEdge(vid(idA), vid(idB), int64(s.width*1000))
		if err != nil {
			n.dropped = append(n.dropped, &tgerr.Degenerate{Op: "intersect.BuildNetwork", Detail: err.Error()})
			continue
		}
		id := n.newEdgeID()
		n.register(&Edge{ID: id, From: idA, To: idB, WidthM: s.width, ZOrder: s.zOrder, TypeTag: s.tag, State: StateClean}, gid)
	}

	return n
}

// bearing returns the azimuth in degrees from node id `from` to node id
// `to`.
func (n *Network) bearing(from, to int) float64 {
	_, az, _ := geod.Inverse(n.ns.Lookup(from), n.ns.Lookup(to))
	return az
}

// otherEnd returns the node id at the far end of e from node id v.
func otherEnd(e *Edge, v int) int {
	if e.From == v {
		return e.To
	}
	return e.From
}

// edgesAt returns every non-deleted edge incident on node id v, walking
// n.g's real adjacency (core.Graph.Neighbors) rather than scanning the
// bookkeeping map -- deleteEdge keeps n.g in sync by calling RemoveEdge,
// so a deleted edge never comes back from this query.
func (n *Network) edgesAt(v int) []*Edge {
	ge, err := n.g.Neighbors(vid(v))
	if err != nil {
		return nil
	}
	out := make([]*Edge, 0, len(ge))
	for _, ce := range ge {
		e := n.byGraphID[ce.ID]
		if e == nil || e.State == StateDeleted {
			continue
		}
		out = append(out, e)
	}
	return out
}

// degree returns the number of non-deleted edges incident on v, per
// n.g's adjacency.
func (n *Network) degree(v int) int { return len(n.edgesAt(v)) }

// CheckInvariants re-checks the global invariant the six phases must
// leave true when run to completion (spec §4.F, §8): every surviving
// edge has been textured and carries a non-degenerate ribbon. A caller
// that has just run all six phases treats a non-nil result as fatal
// (spec §7's "invariant violation aborts the process").
func (n *Network) CheckInvariants() error {
	for _, e := range n.Edges() {
		if e.State != StateTextured {
			return &tgerr.Invariant{
				What:   "intersect: edge not textured after phase 6",
				Detail: fmt.Sprintf("edge %s left in state %d", e.ID, e.State),
			}
		}
		if e.Ribbon.Size() < 3 {
			return &tgerr.Invariant{
				What:   "intersect: textured edge has a degenerate ribbon",
				Detail: fmt.Sprintf("edge %s ribbon has %d vertices", e.ID, e.Ribbon.Size()),
			}
		}
	}
	return nil
}
