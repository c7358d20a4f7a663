package intersect

import (
	"math"
	"sort"

	"github.com/tgconstruct/tgconstruct/internal/contour"
	"github.com/tgconstruct/tgconstruct/internal/geod"
	"github.com/tgconstruct/tgconstruct/internal/tgerr"
)

// MaxMultiSegmentRounds bounds phase 5's split-and-retry loop (spec
// §4.F: "Bounded to 8 iterations").
const MaxMultiSegmentRounds = 8

// AddEndpointCaps is phase 2: every degree-1 node gets a short stub
// edge continuing straight ahead, tagged IsCap, so the ribbon gets a
// squared-off end rather than a point -- this is where texture v
// terminates.
func (n *Network) AddEndpointCaps() {
	for _, v := range n.ns.All() {
		if n.degree(v) != 1 {
			continue
		}
		e := n.edgesAt(v)[0]
		other := otherEnd(e, v)
		az := n.bearing(other, v) // direction of travel arriving at v
		capLen := math.Max(e.WidthM/2, 0.01)
		capPt := geod.Forward(n.ns.Lookup(v), az, capLen)
		capID := n.ns.Insert(capPt)

		gid, err := n.g.AddEdge(vid(v), vid(capID), int64(e.WidthM*1000))
		if err != nil {
			continue
		}
		id := n.newEdgeID()
		capEdge := &Edge{ID: id, From: v, To: capID, WidthM: e.WidthM, ZOrder: e.ZOrder, TypeTag: e.TypeTag, IsCap: true, State: StateCapped}
		n.register(capEdge, gid)
		e.State = StateCapped
	}
}

// circularMean returns the mean direction (degrees) of a and b, taking
// the wraparound at 360 into account.
func circularMean(a, b float64) float64 {
	ax, ay := math.Cos(a*math.Pi/180), math.Sin(a*math.Pi/180)
	bx, by := math.Cos(b*math.Pi/180), math.Sin(b*math.Pi/180)
	mx, my := (ax+bx)/2, (ay+by)/2
	if mx == 0 && my == 0 {
		return a // opposite directions: no well-defined bisector, pick one
	}
	deg := math.Atan2(my, mx) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// angularDiff returns the smallest positive angle (degrees) you rotate
// a by to reach b, going counter-clockwise (0..360).
func angularDiff(a, b float64) float64 {
	d := math.Mod(b-a, 360)
	if d < 0 {
		d += 360
	}
	return d
}

func (n *Network) assignCorner(e *Edge, v int, towardsNext bool, corner geod.Geod) {
	switch {
	case towardsNext && v == e.From:
		e.fromRight = &corner
	case towardsNext && v != e.From:
		e.toLeft = &corner
	case !towardsNext && v == e.From:
		e.fromLeft = &corner
	default:
		e.toRight = &corner
	}
}

// ConstrainCorners is phase 3: at every junction node of degree ≥ 2,
// order incident edges by outgoing bearing and assign a shared miter
// corner to each consecutive pair, clamped by a miter limit to avoid
// unbounded spikes on near-colinear pairs (the same concern
// clipper2's DoMiter/DoBevel/DoSquare join modes address for polygon
// offsetting -- see internal/contour.Expand).
func (n *Network) ConstrainCorners() {
	for _, v := range n.ns.All() {
		edges := n.edgesAt(v)
		if len(edges) < 2 {
			continue
		}

		type incident struct {
			e    *Edge
			bear float64
		}
		inc := make([]incident, len(edges))
		for i, e := range edges {
			inc[i] = incident{e: e, bear: n.bearing(v, otherEnd(e, v))}
		}
		sort.Slice(inc, func(i, j int) bool { return inc[i].bear < inc[j].bear })

		for k := 0; k < len(inc); k++ {
			k1 := (k + 1) % len(inc)
			a, b := inc[k], inc[k1]
			if a.e == b.e {
				continue
			}

			// bisect the clockwise wedge from a to b (wrapping past 360)
			half := angularDiff(a.bear, b.bear) / 2
			bisector := math.Mod(a.bear+half, 360)
			if len(inc) == 2 && half > 90 {
				// the "next" wraps back to the same pair from the other
				// side; use the true interior half-angle instead.
				half = 180 - half
			}
			sinHalf := math.Max(math.Sin(half*math.Pi/180), 0.12) // miter-limit clamp
			width := math.Max(a.e.WidthM, b.e.WidthM)
			offset := (width / 2) / sinHalf
			offset = math.Min(offset, width*4) // absolute miter-limit cap

			corner := geod.Forward(n.ns.Lookup(v), bisector, offset)
			n.assignCorner(a.e, v, true, corner)
			n.assignCorner(b.e, v, false, corner)
		}

		for _, e := range edges {
			e.State = StateConstrained
		}
	}
}

// railPoint returns the default (unconstrained) rail offset point at
// node v for edge e, side+1 for the azFT+90 rail ("right" of travel
// direction From->To) or side-1 for azFT-90 ("left").
func railPoint(e *Edge, v geod.Geod, azFT float64, side int) geod.Geod {
	return geod.Forward(v, azFT+float64(side)*90, e.WidthM/2)
}

// CompleteRibbons is phase 4: build each edge's quad ribbon from its
// rail points, using phase 3's corners where assigned and falling back
// to a plain perpendicular offset otherwise. A ribbon that collapses to
// fewer than 3 distinct points is deleted as topology-stuck.
func (n *Network) CompleteRibbons() {
	for _, id := range n.order {
		e := n.edges[id]
		if e == nil || e.State == StateDeleted {
			continue
		}
		n.completeOne(e)
	}
}

func (n *Network) completeOne(e *Edge) bool {
	from, to := n.ns.Lookup(e.From), n.ns.Lookup(e.To)
	realAz := bearingOf(from, to)

	fromLeft := e.fromLeft
	fromRight := e.fromRight
	toLeft := e.toLeft
	toRight := e.toRight

	if fromLeft == nil {
		p := railPoint(e, from, realAz, -1)
		fromLeft = &p
	}
	if fromRight == nil {
		p := railPoint(e, from, realAz, 1)
		fromRight = &p
	}
	if toLeft == nil {
		p := railPoint(e, to, realAz, -1)
		toLeft = &p
	}
	if toRight == nil {
		p := railPoint(e, to, realAz, 1)
		toRight = &p
	}

	quad := contour.New([]geod.Geod{*fromLeft, *toLeft, *toRight, *fromRight}, false).RemoveDups(1e-9)
	if quad.Size() < 3 || math.Abs(quad.Area()) < 1e-15 {
		n.deleteEdge(e)
		n.dropped = append(n.dropped, &tgerr.TopologyStuck{EdgeID: e.ID, Detail: "ribbon collapsed to fewer than 3 points"})
		return false
	}

	e.Ribbon = quad.EnsureOrientation(false)
	e.State = StateCompleted
	return true
}

func bearingOf(a, b geod.Geod) float64 {
	_, az, _ := geod.Inverse(a, b)
	return az
}

// railsNeverSeparate reports whether e's two long rail edges cross or
// run colinear-overlapping -- the "rails never diverge" condition spec
// §4.F phase 5 splits on.
func railsNeverSeparate(e *Edge) bool {
	if len(e.Ribbon.Pts) != 4 {
		return false
	}
	left := geod.Segment{A: e.Ribbon.Pts[0], B: e.Ribbon.Pts[1]}
	right := geod.Segment{A: e.Ribbon.Pts[3], B: e.Ribbon.Pts[2]}
	_, kind := left.Intersect(right, geod.DefaultEpsilon)
	return kind == geod.Crossing || kind == geod.ColinearOverlapping
}

// ResolveMultiSegment is phase 5: edges whose completed ribbon shows
// rails that never separate are split at their midpoint and re-run
// through phases 3-4 on the new node, bounded to MaxMultiSegmentRounds;
// anything still pathological after that is dropped.
func (n *Network) ResolveMultiSegment() {
	for round := 0; round < MaxMultiSegmentRounds; round++ {
		var stuck []*Edge
		for _, id := range n.order {
			e := n.edges[id]
			if e == nil || e.State != StateCompleted || e.IsCap {
				continue
			}
			if railsNeverSeparate(e) {
				stuck = append(stuck, e)
			}
		}
		if len(stuck) == 0 {
			return
		}

		for _, e := range stuck {
			n.splitEdgeAtMidpoint(e)
		}
		n.ConstrainCorners()
		n.CompleteRibbons()
	}

	for _, id := range n.order {
		e := n.edges[id]
		if e != nil && e.State == StateCompleted && !e.IsCap && railsNeverSeparate(e) {
			n.deleteEdge(e)
			n.dropped = append(n.dropped, &tgerr.TopologyStuck{EdgeID: e.ID, Detail: "rails never separated after max multi-segment rounds"})
		}
	}
}

func (n *Network) splitEdgeAtMidpoint(e *Edge) {
	from, to := n.ns.Lookup(e.From), n.ns.Lookup(e.To)
	mid := geod.Midpoint(from, to)
	midID := n.ns.Insert(mid)
	if midID == e.From || midID == e.To {
		return
	}

	n.deleteEdge(e)
	n.dropped = append(n.dropped, &tgerr.Degenerate{Op: "intersect.ResolveMultiSegment", Detail: "split edge " + e.ID})

	for _, seg := range [2][2]int{{e.From, midID}, {midID, e.To}} {
		gid, err := n.g.AddEdge(vid(seg[0]), vid(seg[1]), int64(e.WidthM*1000))
		if err != nil {
			continue
		}
		id := n.newEdgeID()
		n.register(&Edge{ID: id, From: seg[0], To: seg[1], WidthM: e.WidthM, ZOrder: e.ZOrder, TypeTag: e.TypeTag, State: StateClean}, gid)
	}
}

// AssignTextures is phase 6: traverse each connected component starting
// from its degree-1 (including capped) endpoints, accumulating v along
// length modulo vRepeat, and resolving material/UV envelope per edge via
// cb.
func (n *Network) AssignTextures(cb TextureInfoCallback) {
	visited := make(map[string]bool)
	starts := make([]int, 0)
	for _, v := range n.ns.All() {
		if n.degree(v) == 1 {
			starts = append(starts, v)
		}
	}

	visit := func(start int) {
		v := start
		vAccum := 0.0
		var prevEdge *Edge
		for {
			edges := n.edgesAt(v)
			var next *Edge
			for _, e := range edges {
				if e != prevEdge && !visited[e.ID] {
					next = e
					break
				}
			}
			if next == nil {
				return
			}
			visited[next.ID] = true
			material, u0, u1, v0, v1, vRepeat := cb(next.TypeTag, next.IsCap)
			next.Material = material
			next.U0, next.U1 = u0, u1
			next.V0 = math.Mod(vAccum+v0, maxFloat(vRepeat, 1))
			length := geod.Segment{A: n.ns.Lookup(next.From), B: n.ns.Lookup(next.To)}.LengthM()
			vAccum = next.V0 + v1 + length/maxFloat(vRepeat, 1)
			next.V1 = vAccum
			next.VRepeat = vRepeat
			next.State = StateTextured

			v = otherEnd(next, v)
			prevEdge = next
		}
	}

	for _, s := range starts {
		visit(s)
	}
	// any remaining untextured edges belong to a closed loop with no
	// degree-1 start; pick an arbitrary one to seed traversal.
	for _, id := range n.order {
		e := n.edges[id]
		if e != nil && e.State == StateCompleted {
			visit(e.From)
		}
	}
}

func maxFloat(v, fallback float64) float64 {
	if v <= 0 {
		return fallback
	}
	return v
}
