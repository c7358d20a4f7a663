// Package tgerr defines the four domain error shapes the pipeline's
// error-handling policy (spec §7) distinguishes, so callers can decide
// "swallow at DEBUG", "drop the polygon at WARN", "drop the edge at
// WARN" or "abort the process" by type rather than by string-matching.
package tgerr

import "fmt"

// Degenerate reports a shape-degeneracy that a contour/polygon operation
// chose to repair or drop rather than fail outright (e.g. a zero-area
// sliver, a zero-length segment). Swallowed by callers at DEBUG level.
type Degenerate struct {
	Op     string
	Detail string
}

func (e *Degenerate) Error() string {
	return fmt.Sprintf("degenerate shape in %s: %s", e.Op, e.Detail)
}

// ClipperSurprise reports the planar clipper returning something the
// caller did not expect (wrong contour count, empty result where one
// was required). The offending polygon is dropped; the tile continues.
// Logged at WARN.
type ClipperSurprise struct {
	Op     string
	Detail string
}

func (e *ClipperSurprise) Error() string {
	return fmt.Sprintf("clipper surprise in %s: %s", e.Op, e.Detail)
}

// TopologyStuck reports the intersection generator's phase 3-5 corner
// resolution failing to converge on an edge (it never separated from a
// neighbour, or clipping emptied its ribbon with no neighbour to
// re-link to). The edge is deleted; its neighbours are re-linked where
// possible. Logged at WARN.
type TopologyStuck struct {
	EdgeID string
	Detail string
}

func (e *TopologyStuck) Error() string {
	return fmt.Sprintf("topology stuck at edge %s: %s", e.EdgeID, e.Detail)
}

// Invariant reports a violation of one of the pipeline's global
// invariants (spec §8/§4.F "global invariants re-checked between
// phases"). Callers at the tile-task boundary treat this as fatal and
// abort the process rather than attempt recovery -- by the time an
// invariant has been violated, the tile's state cannot be trusted.
type Invariant struct {
	What   string
	Detail string
}

func (e *Invariant) Error() string {
	return fmt.Sprintf("invariant violated: %s: %s", e.What, e.Detail)
}
