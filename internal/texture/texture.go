// Package texture synthesizes per-triangle (u,v) texture coordinates from
// a polygon's TexParams descriptor. It is distinct from -- and shares no
// code with -- the teacher's raster "paint a tile" internal/texture;
// nothing here produces pixels, only UV pairs attached to mesh vertices.
package texture

import (
	"math"

	"github.com/tgconstruct/tgconstruct/internal/geod"
)

// Method selects how a polygon's triangles are unwrapped into UV space.
type Method int

const (
	// ByReferencePt projects onto the tangent plane at Reference, rotated
	// by -HeadingDeg and scaled by (WidthM, LengthM).
	ByReferencePt Method = iota
	// ByTPSClipU tiles U modulo 1, clipped to [UMin,UMax]; V accumulates
	// distance along the heading direction.
	ByTPSClipU
	// ByTPSNoClip is ByTPSClipU without the U clip.
	ByTPSNoClip
	// ByRunway: U is lateral offset from the centreline over WidthM, V is
	// longitudinal distance from the threshold over LengthM.
	ByRunway
)

// Params is the per-polygon texture descriptor (spec §6).
type Params struct {
	Method     Method
	Reference  geod.Geod
	WidthM     float64
	LengthM    float64
	HeadingDeg float64
	UMin, VMin float64
	UMax, VMax float64

	// vAccum tracks distance-along-heading already consumed by prior
	// triangles of the same ribbon, for ByTPSClipU/ByTPSNoClip. Zero value
	// is a fresh, unaccumulated descriptor.
	vAccum float64
}

// UV is a texture coordinate pair.
type UV struct{ U, V float64 }

// tangentPlaneXY projects g onto the local tangent plane at the
// descriptor's reference point, in metres, with X east and Y north --
// adequate at the tile scale this pipeline operates on (a few degrees at
// most), consistent with the rest of the package's planar-lon/lat
// arithmetic.
func tangentPlaneXY(ref, g geod.Geod) (x, y float64) {
	distM, az, _ := geod.Inverse(ref, g)
	radAz := az * (math.Pi / 180)
	x = distM * math.Sin(radAz)
	y = distM * math.Cos(radAz)
	return
}

// rotate turns (x,y) counter-clockwise by headingDeg, bringing the
// direction headingDeg (measured clockwise from north) onto +y: rx is
// the offset to the right of the heading, ry the distance along it.
func rotate(x, y, headingDeg float64) (rx, ry float64) {
	rad := headingDeg * (math.Pi / 180)
	rx = x*math.Cos(rad) - y*math.Sin(rad)
	ry = x*math.Sin(rad) + y*math.Cos(rad)
	return
}

// Triangle computes the three (u,v) pairs for a triangle's vertices under
// p's method. For the ByTPS* methods, Triangle mutates p.vAccum so a
// caller iterating a ribbon's triangles in order gets a continuously
// accumulating V; pass a copy if that's undesired.
func (p *Params) Triangle(a, b, c geod.Geod) [3]UV {
	switch p.Method {
	case ByReferencePt:
		return [3]UV{p.byReferencePt(a), p.byReferencePt(b), p.byReferencePt(c)}
	case ByTPSClipU:
		return p.byTPS(a, b, c, true)
	case ByTPSNoClip:
		return p.byTPS(a, b, c, false)
	case ByRunway:
		return [3]UV{p.byRunway(a), p.byRunway(b), p.byRunway(c)}
	default:
		return [3]UV{}
	}
}

func (p *Params) byReferencePt(g geod.Geod) UV {
	x, y := tangentPlaneXY(p.Reference, g)
	rx, ry := rotate(x, y, p.HeadingDeg)
	return UV{U: rx / p.WidthM, V: ry / p.LengthM}
}

func (p *Params) byTPS(a, b, c geod.Geod, clip bool) [3]UV {
	project := func(g geod.Geod) (u, v float64) {
		x, y := tangentPlaneXY(p.Reference, g)
		rx, ry := rotate(x, y, p.HeadingDeg)
		u = rx / p.WidthM
		u -= math.Floor(u) // tile modulo 1
		if clip {
			u = math.Max(p.UMin, math.Min(p.UMax, u))
		}
		v = p.vAccum + ry/p.LengthM
		return
	}
	ua, va := project(a)
	ub, vb := project(b)
	uc, vc := project(c)
	p.vAccum = math.Max(va, math.Max(vb, vc))
	return [3]UV{{U: ua, V: va}, {U: ub, V: vb}, {U: uc, V: vc}}
}

func (p *Params) byRunway(g geod.Geod) UV {
	x, y := tangentPlaneXY(p.Reference, g)
	rx, ry := rotate(x, y, p.HeadingDeg)
	return UV{U: rx / p.WidthM, V: ry / p.LengthM}
}
