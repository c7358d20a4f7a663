package geod

// Rectangle is an axis-aligned lon/lat bounding box.
type Rectangle struct {
	MinLon, MinLat float64
	MaxLon, MaxLat float64
}

// EmptyRectangle returns a rectangle that Expand will replace on first use.
func EmptyRectangle() Rectangle {
	const inf = 1e18
	return Rectangle{MinLon: inf, MinLat: inf, MaxLon: -inf, MaxLat: -inf}
}

// Expand grows r (in place semantics via return value) to include g.
func (r Rectangle) Expand(g Geod) Rectangle {
	if g.Lon < r.MinLon {
		r.MinLon = g.Lon
	}
	if g.Lat < r.MinLat {
		r.MinLat = g.Lat
	}
	if g.Lon > r.MaxLon {
		r.MaxLon = g.Lon
	}
	if g.Lat > r.MaxLat {
		r.MaxLat = g.Lat
	}
	return r
}

// Grow returns r padded by eps degrees on every side.
func (r Rectangle) Grow(eps float64) Rectangle {
	return Rectangle{
		MinLon: r.MinLon - eps,
		MinLat: r.MinLat - eps,
		MaxLon: r.MaxLon + eps,
		MaxLat: r.MaxLat + eps,
	}
}

// Contains reports whether g falls within r (inclusive).
func (r Rectangle) Contains(g Geod) bool {
	return g.Lon >= r.MinLon && g.Lon <= r.MaxLon && g.Lat >= r.MinLat && g.Lat <= r.MaxLat
}

// Intersects reports whether r and o overlap.
func (r Rectangle) Intersects(o Rectangle) bool {
	return r.MinLon <= o.MaxLon && r.MaxLon >= o.MinLon &&
		r.MinLat <= o.MaxLat && r.MaxLat >= o.MinLat
}

// Intersect returns the overlapping rectangle of r and o, and false if they
// do not overlap.
func (r Rectangle) Intersect(o Rectangle) (Rectangle, bool) {
	if !r.Intersects(o) {
		return Rectangle{}, false
	}
	return Rectangle{
		MinLon: max(r.MinLon, o.MinLon),
		MinLat: max(r.MinLat, o.MinLat),
		MaxLon: min(r.MaxLon, o.MaxLon),
		MaxLat: min(r.MaxLat, o.MaxLat),
	}, true
}
