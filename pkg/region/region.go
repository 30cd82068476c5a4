// Package region provides the rectangle and dirty-region arithmetic used by
// the surface buffer lifecycle: regions are maintained as sets of
// non-overlapping rectangles so that partial-redraw copy-back can walk them
// without double-copying any pixel.
package region

// Rect is a half-open rectangle [Left,Right) x [Top,Bottom) in pixel
// coordinates.
type Rect struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

// RectWH returns the rectangle anchored at the origin with the given size.
func RectWH(w, h int32) Rect {
	return Rect{Right: w, Bottom: h}
}

// InvalidRect returns the canonical "unset" rectangle. IsValid reports false
// for it.
func InvalidRect() Rect {
	return Rect{Left: -1, Top: -1, Right: -1, Bottom: -1}
}

func (r Rect) Width() int32  { return r.Right - r.Left }
func (r Rect) Height() int32 { return r.Bottom - r.Top }

// IsEmpty reports whether the rectangle covers no pixels.
func (r Rect) IsEmpty() bool {
	return r.Right <= r.Left || r.Bottom <= r.Top
}

// IsValid reports whether the rectangle is non-empty with non-negative
// origin.
func (r Rect) IsValid() bool {
	return r.Left >= 0 && r.Top >= 0 && !r.IsEmpty()
}

// Intersect returns the overlap of r and o. The result may be empty.
func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		Left:   max32(r.Left, o.Left),
		Top:    max32(r.Top, o.Top),
		Right:  min32(r.Right, o.Right),
		Bottom: min32(r.Bottom, o.Bottom),
	}
	if out.IsEmpty() {
		return Rect{}
	}
	return out
}

// Region is a set of pixels represented as non-overlapping rectangles.
// The zero value is the empty region.
type Region struct {
	rects []Rect
}

// FromRect returns the region covering exactly r.
func FromRect(r Rect) Region {
	if r.IsEmpty() {
		return Region{}
	}
	return Region{rects: []Rect{r}}
}

// WH returns the region covering a w x h buffer.
func WH(w, h int32) Region {
	return FromRect(RectWH(w, h))
}

// IsEmpty reports whether the region covers no pixels.
func (g Region) IsEmpty() bool {
	return len(g.rects) == 0
}

// Rects returns the region's rectangles. The slice must not be mutated.
func (g Region) Rects() []Rect {
	return g.rects
}

// Bounds returns the smallest rectangle enclosing the region.
func (g Region) Bounds() Rect {
	if len(g.rects) == 0 {
		return Rect{}
	}
	b := g.rects[0]
	for _, r := range g.rects[1:] {
		b.Left = min32(b.Left, r.Left)
		b.Top = min32(b.Top, r.Top)
		b.Right = max32(b.Right, r.Right)
		b.Bottom = max32(b.Bottom, r.Bottom)
	}
	return b
}

// IntersectRect returns the part of the region inside clip.
func (g Region) IntersectRect(clip Rect) Region {
	var out Region
	for _, r := range g.rects {
		if c := r.Intersect(clip); !c.IsEmpty() {
			out.rects = append(out.rects, c)
		}
	}
	return out
}

// Subtract returns the pixels of g not covered by o. Both inputs keep their
// non-overlap invariant, so the result does too.
func (g Region) Subtract(o Region) Region {
	if g.IsEmpty() || o.IsEmpty() {
		return g
	}
	work := make([]Rect, len(g.rects))
	copy(work, g.rects)
	for _, hole := range o.rects {
		next := work[:0:0]
		for _, r := range work {
			next = appendDifference(next, r, hole)
		}
		work = next
		if len(work) == 0 {
			break
		}
	}
	return Region{rects: work}
}

// Contains reports whether the pixel (x, y) lies inside the region.
func (g Region) Contains(x, y int32) bool {
	for _, r := range g.rects {
		if x >= r.Left && x < r.Right && y >= r.Top && y < r.Bottom {
			return true
		}
	}
	return false
}

// Area returns the number of pixels covered by the region.
func (g Region) Area() int64 {
	var n int64
	for _, r := range g.rects {
		n += int64(r.Width()) * int64(r.Height())
	}
	return n
}

// appendDifference appends the up-to-four rectangles of r not covered by
// hole onto dst.
func appendDifference(dst []Rect, r, hole Rect) []Rect {
	in := r.Intersect(hole)
	if in.IsEmpty() {
		return append(dst, r)
	}
	if in.Top > r.Top { // band above the hole
		dst = append(dst, Rect{r.Left, r.Top, r.Right, in.Top})
	}
	if in.Bottom < r.Bottom { // band below the hole
		dst = append(dst, Rect{r.Left, in.Bottom, r.Right, r.Bottom})
	}
	if in.Left > r.Left { // band left of the hole, clipped vertically
		dst = append(dst, Rect{r.Left, in.Top, in.Left, in.Bottom})
	}
	if in.Right < r.Right { // band right of the hole, clipped vertically
		dst = append(dst, Rect{in.Right, in.Top, r.Right, in.Bottom})
	}
	return dst
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
