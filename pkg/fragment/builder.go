package fragment

import (
	"errors"
	"slices"

	"github.com/gogpu/gg"
)

// ErrSealed is reported when a builder is written to after Finish.
var ErrSealed = errors.New("fragment: write to sealed builder")

// ErrUnbalanced is reported when PopClip has no matching PushClip, or when a
// clip is still open at Finish.
var ErrUnbalanced = errors.New("fragment: unbalanced clip stack")

// Builder records commands into a new fragment. The zero value is not
// usable; create builders with NewBuilder or a Pool.
//
// Drawing methods do not return errors. The first misuse is remembered and
// reported by Err and Finish.
type Builder struct {
	enc       Fragment
	clipDepth int
	sealed    bool
	err       error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		enc: Fragment{
			tags:       make([]Tag, 0, 64),
			floats:     make([]float32, 0, 256),
			words:      make([]uint32, 0, 32),
			transforms: make([]Affine, 0, 8),
			colors:     make([]gg.RGBA, 0, 8),
			bounds:     EmptyRect(),
		},
	}
}

// Reset clears the builder for reuse without releasing its buffers.
func (b *Builder) Reset() {
	b.enc.tags = b.enc.tags[:0]
	b.enc.floats = b.enc.floats[:0]
	b.enc.words = b.enc.words[:0]
	b.enc.transforms = b.enc.transforms[:0]
	b.enc.colors = b.enc.colors[:0]
	b.enc.bounds = EmptyRect()
	b.enc.draws = 0
	b.clipDepth = 0
	b.sealed = false
	b.err = nil
}

// Err returns the first error recorded by the builder.
func (b *Builder) Err() error {
	return b.err
}

// Len returns the number of commands recorded so far.
func (b *Builder) Len() int {
	return len(b.enc.tags)
}

func (b *Builder) writable() bool {
	if b.sealed {
		if b.err == nil {
			b.err = ErrSealed
		}
		return false
	}
	return true
}

func (b *Builder) color(c gg.RGBA) uint32 {
	idx := uint32(len(b.enc.colors))
	b.enc.colors = append(b.enc.colors, c)
	return idx
}

func (b *Builder) draw(tag Tag, bounds Rect) {
	b.enc.tags = append(b.enc.tags, tag)
	b.enc.bounds = b.enc.bounds.Union(bounds)
	b.enc.draws++
}

// FillRect fills an axis-aligned rectangle.
func (b *Builder) FillRect(x, y, w, h float32, c gg.RGBA) {
	if !b.writable() {
		return
	}
	b.enc.floats = append(b.enc.floats, x, y, w, h)
	b.enc.words = append(b.enc.words, b.color(c))
	b.draw(TagFillRect, Rect{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h})
}

// StrokeRect outlines an axis-aligned rectangle.
func (b *Builder) StrokeRect(x, y, w, h, width float32, c gg.RGBA) {
	if !b.writable() {
		return
	}
	b.enc.floats = append(b.enc.floats, x, y, w, h, width)
	b.enc.words = append(b.enc.words, b.color(c))
	half := width / 2
	b.draw(TagStrokeRect, Rect{MinX: x - half, MinY: y - half, MaxX: x + w + half, MaxY: y + h + half})
}

// FillPath fills p with the given rule.
func (b *Builder) FillPath(p *gg.Path, rule FillRule, c gg.RGBA) {
	if !b.writable() {
		return
	}
	bounds, ok := b.path(p)
	if !ok {
		return
	}
	b.enc.words = append(b.enc.words, b.color(c), uint32(rule))
	b.draw(TagFill, bounds)
}

// StrokePath strokes p with the given line width.
func (b *Builder) StrokePath(p *gg.Path, width float32, c gg.RGBA) {
	if !b.writable() {
		return
	}
	bounds, ok := b.path(p)
	if !ok {
		return
	}
	b.enc.floats = append(b.enc.floats, width)
	b.enc.words = append(b.enc.words, b.color(c))
	half := width / 2
	bounds.MinX -= half
	bounds.MinY -= half
	bounds.MaxX += half
	bounds.MaxY += half
	b.draw(TagStroke, bounds)
}

// path encodes the elements of p between BeginPath and EndPath. It reports
// false for an empty path, in which case nothing is written.
func (b *Builder) path(p *gg.Path) (Rect, bool) {
	if p == nil {
		return Rect{}, false
	}
	elems := p.Elements()
	if len(elems) == 0 {
		return Rect{}, false
	}
	bounds := EmptyRect()
	pt := func(x, y float64) {
		fx, fy := float32(x), float32(y)
		b.enc.floats = append(b.enc.floats, fx, fy)
		bounds = bounds.addPoint(fx, fy)
	}

	b.enc.tags = append(b.enc.tags, TagBeginPath)
	for _, elem := range elems {
		switch el := elem.(type) {
		case gg.MoveTo:
			b.enc.tags = append(b.enc.tags, TagMoveTo)
			pt(el.Point.X, el.Point.Y)
		case gg.LineTo:
			b.enc.tags = append(b.enc.tags, TagLineTo)
			pt(el.Point.X, el.Point.Y)
		case gg.QuadTo:
			b.enc.tags = append(b.enc.tags, TagQuadTo)
			pt(el.Control.X, el.Control.Y)
			pt(el.Point.X, el.Point.Y)
		case gg.CubicTo:
			b.enc.tags = append(b.enc.tags, TagCubicTo)
			pt(el.Control1.X, el.Control1.Y)
			pt(el.Control2.X, el.Control2.Y)
			pt(el.Point.X, el.Point.Y)
		case gg.Close:
			b.enc.tags = append(b.enc.tags, TagClosePath)
		}
	}
	b.enc.tags = append(b.enc.tags, TagEndPath)
	return bounds, true
}

// GlyphRun draws shaped text.
func (b *Builder) GlyphRun(run GlyphRun, c gg.RGBA) {
	if !b.writable() || len(run.Glyphs) == 0 {
		return
	}
	b.enc.floats = append(b.enc.floats, run.X, run.Y, run.Size, run.Advance)
	b.enc.words = append(b.enc.words, b.color(c), uint32(len(run.Glyphs)))
	for _, g := range run.Glyphs {
		b.enc.floats = append(b.enc.floats, g.X)
		b.enc.words = append(b.enc.words, g.ID)
	}
	b.draw(TagGlyphRun, Rect{
		MinX: run.X,
		MinY: run.Y - run.Size,
		MaxX: run.X + run.Advance,
		MaxY: run.Y + run.Size/4,
	})
}

// PushClip intersects the clip with a rectangle until the matching PopClip.
func (b *Builder) PushClip(x, y, w, h float32) {
	if !b.writable() {
		return
	}
	b.enc.tags = append(b.enc.tags, TagPushClip)
	b.enc.floats = append(b.enc.floats, x, y, w, h)
	b.clipDepth++
}

// PopClip restores the clip saved by the last PushClip.
func (b *Builder) PopClip() {
	if !b.writable() {
		return
	}
	if b.clipDepth == 0 {
		if b.err == nil {
			b.err = ErrUnbalanced
		}
		return
	}
	b.enc.tags = append(b.enc.tags, TagPopClip)
	b.clipDepth--
}

// Append copies f into the builder wrapped in a push/pop of t. Palette
// indices in f are rebased onto the builder's palette. Appending an empty
// fragment writes nothing.
func (b *Builder) Append(f *Fragment, t Affine) {
	if !b.writable() || f.IsEmpty() {
		return
	}
	colorBase := uint32(len(b.enc.colors))

	b.enc.tags = append(b.enc.tags, TagPushTransform)
	b.enc.transforms = append(b.enc.transforms, t)
	b.enc.tags = append(b.enc.tags, f.tags...)
	b.enc.tags = append(b.enc.tags, TagPopTransform)

	b.enc.floats = append(b.enc.floats, f.floats...)
	b.enc.transforms = append(b.enc.transforms, f.transforms...)
	b.enc.colors = append(b.enc.colors, f.colors...)

	start := len(b.enc.words)
	b.enc.words = append(b.enc.words, f.words...)
	if colorBase != 0 {
		wi := 0
		for _, tag := range f.tags {
			_, nw := tag.fixedData()
			if tag == TagGlyphRun {
				nw = 2 + int(f.words[wi+1])
			}
			if tag.IsDraw() {
				b.enc.words[start+wi] += colorBase
			}
			wi += nw
		}
	}

	b.enc.bounds = b.enc.bounds.Union(f.bounds.Transform(t))
	b.enc.draws += f.draws
}

// Finish seals the builder and returns the recorded fragment. The
// fragment owns copies of the streams, so the builder can be Reset and
// reused afterwards.
func (b *Builder) Finish() (*Fragment, error) {
	if b.sealed {
		return nil, ErrSealed
	}
	b.sealed = true
	if b.err != nil {
		return nil, b.err
	}
	if b.clipDepth != 0 {
		b.err = ErrUnbalanced
		return nil, b.err
	}
	return &Fragment{
		tags:       slices.Clone(b.enc.tags),
		floats:     slices.Clone(b.enc.floats),
		words:      slices.Clone(b.enc.words),
		transforms: slices.Clone(b.enc.transforms),
		colors:     slices.Clone(b.enc.colors),
		bounds:     b.enc.bounds,
		draws:      b.enc.draws,
	}, nil
}
