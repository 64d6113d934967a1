// Package fragment implements the encoded command streams cached per
// component node.
//
// A Fragment is an immutable, sealed stream of drawing commands laid out in
// separate streams:
//   - a tag stream (1 byte per command)
//   - a float stream for geometry
//   - a word stream for palette indices, fill rules and glyph IDs
//   - a transform stream
//   - a colour palette
//
// Fragments are produced by a Builder. A Builder can append an existing
// fragment under a transform, which is how the compositor reuses cached
// subtrees without re-running their draw code. Appending a fragment is
// byte-for-byte equivalent to encoding its commands again under the same
// transform.
package fragment

// Tag identifies a command in the tag stream. The high nibble groups tags:
//
//	0x0X: transform stack
//	0x1X: path construction
//	0x2X: fills, strokes and text
//	0x4X: clip stack
type Tag byte

// Tag constants. Each comment lists the data the command consumes from the
// float (F) and word (W) streams.
const (
	// TagPushTransform pushes a transform. Data: 1 transform.
	TagPushTransform Tag = 0x01

	// TagPopTransform pops the innermost transform. Data: none.
	TagPopTransform Tag = 0x02

	// TagBeginPath starts a path. Data: none.
	TagBeginPath Tag = 0x10

	// TagMoveTo: F[x, y].
	TagMoveTo Tag = 0x11

	// TagLineTo: F[x, y].
	TagLineTo Tag = 0x12

	// TagQuadTo: F[cx, cy, x, y].
	TagQuadTo Tag = 0x13

	// TagCubicTo: F[c1x, c1y, c2x, c2y, x, y].
	TagCubicTo Tag = 0x14

	// TagClosePath closes the current subpath. Data: none.
	TagClosePath Tag = 0x16

	// TagEndPath ends a path. Data: none.
	TagEndPath Tag = 0x17

	// TagFill fills the last path. W[colour, rule].
	TagFill Tag = 0x20

	// TagStroke strokes the last path. F[width] W[colour].
	TagStroke Tag = 0x21

	// TagFillRect: F[x, y, w, h] W[colour].
	TagFillRect Tag = 0x22

	// TagStrokeRect: F[x, y, w, h, width] W[colour].
	TagStrokeRect Tag = 0x23

	// TagGlyphRun: F[x, y, size, advance, x0..xn-1] W[colour, n, id0..idn-1].
	TagGlyphRun Tag = 0x24

	// TagPushClip intersects the clip with a rectangle. F[x, y, w, h].
	TagPushClip Tag = 0x40

	// TagPopClip restores the previous clip. Data: none.
	TagPopClip Tag = 0x41
)

// String returns a human-readable name for the tag.
func (t Tag) String() string {
	switch t {
	case TagPushTransform:
		return "PushTransform"
	case TagPopTransform:
		return "PopTransform"
	case TagBeginPath:
		return "BeginPath"
	case TagMoveTo:
		return "MoveTo"
	case TagLineTo:
		return "LineTo"
	case TagQuadTo:
		return "QuadTo"
	case TagCubicTo:
		return "CubicTo"
	case TagClosePath:
		return "ClosePath"
	case TagEndPath:
		return "EndPath"
	case TagFill:
		return "Fill"
	case TagStroke:
		return "Stroke"
	case TagFillRect:
		return "FillRect"
	case TagStrokeRect:
		return "StrokeRect"
	case TagGlyphRun:
		return "GlyphRun"
	case TagPushClip:
		return "PushClip"
	case TagPopClip:
		return "PopClip"
	default:
		return "Unknown"
	}
}

// IsDraw reports whether the tag produces pixels.
func (t Tag) IsDraw() bool {
	switch t {
	case TagFill, TagStroke, TagFillRect, TagStrokeRect, TagGlyphRun:
		return true
	}
	return false
}

// fixedData returns the number of floats and words a tag consumes. Glyph
// runs are variable and reported as (-1, -1).
func (t Tag) fixedData() (floats, words int) {
	switch t {
	case TagMoveTo, TagLineTo:
		return 2, 0
	case TagQuadTo:
		return 4, 0
	case TagCubicTo:
		return 6, 0
	case TagFill:
		return 0, 2
	case TagStroke:
		return 1, 1
	case TagFillRect:
		return 4, 1
	case TagStrokeRect:
		return 5, 1
	case TagPushClip:
		return 4, 0
	case TagGlyphRun:
		return -1, -1
	}
	return 0, 0
}

// FillRule selects how path interiors are computed.
type FillRule uint32

const (
	// FillNonZero uses the non-zero winding rule.
	FillNonZero FillRule = 0
	// FillEvenOdd uses the even-odd rule.
	FillEvenOdd FillRule = 1
)
