package fragment

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/gogpu/gg"
)

// Fragment is a sealed command stream. It is never modified after Finish
// returns it, so it can be shared and appended any number of times.
type Fragment struct {
	tags       []Tag
	floats     []float32
	words      []uint32
	transforms []Affine
	colors     []gg.RGBA
	bounds     Rect
	draws      int
}

// Empty is the fragment with no commands.
var Empty = &Fragment{bounds: EmptyRect()}

// Len returns the number of commands.
func (f *Fragment) Len() int {
	if f == nil {
		return 0
	}
	return len(f.tags)
}

// IsEmpty reports whether f has no commands.
func (f *Fragment) IsEmpty() bool {
	return f.Len() == 0
}

// Draws returns the number of pixel-producing commands.
func (f *Fragment) Draws() int {
	if f == nil {
		return 0
	}
	return f.draws
}

// Bounds returns the bounding box of everything f draws, in its own
// coordinate space.
func (f *Fragment) Bounds() Rect {
	if f == nil {
		return EmptyRect()
	}
	return f.bounds
}

// Count returns how many times tag occurs in the stream.
func (f *Fragment) Count(tag Tag) int {
	if f == nil {
		return 0
	}
	n := 0
	for _, t := range f.tags {
		if t == tag {
			n++
		}
	}
	return n
}

// Tags returns a copy of the tag stream.
func (f *Fragment) Tags() []Tag {
	if f == nil {
		return nil
	}
	return append([]Tag(nil), f.tags...)
}

// Size returns the length of the canonical serialization.
func (f *Fragment) Size() int {
	if f == nil {
		return 5 * 4
	}
	return 5*4 +
		len(f.tags) +
		len(f.floats)*4 +
		len(f.words)*4 +
		len(f.transforms)*6*4 +
		len(f.colors)*4*8
}

// Bytes returns the canonical little-endian serialization of f. Two
// fragments that render identically through the same append history have
// identical bytes.
func (f *Fragment) Bytes() []byte {
	if f == nil {
		f = Empty
	}
	buf := make([]byte, 0, f.Size())
	le := binary.LittleEndian

	buf = le.AppendUint32(buf, uint32(len(f.tags)))
	for _, t := range f.tags {
		buf = append(buf, byte(t))
	}
	buf = le.AppendUint32(buf, uint32(len(f.floats)))
	for _, v := range f.floats {
		buf = le.AppendUint32(buf, math.Float32bits(v))
	}
	buf = le.AppendUint32(buf, uint32(len(f.words)))
	for _, v := range f.words {
		buf = le.AppendUint32(buf, v)
	}
	buf = le.AppendUint32(buf, uint32(len(f.transforms)))
	for _, t := range f.transforms {
		for _, v := range [6]float32{t.A, t.B, t.C, t.D, t.E, t.F} {
			buf = le.AppendUint32(buf, math.Float32bits(v))
		}
	}
	buf = le.AppendUint32(buf, uint32(len(f.colors)))
	for _, c := range f.colors {
		for _, v := range [4]float64{c.R, c.G, c.B, c.A} {
			buf = le.AppendUint64(buf, math.Float64bits(v))
		}
	}
	return buf
}

// Hash returns the xxhash64 of the canonical serialization.
func (f *Fragment) Hash() uint64 {
	return xxhash.Sum64(f.Bytes())
}

// Command is one decoded command. Floats and Words alias the fragment's
// streams and must not be modified.
type Command struct {
	Tag       Tag
	Floats    []float32
	Words     []uint32
	Transform Affine  // TagPushTransform only
	Color     gg.RGBA // draw commands only
}

// Rule returns the fill rule of a TagFill command.
func (c Command) Rule() FillRule {
	if c.Tag != TagFill || len(c.Words) < 2 {
		return FillNonZero
	}
	return FillRule(c.Words[1])
}

// Glyphs decodes a TagGlyphRun command.
func (c Command) Glyphs() GlyphRun {
	if c.Tag != TagGlyphRun || len(c.Floats) < 4 || len(c.Words) < 2 {
		return GlyphRun{}
	}
	n := int(c.Words[1])
	run := GlyphRun{
		X:       c.Floats[0],
		Y:       c.Floats[1],
		Size:    c.Floats[2],
		Advance: c.Floats[3],
		Glyphs:  make([]Glyph, n),
	}
	for i := 0; i < n; i++ {
		run.Glyphs[i] = Glyph{ID: c.Words[2+i], X: c.Floats[4+i]}
	}
	return run
}

// Walk decodes f in stream order and calls fn for each command. It stops at
// the first error fn returns.
func (f *Fragment) Walk(fn func(Command) error) error {
	if f == nil {
		return nil
	}
	fi, wi, ti := 0, 0, 0
	for i, tag := range f.tags {
		cmd := Command{Tag: tag}
		nf, nw := tag.fixedData()
		if tag == TagGlyphRun {
			if wi+2 > len(f.words) {
				return fmt.Errorf("fragment: truncated glyph run at command %d", i)
			}
			n := int(f.words[wi+1])
			nf, nw = 4+n, 2+n
		}
		if fi+nf > len(f.floats) || wi+nw > len(f.words) {
			return fmt.Errorf("fragment: truncated %s at command %d", tag, i)
		}
		cmd.Floats = f.floats[fi : fi+nf]
		cmd.Words = f.words[wi : wi+nw]
		fi += nf
		wi += nw

		if tag == TagPushTransform {
			if ti >= len(f.transforms) {
				return fmt.Errorf("fragment: missing transform at command %d", i)
			}
			cmd.Transform = f.transforms[ti]
			ti++
		}
		if tag.IsDraw() {
			idx := int(cmd.Words[0])
			if idx >= len(f.colors) {
				return fmt.Errorf("fragment: colour %d out of range at command %d", idx, i)
			}
			cmd.Color = f.colors[idx]
		}
		if err := fn(cmd); err != nil {
			return err
		}
	}
	return nil
}

// Glyph is a positioned glyph. X is relative to the run origin.
type Glyph struct {
	ID uint32
	X  float32
}

// GlyphRun is a line of shaped text. Y is the baseline.
type GlyphRun struct {
	X, Y    float32
	Size    float32
	Advance float32
	Glyphs  []Glyph
}
