package widget

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/XuHaoJun/rvue-sub001/pkg/fragment"
)

// DefaultShapeCacheSize is used when NewShaper is given a size below 1.
const DefaultShapeCacheSize = 512

// Shaped is a shaped line of text.
type Shaped struct {
	Glyphs  []fragment.Glyph
	Advance float32
}

// Shaper converts text into positioned glyphs and caches the result by
// string.
type Shaper struct {
	face  font.Face
	cache *lru.Cache[string, Shaped]

	mu     sync.Mutex
	hits   int
	misses int
}

// NewShaper creates a shaper for face. A nil face uses basicfont.Face7x13.
func NewShaper(face font.Face, size int) (*Shaper, error) {
	if face == nil {
		face = basicfont.Face7x13
	}
	if size < 1 {
		size = DefaultShapeCacheSize
	}
	cache, err := lru.New[string, Shaped](size)
	if err != nil {
		return nil, err
	}
	return &Shaper{face: face, cache: cache}, nil
}

// Face returns the shaper's face.
func (s *Shaper) Face() font.Face {
	return s.face
}

// Shape returns the glyphs of text. The result is shared and must not be
// modified.
func (s *Shaper) Shape(text string) Shaped {
	if v, ok := s.cache.Get(text); ok {
		s.mu.Lock()
		s.hits++
		s.mu.Unlock()
		return v
	}

	var out Shaped
	var x fixed.Int26_6
	prev := rune(-1)
	for _, r := range text {
		if prev >= 0 {
			x += s.face.Kern(prev, r)
		}
		adv, ok := s.face.GlyphAdvance(r)
		if !ok {
			// Missing glyphs still take up space.
			adv, _ = s.face.GlyphAdvance('?')
		}
		out.Glyphs = append(out.Glyphs, fragment.Glyph{ID: uint32(r), X: toFloat(x)})
		x += adv
		prev = r
	}
	out.Advance = toFloat(x)

	s.cache.Add(text, out)
	s.mu.Lock()
	s.misses++
	s.mu.Unlock()
	return out
}

// Metrics returns the ascent and line height of the face.
func (s *Shaper) Metrics() (ascent, height float32) {
	m := s.face.Metrics()
	return toFloat(m.Ascent), toFloat(m.Height)
}

// Stats returns cache hits and misses.
func (s *Shaper) Stats() (hits, misses int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses
}

func toFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64
}
