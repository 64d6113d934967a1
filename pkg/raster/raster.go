// Package raster draws fragments into pixels with the gg software renderer.
//
// Render executes a fragment's command stream against a *gg.Context. Backend
// wraps that as a frame.Backend: each frame gets a fresh context, and the
// last presented image is kept for inspection and PNG export.
//
// Glyph runs are drawn from a bitmap font.Face at the face's native size,
// placed at the run origin under the current transform. Bitmap glyphs are
// not clipped by PushClip.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"sync"

	"github.com/gogpu/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/XuHaoJun/rvue-sub001/pkg/fragment"
	"github.com/XuHaoJun/rvue-sub001/pkg/frame"
)

// ErrNoImage is returned by EncodePNG before the first frame is presented.
var ErrNoImage = errors.New("raster: nothing presented yet")

// DefaultFace is the face used for glyph runs when none is configured.
var DefaultFace font.Face = basicfont.Face7x13

// Render draws f into dc. The context's transform and clip are restored
// before Render returns.
func Render(dc *gg.Context, f *fragment.Fragment, face font.Face) error {
	if face == nil {
		face = DefaultFace
	}
	r := &renderer{dc: dc, face: face}
	dc.Push()
	defer func() {
		for ; r.depth > 0; r.depth-- {
			dc.Pop()
		}
		dc.Pop()
	}()
	return f.Walk(r.exec)
}

type renderer struct {
	dc    *gg.Context
	face  font.Face
	depth int // Push calls not yet matched by Pop
}

func (r *renderer) exec(cmd fragment.Command) error {
	dc := r.dc
	p := cmd.Floats
	f := func(i int) float64 { return float64(p[i]) }

	switch cmd.Tag {
	case fragment.TagPushTransform:
		dc.Push()
		r.depth++
		dc.Transform(cmd.Transform.Matrix())
	case fragment.TagPopTransform, fragment.TagPopClip:
		if r.depth == 0 {
			return fmt.Errorf("raster: unbalanced %s", cmd.Tag)
		}
		dc.Pop()
		r.depth--
	case fragment.TagPushClip:
		dc.Push()
		r.depth++
		dc.ClipRect(f(0), f(1), f(2), f(3))

	case fragment.TagBeginPath:
		dc.ClearPath()
	case fragment.TagMoveTo:
		dc.MoveTo(f(0), f(1))
	case fragment.TagLineTo:
		dc.LineTo(f(0), f(1))
	case fragment.TagQuadTo:
		dc.QuadraticTo(f(0), f(1), f(2), f(3))
	case fragment.TagCubicTo:
		dc.CubicTo(f(0), f(1), f(2), f(3), f(4), f(5))
	case fragment.TagClosePath:
		dc.ClosePath()
	case fragment.TagEndPath:

	case fragment.TagFill:
		setColor(dc, cmd.Color)
		if cmd.Rule() == fragment.FillEvenOdd {
			dc.SetFillRule(gg.FillRuleEvenOdd)
		} else {
			dc.SetFillRule(gg.FillRuleNonZero)
		}
		return dc.Fill()
	case fragment.TagStroke:
		setColor(dc, cmd.Color)
		dc.SetLineWidth(f(0))
		return dc.Stroke()
	case fragment.TagFillRect:
		setColor(dc, cmd.Color)
		dc.SetFillRule(gg.FillRuleNonZero)
		dc.DrawRectangle(f(0), f(1), f(2), f(3))
		return dc.Fill()
	case fragment.TagStrokeRect:
		setColor(dc, cmd.Color)
		dc.SetLineWidth(f(4))
		dc.DrawRectangle(f(0), f(1), f(2), f(3))
		return dc.Stroke()
	case fragment.TagGlyphRun:
		r.glyphs(cmd.Glyphs(), cmd.Color)
	default:
		return fmt.Errorf("raster: unknown command %s", cmd.Tag)
	}
	return nil
}

func setColor(dc *gg.Context, c gg.RGBA) {
	dc.SetRGBA(c.R, c.G, c.B, c.A)
}

// glyphs blits each glyph's mask pixel by pixel through the current
// transform.
func (r *renderer) glyphs(run fragment.GlyphRun, c gg.RGBA) {
	dc := r.dc
	w, h := dc.Width(), dc.Height()
	for _, g := range run.Glyphs {
		dot := fixed.P(0, 0)
		dr, mask, mp, _, ok := r.face.Glyph(dot, rune(g.ID))
		if !ok {
			continue
		}
		ox := float64(run.X + g.X)
		oy := float64(run.Y)
		for y := dr.Min.Y; y < dr.Max.Y; y++ {
			for x := dr.Min.X; x < dr.Max.X; x++ {
				_, _, _, a := mask.At(mp.X+x-dr.Min.X, mp.Y+y-dr.Min.Y).RGBA()
				if a == 0 {
					continue
				}
				dx, dy := dc.TransformPoint(ox+float64(x)+0.5, oy+float64(y)+0.5)
				px, py := int(math.Floor(dx)), int(math.Floor(dy))
				if px < 0 || py < 0 || px >= w || py >= h {
					continue
				}
				pc := c
				pc.A *= float64(a) / 0xffff
				dc.SetPixel(px, py, pc)
			}
		}
	}
}

// Rasterize renders f onto a new width×height image over background.
func Rasterize(f *fragment.Fragment, width, height int, background gg.RGBA, face font.Face) (*image.RGBA, error) {
	dc := gg.NewContext(width, height)
	defer dc.Close()
	dc.ClearWithColor(background)
	if err := Render(dc, f, face); err != nil {
		return nil, err
	}
	if err := dc.FlushGPU(); err != nil {
		return nil, err
	}
	img, _ := dc.Image().(*image.RGBA)
	return img, nil
}

// Backend is a frame.Backend that rasterizes into fresh gg contexts.
type Backend struct {
	width, height int
	background    gg.RGBA
	face          font.Face

	mu     sync.Mutex
	last   *image.RGBA
	frames int
}

// Option configures a Backend.
type Option func(*Backend)

// WithBackground sets the clear colour.
func WithBackground(c gg.RGBA) Option {
	return func(b *Backend) {
		b.background = c
	}
}

// WithFace sets the face used for glyph runs.
func WithFace(face font.Face) Option {
	return func(b *Backend) {
		if face != nil {
			b.face = face
		}
	}
}

// New creates a backend that renders width×height frames.
func New(width, height int, opts ...Option) *Backend {
	b := &Backend{
		width:      width,
		height:     height,
		background: gg.White,
		face:       DefaultFace,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Surface is one frame's render target.
type Surface struct {
	b  *Backend
	dc *gg.Context
}

// Acquire implements frame.Backend.
func (b *Backend) Acquire(ctx context.Context) (frame.Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dc := gg.NewContext(b.width, b.height)
	dc.ClearWithColor(b.background)
	return &Surface{b: b, dc: dc}, nil
}

// Release implements frame.Backend.
func (b *Backend) Release(s frame.Surface) error {
	rs, ok := s.(*Surface)
	if !ok {
		return fmt.Errorf("raster: foreign surface %T", s)
	}
	return rs.dc.Close()
}

// Present renders f and publishes the result as the backend's last image.
func (s *Surface) Present(ctx context.Context, f *fragment.Fragment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := Render(s.dc, f, s.b.face); err != nil {
		return err
	}
	if err := s.dc.FlushGPU(); err != nil {
		return err
	}
	img, _ := s.dc.Image().(*image.RGBA)

	s.b.mu.Lock()
	s.b.last = img
	s.b.frames++
	s.b.mu.Unlock()
	return nil
}

// Image returns the last presented image, or nil. The image must not be
// modified.
func (b *Backend) Image() *image.RGBA {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// Frames returns how many frames have been presented.
func (b *Backend) Frames() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

// EncodePNG writes the last presented image as PNG.
func (b *Backend) EncodePNG(w io.Writer) error {
	img := b.Image()
	if img == nil {
		return ErrNoImage
	}
	return png.Encode(w, img)
}
