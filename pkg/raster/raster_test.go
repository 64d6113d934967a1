package raster

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/gogpu/gg"

	"github.com/XuHaoJun/rvue-sub001/pkg/fragment"
)

func build(t *testing.T, fn func(b *fragment.Builder)) *fragment.Fragment {
	t.Helper()
	b := fragment.NewBuilder()
	fn(b)
	f, err := b.Finish()
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func isRed(img *image.RGBA, x, y int) bool {
	c := img.RGBAAt(x, y)
	return c.R > 200 && c.G < 60 && c.B < 60
}

func isWhite(img *image.RGBA, x, y int) bool {
	c := img.RGBAAt(x, y)
	return c.R > 240 && c.G > 240 && c.B > 240
}

func TestRasterizeRect(t *testing.T) {
	f := build(t, func(b *fragment.Builder) {
		b.FillRect(2, 2, 4, 4, gg.RGB(1, 0, 0))
	})
	img, err := Rasterize(f, 10, 10, gg.White, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !isRed(img, 3, 3) {
		t.Errorf("(3,3) = %v, want red", img.RGBAAt(3, 3))
	}
	if !isWhite(img, 8, 8) {
		t.Errorf("(8,8) = %v, want background", img.RGBAAt(8, 8))
	}
}

func TestRasterizeAppliesTransforms(t *testing.T) {
	child := build(t, func(b *fragment.Builder) {
		b.FillRect(0, 0, 2, 2, gg.RGB(1, 0, 0))
	})
	f := build(t, func(b *fragment.Builder) {
		b.Append(child, fragment.Translate(6, 6))
	})
	img, err := Rasterize(f, 10, 10, gg.White, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !isRed(img, 7, 7) {
		t.Errorf("(7,7) = %v, want red", img.RGBAAt(7, 7))
	}
	if !isWhite(img, 1, 1) {
		t.Errorf("(1,1) = %v, want background", img.RGBAAt(1, 1))
	}
}

func TestRasterizeGlyphs(t *testing.T) {
	f := build(t, func(b *fragment.Builder) {
		b.GlyphRun(fragment.GlyphRun{
			X: 1, Y: 12, Size: 13, Advance: 7,
			Glyphs: []fragment.Glyph{{ID: 'H'}},
		}, gg.RGB(1, 0, 0))
	})
	img, err := Rasterize(f, 10, 16, gg.White, nil)
	if err != nil {
		t.Fatal(err)
	}
	red := 0
	for y := 0; y < 16; y++ {
		for x := 0; x < 10; x++ {
			if isRed(img, x, y) {
				red++
			}
		}
	}
	if red == 0 {
		t.Error("glyph run drew nothing")
	}
}

func TestBackendPresent(t *testing.T) {
	b := New(8, 8, WithBackground(gg.White))
	if err := b.EncodePNG(&bytes.Buffer{}); !errors.Is(err, ErrNoImage) {
		t.Fatalf("EncodePNG before present = %v", err)
	}

	ctx := context.Background()
	s, err := b.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	f := build(t, func(fb *fragment.Builder) { fb.FillRect(0, 0, 8, 8, gg.RGB(1, 0, 0)) })
	if err := s.Present(ctx, f); err != nil {
		t.Fatal(err)
	}
	if err := b.Release(s); err != nil {
		t.Fatal(err)
	}
	if b.Frames() != 1 || !isRed(b.Image(), 4, 4) {
		t.Errorf("frames = %d, pixel = %v", b.Frames(), b.Image().RGBAAt(4, 4))
	}

	var buf bytes.Buffer
	if err := b.EncodePNG(&buf); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("decoded width = %d", img.Bounds().Dx())
	}
}

func TestAcquireCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(4, 4).Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}
