// Package snapshot archives rendered frames as PNG images with JSON
// metadata, on local disk or in S3.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/XuHaoJun/rvue-sub001/pkg/frame"
	"github.com/XuHaoJun/rvue-sub001/pkg/raster"
)

// ErrNotFound is returned by Get for an unknown name.
var ErrNotFound = errors.New("snapshot: not found")

// Meta describes an archived frame.
type Meta struct {
	Seq       uint64    `json:"seq"`
	Hash      string    `json:"hash"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Drawn     int       `json:"drawn"`
	Reused    int       `json:"reused"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store archives frames by name.
type Store interface {
	Put(ctx context.Context, name string, png []byte, meta Meta) error
	Get(ctx context.Context, name string) ([]byte, Meta, error)
	// List returns the archived names in ascending order.
	List(ctx context.Context) ([]string, error)
}

// Name returns the archive name of frame seq.
func Name(seq uint64) string {
	return fmt.Sprintf("frame-%08d", seq)
}

// Recorder archives presented frames from a raster backend.
type Recorder struct {
	store   Store
	backend *raster.Backend
	every   uint64
	timeout time.Duration
	logger  *slog.Logger

	saved  int
	failed int
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// Every archives one frame in n.
func Every(n uint64) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.every = n
		}
	}
}

// WithTimeout bounds each Put.
func WithTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		r.timeout = d
	}
}

// WithLogger sets the logger used for failed writes.
func WithLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRecorder creates a recorder. Register its Observe method with
// frame.Driver.OnFrame.
func NewRecorder(store Store, backend *raster.Backend, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:   store,
		backend: backend,
		every:   1,
		timeout: 10 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Observe archives res if it is a freshly presented frame due for
// archiving. Failures are logged and counted; they never affect the frame.
func (r *Recorder) Observe(res *frame.Result) {
	if res == nil || res.Fallback || res.Frame == nil || res.Seq%r.every != 0 {
		return
	}
	if err := r.Save(context.Background(), res); err != nil {
		r.failed++
		r.logger.Warn("snapshot: save failed", "seq", res.Seq, "error", err)
	}
}

// Save archives the backend's current image as res.
func (r *Recorder) Save(ctx context.Context, res *frame.Result) error {
	img := r.backend.Image()
	if img == nil {
		return raster.ErrNoImage
	}
	var buf bytes.Buffer
	if err := r.backend.EncodePNG(&buf); err != nil {
		return err
	}
	meta := Meta{
		Seq:       res.Seq,
		Hash:      fmt.Sprintf("%016x", res.Frame.Hash()),
		Width:     img.Bounds().Dx(),
		Height:    img.Bounds().Dy(),
		Drawn:     res.Frame.Stats.Drawn,
		Reused:    res.Frame.Stats.Reused,
		CreatedAt: time.Now().UTC(),
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if err := r.store.Put(ctx, Name(res.Seq), buf.Bytes(), meta); err != nil {
		return err
	}
	r.saved++
	return nil
}

// Stats returns the number of frames saved and failed.
func (r *Recorder) Stats() (saved, failed int) {
	return r.saved, r.failed
}
