package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gogpu/gg"
	"github.com/google/go-cmp/cmp"

	"github.com/XuHaoJun/rvue-sub001/pkg/compositor"
	"github.com/XuHaoJun/rvue-sub001/pkg/fragment"
	"github.com/XuHaoJun/rvue-sub001/pkg/frame"
	"github.com/XuHaoJun/rvue-sub001/pkg/raster"
)

// memS3 is an in-memory S3API.
type memS3 struct {
	objects map[string]*s3.PutObjectInput
	bodies  map[string][]byte
}

func newMemS3() *memS3 {
	return &memS3{objects: map[string]*s3.PutObjectInput{}, bodies: map[string][]byte{}}
}

func (m *memS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	m.objects[key] = in
	m.bodies[key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *memS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	obj, ok := m.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:     io.NopCloser(bytes.NewReader(m.bodies[key])),
		Metadata: obj.Metadata,
	}, nil
}

func (m *memS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{}
	bucket := aws.ToString(in.Bucket) + "/"
	for key := range m.objects {
		k, ok := strings.CutPrefix(key, bucket)
		if ok && strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
		}
	}
	return out, nil
}

func sampleMeta(seq uint64) Meta {
	return Meta{
		Seq:       seq,
		Hash:      "00000000deadbeef",
		Width:     4,
		Height:    4,
		Drawn:     2,
		Reused:    1,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func testStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	for _, seq := range []uint64{3, 1, 2} {
		if err := store.Put(ctx, Name(seq), []byte{byte(seq)}, sampleMeta(seq)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	names, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{Name(1), Name(2), Name(3)}, names); diff != "" {
		t.Errorf("List (-want +got):\n%s", diff)
	}

	png, meta, err := store.Get(ctx, Name(2))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(png, []byte{2}) {
		t.Errorf("png = %v", png)
	}
	if diff := cmp.Diff(sampleMeta(2), meta); diff != "" {
		t.Errorf("meta (-want +got):\n%s", diff)
	}

	if _, _, err := store.Get(ctx, Name(9)); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
}

func TestDirStore(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	testStore(t, store)
}

func TestS3Store(t *testing.T) {
	mem := newMemS3()
	testStore(t, NewS3Store(mem, "bucket", "frames/"))

	put := mem.objects["bucket/frames/"+Name(1)+".png"]
	if put == nil || aws.ToString(put.ContentType) != "image/png" {
		t.Errorf("object = %+v", put)
	}
}

func TestName(t *testing.T) {
	if got := Name(42); got != "frame-00000042" {
		t.Errorf("Name(42) = %q", got)
	}
}

func TestRecorder(t *testing.T) {
	backend := raster.New(4, 4)
	ctx := context.Background()
	b := fragment.NewBuilder()
	b.FillRect(0, 0, 4, 4, gg.RGB(1, 0, 0))
	f, err := b.Finish()
	if err != nil {
		t.Fatal(err)
	}
	s, _ := backend.Acquire(ctx)
	if err := s.Present(ctx, f); err != nil {
		t.Fatal(err)
	}
	_ = backend.Release(s)

	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	rec := NewRecorder(store, backend, Every(2))
	composed := &compositor.Frame{Output: f, Stats: compositor.Stats{Drawn: 1}}

	rec.Observe(&frame.Result{Seq: 1, Frame: composed})
	rec.Observe(&frame.Result{Seq: 2, Frame: composed})
	rec.Observe(&frame.Result{Seq: 4, Frame: composed, Fallback: true})

	if saved, failed := rec.Stats(); saved != 1 || failed != 0 {
		t.Fatalf("saved %d failed %d", saved, failed)
	}
	_, meta, err := store.Get(ctx, Name(2))
	if err != nil {
		t.Fatal(err)
	}
	if meta.Width != 4 || meta.Drawn != 1 || meta.Hash == "" {
		t.Errorf("meta = %+v", meta)
	}
}
