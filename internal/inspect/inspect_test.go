package inspect

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/XuHaoJun/rvue-sub001/pkg/compositor"
	"github.com/XuHaoJun/rvue-sub001/pkg/fragment"
	"github.com/XuHaoJun/rvue-sub001/pkg/frame"
	"github.com/XuHaoJun/rvue-sub001/pkg/reactive"
	"github.com/XuHaoJun/rvue-sub001/pkg/tree"
)

var (
	rootKind = &tree.Kind{Name: "root"}
	leafKind = &tree.Kind{Name: "leaf", ContentProps: []string{"text"}}
)

func newServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	tr := tree.New(reactive.NewRuntime())
	root := tr.NewRoot(rootKind, nil)
	if _, err := tr.Build(root, leafKind, tree.Props{"text": "hi"}); err != nil {
		t.Fatal(err)
	}
	s := New(tr, root, opts...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return s, ts
}

func result(seq uint64, fallback bool) *frame.Result {
	return &frame.Result{
		Seq:      seq,
		Fallback: fallback,
		Frame:    &compositor.Frame{Output: fragment.Empty, Stats: compositor.Stats{Visited: 2, Drawn: 2}},
		Nodes:    2,
	}
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func TestBeforeFirstFrame(t *testing.T) {
	_, ts := newServer(t)
	for _, path := range []string{"/tree", "/frame", "/frame.png"} {
		if resp, _ := get(t, ts.URL+path); resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, resp.StatusCode)
		}
	}
	if resp, body := get(t, ts.URL+"/healthz"); resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("healthz = %d %q", resp.StatusCode, body)
	}
}

func TestTreeAndFrame(t *testing.T) {
	s, ts := newServer(t)
	s.Observe(result(7, false))

	resp, body := get(t, ts.URL+"/tree")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /tree = %d", resp.StatusCode)
	}
	var snap tree.NodeSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Kind != "root" || len(snap.Children) != 1 || snap.Children[0].Props["text"] != "hi" {
		t.Errorf("snapshot = %+v", snap)
	}

	_, body = get(t, ts.URL+"/frame")
	var info FrameInfo
	if err := json.Unmarshal(body, &info); err != nil {
		t.Fatal(err)
	}
	if info.Seq != 7 || info.Drawn != 2 || info.Nodes != 2 || info.Hash == "" {
		t.Errorf("frame = %+v", info)
	}
}

func TestFallbackFrameHidesStats(t *testing.T) {
	info := NewFrameInfo(result(3, true))
	if !info.Fallback || info.Drawn != 0 || info.Hash == "" {
		t.Errorf("info = %+v", info)
	}
}

func TestImage(t *testing.T) {
	tests := []struct {
		name   string
		encode func(io.Writer) error
		status int
	}{
		{
			name:   "encoded",
			encode: func(w io.Writer) error { _, err := w.Write([]byte("\x89PNG")); return err },
			status: http.StatusOK,
		},
		{
			name:   "no image",
			encode: func(io.Writer) error { return errors.New("nothing presented") },
			status: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ts := newServer(t, WithImage(tt.encode))
			resp, _ := get(t, ts.URL+"/frame.png")
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.status == http.StatusOK && resp.Header.Get("Content-Type") != "image/png" {
				t.Errorf("content type = %q", resp.Header.Get("Content-Type"))
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "rvue_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	_, ts := newServer(t, WithGatherer(reg))
	_, body := get(t, ts.URL+"/metrics")
	if !strings.Contains(string(body), "rvue_test_total 1") {
		t.Errorf("metrics body:\n%s", body)
	}
}

func TestStream(t *testing.T) {
	s, ts := newServer(t)
	s.Observe(result(1, false))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/frames"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	read := func() FrameInfo {
		t.Helper()
		var info FrameInfo
		if err := conn.ReadJSON(&info); err != nil {
			t.Fatal(err)
		}
		return info
	}

	// The last published frame is sent on connect.
	if info := read(); info.Seq != 1 {
		t.Errorf("first message seq = %d, want 1", info.Seq)
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.Observe(result(2, false))
	if info := read(); info.Seq != 2 {
		t.Errorf("streamed seq = %d, want 2", info.Seq)
	}
}
