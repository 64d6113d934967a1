// Package inspect serves a read-only view of a running UI over HTTP: the
// component tree, the last frame's statistics, the rendered image, the
// Prometheus registry and a WebSocket stream of frame statistics.
//
// The UI goroutine publishes through Observe; HTTP handlers only ever read
// what was last published.
package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/XuHaoJun/rvue-sub001/pkg/frame"
	"github.com/XuHaoJun/rvue-sub001/pkg/tree"
)

// DefaultClientBuffer is how many frame messages a slow WebSocket client may
// fall behind before messages are dropped for it.
const DefaultClientBuffer = 16

// FrameInfo summarizes one frame for the inspector.
type FrameInfo struct {
	Seq           uint64  `json:"seq"`
	Fallback      bool    `json:"fallback"`
	Hash          string  `json:"hash,omitempty"`
	Visited       int     `json:"visited"`
	Drawn         int     `json:"drawn"`
	Reused        int     `json:"reused"`
	LayersReused  int     `json:"layersReused"`
	AppendedBytes int     `json:"appendedBytes"`
	Nodes         int     `json:"nodes"`
	Signals       int     `json:"signals"`
	Effects       int     `json:"effects"`
	EffectRuns    uint64  `json:"effectRuns"`
	Overruns      uint64  `json:"overruns"`
	TotalMillis   float64 `json:"totalMs"`
}

// NewFrameInfo builds the summary of res.
func NewFrameInfo(res *frame.Result) FrameInfo {
	info := FrameInfo{
		Seq:         res.Seq,
		Fallback:    res.Fallback,
		Nodes:       res.Nodes,
		Signals:     res.Runtime.Signals,
		Effects:     res.Runtime.Effects,
		EffectRuns:  res.Runtime.EffectRuns,
		Overruns:    res.Runtime.Overruns,
		TotalMillis: float64(res.Timing.Total) / float64(time.Millisecond),
	}
	if res.Frame != nil {
		info.Hash = fmt.Sprintf("%016x", res.Frame.Hash())
		if !res.Fallback {
			s := res.Frame.Stats
			info.Visited, info.Drawn, info.Reused = s.Visited, s.Drawn, s.Reused
			info.LayersReused, info.AppendedBytes = s.LayersReused, s.AppendedBytes
		}
	}
	return info
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server is the inspector.
type Server struct {
	tree     *tree.Tree
	root     tree.Handle
	gatherer prometheus.Gatherer
	image    func(io.Writer) error
	logger   *slog.Logger
	buffer   int

	mu       sync.RWMutex
	snapshot *tree.NodeSnapshot
	last     *FrameInfo

	cmu     sync.Mutex
	clients map[*client]struct{}

	upgrader websocket.Upgrader
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithGatherer exposes g at /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithImage serves the PNG written by encode at /frame.png. It is called on
// the request goroutine and must be safe for that.
func WithImage(encode func(io.Writer) error) Option {
	return func(s *Server) {
		s.image = encode
	}
}

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClientBuffer sets the per-client message buffer.
func WithClientBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.buffer = n
		}
	}
}

// New creates an inspector for the subtree of t rooted at root.
func New(t *tree.Tree, root tree.Handle, opts ...Option) *Server {
	s := &Server{
		tree:     t,
		root:     root,
		gatherer: prometheus.DefaultGatherer,
		logger:   slog.Default(),
		buffer:   DefaultClientBuffer,
		clients:  make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local tool
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/tree", s.handleTree)
	r.Get("/frame", s.handleFrame)
	r.Get("/frame.png", s.handleImage)
	r.Get("/frames", s.handleStream)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	s.router = r
	return s
}

// Handler returns the inspector's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Observe publishes res and the current tree. It must be called on the UI
// goroutine; register it with frame.Driver.OnFrame.
func (s *Server) Observe(res *frame.Result) {
	info := NewFrameInfo(res)
	var snap *tree.NodeSnapshot
	if ns, err := s.tree.Snapshot(s.root); err == nil {
		snap = &ns
	}

	s.mu.Lock()
	s.last = &info
	s.snapshot = snap
	s.mu.Unlock()

	data, err := json.Marshal(info)
	if err != nil {
		return
	}
	s.cmu.Lock()
	defer s.cmu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			s.logger.Debug("inspect: client behind, dropping frame", "seq", info.Seq)
		}
	}
}

// ClientCount returns the number of connected stream clients.
func (s *Server) ClientCount() int {
	s.cmu.Lock()
	defer s.cmu.Unlock()
	return len(s.clients)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleTree(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()
	if snap == nil {
		http.Error(w, "no frame yet", http.StatusNotFound)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleFrame(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last == nil {
		http.Error(w, "no frame yet", http.StatusNotFound)
		return
	}
	writeJSON(w, last)
}

type headerWriter struct {
	w     http.ResponseWriter
	wrote bool
}

func (h *headerWriter) Write(p []byte) (int, error) {
	if !h.wrote {
		h.w.Header().Set("Content-Type", "image/png")
		h.wrote = true
	}
	return h.w.Write(p)
}

func (s *Server) handleImage(w http.ResponseWriter, _ *http.Request) {
	if s.image == nil {
		http.Error(w, "no image source", http.StatusNotFound)
		return
	}
	hw := &headerWriter{w: w}
	if err := s.image(hw); err != nil && !hw.wrote {
		http.Error(w, err.Error(), http.StatusNotFound)
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn, send: make(chan []byte, s.buffer)}

	s.cmu.Lock()
	s.clients[c] = struct{}{}
	s.cmu.Unlock()

	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last != nil {
		if data, err := json.Marshal(last); err == nil {
			c.send <- data
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		s.cmu.Lock()
		delete(s.clients, c)
		s.cmu.Unlock()
		conn.Close()
	}()
	for {
		select {
		case data := <-c.send:
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// Close disconnects every stream client.
func (s *Server) Close() {
	s.cmu.Lock()
	defer s.cmu.Unlock()
	for c := range s.clients {
		c.conn.Close()
		delete(s.clients, c)
	}
}

// ListenAndServe serves the inspector on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("inspector listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Close()
		if err := srv.Shutdown(shutdown); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
