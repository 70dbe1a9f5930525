package matrixrelay

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ─── HTTP / WebSocket Sunucusu ──────────────────────────────────────────────────
//
//	GET /    → controller arayüzü (statik dizin veya gömülü index.html)
//	GET /ws  → WebSocket; controller ve cihazlar aynı uç noktayı kullanır
//
// Sunucu başlarken Registry oluşturulur, Shutdown ile tüm bağlantılar kapatılır.

//go:embed static/index.html
var staticFS embed.FS

// Server, relay'in HTTP ve WebSocket uç noktalarını sunar.
//
//	srv, err := matrixrelay.NewServer(":9122",
//	    matrixrelay.WithLogger(log.Default()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go srv.ListenAndServe()
//	defer srv.Shutdown(context.Background())
type Server struct {
	addr       string
	opts       options
	registry   *Registry
	router     *Router
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
	http       *http.Server

	// mu, conns için mutex'tir.
	mu    sync.Mutex
	conns map[*Conn]struct{}

	// wg, açık bağlantı goroutine'lerini sayar.
	wg sync.WaitGroup
}

// NewServer, yeni bir Server oluşturur. Dinlemeye başlamaz.
// Çizici verilmezse yalnızca gömülü Go fontunu kullanan bir GlyphPainter kurulur.
func NewServer(addr string, opts ...Option) (*Server, error) {
	o := buildOptions(opts)

	if o.painter == nil {
		lib, err := NewFontLibrary(o.logger)
		if err != nil {
			return nil, err
		}
		o.painter = NewGlyphPainter(lib)
		if o.fonts == nil {
			o.fonts = lib
		}
	}

	s := &Server{
		addr:     addr,
		opts:     o,
		registry: NewRegistry(),
		conns:    make(map[*Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 16384,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.router = NewRouter(s.registry, opts...)
	s.dispatcher = NewDispatcher(s.router, NewRenderer(o.painter, o.fonts), opts...)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Registry, sunucunun bağlantı kaydını döner.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Router, sunucunun yönlendiricisini döner.
func (s *Server) Router() *Router {
	return s.router
}

// Handler, "/" ve "/ws" yollarını içeren HTTP handler'ı döner.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.ServeWS)
	mux.Handle("/", s.staticHandler())
	return mux
}

func (s *Server) staticHandler() http.Handler {
	if s.opts.staticDir != "" {
		return http.FileServer(http.Dir(s.opts.staticDir))
	}
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

// ServeWS, isteği WebSocket'e yükseltir ve bağlantı kapanana kadar mesajları işler.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logf(s.opts.logger, "WebSocket yükseltme hatası: %v", err)
		return
	}

	c := newConn(ws, s.opts)
	s.wg.Add(1)
	defer s.wg.Done()
	s.track(c, true)
	defer s.track(c, false)

	if err := s.dispatcher.Open(c); err != nil {
		logf(s.opts.logger, "bağlantı reddedildi (%s): %v", r.RemoteAddr, err)
		_ = c.Close()
		return
	}
	defer s.dispatcher.Close(c)
	defer c.Close()

	logf(s.opts.logger, "bağlantı kabul edildi: %s (%s)", c.ID(), r.RemoteAddr)
	c.serve(s.dispatcher)
}

func (s *Server) track(c *Conn, open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if open {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

// ListenAndServe, sunucuyu başlatır ve Shutdown çağrılana kadar bloklar.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("dinleme başlatılamadı: %w", err)
	}
	return s.Serve(ln)
}

// Serve, verilen listener üzerinde sunar.
func (s *Server) Serve(ln net.Listener) error {
	logf(s.opts.logger, "dinleniyor: %s", ln.Addr())
	err := s.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown, yeni bağlantıları durdurur, açık WebSocket bağlantılarını kapatır
// ve bağlantı goroutine'lerinin bitmesini bekler.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)

	s.registry.Close()
	s.mu.Lock()
	conns := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}
