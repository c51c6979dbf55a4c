// Package reload pushes reload events to browsers over Socket.IO and
// optionally proxies the development site with the reload client injected.
package reload

import (
	"context"
	_ "embed"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"
	"go.trai.ch/zerr"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
)

const (
	// SocketPath is where browsers open their Socket.IO session.
	SocketPath = "/basis/socket.io"
	// ClientPath serves the reload client script.
	ClientPath = "/basis/client.js"

	// EventInject asks browsers to hot-swap the listed stylesheets.
	EventInject = "inject"
	// EventReload asks browsers to reload the page.
	EventReload = "reload"

	shutdownTimeout = 5 * time.Second
)

//go:embed client.js
var clientScript []byte

var _ ports.Broadcaster = (*Server)(nil)

// Server is the reload broadcaster.
type Server struct {
	logger ports.Logger

	mu       sync.Mutex
	io       *socket.Server
	sessions atomic.Int64
}

// NewServer creates a Server. Connections are logged to logger when set.
func NewServer(logger ports.Logger) *Server {
	return &Server{logger: logger}
}

// Handler builds the HTTP handler serving the Socket.IO endpoint, the client
// script and, when settings.Proxy is set, the proxied site.
func (s *Server) Handler(settings domain.ReloadSettings) (http.Handler, error) {
	mux := http.NewServeMux()
	mux.Handle(SocketPath+"/", s.socketHandler())
	mux.HandleFunc(ClientPath, serveClient)

	if settings.Proxy == "" {
		mux.HandleFunc("/", s.serveStatus)
		return mux, nil
	}

	proxy, err := NewProxy(settings.Proxy)
	if err != nil {
		return nil, err
	}
	mux.Handle("/", proxy)
	return mux, nil
}

// Serve listens on settings.Addr until ctx is canceled.
// It returns immediately when reloading is disabled.
func (s *Server) Serve(ctx context.Context, settings domain.ReloadSettings) error {
	if !settings.Enabled {
		return nil
	}

	handler, err := s.Handler(settings)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", settings.Addr)
	if err != nil {
		return zerr.With(domain.Caused(domain.ErrReloadServerFailed, err), "addr", settings.Addr)
	}

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	s.info("reload server listening on " + listener.Addr().String())

	select {
	case err := <-errCh:
		s.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return domain.Caused(domain.ErrReloadServerFailed, err)
	case <-ctx.Done():
	}

	s.close()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return domain.Caused(domain.ErrReloadServerFailed, err)
	}
	return nil
}

// Broadcast sends the event to every connected session.
// Without sessions, or for ReloadNone, it does nothing.
func (s *Server) Broadcast(_ context.Context, event domain.ReloadEvent) error {
	s.mu.Lock()
	io := s.io
	s.mu.Unlock()

	if io == nil || s.Sessions() == 0 {
		return nil
	}

	var err error
	switch event.Mode {
	case domain.ReloadInject:
		paths := event.Paths
		if paths == nil {
			paths = []string{}
		}
		err = io.Sockets().Emit(EventInject, paths)
	case domain.ReloadFull:
		err = io.Sockets().Emit(EventReload)
	default:
		return nil
	}
	if err != nil {
		return zerr.With(domain.Caused(domain.ErrReloadServerFailed, err), "mode", string(event.Mode))
	}
	return nil
}

// Sessions returns the number of connected browser sessions.
func (s *Server) Sessions() int {
	return int(s.sessions.Load())
}

func (s *Server) socketHandler() http.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.io == nil {
		opts := socket.DefaultServerOptions()
		opts.SetPath(SocketPath)
		opts.SetServeClient(false)
		opts.SetCors(&types.Cors{Origin: "*", Credentials: true})

		s.io = socket.NewServer(nil, opts)
		_ = s.io.On("connection", s.onConnection)
	}
	return s.io.ServeHandler(nil)
}

func (s *Server) onConnection(clients ...any) {
	client, ok := clients[0].(*socket.Socket)
	if !ok {
		return
	}
	n := s.sessions.Add(1)
	s.info("browser connected (" + strconv.FormatInt(n, 10) + " sessions)")

	_ = client.On("disconnect", func(...any) {
		s.sessions.Add(-1)
	})
}

func (s *Server) close() {
	s.mu.Lock()
	io := s.io
	s.mu.Unlock()
	if io != nil {
		io.Close(nil)
	}
}

func (s *Server) serveStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("basis reload server: " + strconv.Itoa(s.Sessions()) + " session(s)\n" +
		"add <script async src=\"" + ClientPath + "\"></script> to your pages\n"))
}

func serveClient(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(clientScript)
}

func (s *Server) info(msg string) {
	if s.logger != nil {
		s.logger.Info(msg)
	}
}
