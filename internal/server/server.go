package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/espmesh/internal/discovery"
	"github.com/muurk/espmesh/internal/espmesh"
	"github.com/muurk/espmesh/internal/host"
	"github.com/muurk/espmesh/internal/logging"
	"github.com/muurk/espmesh/internal/protocol"
	"github.com/muurk/espmesh/internal/version"
)

// Config holds the server configuration
type Config struct {
	Host     string
	Port     int
	CertPath string // TLS certificate; plain ws:// when empty
	KeyPath  string

	// Advertise registers the server over mDNS as Instance
	Advertise bool
	Instance  string
}

// Server exposes a mesh to remote clients over WebSocket. It owns the mesh
// event handler slot and fans events out to every subscribed client.
type Server struct {
	config    *Config
	binding   *host.Binding
	tlsConfig *tls.Config
	upgrader  websocket.Upgrader

	httpServer *http.Server
	listener   net.Listener
	advert     *discovery.Advertisement

	wg      sync.WaitGroup
	mu      sync.Mutex
	clients map[*client]struct{}
}

// New creates a server for b and installs its event broadcaster as the
// mesh event handler.
func New(config *Config, b *host.Binding) (*Server, error) {
	var tlsConfig *tls.Config
	if config.CertPath != "" || config.KeyPath != "" {
		var err error
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	s := &Server{
		config:    config,
		binding:   b,
		tlsConfig: tlsConfig,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*client]struct{}),
	}
	b.Mesh().RegisterEventHandler(s.broadcast)
	return s, nil
}

// Handler returns the HTTP handler serving the control endpoint
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(discovery.ControlPath, s.serveWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprintf(w, "ok active=%t\n", s.binding.Mesh().Active())
	})
	return mux
}

// Start listens and serves until ctx is done, then shuts down
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.Info("Starting espmesh control server",
		zap.String("addr", listener.Addr().String()),
		zap.String("path", discovery.ControlPath),
		zap.Any("tls_info", GetTLSInfo(s.tlsConfig)),
	)

	if s.config.Advertise {
		port := listener.Addr().(*net.TCPAddr).Port
		snap := s.binding.Mesh().Snapshot()
		s.advert, err = discovery.Advertise(s.config.Instance, port, map[string]string{
			discovery.TxtMeshID:   snap.MeshID.String(),
			discovery.TxtPath:     discovery.ControlPath,
			discovery.TxtTopology: snap.Topology.String(),
			discovery.TxtVersion:  version.Version,
		})
		if err != nil {
			logging.Warn("mDNS advertisement failed, continuing without it", zap.Error(err))
		}
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown requested, stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops accepting connections, closes every client and withdraws
// the mDNS advertisement. The mesh itself is left as it is.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.advert.Shutdown()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	// Hijacked WebSocket connections are not tracked by http.Server
	s.mu.Lock()
	for c := range s.clients {
		logging.Info("Closing active connection", zap.String("remote_addr", c.remoteAddr))
		c.close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	logging.Sync()
	return err
}

// GetActiveConnections returns the number of connected clients
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	c := newClient(conn, r.RemoteAddr)
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		c.writePump()
	}()
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.clients, c)
			s.mu.Unlock()
			c.close()
		}()
		c.readPump(s.binding)
	}()
}

// broadcast is the mesh event handler. It runs on the scheduler goroutine
// and never blocks on a slow client.
func (s *Server) broadcast(ev espmesh.Event) {
	data, err := protocol.Encode(protocol.NewEventMessage(ev))
	if err != nil {
		logging.Error("Failed to encode event", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		if !c.Subscribed() {
			continue
		}
		if !c.enqueue(data) {
			logging.Warn("Client send queue full, dropping event",
				zap.String("remote_addr", c.remoteAddr),
				zap.String("event", ev.String()),
			)
		}
	}
}
