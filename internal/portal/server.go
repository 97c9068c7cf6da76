package portal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/thsensor/internal/infrastructure/config"
	"github.com/nerrad567/thsensor/internal/settings"
)

// Server timeouts.
const (
	gracefulShutdownTimeout = 5 * time.Second
	readTimeout             = 15 * time.Second
	writeTimeout            = 15 * time.Second
	idleTimeout             = 60 * time.Second
)

// Logger defines the logging interface used by the portal.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Submission is a validated settings document accepted by the portal.
type Submission struct {
	Settings settings.Settings
}

// Deps holds the dependencies of the portal server.
type Deps struct {
	Config config.PortalConfig
	Logger Logger
	NodeID string

	// Current returns the settings the node runs with, if any. It feeds the
	// settings form and the admin password check. Optional.
	Current func() (settings.Settings, bool)
}

// Server is the configuration portal.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Server struct {
	cfg      config.PortalConfig
	logger   Logger
	nodeID   string
	current  func() (settings.Settings, bool)
	announce announceFunc

	submissions chan Submission

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	mdns     Announcement
}

// New creates a portal server. The server is not started until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.NodeID == "" {
		return nil, fmt.Errorf("portal: node id is required")
	}

	s := &Server{
		cfg:         deps.Config,
		logger:      deps.Logger,
		nodeID:      deps.NodeID,
		current:     deps.Current,
		announce:    zeroconfAnnounce,
		submissions: make(chan Submission, 1),
	}
	if s.logger == nil {
		s.logger = noopLogger{}
	}
	if s.current == nil {
		s.current = func() (settings.Settings, bool) { return settings.Settings{}, false }
	}
	return s, nil
}

// Submissions delivers accepted settings. At most one submission is
// buffered; further posts are refused until it has been taken.
func (s *Server) Submissions() <-chan Submission {
	return s.submissions
}

// Handler returns the portal's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections and, when enabled, announces
// the portal over mDNS. An mDNS failure is logged and does not stop the
// portal.
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the listener cannot be opened (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return ErrAlreadyStarted
	}

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port))
	if err != nil {
		return fmt.Errorf("portal listen: %w", err)
	}

	srv := &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	s.server = srv
	s.listener = ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("portal server error", "error", err)
		}
	}()
	s.logger.Info("portal listening", "address", ln.Addr().String())

	if s.cfg.MDNS.Enabled {
		s.startMDNS(ln.Addr())
	}
	return nil
}

func (s *Server) startMDNS(addr net.Addr) {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return
	}
	instance, service, domain := mdnsRecord(s.cfg.MDNS, s.nodeID)
	a, err := s.announce(instance, service, domain, tcp.Port, mdnsTXT(s.nodeID), nil)
	if err != nil {
		s.logger.Warn("mdns announcement failed", "error", err)
		return
	}
	s.mdns = a
	s.logger.Info("mdns announcing portal",
		"instance", instance,
		"service", service,
		"port", tcp.Port,
	)
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close withdraws the mDNS announcement and shuts the server down, waiting
// briefly for in-flight requests.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mdns != nil {
		s.mdns.Shutdown()
		s.mdns = nil
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	err := s.server.Shutdown(ctx)
	s.server = nil
	s.listener = nil
	if err != nil {
		return fmt.Errorf("shutting down portal: %w", err)
	}
	return nil
}

// adminPassword returns the password protecting the settings API: the one
// from the node's settings, else the one from the node config.
func (s *Server) adminPassword() string {
	if cur, ok := s.current(); ok && cur.AdminPassword != "" {
		return cur.AdminPassword
	}
	return s.cfg.AdminPassword
}
