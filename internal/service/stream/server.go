package stream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voicebridge/voicebridge/internal/service/recording"
	"github.com/voicebridge/voicebridge/internal/service/upload"
	"github.com/voicebridge/voicebridge/pkg/logger"
)

// stopTimeout bounds how long Stop waits for the listener to close.
const stopTimeout = 3 * time.Second

type cmdKind int

const (
	cmdStart cmdKind = iota
	cmdStop
	cmdSetOwner
)

type command struct {
	kind  cmdKind
	port  int
	owner string
	reply chan error
}

// Server accepts mobile client connections and runs one Session per
// connection. Lifecycle requests (start, stop, set-owner) are posted to a
// command loop so control callers never touch the serving internals and
// never block on network I/O.
type Server struct {
	host      string
	maxBuffer int
	logger    logger.Logger
	writer    *recording.Writer
	uploader  *upload.Coordinator
	upgrader  websocket.Upgrader

	commands chan command
	events   chan Event

	mu        sync.Mutex
	httpSrv   *http.Server
	boundPort int
	owner     string
	sessions  map[string]*Session
}

// NewServer wires the server with its collaborators. Run must be started
// before any lifecycle call.
func NewServer(host string, maxBuffer int, writer *recording.Writer, uploader *upload.Coordinator, log logger.Logger) *Server {
	return &Server{
		host:      host,
		maxBuffer: maxBuffer,
		logger:    log,
		writer:    writer,
		uploader:  uploader,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		commands: make(chan command),
		events:   make(chan Event, 16),
		sessions: make(map[string]*Session),
	}
}

// Run consumes lifecycle commands until ctx is cancelled, then closes the
// listener. Live sessions are left to drain on their own.
func (s *Server) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if err := s.stop(); err != nil {
				s.logger.Errorf("[stream] shutdown: %v", err)
			}
			return
		case cmd := <-s.commands:
			switch cmd.kind {
			case cmdStart:
				cmd.reply <- s.start(cmd.port)
			case cmdStop:
				cmd.reply <- s.stop()
			case cmdSetOwner:
				s.mu.Lock()
				s.owner = cmd.owner
				s.mu.Unlock()
				s.logger.Infof("[stream] current owner set to %q", cmd.owner)
				cmd.reply <- nil
			}
		}
	}
}

// Start binds the listener on port, or an OS-assigned ephemeral port when
// port is 0. Starting a running server is a no-op.
func (s *Server) Start(port int) error {
	return s.post(command{kind: cmdStart, port: port})
}

// Stop closes the listener and waits (bounded) for it to shut. Already-
// accepted sessions keep running until their client disconnects. Stopping
// a stopped server is a no-op.
func (s *Server) Stop() error {
	return s.post(command{kind: cmdStop})
}

// SetOwner updates the identity new recordings are attributed to. An empty
// owner disables uploads.
func (s *Server) SetOwner(owner string) {
	_ = s.post(command{kind: cmdSetOwner, owner: owner})
}

func (s *Server) post(cmd command) error {
	cmd.reply = make(chan error, 1)
	s.commands <- cmd
	return <-cmd.reply
}

// Events exposes lifecycle notifications for the host to subscribe to.
func (s *Server) Events() <-chan Event {
	return s.events
}

// Running reports whether the listener is active.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpSrv != nil
}

// Port returns the bound port, or 0 when stopped.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundPort
}

// ConnectionCount returns the number of live sessions.
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) start(port int) error {
	if s.Running() {
		s.logger.Infof("[stream] already running on port %d", s.Port())
		return nil
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(s.host, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("bind stream listener: %w", err)
	}
	bound := ln.Addr().(*net.TCPAddr).Port

	r := chi.NewRouter()
	// The mobile client dials an arbitrary path (historically /test), so
	// every GET upgrades.
	r.Get("/*", s.handleStream)

	srv := &http.Server{Handler: r}
	s.mu.Lock()
	s.httpSrv = srv
	s.boundPort = bound
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("[stream] serve error: %v", err)
		}
	}()

	s.logger.Infof("[stream] listening on %s:%d", s.host, bound)
	s.emit(Event{Kind: EventStarted, Port: bound})
	return nil
}

func (s *Server) stop() error {
	s.mu.Lock()
	srv := s.httpSrv
	s.httpSrv = nil
	s.boundPort = 0
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	s.logger.Infof("[stream] stopping listener")
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	// Websocket connections are hijacked from net/http, so Shutdown closes
	// the listener and returns without touching live sessions.
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("stop stream listener: %w", err)
	}

	s.emit(Event{Kind: EventStopped})
	s.logger.Infof("[stream] stopped")
	return nil
}

// handleStream upgrades the connection and runs its session to completion.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("[stream] upgrade failed from %s: %v", r.RemoteAddr, err)
		return
	}
	defer conn.Close()

	sess := newSession(uuid.NewString(), s.writer, s.uploader, s.currentOwner, s.maxBuffer, s.logger)
	sess.onClose = func() {
		s.mu.Lock()
		delete(s.sessions, sess.id)
		s.mu.Unlock()
		s.logger.Infof("[stream] client disconnected session=%s", sess.id)
		s.emit(Event{Kind: EventDisconnected, SessionID: sess.id})
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	s.logger.Infof("[stream] client connected session=%s path=%s", sess.id, r.URL.Path)
	s.emit(Event{Kind: EventConnected, SessionID: sess.id})

	sess.run(r.Context(), conn)
}

func (s *Server) currentOwner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// emit delivers an event without ever blocking the serving path.
func (s *Server) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Debugf("[stream] event dropped kind=%s", ev.Kind)
	}
}
