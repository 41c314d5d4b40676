// Package server exposes debugger sessions over WebSocket. Every
// connection owns one Debugger; its requests are handled in order.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"arrayviz/internal/catalog"
	"arrayviz/internal/debugger"
	rterrors "arrayviz/internal/errors"
	"arrayviz/internal/vm"
)

const defaultReadLimit = 1 << 20

// Catalog resolves stored programs for load_program requests.
type Catalog interface {
	Get(ctx context.Context, ref string) (catalog.Program, error)
}

// Request is one client message.
type Request struct {
	Op         string `json:"op"`
	Source     string `json:"source,omitempty"`
	ID         string `json:"id,omitempty"`
	Line       int    `json:"line,omitempty"`
	Breakpoint int    `json:"breakpoint,omitempty"`
	Name       string `json:"name,omitempty"`
	Text       string `json:"text,omitempty"`
}

// Response answers exactly one Request.
type Response struct {
	Session    string       `json:"session"`
	Snapshot   *vm.Snapshot `json:"snapshot,omitempty"`
	Breakpoint int          `json:"breakpoint,omitempty"`
	Error      *ErrorBody   `json:"error,omitempty"`
}

// ErrorBody describes a failed request. Program errors raised while
// running are reported in the snapshot instead.
type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

func errorBody(err error) *ErrorBody {
	if e, ok := rterrors.As(err); ok {
		return &ErrorBody{
			Type:    string(e.Type),
			Message: e.Message,
			Line:    e.Location.Line,
			Column:  e.Location.Column,
		}
	}
	return &ErrorBody{Type: "RequestError", Message: err.Error()}
}

// Server accepts session connections.
type Server struct {
	addr        string
	readLimit   int64
	machineOpts []vm.Option
	catalog     Catalog
	logger      zerolog.Logger
	upgrader    websocket.Upgrader
	active      atomic.Int64
}

// Option configures a Server.
type Option func(*Server)

func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithReadLimit caps the size of one request message.
func WithReadLimit(n int64) Option {
	return func(s *Server) { s.readLimit = n }
}

// WithMachineOptions configures the VM of every session.
func WithMachineOptions(opts ...vm.Option) Option {
	return func(s *Server) { s.machineOpts = opts }
}

// WithCatalog enables load_program requests.
func WithCatalog(c Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func New(opts ...Option) *Server {
	s := &Server{
		addr:      "localhost:8765",
		readLimit: defaultReadLimit,
		logger:    zerolog.Nop(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Active returns the number of open sessions.
func (s *Server) Active() int64 { return s.active.Load() }

// Handler routes /session and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/session", s.serveSession)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "sessions": s.Active()})
	})
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().Str("addr", s.addr).Msg("session server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info().Msg("session server shutting down")
		return errors.Wrap(srv.Shutdown(shutdownCtx), "shutdown")
	})
	return g.Wait()
}

func (s *Server) serveSession(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.readLimit)

	id := uuid.NewString()
	log := s.logger.With().Str("session", id).Logger()
	s.active.Add(1)
	defer s.active.Add(-1)
	log.Info().Str("remote", r.RemoteAddr).Msg("session opened")
	defer log.Info().Msg("session closed")

	d := debugger.New(vm.NewMachine(s.machineOpts...), debugger.WithLogger(log))
	ctx := r.Context()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("read failed")
			}
			return
		}

		resp := Response{Session: id}
		var req Request
		if err := json.Unmarshal(msg, &req); err != nil {
			resp.Error = errorBody(errors.Wrap(err, "decode request"))
		} else {
			log.Debug().Str("op", req.Op).Msg("request")
			s.handle(ctx, d, req, &resp)
		}

		if err := conn.WriteJSON(resp); err != nil {
			log.Warn().Err(err).Msg("write failed")
			return
		}
	}
}

// handle applies req to the session's debugger and fills resp.
func (s *Server) handle(ctx context.Context, d *debugger.Debugger, req Request, resp *Response) {
	var err error
	switch req.Op {
	case "load":
		err = d.Load(req.Source)
	case "load_program":
		err = s.loadProgram(ctx, d, req.ID)
	case "step":
		_, err = d.Step()
	case "step_line":
		_, err = d.StepInto(ctx)
	case "next":
		_, err = d.StepOver(ctx)
	case "finish":
		_, err = d.StepOut(ctx)
	case "back":
		_, err = d.Back()
	case "back_line":
		_, err = d.BackLine()
	case "run":
		_, err = d.Run(ctx)
	case "continue":
		_, err = d.Continue(ctx)
	case "reset":
		err = d.Reset()
	case "break":
		if req.Line < 1 {
			err = errors.Errorf("invalid line number: %d", req.Line)
			break
		}
		resp.Breakpoint = d.AddBreakpoint(req.Line)
	case "clear":
		if !d.RemoveBreakpoint(req.Breakpoint) {
			err = errors.Errorf("breakpoint %d not found", req.Breakpoint)
		}
	case "watch":
		d.Watch(req.Name)
	case "unwatch":
		d.Unwatch(req.Name)
	case "input":
		d.ProvideInput(req.Text)
	case "snapshot":
	default:
		err = errors.Errorf("unknown op %q", req.Op)
	}
	if err != nil {
		resp.Error = errorBody(err)
		return
	}
	if d.Loaded() {
		resp.Snapshot, _ = d.Snapshot()
	}
}

func (s *Server) loadProgram(ctx context.Context, d *debugger.Debugger, ref string) error {
	if s.catalog == nil {
		return errors.New("no program catalog configured")
	}
	p, err := s.catalog.Get(ctx, ref)
	if err != nil {
		return err
	}
	return d.Load(p.Source)
}
