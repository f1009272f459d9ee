package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bnema/crew/internal/adapters/metrics"
	"github.com/bnema/crew/internal/application"
	"github.com/bnema/crew/internal/domain"
)

const defaultListenAddr = "127.0.0.1:0"

// Deps are the runtime objects the portal serves. Sessions and Guard must
// belong to the same client runtime.
type Deps struct {
	Sessions *application.Sessions
	Guard    *application.RouteGuard
	Catering *application.CateringService
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

type Server struct {
	listener  net.Listener
	server    *http.Server
	logger    *slog.Logger
	stops     []func()
	errCh     chan error
	closeOnce sync.Once
}

// Start listens on listenAddr and serves the role view trees until Close.
func Start(listenAddr string, deps Deps) (*Server, error) {
	if deps.Sessions == nil || deps.Guard == nil || deps.Catering == nil {
		return nil, errors.New("portal requires sessions, guard and catering service")
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}
	host, _, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return nil, fmt.Errorf("parse portal listen address: %w", err)
	}
	if !isLoopbackHost(host) {
		return nil, fmt.Errorf("portal listen address %q is not a loopback address", listenAddr)
	}

	stops, err := watchRevocations(deps)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		for _, stop := range stops {
			stop()
		}
		return nil, fmt.Errorf("listen portal: %w", err)
	}

	s := &Server{
		listener: listener,
		logger:   deps.Logger.With("component", "portal"),
		stops:    stops,
		errCh:    make(chan error, 1),
		server: &http.Server{
			Handler:           NewHandler(deps),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	go func() {
		if serveErr := s.server.Serve(s.listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.errCh <- serveErr
		}
		close(s.errCh)
	}()

	s.logger.Info("portal listening", "addr", s.URL())
	return s, nil
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) URL() string {
	if tcpAddr, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return fmt.Sprintf("http://localhost:%d", tcpAddr.Port)
	}
	return "http://" + s.listener.Addr().String()
}

// Done yields the serve error, if any, and is closed once the server stops.
func (s *Server) Done() <-chan error {
	return s.errCh
}

func (s *Server) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		for _, stop := range s.stops {
			stop()
		}
		closeErr = s.server.Close()
	})
	return closeErr
}

// NewHandler builds the portal router. Every protected view sits behind
// Protect for its role.
func NewHandler(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &handlers{
		sessions: deps.Sessions,
		catering: deps.Catering,
		logger:   logger.With("component", "portal"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogging(h.logger))
	r.Use(LoopbackOnly)
	r.Use(SameOrigin)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	r.Get("/", h.index)

	for _, role := range domain.Roles {
		r.Route("/"+string(role), func(rr chi.Router) {
			rr.Get("/login", h.loginForm(role))
			rr.Post("/login", h.login(role))
			rr.Post("/logout", h.logout(role))

			rr.Group(func(protected chi.Router) {
				protected.Use(Protect(deps.Guard, role))
				protected.Get("/", h.home(role))
				protected.Get("/profile", h.profile(role))
				protected.Get("/works", h.works(role))
				if role.Can(domain.ActionManageFares) {
					protected.Get("/fares", h.fares(role))
				}
				if role.Can(domain.ActionViewWages) {
					protected.Get("/wages", h.wages(role))
				}
			})
		})
	}

	return r
}

// Protect redirects to the role's login path unless its session is
// authenticated. The wrapped handler never runs for a denied request.
func Protect(guard *application.RouteGuard, role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := guard.Evaluate(r.Context(), role)
			if !decision.Allow {
				http.Redirect(w, r, decision.Redirect, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func watchRevocations(deps Deps) ([]func(), error) {
	logger := deps.Logger.With("component", "portal")
	stops := make([]func(), 0, len(domain.Roles))
	for _, role := range domain.Roles {
		var allowed atomic.Bool
		initial, stop, err := deps.Guard.Watch(context.Background(), role, func(decision application.Decision) {
			if allowed.Swap(decision.Allow) && !decision.Allow {
				logger.Warn("session revoked", "role", string(role), "redirect", decision.Redirect)
				deps.Metrics.RecordRevocation(role)
			}
		})
		if err != nil {
			for _, s := range stops {
				s()
			}
			return nil, fmt.Errorf("watch %s session: %w", role, err)
		}
		allowed.Store(initial.Allow)
		stops = append(stops, stop)
	}
	return stops, nil
}

func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(wrapped, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.Status(),
				"duration_ms", time.Since(started).Milliseconds(),
			}
			if wrapped.Status() >= http.StatusInternalServerError {
				logger.Error("request completed", attrs...)
				return
			}
			logger.Debug("request completed", attrs...)
		})
	}
}
