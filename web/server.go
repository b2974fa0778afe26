package web

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"time"

	"cdr.dev/slog"
	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"activitytracker/config"
	"activitytracker/query"
)

type Options struct {
	Store           query.Store
	Clock           quartz.Clock
	Logger          slog.Logger
	SecretKey       string
	SessionLifetime time.Duration
	CORS            config.CORS
	// Registry defaults to a fresh registry served on /metrics.
	Registry *prometheus.Registry
	// AuthRateLimit is the number of login/register requests allowed per
	// IP per minute.
	AuthRateLimit int
}

type Server struct {
	store    query.Store
	clock    quartz.Clock
	logger   slog.Logger
	secret   []byte
	lifetime time.Duration
	metrics  *metrics
	handler  http.Handler
}

func New(opts Options) (*Server, error) {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.SessionLifetime <= 0 {
		opts.SessionLifetime = config.DefaultSessionLifetimeDays * 24 * time.Hour
	}
	if opts.AuthRateLimit <= 0 {
		opts.AuthRateLimit = 20
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	secret := []byte(opts.SecretKey)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, xerrors.Errorf("generate session secret: %w", err)
		}
		opts.Logger.Warn(context.Background(), "no secret_key configured, sessions will not survive a restart")
	}

	s := &Server{
		store:    opts.Store,
		clock:    opts.Clock,
		logger:   opts.Logger,
		secret:   secret,
		lifetime: opts.SessionLifetime,
		metrics:  newMetrics(opts.Registry, opts.Clock),
	}
	s.handler = s.routes(opts)
	return s, nil
}

func (s *Server) routes(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		s.metrics.middleware,
		s.logRequests,
	)
	if len(opts.CORS.Origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORS.Origins,
			AllowedMethods:   opts.CORS.Methods,
			AllowedHeaders:   opts.CORS.AllowHeaders,
			ExposedHeaders:   opts.CORS.ExposeHeaders,
			AllowCredentials: opts.CORS.SupportsCredentials,
		}))
	}

	r.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(httprate.Limit(
				opts.AuthRateLimit,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					writeError(w, http.StatusTooManyRequests, "Too many requests", "RateLimited")
				}),
			))
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
		})
		r.Post("/logout", s.handleLogout)

		r.Get("/activities", s.handleActivities)
		r.Get("/usage", s.handleUsage)
		r.Get("/afk", s.handleAFK)
		r.Get("/afk/summary", s.handleAFKSummary)

		r.With(s.requireSession).Post("/cleanup", s.handleCleanup)
	})
	return r
}

func (s *Server) Handler() http.Handler { return s.handler }

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		s.logger.Info(ctx, "api listening", slog.F("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return xerrors.Errorf("listen %s: %w", addr, err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.clock.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug(r.Context(), "request",
			slog.F("method", r.Method),
			slog.F("path", r.URL.Path),
			slog.F("status", ww.Status()),
			slog.F("duration", s.clock.Since(start)),
			slog.F("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
