// Package server exposes the trust graph, CV parsing, skill extraction, and
// contribution verification over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/naka-gawa/trustgraph/internal/domain"
	"github.com/naka-gawa/trustgraph/internal/gateway"
	"github.com/naka-gawa/trustgraph/internal/usecase"
)

// GraphReader is the read side of the graph store.
type GraphReader interface {
	Graph() domain.Graph
	Profile(id string) (domain.GraphNode, error)
	Stats() domain.GraphStats
}

// ProfileEnricher builds the enrichment of a profile.
type ProfileEnricher interface {
	Enrich(ctx context.Context, profileID, repo string) (*domain.Enrichment, error)
}

// Deps are the handler dependencies.
type Deps struct {
	Graph       GraphReader
	CVs         usecase.CVLoader
	Skills      gateway.SkillExtractor
	Verifier    usecase.ContributionVerifier
	Enricher    ProfileEnricher
	CORSOrigins []string
	Logger      zerolog.Logger
}

// NewRouter mounts every route on a chi router.
func NewRouter(d Deps) http.Handler {
	h := &handlers{deps: d, validate: validator.New(validator.WithRequiredStructEnabled())}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/", h.root)
	r.Get("/graph", h.graph)
	r.Get("/graph/stats", h.graphStats)
	r.Route("/profile/{id}", func(r chi.Router) {
		r.Get("/", h.profile)
		r.Get("/cv", h.cv)
		r.Get("/enrich", h.enrich)
	})
	r.Get("/verify/{username}/{owner}/{name}", h.verifyPath)
	r.Post("/verify", h.verifyBody)
	r.Post("/skills", h.extractSkills)
	return r
}

// Server is a thin wrapper over chi and the stdlib http.Server.
type Server struct {
	srv    *http.Server
	logger zerolog.Logger
}

// New creates a Server listening on addr.
func New(addr string, handler http.Handler, logger zerolog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until ctx is done, then shuts down within shutdownTimeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("http listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// captureWriter records the status and bytes written for the access log.
type captureWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	n, err := cw.ResponseWriter.Write(b)
	cw.bytes += n
	return n, err
}

// accessLog logs method, path, status, elapsed, and bytes written.
func accessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(cw, r)

			logger.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Int("status", cw.status).
				Dur("elapsed", time.Since(start)).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("bytes", cw.bytes).
				Msg("request done")
		})
	}
}
