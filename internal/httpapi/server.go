// Package httpapi exposes the toolkit's operations over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"
	"web-testgen/internal/config"
	"web-testgen/internal/request"
	"web-testgen/internal/usecase"
	"web-testgen/pkg/logg"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	Name            = "HTTPServer"
	shutdownTimeout = 10 * time.Second
	defaultLimit    = 50
)

type Server struct {
	config  *config.Config
	logger  *zap.Logger
	usecase *usecase.Service
	router  chi.Router
}

type Params struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Usecase *usecase.Service
}

func NewServer(params Params) *Server {
	s := &Server{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, Name)),
		usecase: params.Usecase,
	}

	s.router = s.routes()

	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.logRequests)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/scan", s.scan)
		r.Post("/synthesize", s.synthesize)
		r.Post("/interact", s.interact)
		r.Post("/run", s.run)
		r.Post("/requests", s.dispatch)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.listDocuments)
			r.Get("/latest", s.latestDocument)
			r.Get("/{runID}", s.getDocument)
		})
	})

	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.ServerConfig.HTTPAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Info("Request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, map[string]any{
		"status": "ok",
		"engine": s.usecase.Browser.Name(),
		"ready":  s.usecase.Browser.IsReady(),
	})
}

func (s *Server) scan(w http.ResponseWriter, r *http.Request) {
	req, err := request.Decode[request.Scan](r.Body)
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.handle(w, r, req)
}

func (s *Server) synthesize(w http.ResponseWriter, r *http.Request) {
	req, err := request.Decode[request.Synthesize](r.Body)
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.handle(w, r, req)
}

func (s *Server) interact(w http.ResponseWriter, r *http.Request) {
	req, err := request.Decode[request.Interact](r.Body)
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.handle(w, r, req)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	req, err := request.Decode[request.Run](r.Body)
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.handle(w, r, req)
}

// dispatch accepts any request kind, named by its "kind" field.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	req, err := request.Parse(r.Body)
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.handle(w, r, req)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request, req request.Request) {
	resp, err := s.execute(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.respond(w, r, http.StatusOK, resp)
}

func (s *Server) execute(ctx context.Context, req request.Request) (any, error) {
	switch req := req.(type) {
	case request.Scan:
		return s.usecase.Pipeline.Scan(ctx, req.URL)
	case request.Synthesize:
		return s.usecase.Pipeline.Generate(ctx, req)
	case request.Interact:
		return s.usecase.Pipeline.Interact(ctx, req)
	case request.Run:
		return s.usecase.Runner.Run(ctx, req)
	default:
		return nil, errors.New("unhandled request kind")
	}
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.fail(w, r, malformedQuery("limit", raw))

			return
		}

		limit = n
	}

	summaries, err := s.usecase.Documents.List(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.respond(w, r, http.StatusOK, summaries)
}

func (s *Server) latestDocument(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		s.fail(w, r, malformedQuery("url", url))

		return
	}

	doc, err := s.usecase.Documents.Latest(r.Context(), url)
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.respond(w, r, http.StatusOK, doc)
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.usecase.Documents.Get(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.fail(w, r, err)

		return
	}

	s.respond(w, r, http.StatusOK, doc)
}
