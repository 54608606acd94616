package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/devfolio/apiserver/config"
	"github.com/devfolio/apiserver/internal/db"
	"github.com/devfolio/apiserver/internal/handlers"
	"github.com/devfolio/apiserver/internal/imaging"
	"github.com/devfolio/apiserver/internal/logging"
	"github.com/devfolio/apiserver/internal/mq"
	"github.com/devfolio/apiserver/internal/services"
	"github.com/devfolio/apiserver/internal/storage"
	"github.com/devfolio/apiserver/internal/store"
	"github.com/devfolio/apiserver/internal/summary"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

// Server wraps the HTTP server, its router and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	queue      *mq.MQ
	sitemap    *services.SitemapService
	logger     *zap.Logger
}

// New builds every dependency once and registers the routes.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	auth, err := handlers.NewAuthenticator(cfg.Auth)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("ensure bucket %s: %w", objects.Bucket(), err)
	}

	queue, err := mq.Open(ctx, cfg.MQ, logger)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("open mq: %w", err)
	}

	userRepo := store.NewUserRepository(dbConn)
	portfolioRepo := store.NewPortfolioRepository(dbConn)
	blogRepo := store.NewBlogRepository(dbConn)
	contactRepo := store.NewContactRepository(dbConn)
	mediaRepo := store.NewMediaRepository(dbConn)

	summarizer := summary.NewGenerator(cfg.AI, logger)
	if !summarizer.Enabled() {
		logger.Info("AI summaries disabled: no API key configured")
	}

	sitemapService := services.NewSitemapService(portfolioRepo, blogRepo, queue, services.SitemapOptions{
		SiteURL:      cfg.Sitemap.SiteURL,
		OutputPath:   cfg.Sitemap.OutputPath,
		StaticRoutes: cfg.Sitemap.StaticRoutes,
		Channel:      cfg.Sitemap.Channel,
	}, logger)
	userService := services.NewUserService(userRepo)
	portfolioService := services.NewPortfolioService(portfolioRepo, summarizer, sitemapService, logger)
	blogService := services.NewBlogService(blogRepo, sitemapService, logger)
	contactService := services.NewContactService(contactRepo)
	uploadService := services.NewUploadService(mediaRepo, objects,
		imaging.NewProcessor(imaging.Options{
			MaxWidth:  cfg.Upload.MaxWidth,
			MaxHeight: cfg.Upload.MaxHeight,
			Quality:   cfg.Upload.Quality,
		}),
		services.UploadLimits{MaxFileSize: cfg.Upload.MaxFileSize, MaxFiles: cfg.Upload.MaxFiles},
		logger,
	)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.RequestLogger(logger),
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.FrontendOrigin,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.Timeout(cfg.RequestTimeout),
	)
	router.Get("/healthz", handlers.Healthz(dbConn))
	router.Method(http.MethodGet, "/sitemap.xml", handlers.NewSitemapHandler(sitemapService, logger))
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, userService, auth, logger)
		})
		r.Route("/portfolio", func(r chi.Router) {
			handlers.PortfolioRouter(r, portfolioService, auth, logger)
		})
		r.Route("/blog", func(r chi.Router) {
			handlers.BlogRouter(r, blogService, auth, logger)
		})
		r.Route("/contact", func(r chi.Router) {
			handlers.ContactRouter(r, contactService, auth, logger)
		})
		r.Route("/upload", func(r chi.Router) {
			handlers.UploadRouter(r, uploadService, auth, logger)
		})
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		queue:      queue,
		sitemap:    sitemapService,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Run serves HTTP and consumes deferred tasks until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	consumerCtx, stopConsumer := context.WithCancel(context.WithoutCancel(ctx))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.sitemap.Consume(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("sitemap consumer stopped", zap.Error(err))
		}
	}()
	s.sitemap.RequestRegeneration(ctx, "startup")

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutting down")
	case err := <-serveErr:
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}

	stopConsumer()
	wg.Wait()
	s.close()
	return runErr
}

func (s *Server) close() {
	if s.queue != nil {
		if err := s.queue.Close(); err != nil {
			s.logger.Warn("close mq", zap.Error(err))
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
