package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	adminshandler "github.com/paramvora-myacara/oz-listings-api/domains/admins/be/handler"
	adminsrepo "github.com/paramvora-myacara/oz-listings-api/domains/admins/be/repo"
	adminsservice "github.com/paramvora-myacara/oz-listings-api/domains/admins/be/service"
	listingshandler "github.com/paramvora-myacara/oz-listings-api/domains/listings/be/handler"
	listingsrepo "github.com/paramvora-myacara/oz-listings-api/domains/listings/be/repo"
	listingsservice "github.com/paramvora-myacara/oz-listings-api/domains/listings/be/service"
	platformauth "github.com/paramvora-myacara/oz-listings-api/platform/go/auth"
	platformlogging "github.com/paramvora-myacara/oz-listings-api/platform/go/logging"
	platformmiddleware "github.com/paramvora-myacara/oz-listings-api/platform/go/middleware"
	"github.com/paramvora-myacara/oz-listings-api/platform/go/persistence"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	CookieSecure    bool          `env:"COOKIE_SECURE" envDefault:"true"`
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "listings-api",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	listingStore, err := persistence.NewListingStore(ctx, pool)
	if err != nil {
		logger.Fatal("init listing store", zap.Error(err))
	}
	adminStore, err := persistence.NewAdminStore(ctx, pool)
	if err != nil {
		logger.Fatal("init admin store", zap.Error(err))
	}
	sessionStore, err := persistence.NewSessionStore(ctx, pool)
	if err != nil {
		logger.Fatal("init session store", zap.Error(err))
	}

	contentValidator, err := persistence.NewContentValidator()
	if err != nil {
		logger.Fatal("compile content schemas", zap.Error(err))
	}

	adminsService := adminsservice.New(adminsrepo.NewPostgresRepository(adminStore, sessionStore), cfg.SessionTTL)
	adminsHTTPHandler := adminshandler.New(adminsService, logger, cfg.CookieSecure)

	listingsService := listingsservice.New(
		listingsrepo.NewPostgresRepository(listingStore),
		adminsService,
		contentValidator,
	)
	listingsHTTPHandler := listingshandler.New(listingsService, logger)

	rootRouter := chi.NewRouter()

	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)

	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	apiRouter := chi.NewRouter()
	apiRouter.Use(platformauth.Sessions(adminsService.Resolve))
	apiRouter.Use(platformmiddleware.RequestTrace)

	// Public read surface.
	apiRouter.Get("/listings/{slug}", listingsHTTPHandler.GetListing)
	apiRouter.Get("/listings/{slug}/versions", listingsHTTPHandler.ListVersions)

	// Admin mutation surface.
	apiRouter.Group(func(r chi.Router) {
		r.Use(platformauth.RequireAdmin)
		r.Get("/listings/{slug}/versions/{versionId}", listingsHTTPHandler.GetVersion)
		r.Post("/listings/{slug}/versions", listingsHTTPHandler.CreateVersion)
		r.Post("/listings/{slug}/rollback", listingsHTTPHandler.Rollback)
		r.Post("/admin/listings", listingsHTTPHandler.CreateListing)
		r.Post("/admin/logout", adminsHTTPHandler.Logout)
		r.Get("/admin/me", adminsHTTPHandler.Me)
	})

	apiRouter.Post("/admin/login", adminsHTTPHandler.Login)

	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting listings api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
