package main

// GET    /products, /products/{id}, /categories  - catalog
// POST   /products, PUT|DELETE /products/{id}    - catalog admin
// GET    /products/export, POST /products/import - XLSX round trip
// GET    /orders, /orders/{id}, POST /orders     - orders
// *      /cart, /cart/items[/{productId}]        - per-device cart (X-Device-ID)
// *      /wishlist, /wishlist/items[/{id}]       - per-device wishlist

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
	"storefront/auth"
	"storefront/cart"
	"storefront/config"
	"storefront/handler"
	"storefront/service"
	"storefront/store"
)

//go:embed migrations.sql
var migrationSQL string

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	// --- Postgres (optional) ---
	var (
		pg     *store.PostgresStore
		mirror service.ProductMirror
		remote cart.RemoteOpener
	)
	if cfg.Database.DSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pg, err = store.NewPostgresStore(ctx, cfg.Database.DSN)
		cancel()
		if err != nil {
			log.Fatalf("DB connection failed: %v", err)
		}
		defer pg.Close()

		if cfg.Database.RunMigrations {
			if err := pg.Migrate(context.Background(), migrationSQL); err != nil {
				log.Fatalf("Failed running migrations: %v", err)
			}
			logger.Info("database migrations executed")
		}
		mirror = pg
		remote = func(userID uuid.UUID) cart.CartStore {
			return cart.NewRemoteCartStore(pg, userID)
		}
	} else {
		logger.Warn("no database configured, serving guests only")
	}

	// --- Service ---
	svc := service.NewService(store.NewProductRepository(), store.NewOrderRepository(), mirror, logger)
	var serviceInterface service.ServiceInterface = svc

	// --- Cart sessions ---
	sessions := cart.NewSessions(func(deviceID uuid.UUID) (cart.CartStore, error) {
		fs, err := store.NewFileStorage(cfg.Storage.DeviceDir, deviceID)
		if err != nil {
			return nil, err
		}
		return cart.NewLocalCartStore(fs, logger.With("device_id", deviceID)), nil
	}, remote, logger, cart.Limits{MaxSessions: cfg.Sessions.MaxDevices, IdleTTL: cfg.Sessions.IdleTTL})

	// --- Handlers ---
	h := handler.NewHandler(serviceInterface, sessions, logger)

	// --- Router ---
	r := mux.NewRouter()
	if cfg.Auth.JWTSecret != "" {
		r.Use(auth.Middleware(auth.NewVerifier(cfg.Auth.JWTSecret), logger))
	}
	if cfg.AdminGate() {
		h.Admin = auth.RequireAdmin(pg, logger)
	} else {
		logger.Warn("product writes are open to every caller, set auth.jwt_secret to restrict them to admins")
	}
	h.RegisterRoutes(r)

	// --- Server ---
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := serve(srv, cfg.Server.ShutdownTimeout, logger); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("server stopped", "sessions", sessions.Len())
}

// serve runs srv until SIGINT or SIGTERM, then drains in-flight requests for up to grace.
func serve(srv *http.Server, grace time.Duration, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down, waiting for pending requests")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server failed to shut down gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}
