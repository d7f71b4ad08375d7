package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-storefront/internal/config"
	"go-storefront/internal/database"
	"go-storefront/internal/handler"
	"go-storefront/internal/middleware"
	"go-storefront/internal/repository"
	"go-storefront/internal/router"
	"go-storefront/internal/service"
	"go-storefront/internal/token"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	accountRepo := repository.NewAccountRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	slog.Info("database ready")

	issuer := token.NewIssuer(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	sessionService := service.NewSessionService(accountRepo, issuer, cfg.AuthAutoProvision)
	productService := service.NewProductService(productRepo)
	orderService := service.NewOrderService(orderRepo, productRepo)
	customerService := service.NewCustomerService(accountRepo)

	authMiddleware := middleware.NewAuthMiddleware(issuer)
	csrfMiddleware := middleware.NewCsrfMiddleware(
		cfg.CSRFSecret, cfg.CSRFCookieName, cfg.RefreshCookieName, cfg.CSRFCookieTTL, cfg.IsProduction())

	authHandler := handler.NewAuthHandler(sessionService, cfg.RefreshCookieName, cfg.IsProduction())
	productHandler := handler.NewProductHandler(productService)
	orderHandler := handler.NewOrderHandler(orderService)
	customerHandler := handler.NewCustomerHandler(customerService)
	uploadHandler := handler.NewUploadHandler(cfg.UploadDir, cfg.MinUploadSize, cfg.MaxUploadSize)

	appRouter := router.New(cfg, middleware.DefaultSecurityPolicy(),
		authMiddleware, csrfMiddleware,
		authHandler, productHandler, orderHandler, customerHandler, uploadHandler)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	go expireFingerprints(cleanupCtx, accountRepo)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			func() {
				cleanupCancel()
			},
			func() {
				db.Close()
			},
		},
	}, nil
}

// expireFingerprints sweeps refresh token fingerprints whose expiry has
// passed. Expired rows are already unusable; the sweep only keeps the
// table from growing without bound.
func expireFingerprints(ctx context.Context, accounts *repository.AccountRepository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := accounts.CleanExpiredFingerprints(ctx)
			if err != nil {
				slog.Error("fingerprint cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("expired refresh fingerprints removed", "count", removed)
			}
		}
	}
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
