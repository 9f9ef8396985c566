package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-checkout/app/controller"
	"github.com/vibast-solutions/ms-go-checkout/app/events"
	"github.com/vibast-solutions/ms-go-checkout/app/factory"
	checkoutgrpc "github.com/vibast-solutions/ms-go-checkout/app/grpc"
	"github.com/vibast-solutions/ms-go-checkout/app/lock"
	"github.com/vibast-solutions/ms-go-checkout/app/metrics"
	"github.com/vibast-solutions/ms-go-checkout/app/orchestrator"
	"github.com/vibast-solutions/ms-go-checkout/app/provider"
	"github.com/vibast-solutions/ms-go-checkout/app/repository"
	"github.com/vibast-solutions/ms-go-checkout/app/service"
	"github.com/vibast-solutions/ms-go-checkout/app/surface"
	"github.com/vibast-solutions/ms-go-checkout/app/telemetry"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
	"github.com/vibast-solutions/ms-go-checkout/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start both HTTP (Echo) and gRPC servers for the checkout service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// checkoutApp bundles what both serve and the job commands need.
type checkoutApp struct {
	cfg      *config.Config
	service  *service.CheckoutService
	registry *prometheus.Registry
	cleanup  func()
}

func runServe(_ *cobra.Command, _ []string) {
	app := mustCreateCheckoutApp()
	defer app.cleanup()
	cfg := app.cfg

	checkoutController := controller.NewCheckoutController(app.service)
	grpcCheckoutServer := checkoutgrpc.NewServer(app.service)

	authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
	}
	defer authGRPCClient.Close()

	internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
	echoInternalAuthMiddleware := authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService)
	grpcInternalAuthMiddleware := authmiddleware.NewGRPCInternalAuthMiddleware(internalAuthService)

	e := setupHTTPServer(checkoutController, echoInternalAuthMiddleware, app.registry, cfg.App.ServiceName)
	grpcSrv, lis := setupGRPCServer(cfg, grpcCheckoutServer, grpcInternalAuthMiddleware, cfg.App.ServiceName)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	go func() {
		logrus.WithField("addr", lis.Addr().String()).Info("Starting gRPC server")
		if err := grpcSrv.Serve(lis); err != nil {
			logrus.WithError(err).Fatal("gRPC server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}
	grpcSrv.GracefulStop()

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	checkoutController *controller.CheckoutController,
	internalAuthMiddleware *authmiddleware.EchoInternalAuthMiddleware,
	registry *prometheus.Registry,
	appServiceName string,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	// Scraped by prometheus without an internal caller identity.
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := e.Group("", requireRequestID(), internalAuthMiddleware.RequireInternalAccess(appServiceName))
	api.GET("/health", checkoutController.Health)

	checkouts := api.Group("/checkouts")
	checkouts.POST("", checkoutController.StartCheckout)
	checkouts.GET("", checkoutController.ListCheckouts)
	checkouts.GET("/:id", checkoutController.GetCheckout)
	checkouts.POST("/:id/abort", checkoutController.AbortCheckout)
	checkouts.POST("/:id/surface/closed", checkoutController.ReportSurfaceClosed)

	return e
}

func requireRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "x-request-id header is required"})
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			req := ctx.Request()
			ctx.SetRequest(req.WithContext(factory.ContextWithRequestID(req.Context(), requestID)))
			return next(ctx)
		}
	}
}

func setupGRPCServer(
	cfg *config.Config,
	checkoutServer *checkoutgrpc.Server,
	internalAuthMiddleware *authmiddleware.GRPCInternalAuthMiddleware,
	appServiceName string,
) (*grpc.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			checkoutgrpc.RecoveryInterceptor(),
			checkoutgrpc.RequestIDInterceptor(),
			checkoutgrpc.LoggingInterceptor(),
			internalAuthMiddleware.UnaryRequireInternalAccess(appServiceName),
		),
	)
	types.RegisterCheckoutServiceServer(grpcSrv, checkoutServer)

	return grpcSrv, lis
}

func mustCreateCheckoutApp() *checkoutApp {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := factory.ConfigureLogging(cfg.Log.Level, cfg.Log.Format); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	shutdownTelemetry, err := telemetry.Setup(context.Background(), cfg.Telemetry, cfg.App.ServiceName)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure telemetry")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	var (
		surfaces    surface.Registry
		locker      lock.Locker
		redisClient *redis.Client
	)
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			_ = db.Close()
			logrus.WithError(err).Fatal("Failed to ping redis")
		}
		surfaces = surface.NewRedisRegistry(redisClient, cfg.Orchestrator.SessionTimeout+5*time.Minute)
		locker = lock.NewRedisLocker(redisClient)
	} else {
		logrus.Warn("REDIS_ADDR is empty, surfaces and locks are kept in memory")
		surfaces = surface.NewMemoryRegistry()
		locker = lock.NewMemoryLocker()
	}

	publisher, err := events.New(cfg.Events, m)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize events publisher")
	}

	checkoutRepo := repository.NewCheckoutRepository(db)
	eventRepo := repository.NewCheckoutEventRepository(db)

	hostedPay := provider.NewHostedPayClient(provider.HostedPayConfig{
		BaseURL:      cfg.Provider.BaseURL,
		AppReference: cfg.Provider.AppReference,
		Secret:       cfg.Provider.Secret,
		AppID:        cfg.Provider.AppID,
		HTTPTimeout:  cfg.Provider.HTTPTimeout,
	}, m)

	orch := orchestrator.New(hostedPay, surfaces, orchestrator.Config{
		PollInterval:     cfg.Orchestrator.PollInterval,
		WatchdogInterval: cfg.Orchestrator.WatchdogInterval,
		Timeout:          cfg.Orchestrator.SessionTimeout,
	}, m)

	checkoutService := service.NewCheckoutService(
		checkoutRepo,
		eventRepo,
		orch,
		hostedPay,
		surfaces,
		locker,
		publisher,
		service.Options{
			Checkout:       cfg.Checkout,
			ReadyTimeout:   cfg.Orchestrator.ReadyTimeout,
			SessionTimeout: cfg.Orchestrator.SessionTimeout,
			AppAPIKey:      cfg.App.APIKey,
			Metrics:        m,
		},
	)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := orch.Shutdown(ctx); err != nil {
			logrus.WithError(err).Warn("Failed to stop checkout sessions")
		}
		if err := publisher.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close events publisher")
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close redis")
			}
		}
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
		if err := shutdownTelemetry(ctx); err != nil {
			logrus.WithError(err).Warn("Failed to flush traces")
		}
	}

	return &checkoutApp{
		cfg:      cfg,
		service:  checkoutService,
		registry: registry,
		cleanup:  cleanup,
	}
}
