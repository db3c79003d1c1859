package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/parkgate/ticketing-service/internal/adapters/logging"
	"github.com/parkgate/ticketing-service/internal/adapters/membership"
	"github.com/parkgate/ticketing-service/internal/adapters/postgres"
	"github.com/parkgate/ticketing-service/internal/config"
	"github.com/parkgate/ticketing-service/internal/domain/ports"
	"github.com/parkgate/ticketing-service/internal/handlers"
	catalogService "github.com/parkgate/ticketing-service/internal/services/catalog"
	financeService "github.com/parkgate/ticketing-service/internal/services/finance"
	pricingService "github.com/parkgate/ticketing-service/internal/services/pricing"
	promotionService "github.com/parkgate/ticketing-service/internal/services/promotion"
	refundService "github.com/parkgate/ticketing-service/internal/services/refund"
	reservationService "github.com/parkgate/ticketing-service/internal/services/reservation"
	"github.com/parkgate/ticketing-service/pkg/middleware"
	"github.com/parkgate/ticketing-service/pkg/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting ticketing service",
		ports.String("version", "0.1.0"))

	dbPool, err := initDatabase(cfg.Database)
	if err != nil {
		logger.Error("failed to initialize database", ports.Err(err))
		os.Exit(1)
	}
	defer dbPool.Close()

	logger.Info("database connection established",
		ports.String("database", cfg.Database.Database))

	db := postgres.NewDBExecutor(dbPool)
	ticketTypes := postgres.NewTicketTypeRepository(db)
	priceRules := postgres.NewPriceRuleRepository(db)
	promotions := postgres.NewPromotionRepository(db)
	reservations := postgres.NewReservationRepository(db)
	tickets := postgres.NewTicketRepository(db)
	refunds := postgres.NewRefundRepository(db)
	financial := postgres.NewFinancialRepository(db)

	var membershipGateway ports.MembershipGateway
	var amqpConn *amqp.Connection
	if cfg.RabbitMQ.Enabled {
		gateway, err := membership.NewGateway(cfg.RabbitMQ.URL, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", ports.Err(err))
			os.Exit(1)
		}
		defer gateway.Close()
		membershipGateway = gateway
		amqpConn = gateway.Conn()
	} else {
		membershipGateway = membership.NewOfflineGateway(logger)
	}

	resolver := pricingService.NewResolver(ticketTypes, priceRules, logger)
	evaluator := promotionService.NewEngine(promotions, logger)
	refundSvc := refundService.NewService(db, tickets, refunds, reservations, financial, logger)
	reservationSvc := reservationService.NewService(
		db, ticketTypes, reservations, tickets, financial, promotions,
		resolver, evaluator, membershipGateway, refundSvc, logger)
	catalogSvc := catalogService.NewService(db, ticketTypes, logger)
	financeSvc := financeService.NewService(db, financial, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	defer rateLimiter.Shutdown()
	e.Use(rateLimiter.Echo())

	handlers.NewReservationHandler(reservationSvc).RegisterRoutes(e)
	handlers.NewRefundHandler(refundSvc).RegisterRoutes(e)
	handlers.NewCatalogHandler(catalogSvc).RegisterRoutes(e)
	handlers.NewFinanceHandler(financeSvc).RegisterRoutes(e)

	healthChecker := observability.NewHealthChecker(dbPool, amqpConn)
	metricsServer := observability.StartMetricsServer(fmt.Sprintf("%d", cfg.Server.MetricsPort), healthChecker)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.Info("http server listening", ports.String("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped", ports.Err(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", ports.Err(err))
	}
	if err := observability.ShutdownMetricsServer(metricsServer); err != nil {
		logger.Error("metrics server shutdown error", ports.Err(err))
	}

	logger.Info("stopped")
}

// initLogger builds the zap-backed logger per configuration
func initLogger(cfg config.LoggerConfig) (*logging.ZapLoggerAdapter, error) {
	if cfg.Development {
		return logging.NewZapLoggerDevelopment()
	}

	zapCfg := zap.NewProductionConfig()
	if level, err := zap.ParseAtomicLevel(cfg.Level); err == nil {
		zapCfg.Level = level
	}
	zapLogger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logging.NewZapLogger(zapLogger), nil
}

// initDatabase builds the pgx connection pool
func initDatabase(cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
