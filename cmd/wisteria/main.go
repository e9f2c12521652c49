package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/wisteria-social/federation"
	"github.com/wisteria-social/federation/internal/config"
	"github.com/wisteria-social/federation/internal/domain"
	"github.com/wisteria-social/federation/internal/infrastructure/providers"
	"github.com/wisteria-social/federation/internal/infrastructure/repository"
	"github.com/wisteria-social/federation/internal/observability"
	"github.com/wisteria-social/federation/internal/present/rest"
	"github.com/wisteria-social/federation/internal/service"
	"github.com/wisteria-social/federation/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	listenAddr := flag.String("listen", ":8000", "listen address")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	if conf.Server.EnableTrace {
		shutdown, err := observability.SetupTracing(ctx, "wisteria", conf.Server.TraceEndpoint)
		if err != nil {
			slog.Error("Failed to setup tracing", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer shutdown(ctx)
	}

	db, err := providers.NewDatabase(conf.Server)
	if err != nil {
		slog.Error("Failed to connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := providers.MigrateDatabase(db); err != nil {
		slog.Error("Failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rdb := providers.NewRedis(conf.Server)
	mc := providers.NewMemcache(conf.Server.MemcachedAddr)
	cl := providers.NewClient(conf.NodeInfo.FQDN)

	personRepo := repository.NewPersonRepository(db, mc, cl)
	entityRepo := repository.NewEntityRepository(db)
	dedupRepo := repository.NewDedupRepository(rdb)

	signal := service.NewSignalService(rdb)

	registry := federation.Social()
	podConfig := domain.Config{
		FQDN:         conf.NodeInfo.FQDN,
		Registration: conf.NodeInfo.Registration,
	}

	receiveUC := usecase.NewReceiveUsecase(registry, personRepo, entityRepo, dedupRepo, signal)
	deliveryUC := usecase.NewDeliveryUsecase(registry, personRepo)
	personUC := usecase.NewPersonUsecase(podConfig, personRepo)

	handler := rest.NewHandler(podConfig, receiveUC, deliveryUC, personUC, signal)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("wisteria"))
	}

	handler.RegisterRoutes(e)

	e.Logger.Fatal(e.Start(*listenAddr))
}
