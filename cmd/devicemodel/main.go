package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"devicemodel/internal/config"
	"devicemodel/internal/db"
	"devicemodel/internal/gatewayclient"
	"devicemodel/internal/httpapi"
	"devicemodel/internal/logging"
	"devicemodel/internal/repo"
	"devicemodel/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "devicemodel")
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	d, err := open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open storage", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}
	defer d.Close()

	if cfg.AutoMigrate {
		if err := d.Migrate(ctx); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
	}

	stores, err := repo.NewStores(d.Gorm)
	if err != nil {
		logger.Fatal("stores", zap.Error(err))
	}
	linker := repo.NewAsyncLinker(stores.Links, cfg.LinkTimeout, logger)
	deviceModel := repo.NewDeviceModelRepo(stores, linker, logger)

	gw := gatewayclient.New(cfg.GatewayBaseURL, cfg.GatewayAPIKey)

	processor := services.NewDeviceModelProcessor(deviceModel, logger)
	boot := services.NewBootConfigurator(deviceModel, gw, logger)
	srv := httpapi.NewServer(cfg, deviceModel, processor, boot, d.Ping, logger)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("device model listening", zap.String("addr", cfg.ListenAddr), zap.String("driver", cfg.StorageDriver))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = httpServer.Shutdown(ctx2)
	linker.Wait()
	logger.Info("device model shutdown complete")
}

func open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*db.DB, error) {
	if cfg.StorageDriver == config.DriverSQLite {
		return db.OpenSQLite(cfg.SQLitePath, logging.Gorm(logger))
	}
	return db.Connect(ctx, cfg.DatabaseURL, logging.Gorm(logger))
}
