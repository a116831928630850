package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/S-poovarasan/College-Fund-Management/internal/config"
	"github.com/S-poovarasan/College-Fund-Management/internal/docmerge"
	httpserver "github.com/S-poovarasan/College-Fund-Management/internal/interfaces/http"
	"github.com/S-poovarasan/College-Fund-Management/internal/ledger"
	"github.com/S-poovarasan/College-Fund-Management/internal/report"
	"github.com/S-poovarasan/College-Fund-Management/internal/repository"
	"github.com/S-poovarasan/College-Fund-Management/internal/storage"
	"github.com/S-poovarasan/College-Fund-Management/pkg/database"
	"github.com/S-poovarasan/College-Fund-Management/pkg/logger"
)

func main() {
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Fund Management System",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	if err := os.MkdirAll(cfg.Storage.UploadDir, 0755); err != nil {
		log.Fatal("Failed to create upload directory", zap.Error(err))
	}

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, log)
	if err := migrator.Run(cfg.Database.MigrationsDir); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	departmentRepo := repository.NewDepartmentRepository(db.DB, log)
	billRepo := repository.NewBillRepository(db.DB, log)

	artifactStore, err := storage.NewLocalArtifactStore(cfg.Storage.ArtifactDir, log)
	if err != nil {
		log.Fatal("Failed to initialize artifact store", zap.Error(err))
	}

	merger := docmerge.NewMerger(artifactStore, docmerge.Config{
		Timeout:      cfg.Merge.Timeout,
		MaxDocuments: cfg.Merge.MaxDocuments,
	}, log)

	ledgerService := ledger.NewService(db, departmentRepo, billRepo, merger, artifactStore, log)

	reportEngine := report.NewEngine(departmentRepo, billRepo, log)
	pdfRenderer := report.NewPDFRenderer(cfg.Report.Institution, cfg.Report.Currency)
	excelRenderer := report.NewExcelRenderer(cfg.Report.Institution)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		UploadDir:    cfg.Storage.UploadDir,
	}, ledgerService, reportEngine, pdfRenderer, excelRenderer, httpserver.HeaderAuthenticator{}, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited successfully")
}
