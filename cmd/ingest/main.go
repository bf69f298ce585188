package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"devicemodel/internal/config"
	"devicemodel/internal/db"
	"devicemodel/internal/logging"
	"devicemodel/internal/models"
	"devicemodel/internal/repo"
)

// ingest reconciles a JSON array of ReportData into one station, the way a
// NotifyReport would.
func main() {
	station := flag.String("station", "CS-001", "station id")
	file := flag.String("file", "", "JSON file holding a ReportData array")
	migrate := flag.Bool("migrate", true, "migrate the schema first")
	flag.Parse()

	if *file == "" {
		log.Fatal("--file is required")
	}
	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal(err)
	}
	var reports []models.ReportDataType
	if err := json.Unmarshal(raw, &reports); err != nil {
		log.Fatalf("decode %s: %v", *file, err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel, "console", "devicemodel-ingest")
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var d *db.DB
	if cfg.StorageDriver == config.DriverSQLite {
		d, err = db.OpenSQLite(cfg.SQLitePath, logging.Gorm(logger))
	} else {
		d, err = db.Connect(ctx, cfg.DatabaseURL, logging.Gorm(logger))
	}
	if err != nil {
		log.Fatal(err)
	}
	defer d.Close()

	if *migrate {
		if err := d.Migrate(ctx); err != nil {
			log.Fatal(err)
		}
	}

	stores, err := repo.NewStores(d.Gorm)
	if err != nil {
		log.Fatal(err)
	}
	linker := repo.NewAsyncLinker(stores.Links, cfg.LinkTimeout, logger)
	r := repo.NewDeviceModelRepo(stores, linker, logger)

	var attributes int
	for i, rd := range reports {
		out, err := r.CreateOrUpdateDeviceModelByStationID(ctx, rd, *station)
		if err != nil {
			linker.Wait()
			log.Fatalf("report %d (%s/%s): %v", i, rd.Component.Name, rd.Variable.Name, err)
		}
		attributes += len(out)
	}
	linker.Wait()

	logger.Info("reports ingested", zap.String("station_id", *station), zap.Int("reports", len(reports)), zap.Int("attributes", attributes))
	fmt.Printf("Ingested %d reports (%d attributes) into %s\n", len(reports), attributes, *station)
}
