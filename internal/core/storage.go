package core

import (
	"context"
	"fmt"
	"os"

	"checkqc/internal/infra/persistence/memory"
	"checkqc/internal/infra/persistence/postgres"
	"checkqc/internal/infra/persistence/sqlite"
	"checkqc/pkg/domain"
)

// StorageDriver identifies a concrete report store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / one-off runs)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageSettings selects and configures the report store.
type StorageSettings struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

// StorageSettingsFromEnv reads the storage settings from the environment.
//
//	CHECKQC_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	CHECKQC_SQLITE_PATH: path to sqlite file (default ./checkqc.db)
//	CHECKQC_POSTGRES_DSN: postgres DSN when driver=postgres
func StorageSettingsFromEnv() StorageSettings {
	return StorageSettings{
		Driver:      StorageDriver(os.Getenv("CHECKQC_STORAGE_DRIVER")),
		SQLitePath:  os.Getenv("CHECKQC_SQLITE_PATH"),
		PostgresDSN: os.Getenv("CHECKQC_POSTGRES_DSN"),
	}
}

// OpenReportStore selects a backend from settings. Defaults to sqlite when
// the driver is unset.
func OpenReportStore(ctx context.Context, settings StorageSettings) (domain.ReportStore, error) {
	driver := settings.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(ctx, settings.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(ctx, settings.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
