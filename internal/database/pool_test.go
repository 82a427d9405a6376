package database

import (
	"context"
	"testing"
	"time"

	"gitrdun/backend/internal/models"

	"gorm.io/gorm/logger"
)

func TestDefaultPoolConfig(t *testing.T) {
	config := DefaultPoolConfig()

	if config.Driver != DriverPostgres {
		t.Errorf("Expected driver to be postgres, got %s", config.Driver)
	}

	if config.MaxOpenConns != 25 {
		t.Errorf("Expected MaxOpenConns to be 25, got %d", config.MaxOpenConns)
	}

	if config.MaxIdleConns != 10 {
		t.Errorf("Expected MaxIdleConns to be 10, got %d", config.MaxIdleConns)
	}

	if config.ConnMaxLifetime != time.Hour {
		t.Errorf("Expected ConnMaxLifetime to be 1 hour, got %v", config.ConnMaxLifetime)
	}

	if config.LogLevel != logger.Warn {
		t.Errorf("Expected LogLevel to be Warn, got %v", config.LogLevel)
	}
}

func TestNewDatabasePool_WithNilConfig(t *testing.T) {
	_, err := NewDatabasePool(nil)

	if err == nil {
		t.Error("Expected error due to empty DSN, got nil")
	}
}

func TestNewDatabasePool_UnsupportedDriver(t *testing.T) {
	_, err := NewDatabasePool(&PoolConfig{Driver: "mongo", DSN: "mongodb://localhost"})

	if err == nil {
		t.Error("Expected error for unsupported driver, got nil")
	}
}

func TestNewDatabasePool_SQLite(t *testing.T) {
	config := DefaultPoolConfig()
	config.Driver = DriverSQLite
	config.DSN = ":memory:"
	config.LogLevel = logger.Silent

	pool, err := NewDatabasePool(config)
	if err != nil {
		t.Fatalf("Expected sqlite pool, got error: %v", err)
	}
	defer pool.Close()

	if err := pool.Health(context.Background()); err != nil {
		t.Errorf("Expected healthy pool, got: %v", err)
	}

	stats := pool.Stats()
	if stats["max_open_connections"] != 1 {
		t.Errorf("Expected sqlite pool to be capped at 1 connection, got %v", stats["max_open_connections"])
	}
}

func TestOpenSQLite_MigratesGrantUniqueness(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("Expected migrated database, got error: %v", err)
	}

	if !db.Migrator().HasIndex(&models.AccessGrant{}, "idx_access_grantee_list") {
		t.Error("Expected unique index on (grantee_id, list_id)")
	}

	for _, model := range models.All() {
		if !db.Migrator().HasTable(model) {
			t.Errorf("Expected table for %T", model)
		}
	}
}

func TestDatabasePool_Stats_WithoutConnection(t *testing.T) {
	pool := &DatabasePool{DB: nil, config: &PoolConfig{MaxOpenConns: 10}}

	stats := pool.Stats()

	if _, hasError := stats["error"]; !hasError {
		t.Error("Expected error in stats when DB is nil")
	}
}

func TestDatabasePool_Health_WithoutConnection(t *testing.T) {
	pool := &DatabasePool{DB: nil}

	if err := pool.Health(context.Background()); err == nil {
		t.Error("Expected error when checking health with nil DB")
	}
}

func TestDatabasePool_Close_WithoutConnection(t *testing.T) {
	pool := &DatabasePool{DB: nil}

	if err := pool.Close(); err != nil {
		t.Errorf("Expected no error when closing nil DB, got: %v", err)
	}
}
