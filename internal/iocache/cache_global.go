package iocache

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/huangsam/cruxreport/schema"
)

// responseTable is the table (or redis key prefix) for CrUX responses.
const responseTable = "crux_cache"

// Global Manager instance for main logic.
var (
	Manager   = &CacheStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// StoreConfig selects the backends of the response cache and the run log.
// An empty backend leaves that store uninitialized.
type StoreConfig struct {
	CacheBackend schema.DatabaseBackend
	CacheConnect string
	CacheTTL     time.Duration
	RunBackend   schema.DatabaseBackend
	RunConnect   string
}

// InitStores initializes the global manager with the response cache and run log.
func InitStores(sc StoreConfig) error {
	var initErr error

	initOnce.Do(func() {
		response, runs, err := openStores(sc)
		if err != nil {
			initErr = err
			return
		}
		Manager.Lock()
		defer Manager.Unlock()
		Manager.response = response
		Manager.runs = runs
	})

	return initErr
}

// NewManager builds a standalone manager outside the global one.
func NewManager(sc StoreConfig) (*CacheStoreManager, error) {
	response, runs, err := openStores(sc)
	if err != nil {
		return nil, err
	}
	return &CacheStoreManager{response: response, runs: runs}, nil
}

// Close closes both stores of a manager.
func (mgr *CacheStoreManager) Close() {
	mgr.Lock()
	defer mgr.Unlock()
	if mgr.response != nil {
		_ = mgr.response.Close()
	}
	if mgr.runs != nil {
		_ = mgr.runs.Close()
	}
}

func openStores(sc StoreConfig) (contract.CacheStore, contract.RunStore, error) {
	var response contract.CacheStore
	var runs contract.RunStore
	var err error

	if sc.CacheBackend != "" {
		response, err = NewCacheStore(responseTable, sc.CacheBackend, sc.CacheConnect, sc.CacheTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize response caching: %w", err)
		}
	}

	if sc.RunBackend != "" {
		runs, err = NewRunStore(sc.RunBackend, sc.RunConnect)
		if err != nil {
			if response != nil {
				_ = response.Close()
			}
			return nil, nil, fmt.Errorf("failed to initialize run store: %w", err)
		}
	}

	return response, runs, nil
}

// CloseCaching should be called on application shutdown.
func CloseCaching() { // called in main defer
	closeOnce.Do(Manager.Close)
}

// ClearCache clears the response cache for the specified backend.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the table.
// For Redis, it deletes every key under the cache prefix.
func ClearCache(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		return removeSQLiteFile(dbFilePath)
	case schema.MySQLBackend:
		return clearSQLTable("mysql", connStr, quoteTableName(responseTable, backend))
	case schema.PostgreSQLBackend:
		return clearSQLTable("pgx", connStr, quoteTableName(responseTable, backend))
	case schema.RedisBackend:
		return clearRedisPrefix(connStr, responseTable)
	case schema.NoneBackend:
		return nil
	default:
		return fmt.Errorf("unsupported cache backend for clearing: %s", backend)
	}
}

// ClearRuns clears the run log for the specified backend.
func ClearRuns(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	var driverName string
	switch backend {
	case schema.SQLiteBackend:
		return removeSQLiteFile(dbFilePath)
	case schema.MySQLBackend:
		driverName = "mysql"
	case schema.PostgreSQLBackend:
		driverName = "pgx"
	case schema.NoneBackend:
		return nil
	default:
		return fmt.Errorf("unsupported run backend for clearing: %s", backend)
	}

	for _, table := range []string{urlOutcomesTable, runsTable, "schema_migrations"} {
		if err := clearSQLTable(driverName, connStr, quoteTableName(table, backend)); err != nil {
			return err
		}
	}
	return nil
}

// removeSQLiteFile deletes a SQLite database file; a missing file is not an error.
func removeSQLiteFile(dbFilePath string) error {
	if dbFilePath == "" {
		return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
	}
	if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
	}
	return nil
}

// clearSQLTable connects to the SQL database and drops the table if it exists.
func clearSQLTable(driverName, connStr, quotedTable string) error {
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", driverName, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}

	if _, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", quotedTable)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", quotedTable, err)
	}
	return nil
}
