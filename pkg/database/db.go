package database

import (
	"fmt"
	"os"
	"path/filepath"
	"storemy/pkg/catalog"
	"storemy/pkg/memory"
	"storemy/pkg/primitives"
	"storemy/pkg/storage/page"
	"sync"
)

const walFileName = "wal.log"

// Database is the top-level handle for one on-disk database directory. It
// owns the buffer pool, the table catalog, and the write-ahead log, and is
// the entry point operators and callers use to begin/commit/abort
// transactions and resolve table references.
//
// There is no SQL surface here: the engine consumes an operator pipeline
// (see pkg/execution) built by the caller, not a query string. Database
// only wires together the pieces a pipeline needs.
type Database struct {
	catalog   *catalog.Catalog
	tables    *memory.TableManager
	pageStore *memory.PageStore

	name    string
	dataDir string

	mutex sync.RWMutex
	stats databaseStats
}

type databaseStats struct {
	mutex     sync.Mutex
	committed int64
	aborted   int64
}

// DatabaseInfo is a point-in-time snapshot of a Database's metadata and
// transaction counters.
type DatabaseInfo struct {
	Name                  string
	Tables                []string
	TableCount            int
	TransactionsCommitted int64
	TransactionsAborted   int64
}

// NewDatabase creates (or reopens) the database directory dataDir/name,
// initializing an empty catalog, buffer pool, and write-ahead log. Existing
// table files under the directory are NOT rediscovered automatically —
// callers re-register them via CreateTable, matching the catalog's
// "no schema/DDL subsystem" contract (see pkg/catalog).
func NewDatabase(name, dataDir string, bufferSize int) (*Database, error) {
	fullPath := filepath.Join(dataDir, name)
	if err := os.MkdirAll(fullPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %v", err)
	}

	tables := memory.NewTableManager()
	walPath := filepath.Join(fullPath, walFileName)
	pageStore, err := memory.NewPageStore(tables, walPath, bufferSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize page store: %v", err)
	}

	return &Database{
		catalog:   catalog.New(tables),
		tables:    tables,
		pageStore: pageStore,
		name:      name,
		dataDir:   fullPath,
	}, nil
}

// CreateTable registers file in the catalog under name, with pKey naming
// its primary-key column.
func (db *Database) CreateTable(file page.DbFile, name, pKey string) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.catalog.Register(file, name, pKey)
}

// DropTable removes name from the catalog. The backing file on disk is left
// untouched; closing it is the caller's responsibility.
func (db *Database) DropTable(name string) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.catalog.Unregister(name)
}

// Catalog returns the database's table registry.
func (db *Database) Catalog() *catalog.Catalog {
	return db.catalog
}

// PageStore returns the buffer pool operators read and write pages through.
func (db *Database) PageStore() *memory.PageStore {
	return db.pageStore
}

// DataDir returns the directory this database's files live under.
func (db *Database) DataDir() string {
	return db.dataDir
}

// BeginTransaction allocates a fresh transaction id. The transaction itself
// has no on-disk footprint until its first page access.
func (db *Database) BeginTransaction() *primitives.TransactionID {
	return primitives.NewTransactionID()
}

// CommitTransaction commits tid: dirty pages are flushed and the WAL
// receives a durable commit record.
func (db *Database) CommitTransaction(tid *primitives.TransactionID) error {
	err := db.pageStore.CommitTransaction(tid)
	db.recordOutcome(err == nil)
	return err
}

// AbortTransaction rolls back every page tid touched and releases its
// locks.
func (db *Database) AbortTransaction(tid *primitives.TransactionID) error {
	err := db.pageStore.AbortTransaction(tid)
	db.recordOutcome(false)
	return err
}

func (db *Database) recordOutcome(committed bool) {
	db.stats.mutex.Lock()
	defer db.stats.mutex.Unlock()
	if committed {
		db.stats.committed++
	} else {
		db.stats.aborted++
	}
}

// GetTables returns every registered table name, in no particular order.
func (db *Database) GetTables() []string {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return db.catalog.TableNames()
}

// GetStatistics returns a snapshot of the database's metadata and
// transaction counters.
func (db *Database) GetStatistics() DatabaseInfo {
	db.stats.mutex.Lock()
	committed := db.stats.committed
	aborted := db.stats.aborted
	db.stats.mutex.Unlock()

	tables := db.GetTables()
	return DatabaseInfo{
		Name:                  db.name,
		Tables:                tables,
		TableCount:            len(tables),
		TransactionsCommitted: committed,
		TransactionsAborted:   aborted,
	}
}

// Close flushes every dirty page and closes the write-ahead log.
func (db *Database) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.pageStore.Close()
}
