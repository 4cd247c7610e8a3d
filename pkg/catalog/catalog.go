// Package catalog is the minimal table registry the engine consumes to
// resolve a table id to its backing file, its name, and the set of tables
// it knows about. It is deliberately narrow: no schema definitions, no DDL
// statements, no on-disk system tables. The reference codebase's
// catalog/catalogmanager subsystem (a full persisted schema store with
// column/statistics system tables) is out of scope here; callers that need
// a table registered open its DbFile themselves and hand it to Register.
package catalog

import (
	"storemy/pkg/memory"
	"storemy/pkg/primitives"
	"storemy/pkg/storage/page"
)

// Catalog satisfies the engine's catalog contract: databaseFile(tableId),
// tableIdIterator(), tableName(tableId). It is a thin adapter over
// memory.TableManager, which already owns the name/id/file bookkeeping;
// Catalog exists so operators depend on a small, stable interface instead
// of reaching into the buffer-pool package directly.
type Catalog struct {
	tables *memory.TableManager
}

// New wraps an existing TableManager as a Catalog.
func New(tables *memory.TableManager) *Catalog {
	return &Catalog{tables: tables}
}

// Register adds a table to the catalog under name, backed by file. pKey
// names the primary-key column; it is informational only for heap files and
// required for B+-tree-backed ones. Registering a name that already exists
// replaces the prior mapping, matching TableManager.AddTable.
func (c *Catalog) Register(file page.DbFile, name, pKey string) error {
	return c.tables.AddTable(file, name, pKey)
}

// Unregister drops name from the catalog.
func (c *Catalog) Unregister(name string) error {
	return c.tables.RemoveTable(name)
}

// DatabaseFile resolves tableID to the DbFile that stores it.
func (c *Catalog) DatabaseFile(tableID primitives.TableID) (page.DbFile, error) {
	return c.tables.GetDbFile(tableID)
}

// TableName resolves tableID to its registered name.
func (c *Catalog) TableName(tableID primitives.TableID) (string, error) {
	return c.tables.GetTableName(tableID)
}

// TableID resolves a registered name to its table id.
func (c *Catalog) TableID(name string) (primitives.TableID, error) {
	return c.tables.GetTableID(name)
}

// TableIDs returns every table id currently registered, in no particular
// order. This is the catalog's answer to "tableIdIterator()": TableManager
// keeps its canonical index by name, so this round-trips through the name
// list rather than exposing TableManager's internal map.
func (c *Catalog) TableIDs() []primitives.TableID {
	names := c.tables.GetAllTableNames()
	ids := make([]primitives.TableID, 0, len(names))
	for _, name := range names {
		id, err := c.tables.GetTableID(name)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// TableNames returns every registered table name, in no particular order.
func (c *Catalog) TableNames() []string {
	return c.tables.GetAllTableNames()
}

// TableExists reports whether name is currently registered.
func (c *Catalog) TableExists(name string) bool {
	return c.tables.TableExists(name)
}
