package memory

import (
	"fmt"
	"storemy/pkg/primitives"
	"storemy/pkg/storage/page"
	"storemy/pkg/tuple"
)

// TableInfo holds metadata about a table registered with a TableManager.
type TableInfo struct {
	File       page.DbFile // The file storing the table data
	Name       string
	PrimaryKey string
	TupleDesc  *tuple.TupleDescription
}

// NewTableInfo creates a new table info instance.
func NewTableInfo(file page.DbFile, name, primaryKey string) *TableInfo {
	return &TableInfo{
		File:       file,
		Name:       name,
		PrimaryKey: primaryKey,
		TupleDesc:  file.GetTupleDesc(),
	}
}

// GetID returns the table's unique identifier.
func (ti *TableInfo) GetID() primitives.TableID {
	return ti.File.GetID()
}

// String returns a human-readable summary of the table entry.
func (ti *TableInfo) String() string {
	return fmt.Sprintf("Table(name=%s, id=%v, pkey=%s)", ti.Name, ti.GetID(), ti.PrimaryKey)
}
