package execution

import (
	"path/filepath"
	"storemy/pkg/catalog"
	"storemy/pkg/memory"
	"storemy/pkg/primitives"
	"storemy/pkg/storage/heap"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
	"testing"
)

// testEnv wires a single-table heap-backed database for operator tests.
type testEnv struct {
	catalog   *catalog.Catalog
	pageStore *memory.PageStore
	tid       *primitives.TransactionID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tables := memory.NewTableManager()
	walPath := filepath.Join(t.TempDir(), "wal.log")
	pageStore, err := memory.NewPageStore(tables, walPath, 64)
	if err != nil {
		t.Fatalf("NewPageStore failed: %v", err)
	}
	t.Cleanup(func() { pageStore.Close() })

	return &testEnv{
		catalog:   catalog.New(tables),
		pageStore: pageStore,
		tid:       primitives.NewTransactionID(),
	}
}

// addTable registers a fresh two-column (id INT, val INT) heap table named
// name, pre-populated with rows (0,0)..(numRows-1,numRows-1).
func (e *testEnv) addTable(t *testing.T, name string, numRows int) primitives.TableID {
	t.Helper()

	td, err := tuple.NewTupleDesc([]types.Type{types.IntType, types.IntType}, []string{"id", "val"})
	if err != nil {
		t.Fatalf("failed to build tuple description: %v", err)
	}

	path := filepath.Join(t.TempDir(), name+".dat")
	f, err := heap.NewHeapFile(primitives.Filepath(path), td)
	if err != nil {
		t.Fatalf("failed to create heap file: %v", err)
	}

	if err := e.catalog.Register(f, name, "id"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	id := f.GetID()
	for i := 0; i < numRows; i++ {
		row := tuple.NewTuple(td)
		if err := row.SetField(0, types.NewIntField(int64(i))); err != nil {
			t.Fatalf("SetField failed: %v", err)
		}
		if err := row.SetField(1, types.NewIntField(int64(i))); err != nil {
			t.Fatalf("SetField failed: %v", err)
		}
		if err := e.pageStore.InsertTuple(e.tid, id, row); err != nil {
			t.Fatalf("InsertTuple failed: %v", err)
		}
	}

	return id
}

func drain(t *testing.T, it interface {
	HasNext() (bool, error)
	Next() (*tuple.Tuple, error)
}) []*tuple.Tuple {
	t.Helper()
	var out []*tuple.Tuple
	for {
		hasNext, err := it.HasNext()
		if err != nil {
			t.Fatalf("HasNext failed: %v", err)
		}
		if !hasNext {
			break
		}
		tup, err := it.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		out = append(out, tup)
	}
	return out
}
