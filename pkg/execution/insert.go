package execution

import (
	"fmt"
	"storemy/pkg/iterator"
	"storemy/pkg/memory"
	"storemy/pkg/primitives"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

// Insert drives tuples read from its child into a table via the buffer
// pool. Its output schema is always a single INT_TYPE "insertCount" field: one
// result tuple carrying the number of rows inserted, produced the first
// time it is drained and never again until Rewind is called.
type Insert struct {
	tid       *primitives.TransactionID
	tableID   primitives.TableID
	child     iterator.DbIterator
	pageStore *memory.PageStore
	tupleDesc *tuple.TupleDescription

	opened bool
	called bool
}

func NewInsert(tid *primitives.TransactionID, tableID primitives.TableID, child iterator.DbIterator, pageStore *memory.PageStore) (*Insert, error) {
	if child == nil {
		return nil, fmt.Errorf("child operator cannot be nil")
	}
	if pageStore == nil {
		return nil, fmt.Errorf("page store cannot be nil")
	}

	td, err := tuple.NewTupleDesc([]types.Type{types.IntType}, []string{"insertCount"})
	if err != nil {
		return nil, err
	}

	return &Insert{
		tid:       tid,
		tableID:   tableID,
		child:     child,
		pageStore: pageStore,
		tupleDesc: td,
	}, nil
}

func (ins *Insert) Open() error {
	if ins.opened {
		return fmt.Errorf("insert already opened")
	}
	if err := ins.child.Open(); err != nil {
		return fmt.Errorf("failed to open child operator: %v", err)
	}
	ins.opened = true
	ins.called = false
	return nil
}

func (ins *Insert) Close() error {
	if ins.child != nil {
		ins.child.Close()
	}
	ins.opened = false
	ins.called = false
	return nil
}

func (ins *Insert) Rewind() error {
	if !ins.opened {
		return fmt.Errorf("insert not opened")
	}
	if err := ins.child.Rewind(); err != nil {
		return err
	}
	ins.called = false
	return nil
}

func (ins *Insert) GetTupleDesc() *tuple.TupleDescription {
	return ins.tupleDesc
}

// HasNext reports whether the result count tuple has not yet been returned.
func (ins *Insert) HasNext() (bool, error) {
	if !ins.opened {
		return false, fmt.Errorf("insert not opened")
	}
	return !ins.called, nil
}

// Next drains the child entirely, inserting every tuple it produces through
// the buffer pool, then returns the single count tuple. Calling Next again
// without an intervening Rewind is an error, matching every other operator's
// "exhausted" behavior.
func (ins *Insert) Next() (*tuple.Tuple, error) {
	if !ins.opened {
		return nil, fmt.Errorf("insert not opened")
	}
	if ins.called {
		return nil, fmt.Errorf("no more tuples available")
	}

	count := int64(0)
	for {
		hasNext, err := ins.child.HasNext()
		if err != nil {
			return nil, fmt.Errorf("error checking child operator: %v", err)
		}
		if !hasNext {
			break
		}

		t, err := ins.child.Next()
		if err != nil {
			return nil, fmt.Errorf("error reading from child operator: %v", err)
		}

		if err := ins.pageStore.InsertTuple(ins.tid, ins.tableID, t); err != nil {
			return nil, fmt.Errorf("insert failed: %v", err)
		}
		count++
	}

	ins.called = true

	result := tuple.NewTuple(ins.tupleDesc)
	if err := result.SetField(0, types.NewIntField(count)); err != nil {
		return nil, err
	}
	return result, nil
}
