package execution

import (
	"fmt"
	"storemy/pkg/iterator"
	"storemy/pkg/memory"
	"storemy/pkg/primitives"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

// Delete drives tuples read from its child out of the database via the
// buffer pool. Like Insert, its output is a single tuple with one INT_TYPE
// field ("deleteCount"),
// produced the first time it is drained.
type Delete struct {
	tid       *primitives.TransactionID
	child     iterator.DbIterator
	pageStore *memory.PageStore
	tupleDesc *tuple.TupleDescription

	opened bool
	called bool
}

func NewDelete(tid *primitives.TransactionID, child iterator.DbIterator, pageStore *memory.PageStore) (*Delete, error) {
	if child == nil {
		return nil, fmt.Errorf("child operator cannot be nil")
	}
	if pageStore == nil {
		return nil, fmt.Errorf("page store cannot be nil")
	}

	td, err := tuple.NewTupleDesc([]types.Type{types.IntType}, []string{"deleteCount"})
	if err != nil {
		return nil, err
	}

	return &Delete{
		tid:       tid,
		child:     child,
		pageStore: pageStore,
		tupleDesc: td,
	}, nil
}

func (del *Delete) Open() error {
	if del.opened {
		return fmt.Errorf("delete already opened")
	}
	if err := del.child.Open(); err != nil {
		return fmt.Errorf("failed to open child operator: %v", err)
	}
	del.opened = true
	del.called = false
	return nil
}

func (del *Delete) Close() error {
	if del.child != nil {
		del.child.Close()
	}
	del.opened = false
	del.called = false
	return nil
}

func (del *Delete) Rewind() error {
	if !del.opened {
		return fmt.Errorf("delete not opened")
	}
	if err := del.child.Rewind(); err != nil {
		return err
	}
	del.called = false
	return nil
}

func (del *Delete) GetTupleDesc() *tuple.TupleDescription {
	return del.tupleDesc
}

func (del *Delete) HasNext() (bool, error) {
	if !del.opened {
		return false, fmt.Errorf("delete not opened")
	}
	return !del.called, nil
}

func (del *Delete) Next() (*tuple.Tuple, error) {
	if !del.opened {
		return nil, fmt.Errorf("delete not opened")
	}
	if del.called {
		return nil, fmt.Errorf("no more tuples available")
	}

	count := int64(0)
	for {
		hasNext, err := del.child.HasNext()
		if err != nil {
			return nil, fmt.Errorf("error checking child operator: %v", err)
		}
		if !hasNext {
			break
		}

		t, err := del.child.Next()
		if err != nil {
			return nil, fmt.Errorf("error reading from child operator: %v", err)
		}

		if err := del.pageStore.DeleteTuple(del.tid, t); err != nil {
			return nil, fmt.Errorf("delete failed: %v", err)
		}
		count++
	}

	del.called = true

	result := tuple.NewTuple(del.tupleDesc)
	if err := result.SetField(0, types.NewIntField(count)); err != nil {
		return nil, err
	}
	return result, nil
}
