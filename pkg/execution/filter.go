package execution

import (
	"fmt"
	"storemy/pkg/iterator"
	"storemy/pkg/tuple"
)

// Filter passes through only the tuples of its child that satisfy a single
// FilterPredicate. It does not change the schema.
type Filter struct {
	predicate *FilterPredicate
	child     iterator.DbIterator

	opened        bool
	nextTuple     *tuple.Tuple
	hasNextCalled bool
}

func NewFilter(predicate *FilterPredicate, child iterator.DbIterator) (*Filter, error) {
	if predicate == nil {
		return nil, fmt.Errorf("predicate cannot be nil")
	}
	if child == nil {
		return nil, fmt.Errorf("child operator cannot be nil")
	}
	return &Filter{predicate: predicate, child: child}, nil
}

func (f *Filter) Open() error {
	if f.opened {
		return fmt.Errorf("filter already opened")
	}
	if err := f.child.Open(); err != nil {
		return fmt.Errorf("failed to open child operator: %v", err)
	}
	f.opened = true
	f.nextTuple = nil
	f.hasNextCalled = false
	return nil
}

func (f *Filter) Close() error {
	if f.child != nil {
		f.child.Close()
	}
	f.opened = false
	f.nextTuple = nil
	f.hasNextCalled = false
	return nil
}

func (f *Filter) Rewind() error {
	if !f.opened {
		return fmt.Errorf("filter not opened")
	}
	if err := f.child.Rewind(); err != nil {
		return err
	}
	f.nextTuple = nil
	f.hasNextCalled = false
	return nil
}

func (f *Filter) GetTupleDesc() *tuple.TupleDescription {
	return f.child.GetTupleDesc()
}

func (f *Filter) HasNext() (bool, error) {
	if !f.opened {
		return false, fmt.Errorf("filter not opened")
	}
	if !f.hasNextCalled {
		var err error
		f.nextTuple, err = f.readNext()
		if err != nil {
			return false, err
		}
		f.hasNextCalled = true
	}
	return f.nextTuple != nil, nil
}

func (f *Filter) Next() (*tuple.Tuple, error) {
	if !f.opened {
		return nil, fmt.Errorf("filter not opened")
	}
	if !f.hasNextCalled {
		hasNext, err := f.HasNext()
		if err != nil {
			return nil, err
		}
		if !hasNext {
			return nil, fmt.Errorf("no more tuples available")
		}
	}
	result := f.nextTuple
	f.nextTuple = nil
	f.hasNextCalled = false
	return result, nil
}

func (f *Filter) readNext() (*tuple.Tuple, error) {
	for {
		hasNext, err := f.child.HasNext()
		if err != nil {
			return nil, fmt.Errorf("error checking child operator: %v", err)
		}
		if !hasNext {
			return nil, nil
		}

		t, err := f.child.Next()
		if err != nil {
			return nil, fmt.Errorf("error reading from child operator: %v", err)
		}

		passes, err := f.predicate.Eval(t)
		if err != nil {
			return nil, fmt.Errorf("predicate evaluation failed: %v", err)
		}
		if passes {
			return t, nil
		}
	}
}
