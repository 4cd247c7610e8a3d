package execution

import (
	"fmt"
	"storemy/pkg/iterator"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

// JoinPredicate compares one field of a left-side tuple to one field of a
// right-side tuple. Join supports exactly one such predicate.
type JoinPredicate struct {
	leftField  int
	rightField int
	op         types.Predicate
}

func NewJoinPredicate(leftField int, op types.Predicate, rightField int) (*JoinPredicate, error) {
	if leftField < 0 {
		return nil, fmt.Errorf("left field index cannot be negative: %d", leftField)
	}
	if rightField < 0 {
		return nil, fmt.Errorf("right field index cannot be negative: %d", rightField)
	}
	return &JoinPredicate{leftField: leftField, rightField: rightField, op: op}, nil
}

// Eval reports whether the left and right tuples satisfy the predicate.
func (jp *JoinPredicate) Eval(left, right *tuple.Tuple) (bool, error) {
	leftField, err := left.GetField(jp.leftField)
	if err != nil {
		return false, fmt.Errorf("failed to get field %d from left tuple: %v", jp.leftField, err)
	}
	rightField, err := right.GetField(jp.rightField)
	if err != nil {
		return false, fmt.Errorf("failed to get field %d from right tuple: %v", jp.rightField, err)
	}
	if leftField == nil || rightField == nil {
		return false, nil
	}
	return leftField.Compare(jp.op, rightField)
}

func (jp *JoinPredicate) String() string {
	return fmt.Sprintf("left[%d] %s right[%d]", jp.leftField, jp.op.String(), jp.rightField)
}

// Join is a simple nested-loop join: for every left tuple it rewinds and
// scans the entire right child, emitting the concatenation of every pair
// that satisfies the predicate. It buffers no more than one right-child pass
// worth of state and does not require either input to fit in memory.
type Join struct {
	predicate *JoinPredicate
	left      iterator.DbIterator
	right     iterator.DbIterator
	tupleDesc *tuple.TupleDescription

	opened      bool
	leftTuple   *tuple.Tuple
	leftPending bool

	nextTuple     *tuple.Tuple
	hasNextCalled bool
}

func NewJoin(predicate *JoinPredicate, left, right iterator.DbIterator) (*Join, error) {
	if predicate == nil {
		return nil, fmt.Errorf("predicate cannot be nil")
	}
	if left == nil || right == nil {
		return nil, fmt.Errorf("child operators cannot be nil")
	}
	return &Join{
		predicate: predicate,
		left:      left,
		right:     right,
		tupleDesc: tuple.Combine(left.GetTupleDesc(), right.GetTupleDesc()),
	}, nil
}

func (j *Join) Open() error {
	if j.opened {
		return fmt.Errorf("join already opened")
	}
	if err := j.left.Open(); err != nil {
		return fmt.Errorf("failed to open left child: %v", err)
	}
	if err := j.right.Open(); err != nil {
		return fmt.Errorf("failed to open right child: %v", err)
	}
	j.opened = true
	j.leftTuple = nil
	j.leftPending = false
	j.nextTuple = nil
	j.hasNextCalled = false
	return nil
}

func (j *Join) Close() error {
	if j.left != nil {
		j.left.Close()
	}
	if j.right != nil {
		j.right.Close()
	}
	j.opened = false
	j.leftTuple = nil
	j.leftPending = false
	j.nextTuple = nil
	j.hasNextCalled = false
	return nil
}

func (j *Join) Rewind() error {
	if !j.opened {
		return fmt.Errorf("join not opened")
	}
	if err := j.left.Rewind(); err != nil {
		return err
	}
	if err := j.right.Rewind(); err != nil {
		return err
	}
	j.leftTuple = nil
	j.leftPending = false
	j.nextTuple = nil
	j.hasNextCalled = false
	return nil
}

func (j *Join) GetTupleDesc() *tuple.TupleDescription {
	return j.tupleDesc
}

func (j *Join) HasNext() (bool, error) {
	if !j.opened {
		return false, fmt.Errorf("join not opened")
	}
	if !j.hasNextCalled {
		var err error
		j.nextTuple, err = j.readNext()
		if err != nil {
			return false, err
		}
		j.hasNextCalled = true
	}
	return j.nextTuple != nil, nil
}

func (j *Join) Next() (*tuple.Tuple, error) {
	if !j.opened {
		return nil, fmt.Errorf("join not opened")
	}
	if !j.hasNextCalled {
		hasNext, err := j.HasNext()
		if err != nil {
			return nil, err
		}
		if !hasNext {
			return nil, fmt.Errorf("no more tuples available")
		}
	}
	result := j.nextTuple
	j.nextTuple = nil
	j.hasNextCalled = false
	return result, nil
}

// readNext advances the right child under the current left tuple until a
// match is found, pulling a new left tuple and rewinding the right child
// whenever the right side is exhausted.
func (j *Join) readNext() (*tuple.Tuple, error) {
	for {
		if !j.leftPending {
			hasLeft, err := j.left.HasNext()
			if err != nil {
				return nil, fmt.Errorf("error checking left child: %v", err)
			}
			if !hasLeft {
				return nil, nil
			}

			j.leftTuple, err = j.left.Next()
			if err != nil {
				return nil, fmt.Errorf("error reading left child: %v", err)
			}
			j.leftPending = true

			if err := j.right.Rewind(); err != nil {
				return nil, fmt.Errorf("error rewinding right child: %v", err)
			}
		}

		hasRight, err := j.right.HasNext()
		if err != nil {
			return nil, fmt.Errorf("error checking right child: %v", err)
		}
		if !hasRight {
			j.leftPending = false
			continue
		}

		rightTuple, err := j.right.Next()
		if err != nil {
			return nil, fmt.Errorf("error reading right child: %v", err)
		}

		matches, err := j.predicate.Eval(j.leftTuple, rightTuple)
		if err != nil {
			return nil, fmt.Errorf("predicate evaluation failed: %v", err)
		}
		if !matches {
			continue
		}

		return tuple.CombineTuples(j.leftTuple, rightTuple)
	}
}
