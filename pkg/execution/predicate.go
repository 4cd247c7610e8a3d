package execution

import (
	"fmt"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

// FilterPredicate compares one field of a tuple either against a constant
// value or against another field of the same tuple. Filter uses exactly one
// FilterPredicate per operator instance; the two constructors below pick
// which comparison mode it runs in.
type FilterPredicate struct {
	fieldIndex int
	op         types.Predicate
	operand    types.Field
	otherField int
}

// NewConstPredicate builds a predicate comparing tuple field fieldIndex
// against the fixed value operand.
func NewConstPredicate(fieldIndex int, op types.Predicate, operand types.Field) (*FilterPredicate, error) {
	if fieldIndex < 0 {
		return nil, fmt.Errorf("field index cannot be negative: %d", fieldIndex)
	}
	if operand == nil {
		return nil, fmt.Errorf("operand cannot be nil")
	}
	return &FilterPredicate{fieldIndex: fieldIndex, op: op, operand: operand, otherField: -1}, nil
}

// NewFieldPredicate builds a predicate comparing tuple field fieldIndex
// against field otherField of the same tuple.
func NewFieldPredicate(fieldIndex int, op types.Predicate, otherField int) (*FilterPredicate, error) {
	if fieldIndex < 0 {
		return nil, fmt.Errorf("field index cannot be negative: %d", fieldIndex)
	}
	if otherField < 0 {
		return nil, fmt.Errorf("other field index cannot be negative: %d", otherField)
	}
	return &FilterPredicate{fieldIndex: fieldIndex, op: op, otherField: otherField}, nil
}

// Eval reports whether t satisfies the predicate. A nil field never
// satisfies any comparison.
func (p *FilterPredicate) Eval(t *tuple.Tuple) (bool, error) {
	field, err := t.GetField(p.fieldIndex)
	if err != nil {
		return false, err
	}
	if field == nil {
		return false, nil
	}

	operand := p.operand
	if p.otherField >= 0 {
		operand, err = t.GetField(p.otherField)
		if err != nil {
			return false, err
		}
		if operand == nil {
			return false, nil
		}
	}

	return field.Compare(p.op, operand)
}

// String returns a debug representation of the predicate.
func (p *FilterPredicate) String() string {
	if p.otherField >= 0 {
		return fmt.Sprintf("field[%d] %s field[%d]", p.fieldIndex, p.op.String(), p.otherField)
	}
	return fmt.Sprintf("field[%d] %s %s", p.fieldIndex, p.op.String(), p.operand.String())
}
