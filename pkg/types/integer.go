package types

import (
	"encoding/binary"
	"hash/fnv"
	"io"
	"storemy/pkg/primitives"
	"strconv"
)

// IntField is the engine's sole fixed-width integer field kind: a signed
// 64-bit value serialized big-endian.
type IntField struct {
	Value int64
}

func NewIntField(value int64) *IntField {
	return &IntField{Value: value}
}

func (f *IntField) Serialize(w io.Writer) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(f.Value))
	_, err := w.Write(buf)
	return err
}

func (f *IntField) Compare(op Predicate, other Field) (bool, error) {
	otherField, ok := other.(*IntField)
	if !ok {
		return false, nil
	}
	return compareInt64(f.Value, otherField.Value, op), nil
}

func (f *IntField) Type() Type {
	return IntType
}

func (f *IntField) String() string {
	return strconv.FormatInt(f.Value, 10)
}

func (f *IntField) Equals(other Field) bool {
	otherField, ok := other.(*IntField)
	if !ok {
		return false
	}
	return f.Value == otherField.Value
}

func (f *IntField) Hash() (primitives.HashCode, error) {
	h := fnv.New32a()
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(f.Value))
	_, _ = h.Write(buf)
	return primitives.HashCode(h.Sum32()), nil
}

func (f *IntField) Length() uint32 {
	return 8
}

func compareInt64(a, b int64, op Predicate) bool {
	switch op {
	case Equals:
		return a == b
	case LessThan:
		return a < b
	case GreaterThan:
		return a > b
	case LessThanOrEqual:
		return a <= b
	case GreaterThanOrEqual:
		return a >= b
	case NotEqual:
		return a != b
	default:
		return false
	}
}
