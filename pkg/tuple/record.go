package tuple

import (
	"fmt"
	"storemy/pkg/primitives"
)

// RecordID represents a reference to a specific tuple on a specific page
type RecordID struct {
	PageID   PageID            // The page containing this tuple
	TupleNum primitives.SlotID // The slot number within the page
}

// TupleRecordID is the older name for RecordID, kept as an alias so tests and
// callers written against either spelling compile against the same type.
type TupleRecordID = RecordID

// NewRecordID creates a new RecordID
func NewRecordID(pageID PageID, tupleNum primitives.SlotID) *RecordID {
	return &RecordID{
		PageID:   pageID,
		TupleNum: tupleNum,
	}
}

// NewTupleRecordID is an alias of NewRecordID used by the page layer, which
// constructs a RecordID for every tuple it deserializes or inserts.
func NewTupleRecordID(pageID PageID, tupleNum primitives.SlotID) *RecordID {
	return NewRecordID(pageID, tupleNum)
}

func (rid *RecordID) Equals(other *RecordID) bool {
	if other == nil {
		return false
	}
	return rid.PageID.Equals(other.PageID) && rid.TupleNum == other.TupleNum
}

func (rid *RecordID) String() string {
	return fmt.Sprintf("RecordID(page=%s, tuple=%d)", rid.PageID.String(), rid.TupleNum)
}
