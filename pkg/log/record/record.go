package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"storemy/pkg/primitives"
	"storemy/pkg/storage/page"
	"time"
)

type LSN = primitives.LSN

// RecordSize is the width in bytes of the record-length prefix written at
// the start of every serialized record.
const RecordSize = 4

// LogRecordType represents different types of log records
type LogRecordType uint8

const (
	BeginRecord LogRecordType = iota
	CommitRecord
	AbortRecord

	UpdateRecord
	InsertRecord
	DeleteRecord

	CheckpointBegin
	CheckpointEnd

	CLRRecord
)

// LogRecord represents a single entry in the WAL
type LogRecord struct {
	LSN     LSN // Unique identifier for this record
	Type    LogRecordType
	TID     *primitives.TransactionID
	PrevLSN LSN

	PageID      primitives.PageID // Affected page
	BeforeImage []byte            // Page state before modification (for UNDO)
	AfterImage  []byte            // Page state after modification (for REDO)

	UndoNextLSN LSN // Next record to undo (for CLR records)
	Timestamp   time.Time
}

// TransactionLogInfo tracks logging information for a transaction
type TransactionLogInfo struct {
	FirstLSN, LastLSN, UndoNextLSN LSN
}

func NewLogRecord(logType LogRecordType, tid *primitives.TransactionID, pageId primitives.PageID, beforeImage, afterImage []byte, prevLSN LSN) *LogRecord {
	return &LogRecord{
		Type:        logType,
		TID:         tid,
		PageID:      pageId,
		BeforeImage: beforeImage,
		AfterImage:  afterImage,
		Timestamp:   time.Now(),
		PrevLSN:     prevLSN,
	}
}

// Serialize converts a LogRecord struct into a compact binary representation.
// The serialization format uses big-endian byte ordering for cross-platform compatibility.
//
// Binary format structure:
//
//	[Size:4][Type:1][TID:8][PrevLSN:8][Timestamp:8][Type-specific data]
//
// Type-specific data varies based on record type:
//   - UpdateRecord/InsertRecord/DeleteRecord: PageID + BeforeImage + AfterImage
//   - CLRRecord: PageID + UndoNextLSN + AfterImage
//   - BeginRecord/CommitRecord/AbortRecord: No additional data
//   - CheckpointBegin/CheckpointEnd: No additional data (checkpoint records handled separately)
//
// The Size field at the start includes the entire record length for efficient log scanning.
// PrevLSN creates a linked list of records per transaction, crucial for ARIES rollback.
//
// Returns serialized byte slice, or error if serialization fails.
func (l *LogRecord) Serialize() ([]byte, error) {
	var buf bytes.Buffer

	tidVal := uint64(0)
	if l.TID != nil {
		tidVal = uint64(l.TID.ID()) // #nosec G115
	}

	writes := []any{
		byte(l.Type),
		tidVal,
		uint64(l.PrevLSN),
		uint64(l.Timestamp.Unix()), // #nosec G115
	}

	for _, v := range writes {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			return nil, fmt.Errorf("failed to write base field: %w", err)
		}
	}

	switch l.Type {
	case UpdateRecord, InsertRecord, DeleteRecord:
		if err := l.serializeDataModification(&buf); err != nil {
			return nil, err
		}
	case CLRRecord:
		if err := l.serializeCLR(&buf); err != nil {
			return nil, err
		}
	}

	data := buf.Bytes()
	result := make([]byte, RecordSize+len(data))
	binary.BigEndian.PutUint32(result, uint32(len(result))) // #nosec G115
	copy(result[RecordSize:], data)

	return result, nil
}

// serializeDataModification serializes data modification records (Insert, Update, Delete).
// These records contain a PageID, BeforeImage (for updates/deletes), and AfterImage.
func (l *LogRecord) serializeDataModification(buf *bytes.Buffer) error {
	if err := l.serializePageID(buf); err != nil {
		return err
	}
	if err := l.serializeImage(buf, l.BeforeImage); err != nil {
		return err
	}
	return l.serializeImage(buf, l.AfterImage)
}

// serializeCLR serializes Compensation Log Records (CLR).
// CLRs are used during transaction rollback and contain PageID, UndoNextLSN, and AfterImage.
func (l *LogRecord) serializeCLR(buf *bytes.Buffer) error {
	if err := l.serializePageID(buf); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.BigEndian, uint64(l.UndoNextLSN)); err != nil {
		return fmt.Errorf("failed to write UndoNextLSN: %w", err)
	}
	return l.serializeImage(buf, l.AfterImage)
}

// serializePageID serializes a PageID as two uint32 fields: FileID and PageNo.
func (l *LogRecord) serializePageID(buf *bytes.Buffer) error {
	if l.PageID == nil {
		return nil
	}
	if err := binary.Write(buf, binary.BigEndian, uint32(l.PageID.GetTableID())); err != nil {
		return fmt.Errorf("failed to write PageID fileID: %w", err)
	}
	if err := binary.Write(buf, binary.BigEndian, uint32(l.PageID.PageNo())); err != nil {
		return fmt.Errorf("failed to write PageID pageNo: %w", err)
	}
	return nil
}

// SerializeLogRecord serializes a LogRecord. It is a package-level wrapper
// around (*LogRecord).Serialize so the WAL writer doesn't need a record
// value in hand to call the method.
func SerializeLogRecord(rec *LogRecord) ([]byte, error) {
	return rec.Serialize()
}

// DeserializeLogRecord parses the bytes produced by Serialize/SerializeLogRecord
// back into a LogRecord. data must include the leading record-length prefix.
func DeserializeLogRecord(data []byte) (*LogRecord, error) {
	if len(data) < RecordSize+1+8+8+8 {
		return nil, fmt.Errorf("record data too short: %d bytes", len(data))
	}

	buf := bytes.NewReader(data[RecordSize:])

	var recType byte
	var tidVal, prevLSN, ts uint64

	if err := binary.Read(buf, binary.BigEndian, &recType); err != nil {
		return nil, fmt.Errorf("failed to read record type: %w", err)
	}
	if err := binary.Read(buf, binary.BigEndian, &tidVal); err != nil {
		return nil, fmt.Errorf("failed to read tid: %w", err)
	}
	if err := binary.Read(buf, binary.BigEndian, &prevLSN); err != nil {
		return nil, fmt.Errorf("failed to read prevLSN: %w", err)
	}
	if err := binary.Read(buf, binary.BigEndian, &ts); err != nil {
		return nil, fmt.Errorf("failed to read timestamp: %w", err)
	}

	rec := &LogRecord{
		Type:      LogRecordType(recType),
		PrevLSN:   LSN(prevLSN),
		Timestamp: time.Unix(int64(ts), 0), // #nosec G115
	}
	if tidVal != 0 {
		tid := primitives.NewTransactionIDFromValue(int64(tidVal)) // #nosec G115
		rec.TID = tid
	}

	switch rec.Type {
	case UpdateRecord, InsertRecord, DeleteRecord:
		if err := deserializeDataModification(buf, rec); err != nil {
			return nil, err
		}
	case CLRRecord:
		if err := deserializeCLR(buf, rec); err != nil {
			return nil, err
		}
	}

	return rec, nil
}

func deserializeDataModification(r *bytes.Reader, rec *LogRecord) error {
	pageID, err := deserializePageID(r)
	if err != nil {
		return err
	}
	rec.PageID = pageID

	before, err := deserializeImage(r)
	if err != nil {
		return fmt.Errorf("failed to read before image: %w", err)
	}
	rec.BeforeImage = before

	after, err := deserializeImage(r)
	if err != nil {
		return fmt.Errorf("failed to read after image: %w", err)
	}
	rec.AfterImage = after
	return nil
}

func deserializeCLR(r *bytes.Reader, rec *LogRecord) error {
	pageID, err := deserializePageID(r)
	if err != nil {
		return err
	}
	rec.PageID = pageID

	var undoNextLSN uint64
	if err := binary.Read(r, binary.BigEndian, &undoNextLSN); err != nil {
		return fmt.Errorf("failed to read UndoNextLSN: %w", err)
	}
	rec.UndoNextLSN = LSN(undoNextLSN)

	after, err := deserializeImage(r)
	if err != nil {
		return fmt.Errorf("failed to read after image: %w", err)
	}
	rec.AfterImage = after
	return nil
}

// deserializePageID reads the (fileID, pageNo) pair written by serializePageID.
// The record layer only needs the identity, not the page's concrete kind, so
// the result is a plain page.PageDescriptor regardless of whether the
// original page lived in a heap file or a B+-tree file.
func deserializePageID(r *bytes.Reader) (primitives.PageID, error) {
	var fileID, pageNo uint32
	if err := binary.Read(r, binary.BigEndian, &fileID); err != nil {
		return nil, fmt.Errorf("failed to read PageID fileID: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &pageNo); err != nil {
		return nil, fmt.Errorf("failed to read PageID pageNo: %w", err)
	}
	return page.NewPageDescriptor(primitives.FileID(fileID), primitives.PageNumber(pageNo)), nil
}

func deserializeImage(r *bytes.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	image := make([]byte, length)
	if _, err := io.ReadFull(r, image); err != nil {
		return nil, err
	}
	return image, nil
}

// serializeImage serializes a byte slice image (BeforeImage or AfterImage).
// The format is: [length:4][data:length] where length is uint32.
// If the image is nil, only a zero length is written.
func (l *LogRecord) serializeImage(buf *bytes.Buffer, image []byte) error {
	length := uint32(0)
	if image != nil {
		length = uint32(len(image)) // #nosec G115
	}

	if err := binary.Write(buf, binary.BigEndian, length); err != nil {
		return fmt.Errorf("failed to write image length: %w", err)
	}

	if image != nil {
		if _, err := buf.Write(image); err != nil {
			return fmt.Errorf("failed to write image data: %w", err)
		}
	}
	return nil
}
