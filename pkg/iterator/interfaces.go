package iterator

import "storemy/pkg/tuple"

// TupleIterator is a minimal interface that captures the common iteration methods
// shared by both DbIterator and DbFileIterator. This allows writing generic
// utility functions that work with any iterator type.
type TupleIterator interface {
	// HasNext checks if there are more tuples available without consuming them.
	HasNext() (bool, error)

	// Next retrieves and returns the next tuple from the iterator.
	Next() (*tuple.Tuple, error)
}

// DbIterator defines the contract for all database iterators in the execution engine.
// It provides a standardized interface for traversing through collections of tuples
// from various data sources such as tables, indexes, or intermediate query results.
type DbIterator interface {
	TupleIterator // Embeds HasNext() and Next()

	// Open initializes the iterator and prepares it for tuple retrieval.
	// This method must be called before any other iterator operations.
	Open() error

	// Rewind resets the iterator position to the beginning of the data sequence.
	Rewind() error

	// Close releases all resources associated with the iterator and marks it as closed.
	Close() error

	// GetTupleDesc returns the schema description for tuples produced by this iterator.
	GetTupleDesc() *tuple.TupleDescription
}

// DbFileIterator defines the interface for iterating over tuples in a database file.
// This is a lower-level interface used by storage layer implementations like HeapFile.
// It omits GetTupleDesc, which at this layer is managed by the file itself.
type DbFileIterator interface {
	TupleIterator // Embeds HasNext() and Next()

	Open() error
	Rewind() error
	Close() error
}
