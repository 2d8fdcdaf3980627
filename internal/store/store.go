// Package store defines the document-store contract the data layer is
// built on: keyed collections, insert-with-generated-id, field-level
// update, equality queries on indexed fields and an atomic batch write.
// Implementations: Memory (this package) for tests and development,
// storage.SQLiteStore for production.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// Collection names. These mirror the original data layout; the
// month-key field ("mes") is the canonical join key across all of them.
const (
	Transactions   = "transacoes"
	Statements     = "faturas"
	StatementItems = "fatura_itens"
	Investments    = "investimentos"
	Rates          = "cotacoes"
	Months         = "meses"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrFieldNotIndexed = errors.New("field not indexed for queries")
)

// DefaultIndexes lists the queryable fields per collection, the
// counterpart of the original store's ".indexOn" rules. Every backend
// enforces the same set, so a query a test accepts is a query
// production accepts.
func DefaultIndexes() map[string][]string {
	return map[string][]string{
		Transactions:   {"pessoa", "mes"},
		Statements:     {"pessoa", "mes"},
		StatementItems: {"fatura"},
		Investments:    {"pessoa", "mes"},
	}
}

// Op is one entry of an atomic batch: a document to set at
// collection/id, or a deletion when Doc is nil.
type Op struct {
	Collection string
	ID         string
	Doc        any
}

// Delete builds a deletion op.
func Delete(collection, id string) Op {
	return Op{Collection: collection, ID: id}
}

// Set builds a create-or-replace op.
func Set(collection, id string, doc any) Op {
	return Op{Collection: collection, ID: id, Doc: doc}
}

// Store is the persistence seam for the query, mutation and rollover
// layers. All documents are JSON; ids are store-assigned strings.
type Store interface {
	// NewID allocates a unique document id without writing anything,
	// so batches can reference documents they are about to create.
	NewID() string

	// Push inserts doc under a fresh id and returns it.
	Push(ctx context.Context, collection string, doc any) (string, error)

	// Get unmarshals the document at collection/id into dest. Returns
	// ErrNotFound when absent.
	Get(ctx context.Context, collection, id string, dest any) error

	// Update merges fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Remove deletes a single document. Removing an absent document is
	// not an error.
	Remove(ctx context.Context, collection, id string) error

	// Query returns all documents in collection whose field equals
	// value, keyed by id. The field must be indexed. limit <= 0 means
	// no limit.
	Query(ctx context.Context, collection, field, value string, limit int) (map[string]json.RawMessage, error)

	// List returns every document in a collection, keyed by id. Meant
	// for small registry collections, not for bulk data.
	List(ctx context.Context, collection string) (map[string]json.RawMessage, error)

	// BatchWrite applies all ops atomically: either every set and
	// delete lands, or none do.
	BatchWrite(ctx context.Context, ops []Op) error

	Close() error
}
