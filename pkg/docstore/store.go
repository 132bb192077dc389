package docstore

import "context"

// Op is a comparison operator for query filters.
type Op string

const (
	OpEqual          Op = "=="
	OpNotEqual       Op = "!="
	OpLess           Op = "<"
	OpLessOrEqual    Op = "<="
	OpGreater        Op = ">"
	OpGreaterOrEqual Op = ">="
)

// Filter describes a single field comparison in a query.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Where is a convenience constructor for a Filter.
func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

type queryOptions struct {
	limit     int64
	sortField string
	sortDesc  bool
}

// QueryOption customizes a Query call.
type QueryOption func(*queryOptions)

// WithLimit caps the number of returned documents.
func WithLimit(n int) QueryOption {
	return func(o *queryOptions) { o.limit = int64(n) }
}

// WithOrderBy sorts results by the given field.
func WithOrderBy(field string, desc bool) QueryOption {
	return func(o *queryOptions) {
		o.sortField = field
		o.sortDesc = desc
	}
}

// BatchOp is a single write in a multi-document batch.
type BatchOp struct {
	kind       batchKind
	Collection string
	ID         string
	Doc        any
	Patch      map[string]any
}

type batchKind int

const (
	batchSet batchKind = iota
	batchUpdate
	batchDelete
)

// BatchSet creates or replaces a document as part of a batch.
func BatchSet(collection, id string, doc any) BatchOp {
	return BatchOp{kind: batchSet, Collection: collection, ID: id, Doc: doc}
}

// BatchUpdate applies a partial update as part of a batch.
func BatchUpdate(collection, id string, patch map[string]any) BatchOp {
	return BatchOp{kind: batchUpdate, Collection: collection, ID: id, Patch: patch}
}

// BatchDelete removes a document as part of a batch.
func BatchDelete(collection, id string) BatchOp {
	return BatchOp{kind: batchDelete, Collection: collection, ID: id}
}

// Store is a generic document store: collections of documents addressed by
// string IDs, with filtered queries, partial updates, atomic counter
// increments and multi-document batch writes.
//
// Counter mutations must go through Increment; read-modify-write cycles on
// counters are not safe under concurrent requests.
type Store interface {
	// Get loads the document with the given ID into out.
	// Returns ErrNotFound if the document does not exist.
	Get(ctx context.Context, collection, id string, out any) error

	// Query loads all documents matching the filters into out,
	// which must be a pointer to a slice.
	Query(ctx context.Context, collection string, filters []Filter, out any, opts ...QueryOption) error

	// Set creates or fully replaces the document with the given ID.
	// Returns ErrDuplicateKey when a uniqueness constraint is violated.
	Set(ctx context.Context, collection, id string, doc any) error

	// Update applies a partial update to an existing document.
	// Returns ErrNotFound if the document does not exist.
	Update(ctx context.Context, collection, id string, patch map[string]any) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Increment atomically adds the given amounts to numeric fields,
	// creating the document and any missing fields as needed.
	// Field names may use dot notation for nested paths.
	Increment(ctx context.Context, collection, id string, fields map[string]int64) error

	// Batch executes the given writes as a single ordered batch.
	Batch(ctx context.Context, ops []BatchOp) error
}
