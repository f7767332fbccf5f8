package query

/*
	Package `query` is the document store used by the ledger. Records are
	keyed by their derived address in `_id` and selected with equality
	filters only, so the same contract is served by MongoDB (New) and by an
	in-process store (NewMemory) used for tests and single-node runs.

	Writes that must commit together go through RunWithTransaction; the
	context handed to `run` has to be used for every call inside it.
*/

import (
	"fmt"

	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/domain"
)

var (
	// ErrNotFound is mongo document not found error
	ErrNotFound = fmt.Errorf("document not found")

	// ErrDuplicateKey is an error when violating unique index
	ErrDuplicateKey = fmt.Errorf("duplicate key")
)

// Mongo abstracts the document layer.
type Mongo interface {
	// Insert inserts a new document, failing with ErrDuplicateKey when its
	// `_id` is already taken.
	Insert(context ctx.Ctx, table domain.Table, insert interface{}) error

	// FindOne decodes the first document matching query into result.
	FindOne(context ctx.Ctx, table domain.Table, query, result interface{}) error

	// Count returns the number of documents matching selector.
	Count(context ctx.Ctx, table domain.Table, selector interface{}) (n int, err error)

	// Upsert replaces the document matching selector, inserting it if none does.
	Upsert(context ctx.Ctx, table domain.Table, selector, update interface{}) error

	// Search sort order by `sort` argument (ex "timestamp" ascending, or "-timestamp" descending)
	// if `sort` is "", documents come back in storage order.
	Search(context ctx.Ctx, table domain.Table, offset, limit int, sort string, query, results interface{}) error

	// EnsureIndex creates an ascending compound index on keys.
	EnsureIndex(context ctx.Ctx, table domain.Table, keys ...string) error

	// RunWithTransaction runs `run` so that either all of its writes are
	// visible or none are.
	RunWithTransaction(context ctx.Ctx, run func(ctx.Ctx) error) error
}
