// Package executor runs ledger operations atomically. Every public ledger
// operation goes through Run; an operation started from inside another one
// joins the enclosing transaction, so the outermost operation commits or
// rolls back as a whole.
package executor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/base/log"
	"github.com/x-xyz/cloutledger/base/metrics"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/service/query"
)

type txKey struct{}

type txState struct {
	id    string
	now   domain.Timestamp
	hooks []func()
}

// Executor is the transaction boundary of the ledger.
type Executor interface {
	Run(c ctx.Ctx, op string, fn func(ctx.Ctx) error) error
}

type Option func(*impl)

// WithClock replaces the wall clock used to stamp ledger time.
func WithClock(now func() time.Time) Option {
	return func(im *impl) {
		im.now = now
	}
}

type impl struct {
	q   query.Mongo
	met metrics.Service
	now func() time.Time
}

func New(q query.Mongo, met metrics.Service, opts ...Option) Executor {
	im := &impl{
		q:   q,
		met: met,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

func (im *impl) Run(c ctx.Ctx, op string, fn func(ctx.Ctx) error) error {
	if _, ok := state(c); ok {
		return fn(c)
	}

	defer im.met.BumpTime("op.time", "op", op).End()

	st := &txState{
		id:  uuid.NewString(),
		now: domain.Timestamp(im.now().Unix()),
	}
	c = ctx.Wrap(c, context.WithValue(c.Context, txKey{}, st))
	c.Logger = c.Logger.WithFields(log.Fields{"txId": st.id, "op": op})

	err := im.q.RunWithTransaction(c, func(c ctx.Ctx) error {
		// a retried transaction starts over
		st.hooks = nil
		return fn(c)
	})
	if err != nil {
		im.met.BumpSum("op.err", 1, "op", op, "kind", domain.KindOf(err).String())
		if domain.KindOf(err) == domain.KindInternal {
			c.WithError(err).Error("operation failed")
		} else {
			c.WithError(err).Info("operation rejected")
		}
		return err
	}
	im.met.BumpSum("op.count", 1, "op", op)
	for _, hook := range st.hooks {
		hook()
	}
	return nil
}

func state(c context.Context) (*txState, bool) {
	st, ok := c.Value(txKey{}).(*txState)
	return st, ok
}

// Now returns the ledger time of the running operation, or the wall clock
// outside of one.
func Now(c context.Context) domain.Timestamp {
	if st, ok := state(c); ok {
		return st.now
	}
	return domain.Timestamp(time.Now().Unix())
}

// TxID returns the id of the running operation, empty outside of one.
func TxID(c context.Context) string {
	if st, ok := state(c); ok {
		return st.id
	}
	return ""
}

// InTx reports whether c belongs to a running operation.
func InTx(c context.Context) bool {
	_, ok := state(c)
	return ok
}

// AfterCommit defers hook until the outermost operation of c commits. Hooks of
// a rolled back operation never run. Outside of an operation hook runs at once.
func AfterCommit(c context.Context, hook func()) {
	if st, ok := state(c); ok {
		st.hooks = append(st.hooks, hook)
		return
	}
	hook()
}
