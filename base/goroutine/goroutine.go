package goroutine

import (
	"fmt"
	"runtime/debug"

	"github.com/x-xyz/cloutledger/base/log"
)

// PanicError carries a recovered panic and the stack it was raised on.
type PanicError struct {
	Panic interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Panic)
}

type options struct {
	name       string
	afterEnded func()
}

type Option func(*options)

// WithName tags the panic log.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithAfterEnded runs f once fn returns or panics.
func WithAfterEnded(f func()) Option {
	return func(o *options) {
		o.afterEnded = f
	}
}

// Go runs fn on a new goroutine. The returned channel yields fn's error, or a
// *PanicError if fn panicked, and is then closed.
func Go(fn func() error, opts ...Option) <-chan error {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	res := make(chan error, 1)
	go func() {
		defer close(res)
		defer func() {
			if o.afterEnded != nil {
				o.afterEnded()
			}
			if p := recover(); p != nil {
				stack := debug.Stack()
				log.Log().WithFields(log.Fields{
					"name":  o.name,
					"err":   p,
					"stack": string(stack),
				}).Error("panic")
				res <- &PanicError{p, stack}
			}
		}()

		if err := fn(); err != nil {
			res <- err
		}
	}()
	return res
}
