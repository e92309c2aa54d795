package concurrency

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/harunnryd/kotoba/internal/errors"
)

// SafeGo runs a function in a goroutine with panic recovery.
func SafeGo(fn func(), onPanic func(any)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				slog.Error("Panic recovered", "panic", r, "stack", string(stack))
				if onPanic != nil {
					onPanic(r)
				}
			}
		}()
		fn()
	}()
}

// Go runs fn through SafeGo. The returned channel receives exactly one value:
// fn's error, or an internal error if fn panicked.
func Go(fn func() error) <-chan error {
	done := make(chan error, 1)
	SafeGo(func() {
		done <- fn()
	}, func(r any) {
		done <- errors.Internal(fmt.Sprintf("panic: %v", r))
	})
	return done
}
