package kernel

import (
	"fmt"
	"runtime/debug"
)

// PanicError is a recovered subscriber panic.
type PanicError struct {
	Scope string
	Value any
	Stack []byte
}

// Error implements error.
func (e *PanicError) Error() string {
	return fmt.Sprintf("%s: panic recovered: %v", e.Scope, e.Value)
}

// runSafely executes fn and converts panics into a *PanicError tagged with scope.
func runSafely(scope string, fn func() error) (err error) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		err = &PanicError{Scope: scope, Value: recovered, Stack: debug.Stack()}
	}()

	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", scope, err)
	}

	return nil
}
