package graph

import (
	"errors"
	"fmt"
	"strings"
)

// CycleError reports a dependency cycle as a closed path
type CycleError[T comparable] struct {
	Cycle []T
}

func (e *CycleError[T]) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, v := range e.Cycle {
		parts[i] = fmt.Sprint(v)
	}
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(parts, " -> "))
}

// AsCycleError returns err as a *CycleError[T], or nil
func AsCycleError[T comparable](err error) *CycleError[T] {
	var cerr *CycleError[T]
	if errors.As(err, &cerr) {
		return cerr
	}
	return nil
}
