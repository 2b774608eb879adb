package core

import (
	"fmt"

	"github.com/mohae/deepcopy"
)

// DeepCopy returns a deep copy of v.
//
// Records are plain data, so the generic reflection copy is enough; the only
// failure mode is the copy not asserting back to T.
func DeepCopy[T any](v T) (T, error) {
	var zero T
	copied := deepcopy.Copy(v)
	if copied == nil {
		return zero, nil
	}
	out, ok := copied.(T)
	if !ok {
		return zero, fmt.Errorf("failed to copy value of type %T", v)
	}
	return out, nil
}

// CopyNode deep-copies a node; a nil node copies to an empty one.
func CopyNode(n Node) (Node, error) {
	if n == nil {
		return Node{}, nil
	}
	return DeepCopy(n)
}
