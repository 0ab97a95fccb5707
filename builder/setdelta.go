package builder

import (
	"fmt"

	"github.com/flowcore/tsengine/errs"
	"github.com/flowcore/tsengine/ts"
)

// NewSetDelta builds a concrete ts.SetDelta[T] for kind, type-asserting
// each element of added/removed into T, and tags it with elementType so
// downstream structural equality (§8 property 6) can compare across
// dictionaries built from different factories. KindObject, like
// BuildTSSOutput's KindObject case, is backed by string rather than an
// arbitrary non-comparable Go type: a generic, non-comparable element
// type cannot be keyed by a Go map (the TSS representation), so a true
// object-shaped set must be built directly against ts.TSSObject instead
// of through this factory.
func NewSetDelta(kind ScalarKind, elementType string, added, removed []any) (any, error) {
	switch kind {
	case KindBool:
		return buildSetDelta[bool](elementType, added, removed)
	case KindInt:
		return buildSetDelta[int64](elementType, added, removed)
	case KindFloat:
		return buildSetDelta[float64](elementType, added, removed)
	case KindObject:
		return buildSetDelta[string](elementType, added, removed)
	default:
		return nil, errs.NewWiringError("", nil, fmt.Sprintf("no SetDelta builder registered for kind %q", kind))
	}
}

func buildSetDelta[T comparable](elementType string, added, removed []any) (ts.SetDelta[T], error) {
	a, err := assertAll[T](added)
	if err != nil {
		return ts.SetDelta[T]{}, err
	}
	r, err := assertAll[T](removed)
	if err != nil {
		return ts.SetDelta[T]{}, err
	}
	return ts.SetDelta[T]{Added: a, Removed: r, ElementType: elementType}, nil
}

func assertAll[T comparable](in []any) ([]T, error) {
	out := make([]T, len(in))
	for i, v := range in {
		tv, ok := v.(T)
		if !ok {
			return nil, errs.NewWiringError("", nil, fmt.Sprintf("element %d is not assignable to the requested SetDelta kind", i))
		}
		out[i] = tv
	}
	return out, nil
}
