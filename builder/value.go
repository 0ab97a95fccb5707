package builder

import (
	"fmt"
	"time"

	"github.com/flowcore/tsengine/errs"
	"github.com/flowcore/tsengine/ts"
)

// Shape is the value-shape tag a wiring layer attaches to an edge
// endpoint, mirroring the GLOSSARY's TS/SIGNAL/TSL/TSB/TSS/TSD/REF/TSW
// family.
type Shape string

const (
	ShapeTS     Shape = "ts"
	ShapeSignal Shape = "signal"
	ShapeTSL    Shape = "tsl"
	ShapeTSB    Shape = "tsb"
	ShapeTSS    Shape = "tss"
	ShapeTSD    Shape = "tsd"
	ShapeTSW    Shape = "tsw"
	ShapeREF    Shape = "ref"
)

// ScalarKind is the per-scalar specialisation tag the factory uses to
// pick a concrete Go type for a TS/TSL-element/TSS-element/TSD-key
// (§4.6): "bool, int, float, date, datetime, timedelta, else object".
type ScalarKind string

const (
	KindBool      ScalarKind = "bool"
	KindInt       ScalarKind = "int"
	KindFloat     ScalarKind = "float"
	KindDate      ScalarKind = "date"
	KindDatetime  ScalarKind = "datetime"
	KindTimedelta ScalarKind = "timedelta"
	KindObject    ScalarKind = "object"
)

// TimeSeriesBuilderFactory maps a (Shape, ScalarKind) pair to the
// concrete ts.Container/ts.GatedInput pair a node needs, without the
// caller needing to name a Go type parameter directly (§4.6).
type TimeSeriesBuilderFactory struct{}

// NewTimeSeriesBuilderFactory returns the stateless factory; all of its
// dispatch is a pure function of the (Shape, ScalarKind) arguments.
func NewTimeSeriesBuilderFactory() *TimeSeriesBuilderFactory {
	return &TimeSeriesBuilderFactory{}
}

func missingBuilder(shape Shape, kind ScalarKind) error {
	return errs.NewWiringError("", nil, fmt.Sprintf("no builder registered for shape %q kind %q", shape, kind))
}

func mismatchedSource(shape Shape, kind ScalarKind) error {
	return errs.NewWiringError("", nil, fmt.Sprintf("source container does not match shape %q kind %q", shape, kind))
}

// BuildScalarOutput allocates a fresh TS[T] output specialised to kind.
func (f *TimeSeriesBuilderFactory) BuildScalarOutput(kind ScalarKind) (ts.Container, error) {
	switch kind {
	case KindBool:
		return ts.NewTS[bool](), nil
	case KindInt:
		return ts.NewTS[int64](), nil
	case KindFloat:
		return ts.NewTS[float64](), nil
	case KindDate, KindDatetime:
		return ts.NewTS[time.Time](), nil
	case KindTimedelta:
		return ts.NewTS[time.Duration](), nil
	case KindObject:
		return ts.NewTS[string](), nil
	default:
		return nil, missingBuilder(ShapeTS, kind)
	}
}

// BuildScalarInput binds a consumer-side TSInput to source, which must
// have been produced by BuildScalarOutput with the same kind.
func (f *TimeSeriesBuilderFactory) BuildScalarInput(kind ScalarKind, source ts.Container) (ts.GatedInput, error) {
	switch kind {
	case KindBool:
		s, ok := source.(*ts.TS[bool])
		if !ok {
			return nil, mismatchedSource(ShapeTS, kind)
		}
		return ts.NewTSInput[bool](s), nil
	case KindInt:
		s, ok := source.(*ts.TS[int64])
		if !ok {
			return nil, mismatchedSource(ShapeTS, kind)
		}
		return ts.NewTSInput[int64](s), nil
	case KindFloat:
		s, ok := source.(*ts.TS[float64])
		if !ok {
			return nil, mismatchedSource(ShapeTS, kind)
		}
		return ts.NewTSInput[float64](s), nil
	case KindDate, KindDatetime:
		s, ok := source.(*ts.TS[time.Time])
		if !ok {
			return nil, mismatchedSource(ShapeTS, kind)
		}
		return ts.NewTSInput[time.Time](s), nil
	case KindTimedelta:
		s, ok := source.(*ts.TS[time.Duration])
		if !ok {
			return nil, mismatchedSource(ShapeTS, kind)
		}
		return ts.NewTSInput[time.Duration](s), nil
	case KindObject:
		s, ok := source.(*ts.TS[string])
		if !ok {
			return nil, mismatchedSource(ShapeTS, kind)
		}
		return ts.NewTSInput[string](s), nil
	default:
		return nil, missingBuilder(ShapeTS, kind)
	}
}

// BuildSignalOutput allocates a fresh Signal output. SIGNAL has a
// dedicated builder because, unlike TS, it carries no scalar kind
// (§4.6).
func (f *TimeSeriesBuilderFactory) BuildSignalOutput() ts.Container {
	return ts.NewSignal()
}

// BuildSignalInput binds a consumer-side SignalInput to source.
func (f *TimeSeriesBuilderFactory) BuildSignalInput(source ts.Container) (ts.GatedInput, error) {
	s, ok := source.(*ts.Signal)
	if !ok {
		return nil, errs.NewWiringError("", nil, "source container is not a Signal")
	}
	return ts.NewSignalInput(s), nil
}

// BuildTSLOutput allocates a fresh fixed-length TSL[T] of n elements,
// T specialised to kind, wrapping n per-scalar child builders (§4.6).
func (f *TimeSeriesBuilderFactory) BuildTSLOutput(kind ScalarKind, n int) (ts.Container, error) {
	switch kind {
	case KindBool:
		return ts.NewTSL[bool](n), nil
	case KindInt:
		return ts.NewTSL[int64](n), nil
	case KindFloat:
		return ts.NewTSL[float64](n), nil
	case KindDate, KindDatetime:
		return ts.NewTSL[time.Time](n), nil
	case KindTimedelta:
		return ts.NewTSL[time.Duration](n), nil
	case KindObject:
		return ts.NewTSL[string](n), nil
	default:
		return nil, missingBuilder(ShapeTSL, kind)
	}
}

// BuildTSLInput binds a consumer-side TSLInput to source.
func (f *TimeSeriesBuilderFactory) BuildTSLInput(kind ScalarKind, source ts.Container) (ts.GatedInput, error) {
	switch kind {
	case KindBool:
		s, ok := source.(*ts.TSL[bool])
		if !ok {
			return nil, mismatchedSource(ShapeTSL, kind)
		}
		return ts.NewTSLInput[bool](s), nil
	case KindInt:
		s, ok := source.(*ts.TSL[int64])
		if !ok {
			return nil, mismatchedSource(ShapeTSL, kind)
		}
		return ts.NewTSLInput[int64](s), nil
	case KindFloat:
		s, ok := source.(*ts.TSL[float64])
		if !ok {
			return nil, mismatchedSource(ShapeTSL, kind)
		}
		return ts.NewTSLInput[float64](s), nil
	default:
		return nil, missingBuilder(ShapeTSL, kind)
	}
}

// BuildTSBOutput allocates a TSB over schema with the given children,
// one per schema key, built by the caller via BuildScalarOutput (or
// any other builder here) per field (§4.6).
func (f *TimeSeriesBuilderFactory) BuildTSBOutput(schema *ts.Schema, children map[string]ts.Container) ts.Container {
	return ts.NewTSB(schema, children)
}

// BuildTSBInput binds a consumer-side TSBInput to source.
func (f *TimeSeriesBuilderFactory) BuildTSBInput(source ts.Container) (ts.GatedInput, error) {
	s, ok := source.(*ts.TSB)
	if !ok {
		return nil, errs.NewWiringError("", nil, "source container is not a TSB")
	}
	return ts.NewTSBInput(s), nil
}

// BuildTSSOutput allocates a fresh TSS[T] tagged elementType, T
// specialised to kind.
func (f *TimeSeriesBuilderFactory) BuildTSSOutput(kind ScalarKind, elementType string) (ts.Container, error) {
	switch kind {
	case KindBool:
		return ts.NewTSS[bool](elementType), nil
	case KindInt:
		return ts.NewTSS[int64](elementType), nil
	case KindFloat:
		return ts.NewTSS[float64](elementType), nil
	case KindObject:
		return ts.NewTSS[string](elementType), nil
	default:
		return nil, missingBuilder(ShapeTSS, kind)
	}
}

// BuildTSSInput binds a consumer-side TSSInput to source.
func (f *TimeSeriesBuilderFactory) BuildTSSInput(kind ScalarKind, source ts.Container) (ts.GatedInput, error) {
	switch kind {
	case KindBool:
		s, ok := source.(*ts.TSS[bool])
		if !ok {
			return nil, mismatchedSource(ShapeTSS, kind)
		}
		return ts.NewTSSInput[bool](s), nil
	case KindInt:
		s, ok := source.(*ts.TSS[int64])
		if !ok {
			return nil, mismatchedSource(ShapeTSS, kind)
		}
		return ts.NewTSSInput[int64](s), nil
	case KindFloat:
		s, ok := source.(*ts.TSS[float64])
		if !ok {
			return nil, mismatchedSource(ShapeTSS, kind)
		}
		return ts.NewTSSInput[float64](s), nil
	case KindObject:
		s, ok := source.(*ts.TSS[string])
		if !ok {
			return nil, mismatchedSource(ShapeTSS, kind)
		}
		return ts.NewTSSInput[string](s), nil
	default:
		return nil, missingBuilder(ShapeTSS, kind)
	}
}

// BuildTSDOutput allocates a TSD keyed by kind, whose children are
// produced by newChild on key-add (typically one of this factory's own
// output builders, partially applied) (§4.6, §4.4.1).
func (f *TimeSeriesBuilderFactory) BuildTSDOutput(kind ScalarKind, newChild func() ts.Container) (ts.Container, error) {
	switch kind {
	case KindInt:
		return ts.NewTSD[int64](newChild), nil
	case KindObject:
		return ts.NewTSD[string](newChild), nil
	default:
		return nil, missingBuilder(ShapeTSD, kind)
	}
}

// BuildTSDInput binds a consumer-side TSDInput to source.
func (f *TimeSeriesBuilderFactory) BuildTSDInput(kind ScalarKind, source ts.Container) (ts.GatedInput, error) {
	switch kind {
	case KindInt:
		s, ok := source.(*ts.TSD[int64])
		if !ok {
			return nil, mismatchedSource(ShapeTSD, kind)
		}
		return ts.NewTSDInput[int64](s), nil
	case KindObject:
		s, ok := source.(*ts.TSD[string])
		if !ok {
			return nil, mismatchedSource(ShapeTSD, kind)
		}
		return ts.NewTSDInput[string](s), nil
	default:
		return nil, missingBuilder(ShapeTSD, kind)
	}
}

// BuildTSWOutput allocates a TSW[T] of the given capacity and
// activation threshold, T specialised to kind (§4.4.3, §4.6).
func (f *TimeSeriesBuilderFactory) BuildTSWOutput(kind ScalarKind, size, minSize int) (ts.Container, error) {
	switch kind {
	case KindInt:
		return ts.NewTSW[int64](size, minSize), nil
	case KindFloat:
		return ts.NewTSW[float64](size, minSize), nil
	default:
		return nil, missingBuilder(ShapeTSW, kind)
	}
}

// BuildREFOutput allocates a REF[T] handle, T specialised to kind
// (§3.4, §4.6).
func (f *TimeSeriesBuilderFactory) BuildREFOutput(kind ScalarKind) (ts.Container, error) {
	switch kind {
	case KindInt:
		return ts.NewREF[int64](), nil
	case KindObject:
		return ts.NewREF[string](), nil
	default:
		return nil, missingBuilder(ShapeREF, kind)
	}
}

// BuildREFInput binds a consumer-side REFInput to source.
func (f *TimeSeriesBuilderFactory) BuildREFInput(kind ScalarKind, source ts.Container) (ts.GatedInput, error) {
	switch kind {
	case KindInt:
		s, ok := source.(*ts.REF[int64])
		if !ok {
			return nil, mismatchedSource(ShapeREF, kind)
		}
		return ts.NewREFInput[int64](s), nil
	case KindObject:
		s, ok := source.(*ts.REF[string])
		if !ok {
			return nil, mismatchedSource(ShapeREF, kind)
		}
		return ts.NewREFInput[string](s), nil
	default:
		return nil, missingBuilder(ShapeREF, kind)
	}
}
