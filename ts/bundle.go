package ts

import "time"

// Schema describes a TSB's fixed, ordered field set: field name plus
// an optional scalar type tag used by the builder factory (§4.6) to
// pick a specialised per-scalar child builder. NewTSB takes the Schema
// by pointer, so TSB instances of the same shape can share one; this
// package keeps no cache of Schemas.
type Schema struct {
	Keys       []string
	ScalarType string // "" if the field shape is not a scalar TS
}

// FieldIndex returns the position of name in the schema, or -1.
func (s *Schema) FieldIndex(name string) int {
	for i, k := range s.Keys {
		if k == name {
			return i
		}
	}
	return -1
}

// TSB is a named bundle: a fixed, ordered schema mapping field name to
// a child time series of heterogeneous shape. Semantics mirror TSL,
// keyed by field name instead of index (§3.2).
type TSB struct {
	Output[map[string]any, map[string]any]
	schema   *Schema
	children map[string]Container
}

// NewTSB allocates a bundle over the given schema; children must be
// supplied by the caller (one per schema key) since their concrete
// shapes vary field to field.
func NewTSB(schema *Schema, children map[string]Container) *TSB {
	return &TSB{schema: schema, children: children}
}

// Schema returns the bundle's field schema.
func (b *TSB) Schema() *Schema { return b.schema }

// Field returns the named child container.
func (b *TSB) Field(name string) Container { return b.children[name] }

// Commit refreshes the bundle's accumulated value and this cycle's
// delta from whichever fields were modified at the given time. Called
// once by the owning node after ticking zero or more fields.
func (b *TSB) Commit(at time.Time) {
	delta := make(map[string]any)
	value := make(map[string]any, len(b.schema.Keys))
	for _, key := range b.schema.Keys {
		child := b.children[key]
		value[key] = child.ValueAny()
		if child.Modified(at) {
			delta[key] = child.DeltaAny()
		}
	}
	if len(delta) == 0 {
		return
	}
	b.ApplyResult(at, value, delta)
}

// AllValid additionally requires every field to be valid (§3.2
// invariant e).
func (b *TSB) AllValid() bool {
	for _, key := range b.schema.Keys {
		if !b.children[key].Valid() {
			return false
		}
	}
	return b.Valid()
}

// TSBInput is the consumer-side handle for a TSB output.
type TSBInput = Input[map[string]any, map[string]any]

func NewTSBInput(source *TSB) *TSBInput {
	return NewInput[map[string]any, map[string]any](&source.Output)
}
