// Package signature defines NodeSignature, the immutable, structurally
// copyable description of a node's contract (§4.1): its name, type,
// argument list, typed input/output schema, gating sets, injectable
// dependencies, and wiring metadata. Signatures round-trip at the
// engine's external boundary (§6) so a wiring layer can introspect and
// reconstruct them.
package signature

// NodeTypeEnum is the node_type field of a NodeSignature (§4.1).
type NodeTypeEnum int

const (
	PushSource NodeTypeEnum = iota
	PullSource
	Compute
	Sink
)

func (t NodeTypeEnum) String() string {
	switch t {
	case PushSource:
		return "PUSH_SOURCE"
	case PullSource:
		return "PULL_SOURCE"
	case Compute:
		return "COMPUTE"
	case Sink:
		return "SINK"
	default:
		return "UNKNOWN"
	}
}

// InjectableTypesEnum is a bitfield: bit 1 = state, 2 = engine,
// 4 = scheduler, 8 = output feedback, 16 = clock (§4.1).
type InjectableTypesEnum uint32

const (
	InjectState          InjectableTypesEnum = 1 << 0
	InjectEngine         InjectableTypesEnum = 1 << 1
	InjectScheduler      InjectableTypesEnum = 1 << 2
	InjectOutputFeedback InjectableTypesEnum = 1 << 3
	InjectClock          InjectableTypesEnum = 1 << 4
)

func (b InjectableTypesEnum) Has(flag InjectableTypesEnum) bool { return b&flag != 0 }

// Arg describes one positional argument in a node's signature.
type Arg struct {
	Name string
	Type string
}

// NodeSignature is the immutable description of a node's contract.
// Every field is exported so a wiring layer can round-trip it through
// ToDict (§6); NodeSignature itself is never mutated in place — use
// CopyWith to derive a modified copy.
type NodeSignature struct {
	Name            string
	NodeType        NodeTypeEnum
	Args            []Arg
	InputSchema     map[string]string // field name -> shape tag, e.g. "TS[int]"
	OutputSchema    string            // shape tag of the node's single output, "" for SINK
	ActiveInputs    map[string]bool
	ValidInputs     map[string]bool
	AllValidInputs  map[string]bool
	ContextInputs   map[string]bool
	Injectables     InjectableTypesEnum
	Traits          []string
	Logger          bool
	RecordableState bool
	CaptureException bool
	TraceBackDepth   int
	WiringPathName   string
	Label            string
	CaptureValues    bool
	RecordReplayID   string
}

// Overrides lists the fields CopyWith may replace; every field left at
// its zero value in Overrides is treated as "no override" EXCEPT where
// a dedicated Set flag says otherwise, so overriding a field to its
// zero value (e.g. clearing Label) is still possible.
type Overrides struct {
	Name             *string
	NodeType         *NodeTypeEnum
	Args             *[]Arg
	InputSchema      map[string]string
	OutputSchema     *string
	ActiveInputs     map[string]bool
	ValidInputs      map[string]bool
	AllValidInputs   map[string]bool
	ContextInputs    map[string]bool
	Injectables      *InjectableTypesEnum
	Traits           *[]string
	Logger           *bool
	RecordableState  *bool
	CaptureException *bool
	TraceBackDepth   *int
	WiringPathName   *string
	Label            *string
	CaptureValues    *bool
	RecordReplayID   *string
}

// CopyWith returns a structural copy of s with every field named in
// overrides replaced, and every other field preserved verbatim —
// including ContextInputs, NodeType and WiringPathName, whose
// preservation across an unrelated override (e.g. renaming) is a
// tested invariant (§4.1, §8 property 7).
func (s NodeSignature) CopyWith(o Overrides) NodeSignature {
	c := s
	c.Args = append([]Arg(nil), s.Args...)
	c.InputSchema = copyStringMap(s.InputSchema)
	c.ActiveInputs = copyBoolMap(s.ActiveInputs)
	c.ValidInputs = copyBoolMap(s.ValidInputs)
	c.AllValidInputs = copyBoolMap(s.AllValidInputs)
	c.ContextInputs = copyBoolMap(s.ContextInputs)
	c.Traits = append([]string(nil), s.Traits...)

	if o.Name != nil {
		c.Name = *o.Name
	}
	if o.NodeType != nil {
		c.NodeType = *o.NodeType
	}
	if o.Args != nil {
		c.Args = append([]Arg(nil), *o.Args...)
	}
	if o.InputSchema != nil {
		c.InputSchema = copyStringMap(o.InputSchema)
	}
	if o.OutputSchema != nil {
		c.OutputSchema = *o.OutputSchema
	}
	if o.ActiveInputs != nil {
		c.ActiveInputs = copyBoolMap(o.ActiveInputs)
	}
	if o.ValidInputs != nil {
		c.ValidInputs = copyBoolMap(o.ValidInputs)
	}
	if o.AllValidInputs != nil {
		c.AllValidInputs = copyBoolMap(o.AllValidInputs)
	}
	if o.ContextInputs != nil {
		c.ContextInputs = copyBoolMap(o.ContextInputs)
	}
	if o.Injectables != nil {
		c.Injectables = *o.Injectables
	}
	if o.Traits != nil {
		c.Traits = append([]string(nil), *o.Traits...)
	}
	if o.Logger != nil {
		c.Logger = *o.Logger
	}
	if o.RecordableState != nil {
		c.RecordableState = *o.RecordableState
	}
	if o.CaptureException != nil {
		c.CaptureException = *o.CaptureException
	}
	if o.TraceBackDepth != nil {
		c.TraceBackDepth = *o.TraceBackDepth
	}
	if o.WiringPathName != nil {
		c.WiringPathName = *o.WiringPathName
	}
	if o.Label != nil {
		c.Label = *o.Label
	}
	if o.CaptureValues != nil {
		c.CaptureValues = *o.CaptureValues
	}
	if o.RecordReplayID != nil {
		c.RecordReplayID = *o.RecordReplayID
	}
	return c
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyBoolMap(m map[string]bool) map[string]bool {
	if m == nil {
		return nil
	}
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ToDict surfaces every NodeSignature field, including ContextInputs,
// at the engine's external boundary (§6). The source engine this
// specification distills omits context_inputs from its to_dict; that
// omission is called out in spec.md as an explicitly tested bug, so
// this implementation deliberately includes the field.
func (s NodeSignature) ToDict() map[string]any {
	return map[string]any{
		"name":              s.Name,
		"node_type":         s.NodeType.String(),
		"args":              s.Args,
		"input_schema":      s.InputSchema,
		"output_schema":     s.OutputSchema,
		"active_inputs":     s.ActiveInputs,
		"valid_inputs":      s.ValidInputs,
		"all_valid_inputs":  s.AllValidInputs,
		"context_inputs":    s.ContextInputs,
		"injectables":       s.Injectables,
		"traits":            s.Traits,
		"logger":            s.Logger,
		"recordable_state":  s.RecordableState,
		"capture_exception": s.CaptureException,
		"trace_back_depth":  s.TraceBackDepth,
		"wiring_path_name":  s.WiringPathName,
		"label":             s.Label,
		"capture_values":    s.CaptureValues,
		"record_replay_id":  s.RecordReplayID,
	}
}
