package tsengine

import (
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flowcore/tsengine/clock"
	"github.com/flowcore/tsengine/errs"
	"github.com/flowcore/tsengine/graph"
	"github.com/flowcore/tsengine/scheduler"
	"github.com/flowcore/tsengine/wlog"
	"github.com/flowcore/tsengine/xstat"
	"github.com/pkg/errors"
)

// RunMode selects how the GraphExecutor advances logical time (§4.2).
type RunMode int

const (
	// SIMULATION advances the logical clock directly to each due
	// evaluation_time with no wall-clock pacing.
	SIMULATION RunMode = iota
	// REALTIME paces evaluation_time against wall-clock time and blocks
	// between cycles waiting on either the next due time or a push
	// arrival, whichever comes first.
	REALTIME
)

// LifeCycleObserver receives the callbacks fired once per cycle and
// once per evaluated node (§6), in this order: BeforeEvaluation, then
// BeforeNodeEval/AfterNodeEval for each node evaluated that cycle, then
// AfterEvaluation.
type LifeCycleObserver interface {
	BeforeEvaluation(at time.Time)
	BeforeNodeEval(n Node)
	AfterNodeEval(n Node, err error)
	AfterEvaluation(at time.Time)
}

// NopObserver is a LifeCycleObserver with no-op methods; embed it to
// implement only the callbacks a caller cares about.
type NopObserver struct{}

func (NopObserver) BeforeEvaluation(time.Time)       {}
func (NopObserver) BeforeNodeEval(Node)              {}
func (NopObserver) AfterNodeEval(Node, error)        {}
func (NopObserver) AfterEvaluation(time.Time)        {}

type pushMsg struct {
	node    graph.NodeID
	payload any
}

// PushReceiver is implemented by PUSH_SOURCE nodes: Receive delivers a
// message enqueued via GraphExecutor.Push, at the evaluation_time the
// engine decided for it (§4.1: "delivery at max(evaluation_time, now)").
type PushReceiver interface {
	Node
	Receive(at time.Time, payload any) error
}

// GraphExecutor drives a graph.Graph through logical time in
// SIMULATION or REALTIME mode, adapted from the teacher's
// ExecutingTask (task.go): walk/rwalk become the forward-start,
// LIFO-stop node ordering of §5, and the goroutine-per-node execution
// model is replaced by the single-threaded cooperative loop §5
// mandates.
type GraphExecutor struct {
	g     *graph.Graph
	nodes []Node

	mode  RunMode
	clk   clock.Clock
	sched *scheduler.Scheduler
	stats *xstat.Registry

	observers []LifeCycleObserver
	logger    *log.Logger

	edgeIndex map[graph.Edge]int

	pushCh        chan pushMsg
	stopCh        chan struct{}
	stopOnce      sync.Once
	stopRequested int32
	mu            sync.Mutex
	closed        bool

	throughput throughputSampler
}

// throughputSampler tracks ticks per cycle over a trailing window of cycles,
// adapted from the teacher's ExecutingTask.calcThroughput (task.go),
// which samples point counts over a rolling wall-clock interval rather
// than this engine's per-cycle tick count.
type throughputSampler struct {
	mu         sync.Mutex
	windowSize int
	samples    []int64
	cursor     int
	filled     bool
}

func newThroughputSampler(windowSize int) throughputSampler {
	return throughputSampler{windowSize: windowSize, samples: make([]int64, windowSize)}
}

func (s *throughputSampler) recordCycle(ticks int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples[s.cursor] = ticks
	s.cursor = (s.cursor + 1) % s.windowSize
	if s.cursor == 0 {
		s.filled = true
	}
}

// TicksPerCycle returns the mean node-ticks-emitted per cycle over the
// trailing window of cycles observed so far.
func (s *throughputSampler) TicksPerCycle() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.cursor
	if s.filled {
		n = s.windowSize
	}
	if n == 0 {
		return 0
	}
	var sum int64
	for i := 0; i < n; i++ {
		sum += s.samples[i]
	}
	return float64(sum) / float64(n)
}

// NewGraphExecutor builds an executor for g driving the given nodes
// (nodes[i] must be the runtime Node for graph id i). observers are
// notified in the order given.
func NewGraphExecutor(g *graph.Graph, nodes []Node, mode RunMode, observers ...LifeCycleObserver) (*GraphExecutor, error) {
	if len(nodes) != g.Len() {
		return nil, errs.NewWiringError("", nil, "node slice length does not match graph node count")
	}
	for i, n := range nodes {
		if int(n.ID()) != i {
			return nil, errs.NewWiringError(n.Signature().Name, nil, "node slice position does not match its graph.NodeID")
		}
	}
	edgeIndex := make(map[graph.Edge]int, len(g.Edges))
	for i, e := range g.Edges {
		edgeIndex[e] = i
	}
	return &GraphExecutor{
		g:         g,
		nodes:     nodes,
		mode:      mode,
		sched:     scheduler.New(),
		stats:     xstat.NewRegistry(),
		observers: observers,
		logger:    wlog.New(os.Stderr, "[tsengine] ", log.LstdFlags),
		edgeIndex: edgeIndex,
		pushCh:     make(chan pushMsg, 256),
		stopCh:     make(chan struct{}),
		throughput: newThroughputSampler(32),
	}, nil
}

// Stats exposes the run's per-node/per-edge counters (§ Supplemented
// features: runtime statistics), read-only.
func (e *GraphExecutor) Stats() *xstat.Registry { return e.stats }

// TicksPerCycle returns the mean number of node ticks emitted per
// cycle over the trailing 32 cycles (§ Supplemented features:
// throughput sampling).
func (e *GraphExecutor) TicksPerCycle() float64 { return e.throughput.TicksPerCycle() }

func toSchedID(id graph.NodeID) scheduler.NodeID { return scheduler.NodeID(id) }
func toGraphID(id scheduler.NodeID) graph.NodeID { return graph.NodeID(id) }

// Push enqueues payload for delivery to the PUSH_SOURCE node at
// nodeID. It returns errs.ErrPushQueueClosed once the engine has begun
// shutdown (§7).
func (e *GraphExecutor) Push(nodeID graph.NodeID, payload any) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return errs.ErrPushQueueClosed
	}
	e.pushCh <- pushMsg{node: nodeID, payload: payload}
	return nil
}

// RequestStop asks the run loop to terminate after completing any
// cycle currently in progress.
func (e *GraphExecutor) RequestStop() {
	atomic.StoreInt32(&e.stopRequested, 1)
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.stopOnce.Do(func() { close(e.stopCh) })
}

// Run drives the graph from start to end (zero end = run until the
// scheduler and push-queue are both exhausted, SIMULATION only).
func (e *GraphExecutor) Run(start, end time.Time) error {
	start = clock.Normalize(start)
	if err := e.initAndStart(start); err != nil {
		return err
	}
	defer e.teardown()

	for atomic.LoadInt32(&e.stopRequested) == 0 {
		dueTime, hasDue := e.sched.NextDue()
		if !end.IsZero() && hasDue && dueTime.After(end) {
			return nil
		}

		evalTime, ok, err := e.advance(dueTime, hasDue)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		ready := e.sched.DrainUntil(evalTime)
		if len(ready) == 0 {
			continue
		}
		if err := e.runCycle(evalTime, ready); err != nil {
			return err
		}
	}
	return nil
}

// advance determines and commits the next evaluation_time, delivering
// any push-source messages that arrive before or alongside it (§4.2
// step 1). It returns ok=false when the run has nothing left to do.
func (e *GraphExecutor) advance(dueTime time.Time, hasDue bool) (time.Time, bool, error) {
	switch e.mode {
	case SIMULATION:
		drained := e.drainPendingPushes()
		if len(drained) == 0 && !hasDue {
			return time.Time{}, false, nil
		}
		evalTime := dueTime
		if !hasDue {
			evalTime = clock.Now(e.clk)
		}
		for _, msg := range drained {
			if err := e.deliverPush(msg, evalTime); err != nil {
				return time.Time{}, false, err
			}
		}
		e.clk.Set(evalTime)
		return evalTime, true, nil

	default: // REALTIME
		if hasDue {
			timer := time.NewTimer(time.Until(dueTime))
			defer timer.Stop()
			select {
			case <-e.stopCh:
				return time.Time{}, false, nil
			case msg := <-e.pushCh:
				now := time.Now().UTC()
				if err := e.deliverPush(msg, now); err != nil {
					return time.Time{}, false, err
				}
				return now, true, nil
			case <-timer.C:
				e.clk.Set(dueTime)
				return dueTime, true, nil
			}
		}
		select {
		case <-e.stopCh:
			return time.Time{}, false, nil
		case msg := <-e.pushCh:
			now := time.Now().UTC()
			if err := e.deliverPush(msg, now); err != nil {
				return time.Time{}, false, err
			}
			return now, true, nil
		}
	}
}

func (e *GraphExecutor) drainPendingPushes() []pushMsg {
	var drained []pushMsg
	for {
		select {
		case msg := <-e.pushCh:
			drained = append(drained, msg)
		default:
			return drained
		}
	}
}

func (e *GraphExecutor) deliverPush(msg pushMsg, at time.Time) error {
	n := e.nodes[msg.node]
	recv, ok := n.(PushReceiver)
	if !ok {
		return errs.NewInvariantViolation("push delivered to a node that is not a PushReceiver: " + n.Signature().Name)
	}
	if err := recv.Receive(at, msg.payload); err != nil {
		return errors.Wrapf(err, "push receive on node %q", n.Signature().Name)
	}
	e.sched.Schedule(toSchedID(n.ID()), at)
	return nil
}

// runCycle evaluates the ready node ids, in the ascending order
// DrainUntil already guarantees, applying the §4.2 valid/all_valid
// gates and propagating any tick produced onto the scheduler.
func (e *GraphExecutor) runCycle(at time.Time, ready []scheduler.NodeID) error {
	e.notify(func(o LifeCycleObserver) { o.BeforeEvaluation(at) })
	defer e.notify(func(o LifeCycleObserver) { o.AfterEvaluation(at) })

	var ticks int64
	defer func() { e.throughput.recordCycle(ticks) }()

	for _, sid := range ready {
		n := e.nodes[toGraphID(sid)]
		if !gatingPasses(n) {
			continue
		}
		e.notify(func(o LifeCycleObserver) { o.BeforeNodeEval(n) })

		t0 := time.Now()
		err := n.Eval(at)
		e.stats.Node(int(n.ID())).AvgExecTime.Observe(time.Since(t0))

		e.notify(func(o LifeCycleObserver) { o.AfterNodeEval(n, err) })

		if err != nil {
			e.logger.Println("E!", errors.Wrapf(err, "eval failed for node %q", n.Signature().Name))
			if errs.IsFatal(err) {
				return err
			}
			continue
		}

		if out := n.Output(); out != nil && out.Modified(at) {
			e.stats.Node(int(n.ID())).Emitted.Add(1)
			ticks++
			e.propagate(n.ID(), at)
		}
	}
	return nil
}

func (e *GraphExecutor) propagate(src graph.NodeID, at time.Time) {
	for _, edge := range e.g.OutEdges(src) {
		dst := e.nodes[edge.Dst]
		input, ok := dst.Inputs()[edge.InputPath]
		if !ok || !input.IsActive() {
			continue
		}
		e.stats.Node(int(dst.ID())).Collected.Add(1)
		if idx, ok := e.edgeIndex[edge]; ok {
			e.stats.Edge(idx).Delivered.Add(1)
		}
		e.sched.Schedule(toSchedID(dst.ID()), at)
	}
}

func gatingPasses(n Node) bool {
	for _, in := range n.Inputs() {
		if in.IsValidRequired() && !in.Valid() {
			return false
		}
		if in.IsAllValidRequired() && !in.AllValid() {
			return false
		}
	}
	return true
}

func (e *GraphExecutor) notify(f func(LifeCycleObserver)) {
	for _, o := range e.observers {
		f(o)
	}
}

func (e *GraphExecutor) initAndStart(start time.Time) error {
	switch e.mode {
	case SIMULATION:
		e.clk = clock.Sim(start)
	default:
		e.clk = clock.Wall()
	}

	for _, n := range e.nodes {
		sink := &scheduledSink{
			schedule: func(id graph.NodeID, at time.Time) { e.sched.Schedule(toSchedID(id), at) },
			cancel:   func(id graph.NodeID) { e.sched.Cancel(toSchedID(id)) },
		}
		env := &Env{
			Scheduler: &Scheduler{id: n.ID(), sink: sink},
			Engine:    e,
			Clock:     clockReaderFunc(func() time.Time { return clock.Now(e.clk) }),
			Logger:    wlog.New(os.Stderr, "["+n.Signature().Name+"] ", log.LstdFlags),
		}
		if err := n.Init(env); err != nil {
			return errors.Wrapf(err, "init failed for node %q", n.Signature().Name)
		}
	}
	for _, n := range e.nodes {
		if err := n.Start(); err != nil {
			return errors.Wrapf(err, "start failed for node %q", n.Signature().Name)
		}
	}
	return nil
}

// teardown stops then disposes every node in reverse id order (LIFO of
// start, §5), best-effort: a LifecycleError on one node does not skip
// tearing down the rest.
func (e *GraphExecutor) teardown() {
	for i := len(e.nodes) - 1; i >= 0; i-- {
		n := e.nodes[i]
		if err := n.Stop(); err != nil {
			e.logger.Println("E!", errs.NewLifecycleError(n.Signature().Name, "stop", err))
		}
	}
	for i := len(e.nodes) - 1; i >= 0; i-- {
		n := e.nodes[i]
		if err := n.Dispose(); err != nil {
			e.logger.Println("E!", errs.NewLifecycleError(n.Signature().Name, "dispose", err))
		}
	}
}

type clockReaderFunc func() time.Time

func (f clockReaderFunc) Now() time.Time { return f() }

