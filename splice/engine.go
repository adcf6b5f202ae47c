package splice

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/cmdstream/errors"
	"github.com/kbukum/cmdstream/logger"
	"github.com/kbukum/cmdstream/observability"
	"github.com/kbukum/cmdstream/process"
	"github.com/kbukum/cmdstream/resolver"
)

// Engine feeds submitted items, one at a time and in submission order, into
// the standard input of a single long-running process.
//
// All queue state is owned by one loop goroutine. Public methods talk to it
// through messages and are safe for concurrent use.
type Engine struct {
	id       string
	proc     *process.Handle
	resolver resolver.Resolver
	log      *logger.Logger
	metrics  *observability.SpliceMetrics
	tracer   trace.Tracer
	events   *dispatcher

	ctx    context.Context
	cancel context.CancelFunc

	requests chan request
	outcomes chan outcome
	quit     chan struct{}
	done     chan struct{}

	// Owned by the loop goroutine.
	queue       []entry
	active      *activeItem
	ended       bool
	stdinClosed bool
	seq         uint64

	snapMu sync.RWMutex
	snap   snapshot
	exit   process.Exit
}

type snapshot struct {
	state   State
	pending int
	ended   bool
}

type entry struct {
	seq  uint64
	item Item
}

type activeItem struct {
	entry
	kind    resolver.Kind
	ctx     context.Context
	span    trace.Span
	reader  io.Reader
	started time.Time
}

type requestKind int

const (
	reqSubmit requestKind = iota
	reqEnd
)

type request struct {
	kind     requestKind
	item     Item
	deferred bool
	reply    chan error
}

type stage int

const (
	stageResolve stage = iota
	stageDrain
)

func (s stage) String() string {
	if s == stageResolve {
		return "resolve"
	}
	return "stream"
}

type outcome struct {
	stage  stage
	seq    uint64
	reader io.Reader
	bytes  int64
	err    error
}

// Spawn starts cmd and returns an engine ready to accept submissions. It
// fails with a ConfigError when the command is empty or cannot be started.
// Cancelling ctx terminates the process and with it the engine.
func Spawn(ctx context.Context, cmd process.Command, opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.NewString()
	baseLog := o.log.WithFields(logger.Fields(logger.FieldEngineID, id))

	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if o.resolver == nil {
		r, err := resolver.NewDefault(resolver.WithLogger(baseLog))
		if err != nil {
			return nil, errors.Internal(err)
		}
		o.resolver = r
	}

	if cmd.Logger == nil {
		cmd.Logger = baseLog
	}
	proc, err := process.Start(ctx, cmd)
	if err != nil {
		return nil, err
	}

	log := baseLog.WithComponent("splice")
	helperCtx, cancel := context.WithCancel(ctx)

	e := &Engine{
		id:       id,
		proc:     proc,
		resolver: o.resolver,
		log:      log,
		metrics:  o.metrics,
		tracer:   o.tracer,
		events:   newDispatcher(o.observers, o.eventBuffer, log),
		ctx:      helperCtx,
		cancel:   cancel,
		requests: make(chan request),
		outcomes: make(chan outcome),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	go e.events.run()
	go e.run()

	log.Info("engine started", logger.Fields(logger.FieldPID, proc.PID()))
	return e, nil
}

// ID returns the engine's unique identifier.
func (e *Engine) ID() string { return e.id }

// Submit appends item to the queue and starts consuming it if the engine is idle.
func (e *Engine) Submit(item Item) error {
	return e.call(request{kind: reqSubmit, item: item})
}

// SubmitDeferred appends item without starting consumption. It is picked up
// by the next Submit, EndSubmissions or the end of the active item.
func (e *Engine) SubmitDeferred(item Item) error {
	return e.call(request{kind: reqSubmit, item: item, deferred: true})
}

// EndSubmissions declares that no further items will be submitted. Once the
// queue drains the process's standard input is closed.
func (e *Engine) EndSubmissions() error {
	return e.call(request{kind: reqEnd})
}

func (e *Engine) call(req request) error {
	req.reply = make(chan error, 1)
	select {
	case e.requests <- req:
		return <-req.reply
	case <-e.quit:
		return errors.QueueStateError("engine terminated")
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	return e.snap.state
}

// Pending returns the number of queued items not yet started.
func (e *Engine) Pending() int {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	return e.snap.pending
}

// Ended reports whether EndSubmissions has been called.
func (e *Engine) Ended() bool {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	return e.snap.ended
}

// Stdout returns the process output reader, or nil when process.Command.Stdout
// was set. The caller closes it when done.
func (e *Engine) Stdout() io.ReadCloser { return e.proc.Stdout() }

// Stderr returns the process diagnostics reader, or nil when
// process.Command.Stderr was set. The caller closes it when done.
func (e *Engine) Stderr() io.ReadCloser { return e.proc.Stderr() }

// Events returns a channel carrying every event until EventClosed, after
// which it is closed. See WithEventBuffer.
func (e *Engine) Events() <-chan Event { return e.events.out }

// DroppedEvents returns how many events did not fit in the Events channel.
func (e *Engine) DroppedEvents() uint64 { return e.events.dropped.Load() }

// Done is closed after the process has exited and every event, including
// EventClosed, has been delivered.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Wait blocks until Done is closed or ctx is done.
func (e *Engine) Wait(ctx context.Context) (process.Exit, error) {
	select {
	case <-e.done:
		return e.exit, nil
	case <-ctx.Done():
		return process.Exit{}, ctx.Err()
	}
}

// Stop terminates the process (SIGTERM, then SIGKILL after its grace period)
// and waits for the engine to finish.
func (e *Engine) Stop(ctx context.Context) error {
	if err := e.proc.Stop(ctx); err != nil {
		return err
	}
	_, err := e.Wait(ctx)
	return err
}

func (e *Engine) run() {
	for {
		select {
		case req := <-e.requests:
			req.reply <- e.handle(req)
		case out := <-e.outcomes:
			e.handleOutcome(out)
		case <-e.proc.Done():
			e.terminate()
			return
		}
	}
}

func (e *Engine) handle(req request) error {
	switch req.kind {
	case reqSubmit:
		return e.submit(req.item, req.deferred)
	case reqEnd:
		return e.endSubmissions()
	default:
		return errors.Internal(nil)
	}
}

func (e *Engine) submit(item Item, deferred bool) error {
	if e.ended {
		return errors.QueueStateError("queue ended")
	}

	e.seq++
	ent := entry{seq: e.seq, item: item}
	e.queue = append(e.queue, ent)
	e.metrics.RecordAdded(e.ctx)
	e.publish(Event{Type: EventAdded, Seq: ent.seq, Item: item})

	e.log.Debug("item added", logger.Fields(
		logger.FieldSeq, ent.seq,
		logger.FieldPending, len(e.queue),
		"deferred", deferred,
	))

	if !deferred && e.active == nil {
		e.consumeNext()
	} else {
		e.setState(e.currentState())
	}
	return nil
}

func (e *Engine) endSubmissions() error {
	if e.ended {
		return errors.QueueStateError("submissions already ended")
	}

	e.ended = true
	e.publish(Event{Type: EventSubmissionsEnded})
	e.log.Debug("submissions ended", logger.Fields(logger.FieldPending, len(e.queue)))

	if e.active == nil {
		if len(e.queue) == 0 {
			e.closeStdin()
		} else {
			e.consumeNext()
		}
	}
	e.setState(e.currentState())
	return nil
}

// consumeNext pops the head of the queue and starts resolving it.
func (e *Engine) consumeNext() {
	ent := e.queue[0]
	e.queue[0] = entry{}
	e.queue = e.queue[1:]
	e.metrics.RecordDequeued(e.ctx)

	kind := classify(ent.item)
	ctx, span := e.tracer.Start(e.ctx, observability.SpanSpliceItem)
	observability.SetSpanAttribute(ctx, observability.AttrEngineID, e.id)
	observability.SetSpanAttribute(ctx, observability.AttrSeq, ent.seq)
	observability.SetSpanAttribute(ctx, observability.AttrKind, kind.String())

	e.active = &activeItem{entry: ent, kind: kind, ctx: ctx, span: span, started: time.Now()}
	e.setState(StateResolving)

	e.log.WithContext(ctx).Debug("resolving item", logger.Fields(
		logger.FieldSeq, ent.seq,
		logger.FieldKind, kind.String(),
	))

	go e.resolve(ctx, ent)
}

func (e *Engine) resolve(ctx context.Context, ent entry) {
	out := outcome{stage: stageResolve, seq: ent.seq}
	func() {
		defer func() {
			if p := recover(); p != nil {
				out.reader = nil
				out.err = errors.ResolveError(fmt.Sprintf("resolver panicked: %v", p), nil)
			}
		}()
		out.reader, out.err = e.resolver.Resolve(ctx, ent.item)
	}()
	if out.err == nil && out.reader == nil {
		out.err = errors.ResolveError("resolver produced no stream", nil)
	}
	e.report(out)
}

func (e *Engine) drain(seq uint64, r io.Reader) {
	out := outcome{stage: stageDrain, seq: seq}
	func() {
		defer func() {
			if p := recover(); p != nil {
				out.err = fmt.Errorf("stream panicked: %v", p)
			}
		}()
		out.bytes, out.err = io.Copy(e.proc.Stdin(), r)
		if c, ok := r.(io.Closer); ok {
			_ = c.Close()
		}
	}()
	e.report(out)
}

// classify never lets a misbehaving fmt.Stringer take down the loop.
func classify(item Item) (kind resolver.Kind) {
	defer func() {
		if recover() != nil {
			kind = resolver.KindUnknown
		}
	}()
	return resolver.Classify(item).Kind
}

// report hands a helper result to the loop, or discards it once the loop is gone.
func (e *Engine) report(out outcome) {
	select {
	case e.outcomes <- out:
	case <-e.quit:
		if c, ok := out.reader.(io.Closer); ok && out.stage == stageResolve {
			_ = c.Close()
		}
	}
}

func (e *Engine) handleOutcome(out outcome) {
	a := e.active
	if a == nil || a.seq != out.seq {
		e.log.Error("outcome for inactive item", logger.Fields(logger.FieldSeq, out.seq))
		return
	}

	log := e.log.WithContext(a.ctx)

	switch out.stage {
	case stageResolve:
		if out.err != nil {
			err := asResolveError(out.err)
			log.WithError(err).Warn("item could not be resolved", logger.Fields(
				logger.FieldSeq, a.seq,
				logger.FieldKind, a.kind.String(),
			))
			e.fail(a, stageResolve, err, 0)
			e.advance()
			return
		}

		a.reader = out.reader
		e.setState(StateSplicing)
		e.publish(Event{Type: EventConsuming, Seq: a.seq, Item: a.item})
		log.Debug("consuming item", logger.Fields(logger.FieldSeq, a.seq))
		go e.drain(a.seq, out.reader)

	case stageDrain:
		if out.err != nil {
			err := errors.StreamError(out.err).WithDetail("bytes", out.bytes)
			log.WithError(out.err).Warn("item stream failed", logger.Fields(
				logger.FieldSeq, a.seq,
				logger.FieldBytes, out.bytes,
			))
			e.fail(a, stageDrain, err, out.bytes)
			e.advance()
			return
		}

		elapsed := time.Since(a.started)
		e.metrics.RecordEnded(a.ctx, a.kind.String(), out.bytes, elapsed)
		observability.SetSpanAttribute(a.ctx, observability.AttrBytes, out.bytes)
		a.span.SetStatus(codes.Ok, "")
		a.span.End()
		e.publish(Event{Type: EventEnded, Seq: a.seq, Item: a.item})
		log.Debug("item ended", logger.Fields(
			logger.FieldSeq, a.seq,
			logger.FieldBytes, out.bytes,
			logger.FieldDuration, elapsed.Milliseconds(),
		))
		e.advance()
	}
}

func (e *Engine) fail(a *activeItem, st stage, err error, bytes int64) {
	e.metrics.RecordError(a.ctx, st.String(), a.kind.String(), bytes)
	observability.SetSpanAttribute(a.ctx, observability.AttrStage, st.String())
	observability.SetSpanError(a.ctx, err)
	a.span.End()
	e.publish(Event{Type: EventError, Seq: a.seq, Item: a.item, Err: err})
}

// advance clears the active item and moves on: close stdin when everything
// is done, start the next item, or go idle.
func (e *Engine) advance() {
	e.active = nil
	switch {
	case e.ended && len(e.queue) == 0:
		e.closeStdin()
	case len(e.queue) > 0:
		e.consumeNext()
	}
	e.setState(e.currentState())
}

func (e *Engine) closeStdin() {
	if e.stdinClosed {
		return
	}
	e.stdinClosed = true
	if err := e.proc.Stdin().Close(); err != nil {
		e.log.Warn("closing process input failed", logger.ErrorFields("close_stdin", err))
		return
	}
	e.log.Info("process input closed")
}

func (e *Engine) terminate() {
	close(e.quit)
	e.cancel()

	exit := e.proc.Exit()

	if a := e.active; a != nil {
		if c, ok := a.reader.(io.Closer); ok {
			_ = c.Close()
		}
		a.span.SetStatus(codes.Error, "process exited")
		a.span.End()
		e.active = nil
	}
	// Items still queued will never be consumed.
	for range e.queue {
		e.metrics.RecordDequeued(context.Background())
	}

	e.snapMu.Lock()
	e.exit = exit
	e.snap.state = StateTerminated
	e.snap.pending = len(e.queue)
	e.snapMu.Unlock()

	fields := logger.Fields(
		logger.FieldExitCode, exit.Code,
		logger.FieldPending, len(e.queue),
	)
	if exit.Signal != "" {
		fields[logger.FieldSignal] = exit.Signal
	}
	e.log.Info("engine terminated", fields)

	e.publish(Event{Type: EventClosed, Exit: exit})
	e.events.close()
	<-e.events.done
	close(e.done)
}

func (e *Engine) publish(ev Event) {
	ev.Time = time.Now()
	e.events.publish(ev)
}

func (e *Engine) currentState() State {
	switch {
	case e.active != nil && e.active.reader != nil:
		return StateSplicing
	case e.active != nil:
		return StateResolving
	case e.stdinClosed:
		return StateClosed
	default:
		return StateIdle
	}
}

func (e *Engine) setState(s State) {
	e.snapMu.Lock()
	defer e.snapMu.Unlock()
	if e.snap.state != s {
		e.log.Debug("state changed", logger.Fields(logger.FieldState, s.String()))
	}
	e.snap.state = s
	e.snap.pending = len(e.queue)
	e.snap.ended = e.ended
}

func asResolveError(err error) error {
	if errors.IsResolveError(err) {
		return err
	}
	return errors.ResolveError("cannot resolve item", err)
}
