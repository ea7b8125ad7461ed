package form

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/untillpro/goutils/logger"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// Controller owns the state of one form instance: current values, field
// errors, the advisory availability of the unique field and the submission
// status. All methods are safe for concurrent use; gateway I/O always happens
// outside the controller lock.
type Controller struct {
	mu sync.Mutex

	schema    *schema.Schema
	gateway   Gateway
	scheduler Scheduler
	debounce  time.Duration

	uniqueField    string
	successMessage string
	failureMessage string

	ctx    context.Context
	cancel context.CancelFunc

	values       schema.Values
	errors       schema.FieldErrors
	availability Availability
	status       Status
	message      string
	closed       bool

	// issued is the number of the latest availability lookup. A lookup
	// response is applied only while its number is still the latest one.
	issued  uint64
	pending Timer
	// lookups counts scheduled and running lookups. Only tests wait on it.
	lookups sync.WaitGroup

	subscribers map[uint64]func(Snapshot)
	nextSub     uint64

	// queue holds published snapshots in state order. The goroutine that
	// finds it idle drains it, so subscribers never see an older snapshot
	// after a newer one and are never called concurrently.
	queue    []delivery
	draining bool
}

type delivery struct {
	snap Snapshot
	subs []func(Snapshot)
}

// New builds a controller seeded with the schema defaults.
func New(s *schema.Schema, gw Gateway, opts ...Option) (*Controller, error) {
	if s == nil {
		return nil, errors.New("form: schema is required")
	}
	if gw == nil {
		return nil, errors.New("form: gateway is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		schema:         s,
		gateway:        gw,
		scheduler:      SystemScheduler(),
		debounce:       DefaultDebounce,
		successMessage: DefaultSuccessMessage,
		failureMessage: DefaultFailureMessage,
		ctx:            ctx,
		cancel:         cancel,
		values:         s.Defaults(),
		errors:         schema.FieldErrors{},
		subscribers:    make(map[uint64]func(Snapshot)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.uniqueField != "" {
		if _, ok := s.Field(c.uniqueField); !ok {
			cancel()
			return nil, fmt.Errorf("%w: unique field %q", ErrUnknownField, c.uniqueField)
		}
	}
	return c, nil
}

// Schema returns the schema the controller validates against.
func (c *Controller) Schema() *schema.Schema {
	return c.schema
}

// SetField stores a raw value for name. Changing the unique field schedules a
// debounced availability lookup for the new value.
func (c *Controller) SetField(name string, value any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if _, ok := c.schema.Field(name); !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}

	c.values[name] = value
	if name == c.uniqueField {
		c.scheduleLookupLocked(c.values.String(name))
	}

	drain := c.publishLocked()
	c.mu.Unlock()

	c.deliver(drain)
	return nil
}

func (c *Controller) scheduleLookupLocked(value string) {
	c.cancelLookupLocked()
	c.availability = AvailabilityUnknown
	if value == "" {
		return
	}

	seq := c.issued
	c.lookups.Add(1)
	c.pending = c.scheduler.AfterFunc(c.debounce, func() {
		defer c.lookups.Done()
		c.lookup(seq, value)
	})
}

// cancelLookupLocked drops the pending lookup and invalidates any lookup that
// is already in flight.
func (c *Controller) cancelLookupLocked() {
	c.issued++
	if c.pending != nil {
		if c.pending.Stop() {
			c.lookups.Done()
		}
		c.pending = nil
	}
}

func (c *Controller) lookup(seq uint64, value string) {
	c.mu.Lock()
	if c.closed || seq != c.issued {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	ctx := c.ctx
	c.mu.Unlock()

	available, err := c.gateway.CheckAvailability(ctx, value)

	c.mu.Lock()
	if c.closed || seq != c.issued || c.values.String(c.uniqueField) != value {
		c.mu.Unlock()
		logger.Verbose(fmt.Sprintf("form: discarding stale availability result for %q", value))
		return
	}
	switch {
	case err != nil:
		logger.Verbose(fmt.Sprintf("form: availability lookup for %q failed: %v", value, err))
		c.availability = AvailabilityUnknown
	case available:
		c.availability = AvailabilityAvailable
	default:
		c.availability = AvailabilityTaken
	}
	drain := c.publishLocked()
	c.mu.Unlock()

	c.deliver(drain)
}

// HandleSubmit validates the current values and, when they are valid, sends
// the record through the gateway. Validation failures and gateway failures are
// reported through the Outcome; the error is reserved for calls the controller
// refuses (closed, already submitting).
func (c *Controller) HandleSubmit(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Outcome{}, ErrClosed
	}
	if c.status == StatusSubmitting {
		c.mu.Unlock()
		return Outcome{}, ErrSubmitInProgress
	}

	result := c.schema.Validate(c.values.Clone())
	if !result.IsValid() {
		c.errors = result.Errors()
		c.message = ""
		outcome := Outcome{Kind: OutcomeInvalid, Errors: c.errors.Clone()}
		drain := c.publishLocked()
		c.mu.Unlock()

		c.deliver(drain)
		return outcome, nil
	}

	c.errors = schema.FieldErrors{}
	c.status = StatusSubmitting
	c.message = ""
	drain := c.publishLocked()
	c.mu.Unlock()
	c.deliver(drain)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	echo, err := c.gateway.Submit(ctx, result.Record())

	c.mu.Lock()
	c.status = StatusIdle
	if c.closed {
		c.mu.Unlock()
		return Outcome{}, ErrClosed
	}

	var outcome Outcome
	if err != nil {
		outcome = c.applyFailureLocked(err)
	} else {
		c.resetLocked()
		c.message = c.successMessage
		outcome = Outcome{Kind: OutcomeSucceeded, Echo: echo}
		logger.Info("form: submission succeeded")
	}
	drain = c.publishLocked()
	c.mu.Unlock()

	c.deliver(drain)
	return outcome, nil
}

// applyFailureLocked keeps the user's values, maps server validation feedback
// onto fields and always sets a visible failure message.
func (c *Controller) applyFailureLocked(err error) Outcome {
	logger.Error(fmt.Sprintf("form: submission failed: %v", err))

	outcome := Outcome{Kind: OutcomeFailed, Cause: err, Errors: schema.FieldErrors{}}
	var payload ValidationPayload
	if errors.As(err, &payload) {
		mapping := MapErrorPayload(c.schema.Fields(), payload.FieldPayload())
		outcome.Errors = mapping.FieldErrors()
		outcome.FormErrors = mapping.Form
	}

	c.errors = outcome.Errors.Clone()
	c.message = c.failureMessage
	return outcome
}

// Reset restores the defaults and clears errors, availability and messages.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.resetLocked()
	drain := c.publishLocked()
	c.mu.Unlock()

	c.deliver(drain)
}

func (c *Controller) resetLocked() {
	c.cancelLookupLocked()
	c.values = c.schema.Defaults()
	c.errors = schema.FieldErrors{}
	c.availability = AvailabilityUnknown
	c.message = ""
}

// Close cancels any pending lookup and makes the controller ignore responses
// that arrive afterwards. It is safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.cancelLookupLocked()
	c.closed = true
	c.subscribers = nil
	c.mu.Unlock()

	c.cancel()
}

// Subscribe registers fn to receive a snapshot after every state change. The
// returned function removes the subscription.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Values returns a copy of the current values.
func (c *Controller) Values() schema.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values.Clone()
}

// Value returns the current raw value of name.
func (c *Controller) Value(name string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[name]
	return v, ok
}

// Errors returns a copy of the current field errors.
func (c *Controller) Errors() schema.FieldErrors {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors.Clone()
}

// Availability returns the advisory availability of the unique field.
func (c *Controller) Availability() Availability {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.availability
}

// Status returns the submission status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Message returns the last success or failure message.
func (c *Controller) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// CanSubmit reports whether the submit action should be enabled.
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.status != StatusSubmitting
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Values:       c.values.Clone(),
		Errors:       c.errors.Clone(),
		Availability: c.availability,
		Status:       c.status,
		Message:      c.message,
	}
}

func (c *Controller) subscribersLocked() []func(Snapshot) {
	if len(c.subscribers) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(c.subscribers))
	for id := range c.subscribers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		out = append(out, c.subscribers[id])
	}
	return out
}

// publishLocked queues the current state for the subscribers. It reports
// whether the caller must drain the queue once c.mu is released.
func (c *Controller) publishLocked() bool {
	subs := c.subscribersLocked()
	if len(subs) == 0 {
		return false
	}
	c.queue = append(c.queue, delivery{snap: c.snapshotLocked(), subs: subs})
	if c.draining {
		return false
	}
	c.draining = true
	return true
}

func (c *Controller) deliver(drain bool) {
	if !drain {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.mu.Lock()
			c.queue, c.draining = nil, false
			c.mu.Unlock()
			panic(r)
		}
	}()

	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.draining = false
			c.mu.Unlock()
			return
		}
		next := c.queue[0]
		c.queue[0] = delivery{}
		c.queue = c.queue[1:]
		c.mu.Unlock()

		for _, fn := range next.subs {
			fn(next.snap)
		}
	}
}
