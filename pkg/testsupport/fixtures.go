// Package testsupport provides deterministic fakes for exercising form
// controllers without timers or a network: a manual scheduler driven by a
// virtual clock and a scriptable gateway.
package testsupport

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// ManualScheduler implements form.Scheduler over a virtual clock. Tasks run
// only when Advance moves the clock past their deadline.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	nextID int
	tasks  map[int]*manualTask
}

type manualTask struct {
	id       int
	deadline time.Duration
	delay    time.Duration
	fn       func()
	owner    *ManualScheduler
}

// NewManualScheduler returns a scheduler at virtual time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{tasks: make(map[int]*manualTask)}
}

// AfterFunc registers fn to run once the clock reaches now+d.
func (s *ManualScheduler) AfterFunc(d time.Duration, fn func()) form.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := &manualTask{
		id:       s.nextID,
		deadline: s.now + d,
		delay:    d,
		fn:       fn,
		owner:    s,
	}
	s.nextID++
	s.tasks[task.id] = task
	return task
}

func (t *manualTask) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if _, ok := t.owner.tasks[t.id]; !ok {
		return false
	}
	delete(t.owner.tasks, t.id)
	return true
}

// Advance moves the clock forward by d and runs every due task in deadline
// order on the calling goroutine.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []*manualTask
	for id, task := range s.tasks {
		if task.deadline <= s.now {
			due = append(due, task)
			delete(s.tasks, id)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline == due[j].deadline {
			return due[i].id < due[j].id
		}
		return due[i].deadline < due[j].deadline
	})
	for _, task := range due {
		task.fn()
	}
}

// Pending returns the number of tasks that have not run or been stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Delays returns the delays of the pending tasks.
func (s *ManualScheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, 0, len(s.tasks))
	for _, task := range s.tasks {
		out = append(out, task.delay)
	}
	return out
}

// ErrNoAnswer is returned by StubGateway for lookups that were not scripted.
var ErrNoAnswer = errors.New("testsupport: no availability answer scripted")

// StubGateway implements form.Gateway with scripted answers.
//
// Availability answers come from Answers. When Hold has a channel for a value
// the lookup blocks until a value is sent on it (or it is closed, which
// answers false), which lets tests finish lookups out of issuance order.
type StubGateway struct {
	mu sync.Mutex

	Answers map[string]bool
	Hold    map[string]chan bool
	// Started receives each looked up value before the lookup blocks.
	Started chan string

	SubmitEcho  map[string]any
	SubmitErr   error
	SubmitBlock chan struct{}

	lookups []string
	submits []schema.Values
}

// NewStubGateway returns a gateway answering every lookup as available and
// echoing submissions back.
func NewStubGateway() *StubGateway {
	return &StubGateway{
		Answers: make(map[string]bool),
		Hold:    make(map[string]chan bool),
		Started: make(chan string, 16),
	}
}

// CheckAvailability records the lookup and returns the scripted answer.
func (g *StubGateway) CheckAvailability(ctx context.Context, value string) (bool, error) {
	g.mu.Lock()
	g.lookups = append(g.lookups, value)
	hold := g.Hold[value]
	answer, scripted := g.Answers[value]
	g.mu.Unlock()

	select {
	case g.Started <- value:
	default:
	}

	if hold != nil {
		select {
		case v := <-hold:
			return v, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	if !scripted {
		return false, ErrNoAnswer
	}
	return answer, nil
}

// Submit records the record and returns SubmitEcho or SubmitErr.
func (g *StubGateway) Submit(ctx context.Context, record schema.Values) (map[string]any, error) {
	g.mu.Lock()
	g.submits = append(g.submits, record.Clone())
	block := g.SubmitBlock
	echo, err := g.SubmitEcho, g.SubmitErr
	g.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if echo == nil {
		echo = map[string]any(record.Clone())
	}
	return echo, nil
}

// Lookups returns the values looked up so far.
func (g *StubGateway) Lookups() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.lookups...)
}

// Submits returns the records submitted so far.
func (g *StubGateway) Submits() []schema.Values {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]schema.Values(nil), g.submits...)
}

// PayloadError is a form.ValidationPayload carrying a server error payload.
type PayloadError struct {
	Status  int
	Payload map[string][]string
}

func (e *PayloadError) Error() string {
	return "testsupport: server rejected submission"
}

// FieldPayload implements form.ValidationPayload.
func (e *PayloadError) FieldPayload() map[string][]string {
	return e.Payload
}
