package scheduler

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidWakeTime = errors.New("scheduler: invalid wake time")
	ErrEngineStopped   = errors.New("scheduler: engine stopped")
)

type WakeReason string

const (
	// WakeReappear fires when a completed recurring task becomes due again.
	WakeReappear WakeReason = "reappear"
	// WakeRollover fires at local midnight so the day plan is rebuilt.
	WakeRollover WakeReason = "rollover"
)

// WakeEvent asks the consumer to re-read its task list. TaskID is 0 for
// rollover events.
type WakeEvent struct {
	TaskID int64
	Title  string
	Reason WakeReason
	At     time.Time
}

type queueItem struct {
	event WakeEvent
	seq   uint64
}

type wakeQueue []queueItem

func (q wakeQueue) Len() int { return len(q) }

func (q wakeQueue) Less(i, j int) bool {
	if q[i].event.At.Equal(q[j].event.At) {
		return q[i].seq < q[j].seq
	}
	return q[i].event.At.Before(q[j].event.At)
}

func (q wakeQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
}

func (q *wakeQueue) Push(x any) {
	*q = append(*q, x.(queueItem))
}

func (q *wakeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[0 : n-1]
	return item
}

// Engine is a timer heap that emits WakeEvents when they come due. Only the
// most recent Schedule call per task is live; earlier entries are discarded
// when popped.
type Engine struct {
	mu      sync.Mutex
	queue   wakeQueue
	live    map[int64]uint64
	seq     uint64
	out     chan WakeEvent
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		queue:  make(wakeQueue, 0),
		live:   make(map[int64]uint64),
		out:    make(chan WakeEvent, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (e *Engine) C() <-chan WakeEvent {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.stopped = true
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

// Schedule queues ev, replacing any pending event for the same task.
func (e *Engine) Schedule(ev WakeEvent) error {
	if ev.At.IsZero() {
		return ErrInvalidWakeTime
	}
	if ev.Reason == "" {
		ev.Reason = WakeReappear
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrEngineStopped
	}

	e.seq++
	e.live[ev.TaskID] = e.seq
	heap.Push(&e.queue, queueItem{event: ev, seq: e.seq})
	e.signalWakeup()
	return nil
}

// Cancel drops the pending event for taskID, if any.
func (e *Engine) Cancel(taskID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.live, taskID)
	e.signalWakeup()
}

// Pending reports how many live events are waiting.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, hasNext := e.peek()
		if !hasNext {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		wait := time.Until(next.At)
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			for _, ev := range e.popDue(time.Now()) {
				select {
				case e.out <- ev:
				default:
					atomic.AddUint64(&e.dropped, 1)
				}
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			stopTimer(timer)
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

// peek returns the earliest live event, discarding superseded entries.
func (e *Engine) peek() (WakeEvent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for len(e.queue) > 0 {
		head := e.queue[0]
		if e.live[head.event.TaskID] == head.seq {
			return head.event, true
		}
		heap.Pop(&e.queue)
	}
	return WakeEvent{}, false
}

func (e *Engine) popDue(now time.Time) []WakeEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]WakeEvent, 0)
	for len(e.queue) > 0 {
		head := e.queue[0]
		if head.event.At.After(now) {
			break
		}
		heap.Pop(&e.queue)
		if e.live[head.event.TaskID] != head.seq {
			continue
		}
		delete(e.live, head.event.TaskID)
		out = append(out, head.event)
	}
	return out
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
