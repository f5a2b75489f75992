// Package unlock re-evaluates date gates in the background and reports
// items whose blocked status changed.
package unlock

import (
	"sort"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskgraph/internal/graph"
)

// DefaultInterval is used when the configured recheck interval is not
// positive.
const DefaultInterval = 60 * time.Second

// Source supplies the snapshot to re-evaluate. *engine.Engine satisfies it.
type Source interface {
	Snapshot() *graph.Snapshot
	Resolver() graph.Resolver
}

// ChangedMsg is a tea.Msg listing the items whose blocked status flipped
// since the previous check.
type ChangedMsg struct {
	Unblocked []string
	Blocked   []string
	At        time.Time
}

// Empty reports whether nothing changed.
func (m ChangedMsg) Empty() bool {
	return len(m.Unblocked) == 0 && len(m.Blocked) == 0
}

// Watcher periodically re-evaluates blocked status. It never writes.
type Watcher struct {
	src      Source
	interval time.Duration

	triggerCh chan struct{}

	mu       sync.Mutex
	resultCh chan ChangedMsg // closed when the loop that owns it exits
	stopCh   chan struct{}   // nil once stopped
	running  bool
	last     map[string]bool
}

// New creates a watcher that checks src every interval and additionally
// right after the earliest pending date gate expires.
func New(src Source, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		src:       src,
		interval:  interval,
		resultCh:  make(chan ChangedMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the watch loop and returns a command that waits for the
// first change. A stopped watcher can be started again.
func (w *Watcher) Start() tea.Cmd {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	if w.stopCh == nil {
		w.resultCh = make(chan ChangedMsg, 16)
		w.stopCh = make(chan struct{})
	}
	w.running = true
	stop, results := w.stopCh, w.resultCh
	w.mu.Unlock()

	w.Check()
	go w.loop(stop, results)
	return w.WaitForNext()
}

// Stop halts the watch loop. Pending WaitForNext commands return nil.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	close(w.stopCh)
	w.stopCh = nil
	w.running = false
}

// Refresh requests an immediate check.
func (w *Watcher) Refresh() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// WaitForNext returns a command that blocks until the next change.
// Call it again after handling each ChangedMsg.
func (w *Watcher) WaitForNext() tea.Cmd {
	w.mu.Lock()
	results := w.resultCh
	w.mu.Unlock()

	return func() tea.Msg {
		msg, ok := <-results
		if !ok {
			return nil
		}
		return msg
	}
}

// Check re-evaluates the current snapshot against the previous check.
// The first call only records a baseline.
func (w *Watcher) Check() ChangedMsg {
	r := w.src.Resolver()
	status := r.Evaluate(w.src.Snapshot())
	msg := ChangedMsg{At: now(r)}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.last != nil {
		for id, blocked := range status {
			was, seen := w.last[id]
			switch {
			case seen && was && !blocked:
				msg.Unblocked = append(msg.Unblocked, id)
			case seen && !was && blocked:
				msg.Blocked = append(msg.Blocked, id)
			}
		}
	}
	w.last = status

	sort.Strings(msg.Unblocked)
	sort.Strings(msg.Blocked)
	return msg
}

func (w *Watcher) loop(stop <-chan struct{}, results chan<- ChangedMsg) {
	defer close(results)

	timer := time.NewTimer(w.nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
		case <-w.triggerCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		if msg := w.Check(); !msg.Empty() {
			send(results, msg)
		}
		timer.Reset(w.nextDelay())
	}
}

// nextDelay waits until the earliest future gate expires, capped at the
// interval.
func (w *Watcher) nextDelay() time.Duration {
	r := w.src.Resolver()
	at, ok := NextUnlock(w.src.Snapshot(), now(r))
	if !ok {
		return w.interval
	}
	d := at.Sub(now(r)) + time.Millisecond
	if d > w.interval {
		return w.interval
	}
	return d
}

func send(results chan<- ChangedMsg, msg ChangedMsg) {
	select {
	case results <- msg:
	default:
		// Drop if the channel is full to avoid blocking the loop.
	}
}

// NextUnlock returns the earliest date gate still in the future at now.
func NextUnlock(s *graph.Snapshot, now time.Time) (time.Time, bool) {
	var (
		next  time.Time
		found bool
	)
	for _, d := range s.DateDependencies() {
		if !d.UnblockAt.After(now) {
			continue
		}
		if !found || d.UnblockAt.Before(next) {
			next = d.UnblockAt
			found = true
		}
	}
	return next, found
}

func now(r graph.Resolver) time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
