// Package scan tracks convergence of the external "rescan all signals" job
// by polling persisted signal timestamps against a pre-trigger snapshot.
package scan

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Status of the tracker.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusScanning Status = "scanning"
	StatusDone     Status = "done"
	StatusError    Status = "error"
)

// Progress is the user-visible scan state.
type Progress struct {
	Status  Status `json:"status"`
	Updated int    `json:"updated"`
	Total   int    `json:"total"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// TimestampSource reads the latest analyzed-at timestamp per tracked symbol.
type TimestampSource interface {
	LatestTimestamps() (map[string]time.Time, error)
}

// Trigger fires the external rescan job.
type Trigger interface {
	TriggerRescan(ctx context.Context) error
}

// Options configures a Tracker.
type Options struct {
	PollInterval time.Duration
	// Timeout is the absolute deadline after which the scan finishes
	// successfully regardless of progress, bounding the worst-case wait.
	Timeout time.Duration
	// ResetDelay is how long a done/error result stays visible before the
	// tracker reverts to idle.
	ResetDelay time.Duration
	// OnReload is awaited when a scan finishes, before status flips to done,
	// so displayed data is fresh by the time the UI sees completion.
	OnReload func()
	// Notify receives every progress change, for pushing to clients.
	Notify func(Progress)
}

// Tracker coordinates one rescan at a time: snapshot, trigger, poll until
// updated-count reaches total or the timeout fires, then a single idempotent
// finish. Both the poll ticker and the timeout timer are owned by the
// instance and stopped as the first step of finishing, so neither path can
// complete twice.
type Tracker struct {
	source  TimestampSource
	trigger Trigger
	opts    Options

	mu        sync.Mutex
	status    Status
	snapshot  map[string]time.Time
	total     int
	updated   int
	message   string
	errDetail string
	finishing bool

	// gen invalidates timers belonging to an earlier scan after Stop or a
	// restart, so a stale fire is a no-op.
	gen      int
	ticker   *time.Ticker
	timeout  *time.Timer
	reset    *time.Timer
	stopPoll chan struct{}
}

// NewTracker creates an idle tracker.
func NewTracker(source TimestampSource, trigger Trigger, opts Options) *Tracker {
	return &Tracker{
		source:  source,
		trigger: trigger,
		opts:    opts,
		status:  StatusIdle,
	}
}

// Start begins a scan. Calling it while a scan is running has no observable
// effect. The snapshot is captured before the trigger call; a snapshot read
// failure is tolerated as an empty snapshot rather than aborting.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.status == StatusScanning {
		t.mu.Unlock()
		return
	}
	t.clearTimersLocked()

	snap, err := t.source.LatestTimestamps()
	if err != nil || snap == nil {
		snap = map[string]time.Time{}
	}
	t.snapshot = snap
	t.total = len(snap)
	if t.total < 1 {
		t.total = 1
	}
	t.updated = 0
	t.errDetail = ""
	t.finishing = false
	t.status = StatusScanning
	t.message = fmt.Sprintf("Rescanning signals (0/%d)", t.total)
	t.gen++
	gen := t.gen
	t.notifyLocked()
	t.mu.Unlock()

	if err := t.trigger.TriggerRescan(ctx); err != nil {
		t.failScan(gen, err)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen != gen || t.status != StatusScanning {
		return
	}
	t.ticker = time.NewTicker(t.opts.PollInterval)
	t.timeout = time.AfterFunc(t.opts.Timeout, func() { t.finish(gen) })
	t.stopPoll = make(chan struct{})
	go t.pollLoop(gen, t.ticker, t.stopPoll)
}

// Stop tears the tracker down: both timers are cancelled and the state
// reverts to idle. Any in-flight finish belonging to the stopped scan
// becomes a no-op.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.clearTimersLocked()
	t.status = StatusIdle
	t.updated = 0
	t.total = 0
	t.message = ""
	t.errDetail = ""
}

// Progress returns the current user-visible state.
func (t *Tracker) Progress() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progressLocked()
}

func (t *Tracker) pollLoop(gen int, ticker *time.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if t.poll(gen) {
				t.finish(gen)
				return
			}
		}
	}
}

// poll re-reads current timestamps and reports whether the scan converged. A
// symbol counts as updated when it is missing from the snapshot (newly
// appeared) or carries a strictly newer timestamp; total grows to cover
// symbols added mid-scan.
func (t *Tracker) poll(gen int) bool {
	current, err := t.source.LatestTimestamps()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen != gen || t.status != StatusScanning {
		return false
	}
	if err != nil {
		// Transient read failure; keep polling until the timeout bounds us.
		return false
	}

	updated := 0
	for symbol, ts := range current {
		prev, ok := t.snapshot[symbol]
		if !ok || ts.After(prev) {
			updated++
		}
	}
	t.updated = updated
	if len(current) > t.total {
		t.total = len(current)
	}
	t.message = fmt.Sprintf("Rescanning signals (%d/%d)", t.updated, t.total)
	t.notifyLocked()
	return t.updated >= t.total
}

// finish is the single completion routine shared by the convergence path and
// the timeout path. It stops both timers before any awaited work and runs at
// most once per scan.
func (t *Tracker) finish(gen int) {
	t.mu.Lock()
	if t.gen != gen || t.status != StatusScanning || t.finishing {
		t.mu.Unlock()
		return
	}
	t.finishing = true
	t.clearTimersLocked()
	reload := t.opts.OnReload
	t.mu.Unlock()

	if reload != nil {
		reload()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen != gen {
		return
	}
	t.status = StatusDone
	t.message = fmt.Sprintf("Scan complete (%d/%d)", t.updated, t.total)
	t.notifyLocked()
	t.scheduleResetLocked(gen)
}

// failScan handles a trigger that failed at the transport level: straight to
// error, auto-reset, no polling.
func (t *Tracker) failScan(gen int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen != gen || t.status != StatusScanning {
		return
	}
	t.status = StatusError
	t.errDetail = err.Error()
	t.message = "Rescan could not be started"
	t.notifyLocked()
	t.scheduleResetLocked(gen)
}

func (t *Tracker) scheduleResetLocked(gen int) {
	t.reset = time.AfterFunc(t.opts.ResetDelay, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.gen != gen {
			return
		}
		t.status = StatusIdle
		t.updated = 0
		t.total = 0
		t.message = ""
		t.errDetail = ""
		t.notifyLocked()
	})
}

func (t *Tracker) clearTimersLocked() {
	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
	}
	if t.timeout != nil {
		t.timeout.Stop()
		t.timeout = nil
	}
	if t.reset != nil {
		t.reset.Stop()
		t.reset = nil
	}
	if t.stopPoll != nil {
		close(t.stopPoll)
		t.stopPoll = nil
	}
}

func (t *Tracker) progressLocked() Progress {
	return Progress{
		Status:  t.status,
		Updated: t.updated,
		Total:   t.total,
		Message: t.message,
		Error:   t.errDetail,
	}
}

func (t *Tracker) notifyLocked() {
	if t.opts.Notify != nil {
		t.opts.Notify(t.progressLocked())
	}
}
