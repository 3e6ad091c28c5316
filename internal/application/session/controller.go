package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bryanwahyu/neuroscan/internal/application/acquisition"
	"github.com/bryanwahyu/neuroscan/internal/domain/notify"
	"github.com/bryanwahyu/neuroscan/internal/domain/scans"
	"github.com/bryanwahyu/neuroscan/internal/logger"
)

const module = "session"

type Acquirer interface {
	Acquire(ctx context.Context, src acquisition.Source) (acquisition.Acquisition, error)
}

// Analyzer must not fail; failures come back as sentinel results.
type Analyzer interface {
	Analyze(ctx context.Context, acq acquisition.Acquisition, ownerID string) scans.Result
}

type Persister interface {
	Persist(ctx context.Context, result scans.Result, name, owner string) (scans.RecordID, error)
}

// Deps are the collaborators shared by every controller.
type Deps struct {
	Acquirer  Acquirer
	Analyzer  Analyzer
	Persister Persister
	Notifier  notify.Notifier
	Log       logger.ILogger
}

// Options tune the cosmetic progress indicator.
type Options struct {
	ProgressInterval time.Duration
	ProgressStep     int
	// ProgressCap is the highest value the ticker may report; always below 100.
	ProgressCap int
}

func (o Options) withDefaults() Options {
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = 300 * time.Millisecond
	}
	if o.ProgressStep <= 0 {
		o.ProgressStep = 5
	}
	if o.ProgressCap <= 0 || o.ProgressCap > 99 {
		o.ProgressCap = 90
	}
	return o
}

// Snapshot is a copy of the session state for rendering.
type Snapshot struct {
	ID              string                   `json:"id"`
	OwnerID         string                   `json:"ownerId,omitempty"`
	State           State                    `json:"state"`
	Progress        int                      `json:"progress"`
	Acquisition     *acquisition.Acquisition `json:"acquisition,omitempty"`
	Result          *scans.Result            `json:"result,omitempty"`
	Headline        string                   `json:"headline,omitempty"`
	ConfidenceLabel string                   `json:"confidenceLabel,omitempty"`
	RecordID        scans.RecordID           `json:"recordId,omitempty"`
	LastError       string                   `json:"lastError,omitempty"`
}

// Controller owns one scan session: its acquisition, result and state.
// Every response is checked against the generation it was issued under;
// reset and resubmit bump the generation so late responses are dropped.
type Controller struct {
	id    string
	owner string
	deps  Deps
	opts  Options

	mu         sync.Mutex
	state      State
	gen        uint64
	acq        *acquisition.Acquisition
	result     *scans.Result
	progress   int
	recordID   scans.RecordID
	lastErr    string
	stopTicker context.CancelFunc

	// pin keeps the registry entry alive while busy; set by Manager.
	pin func(busy bool)
}

// NewController starts an idle session. owner may be empty for anonymous use.
func NewController(id, owner string, deps Deps, opts Options) *Controller {
	if deps.Notifier == nil {
		deps.Notifier = notify.Discard{}
	}
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	return &Controller{id: id, owner: owner, deps: deps, opts: opts.withDefaults(), state: StateIdle}
}

func (c *Controller) ID() string      { return c.id }
func (c *Controller) OwnerID() string { return c.owner }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// Acquire resolves src and moves to previewing, replacing any earlier acquisition.
// On failure nothing changes.
func (c *Controller) Acquire(ctx context.Context, src acquisition.Source) (acquisition.Acquisition, error) {
	c.mu.Lock()
	if c.state.busy() {
		st := c.state
		c.mu.Unlock()
		return acquisition.Acquisition{}, fmt.Errorf("%w: acquire while %s", ErrInvalidTransition, st)
	}
	gen := c.gen
	c.mu.Unlock()

	acq, err := c.deps.Acquirer.Acquire(ctx, src)
	if err != nil {
		return acquisition.Acquisition{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return acquisition.Acquisition{}, ErrStale
	}
	if c.state.busy() {
		return acquisition.Acquisition{}, fmt.Errorf("%w: acquire while %s", ErrInvalidTransition, c.state)
	}
	c.acq = &acq
	c.result = nil
	c.progress = 0
	c.recordID = ""
	c.lastErr = ""
	c.state = StatePreviewing
	return acq, nil
}

// Submit analyzes the current acquisition and blocks until the result lands.
// Allowed from previewing, or from displaying to resubmit the same acquisition.
func (c *Controller) Submit(ctx context.Context) (scans.Result, error) {
	run, err := c.begin()
	if err != nil {
		return scans.Result{}, err
	}
	return run(ctx)
}

// Start moves to analyzing and completes the analysis in the background.
// Transition errors are returned synchronously; poll Snapshot for the outcome.
func (c *Controller) Start(ctx context.Context) error {
	run, err := c.begin()
	if err != nil {
		return err
	}
	go func() { _, _ = run(ctx) }()
	return nil
}

// begin performs the Analyzing transition and returns the call that finishes it.
func (c *Controller) begin() (func(context.Context) (scans.Result, error), error) {
	c.mu.Lock()
	if c.acq == nil || (c.state != StatePreviewing && c.state != StateDisplaying) {
		st := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: submit while %s", ErrInvalidTransition, st)
	}
	c.gen++
	gen := c.gen
	acq := *c.acq
	c.state = StateAnalyzing
	c.result = nil
	c.progress = 0
	c.recordID = ""
	c.lastErr = ""
	c.setBusy(true)
	tickCtx, cancel := context.WithCancel(context.Background())
	c.stopTicker = cancel
	c.mu.Unlock()

	done := make(chan struct{})
	go c.tick(tickCtx, gen, done)

	return func(ctx context.Context) (scans.Result, error) {
		res := c.deps.Analyzer.Analyze(ctx, acq, c.owner)

		// the ticker has exited before the real completion is applied
		cancel()
		<-done

		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			c.deps.Log.Warn(module, "stale analysis dropped", map[string]interface{}{"session": c.id})
			return res, ErrStale
		}
		c.result = &res
		c.progress = 100
		c.state = StateDisplaying
		c.stopTicker = nil
		c.setBusy(false)
		c.mu.Unlock()

		if res.Error {
			c.notify(ctx, notify.LevelError, "Analysis failed", "The scan could not be analyzed. Please try again.")
		} else {
			c.notify(ctx, notify.LevelSuccess, "Analysis complete", res.Headline())
		}
		return res, nil
	}, nil
}

// tick advances the cosmetic progress until cancelled. It never reaches 100.
func (c *Controller) tick(ctx context.Context, gen uint64, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(c.opts.ProgressInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.mu.Lock()
			if c.gen == gen && c.state == StateAnalyzing {
				c.progress += c.opts.ProgressStep
				if c.progress > c.opts.ProgressCap {
					c.progress = c.opts.ProgressCap
				}
			}
			c.mu.Unlock()
		}
	}
}

// Save persists the displayed result. While a save is in flight further
// calls are rejected with ErrSaveInProgress.
func (c *Controller) Save(ctx context.Context, name string) (scans.RecordID, error) {
	c.mu.Lock()
	switch {
	case c.owner == "":
		c.mu.Unlock()
		return "", ErrNoOwner
	case c.state == StateSaving:
		c.mu.Unlock()
		return "", ErrSaveInProgress
	case c.state != StateDisplaying && c.state != StateSaved:
		st := c.state
		c.mu.Unlock()
		return "", fmt.Errorf("%w: save while %s", ErrInvalidTransition, st)
	case c.result == nil || c.result.Error:
		c.mu.Unlock()
		return "", fmt.Errorf("%w: nothing to save", scans.ErrNotSavable)
	}
	gen := c.gen
	res := *c.result
	c.state = StateSaving
	c.lastErr = ""
	c.setBusy(true)
	c.mu.Unlock()

	id, err := c.deps.Persister.Persist(ctx, res, name, c.owner)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		c.deps.Log.Warn(module, "save finished after reset", map[string]interface{}{"session": c.id, "record": string(id)})
		return id, err
	}
	c.setBusy(false)
	if err != nil {
		c.state = StateDisplaying
		c.lastErr = err.Error()
		c.mu.Unlock()
		c.notify(ctx, notify.LevelError, "Save failed", "Your scan was not saved. Please try again.")
		return "", err
	}
	c.state = StateSaved
	c.recordID = id
	c.mu.Unlock()
	c.notify(ctx, notify.LevelSuccess, "Scan saved", "The scan was saved to your account.")
	return id, nil
}

// Reset discards the acquisition and result unconditionally.
// An analysis already issued keeps running; its response is dropped.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopTicker != nil {
		c.stopTicker()
		c.stopTicker = nil
	}
	c.gen++
	c.setBusy(false)
	c.state = StateIdle
	c.acq = nil
	c.result = nil
	c.progress = 0
	c.recordID = ""
	c.lastErr = ""
}

// setBusy must be called with c.mu held.
func (c *Controller) setBusy(busy bool) {
	if c.pin != nil {
		c.pin(busy)
	}
}

// touch refreshes the registry entry without dropping a busy pin.
func (c *Controller) touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setBusy(c.state == StateAnalyzing || c.state == StateSaving)
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		ID:        c.id,
		OwnerID:   c.owner,
		State:     c.state,
		Progress:  c.progress,
		RecordID:  c.recordID,
		LastError: c.lastErr,
	}
	if c.acq != nil {
		a := *c.acq
		s.Acquisition = &a
	}
	if c.result != nil {
		r := *c.result
		s.Result = &r
		s.Headline = r.Headline()
		s.ConfidenceLabel = r.ConfidenceLabel()
	}
	return s
}

func (c *Controller) notify(ctx context.Context, level notify.Level, title, msg string) {
	if c.owner == "" {
		return
	}
	err := c.deps.Notifier.Notify(ctx, notify.Notice{
		OwnerID: c.owner,
		Level:   level,
		Title:   title,
		Message: msg,
		At:      time.Now().UTC(),
	})
	if err != nil {
		c.deps.Log.Warn(module, "notice not delivered", map[string]interface{}{"session": c.id, "error": err})
	}
}
