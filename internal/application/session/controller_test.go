package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/neuroscan/internal/application/acquisition"
	"github.com/bryanwahyu/neuroscan/internal/domain/media"
	"github.com/bryanwahyu/neuroscan/internal/domain/notify"
	"github.com/bryanwahyu/neuroscan/internal/domain/scans"
)

type stubAcquirer struct {
	err error
}

func (s stubAcquirer) Acquire(_ context.Context, src acquisition.Source) (acquisition.Acquisition, error) {
	if s.err != nil {
		return acquisition.Acquisition{}, s.err
	}
	f, _ := src.(acquisition.LocalFile)
	return acquisition.Acquisition{
		Data:           f.Data,
		DisplaySource:  media.DataURI("image/png", f.Data),
		MimeType:       "image/png",
		OriginFilename: f.Filename,
		Provenance:     acquisition.ProvenanceUpload,
	}, nil
}

// gatedAnalyzer blocks every call until release is closed.
type gatedAnalyzer struct {
	started chan struct{}
	release chan struct{}
	result  scans.Result
}

func newGatedAnalyzer(res scans.Result) *gatedAnalyzer {
	return &gatedAnalyzer{started: make(chan struct{}, 4), release: make(chan struct{}), result: res}
}

func (g *gatedAnalyzer) Analyze(context.Context, acquisition.Acquisition, string) scans.Result {
	g.started <- struct{}{}
	<-g.release
	return g.result
}

type instantAnalyzer struct{ result scans.Result }

func (a instantAnalyzer) Analyze(context.Context, acquisition.Acquisition, string) scans.Result {
	return a.result
}

type stubPersister struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
	err     error
}

func (p *stubPersister) Persist(context.Context, scans.Result, string, string) (scans.RecordID, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.release != nil {
		<-p.release
	}
	if p.err != nil {
		return "", p.err
	}
	return "rec-1", nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notify.Notice
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	return nil
}

func (r *recordingNotifier) levels() []notify.Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Level, 0, len(r.notices))
	for _, n := range r.notices {
		out = append(out, n.Level)
	}
	return out
}

var (
	positive = scans.Result{
		Findings:   scans.Findings{HasTumor: true, Confidence: 0.87, TumorType: "Glioma"},
		ImageRef:   "https://cdn.example/o.jpg",
		DisplayRef: "https://cdn.example/o.jpg",
	}
	upload = acquisition.LocalFile{Filename: "scan.png", MimeType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
	fast   = Options{ProgressInterval: time.Millisecond, ProgressStep: 7, ProgressCap: 90}
)

func displaying(t *testing.T, deps Deps) *Controller {
	t.Helper()
	if deps.Acquirer == nil {
		deps.Acquirer = stubAcquirer{}
	}
	if deps.Analyzer == nil {
		deps.Analyzer = instantAnalyzer{result: positive}
	}
	c := NewController("s1", "owner-1", deps, fast)
	_, err := c.Acquire(context.Background(), upload)
	require.NoError(t, err)
	_, err = c.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateDisplaying, c.State())
	return c
}

func TestAcquireMovesToPreviewing(t *testing.T) {
	c := NewController("s1", "owner-1", Deps{Acquirer: stubAcquirer{}}, fast)
	acq, err := c.Acquire(context.Background(), upload)
	require.NoError(t, err)

	assert.Equal(t, StatePreviewing, c.State())
	assert.Equal(t, "scan.png", acq.OriginFilename)
	snap := c.Snapshot()
	require.NotNil(t, snap.Acquisition)
	assert.Nil(t, snap.Result)
}

func TestAcquireFailureKeepsState(t *testing.T) {
	c := NewController("s1", "owner-1", Deps{Acquirer: stubAcquirer{}}, fast)
	_, err := c.Acquire(context.Background(), upload)
	require.NoError(t, err)

	c.deps.Acquirer = stubAcquirer{err: &acquisition.Error{Reason: acquisition.ReasonInvalidType, Err: errors.New("pdf")}}
	_, err = c.Acquire(context.Background(), acquisition.LocalFile{Filename: "x.pdf", MimeType: "application/pdf", Data: []byte("%PDF")})
	require.Error(t, err)

	assert.Equal(t, StatePreviewing, c.State())
	assert.Equal(t, "scan.png", c.Snapshot().Acquisition.OriginFilename)
}

func TestSubmitRequiresAcquisition(t *testing.T) {
	c := NewController("s1", "owner-1", Deps{Analyzer: instantAnalyzer{}}, fast)
	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateIdle, c.State())
}

func TestProgressStaysBelowHundredUntilCompletion(t *testing.T) {
	an := newGatedAnalyzer(positive)
	c := NewController("s1", "owner-1", Deps{Acquirer: stubAcquirer{}, Analyzer: an}, fast)
	_, err := c.Acquire(context.Background(), upload)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()
	<-an.started

	deadline := time.Now().Add(50 * time.Millisecond)
	for time.Now().Before(deadline) {
		p := c.Progress()
		assert.Less(t, p, 100)
		assert.LessOrEqual(t, p, fast.ProgressCap)
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, StateAnalyzing, c.State())

	close(an.release)
	require.NoError(t, <-done)
	assert.Equal(t, 100, c.Progress())
	assert.Equal(t, StateDisplaying, c.State())

	// the ticker has stopped; nothing overwrites the final value
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 100, c.Progress())
}

func TestResetDiscardsLateResponse(t *testing.T) {
	an := newGatedAnalyzer(positive)
	c := NewController("s1", "owner-1", Deps{Acquirer: stubAcquirer{}, Analyzer: an}, fast)
	_, err := c.Acquire(context.Background(), upload)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()
	<-an.started

	c.Reset()
	close(an.release)

	assert.ErrorIs(t, <-done, ErrStale)
	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Result)
	assert.Nil(t, snap.Acquisition)
	assert.Equal(t, 0, snap.Progress)
}

func TestResubmitFromDisplaying(t *testing.T) {
	c := displaying(t, Deps{})
	res, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, res.HasTumor)
	assert.Equal(t, "87%", c.Snapshot().ConfidenceLabel)
}

func TestSaveRejectsConcurrentSave(t *testing.T) {
	p := &stubPersister{started: make(chan struct{}, 1), release: make(chan struct{})}
	c := displaying(t, Deps{Persister: p})

	first := make(chan error, 1)
	go func() {
		_, err := c.Save(context.Background(), "")
		first <- err
	}()
	<-p.started
	assert.Equal(t, StateSaving, c.State())

	_, err := c.Save(context.Background(), "")
	assert.ErrorIs(t, err, ErrSaveInProgress)

	close(p.release)
	require.NoError(t, <-first)
	assert.Equal(t, 1, p.calls)
	snap := c.Snapshot()
	assert.Equal(t, StateSaved, snap.State)
	assert.Equal(t, scans.RecordID("rec-1"), snap.RecordID)
}

func TestSaveFailureReturnsToDisplaying(t *testing.T) {
	n := &recordingNotifier{}
	p := &stubPersister{err: &scans.MediaError{Field: "original", Err: errors.New("bucket down")}}
	c := displaying(t, Deps{Persister: p, Notifier: n})

	_, err := c.Save(context.Background(), "")
	var me *scans.MediaError
	require.ErrorAs(t, err, &me)

	snap := c.Snapshot()
	assert.Equal(t, StateDisplaying, snap.State)
	assert.NotEmpty(t, snap.LastError)
	assert.Equal(t, []notify.Level{notify.LevelSuccess, notify.LevelError}, n.levels())

	// retry is allowed
	p.err = nil
	id, err := c.Save(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, scans.RecordID("rec-1"), id)
}

func TestSaveRequiresOwner(t *testing.T) {
	c := NewController("s1", "", Deps{Acquirer: stubAcquirer{}, Analyzer: instantAnalyzer{result: positive}}, fast)
	_, err := c.Acquire(context.Background(), upload)
	require.NoError(t, err)
	_, err = c.Submit(context.Background())
	require.NoError(t, err)

	_, err = c.Save(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoOwner)
	assert.Equal(t, StateDisplaying, c.State())
}

func TestErrorResultIsNotSavable(t *testing.T) {
	p := &stubPersister{}
	sentinel := scans.Sentinel("", scans.Provenance{})
	c := displaying(t, Deps{Persister: p, Analyzer: instantAnalyzer{result: sentinel}})

	_, err := c.Save(context.Background(), "")
	assert.ErrorIs(t, err, scans.ErrNotSavable)
	assert.Equal(t, 0, p.calls)
}

func TestAcquireRejectedWhileAnalyzing(t *testing.T) {
	an := newGatedAnalyzer(positive)
	c := NewController("s1", "owner-1", Deps{Acquirer: stubAcquirer{}, Analyzer: an}, fast)
	_, err := c.Acquire(context.Background(), upload)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Submit(context.Background())
	}()
	<-an.started

	_, err = c.Acquire(context.Background(), upload)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	close(an.release)
	<-done
}

func TestStartCompletesInBackground(t *testing.T) {
	an := newGatedAnalyzer(positive)
	c := NewController("s1", "owner-1", Deps{Acquirer: stubAcquirer{}, Analyzer: an}, fast)

	assert.ErrorIs(t, c.Start(context.Background()), ErrInvalidTransition)

	_, err := c.Acquire(context.Background(), upload)
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	<-an.started
	assert.Equal(t, StateAnalyzing, c.State())

	close(an.release)
	assert.Eventually(t, func() bool { return c.State() == StateDisplaying }, time.Second, time.Millisecond)
	assert.Equal(t, 100, c.Progress())
}
