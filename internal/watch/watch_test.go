package watch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitsmart/internal/domain"
)

var (
	snapA  = domain.NewSnapshot(nil, []domain.FileChange{{Path: "a.go", FileStat: domain.FileStat{Additions: 1}}})
	snapAB = domain.NewSnapshot(nil, []domain.FileChange{
		{Path: "a.go", FileStat: domain.FileStat{Additions: 1}},
		{Path: "b.go", FileStat: domain.FileStat{Additions: 2}},
	})
)

// scriptedSource replays a fixed sequence, then repeats the last entry
type scriptedSource struct {
	mu     sync.Mutex
	calls  int
	script []domain.Snapshot
	errs   map[int]error
}

func (s *scriptedSource) Snapshot(context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := s.errs[s.calls]; err != nil {
		return domain.Snapshot{}, err
	}
	idx := min(s.calls, len(s.script)) - 1
	return s.script[idx], nil
}

func (s *scriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// switchSource returns whatever snapshot is currently set
type switchSource struct {
	mu    sync.Mutex
	calls int
	snap  domain.Snapshot
}

func (s *switchSource) Snapshot(context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.snap, nil
}

func (s *switchSource) Set(snap domain.Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

func (s *switchSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingInterrupter struct {
	count  atomic.Int32
	onCall func()
	err    error
}

func (r *recordingInterrupter) Interrupt() error {
	r.count.Add(1)
	if r.onCall != nil {
		r.onCall()
	}
	return r.err
}

type busyGate struct{ busy atomic.Bool }

func (g *busyGate) InProgress() bool { return g.busy.Load() }

func TestDetector_FirstCallRecordsBaseline(t *testing.T) {
	source := &scriptedSource{script: []domain.Snapshot{snapAB}}
	d := NewDetector(source, nil)

	snap, changed := d.Detect(context.Background())

	assert.False(t, changed)
	assert.True(t, snap.Equal(snapAB))

	d.Reset()
	_, changed = d.Detect(context.Background())
	assert.False(t, changed, "first detect after reset only records the baseline")
}

func TestDetector_ReportsStructuralChanges(t *testing.T) {
	source := &scriptedSource{script: []domain.Snapshot{snapA, snapA, snapAB, snapA}}
	d := NewDetector(source, nil)

	var got []bool
	for range 4 {
		_, changed := d.Detect(context.Background())
		got = append(got, changed)
	}

	assert.Equal(t, []bool{false, false, true, true}, got)
}

func TestDetector_FailureKeepsLastGoodSnapshot(t *testing.T) {
	source := &scriptedSource{
		script: []domain.Snapshot{snapA, snapA, snapA},
		errs:   map[int]error{2: errors.New("git exploded")},
	}
	d := NewDetector(source, nil)

	d.Detect(context.Background())
	snap, changed := d.Detect(context.Background())

	assert.False(t, changed)
	assert.True(t, snap.Equal(snapA))

	last, ok := d.Last()
	require.True(t, ok)
	assert.True(t, last.Equal(snapA))

	_, changed = d.Detect(context.Background())
	assert.False(t, changed, "recovery with identical state is not a change")
}

func TestDetector_FailureWithoutBaseline(t *testing.T) {
	source := &scriptedSource{
		script: []domain.Snapshot{snapA},
		errs:   map[int]error{1: errors.New("not yet")},
	}
	d := NewDetector(source, nil)

	snap, changed := d.Detect(context.Background())
	assert.False(t, changed)
	assert.True(t, snap.IsEmpty())

	_, ok := d.Last()
	assert.False(t, ok)
}

func TestPendingRefresh_CollapsesSets(t *testing.T) {
	var p PendingRefresh

	p.Set()
	p.Set()
	assert.True(t, p.IsSet())
	assert.True(t, p.Take())
	assert.False(t, p.Take())
	assert.False(t, p.IsSet())
}

func TestController_SignalsOnceOnThirdPoll(t *testing.T) {
	source := &scriptedSource{script: []domain.Snapshot{snapA, snapA, snapAB}}
	var pending PendingRefresh
	var callsAtInterrupt atomic.Int32
	interrupter := &recordingInterrupter{}
	interrupter.onCall = func() { callsAtInterrupt.Store(int32(source.Calls())) }

	c := NewController(NewDetector(source, nil), &pending, interrupter, Options{Interval: time.Millisecond})
	require.NoError(t, c.Start())
	t.Cleanup(func() { c.Stop() })

	require.Eventually(t, func() bool { return source.Calls() >= 6 }, time.Second, time.Millisecond)
	c.Stop()

	assert.Equal(t, int32(1), interrupter.count.Load())
	assert.Equal(t, int32(3), callsAtInterrupt.Load())
	assert.True(t, pending.IsSet())
}

func TestController_SuspendMutesSignalling(t *testing.T) {
	source := &switchSource{snap: snapA}
	var pending PendingRefresh
	interrupter := &recordingInterrupter{}
	c := NewController(NewDetector(source, nil), &pending, interrupter, Options{Interval: time.Millisecond})
	require.NoError(t, c.Start())
	t.Cleanup(func() { c.Stop() })

	require.Eventually(t, func() bool { return source.Calls() >= 1 }, time.Second, time.Millisecond)

	resume := c.Suspend()
	assert.False(t, c.Running())
	assert.True(t, c.Suspended())

	source.Set(snapAB)
	seen := source.Calls()
	require.Eventually(t, func() bool { return source.Calls() >= seen+2 }, time.Second, time.Millisecond)

	resume()
	resume() // idempotent
	assert.True(t, c.Running())

	seen = source.Calls()
	require.Eventually(t, func() bool { return source.Calls() >= seen+3 }, time.Second, time.Millisecond)

	assert.Equal(t, int32(0), interrupter.count.Load())
	assert.False(t, pending.IsSet())
}

func TestController_ResumeBaselinesLocalChanges(t *testing.T) {
	source := &switchSource{snap: snapA}
	interrupter := &recordingInterrupter{}
	c := NewController(NewDetector(source, nil), &PendingRefresh{}, interrupter, Options{Interval: time.Hour})
	require.NoError(t, c.Start())
	t.Cleanup(func() { c.Stop() })
	require.Eventually(t, func() bool { return source.Calls() >= 1 }, time.Second, time.Millisecond)

	resume := c.Suspend()
	source.Set(snapAB)
	resume()

	assert.Equal(t, 2, source.Calls(), "release takes the baseline itself")
	last, ok := c.detector.Last()
	require.True(t, ok)
	assert.True(t, last.Equal(snapAB))
	assert.Equal(t, int32(0), interrupter.count.Load())
}

func TestController_ChangeAfterResumeIsSignalled(t *testing.T) {
	source := &switchSource{snap: snapA}
	var pending PendingRefresh
	interrupter := &recordingInterrupter{}
	c := NewController(NewDetector(source, nil), &pending, interrupter, Options{Interval: 20 * time.Millisecond})
	require.NoError(t, c.Start())
	t.Cleanup(func() { c.Stop() })
	require.Eventually(t, func() bool { return source.Calls() >= 1 }, time.Second, time.Millisecond)

	resume := c.Suspend()
	time.Sleep(60 * time.Millisecond)
	resume()
	source.Set(snapAB)

	require.Eventually(t, func() bool { return interrupter.count.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, pending.IsSet())
}

func TestController_ResumeDuringRemoteOperationKeepsBaseline(t *testing.T) {
	gate := &busyGate{}
	source := &switchSource{snap: snapA}
	interrupter := &recordingInterrupter{}
	c := NewController(NewDetector(source, nil), &PendingRefresh{}, interrupter, Options{
		Gate:     gate,
		Interval: time.Millisecond,
	})
	require.NoError(t, c.Start())
	t.Cleanup(func() { c.Stop() })
	require.Eventually(t, func() bool { return source.Calls() >= 1 }, time.Second, time.Millisecond)

	// The remote operation's change must surface once it completes
	gate.busy.Store(true)
	time.Sleep(5 * time.Millisecond)
	resume := c.Suspend()
	source.Set(snapAB)
	resume()
	gate.busy.Store(false)

	require.Eventually(t, func() bool { return interrupter.count.Load() == 1 }, time.Second, time.Millisecond)
}

func TestController_NestedSuspensions(t *testing.T) {
	c := NewController(NewDetector(&switchSource{}, nil), &PendingRefresh{}, nil, Options{Interval: time.Hour})
	require.NoError(t, c.Start())
	t.Cleanup(func() { c.Stop() })

	outer := c.Suspend()
	inner := c.Suspend()

	inner()
	assert.False(t, c.Running(), "outer suspension still held")

	outer()
	assert.True(t, c.Running())
}

func TestController_GateSkipsPolls(t *testing.T) {
	gate := &busyGate{}
	gate.busy.Store(true)
	source := &switchSource{snap: snapA}
	c := NewController(NewDetector(source, nil), &PendingRefresh{}, nil, Options{
		Gate:     gate,
		Interval: time.Millisecond,
	})
	require.NoError(t, c.Start())
	t.Cleanup(func() { c.Stop() })

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, source.Calls())

	gate.busy.Store(false)
	require.Eventually(t, func() bool { return source.Calls() > 0 }, time.Second, time.Millisecond)
}

func TestController_InterruptFailureIsSwallowed(t *testing.T) {
	source := &scriptedSource{script: []domain.Snapshot{snapA, snapAB, snapA}}
	interrupter := &recordingInterrupter{err: errors.New("prompt gone")}
	c := NewController(NewDetector(source, nil), &PendingRefresh{}, interrupter, Options{Interval: time.Millisecond})
	require.NoError(t, c.Start())
	t.Cleanup(func() { c.Stop() })

	require.Eventually(t, func() bool { return interrupter.count.Load() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, StateRunning, c.State())
}

func TestController_StopIsIdempotentAndBounded(t *testing.T) {
	source := &switchSource{}
	c := NewController(NewDetector(source, nil), &PendingRefresh{}, nil, Options{
		Interval:    time.Hour,
		StopTimeout: time.Second,
	})
	require.NoError(t, c.Start())
	require.Eventually(t, func() bool { return source.Calls() == 1 }, time.Second, time.Millisecond)

	start := time.Now()
	assert.True(t, c.Stop())
	assert.Less(t, time.Since(start), 500*time.Millisecond, "stop must not wait for the poll interval")
	assert.True(t, c.Stop())
	assert.Equal(t, StateStopped, c.State())
	assert.False(t, c.Running())
}

func TestController_StopGivesUpOnHungDetection(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	source := SnapshotSourceFunc(func(context.Context) (domain.Snapshot, error) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return domain.Snapshot{}, nil
	})
	c := NewController(NewDetector(source, nil), &PendingRefresh{}, nil, Options{
		Interval:    time.Hour,
		StopTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, c.Start())
	<-entered

	assert.False(t, c.Stop())
	close(release)
	assert.Eventually(t, func() bool { return c.Stop() }, time.Second, 5*time.Millisecond)
}

func TestController_StartLifecycle(t *testing.T) {
	c := NewController(NewDetector(&switchSource{}, nil), &PendingRefresh{}, nil, Options{Interval: time.Hour})

	assert.Equal(t, StateNew, c.State())
	assert.False(t, c.Running())
	assert.True(t, c.Stop(), "stopping a never-started controller is a no-op")
	assert.ErrorIs(t, c.Start(), ErrControllerClosed)

	c2 := NewController(NewDetector(&switchSource{}, nil), &PendingRefresh{}, nil, Options{Interval: time.Hour})
	require.NoError(t, c2.Start())
	require.NoError(t, c2.Start(), "start while running is a no-op")
	assert.True(t, c2.Running())
	c2.Stop()
}
