package radio

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeGate struct {
	mu      sync.Mutex
	running bool
	starts  int
	stops   int
}

func (f *fakeGate) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	f.starts++
	return nil
}

func (f *fakeGate) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	f.stops++
	return nil
}

func (f *fakeGate) isRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// newTestArbiter builds an Arbiter whose restart scheduling runs
// synchronously, so scenario 4 from the spec's testable properties can be
// asserted without waiting on a real timer.
func newTestArbiter(adv, scan *fakeGate) *Arbiter {
	a := NewArbiter(adv, scan, nil)
	a.advertiser.restart = func(_ time.Duration, fn func()) { fn() }
	a.scanner.restart = func(_ time.Duration, fn func()) { fn() }
	return a
}

func TestArbiterDisallowAllowSequence(t *testing.T) {
	adv := &fakeGate{running: true}
	scan := &fakeGate{running: true}
	a := newTestArbiter(adv, scan)
	require.NoError(t, a.StartScanning())

	a.DisallowScanning()
	require.Equal(t, 1, a.ScannerRefCount())
	require.False(t, scan.isRunning())

	a.DisallowScanning()
	require.Equal(t, 2, a.ScannerRefCount())
	require.False(t, scan.isRunning())

	a.AllowScanning()
	require.Equal(t, 1, a.ScannerRefCount())
	require.False(t, scan.isRunning())

	a.AllowScanning()
	require.Equal(t, 0, a.ScannerRefCount())
	require.True(t, scan.isRunning())
}

func TestArbiterIdempotentRoundTrip(t *testing.T) {
	adv := &fakeGate{running: true}
	scan := &fakeGate{running: true}
	a := newTestArbiter(adv, scan)
	require.NoError(t, a.StartScanning())

	before := scan.stops
	a.DisallowScanning()
	a.AllowScanning()
	require.Equal(t, 0, a.ScannerRefCount())
	require.Equal(t, before+1, scan.stops)
}

func TestArbiterAllowWithoutDisallowIsNoop(t *testing.T) {
	adv := &fakeGate{running: true}
	scan := &fakeGate{running: true}
	a := newTestArbiter(adv, scan)

	a.AllowScanning()
	require.Equal(t, 0, a.ScannerRefCount())
}

// A gate the caller deliberately stopped (should_be_on=false) must stay off
// across a disallow/allow pair from an unrelated connection, §4.1.
func TestArbiterDisallowAllowNeverTurnsOnADeliberatelyStoppedGate(t *testing.T) {
	scan := &fakeGate{running: false}
	a := newTestArbiter(&fakeGate{running: false}, scan)
	require.NoError(t, a.StopScanning())

	a.DisallowScanning()
	a.AllowScanning()

	require.Equal(t, 0, a.ScannerRefCount())
	require.False(t, scan.isRunning())
	require.Equal(t, 0, scan.starts)
}

// StartScanning while a connection is in flight must not start the
// underlying gate until the matching AllowScanning releases it.
func TestArbiterStartWhileDisallowedDefersToAllow(t *testing.T) {
	scan := &fakeGate{running: false}
	a := newTestArbiter(&fakeGate{running: false}, scan)

	a.DisallowScanning()
	require.NoError(t, a.StartScanning())
	require.False(t, scan.isRunning(), "should_be_on is set, but the gate stays suppressed while disallowed")

	a.AllowScanning()
	require.True(t, scan.isRunning())
}
