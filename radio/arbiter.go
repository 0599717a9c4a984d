package radio

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// restartDelay is the pause observed between a gate's count returning to
// zero and the associated radio function being told to restart, letting
// the radio quiesce before a new outgoing connection begins. Its
// portability beyond the radio this constant was tuned for is not
// established.
const restartDelay = 200 * time.Millisecond

// Gate is one of the two radio functions the arbiter coordinates.
type Gate interface {
	Start() error
	Stop() error
}

// gateState is a single reference-counted gate, §4.1: it tracks whether the
// underlying radio function is meant to be on at all (shouldBeOn) as well
// as how many outstanding holders are currently suppressing it
// (disallowCount). start()/stop() flip shouldBeOn directly; disallow()/
// allow() only ever touch the underlying gate while shouldBeOn is true, so
// a disallow/allow pair around a connection can never turn a gate on that
// was deliberately stopped.
type gateState struct {
	mu         sync.Mutex
	gate       Gate
	shouldBeOn bool
	count      int
	log        logrus.FieldLogger
	name       string
	restart    func(time.Duration, func())
}

func newGateState(name string, g Gate, log logrus.FieldLogger, restart func(time.Duration, func())) *gateState {
	return &gateState{gate: g, log: log, name: name, restart: restart}
}

// start sets shouldBeOn and, if nothing currently disallows the gate,
// starts the underlying radio function.
func (g *gateState) start() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shouldBeOn = true
	if g.count == 0 {
		return g.gate.Start()
	}
	return nil
}

// stop clears shouldBeOn and always stops the underlying radio function.
func (g *gateState) stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shouldBeOn = false
	return g.gate.Stop()
}

func (g *gateState) disallow() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.count++
	if g.count == 1 && g.shouldBeOn {
		if err := g.gate.Stop(); err != nil {
			g.log.WithError(err).WithField("gate", g.name).Warn("radio: failed to stop gate")
		}
	}
}

func (g *gateState) allow() {
	g.mu.Lock()
	if g.count == 0 {
		g.mu.Unlock()
		g.log.WithField("gate", g.name).Warn("radio: allow() called with no matching disallow()")
		return
	}
	g.count--
	shouldRestart := g.count == 0 && g.shouldBeOn
	g.mu.Unlock()
	if !shouldRestart {
		return
	}
	g.restart(restartDelay, func() {
		g.mu.Lock()
		stillDue := g.count == 0 && g.shouldBeOn
		g.mu.Unlock()
		if !stillDue {
			return
		}
		if err := g.gate.Start(); err != nil {
			g.log.WithError(err).WithField("gate", g.name).Warn("radio: failed to restart gate")
		}
	})
}

func (g *gateState) refCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

// Arbiter pauses advertising and scanning around outgoing connections,
// replacing the original's global ref-counted statics with one value the
// pipeline owns and constructs against the platform's start/stop
// primitives (§9, "Global mutable state in the ref-counted arbiters").
type Arbiter struct {
	advertiser *gateState
	scanner    *gateState
}

// NewArbiter builds an Arbiter over the given advertiser and scanner
// gates. Delayed restarts are scheduled with time.AfterFunc.
func NewArbiter(advertiser, scanner Gate, log logrus.FieldLogger) *Arbiter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	schedule := func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
	return &Arbiter{
		advertiser: newGateState("advertiser", advertiser, log, schedule),
		scanner:    newGateState("scanner", scanner, log, schedule),
	}
}

// StartAdvertising sets the advertiser's should-be-on flag and, if nothing
// currently disallows it, starts advertising immediately.
func (a *Arbiter) StartAdvertising() error { return a.advertiser.start() }

// StopAdvertising clears the advertiser's should-be-on flag and stops
// advertising unconditionally.
func (a *Arbiter) StopAdvertising() error { return a.advertiser.stop() }

// StartScanning sets the scanner's should-be-on flag and, if nothing
// currently disallows it, starts scanning immediately.
func (a *Arbiter) StartScanning() error { return a.scanner.start() }

// StopScanning clears the scanner's should-be-on flag and stops scanning
// unconditionally.
func (a *Arbiter) StopScanning() error { return a.scanner.stop() }

// DisallowAdvertising increments the advertiser's gate; the first caller
// across all outstanding holders stops advertising, but only if
// advertising is currently meant to be on (§4.1).
func (a *Arbiter) DisallowAdvertising() { a.advertiser.disallow() }

// AllowAdvertising releases one hold on the advertiser's gate; the last
// releaser schedules a restart after restartDelay.
func (a *Arbiter) AllowAdvertising() { a.advertiser.allow() }

// DisallowScanning increments the scanner's gate.
func (a *Arbiter) DisallowScanning() { a.scanner.disallow() }

// AllowScanning releases one hold on the scanner's gate.
func (a *Arbiter) AllowScanning() { a.scanner.allow() }

// AdvertiserRefCount reports the advertiser gate's current hold count, for
// tests and diagnostics.
func (a *Arbiter) AdvertiserRefCount() int { return a.advertiser.refCount() }

// ScannerRefCount reports the scanner gate's current hold count.
func (a *Arbiter) ScannerRefCount() int { return a.scanner.refCount() }
