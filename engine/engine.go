// Package engine wires the long-lived scan-processing and connection/read
// tasks, plus the periodic expiry sweep and payload-rotation timer, into
// one type a caller can start and stop. Payload processing has no task or
// queue of its own: the connection/read task applies each read result to
// the device table (and so to the delegate) inline. It plays the same role
// in this module that the teacher's NewDevice/Init pair plays in wiring
// together its advertiser, scanner, and GATT server.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/herald-go/herald/address"
	"github.com/herald-go/herald/codec"
	"github.com/herald-go/herald/delegate"
	"github.com/herald-go/herald/device"
	"github.com/herald-go/herald/pipeline"
	"github.com/herald-go/herald/radio"
	"github.com/herald-go/herald/scan"
)

// Config configures an Engine end to end.
type Config struct {
	Capacity           int
	MaxConcurrentReads int64
	MaxPayloadSize     int
	ReadIntervalSec    uint32
	ExpirySec          uint32
	SweepInterval       time.Duration
	RotationInterval    time.Duration

	Connection     device.Backoff
	HeraldNotFound device.Backoff

	Advertiser Gate
	Scanner    Gate
	Reader     radio.CentralReader

	Epoch         uint32
	PeriodsPerDay uint32
	Identity      codec.KeySchedule
	Country       uint16
	State         uint16

	Delegate delegate.Delegate
	Log      logrus.FieldLogger
}

// Gate is the minimal start/stop surface the radio arbiter wraps.
type Gate interface {
	Start() error
	Stop() error
}

// Clock abstracts "now" in whole seconds, so tests can drive the engine
// deterministically.
type Clock interface {
	NowSeconds() uint32
}

// Engine owns the device table, connection pipeline, and scan ingestor,
// and runs the tasks that keep them moving.
type Engine struct {
	cfg      Config
	table    *device.Table
	pipeline *pipeline.Pipeline
	ingestor *scan.Ingestor
	arbiter  *radio.Arbiter
	clock    Clock
	log      logrus.FieldLogger

	readQueue chan address.Pseudo

	advertisedMu      sync.Mutex
	advertisedPayload []byte

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New builds an Engine from cfg. It does not start any background task;
// call Run for that.
func New(cfg Config, clock Clock) (*Engine, error) {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	table := device.NewTable(device.Config{
		Capacity:       cfg.Capacity,
		Connection:     cfg.Connection,
		HeraldNotFound: cfg.HeraldNotFound,
		Notifier:       cfg.Delegate,
	})
	table.DefaultExpiry(cfg.ExpirySec)

	arb := radio.NewArbiter(cfg.Advertiser, cfg.Scanner, cfg.Log)

	p, err := pipeline.New(pipeline.Config{
		MaxConcurrentReads: cfg.MaxConcurrentReads,
		BufferCount:        int(cfg.MaxConcurrentReads),
		MaxPayloadSize:     cfg.MaxPayloadSize,
		Gate:               arb,
		Reader:             cfg.Reader,
		Log:                cfg.Log,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:       cfg,
		table:     table,
		pipeline:  p,
		ingestor:  scan.NewIngestor(256, cfg.Log),
		arbiter:   arb,
		clock:     clock,
		log:       cfg.Log,
		readQueue: make(chan address.Pseudo, 256),
	}, nil
}

// ScanCallback is wired to the platform scanner, feeding the ingestor.
func (e *Engine) ScanCallback() radio.ScanCallback {
	return func(mac address.MAC, manufacturerData []byte, rssi int8) {
		e.ingestor.Ingest(mac, manufacturerData, rssi)
	}
}

// Run starts the two long-lived tasks (scan-processing and
// connection/read, which also processes read results) and the two
// periodic timers. It returns immediately; call Stop to shut everything
// down.
func (e *Engine) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(4)
	go e.runScanProcessing(ctx)
	go e.runConnectionRead(ctx)
	go e.runExpirySweep(ctx)
	go e.runPayloadRotation(ctx)
}

// Stop cancels every background task and waits for them to exit.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

// StartRadio sets both the advertiser's and the scanner's should-be-on
// flag through the arbiter (§4.1) and starts them immediately, since
// nothing is disallowing either gate yet. Callers must start the radio
// this way rather than calling the platform driver directly, or the
// arbiter's should-be-on bookkeeping falls out of sync with the radio's
// actual state.
func (e *Engine) StartRadio() error {
	if err := e.arbiter.StartAdvertising(); err != nil {
		return err
	}
	return e.arbiter.StartScanning()
}

// StopRadio clears both gates' should-be-on flags and stops them
// unconditionally.
func (e *Engine) StopRadio() error {
	if err := e.arbiter.StopAdvertising(); err != nil {
		return err
	}
	return e.arbiter.StopScanning()
}

// runScanProcessing blocks on the scan queue; per event it acquires the
// device-table mutex (internally, via Table.Scanned) only to add/update,
// then enqueues the pseudo-address for the read task if it's now due.
func (e *Engine) runScanProcessing(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.ingestor.Events():
			now := e.clock.NowSeconds()
			_, _, ok := e.table.Scanned(ev.MAC, ev.Pseudo, ev.RSSI, now)
			if !ok {
				continue
			}
			if rec, found := e.table.Get(ev.Pseudo); found && rec.ShouldRead(now) {
				select {
				case e.readQueue <- ev.Pseudo:
				default:
					e.log.WithField("pseudo", ev.Pseudo.String()).Warn("engine: read queue full, dropping")
				}
			}
		}
	}
}

// runConnectionRead blocks on the read-request queue; per request it takes
// the read semaphore (inside Pipeline.Read), drives the pipeline, and
// releases, then applies the result to the device table.
func (e *Engine) runConnectionRead(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case pseudo := <-e.readQueue:
			rec, ok := e.table.Get(pseudo)
			if !ok {
				continue
			}
			if _, ok := e.table.BeginConnecting(pseudo); !ok {
				continue
			}
			msg := e.pipeline.Read(ctx, rec.MAC)
			now := e.clock.NowSeconds()
			if msg.Status == radio.OK {
				e.table.CompleteRead(pseudo, msg.Payload, now, e.cfg.ReadIntervalSec)
			} else {
				fam, immediate := device.FamilyFor(msg.Status)
				e.table.Fail(pseudo, fam, immediate, now)
			}
		}
	}
}

// runExpirySweep periodically evicts stale device-table slots.
func (e *Engine) runExpirySweep(ctx context.Context) {
	defer e.wg.Done()
	interval := e.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			e.table.Sweep(e.clock.NowSeconds())
		}
	}
}

// runPayloadRotation periodically recomputes the advertised rotating
// identifier and stores the encoded payload. It does not transmit it; the
// platform layer reads it via AdvertisedPayload.
func (e *Engine) runPayloadRotation(ctx context.Context) {
	defer e.wg.Done()
	interval := e.cfg.RotationInterval
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			now := e.clock.NowSeconds()
			day, period := codec.DayAndPeriod(now, e.cfg.Epoch, e.cfg.PeriodsPerDay)
			id, err := e.cfg.Identity.Identifier(day, period)
			if err != nil {
				e.log.WithError(err).Warn("engine: failed to rotate payload identifier")
				continue
			}
			payload := codec.EncodeRotating(e.cfg.Country, e.cfg.State, id, nil)
			e.setAdvertisedPayload(payload)
		}
	}
}

// setAdvertisedPayload stores the newly rotated payload under lock (§5,
// "Advertised payload bytes — mutex protected; readers copy under lock").
func (e *Engine) setAdvertisedPayload(payload []byte) {
	e.advertisedMu.Lock()
	defer e.advertisedMu.Unlock()
	e.advertisedPayload = payload
}

// AdvertisedPayload returns a copy of the currently advertised rotating
// payload.
func (e *Engine) AdvertisedPayload() []byte {
	e.advertisedMu.Lock()
	defer e.advertisedMu.Unlock()
	return append([]byte(nil), e.advertisedPayload...)
}

// Table exposes the device table for read-only diagnostics and tests.
func (e *Engine) Table() *device.Table { return e.table }
