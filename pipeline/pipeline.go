package pipeline

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/herald-go/herald/address"
	"github.com/herald-go/herald/radio"
)

// PayloadMsg is the single message Read returns for each call, whether
// the read succeeded or not (§8: "For every read_payload call returning
// success, exactly one PayloadMsg is eventually enqueued").
type PayloadMsg struct {
	MAC     address.MAC
	Status  radio.StatusCode
	Payload []byte
}

// Gate is the subset of radio.Arbiter the pipeline needs: disallowing and
// re-allowing both radio functions around an outgoing connection.
type Gate interface {
	DisallowAdvertising()
	AllowAdvertising()
	DisallowScanning()
	AllowScanning()
}

// inflight tracks one read in progress: the checked-out buffer its
// on-payload callback appends into, and the channel its on-done callback
// (or a driver error) completes.
type inflight struct {
	handle *Handle
	result chan PayloadMsg
}

// Pipeline drives the connect/discover/read sequence for at most
// MaxConcurrentReads peers at once, guarded by a counting semaphore
// (§5, "Outgoing connection slots — semaphore with capacity
// MAX_CONCURRENT_READS").
type Pipeline struct {
	sem    *semaphore.Weighted
	pool   *BufferPool
	gate   Gate
	reader radio.CentralReader
	log    logrus.FieldLogger

	mu      sync.Mutex
	pending map[address.MAC]*inflight
}

// Config configures a Pipeline.
type Config struct {
	MaxConcurrentReads int64
	BufferCount        int
	MaxPayloadSize     int
	Gate               Gate
	Reader             radio.CentralReader
	Log                logrus.FieldLogger
}

// New builds a Pipeline and wires the reader's payload/done callbacks.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	p := &Pipeline{
		sem:     semaphore.NewWeighted(cfg.MaxConcurrentReads),
		pool:    NewBufferPool(cfg.BufferCount, cfg.MaxPayloadSize),
		gate:    cfg.Gate,
		reader:  cfg.Reader,
		log:     cfg.Log,
		pending: make(map[address.MAC]*inflight),
	}
	if err := cfg.Reader.Init(p.onPayload, p.onDone); err != nil {
		return nil, err
	}
	return p, nil
}

// Read acquires a connection slot, disallows the radio's advertise/scan
// gates, drives GetPayload, and returns exactly one PayloadMsg regardless
// of outcome. Every exit path (ctx cancellation, semaphore failure, buffer
// exhaustion, driver error, success) releases the semaphore, frees the
// buffer, and re-allows the gates before returning — per §4.5's exit-path
// invariant.
func (p *Pipeline) Read(ctx context.Context, mac address.MAC) PayloadMsg {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return PayloadMsg{MAC: mac, Status: radio.ErrConnecting}
	}
	defer p.sem.Release(1)

	p.gate.DisallowAdvertising()
	p.gate.DisallowScanning()
	defer p.gate.AllowAdvertising()
	defer p.gate.AllowScanning()

	handle, err := p.pool.Acquire(p.pool.maxSize)
	if err != nil {
		p.log.WithError(err).WithField("mac", mac.String()).Warn("pipeline: cannot acquire payload buffer")
		return PayloadMsg{MAC: mac, Status: radio.ErrPayloadTooBig}
	}
	defer handle.Release()

	in := &inflight{handle: handle, result: make(chan PayloadMsg, 1)}
	p.mu.Lock()
	p.pending[mac] = in
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, mac)
		p.mu.Unlock()
	}()

	if err := p.reader.GetPayload(mac); err != nil {
		return PayloadMsg{MAC: mac, Status: radio.ErrConnecting}
	}

	select {
	case msg := <-in.result:
		return msg
	case <-ctx.Done():
		return PayloadMsg{MAC: mac, Status: radio.ErrConnecting}
	}
}

// onPayload is wired as the radio.PayloadCallback: it appends chunk data
// to the in-flight buffer for mac, stopping early on overflow (§7,
// "Over-large characteristic value → Long backoff; payload buffer freed").
func (p *Pipeline) onPayload(mac address.MAC, status radio.StatusCode, data []byte) radio.StatusCode {
	p.mu.Lock()
	in, ok := p.pending[mac]
	p.mu.Unlock()
	if !ok {
		return radio.StopReading
	}
	if status != radio.OK {
		p.finish(mac, PayloadMsg{MAC: mac, Status: status})
		return radio.StopReading
	}
	if err := in.handle.Append(data); err != nil {
		p.finish(mac, PayloadMsg{MAC: mac, Status: radio.ErrPayloadTooBig})
		return radio.StopReading
	}
	return radio.OK
}

// onDone is wired as the radio.DoneCallback: it fires exactly once per
// GetPayload call and completes the pending read with whatever was
// accumulated, unless onPayload already completed it with an error.
func (p *Pipeline) onDone(mac address.MAC) {
	p.mu.Lock()
	in, ok := p.pending[mac]
	p.mu.Unlock()
	if !ok {
		return
	}
	p.finish(mac, PayloadMsg{MAC: mac, Status: radio.OK, Payload: in.handle.Bytes()})
}

// finish delivers msg to the Read call blocked on mac, if any; it is safe
// to call more than once (only the first delivery is observed) so both
// onPayload's error path and onDone's natural-completion path can call it
// without coordinating.
func (p *Pipeline) finish(mac address.MAC, msg PayloadMsg) {
	p.mu.Lock()
	in, ok := p.pending[mac]
	p.mu.Unlock()
	if !ok {
		return
	}
	select {
	case in.result <- msg:
	default:
	}
}
