package device

import (
	"fmt"
	"sync"

	"github.com/herald-go/herald/address"
	"github.com/herald-go/herald/delegate"
)

// Table is the fixed-capacity device table, §4.3. Slots are reused (never
// reallocated) so the whole table is one flat, pre-sized array — no heap
// growth once constructed, mirroring the original's AllocatableArray.
type Table struct {
	mu    sync.Mutex
	slots []Record

	connection     Backoff
	heraldNotFound Backoff
	expirySec      uint32

	notifier delegate.Notifier
}

// Config configures a Table's fixed capacity and backoff families.
type Config struct {
	Capacity       int
	Connection     Backoff
	HeraldNotFound Backoff
	Notifier       delegate.Notifier
}

// NewTable builds a Table with the given fixed capacity.
func NewTable(cfg Config) *Table {
	return &Table{
		slots:          make([]Record, cfg.Capacity),
		connection:     cfg.Connection,
		heraldNotFound: cfg.HeraldNotFound,
		notifier:       cfg.Notifier,
	}
}

// find returns the index of pseudo's slot, or -1. Must be called with mu held.
func (t *Table) find(pseudo address.Pseudo) int {
	for i := range t.slots {
		if t.slots[i].used && t.slots[i].Pseudo == pseudo {
			return i
		}
	}
	return -1
}

// firstFree returns the index of the first unused slot, or -1 if the table
// is at capacity. Must be called with mu held.
func (t *Table) firstFree() int {
	for i := range t.slots {
		if !t.slots[i].used {
			return i
		}
	}
	return -1
}

// Scanned applies a scan event to the table: creating a new record if
// pseudo is unseen (notifying DidCreate), or updating LastScan/RSSI if
// it's already tracked (notifying DidUpdate with the new RSSI, §4.3).
// Returns the slot handle and whether a new record was created. Applying
// Scanned twice with the same now is idempotent (§8).
func (t *Table) Scanned(mac address.MAC, pseudo address.Pseudo, rssi int8, now uint32) (h delegate.Handle, created bool, ok bool) {
	t.mu.Lock()
	idx := t.find(pseudo)
	if idx == -1 {
		idx = t.firstFree()
		if idx == -1 {
			t.mu.Unlock()
			return 0, false, false
		}
		t.slots[idx] = Record{
			MAC:       mac,
			Pseudo:    pseudo,
			State:     StateIdle,
			LastScan:  now,
			RSSI:      rssi,
			ExpirySec: t.expirySec,
			used:      true,
		}
		created = true
	} else {
		t.slots[idx].LastScan = now
		t.slots[idx].RSSI = rssi
	}
	t.mu.Unlock()

	if t.notifier != nil {
		if created {
			t.notifier.NotifyCreate(delegate.Handle(idx), pseudo)
		} else {
			t.notifier.NotifyUpdate(delegate.Handle(idx), pseudo, fmt.Sprintf("RSSI:%d", rssi))
		}
	}
	return delegate.Handle(idx), created, true
}

// SetExpiry configures the expiry window used by Sweep; it does not notify.
func (t *Table) SetExpiry(pseudo address.Pseudo, expirySec uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx := t.find(pseudo); idx != -1 {
		t.slots[idx].ExpirySec = expirySec
	}
}

// DefaultExpiry sets the expiry window applied to every slot the table
// creates from now on, including slots recycled from a prior eviction
// (slots start at 0, which is almost never what a caller wants). It is
// stored on the Table itself rather than copied onto free slots, so a
// slot freed by Sweep and later reused for a different device picks up
// the table's current default instead of whatever the evicted device's
// expiry happened to be.
func (t *Table) DefaultExpiry(expirySec uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expirySec = expirySec
}

// BeginConnecting transitions a record from IDLE to CONNECTING, the only
// path by which a device acquires a connection slot (§5, "the IDLE→
// CONNECTING transition under the mutex"). Returns false if the record
// isn't found or is already connecting.
func (t *Table) BeginConnecting(pseudo address.Pseudo) (h delegate.Handle, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.find(pseudo)
	if idx == -1 || t.slots[idx].State != StateIdle {
		return 0, false
	}
	t.slots[idx].State = StateConnecting
	return delegate.Handle(idx), true
}

// CompleteRead marks a record's successful read: returns to IDLE, resets
// both backoff counters, sets NextRead = now + readIntervalSec, stores the
// payload, and notifies DidRead/DidUpdate.
func (t *Table) CompleteRead(pseudo address.Pseudo, payload []byte, now, readIntervalSec uint32) {
	t.mu.Lock()
	idx := t.find(pseudo)
	if idx == -1 {
		t.mu.Unlock()
		return
	}
	t.slots[idx].State = StateIdle
	t.slots[idx].connectionCounter = 0
	t.slots[idx].heraldNotFoundCounter = 0
	t.slots[idx].NextRead = now + readIntervalSec
	t.slots[idx].Payload = append([]byte(nil), payload...)
	h := delegate.Handle(idx)
	t.mu.Unlock()

	if t.notifier != nil {
		t.notifier.NotifyRead(h, pseudo, payload)
		t.notifier.NotifyUpdate(h, pseudo, StateIdle.String())
	}
}

// Fail records a connect/read failure: routes the status through the
// appropriate backoff family, applies its delay to NextRead, returns to
// IDLE, and notifies DidUpdate. SYSTEM-kind failures (immediate==true)
// retry immediately without touching either counter.
func (t *Table) Fail(pseudo address.Pseudo, fam Family, immediate bool, now uint32) {
	t.mu.Lock()
	idx := t.find(pseudo)
	if idx == -1 {
		t.mu.Unlock()
		return
	}
	rec := &t.slots[idx]
	rec.State = StateIdle
	if immediate {
		rec.NextRead = now
	} else {
		backoff := t.connection
		counter := &rec.connectionCounter
		if fam == FamilyHeraldNotFound {
			backoff = t.heraldNotFound
			counter = &rec.heraldNotFoundCounter
		}
		delay, next := backoff.Next(*counter)
		*counter = next
		rec.NextRead = now + delay
	}
	h := delegate.Handle(idx)
	t.mu.Unlock()

	if t.notifier != nil {
		t.notifier.NotifyUpdate(h, pseudo, StateIdle.String())
	}
}

// DueForRead returns the pseudo-addresses of every IDLE record whose
// NextRead has arrived, for the connection/read task to enqueue.
func (t *Table) DueForRead(now uint32) []address.Pseudo {
	t.mu.Lock()
	defer t.mu.Unlock()
	var due []address.Pseudo
	for i := range t.slots {
		if t.slots[i].used && t.slots[i].ShouldRead(now) {
			due = append(due, t.slots[i].Pseudo)
		}
	}
	return due
}

// Sweep evicts every expired slot, freeing it for reuse and notifying
// DidDelete exactly once per evicted slot.
func (t *Table) Sweep(now uint32) {
	t.mu.Lock()
	var deleted []struct {
		h delegate.Handle
		p address.Pseudo
	}
	for i := range t.slots {
		if t.slots[i].used && t.slots[i].Expired(now) {
			deleted = append(deleted, struct {
				h delegate.Handle
				p address.Pseudo
			}{delegate.Handle(i), t.slots[i].Pseudo})
			t.slots[i] = Record{}
		}
	}
	t.mu.Unlock()

	if t.notifier != nil {
		for _, d := range deleted {
			t.notifier.NotifyDelete(d.h, d.p)
		}
	}
}

// Len reports how many slots are currently in use.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for i := range t.slots {
		if t.slots[i].used {
			n++
		}
	}
	return n
}

// Capacity reports the table's fixed size.
func (t *Table) Capacity() int { return len(t.slots) }

// Get returns a copy of the record for pseudo, if tracked.
func (t *Table) Get(pseudo address.Pseudo) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.find(pseudo)
	if idx == -1 {
		return Record{}, false
	}
	return t.slots[idx], true
}
