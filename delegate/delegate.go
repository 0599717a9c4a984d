// Package delegate defines the event dispatch consumed by the device
// table: did_create/did_update/did_delete/did_read. Per §9 ("Cyclic
// device/delegate references... → replace with an index-based handle"),
// callbacks receive an opaque Handle plus the peer's address rather than a
// pointer back into the table, so neither side holds a long-lived
// reference to the other.
package delegate

import "github.com/herald-go/herald/address"

// Handle identifies a device-table slot without exposing a pointer into
// the table itself.
type Handle int

// Delegate receives device-table lifecycle events. A nil field is treated
// as "no listener" for that event; Delegate is deliberately a struct of
// function fields rather than an interface with four methods, so callers
// can wire only the events they care about — matching the teacher's own
// preference for callback-field structs over wide interfaces.
type Delegate struct {
	DidCreate func(h Handle, pseudo address.Pseudo)
	DidUpdate func(h Handle, pseudo address.Pseudo, state string)
	DidDelete func(h Handle, pseudo address.Pseudo)
	DidRead   func(h Handle, pseudo address.Pseudo, payload []byte)
}

func (d Delegate) create(h Handle, pseudo address.Pseudo) {
	if d.DidCreate != nil {
		d.DidCreate(h, pseudo)
	}
}

func (d Delegate) update(h Handle, pseudo address.Pseudo, state string) {
	if d.DidUpdate != nil {
		d.DidUpdate(h, pseudo, state)
	}
}

func (d Delegate) delete(h Handle, pseudo address.Pseudo) {
	if d.DidDelete != nil {
		d.DidDelete(h, pseudo)
	}
}

func (d Delegate) read(h Handle, pseudo address.Pseudo, payload []byte) {
	if d.DidRead != nil {
		d.DidRead(h, pseudo, payload)
	}
}

// Notifier is the subset of Delegate the device table calls through; it is
// an exported interface over the dispatch methods so other packages can
// invoke notifications without reaching into unexported fields.
type Notifier interface {
	NotifyCreate(h Handle, pseudo address.Pseudo)
	NotifyUpdate(h Handle, pseudo address.Pseudo, state string)
	NotifyDelete(h Handle, pseudo address.Pseudo)
	NotifyRead(h Handle, pseudo address.Pseudo, payload []byte)
}

// NotifyCreate implements Notifier.
func (d Delegate) NotifyCreate(h Handle, pseudo address.Pseudo) { d.create(h, pseudo) }

// NotifyUpdate implements Notifier.
func (d Delegate) NotifyUpdate(h Handle, pseudo address.Pseudo, state string) {
	d.update(h, pseudo, state)
}

// NotifyDelete implements Notifier.
func (d Delegate) NotifyDelete(h Handle, pseudo address.Pseudo) { d.delete(h, pseudo) }

// NotifyRead implements Notifier.
func (d Delegate) NotifyRead(h Handle, pseudo address.Pseudo, payload []byte) {
	d.read(h, pseudo, payload)
}
