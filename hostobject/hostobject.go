// Package hostobject implements the LibData protocol: opaque,
// reference-counted host objects that script values can carry without the
// VM ever inspecting their payload directly.
package hostobject

// CleanupFunc releases whatever a LibData's Payload holds once its
// refcount reaches zero. It must not panic.
type CleanupFunc func(payload any)

// LibData is a reference-counted host object. The VM never interprets
// Payload; it only inspects Tag to keep object kinds from being confused
// (e.g. an array passed where a string was expected) and drives the
// refcount via IncRef/DecRef.
type LibData struct {
	// Tag identifies the object kind, e.g. "LIBARRAY.0", "LIBSTR.STR",
	// "LIBSTR.WORKSHOP", "SYS.FILE". Native callbacks type-check by
	// comparing Tag before unwrapping Payload.
	Tag     string
	Payload any

	cleanup  CleanupFunc
	refcount int
}

// New constructs a LibData with an initial refcount of one, representing
// the reference the caller is about to hand off (onto the operand stack
// or into a frame slot).
func New(tag string, payload any, cleanup CleanupFunc) *LibData {
	return &LibData{Tag: tag, Payload: payload, cleanup: cleanup, refcount: 1}
}

// RefCount reports the current reference count, chiefly for tests
// asserting the refcount-correctness invariant.
func (d *LibData) RefCount() int {
	return d.refcount
}

// IncRef is invoked by the VM on every copy of a LibData value onto the
// operand stack or into a frame slot.
func (d *LibData) IncRef() {
	d.refcount++
}

// DecRef is invoked by the VM on every overwrite, pop, or frame pop of a
// slot holding a LibData value. When the count reaches zero the cleanup
// hook runs exactly once.
func (d *LibData) DecRef() {
	d.refcount--
	if d.refcount <= 0 && d.cleanup != nil {
		cleanup := d.cleanup
		d.cleanup = nil
		cleanup(d.Payload)
	}
}
