package scanner

import "github.com/ClusterCockpit/scanhub-edge/internal/keyevent"

// Assembler is the single-producer state machine that turns a stream of
// KeyEvents from one device into completed barcode strings. It is not
// safe for concurrent use — spec.md guarantees exactly one goroutine (the
// device's Scanner task) ever drives it.
type Assembler struct {
	buffer string
	shift  bool
}

// NewAssembler returns an Assembler with empty state.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Feed applies one key event to the state machine. It returns the
// completed barcode and ok=true exactly when ev is an ENTER with a
// non-empty buffer; ENTER on an empty buffer is a no-op. Only Down events
// drive the machine — Up and Hold are ignored outright, mirroring the
// "only down events are semantically meaningful" rule in spec.md §3.
func (a *Assembler) Feed(ev keyevent.Event) (barcode string, ok bool) {
	if ev.State != keyevent.Down {
		return "", false
	}

	switch {
	case keyevent.IsShift(ev.Symbol):
		a.shift = true
		return "", false

	case ev.Symbol == keyevent.SymEnter:
		if a.buffer == "" {
			return "", false
		}
		barcode = a.buffer
		a.reset()
		return barcode, true

	default:
		// Unmapped symbols leave shift untouched (spec.md §4.1): only a
		// successful decode consumes the pending shift.
		if ch, decoded := keyevent.Decode(ev.Symbol, a.shift); decoded {
			a.buffer += string(ch)
			a.shift = false
		}
		return "", false
	}
}

// Reset clears the buffer and shift flag without emitting a barcode, so a
// partial barcode is dropped rather than emitted. The Scanner task does
// not call it: each device session starts with a fresh Assembler.
func (a *Assembler) Reset() {
	a.reset()
}

func (a *Assembler) reset() {
	a.buffer = ""
	a.shift = false
}
