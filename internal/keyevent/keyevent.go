// Package keyevent turns a keyboard-emulating scanner's raw key symbols
// into characters. It has no notion of a device or a wire protocol — that
// lives in internal/scanner — so it stays a small, pure, deterministic
// mapping that is trivial to unit test.
package keyevent

// Symbol enumerates the keys a barcode scanner's HID keyboard emulation
// can send. Only the subset spec.md names is modeled: digits, A-Z, SHIFT,
// ENTER and the punctuation a barcode/segment grammar needs.
type Symbol int

const (
	SymUnknown Symbol = iota
	Sym0
	Sym1
	Sym2
	Sym3
	Sym4
	Sym5
	Sym6
	Sym7
	Sym8
	Sym9
	SymA
	SymB
	SymC
	SymD
	SymE
	SymF
	SymG
	SymH
	SymI
	SymJ
	SymK
	SymL
	SymM
	SymN
	SymO
	SymP
	SymQ
	SymR
	SymS
	SymT
	SymU
	SymV
	SymW
	SymX
	SymY
	SymZ
	SymShiftLeft
	SymShiftRight
	SymEnter
	SymMinus
	SymEqual
	SymSpace
	SymSlash
	SymDot
)

// State is the key transition carried by a KeyEvent. Only Down events are
// semantically meaningful to the Assembler.
type State int

const (
	Up State = iota
	Down
	Hold
)

// Event is a single (symbol, state) observation read off the device.
type Event struct {
	Symbol Symbol
	State  State
}

var letters = map[Symbol]rune{
	SymA: 'a', SymB: 'b', SymC: 'c', SymD: 'd', SymE: 'e', SymF: 'f',
	SymG: 'g', SymH: 'h', SymI: 'i', SymJ: 'j', SymK: 'k', SymL: 'l',
	SymM: 'm', SymN: 'n', SymO: 'o', SymP: 'p', SymQ: 'q', SymR: 'r',
	SymS: 's', SymT: 't', SymU: 'u', SymV: 'v', SymW: 'w', SymX: 'x',
	SymY: 'y', SymZ: 'z',
}

var digitsAndPunctuation = map[Symbol]rune{
	Sym0: '0', Sym1: '1', Sym2: '2', Sym3: '3', Sym4: '4',
	Sym5: '5', Sym6: '6', Sym7: '7', Sym8: '8', Sym9: '9',
	SymMinus: '-', SymEqual: '=', SymSpace: ' ', SymSlash: '/', SymDot: '.',
}

// IsShift reports whether sym is one of the SHIFT_* symbols.
func IsShift(sym Symbol) bool {
	return sym == SymShiftLeft || sym == SymShiftRight
}

// Decode maps (symbol, shift) to the character a scanner would have typed.
// Letters respect shift (upper/lower); digits and punctuation ignore it —
// there are no shifted-digit variants on a scanner keyboard. Unmapped
// symbols (including SHIFT itself, ENTER, and anything not recognized)
// return ok=false and decode does not consume or reset any caller state.
func Decode(sym Symbol, shift bool) (ch rune, ok bool) {
	if r, found := letters[sym]; found {
		if shift {
			return r - ('a' - 'A'), true
		}
		return r, true
	}
	if r, found := digitsAndPunctuation[sym]; found {
		return r, true
	}
	return 0, false
}
