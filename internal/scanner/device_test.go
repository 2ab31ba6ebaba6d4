package scanner

import (
	"testing"

	"github.com/gvalkov/golang-evdev"

	"github.com/ClusterCockpit/scanhub-edge/internal/keyevent"
)

func codeFor(t *testing.T, name string) uint16 {
	t.Helper()
	for code, n := range evdev.KEY {
		if n == name {
			return uint16(code)
		}
	}
	t.Fatalf("no evdev code for %q", name)
	return 0
}

func TestTranslateKeyDown(t *testing.T) {
	ev := evdev.InputEvent{
		Type:  evdev.EV_KEY,
		Code:  codeFor(t, "KEY_A"),
		Value: 1,
	}
	kev, ok := translate(ev)
	if !ok {
		t.Fatal("expected translate to accept EV_KEY event")
	}
	if kev.Symbol != keyevent.SymA || kev.State != keyevent.Down {
		t.Fatalf("got %+v", kev)
	}
}

func TestTranslateKeyUp(t *testing.T) {
	ev := evdev.InputEvent{
		Type:  evdev.EV_KEY,
		Code:  codeFor(t, "KEY_ENTER"),
		Value: 0,
	}
	kev, ok := translate(ev)
	if !ok || kev.State != keyevent.Up || kev.Symbol != keyevent.SymEnter {
		t.Fatalf("got %+v, ok=%v", kev, ok)
	}
}

func TestTranslateNonKeyEventIgnored(t *testing.T) {
	ev := evdev.InputEvent{Type: evdev.EV_SYN}
	if _, ok := translate(ev); ok {
		t.Fatal("non-EV_KEY events must be ignored")
	}
}

func TestTranslateUnmappedCodeYieldsUnknownSymbol(t *testing.T) {
	ev := evdev.InputEvent{
		Type:  evdev.EV_KEY,
		Code:  65000, // not a valid evdev keycode, so evdev.KEY[...] is ""
		Value: 1,
	}
	kev, ok := translate(ev)
	if !ok {
		t.Fatal("expected translate to still accept the event")
	}
	if kev.Symbol != keyevent.SymUnknown {
		t.Fatalf("got symbol %v, want SymUnknown", kev.Symbol)
	}
}

func TestScannerNameIsBasename(t *testing.T) {
	if got := scannerName("/dev/input/by-id/usb-Symbol-event-kbd"); got != "usb-Symbol-event-kbd" {
		t.Fatalf("got %q", got)
	}
	if got := scannerName("event3"); got != "event3" {
		t.Fatalf("got %q", got)
	}
}
