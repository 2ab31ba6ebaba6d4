package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gvalkov/golang-evdev"

	"github.com/ClusterCockpit/scanhub-edge/internal/barcode"
	"github.com/ClusterCockpit/scanhub-edge/internal/ctxsleep"
	"github.com/ClusterCockpit/scanhub-edge/internal/keyevent"
	"github.com/ClusterCockpit/scanhub-edge/internal/metrics"
	"github.com/ClusterCockpit/scanhub-edge/internal/model"
	"github.com/ClusterCockpit/scanhub-edge/internal/ports"
	"github.com/ClusterCockpit/scanhub-edge/internal/spool"
	"github.com/ClusterCockpit/scanhub-edge/pkg/log"
)

// openBackoff is the pause after a device open or read failure before the
// Assembler restarts with empty state, per spec.md §4.2.
const openBackoff = 2 * time.Second

// keyNames maps the evdev key-name strings (as returned by evdev.KEY) to
// the Symbol enum internal/keyevent operates on. Grounded on
// other_examples/5c07b158_kreayshunist-usbscanner__main.go.go's
// processCharacter, generalized from its ad-hoc string switch into a table
// covering every symbol spec.md §3 lists.
var keyNames = map[string]keyevent.Symbol{
	"KEY_0": keyevent.Sym0, "KEY_1": keyevent.Sym1, "KEY_2": keyevent.Sym2,
	"KEY_3": keyevent.Sym3, "KEY_4": keyevent.Sym4, "KEY_5": keyevent.Sym5,
	"KEY_6": keyevent.Sym6, "KEY_7": keyevent.Sym7, "KEY_8": keyevent.Sym8,
	"KEY_9": keyevent.Sym9,
	"KEY_A": keyevent.SymA, "KEY_B": keyevent.SymB, "KEY_C": keyevent.SymC,
	"KEY_D": keyevent.SymD, "KEY_E": keyevent.SymE, "KEY_F": keyevent.SymF,
	"KEY_G": keyevent.SymG, "KEY_H": keyevent.SymH, "KEY_I": keyevent.SymI,
	"KEY_J": keyevent.SymJ, "KEY_K": keyevent.SymK, "KEY_L": keyevent.SymL,
	"KEY_M": keyevent.SymM, "KEY_N": keyevent.SymN, "KEY_O": keyevent.SymO,
	"KEY_P": keyevent.SymP, "KEY_Q": keyevent.SymQ, "KEY_R": keyevent.SymR,
	"KEY_S": keyevent.SymS, "KEY_T": keyevent.SymT, "KEY_U": keyevent.SymU,
	"KEY_V": keyevent.SymV, "KEY_W": keyevent.SymW, "KEY_X": keyevent.SymX,
	"KEY_Y": keyevent.SymY, "KEY_Z": keyevent.SymZ,
	"KEY_LEFTSHIFT":  keyevent.SymShiftLeft,
	"KEY_RIGHTSHIFT": keyevent.SymShiftRight,
	"KEY_ENTER":      keyevent.SymEnter,
	"KEY_KPENTER":    keyevent.SymEnter,
	"KEY_MINUS":      keyevent.SymMinus,
	"KEY_EQUAL":      keyevent.SymEqual,
	"KEY_SPACE":      keyevent.SymSpace,
	"KEY_SLASH":      keyevent.SymSlash,
	"KEY_DOT":        keyevent.SymDot,
}

// translate maps an evdev key-down/up event onto a keyevent.Event. Symbols
// not present in keyNames become SymUnknown, which keyevent.Decode rejects
// without touching Assembler state.
func translate(ev evdev.InputEvent) (keyevent.Event, bool) {
	if ev.Type != evdev.EV_KEY {
		return keyevent.Event{}, false
	}

	var state keyevent.State
	switch ev.Value {
	case 0:
		state = keyevent.Up
	case 1:
		state = keyevent.Down
	case 2:
		state = keyevent.Hold
	default:
		return keyevent.Event{}, false
	}

	name := evdev.KEY[int(ev.Code)]
	sym, ok := keyNames[name]
	if !ok {
		sym = keyevent.SymUnknown
	}
	return keyevent.Event{Symbol: sym, State: state}, true
}

// Device owns the evdev handle, the Assembler, the EntryNo sequence and
// the spool writer for a single scanner, and runs the Scanner task
// described in spec.md §5: blocking reads on the input device,
// single-threaded over the Assembler, producing to the spool.
type Device struct {
	Path     string
	DeviceID string
	UserID   string

	Spool   *spool.Writer
	Entries *EntrySequence
	Audio   ports.AudioPort
	Buzzer  ports.BuzzerPort
	Hub     *ports.ScanHub

	Now func() time.Time
}

// Run blocks until ctx is cancelled, opening and re-opening d.Path as
// needed. Every open/read failure triggers a 2-second interruptible
// backoff and a full Assembler reset, per spec.md §4.2; ctx cancellation
// during that backoff returns immediately.
func (d *Device) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := d.runOnce(ctx); err != nil {
			log.Warnf("scanner device %s: %v, retrying in %s", d.Path, err, openBackoff)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !ctxsleep.Sleep(ctx, openBackoff) {
			return ctx.Err()
		}
	}
}

// runOnce opens the device, announces readiness, and reads events until
// the device errors out or ctx is cancelled. A non-nil return always
// means the caller should back off and retry; a nil return only happens
// on clean cancellation.
func (d *Device) runOnce(ctx context.Context) error {
	dev, err := evdev.Open(d.Path)
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	defer dev.Release()

	if err := dev.Grab(); err != nil {
		log.Warnf("scanner device %s: grab failed: %v", d.Path, err)
	}

	asm := NewAssembler()
	d.Audio.Enqueue("device_ready")
	log.Infof("scanner device %s ready", d.Path)

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		dev.Release()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			<-done
			return nil
		default:
		}

		events, err := dev.Read()
		if err != nil {
			return fmt.Errorf("read device: %w", err)
		}

		for _, raw := range events {
			kev, ok := translate(raw)
			if !ok {
				continue
			}
			barcodeText, emitted := asm.Feed(kev)
			if !emitted {
				continue
			}
			if err := d.handleBarcode(barcodeText); err != nil {
				log.Errorf("scanner device %s: %v", d.Path, err)
			}
		}
	}
}

// handleBarcode parses and persists one completed barcode: allocate the
// next EntryNo, build the record, append it to the spool, then publish it
// to any observers. Order matters: EntryNo persistence happens inside
// Entries.Next before the spool append, per the DESIGN.md decision on
// spec.md §9's open question.
func (d *Device) handleBarcode(raw string) error {
	entryNo, err := d.Entries.Next()
	if err != nil {
		return fmt.Errorf("allocate entry no: %w", err)
	}

	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	ts := now()

	rec := &model.ScanRecord{
		DeviceID:    d.DeviceID,
		ScannerName: scannerName(d.Path),
		EntryNo:     entryNo,
		ScanDate:    ts.Format("2006-01-02"),
		ScanTime:    ts.Format("15:04:05"),
	}
	if d.UserID != "" {
		rec.UserID = &d.UserID
	}

	barcode.Parse(raw).ApplyTo(rec)

	if err := d.Spool.Append(rec); err != nil {
		return fmt.Errorf("spool append: %w", err)
	}
	metrics.ScansTotal.Inc()
	if size, err := d.Spool.Size(); err == nil {
		metrics.SpoolBytes.Set(float64(size))
	}

	d.Audio.Enqueue("scan_ok")
	d.Buzzer.Buzz()
	if d.Hub != nil {
		d.Hub.Publish(ports.ScanEvent{EntryNo: entryNo, Barcode: rec.Barcode})
	}
	return nil
}

// scannerName derives ScannerName from the device path's basename, per
// spec.md §3 ("resolved device basename or mapped alias").
func scannerName(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}
