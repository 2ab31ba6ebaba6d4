package ports

import "github.com/ClusterCockpit/scanhub-edge/pkg/log"

// ScanEvent is delivered to observers after each spool append, for a UI
// live counter per spec.md §4 collaborator interfaces.
type ScanEvent struct {
	EntryNo  int32
	Barcode  string
}

// ScanObserver receives ScanEvents. Implementations must not block or
// panic — Hub recovers panics and logs them so a misbehaving observer can
// never corrupt Assembler state or the EntryNo sequence (spec.md §4).
type ScanObserver interface {
	OnScan(ScanEvent)
}

// ScanObserverFunc adapts a function to a ScanObserver.
type ScanObserverFunc func(ScanEvent)

func (f ScanObserverFunc) OnScan(ev ScanEvent) { f(ev) }

// ScanHub fans a ScanEvent out to any number of observers without ever
// blocking the Scanner task. Each observer gets its own bounded,
// drop-on-full channel and goroutine, matching the "never blocks on
// send" rule in spec.md §9 DESIGN NOTES.
type ScanHub struct {
	subscribers []chan ScanEvent
}

// Subscribe registers fn to be called for every future scan, with a
// bounded backlog; events are dropped if fn falls behind.
func (h *ScanHub) Subscribe(fn ScanObserver) {
	ch := make(chan ScanEvent, 32)
	h.subscribers = append(h.subscribers, ch)
	go func() {
		for ev := range ch {
			safeOnScan(fn, ev)
		}
	}()
}

// Publish delivers ev to every subscriber, dropping it for any subscriber
// whose channel is currently full.
func (h *ScanHub) Publish(ev ScanEvent) {
	for _, ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			log.Warn("scan observer queue full, dropping event")
		}
	}
}

func safeOnScan(fn ScanObserver, ev ScanEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("scan observer panicked: %v", r)
		}
	}()
	fn.OnScan(ev)
}
