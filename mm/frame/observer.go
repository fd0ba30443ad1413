package frame

import (
	"context"
	"log/slog"
	"os"
)

// Runtime trace toggle, controlled by the MOS_LOG_FRAMES env var.
// Only consulted when Config.Observer is nil.
var logFrames = os.Getenv("MOS_LOG_FRAMES") != ""

// EventKind identifies an allocator state transition.
type EventKind uint8

const (
	EventInit  EventKind = iota + 1 // region installed
	EventSplit                      // block halved; Addr/Size/Level describe the published buddy
	EventMerge                      // two buddies combined; Addr/Size/Level describe the result
	EventAlloc                      // block handed out
	EventFree                       // block released (before coalescing completes)
	EventLeak                       // Cleanup found outstanding allocations
)

func (k EventKind) String() string {
	switch k {
	case EventInit:
		return "init"
	case EventSplit:
		return "split"
	case EventMerge:
		return "merge"
	case EventAlloc:
		return "alloc"
	case EventFree:
		return "free"
	case EventLeak:
		return "leak"
	default:
		return "unknown"
	}
}

// Event describes one state transition.
type Event struct {
	Kind        EventKind
	Addr        Addr
	Size        uint64
	Level       Level
	Outstanding int // allocated blocks after the transition
}

// Observer receives allocator events. Observers must not call back into the
// allocator that emitted the event.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) { f(e) }

// NewLogObserver returns an Observer that writes every event to l.
// Leak events are logged at Warn, everything else at Debug.
func NewLogObserver(l *slog.Logger) Observer {
	return &logObserver{l: l}
}

type logObserver struct {
	l *slog.Logger
}

func (o *logObserver) Observe(e Event) {
	level := slog.LevelDebug
	msg := "frame " + e.Kind.String()
	if e.Kind == EventLeak {
		level = slog.LevelWarn
		msg = "frame allocations unfreed"
	}
	o.l.Log(context.Background(), level, msg,
		slog.String("addr", hexAddr(e.Addr)),
		slog.Uint64("size", e.Size),
		slog.Int("order", int(e.Level)),
		slog.Int("outstanding", e.Outstanding),
	)
}

// envObserver returns the stderr tracer used when MOS_LOG_FRAMES is set.
func envObserver() Observer {
	if !logFrames {
		return nil
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewLogObserver(slog.New(h))
}
