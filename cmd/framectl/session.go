package main

import (
	"fmt"
	"os"

	"github.com/mos-project/mos-core/cmd/framectl/logger"
	"github.com/mos-project/mos-core/mm/frame"
)

// observers fans one event out to several observers.
type observers []frame.Observer

func (o observers) Observe(e frame.Event) {
	for _, obs := range o {
		obs.Observe(e)
	}
}

// commandObserver logs every event through the global logger and, with
// --verbose, echoes splits and merges to stdout.
func commandObserver() frame.Observer {
	obs := observers{frame.NewLogObserver(logger.L)}
	if verbose && !quiet && !jsonOut {
		obs = append(obs, frame.ObserverFunc(printEvent))
	}
	return obs
}

func printEvent(e frame.Event) {
	fmt.Fprintln(os.Stdout, paint(traceStyle, fmt.Sprintf("    %-5s 0x%x  %s  L%d",
		e.Kind, uint64(e.Addr), formatSize(e.Size), e.Level)))
}

// newAllocator creates an allocator over [0, g.Size) wired to the command
// observer.
func newAllocator(g geometry) (*frame.BuddyAllocator, error) {
	fa, err := frame.Init(0, g.Size, g.config(commandObserver()))
	if err != nil {
		return nil, err
	}
	logger.Debug("allocator ready",
		"size", fa.Size(),
		"page_size", fa.PageSize(),
		"max_level", int(fa.MaxLevel()),
	)
	return fa, nil
}
