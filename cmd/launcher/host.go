package main

import "sync"

// headlessHost stands in for the windowing toolkit when the launcher runs
// without a UI. The first exit request wins.
type headlessHost struct {
	once sync.Once
	exit chan int
}

func newHeadlessHost() *headlessHost {
	return &headlessHost{exit: make(chan int, 1)}
}

func (h *headlessHost) RequestExit(code int) {
	h.once.Do(func() { h.exit <- code })
}

func (h *headlessHost) Exit() <-chan int { return h.exit }
