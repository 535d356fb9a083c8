package session

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// Interrupt bridges the host's interactive cancel signal to the transfer engine.
// The flag holds the number of the last signal delivered, 0 when none.
type Interrupt struct {
	flag atomic.Int32

	mu   sync.Mutex
	ch   chan os.Signal
	done chan struct{}
}

// NewInterrupt creates a bridge with no signal handling installed.
func NewInterrupt() *Interrupt {
	return &Interrupt{}
}

// Install starts recording os.Interrupt deliveries in the flag. Calling it again
// while installed does nothing.
func (i *Interrupt) Install() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.ch != nil {
		return
	}
	i.ch = make(chan os.Signal, 1)
	i.done = make(chan struct{})
	signal.Notify(i.ch, os.Interrupt)
	go i.loop(i.ch, i.done)
}

func (i *Interrupt) loop(ch <-chan os.Signal, done <-chan struct{}) {
	for {
		select {
		case sig := <-ch:
			i.flag.Store(signum(sig))
		case <-done:
			return
		}
	}
}

// Restore stops recording signals and gives the disposition back to whatever the
// process had before Install.
func (i *Interrupt) Restore() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.ch == nil {
		return
	}
	signal.Stop(i.ch)
	close(i.done)
	i.ch, i.done = nil, nil
}

// Installed reports whether signal delivery is being recorded.
func (i *Interrupt) Installed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.ch != nil
}

// Raise sets the flag as if signal sig had been delivered.
func (i *Interrupt) Raise(sig int32) {
	i.flag.Store(sig)
}

// Clear resets the flag.
func (i *Interrupt) Clear() {
	i.flag.Store(0)
}

// Value returns the flag.
func (i *Interrupt) Value() int32 {
	return i.flag.Load()
}

// Progress is the engine progress callback: a non-zero flag aborts the transfer.
func (i *Interrupt) Progress(_, _, _, _ int64) int {
	return int(i.flag.Load())
}

func signum(sig os.Signal) int32 {
	if s, ok := sig.(syscall.Signal); ok {
		return int32(s)
	}
	return int32(syscall.SIGINT)
}
