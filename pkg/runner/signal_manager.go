package runner

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// SignalManager ties a run's context to SIGINT and SIGTERM so that an
// interrupted CLI run stops at the next node boundary.
type SignalManager struct {
	ctx    context.Context
	cancel context.CancelFunc

	sigs        chan os.Signal
	done        chan struct{}
	interrupted atomic.Bool
	stopOnce    sync.Once
}

// NewSignalManager starts listening for signals until Stop is called.
func NewSignalManager(parent context.Context) *SignalManager {
	ctx, cancel := context.WithCancel(parent)
	sm := &SignalManager{
		ctx:    ctx,
		cancel: cancel,
		sigs:   make(chan os.Signal, 1),
		done:   make(chan struct{}),
	}
	signal.Notify(sm.sigs, os.Interrupt, syscall.SIGTERM)
	go sm.watch()
	return sm
}

func (sm *SignalManager) watch() {
	defer close(sm.done)
	select {
	case <-sm.sigs:
		sm.interrupted.Store(true)
		sm.cancel()
	case <-sm.ctx.Done():
	}
}

// Context is cancelled by the first signal, by the parent, or by Stop.
func (sm *SignalManager) Context() context.Context {
	return sm.ctx
}

// Interrupted reports whether a signal, rather than the parent or Stop,
// cancelled the context.
func (sm *SignalManager) Interrupted() bool {
	return sm.interrupted.Load()
}

// Stop releases the signal listener. It is safe to call more than once.
func (sm *SignalManager) Stop() {
	sm.stopOnce.Do(func() {
		signal.Stop(sm.sigs)
		sm.cancel()
		<-sm.done
	})
}
