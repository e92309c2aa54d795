package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalHandler turns SIGINT and SIGTERM into cancellation. When onInterrupt
// is set and reports true for a SIGINT, the signal was consumed (a reply was
// stopped) and the context stays alive for the next one.
type SignalHandler struct {
	ctx         context.Context
	cancel      context.CancelFunc
	sigChan     chan os.Signal
	onInterrupt func() bool
	out         io.Writer
	wg          sync.WaitGroup
}

func NewSignalHandler(ctx context.Context, out io.Writer, onInterrupt func() bool) *SignalHandler {
	ctx, cancel := context.WithCancel(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	return &SignalHandler{
		ctx:         ctx,
		cancel:      cancel,
		sigChan:     sigChan,
		onInterrupt: onInterrupt,
		out:         out,
	}
}

func (s *SignalHandler) Context() context.Context {
	return s.ctx
}

func (s *SignalHandler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.ctx.Done():
				return
			case sig := <-s.sigChan:
				s.handle(sig)
			}
		}
	}()
}

func (s *SignalHandler) handle(sig os.Signal) {
	if sig == os.Interrupt && s.onInterrupt != nil && s.onInterrupt() {
		fmt.Fprintln(s.out, "\nStopped. Press Ctrl-C again to exit.")
		return
	}
	fmt.Fprintln(s.out, "\nReceived shutdown signal...")
	s.cancel()
}

func (s *SignalHandler) Wait() {
	s.wg.Wait()
}

func (s *SignalHandler) Stop() {
	signal.Stop(s.sigChan)
	s.cancel()
}
