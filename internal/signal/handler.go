// Package signal converts SIGINT and SIGTERM into context cancellation
// so the serve and load commands can drain in-flight work (open chat
// requests, a running import) before exiting. A second signal skips the
// drain and exits immediately.
package signal

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
)

// ForcedExitCode is the process status when a second signal aborts the
// drain. 130 is the conventional status for death by SIGINT.
const ForcedExitCode = 130

// Handler cancels its context on the first SIGINT or SIGTERM and
// force-exits the process on the second.
type Handler struct {
	ctx    context.Context //nolint:containedctx // the handler owns this context's lifecycle
	cancel context.CancelFunc

	// logger is resolved at signal time, not construction time, because
	// the CLI logger does not exist until flag parsing has run. nil
	// means no logging.
	logger func() zerolog.Logger

	stopOnce sync.Once
	sigCh    chan os.Signal
	done     chan struct{}

	exit func(int)
}

// NewHandler starts listening for SIGINT and SIGTERM. logger may be
// nil.
func NewHandler(parent context.Context, logger func() zerolog.Logger) *Handler {
	ctx, cancel := context.WithCancel(parent)
	h := &Handler{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		// Buffered so a signal delivered mid-drain is not dropped.
		sigCh: make(chan os.Signal, 2),
		done:  make(chan struct{}),
		exit:  os.Exit,
	}

	signal.Notify(h.sigCh, syscall.SIGINT, syscall.SIGTERM)
	go h.listen()

	return h
}

// Context is canceled when the first shutdown signal arrives. Pass it
// to everything that should stop on Ctrl+C.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Stop detaches the handler from the signal set and cancels the
// context. Safe to call more than once.
func (h *Handler) Stop() {
	h.stopOnce.Do(func() {
		signal.Stop(h.sigCh)
		close(h.done)
		h.cancel()
	})
}

func (h *Handler) log() zerolog.Logger {
	if h.logger == nil {
		return zerolog.Nop()
	}
	return h.logger()
}

func (h *Handler) listen() {
	select {
	case <-h.done:
		return
	case sig := <-h.sigCh:
		logger := h.log()
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, draining in-flight work")
		h.cancel()
	}

	select {
	case <-h.done:
	case sig := <-h.sigCh:
		logger := h.log()
		logger.Warn().
			Str("signal", sig.String()).
			Msg("second signal, exiting without draining")
		h.exit(ForcedExitCode)
	}
}
