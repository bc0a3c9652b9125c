package extractor

import (
	"context"
	"time"
)

const readyComplete = "complete"

// waitReady returns at once when the document is complete. Otherwise it
// races the load event against the load timeout; whichever comes first wins.
func (e *Extractor) waitReady(ctx context.Context) error {
	state, err := e.page.ReadyState(ctx)
	if err == nil && state == readyComplete {
		return nil
	}
	if err != nil {
		e.logger.Debug("readyState unavailable", "error", err)
	}

	loadCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	loaded := make(chan error, 1)
	go func() { loaded <- e.page.WaitLoad(loadCtx) }()

	timer := time.NewTimer(e.cfg.LoadTimeout)
	defer timer.Stop()

	for {
		select {
		case err := <-loaded:
			if err == nil {
				e.logger.Debug("page load event fired")
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Fall back to the timer alone.
			e.logger.Debug("load wait failed", "error", err)
			loaded = nil
		case <-timer.C:
			e.logger.Debug("page load timed out, continuing", "timeout", e.cfg.LoadTimeout)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
