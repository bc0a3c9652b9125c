package extractor

import (
	"context"
)

// scroll moves toward the document bottom up to MaxScrolls times, stopping
// early once the viewport is within BottomThreshold of the end. It then
// waits SettleDelay for late images and returns to the top.
//
// Page errors end the scroll early but do not fail the run.
func (e *Extractor) scroll(ctx context.Context) error {
	for i := 1; ; i++ {
		m, err := e.page.ScrollMetrics(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Warn("read scroll metrics failed", "error", err)
			break
		}
		if err := e.page.ScrollTo(ctx, m.Height); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Warn("scroll failed", "error", err)
			break
		}
		e.logger.Debug("scrolled", "step", i, "offset", m.Offset, "height", m.Height)

		if m.AtBottom(e.cfg.BottomThreshold) || i >= e.cfg.MaxScrolls {
			break
		}
		if err := sleep(ctx, e.cfg.ScrollDelay); err != nil {
			return err
		}
	}

	if err := sleep(ctx, e.cfg.SettleDelay); err != nil {
		return err
	}
	if err := e.page.ScrollTo(ctx, 0); err != nil && ctx.Err() == nil {
		e.logger.Warn("scroll to top failed", "error", err)
	}
	return ctx.Err()
}
