package game

import "time"

// StartTickers launches the background ticker that drives round timeouts,
// round-to-round delays and pending-report expiry.
func (e *Engine) StartTickers() {
	engineTicker := time.NewTicker(time.Second)
	go func() {
		for now := range engineTicker.C {
			e.Tick(now)
		}
	}()
}
