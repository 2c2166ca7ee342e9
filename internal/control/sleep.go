package control

import (
	"time"

	"github.com/AZAnthonyN/GeminiTL/internal/services"
)

// Sleep waits for the given duration unless the token fires first, in which
// case it returns services.ErrCancelled immediately. Non-positive durations
// still check the token once.
func Sleep(d time.Duration, token *Token) error {
	if token.Cancelled() {
		return services.ErrCancelled
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-token.Done():
		return services.ErrCancelled
	}
}
