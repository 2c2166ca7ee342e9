package control

import (
	"sync"

	"github.com/AZAnthonyN/GeminiTL/internal/services"
)

// Gate is a pause gate. Components call Wait at suspension points; while the
// gate is paused Wait blocks until Resume or cancellation. Cancellation always
// wins over pause: Wait re-checks the token both before and after blocking.
type Gate struct {
	mu     sync.Mutex
	paused bool
	resume chan struct{}
}

// NewGate returns an open (running) gate.
func NewGate() *Gate {
	return &Gate{resume: make(chan struct{})}
}

// Pause closes the gate. Idempotent.
func (g *Gate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		g.paused = true
		g.resume = make(chan struct{})
	}
}

// Resume opens the gate and releases every goroutine blocked in Wait. Idempotent.
func (g *Gate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		g.paused = false
		close(g.resume)
	}
}

// Paused reports whether the gate is currently closed.
func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// Wait blocks while the gate is paused. It returns services.ErrCancelled when
// the token fires, whether that happens before, during, or after the pause.
func (g *Gate) Wait(token *Token) error {
	if g == nil {
		if token.Cancelled() {
			return services.ErrCancelled
		}
		return nil
	}
	if token.Cancelled() {
		return services.ErrCancelled
	}
	for {
		g.mu.Lock()
		paused := g.paused
		resume := g.resume
		g.mu.Unlock()
		if !paused {
			if token.Cancelled() {
				return services.ErrCancelled
			}
			return nil
		}
		select {
		case <-resume:
		case <-token.Done():
			return services.ErrCancelled
		}
	}
}
