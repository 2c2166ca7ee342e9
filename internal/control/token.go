package control

import "sync"

// Token is a one-way cancellation flag shared across pipeline components.
// Once cancelled it never resets; a new run gets a new token. A nil token
// behaves as never-cancelled.
type Token struct {
	once sync.Once
	done chan struct{}
}

// NewToken returns an uncancelled token.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Cancel flips the token. Safe to call multiple times and from any goroutine.
func (t *Token) Cancel() {
	if t == nil {
		return
	}
	t.once.Do(func() { close(t.done) })
}

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool {
	if t == nil {
		return false
	}
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed on cancellation. A nil token returns a nil
// channel, which blocks forever in select.
func (t *Token) Done() <-chan struct{} {
	if t == nil {
		return nil
	}
	return t.done
}
