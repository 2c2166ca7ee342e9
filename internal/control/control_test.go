package control_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AZAnthonyN/GeminiTL/internal/control"
	"github.com/AZAnthonyN/GeminiTL/internal/services"
)

func TestTokenCancelIsTerminalAndIdempotent(t *testing.T) {
	token := control.NewToken()
	if token.Cancelled() {
		t.Fatal("new token should not be cancelled")
	}
	token.Cancel()
	token.Cancel()
	if !token.Cancelled() {
		t.Fatal("token should stay cancelled")
	}
	select {
	case <-token.Done():
	default:
		t.Fatal("Done channel should be closed after Cancel")
	}
}

func TestNilTokenNeverCancelled(t *testing.T) {
	var token *control.Token
	token.Cancel()
	if token.Cancelled() {
		t.Fatal("nil token must report not cancelled")
	}
	if err := control.Sleep(time.Millisecond, token); err != nil {
		t.Fatalf("Sleep with nil token: %v", err)
	}
}

func TestSleepReturnsCancelledImmediately(t *testing.T) {
	token := control.NewToken()
	token.Cancel()
	start := time.Now()
	err := control.Sleep(time.Minute, token)
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("cancelled sleep took %v", elapsed)
	}
}

func TestSleepInterruptedMidWait(t *testing.T) {
	token := control.NewToken()
	go func() {
		time.Sleep(20 * time.Millisecond)
		token.Cancel()
	}()
	start := time.Now()
	err := control.Sleep(time.Minute, token)
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("interrupt took %v", elapsed)
	}
}

func TestGateBlocksUntilResume(t *testing.T) {
	gate := control.NewGate()
	token := control.NewToken()
	gate.Pause()
	if !gate.Paused() {
		t.Fatal("gate should report paused")
	}

	released := make(chan error, 1)
	go func() { released <- gate.Wait(token) }()

	select {
	case err := <-released:
		t.Fatalf("Wait returned %v while paused", err)
	case <-time.After(30 * time.Millisecond):
	}

	gate.Resume()
	select {
	case err := <-released:
		if err != nil {
			t.Fatalf("Wait after resume: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not release after Resume")
	}
}

func TestGateCancelWinsOverPause(t *testing.T) {
	gate := control.NewGate()
	token := control.NewToken()
	gate.Pause()

	released := make(chan error, 1)
	go func() { released <- gate.Wait(token) }()

	time.Sleep(10 * time.Millisecond)
	token.Cancel()

	select {
	case err := <-released:
		if !errors.Is(err, services.ErrCancelled) {
			t.Fatalf("expected ErrCancelled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not release after Cancel")
	}
}

func TestGateChecksCancelBeforePause(t *testing.T) {
	gate := control.NewGate()
	token := control.NewToken()
	gate.Pause()
	token.Cancel()
	if err := gate.Wait(token); !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestCallReturnsResult(t *testing.T) {
	exec := control.Executor{Timeout: time.Second}
	got, err := control.Call(exec, func() (string, error) { return "translated", nil }, control.NewToken())
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != "translated" {
		t.Fatalf("got %q", got)
	}
}

func TestCallPropagatesError(t *testing.T) {
	exec := control.Executor{}
	wantErr := errors.New("boom")
	_, err := control.Call(exec, func() (int, error) { return 0, wantErr }, control.NewToken())
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected call error, got %v", err)
	}
}

func TestCallTimesOut(t *testing.T) {
	exec := control.Executor{Timeout: 20 * time.Millisecond}
	block := make(chan struct{})
	defer close(block)
	_, err := control.Call(exec, func() (int, error) {
		<-block
		return 0, nil
	}, control.NewToken())
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestCallAbandonsOnCancel(t *testing.T) {
	exec := control.Executor{Timeout: time.Minute}
	token := control.NewToken()
	block := make(chan struct{})
	defer close(block)
	go func() {
		time.Sleep(10 * time.Millisecond)
		token.Cancel()
	}()
	_, err := control.Call(exec, func() (int, error) {
		<-block
		return 42, nil
	}, token)
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestCallCancelableFiresHandle(t *testing.T) {
	exec := control.Executor{Timeout: time.Minute, Grace: 100 * time.Millisecond}
	token := control.NewToken()
	var fired atomic.Bool
	stop := make(chan struct{})

	go func() {
		time.Sleep(10 * time.Millisecond)
		token.Cancel()
	}()
	_, err := control.CallCancelable(exec, func() (int, error) {
		<-stop
		return 0, errors.New("aborted")
	}, func() {
		fired.Store(true)
		close(stop)
	}, token)
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if !fired.Load() {
		t.Fatal("cancel handle was not fired")
	}
}

func TestCallCancelableGraceExpires(t *testing.T) {
	exec := control.Executor{Timeout: 10 * time.Millisecond, Grace: 20 * time.Millisecond}
	block := make(chan struct{})
	defer close(block)
	start := time.Now()
	_, err := control.CallCancelable(exec, func() (int, error) {
		<-block
		return 0, nil
	}, func() {}, control.NewToken())
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("grace wait took %v", elapsed)
	}
}
