package main

import (
	"context"
	"testing"

	"github.com/chzyer/readline"
)

func TestOperationCanceler(t *testing.T) {
	canceler := &operationCanceler{}
	if canceler.Cancel() {
		t.Fatal("expected no cancel when unset")
	}

	ctx, cancel := context.WithCancel(context.Background())
	canceler.Set(cancel)
	if !canceler.Cancel() {
		t.Fatal("expected cancel to return true")
	}
	select {
	case <-ctx.Done():
	default:
		t.Fatal("expected context to be canceled")
	}

	canceler.Clear()
	if canceler.Cancel() {
		t.Fatal("expected no cancel after clear")
	}
}

func TestWatchInterruptsStops(t *testing.T) {
	canceler := &operationCanceler{}
	stop := watchInterrupts(canceler)
	stop()
}

func TestFilterInterruptRune(t *testing.T) {
	r, ok := filterInterruptRune(readline.CharBell)
	if ok || r != 0 {
		t.Fatalf("expected ctrl+g to be ignored, got %v %v", r, ok)
	}

	r, ok = filterInterruptRune('a')
	if !ok || r != 'a' {
		t.Fatalf("expected rune to remain unchanged, got %v %v", r, ok)
	}

	r, ok = filterInterruptRune(readline.CharInterrupt)
	if !ok || r != readline.CharInterrupt {
		t.Fatalf("expected ctrl+c to be processed, got %v %v", r, ok)
	}
}
