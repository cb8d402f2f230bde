package hotkey

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestTriggerFiresWatcherOnSignalFile(t *testing.T) {
	dir := t.TempDir()
	w := New(Config{ScratchDir: dir, PollInterval: 10 * time.Millisecond}, nil)

	var fired int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, func() { atomic.AddInt32(&fired, 1) })

	if err := Trigger(dir); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&fired) == 0 {
		select {
		case <-deadline:
			t.Fatal("watcher never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSignalFileRemovedAfterConsume(t *testing.T) {
	dir := t.TempDir()
	w := New(Config{ScratchDir: dir, PollInterval: 10 * time.Millisecond}, nil)

	if err := Trigger(dir); err != nil {
		t.Fatal(err)
	}
	if !w.consume() {
		t.Fatal("expected consume to see the signal file")
	}
	if w.consume() {
		t.Fatal("expected second consume to find nothing")
	}
}

func TestNoSignalFileNeverFires(t *testing.T) {
	dir := t.TempDir()
	w := New(Config{ScratchDir: dir, PollInterval: 10 * time.Millisecond}, nil)

	var fired int32
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	w.Run(ctx, func() { atomic.AddInt32(&fired, 1) })

	if fired != 0 {
		t.Fatalf("expected no trigger, fired=%d", fired)
	}
}
