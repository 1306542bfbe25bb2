package main

import (
	"testing"
	"time"

	"rill/internal/driver"
)

func TestSendEventNeverBlocksOnFullChannel(t *testing.T) {
	events := make(chan driver.Event, 1)
	events <- driver.Event{Kind: driver.EventFileStart}

	// Nobody is draining; a worker emitting into the full channel must
	// still return immediately.
	done := make(chan struct{})
	go func() {
		sendEvent(events, driver.Event{Kind: driver.EventFileDone})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sendEvent blocked on a full channel")
	}

	if len(events) != 1 {
		t.Fatalf("buffered events = %d, want the original one only", len(events))
	}
}
