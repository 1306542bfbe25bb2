package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"rill/internal/driver"
	"rill/internal/ui"
)

type checkOutcome struct {
	result *driver.Result
	err    error
}

// sendEvent forwards a progress event without ever blocking a worker.
// Progress is advisory; when the view lags or has quit, dropping an
// event beats stalling the check.
func sendEvent(events chan<- driver.Event, ev driver.Event) {
	select {
	case events <- ev:
	default:
	}
}

// runCheckWithUI runs the directory check behind a Bubble Tea progress
// view. The analysis runs on its own goroutine; events flow through a
// buffered channel that the model drains.
func runCheckWithUI(ctx context.Context, dir string, opts driver.Options) (*driver.Result, error) {
	files, err := driver.ListDumps(dir)
	if err != nil {
		return nil, err
	}

	events := make(chan driver.Event, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.OnEvent = func(ev driver.Event) { sendEvent(events, ev) }
		res, err := driver.CheckDir(ctx, dir, optsCopy)
		outcomeCh <- checkOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("rill check", files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// The model stops draining once it quits; keep the channel flowing so
	// workers finish and the outcome arrives even after an interrupt.
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
