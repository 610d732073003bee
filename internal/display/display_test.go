package display

import (
	"context"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hammamikhairi/badbar/internal/engine"
	"github.com/hammamikhairi/badbar/internal/storage"
)

func headlessUI() *UI {
	return NewUI(quietLog(),
		WithToastDuration(time.Second),
		WithProgramOptions(
			tea.WithInput(nil),
			tea.WithOutput(io.Discard),
			tea.WithoutSignalHandler(),
		),
	)
}

func TestUIRunAndQuit(t *testing.T) {
	store := storage.NewMemoryStore(quietLog())
	defer store.Close()

	ui := headlessUI()
	eng := engine.New(storage.NewAuth(store, quietLog()), store, quietLog(),
		engine.WithOnChange(ui.Refresh),
		engine.WithNotifier(ui),
	)
	ui.Attach(eng)

	errCh := make(chan error, 1)
	go func() { errCh <- ui.Run(context.Background()) }()

	if !ui.WaitReady() {
		t.Fatal("Run exited before the event loop was ready")
	}
	eng.Start(context.Background())
	defer eng.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := eng.WaitReady(ctx); err != nil {
		t.Fatalf("engine sign-in: %v", err)
	}
	if err := ui.Notify(ctx, "Recipe added"); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	ui.Quit()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after Quit")
	}

	select {
	case <-ui.QuitChan():
	default:
		t.Fatal("QuitChan not closed after Run returned")
	}
	// Callbacks after exit are dropped.
	ui.Refresh()
}

func TestUIRunWithoutEngine(t *testing.T) {
	ui := headlessUI()
	if err := ui.Run(context.Background()); err == nil {
		t.Fatal("expected an error without an attached engine")
	}
	if ui.WaitReady() {
		t.Fatal("WaitReady reported ready for a UI that never ran")
	}
	ui.Quit()
}
