package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hammamikhairi/badbar/internal/display"
	"github.com/hammamikhairi/badbar/internal/engine"
)

func runTUI(ctx context.Context, opts *RootOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := opts.openBackend()
	if err != nil {
		return err
	}
	defer b.close()

	log := opts.log
	ui := display.NewUI(log.Named("ui"), display.WithToastDuration(opts.cfg.Toast.Duration))
	eng := engine.New(b.auth, b.docs, log.Named("engine"),
		engine.WithOnChange(ui.Refresh),
		engine.WithNotifier(ui),
	)
	ui.Attach(eng)

	// Start the engine once the UI can show it, and quit the UI on a signal.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if !ui.WaitReady() {
			return
		}
		eng.Start(ctx)
		select {
		case <-ctx.Done():
			ui.Quit()
		case <-ui.QuitChan():
		}
	}()

	err = ui.Run(ctx)
	<-done
	eng.Stop()
	return err
}
