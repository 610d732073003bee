// Package display provides the terminal UI using Bubble Tea.
//
// The [UI] renders two tabs, the add-recipe form and the recipe list,
// over an [engine.Engine]. Engine callbacks arrive on background
// goroutines; they are funnelled into the single Bubble Tea event loop
// through Program.Send, so all rendering and draft edits happen there.
package display

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hammamikhairi/badbar/internal/domain"
	"github.com/hammamikhairi/badbar/internal/engine"
	"github.com/hammamikhairi/badbar/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*UI)(nil)

// DefaultToastDuration is how long a notification stays visible.
const DefaultToastDuration = 3 * time.Second

// Option configures the UI.
type Option func(*UI)

// WithToastDuration sets how long notifications stay on screen.
func WithToastDuration(d time.Duration) Option {
	return func(u *UI) {
		if d > 0 {
			u.toastDuration = d
		}
	}
}

// WithProgramOptions passes extra options to tea.NewProgram, e.g. custom
// input and output for tests.
func WithProgramOptions(opts ...tea.ProgramOption) Option {
	return func(u *UI) {
		u.programOpts = append(u.programOpts, opts...)
	}
}

// UI manages the terminal through Bubble Tea.
//
// Create it before the engine so that [UI.Refresh] and [UI.Notify] can be
// wired as engine callbacks, then call [UI.Run] (blocking) and start the
// engine once [UI.WaitReady] returns. Both callbacks are safe from any
// goroutine and are dropped until the event loop is running.
type UI struct {
	eng           *engine.Engine
	log           *logger.Logger
	toastDuration time.Duration
	programOpts   []tea.ProgramOption

	program *tea.Program
	readyCh chan struct{}
	quitCh  chan struct{}
	done    atomic.Bool
}

// NewUI creates the display. Call Attach, then Run.
func NewUI(log *logger.Logger, opts ...Option) *UI {
	u := &UI{
		log:           log,
		toastDuration: DefaultToastDuration,
		programOpts:   []tea.ProgramOption{tea.WithAltScreen()},
		readyCh:       make(chan struct{}),
		quitCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Attach sets the engine the UI renders. Must be called before Run.
func (u *UI) Attach(eng *engine.Engine) { u.eng = eng }

// Refresh tells the UI that engine state changed.
func (u *UI) Refresh() { u.send(changedMsg{}) }

// Notify shows message as a toast that hides itself after the configured
// duration.
func (u *UI) Notify(ctx context.Context, message string) error {
	u.log.Debug("toast: %s", message)
	u.send(toastMsg{text: message})
	return nil
}

func (u *UI) send(msg tea.Msg) {
	select {
	case <-u.readyCh:
	default:
		return
	}
	if u.done.Load() {
		return
	}
	u.program.Send(msg)
}

// WaitReady blocks until the Bubble Tea event loop is running. It returns
// false if Run exited first.
func (u *UI) WaitReady() bool {
	select {
	case <-u.readyCh:
		return true
	case <-u.quitCh:
		return false
	}
}

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	select {
	case <-u.readyCh:
		u.program.Quit()
	default:
	}
}

// QuitChan is closed when Run returns.
func (u *UI) QuitChan() <-chan struct{} { return u.quitCh }

// Run starts the Bubble Tea event loop and blocks until the user quits or
// Quit is called. ctx is used for submissions made from the form. Call it
// once.
func (u *UI) Run(ctx context.Context) error {
	defer close(u.quitCh)
	if u.eng == nil {
		return errors.New("display: no engine attached")
	}

	m := newModel(ctx, u.eng, u.log, u.readyCh, u.toastDuration)
	u.program = tea.NewProgram(m, u.programOpts...)

	_, err := u.program.Run()
	u.done.Store(true)
	return err
}
