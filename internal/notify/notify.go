// Package notify delivers short user-facing messages such as
// "Recipe added".
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/hammamikhairi/badbar/internal/domain"
	"github.com/hammamikhairi/badbar/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.Notifier = (*CLINotifier)(nil)
	_ domain.Notifier = Multi(nil)
	_ domain.Notifier = Func(nil)
)

// ANSI escape codes for terminal formatting.
const (
	reset = "\033[0m"
	bold  = "\033[1m"
	green = "\033[32m"
)

// PrintFunc prints one formatted line. fmt.Printf-compatible.
type PrintFunc func(format string, a ...any)

// CLINotifier prints notifications to the terminal.
type CLINotifier struct {
	log     *logger.Logger
	printFn PrintFunc
	color   bool
}

// CLIOption configures a CLINotifier.
type CLIOption func(*CLINotifier)

// WithPlain disables ANSI styling, for output that is piped or captured.
func WithPlain() CLIOption {
	return func(n *CLINotifier) {
		n.color = false
	}
}

// NewCLINotifier creates a terminal notifier. If printFn is nil,
// fmt.Printf is used.
func NewCLINotifier(log *logger.Logger, printFn PrintFunc, opts ...CLIOption) *CLINotifier {
	if printFn == nil {
		printFn = func(format string, a ...any) {
			fmt.Printf(format+"\n", a...)
		}
	}
	n := &CLINotifier{log: log, printFn: printFn, color: true}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify prints message on its own line.
func (n *CLINotifier) Notify(ctx context.Context, message string) error {
	n.log.Debug("notify: %s", message)
	if n.color {
		n.printFn("%s%s%s%s", green, bold, message, reset)
	} else {
		n.printFn("%s", message)
	}
	return nil
}

// Func adapts an ordinary function to domain.Notifier.
type Func func(ctx context.Context, message string) error

// Notify calls f.
func (f Func) Notify(ctx context.Context, message string) error { return f(ctx, message) }

// Multi fans a message out to every notifier, in order. All of them are
// tried; their errors are joined.
type Multi []domain.Notifier

// Notify delivers message to each non-nil notifier.
func (m Multi) Notify(ctx context.Context, message string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
