package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hammamikhairi/badbar/internal/logger"
)

func TestCLINotifier(t *testing.T) {
	var lines []string
	printFn := func(format string, a ...any) {
		lines = append(lines, fmt.Sprintf(format, a...))
	}
	log := logger.New(logger.LevelOff, nil)

	if err := NewCLINotifier(log, printFn).Notify(context.Background(), "Recipe added"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if err := NewCLINotifier(log, printFn, WithPlain()).Notify(context.Background(), "Recipe added"); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "Recipe added") || !strings.HasPrefix(lines[0], "\033[") {
		t.Fatalf("styled line = %q", lines[0])
	}
	if lines[1] != "Recipe added" {
		t.Fatalf("plain line = %q", lines[1])
	}
}

func TestMultiDeliversToAll(t *testing.T) {
	var got []string
	record := func(tag string) Func {
		return func(_ context.Context, msg string) error {
			got = append(got, tag+":"+msg)
			return nil
		}
	}
	boom := errors.New("boom")
	failing := Func(func(context.Context, string) error { return boom })

	m := Multi{record("a"), nil, failing, record("b")}
	err := m.Notify(context.Background(), "hi")

	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if strings.Join(got, ",") != "a:hi,b:hi" {
		t.Fatalf("delivered = %v", got)
	}
}

func TestMultiEmpty(t *testing.T) {
	if err := (Multi{}).Notify(context.Background(), "x"); err != nil {
		t.Fatalf("err = %v", err)
	}
}
