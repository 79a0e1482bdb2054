package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"
)

// fakeSender records delivered titles and can be made to fail.
type fakeSender struct {
	name  string
	err   error
	calls []string
}

func (f *fakeSender) Send(ctx context.Context, title, message string) error {
	f.calls = append(f.calls, title)
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Notify tests ---

func TestNotify_FiltersEvents(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, []string{" run_completed "}, discardLogger())

	if err := n.Notify(context.Background(), EventRunFailed, "failed", "body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.calls) != 0 {
		t.Errorf("expected filtered event not delivered, got %v", sender.calls)
	}

	if err := n.Notify(context.Background(), EventRunCompleted, "done", "body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.calls) != 1 || sender.calls[0] != "done" {
		t.Errorf("expected allowed event delivered, got %v", sender.calls)
	}
}

func TestNotify_EmptyEventListAllowsAll(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, nil, discardLogger())

	if err := n.Notify(context.Background(), "anything", "t", "m"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.calls) != 1 {
		t.Errorf("expected delivery with no filter configured, got %v", sender.calls)
	}
}

func TestNotifyAll_BypassesFilter(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, []string{EventRunCompleted}, discardLogger())

	if err := n.NotifyAll(context.Background(), "urgent", "m"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.calls) != 1 {
		t.Errorf("expected unconditional delivery, got %v", sender.calls)
	}
}

func TestDispatch_CollectsFailuresAndContinues(t *testing.T) {
	broken := &fakeSender{name: "telegram", err: errors.New("api down")}
	working := &fakeSender{name: "discord"}
	n := NewNotifier([]Sender{broken, working}, nil, discardLogger())

	err := n.NotifyAll(context.Background(), "t", "m")
	if err == nil {
		t.Fatal("expected combined error")
	}
	if !strings.Contains(err.Error(), "telegram") || !strings.Contains(err.Error(), "api down") {
		t.Errorf("expected failing sender named, got %v", err)
	}
	if len(working.calls) != 1 {
		t.Errorf("expected delivery to continue past the failure, got %v", working.calls)
	}
}

func TestDispatch_NoSenders(t *testing.T) {
	n := NewNotifier(nil, nil, discardLogger())
	if err := n.NotifyAll(context.Background(), "t", "m"); err != nil {
		t.Errorf("expected nil with no senders, got %v", err)
	}
}

// --- truncate tests ---

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected string under the limit untouched, got %q", got)
	}

	if got := truncate("abcdefgh", 5); got != "abcd…" {
		t.Errorf("expected 4 runes plus ellipsis, got %q", got)
	}

	// Rune-safe: multi-byte characters must not be split.
	got := truncate(strings.Repeat("é", 10), 5)
	if !utf8.ValidString(got) {
		t.Fatalf("expected valid UTF-8, got %q", got)
	}
	if utf8.RuneCountInString(got) != 5 {
		t.Errorf("expected 5 runes, got %d in %q", utf8.RuneCountInString(got), got)
	}
}
