package toast_test

import (
	"testing"

	"github.com/classloop/classloop/pkg/toast"
)

func TestShowReplacesCurrent(t *testing.T) {
	c := toast.NewCenter()

	c.Error("first")
	c.Success("second")

	n := c.Current()
	if n == nil {
		t.Fatal("expected a visible notification")
	}
	if n.Level != toast.LevelSuccess || n.Message != "second" {
		t.Errorf("expected success/second, got %s/%s", n.Level, n.Message)
	}
}

func TestSingleNotificationPolicy(t *testing.T) {
	c := toast.NewCenter()

	var events []*toast.Notification
	c.Subscribe(func(n *toast.Notification) {
		events = append(events, n)
	})

	c.Error("session expired")
	c.Error("network error")

	// show, dismiss, show
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0] == nil || events[0].Message != "session expired" {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1] != nil {
		t.Errorf("expected dismiss between shows, got %+v", events[1])
	}
	if events[2] == nil || events[2].Message != "network error" {
		t.Errorf("unexpected last event: %+v", events[2])
	}
}

func TestDismiss(t *testing.T) {
	c := toast.NewCenter()

	c.Info("hello")
	c.Dismiss()

	if c.Current() != nil {
		t.Error("expected no notification after dismiss")
	}

	// Dismissing an empty center is a no-op.
	dismissed := 0
	c.Subscribe(func(n *toast.Notification) {
		if n == nil {
			dismissed++
		}
	})
	c.Dismiss()
	if dismissed != 0 {
		t.Error("expected no events for dismiss of empty center")
	}
}

func TestUnsubscribe(t *testing.T) {
	c := toast.NewCenter()

	calls := 0
	unsub := c.Subscribe(func(*toast.Notification) { calls++ })

	c.Warning("one")
	unsub()
	c.Warning("two")

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestCurrentReturnsCopy(t *testing.T) {
	c := toast.NewCenter()
	c.Info("original")

	n := c.Current()
	n.Message = "mutated"

	if got := c.Current().Message; got != "original" {
		t.Errorf("expected original, got %s", got)
	}
}
