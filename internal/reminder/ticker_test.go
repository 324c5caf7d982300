package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskbot/internal/schedule"
	"taskbot/internal/storage"
	logx "taskbot/pkg/logx"
)

func testTicker(st *fakeStore, send *fakeSender) *Ticker {
	return NewTicker(TickerConfig{DefaultZone: time.UTC}, st, send, logx.Nop())
}

func TestSweepSendsAndAdvances(t *testing.T) {
	st := newFakeStore()
	send := &fakeSender{}
	tk := testTicker(st, send)

	id, _ := st.CreateRecurring(context.Background(), storage.RecurringReminder{
		ChatID: 100, Text: "pay rent", Kind: schedule.Monthly,
		DayOfMonth: 5, Hour: 10,
		NextRunAt: time.Now().Add(-time.Minute),
	})

	tk.sweep(context.Background())

	if send.sendCount() != 1 {
		t.Fatalf("sends = %d, want 1", send.sendCount())
	}
	send.mu.Lock()
	text := send.sends[0]
	send.mu.Unlock()
	if text != "🔄 Напоминание: pay rent" {
		t.Fatalf("text = %q", text)
	}

	r, _ := st.Recurring(context.Background(), id)
	if !r.NextRunAt.After(time.Now()) {
		t.Fatalf("next run not advanced: %v", r.NextRunAt)
	}
	if r.NextRunAt.Day() != 5 || r.NextRunAt.Hour() != 10 {
		t.Fatalf("next run off rule: %v", r.NextRunAt)
	}

	// Nothing due anymore; a second sweep is a no-op.
	tk.sweep(context.Background())
	if send.sendCount() != 1 {
		t.Fatalf("second sweep sent again: %d", send.sendCount())
	}
}

func TestSweepAdvancesEvenWhenSendFails(t *testing.T) {
	st := newFakeStore()
	send := &fakeSender{sendErr: errors.New("chat unreachable")}
	tk := testTicker(st, send)

	id, _ := st.CreateRecurring(context.Background(), storage.RecurringReminder{
		ChatID: 100, Text: "unlucky", Kind: schedule.Monthly,
		DayOfMonth: 5, Hour: 10,
		NextRunAt: time.Now().Add(-time.Minute),
	})

	tk.sweep(context.Background())

	r, _ := st.Recurring(context.Background(), id)
	if !r.NextRunAt.After(time.Now()) {
		t.Fatal("failed send blocked the advance")
	}
}

func TestSweepDefaultsMissingHour(t *testing.T) {
	st := newFakeStore()
	send := &fakeSender{}
	tk := testTicker(st, send)

	id, _ := st.CreateRecurring(context.Background(), storage.RecurringReminder{
		ChatID: 100, Text: "no hour", Kind: schedule.Monthly,
		DayOfMonth: 5,
		NextRunAt:  time.Now().Add(-time.Minute),
	})

	tk.sweep(context.Background())

	r, _ := st.Recurring(context.Background(), id)
	if r.NextRunAt.Hour() != 10 {
		t.Fatalf("default hour not applied: %v", r.NextRunAt)
	}
}

func TestAddRecurringComputesFirstRun(t *testing.T) {
	st := newFakeStore()
	send := &fakeSender{}
	tk := testTicker(st, send)

	id, err := tk.AddRecurring(context.Background(), 100, 7, "alice", "pay rent",
		schedule.Rule{Kind: schedule.Monthly, Day: 5})
	if err != nil {
		t.Fatalf("AddRecurring: %v", err)
	}

	r, err := st.Recurring(context.Background(), id)
	if err != nil {
		t.Fatalf("Recurring: %v", err)
	}
	if r.Kind != schedule.Monthly || r.DayOfMonth != 5 || r.Hour != 10 || r.OwnerName != "alice" {
		t.Fatalf("stored rule = %+v", r)
	}
	if !r.NextRunAt.After(time.Now()) || r.NextRunAt.Day() != 5 {
		t.Fatalf("first run = %v", r.NextRunAt)
	}

	// Insert kicks the sweep loop.
	select {
	case <-tk.kick:
	default:
		t.Fatal("AddRecurring did not notify the sweep loop")
	}
}

func TestRemoveRecurringChecksChat(t *testing.T) {
	st := newFakeStore()
	send := &fakeSender{}
	tk := testTicker(st, send)

	id, _ := st.CreateRecurring(context.Background(), storage.RecurringReminder{
		ChatID: 100, Text: "mine", Kind: schedule.Monthly, DayOfMonth: 5, Hour: 10,
		NextRunAt: time.Now().Add(time.Hour),
	})

	ok, err := tk.RemoveRecurring(context.Background(), 999, id)
	if err != nil || ok {
		t.Fatalf("foreign chat removed the rule: %v, %v", ok, err)
	}
	ok, err = tk.RemoveRecurring(context.Background(), 100, id)
	if err != nil || !ok {
		t.Fatalf("RemoveRecurring = %v, %v", ok, err)
	}
	ok, err = tk.RemoveRecurring(context.Background(), 100, id)
	if err != nil || ok {
		t.Fatalf("second remove = %v, %v, want false", ok, err)
	}
}

func TestTickerStartAndStop(t *testing.T) {
	st := newFakeStore()
	send := &fakeSender{}
	tk := NewTicker(TickerConfig{SweepInterval: 50 * time.Millisecond, DefaultZone: time.UTC}, st, send, logx.Nop())

	_, _ = st.CreateRecurring(context.Background(), storage.RecurringReminder{
		ChatID: 100, Text: "soon", Kind: schedule.Monthly, DayOfMonth: 5, Hour: 10,
		NextRunAt: time.Now().Add(-time.Minute),
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := tk.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	tk.Notify()
	waitFor(t, 2*time.Second, func() bool { return send.sendCount() >= 1 })

	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	tk.Stop(stopCtx)
}
