package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
	"github.com/canerconnect/terminflow/services/booking-service/internal/notify"
)

const testCustomer = "c0a80101-0000-4000-8000-000000000001"

// Monday 2026-03-02 08:00 UTC.
var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return n.err
}

func (n *recordingNotifier) Messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.msgs...)
}

type fixture struct {
	store    *memStore
	notifier *recordingNotifier
	clock    *testClock
	svc      *Service
}

// newFixture seeds one customer open Monday to Friday 09:00-17:00 with the
// default settings.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := newMemStore()
	st.customers[testCustomer] = model.Customer{
		ID:        testCustomer,
		Subdomain: "praxis-muster",
		Name:      "Praxis Muster",
		Email:     "praxis@example.com",
		Phone:     "+49301234567",
		Address:   "Hauptstr. 1, Berlin",
		Timezone:  "UTC",
	}
	week := map[time.Weekday]model.WorkingHours{
		time.Sunday:   {Weekday: time.Sunday},
		time.Saturday: {Weekday: time.Saturday},
	}
	for d := time.Monday; d <= time.Friday; d++ {
		week[d] = model.WorkingHours{Weekday: d, IsWorkingDay: true, Start: 9 * 60, End: 17 * 60}
	}
	st.hours[testCustomer] = week
	st.settings[testCustomer] = model.DefaultSettings()

	clock := &testClock{now: testNow}
	n := &recordingNotifier{}
	svc := NewService(st, n, nil, Options{
		PublicBaseURL: "https://termine.example.com/",
		Now:           clock.Now,
	})
	return &fixture{store: st, notifier: n, clock: clock, svc: svc}
}

func (f *fixture) setSettings(mut func(*model.Settings)) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	s := f.store.settings[testCustomer]
	mut(&s)
	f.store.settings[testCustomer] = s
}

func (f *fixture) book(t *testing.T, date, start string) model.Appointment {
	t.Helper()
	a, err := f.svc.CreateBooking(context.Background(), BookingRequest{
		CustomerID:  testCustomer,
		PatientName: "Erika Mustermann",
		Email:       "erika@example.com",
		Date:        date,
		StartTime:   start,
	})
	if err != nil {
		t.Fatalf("book %s %s: %v", date, start, err)
	}
	return a
}

func mustDate(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := model.ParseDate(raw)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}

func drain(t *testing.T, svc *Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := svc.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
}
