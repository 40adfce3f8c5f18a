package booking

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
	"github.com/canerconnect/terminflow/services/booking-service/internal/notify"
)

func request(date, start string) BookingRequest {
	return BookingRequest{
		CustomerID:  testCustomer,
		PatientName: "Max Mustermann",
		Email:       "max@example.com",
		Phone:       "+49 151 23456789",
		Date:        date,
		StartTime:   start,
		Notes:       "Kontrolle",
	}
}

func TestCreateBookingCommitsConfirmed(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.CreateBooking(context.Background(), request("2026-03-09", "10:00"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Status != model.StatusConfirmed || a.End.String() != "10:30" {
		t.Fatalf("unexpected appointment %+v", a)
	}
	if a.Phone != "+4915123456789" {
		t.Fatalf("expected normalized phone, got %q", a.Phone)
	}
	if b, err := hex.DecodeString(a.CancellationToken); err != nil || len(b) != 32 {
		t.Fatalf("token must be 32 random bytes in hex, got %q", a.CancellationToken)
	}

	drain(t, f.svc)
	msgs := f.notifier.Messages()
	if len(msgs) != 1 || msgs[0].Template != notify.TemplateBookingConfirmation {
		t.Fatalf("expected one confirmation, got %+v", msgs)
	}
	link := msgs[0].Data["cancellationLink"]
	want := "https://termine.example.com/storno/" + a.ID + "?token=" + a.CancellationToken
	if link != want {
		t.Fatalf("cancellation link %q, want %q", link, want)
	}
}

func TestCreateBookingConflictLaw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, "2026-03-09", "10:00")

	_, err := f.svc.CreateBooking(ctx, request("2026-03-09", "10:15"))
	wantErr(t, err, ErrSlotTaken)
	if KindOf(err) != KindConflict {
		t.Fatalf("expected conflict kind, got %v", KindOf(err))
	}

	day, err := f.svc.ComputeSlots(ctx, testCustomer, mustDate(t, "2026-03-09"))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for _, s := range day.Slots {
		if s.Start < 10*60+30 && s.End > 10*60 {
			t.Fatalf("slot %v overlaps the booking", s)
		}
	}

	// Touching intervals do not overlap.
	if _, err := f.svc.CreateBooking(ctx, request("2026-03-09", "10:30")); err != nil {
		t.Fatalf("adjacent booking: %v", err)
	}
}

func TestCreateBookingPolicyChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, request("2026-03-02", "09:30"))
	wantErr(t, err, ErrTooSoon)

	_, err = f.svc.CreateBooking(ctx, request("2026-03-09", "08:30"))
	wantErr(t, err, ErrOutsideHours)

	_, err = f.svc.CreateBooking(ctx, request("2026-03-09", "16:45"))
	wantErr(t, err, ErrOutsideHours)

	_, err = f.svc.CreateBooking(ctx, request("2026-03-08", "10:00"))
	wantErr(t, err, ErrOutsideHours)
	var e *Error
	if !errors.As(err, &e) || e.Reason != "booking not allowed on this day" {
		t.Fatalf("expected closed day reason, got %v", err)
	}

	_, err = f.svc.CreateBooking(ctx, request("2026-06-01", "10:00"))
	wantErr(t, err, ErrBookingTooFar)
	if KindOf(err) != KindPolicy {
		t.Fatalf("expected policy kind, got %v", KindOf(err))
	}
}

func TestCreateBookingRejectsBlockedAndBuffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.CreateBlockedSlot(ctx, testCustomer, "admin", BlockedSlotInput{
		Date: "2026-03-09", StartTime: "12:00", EndTime: "13:00", Reason: "Mittag",
	}); err != nil {
		t.Fatalf("block: %v", err)
	}
	_, err := f.svc.CreateBooking(ctx, request("2026-03-09", "12:30"))
	wantErr(t, err, ErrSlotBlocked)

	f.setSettings(func(s *model.Settings) { s.BufferTime = 15 })
	f.book(t, "2026-03-09", "14:00")
	_, err = f.svc.CreateBooking(ctx, request("2026-03-09", "14:30"))
	wantErr(t, err, ErrBufferRequired)
	if _, err := f.svc.CreateBooking(ctx, request("2026-03-09", "15:00")); err != nil {
		t.Fatalf("booking after buffer: %v", err)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]func(*BookingRequest){
		"short name":  func(r *BookingRequest) { r.PatientName = " A " },
		"bad email":   func(r *BookingRequest) { r.Email = "max@" },
		"named email": func(r *BookingRequest) { r.Email = "Max <max@example.com>" },
		"landline":    func(r *BookingRequest) { r.Phone = "+49 30 1234567" },
		"long notes":  func(r *BookingRequest) { r.Notes = strings.Repeat("x", 501) },
		"bad date":    func(r *BookingRequest) { r.Date = "09.03.2026" },
		"bad time":    func(r *BookingRequest) { r.StartTime = "10:00:30" },
	}
	for name, mut := range cases {
		req := request("2026-03-09", "10:00")
		mut(&req)
		_, err := f.svc.CreateBooking(context.Background(), req)
		if KindOf(err) != KindValidation {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}

	req := request("2026-03-09", "10:00")
	req.CustomerID = "unknown"
	_, err := f.svc.CreateBooking(context.Background(), req)
	wantErr(t, err, ErrCustomerNotFound)
}

func TestCreateBookingConcurrentSameSlot(t *testing.T) {
	f := newFixture(t)
	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, taken int
		other     []error
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.CreateBooking(context.Background(), request("2026-03-10", "11:00"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrSlotTaken):
				taken++
			default:
				other = append(other, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if ok != 1 || taken != n-1 || len(other) != 0 {
		t.Fatalf("expected 1 success and %d conflicts, got %d/%d (%v)", n-1, ok, taken, other)
	}
}

func TestNotificationFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")
	if _, err := f.svc.CreateBooking(context.Background(), request("2026-03-09", "09:00")); err != nil {
		t.Fatalf("create: %v", err)
	}
	drain(t, f.svc)
	if len(f.notifier.Messages()) != 1 {
		t.Fatalf("expected one notification attempt")
	}
}

func TestCreateAdminBookingSkipsAdvanceWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.CreateAdminBooking(ctx, testCustomer, request("2026-03-02", "09:00"), model.StatusPending)
	if err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if a.Status != model.StatusPending {
		t.Fatalf("expected pending, got %s", a.Status)
	}

	f.clock.Set(testNow.Add(2 * time.Hour))
	_, err = f.svc.CreateAdminBooking(ctx, testCustomer, request("2026-03-02", "09:30"), "")
	wantErr(t, err, ErrPastDate)

	_, err = f.svc.CreateAdminBooking(ctx, testCustomer, request("2026-03-09", "10:00"), model.StatusCompleted)
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
