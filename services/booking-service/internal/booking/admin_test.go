package booking

import (
	"context"
	"testing"

	"github.com/canerconnect/terminflow/libs/auth"
	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
)

func strp(s string) *string { return &s }

func TestUpdateBookingExcludesItself(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, "2026-03-09", "10:00")

	out, err := f.svc.UpdateBooking(ctx, testCustomer, a.ID, BookingUpdate{StartTime: strp("10:15")})
	if err != nil {
		t.Fatalf("shift within own slot: %v", err)
	}
	if out.Start.String() != "10:15" || out.End.String() != "10:45" {
		t.Fatalf("unexpected range %s-%s", out.Start, out.End)
	}
}

func TestUpdateBookingDetectsConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, "2026-03-09", "10:00")
	f.book(t, "2026-03-10", "11:00")

	_, err := f.svc.UpdateBooking(ctx, testCustomer, a.ID, BookingUpdate{Date: strp("2026-03-10"), StartTime: strp("11:00")})
	wantErr(t, err, ErrSlotTaken)

	_, err = f.svc.UpdateBooking(ctx, testCustomer, a.ID, BookingUpdate{Date: strp("2026-03-08")})
	wantErr(t, err, ErrOutsideHours)

	_, err = f.svc.UpdateBooking(ctx, testCustomer, a.ID, BookingUpdate{Email: strp("not-an-email")})
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	got, err := f.svc.UpdateBooking(ctx, testCustomer, a.ID, BookingUpdate{Date: strp("2026-03-10"), Notes: strp("moved")})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if model.FormatDate(got.Date) != "2026-03-10" || got.Notes != "moved" {
		t.Fatalf("unexpected appointment %+v", got)
	}

	_, err = f.svc.UpdateBooking(ctx, "other-customer", a.ID, BookingUpdate{Notes: strp("x")})
	wantErr(t, err, ErrBookingNotFound)
}

func TestSetStatusReactivationRechecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, "2026-03-09", "10:00")

	if _, err := f.svc.SetStatus(ctx, testCustomer, a.ID, "cancelled"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	f.book(t, "2026-03-09", "10:00")

	_, err := f.svc.SetStatus(ctx, testCustomer, a.ID, "confirmed")
	wantErr(t, err, ErrSlotTaken)

	_, err = f.svc.SetStatus(ctx, testCustomer, a.ID, "archived")
	wantErr(t, err, ErrInvalidStatus)

	_, err = f.svc.SetStatus(ctx, testCustomer, a.ID, "no-show")
	wantErr(t, err, ErrSlotTaken)
}

func TestSetStatusNormalizesNoShow(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "2026-03-09", "10:00")
	out, err := f.svc.SetStatus(context.Background(), testCustomer, a.ID, "no-show")
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if out.Status != model.StatusNoShow {
		t.Fatalf("expected no_show, got %s", out.Status)
	}
}

func TestListBookingsPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, start := range []string{"09:00", "10:00", "11:00"} {
		f.book(t, "2026-03-09", start)
	}
	page, err := f.svc.ListBookings(ctx, testCustomer, ListQuery{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || page.TotalPages != 2 || len(page.Items) != 1 || page.Items[0].Start.String() != "11:00" {
		t.Fatalf("unexpected page %+v", page)
	}

	page, err = f.svc.ListBookings(ctx, testCustomer, ListQuery{Limit: 1000})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Limit != 200 || page.Page != 1 {
		t.Fatalf("expected clamped limit, got %+v", page)
	}
}

func TestDeleteBookingAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, "2026-03-09", "10:00")
	f.book(t, "2026-03-09", "11:00")

	st, err := f.svc.Stats(ctx, testCustomer)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Total != 2 || st.ByStatus[model.StatusConfirmed] != 2 || st.Upcoming != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}

	if err := f.svc.DeleteBooking(ctx, testCustomer, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	wantErr(t, f.svc.DeleteBooking(ctx, testCustomer, a.ID), ErrBookingNotFound)
}

func TestBlockedSlotOverlapRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, "2026-03-09", "10:00")

	_, err := f.svc.CreateBlockedSlot(ctx, testCustomer, "admin", BlockedSlotInput{Date: "2026-03-09", StartTime: "10:15", EndTime: "11:00"})
	wantErr(t, err, ErrBlockOverlap)

	b, err := f.svc.CreateBlockedSlot(ctx, testCustomer, "admin", BlockedSlotInput{Date: "2026-03-09", StartTime: "12:00", EndTime: "13:00"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = f.svc.CreateBlockedSlot(ctx, testCustomer, "admin", BlockedSlotInput{Date: "2026-03-09", StartTime: "12:30", EndTime: "14:00"})
	wantErr(t, err, ErrBlockDuplicate)

	moved, err := f.svc.UpdateBlockedSlot(ctx, testCustomer, b.ID, BlockedSlotInput{Date: "2026-03-09", StartTime: "12:30", EndTime: "13:30", Reason: "Team"})
	if err != nil {
		t.Fatalf("update over itself: %v", err)
	}
	if moved.Start.String() != "12:30" || moved.Reason != "Team" {
		t.Fatalf("unexpected slot %+v", moved)
	}

	_, err = f.svc.CreateBlockedSlot(ctx, testCustomer, "admin", BlockedSlotInput{Date: "2026-03-09", StartTime: "15:00", EndTime: "14:00"})
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, err = f.svc.CreateBlockedSlot(ctx, testCustomer, "admin", BlockedSlotInput{Date: "2026-03-01", StartTime: "09:00", EndTime: "10:00"})
	wantErr(t, err, ErrPastDate)

	if err := f.svc.DeleteBlockedSlot(ctx, testCustomer, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	wantErr(t, f.svc.DeleteBlockedSlot(ctx, testCustomer, b.ID), ErrBlockedSlotNotFound)
}

func TestReplaceWorkingHoursValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ReplaceWorkingHours(ctx, testCustomer, []WorkingHoursInput{
		{DayOfWeek: 1, IsWorkingDay: true, StartTime: "09:00", EndTime: "12:00"},
		{DayOfWeek: 1, IsWorkingDay: true, StartTime: "13:00", EndTime: "17:00"},
	})
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation error for duplicate day, got %v", err)
	}
	_, err = f.svc.ReplaceWorkingHours(ctx, testCustomer, []WorkingHoursInput{
		{DayOfWeek: 2, IsWorkingDay: true, StartTime: "12:00", EndTime: "09:00"},
	})
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation error for inverted range, got %v", err)
	}

	week, err := f.svc.ReplaceWorkingHours(ctx, testCustomer, []WorkingHoursInput{
		{DayOfWeek: 3, IsWorkingDay: true, StartTime: "08:00", EndTime: "12:00"},
		{DayOfWeek: 0},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if len(week) != 7 || !week[3].IsWorkingDay || week[3].Start.String() != "08:00" || week[1].IsWorkingDay {
		t.Fatalf("unexpected week %+v", week)
	}
}

func TestUpdateSettingsValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bad := model.DefaultSettings()
	bad.AppointmentDuration = 0
	_, err := f.svc.UpdateSettings(ctx, testCustomer, bad)
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	good := model.DefaultSettings()
	good.AppointmentDuration = 45
	if _, err := f.svc.UpdateSettings(ctx, testCustomer, good); err != nil {
		t.Fatalf("update: %v", err)
	}
	day, err := f.svc.ComputeSlots(ctx, testCustomer, mustDate(t, "2026-03-09"))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// 8h / 45min leaves a 30 minute tail that is never offered.
	if len(day.Slots) != 10 || day.Slots[9].End.String() != "16:30" {
		t.Fatalf("unexpected slots %v", day.Slots)
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	hash, err := auth.HashPassword("geheim123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	f.store.admins["praxis"] = model.AdminUser{ID: "u1", CustomerID: testCustomer, Username: "praxis", PasswordHash: hash, Role: "admin"}
	ctx := context.Background()

	u, err := f.svc.Authenticate(ctx, "praxis", "geheim123")
	if err != nil || u.CustomerID != testCustomer {
		t.Fatalf("authenticate: %v %+v", err, u)
	}
	if _, err := f.svc.Authenticate(ctx, "praxis", "wrong"); err != ErrInvalidCredentials {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, "ghost", "geheim123"); err != ErrInvalidCredentials {
		t.Fatalf("expected invalid credentials for unknown user, got %v", err)
	}
}
