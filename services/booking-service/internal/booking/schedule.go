package booking

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/canerconnect/terminflow/services/booking-service/internal/availability"
	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
	"github.com/google/uuid"
)

const maxReasonLength = 500

type BlockedSlotInput struct {
	Date      string
	StartTime string
	EndTime   string
	Reason    string
}

type blockedInput struct {
	date   time.Time
	iv     availability.Interval
	reason string
}

func parseBlockedSlot(in BlockedSlotInput) (blockedInput, error) {
	var (
		out blockedInput
		err error
	)
	if out.date, err = model.ParseDate(in.Date); err != nil {
		return out, invalid(err.Error())
	}
	if out.iv.Start, err = model.ParseClock(in.StartTime); err != nil {
		return out, invalid(err.Error())
	}
	if out.iv.End, err = model.ParseClock(in.EndTime); err != nil {
		return out, invalid(err.Error())
	}
	if out.iv.End <= out.iv.Start {
		return out, invalid("end time must be after start time")
	}
	out.reason = strings.TrimSpace(in.Reason)
	if utf8.RuneCountInString(out.reason) > maxReasonLength {
		return out, invalid("reason must be at most 500 characters")
	}
	return out, nil
}

// blockGuard rejects a blocked range that overlaps a live appointment or
// another blocked range.
func blockGuard(iv availability.Interval) func(model.Occupancy) error {
	return func(occ model.Occupancy) error {
		busy := availability.BusyFrom(occ)
		for _, b := range busy.Booked {
			if iv.Overlaps(b) {
				return ErrBlockOverlap
			}
		}
		for _, b := range busy.Blocked {
			if iv.Overlaps(b) {
				return ErrBlockDuplicate
			}
		}
		return nil
	}
}

func (s *Service) ListBlockedSlots(ctx context.Context, customerID string, from, to *time.Time) ([]model.BlockedSlot, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, invalid("to must not be before from")
	}
	out, err := s.store.ListBlockedSlots(ctx, customerID, from, to)
	if err != nil {
		return nil, fromStore("list blocked slots", err, nil)
	}
	if out == nil {
		out = []model.BlockedSlot{}
	}
	return out, nil
}

func (s *Service) CreateBlockedSlot(ctx context.Context, customerID, createdBy string, in BlockedSlotInput) (model.BlockedSlot, error) {
	b, err := parseBlockedSlot(in)
	if err != nil {
		return model.BlockedSlot{}, err
	}
	day, err := s.loadCustomerDay(ctx, customerID)
	if err != nil {
		return model.BlockedSlot{}, err
	}
	if b.date.Before(day.today) {
		return model.BlockedSlot{}, ErrPastDate
	}
	slot := model.BlockedSlot{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		Date:       b.date,
		Start:      b.iv.Start,
		End:        b.iv.End,
		Reason:     b.reason,
		CreatedBy:  createdBy,
	}
	if err := s.store.InsertBlockedSlot(ctx, &slot, blockGuard(b.iv)); err != nil {
		return model.BlockedSlot{}, fromStore("insert blocked slot", err, ErrCustomerNotFound)
	}
	s.logger.Info("blocked slot created",
		"blocked_slot_id", slot.ID,
		"customer_id", customerID,
		"date", model.FormatDate(slot.Date),
	)
	return slot, nil
}

// UpdateBlockedSlot replaces date, range and reason. The slot itself is
// excluded from the overlap scan.
func (s *Service) UpdateBlockedSlot(ctx context.Context, customerID, id string, in BlockedSlotInput) (model.BlockedSlot, error) {
	b, err := parseBlockedSlot(in)
	if err != nil {
		return model.BlockedSlot{}, err
	}
	day, err := s.loadCustomerDay(ctx, customerID)
	if err != nil {
		return model.BlockedSlot{}, err
	}
	if b.date.Before(day.today) {
		return model.BlockedSlot{}, ErrPastDate
	}
	mutate := func(cur model.BlockedSlot) (model.BlockedSlot, error) {
		cur.Date, cur.Start, cur.End, cur.Reason = b.date, b.iv.Start, b.iv.End, b.reason
		return cur, nil
	}
	guard := func(_ model.BlockedSlot, occ model.Occupancy) error {
		return blockGuard(b.iv)(occ)
	}
	out, err := s.store.UpdateBlockedSlot(ctx, customerID, id, mutate, guard)
	if err != nil {
		return model.BlockedSlot{}, fromStore("update blocked slot", err, ErrBlockedSlotNotFound)
	}
	return out, nil
}

func (s *Service) DeleteBlockedSlot(ctx context.Context, customerID, id string) error {
	if err := s.store.DeleteBlockedSlot(ctx, customerID, id); err != nil {
		return fromStore("delete blocked slot", err, ErrBlockedSlotNotFound)
	}
	s.logger.Info("blocked slot deleted", "blocked_slot_id", id, "customer_id", customerID)
	return nil
}

type WorkingHoursInput struct {
	DayOfWeek    int
	IsWorkingDay bool
	StartTime    string
	EndTime      string
}

// WorkingHours returns all seven days; unconfigured days are closed.
func (s *Service) WorkingHours(ctx context.Context, customerID string) ([]model.WorkingHours, error) {
	stored, err := s.store.ListWorkingHours(ctx, customerID)
	if err != nil {
		return nil, fromStore("list working hours", err, nil)
	}
	week := make([]model.WorkingHours, 7)
	for d := range week {
		week[d] = model.WorkingHours{Weekday: time.Weekday(d)}
	}
	for _, wh := range stored {
		if wh.Weekday >= time.Sunday && wh.Weekday <= time.Saturday {
			week[wh.Weekday] = wh
		}
	}
	return week, nil
}

func (s *Service) ReplaceWorkingHours(ctx context.Context, customerID string, in []WorkingHoursInput) ([]model.WorkingHours, error) {
	if len(in) == 0 || len(in) > 7 {
		return nil, invalid("working hours must list between 1 and 7 days")
	}
	seen := make(map[int]bool, len(in))
	hours := make([]model.WorkingHours, 0, len(in))
	for _, d := range in {
		if d.DayOfWeek < 0 || d.DayOfWeek > 6 {
			return nil, invalid("day_of_week must be between 0 (Sunday) and 6 (Saturday)")
		}
		if seen[d.DayOfWeek] {
			return nil, invalid("day_of_week must not repeat")
		}
		seen[d.DayOfWeek] = true

		wh := model.WorkingHours{Weekday: time.Weekday(d.DayOfWeek), IsWorkingDay: d.IsWorkingDay}
		if d.IsWorkingDay || d.StartTime != "" || d.EndTime != "" {
			var err error
			if wh.Start, err = model.ParseClock(d.StartTime); err != nil {
				return nil, invalid(err.Error())
			}
			if wh.End, err = model.ParseClock(d.EndTime); err != nil {
				return nil, invalid(err.Error())
			}
			if wh.End <= wh.Start {
				return nil, invalid("end time must be after start time on " + wh.Weekday.String())
			}
		}
		hours = append(hours, wh)
	}
	if _, err := s.store.GetCustomer(ctx, customerID); err != nil {
		return nil, fromStore("load customer", err, ErrCustomerNotFound)
	}
	if err := s.store.ReplaceWorkingHours(ctx, customerID, hours); err != nil {
		return nil, fromStore("replace working hours", err, ErrCustomerNotFound)
	}
	s.logger.Info("working hours replaced", "customer_id", customerID, "days", len(hours))
	return s.WorkingHours(ctx, customerID)
}

func (s *Service) Settings(ctx context.Context, customerID string) (model.Settings, error) {
	st, err := s.store.GetSettings(ctx, customerID)
	if err != nil {
		return model.Settings{}, fromStore("load settings", err, ErrCustomerNotFound)
	}
	return st, nil
}

func (s *Service) UpdateSettings(ctx context.Context, customerID string, st model.Settings) (model.Settings, error) {
	if err := st.Validate(); err != nil {
		return model.Settings{}, invalid(strings.ReplaceAll(err.Error(), "\n", "; "))
	}
	if err := s.store.UpsertSettings(ctx, customerID, st); err != nil {
		return model.Settings{}, fromStore("save settings", err, ErrCustomerNotFound)
	}
	s.logger.Info("settings updated", "customer_id", customerID)
	return st, nil
}
