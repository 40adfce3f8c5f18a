package availability

import (
	"sort"

	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
)

// Interval is a half-open [Start, End) range of minutes on one day.
type Interval struct {
	Start model.Clock
	End   model.Clock
}

func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && o.Start < i.End
}

func (i Interval) Within(outer Interval) bool {
	return i.Start >= outer.Start && i.End <= outer.End
}

type Reason string

const (
	ReasonBooked  Reason = "booked"
	ReasonBlocked Reason = "blocked"
	ReasonBuffer  Reason = "buffer"
	ReasonTooSoon Reason = "too_soon"
)

// Candidate is one tiled window with the first rule that rejected it, if any.
type Candidate struct {
	Interval
	Available bool
	Reason    Reason
}

type Rules struct {
	Duration int
	Buffer   int
	// NotBefore drops candidates that start earlier. Zero means no cutoff;
	// anything past the end of the day drops the whole day.
	NotBefore model.Clock
}

// Busy holds the occupied ranges of one day. Booked are appointments, Blocked
// are admin reservations; only Booked participates in the buffer rule.
type Busy struct {
	Booked  []Interval
	Blocked []Interval
}

// BusyFrom keeps the appointments whose status still holds the slot.
func BusyFrom(occ model.Occupancy) Busy {
	var b Busy
	for _, a := range occ.Appointments {
		if a.Status.Occupies() {
			b.Booked = append(b.Booked, Interval{Start: a.Start, End: a.End})
		}
	}
	for _, s := range occ.Blocked {
		b.Blocked = append(b.Blocked, Interval{Start: s.Start, End: s.End})
	}
	sort.Slice(b.Booked, func(i, j int) bool { return b.Booked[i].Start < b.Booked[j].Start })
	return b
}

// Tile cuts work into back to back windows of duration minutes starting at
// work.Start. A trailing window that would pass work.End is not emitted.
func Tile(work Interval, duration int) []Interval {
	if duration <= 0 || work.End <= work.Start {
		return nil
	}
	var out []Interval
	for start := work.Start; start.Add(duration) <= work.End; start = start.Add(duration) {
		out = append(out, Interval{Start: start, End: start.Add(duration)})
	}
	return out
}

// Evaluate tiles the working interval and marks every candidate against busy
// time, the buffer after the preceding appointment and the advance cutoff.
func Evaluate(work Interval, rules Rules, busy Busy) []Candidate {
	tiles := Tile(work, rules.Duration)
	out := make([]Candidate, 0, len(tiles))
	for _, iv := range tiles {
		c := Candidate{Interval: iv, Available: true}
		switch {
		case overlapsAny(iv, busy.Booked):
			c.Available, c.Reason = false, ReasonBooked
		case overlapsAny(iv, busy.Blocked):
			c.Available, c.Reason = false, ReasonBlocked
		case BufferViolated(iv, busy.Booked, rules.Buffer):
			c.Available, c.Reason = false, ReasonBuffer
		case rules.NotBefore > 0 && iv.Start < rules.NotBefore:
			c.Available, c.Reason = false, ReasonTooSoon
		}
		out = append(out, c)
	}
	return out
}

// Available returns the bookable candidates in order.
func Available(cands []Candidate) []Interval {
	out := make([]Interval, 0, len(cands))
	for _, c := range cands {
		if c.Available {
			out = append(out, c.Interval)
		}
	}
	return out
}

// BufferViolated reports whether iv starts less than buffer minutes after the
// end of the closest booked interval that ends at or before iv.Start.
func BufferViolated(iv Interval, booked []Interval, buffer int) bool {
	if buffer <= 0 {
		return false
	}
	end, ok := precedingEnd(booked, iv.Start)
	return ok && iv.Start < end.Add(buffer)
}

func precedingEnd(booked []Interval, at model.Clock) (model.Clock, bool) {
	var (
		best  model.Clock
		found bool
	)
	for _, b := range booked {
		if b.End <= at && (!found || b.End > best) {
			best, found = b.End, true
		}
	}
	return best, found
}

func overlapsAny(iv Interval, busy []Interval) bool {
	for _, b := range busy {
		if iv.Overlaps(b) {
			return true
		}
	}
	return false
}
