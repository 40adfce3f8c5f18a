package booking

import (
	"errors"

	"github.com/canerconnect/terminflow/services/booking-service/internal/storage"
)

type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindNotFound
	KindPolicy
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindPolicy:
		return "policy"
	case KindConflict:
		return "conflict"
	default:
		return "unexpected"
	}
}

// Error is returned by every Service operation. Code is stable and meant for
// clients; Reason is the human readable message.
type Error struct {
	Kind   Kind
	Code   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind and code so errors with a custom reason still compare
// equal to the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Code == e.Code
}

var (
	ErrInvalidRequest = &Error{Kind: KindValidation, Code: "invalid_request", Reason: "invalid request"}
	ErrPastDate       = &Error{Kind: KindValidation, Code: "past_date", Reason: "date is in the past"}
	ErrDateTooFar     = &Error{Kind: KindValidation, Code: "too_far_in_advance", Reason: "date is too far in advance"}
	ErrTokenRequired  = &Error{Kind: KindValidation, Code: "token_required", Reason: "cancellation token is required"}
	ErrInvalidStatus  = &Error{Kind: KindValidation, Code: "invalid_status", Reason: "invalid status"}

	ErrCustomerNotFound    = &Error{Kind: KindNotFound, Code: "customer_not_found", Reason: "customer not found"}
	ErrBookingNotFound     = &Error{Kind: KindNotFound, Code: "booking_not_found", Reason: "appointment not found or already cancelled"}
	ErrBlockedSlotNotFound = &Error{Kind: KindNotFound, Code: "blocked_slot_not_found", Reason: "blocked slot not found"}

	ErrTooSoon        = &Error{Kind: KindPolicy, Code: "too_soon", Reason: "appointment is too soon"}
	ErrBookingTooFar  = &Error{Kind: KindPolicy, Code: "too_far_in_advance", Reason: "appointment is too far in advance"}
	ErrOutsideHours   = &Error{Kind: KindPolicy, Code: "outside_working_hours", Reason: "booking outside working hours"}
	ErrDeadlinePassed = &Error{Kind: KindPolicy, Code: "deadline_passed", Reason: "cancellation deadline has passed"}

	ErrSlotTaken      = &Error{Kind: KindConflict, Code: "slot_taken", Reason: "this time slot is no longer available"}
	ErrSlotBlocked    = &Error{Kind: KindConflict, Code: "slot_blocked", Reason: "this time slot is blocked"}
	ErrBufferRequired = &Error{Kind: KindConflict, Code: "buffer_required", Reason: "buffer time required after the previous appointment"}
	ErrBlockOverlap   = &Error{Kind: KindConflict, Code: "block_overlap", Reason: "blocked slot overlaps an existing appointment"}
	ErrBlockDuplicate = &Error{Kind: KindConflict, Code: "block_duplicate", Reason: "blocked slot overlaps another blocked slot"}
	ErrStaleWrite     = &Error{Kind: KindConflict, Code: "stale_write", Reason: "appointment changed concurrently, retry"}
)

var errClosedDay = &Error{Kind: KindPolicy, Code: ErrOutsideHours.Code, Reason: "booking not allowed on this day"}

// ErrInvalidCredentials is returned by Authenticate for any login failure.
var ErrInvalidCredentials = errors.New("invalid username or password")

func invalid(reason string) *Error {
	return &Error{Kind: ErrInvalidRequest.Kind, Code: ErrInvalidRequest.Code, Reason: reason}
}

func unexpected(op string, err error) *Error {
	return &Error{Kind: KindUnexpected, Code: "internal", Reason: op, Err: err}
}

// KindOf classifies err; anything that is not an *Error is unexpected.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// fromStore passes domain errors through and maps storage sentinels.
func fromStore(op string, err error, notFound *Error) error {
	if err == nil {
		return nil
	}
	var e *Error
	switch {
	case errors.As(err, &e):
		return err
	case errors.Is(err, storage.ErrNotFound) && notFound != nil:
		return notFound
	case storage.IsConflict(err, storage.ConstraintAppointmentOverlap):
		return ErrSlotTaken
	case storage.IsConflict(err, storage.ConstraintBlockedOverlap):
		return ErrBlockDuplicate
	}
	return unexpected(op, err)
}
