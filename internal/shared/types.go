package shared

import "errors"

// Kind classifies why an intent was rejected.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindForbidden
	KindInvalidState
	KindInvalidMove
	KindCapacity
	KindAuthFailure
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindInvalidState:
		return "invalid_state"
	case KindInvalidMove:
		return "invalid_move"
	case KindCapacity:
		return "capacity"
	case KindAuthFailure:
		return "auth_failure"
	default:
		return "unknown"
	}
}

// Error is the failure half of every game operation. Msg is shown to the
// acting client verbatim.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Msg: msg} }
func Forbidden(msg string) *Error    { return &Error{Kind: KindForbidden, Msg: msg} }
func InvalidState(msg string) *Error { return &Error{Kind: KindInvalidState, Msg: msg} }
func InvalidMove(msg string) *Error  { return &Error{Kind: KindInvalidMove, Msg: msg} }
func Capacity(msg string) *Error     { return &Error{Kind: KindCapacity, Msg: msg} }
func AuthFailure(msg string) *Error  { return &Error{Kind: KindAuthFailure, Msg: msg} }

// KindOf reports the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
