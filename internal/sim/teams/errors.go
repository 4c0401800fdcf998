package teams

import (
	"errors"
	"fmt"
)

// Code is the stable refusal code carried by an *Error.
type Code string

const (
	CodeInvalidTeam    Code = "E_INVALID_TEAM"
	CodeActorNotFound  Code = "E_ACTOR_NOT_FOUND"
	CodeActorInactive  Code = "E_ACTOR_INACTIVE"
	CodeActorAtCap     Code = "E_ACTOR_AT_CAPACITY"
	CodeArcExhausted   Code = "E_ARC_EXHAUSTED"
	CodeNodeRejected   Code = "E_NODE_REJECTED"
	CodeEmptyNode      Code = "E_EMPTY_NODE"
	CodeAlreadySeeded  Code = "E_ALREADY_SEEDED"
	CodeBadState       Code = "E_BAD_STATE"
	CodeInvariantBreak Code = "E_INVARIANT"
)

// Error is returned by every engine operation that can be refused. A refused
// operation leaves the engine untouched.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Msg
}

// Is matches on Code so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidTeam   = &Error{Code: CodeInvalidTeam}
	ErrActorNotFound = &Error{Code: CodeActorNotFound}
	ErrActorInactive = &Error{Code: CodeActorInactive}
	ErrActorAtCap    = &Error{Code: CodeActorAtCap}
	ErrArcExhausted  = &Error{Code: CodeArcExhausted}
	ErrNodeRejected  = &Error{Code: CodeNodeRejected}
	ErrEmptyNode     = &Error{Code: CodeEmptyNode}
	ErrAlreadySeeded = &Error{Code: CodeAlreadySeeded}
	ErrBadState      = &Error{Code: CodeBadState}
	ErrInvariant     = &Error{Code: CodeInvariantBreak}
)

func errf(code Code, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf returns the engine code carried by err, or "" if err is not an engine error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
